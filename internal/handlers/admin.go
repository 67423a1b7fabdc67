// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/coatsure/warrantyd/internal/models"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
)

// TriggerSweep runs one scheduler job immediately.
func (h *Handlers) TriggerSweep(c echo.Context) error {
	name := c.Param("name")
	if err := h.sched.Trigger(c.Request().Context(), name); err != nil {
		return c.JSON(http.StatusNotFound, errBody("unknown_job", err))
	}
	return c.JSON(http.StatusOK, map[string]string{"triggered": name})
}

// ListJobs reports the state of every periodic job.
func (h *Handlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sched.Statuses())
}

type adminRequest struct {
	Action lifecycle.AdminAction `json:"action"`
	Admin  string                `json:"admin"`
	Reason string                `json:"reason"`
}

// OverrideWarranty applies an administrative transition to a warranty.
func (h *Handlers) OverrideWarranty(c echo.Context) error {
	return h.override(c, models.RecordTypeWarranty)
}

// OverrideInspection applies an administrative transition to an inspection.
func (h *Handlers) OverrideInspection(c echo.Context) error {
	return h.override(c, models.RecordTypeInspection)
}

func (h *Handlers) override(c echo.Context, recordType models.RecordType) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	var req adminRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	result, err := h.machine.AdminOverride(c.Request().Context(), id, recordType, req.Action, req.Admin, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ReinstateEligibility reports whether an expired warranty can be reinstated.
func (h *Handlers) ReinstateEligibility(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	elig, err := h.reinstater.CheckEligibility(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, elig)
}

type reinstateRequest struct {
	Admin  string `json:"admin"`
	Reason string `json:"reason"`
}

// Reinstate restores an expired warranty to active coverage.
func (h *Handlers) Reinstate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	var req reinstateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	w, err := h.reinstater.Reinstate(c.Request().Context(), id, req.Admin, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}
