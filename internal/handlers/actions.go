// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coatsure/warrantyd/internal/services/lifecycle"
)

type verifyRequest struct {
	Action lifecycle.VerifyAction `json:"action"`
	Reason string                 `json:"reason"`
}

// Verify resolves an installer verification link with confirm or decline.
func (h *Handlers) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	result, err := h.machine.Verify(c.Request().Context(), c.Param("token"), req.Action, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type activateRequest struct {
	Accepted bool `json:"accepted"`
}

// Activate resolves a customer activation link.
func (h *Handlers) Activate(c echo.Context) error {
	var req activateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	w, err := h.machine.AcceptActivation(c.Request().Context(), c.Param("token"), req.Accepted)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}
