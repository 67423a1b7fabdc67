// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/coatsure/warrantyd/internal/models"
)

type createWarrantyRequest struct {
	VehicleVIN     string    `json:"vehicle_vin"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  string    `json:"customer_email"`
	CustomerPhone  string    `json:"customer_phone"`
	InstallerID    uuid.UUID `json:"installer_id"`
	InstallerEmail string    `json:"installer_email"`
}

// CreateWarranty stores a new draft warranty.
func (h *Handlers) CreateWarranty(c echo.Context) error {
	var req createWarrantyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	w := &models.WarrantyRecord{
		VehicleVIN:     req.VehicleVIN,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		InstallerID:    req.InstallerID,
		InstallerEmail: req.InstallerEmail,
	}
	if err := h.repo.CreateWarranty(c.Request().Context(), w); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

// GetWarranty returns one warranty record.
func (h *Handlers) GetWarranty(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	w, err := h.repo.GetWarranty(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

type submitRequest struct {
	Actor string `json:"actor"`
}

// SubmitWarranty moves a draft warranty into the verification flow.
func (h *Handlers) SubmitWarranty(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	w, err := h.machine.SubmitWarranty(c.Request().Context(), id, req.Actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

type createInspectionRequest struct {
	WarrantyID  uuid.UUID `json:"warranty_id"`
	InspectorID uuid.UUID `json:"inspector_id"`
	Notes       string    `json:"notes"`
}

// CreateInspection stores a new draft inspection for a warranty.
func (h *Handlers) CreateInspection(c echo.Context) error {
	var req createInspectionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	in := &models.InspectionRecord{
		WarrantyID:  req.WarrantyID,
		InspectorID: req.InspectorID,
		Notes:       req.Notes,
	}
	if err := h.repo.CreateInspection(c.Request().Context(), in); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, in)
}

// SubmitInspection moves a draft inspection into the verification flow.
func (h *Handlers) SubmitInspection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	in, err := h.machine.SubmitInspection(c.Request().Context(), id, req.Actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, in)
}

// GetAuditTrail returns the full ledger of a record in version order.
func (h *Handlers) GetAuditTrail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("bad_request", err))
	}

	recordType := models.RecordType(c.QueryParam("record_type"))
	if recordType == "" {
		recordType = models.RecordTypeWarranty
	}

	entries, err := h.repo.ListAuditEntries(c.Request().Context(), id, recordType)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
