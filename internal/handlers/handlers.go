// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the JSON HTTP surface: actor endpoints for
// token-gated transitions and the administrative endpoints. Request
// authentication sits in front of this service and is not handled here.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
	"github.com/coatsure/warrantyd/internal/services/reinstate"
	"github.com/coatsure/warrantyd/internal/services/scheduler"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo       *repository.Repository
	machine    *lifecycle.Service
	reinstater *reinstate.Service
	sched      *scheduler.Scheduler
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, machine *lifecycle.Service, reinstater *reinstate.Service, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{repo: repo, machine: machine, reinstater: reinstater, sched: sched}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
