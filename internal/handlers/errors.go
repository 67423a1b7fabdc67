// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
	"github.com/coatsure/warrantyd/internal/services/token"
)

// writeError maps service errors to HTTP responses. Token failures each get
// their own status so the caller can tell a dead link from a spent one.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, token.ErrInvalid):
		return c.JSON(http.StatusNotFound, errBody("token_invalid", err))
	case errors.Is(err, token.ErrExpired):
		return c.JSON(http.StatusGone, errBody("token_expired", err))
	case errors.Is(err, token.ErrAlreadyUsed):
		return c.JSON(http.StatusConflict, errBody("token_already_used", err))
	case errors.Is(err, token.ErrTypeMismatch):
		return c.JSON(http.StatusBadRequest, errBody("token_type_mismatch", err))
	case errors.Is(err, lifecycle.ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, errBody("validation_failed", err))
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, errBody("not_found", err))
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, errBody("conflict", err))
	case errors.Is(err, repository.ErrIntegrity):
		return c.JSON(http.StatusInternalServerError, errBody("integrity", err))
	default:
		return c.JSON(http.StatusInternalServerError, errBody("internal", err))
	}
}

func errBody(code string, err error) map[string]string {
	return map[string]string{
		"error":  code,
		"detail": err.Error(),
	}
}
