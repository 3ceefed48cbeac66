package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

// ErrorHandler renders every error returned by a handler as
// {"error": ..., "code": ...} with the status matching its kind.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "status", code, "err", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// StatusFor maps service errors onto HTTP statuses.
func StatusFor(err error) int {
	var (
		fiberErr   *fiber.Error
		validation *services.ValidationError
		filterErr  *services.FilterError
		extErr     *services.ExternalServiceError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case services.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateEmail):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrVectorIndexDisabled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &filterErr):
		return fiber.StatusInternalServerError
	case errors.As(err, &extErr):
		if extErr.Service == services.ServiceStore {
			return fiber.StatusInternalServerError
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
