package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/pkg/validation"
)

// errorStatus estado HTTP y código por error de dominio, en orden de precedencia.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrCrossTenantAccess, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrInvariantViolation, fiber.StatusInternalServerError, "INVARIANT_VIOLATION"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrInsufficientAvailableCredit, fiber.StatusConflict, "INSUFFICIENT_CREDIT"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConcurrencyConflict, fiber.StatusConflict, "CONFLICT"},
}

// handleError traduce un error de la capa de aplicación a la respuesta HTTP.
func handleError(c *fiber.Ctx, err error) error {
	if fields := validation.Details(err); len(fields) > 0 {
		return validationError(c, fields)
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func validationError(c *fiber.Ctx, fields []validation.FieldError) error {
	out := dto.ValidationErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	for _, f := range fields {
		out.Fields = append(out.Fields, dto.ValidationDetail{Field: f.Field, Message: f.Message})
	}
	return c.Status(fiber.StatusBadRequest).JSON(out)
}

// badBody respuesta para un cuerpo que no es JSON válido.
func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
