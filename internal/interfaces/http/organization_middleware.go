package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// organizationChecker contrato mínimo para verificar el tenant del token.
// Lo implementa *billing.Orchestrator.
type organizationChecker interface {
	GetOrganization(ctx context.Context, org string) (*entity.Organization, error)
}

// RequireOrganization verifica que la organización del token esté registrada.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalOrganizationID).
//
//   - 403 Forbidden → organización no registrada o inactiva.
//   - 503 Service Unavailable → fallo al consultar el almacenamiento.
func RequireOrganization(checker organizationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		org := GetOrganizationID(c)
		if org == "" {
			return unauthorized(c)
		}
		_, err := checker.GetOrganization(c.UserContext(), org)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "ORGANIZATION_NOT_REGISTERED",
				Message: "la organización del token no está registrada o no está activa",
			})
		default:
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "ORGANIZATION_CHECK_FAILED",
				Message: "no se pudo verificar la organización, intente más tarde",
			})
		}
	}
}
