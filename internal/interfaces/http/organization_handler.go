package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/pkg/validation"
)

// OrganizationHandler alta y lectura del tenant del token.
type OrganizationHandler struct {
	orch *billing.Orchestrator
}

// NewOrganizationHandler construye el handler.
func NewOrganizationHandler(orch *billing.Orchestrator) *OrganizationHandler {
	return &OrganizationHandler{orch: orch}
}

// Create godoc
// @Summary      Registrar la organización del token
// @Tags         organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrganizationRequest  true  "Datos de la organización"
// @Success      201   {object}  dto.OrganizationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/organization [post]
func (h *OrganizationHandler) Create(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.CreateOrganizationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	input := in.ToInput()
	input.ID = org
	out, err := h.orch.CreateOrganization(c.UserContext(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOrganizationResponse(out))
}

// Get godoc
// @Summary      Organización del token
// @Tags         organizations
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.OrganizationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/organization [get]
func (h *OrganizationHandler) Get(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.orch.GetOrganization(c.UserContext(), org)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToOrganizationResponse(out))
}
