package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/pkg/validation"
)

// PurchaseHandler documentos de compra a proveedor.
type PurchaseHandler struct {
	orch *billing.Orchestrator
}

// NewPurchaseHandler construye el handler.
func NewPurchaseHandler(orch *billing.Orchestrator) *PurchaseHandler {
	return &PurchaseHandler{orch: orch}
}

// Create godoc
// @Summary      Crear documento de compra en borrador
// @Tags         purchases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePurchaseRequest  true  "Documento de compra"
// @Success      201   {object}  dto.PurchaseResponse
// @Router       /api/v1/purchases [post]
func (h *PurchaseHandler) Create(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.CreatePurchaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.orch.CreatePurchaseDocument(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToPurchaseResponse(out))
}

// GetByID godoc
// @Summary      Obtener documento de compra
// @Tags         purchases
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.PurchaseResponse
// @Router       /api/v1/purchases/{id} [get]
func (h *PurchaseHandler) GetByID(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.orch.GetPurchaseDocument(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToPurchaseResponse(out))
}

// Transition godoc
// @Summary      Cambiar estado del documento de compra
// @Description  draft -> validated da entrada al stock y actualiza el costo promedio. validated -> cancelled la revierte.
// @Tags         purchases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del documento"
// @Param        body  body  dto.TransitionRequest  true  "Estado destino"
// @Success      200   {object}  dto.PurchaseResponse
// @Router       /api/v1/purchases/{id}/transition [post]
func (h *PurchaseHandler) Transition(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.orch.TransitionPurchaseDocument(c.UserContext(), org, c.Params("id"), entity.PurchaseStatus(in.Status))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToPurchaseResponse(out))
}

// CreditNotes notas de crédito emitidas sobre el documento de compra.
// @Router       /api/v1/purchases/{id}/credit-notes [get]
func (h *PurchaseHandler) CreditNotes(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.orch.ListCreditNotes(c.UserContext(), org, entity.PurchaseRef(c.Params("id")))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.CreditNoteResponse]{Items: dto.Map(list, dto.ToCreditNoteResponse)})
}
