package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/pkg/validation"
)

// InvoiceHandler facturas de venta, sus pagos y sus notas de crédito.
type InvoiceHandler struct {
	orch *billing.Orchestrator
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(orch *billing.Orchestrator) *InvoiceHandler {
	return &InvoiceHandler{orch: orch}
}

// Create godoc
// @Summary      Crear factura en borrador
// @Description  Calcula totales y crea la factura en draft. El stock y la cuenta del cliente se tocan al validarla.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "Factura"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/v1/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.orch.CreateInvoice(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToInvoiceResponse(out))
}

// GetByID godoc
// @Summary      Obtener factura
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.orch.GetInvoice(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(out))
}

// Transition godoc
// @Summary      Cambiar estado de la factura
// @Description  draft -> validated consume reservas o descuenta stock y debita la cuenta del cliente.
// @Description  validated -> cancelled revierte stock y cuenta. Estados terminales no admiten cambios.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la factura"
// @Param        body  body  dto.TransitionRequest  true  "Estado destino"
// @Success      200   {object}  dto.InvoiceResponse
// @Failure      409   {object}  dto.ErrorResponse  "Transición inválida o stock insuficiente"
// @Router       /api/v1/invoices/{id}/transition [post]
func (h *InvoiceHandler) Transition(c *fiber.Ctx) error {
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
	out, err := h.orch.TransitionInvoice(c.UserContext(), org, c.Params("id"), entity.InvoiceStatus(in.Status))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToInvoiceResponse(out))
}

// RecordPayment godoc
// @Summary      Registrar pago
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID de la factura"
// @Param        body  body  dto.PaymentRequest  true  "Pago en moneda de la factura"
// @Success      201   {object}  dto.RecordPaymentResponse
// @Router       /api/v1/invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	p, inv, err := h.orch.RecordPayment(c.UserContext(), org, c.Params("id"), in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RecordPaymentResponse{
		Payment: dto.ToPaymentResponse(p),
		Invoice: dto.ToInvoiceResponse(inv),
	})
}

// Payments pagos de la factura.
// @Router       /api/v1/invoices/{id}/payments [get]
func (h *InvoiceHandler) Payments(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.orch.ListPayments(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.PaymentResponse]{Items: dto.Map(list, dto.ToPaymentResponse)})
}

// CreditNotes notas de crédito emitidas sobre la factura.
// @Router       /api/v1/invoices/{id}/credit-notes [get]
func (h *InvoiceHandler) CreditNotes(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.orch.ListCreditNotes(c.UserContext(), org, entity.InvoiceRef(c.Params("id")))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.CreditNoteResponse]{Items: dto.Map(list, dto.ToCreditNoteResponse)})
}

// Reconcile verifica pagos, créditos y estado de pago de la factura.
// @Router       /api/v1/invoices/{id}/reconcile [get]
func (h *InvoiceHandler) Reconcile(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.orch.ReconcileInvoice(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
