package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/pkg/validation"
)

// CreditNoteHandler notas de crédito. Emisión, validación, anulación y aplicación pasan por
// el orquestador; bloqueo y consultas van directo al libro de créditos.
type CreditNoteHandler struct {
	orch   *billing.Orchestrator
	credit *credit.CreditLedger
}

// NewCreditNoteHandler construye el handler.
func NewCreditNoteHandler(orch *billing.Orchestrator, creditLedger *credit.CreditLedger) *CreditNoteHandler {
	return &CreditNoteHandler{orch: orch, credit: creditLedger}
}

// Issue godoc
// @Summary      Emitir nota de crédito
// @Tags         credit-notes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueCreditRequest  true  "Nota de crédito"
// @Success      201   {object}  dto.CreditNoteResponse
// @Failure      500   {object}  dto.ErrorResponse  "El crédito supera el total del documento origen"
// @Router       /api/v1/credit-notes [post]
func (h *CreditNoteHandler) Issue(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.IssueCreditRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.orch.IssueCredit(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToCreditNoteResponse(out))
}

// GetByID godoc
// @Summary      Obtener nota de crédito
// @Tags         credit-notes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la nota"
// @Success      200  {object}  dto.CreditNoteResponse
// @Router       /api/v1/credit-notes/{id} [get]
func (h *CreditNoteHandler) GetByID(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.credit.Get(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToCreditNoteResponse(out))
}

// Validate draft -> validated.
// @Router       /api/v1/credit-notes/{id}/validate [post]
func (h *CreditNoteHandler) Validate(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.orch.ValidateCredit(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToCreditNoteResponse(out))
}

// Cancel anula una nota sin crédito usado ni bloqueado.
// @Router       /api/v1/credit-notes/{id}/cancel [post]
func (h *CreditNoteHandler) Cancel(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.orch.CancelCredit(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToCreditNoteResponse(out))
}

// Block godoc
// @Summary      Bloquear crédito disponible
// @Tags         credit-notes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la nota"
// @Param        body  body  dto.CreditAmountRequest  true  "Monto"
// @Success      200   {object}  dto.CreditNoteResponse
// @Failure      409   {object}  dto.ErrorResponse  "Crédito insuficiente"
// @Router       /api/v1/credit-notes/{id}/block [post]
func (h *CreditNoteHandler) Block(c *fiber.Ctx) error {
	return h.moveBlocked(c, h.credit.Block)
}

// Unblock libera crédito bloqueado.
// @Router       /api/v1/credit-notes/{id}/unblock [post]
func (h *CreditNoteHandler) Unblock(c *fiber.Ctx) error {
	return h.moveBlocked(c, h.credit.Unblock)
}

func (h *CreditNoteHandler) moveBlocked(c *fiber.Ctx, move func(ctx context.Context, org, id string, amount decimal.Decimal) (*entity.CreditNote, error)) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.CreditAmountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := move(c.UserContext(), org, c.Params("id"), in.Amount)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToCreditNoteResponse(out))
}

// Apply godoc
// @Summary      Aplicar crédito a una factura o documento de compra
// @Tags         credit-notes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la nota"
// @Param        body  body  dto.ApplyCreditRequest  true  "Destino y monto"
// @Success      201   {object}  dto.CreditApplicationResponse
// @Failure      409   {object}  dto.ErrorResponse  "Crédito insuficiente"
// @Router       /api/v1/credit-notes/{id}/apply [post]
func (h *CreditNoteHandler) Apply(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.ApplyCreditRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.orch.ApplyCredit(c.UserContext(), org, c.Params("id"), in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToCreditApplicationResponse(out))
}

// Applications aplicaciones registradas de la nota.
// @Router       /api/v1/credit-notes/{id}/applications [get]
func (h *CreditNoteHandler) Applications(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.credit.Applications(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.CreditApplicationResponse]{Items: dto.Map(list, dto.ToCreditApplicationResponse)})
}

// Reconcile verifica la cuádrupla de la nota contra sus aplicaciones.
// @Router       /api/v1/credit-notes/{id}/reconcile [get]
func (h *CreditNoteHandler) Reconcile(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.credit.Reconcile(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
