package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/pkg/validation"
)

// ClientHandler clientes, su cuenta corriente y sus consultas de facturas y crédito.
type ClientHandler struct {
	account *account.AccountLedger
	credit  *credit.CreditLedger
	orch    *billing.Orchestrator
}

// NewClientHandler construye el handler.
func NewClientHandler(accountLedger *account.AccountLedger, creditLedger *credit.CreditLedger, orch *billing.Orchestrator) *ClientHandler {
	return &ClientHandler{account: accountLedger, credit: creditLedger, orch: orch}
}

// Create godoc
// @Summary      Crear cliente
// @Tags         clients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateClientRequest  true  "Datos del cliente"
// @Success      201   {object}  dto.ClientResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/clients [post]
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.CreateClientRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.account.CreateClient(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToClientResponse(out))
}

// GetByID godoc
// @Summary      Obtener cliente
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del cliente"
// @Success      200  {object}  dto.ClientResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/clients/{id} [get]
func (h *ClientHandler) GetByID(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.account.GetClient(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToClientResponse(out))
}

// Balance saldo confirmado del cliente.
// @Router       /api/v1/clients/{id}/balance [get]
func (h *ClientHandler) Balance(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	bal, err := h.account.Balance(c.UserContext(), org, id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.BalanceResponse{ClientID: id, Balance: bal})
}

// Movements libro de cuenta corriente del cliente.
// @Router       /api/v1/clients/{id}/movements [get]
func (h *ClientHandler) Movements(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.account.Movements(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.AccountMovementResponse]{Items: dto.Map(list, dto.ToAccountMovementResponse)})
}

// AppendMovement godoc
// @Summary      Ajuste manual de cuenta corriente
// @Tags         clients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID del cliente"
// @Param        body  body  dto.AccountMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.AccountMovementResponse
// @Router       /api/v1/clients/{id}/movements [post]
func (h *ClientHandler) AppendMovement(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.AccountMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.account.Append(c.UserContext(), org, in.ToInput(c.Params("id")))
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToAccountMovementResponse(out))
}

// Compensate agrega el movimiento opuesto que corrige un movimiento de cuenta.
// @Router       /api/v1/account-movements/{id}/compensate [post]
func (h *ClientHandler) Compensate(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.account.Compensate(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToAccountMovementResponse(out))
}

// Reconcile reproduce el libro del cliente desde cero.
// @Router       /api/v1/clients/{id}/reconcile [get]
func (h *ClientHandler) Reconcile(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.account.Reconcile(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}

// Invoices facturas del cliente.
// @Router       /api/v1/clients/{id}/invoices [get]
func (h *ClientHandler) Invoices(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.orch.ListClientInvoices(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.InvoiceResponse]{Items: dto.Map(list, dto.ToInvoiceResponse)})
}

// Credit crédito disponible y bloqueado del cliente o proveedor.
// @Router       /api/v1/clients/{id}/credit [get]
func (h *ClientHandler) Credit(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.credit.AvailableCredit(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
