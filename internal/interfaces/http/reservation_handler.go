package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/pkg/validation"
)

// ReservationHandler reservas de stock: reservar, liberar y consumir.
type ReservationHandler struct {
	stock *inventory.StockLedger
}

// NewReservationHandler construye el handler.
func NewReservationHandler(stock *inventory.StockLedger) *ReservationHandler {
	return &ReservationHandler{stock: stock}
}

// Reserve godoc
// @Summary      Reservar stock para un cliente
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "Reserva"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse  "Stock insuficiente"
// @Router       /api/v1/reservations [post]
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.stock.Reserve(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToReservationResponse(out))
}

// GetByID godoc
// @Summary      Obtener reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Router       /api/v1/reservations/{id} [get]
func (h *ReservationHandler) GetByID(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.stock.GetReservation(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToReservationResponse(out))
}

// Release libera una reserva activa; sobre una reserva ya cerrada no hace nada.
// @Router       /api/v1/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.stock.ReleaseReservation(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToReservationResponse(out))
}

// Consume convierte la reserva en salida de stock. El cuerpo es opcional.
// @Router       /api/v1/reservations/{id}/consume [post]
func (h *ReservationHandler) Consume(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.ConsumeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		if err := validation.Struct(in); err != nil {
			return handleError(c, err)
		}
	}
	out, err := h.stock.ConsumeReservation(c.UserContext(), org, c.Params("id"), in.SourceRef())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponse(out))
}
