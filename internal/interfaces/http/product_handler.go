package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/pkg/validation"
)

// ProductHandler productos y su libro de stock.
type ProductHandler struct {
	stock *inventory.StockLedger
}

// NewProductHandler construye el handler.
func NewProductHandler(stock *inventory.StockLedger) *ProductHandler {
	return &ProductHandler{stock: stock}
}

// Create godoc
// @Summary      Crear producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.stock.CreateProduct(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToProductResponse(out))
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.stock.GetProduct(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToProductResponse(out))
}

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200  {object}  dto.ProductListResponse
// @Router       /api/v1/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	if err := validation.Struct(page); err != nil {
		return handleError(c, err)
	}
	list, err := h.stock.ListProducts(c.UserContext(), org, page.Limit, page.Offset)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ProductListResponse{
		Items: dto.Map(list, dto.ToProductResponse),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Movements log de movimientos del producto.
// @Router       /api/v1/products/{id}/movements [get]
func (h *ProductHandler) Movements(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	list, err := h.stock.Movements(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ListResponse[dto.MovementResponse]{Items: dto.Map(list, dto.ToMovementResponse)})
}

// ApplyMovement godoc
// @Summary      Movimiento directo de stock (entrada o salida)
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.MovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/movements [post]
func (h *ProductHandler) ApplyMovement(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(in); err != nil {
		return handleError(c, err)
	}
	out, err := h.stock.ApplyMovement(c.UserContext(), org, in.ToInput())
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponse(out))
}

// SweepExpired vence las reservas expiradas del producto.
// @Router       /api/v1/products/{id}/reservations/sweep [post]
func (h *ProductHandler) SweepExpired(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	n, err := h.stock.SweepExpired(c.UserContext(), org, id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.SweepResponse{ProductID: id, Expired: n})
}

// Reconcile recalcula current_stock y reserved_stock desde el ledger.
// @Router       /api/v1/products/{id}/reconcile [get]
func (h *ProductHandler) Reconcile(c *fiber.Ctx) error {
	org := GetOrganizationID(c)
	if org == "" {
		return unauthorized(c)
	}
	out, err := h.stock.Reconcile(c.UserContext(), org, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(out)
}
