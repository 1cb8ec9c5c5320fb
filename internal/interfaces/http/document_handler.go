package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/pkg/validation"
)

// DocumentHandler transición genérica de cualquier documento con estados.
type DocumentHandler struct {
	orch *billing.Orchestrator
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(orch *billing.Orchestrator) *DocumentHandler {
	return &DocumentHandler{orch: orch}
}

// Transition godoc
// @Summary      Cambiar estado de un documento
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        kind  path  string                 true  "invoice | purchase_document | credit_note"
// @Param        id    path  string                 true  "ID del documento"
// @Param        body  body  dto.TransitionRequest  true  "Estado destino"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/documents/{kind}/{id}/transition [post]
func (h *DocumentHandler) Transition(c *fiber.Ctx) error {
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
	ref := entity.SourceRef{Kind: entity.SourceKind(c.Params("kind")), ID: c.Params("id")}
	out, err := h.orch.TransitionDocument(c.UserContext(), org, ref, in.Status)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(out))
}
