package ports

import (
	"context"
	"sort"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// Locker bloqueos exclusivos por entidad, válidos hasta el fin de la transacción.
// Lock ordena las claves y las adquiere en ese orden global; una clave ya tomada se ignora.
type Locker interface {
	Lock(ctx context.Context, keys ...string) error
}

// El prefijo numérico fija el orden global entre tipos de entidad:
// nota de crédito < factura < compra < cliente < producto.
// Las reservas se protegen con el bloqueo de su producto.
const (
	rankCreditNote = "1"
	rankInvoice    = "2"
	rankPurchase   = "3"
	rankClient     = "4"
	rankProduct    = "5"
)

func CreditNoteKey(id string) string { return rankCreditNote + "/credit_note/" + id }
func InvoiceKey(id string) string    { return rankInvoice + "/invoice/" + id }
func PurchaseKey(id string) string   { return rankPurchase + "/purchase_document/" + id }
func ClientKey(id string) string     { return rankClient + "/client/" + id }
func ProductKey(id string) string    { return rankProduct + "/product/" + id }

// DocumentKey clave de bloqueo del documento referenciado.
func DocumentKey(ref entity.SourceRef) (string, error) {
	switch ref.Kind {
	case entity.SourceInvoice:
		return InvoiceKey(ref.ID), nil
	case entity.SourcePurchase:
		return PurchaseKey(ref.ID), nil
	case entity.SourceCreditNote:
		return CreditNoteKey(ref.ID), nil
	}
	return "", domain.Validation("origen %s no es bloqueable", ref.Kind)
}

// PlanLocks devuelve las claves nuevas a adquirir, ordenadas y sin duplicados.
// Rechaza como defecto una clave nueva que ordena antes que una ya tomada: rompería el orden global.
func PlanLocks(held map[string]struct{}, keys []string) ([]string, error) {
	var maxHeld string
	for k := range held {
		if k > maxHeld {
			maxHeld = k
		}
	}
	seen := make(map[string]struct{}, len(keys))
	plan := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, domain.Validation("clave de bloqueo vacía")
		}
		if _, ok := held[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		plan = append(plan, k)
	}
	sort.Strings(plan)
	if len(plan) > 0 && plan[0] < maxHeld {
		return nil, domain.Invariant("bloqueo %s fuera de orden (ya se tiene %s)", plan[0], maxHeld)
	}
	return plan, nil
}
