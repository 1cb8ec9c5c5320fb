package entity

import (
	"fmt"

	"github.com/jhoicas/docledger/internal/domain"
)

// SourceKind tipo de documento origen de un movimiento o crédito.
type SourceKind string

const (
	SourceInvoice     SourceKind = "invoice"
	SourcePurchase    SourceKind = "purchase_document"
	SourceCreditNote  SourceKind = "credit_note"
	SourcePayment     SourceKind = "payment"
	SourceReservation SourceKind = "reservation"
	SourceManual      SourceKind = "manual"
)

// SourceRef referencia etiquetada a exactamente un documento origen.
// Se construye solo con los constructores; el valor cero significa "sin origen".
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

func InvoiceRef(id string) SourceRef     { return SourceRef{Kind: SourceInvoice, ID: id} }
func PurchaseRef(id string) SourceRef    { return SourceRef{Kind: SourcePurchase, ID: id} }
func CreditNoteRef(id string) SourceRef  { return SourceRef{Kind: SourceCreditNote, ID: id} }
func PaymentRef(id string) SourceRef     { return SourceRef{Kind: SourcePayment, ID: id} }
func ReservationRef(id string) SourceRef { return SourceRef{Kind: SourceReservation, ID: id} }
func ManualRef(id string) SourceRef      { return SourceRef{Kind: SourceManual, ID: id} }

// IsZero indica ausencia de origen.
func (r SourceRef) IsZero() bool { return r.Kind == "" && r.ID == "" }

// IsDocument indica si el origen es un documento monetario (factura o compra).
func (r SourceRef) IsDocument() bool {
	return r.Kind == SourceInvoice || r.Kind == SourcePurchase
}

// Validate verifica que la referencia tenga un tipo conocido y un ID.
func (r SourceRef) Validate() error {
	switch r.Kind {
	case SourceInvoice, SourcePurchase, SourceCreditNote, SourcePayment, SourceReservation, SourceManual:
	default:
		return domain.Validation("tipo de origen desconocido %q", r.Kind)
	}
	if r.ID == "" {
		return domain.Validation("origen %s sin id", r.Kind)
	}
	return nil
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// ParseSourceKind valida un tipo de origen recibido como texto.
func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(s)
	if err := (SourceRef{Kind: k, ID: "-"}).Validate(); err != nil {
		return "", err
	}
	return k, nil
}
