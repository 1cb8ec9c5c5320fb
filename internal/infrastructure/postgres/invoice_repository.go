package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo adaptador de facturas. Líneas, impuestos y totales congelados viven en columnas JSONB.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, organization_id, client_id, number, status, currency, exchange_rate, taxes, totals, lines,
	paid_amount, payment_status, credit_issued, debit_movement_id, version, date, validated_at, cancelled_at,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var taxes, totals, lines []byte
	err := row.Scan(
		&inv.ID, &inv.OrganizationID, &inv.ClientID, &inv.Number, &inv.Status, &inv.Currency, &inv.ExchangeRate,
		&taxes, &totals, &lines,
		&inv.PaidAmount, &inv.PaymentStatus, &inv.CreditIssued, &inv.DebitMovementID, &inv.Version, &inv.Date,
		&inv.ValidatedAt, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeDoc(taxes, totals, lines, &inv.Taxes, &inv.Totals, &inv.Lines); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserta cabecera y líneas.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.Version == 0 {
		inv.Version = 1
	}
	taxes, totals, lines, err := docColumns(inv.Taxes, inv.Totals, inv.Lines)
	if err != nil {
		return err
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err = r.q.Exec(ctx, query,
		inv.ID, inv.OrganizationID, inv.ClientID, inv.Number, inv.Status, inv.Currency, inv.ExchangeRate,
		taxes, totals, lines,
		inv.PaidAmount, inv.PaymentStatus, inv.CreditIssued, inv.DebitMovementID, inv.Version, inv.Date,
		inv.ValidatedAt, inv.CancelledAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", mapError(err))
	}
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "invoice "+id)
	}
	return inv, nil
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "invoice "+id)
	}
	return inv, nil
}

// Update reescribe estado, totales, líneas y acumulados con verificación de versión.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	taxes, totals, lines, err := docColumns(inv.Taxes, inv.Totals, inv.Lines)
	if err != nil {
		return err
	}
	query := `
		UPDATE invoices SET status = $3, taxes = $4, totals = $5, lines = $6, paid_amount = $7, payment_status = $8,
			credit_issued = $9, debit_movement_id = $10, validated_at = $11, cancelled_at = $12, updated_at = $13,
			version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.Version, inv.Status, taxes, totals, lines, inv.PaidAmount, inv.PaymentStatus,
		inv.CreditIssued, inv.DebitMovementID, inv.ValidatedAt, inv.CancelledAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", mapError(err))
	}
	if err := checkUpdated(tag, "invoice "+inv.ID); err != nil {
		return err
	}
	inv.Version++
	return nil
}

func (r *InvoiceRepo) ListByClient(ctx context.Context, clientID string) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE client_id = $1 ORDER BY created_at, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
