package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/docledger/internal/application/ports"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout <= 0 deja el valor del servidor.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los bloqueos por entidad son advisory locks de transacción: se liberan con el Commit o el Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos ports.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		ms := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return fmt.Errorf("set lock_timeout: %w", mapError(err))
		}
	}

	if err := fn(NewRepos(tx)); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// NewRepos arma los repositorios sobre q; con un pool cada sentencia es su propia transacción.
func NewRepos(q Querier) ports.Repos {
	return ports.Repos{
		Organizations:      NewOrganizationRepository(q),
		Products:           NewProductRepository(q),
		Reservations:       NewReservationRepository(q),
		StockMovements:     NewStockMovementRepository(q),
		Clients:            NewClientRepository(q),
		AccountMovements:   NewAccountMovementRepository(q),
		Invoices:           NewInvoiceRepository(q),
		Purchases:          NewPurchaseRepository(q),
		CreditNotes:        NewCreditNoteRepository(q),
		CreditApplications: NewCreditApplicationRepository(q),
		Payments:           NewPaymentRepository(q),
		Locks:              newAdvisoryLocker(q),
	}
}

// advisoryLocker toma pg_advisory_xact_lock por clave en el orden global de ports.PlanLocks.
type advisoryLocker struct {
	q    Querier
	held map[string]struct{}
}

func newAdvisoryLocker(q Querier) *advisoryLocker {
	return &advisoryLocker{q: q, held: make(map[string]struct{})}
}

func (l *advisoryLocker) Lock(ctx context.Context, keys ...string) error {
	plan, err := ports.PlanLocks(l.held, keys)
	if err != nil {
		return err
	}
	for _, k := range plan {
		if _, err := l.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k); err != nil {
			return fmt.Errorf("lock %s: %w", k, mapError(err))
		}
		l.held[k] = struct{}{}
	}
	return nil
}
