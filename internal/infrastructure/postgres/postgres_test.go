package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/jhoicas/docledger/pkg/config"
)

// recordingQuerier registra las sentencias Exec; Query y QueryRow no se usan en estas pruebas.
type recordingQuerier struct {
	execs []string
	args  [][]any
	err   error
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)
	q.args = append(q.args, args)
	return pgconn.NewCommandTag("SELECT 1"), q.err
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no implementado")
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestMapError(t *testing.T) {
	tests := map[string]struct {
		code string
		want error
	}{
		"serialización": {code: codeSerializationFailure, want: domain.ErrConcurrencyConflict},
		"deadlock":      {code: codeDeadlockDetected, want: domain.ErrConcurrencyConflict},
		"lock timeout":  {code: codeLockNotAvailable, want: domain.ErrConcurrencyConflict},
		"único":         {code: codeUniqueViolation, want: domain.ErrDuplicate},
		"check":         {code: codeCheckViolation, want: domain.ErrInvariantViolation},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := mapError(&pgconn.PgError{Code: tt.code, Message: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	plain := errors.New("red caída")
	assert.Same(t, plain, mapError(plain))
	assert.True(t, domain.IsRetryable(mapError(&pgconn.PgError{Code: codeDeadlockDetected})))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows, "product p-1"), domain.ErrNotFound)
	err := notFound(&pgconn.PgError{Code: codeUniqueViolation}, "product p-1")
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckUpdated(t *testing.T) {
	assert.NoError(t, checkUpdated(pgconn.NewCommandTag("UPDATE 1"), "invoice i-1"))
	assert.ErrorIs(t, checkUpdated(pgconn.NewCommandTag("UPDATE 0"), "invoice i-1"), domain.ErrConcurrencyConflict)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/ledger?sslmode=disable", migrateURL("postgres://u:p@db:5432/ledger?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@db/ledger", migrateURL("postgresql://u:p@db/ledger"))
	assert.Equal(t, "pgx5://db/ledger", migrateURL("pgx5://db/ledger"))
}

func TestNewPoolConfig(t *testing.T) {
	cfg := config.DBConfig{
		Host: "db", Port: 5432, User: "ledger", Password: "s3cr3t", DBName: "ledger", SSLMode: "disable",
		MaxConns: 20, MinConns: 4, MaxConnLife: 45 * time.Minute, MaxConnIdle: 5 * time.Minute,
	}
	pc, err := newPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(4), pc.MinConns)
	assert.Equal(t, 45*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
	assert.NotNil(t, pc.AfterConnect)
}

func TestNewPoolConfig_DatabaseURL(t *testing.T) {
	pc, err := newPoolConfig(config.DBConfig{DatabaseURL: "postgres://u:p@primary:6543/ledger?sslmode=disable"})
	require.NoError(t, err)
	assert.Equal(t, "primary", pc.ConnConfig.Host)
	assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
	assert.Equal(t, int32(defaultMaxConns), pc.MaxConns)

	_, err = newPoolConfig(config.DBConfig{DatabaseURL: "postgres://u:p@db:puerto/ledger"})
	assert.Error(t, err)
}

func TestAdvisoryLocker_OrdenGlobal(t *testing.T) {
	q := &recordingQuerier{}
	l := newAdvisoryLocker(q)
	ctx := context.Background()

	require.NoError(t, l.Lock(ctx, ports.ProductKey("b"), ports.InvoiceKey("i"), ports.ProductKey("a")))
	require.Len(t, q.args, 3)
	assert.Equal(t, ports.InvoiceKey("i"), q.args[0][0])
	assert.Equal(t, ports.ProductKey("a"), q.args[1][0])
	assert.Equal(t, ports.ProductKey("b"), q.args[2][0])

	// claves ya tomadas no vuelven a la base
	require.NoError(t, l.Lock(ctx, ports.ProductKey("a")))
	assert.Len(t, q.execs, 3)

	err := l.Lock(ctx, ports.ClientKey("c"))
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Len(t, q.execs, 3)
}

func TestAdvisoryLocker_TimeoutEsConflicto(t *testing.T) {
	q := &recordingQuerier{err: &pgconn.PgError{Code: codeLockNotAvailable, Message: "canceling statement due to lock timeout"}}
	l := newAdvisoryLocker(q)
	err := l.Lock(context.Background(), ports.ClientKey("c"))
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Empty(t, l.held)
}

func TestDocColumns(t *testing.T) {
	taxes := money.TaxConfig{WithholdingApplied: true, WithholdingRate: decimal.NewFromInt(1)}
	totals := money.DocumentTotals{TotalTTC: decimal.RequireFromString("234.2"), NetPayable: decimal.RequireFromString("234.2")}
	lines := []entity.DocumentLine{{ID: "l-1", ProductID: "p-1", Quantity: decimal.NewFromInt(2)}}

	tb, ttb, lb, err := docColumns(taxes, totals, lines)
	require.NoError(t, err)

	var (
		gotTaxes  money.TaxConfig
		gotTotals money.DocumentTotals
		gotLines  []entity.DocumentLine
	)
	require.NoError(t, decodeDoc(tb, ttb, lb, &gotTaxes, &gotTotals, &gotLines))
	assert.True(t, gotTaxes.WithholdingRate.Equal(decimal.NewFromInt(1)))
	assert.True(t, gotTotals.NetPayable.Equal(totals.NetPayable))
	require.Len(t, gotLines, 1)
	assert.Equal(t, "p-1", gotLines[0].ProductID)

	_, _, empty, err := docColumns(money.TaxConfig{}, money.DocumentTotals{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
