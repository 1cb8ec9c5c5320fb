package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

// Códigos SQLSTATE que se traducen a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// mapError traduce errores de PostgreSQL a los sentinelas del dominio.
// Serialización, deadlock y lock_timeout son conflictos reintentables; un CHECK roto es
// una violación de invariante que escapó a la validación en memoria.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, pgErr.Message)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	case codeCheckViolation:
		return domain.Invariant("constraint %s: %s", pgErr.ConstraintName, pgErr.Message)
	}
	return err
}

// notFound convierte pgx.ErrNoRows en domain.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return fmt.Errorf("%s: %w", what, mapError(err))
}

// checkUpdated exige exactamente una fila: cero filas es una versión obsoleta.
func checkUpdated(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: %s modificado por otra transacción", domain.ErrConcurrencyConflict, what)
	}
	return nil
}

// jsonColumn serializa un valor para una columna JSONB; nil se guarda como arreglo u objeto vacío.
func jsonColumn(v any, empty string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	if string(b) == "null" {
		return []byte(empty), nil
	}
	return b, nil
}

// docColumns serializa impuestos, totales y líneas de un documento.
func docColumns(taxes money.TaxConfig, totals money.DocumentTotals, lines []entity.DocumentLine) (t, tt, l []byte, err error) {
	if t, err = jsonColumn(taxes, "{}"); err != nil {
		return nil, nil, nil, err
	}
	if tt, err = jsonColumn(totals, "{}"); err != nil {
		return nil, nil, nil, err
	}
	if l, err = jsonColumn(lines, "[]"); err != nil {
		return nil, nil, nil, err
	}
	return t, tt, l, nil
}

// decodeDoc deserializa las columnas JSONB leídas por docColumns.
func decodeDoc(t, tt, l []byte, taxes *money.TaxConfig, totals *money.DocumentTotals, lines *[]entity.DocumentLine) error {
	if err := json.Unmarshal(t, taxes); err != nil {
		return fmt.Errorf("unmarshal taxes: %w", err)
	}
	if err := json.Unmarshal(tt, totals); err != nil {
		return fmt.Errorf("unmarshal totals: %w", err)
	}
	if err := json.Unmarshal(l, lines); err != nil {
		return fmt.Errorf("unmarshal lines: %w", err)
	}
	return nil
}
