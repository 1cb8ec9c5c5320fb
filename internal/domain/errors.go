package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Se envuelven con fmt.Errorf("%w: ...") y se clasifican con errors.Is.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	// ErrInvariantViolation indica un bug del caller o una carrera que escapó al bloqueo.
	ErrInvariantViolation          = errors.New("violación de invariante")
	ErrConcurrencyConflict         = errors.New("conflicto de concurrencia")
	ErrCrossTenantAccess           = errors.New("acceso a recurso de otra organización")
	ErrInsufficientStock           = errors.New("stock insuficiente")
	ErrInsufficientAvailableCredit = errors.New("crédito disponible insuficiente")
	ErrInvalidTransition           = errors.New("transición de estado no permitida")
	ErrDuplicate                   = errors.New("recurso duplicado")
)

// Validation construye un error de validación con detalle.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Invariant construye una violación de invariante con detalle.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Transition construye un error de transición con estado origen y destino.
func Transition(entity, from, to string) error {
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, entity, from, to)
}

// CheckTenant valida que la entidad cargada pertenezca a la organización del caller.
func CheckTenant(callerOrg, entityOrg string) error {
	if callerOrg == "" {
		return Validation("organization_id requerido")
	}
	if callerOrg != entityOrg {
		return ErrCrossTenantAccess
	}
	return nil
}

// IsDefect indica si el error debe registrarse como señal de defecto.
func IsDefect(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsRetryable indica si la operación completa puede reintentarse desde una lectura nueva.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsSecurityEvent indica acceso cruzado entre organizaciones; nunca se reintenta.
func IsSecurityEvent(err error) bool {
	return errors.Is(err, ErrCrossTenantAccess)
}

// IsBusinessRejection agrupa los rechazos esperados que se muestran al usuario.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientAvailableCredit) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate)
}
