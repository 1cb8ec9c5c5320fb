// Package outcome clasifica el resultado de las operaciones de los libros y lo reporta
// en logs y métricas: defectos, eventos de seguridad, conflictos y rechazos de negocio.
package outcome

import (
	"time"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/pkg/logger"
)

// Classify asigna una categoría de ports.Outcome* al error.
func Classify(err error) string {
	switch {
	case err == nil:
		return ports.OutcomeOK
	case domain.IsDefect(err):
		return ports.OutcomeDefect
	case domain.IsSecurityEvent(err):
		return ports.OutcomeSecurity
	case domain.IsRetryable(err):
		return ports.OutcomeConflict
	case domain.IsBusinessRejection(err):
		return ports.OutcomeRejected
	default:
		return ports.OutcomeError
	}
}

// Report registra el resultado de op. Uso: defer func() { outcome.Report(...) }().
func Report(log *logger.Logger, obs ports.Observer, op, org string, start time.Time, err error) {
	class := Classify(err)
	if obs != nil {
		obs.ObserveOperation(op, class, time.Since(start))
	}
	switch class {
	case ports.OutcomeDefect:
		log.Error().Err(err).Str("op", op).Str("org", org).Str("signal", "defect").Msg("violación de invariante")
	case ports.OutcomeSecurity:
		log.Warn().Err(err).Str("op", op).Str("org", org).Str("signal", "security").Msg("acceso entre organizaciones rechazado")
	case ports.OutcomeConflict:
		log.Warn().Err(err).Str("op", op).Str("org", org).Msg("conflicto de concurrencia")
	case ports.OutcomeRejected:
		log.Debug().Err(err).Str("op", op).Str("org", org).Msg("operación rechazada")
	case ports.OutcomeError:
		log.Error().Err(err).Str("op", op).Str("org", org).Msg("error de infraestructura")
	}
}
