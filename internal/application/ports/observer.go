package ports

import "time"

// Clasificación del resultado de una operación.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeSecurity = "security"
	OutcomeDefect   = "defect"
	OutcomeError    = "error"
)

// Observer recibe el resultado de cada operación de los libros (métricas).
type Observer interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
	ObserveRetry(attempt int)
}

// NopObserver descarta las observaciones.
type NopObserver struct{}

func (NopObserver) ObserveOperation(string, string, time.Duration) {}
func (NopObserver) ObserveRetry(int)                               {}
