package ports

import (
	"context"
	"time"

	"github.com/jhoicas/docledger/internal/domain"
)

// RetryingTxRunner reintenta la transacción completa ante ErrConcurrencyConflict,
// releyendo el estado en cada intento. Ningún otro error se reintenta.
type RetryingTxRunner struct {
	next        TxRunner
	maxAttempts int
	backoff     time.Duration
	observer    Observer
}

// NewRetryingTxRunner envuelve next; maxAttempts < 1 se trata como 1.
func NewRetryingTxRunner(next TxRunner, maxAttempts int, backoff time.Duration, observer Observer) *RetryingTxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &RetryingTxRunner{next: next, maxAttempts: maxAttempts, backoff: backoff, observer: observer}
}

func (r *RetryingTxRunner) Run(ctx context.Context, fn func(repos Repos) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.next.Run(ctx, fn)
		if err == nil || !domain.IsRetryable(err) || attempt == r.maxAttempts {
			return err
		}
		r.observer.ObserveRetry(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return err
}
