package ports

import (
	"context"
	"time"
)

// StoredResponse respuesta HTTP guardada para repetirla ante la misma Idempotency-Key.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore guarda la respuesta de cada mutación por clave.
// Claim reserva la clave (false si ya estaba tomada); Get devuelve nil mientras la
// operación que la reservó sigue en curso.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Put(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
