package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/pkg/logger"
)

// HeaderIdempotencyKey cabecera con la clave elegida por el cliente.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Idempotency repite la respuesta guardada cuando una mutación llega otra vez con la misma
// Idempotency-Key. La clave se aísla por organización, método y ruta. Sin cabecera no hace nada.
// Las respuestas 5xx no se guardan: la clave se libera para permitir el reintento.
func Idempotency(store ports.IdempotencyStore, ttl time.Duration, log *logger.Logger) fiber.Handler {
	log = log.Named("idempotency")
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			return c.Next()
		}
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}
		if len(key) > 255 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "Idempotency-Key demasiado larga"})
		}
		scoped := GetOrganizationID(c) + ":" + c.Method() + ":" + c.Path() + ":" + key
		ctx := c.UserContext()

		stored, err := store.Get(ctx, scoped)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("lectura de idempotencia")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_UNAVAILABLE", Message: "no se pudo verificar la clave de idempotencia"})
		}
		if stored != nil {
			return replay(c, stored)
		}
		claimed, err := store.Claim(ctx, scoped, ttl)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("reserva de idempotencia")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_UNAVAILABLE", Message: "no se pudo reservar la clave de idempotencia"})
		}
		if !claimed {
			// otra petición con la misma clave terminó entre Get y Claim, o sigue en curso
			if stored, err := store.Get(ctx, scoped); err == nil && stored != nil {
				return replay(c, stored)
			}
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_IN_PROGRESS", Message: "una petición con esta Idempotency-Key sigue en curso"})
		}

		if err := c.Next(); err != nil {
			_ = store.Release(ctx, scoped)
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			if err := store.Release(ctx, scoped); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("no se liberó la clave")
			}
			return nil
		}
		resp := ports.StoredResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.Put(ctx, scoped, resp, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("no se guardó la respuesta idempotente")
		}
		return nil
	}
}

func replay(c *fiber.Ctx, stored *ports.StoredResponse) error {
	c.Set(HeaderReplayed, "true")
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	return c.Status(stored.Status).Send(stored.Body)
}
