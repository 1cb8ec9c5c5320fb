package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/infrastructure/cache"
	"github.com/jhoicas/docledger/internal/infrastructure/memory"
	"github.com/jhoicas/docledger/internal/infrastructure/metrics"
	"github.com/jhoicas/docledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/docledger/internal/interfaces/http"
	"github.com/jhoicas/docledger/pkg/config"
	"github.com/jhoicas/docledger/pkg/logger"
)

// @title                       docledger API
// @version                     1.0
// @description                 Documentos comerciales con libros de stock, crédito y saldos por cliente.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.Store).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	ctx := context.Background()

	var prom *metrics.Prometheus
	var obs ports.Observer = ports.NopObserver{}
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		obs = prom
	}

	var base ports.TxRunner
	switch cfg.Ledger.Store {
	case "memory":
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al detener el proceso")
		base = memory.NewStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		base = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
	}
	txRunner := ports.NewRetryingTxRunner(base, cfg.Ledger.MaxAttempts, cfg.Ledger.RetryBackoff, obs)

	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisStore, err := cache.NewRedisIdempotencyStore(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisStore.Close()
		idem = redisStore
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: claves de idempotencia en memoria del proceso")
		idem = cache.NewMemoryIdempotencyStore()
	}

	clock := ports.SystemClock{}
	stockLedger := inventory.NewStockLedger(txRunner, clock, log, obs, cfg.Ledger.ReservationTTL)
	creditLedger := credit.NewCreditLedger(txRunner, clock, log, obs)
	accountLedger := account.NewAccountLedger(txRunner, clock, log, obs)
	orchestrator := billing.NewOrchestrator(txRunner, clock, log, obs, stockLedger, creditLedger, accountLedger, billing.Config{
		DefaultStampDuty:         cfg.Ledger.DefaultStampDuty,
		DefaultReferenceCurrency: cfg.Ledger.ReferenceCurrency,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.Docs.Enabled {
		httpRouter.MountDocs(app, httpRouter.DocsConfig{
			FilePath: cfg.Docs.FilePath,
			Path:     cfg.Docs.Path,
			Title:    cfg.App.Name + " API",
		}, log)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator:   orchestrator,
		Stock:          stockLedger,
		Credit:         creditLedger,
		Account:        accountLedger,
		JWTSecret:      cfg.JWT.Secret,
		Idempotency:    idem,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Metrics:        prom,
		MetricsPath:    cfg.Metrics.Path,
		Log:            log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
