package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/infrastructure/metrics"
	"github.com/jhoicas/docledger/pkg/logger"
)

// DefaultIdempotencyTTL vigencia de una respuesta guardada por Idempotency-Key.
const DefaultIdempotencyTTL = 24 * time.Hour

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator   *billing.Orchestrator
	Stock          *inventory.StockLedger
	Credit         *credit.CreditLedger
	Account        *account.AccountLedger
	JWTSecret      string
	Idempotency    ports.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *metrics.Prometheus
	MetricsPath    string
	Log            *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	if deps.Metrics != nil {
		app.Get(deps.MetricsPath, adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	mw := []fiber.Handler{AuthMiddleware(deps.JWTSecret)}
	if deps.Idempotency != nil {
		mw = append(mw, Idempotency(deps.Idempotency, deps.IdempotencyTTL, deps.Log))
	}
	api := app.Group("/api/v1", mw...)

	write := RequireRole(RoleAdmin, RoleContador)
	registered := RequireOrganization(deps.Orchestrator)

	// Organización del token (el alta no exige que exista)
	orgHandler := NewOrganizationHandler(deps.Orchestrator)
	api.Post("/organization", RequireRole(RoleAdmin), orgHandler.Create)
	api.Get("/organization", orgHandler.Get)

	// Productos y stock
	productHandler := NewProductHandler(deps.Stock)
	products := api.Group("/products", registered)
	products.Post("/", write, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Get("/:id/movements", productHandler.Movements)
	products.Get("/:id/reconcile", productHandler.Reconcile)
	products.Post("/:id/reservations/sweep", write, productHandler.SweepExpired)

	stock := api.Group("/stock", registered)
	stock.Post("/movements", write, productHandler.ApplyMovement)

	reservationHandler := NewReservationHandler(deps.Stock)
	reservations := api.Group("/reservations", registered)
	reservations.Post("/", write, reservationHandler.Reserve)
	reservations.Get("/:id", reservationHandler.GetByID)
	reservations.Post("/:id/release", write, reservationHandler.Release)
	reservations.Post("/:id/consume", write, reservationHandler.Consume)

	// Clientes y cuenta corriente
	clientHandler := NewClientHandler(deps.Account, deps.Credit, deps.Orchestrator)
	clients := api.Group("/clients", registered)
	clients.Post("/", write, clientHandler.Create)
	clients.Get("/:id", clientHandler.GetByID)
	clients.Get("/:id/balance", clientHandler.Balance)
	clients.Get("/:id/movements", clientHandler.Movements)
	clients.Post("/:id/movements", write, clientHandler.AppendMovement)
	clients.Get("/:id/reconcile", clientHandler.Reconcile)
	clients.Get("/:id/invoices", clientHandler.Invoices)
	clients.Get("/:id/credit", clientHandler.Credit)

	movements := api.Group("/account-movements", registered)
	movements.Post("/:id/compensate", write, clientHandler.Compensate)

	// Facturas
	invoiceHandler := NewInvoiceHandler(deps.Orchestrator)
	invoices := api.Group("/invoices", registered)
	invoices.Post("/", write, invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Post("/:id/transition", write, invoiceHandler.Transition)
	invoices.Post("/:id/payments", write, invoiceHandler.RecordPayment)
	invoices.Get("/:id/payments", invoiceHandler.Payments)
	invoices.Get("/:id/credit-notes", invoiceHandler.CreditNotes)
	invoices.Get("/:id/reconcile", invoiceHandler.Reconcile)

	// Documentos de compra
	purchaseHandler := NewPurchaseHandler(deps.Orchestrator)
	purchases := api.Group("/purchases", registered)
	purchases.Post("/", write, purchaseHandler.Create)
	purchases.Get("/:id", purchaseHandler.GetByID)
	purchases.Post("/:id/transition", write, purchaseHandler.Transition)
	purchases.Get("/:id/credit-notes", purchaseHandler.CreditNotes)

	// Notas de crédito
	creditHandler := NewCreditNoteHandler(deps.Orchestrator, deps.Credit)
	creditNotes := api.Group("/credit-notes", registered)
	creditNotes.Post("/", write, creditHandler.Issue)
	creditNotes.Get("/:id", creditHandler.GetByID)
	creditNotes.Post("/:id/validate", write, creditHandler.Validate)
	creditNotes.Post("/:id/cancel", write, creditHandler.Cancel)
	creditNotes.Post("/:id/block", write, creditHandler.Block)
	creditNotes.Post("/:id/unblock", write, creditHandler.Unblock)
	creditNotes.Post("/:id/apply", write, creditHandler.Apply)
	creditNotes.Get("/:id/applications", creditHandler.Applications)
	creditNotes.Get("/:id/reconcile", creditHandler.Reconcile)

	// Transición genérica
	documentHandler := NewDocumentHandler(deps.Orchestrator)
	documents := api.Group("/documents", registered)
	documents.Post("/:kind/:id/transition", write, documentHandler.Transition)
}
