// Package ports define los puertos de salida de la capa de aplicación:
// unidad transaccional, bloqueos por entidad, reloj y observador de resultados.
package ports

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Organizations      repository.OrganizationRepository
	Products           repository.ProductRepository
	Reservations       repository.ReservationRepository
	StockMovements     repository.StockMovementRepository
	Clients            repository.ClientRepository
	AccountMovements   repository.AccountMovementRepository
	Invoices           repository.InvoiceRepository
	Purchases          repository.PurchaseRepository
	CreditNotes        repository.CreditNoteRepository
	CreditApplications repository.CreditApplicationRepository
	Payments           repository.PaymentRepository
	Locks              Locker
}

// TxRunner ejecuta fn como una unidad atómica: Commit si fn devuelve nil, Rollback si no.
// Los bloqueos tomados con Repos.Locks se liberan al terminar la transacción.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
}
