package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/infrastructure/memory"
	"github.com/jhoicas/docledger/pkg/logger"
)

const org = "org-1"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	ctx     context.Context
	o       *billing.Orchestrator
	stock   *inventory.StockLedger
	credit  *credit.CreditLedger
	account *account.AccountLedger
	client  *entity.Client
	product *entity.Product
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := fixedClock{time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	log := logger.Nop()
	st := inventory.NewStockLedger(store, clock, log, nil, inventory.DefaultReservationTTL)
	cr := credit.NewCreditLedger(store, clock, log, nil)
	ac := account.NewAccountLedger(store, clock, log, nil)
	o := billing.NewOrchestrator(store, clock, log, nil, st, cr, ac, billing.Config{})

	_, err := o.CreateOrganization(ctx, billing.CreateOrganizationInput{ID: org, Name: "Distribuidora", ReferenceCurrency: "COP"})
	require.NoError(t, err)
	c, err := ac.CreateClient(ctx, org, account.CreateClientInput{Name: "ACME"})
	require.NoError(t, err)
	p, err := st.CreateProduct(ctx, org, inventory.CreateProductInput{
		SKU: "P-1", Name: "Tornillo", Price: d("100"), Cost: d("50"), VATRate: d("19"), InitialStock: d("10"),
	})
	require.NoError(t, err)
	return &env{ctx: ctx, o: o, stock: st, credit: cr, account: ac, client: c, product: p}
}

// validatedInvoice factura de qty unidades del producto base (100 + 19% IVA c/u).
func (e *env) validatedInvoice(t *testing.T, qty string) *entity.Invoice {
	t.Helper()
	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Lines:    []billing.LineInput{{ProductID: e.product.ID, Quantity: d(qty)}},
	})
	require.NoError(t, err)
	inv, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	require.NoError(t, err)
	return inv
}

func (e *env) stockOf(t *testing.T, id string) *entity.Product {
	t.Helper()
	p, err := e.stock.GetProduct(e.ctx, org, id)
	require.NoError(t, err)
	return p
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := e.account.Balance(e.ctx, org, e.client.ID)
	require.NoError(t, err)
	return b
}

func TestCreateInvoice_TotalesCongelados(t *testing.T) {
	e := setup(t)
	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Lines: []billing.LineInput{
			{ProductID: e.product.ID, Quantity: d("2"), DiscountPercent: d("10")},
			{Description: "Flete", Quantity: d("1"), UnitPriceHT: d("20")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceCreated, inv.Status)
	assert.Equal(t, entity.PaymentUnpaid, inv.PaymentStatus)
	assert.Equal(t, "COP", inv.Currency)
	assert.Equal(t, "200.000", inv.Totals.SubtotalHT.StringFixed(3))
	assert.Equal(t, "34.200", inv.Totals.TotalVAT.StringFixed(3))
	assert.Equal(t, "234.200", inv.Totals.NetPayable.StringFixed(3))
	assert.Equal(t, "Tornillo", inv.Lines[0].Description)

	// crear no toca stock ni saldo
	assert.Equal(t, "10", e.stockOf(t, e.product.ID).CurrentStock.String())
	assert.True(t, e.balance(t).IsZero())
}

func TestCreateInvoice_Validacion(t *testing.T) {
	e := setup(t)
	cases := map[string]billing.CreateInvoiceInput{
		"sin cliente":           {Lines: []billing.LineInput{{ProductID: e.product.ID, Quantity: d("1")}}},
		"sin líneas":            {ClientID: e.client.ID},
		"cantidad cero":         {ClientID: e.client.ID, Lines: []billing.LineInput{{ProductID: e.product.ID, Quantity: d("0")}}},
		"moneda sin tasa":       {ClientID: e.client.ID, Currency: "USD", Lines: []billing.LineInput{{ProductID: e.product.ID, Quantity: d("1")}}},
		"estado inicial otro":   {ClientID: e.client.ID, Status: entity.InvoiceValidated, Lines: []billing.LineInput{{ProductID: e.product.ID, Quantity: d("1")}}},
		"descuento fuera rango": {ClientID: e.client.ID, Lines: []billing.LineInput{{ProductID: e.product.ID, Quantity: d("1"), DiscountPercent: d("120")}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.o.CreateInvoice(e.ctx, org, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestValidateInvoice_DescuentaStockYDebita(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2")

	assert.Equal(t, entity.InvoiceValidated, inv.Status)
	assert.NotEmpty(t, inv.DebitMovementID)
	assert.NotNil(t, inv.ValidatedAt)
	assert.Equal(t, "8", e.stockOf(t, e.product.ID).CurrentStock.String())
	assert.Equal(t, "238.000", e.balance(t).StringFixed(3))

	_, err := e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestValidateInvoice_FallaSinEfectos(t *testing.T) {
	e := setup(t)
	other, err := e.stock.CreateProduct(e.ctx, org, inventory.CreateProductInput{
		SKU: "P-2", Name: "Tuerca", Price: d("10"), VATRate: d("19"), InitialStock: d("1"),
	})
	require.NoError(t, err)

	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Lines: []billing.LineInput{
			{ProductID: e.product.ID, Quantity: d("3")},
			{ProductID: other.ID, Quantity: d("2")},
		},
	})
	require.NoError(t, err)

	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceCreated, got.Status)
	assert.Equal(t, "10", e.stockOf(t, e.product.ID).CurrentStock.String())
	assert.Equal(t, "1", e.stockOf(t, other.ID).CurrentStock.String())
	assert.True(t, e.balance(t).IsZero())
}

func TestValidateInvoice_ConsumeReserva(t *testing.T) {
	e := setup(t)
	res, err := e.stock.Reserve(e.ctx, org, inventory.ReserveInput{ProductID: e.product.ID, ClientID: e.client.ID, Quantity: d("3")})
	require.NoError(t, err)

	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Lines:    []billing.LineInput{{ProductID: e.product.ID, ReservationID: res.ID, Quantity: d("3")}},
	})
	require.NoError(t, err)
	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	require.NoError(t, err)

	p := e.stockOf(t, e.product.ID)
	assert.Equal(t, "7", p.CurrentStock.String())
	assert.True(t, p.ReservedStock.IsZero())
	got, err := e.stock.GetReservation(e.ctx, org, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationConsumed, got.Status)
}

func TestValidateInvoice_ReservaConCantidadDistinta(t *testing.T) {
	e := setup(t)
	res, err := e.stock.Reserve(e.ctx, org, inventory.ReserveInput{ProductID: e.product.ID, ClientID: e.client.ID, Quantity: d("3")})
	require.NoError(t, err)
	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Lines:    []billing.LineInput{{ProductID: e.product.ID, ReservationID: res.ID, Quantity: d("2")}},
	})
	require.NoError(t, err)

	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "3", e.stockOf(t, e.product.ID).ReservedStock.String())
}

func TestCancelDraft_LiberaReservas(t *testing.T) {
	e := setup(t)
	res, err := e.stock.Reserve(e.ctx, org, inventory.ReserveInput{ProductID: e.product.ID, ClientID: e.client.ID, Quantity: d("4")})
	require.NoError(t, err)
	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Status:   entity.InvoiceDraft,
		Lines:    []billing.LineInput{{ProductID: e.product.ID, ReservationID: res.ID, Quantity: d("4")}},
	})
	require.NoError(t, err)

	inv, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceCancelled, inv.Status)
	assert.True(t, e.stockOf(t, e.product.ID).ReservedStock.IsZero())
}

func TestCancelValidated_RevierteStockYSaldo(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2")

	inv, err := e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceCancelled, inv.Status)
	assert.Equal(t, "10", e.stockOf(t, e.product.ID).CurrentStock.String())
	assert.True(t, e.balance(t).IsZero())

	movs, err := e.account.Movements(e.ctx, org, e.client.ID)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.True(t, movs[0].Amount.Add(movs[1].Amount).IsZero())
	assert.Equal(t, movs[0].ID, movs[1].ReferenceNumber)

	rec, err := e.stock.Reconcile(e.ctx, org, e.product.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)

	// terminal
	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelValidated_ConPagoRechazado(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "1")
	_, _, err := e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("10")})
	require.NoError(t, err)

	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "9", e.stockOf(t, e.product.ID).CurrentStock.String())
}

func TestRecordPayment_Reglas(t *testing.T) {
	e := setup(t)
	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: e.client.ID,
		Lines:    []billing.LineInput{{ProductID: e.product.ID, Quantity: d("1")}},
	})
	require.NoError(t, err)

	_, _, err = e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("10")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "factura sin validar")

	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	require.NoError(t, err)

	_, _, err = e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("119.001")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "supera el saldo")
	_, _, err = e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	pay, got, err := e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("19"), Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPartial, got.PaymentStatus)
	assert.NotEmpty(t, pay.AccountMovementID)

	_, got, err = e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("100")})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPaid, got.PaymentStatus)
	assert.True(t, e.balance(t).IsZero())

	pays, err := e.o.ListPayments(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Len(t, pays, 2)
}

func TestFlujoCompleto_SaldoYConciliacion(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2") // 238
	_, _, err := e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("100")})
	require.NoError(t, err)
	assert.Equal(t, "138.000", e.balance(t).StringFixed(3))

	cn, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeCommercialPrice, Amount: d("50"), Reason: "descuento",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.CreditDraft, cn.Status)
	assert.Equal(t, e.client.ID, cn.PartyID)

	doc, err := e.o.TransitionDocument(e.ctx, org, entity.CreditNoteRef(cn.ID), string(entity.CreditValidated))
	require.NoError(t, err)
	assert.Equal(t, entity.CreditValidated, doc.CreditNote.Status)

	_, err = e.o.ApplyCredit(e.ctx, org, cn.ID, billing.ApplyCreditInput{Target: entity.InvoiceRef(inv.ID), Amount: d("50")})
	require.NoError(t, err)
	assert.Equal(t, "88.000", e.balance(t).StringFixed(3))

	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "188.000", got.Totals.NetPayable.StringFixed(3))
	assert.Equal(t, "88.000", got.RemainingDue().StringFixed(3))

	_, got, err = e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("88")})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPaid, got.PaymentStatus)
	assert.True(t, e.balance(t).IsZero())

	rec, err := e.o.ReconcileInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	accRec, err := e.account.Reconcile(e.ctx, org, e.client.ID)
	require.NoError(t, err)
	assert.True(t, accRec.Consistent)
	crRec, err := e.credit.Reconcile(e.ctx, org, cn.ID)
	require.NoError(t, err)
	assert.True(t, crRec.Consistent)
}

func TestApplyCredit_Reglas(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "1") // 119
	cn, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeOther, Amount: d("100"),
	})
	require.NoError(t, err)

	_, err = e.o.ApplyCredit(e.ctx, org, cn.ID, billing.ApplyCreditInput{Target: entity.InvoiceRef(inv.ID), Amount: d("10")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "nota en draft")

	_, err = e.o.ValidateCredit(e.ctx, org, cn.ID)
	require.NoError(t, err)

	_, err = e.o.ApplyCredit(e.ctx, org, cn.ID, billing.ApplyCreditInput{Target: entity.InvoiceRef(inv.ID), Amount: d("101")})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailableCredit)

	other, err := e.account.CreateClient(e.ctx, org, account.CreateClientInput{Name: "Otro"})
	require.NoError(t, err)
	otherInv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID: other.ID,
		Lines:    []billing.LineInput{{ProductID: e.product.ID, Quantity: d("1")}},
	})
	require.NoError(t, err)
	_, err = e.o.TransitionInvoice(e.ctx, org, otherInv.ID, entity.InvoiceValidated)
	require.NoError(t, err)
	_, err = e.o.ApplyCredit(e.ctx, org, cn.ID, billing.ApplyCreditInput{Target: entity.InvoiceRef(otherInv.ID), Amount: d("10")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "otro cliente")

	got, err := e.credit.Get(e.ctx, org, cn.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Available.String())
}

func TestIssueCredit_TopeDelOrigen(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2") // 238

	first, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeCommercialPrice, Amount: d("200"),
	})
	require.NoError(t, err)

	_, err = e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeCommercialPrice, Amount: d("50"),
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	_, err = e.o.CancelCredit(e.ctx, org, first.ID)
	require.NoError(t, err)
	_, err = e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeCommercialPrice, Amount: d("50"),
	})
	require.NoError(t, err)

	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", got.CreditIssued.String())
}

func TestIssueCredit_ConcurrenteNoSuperaElTope(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2") // 238

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
				Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeOther, Amount: d("50"),
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvariantViolation)
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, successes)
	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "200", got.CreditIssued.String())
	rec, err := e.o.ReconcileInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestProductReturn_ParcialYTotal(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2")
	lineID := inv.Lines[0].ID

	partial, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeProductReturn,
		Lines: []billing.CreditLineInput{{SourceLineID: lineID, Quantity: d("1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "119", partial.Generated.String())

	_, err = e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeProductReturn,
		Lines: []billing.CreditLineInput{{SourceLineID: lineID, Quantity: d("2")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "más unidades que las facturadas")

	_, err = e.o.ValidateCredit(e.ctx, org, partial.ID)
	require.NoError(t, err)
	assert.Equal(t, "9", e.stockOf(t, e.product.ID).CurrentStock.String())
	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceValidated, got.Status)

	rest, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeProductReturn,
		Lines: []billing.CreditLineInput{{SourceLineID: lineID, Quantity: d("1")}},
	})
	require.NoError(t, err)
	_, err = e.o.ValidateCredit(e.ctx, org, rest.ID)
	require.NoError(t, err)

	assert.Equal(t, "10", e.stockOf(t, e.product.ID).CurrentStock.String())
	got, err = e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceProductReturnTotal, got.Status)

	_, err = e.o.CancelCredit(e.ctx, org, rest.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelCredit_RevierteDevolucion(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "2")
	cn, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeProductReturn,
		Lines: []billing.CreditLineInput{{SourceLineID: inv.Lines[0].ID, Quantity: d("1")}},
	})
	require.NoError(t, err)
	_, err = e.o.ValidateCredit(e.ctx, org, cn.ID)
	require.NoError(t, err)
	require.Equal(t, "9", e.stockOf(t, e.product.ID).CurrentStock.String())

	cn, err = e.o.CancelCredit(e.ctx, org, cn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CreditCancelled, cn.Status)
	assert.True(t, cn.Generated.IsZero())
	assert.Equal(t, "8", e.stockOf(t, e.product.ID).CurrentStock.String())

	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditIssued.IsZero())

	rec, err := e.stock.Reconcile(e.ctx, org, e.product.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestPurchase_IngresaStockAlCosto(t *testing.T) {
	e := setup(t)
	doc, err := e.o.CreatePurchaseDocument(e.ctx, org, billing.CreatePurchaseInput{
		SupplierID: "prov-1",
		Lines:      []billing.LineInput{{ProductID: e.product.ID, Quantity: d("10"), UnitPriceHT: d("70")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchasePending, doc.Status)

	res, err := e.o.TransitionDocument(e.ctx, org, entity.PurchaseRef(doc.ID), string(entity.PurchaseValidated))
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseValidated, res.Purchase.Status)

	p := e.stockOf(t, e.product.ID)
	assert.Equal(t, "20", p.CurrentStock.String())
	assert.Equal(t, "60.000", p.Cost.StringFixed(3))

	// nota de proveedor: devuelve mercancía
	cn, err := e.o.IssueCredit(e.ctx, org, billing.IssueCreditInput{
		Source: entity.PurchaseRef(doc.ID), Type: entity.CreditTypeProductReturn,
		Lines: []billing.CreditLineInput{{SourceLineID: doc.Lines[0].ID, Quantity: d("3")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "prov-1", cn.PartyID)
	_, err = e.o.ValidateCredit(e.ctx, org, cn.ID)
	require.NoError(t, err)
	assert.Equal(t, "17", e.stockOf(t, e.product.ID).CurrentStock.String())

	_, err = e.o.TransitionPurchaseDocument(e.ctx, org, doc.ID, entity.PurchaseCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "compra con créditos")
}

func TestPurchase_AnulacionRetiraStock(t *testing.T) {
	e := setup(t)
	doc, err := e.o.CreatePurchaseDocument(e.ctx, org, billing.CreatePurchaseInput{
		SupplierID: "prov-1",
		Lines:      []billing.LineInput{{ProductID: e.product.ID, Quantity: d("5"), UnitPriceHT: d("40")}},
	})
	require.NoError(t, err)
	_, err = e.o.TransitionPurchaseDocument(e.ctx, org, doc.ID, entity.PurchaseValidated)
	require.NoError(t, err)
	require.Equal(t, "15", e.stockOf(t, e.product.ID).CurrentStock.String())

	doc, err = e.o.TransitionPurchaseDocument(e.ctx, org, doc.ID, entity.PurchaseCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseCancelled, doc.Status)
	assert.Equal(t, "10", e.stockOf(t, e.product.ID).CurrentStock.String())

	_, err = e.o.CreatePurchaseDocument(e.ctx, org, billing.CreatePurchaseInput{
		SupplierID: "prov-1",
		Lines:      []billing.LineInput{{Description: "servicio", Quantity: d("1"), UnitPriceHT: d("5")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "línea sin producto")
}

func TestMonedaExtranjera_ConvierteAlDebitar(t *testing.T) {
	e := setup(t)
	inv, err := e.o.CreateInvoice(e.ctx, org, billing.CreateInvoiceInput{
		ClientID:     e.client.ID,
		Currency:     "usd",
		ExchangeRate: d("4000"),
		Lines:        []billing.LineInput{{Description: "consultoría", Quantity: d("1"), UnitPriceHT: d("10.5"), VATRate: ptr(d("0"))}},
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", inv.Currency)

	_, err = e.o.TransitionInvoice(e.ctx, org, inv.ID, entity.InvoiceValidated)
	require.NoError(t, err)
	assert.Equal(t, "42000.000", e.balance(t).StringFixed(3))

	_, _, err = e.o.RecordPayment(e.ctx, org, inv.ID, billing.PaymentInput{Amount: d("0.5")})
	require.NoError(t, err)
	assert.Equal(t, "40000.000", e.balance(t).StringFixed(3))
}

func TestTimbreFiscalDeLaOrganizacion(t *testing.T) {
	e := setup(t)
	stamp := d("1.5")
	_, err := e.o.CreateOrganization(e.ctx, billing.CreateOrganizationInput{ID: "org-2", Name: "Otra", StampDutyAmount: &stamp})
	require.NoError(t, err)
	c, err := e.account.CreateClient(e.ctx, "org-2", account.CreateClientInput{Name: "Cliente"})
	require.NoError(t, err)

	inv, err := e.o.CreateInvoice(e.ctx, "org-2", billing.CreateInvoiceInput{
		ClientID: c.ID,
		Taxes:    billing.TaxInput{StampDuty: true, WithholdingApplied: true, WithholdingRate: d("1")},
		Lines:    []billing.LineInput{{Description: "x", Quantity: d("1"), UnitPriceHT: d("100"), VATRate: ptr(d("19"))}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.500", inv.Totals.StampDutyAmount.StringFixed(3))
	assert.Equal(t, "1.190", inv.Totals.WithholdingAmount.StringFixed(3))
	assert.Equal(t, "119.310", inv.Totals.NetPayable.StringFixed(3))
}

func TestAccesoEntreOrganizaciones(t *testing.T) {
	e := setup(t)
	inv := e.validatedInvoice(t, "1")

	_, err := e.o.GetInvoice(e.ctx, "org-x", inv.ID)
	assert.ErrorIs(t, err, domain.ErrCrossTenantAccess)
	_, err = e.o.TransitionInvoice(e.ctx, "org-x", inv.ID, entity.InvoiceCancelled)
	assert.ErrorIs(t, err, domain.ErrCrossTenantAccess)
	_, _, err = e.o.RecordPayment(e.ctx, "org-x", inv.ID, billing.PaymentInput{Amount: d("1")})
	assert.ErrorIs(t, err, domain.ErrCrossTenantAccess)
	_, err = e.o.IssueCredit(e.ctx, "org-x", billing.IssueCreditInput{
		Source: entity.InvoiceRef(inv.ID), Type: entity.CreditTypeOther, Amount: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrCrossTenantAccess)

	got, err := e.o.GetInvoice(e.ctx, org, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceValidated, got.Status)
}

func ptr[T any](v T) *T { return &v }
