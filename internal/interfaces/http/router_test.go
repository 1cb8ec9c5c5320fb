package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/dto"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/infrastructure/cache"
	"github.com/jhoicas/docledger/internal/infrastructure/memory"
	"github.com/jhoicas/docledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/docledger/internal/interfaces/http"
	"github.com/jhoicas/docledger/pkg/logger"
)

// newAPI arma la API completa sobre el almacenamiento en memoria.
func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	prom := metrics.NewPrometheus()
	clock := ports.SystemClock{}
	log := logger.Nop()
	st := inventory.NewStockLedger(store, clock, log, prom, inventory.DefaultReservationTTL)
	cr := credit.NewCreditLedger(store, clock, log, prom)
	ac := account.NewAccountLedger(store, clock, log, prom)
	o := billing.NewOrchestrator(store, clock, log, prom, st, cr, ac, billing.Config{})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Orchestrator:   o,
		Stock:          st,
		Credit:         cr,
		Account:        ac,
		JWTSecret:      testJWTSecret,
		Idempotency:    cache.NewMemoryIdempotencyStore(),
		IdempotencyTTL: time.Hour,
		Metrics:        prom,
		Log:            log,
	})
	return app
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func do(t *testing.T, app *fiber.App, c call) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

// seed registra la organización, un producto con 10 unidades y un cliente.
func seed(t *testing.T, app *fiber.App, admin string) (productID, clientID string) {
	t.Helper()
	resp, raw := do(t, app, call{method: http.MethodPost, path: "/api/v1/organization", token: admin,
		body: map[string]any{"name": "Distribuidora", "reference_currency": "COP"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = do(t, app, call{method: http.MethodPost, path: "/api/v1/products", token: admin,
		body: map[string]any{"sku": "P-1", "name": "Tornillo", "price": "100", "cost": "50", "vat_rate": "19", "initial_stock": "10"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	productID = decode[dto.ProductResponse](t, raw).ID

	resp, raw = do(t, app, call{method: http.MethodPost, path: "/api/v1/clients", token: admin,
		body: map[string]any{"name": "ACME"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	clientID = decode[dto.ClientResponse](t, raw).ID
	return productID, clientID
}

func TestRouter_FacturaValidadaMueveStockYSaldo(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)
	productID, clientID := seed(t, app, admin)

	resp, raw := do(t, app, call{method: http.MethodPost, path: "/api/v1/invoices", token: admin,
		body: map[string]any{"client_id": clientID, "lines": []map[string]any{{"product_id": productID, "quantity": "2"}}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	inv := decode[dto.InvoiceResponse](t, raw)
	assert.Equal(t, "created", inv.Status)
	assert.True(t, inv.Totals.NetPayable.Equal(decimal.NewFromInt(238)), inv.Totals.NetPayable.String())

	resp, raw = do(t, app, call{method: http.MethodPost, path: "/api/v1/invoices/" + inv.ID + "/transition", token: admin,
		body: map[string]any{"status": "validated"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "validated", decode[dto.InvoiceResponse](t, raw).Status)

	resp, raw = do(t, app, call{method: http.MethodGet, path: "/api/v1/products/" + productID, token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.ProductResponse](t, raw).CurrentStock.Equal(decimal.NewFromInt(8)))

	resp, raw = do(t, app, call{method: http.MethodGet, path: "/api/v1/clients/" + clientID + "/balance", token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.BalanceResponse](t, raw).Balance.Equal(decimal.NewFromInt(238)))

	resp, raw = do(t, app, call{method: http.MethodGet, path: "/api/v1/clients/" + clientID + "/reconcile", token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), `"consistent":true`)

	// una factura validada no vuelve a borrador
	resp, raw = do(t, app, call{method: http.MethodPost, path: "/api/v1/documents/invoice/" + inv.ID + "/transition", token: admin,
		body: map[string]any{"status": "draft"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), "INVALID_TRANSITION")
}

func TestRouter_StockInsuficienteEs409(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)
	productID, clientID := seed(t, app, admin)

	resp, raw := do(t, app, call{method: http.MethodPost, path: "/api/v1/reservations", token: admin,
		body: map[string]any{"product_id": productID, "client_id": clientID, "quantity": "11"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(raw), "INSUFFICIENT_STOCK")

	resp, raw = do(t, app, call{method: http.MethodPost, path: "/api/v1/reservations", token: admin,
		body: map[string]any{"product_id": productID, "client_id": clientID, "quantity": "4"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = do(t, app, call{method: http.MethodGet, path: "/api/v1/products/" + productID, token: admin})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[dto.ProductResponse](t, raw)
	assert.True(t, p.ReservedStock.Equal(decimal.NewFromInt(4)))
	assert.True(t, p.AvailableStock.Equal(decimal.NewFromInt(6)))
}

func TestRouter_ErroresDeValidacionYRoles(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)
	productID, _ := seed(t, app, admin)

	resp, raw := do(t, app, call{method: http.MethodPost, path: "/api/v1/products", token: admin,
		body: map[string]any{"name": "Sin SKU"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decode[dto.ValidationErrorResponse](t, raw)
	assert.Equal(t, "VALIDATION", out.Code)
	require.NotEmpty(t, out.Fields)
	assert.Equal(t, "sku", out.Fields[0].Field)

	consulta := tokenForRole(t, apphttp.RoleConsulta)
	resp, _ = do(t, app, call{method: http.MethodGet, path: "/api/v1/products/" + productID, token: consulta})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "consulta puede leer")

	resp, _ = do(t, app, call{method: http.MethodPost, path: "/api/v1/clients", token: consulta,
		body: map[string]any{"name": "Otro"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "consulta no puede escribir")

	resp, raw = do(t, app, call{method: http.MethodGet, path: "/api/v1/products/no-existe", token: admin})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), "NOT_FOUND")
}

func TestRouter_AislamientoEntreOrganizaciones(t *testing.T) {
	app := newAPI(t)
	productID, _ := seed(t, app, tokenForRole(t, apphttp.RoleAdmin))

	other := tokenFor(t, "org-ajena", apphttp.RoleAdmin)
	resp, raw := do(t, app, call{method: http.MethodGet, path: "/api/v1/products/" + productID, token: other})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(raw), "ORGANIZATION_NOT_REGISTERED")

	resp, raw = do(t, app, call{method: http.MethodPost, path: "/api/v1/organization", token: other,
		body: map[string]any{"name": "Ajena"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = do(t, app, call{method: http.MethodGet, path: "/api/v1/products/" + productID, token: other})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(raw), `"code":"FORBIDDEN"`)
}

func TestRouter_IdempotencyKeyRepiteLaRespuesta(t *testing.T) {
	app := newAPI(t)
	admin := tokenForRole(t, apphttp.RoleAdmin)
	seed(t, app, admin)

	create := call{method: http.MethodPost, path: "/api/v1/clients", token: admin,
		body:    map[string]any{"name": "Cliente idempotente"},
		headers: map[string]string{apphttp.HeaderIdempotencyKey: "alta-cliente-1"}}

	first, firstRaw := do(t, app, create)
	require.Equal(t, http.StatusCreated, first.StatusCode, string(firstRaw))
	assert.Empty(t, first.Header.Get(apphttp.HeaderReplayed))

	second, secondRaw := do(t, app, create)
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get(apphttp.HeaderReplayed))
	assert.Equal(t, decode[dto.ClientResponse](t, firstRaw).ID, decode[dto.ClientResponse](t, secondRaw).ID)

	// otra clave crea otro cliente
	create.headers = map[string]string{apphttp.HeaderIdempotencyKey: "alta-cliente-2"}
	_, thirdRaw := do(t, app, create)
	assert.NotEqual(t, decode[dto.ClientResponse](t, firstRaw).ID, decode[dto.ClientResponse](t, thirdRaw).ID)
}

func TestRouter_MetricasExpuestas(t *testing.T) {
	app := newAPI(t)
	seed(t, app, tokenForRole(t, apphttp.RoleAdmin))

	resp, raw := do(t, app, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "docledger_operations_total")
}
