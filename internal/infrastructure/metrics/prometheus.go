// Package metrics expone en Prometheus los resultados de las operaciones del motor:
// latencia por operación, rechazos, conflictos, defectos y eventos de seguridad.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/docledger/internal/application/ports"
)

const namespace = "docledger"

// Prometheus implementa ports.Observer sobre un registry propio.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	defects    prometheus.Counter
	security   prometheus.Counter
}

// NewPrometheus crea el registry con las métricas del motor y las del proceso Go.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operaciones del motor por resultado.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duración de las operaciones del motor.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retries_total",
			Help:      "Reintentos de transacción por conflicto de concurrencia.",
		}, []string{"attempt"}),
		defects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Violaciones de invariante detectadas (defectos).",
		}),
		security: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cross_tenant_access_total",
			Help:      "Intentos de acceso a datos de otra organización.",
		}),
	}
	p.registry.MustRegister(
		p.operations, p.duration, p.retries, p.defects, p.security,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// ObserveOperation registra el resultado y la duración de una operación.
func (p *Prometheus) ObserveOperation(op, outcome string, elapsed time.Duration) {
	p.operations.WithLabelValues(op, outcome).Inc()
	p.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	switch outcome {
	case ports.OutcomeDefect:
		p.defects.Inc()
	case ports.OutcomeSecurity:
		p.security.Inc()
	}
}

// ObserveRetry cuenta un reintento.
func (p *Prometheus) ObserveRetry(attempt int) {
	p.retries.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

// Handler endpoint de scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry acceso directo (tests).
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

var _ ports.Observer = (*Prometheus)(nil)
