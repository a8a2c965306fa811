package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los instrumentos de Prometheus del servicio.
type Metrics struct {
	Turns              *prometheus.CounterVec
	GenerationAttempts *prometheus.CounterVec
	RetrievalFailures  prometheus.Counter
	StoreOps           *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registra los instrumentos en un registry propio; se pueden crear varias instancias.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Assistant turns by outcome (answered, degraded).",
		}, []string{"outcome"}),
		GenerationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Generation calls by result (ok, retryable, fatal).",
		}, []string{"result"}),
		RetrievalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Retrieval calls that failed and were downgraded to zero contexts.",
		}),
		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_ops_total",
			Help:      "Session store operations by backend, op and result.",
		}, []string{"backend", "op", "result"}),
		gatherer: reg,
	}
}

// ObserveTurn cuenta un turno del asistente, normal o degradado.
func (m *Metrics) ObserveTurn(degraded bool) {
	outcome := "answered"
	if degraded {
		outcome = "degraded"
	}
	m.Turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGenerationAttempt(result string) {
	m.GenerationAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRetrievalFailure() {
	m.RetrievalFailures.Inc()
}

// ObserveStoreOp implementa store.OpObserver.
func (m *Metrics) ObserveStoreOp(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(backend, op, result).Inc()
}

// Handler expone el registry en formato de exposicion de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
