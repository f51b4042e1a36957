// Package metrics exposes Prometheus collectors for the RPC layer, the settlement
// engine and the table tracker.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/tables"
)

const namespace = "tableside"

// Metrics owns a registry so tests and multiple servers never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	rpcDuration   *prometheus.HistogramVec
	contributions *prometheus.CounterVec
	finalized     prometheus.Counter
	mergeOps      *prometheus.CounterVec
}

// New registers every collector. tracker feeds the group and guest gauges; it may be nil.
func New(tracker *tables.Tracker) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Duration of Connect RPCs by procedure and code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
		contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_contributions_total",
			Help:      "Settlement contributions by split mode and outcome.",
		}, []string{"mode", "outcome"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_finalized_total",
			Help:      "Settlement sessions that reached the order total.",
		}),
		mergeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_merge_operations_total",
			Help:      "Merge and split operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcDuration,
		m.contributions,
		m.finalized,
		m.mergeOps,
	)

	if tracker != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "merge_groups",
				Help:      "Active merge groups.",
			}, func() float64 { return float64(tracker.Stats().Groups) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "merged_tables",
				Help:      "Tables currently in a merge group.",
			}, func() float64 { return float64(tracker.Stats().MergedTables) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_guests",
				Help:      "Live guest sessions across all tables.",
			}, func() float64 { return float64(tracker.Stats().Guests) }),
		)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Interceptor records the duration of every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.rpcDuration.WithLabelValues(req.Spec().Procedure, code).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// ObserveContribution counts one settlement request. Rejections are labeled with
// their domain code. A nil *Metrics records nothing.
func (m *Metrics) ObserveContribution(mode string, err error) {
	if m == nil {
		return
	}
	m.contributions.WithLabelValues(mode, outcome(err)).Inc()
}

// SettlementFinalized counts a session reaching the order total.
func (m *Metrics) SettlementFinalized() {
	if m == nil {
		return
	}
	m.finalized.Inc()
}

// ObserveMerge counts one merge or split operation.
func (m *Metrics) ObserveMerge(operation string, err error) {
	if m == nil {
		return
	}
	m.mergeOps.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "error"
}
