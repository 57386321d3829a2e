// Package metrics agrupa los collectors de prometheus del servicio. Se
// registran en el Registerer que se inyecte; un *Metrics nil no mide nada.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cidigate"

// Resultados de una consulta de caché
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerDuration prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
	dedupJoined      prometheus.Counter
	resolutions      *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New crea los collectors y los registra en reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cidi_requests_total",
			Help:      "Calls to the CiDi account API by outcome.",
		}, []string{"outcome"}),
		providerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cidi_request_duration_seconds",
			Help:      "CiDi account API latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cache_lookups_total",
			Help:      "Session cache lookups by key kind and result.",
		}, []string{"kind", "result"}),
		dedupJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cidi_fetch_shared_total",
			Help:      "Callers that received the result of a fetch started by another request.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolutions_total",
			Help:      "Session resolutions by credential source and outcome.",
		}, []string{"source", "outcome"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.providerRequests,
		m.providerDuration,
		m.cacheLookups,
		m.dedupJoined,
		m.resolutions,
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// ObserveProvider registra una llamada a CiDi iniciada en start
func (m *Metrics) ObserveProvider(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.providerRequests.WithLabelValues(outcome).Inc()
	m.providerDuration.Observe(time.Since(start).Seconds())
}

// CacheLookup registra un hit o miss para kind (cookie | identity)
func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// FetchShared cuenta un llamador que no disparó la consulta pero recibió su resultado
func (m *Metrics) FetchShared() {
	if m == nil {
		return
	}
	m.dedupJoined.Inc()
}

// SessionResolved cuenta una resolución de sesión
func (m *Metrics) SessionResolved(source, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source, outcome).Inc()
}

// Middleware mide cada request por ruta registrada, no por path crudo
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()
		return err
	}
}
