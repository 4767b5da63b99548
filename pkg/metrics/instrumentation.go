package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ALLOW        = "ALLOW"
	DENY         = "DENY"
	OK           = "OK"
	ERROR        = "ERROR"
	EXCLUDED     = "EXCLUDED"
	NotAvailable = "-"
	HIT          = "HIT"
	MISS         = "MISS"
)

// Instrumentation publishes Prometheus metrics for expression evaluation and
// authority store lookups.
type Instrumentation struct {
	requestTotals      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	inFlight           prometheus.Gauge
	storeRequests      *prometheus.CounterVec
	storeQueries       *prometheus.CounterVec
	storeQueryDuration *prometheus.HistogramVec
	storeCacheRequests *prometheus.CounterVec
	storeCacheSize     *prometheus.GaugeVec
	storeUnavailable   *prometheus.CounterVec
}

// NewInstrumentation registers all metric vectors.
func NewInstrumentation(reg prometheus.Registerer) *Instrumentation {
	inst := &Instrumentation{
		requestTotals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "access_authority",
			Name:      "requests_total",
			Help:      "Total CanAccess decisions by verdict",
		}, []string{"verdict"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "access_authority",
			Name:      "request_duration_seconds",
			Help:      "End-to-end CanAccess latency",
			Buckets:   []float64{.00005, .0001, .0005, .001, .002, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"verdict"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "access_authority",
			Name:      "inflight_requests",
			Help:      "Active CanAccess requests",
		}),
		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "access_authority",
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Total authorization-set resolutions by authority store",
		}, []string{"store_name", "db_type", "result"}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "access_authority",
			Subsystem: "store",
			Name:      "queries_total",
			Help:      "Total backend queries issued by authority stores",
		}, []string{"store_name", "db_type", "result"}),
		storeQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "access_authority",
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Backend query duration in seconds for authority stores",
			Buckets:   []float64{.001, .002, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"store_name", "db_type", "result"}),
		storeCacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "access_authority",
			Subsystem: "store",
			Name:      "cache_requests_total",
			Help:      "Cache lookups performed by authority stores",
		}, []string{"store_name", "db_type", "cache_result"}),
		storeCacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "access_authority",
			Subsystem: "store",
			Name:      "cache_entries",
			Help:      "Current cache entries for an authority store",
		}, []string{"store_name", "db_type"}),
		storeUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "access_authority",
			Subsystem: "store",
			Name:      "unavailable_total",
			Help:      "Backend unavailability events for authority stores",
		}, []string{"store_name", "db_type"}),
	}

	reg.MustRegister(
		inst.requestTotals,
		inst.requestDuration,
		inst.inFlight,
		inst.storeRequests,
		inst.storeQueries,
		inst.storeQueryDuration,
		inst.storeCacheRequests,
		inst.storeCacheSize,
		inst.storeUnavailable,
	)
	return inst
}

// InFlight increments or decrements the in-flight request gauge.
func (i *Instrumentation) InFlight(delta float64) {
	if i == nil || delta == 0 {
		return
	}
	if delta > 0 {
		i.inFlight.Add(delta)
		return
	}
	i.inFlight.Sub(-delta)
}

// ObserveAccessDecision records a CanAccess decision and its latency.
func (i *Instrumentation) ObserveAccessDecision(granted bool, duration time.Duration) {
	if i == nil {
		return
	}
	verdict := DENY
	if granted {
		verdict = ALLOW
	}
	i.requestTotals.WithLabelValues(verdict).Inc()
	i.requestDuration.WithLabelValues(verdict).Observe(duration.Seconds())
}

// ObserveAuthorityStoreRequest records an authorization-set resolution
// outcome for one (store, principal) lookup. denied is only meaningful when
// success is false: it distinguishes a fail-closed failure (propagated to
// the caller as an error, denied=true) from a permissive-on-failure one
// (excluded from the decision, denied=false).
func (i *Instrumentation) ObserveAuthorityStoreRequest(storeName, dbType string, success bool, denied bool) {
	if i == nil {
		return
	}
	result := OK
	switch {
	case !success && denied:
		result = ERROR
	case !success && !denied:
		result = EXCLUDED
	}
	i.storeRequests.WithLabelValues(storeName, dbType, result).Inc()
}

// ObserveAuthorityStoreQuery records backend query outcome and duration.
func (i *Instrumentation) ObserveAuthorityStoreQuery(storeName, dbType string, resultCount int, err error, duration time.Duration) {
	if i == nil {
		return
	}
	result := OK
	if err != nil {
		result = ERROR
	}
	i.storeQueries.WithLabelValues(storeName, dbType, result).Inc()
	i.storeQueryDuration.WithLabelValues(storeName, dbType, result).Observe(duration.Seconds())
}

// ObserveAuthorityStoreCacheHit records a cache lookup that returned an entry.
func (i *Instrumentation) ObserveAuthorityStoreCacheHit(storeName, dbType string) {
	if i == nil {
		return
	}
	i.storeCacheRequests.WithLabelValues(storeName, dbType, HIT).Inc()
}

// ObserveAuthorityStoreCacheMiss records a cache lookup that missed.
func (i *Instrumentation) ObserveAuthorityStoreCacheMiss(storeName, dbType string) {
	if i == nil {
		return
	}
	i.storeCacheRequests.WithLabelValues(storeName, dbType, MISS).Inc()
}

// ObserveAuthorityStoreCacheSize sets the current cache size gauge.
func (i *Instrumentation) ObserveAuthorityStoreCacheSize(storeName, dbType string, size int) {
	if i == nil {
		return
	}
	i.storeCacheSize.WithLabelValues(storeName, dbType).Set(float64(size))
}

// ObserveAuthorityStoreUnavailable records backend unavailability.
func (i *Instrumentation) ObserveAuthorityStoreUnavailable(storeName, dbType string) {
	if i == nil {
		return
	}
	i.storeUnavailable.WithLabelValues(storeName, dbType).Inc()
}
