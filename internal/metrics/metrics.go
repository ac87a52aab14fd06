package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

const namespace = "mirador_thermal"

var (
	snapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshots produced, partitioned by feed and data source.",
		},
		[]string{"feed", "source"},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Times mock data replaced real readings, partitioned by error kind.",
		},
		[]string{"kind"},
	)

	parseDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_seconds",
			Help:      "Log parse and aggregate latency in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"variant"},
	)

	sensorTemperature = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_temperature_celsius",
			Help:      "Most recent temperature per sensor from the page feed.",
		},
		[]string{"sensor"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Parse cache lookups, partitioned by hit or miss.",
		},
		[]string{"result"},
	)

	hubDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_dropped_total",
			Help:      "Snapshots dropped for slow subscribers.",
		},
		[]string{"feed"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, partitioned by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register attaches mirador-thermal collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		snapshotsTotal,
		fallbacksTotal,
		parseDurationSeconds,
		sensorTemperature,
		cacheLookupsTotal,
		hubDroppedTotal,
		httpRequestsTotal,
		httpRequestSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSnapshot counts a produced snapshot. Page snapshots also update the
// per-sensor temperature gauge.
func ObserveSnapshot(feed string, snap models.Snapshot) {
	snapshotsTotal.WithLabelValues(feed, string(snap.Source)).Inc()
	if feed != "page" {
		return
	}
	for _, r := range snap.Readings {
		sensorTemperature.WithLabelValues(r.Name).Set(r.Value)
	}
}

// ObserveFallback counts a degradation to mock data.
func ObserveFallback(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	fallbacksTotal.WithLabelValues(kind).Inc()
}

// ObserveParse records how long one parse pass took.
func ObserveParse(variant string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	parseDurationSeconds.WithLabelValues(variant).Observe(duration.Seconds())
}

// ObserveCacheLookup counts a parse cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveDropped counts snapshots a hub could not deliver.
func ObserveDropped(feed string, n int) {
	if n <= 0 {
		return
	}
	hubDroppedTotal.WithLabelValues(feed).Add(float64(n))
}

// ObserveHTTP records one handled request.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
