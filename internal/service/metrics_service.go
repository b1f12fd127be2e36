package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaddzy/community-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the mirror/stream pipeline. It implements mirror.Observer.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	snapshotLoads      *prometheus.CounterVec
	snapshotDeliveries *prometheus.CounterVec
	streamClients      prometheus.Gauge

	requestCount         uint64
	requestDurationTotal uint64
	snapshotLoadCount    uint64
	snapshotDeliverCount uint64
	streamClientCount    int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	snapshotLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_snapshot_loads_total",
		Help: "Total collection snapshot loads, including reloads",
	}, []string{"collection"})

	snapshotDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_snapshot_deliveries_total",
		Help: "Total snapshots delivered to subscribers",
	}, []string{"collection"})

	streamClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_clients",
		Help: "Currently connected snapshot stream clients",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, snapshotLoads, snapshotDeliveries, streamClients, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		snapshotLoads:      snapshotLoads,
		snapshotDeliveries: snapshotDeliveries,
		streamClients:      streamClients,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// SnapshotLoaded counts one snapshot load for a collection.
func (m *MetricsService) SnapshotLoaded(collection string) {
	if m == nil {
		return
	}
	m.snapshotLoads.WithLabelValues(collection).Inc()
	atomic.AddUint64(&m.snapshotLoadCount, 1)
}

// SnapshotDelivered counts one snapshot delivery to a subscriber.
func (m *MetricsService) SnapshotDelivered(collection string) {
	if m == nil {
		return
	}
	m.snapshotDeliveries.WithLabelValues(collection).Inc()
	atomic.AddUint64(&m.snapshotDeliverCount, 1)
}

// StreamClientConnected tracks a stream client attach.
func (m *MetricsService) StreamClientConnected() {
	if m == nil {
		return
	}
	m.streamClients.Inc()
	atomic.AddInt64(&m.streamClientCount, 1)
}

// StreamClientDisconnected tracks a stream client detach.
func (m *MetricsService) StreamClientDisconnected() {
	if m == nil {
		return
	}
	m.streamClients.Dec()
	atomic.AddInt64(&m.streamClientCount, -1)
}

// Snapshot returns aggregated metrics for the admin status endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SnapshotLoads:            atomic.LoadUint64(&m.snapshotLoadCount),
		SnapshotDeliveries:       atomic.LoadUint64(&m.snapshotDeliverCount),
		StreamClients:            atomic.LoadInt64(&m.streamClientCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
