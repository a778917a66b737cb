// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	pollTotal       *prometheus.CounterVec
	pollDuration    prometheus.Histogram
	snapshotSize    prometheus.Gauge
	rejectedRecords prometheus.Gauge
	invertedRecords prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

func New(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		pollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_polls_total",
			Help:      "Reservation poll cycles by outcome",
		}, []string{"outcome"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_poll_duration_seconds",
			Help:      "Duration of reservation poll cycles",
			Buckets:   prometheus.DefBuckets,
		}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservation_snapshot_size",
			Help:      "Reservations in the current snapshot",
		}),
		rejectedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservation_snapshot_rejected_records",
			Help:      "Upstream records skipped by the last successful poll",
		}),
		invertedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservation_snapshot_inverted_records",
			Help:      "Reservations whose end is not after their start",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservation_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestDuration, r.requestTotal,
		r.pollTotal, r.pollDuration, r.snapshotSize, r.rejectedRecords, r.invertedRecords, r.lastSuccess,
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest matches httpx.RequestObserver.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	r.requestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	r.requestTotal.WithLabelValues(method, route, code).Inc()
}

func (r *Registry) PollSucceeded(elapsed time.Duration, size, rejected, inverted int, at time.Time) {
	r.pollTotal.WithLabelValues("success").Inc()
	r.pollDuration.Observe(elapsed.Seconds())
	r.snapshotSize.Set(float64(size))
	r.rejectedRecords.Set(float64(rejected))
	r.invertedRecords.Set(float64(inverted))
	r.lastSuccess.Set(float64(at.Unix()))
}

func (r *Registry) PollFailed(elapsed time.Duration) {
	r.pollTotal.WithLabelValues("failure").Inc()
	r.pollDuration.Observe(elapsed.Seconds())
}
