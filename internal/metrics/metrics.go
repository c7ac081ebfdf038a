package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics exported by the client: backend
// call volume and latency, playback ticks and triggered alerts.
type Collector struct {
	gatherer prometheus.Gatherer

	APIRequests     *prometheus.CounterVec
	APIDurations    *prometheus.HistogramVec
	AlertsTriggered *prometheus.CounterVec
	PlaybackTicks   prometheus.Counter
}

// NewCollector registers the client metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tricys_api_requests_total",
		Help: "Backend API calls, labeled by HTTP method, route template and status code.",
	}, []string{"method", "path", "code"}))
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tricys_api_request_duration_seconds",
		Help:    "Backend API call latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"}))
	if err != nil {
		return nil, err
	}

	alerts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tricys_alerts_triggered_total",
		Help: "Threshold alerts armed by the playback evaluator, labeled by component.",
	}, []string{"component"}))
	if err != nil {
		return nil, err
	}

	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tricys_playback_ticks_total",
		Help: "Playback clock ticks processed.",
	})
	if err := reg.Register(ticks); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(prometheus.Counter)
		if !ok {
			return nil, err
		}
		ticks = existing
	}

	return &Collector{
		gatherer:        gatherer,
		APIRequests:     requests,
		APIDurations:    durations,
		AlertsTriggered: alerts,
		PlaybackTicks:   ticks,
	}, nil
}

// ObserveRequest records one backend call. A status of 0 means the request
// never produced a response.
func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	code := "transport_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.APIRequests.WithLabelValues(method, path, code).Inc()
	c.APIDurations.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveAlert(componentID string) {
	if c == nil {
		return
	}
	c.AlertsTriggered.WithLabelValues(componentID).Inc()
}

func (c *Collector) ObserveTick() {
	if c == nil {
		return
	}
	c.PlaybackTicks.Inc()
}

// Handler exposes the registered metrics over HTTP.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

func registerHistogramVec(reg prometheus.Registerer, hv *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(hv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return hv, nil
}
