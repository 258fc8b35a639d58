package cloud

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsStartKey = "metrics_start_time"

// MetricsCollector records per-service request counts and latencies.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

// NewMetricsCollector registers the collector's metrics with registry. One
// collector is shared by every service a builder creates; each service is
// told apart by its "service" label.
func NewMetricsCollector(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudsdk_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"service", "method", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cloudsdk_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudsdk_errors_total",
				Help: "Total number of failed API requests",
			},
			[]string{"service", "method"},
		),
	}
}

// RequestsTotal is the request counter, labelled by service, method and
// status code.
func (m *MetricsCollector) RequestsTotal() *prometheus.CounterVec {
	return m.requestsTotal
}

// Attach adds interceptors recording requests under service to chain.
func (m *MetricsCollector) Attach(chain *InterceptorChain, service string) {
	chain.AddRequestInterceptor(func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metricsStartKey] = time.Now()

		return nil
	})

	chain.AddResponseInterceptor(func(ctx context.Context, req *Request, resp *Response) error {
		m.requestsTotal.WithLabelValues(service, req.Method, strconv.Itoa(resp.StatusCode)).Inc()

		if start, ok := req.Metadata[metricsStartKey].(time.Time); ok {
			m.requestDuration.WithLabelValues(service, req.Method).Observe(time.Since(start).Seconds())
		}

		if resp.Error != nil || resp.StatusCode >= 400 {
			m.errorsTotal.WithLabelValues(service, req.Method).Inc()
		}

		return nil
	})
}
