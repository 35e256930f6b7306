// Package telemetry unifies OpenTelemetry tracing (Google Cloud) and Prometheus metrics.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/JakeFAU/search-console-gateway/internal/config"
)

// Outcome labels shared by the operation metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeAuthError = "auth_error"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchconsole_operations_total",
			Help: "Total number of Search Console operations, labeled by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	operationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "searchconsole_operation_duration_seconds",
			Help:    "Histogram of Search Console operation latencies, including any fallback attempt.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchconsole_fallbacks_total",
			Help: "Total number of alternate site identifier attempts, labeled by operation and result.",
		},
		[]string{"operation", "result"},
	)

	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchconsole_events_published_total",
			Help: "Total number of sitemap events published, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "searchconsole_rate_limit_delay_seconds",
			Help:    "Histogram of time spent waiting for a Search Console quota token.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

var (
	initOnce  sync.Once
	traceProv *sdktrace.TracerProvider
	meterProv *metric.MeterProvider
	initErr   error
)

// Init sets up tracing (Cloud Trace when a project is configured) and bridges
// OpenTelemetry metrics into the default Prometheus registry. Only the first
// call does any work.
func Init(ctx context.Context, cfg config.TelemetryConfig) (*sdktrace.TracerProvider, *metric.MeterProvider, error) {
	initOnce.Do(func() {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(cfg.ServiceName),
				semconv.ServiceVersion(cfg.Version),
				semconv.CloudProviderGCP,
			),
		)
		if err != nil {
			initErr = fmt.Errorf("failed to create resource: %w", err)
			return
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		}
		if cfg.ProjectID != "" {
			traceExporter, err := texporter.New(texporter.WithProjectID(cfg.ProjectID))
			if err != nil {
				initErr = fmt.Errorf("failed to create google trace exporter: %w", err)
				return
			}
			opts = append(opts, sdktrace.WithBatcher(traceExporter))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(
			propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		)

		// Share the promauto registry so OTel and native collectors land on one endpoint.
		promExporter, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
		if err != nil {
			initErr = fmt.Errorf("failed to create prometheus exporter: %w", err)
			return
		}

		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(promExporter),
		)
		otel.SetMeterProvider(mp)
		traceProv = tp
		meterProv = mp
	})
	return traceProv, meterProv, initErr
}

// Shutdown flushes and stops the providers created by Init.
func Shutdown(ctx context.Context) error {
	if traceProv != nil {
		if err := traceProv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
	}
	if meterProv != nil {
		if err := meterProv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter provider: %w", err)
		}
	}
	return nil
}

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.statusCode, time.Since(start))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// ObserveOperation records one public Search Console operation.
func ObserveOperation(operation, outcome string, duration time.Duration) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	operationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveFallback records an alternate identifier attempt and its result.
func ObserveFallback(operation, result string) {
	fallbacksTotal.WithLabelValues(operation, result).Inc()
}

// ObserveEventPublished records a sitemap event publish attempt.
func ObserveEventPublished(outcome string) {
	eventsPublishedTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records how long a call waited for quota.
func ObserveRateLimitDelay(d time.Duration) {
	rateLimitDelaySeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
