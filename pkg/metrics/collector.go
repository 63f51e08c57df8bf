// Package metrics exposes the Prometheus collectors of the account service.
package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/storefront-account/internal/account"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	widgetTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_transitions_total",
			Help: "Total number of widget view transitions",
		},
		[]string{"from", "to"},
	)
	fieldValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "field_validations_total",
			Help: "Total number of field validations labeled by field and outcome",
		},
		[]string{"field", "valid"},
	)
	signupResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_results_total",
			Help: "Total number of processed signup requests labeled by status",
		},
		[]string{"status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeWidgets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_widgets",
			Help: "Current number of stored widgets",
		},
	)
	widgetsByView = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "widgets_by_view",
			Help: "Number of widgets per view",
		},
		[]string{"view"},
	)
)

func init() {
	account.RegisterTransitionRecorder(RecordWidgetTransition)
	account.RegisterValidationRecorder(RecordFieldValidation)
}

// RecordHTTPRequest increments request counters and records duration.
func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordWidgetTransition tracks view transitions.
func RecordWidgetTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	widgetTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordFieldValidation(field string, valid bool) {
	fieldValidationsTotal.WithLabelValues(field, strconv.FormatBool(valid)).Inc()
}

// RecordSignupResult counts a processed signup by its status.
func RecordSignupResult(status string) {
	if status == "" {
		status = "unknown"
	}

	signupResultsTotal.WithLabelValues(status).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// WidgetLister lists the stored widgets.
type WidgetLister interface {
	ListWidgets(ctx context.Context) ([]account.Widget, error)
}

// WidgetCollector periodically counts stored widgets per view and emits gauge metrics.
type WidgetCollector struct {
	lister   WidgetLister
	interval time.Duration
	log      *slog.Logger
}

// NewWidgetCollector builds a collector that polls lister every interval.
func NewWidgetCollector(lister WidgetLister, interval time.Duration, log *slog.Logger) *WidgetCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &WidgetCollector{lister: lister, interval: interval, log: log}
}

// Run polls until ctx is cancelled.
func (c *WidgetCollector) Run(ctx context.Context) {
	if c == nil || c.lister == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.Collect(ctx); err != nil {
			c.log.Warn("widget metrics collection failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect refreshes the widget gauges once.
func (c *WidgetCollector) Collect(ctx context.Context) error {
	widgets, err := c.lister.ListWidgets(ctx)
	if err != nil {
		return err
	}

	activeWidgets.Set(float64(len(widgets)))

	counts := make(map[account.View]int, len(account.Views()))
	for _, w := range widgets {
		counts[w.View]++
	}

	widgetsByView.Reset()
	for _, view := range account.Views() {
		widgetsByView.WithLabelValues(view.String()).Set(float64(counts[view]))
	}

	return nil
}
