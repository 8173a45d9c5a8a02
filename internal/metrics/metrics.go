package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	PaymentsCreated    prometheus.Counter
	PaymentTransitions *prometheus.CounterVec
	AccessGrants       prometheus.Counter
	WebhookResults     *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PaymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "channelpass_payments_created_total",
			Help: "Payments created by the start command.",
		}),
		PaymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "channelpass_payment_transitions_total",
			Help: "Successful payment status transitions.",
		}, []string{"to"}),
		AccessGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "channelpass_access_grants_total",
			Help: "Channel access grants performed.",
		}),
		WebhookResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "channelpass_webhook_results_total",
			Help: "Webhook deliveries by outcome.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "channelpass_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		m.PaymentsCreated,
		m.PaymentTransitions,
		m.AccessGrants,
		m.WebhookResults,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.PaymentTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) RecordWebhook(result string) {
	if m == nil {
		return
	}
	m.WebhookResults.WithLabelValues(result).Inc()
}

// GinMiddleware observes request latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpDuration.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// Module provides the prometheus registry and service collectors.
var Module = fx.Module("metrics",
	fx.Provide(
		func() *prometheus.Registry { return prometheus.NewRegistry() },
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		New,
	),
)
