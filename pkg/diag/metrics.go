package diag

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xlatorbot/pkg/bus"
)

const namespace = "xlatorbot"

// Metrics exports bot activity to Prometheus. Counters are driven by the bus
// event stream; gauges read Stats on scrape.
type Metrics struct {
	registry *prometheus.Registry

	itemsSkipped      prometheus.Counter
	translations      *prometheus.CounterVec
	translationErrors *prometheus.CounterVec
	replies           *prometheus.CounterVec
	logons            *prometheus.CounterVec
	reconnects        prometheus.Counter
	tokenRejections   prometheus.Counter
}

func NewMetrics(stats *Stats) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		itemsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Messages ignored before translation (wrong type, own message, empty).",
		}),
		translations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Successful translations by target language.",
		}, []string{"lang"}),
		translationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_errors_total",
			Help:      "Failed translation requests by target language.",
		}, []string{"lang"}),
		replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Reply posts by status.",
		}, []string{"status"}),
		logons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logons_total",
			Help:      "Logon attempts by status.",
		}, []string{"status"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnects scheduled after a disconnect or failed logon.",
		}),
		tokenRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Times the platform rejected the bot token.",
		}),
	}

	if stats != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the session is connected.",
		}, func() float64 {
			if stats.State() == bus.StateConnected {
				return 1
			}
			return 0
		})
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started.",
		}, func() float64 {
			return stats.now().Sub(stats.startedAt).Seconds()
		})
	}

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe updates counters for one bus event.
func (m *Metrics) Observe(event bus.Event) {
	switch event.Type {
	case bus.EventItemSkipped:
		m.itemsSkipped.Inc()
	case bus.EventTranslationCompleted:
		m.translations.WithLabelValues(event.Lang).Inc()
	case bus.EventTranslationFailed:
		m.translationErrors.WithLabelValues(event.Lang).Inc()
	case bus.EventReplyPosted:
		m.replies.WithLabelValues("success").Inc()
	case bus.EventReplyFailed:
		m.replies.WithLabelValues("error").Inc()
	case bus.EventLogonCompleted:
		m.logons.WithLabelValues("success").Inc()
	case bus.EventLogonFailed:
		m.logons.WithLabelValues("error").Inc()
	case bus.EventReconnectScheduled:
		m.reconnects.Inc()
	case bus.EventTokenRejected:
		m.tokenRejections.Inc()
	}
}

// Watch observes events until the channel closes or ctx is done.
func (m *Metrics) Watch(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.Observe(event)
		}
	}
}
