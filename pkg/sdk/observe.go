package contextq

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ask statuses recorded in contextq_sdk_asks_total.
const (
	statusAnswered    = "answered"
	statusNoDocuments = "no_documents"
	statusSuspect     = "suspect"
	statusError       = "error"
)

type sdkMetrics struct {
	asks     *prometheus.CounterVec
	duration prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		asks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contextq",
			Subsystem: "sdk",
			Name:      "asks_total",
			Help:      "Questions answered through the SDK, by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "contextq",
			Subsystem: "sdk",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end Ask duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
	}
	if err := registerOrReuse(reg, &m.asks); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one,
// so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("contextq: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("contextq: register metric: %w", err)
	}
	return nil
}

// observer logs and counts Ask calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func askStatus(ans Answer, err error) string {
	switch {
	case err != nil:
		return statusError
	case ans.NoDocuments:
		return statusNoDocuments
	case ans.HallucinationSuspected:
		return statusSuspect
	default:
		return statusAnswered
	}
}

func (o *observer) observeAsk(start time.Time, ans Answer, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := askStatus(ans, err)

	if o.metrics != nil {
		o.metrics.asks.WithLabelValues(status).Inc()
		o.metrics.duration.Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	switch status {
	case statusError:
		o.logger.Warn("ask failed", "duration", dur, "error", err)
	case statusNoDocuments:
		o.logger.Info("ask found no documents", "duration", dur, "reason", ans.EmptyReason)
	default:
		o.logger.Debug("ask completed",
			"duration", dur,
			"sources", len(ans.Sources),
			"hallucination_suspected", ans.HallucinationSuspected,
		)
	}
}
