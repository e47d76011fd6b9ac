package propstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	claims        *prometheus.CounterVec
	keyRejections prometheus.Counter
	persistOps    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propstore",
			Name:      "claims_total",
			Help:      "Namespace claim attempts by result (granted or refused).",
		}, []string{"result"}),
		keyRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "propstore",
			Name:      "key_rejections_total",
			Help:      "Writes refused because of an empty key or a dictionary miss.",
		}),
		persistOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propstore",
			Name:      "persist_operations_total",
			Help:      "Persisted-form reads and writes by operation and result.",
		}, []string{"op", "result"}),
	}
	m.claims = register(reg, m.claims)
	m.keyRejections = register(reg, m.keyRejections)
	m.persistOps = register(reg, m.persistOps)
	return m
}

// register returns the collector already registered under the same
// descriptor, so several stores can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// instruments bundles the logger and optional metrics shared by a store and its buckets.
// A nil *instruments is valid and records nothing.
type instruments struct {
	logger  Logger
	logTag  string
	metrics *metrics
}

func (in *instruments) logf(level string, ctx context.Context, format string, args ...interface{}) {
	if in == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if in.logTag != "" {
		msg = in.logTag + " " + msg
	}
	switch level {
	case "info":
		in.logger.Info(ctx, msg)
	case "warn":
		in.logger.Warn(ctx, msg)
	case "error":
		in.logger.Error(ctx, msg)
	case "debug":
		in.logger.Debug(ctx, msg)
	}
}

func (in *instruments) claim(ns string, granted bool) {
	if in == nil {
		return
	}
	if granted {
		in.logf("debug", context.Background(), "Claim %s granted", ns)
	} else {
		in.logf("warn", context.Background(), "Claim %s refused: already claimed", ns)
	}
	if in.metrics != nil {
		result := "refused"
		if granted {
			result = "granted"
		}
		in.metrics.claims.WithLabelValues(result).Inc()
	}
}

func (in *instruments) keyRejected(ns, key, reason string) {
	if in == nil {
		return
	}
	in.logf("warn", context.Background(), "Set %s%s%s rejected: %s", ns, Delimiter, key, reason)
	if in.metrics != nil {
		in.metrics.keyRejections.Inc()
	}
}

func (in *instruments) persisted(ctx context.Context, op string, n int, err error) {
	if in == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		in.logf("error", ctx, "%s failed: %v", op, err)
	} else {
		in.logf("debug", ctx, "%s %d entries", op, n)
	}
	if in.metrics != nil {
		in.metrics.persistOps.WithLabelValues(op, result).Inc()
	}
}
