package main

import (
	"github.com/luno/qkdmap"
	"github.com/luno/qkdmap/server/ops/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

const namespace = "qkdmap"

var (
	framesRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "map",
		Name: "frames_total", Help: "Animation frames rendered",
	})
	mapRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "map",
		Name: "rebuilds_total", Help: "Times the map was rebuilt",
	})
	keyPairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "map",
		Name: "key_pairs", Help: "Key pairs currently animated",
	})
	fetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "map",
		Name: "fetch_errors_total", Help: "Failed backend fetches by endpoint",
	}, []string{"endpoint"})

	backendRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "backend",
		Name: "requests_total", Help: "Requests sent to the QKD backend",
	})
	backendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "backend",
		Name: "request_errors_total", Help: "Failed requests to the QKD backend",
	})
	backendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "backend",
		Name: "request_seconds", Help: "QKD backend request latency",
	})
	breakerOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "backend",
		Name: "breaker_opened_total", Help: "Times the backend circuit breaker opened",
	})
)

func init() {
	prometheus.MustRegister(
		framesRendered, mapRebuilds, keyPairs, fetchErrors,
		backendRequests, backendErrors, backendLatency, breakerOpened,
	)
}

type labelledCounter struct {
	v *prometheus.CounterVec
}

func (c labelledCounter) Inc(label string) {
	c.v.WithLabelValues(label).Inc()
}

func viewMetrics() view.Metrics {
	return view.Metrics{
		Frames:      framesRendered,
		Rebuilds:    mapRebuilds,
		KeyPairs:    keyPairs,
		FetchErrors: labelledCounter{v: fetchErrors},
	}
}

func clientMetrics() qkdmap.Metrics {
	return qkdmap.Metrics{
		Requests:       backendRequests,
		RequestErrors:  backendErrors,
		RequestLatency: backendLatency,
		BreakerOpened:  breakerOpened,
	}
}

// registerBreakerState exposes the breaker state of c, 0 closed, 1 half
// open and 2 open.
func registerBreakerState(c *qkdmap.Client) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "backend",
		Name: "breaker_state", Help: "Backend circuit breaker state",
	}, func() float64 {
		switch c.BreakerState() {
		case gobreaker.StateHalfOpen:
			return 1
		case gobreaker.StateOpen:
			return 2
		default:
			return 0
		}
	}))
}
