package handlers

import "github.com/prometheus/client_golang/prometheus"

var httpHandle = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "qkdmap",
	Subsystem: "server",
	Name:      "http_handled_seconds",
	Help:      "Handled HTTP request latency",
}, []string{"path"})

var streamClients = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "qkdmap",
	Subsystem: "server",
	Name:      "stream_clients",
	Help:      "Connected websocket stream clients",
})

func init() {
	prometheus.MustRegister(httpHandle, streamClients)
}
