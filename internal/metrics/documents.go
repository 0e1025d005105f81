package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_writes_total",
		Help: "Escrituras de documentos por operación, version_type y resultado",
	}, []string{"op", "version_type", "result"})

	VersionConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_version_conflicts_total",
		Help: "Escrituras rechazadas por el version gate",
	}, []string{"version_type"})

	WriteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docstore_write_latency_ms",
		Help:    "Latencia de escrituras de documentos en milisegundos",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 14),
	}, []string{"op"})

	CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_cache_requests_total",
		Help: "Lecturas servidas por el cache de documentos (hit|miss|error)",
	}, []string{"result"})
)

// Resultados de escritura para el label "result".
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// RegisterDocuments registra las métricas de documentos en reg (o el default si es nil).
func RegisterDocuments(reg prometheus.Registerer) error {
	return register(reg, DocumentWrites, VersionConflicts, WriteLatency, CacheRequests)
}

// ObserveWrite registra una escritura terminada.
func ObserveWrite(op, versionType, result string, took time.Duration) {
	DocumentWrites.WithLabelValues(op, versionType, result).Inc()
	if result == ResultConflict {
		VersionConflicts.WithLabelValues(versionType).Inc()
	}
	WriteLatency.WithLabelValues(op).Observe(float64(took.Microseconds()) / 1000)
}
