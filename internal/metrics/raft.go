package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de Raft. Viven en un paquete aparte para evitar ciclos entre
// cluster (Raft) y los paquetes HTTP.

var (
	RaftApplyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "raft_apply_latency_ms",
		Help:    "Latencia de raft.Apply en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	RaftLeadershipChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "raft_leadership_changes_total",
		Help: "Cambios de rol a leader",
	})

	RaftLogSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "raft_log_size_bytes",
		Help: "Tamaño en bytes del archivo de log/stable (BoltDB)",
	})

	RaftFSMApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "raft_fsm_applied_total",
		Help: "Entradas aplicadas por el FSM de documentos, por tipo y resultado",
	}, []string{"type", "result"})
)

// RegisterRaft registra las métricas de raft en reg (o el default si es nil).
func RegisterRaft(reg prometheus.Registerer) error {
	return register(reg, RaftApplyLatency, RaftLeadershipChanges, RaftLogSizeBytes, RaftFSMApplied)
}

// register tolera colectores ya registrados (tests, re-init).
func register(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
