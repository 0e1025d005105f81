// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	dto "github.com/dropDatabas3/docstore/internal/http/dto/health"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Version string
	Commit  string
	// StorageName nombre del adapter (memory, postgres, ...).
	StorageName  string
	StorageCheck func(ctx context.Context) error // crítico
	CacheCheck   func(ctx context.Context) error // no crítico
	Cluster      repository.ClusterRepository
	Timeout      time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	response := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus),
		Version:    s.deps.Version,
		Commit:     s.deps.Commit,
		Timestamp:  time.Now().UTC(),
	}

	hasErrors := false
	hasCriticalErrors := false

	// 1) Storage (crítico)
	if s.deps.StorageCheck != nil {
		if err := s.deps.StorageCheck(ctx); err != nil {
			response.Components["storage"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("%s unavailable: %v", s.deps.StorageName, err),
			}
			hasCriticalErrors = true
			log.Error("storage unavailable", logger.String("adapter", s.deps.StorageName), logger.Err(err))
		} else {
			response.Components["storage"] = dto.HealthStatus{Status: "ok", Message: s.deps.StorageName}
		}
	} else {
		response.Components["storage"] = dto.HealthStatus{Status: "error", Message: "storage not initialized"}
		hasCriticalErrors = true
	}

	// 2) Cache (no crítico)
	if s.deps.CacheCheck != nil {
		if err := s.deps.CacheCheck(ctx); err != nil {
			response.Components["cache"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			hasErrors = true
			log.Warn("cache unavailable", logger.Err(err))
		} else {
			response.Components["cache"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["cache"] = dto.HealthStatus{Status: "disabled"}
	}

	// 3) Cluster (informativo)
	if s.deps.Cluster != nil {
		stats, err := s.deps.Cluster.GetStats(ctx)
		if err != nil || !stats.Healthy {
			msg := "no leader"
			if err != nil {
				msg = err.Error()
			}
			response.Components["cluster"] = dto.HealthStatus{Status: "error", Message: msg}
			hasErrors = true
		} else {
			response.Components["cluster"] = dto.HealthStatus{Status: "ok"}
		}
		if stats != nil {
			response.Cluster = map[string]any{
				"node_id":   stats.NodeID,
				"role":      string(stats.Role),
				"leader_id": stats.LeaderID,
				"peers":     stats.NumPeers,
			}
		}
	} else {
		response.Components["cluster"] = dto.HealthStatus{Status: "disabled"}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}
