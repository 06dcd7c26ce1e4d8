// Package health aggregates component probes into a single readiness flag
// the /api/health endpoint and the startup gate consult.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by per-component checkers. The store checker
// is the only component this service runs today; the aggregate takes a
// variadic list so future components slot in without touching the bootstrap.
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// ServiceHealthChecker folds component health into one cached flag: the
// service is healthy only while every component is.
type ServiceHealthChecker struct {
	healthy    atomic.Int32
	components []HealthChecker
	log        zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, components ...HealthChecker) *ServiceHealthChecker {
	h := &ServiceHealthChecker{components: components, log: log}
	h.healthy.Store(0) // unhealthy until the first evaluation
	return h
}

// IsHealthy returns the cached service health without blocking.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Start re-evaluates component health on the given interval until the
// context is cancelled, logging only on state transitions.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(-1)
	evaluate := func() {
		cur := int32(1)
		for _, c := range h.components {
			if !c.IsHealthy() {
				h.log.Warn().Str("component", c.Name()).Msg("component unhealthy")
				cur = 0
			}
		}
		h.healthy.Store(cur)
		if cur != prev {
			if cur == 1 {
				h.log.Info().Msg("service healthy")
			} else {
				h.log.Error().Msg("service unhealthy")
			}
			prev = cur
		}
	}

	evaluate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evaluate()
		}
	}
}
