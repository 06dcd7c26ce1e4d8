package health

import "context"

// HealthPinger lets a component expose a direct liveness probe. The store
// adapters implement it over database/sql's PingContext; a nil return means
// healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
