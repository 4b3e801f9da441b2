// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"
	"time"

	"github.com/luxfi/rechain/api/health"
	"github.com/luxfi/rechain/core"
)

// HealthCheck implements core.HealthCheckable: the engine is healthy as
// long as its admission semaphore has spare capacity.
func (e *Engine) HealthCheck(context.Context) (interface{}, error) {
	return e.Health(context.Background())
}

// Health implements health.Checkable, reporting worker-pool saturation,
// the number of in-flight runs, and the number of runs the registry holds
// (completed runs stay registered).
func (e *Engine) Health(context.Context) (interface{}, error) {
	start := time.Now()
	inFlight := e.inFlight.Get()
	capacity := e.capacity
	saturated := inFlight >= capacity

	status := core.HealthHealthy
	if saturated {
		status = core.HealthUnhealthy
	}

	return health.PoolReport{
		Healthy: !saturated,
		Details: map[string]interface{}{
			"status":         status.String(),
			"tracked_runs":   e.registry.Len(),
			"worker_pool":    capacity,
			"in_flight_runs": inFlight,
		},
		Duration: time.Since(start),
	}, nil
}

var _ health.Checkable = (*Engine)(nil)
var _ core.HealthCheckable = (*Engine)(nil)
