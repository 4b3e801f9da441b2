// Copyright (C) 2020-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package health defines the worker-pool health report the engine
// publishes over the protocol session's HealthRequest/HealthResult
// exchange (session/server.go) and the rechctl CLI's health command.
package health

import (
	"context"
	"time"
)

// Checkable is implemented by components that can report a PoolReport,
// currently only the engine's admission semaphore and run registry.
type Checkable interface {
	Health(context.Context) (interface{}, error)
}

// PoolReport describes the saturation of the engine's worker pool: how
// many runs are in flight against its admission capacity, and how many
// runs the registry is currently tracking.
type PoolReport struct {
	// Healthy is false once in-flight runs reach worker-pool capacity.
	Healthy bool `json:"healthy"`

	// Details carries the saturation counters (tracked_runs, worker_pool,
	// in_flight_runs, status) surfaced to callers.
	Details map[string]interface{} `json:"details,omitempty"`

	// Duration is how long computing the report took.
	Duration time.Duration `json:"duration"`
}
