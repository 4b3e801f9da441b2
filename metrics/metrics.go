// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires engine.Observer into the api/metrics Prometheus
// exporter, so a rechaind daemon can publish ExecutionMetrics alongside
// the digest-eligible ExecResult it returns over the wire.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	apimetrics "github.com/luxfi/rechain/api/metrics"
	"github.com/luxfi/rechain/core"
	"github.com/luxfi/rechain/engine"
)

// Metrics wraps a prometheus.Registerer and exposes the run counters and
// step-duration histogram defined in api/metrics.
type Metrics struct {
	Registry prometheus.Registerer
	m        apimetrics.Metrics
}

// NewMetrics registers the rechaind run counters under namespace on reg
// and returns the wrapper.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m, err := apimetrics.NewMetrics(namespace, reg)
	if err != nil {
		return nil, err
	}
	return &Metrics{Registry: reg, m: m}, nil
}

// Register registers an additional prometheus collector on the same
// registry, for callers that need to export something beyond the run
// counters (e.g. process or Go runtime collectors).
func (m *Metrics) Register(collector prometheus.Collector) error {
	return m.Registry.Register(collector)
}

// Observer adapts a Metrics instance to engine.Observer: OnEvent counts
// run_started events into RunsExecuted; OnResult bumps the terminal-status
// counters (cancelled runs count toward RunsFailed) and observes the upper
// bound of each entry in the result's LatencyHistogram into the
// step-duration histogram. It never mutates ExecResult; its
// counts are observational, same as the ExecutionMetrics they export.
type Observer struct {
	metrics *Metrics
}

// NewObserver returns an engine.Observer backed by metrics.
func NewObserver(m *Metrics) *Observer {
	return &Observer{metrics: m}
}

func (o *Observer) OnEvent(_ string, ev engine.RunEvent) {
	if o.metrics == nil {
		return
	}
	if ev.EventType == engine.EventRunStarted {
		o.metrics.m.RunsExecuted().Inc()
	}
}

func (o *Observer) OnResult(_ string, result engine.ExecResult) {
	if o.metrics == nil {
		return
	}
	switch result.Status {
	case core.RunStatusCompleted:
		o.metrics.m.RunsCompleted().Inc()
	case core.RunStatusFailed, core.RunStatusCancelled:
		o.metrics.m.RunsFailed().Inc()
	}
	for _, bucket := range result.Metrics.LatencyHistogram {
		o.metrics.m.StepDuration().Observe(float64(bucket.UpperBoundUS))
	}
}

var _ engine.Observer = (*Observer)(nil)
