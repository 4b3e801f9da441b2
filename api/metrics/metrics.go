// Copyright (C) 2020-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registerer is an interface for registering prometheus metrics
type Registerer interface {
	prometheus.Registerer
}

// Registry is an interface for prometheus registry
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// NewRegistry creates a new prometheus registry
func NewRegistry() Registry {
	return prometheus.NewRegistry()
}

// MultiGatherer is a prometheus gatherer that can gather metrics from multiple sources
type MultiGatherer interface {
	prometheus.Gatherer

	// Register adds a new gatherer to this multi-gatherer
	Register(string, prometheus.Gatherer) error
}

// multiGatherer implements MultiGatherer
type multiGatherer struct {
	gatherers map[string]prometheus.Gatherer
}

// NewMultiGatherer creates a new multi-gatherer
func NewMultiGatherer() MultiGatherer {
	return &multiGatherer{
		gatherers: make(map[string]prometheus.Gatherer),
	}
}

// Register adds a new gatherer
func (mg *multiGatherer) Register(name string, gatherer prometheus.Gatherer) error {
	mg.gatherers[name] = gatherer
	return nil
}

// Gather implements prometheus.Gatherer
func (mg *multiGatherer) Gather() ([]*dto.MetricFamily, error) {
	var result []*dto.MetricFamily
	for _, g := range mg.gatherers {
		metrics, err := g.Gather()
		if err != nil {
			return nil, err
		}
		result = append(result, metrics...)
	}
	return result, nil
}

// Metrics is the observational ExecutionMetrics exporter: run counts and
// per-status counters for a rechaind daemon's engine.Engine, excluded
// from the result_digest like every other observational metric.
type Metrics interface {
	// RunsExecuted tracks the number of runs admitted to the engine.
	RunsExecuted() prometheus.Counter

	// RunsCompleted tracks runs that reached RunStatusCompleted.
	RunsCompleted() prometheus.Counter

	// RunsFailed tracks runs that reached RunStatusFailed, including
	// control breaches and policy denials.
	RunsFailed() prometheus.Counter

	// StepDuration observes synthetic per-step elapsed microseconds.
	StepDuration() prometheus.Histogram
}

// NewMetrics creates a new metrics instance registered under namespace.
func NewMetrics(namespace string, registerer prometheus.Registerer) (Metrics, error) {
	m := &metrics{
		runsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_executed_total",
			Help:      "Number of runs admitted to the engine",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Number of runs that completed successfully",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Number of runs that failed, including control breaches and policy denials",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_us",
			Help:      "Synthetic per-step elapsed microseconds",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		}),
	}

	if err := registerer.Register(m.runsExecuted); err != nil {
		return nil, err
	}
	if err := registerer.Register(m.runsCompleted); err != nil {
		return nil, err
	}
	if err := registerer.Register(m.runsFailed); err != nil {
		return nil, err
	}
	if err := registerer.Register(m.stepDuration); err != nil {
		return nil, err
	}

	return m, nil
}

type metrics struct {
	runsExecuted  prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    prometheus.Counter
	stepDuration  prometheus.Histogram
}

func (m *metrics) RunsExecuted() prometheus.Counter   { return m.runsExecuted }
func (m *metrics) RunsCompleted() prometheus.Counter  { return m.runsCompleted }
func (m *metrics) RunsFailed() prometheus.Counter     { return m.runsFailed }
func (m *metrics) StepDuration() prometheus.Histogram { return m.stepDuration }
