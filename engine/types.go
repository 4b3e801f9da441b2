// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine implements the deterministic workflow state machine:
// policy gates, step/time/budget controls, the append-only event log,
// digest emission, and replay, sitting on top of canon and fixedpoint.
package engine

import (
	"fmt"
	"sort"

	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/config"
	"github.com/luxfi/rechain/core"
	"github.com/luxfi/rechain/fixedpoint"
)

// StepKind is the closed set of step variants a Workflow may contain.
type StepKind int

const (
	StepKindUnknown StepKind = iota
	StepKindToolCall
	StepKindEmitArtifact
	StepKindDecision
	StepKindPause
)

func (k StepKind) String() string {
	switch k {
	case StepKindToolCall:
		return "tool_call"
	case StepKindEmitArtifact:
		return "emit_artifact"
	case StepKindDecision:
		return "decision"
	case StepKindPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Step is one node in a Workflow's dependency DAG.
type Step struct {
	ID         string
	Kind       StepKind
	Tool       string
	Config     map[string]string
	DependsOn  []string
	CostUSD    fixedpoint.Q32
}

// Workflow is an ordered sequence of Steps plus identifying metadata.
type Workflow struct {
	Name    string
	Version string
	Steps   []Step
}

// canonValue renders w as a canon.Map, the input to both WorkflowID and
// any digest that incorporates the workflow definition.
func (w Workflow) canonValue() (canon.Value, error) {
	steps := make(canon.Array, 0, len(w.Steps))
	for _, st := range w.Steps {
		cfg := make(canon.Map, len(st.Config))
		for k, v := range st.Config {
			cfg[k] = canon.Text(v)
		}
		deps := make(canon.Array, 0, len(st.DependsOn))
		for _, d := range st.DependsOn {
			deps = append(deps, canon.Text(d))
		}
		steps = append(steps, canon.Map{
			"id":         canon.Text(st.ID),
			"kind":       canon.Text(st.Kind.String()),
			"tool":       canon.Text(st.Tool),
			"config":     cfg,
			"depends_on": deps,
			"cost_usd":   canon.Int(int64(st.CostUSD)),
		})
	}
	return canon.Map{
		"name":    canon.Text(w.Name),
		"version": canon.Text(w.Version),
		"steps":   steps,
	}, nil
}

// WorkflowID returns the content-addressed identifier blake3(canonical(w)),
// following the H(Domain||Payload) pattern applied to the workflow
// definition itself.
func (w Workflow) WorkflowID() (string, error) {
	v, err := w.canonValue()
	if err != nil {
		return "", err
	}
	b, err := canon.Encode(v)
	if err != nil {
		return "", err
	}
	return canon.Digest(b), nil
}

// TopoSort validates the workflow's dependency DAG and returns step ids
// in a deterministic topological order (ties broken by id). It rejects
// cycles, duplicate ids, and dangling depends_on references.
func (w Workflow) TopoSort() ([]string, error) {
	index := make(map[string]int, len(w.Steps))
	for i, st := range w.Steps {
		if st.ID == "" {
			return nil, fmt.Errorf("engine: step %d has empty id", i)
		}
		if _, dup := index[st.ID]; dup {
			return nil, fmt.Errorf("engine: duplicate step id %q", st.ID)
		}
		index[st.ID] = i
	}
	for _, st := range w.Steps {
		for _, dep := range st.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("engine: step %q depends on unknown id %q", st.ID, dep)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(w.Steps))
	var order []string

	// Sort steps by id up front so that the DFS visitation order (and
	// therefore the resulting topological order) is deterministic
	// regardless of caller-provided slice order.
	ids := make([]string, len(w.Steps))
	for i, st := range w.Steps {
		ids[i] = st.ID
	}
	sort.Strings(ids)

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return core.ErrWorkflowCyclic
		}
		color[id] = gray
		st := w.Steps[index[id]]
		deps := append([]string(nil), st.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ExecRequest is the decoded input to Engine.Execute.
type ExecRequest struct {
	RunID     string
	Workflow  Workflow
	Controls  config.ExecutionControls
	Policy    Policy
	Metadata  map[string]string
	SessionID string
}

// EventType is the closed set of RunEvent variants.
type EventType int

const (
	EventUnknown EventType = iota
	EventRunStarted
	EventStepStarted
	EventStepCompleted
	EventPolicyDenied
	EventRunCompleted
	EventRunPaused
	EventRunCancelled
	EventRunFailed
)

func (t EventType) String() string {
	switch t {
	case EventRunStarted:
		return "run_started"
	case EventStepStarted:
		return "step_started"
	case EventStepCompleted:
		return "step_completed"
	case EventPolicyDenied:
		return "policy_denied"
	case EventRunCompleted:
		return "run_completed"
	case EventRunPaused:
		return "run_paused"
	case EventRunCancelled:
		return "run_cancelled"
	case EventRunFailed:
		return "run_failed"
	default:
		return "unknown"
	}
}

// RunEvent is one append-only record in a run's event log.
type RunEvent struct {
	EventID     uint64
	EventType   EventType
	TimestampUS uint64
	Payload     canon.Map
	Digest      string
}

// ExecutionMetrics are observational; they are excluded from the digest.
type ExecutionMetrics struct {
	StepsExecuted     uint32
	ElapsedUS         fixedpoint.DurationUS
	BudgetSpent       fixedpoint.Q32
	Throughput        fixedpoint.Throughput
	CASHitRate        fixedpoint.PPM
	LatencyP50        fixedpoint.DurationUS
	LatencyP95        fixedpoint.DurationUS
	LatencyP99        fixedpoint.DurationUS
	LatencyHistogram  []HistogramBucket
	Flags             fixedpoint.StickyFlags
}

// HistogramBucket is one bucket of a monotonically-increasing latency
// histogram: cumulative count of samples at or below UpperBoundUS.
type HistogramBucket struct {
	UpperBoundUS fixedpoint.DurationUS
	Count        uint64
}

// ExecResult is the terminal outcome of a run.
type ExecResult struct {
	RunID        string
	Status       core.RunStatus
	Reason       string
	ResultDigest string
	Events       []RunEvent
	FinalAction  string
	Metrics      ExecutionMetrics
	SessionID    string
}
