// Copyright (C) 2019-2024, Lux Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

// RunStatus represents a run's position in the execution state machine.
type RunStatus int

const (
	// RunStatusUnknown is the zero value; no run observed with this ID.
	RunStatusUnknown RunStatus = iota

	// RunStatusAdmitted means the run was accepted and queued.
	RunStatusAdmitted

	// RunStatusPlanning means the engine is validating the workflow DAG.
	RunStatusPlanning

	// RunStatusStepping means a step is executing.
	RunStatusStepping

	// RunStatusGated means execution is paused on a policy decision.
	RunStatusGated

	// RunStatusCompleted means every step ran and the run finished normally.
	RunStatusCompleted

	// RunStatusPaused means the run was suspended and can be resumed.
	RunStatusPaused

	// RunStatusCancelled means the run was cancelled before completion.
	RunStatusCancelled

	// RunStatusFailed means the run terminated on an unrecoverable error.
	RunStatusFailed
)

// String returns the string representation of the status.
func (s RunStatus) String() string {
	switch s {
	case RunStatusAdmitted:
		return "admitted"
	case RunStatusPlanning:
		return "planning"
	case RunStatusStepping:
		return "stepping"
	case RunStatusGated:
		return "gated"
	case RunStatusCompleted:
		return "completed"
	case RunStatusPaused:
		return "paused"
	case RunStatusCancelled:
		return "cancelled"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal returns true if the status represents a final state the run
// cannot transition out of.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusCancelled || s == RunStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal edge in
// the run state machine.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case RunStatusAdmitted:
		return next == RunStatusPlanning || next == RunStatusCancelled || next == RunStatusFailed
	case RunStatusPlanning:
		return next == RunStatusStepping || next == RunStatusFailed || next == RunStatusCancelled
	case RunStatusStepping:
		switch next {
		case RunStatusStepping, RunStatusGated, RunStatusCompleted, RunStatusPaused, RunStatusCancelled, RunStatusFailed:
			return true
		}
		return false
	case RunStatusGated:
		switch next {
		case RunStatusStepping, RunStatusPaused, RunStatusCancelled, RunStatusFailed:
			return true
		}
		return false
	case RunStatusPaused:
		return next == RunStatusStepping || next == RunStatusCancelled || next == RunStatusFailed
	default:
		return false
	}
}
