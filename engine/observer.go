// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// Observer is a pluggable hook the engine calls synchronously, on the
// run's own goroutine: OnEvent for every emitted event and OnResult with
// the final result — e.g. to compute and compare a secondary digest. It
// cannot mutate ExecResult, and its methods return nothing to the engine.
type Observer interface {
	OnEvent(runID string, ev RunEvent)
	OnResult(runID string, result ExecResult)
}

// NopObserver implements Observer with no-op methods, the default when
// no secondary-verification path is configured.
type NopObserver struct{}

func (NopObserver) OnEvent(string, RunEvent)     {}
func (NopObserver) OnResult(string, ExecResult) {}

// observerFuncs adapts a pair of functions to the Observer interface for
// ad hoc use in tests.
type observerFuncs struct {
	onEvent  func(string, RunEvent)
	onResult func(string, ExecResult)
}

// NewFuncObserver builds an Observer from two plain functions; either may
// be nil.
func NewFuncObserver(onEvent func(string, RunEvent), onResult func(string, ExecResult)) Observer {
	return observerFuncs{onEvent: onEvent, onResult: onResult}
}

func (o observerFuncs) OnEvent(runID string, ev RunEvent) {
	if o.onEvent != nil {
		o.onEvent(runID, ev)
	}
}

func (o observerFuncs) OnResult(runID string, result ExecResult) {
	if o.onResult != nil {
		o.onResult(runID, result)
	}
}
