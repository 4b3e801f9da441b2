// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/luxfi/log"
	"golang.org/x/sync/semaphore"

	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/config"
	"github.com/luxfi/rechain/core"
	"github.com/luxfi/rechain/fixedpoint"
	"github.com/luxfi/rechain/utils"
	"github.com/luxfi/rechain/utils/set"
)

// MaxWorkerPoolSize is the hard ceiling on concurrent runs, per §5's
// "worker pool sized to min(cpu_count, 32)".
const MaxWorkerPoolSize = 32

// MaxRunIDBytes bounds run_id length.
const MaxRunIDBytes = 64

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// DefaultWorkerPoolSize returns min(runtime.NumCPU(), MaxWorkerPoolSize).
func DefaultWorkerPoolSize() int {
	n := runtime.NumCPU()
	if n > MaxWorkerPoolSize {
		return MaxWorkerPoolSize
	}
	if n < 1 {
		return 1
	}
	return n
}

// Engine executes workflows under their controls and policy, maintaining
// the run registry and admission semaphore described in §5.
type Engine struct {
	registry  *RunRegistry
	sem       *semaphore.Weighted
	capacity  int64
	inFlight  *utils.AtomicInt
	replayLog ReplayLog
	observer  Observer
	logger    log.Logger
}

// New returns an Engine with a worker pool of size workerPoolSize
// (clamped to [1, MaxWorkerPoolSize]). replayLog and observer may be nil,
// in which case events are not persisted and no secondary observation
// runs.
func New(workerPoolSize int, replayLog ReplayLog, observer Observer, logger log.Logger) *Engine {
	if workerPoolSize < 1 {
		workerPoolSize = 1
	}
	if workerPoolSize > MaxWorkerPoolSize {
		workerPoolSize = MaxWorkerPoolSize
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = log.NoLog{}
	}
	return &Engine{
		registry:  NewRunRegistry(),
		sem:       semaphore.NewWeighted(int64(workerPoolSize)),
		capacity:  int64(workerPoolSize),
		inFlight:  utils.NewAtomicInt(0),
		replayLog: replayLog,
		observer:  observer,
		logger:    logger,
	}
}

func validateRunID(runID string) error {
	if runID == "" || len(runID) > MaxRunIDBytes {
		return core.ErrInvalidRunID
	}
	if !runIDPattern.MatchString(runID) {
		return core.ErrInvalidRunID
	}
	return nil
}

// Execute runs req to completion (or to its first terminal control/
// policy breach) and returns the ExecResult. It is single-threaded per
// run; concurrent calls for distinct runs execute on the engine's
// worker-pool semaphore.
func (e *Engine) Execute(ctx context.Context, req ExecRequest) (ExecResult, error) {
	if err := validateRunID(req.RunID); err != nil {
		return ExecResult{}, err
	}
	if !e.registry.Admit(req.RunID) {
		return ExecResult{}, core.ErrAlreadyExists
	}

	if !e.sem.TryAcquire(1) {
		e.registry.Forget(req.RunID)
		return ExecResult{}, core.ErrResourceExhausted
	}
	e.inFlight.Inc()
	defer func() {
		e.inFlight.Dec()
		e.sem.Release(1)
	}()

	result := e.run(ctx, req)
	e.registry.Store(req.RunID, result)
	e.observer.OnResult(req.RunID, result)

	if e.replayLog != nil {
		for _, ev := range result.Events {
			if err := e.replayLog.Append(req.RunID, ev); err != nil {
				e.logger.Warn("replay log append failed", "run_id", req.RunID, "err", err)
				break
			}
		}
	}

	return result, nil
}

// runState accumulates the per-run mutable state threaded through step
// execution: the event log, digest chain tip, virtual clock, and
// control accumulators.
type runState struct {
	events      []RunEvent
	prevDigest  string
	elapsedUS   uint64
	budgetSpent fixedpoint.Q32
	flags       fixedpoint.StickyFlags
	rng         *canon.Rand
}

func (e *Engine) run(ctx context.Context, req ExecRequest) ExecResult {
	st := &runState{rng: canon.NewRand(canon.SeedFromRunID(req.RunID))}

	order, err := req.Workflow.TopoSort()
	if err != nil {
		e.emit(st, req.RunID, EventRunFailed, canon.Map{"reason": canon.Text(err.Error())})
		return e.finish(req, st, core.RunStatusFailed, err.Error())
	}

	e.emit(st, req.RunID, EventRunStarted, canon.Map{
		"workflow_name": canon.Text(req.Workflow.Name),
		"step_count":    canon.Uint(uint64(len(order))),
	})

	caps := capabilitiesFromMetadata(req.Metadata)
	stepByID := make(map[string]Step, len(req.Workflow.Steps))
	for _, st2 := range req.Workflow.Steps {
		stepByID[st2.ID] = st2
	}

	for k, stepID := range order {
		select {
		case <-ctx.Done():
			e.emit(st, req.RunID, EventRunCancelled, canon.Map{"reason": canon.Text("context cancelled")})
			return e.finish(req, st, core.RunStatusCancelled, "context cancelled")
		default:
		}

		step := stepByID[stepID]
		stepNum := uint32(k + 1)

		if breach := e.checkControls(st, req.Controls, stepNum, step); breach != nil {
			e.emit(st, req.RunID, EventRunFailed, canon.Map{"reason": canon.Text(breach.Error())})
			return e.finish(req, st, core.RunStatusFailed, breach.Error())
		}

		evalCtx := EvalContext{
			Capabilities:  caps,
			StepsExecuted: stepNum - 1,
			BudgetSpent:   st.budgetSpent,
			Tool:          step.Tool,
		}
		decision, reason, ruleName, perr := req.Policy.Evaluate(evalCtx)
		if perr != nil {
			e.emit(st, req.RunID, EventRunFailed, canon.Map{"reason": canon.Text(perr.Error())})
			return e.finish(req, st, core.RunStatusFailed, perr.Error())
		}
		if decision == DecisionDeny {
			e.emit(st, req.RunID, EventPolicyDenied, canon.Map{
				"step_id": canon.Text(step.ID),
				"rule":    canon.Text(ruleName),
				"reason":  canon.Text(reason),
			})
			e.emit(st, req.RunID, EventRunFailed, canon.Map{"reason": canon.Text(reason)})
			return e.finish(req, st, core.RunStatusFailed, reason)
		}
		if decision == DecisionPrompt {
			e.emit(st, req.RunID, EventRunPaused, canon.Map{
				"step_id": canon.Text(step.ID),
				"reason":  canon.Text("policy requires prompt confirmation"),
			})
			return e.finish(req, st, core.RunStatusPaused, "policy requires prompt confirmation")
		}

		e.emit(st, req.RunID, EventStepStarted, canon.Map{
			"step_id": canon.Text(step.ID),
			"kind":    canon.Text(step.Kind.String()),
		})

		if step.Kind == StepKindPause {
			e.emit(st, req.RunID, EventRunPaused, canon.Map{"step_id": canon.Text(step.ID)})
			return e.finish(req, st, core.RunStatusPaused, "")
		}

		output := st.rng.Uint64()
		e.emit(st, req.RunID, EventStepCompleted, canon.Map{
			"step_id":    canon.Text(step.ID),
			"output_hex": canon.Text(fmt.Sprintf("%016x", output)),
		})

		// Synthetic step duration, deterministic from run_id-seeded rng.
		st.elapsedUS += 100 + st.rng.Next()%900
	}

	e.emit(st, req.RunID, EventRunCompleted, canon.Map{"steps_executed": canon.Uint(uint64(len(order)))})
	return e.finish(req, st, core.RunStatusCompleted, "")
}

// checkControls enforces the fixed control order before step k: max_steps,
// run_timeout, budget charge, min_step_interval.
func (e *Engine) checkControls(st *runState, ctrl config.ExecutionControls, stepNum uint32, step Step) error {
	if ctrl.MaxSteps != 0 && stepNum > ctrl.MaxSteps {
		return core.ErrMaxStepsExceeded
	}
	if ctrl.RunTimeout != 0 && st.elapsedUS > uint64(ctrl.RunTimeout) {
		return core.ErrRunTimeoutExceeded
	}
	if ctrl.BudgetLimit != 0 {
		projected := st.budgetSpent.Add(step.CostUSD, &st.flags)
		if projected.Cmp(ctrl.BudgetLimit) > 0 {
			return core.ErrBudgetExceeded
		}
	}
	st.budgetSpent = st.budgetSpent.Add(step.CostUSD, &st.flags)

	if ctrl.MinStepInterval != 0 {
		floor := uint64(ctrl.MinStepInterval)
		if st.elapsedUS < floor {
			st.elapsedUS = floor
		}
	}
	return nil
}

func (e *Engine) emit(st *runState, runID string, et EventType, payload canon.Map) {
	ev := RunEvent{
		EventID:     uint64(len(st.events)),
		EventType:   et,
		TimestampUS: st.elapsedUS,
		Payload:     payload,
	}
	digest, err := computeEventDigest(st.prevDigest, ev)
	if err != nil {
		// Encoding failure here means a non-canonicalizable payload was
		// constructed internally, an engine bug, not a caller error.
		digest = st.prevDigest
	}
	ev.Digest = digest
	st.prevDigest = digest
	st.events = append(st.events, ev)
	e.observer.OnEvent(runID, ev)
}

func computeEventDigest(prevDigest string, ev RunEvent) (string, error) {
	v := canon.Map{
		"event_id":     canon.Uint(ev.EventID),
		"event_type":   canon.Text(ev.EventType.String()),
		"timestamp_us": canon.Uint(ev.TimestampUS),
		"payload":      ev.Payload,
		"prev_digest":  canon.Text(prevDigest),
	}
	b, err := canon.Encode(v)
	if err != nil {
		return "", err
	}
	return canon.Digest(b), nil
}

func (e *Engine) finish(req ExecRequest, st *runState, status core.RunStatus, reason string) ExecResult {
	sortEventsForDigest(st.events)

	resultDigest := ""
	if len(st.events) > 0 {
		resultDigest = st.events[len(st.events)-1].Digest
	}

	metrics := ExecutionMetrics{
		StepsExecuted: uint32(countStepCompletions(st.events)),
		ElapsedUS:     fixedpoint.DurationUS(st.elapsedUS),
		BudgetSpent:   st.budgetSpent,
		Flags:         st.flags,
	}

	finalAction := "none"
	if len(st.events) > 0 {
		finalAction = st.events[len(st.events)-1].EventType.String()
	}

	return ExecResult{
		RunID:        req.RunID,
		Status:       status,
		Reason:       reason,
		ResultDigest: resultDigest,
		Events:       st.events,
		FinalAction:  finalAction,
		Metrics:      metrics,
		SessionID:    req.SessionID,
	}
}

// sortEventsForDigest enforces rule 5: event sequences feeding the digest
// are ordered by (timestamp_us, event_id) ascending, ties broken by
// event_id. The engine already appends in that order, but replayed logs
// (e.g. reordered by a non-ordering-preserving store) must be re-sorted
// before recomputing a digest.
func sortEventsForDigest(events []RunEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TimestampUS != events[j].TimestampUS {
			return events[i].TimestampUS < events[j].TimestampUS
		}
		return events[i].EventID < events[j].EventID
	})
}

func countStepCompletions(events []RunEvent) int {
	n := 0
	for _, ev := range events {
		if ev.EventType == EventStepCompleted {
			n++
		}
	}
	return n
}

func capabilitiesFromMetadata(metadata map[string]string) set.Set[string] {
	caps := set.NewSet[string](4)
	raw, ok := metadata["capabilities"]
	if !ok || raw == "" {
		return caps
	}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			caps.Add(name)
		}
	}
	return caps
}
