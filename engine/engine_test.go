// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/config"
	"github.com/luxfi/rechain/core"
	"github.com/luxfi/rechain/fixedpoint"
)

func allowAllPolicy() Policy {
	return Policy{DefaultDecision: DecisionAllow}
}

// S1 — empty workflow.
func TestEngineEmptyWorkflow(t *testing.T) {
	e := New(1, nil, nil, nil)
	req := ExecRequest{
		RunID:    "run-empty",
		Workflow: Workflow{Name: "empty", Version: "1.0"},
		Controls: config.DefaultExecutionControls(),
		Policy:   allowAllPolicy(),
	}

	var digests []string
	for i := 0; i < 5; i++ {
		res, err := e.Execute(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, core.RunStatusCompleted, res.Status)
		require.Len(t, res.Events, 2)
		require.Equal(t, EventRunStarted, res.Events[0].EventType)
		require.Equal(t, EventRunCompleted, res.Events[1].EventType)
		digests = append(digests, res.ResultDigest)
		e = New(1, nil, nil, nil) // fresh registry so run_id can repeat
	}
	for _, d := range digests {
		require.Equal(t, digests[0], d)
	}
}

// S2 — cycle rejection.
func TestEngineCycleRejection(t *testing.T) {
	e := New(1, nil, nil, nil)
	wf := Workflow{
		Name:    "cyclic",
		Version: "1.0",
		Steps: []Step{
			{ID: "a", Kind: StepKindToolCall, DependsOn: []string{"b"}},
			{ID: "b", Kind: StepKindToolCall, DependsOn: []string{"a"}},
		},
	}
	req := ExecRequest{
		RunID:    "run-cycle",
		Workflow: wf,
		Controls: config.DefaultExecutionControls(),
		Policy:   allowAllPolicy(),
	}
	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, core.RunStatusFailed, res.Status)
	for _, ev := range res.Events {
		require.NotEqual(t, EventStepStarted, ev.EventType)
	}
}

// S3 — budget breach.
func TestEngineBudgetBreach(t *testing.T) {
	e := New(1, nil, nil, nil)
	wf := Workflow{
		Name:    "budget",
		Version: "1.0",
		Steps: []Step{
			{ID: "a", Kind: StepKindToolCall, Tool: "net.send", CostUSD: fixedpoint.NewQ32FromInt(2)},
		},
	}
	req := ExecRequest{
		RunID:    "run-budget",
		Workflow: wf,
		Controls: config.ExecutionControls{BudgetLimit: fixedpoint.NewQ32FromInt(1)},
		Policy:   allowAllPolicy(),
	}
	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, core.RunStatusFailed, res.Status)
	require.Equal(t, EventRunStarted, res.Events[0].EventType)
	require.Equal(t, EventRunFailed, res.Events[len(res.Events)-1].EventType)
}

// S4 — policy deny.
func TestEnginePolicyDeny(t *testing.T) {
	e := New(1, nil, nil, nil)
	wf := Workflow{
		Name:    "deny",
		Version: "1.0",
		Steps: []Step{
			{ID: "a", Kind: StepKindToolCall, Tool: "net.send"},
		},
	}
	policy := Policy{
		DefaultDecision: DecisionAllow,
		Rules: []PolicyRule{
			{Name: "no-net", Condition: ToolAllowed("net.send"), Decision: DecisionDeny, Reason: "disallowed"},
		},
	}
	req := ExecRequest{
		RunID:    "run-deny",
		Workflow: wf,
		Controls: config.DefaultExecutionControls(),
		Policy:   policy,
	}
	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, core.RunStatusFailed, res.Status)

	var found bool
	for _, ev := range res.Events {
		if ev.EventType == EventPolicyDenied {
			found = true
			reason, ok := ev.Payload["reason"].(canon.Text)
			require.True(t, ok)
			require.Equal(t, "disallowed", string(reason))
		}
	}
	require.True(t, found)
}

func TestEngineControlMonotonicity(t *testing.T) {
	wf := Workflow{
		Name:    "mono",
		Version: "1.0",
		Steps: []Step{
			{ID: "a", Kind: StepKindToolCall},
			{ID: "b", Kind: StepKindToolCall, DependsOn: []string{"a"}},
			{ID: "c", Kind: StepKindToolCall, DependsOn: []string{"b"}},
		},
	}

	run := func(maxSteps uint32) core.RunStatus {
		e := New(1, nil, nil, nil)
		req := ExecRequest{
			RunID:    "run-mono",
			Workflow: wf,
			Controls: config.ExecutionControls{MaxSteps: maxSteps},
			Policy:   allowAllPolicy(),
		}
		res, err := e.Execute(context.Background(), req)
		require.NoError(t, err)
		return res.Status
	}

	require.Equal(t, core.RunStatusCompleted, run(3))
	require.Equal(t, core.RunStatusFailed, run(1))
}

func TestWorkflowIDStable(t *testing.T) {
	wf := Workflow{Name: "wf", Version: "1.0", Steps: []Step{{ID: "a", Kind: StepKindToolCall}}}
	id1, err := wf.WorkflowID()
	require.NoError(t, err)
	id2, err := wf.WorkflowID()
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestReplayMatchesExecute(t *testing.T) {
	e := New(1, nil, nil, nil)
	wf := Workflow{
		Name:    "replay",
		Version: "1.0",
		Steps: []Step{
			{ID: "a", Kind: StepKindToolCall},
			{ID: "b", Kind: StepKindToolCall, DependsOn: []string{"a"}},
		},
	}
	req := ExecRequest{
		RunID:    "run-replay",
		Workflow: wf,
		Controls: config.DefaultExecutionControls(),
		Policy:   allowAllPolicy(),
	}
	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, VerifyReplay(res.Events, res.ResultDigest))

	tampered := append([]RunEvent(nil), res.Events...)
	tampered[0].Payload = canon.Map{"tampered": canon.Bool(true)}
	require.Error(t, VerifyReplay(tampered, res.ResultDigest))
}

func TestExecRequestResultWireRoundTrip(t *testing.T) {
	wf := Workflow{
		Name:    "wire",
		Version: "1.0",
		Steps: []Step{
			{ID: "a", Kind: StepKindToolCall, Tool: "net.send", CostUSD: fixedpoint.NewQ32FromInt(1)},
		},
	}
	policy := Policy{
		DefaultDecision: DecisionDeny,
		DefaultReason:   "closed",
		Rules: []PolicyRule{
			{Name: "allow-net", Condition: And(ToolAllowed("net.send"), StepLimit(5)), Decision: DecisionAllow},
		},
	}
	req := ExecRequest{
		RunID:     "run-wire",
		Workflow:  wf,
		Controls:  config.DefaultExecutionControls(),
		Policy:    policy,
		Metadata:  map[string]string{"capabilities": "net"},
		SessionID: "sess-1",
	}

	b, err := EncodeExecRequest(req)
	require.NoError(t, err)
	got, err := DecodeExecRequest(b)
	require.NoError(t, err)
	require.Equal(t, req.RunID, got.RunID)
	require.Equal(t, req.Workflow.Steps[0].ID, got.Workflow.Steps[0].ID)
	require.Equal(t, req.Policy.DefaultReason, got.Policy.DefaultReason)
	require.Equal(t, req.Policy.Rules[0].Condition.Kind, got.Policy.Rules[0].Condition.Kind)

	e := New(1, nil, nil, nil)
	res, err := e.Execute(context.Background(), got)
	require.NoError(t, err)

	rb, err := EncodeExecResult(res)
	require.NoError(t, err)
	gotRes, err := DecodeExecResult(rb)
	require.NoError(t, err)
	require.Equal(t, res.ResultDigest, gotRes.ResultDigest)
	require.Equal(t, res.Status, gotRes.Status)
	require.Len(t, gotRes.Events, len(res.Events))
}
