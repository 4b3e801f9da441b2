// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"fmt"

	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/config"
	"github.com/luxfi/rechain/core"
	"github.com/luxfi/rechain/fixedpoint"
)

// EncodeExecRequest renders req as canonical bytes, the payload carried
// by an MsgExecRequest frame on the wire.
func EncodeExecRequest(req ExecRequest) ([]byte, error) {
	wfVal, err := req.Workflow.canonValue()
	if err != nil {
		return nil, err
	}
	metadata := make(canon.Map, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = canon.Text(v)
	}
	v := canon.Map{
		"run_id":     canon.Text(req.RunID),
		"workflow":   wfVal,
		"controls":   encodeControls(req.Controls),
		"policy":     encodePolicy(req.Policy),
		"metadata":   metadata,
		"session_id": canon.Text(req.SessionID),
	}
	return canon.Encode(v)
}

// DecodeExecRequest reverses EncodeExecRequest.
func DecodeExecRequest(b []byte) (ExecRequest, error) {
	m, err := decodeTopMap(b)
	if err != nil {
		return ExecRequest{}, err
	}
	wf, err := decodeWorkflow(m["workflow"])
	if err != nil {
		return ExecRequest{}, err
	}
	ctrl, err := decodeControls(m["controls"])
	if err != nil {
		return ExecRequest{}, err
	}
	policy, err := decodePolicy(m["policy"])
	if err != nil {
		return ExecRequest{}, err
	}
	metadata := map[string]string{}
	if mm, ok := m["metadata"].(canon.Map); ok {
		for k, v := range mm {
			if t, ok := v.(canon.Text); ok {
				metadata[k] = string(t)
			}
		}
	}
	return ExecRequest{
		RunID:     textField(m, "run_id"),
		Workflow:  wf,
		Controls:  ctrl,
		Policy:    policy,
		Metadata:  metadata,
		SessionID: textField(m, "session_id"),
	}, nil
}

// EncodeExecResult renders res as canonical bytes, the payload carried
// by an MsgExecResult frame on the wire.
func EncodeExecResult(res ExecResult) ([]byte, error) {
	events := make(canon.Array, 0, len(res.Events))
	for _, ev := range res.Events {
		events = append(events, canon.Map{
			"event_id":     canon.Uint(ev.EventID),
			"event_type":   canon.Text(ev.EventType.String()),
			"timestamp_us": canon.Uint(ev.TimestampUS),
			"payload":      ev.Payload,
			"digest":       canon.Text(ev.Digest),
		})
	}
	buckets := make(canon.Array, 0, len(res.Metrics.LatencyHistogram))
	for _, hb := range res.Metrics.LatencyHistogram {
		buckets = append(buckets, canon.Map{
			"upper_bound_us": canon.Uint(uint64(hb.UpperBoundUS)),
			"count":          canon.Uint(hb.Count),
		})
	}
	v := canon.Map{
		"run_id":        canon.Text(res.RunID),
		"status":        canon.Text(res.Status.String()),
		"reason":        canon.Text(res.Reason),
		"result_digest": canon.Text(res.ResultDigest),
		"events":        events,
		"final_action":  canon.Text(res.FinalAction),
		"session_id":    canon.Text(res.SessionID),
		"metrics": canon.Map{
			"steps_executed":    canon.Uint(uint64(res.Metrics.StepsExecuted)),
			"elapsed_us":        canon.Uint(uint64(res.Metrics.ElapsedUS)),
			"budget_spent":      canon.Int(int64(res.Metrics.BudgetSpent)),
			"throughput":        canon.Uint(uint64(res.Metrics.Throughput)),
			"cas_hit_rate_ppm":  canon.Uint(uint64(res.Metrics.CASHitRate)),
			"latency_p50_us":    canon.Uint(uint64(res.Metrics.LatencyP50)),
			"latency_p95_us":    canon.Uint(uint64(res.Metrics.LatencyP95)),
			"latency_p99_us":    canon.Uint(uint64(res.Metrics.LatencyP99)),
			"latency_histogram": buckets,
			"overflow":          canon.Bool(res.Metrics.Flags.Overflow),
			"underflow":         canon.Bool(res.Metrics.Flags.Underflow),
		},
	}
	return canon.Encode(v)
}

// DecodeExecResult reverses EncodeExecResult.
func DecodeExecResult(b []byte) (ExecResult, error) {
	m, err := decodeTopMap(b)
	if err != nil {
		return ExecResult{}, err
	}
	events, err := decodeEvents(m["events"])
	if err != nil {
		return ExecResult{}, err
	}
	metrics := ExecutionMetrics{}
	if mm, ok := m["metrics"].(canon.Map); ok {
		metrics.StepsExecuted = uint32(uintField(mm, "steps_executed"))
		metrics.ElapsedUS = fixedpoint.DurationUS(uintField(mm, "elapsed_us"))
		if iv, ok := mm["budget_spent"].(canon.Int); ok {
			metrics.BudgetSpent = fixedpoint.Q32(iv)
		}
		metrics.Throughput = fixedpoint.Throughput(uintField(mm, "throughput"))
		metrics.CASHitRate = fixedpoint.PPM(uintField(mm, "cas_hit_rate_ppm"))
		metrics.LatencyP50 = fixedpoint.DurationUS(uintField(mm, "latency_p50_us"))
		metrics.LatencyP95 = fixedpoint.DurationUS(uintField(mm, "latency_p95_us"))
		metrics.LatencyP99 = fixedpoint.DurationUS(uintField(mm, "latency_p99_us"))
		if arr, ok := mm["latency_histogram"].(canon.Array); ok {
			for _, el := range arr {
				hm, ok := el.(canon.Map)
				if !ok {
					continue
				}
				metrics.LatencyHistogram = append(metrics.LatencyHistogram, HistogramBucket{
					UpperBoundUS: fixedpoint.DurationUS(uintField(hm, "upper_bound_us")),
					Count:        uintField(hm, "count"),
				})
			}
		}
		if b, ok := mm["overflow"].(canon.Bool); ok {
			metrics.Flags.Overflow = bool(b)
		}
		if b, ok := mm["underflow"].(canon.Bool); ok {
			metrics.Flags.Underflow = bool(b)
		}
	}
	return ExecResult{
		RunID:        textField(m, "run_id"),
		Status:       statusFromString(textField(m, "status")),
		Reason:       textField(m, "reason"),
		ResultDigest: textField(m, "result_digest"),
		Events:       events,
		FinalAction:  textField(m, "final_action"),
		Metrics:      metrics,
		SessionID:    textField(m, "session_id"),
	}, nil
}

func encodeControls(c config.ExecutionControls) canon.Map {
	return canon.Map{
		"max_steps":         canon.Uint(uint64(c.MaxSteps)),
		"step_timeout_us":    canon.Uint(uint64(c.StepTimeout)),
		"run_timeout_us":     canon.Uint(uint64(c.RunTimeout)),
		"budget_limit":       canon.Int(int64(c.BudgetLimit)),
		"min_step_interval_us": canon.Uint(uint64(c.MinStepInterval)),
	}
}

func decodeControls(v canon.Value) (config.ExecutionControls, error) {
	m, ok := v.(canon.Map)
	if !ok {
		return config.ExecutionControls{}, fmt.Errorf("engine: controls is not a map")
	}
	out := config.ExecutionControls{
		MaxSteps:        uint32(uintField(m, "max_steps")),
		StepTimeout:     fixedpoint.DurationUS(uintField(m, "step_timeout_us")),
		RunTimeout:      fixedpoint.DurationUS(uintField(m, "run_timeout_us")),
		MinStepInterval: fixedpoint.DurationUS(uintField(m, "min_step_interval_us")),
	}
	if iv, ok := m["budget_limit"].(canon.Int); ok {
		out.BudgetLimit = fixedpoint.Q32(iv)
	}
	return out, nil
}

func encodeCondition(c Condition) canon.Value {
	switch c.Kind {
	case CondCapability:
		return canon.Map{"kind": canon.Text("capability"), "name": canon.Text(c.Name)}
	case CondStepLimit:
		return canon.Map{"kind": canon.Text("step_limit"), "max_steps": canon.Uint(uint64(c.MaxSteps))}
	case CondBudgetLimit:
		return canon.Map{"kind": canon.Text("budget_limit"), "max_usd": canon.Int(int64(c.MaxUSD))}
	case CondToolAllowed:
		return canon.Map{"kind": canon.Text("tool_allowed"), "name": canon.Text(c.Name)}
	case CondAnd, CondOr:
		children := make(canon.Array, 0, len(c.Children))
		for _, ch := range c.Children {
			children = append(children, encodeCondition(ch))
		}
		name := "and"
		if c.Kind == CondOr {
			name = "or"
		}
		return canon.Map{"kind": canon.Text(name), "children": children}
	default:
		return canon.Map{"kind": canon.Text("unknown")}
	}
}

func decodeCondition(v canon.Value) (Condition, error) {
	m, ok := v.(canon.Map)
	if !ok {
		return Condition{}, fmt.Errorf("engine: condition is not a map")
	}
	switch textField(m, "kind") {
	case "capability":
		return Capability(textField(m, "name")), nil
	case "step_limit":
		return StepLimit(uint32(uintField(m, "max_steps"))), nil
	case "budget_limit":
		maxUSD := fixedpoint.Q32(0)
		if iv, ok := m["max_usd"].(canon.Int); ok {
			maxUSD = fixedpoint.Q32(iv)
		}
		return BudgetLimit(maxUSD), nil
	case "tool_allowed":
		return ToolAllowed(textField(m, "name")), nil
	case "and", "or":
		arr, _ := m["children"].(canon.Array)
		children := make([]Condition, 0, len(arr))
		for _, el := range arr {
			child, err := decodeCondition(el)
			if err != nil {
				return Condition{}, err
			}
			children = append(children, child)
		}
		if textField(m, "kind") == "and" {
			return And(children...), nil
		}
		return Or(children...), nil
	default:
		return Condition{}, fmt.Errorf("engine: unknown condition kind %q", textField(m, "kind"))
	}
}

func decisionFromString(s string) Decision {
	switch s {
	case "deny":
		return DecisionDeny
	case "prompt":
		return DecisionPrompt
	default:
		return DecisionAllow
	}
}

func encodePolicy(p Policy) canon.Map {
	rules := make(canon.Array, 0, len(p.Rules))
	for _, r := range p.Rules {
		rules = append(rules, canon.Map{
			"name":      canon.Text(r.Name),
			"condition": encodeCondition(r.Condition),
			"decision":  canon.Text(r.Decision.String()),
			"reason":    canon.Text(r.Reason),
		})
	}
	return canon.Map{
		"default_decision": canon.Text(p.DefaultDecision.String()),
		"default_reason":   canon.Text(p.DefaultReason),
		"rules":            rules,
	}
}

func decodePolicy(v canon.Value) (Policy, error) {
	m, ok := v.(canon.Map)
	if !ok {
		return Policy{}, fmt.Errorf("engine: policy is not a map")
	}
	arr, _ := m["rules"].(canon.Array)
	rules := make([]PolicyRule, 0, len(arr))
	for _, el := range arr {
		rm, ok := el.(canon.Map)
		if !ok {
			return Policy{}, fmt.Errorf("engine: policy rule is not a map")
		}
		cond, err := decodeCondition(rm["condition"])
		if err != nil {
			return Policy{}, err
		}
		rules = append(rules, PolicyRule{
			Name:      textField(rm, "name"),
			Condition: cond,
			Decision:  decisionFromString(textField(rm, "decision")),
			Reason:    textField(rm, "reason"),
		})
	}
	return Policy{
		DefaultDecision: decisionFromString(textField(m, "default_decision")),
		DefaultReason:   textField(m, "default_reason"),
		Rules:           rules,
	}, nil
}

func stepKindFromString(s string) StepKind {
	switch s {
	case "tool_call":
		return StepKindToolCall
	case "emit_artifact":
		return StepKindEmitArtifact
	case "decision":
		return StepKindDecision
	case "pause":
		return StepKindPause
	default:
		return StepKindUnknown
	}
}

func decodeWorkflow(v canon.Value) (Workflow, error) {
	m, ok := v.(canon.Map)
	if !ok {
		return Workflow{}, fmt.Errorf("engine: workflow is not a map")
	}
	arr, _ := m["steps"].(canon.Array)
	steps := make([]Step, 0, len(arr))
	for _, el := range arr {
		sm, ok := el.(canon.Map)
		if !ok {
			return Workflow{}, fmt.Errorf("engine: step is not a map")
		}
		cfg := map[string]string{}
		if cm, ok := sm["config"].(canon.Map); ok {
			for k, cv := range cm {
				if t, ok := cv.(canon.Text); ok {
					cfg[k] = string(t)
				}
			}
		}
		var deps []string
		if da, ok := sm["depends_on"].(canon.Array); ok {
			for _, dv := range da {
				if t, ok := dv.(canon.Text); ok {
					deps = append(deps, string(t))
				}
			}
		}
		cost := fixedpoint.Q32(0)
		if iv, ok := sm["cost_usd"].(canon.Int); ok {
			cost = fixedpoint.Q32(iv)
		}
		steps = append(steps, Step{
			ID:        textField(sm, "id"),
			Kind:      stepKindFromString(textField(sm, "kind")),
			Tool:      textField(sm, "tool"),
			Config:    cfg,
			DependsOn: deps,
			CostUSD:   cost,
		})
	}
	return Workflow{
		Name:    textField(m, "name"),
		Version: textField(m, "version"),
		Steps:   steps,
	}, nil
}

func decodeEvents(v canon.Value) ([]RunEvent, error) {
	arr, ok := v.(canon.Array)
	if !ok {
		return nil, nil
	}
	events := make([]RunEvent, 0, len(arr))
	for _, el := range arr {
		em, ok := el.(canon.Map)
		if !ok {
			return nil, fmt.Errorf("engine: event is not a map")
		}
		payload, _ := em["payload"].(canon.Map)
		events = append(events, RunEvent{
			EventID:     uintField(em, "event_id"),
			EventType:   eventTypeFromString(textField(em, "event_type")),
			TimestampUS: uintField(em, "timestamp_us"),
			Payload:     payload,
			Digest:      textField(em, "digest"),
		})
	}
	return events, nil
}

func statusFromString(s string) core.RunStatus {
	switch s {
	case "completed":
		return core.RunStatusCompleted
	case "paused":
		return core.RunStatusPaused
	case "cancelled":
		return core.RunStatusCancelled
	case "failed":
		return core.RunStatusFailed
	default:
		return core.RunStatusUnknown
	}
}

func decodeTopMap(b []byte) (canon.Map, error) {
	v, n, err := canon.Decode(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, fmt.Errorf("engine: trailing bytes after canonical value")
	}
	m, ok := v.(canon.Map)
	if !ok {
		return nil, fmt.Errorf("engine: expected top-level map")
	}
	return m, nil
}

func textField(m canon.Map, key string) string {
	if t, ok := m[key].(canon.Text); ok {
		return string(t)
	}
	return ""
}

func uintField(m canon.Map, key string) uint64 {
	if u, ok := m[key].(canon.Uint); ok {
		return uint64(u)
	}
	return 0
}
