// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"fmt"

	"github.com/luxfi/rechain/fixedpoint"
	"github.com/luxfi/rechain/utils/set"
)

// ConditionKind is the closed set of PolicyCondition variants.
type ConditionKind int

const (
	CondUnknown ConditionKind = iota
	CondCapability
	CondStepLimit
	CondBudgetLimit
	CondToolAllowed
	CondAnd
	CondOr
)

// maxConditionDepth bounds condition-tree recursion, matching the
// canonical codec's own recursion ceiling.
const maxConditionDepth = 32

// Condition is a node in a closed-variant condition tree. Only the
// fields relevant to Kind are read; the zero value of the others is
// ignored.
type Condition struct {
	Kind     ConditionKind
	Name     string         // capability(name) / tool_allowed(tool_name)
	MaxSteps uint32         // step_limit(max)
	MaxUSD   fixedpoint.Q32 // budget_limit(max_usd)
	Children []Condition    // and(conds...) / or(conds...)
}

// Capability builds a capability(name) condition.
func Capability(name string) Condition { return Condition{Kind: CondCapability, Name: name} }

// StepLimit builds a step_limit(max) condition.
func StepLimit(max uint32) Condition { return Condition{Kind: CondStepLimit, MaxSteps: max} }

// BudgetLimit builds a budget_limit(max_usd) condition.
func BudgetLimit(maxUSD fixedpoint.Q32) Condition {
	return Condition{Kind: CondBudgetLimit, MaxUSD: maxUSD}
}

// ToolAllowed builds a tool_allowed(tool_name) condition.
func ToolAllowed(tool string) Condition { return Condition{Kind: CondToolAllowed, Name: tool} }

// And builds an and(conds...) condition.
func And(conds ...Condition) Condition { return Condition{Kind: CondAnd, Children: conds} }

// Or builds an or(conds...) condition.
func Or(conds ...Condition) Condition { return Condition{Kind: CondOr, Children: conds} }

// EvalContext carries the run state a Condition is evaluated against.
type EvalContext struct {
	Capabilities  set.Set[string]
	StepsExecuted uint32
	BudgetSpent   fixedpoint.Q32
	Tool          string
}

// Eval evaluates c against ctx, returning its boolean result. It fails
// closed (returns an error) if the tree exceeds maxConditionDepth.
func (c Condition) Eval(ctx EvalContext) (bool, error) {
	return c.eval(ctx, 0)
}

func (c Condition) eval(ctx EvalContext, depth int) (bool, error) {
	if depth > maxConditionDepth {
		return false, fmt.Errorf("engine: condition tree exceeds depth %d", maxConditionDepth)
	}
	switch c.Kind {
	case CondCapability:
		return ctx.Capabilities.Contains(c.Name), nil
	case CondStepLimit:
		return ctx.StepsExecuted <= c.MaxSteps, nil
	case CondBudgetLimit:
		return ctx.BudgetSpent.Cmp(c.MaxUSD) <= 0, nil
	case CondToolAllowed:
		return ctx.Tool == c.Name, nil
	case CondAnd:
		for _, child := range c.Children {
			ok, err := child.eval(ctx, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case CondOr:
		for _, child := range c.Children {
			ok, err := child.eval(ctx, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("engine: unknown condition kind %d", c.Kind)
	}
}

// Decision is the closed set of policy outcomes.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionDeny
	DecisionPrompt
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	case DecisionPrompt:
		return "prompt"
	default:
		return "unknown"
	}
}

// PolicyRule is one ordered entry in a Policy's rule list.
type PolicyRule struct {
	Name      string
	Condition Condition
	Decision  Decision
	Reason    string
}

// Policy is an ordered set of rules plus the decision applied when none
// of them match.
type Policy struct {
	DefaultDecision Decision
	DefaultReason   string
	Rules           []PolicyRule
}

// Evaluate walks Rules in order and returns the first match's decision
// and reason, or DefaultDecision/DefaultReason if none match.
func (p Policy) Evaluate(ctx EvalContext) (Decision, string, string, error) {
	for _, rule := range p.Rules {
		matched, err := rule.Condition.Eval(ctx)
		if err != nil {
			return DecisionDeny, "", rule.Name, err
		}
		if matched {
			return rule.Decision, rule.Reason, rule.Name, nil
		}
	}
	return p.DefaultDecision, p.DefaultReason, "", nil
}
