// Copyright (C) 2019-2024, Lux Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of error codes carried in an Error frame's
// envelope. Values are fixed by the wire contract and grouped into three
// numeric ranges by category.
type ErrorCode int

const (
	// Protocol errors (100-199).
	InvalidMessage    ErrorCode = 100
	UnsupportedVer    ErrorCode = 101
	EncodingError     ErrorCode = 102
	CrcMismatchCode   ErrorCode = 103
	PayloadTooLarge   ErrorCode = 104
	UnknownMsgType    ErrorCode = 105
	BufferOverflowErr ErrorCode = 106

	// Execution errors (200-299).
	ExecutionFailed        ErrorCode = 200
	BudgetExceeded         ErrorCode = 201
	StepTimeoutExceeded    ErrorCode = 202
	RunTimeoutExceeded     ErrorCode = 203
	MaxStepsExceeded       ErrorCode = 204
	PolicyDenied           ErrorCode = 205
	WorkflowCyclic         ErrorCode = 206
	FloatingPointForbidden ErrorCode = 207
	InvalidRunID           ErrorCode = 208

	// System errors (300-399).
	InternalInvariant  ErrorCode = 300
	ResourceExhausted  ErrorCode = 301
	ServiceUnavailable ErrorCode = 302
)

// String returns the error code's fixed name.
func (c ErrorCode) String() string {
	switch c {
	case InvalidMessage:
		return "InvalidMessage"
	case UnsupportedVer:
		return "UnsupportedVersion"
	case EncodingError:
		return "EncodingError"
	case CrcMismatchCode:
		return "CrcMismatch"
	case PayloadTooLarge:
		return "PayloadTooLarge"
	case UnknownMsgType:
		return "UnknownMsgType"
	case BufferOverflowErr:
		return "BufferOverflow"
	case ExecutionFailed:
		return "ExecutionFailed"
	case BudgetExceeded:
		return "BudgetExceeded"
	case StepTimeoutExceeded:
		return "StepTimeoutExceeded"
	case RunTimeoutExceeded:
		return "RunTimeoutExceeded"
	case MaxStepsExceeded:
		return "MaxStepsExceeded"
	case PolicyDenied:
		return "PolicyDenied"
	case WorkflowCyclic:
		return "WorkflowCyclic"
	case FloatingPointForbidden:
		return "FloatingPointForbidden"
	case InvalidRunID:
		return "InvalidRunId"
	case InternalInvariant:
		return "InternalInvariant"
	case ResourceExhausted:
		return "ResourceExhausted"
	case ServiceUnavailable:
		return "ServiceUnavailable"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Category reports which of the three numeric ranges c falls into.
func (c ErrorCode) Category() string {
	switch {
	case c >= 100 && c < 200:
		return "protocol"
	case c >= 200 && c < 300:
		return "execution"
	case c >= 300 && c < 400:
		return "system"
	default:
		return "unknown"
	}
}

// Sentinel errors used internally by the engine and session packages, kept
// distinct from the wire-level ErrorCode so Go callers can errors.Is against
// them directly.
var (
	ErrNotRunning    = errors.New("rechain: engine not running")
	ErrNotFound      = errors.New("rechain: run not found")
	ErrAlreadyExists = errors.New("rechain: run already exists")

	// Control-breach and policy sentinels, one per execution ErrorCode
	// that the engine can raise mid-run.
	ErrWorkflowCyclic         = errors.New("rechain: workflow dependency graph contains a cycle")
	ErrMaxStepsExceeded       = errors.New("rechain: max_steps control exceeded")
	ErrRunTimeoutExceeded     = errors.New("rechain: run_timeout control exceeded")
	ErrStepTimeoutExceeded    = errors.New("rechain: step_timeout control exceeded")
	ErrBudgetExceeded         = errors.New("rechain: budget_limit control exceeded")
	ErrPolicyDenied           = errors.New("rechain: policy denied")
	ErrFloatingPointForbidden = errors.New("rechain: floating point value in digest-eligible position")
	ErrInvalidRunID           = errors.New("rechain: run_id is malformed")
	ErrInternalInvariant      = errors.New("rechain: internal invariant violated")
	ErrResourceExhausted      = errors.New("rechain: worker pool exhausted")
)

// CodeForError maps a sentinel error to its wire-contract ErrorCode. It
// returns (0, false) for errors that have no fixed code, e.g. ad hoc
// wrapped errors from a tool implementation.
func CodeForError(err error) (ErrorCode, bool) {
	switch {
	case errors.Is(err, ErrWorkflowCyclic):
		return WorkflowCyclic, true
	case errors.Is(err, ErrMaxStepsExceeded):
		return MaxStepsExceeded, true
	case errors.Is(err, ErrRunTimeoutExceeded):
		return RunTimeoutExceeded, true
	case errors.Is(err, ErrStepTimeoutExceeded):
		return StepTimeoutExceeded, true
	case errors.Is(err, ErrBudgetExceeded):
		return BudgetExceeded, true
	case errors.Is(err, ErrPolicyDenied):
		return PolicyDenied, true
	case errors.Is(err, ErrFloatingPointForbidden):
		return FloatingPointForbidden, true
	case errors.Is(err, ErrInvalidRunID):
		return InvalidRunID, true
	case errors.Is(err, ErrInternalInvariant):
		return InternalInvariant, true
	case errors.Is(err, ErrResourceExhausted):
		return ResourceExhausted, true
	default:
		return 0, false
	}
}
