// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"

	"github.com/luxfi/log"
)

// ValidationMode determines how strict validation should be.
type ValidationMode int

const (
	// StrictMode adds warnings (not errors) for unbounded controls and an
	// unusually long handshake timeout on top of the hard-limit checks.
	StrictMode ValidationMode = iota
	// SoftMode runs the same hard-limit checks without those warnings.
	SoftMode
)

// ValidationError contains detailed validation error information.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
	Severity   string // "error" or "warning"
	Suggestion string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v violates constraint: %s", ve.Severity, ve.Field, ve.Value, ve.Constraint)
}

// ValidationResult contains all validation errors and warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

// Validator validates daemon and execution configurations.
type Validator struct {
	mode ValidationMode
}

// NewValidator creates a validator with strict mode by default.
func NewValidator() *Validator {
	return &Validator{mode: StrictMode}
}

// WithMode sets the validation mode.
func (v *Validator) WithMode(mode ValidationMode) *Validator {
	v.mode = mode
	return v
}

// ValidateControls performs comprehensive validation of ExecutionControls.
func (v *Validator) ValidateControls(ec ExecutionControls) error {
	result := v.ValidateControlsDetailed(ec)
	if !result.Valid {
		return fmt.Errorf("validation failed:\n%s", joinErrors(result.Errors))
	}
	return nil
}

// ValidateControlsDetailed returns detailed validation results for ec.
func (v *Validator) ValidateControlsDetailed(ec ExecutionControls) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if ec.BudgetLimit < 0 {
		v.addError(result, "BudgetLimit", ec.BudgetLimit, "must be non-negative", "set BudgetLimit >= 0")
	}

	if ec.MaxSteps == 0 && v.mode == StrictMode {
		v.addWarning(result, "MaxSteps", ec.MaxSteps, "unbounded step count", "consider a finite MaxSteps in production")
	}

	if ec.RunTimeout == 0 && v.mode == StrictMode {
		v.addWarning(result, "RunTimeout", ec.RunTimeout, "unbounded run timeout", "consider a finite RunTimeout in production")
	}

	if ec.StepTimeout != 0 && ec.RunTimeout != 0 && uint64(ec.StepTimeout) > uint64(ec.RunTimeout) {
		v.addError(result, "StepTimeout", ec.StepTimeout,
			fmt.Sprintf("cannot exceed RunTimeout (%d us)", ec.RunTimeout),
			fmt.Sprintf("set StepTimeout <= %d", ec.RunTimeout))
	}

	return result
}

// ValidateDaemon performs comprehensive validation of a DaemonConfig.
func (v *Validator) ValidateDaemon(cfg DaemonConfig) error {
	result := v.ValidateDaemonDetailed(cfg)
	if !result.Valid {
		return fmt.Errorf("validation failed:\n%s", joinErrors(result.Errors))
	}
	return nil
}

// ValidateDaemonDetailed returns detailed validation results for cfg.
func (v *Validator) ValidateDaemonDetailed(cfg DaemonConfig) *ValidationResult {
	result := &ValidationResult{Valid: true}

	hasSocket := cfg.SocketPath != ""
	hasTCP := cfg.TCPAddr != ""
	switch {
	case !hasSocket && !hasTCP:
		v.addError(result, "Transport", nil, "exactly one of SocketPath or TCPAddr must be set", "set TCPAddr or SocketPath")
	case hasSocket && hasTCP:
		v.addError(result, "Transport", nil, "SocketPath and TCPAddr are mutually exclusive", "clear one of the two")
	}

	if cfg.MaxPayloadBytes == 0 {
		v.addError(result, "MaxPayloadBytes", cfg.MaxPayloadBytes, "must be > 0", "set MaxPayloadBytes > 0")
	} else if cfg.MaxPayloadBytes > DefaultMaxPayloadBytes {
		v.addError(result, "MaxPayloadBytes", cfg.MaxPayloadBytes,
			fmt.Sprintf("exceeds wire contract ceiling (%d)", DefaultMaxPayloadBytes),
			fmt.Sprintf("set MaxPayloadBytes <= %d", DefaultMaxPayloadBytes))
	}

	if cfg.WorkerPoolSize < 1 || cfg.WorkerPoolSize > MaxWorkerPoolSize {
		v.addError(result, "WorkerPoolSize", cfg.WorkerPoolSize,
			fmt.Sprintf("must be in [1, %d]", MaxWorkerPoolSize),
			fmt.Sprintf("set WorkerPoolSize between 1 and %d", MaxWorkerPoolSize))
	}

	if cfg.ReplayLogPath == "" {
		v.addError(result, "ReplayLogPath", cfg.ReplayLogPath, "must not be empty", "set a replay log path")
	}

	if cfg.HandshakeTimeout <= 0 {
		v.addError(result, "HandshakeTimeout", cfg.HandshakeTimeout, "must be positive", "set HandshakeTimeout > 0")
	} else if cfg.HandshakeTimeout > DefaultHandshakeTimeout*4 && v.mode == StrictMode {
		log.Warn("high handshake timeout detected: slow clients may starve the worker pool",
			"timeout", cfg.HandshakeTimeout)
		v.addWarning(result, "HandshakeTimeout", cfg.HandshakeTimeout,
			"much higher than the recommended default", "consider a timeout closer to 5s")
	}

	return result
}

func (v *Validator) addError(result *ValidationResult, field string, value interface{},
	constraint string, suggestion string,
) {
	result.Errors = append(result.Errors, ValidationError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
		Severity:   "error",
		Suggestion: suggestion,
	})
	result.Valid = false
}

func (v *Validator) addWarning(result *ValidationResult, field string, value interface{},
	constraint string, suggestion string,
) {
	result.Warnings = append(result.Warnings, ValidationError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
		Severity:   "warning",
		Suggestion: suggestion,
	})
}

func joinErrors(errs []ValidationError) string {
	strs := make([]string, 0, len(errs))
	for _, e := range errs {
		strs = append(strs, e.Error())
	}
	return strings.Join(strs, "\n")
}

// ValidateForProduction performs strict validation of both the daemon
// transport config and its default execution controls, matching the
// teacher's ValidateForProduction entry point.
func ValidateForProduction(cfg DaemonConfig, controls ExecutionControls) error {
	validator := NewValidator().WithMode(StrictMode)

	daemonResult := validator.ValidateDaemonDetailed(cfg)
	controlsResult := validator.ValidateControlsDetailed(controls)

	if !daemonResult.Valid || !controlsResult.Valid {
		var errs []ValidationError
		errs = append(errs, daemonResult.Errors...)
		errs = append(errs, controlsResult.Errors...)
		return fmt.Errorf("validation failed:\n%s", joinErrors(errs))
	}
	return nil
}
