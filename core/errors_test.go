// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeString(t *testing.T) {
	require.Equal(t, "InvalidMessage", InvalidMessage.String())
	require.Equal(t, "BudgetExceeded", BudgetExceeded.String())
	require.Equal(t, "InternalInvariant", InternalInvariant.String())
	require.Contains(t, ErrorCode(999).String(), "ErrorCode(999)")
}

func TestErrorCodeCategory(t *testing.T) {
	require.Equal(t, "protocol", InvalidMessage.Category())
	require.Equal(t, "execution", BudgetExceeded.Category())
	require.Equal(t, "system", InternalInvariant.Category())
	require.Equal(t, "unknown", ErrorCode(1).Category())
}

func TestCodeForError(t *testing.T) {
	code, ok := CodeForError(ErrBudgetExceeded)
	require.True(t, ok)
	require.Equal(t, BudgetExceeded, code)

	code, ok = CodeForError(fmt.Errorf("wrapped: %w", ErrWorkflowCyclic))
	require.True(t, ok)
	require.Equal(t, WorkflowCyclic, code)

	_, ok = CodeForError(errors.New("unrelated"))
	require.False(t, ok)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	require.False(t, errors.Is(ErrBudgetExceeded, ErrMaxStepsExceeded))
	require.True(t, errors.Is(ErrBudgetExceeded, ErrBudgetExceeded))
}
