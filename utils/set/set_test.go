// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAddContains(t *testing.T) {
	s := NewSet[string](2)
	require.False(t, s.Contains("read"))

	s.Add("read", "write")
	require.True(t, s.Contains("read"))
	require.True(t, s.Contains("write"))
	require.False(t, s.Contains("admin"))
}

func TestSetZeroValue(t *testing.T) {
	var s Set[string]
	require.False(t, s.Contains("read"))

	s.Add("read")
	require.True(t, s.Contains("read"))
}
