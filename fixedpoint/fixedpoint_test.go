// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQ32Add(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Q32
		want      Q32
		overflow  bool
		underflow bool
	}{
		{"normal", NewQ32FromInt(1), NewQ32FromInt(2), NewQ32FromInt(3), false, false},
		{"zero", 0, 0, 0, false, false},
		{"overflow", maxQ32, NewQ32FromInt(1), maxQ32, true, false},
		{"underflow", minQ32, NewQ32FromInt(-1), minQ32, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags StickyFlags
			got := tt.a.Add(tt.b, &flags)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.overflow, flags.Overflow)
			require.Equal(t, tt.underflow, flags.Underflow)
		})
	}
}

func TestQ32Sub(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Q32
		want     Q32
		overflow bool
	}{
		{"normal", NewQ32FromInt(5), NewQ32FromInt(2), NewQ32FromInt(3), false},
		{"zero", 0, 0, 0, false},
		{"negative result", NewQ32FromInt(2), NewQ32FromInt(5), NewQ32FromInt(-3), false},
		{"subtract minQ32 from positive", NewQ32FromInt(1), minQ32, maxQ32, true},
		{"subtract minQ32 from zero", Q32(0), minQ32, maxQ32, true},
		{"subtract minQ32 from negative", NewQ32FromInt(-1), minQ32, maxQ32 - NewQ32FromInt(1) + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags StickyFlags
			got := tt.a.Sub(tt.b, &flags)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.overflow, flags.Overflow)
		})
	}
}

func TestQ32Mul(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Q32
		want     Q32
		overflow bool
	}{
		{"identity", NewQ32FromInt(1), NewQ32FromInt(7), NewQ32FromInt(7), false},
		{"two times three", NewQ32FromInt(2), NewQ32FromInt(3), NewQ32FromInt(6), false},
		{"negative", NewQ32FromInt(-2), NewQ32FromInt(3), NewQ32FromInt(-6), false},
		{"both negative", NewQ32FromInt(-2), NewQ32FromInt(-3), NewQ32FromInt(6), false},
		{"overflow", maxQ32, NewQ32FromInt(2), maxQ32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags StickyFlags
			got := tt.a.Mul(tt.b, &flags)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.overflow, flags.Overflow)
		})
	}
}

func TestQ32FromFloat(t *testing.T) {
	t.Run("rejects NaN", func(t *testing.T) {
		_, err := Q32FromFloat(math.NaN())
		require.Error(t, err)
	})

	t.Run("rejects infinity", func(t *testing.T) {
		_, err := Q32FromFloat(math.Inf(1))
		require.Error(t, err)
		_, err = Q32FromFloat(math.Inf(-1))
		require.Error(t, err)
	})

	t.Run("round-trips a whole number", func(t *testing.T) {
		q, err := Q32FromFloat(42.0)
		require.NoError(t, err)
		require.Equal(t, int64(42), q.Int())
	})
}

func TestAddBP(t *testing.T) {
	tests := []struct {
		name     string
		a, b     BasisPoints
		want     BasisPoints
		overflow bool
	}{
		{"normal", 100, 200, 300, false},
		{"saturates at max", maxBasisPoints, 1, maxBasisPoints, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags StickyFlags
			got := AddBP(tt.a, tt.b, &flags)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.overflow, flags.Overflow)
		})
	}
}

func TestSubDurationUS(t *testing.T) {
	tests := []struct {
		name      string
		a, b      DurationUS
		want      DurationUS
		underflow bool
	}{
		{"normal", 300, 100, 200, false},
		{"equal", 100, 100, 0, false},
		{"saturates at zero", 10, 20, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags StickyFlags
			got := SubDurationUS(tt.a, tt.b, &flags)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.underflow, flags.Underflow)
		})
	}
}

func TestQ32String(t *testing.T) {
	require.Equal(t, "3", NewQ32FromInt(3).String())
	require.Equal(t, "-3", NewQ32FromInt(-3).String())
	require.Equal(t, "0", Q32(0).String())
}
