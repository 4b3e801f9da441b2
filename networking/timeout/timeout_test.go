// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timeout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagerExpired(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	m := NewManagerWithClock(clock)

	m.RegisterRequest(1, 10*time.Millisecond)
	m.RegisterRequest(2, 100*time.Millisecond)

	require.Empty(t, m.Expired(now))

	now = now.Add(20 * time.Millisecond)
	expired := m.Expired(now)
	require.ElementsMatch(t, []uint32{1}, expired)

	now = now.Add(200 * time.Millisecond)
	expired = m.Expired(now)
	require.ElementsMatch(t, []uint32{2}, expired)
}

func TestManagerRemoveRequest(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	m := NewManagerWithClock(clock)

	m.RegisterRequest(5, 10*time.Millisecond)
	m.RemoveRequest(5)

	now = now.Add(time.Second)
	require.Empty(t, m.Expired(now))
}

func TestNewManagerUsesRealClock(t *testing.T) {
	m := NewManager()
	m.RegisterRequest(1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	expired := m.Expired(time.Now())
	require.Contains(t, expired, uint32(1))
}
