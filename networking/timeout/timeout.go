// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package timeout tracks per-request deadlines for the protocol session's
// pending-request table, independent of the table's resolver/expected-type
// bookkeeping.
package timeout

import (
	"sync"
	"time"
)

// Manager tracks request deadlines keyed by correlation_id.
type Manager interface {
	// RegisterRequest records that requestID must be resolved within
	// timeout, starting now.
	RegisterRequest(requestID uint32, timeout time.Duration)

	// RemoveRequest stops tracking requestID, typically because it was
	// resolved or explicitly cancelled.
	RemoveRequest(requestID uint32)

	// Expired returns every requestID whose deadline has passed as of
	// now, removing them from the tracked set. Called by the session
	// sweeper.
	Expired(now time.Time) []uint32
}

type deadlineManager struct {
	mu        sync.Mutex
	deadlines map[uint32]time.Time
	clock     func() time.Time
}

// NewManager returns a Manager backed by the real wall clock.
func NewManager() Manager {
	return &deadlineManager{
		deadlines: make(map[uint32]time.Time),
		clock:     time.Now,
	}
}

// NewManagerWithClock returns a Manager driven by an injected clock, for
// deterministic tests.
func NewManagerWithClock(clock func() time.Time) Manager {
	return &deadlineManager{
		deadlines: make(map[uint32]time.Time),
		clock:     clock,
	}
}

func (m *deadlineManager) RegisterRequest(requestID uint32, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[requestID] = m.clock().Add(timeout)
}

func (m *deadlineManager) RemoveRequest(requestID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, requestID)
}

func (m *deadlineManager) Expired(now time.Time) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint32
	for id, deadline := range m.deadlines {
		if now.After(deadline) {
			ids = append(ids, id)
			delete(m.deadlines, id)
		}
	}
	return ids
}
