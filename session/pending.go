// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"sync"
	"time"

	"github.com/luxfi/rechain/frame"
	nettimeout "github.com/luxfi/rechain/networking/timeout"
)

// pendingEntry is one in-flight request awaiting a response.
type pendingEntry struct {
	resolver     chan pendingResult
	expectedType MsgType
}

type pendingResult struct {
	frame frame.Frame
	err   error
}

// pendingTable maps correlation_id to in-flight requests. Access is
// mutex-protected; deadlines are tracked separately by a
// networking/timeout.Manager so the sweeper can reuse that bookkeeping
// without duplicating a second copy of the wall-clock state.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint32]pendingEntry
	nextID  uint32
	clock   nettimeout.Manager
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		entries: make(map[uint32]pendingEntry),
		clock:   nettimeout.NewManager(),
		nextID:  0,
	}
}

// nextCorrelationID returns the next 31-bit correlation ID, wrapping to 1
// and always skipping 0 (reserved for handshake/unsolicited frames).
func (t *pendingTable) nextCorrelationID() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID = (t.nextID + 1) & 0x7fffffff
	if t.nextID == 0 {
		t.nextID = 1
	}
	return t.nextID
}

// register adds a waiter for correlationID expecting expectedType,
// enforcing deadline after timeout elapses.
func (t *pendingTable) register(correlationID uint32, expectedType MsgType, timeout time.Duration) chan pendingResult {
	ch := make(chan pendingResult, 1)
	t.mu.Lock()
	t.entries[correlationID] = pendingEntry{resolver: ch, expectedType: expectedType}
	t.mu.Unlock()
	t.clock.RegisterRequest(correlationID, timeout)
	return ch
}

// resolve dispatches a response frame to its waiter, if any. It returns
// false if no waiter is registered for the frame's correlation ID (the
// caller should treat this as an unsolicited frame).
func (t *pendingTable) resolve(f frame.Frame) bool {
	t.mu.Lock()
	entry, ok := t.entries[f.CorrelationID]
	if ok {
		delete(t.entries, f.CorrelationID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.clock.RemoveRequest(f.CorrelationID)
	entry.resolver <- pendingResult{frame: f}
	return true
}

// reject fails a specific waiter with err, e.g. on a matching Error frame.
func (t *pendingTable) reject(correlationID uint32, err error) bool {
	t.mu.Lock()
	entry, ok := t.entries[correlationID]
	if ok {
		delete(t.entries, correlationID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.clock.RemoveRequest(correlationID)
	entry.resolver <- pendingResult{err: err}
	return true
}

// sweep rejects every waiter whose deadline has passed and returns the
// number swept. It also runs the defense-in-depth sweeper path: entries
// that somehow never got their deadline removed (e.g. a resolve/sweep
// race) are caught on the next tick.
func (t *pendingTable) sweep(now time.Time, deadlineErr error) int {
	expired := t.clock.Expired(now)
	n := 0
	for _, id := range expired {
		if t.reject(id, deadlineErr) {
			n++
		}
	}
	return n
}

// drain rejects every still-pending waiter with err, used on disconnect.
func (t *pendingTable) drain(err error) int {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[uint32]pendingEntry)
	t.mu.Unlock()

	for id, entry := range entries {
		t.clock.RemoveRequest(id)
		entry.resolver <- pendingResult{err: err}
	}
	return len(entries)
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
