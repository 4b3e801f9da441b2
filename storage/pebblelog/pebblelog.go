// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pebblelog implements engine.ReplayLog on top of a
// kvstore.Store, an ordered on-disk key-value seam. Keys are (run_id,
// event_id) pairs so that Load can range-scan a single run's events
// back out in storage order without a secondary index, mirroring how
// the teacher's storage layer keys consensus records by (height,
// index). Open wires pebble in as the production backend, the same
// role it plays (indirectly, behind github.com/luxfi/database) in the
// teacher's own stack.
package pebblelog

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/rechain/engine"
	"github.com/luxfi/rechain/storage/kvstore"
	"github.com/luxfi/rechain/storage/pebblekv"
)

// Log is a kvstore.Store-backed engine.ReplayLog. It is safe for
// concurrent use by multiple goroutines, as the underlying store is
// itself safe for concurrent reads and writes.
type Log struct {
	store kvstore.Store
}

// New wraps an already-open kvstore.Store as an engine.ReplayLog.
func New(store kvstore.Store) *Log {
	return &Log{store: store}
}

// Open opens (creating if necessary) a pebble database at dir and
// returns a Log backed by it.
func Open(dir string) (*Log, error) {
	store, err := pebblekv.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("pebblelog: %w", err)
	}
	return New(store), nil
}

// Close closes the underlying store.
func (l *Log) Close() error {
	return l.store.Close()
}

// key builds the ordered key (run_id || 0x00 || event_id-big-endian) so
// that a prefix iterator over runID yields events in event_id order.
func key(runID string, eventID uint64) []byte {
	k := make([]byte, len(runID)+1+8)
	copy(k, runID)
	k[len(runID)] = 0x00
	binary.BigEndian.PutUint64(k[len(runID)+1:], eventID)
	return k
}

// Append implements engine.ReplayLog.
func (l *Log) Append(runID string, ev engine.RunEvent) error {
	b, err := engine.EncodeRunEvent(ev)
	if err != nil {
		return err
	}
	return l.store.Put(key(runID, ev.EventID), b)
}

// Load implements engine.ReplayLog, range-scanning every key with
// prefix runID+0x00.
func (l *Log) Load(runID string) ([]engine.RunEvent, error) {
	lower := append([]byte(runID), 0x00)
	upper := append([]byte(runID), 0x01)
	iter, err := l.store.NewIterator(lower, upper)
	if err != nil {
		return nil, fmt.Errorf("pebblelog: new iterator: %w", err)
	}
	defer iter.Close()

	var events []engine.RunEvent
	for iter.Next() {
		ev, _, err := engine.DecodeRunEvent(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("pebblelog: decode entry for %s: %w", runID, err)
		}
		events = append(events, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebblelog: iterate %s: %w", runID, err)
	}
	return events, nil
}

var _ engine.ReplayLog = (*Log)(nil)
