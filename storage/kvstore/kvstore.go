// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kvstore defines the ordered key-value store seam that
// storage/pebblelog programs against, rather than reaching into a
// specific engine directly. It is modeled on the teacher's
// github.com/luxfi/database.Database interface (as consumed by
// core/interfaces.SharedMemory and chains/atomic.Memory): a small
// Get/Put/Has/iterator surface that lets the storage engine underneath
// a replay log be swapped without touching engine.ReplayLog callers.
package kvstore

import "errors"

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("kvstore: not found")

// Store is an ordered byte-key-value store with range iteration.
type Store interface {
	// Get returns the value for key, or ErrNotFound if it is absent.
	Get(key []byte) ([]byte, error)
	// Put writes key to value, overwriting any existing entry.
	Put(key, value []byte) error
	// Has reports whether key is present.
	Has(key []byte) (bool, error)
	// NewIterator returns an Iterator over [lowerBound, upperBound).
	NewIterator(lowerBound, upperBound []byte) (Iterator, error)
	// Close releases the store's underlying resources.
	Close() error
}

// Iterator ranges over a Store's keys in ascending order.
type Iterator interface {
	// Next advances to the next key, returning false when exhausted or
	// on error; callers must check Error after Next returns false.
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}
