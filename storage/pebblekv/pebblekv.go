// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pebblekv adapts github.com/cockroachdb/pebble to the
// kvstore.Store interface: the production backend behind
// storage/pebblelog's replay log, in the same role pebble plays
// (indirectly, behind github.com/luxfi/database) in the teacher's own
// storage stack.
package pebblekv

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/luxfi/rechain/storage/kvstore"
)

// Store wraps a *pebble.DB behind kvstore.Store.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebblekv: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

func (s *Store) Has(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (s *Store) NewIterator(lowerBound, upperBound []byte) (kvstore.Iterator, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	if err != nil {
		return nil, err
	}
	return &iterator{iter: iter}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type iterator struct {
	iter    *pebble.Iterator
	started bool
}

func (it *iterator) Next() bool {
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *iterator) Key() []byte   { return it.iter.Key() }
func (it *iterator) Value() []byte { return it.iter.Value() }
func (it *iterator) Error() error  { return it.iter.Error() }
func (it *iterator) Close() error  { return it.iter.Close() }

var _ kvstore.Store = (*Store)(nil)
