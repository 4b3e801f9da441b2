// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebblekv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/rechain/storage/kvstore"
)

func TestStoreGetPutHas(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Has([]byte("a"))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Get([]byte("a"))
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	ok, err = s.Has([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}

func TestStoreIteratorRange(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put([]byte("run-a\x0000000000"), []byte("0")))
	require.NoError(t, s.Put([]byte("run-a\x0000000001"), []byte("1")))
	require.NoError(t, s.Put([]byte("run-b\x0000000000"), []byte("2")))

	iter, err := s.NewIterator([]byte("run-a\x00"), []byte("run-a\x01"))
	require.NoError(t, err)
	defer iter.Close()

	var got []string
	for iter.Next() {
		got = append(got, string(iter.Value()))
	}
	require.NoError(t, iter.Error())
	require.Equal(t, []string{"0", "1"}, got)
}

var _ kvstore.Store = (*Store)(nil)
