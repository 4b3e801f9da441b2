// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/rechain/frame"
)

func TestNextCorrelationIDSkipsZeroAndWraps(t *testing.T) {
	tbl := newPendingTable()
	first := tbl.nextCorrelationID()
	require.Equal(t, uint32(1), first)

	tbl.nextID = 0x7ffffffe
	id := tbl.nextCorrelationID()
	require.Equal(t, uint32(0x7fffffff), id)
	id = tbl.nextCorrelationID()
	require.Equal(t, uint32(1), id, "must skip 0 on wraparound")
}

func TestPendingTableResolve(t *testing.T) {
	tbl := newPendingTable()
	ch := tbl.register(7, MsgExecResult, time.Minute)

	ok := tbl.resolve(frame.Frame{CorrelationID: 7, MsgType: uint32(MsgExecResult)})
	require.True(t, ok)

	select {
	case res := <-ch:
		require.NoError(t, res.err)
		require.Equal(t, uint32(7), res.frame.CorrelationID)
	default:
		t.Fatal("expected resolved result")
	}
}

func TestPendingTableResolveUnknownID(t *testing.T) {
	tbl := newPendingTable()
	ok := tbl.resolve(frame.Frame{CorrelationID: 99})
	require.False(t, ok)
}

func TestPendingTableReject(t *testing.T) {
	tbl := newPendingTable()
	ch := tbl.register(3, MsgExecResult, time.Minute)

	sentinel := errors.New("boom")
	require.True(t, tbl.reject(3, sentinel))

	res := <-ch
	require.ErrorIs(t, res.err, sentinel)
}

func TestPendingTableDrain(t *testing.T) {
	tbl := newPendingTable()
	ch1 := tbl.register(1, MsgExecResult, time.Minute)
	ch2 := tbl.register(2, MsgExecResult, time.Minute)

	n := tbl.drain(ErrConnectionClosed)
	require.Equal(t, 2, n)

	require.ErrorIs(t, (<-ch1).err, ErrConnectionClosed)
	require.ErrorIs(t, (<-ch2).err, ErrConnectionClosed)
	require.Equal(t, 0, tbl.len())
}
