// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebblelog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/engine"
)

func TestLogAppendLoadOrder(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	events := []engine.RunEvent{
		{EventID: 0, EventType: engine.EventRunStarted, TimestampUS: 0, Payload: canon.Map{}},
		{EventID: 1, EventType: engine.EventStepStarted, TimestampUS: 10, Payload: canon.Map{"step_id": canon.Text("a")}},
		{EventID: 2, EventType: engine.EventRunCompleted, TimestampUS: 20, Payload: canon.Map{}},
	}
	for _, ev := range events {
		require.NoError(t, l.Append("run-a", ev))
	}
	require.NoError(t, l.Append("run-b", engine.RunEvent{EventID: 0, EventType: engine.EventRunStarted, Payload: canon.Map{}}))

	got, err := l.Load("run-a")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, ev := range got {
		require.Equal(t, events[i].EventID, ev.EventID)
		require.Equal(t, events[i].EventType, ev.EventType)
	}

	gotB, err := l.Load("run-b")
	require.NoError(t, err)
	require.Len(t, gotB, 1)
}
