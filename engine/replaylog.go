// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/rechain/canon"
)

// ReplayLog is the optional persisted event store a host may embed the
// engine with. The core itself persists nothing; any implementation
// must preserve the append-only, per-run-ordered contract.
type ReplayLog interface {
	// Append records ev as the next event for runID. Implementations
	// must preserve call order as storage order.
	Append(runID string, ev RunEvent) error

	// Load returns every event recorded for runID, in storage order.
	Load(runID string) ([]RunEvent, error)
}

// EncodeRunEvent renders ev as canonical bytes prefixed by an 8-byte
// little-endian length, matching the persisted replay-log layout.
func EncodeRunEvent(ev RunEvent) ([]byte, error) {
	v := canon.Map{
		"event_id":     canon.Uint(ev.EventID),
		"event_type":   canon.Text(ev.EventType.String()),
		"timestamp_us": canon.Uint(ev.TimestampUS),
		"payload":      ev.Payload,
		"digest":       canon.Text(ev.Digest),
	}
	body, err := canon.Encode(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint64(out[:8], uint64(len(body)))
	copy(out[8:], body)
	return out, nil
}

// DecodeRunEvent reverses EncodeRunEvent, returning the event and the
// number of bytes consumed from b.
func DecodeRunEvent(b []byte) (RunEvent, int, error) {
	if len(b) < 8 {
		return RunEvent{}, 0, fmt.Errorf("engine: replay entry too short for length prefix")
	}
	n := binary.LittleEndian.Uint64(b[:8])
	if uint64(len(b)-8) < n {
		return RunEvent{}, 0, fmt.Errorf("engine: replay entry truncated")
	}
	body := b[8 : 8+n]
	val, consumed, err := canon.Decode(body)
	if err != nil {
		return RunEvent{}, 0, err
	}
	if consumed != len(body) {
		return RunEvent{}, 0, fmt.Errorf("engine: trailing bytes in replay entry body")
	}
	m, ok := val.(canon.Map)
	if !ok {
		return RunEvent{}, 0, fmt.Errorf("engine: replay entry is not a map")
	}

	ev := RunEvent{}
	if u, ok := m["event_id"].(canon.Uint); ok {
		ev.EventID = uint64(u)
	}
	if u, ok := m["timestamp_us"].(canon.Uint); ok {
		ev.TimestampUS = uint64(u)
	}
	if txt, ok := m["event_type"].(canon.Text); ok {
		ev.EventType = eventTypeFromString(string(txt))
	}
	if txt, ok := m["digest"].(canon.Text); ok {
		ev.Digest = string(txt)
	}
	if payload, ok := m["payload"].(canon.Map); ok {
		ev.Payload = payload
	}
	return ev, 8 + int(n), nil
}

func eventTypeFromString(s string) EventType {
	switch s {
	case "run_started":
		return EventRunStarted
	case "step_started":
		return EventStepStarted
	case "step_completed":
		return EventStepCompleted
	case "policy_denied":
		return EventPolicyDenied
	case "run_completed":
		return EventRunCompleted
	case "run_paused":
		return EventRunPaused
	case "run_cancelled":
		return EventRunCancelled
	case "run_failed":
		return EventRunFailed
	default:
		return EventUnknown
	}
}
