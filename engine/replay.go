// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"fmt"

	"github.com/luxfi/rechain/core"
)

// ErrReplayDigestMismatch is the canonical replay-failure signal: the
// digest re-derived from a stored event log does not match the digest
// the log claims to produce.
var ErrReplayDigestMismatch = fmt.Errorf("engine: replay digest mismatch")

// Replay re-derives a result digest from a previously recorded event
// log without re-executing any step. It canonicalizes the events (the
// same ordering and encoding Engine.finish applies) and returns the
// digest of the last event in that order, matching result_digest's
// definition as a pure function of the event log.
//
// Replay does not trust the Digest field stored on each event; it
// recomputes the hash chain from scratch so that tampering with a
// persisted log, not just its final digest, is caught.
func Replay(events []RunEvent) (string, error) {
	sorted := append([]RunEvent(nil), events...)
	sortEventsForDigest(sorted)

	prevDigest := ""
	for i, ev := range sorted {
		if i > 0 && ev.EventID <= sorted[i-1].EventID && ev.TimestampUS == sorted[i-1].TimestampUS {
			return "", fmt.Errorf("engine: %w: event_id not strictly increasing within timestamp", core.ErrInternalInvariant)
		}
		digest, err := computeEventDigest(prevDigest, RunEvent{
			EventID:     ev.EventID,
			EventType:   ev.EventType,
			TimestampUS: ev.TimestampUS,
			Payload:     ev.Payload,
		})
		if err != nil {
			return "", err
		}
		prevDigest = digest
	}
	return prevDigest, nil
}

// VerifyReplay re-derives the digest for events and compares it against
// wantDigest, the canonical replay-failure check named in §8's property
// 2 and §4.5's Replay contract.
func VerifyReplay(events []RunEvent, wantDigest string) error {
	got, err := Replay(events)
	if err != nil {
		return err
	}
	if got != wantDigest {
		return fmt.Errorf("%w: got %s, want %s", ErrReplayDigestMismatch, got, wantDigest)
	}
	return nil
}
