// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"fmt"

	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/engine"
)

// Exec sends req as an ExecRequest and blocks for the matching
// ExecResult, decoding it back into engine types.
func (s *Session) Exec(ctx context.Context, req engine.ExecRequest) (engine.ExecResult, error) {
	payload, err := engine.EncodeExecRequest(req)
	if err != nil {
		return engine.ExecResult{}, fmt.Errorf("session: encode ExecRequest: %w", err)
	}
	f, err := s.Request(ctx, MsgExecRequest, payload, MsgExecResult)
	if err != nil {
		return engine.ExecResult{}, err
	}
	res, err := engine.DecodeExecResult(f.Payload)
	if err != nil {
		return engine.ExecResult{}, fmt.Errorf("session: decode ExecResult: %w", err)
	}
	return res, nil
}

// HealthResult is the decoded payload of an MsgHealthResult frame.
type HealthResult struct {
	Healthy bool
	Details map[string]string
}

// Health sends a HealthRequest and returns the decoded HealthResult.
func (s *Session) Health(ctx context.Context) (HealthResult, error) {
	f, err := s.Request(ctx, MsgHealthRequest, nil, MsgHealthResult)
	if err != nil {
		return HealthResult{}, err
	}
	m, err := decodeMap(f.Payload)
	if err != nil {
		return HealthResult{}, fmt.Errorf("session: decode HealthResult: %w", err)
	}
	details := map[string]string{}
	if dm, ok := m["details"].(canon.Map); ok {
		for k, v := range dm {
			if t, ok := v.(canon.Text); ok {
				details[k] = string(t)
			}
		}
	}
	healthy := false
	if b, ok := m["healthy"].(canon.Bool); ok {
		healthy = bool(b)
	}
	return HealthResult{Healthy: healthy, Details: details}, nil
}
