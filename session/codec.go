// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"fmt"

	"github.com/luxfi/rechain/canon"
)

func encodeHello(h Hello) ([]byte, error) {
	return canon.Encode(canon.Map{
		"client_name":        canon.Text(h.ClientName),
		"client_version":     canon.Text(h.ClientVersion),
		"min_version":        canon.Uint(h.MinVersion),
		"max_version":        canon.Uint(h.MaxVersion),
		"capabilities":       canon.Uint(h.Capabilities),
		"preferred_encoding": canon.Text(h.PreferredEncoding),
	})
}

func decodeHello(b []byte) (Hello, error) {
	m, err := decodeMap(b)
	if err != nil {
		return Hello{}, err
	}
	return Hello{
		ClientName:        mustText(m, "client_name"),
		ClientVersion:     mustText(m, "client_version"),
		MinVersion:        uint16(mustUint(m, "min_version")),
		MaxVersion:        uint16(mustUint(m, "max_version")),
		Capabilities:      mustUint(m, "capabilities"),
		PreferredEncoding: mustText(m, "preferred_encoding"),
	}, nil
}

func encodeHelloAck(h HelloAck) ([]byte, error) {
	return canon.Encode(canon.Map{
		"selected_version": canon.Uint(h.SelectedVersion),
		"capabilities":     canon.Uint(h.Capabilities),
		"engine_version":   canon.Text(h.EngineVersion),
		"contract_version": canon.Text(h.ContractVersion),
		"hash_version":     canon.Text(h.HashVersion),
		"cas_version":      canon.Text(h.CasVersion),
		"session_id":       canon.Text(h.SessionID),
	})
}

func decodeHelloAck(b []byte) (HelloAck, error) {
	m, err := decodeMap(b)
	if err != nil {
		return HelloAck{}, err
	}
	return HelloAck{
		SelectedVersion: uint16(mustUint(m, "selected_version")),
		Capabilities:    mustUint(m, "capabilities"),
		EngineVersion:   mustText(m, "engine_version"),
		ContractVersion: mustText(m, "contract_version"),
		HashVersion:     mustText(m, "hash_version"),
		CasVersion:      mustText(m, "cas_version"),
		SessionID:       mustText(m, "session_id"),
	}, nil
}

func encodeError(e ErrorEnvelope) ([]byte, error) {
	details := make(canon.Map, len(e.Details))
	for k, v := range e.Details {
		details[k] = canon.Text(v)
	}
	return canon.Encode(canon.Map{
		"code":           canon.Uint(e.Code),
		"message":        canon.Text(e.Message),
		"details":        details,
		"correlation_id": canon.Uint(e.CorrelationID),
	})
}

func decodeError(b []byte) (ErrorEnvelope, error) {
	m, err := decodeMap(b)
	if err != nil {
		return ErrorEnvelope{}, err
	}
	details := map[string]string{}
	if dm, ok := m["details"].(canon.Map); ok {
		for key, v := range dm {
			if t, ok := v.(canon.Text); ok {
				details[key] = string(t)
			}
		}
	}
	return ErrorEnvelope{
		Code:          uint32(mustUint(m, "code")),
		Message:       mustText(m, "message"),
		Details:       details,
		CorrelationID: uint32(mustUint(m, "correlation_id")),
	}, nil
}

// decodeMap decodes canonical bytes back into a canon.Map using the
// package-wide canonical CBOR decoder.
func decodeMap(b []byte) (canon.Map, error) {
	v, n, err := canon.Decode(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, fmt.Errorf("session: trailing bytes after canonical value")
	}
	m, ok := v.(canon.Map)
	if !ok {
		return nil, fmt.Errorf("session: expected top-level map")
	}
	return m, nil
}

func mustText(m canon.Map, key string) string {
	if t, ok := m[key].(canon.Text); ok {
		return string(t)
	}
	return ""
}

func mustUint(m canon.Map, key string) uint64 {
	if u, ok := m[key].(canon.Uint); ok {
		return uint64(u)
	}
	return 0
}
