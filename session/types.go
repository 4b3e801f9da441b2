// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package session implements the protocol session: handshake and
// version negotiation, request/response correlation, heartbeat, and the
// connection state machine that sits on top of the frame codec.
package session

import "fmt"

// MsgType identifies the payload carried by a Frame. Values are fixed by
// the wire contract and must never be renumbered.
type MsgType uint32

const (
	MsgHeartbeat     MsgType = 0x00
	MsgHello         MsgType = 0x01
	MsgHelloAck      MsgType = 0x02
	MsgExecRequest   MsgType = 0x10
	MsgExecResult    MsgType = 0x11
	MsgHealthRequest MsgType = 0x20
	MsgHealthResult  MsgType = 0x21
	MsgError         MsgType = 0xFF
)

func (m MsgType) String() string {
	switch m {
	case MsgHeartbeat:
		return "Heartbeat"
	case MsgHello:
		return "Hello"
	case MsgHelloAck:
		return "HelloAck"
	case MsgExecRequest:
		return "ExecRequest"
	case MsgExecResult:
		return "ExecResult"
	case MsgHealthRequest:
		return "HealthRequest"
	case MsgHealthResult:
		return "HealthResult"
	case MsgError:
		return "Error"
	default:
		return fmt.Sprintf("MsgType(0x%02x)", uint32(m))
	}
}

// Capability is a single bit in the negotiated capability bitset.
type Capability uint64

const (
	CapBinaryProtocol Capability = 1 << 0
	CapCBOREncoding   Capability = 1 << 1
	CapCompression    Capability = 1 << 2 // reserved
	CapSandbox        Capability = 1 << 3 // reserved
	CapLLM            Capability = 1 << 4 // reserved
	CapFixedPoint     Capability = 1 << 5
	CapStreaming      Capability = 1 << 6
)

// Has reports whether set contains cap.
func (c Capability) Has(set uint64) bool {
	return set&uint64(c) != 0
}

// State is a connection's position in the session state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateNegotiating
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateNegotiating:
		return "Negotiating"
	case StateReady:
		return "Ready"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Hello is the client's handshake opener.
type Hello struct {
	ClientName        string
	ClientVersion     string
	MinVersion        uint16
	MaxVersion        uint16
	Capabilities      uint64
	PreferredEncoding string
}

// HelloAck is the server's handshake reply.
type HelloAck struct {
	SelectedVersion uint16
	Capabilities    uint64
	EngineVersion   string
	ContractVersion string
	HashVersion     string
	CasVersion      string
	SessionID       string
}

// ErrorEnvelope is the payload of a Msg Error frame.
type ErrorEnvelope struct {
	Code          uint32
	Message       string
	Details       map[string]string
	CorrelationID uint32
}
