// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the daemon and client configuration structs,
// their defaults, and validation, mirroring the teacher's
// Parameters/DefaultParams/Valid shape.
package config

import (
	"time"

	"github.com/luxfi/rechain/fixedpoint"
)

const (
	// DefaultMaxPayloadBytes is the wire contract's MAX_PAYLOAD_BYTES.
	DefaultMaxPayloadBytes = 64 * 1024 * 1024

	// DefaultHandshakeTimeout is the default connect/handshake timeout.
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultHeartbeatInterval matches the wire contract's heartbeat cadence.
	DefaultHeartbeatInterval = 5 * time.Second

	// DefaultSweepInterval matches the wire contract's pending-table sweeper.
	DefaultSweepInterval = 10 * time.Second

	// DefaultWorkerPoolSize is the static size DefaultDaemonConfig and
	// DefaultClientConfig start from; rechaind serve replaces the daemon's
	// value with min(cpu_count, 32) before flags are parsed.
	DefaultWorkerPoolSize = 4

	// MaxWorkerPoolSize is the hard ceiling on concurrent runs.
	MaxWorkerPoolSize = 32
)

// ExecutionControls bounds a single run. Zero means unbounded for every
// field except MinStepInterval, where zero means no floor.
type ExecutionControls struct {
	MaxSteps        uint32
	StepTimeout     fixedpoint.DurationUS
	RunTimeout      fixedpoint.DurationUS
	BudgetLimit     fixedpoint.Q32
	MinStepInterval fixedpoint.DurationUS
}

// DefaultExecutionControls returns a conservative, fully-bounded default.
func DefaultExecutionControls() ExecutionControls {
	return ExecutionControls{
		MaxSteps:        10_000,
		StepTimeout:     fixedpoint.DurationUS(30 * time.Second / time.Microsecond),
		RunTimeout:      fixedpoint.DurationUS(10 * time.Minute / time.Microsecond),
		BudgetLimit:     fixedpoint.NewQ32FromInt(100),
		MinStepInterval: 0,
	}
}

// Unbounded returns an ExecutionControls with every limit disabled. Used
// by tests and by explicit opt-in only; production callers should prefer
// DefaultExecutionControls.
func Unbounded() ExecutionControls {
	return ExecutionControls{}
}

// DaemonConfig configures the rechaind server process: its transport
// listener, payload limits, worker pool, and replay log location.
type DaemonConfig struct {
	// SocketPath is a Unix-domain socket path. Mutually exclusive with
	// TCPAddr; exactly one must be set.
	SocketPath string

	// TCPAddr is a "host:port" TCP listen address.
	TCPAddr string

	MaxPayloadBytes   uint32
	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
	SweepInterval     time.Duration
	WorkerPoolSize    int
	ReplayLogPath     string

	// MinContractVersion, if set, is the lowest contract_version this
	// daemon refuses to serve below. An empty string means "no floor":
	// the daemon always serves its own ContractVersion.
	MinContractVersion string
}

// DefaultDaemonConfig returns a DaemonConfig listening on TCP localhost.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		TCPAddr:           "127.0.0.1:7420",
		MaxPayloadBytes:   DefaultMaxPayloadBytes,
		HandshakeTimeout:  DefaultHandshakeTimeout,
		HeartbeatInterval: DefaultHeartbeatInterval,
		SweepInterval:     DefaultSweepInterval,
		WorkerPoolSize:    DefaultWorkerPoolSize,
		ReplayLogPath:     "rechain-replay.log",
	}
}

// ClientConfig configures rechctl's connection to a daemon.
type ClientConfig struct {
	SocketPath       string
	TCPAddr          string
	HandshakeTimeout time.Duration
	MaxConcurrent    int
}

// DefaultClientConfig mirrors DefaultDaemonConfig's transport defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		TCPAddr:          "127.0.0.1:7420",
		HandshakeTimeout: DefaultHandshakeTimeout,
		MaxConcurrent:    DefaultWorkerPoolSize,
	}
}
