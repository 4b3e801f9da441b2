// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

var (
	ErrNoTransport          = errors.New("config: exactly one of socket path or tcp address must be set")
	ErrBothTransports       = errors.New("config: socket path and tcp address are mutually exclusive")
	ErrMaxPayloadTooLarge   = errors.New("config: max payload bytes exceeds the wire contract ceiling")
	ErrWorkerPoolOutOfRange = errors.New("config: worker pool size must be in [1, 32]")
	ErrBudgetNegative       = errors.New("config: budget limit must be non-negative")
)
