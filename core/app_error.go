// Copyright (C) 2019-2024, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import "fmt"

// AppError is the envelope-friendly representation of an ErrorCode: a
// signed code plus a human-readable message, matching the shape of a
// session ErrorEnvelope without depending on the session package.
type AppError struct {
	Code    int32
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("app error %d: %s", e.Code, e.Message)
}

// NewAppError builds an AppError from a closed ErrorCode.
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{Code: int32(code), Message: message}
}
