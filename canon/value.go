// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package canon implements the canonical serialization and digest
// pipeline: a closed value model, deterministic key-sorted CBOR
// encoding, and the blake3 digest consumed by replay verifiers. The
// same canonical bytes must come out of this package regardless of
// host, architecture, or caller-provided map iteration order.
package canon

import (
	"errors"
	"fmt"
)

// Errors returned by the canonical codec. Names match the failure modes
// named in the wire contract so callers can map them onto protocol error
// codes without string matching.
var (
	ErrFloatingPointForbidden = errors.New("canon: floating point value in digest-eligible position")
	ErrRecursionDepth         = errors.New("canon: recursion depth exceeds limit")
	ErrNonUTF8Key             = errors.New("canon: map key is not valid UTF-8")
	ErrUnsortableKeyType      = errors.New("canon: map key is not a string")
)

// MaxDepth is the maximum nesting depth for maps and arrays.
const MaxDepth = 32

// Value is the closed set of canonicalizable types. It intentionally has
// no float member: floating point never enters a digest-eligible value
// tree. Construct trees directly with the concrete types below, or use
// FromGo to convert a loosely-typed interface{} tree built by a decoder.
type Value interface {
	isValue()
}

// Null is the canonical representation of an absent value.
type Null struct{}

// Bool is a canonical boolean.
type Bool bool

// Uint is a canonical non-negative integer, encoded as a CBOR major-type-0
// unsigned integer using the smallest representation that fits.
type Uint uint64

// Int is a canonical integer that may be negative, encoded as CBOR
// major-type-0 (non-negative) or major-type-1 (negative).
type Int int64

// Bytes is a canonical byte string.
type Bytes []byte

// Text is a canonical UTF-8 string. Encode normalizes it to NFC.
type Text string

// Array is an ordered sequence of values. Caller-provided order is
// preserved; Array never reorders (only RunEvent sequences are sorted,
// and that happens before the tree is built, not by this package).
type Array []Value

// Map is a string-keyed mapping. Encode sorts its keys by lexicographic
// UTF-8 byte order before emitting them; iteration order of the Go map
// itself is irrelevant to the output.
type Map map[string]Value

func (Null) isValue()  {}
func (Bool) isValue()  {}
func (Uint) isValue()  {}
func (Int) isValue()   {}
func (Bytes) isValue() {}
func (Text) isValue()  {}
func (Array) isValue() {}
func (Map) isValue()   {}

// FromGo converts a loosely-typed Go value (as produced by a generic
// decoder: map[string]interface{}, []interface{}, string, []byte, bool,
// int64/uint64, nil) into a Value tree, rejecting anything that cannot
// be made digest-eligible.
func FromGo(v interface{}) (Value, error) {
	return fromGo(v, 0)
}

func fromGo(v interface{}, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrRecursionDepth
	}
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Bytes(x), nil
	case int:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint64:
		return Uint(x), nil
	case uint:
		return Uint(x), nil
	case float32, float64:
		return nil, ErrFloatingPointForbidden
	case []interface{}:
		arr := make(Array, 0, len(x))
		for _, elem := range x {
			cv, err := fromGo(elem, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, cv)
		}
		return arr, nil
	case map[string]interface{}:
		m := make(Map, len(x))
		for k, elem := range x {
			cv, err := fromGo(elem, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = cv
		}
		return m, nil
	case map[interface{}]interface{}:
		return nil, ErrUnsortableKeyType
	default:
		return nil, fmt.Errorf("canon: unsupported Go type %T", v)
	}
}
