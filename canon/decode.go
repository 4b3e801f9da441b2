// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package canon

import (
	"encoding/binary"
	"fmt"
)

// Decode parses a single canonical CBOR value from the front of b,
// returning the value and the number of bytes consumed. It accepts only
// definite-length items and rejects indefinite-length, tagged and float
// items, which Encode never emits. It does not check that arguments use
// the smallest width or that map keys are sorted.
func Decode(b []byte) (Value, int, error) {
	return decodeValue(b, 0)
}

func decodeValue(b []byte, depth int) (Value, int, error) {
	if depth > MaxDepth {
		return nil, 0, ErrRecursionDepth
	}
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("canon: unexpected end of input")
	}
	major := b[0] & 0xe0
	arg, argLen, err := readArg(b)
	if err != nil {
		return nil, 0, err
	}
	off := argLen

	switch major {
	case majorUint:
		return Uint(arg), off, nil
	case majorNegInt:
		return Int(-1 - int64(arg)), off, nil
	case majorBytes:
		if uint64(len(b)-off) < arg {
			return nil, 0, fmt.Errorf("canon: truncated byte string")
		}
		out := make([]byte, arg)
		copy(out, b[off:off+int(arg)])
		return Bytes(out), off + int(arg), nil
	case majorText:
		if uint64(len(b)-off) < arg {
			return nil, 0, fmt.Errorf("canon: truncated text string")
		}
		s := string(b[off : off+int(arg)])
		return Text(s), off + int(arg), nil
	case majorArray:
		arr := make(Array, 0, arg)
		for i := uint64(0); i < arg; i++ {
			v, n, err := decodeValue(b[off:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			arr = append(arr, v)
			off += n
		}
		return arr, off, nil
	case majorMap:
		m := make(Map, arg)
		for i := uint64(0); i < arg; i++ {
			k, n, err := decodeValue(b[off:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			off += n
			key, ok := k.(Text)
			if !ok {
				return nil, 0, ErrUnsortableKeyType
			}
			v, n2, err := decodeValue(b[off:], depth+1)
			if err != nil {
				return nil, 0, err
			}
			off += n2
			m[string(key)] = v
		}
		return m, off, nil
	case majorSimple:
		switch arg {
		case simpleFalse:
			return Bool(false), off, nil
		case simpleTrue:
			return Bool(true), off, nil
		case simpleNull:
			return Null{}, off, nil
		default:
			return nil, 0, fmt.Errorf("canon: unsupported simple value %d", arg)
		}
	default:
		return nil, 0, fmt.Errorf("canon: unsupported major type")
	}
}

// readArg reads the CBOR argument encoded in the initial byte (and
// possibly following bytes) of b, returning its value and the total
// number of header bytes consumed (including the initial byte).
func readArg(b []byte) (uint64, int, error) {
	initial := b[0] & 0x1f
	switch {
	case initial < 24:
		return uint64(initial), 1, nil
	case initial == 24:
		if len(b) < 2 {
			return 0, 0, fmt.Errorf("canon: truncated 1-byte argument")
		}
		return uint64(b[1]), 2, nil
	case initial == 25:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("canon: truncated 2-byte argument")
		}
		return uint64(binary.BigEndian.Uint16(b[1:3])), 3, nil
	case initial == 26:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("canon: truncated 4-byte argument")
		}
		return uint64(binary.BigEndian.Uint32(b[1:5])), 5, nil
	case initial == 27:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("canon: truncated 8-byte argument")
		}
		return binary.BigEndian.Uint64(b[1:9]), 9, nil
	default:
		return 0, 0, fmt.Errorf("canon: unsupported argument encoding")
	}
}
