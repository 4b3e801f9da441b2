// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package canon

import (
	"bytes"
	"encoding/binary"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// cbor major types, used as the high 3 bits of the initial byte.
const (
	majorUint    = 0 << 5
	majorNegInt  = 1 << 5
	majorBytes   = 2 << 5
	majorText    = 3 << 5
	majorArray   = 4 << 5
	majorMap     = 5 << 5
	majorSimple  = 7 << 5
	simpleFalse  = 20
	simpleTrue   = 21
	simpleNull   = 22
)

// Encode produces the canonical byte encoding of v: deterministic
// key-sorted CBOR with smallest-width integers and NFC-normalized text.
// The same Value tree always produces the same bytes, on every host.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v Value, depth int) error {
	if depth > MaxDepth {
		return ErrRecursionDepth
	}
	switch x := v.(type) {
	case nil:
		writeHead(buf, majorSimple, simpleNull)
	case Null:
		writeHead(buf, majorSimple, simpleNull)
	case Bool:
		if x {
			writeHead(buf, majorSimple, simpleTrue)
		} else {
			writeHead(buf, majorSimple, simpleFalse)
		}
	case Uint:
		writeHead(buf, majorUint, uint64(x))
	case Int:
		if x >= 0 {
			writeHead(buf, majorUint, uint64(x))
		} else {
			writeHead(buf, majorNegInt, uint64(-1-x))
		}
	case Bytes:
		writeHead(buf, majorBytes, uint64(len(x)))
		buf.Write(x)
	case Text:
		normalized := norm.NFC.String(string(x))
		writeHead(buf, majorText, uint64(len(normalized)))
		buf.WriteString(normalized)
	case Array:
		writeHead(buf, majorArray, uint64(len(x)))
		for _, elem := range x {
			if err := encode(buf, elem, depth+1); err != nil {
				return err
			}
		}
	case Map:
		keys, err := sortedKeys(x)
		if err != nil {
			return err
		}
		writeHead(buf, majorMap, uint64(len(keys)))
		for _, k := range keys {
			normalizedKey := norm.NFC.String(k)
			writeHead(buf, majorText, uint64(len(normalizedKey)))
			buf.WriteString(normalizedKey)
			if err := encode(buf, x[k], depth+1); err != nil {
				return err
			}
		}
	default:
		return ErrUnsortableKeyType
	}
	return nil
}

// sortedKeys validates every key is valid UTF-8 and returns them sorted
// by lexicographic byte order, which for well-formed UTF-8 is equivalent
// to code-point order.
func sortedKeys(m Map) ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !utf8.ValidString(k) {
			return nil, ErrNonUTF8Key
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys, nil
}

// writeHead writes a CBOR initial byte plus the smallest-width argument
// encoding for n, matching canonical/"core deterministic" CBOR (RFC
// 8949 §4.2): arguments under 24 are packed into the initial byte, and
// larger ones use the shortest of the 1/2/4/8-byte forms.
func writeHead(buf *bytes.Buffer, major byte, n uint64) {
	switch {
	case n < 24:
		buf.WriteByte(major | byte(n))
	case n <= 0xff:
		buf.WriteByte(major | 24)
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(major | 25)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		buf.Write(b[:])
	case n <= 0xffffffff:
		buf.WriteByte(major | 26)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		buf.Write(b[:])
	default:
		buf.WriteByte(major | 27)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], n)
		buf.Write(b[:])
	}
}
