// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package frame implements the length-prefixed binary wire frame: fixed
// 24-byte header, payload, and a trailing CRC-32C footer. It is the only
// package that knows the byte layout of a message on the wire; the
// session layer above it deals exclusively in decoded Frame values.
package frame

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sync"
)

// Magic precedes every frame header: ASCII "RECH".
const Magic uint32 = 0x52454348

// HeaderSize is the fixed header length in bytes, before the payload.
const HeaderSize = 24

// FooterSize is the trailing CRC-32C footer length in bytes.
const FooterSize = 4

// MaxPayloadBytes bounds payload size; larger payloads are rejected
// before allocation.
const MaxPayloadBytes = 64 * 1024 * 1024

// Flag bits.
const (
	FlagCompressed         uint32 = 1 << 0
	FlagEndOfStream        uint32 = 1 << 1
	FlagCorrelationPresent uint32 = 1 << 2
)

// Decoder error taxonomy (§7, protocol errors 100-199).
var (
	ErrInvalidMagic       = errors.New("frame: invalid magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrPayloadTooLarge    = errors.New("frame: payload exceeds MaxPayloadBytes")
	ErrCrcMismatch        = errors.New("frame: CRC-32C mismatch")
	ErrIncomplete         = errors.New("frame: incomplete frame, need more bytes")
	ErrBufferOverflow     = errors.New("frame: stream buffer exceeded its cap")
)

// Frame is a single decoded wire message.
type Frame struct {
	VersionMajor  uint16
	VersionMinor  uint16
	MsgType       uint32
	Flags         uint32
	CorrelationID uint32
	Payload       []byte
}

var crcTable = sync.OnceValue(func() *crc32.Table {
	return crc32.MakeTable(crc32.Castagnoli)
})

// Checksum computes the CRC-32C of b.
func Checksum(b []byte) uint32 {
	return crc32.Checksum(b, crcTable())
}

// Encode serializes f into its wire representation: magic, header,
// payload, CRC-32C footer.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(f.Payload)+FooterSize)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], f.VersionMajor)
	binary.LittleEndian.PutUint16(buf[6:8], f.VersionMinor)
	binary.LittleEndian.PutUint32(buf[8:12], f.MsgType)
	binary.LittleEndian.PutUint32(buf[12:16], f.Flags)
	binary.LittleEndian.PutUint32(buf[16:20], f.CorrelationID)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(f.Payload)))
	copy(buf[HeaderSize:HeaderSize+len(f.Payload)], f.Payload)

	crc := Checksum(buf[:HeaderSize+len(f.Payload)])
	binary.LittleEndian.PutUint32(buf[HeaderSize+len(f.Payload):], crc)
	return buf, nil
}

// Decode parses a single frame from the front of b. It returns the
// decoded Frame and the number of bytes consumed. ErrIncomplete means
// the caller must supply more bytes before retrying; it is not a
// terminal error.
func Decode(b []byte) (Frame, int, error) {
	if len(b) < 4 {
		return Frame{}, 0, ErrIncomplete
	}
	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != Magic {
		return Frame{}, 0, ErrInvalidMagic
	}
	if len(b) < HeaderSize {
		return Frame{}, 0, ErrIncomplete
	}

	versionMajor := binary.LittleEndian.Uint16(b[4:6])
	versionMinor := binary.LittleEndian.Uint16(b[6:8])
	msgType := binary.LittleEndian.Uint32(b[8:12])
	flags := binary.LittleEndian.Uint32(b[12:16])
	correlationID := binary.LittleEndian.Uint32(b[16:20])
	payloadLen := binary.LittleEndian.Uint32(b[20:24])

	if payloadLen > MaxPayloadBytes {
		return Frame{}, 0, ErrPayloadTooLarge
	}

	total := HeaderSize + int(payloadLen) + FooterSize
	if len(b) < total {
		return Frame{}, 0, ErrIncomplete
	}

	payload := make([]byte, payloadLen)
	copy(payload, b[HeaderSize:HeaderSize+int(payloadLen)])

	wantCRC := binary.LittleEndian.Uint32(b[HeaderSize+int(payloadLen) : total])
	gotCRC := Checksum(b[:HeaderSize+int(payloadLen)])
	if gotCRC != wantCRC {
		return Frame{}, total, ErrCrcMismatch
	}

	return Frame{
		VersionMajor:  versionMajor,
		VersionMinor:  versionMinor,
		MsgType:       msgType,
		Flags:         flags,
		CorrelationID: correlationID,
		Payload:       payload,
	}, total, nil
}
