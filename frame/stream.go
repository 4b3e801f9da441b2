// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"bytes"
	"encoding/binary"
)

// DefaultStreamBufferCap is the default cap on buffered-but-undecoded
// bytes for a post-handshake stream.
const DefaultStreamBufferCap = 64 * 1024 * 1024

// PreHandshakeBufferCap caps untrusted pre-handshake buffering.
const PreHandshakeBufferCap = 1 * 1024 * 1024

// Parser incrementally decodes frames from an arbitrary-size sequence of
// byte chunks. It buffers only what it hasn't been able to decode yet,
// and resynchronizes past corrupted magic sequences instead of failing
// the whole stream.
type Parser struct {
	buf        bytes.Buffer
	cap        int
	resyncFail bool
}

// NewParser returns a Parser with the given buffer cap. A cap of 0 uses
// DefaultStreamBufferCap.
func NewParser(bufferCap int) *Parser {
	if bufferCap <= 0 {
		bufferCap = DefaultStreamBufferCap
	}
	return &Parser{cap: bufferCap}
}

// Write appends a chunk of bytes to the parser's internal buffer, a
// bytes.Buffer: appends are amortized O(1), and growing the buffer copies
// the bytes it already holds.
func (p *Parser) Write(chunk []byte) error {
	if p.buf.Len()+len(chunk) > p.cap {
		return ErrBufferOverflow
	}
	p.buf.Write(chunk)
	return nil
}

// Next attempts to decode the next frame from the buffer. It returns
// (frame, true, nil) on success, (zero, false, nil) if more bytes are
// needed, or a non-nil error for a CRC mismatch (the caller should
// discard that one frame and keep reading — the session is not
// terminated). On invalid magic, Next resynchronizes internally and
// retries rather than returning an error, satisfying resync liveness:
// a valid frame anywhere in the stream is eventually emitted.
func (p *Parser) Next() (Frame, bool, error) {
	for {
		b := p.buf.Bytes()
		f, n, err := Decode(b)
		switch {
		case err == nil:
			p.buf.Next(n)
			return f, true, nil
		case err == ErrIncomplete:
			return Frame{}, false, nil
		case err == ErrInvalidMagic:
			skip := p.resync(b)
			if skip == 0 {
				return Frame{}, false, nil
			}
			p.buf.Next(skip)
			continue
		case err == ErrCrcMismatch:
			p.buf.Next(n)
			return Frame{}, false, ErrCrcMismatch
		default:
			return Frame{}, false, err
		}
	}
}

// resync scans b for the next occurrence of Magic and returns how many
// leading bytes can be safely dropped. It preserves the trailing up to
// 3 bytes of b, since those could be the start of a partial magic
// sequence that hasn't fully arrived yet.
func (p *Parser) resync(b []byte) int {
	if len(b) < 4 {
		return 0
	}
	var magicBytes [4]byte
	binary.LittleEndian.PutUint32(magicBytes[:], Magic)

	searchable := len(b) - 3
	for i := 1; i < searchable; i++ {
		if bytes.Equal(b[i:i+4], magicBytes[:]) {
			return i
		}
	}
	// No magic found in the searchable region; drop everything except
	// the last 3 bytes, which might be a partial magic.
	return len(b) - 3
}

// Buffered reports how many undecoded bytes are currently held.
func (p *Parser) Buffered() int {
	return p.buf.Len()
}
