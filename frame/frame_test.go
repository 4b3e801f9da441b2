// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    Frame
	}{
		{"empty payload", Frame{VersionMajor: 1, VersionMinor: 0, MsgType: 0x10, CorrelationID: 7}},
		{"with payload", Frame{VersionMajor: 1, VersionMinor: 2, MsgType: 0x11, Flags: FlagCorrelationPresent, CorrelationID: 42, Payload: []byte("hello world")}},
		{"zero correlation", Frame{MsgType: 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.f)
			require.NoError(t, err)

			decoded, n, err := Decode(encoded)
			require.NoError(t, err)
			require.Equal(t, len(encoded), n)
			require.Equal(t, tt.f.VersionMajor, decoded.VersionMajor)
			require.Equal(t, tt.f.VersionMinor, decoded.VersionMinor)
			require.Equal(t, tt.f.MsgType, decoded.MsgType)
			require.Equal(t, tt.f.Flags, decoded.Flags)
			require.Equal(t, tt.f.CorrelationID, decoded.CorrelationID)
			require.Equal(t, tt.f.Payload, decoded.Payload)
		})
	}
}

func TestPayloadTooLarge(t *testing.T) {
	_, err := Encode(Frame{Payload: make([]byte, MaxPayloadBytes+1)})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestCrcMismatch(t *testing.T) {
	f := Frame{MsgType: 0x10, Payload: []byte("payload bytes")}
	encoded, err := Encode(f)
	require.NoError(t, err)

	// Flip a bit at header_size+3, as in scenario S5.
	encoded[HeaderSize+3] ^= 0x01

	_, _, err = Decode(encoded)
	require.ErrorIs(t, err, ErrCrcMismatch)
}

func TestDecodeIncomplete(t *testing.T) {
	f := Frame{MsgType: 0x10, Payload: []byte("payload")}
	encoded, err := Encode(f)
	require.NoError(t, err)

	_, _, err = Decode(encoded[:HeaderSize-1])
	require.ErrorIs(t, err, ErrIncomplete)

	_, _, err = Decode(encoded[:len(encoded)-1])
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestDecodeInvalidMagic(t *testing.T) {
	_, _, err := Decode([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestStreamParserRoundTrip(t *testing.T) {
	f := Frame{MsgType: 0x10, CorrelationID: 99, Payload: []byte("streamed")}
	encoded, err := Encode(f)
	require.NoError(t, err)

	p := NewParser(0)

	// Feed the frame split across several small chunks.
	for i := 0; i < len(encoded); i += 3 {
		end := i + 3
		if end > len(encoded) {
			end = len(encoded)
		}
		require.NoError(t, p.Write(encoded[i:end]))

		got, ok, err := p.Next()
		require.NoError(t, err)
		if ok {
			require.Equal(t, f.Payload, got.Payload)
			require.Equal(t, f.CorrelationID, got.CorrelationID)
		}
	}
}

func TestStreamParserResyncLiveness(t *testing.T) {
	f := Frame{MsgType: 0x20, Payload: []byte("after garbage")}
	encoded, err := Encode(f)
	require.NoError(t, err)

	garbage := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	stream := append(garbage, encoded...)

	p := NewParser(0)
	require.NoError(t, p.Write(stream))

	got, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.Payload, got.Payload)
}

func TestStreamParserBufferOverflow(t *testing.T) {
	p := NewParser(8)
	err := p.Write(make([]byte, 9))
	require.ErrorIs(t, err, ErrBufferOverflow)
}

func TestStreamParserPreservesPartialMagic(t *testing.T) {
	f := Frame{MsgType: 0x01, Payload: []byte("x")}
	encoded, err := Encode(f)
	require.NoError(t, err)

	p := NewParser(0)
	// Feed 3 bytes of garbage that happen to prefix-match nothing, then
	// the real frame in one shot.
	require.NoError(t, p.Write([]byte{0xff, 0xee, 0xdd}))
	_, ok, err := p.Next()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, p.Write(encoded))
	got, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.Payload, got.Payload)
}
