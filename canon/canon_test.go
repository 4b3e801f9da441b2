// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package canon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeKeyOrderIsStable(t *testing.T) {
	// Two maps built with different insertion order must canonicalize
	// to byte-identical output (property 3: canonical key order).
	a := Map{"b": Uint(2), "a": Uint(1), "c": Map{"z": Uint(26), "a": Uint(1)}}
	b := Map{"c": Map{"a": Uint(1), "z": Uint(26)}, "a": Uint(1), "b": Uint(2)}

	encA, err := Encode(a)
	require.NoError(t, err)
	encB, err := Encode(b)
	require.NoError(t, err)
	require.Equal(t, encA, encB)
}

func TestDigestDeterministic(t *testing.T) {
	v := Map{"b": Uint(2), "a": Uint(1), "c": Map{"z": Uint(26), "a": Uint(1)}}

	var digests []string
	for i := 0; i < 25; i++ {
		d, err := DigestValue(v)
		require.NoError(t, err)
		digests = append(digests, d)
	}
	for _, d := range digests {
		require.Equal(t, digests[0], d)
	}
	require.Regexp(t, `^blake3:[0-9a-f]{64}$`, digests[0])
}

// TestGoldenDigest pins the canonical encoding of scenario S6's literal
// input so independent implementations can cross-check byte-for-byte.
func TestGoldenDigest(t *testing.T) {
	v := Map{
		"b": Uint(2),
		"a": Uint(1),
		"c": Map{"z": Uint(26), "a": Uint(1)},
	}
	enc, err := Encode(v)
	require.NoError(t, err)

	// map(3){a:1, b:2, c:map(2){a:1, z:26}}
	want := []byte{
		0xa3,       // map(3)
		0x61, 'a', 0x01,
		0x61, 'b', 0x02,
		0x61, 'c', 0xa2, // map(2)
		0x61, 'a', 0x01,
		0x61, 'z', 0x18, 26,
	}
	require.Equal(t, want, enc)

	digest, err := DigestValue(v)
	require.NoError(t, err)
	require.Equal(t, Digest(want), digest)
}

func TestEncodeRejectsNonUTF8Key(t *testing.T) {
	m := Map{string([]byte{0xff, 0xfe}): Uint(1)}
	_, err := Encode(m)
	require.ErrorIs(t, err, ErrNonUTF8Key)
}

func TestFromGoRejectsFloat(t *testing.T) {
	_, err := FromGo(3.14)
	require.ErrorIs(t, err, ErrFloatingPointForbidden)

	_, err = FromGo(map[string]interface{}{"x": 1.5})
	require.ErrorIs(t, err, ErrFloatingPointForbidden)
}

func TestFromGoRejectsUnsortableKey(t *testing.T) {
	_, err := FromGo(map[interface{}]interface{}{1: "x"})
	require.ErrorIs(t, err, ErrUnsortableKeyType)
}

func TestEncodeRecursionDepth(t *testing.T) {
	var v Value = Map{"leaf": Uint(1)}
	for i := 0; i < MaxDepth+5; i++ {
		v = Map{"nest": v}
	}
	_, err := Encode(v)
	require.ErrorIs(t, err, ErrRecursionDepth)
}

func TestNFCNormalization(t *testing.T) {
	// "é" as a single code point vs. "e" + combining acute accent must
	// canonicalize identically once normalized to NFC.
	composed := Text("é")
	decomposed := Text("é")

	encComposed, err := Encode(composed)
	require.NoError(t, err)
	encDecomposed, err := Encode(decomposed)
	require.NoError(t, err)
	require.Equal(t, encComposed, encDecomposed)
}

func TestVerify(t *testing.T) {
	b, err := Encode(Uint(42))
	require.NoError(t, err)
	digest := Digest(b)

	ok, err := Verify(digest, b)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = Verify("sha256:deadbeef", b)
	require.Error(t, err)
}

func TestRandDeterministic(t *testing.T) {
	seed := SeedFromRunID("run-123")
	r1 := NewRand(seed)
	r2 := NewRand(seed)
	for i := 0; i < 10; i++ {
		require.Equal(t, r1.Next(), r2.Next())
	}
}
