// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package canon

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// HashVersion is the only hash algorithm name this core produces or
// accepts. Clients that receive any other prefix must fail closed.
const HashVersion = "blake3"

// Digest hashes canonical bytes and renders the result as
// "blake3:<lowercase hex>".
func Digest(canonicalBytes []byte) string {
	sum := blake3Sum(canonicalBytes)
	return HashVersion + ":" + hex.EncodeToString(sum[:])
}

func blake3Sum(b []byte) [32]byte {
	return blake3.Sum256(b)
}

// DigestValue canonicalizes v and returns its digest in one step.
func DigestValue(v Value) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return Digest(b), nil
}

// Verify reports whether fingerprint is a well-formed "blake3:<hex>"
// string matching the digest of canonicalBytes.
func Verify(fingerprint string, canonicalBytes []byte) (bool, error) {
	alg, hexDigest, ok := strings.Cut(fingerprint, ":")
	if !ok {
		return false, fmt.Errorf("canon: malformed fingerprint %q", fingerprint)
	}
	if alg != HashVersion {
		return false, fmt.Errorf("canon: unexpected hash algorithm %q, want %q", alg, HashVersion)
	}
	if _, err := hex.DecodeString(hexDigest); err != nil {
		return false, fmt.Errorf("canon: malformed hex digest: %w", err)
	}
	return Digest(canonicalBytes) == fingerprint, nil
}
