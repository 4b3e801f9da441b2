// Package codec provides debug-sibling encodings named in the canonical
// codec's rules: human-readable or inspection-friendly renderings of
// engine types for CLI output and logs. Neither is digest-eligible;
// canon is the only package whose bytes a result_digest may be computed
// over.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CodecVersion represents the codec version
type CodecVersion uint16

const (
	// CurrentVersion is the current codec version
	CurrentVersion CodecVersion = 0
)

// Marshaler is the common interface both debug-sibling codecs
// implement, letting callers (e.g. rechctl's --format flag) pick one
// at runtime.
type Marshaler interface {
	Marshal(version CodecVersion, v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) (CodecVersion, error)
}

// Codec provides marshaling/unmarshaling
var Codec Marshaler = &JSONCodec{}

// JSONCodec implements JSON encoding/decoding
type JSONCodec struct{}

// Marshal marshals an object to bytes
func (c *JSONCodec) Marshal(version CodecVersion, v interface{}) ([]byte, error) {
	if version != CurrentVersion {
		return nil, fmt.Errorf("unsupported codec version: %d", version)
	}
	return json.Marshal(v)
}

// Unmarshal unmarshals bytes to an object
func (c *JSONCodec) Unmarshal(data []byte, v interface{}) (CodecVersion, error) {
	err := json.Unmarshal(data, v)
	return CurrentVersion, err
}

// CBORCodec is the other debug-sibling rendering: a generic (non-
// canonical) CBOR encoding, distinct from canon's hand-rolled
// canonical-CBOR digest path. It exists for operators who want a
// compact inspection format without canon's sorted-key/NFC/float-
// rejection discipline; like JSONCodec its output is never
// digest-eligible.
var CBORCodec Marshaler = &cborCodec{}

type cborCodec struct{}

// Marshal marshals an object to CBOR bytes.
func (c *cborCodec) Marshal(version CodecVersion, v interface{}) ([]byte, error) {
	if version != CurrentVersion {
		return nil, fmt.Errorf("unsupported codec version: %d", version)
	}
	return cbor.Marshal(v)
}

// Unmarshal unmarshals CBOR bytes to an object.
func (c *cborCodec) Unmarshal(data []byte, v interface{}) (CodecVersion, error) {
	err := cbor.Unmarshal(data, v)
	return CurrentVersion, err
}