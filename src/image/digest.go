package image

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/secure-systems-lab/go-securesystemslib/cjson"
)

// Canonicalize re-encodes a JSON document with sorted object keys and no
// insignificant whitespace. Numbers keep their literal form and fields
// unknown to any Go type survive.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	out, err := cjson.EncodeCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing manifest: %w", err)
	}
	return escapeControl(out), nil
}

// escapeControl rewrites raw control characters as \u00XX. cjson only
// escapes quote and backslash, and canonical output has no whitespace
// outside strings, so every control byte sits inside a string.
func escapeControl(b []byte) []byte {
	const hex = "0123456789abcdef"
	var out []byte
	for i, c := range b {
		if c >= 0x20 {
			if out != nil {
				out = append(out, c)
			}
			continue
		}
		if out == nil {
			out = append(make([]byte, 0, len(b)+16), b[:i]...)
		}
		out = append(out, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
	}
	if out == nil {
		return b
	}
	return out
}

// ComputeDigest returns the sha256 digest of the canonical form of raw.
// Two manifests that differ only in key order or whitespace share a digest.
func ComputeDigest(raw []byte) (digest.Digest, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(canonical), nil
}
