// Package guid implements content-addressed 64-bit asset identifiers: a
// GUID is derived deterministically from an asset's source path and
// sub-resource name, so re-importing the same glTF primitive twice (even
// after a rename elsewhere) always yields the same identifier.
package guid

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// GUID64 is a 64-bit content-addressed identifier, formatted as 16 uppercase
// hex characters, the Go analogue of the source's Guid<8>.
type GUID64 [8]byte

// Zero is the null GUID.
var Zero GUID64

// IsZero reports whether g is the null GUID.
func (g GUID64) IsZero() bool { return g == Zero }

// New derives a GUID64 from a canonical key by hashing it with BLAKE3 and
// truncating to the first 8 bytes. Two calls with the same key always
// produce the same GUID; this is the only way New* identifiers are minted
// anywhere in the asset pipeline, so content addressing is consistent
// end-to-end.
func New(canonicalKey string) GUID64 {
	sum := blake3.Sum256([]byte(canonicalKey))
	var g GUID64
	copy(g[:], sum[:8])
	return g
}

// ForMeshPrimitive builds the canonical key for one primitive of one mesh
// inside a source file and derives its GUID, matching the
// "<stem>::<mesh_name>::<primitive_index>" addressing scheme.
func ForMeshPrimitive(sourceStem, meshName string, primitiveIndex int) GUID64 {
	return New(fmt.Sprintf("%s::%s::%d", sourceStem, meshName, primitiveIndex))
}

// String formats g as 16 uppercase hex characters, byte 7 first and byte 0
// last, matching the on-disk .meta sidecar's big-endian hex convention.
func (g GUID64) String() string {
	var reversed [8]byte
	for i, b := range g {
		reversed[7-i] = b
	}
	return strings.ToUpper(hex.EncodeToString(reversed[:]))
}

// Parse is the inverse of String: it accepts exactly 16 hex characters
// (case-insensitive), byte 7 first and byte 0 last, and reports an error
// for anything else, never returning a partially-decoded GUID.
func Parse(s string) (GUID64, error) {
	var g GUID64
	if len(s) != 16 {
		return g, fmt.Errorf("guid: %q is not 16 hex characters", s)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("guid: parse %q: %w", s, err)
	}
	for i, b := range decoded {
		g[7-i] = b
	}
	return g, nil
}
