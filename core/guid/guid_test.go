package guid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New("crate.gltf::Body::0")
	b := New("crate.gltf::Body::0")
	require.Equal(t, a, b)
}

func TestNewDistinguishesDifferentKeys(t *testing.T) {
	a := New("crate.gltf::Body::0")
	b := New("crate.gltf::Body::1")
	require.NotEqual(t, a, b)
}

func TestStringParseRoundTrip(t *testing.T) {
	g := New("crate.gltf::Body::0")
	s := g.String()
	require.Len(t, s, 16)

	parsed, err := Parse(s)
	require.NoError(t, err)
	require.Equal(t, g, parsed)
}

func TestParseRejectsWrongLength(t *testing.T) {
	_, err := Parse("ABCD")
	require.Error(t, err)
}

func TestParseRejectsNonHex(t *testing.T) {
	_, err := Parse("ZZZZZZZZZZZZZZZZ")
	require.Error(t, err)
}

func TestParseIsCaseInsensitive(t *testing.T) {
	g := New("crate.gltf::Body::0")
	lower, err := Parse(strings.ToLower(g.String()))
	require.NoError(t, err)
	require.Equal(t, g, lower)
}

func TestForMeshPrimitiveMatchesCanonicalKey(t *testing.T) {
	a := ForMeshPrimitive("crate", "Body", 0)
	b := New("crate::Body::0")
	require.Equal(t, a, b)
}

func TestZeroGUIDIsZero(t *testing.T) {
	require.True(t, Zero.IsZero())
	require.False(t, New("x").IsZero())
}
