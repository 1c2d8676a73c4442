package asset

import (
	"testing"

	"github.com/oxy-go/ren-core/core/guid"
	"github.com/stretchr/testify/require"
)

func TestMetaMeshJSONRoundTripsGUIDAsHexString(t *testing.T) {
	m := MetaMesh{Name: "cube", MeshID: 1, PrimitiveID: 0, GUID: guid.ForMeshPrimitive("crate", "cube", 0)}

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(data), m.GUID.String())

	var got MetaMesh
	require.NoError(t, got.UnmarshalJSON(data))
	require.Equal(t, m, got)
}

func TestMetaMeshUnmarshalRejectsInvalidGUID(t *testing.T) {
	var m MetaMesh
	err := m.UnmarshalJSON([]byte(`{"name":"x","mesh_id":0,"primitive_id":0,"guid":"not-hex"}`))
	require.Error(t, err)
}

func TestParseMetaGltfRoundTripsThroughEncode(t *testing.T) {
	meta := MetaGltf{
		Src: "crate",
		Meshes: []MetaMesh{
			{Name: "a", GUID: guid.ForMeshPrimitive("crate", "a", 0)},
			{Name: "b", GUID: guid.ForMeshPrimitive("crate", "b", 0)},
		},
	}

	encoded, err := EncodeMetaGltf(meta)
	require.NoError(t, err)

	decoded, err := ParseMetaGltf("crate.gltf.meta", encoded)
	require.NoError(t, err)
	require.Equal(t, meta, decoded)
}

func TestParseMetaGltfReturnsParseErrorOnMalformedJSON(t *testing.T) {
	_, err := ParseMetaGltf("bad.meta", []byte("{not json"))
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "bad.meta", parseErr.File)
	require.Equal(t, CategorySyntax, parseErr.Category)
	require.Equal(t, 1, parseErr.Line)
}

func TestFindMeshLocatesByGUID(t *testing.T) {
	target := guid.ForMeshPrimitive("crate", "lid", 0)
	meta := MetaGltf{Meshes: []MetaMesh{
		{Name: "body", GUID: guid.ForMeshPrimitive("crate", "body", 0)},
		{Name: "lid", GUID: target},
	}}

	mesh, ok := meta.FindMesh(target)
	require.True(t, ok)
	require.Equal(t, "lid", mesh.Name)

	_, ok = meta.FindMesh(guid.New("nonexistent"))
	require.False(t, ok)
}

func TestGenerateMetaGltfMintsStableGUIDsPerPrimitive(t *testing.T) {
	doc := &GltfDocument{Meshes: []GltfMesh{
		{Name: "cube", Primitives: []GltfPrimitive{{}, {}}},
	}}

	a := GenerateMetaGltf(doc, "crate")
	b := GenerateMetaGltf(doc, "crate")

	require.Len(t, a.Meshes, 2)
	require.Equal(t, a.Meshes[0].GUID, b.Meshes[0].GUID)
	require.Equal(t, a.Meshes[1].GUID, b.Meshes[1].GUID)
	require.NotEqual(t, a.Meshes[0].GUID, a.Meshes[1].GUID)
}
