package asset

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxy-go/ren-core/core/guid"
	"github.com/stretchr/testify/require"
)

func sampleGltfDoc() *GltfDocument {
	return &GltfDocument{
		Meshes: []GltfMesh{
			{Name: "cube", Primitives: []GltfPrimitive{
				{Attributes: map[string]int{"POSITION": 0, "NORMAL": 1}, Indices: intPtr(2)},
			}},
		},
		Accessors: []GltfAccessor{
			{BufferView: 0, ComponentType: componentFloat, Count: 3, Type: "VEC3"},
			{BufferView: 1, ComponentType: componentFloat, Count: 3, Type: "VEC3"},
			{BufferView: 2, ComponentType: componentUnsignedShort, Count: 3, Type: "SCALAR"},
		},
		BufferViews: []GltfBufferView{
			{ByteOffset: 0, ByteLength: 36},
			{ByteOffset: 36, ByteLength: 36},
			{ByteOffset: 72, ByteLength: 6},
		},
	}
}

func intPtr(v int) *int { return &v }

func sampleBin() []byte {
	bin := make([]byte, 78)
	copy(bin[0:4], floatBin(0, 0, 0))
	copy(bin[4:8], floatBin(1, 0, 0))
	copy(bin[8:12], floatBin(0, 1, 0))
	copy(bin[36:40], floatBin(0, 0, 1))
	copy(bin[40:44], floatBin(0, 0, 1))
	copy(bin[44:48], floatBin(0, 0, 1))
	bin[72], bin[73] = 0, 0
	bin[74], bin[75] = 1, 0
	bin[76], bin[77] = 2, 0
	return bin
}

func TestBakeMeshBlobProducesMagicHeaderAndVertexCount(t *testing.T) {
	doc := sampleGltfDoc()
	blob, err := BakeMeshBlob(doc, sampleBin(), 0, 0)
	require.NoError(t, err)
	require.Greater(t, len(blob), 16)
	require.Equal(t, byte(0x48), blob[0]) // low byte of "MESH" magic, little-endian
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(blob[8:12])) // 9 position floats = 3 vertices
}

func TestBakeMeshBlobFailsWithoutPositionAttribute(t *testing.T) {
	doc := &GltfDocument{Meshes: []GltfMesh{{Primitives: []GltfPrimitive{{Attributes: map[string]int{}}}}}}
	_, err := BakeMeshBlob(doc, nil, 0, 0)
	require.Error(t, err)
}

func TestBakeMeshBlobFailsOnOutOfRangeMeshID(t *testing.T) {
	doc := sampleGltfDoc()
	_, err := BakeMeshBlob(doc, sampleBin(), 5, 0)
	require.Error(t, err)
}

func TestCompileMeshWritesBlobAtomically(t *testing.T) {
	dir := t.TempDir()
	gltfPath := filepath.Join(dir, "crate.gltf")
	binPath := filepath.Join(dir, "crate.bin")
	metaPath := gltfPath + MetaExt
	blobPath := filepath.Join(dir, "crate.blob")

	g := guid.ForMeshPrimitive("crate", "cube", 0)
	meta := MetaGltf{Src: "crate", Meshes: []MetaMesh{{Name: "cube", GUID: g}}}
	encoded, err := EncodeMetaGltf(meta)
	require.NoError(t, err)

	gltfBytes, err := json.Marshal(sampleGltfDoc())
	require.NoError(t, err)

	files := map[string][]byte{
		metaPath: encoded,
		gltfPath: gltfBytes,
		binPath:  sampleBin(),
	}
	readFile := func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return data, nil
	}

	src := MeshSource{GUID: g, GltfPath: gltfPath, BinPath: binPath, MeshID: 0, PrimitiveID: 0}
	require.NoError(t, CompileMesh(readFile, src, blobPath))

	got, err := os.ReadFile(blobPath)
	require.NoError(t, err)
	require.Greater(t, len(got), 0)
}

func TestCompileMeshFailsWhenGUIDNotInMeta(t *testing.T) {
	dir := t.TempDir()
	gltfPath := filepath.Join(dir, "crate.gltf")
	metaPath := gltfPath + MetaExt

	meta := MetaGltf{Src: "crate", Meshes: []MetaMesh{{Name: "cube", GUID: guid.New("other")}}}
	encoded, _ := EncodeMetaGltf(meta)

	files := map[string][]byte{metaPath: encoded}
	readFile := func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return data, nil
	}

	src := MeshSource{GUID: guid.New("missing"), GltfPath: gltfPath}
	err := CompileMesh(readFile, src, filepath.Join(dir, "out.blob"))
	require.Error(t, err)
}

func TestBinPathForGltfSwapsExtension(t *testing.T) {
	require.Equal(t, "/assets/crate.bin", BinPathForGltf("/assets/crate.gltf"))
}
