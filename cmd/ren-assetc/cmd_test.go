package main

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxy-go/ren-core/asset"
	"github.com/stretchr/testify/require"
)

func floatBytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func setupFixture(t *testing.T) (dir, gltfPath string) {
	t.Helper()
	dir = t.TempDir()
	gltfPath = filepath.Join(dir, "crate.gltf")
	binPath := filepath.Join(dir, "crate.bin")

	doc := asset.GltfDocument{
		Meshes: []asset.GltfMesh{
			{Name: "cube", Primitives: []asset.GltfPrimitive{
				{Attributes: map[string]int{"POSITION": 0}},
			}},
		},
		Accessors: []asset.GltfAccessor{
			{BufferView: 0, ComponentType: 5126, Count: 3, Type: "VEC3"},
		},
		BufferViews: []asset.GltfBufferView{
			{ByteOffset: 0, ByteLength: 36},
		},
	}
	encoded, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(gltfPath, encoded, 0o644))

	bin := floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	require.NoError(t, os.WriteFile(binPath, bin, 0o644))

	return dir, gltfPath
}

func TestRunCompileImportsAndCompiles(t *testing.T) {
	_, gltfPath := setupFixture(t)

	err := runCompile(options{file: gltfPath})
	require.NoError(t, err)

	require.FileExists(t, gltfPath+asset.MetaExt)
}

func TestRunCompileFailsWithoutFile(t *testing.T) {
	err := runCompile(options{})
	require.Error(t, err)
}

func TestRunCompileRecordsEnvMap(t *testing.T) {
	_, gltfPath := setupFixture(t)

	err := runCompile(options{file: gltfPath, envMap: "/textures/studio.hdr"})
	require.NoError(t, err)

	data, err := os.ReadFile(gltfPath + ".envmap")
	require.NoError(t, err)
	require.Equal(t, "/textures/studio.hdr", string(data))
}

func TestRunCompileWithStressEntities(t *testing.T) {
	_, gltfPath := setupFixture(t)

	err := runCompile(options{file: gltfPath, numEntities: 5})
	require.NoError(t, err)
}

func TestNewRootCmdBindsFileFlag(t *testing.T) {
	cmd := newRootCmd()
	f := cmd.Flags().Lookup("file")
	require.NotNil(t, f)
	require.Equal(t, "f", f.Shorthand)
}
