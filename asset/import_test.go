package asset

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportSceneWritesMetaAndRegistersMeshes(t *testing.T) {
	doc := sampleGltfDoc()
	gltfBytes, err := json.Marshal(doc)
	require.NoError(t, err)

	files := map[string][]byte{"crate.gltf": gltfBytes}
	readFile := func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return data, nil
	}
	writeFile := func(path string, data []byte) error {
		files[path] = data
		return nil
	}

	registry := NewRegistry()
	result, err := ImportScene(registry, readFile, writeFile, "crate.gltf")
	require.NoError(t, err)
	require.Equal(t, "crate.gltf.meta", result.MetaFilename)
	require.NotEmpty(t, result.Meta.Meshes)

	_, ok := files["crate.gltf.meta"]
	require.True(t, ok)
	require.Equal(t, len(result.Meta.Meshes), registry.MeshCount())
}

func TestImportScenePreservesGUIDsOnReimport(t *testing.T) {
	doc := sampleGltfDoc()
	gltfBytes, err := json.Marshal(doc)
	require.NoError(t, err)

	files := map[string][]byte{"crate.gltf": gltfBytes}
	readFile := func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return data, nil
	}
	writeFile := func(path string, data []byte) error {
		files[path] = data
		return nil
	}

	registry := NewRegistry()
	first, err := ImportScene(registry, readFile, writeFile, "crate.gltf")
	require.NoError(t, err)

	second, err := ImportScene(registry, readFile, writeFile, "crate.gltf")
	require.NoError(t, err)

	require.Equal(t, first.Meta.Meshes[0].GUID, second.Meta.Meshes[0].GUID)
}

func TestImportSceneFailsOnUnreadableSource(t *testing.T) {
	readFile := func(path string) ([]byte, error) { return nil, os.ErrNotExist }
	writeFile := func(path string, data []byte) error { return nil }

	_, err := ImportScene(NewRegistry(), readFile, writeFile, "missing.gltf")
	require.Error(t, err)
}
