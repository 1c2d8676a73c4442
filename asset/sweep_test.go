package asset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxy-go/ren-core/core/guid"
	"github.com/oxy-go/ren-core/core/job"
	"github.com/stretchr/testify/require"
)

// fakeFS backs LaunchCompilation's readFile/blobPathFor with an in-memory
// map so the sweep test never touches a real filesystem.
type fakeFS struct {
	files map[string][]byte
}

func (f *fakeFS) read(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func newFakeSceneFS(t *testing.T, stem string) (*fakeFS, MetaGltf) {
	t.Helper()
	doc := sampleGltfDoc()
	gltfPath := stem + ".gltf"
	binPath := stem + ".bin"
	meta := GenerateMetaGltf(doc, stem)

	gltfBytes, err := json.Marshal(doc)
	require.NoError(t, err)
	metaBytes, err := EncodeMetaGltf(meta)
	require.NoError(t, err)

	return &fakeFS{files: map[string][]byte{
		gltfPath:         gltfBytes,
		binPath:          sampleBin(),
		gltfPath + MetaExt: metaBytes,
	}}, meta
}

func TestLaunchCompilationCompilesDirtyMeshesWithoutTouchingDirtyFlags(t *testing.T) {
	fs, meta := newFakeSceneFS(t, "crate")
	registry := NewRegistry()
	registry.RegisterGltfScene(meta, "crate.gltf.meta", "crate.gltf", "crate.bin")
	registry.MarkDirty("crate.gltf.meta")

	server := job.Launch(2)
	defer server.Stop()

	blobDir := t.TempDir()
	results := LaunchCompilation(server, registry, ScopeDirty, fs.read, func(g string) string {
		return filepath.Join(blobDir, g)
	}, nil)

	require.Len(t, results, len(meta.Meshes))
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	// Clearing the dirty flag is the file watcher's job once it observes
	// the blob write, not the compiler's; the sweep itself leaves every
	// mesh it just compiled still flagged dirty.
	require.Len(t, registry.DirtyMeshes(), len(meta.Meshes))
	for _, mesh := range meta.Meshes {
		_, err := os.Stat(filepath.Join(blobDir, mesh.GUID.String()))
		require.NoError(t, err)
	}
}

func TestLaunchCompilationReturnsNilWhenNothingDirty(t *testing.T) {
	registry := NewRegistry()
	server := job.Launch(1)
	defer server.Stop()

	results := LaunchCompilation(server, registry, ScopeDirty, func(string) ([]byte, error) { return nil, nil }, func(g string) string { return g }, nil)
	require.Nil(t, results)
}

func TestLaunchCompilationRecordsErrorForUnreadableSource(t *testing.T) {
	registry := NewRegistry()
	missingGUID := guid.New("missing")
	meta := MetaGltf{Meshes: []MetaMesh{{Name: "ghost", GUID: missingGUID}}}
	registry.RegisterGltfScene(meta, "ghost.meta", "ghost.gltf", "ghost.bin")
	registry.MarkDirty("ghost.meta")

	server := job.Launch(1)
	defer server.Stop()

	readFile := func(path string) ([]byte, error) { return nil, os.ErrNotExist }
	results := LaunchCompilation(server, registry, ScopeDirty, readFile, func(g string) string {
		return fmt.Sprintf("/out/%s.blob", g)
	}, nil)

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	require.Len(t, registry.DirtyMeshes(), 1)
}

func TestLaunchCompilationStopsBetweenBatches(t *testing.T) {
	registry := NewRegistry()
	var meshes []MetaMesh
	for i := 0; i < MaxCompileBatch+5; i++ {
		meshes = append(meshes, MetaMesh{Name: fmt.Sprintf("m%d", i), GUID: guid.New(fmt.Sprintf("m%d", i))})
	}
	meta := MetaGltf{Meshes: meshes}
	registry.RegisterGltfScene(meta, "big.meta", "big.gltf", "big.bin")
	registry.MarkDirty("big.meta")

	server := job.Launch(2)
	defer server.Stop()

	stop := job.NewStopToken()
	stop.Stop()

	readFile := func(path string) ([]byte, error) { return nil, os.ErrNotExist }
	results := LaunchCompilation(server, registry, ScopeDirty, readFile, func(g string) string { return g }, stop)

	require.Empty(t, results)
	require.Len(t, registry.DirtyMeshes(), MaxCompileBatch+5)
}
