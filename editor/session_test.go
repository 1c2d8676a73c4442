package editor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oxy-go/ren-core/core/guid"
	"github.com/oxy-go/ren-core/core/job"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *Settings) {
	t.Helper()
	server := job.Launch(1)
	t.Cleanup(server.Stop)
	settings, err := NewSettings(t.TempDir())
	require.NoError(t, err)
	return NewSession(server, settings), settings
}

func TestNewSessionStartsInStartup(t *testing.T) {
	s, _ := newTestSession(t)
	require.Equal(t, StateStartup, s.State())
}

func TestNewProjectAtCreatesDirectoryLayoutAndOpens(t *testing.T) {
	s, _ := newTestSession(t)
	dir := filepath.Join(t.TempDir(), "MyGame")

	require.NoError(t, s.NewProjectAt(dir))
	require.Equal(t, StateProject, s.State())
	require.Equal(t, dir, s.ProjectDir())

	require.DirExists(t, filepath.Join(dir, "assets", "glTF"))
	require.DirExists(t, filepath.Join(dir, "content", "mesh"))
}

func TestNewProjectAtRecordsRecentlyOpened(t *testing.T) {
	s, settings := newTestSession(t)
	dir := filepath.Join(t.TempDir(), "MyGame")
	require.NoError(t, s.NewProjectAt(dir))

	entries, err := settings.RecentlyOpened()
	require.NoError(t, err)
	require.Equal(t, []string{dir}, entries)
}

func TestOpenProjectRegistersExistingScenes(t *testing.T) {
	s, _ := newTestSession(t)
	dir := t.TempDir()
	assetDir := filepath.Join(dir, "assets", "glTF")
	require.NoError(t, os.MkdirAll(assetDir, 0o755))

	metaJSON := `{"meshes":[{"name":"crate","mesh_id":0,"primitive_id":0,"guid":"0000000000000001"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf.meta"), []byte(metaJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf"), []byte("{}"), 0o644))

	require.NoError(t, s.OpenProject(dir))
	defer s.CloseProject()

	meshes := s.Registry().AllMeshes()
	require.Len(t, meshes, 1)
	require.Equal(t, "crate", meshes[0].Name)
}

func TestCloseProjectResetsState(t *testing.T) {
	s, _ := newTestSession(t)
	dir := filepath.Join(t.TempDir(), "MyGame")
	require.NoError(t, s.NewProjectAt(dir))

	s.CloseProject()
	require.Equal(t, StateStartup, s.State())
	require.Nil(t, s.Registry())
	require.Equal(t, "", s.ProjectDir())
}

func TestOpenProjectClosesPriorProject(t *testing.T) {
	s, _ := newTestSession(t)
	first := filepath.Join(t.TempDir(), "First")
	second := filepath.Join(t.TempDir(), "Second")

	require.NoError(t, s.NewProjectAt(first))
	require.NoError(t, s.NewProjectAt(second))
	require.Equal(t, second, s.ProjectDir())
}

func TestPumpFileEventsMarksChangedSceneDirty(t *testing.T) {
	s, _ := newTestSession(t)
	dir := t.TempDir()
	assetDir := filepath.Join(dir, "assets", "glTF")
	require.NoError(t, os.MkdirAll(assetDir, 0o755))

	metaJSON := `{"meshes":[{"name":"crate","mesh_id":0,"primitive_id":0,"guid":"0000000000000001"}]}`
	gltfPath := filepath.Join(assetDir, "crate.gltf")
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf.meta"), []byte(metaJSON), 0o644))
	require.NoError(t, os.WriteFile(gltfPath, []byte("{}"), 0o644))

	require.NoError(t, s.OpenProject(dir))
	defer s.CloseProject()

	require.NoError(t, os.WriteFile(gltfPath, []byte(`{"updated":true}`), 0o644))

	require.Eventually(t, func() bool {
		s.PumpFileEvents()
		dirty := s.Registry().DirtyMeshes()
		return len(dirty) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPumpFileEventsClearsDirtyFlagWhenBlobAppears(t *testing.T) {
	s, _ := newTestSession(t)
	dir := t.TempDir()
	assetDir := filepath.Join(dir, "assets", "glTF")
	require.NoError(t, os.MkdirAll(assetDir, 0o755))

	g := guid.ForMeshPrimitive("crate", "crate", 0)
	metaJSON := `{"meshes":[{"name":"crate","mesh_id":0,"primitive_id":0,"guid":"` + g.String() + `"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf.meta"), []byte(metaJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf"), []byte("{}"), 0o644))

	require.NoError(t, s.OpenProject(dir))
	defer s.CloseProject()

	s.Registry().MarkDirty("crate.gltf.meta")
	require.Len(t, s.Registry().DirtyMeshes(), 1)

	blobPath := filepath.Join(dir, "content", "mesh", g.String())
	require.NoError(t, os.WriteFile(blobPath, []byte("blob bytes"), 0o644))

	require.Eventually(t, func() bool {
		s.PumpFileEvents()
		return len(s.Registry().DirtyMeshes()) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPumpFileEventsReflagsMeshDirtyWhenBlobRemoved(t *testing.T) {
	s, _ := newTestSession(t)
	dir := t.TempDir()
	assetDir := filepath.Join(dir, "assets", "glTF")
	require.NoError(t, os.MkdirAll(assetDir, 0o755))

	g := guid.ForMeshPrimitive("crate", "crate", 0)
	metaJSON := `{"meshes":[{"name":"crate","mesh_id":0,"primitive_id":0,"guid":"` + g.String() + `"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf.meta"), []byte(metaJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "crate.gltf"), []byte("{}"), 0o644))

	blobPath := filepath.Join(dir, "content", "mesh", g.String())
	require.NoError(t, os.MkdirAll(filepath.Dir(blobPath), 0o755))
	require.NoError(t, os.WriteFile(blobPath, []byte("blob bytes"), 0o644))

	require.NoError(t, s.OpenProject(dir))
	defer s.CloseProject()
	require.Empty(t, s.Registry().DirtyMeshes(), "reconcileMeshContent should clear the flag for a blob already on disk at open")

	require.NoError(t, os.Remove(blobPath))

	require.Eventually(t, func() bool {
		s.PumpFileEvents()
		return len(s.Registry().DirtyMeshes()) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

// TestTrackAndPruneBackgroundJobs exercises TrackBackgroundJob/
// PruneBackgroundJobs from inside the dispatching job's own closure: a
// Token stays valid for Done/Wait only until the job that dispatched it
// finishes (its completion counter is recycled on that job's own retire),
// so checking it afterward would race the scheduler recycling the
// counter — core/job's own tests follow the same rule.
func TestTrackAndPruneBackgroundJobs(t *testing.T) {
	s, _ := newTestSession(t)

	var pruned int
	s.server.Run(job.Normal, func(ctx *job.Context) {
		tok := ctx.Dispatch(job.Desc{Fn: func(*job.Context) {}})
		s.TrackBackgroundJob("import", tok)
		require.Len(t, s.BackgroundJobs(), 1)

		ctx.Wait(tok)
		require.True(t, tok.Done())

		pruned = s.PruneBackgroundJobs()
	}, nil)

	require.Equal(t, 1, pruned)
	require.Empty(t, s.BackgroundJobs())
}
