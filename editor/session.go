package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oxy-go/ren-core/asset"
	"github.com/oxy-go/ren-core/core/filewatch"
	"github.com/oxy-go/ren-core/core/guid"
	"github.com/oxy-go/ren-core/core/job"
)

// State is the editor's top-level mode, mirroring EditorState in the
// source this generalizes.
type State int

const (
	StateStartup State = iota
	StateProject
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateProject:
		return "Project"
	case StateQuit:
		return "Quit"
	default:
		return "Startup"
	}
}

// assetGltfSubdir/contentMeshSubdir mirror ASSET_DIR/GLTF_DIR/CONTENT_DIR/
// MESH_DIR from the source: every project shares this directory layout.
const (
	assetGltfSubdir   = "assets/glTF"
	contentMeshSubdir = "content/mesh"
)

// BackgroundJob tracks one job dispatched outside the normal per-frame
// sweep (an import, a full rebuild) so the editor can show its progress
// and is never surprised by a job still running after the project that
// started it closes.
type BackgroundJob struct {
	Label string
	Token *job.Token
}

// Done reports whether the job this entry tracks has finished.
func (b BackgroundJob) Done() bool { return b.Token.Done() }

// Session owns one editor project's live state: its job server, asset
// registry, file watcher, and background job list. NewSession constructs
// it around an already-launched job.Server, since the server and its
// worker pool are process lifetime, not project lifetime.
type Session struct {
	mu sync.Mutex

	server   *job.Server
	settings *Settings

	state      State
	projectDir string
	registry   *asset.Registry
	watcher    *filewatch.Watcher // assets/glTF: marks sources dirty
	contentDir string
	contentWatcher *filewatch.Watcher // content/mesh: marks meshes compiled/dirty from blob writes

	backgroundJobs []BackgroundJob
}

// NewSession returns a Session in StateStartup, not yet attached to any
// project.
func NewSession(server *job.Server, settings *Settings) *Session {
	return &Session{server: server, settings: settings, state: StateStartup}
}

// State returns the session's current top-level mode.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Registry returns the current project's asset registry, or nil if no
// project is open.
func (s *Session) Registry() *asset.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// ProjectDir returns the currently open project's root directory, or "" if
// no project is open.
func (s *Session) ProjectDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectDir
}

// NewProjectAt creates a fresh project directory structure at dir
// (assets/glTF and content/mesh, matching the source's ASSET_DIR/
// CONTENT_DIR layout) and opens it.
func (s *Session) NewProjectAt(dir string) error {
	for _, sub := range []string{assetGltfSubdir, contentMeshSubdir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("editor: create project directory %s: %w", filepath.Join(dir, sub), err)
		}
	}
	return s.OpenProject(dir)
}

// OpenProject closes any currently open project, then loads dir as the
// active project: every *.gltf.meta sidecar under assets/glTF is parsed
// and registered, and a file watcher is started on the project's asset
// directory so future edits mark their meshes dirty. dir is recorded as
// the most-recently-opened project.
func (s *Session) OpenProject(dir string) error {
	s.CloseProject()

	registry := asset.NewRegistry()
	assetDir := filepath.Join(dir, assetGltfSubdir)
	if err := registerExistingScenes(registry, assetDir); err != nil {
		return err
	}

	watcher, err := filewatch.New(assetDir, time.Second)
	if err != nil {
		return fmt.Errorf("editor: watch %s: %w", assetDir, err)
	}

	contentDir := filepath.Join(dir, contentMeshSubdir)
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		watcher.Close()
		return fmt.Errorf("editor: create %s: %w", contentDir, err)
	}
	contentWatcher, err := filewatch.New(contentDir, time.Second)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("editor: watch %s: %w", contentDir, err)
	}

	s.mu.Lock()
	s.projectDir = dir
	s.registry = registry
	s.watcher = watcher
	s.contentDir = contentDir
	s.contentWatcher = contentWatcher
	s.state = StateProject
	s.mu.Unlock()

	if err := reconcileMeshContent(registry, contentDir); err != nil {
		return err
	}

	if s.settings != nil {
		if err := s.settings.AddRecentlyOpened(dir); err != nil {
			return err
		}
	}
	return nil
}

// CloseProject stops the active project's file watcher (if any) and
// returns the session to StateStartup. It is a no-op if no project is
// open.
func (s *Session) CloseProject() {
	s.mu.Lock()
	watcher := s.watcher
	contentWatcher := s.contentWatcher
	s.watcher = nil
	s.contentWatcher = nil
	s.contentDir = ""
	s.registry = nil
	s.projectDir = ""
	if s.state == StateProject {
		s.state = StateStartup
	}
	s.mu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
	if contentWatcher != nil {
		contentWatcher.Close()
	}
}

// Quit marks the session for shutdown; the caller's main loop should exit
// once it observes State() == StateQuit.
func (s *Session) Quit() {
	s.mu.Lock()
	s.state = StateQuit
	s.mu.Unlock()
}

// TrackBackgroundJob records tok under label so its completion can be
// polled by PruneBackgroundJobs/BackgroundJobs.
func (s *Session) TrackBackgroundJob(label string, tok *job.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backgroundJobs = append(s.backgroundJobs, BackgroundJob{Label: label, Token: tok})
}

// BackgroundJobs returns the currently tracked background jobs.
func (s *Session) BackgroundJobs() []BackgroundJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BackgroundJob, len(s.backgroundJobs))
	copy(out, s.backgroundJobs)
	return out
}

// PruneBackgroundJobs drops every tracked job that has finished, returning
// the number removed. Call this once per frame.
func (s *Session) PruneBackgroundJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.backgroundJobs[:0]
	removed := 0
	for _, j := range s.backgroundJobs {
		if j.Done() {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	s.backgroundJobs = kept
	return removed
}

// PumpFileEvents drains the project's file watchers (non-blocking): the
// assets/glTF watcher marks a changed source's meshes dirty, and the
// content/mesh watcher marks an individual mesh compiled or dirty again as
// its baked blob is written or removed — compilation itself never mutates
// the registry (see asset.LaunchCompilation), this is the decoupled path
// that does. It returns the number of events processed across both
// watchers; callers should call this once per frame while a project is
// open.
func (s *Session) PumpFileEvents() int {
	s.mu.Lock()
	watcher := s.watcher
	contentWatcher := s.contentWatcher
	registry := s.registry
	contentDir := s.contentDir
	s.mu.Unlock()

	processed := drainEvents(watcher, func(ev filewatch.Event) {
		handleFileEvent(registry, ev)
	})
	processed += drainEvents(contentWatcher, func(ev filewatch.Event) {
		if ev.Type == filewatch.Fuzzy {
			reconcileMeshContent(registry, contentDir)
			return
		}
		handleMeshContentEvent(registry, ev)
	})
	return processed
}

// drainEvents empties watcher's event channel without blocking, calling
// handle for each event. It is a no-op for a nil watcher.
func drainEvents(watcher *filewatch.Watcher, handle func(filewatch.Event)) int {
	if watcher == nil {
		return 0
	}
	processed := 0
drain:
	for {
		select {
		case ev, ok := <-watcher.Events():
			if !ok {
				break drain
			}
			processed++
			handle(ev)
		default:
			break drain
		}
	}
	return processed
}

func handleFileEvent(registry *asset.Registry, ev filewatch.Event) {
	if registry == nil {
		return
	}
	switch ev.Type {
	case filewatch.Modified, filewatch.Created, filewatch.Fuzzy:
		if strings.HasSuffix(ev.Filename, ".gltf") {
			registry.MarkDirty(ev.Path() + asset.MetaExt)
		}
	}
}

// handleMeshContentEvent reacts to one content/mesh event: a blob
// created/modified/renamed-in clears its mesh's dirty flag (the compile
// that produced it is now visible on disk), a blob removed or renamed-away
// flags it dirty again. This mirrors register_mesh_content/
// unregister_mesh_content being driven from AssetWatcher's per-file branch
// rather than from the compiler.
func handleMeshContentEvent(registry *asset.Registry, ev filewatch.Event) {
	if registry == nil {
		return
	}
	g, err := guid.Parse(ev.Filename)
	if err != nil {
		return
	}
	switch ev.Type {
	case filewatch.Modified, filewatch.Created, filewatch.RenamedTo:
		registry.MarkMeshCompiled(g)
	case filewatch.Removed, filewatch.RenamedFrom:
		registry.MarkMeshDirty(g)
	}
}

// reconcileMeshContent reconciles every registered mesh's dirty flag
// against what is actually present under dir, matching
// unregister_all_mesh_content followed by register_all_mesh_content: every
// mesh is flagged dirty first, then un-flagged again for each blob whose
// filename parses as a GUID still found on disk. Called when a project is
// opened and on every Fuzzy content/mesh event.
func reconcileMeshContent(registry *asset.Registry, dir string) error {
	if registry == nil {
		return nil
	}
	for _, mesh := range registry.AllMeshes() {
		registry.MarkMeshDirty(mesh.GUID)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("editor: list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		g, err := guid.Parse(entry.Name())
		if err != nil {
			continue
		}
		registry.MarkMeshCompiled(g)
	}
	return nil
}

// registerExistingScenes walks dir for *.gltf.meta sidecars and registers
// each into registry, matching register_all_gltf_scenes.
func registerExistingScenes(registry *asset.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("editor: list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), asset.MetaExt) {
			continue
		}
		metaPath := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(metaPath)
		if err != nil {
			return fmt.Errorf("editor: read %s: %w", metaPath, err)
		}
		meta, err := asset.ParseMetaGltf(metaPath, data)
		if err != nil {
			return err
		}
		gltfPath := strings.TrimSuffix(metaPath, asset.MetaExt)
		registry.RegisterGltfScene(meta, metaPath, gltfPath, asset.BinPathForGltf(gltfPath))
	}
	return nil
}
