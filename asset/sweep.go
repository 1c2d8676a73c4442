package asset

import (
	"github.com/oxy-go/ren-core/core/job"
	"golang.org/x/sync/errgroup"
)

// CompilationScope selects which meshes a sweep considers.
type CompilationScope int

const (
	// ScopeDirty compiles only meshes flagged dirty (the common hot-reload
	// path, triggered by the file watcher).
	ScopeDirty CompilationScope = iota
	// ScopeAll recompiles every registered mesh, used for a full rebuild.
	ScopeAll
)

// MaxCompileBatch mirrors launch_asset_compilation's batching: meshes are
// compiled in groups of 64 rather than all at once, so a stop request is
// never more than one batch away and a large scene doesn't flood the
// sweep's goroutine fan-out.
const MaxCompileBatch = 64

// compileTask is one unit of work in a sweep: enough to locate the mesh's
// meta/gltf/bin triple and where to write the resulting blob.
type compileTask struct {
	src      MeshSource
	blobPath string
}

// LaunchCompilation sweeps registry for meshes in scope, compiling each one
// in batches of MaxCompileBatch. readFile supplies file contents (injected
// so callers can compile against an in-memory or a real filesystem);
// blobPathFor maps a mesh's GUID hex string to the path its baked blob
// should be written to. The whole sweep runs as a single core/job at
// Normal priority; within each batch, compiles fan out over
// golang.org/x/sync/errgroup goroutines rather than child core/job jobs,
// since a compile is pure CPU/IO work with no need to suspend a fiber.
//
// A per-mesh compile failure is recorded in the returned CompileResult and
// never treated as a hard error — only a readFile/writeFile failure outside
// of CompileMesh's own handling would abort a batch via errgroup, and
// CompileMesh never returns one of those without also being captured
// per-task, so every task in an attempted batch always gets a result.
// Compilation stops early, leaving later tasks unattempted, if stop is
// signalled between batches.
//
// LaunchCompilation never touches registry's dirty flags: it only writes
// blob bytes under blobPathFor's paths. Clearing a mesh's dirty flag is the
// file watcher's job, driven off the resulting blob-write event (see
// Registry.MarkMeshCompiled and editor.Session's content/mesh watch), the
// same way register_mesh_content/unregister_mesh_content are driven from
// AssetWatcher rather than from the compiler in the source this mirrors.
func LaunchCompilation(server *job.Server, registry *Registry, scope CompilationScope, readFile func(string) ([]byte, error), blobPathFor func(guidHex string) string, stop *job.StopToken) []CompileResult {
	tasks := collectTasks(registry, scope, blobPathFor)
	if len(tasks) == 0 {
		return nil
	}

	var results []CompileResult

	server.Run(job.Normal, func(ctx *job.Context) {
		for start := 0; start < len(tasks); start += MaxCompileBatch {
			if stop != nil && stop.Stopped() {
				return
			}
			end := start + MaxCompileBatch
			if end > len(tasks) {
				end = len(tasks)
			}
			batch := tasks[start:end]
			batchResults := make([]CompileResult, len(batch))

			var g errgroup.Group
			for i, t := range batch {
				i, t := i, t
				g.Go(func() error {
					err := CompileMesh(readFile, t.src, t.blobPath)
					batchResults[i] = CompileResult{GUID: t.src.GUID, Err: err}
					return nil
				})
			}
			_ = g.Wait() // never non-nil: every task captures its own error above

			results = append(results, batchResults...)
		}
	}, stop)

	return results
}

func collectTasks(registry *Registry, scope CompilationScope, blobPathFor func(string) string) []compileTask {
	var meshes []EditorMesh
	switch scope {
	case ScopeAll:
		meshes = registry.AllMeshes()
	default:
		meshes = registry.DirtyMeshes()
	}

	tasks := make([]compileTask, 0, len(meshes))
	for _, m := range meshes {
		scene, ok := registry.Scene(m.Scene)
		if !ok {
			continue
		}
		tasks = append(tasks, compileTask{
			src: MeshSource{
				GUID:        m.GUID,
				GltfPath:    scene.GltfFilename,
				BinPath:     scene.BinFilename,
				MeshID:      m.MeshID,
				PrimitiveID: m.PrimitiveID,
			},
			blobPath: blobPathFor(m.GUID.String()),
		})
	}
	return tasks
}
