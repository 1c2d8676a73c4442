package asset

import (
	"fmt"
	"sync"

	"github.com/oxy-go/ren-core/core/genindex"
	"github.com/oxy-go/ren-core/core/guid"
)

// EditorMesh is one registered primitive: its content-addressed GUID, the
// canonical name it was compiled under, and whether it needs recompiling.
type EditorMesh struct {
	GUID        guid.GUID64
	Name        string
	Scene       string // meta filename this mesh belongs to
	MeshID      uint32
	PrimitiveID uint32
	IsDirty     bool
}

// MeshHandle identifies an EditorMesh inside a Registry.
type MeshHandle = genindex.Handle[EditorMesh]

// EditorGltfScene is one imported .gltf source file and the meshes
// registered from its meta sidecar.
type EditorGltfScene struct {
	BinFilename  string
	GltfFilename string
	MetaFilename string
	Meshes       []MeshHandle
}

// Registry tracks every imported glTF scene and mesh primitive the editor
// knows about, playing the same role as EditorContext's m_gltf_scenes /
// m_meshes maps in the source this generalizes.
type Registry struct {
	mu     sync.RWMutex
	meshes *genindex.HandleMap[EditorMesh]
	scenes map[string]*EditorGltfScene // keyed by meta filename
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		meshes: genindex.NewHandleMap[EditorMesh](),
		scenes: make(map[string]*EditorGltfScene),
	}
}

// RegisterGltfScene records meta's meshes under metaFilename, replacing any
// previous registration for that file (re-importing a scene is expected to
// fully supersede its old mesh list).
func (r *Registry) RegisterGltfScene(meta MetaGltf, metaFilename, gltfFilename, binFilename string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unregisterLocked(metaFilename)

	scene := &EditorGltfScene{
		BinFilename:  binFilename,
		GltfFilename: gltfFilename,
		MetaFilename: metaFilename,
	}
	for _, mesh := range meta.Meshes {
		h := r.meshes.Insert(EditorMesh{
			GUID:        mesh.GUID,
			Name:        mesh.Name,
			Scene:       metaFilename,
			MeshID:      mesh.MeshID,
			PrimitiveID: mesh.PrimitiveID,
		})
		scene.Meshes = append(scene.Meshes, h)
	}
	r.scenes[metaFilename] = scene
}

// UnregisterGltfScene removes metaFilename's scene and every mesh it owns.
func (r *Registry) UnregisterGltfScene(metaFilename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(metaFilename)
}

func (r *Registry) unregisterLocked(metaFilename string) {
	scene, ok := r.scenes[metaFilename]
	if !ok {
		return
	}
	for _, h := range scene.Meshes {
		r.meshes.Erase(h.GenIndex)
	}
	delete(r.scenes, metaFilename)
}

// UnregisterAll clears the registry entirely.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meshes.Clear()
	r.scenes = make(map[string]*EditorGltfScene)
}

// MarkDirty flags every mesh belonging to metaFilename's scene as needing
// recompilation, called when the file watcher reports the source changed.
func (r *Registry) MarkDirty(metaFilename string) {
	r.setDirty(metaFilename, true)
}

// MarkNotDirty clears the dirty flag for every mesh in metaFilename's
// scene.
func (r *Registry) MarkNotDirty(metaFilename string) {
	r.setDirty(metaFilename, false)
}

// MarkMeshCompiled clears the dirty flag for the single mesh identified by
// g. This is driven by the file watcher observing a successful blob write
// under content/mesh, mirroring register_mesh_content, not by the compiler
// itself: compilation only produces bytes on disk, it never touches the
// handle map.
func (r *Registry) MarkMeshCompiled(g guid.GUID64) {
	r.setMeshDirtyByGUID(g, false)
}

// MarkMeshDirty flags the single mesh identified by g as needing
// recompilation. This is driven by the file watcher observing content/mesh's
// blob removed or invalidated, mirroring unregister_mesh_content.
func (r *Registry) MarkMeshDirty(g guid.GUID64) {
	r.setMeshDirtyByGUID(g, true)
}

func (r *Registry) setMeshDirtyByGUID(g guid.GUID64, dirty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target MeshHandle
	var mesh EditorMesh
	found := false
	r.meshes.Each(func(k genindex.GenIndex, v EditorMesh) {
		if !found && v.GUID == g {
			target = genindex.NewHandle[EditorMesh](k)
			mesh = v
			found = true
		}
	})
	if !found {
		return
	}
	mesh.IsDirty = dirty
	r.setMeshLocked(target, mesh)
}

func (r *Registry) setDirty(metaFilename string, dirty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scene, ok := r.scenes[metaFilename]
	if !ok {
		return
	}
	for _, h := range scene.Meshes {
		mesh, ok := r.meshes.Get(h.GenIndex)
		if !ok {
			continue
		}
		mesh.IsDirty = dirty
		r.setMeshLocked(h, mesh)
	}
}

// setMeshLocked overwrites the mesh stored under h in place. h's slot and
// generation never change, so every handle a caller is already holding
// (e.g. across a dirty-flag toggle triggered by a file-watch event) stays
// valid.
func (r *Registry) setMeshLocked(h MeshHandle, mesh EditorMesh) {
	r.meshes.Set(h.GenIndex, mesh)
}

// Mesh returns the mesh registered under h.
func (r *Registry) Mesh(h MeshHandle) (EditorMesh, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.meshes.Get(h.GenIndex)
}

// Scene returns the scene registered under metaFilename.
func (r *Registry) Scene(metaFilename string) (*EditorGltfScene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[metaFilename]
	return s, ok
}

// DirtyMeshes returns every mesh currently flagged dirty, across every
// registered scene.
func (r *Registry) DirtyMeshes() []EditorMesh {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []EditorMesh
	r.meshes.Each(func(_ genindex.GenIndex, v EditorMesh) {
		if v.IsDirty {
			out = append(out, v)
		}
	})
	return out
}

// AllMeshes returns every registered mesh.
func (r *Registry) AllMeshes() []EditorMesh {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []EditorMesh
	r.meshes.Each(func(_ genindex.GenIndex, v EditorMesh) { out = append(out, v) })
	return out
}

// MeshCount returns the number of currently registered meshes.
func (r *Registry) MeshCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.meshes.Len()
}

// String implements fmt.Stringer for diagnostics logging.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("Registry{scenes=%d meshes=%d}", len(r.scenes), r.meshes.Len())
}
