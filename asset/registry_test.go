package asset

import (
	"testing"

	"github.com/oxy-go/ren-core/core/guid"
	"github.com/stretchr/testify/require"
)

func twoMeshMeta() MetaGltf {
	return MetaGltf{
		Src: "crate",
		Meshes: []MetaMesh{
			{Name: "body", GUID: guid.ForMeshPrimitive("crate", "body", 0)},
			{Name: "lid", GUID: guid.ForMeshPrimitive("crate", "lid", 0)},
		},
	}
}

func TestRegisterGltfSceneAddsMeshesToRegistry(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "crate.gltf.meta", "crate.gltf", "crate.bin")

	require.Equal(t, 2, r.MeshCount())
	scene, ok := r.Scene("crate.gltf.meta")
	require.True(t, ok)
	require.Len(t, scene.Meshes, 2)
}

func TestRegisterGltfSceneReplacesPriorRegistration(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "crate.gltf.meta", "crate.gltf", "crate.bin")

	smaller := MetaGltf{Meshes: []MetaMesh{{Name: "body", GUID: guid.ForMeshPrimitive("crate", "body", 0)}}}
	r.RegisterGltfScene(smaller, "crate.gltf.meta", "crate.gltf", "crate.bin")

	require.Equal(t, 1, r.MeshCount())
}

func TestUnregisterGltfSceneRemovesItsMeshes(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "crate.gltf.meta", "crate.gltf", "crate.bin")
	r.UnregisterGltfScene("crate.gltf.meta")

	require.Equal(t, 0, r.MeshCount())
	_, ok := r.Scene("crate.gltf.meta")
	require.False(t, ok)
}

func TestUnregisterAllClearsEverything(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "a.meta", "a.gltf", "a.bin")
	r.RegisterGltfScene(twoMeshMeta(), "b.meta", "b.gltf", "b.bin")

	r.UnregisterAll()

	require.Equal(t, 0, r.MeshCount())
	_, ok := r.Scene("a.meta")
	require.False(t, ok)
}

func TestMarkDirtyFlagsEveryMeshInScene(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "crate.gltf.meta", "crate.gltf", "crate.bin")

	r.MarkDirty("crate.gltf.meta")

	dirty := r.DirtyMeshes()
	require.Len(t, dirty, 2)
}

func TestMarkNotDirtyClearsFlagForScene(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "crate.gltf.meta", "crate.gltf", "crate.bin")
	r.MarkDirty("crate.gltf.meta")

	r.MarkNotDirty("crate.gltf.meta")

	require.Empty(t, r.DirtyMeshes())
}

func TestMarkMeshCompiledClearsOnlyThatMesh(t *testing.T) {
	r := NewRegistry()
	meta := twoMeshMeta()
	r.RegisterGltfScene(meta, "crate.gltf.meta", "crate.gltf", "crate.bin")
	r.MarkDirty("crate.gltf.meta")

	r.MarkMeshCompiled(meta.Meshes[0].GUID)

	dirty := r.DirtyMeshes()
	require.Len(t, dirty, 1)
	require.Equal(t, meta.Meshes[1].GUID, dirty[0].GUID)
}

func TestMarkMeshDirtyReflagsACompiledMesh(t *testing.T) {
	r := NewRegistry()
	meta := twoMeshMeta()
	r.RegisterGltfScene(meta, "crate.gltf.meta", "crate.gltf", "crate.bin")
	r.MarkMeshCompiled(meta.Meshes[0].GUID)

	r.MarkMeshDirty(meta.Meshes[0].GUID)

	dirty := r.DirtyMeshes()
	require.Len(t, dirty, 1)
	require.Equal(t, meta.Meshes[0].GUID, dirty[0].GUID)
}

func TestDirtyFlagToggleKeepsHandleStable(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "crate.gltf.meta", "crate.gltf", "crate.bin")
	scene, ok := r.Scene("crate.gltf.meta")
	require.True(t, ok)
	h := scene.Meshes[0]

	r.MarkDirty("crate.gltf.meta")
	r.MarkNotDirty("crate.gltf.meta")

	mesh, ok := r.Mesh(h)
	require.True(t, ok, "handle taken before a dirty-flag toggle must still resolve afterward")
	require.False(t, mesh.IsDirty)

	scene, ok = r.Scene("crate.gltf.meta")
	require.True(t, ok)
	require.Equal(t, h, scene.Meshes[0], "scene's handle list must not repoint to a new slot/generation")
}

func TestAllMeshesReturnsEveryRegisteredMesh(t *testing.T) {
	r := NewRegistry()
	r.RegisterGltfScene(twoMeshMeta(), "a.meta", "a.gltf", "a.bin")
	require.Len(t, r.AllMeshes(), 2)
}
