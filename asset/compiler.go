package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oxy-go/ren-core/core/guid"
	"github.com/oxy-go/ren-core/core/ioutil"
)

// blobMagic/blobVersion tag baked mesh blobs so the runtime loader can
// sanity-check a file before trusting its contents.
const (
	blobMagic   uint32 = 0x4d455348 // "MESH"
	blobVersion uint32 = 1
)

// MeshSource is everything compile_mesh needs to locate one primitive
// inside a glTF document plus its binary buffer.
type MeshSource struct {
	GUID        guid.GUID64
	GltfPath    string
	BinPath     string
	MeshID      uint32
	PrimitiveID uint32
}

// BakeMeshBlob extracts one primitive's vertex/index data out of doc+bin
// and serializes it into the runtime blob format: a fixed header followed
// by tightly-packed float32/uint32 arrays, mirroring bake_mesh_to_memory's
// "positions, normals, tangents, uvs, colors, indices" layout.
func BakeMeshBlob(doc *GltfDocument, bin []byte, meshID, primitiveID uint32) ([]byte, error) {
	if int(meshID) >= len(doc.Meshes) {
		return nil, fmt.Errorf("asset: mesh id %d out of range", meshID)
	}
	mesh := doc.Meshes[meshID]
	if int(primitiveID) >= len(mesh.Primitives) {
		return nil, fmt.Errorf("asset: primitive id %d out of range in mesh %q", primitiveID, mesh.Name)
	}
	prim := mesh.Primitives[primitiveID]

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("asset: primitive %d of mesh %q has no POSITION attribute", primitiveID, mesh.Name)
	}
	positions, err := doc.AccessorFloats(bin, posIdx)
	if err != nil {
		return nil, err
	}

	var normals, tangents, uvs, colors []float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = doc.AccessorFloats(bin, idx); err != nil {
			return nil, err
		}
	}
	if idx, ok := prim.Attributes["TANGENT"]; ok {
		if tangents, err = doc.AccessorFloats(bin, idx); err != nil {
			return nil, err
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = doc.AccessorFloats(bin, idx); err != nil {
			return nil, err
		}
	}
	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		if colors, err = doc.AccessorFloats(bin, idx); err != nil {
			return nil, err
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = doc.AccessorIndices(bin, *prim.Indices); err != nil {
			return nil, err
		}
	}

	numVertices := len(positions) / 3

	var buf bytes.Buffer
	writeU32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	writeFloats := func(v []float32) {
		writeU32(uint32(len(v)))
		binary.Write(&buf, binary.LittleEndian, v)
	}

	writeU32(blobMagic)
	writeU32(blobVersion)
	writeU32(uint32(numVertices))
	writeFloats(positions)
	writeFloats(normals)
	writeFloats(tangents)
	writeFloats(uvs)
	writeFloats(colors)
	writeU32(uint32(len(indices)))
	binary.Write(&buf, binary.LittleEndian, indices)

	return buf.Bytes(), nil
}

// CompileResult is one mesh compile's outcome, recorded by a compile sweep
// for the editor to surface as a diagnostics list.
type CompileResult struct {
	GUID guid.GUID64
	Err  error
}

// CompileMesh reads src.GltfPath's meta sidecar to confirm src.GUID is
// still present (it may have been removed from the source file since this
// compile was queued), extracts the primitive's accessor data from
// src.BinPath, bakes it, and atomically writes the result to blobPath.
func CompileMesh(readFile func(string) ([]byte, error), src MeshSource, blobPath string) error {
	metaPath := src.GltfPath + MetaExt
	metaBytes, err := readFile(metaPath)
	if err != nil {
		return fmt.Errorf("asset: read %s: %w", metaPath, err)
	}
	meta, err := ParseMetaGltf(metaPath, metaBytes)
	if err != nil {
		return err
	}
	if _, ok := meta.FindMesh(src.GUID); !ok {
		return fmt.Errorf("asset: %s not found in %s", src.GUID, metaPath)
	}

	gltfBytes, err := readFile(src.GltfPath)
	if err != nil {
		return fmt.Errorf("asset: read %s: %w", src.GltfPath, err)
	}
	doc, err := ParseGltfDocument(src.GltfPath, gltfBytes)
	if err != nil {
		return err
	}

	binBytes, err := readFile(src.BinPath)
	if err != nil {
		return fmt.Errorf("asset: read %s: %w", src.BinPath, err)
	}

	blob, err := BakeMeshBlob(doc, binBytes, src.MeshID, src.PrimitiveID)
	if err != nil {
		return fmt.Errorf("asset: bake %s: %w", src.GUID, err)
	}

	return ioutil.SafeWrite(blobPath, blob, 0o644)
}

// BinPathForGltf derives the companion .bin path for a .gltf source path
// (same directory and stem, .bin extension).
func BinPathForGltf(gltfPath string) string {
	ext := filepath.Ext(gltfPath)
	return strings.TrimSuffix(gltfPath, ext) + ".bin"
}
