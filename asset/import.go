package asset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ImportResult reports the outcome of importing one glTF source file.
type ImportResult struct {
	MetaFilename string
	Meta         MetaGltf
}

// ImportScene parses the glTF document at gltfPath, generates a fresh meta
// sidecar addressing every primitive it contains, writes the sidecar via
// writeFile, and registers the result into registry. It is the Go
// equivalent of job_import_scene: a one-shot action run for a newly
// discovered .gltf file, not part of the recurring compile sweep.
//
// If a meta sidecar already exists at gltfPath+MetaExt, its previously
// minted GUIDs are kept for any (mesh, primitive) pair whose name matches,
// so re-importing a scene that only gained new primitives does not reissue
// identifiers for the ones that already existed.
func ImportScene(registry *Registry, readFile func(string) ([]byte, error), writeFile func(path string, data []byte) error, gltfPath string) (ImportResult, error) {
	gltfBytes, err := readFile(gltfPath)
	if err != nil {
		return ImportResult{}, fmt.Errorf("asset: import %s: %w", gltfPath, err)
	}
	doc, err := ParseGltfDocument(gltfPath, gltfBytes)
	if err != nil {
		return ImportResult{}, err
	}

	stem := sourceStem(gltfPath)
	meta := GenerateMetaGltf(doc, stem)

	metaPath := gltfPath + MetaExt
	if existing, err := readFile(metaPath); err == nil {
		if prior, err := ParseMetaGltf(metaPath, existing); err == nil {
			preserveExistingGUIDs(&meta, prior)
		}
	}

	encoded, err := EncodeMetaGltf(meta)
	if err != nil {
		return ImportResult{}, fmt.Errorf("asset: encode %s: %w", metaPath, err)
	}
	if err := writeFile(metaPath, encoded); err != nil {
		return ImportResult{}, fmt.Errorf("asset: write %s: %w", metaPath, err)
	}

	registry.RegisterGltfScene(meta, metaPath, gltfPath, BinPathForGltf(gltfPath))

	return ImportResult{MetaFilename: metaPath, Meta: meta}, nil
}

// preserveExistingGUIDs overwrites fresh's GUIDs with prior's wherever a
// mesh of the same Name appears in both, so a reimport is a no-op for
// primitives that did not change.
func preserveExistingGUIDs(fresh *MetaGltf, prior MetaGltf) {
	byName := make(map[string]MetaMesh, len(prior.Meshes))
	for _, m := range prior.Meshes {
		byName[m.Name] = m
	}
	for i, m := range fresh.Meshes {
		if old, ok := byName[m.Name]; ok {
			fresh.Meshes[i].GUID = old.GUID
		}
	}
}

func sourceStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
