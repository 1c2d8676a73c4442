package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/oxy-go/ren-core/asset"
	"github.com/oxy-go/ren-core/core/guid"
	"github.com/oxy-go/ren-core/core/job"
	"github.com/spf13/cobra"
)

// options holds the flags newRootCmd binds, gathered from the glTF viewer
// and entity-stress-test example programs' option tables.
type options struct {
	file        string
	scene       uint32
	envMap      string
	numEntities uint32
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "ren-assetc [path to glTF file]",
		Short: "Import and compile a glTF scene's meshes",
		Long: `ren-assetc imports a glTF file's meshes into a .gltf.meta sidecar, then
runs the mesh compiler over every mesh the registry considers dirty,
writing baked blobs keyed by content-addressed GUID.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.file = args[0]
			}
			return runCompile(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to glTF file (or pass it positionally)")
	cmd.Flags().Uint32Var(&opts.scene, "scene", 0, "index of scene to import (ignored: every mesh in the file is compiled)")
	cmd.Flags().StringVar(&opts.envMap, "env-map", "", "path to environment map, recorded alongside the project")
	cmd.Flags().Uint32VarP(&opts.numEntities, "num-entities", "n", 0, "synthesize N additional dummy meshes for compile-sweep stress testing")

	return cmd
}

func runCompile(opts options) error {
	if opts.file == "" {
		return fmt.Errorf("no glTF file given: pass a path positionally or with --file")
	}
	if opts.scene != 0 {
		log.Printf("ren-assetc: --scene=%d ignored: this importer has no scene graph, it compiles every mesh in the file", opts.scene)
	}

	registry := asset.NewRegistry()
	result, err := asset.ImportScene(registry, os.ReadFile, writeFile, opts.file)
	if err != nil {
		return fmt.Errorf("import %s: %w", opts.file, err)
	}
	log.Printf("ren-assetc: imported %d meshes from %s into %s", len(result.Meta.Meshes), opts.file, result.MetaFilename)

	if opts.envMap != "" {
		if err := recordEnvMap(opts.file, opts.envMap); err != nil {
			return err
		}
	}

	if opts.numEntities > 0 {
		if err := addStressMeshes(registry, result, opts.file, opts.numEntities); err != nil {
			return err
		}
	}
	registry.MarkDirty(result.MetaFilename)

	blobDir := filepath.Join(filepath.Dir(opts.file), "..", "..", "content", "mesh")
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return fmt.Errorf("create blob directory %s: %w", blobDir, err)
	}

	server := job.Launch(4)
	defer server.Stop()

	results := asset.LaunchCompilation(server, registry, asset.ScopeAll, os.ReadFile, func(guidHex string) string {
		return filepath.Join(blobDir, guidHex)
	}, nil)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("ren-assetc: compile %s: %v", r.GUID.String(), r.Err)
		}
	}
	log.Printf("ren-assetc: compiled %d/%d meshes", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d mesh(es) failed to compile", failed)
	}
	return nil
}

// addStressMeshes synthesizes numEntities extra mesh entries that all bake
// from the imported scene's first primitive, merges them into the actual
// meta sidecar on disk (so CompileMesh's GUID presence check still passes),
// and re-registers the scene with the combined list. This lets a caller
// measure LaunchCompilation's batch throughput under many entities, the
// way entity-stress-test.cpp measures the job scheduler under many mesh
// instances.
func addStressMeshes(registry *asset.Registry, imported asset.ImportResult, gltfPath string, numEntities uint32) error {
	if len(imported.Meta.Meshes) == 0 {
		log.Printf("ren-assetc: --num-entities given but the imported scene has no meshes to replicate")
		return nil
	}
	base := imported.Meta.Meshes[0]
	combined := imported.Meta
	for i := uint32(0); i < numEntities; i++ {
		name := fmt.Sprintf("%s::stress::%d", base.Name, i)
		combined.Meshes = append(combined.Meshes, asset.MetaMesh{
			Name:        name,
			MeshID:      base.MeshID,
			PrimitiveID: base.PrimitiveID,
			GUID:        guid.ForMeshPrimitive(imported.Meta.Src, name, int(i)),
		})
	}

	encoded, err := asset.EncodeMetaGltf(combined)
	if err != nil {
		return fmt.Errorf("encode stress meta: %w", err)
	}
	if err := os.WriteFile(imported.MetaFilename, encoded, 0o644); err != nil {
		return fmt.Errorf("write stress meta %s: %w", imported.MetaFilename, err)
	}

	registry.RegisterGltfScene(combined, imported.MetaFilename, gltfPath, asset.BinPathForGltf(gltfPath))
	return nil
}

func recordEnvMap(gltfPath, envMapPath string) error {
	sidecar := gltfPath + ".envmap"
	return os.WriteFile(sidecar, []byte(envMapPath), 0o644)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
