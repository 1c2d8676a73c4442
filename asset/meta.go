// Package asset implements the glTF import/compile pipeline: meta sidecar
// parsing, a mesh compiler that extracts accessor data straight out of a
// .bin buffer and bakes it into a runtime blob, a registry tracking which
// meshes exist and which are dirty, and a batched compile sweep driven
// through core/job.
package asset

import (
	"encoding/json"
	"fmt"

	"github.com/oxy-go/ren-core/core/guid"
)

// MetaExt is the sidecar extension appended to an imported .gltf file's
// path, e.g. "crate.gltf.meta".
const MetaExt = ".meta"

// MetaMesh records one primitive's stable identity inside a glTF file: the
// indices needed to locate it again (MeshID/PrimitiveID) and the GUID
// addressing its baked blob.
type MetaMesh struct {
	Name        string     `json:"name"`
	MeshID      uint32     `json:"mesh_id"`
	PrimitiveID uint32     `json:"primitive_id"`
	GUID        guid.GUID64 `json:"guid"`
}

// MarshalJSON formats GUID as its 16-hex-char string form, matching
// to_string(guid) in the sidecar format this mirrors.
func (m MetaMesh) MarshalJSON() ([]byte, error) {
	type alias struct {
		Name        string `json:"name"`
		MeshID      uint32 `json:"mesh_id"`
		PrimitiveID uint32 `json:"primitive_id"`
		GUID        string `json:"guid"`
	}
	return json.Marshal(alias{
		Name:        m.Name,
		MeshID:      m.MeshID,
		PrimitiveID: m.PrimitiveID,
		GUID:        m.GUID.String(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *MetaMesh) UnmarshalJSON(data []byte) error {
	var alias struct {
		Name        string `json:"name"`
		MeshID      uint32 `json:"mesh_id"`
		PrimitiveID uint32 `json:"primitive_id"`
		GUID        string `json:"guid"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	g, err := guid.Parse(alias.GUID)
	if err != nil {
		return fmt.Errorf("asset: meta mesh %q: %w", alias.Name, err)
	}
	m.Name, m.MeshID, m.PrimitiveID, m.GUID = alias.Name, alias.MeshID, alias.PrimitiveID, g
	return nil
}

// MetaGltf is the whole sidecar for one .gltf source file: every mesh
// primitive it contains, keyed by a stable GUID.
type MetaGltf struct {
	Src    string     `json:"src,omitempty"`
	Meshes []MetaMesh `json:"meshes"`
}

// ParseCategory distinguishes why a parse failed: malformed JSON syntax
// versus JSON that parses but doesn't match the expected schema.
type ParseCategory int

const (
	CategorySyntax ParseCategory = iota
	CategorySchema
)

func (c ParseCategory) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategorySchema:
		return "schema"
	default:
		return "unknown"
	}
}

// ParseError reports a meta/glTF JSON parse failure with enough location
// information to point an editor at the offending byte: the file it came
// from and the 1-based line/column the decoder stopped at.
type ParseError struct {
	Category ParseCategory
	Detail   string
	File     string
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("asset: %s error in %s:%d:%d: %s", e.Category, e.File, e.Line, e.Column, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// newParseError builds a ParseError from a json.Unmarshal failure, resolving
// the byte offset json.SyntaxError/json.UnmarshalTypeError carry into a
// line:column position within data.
func newParseError(path string, data []byte, err error) *ParseError {
	category := CategorySchema
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		category = CategorySyntax
		offset = e.Offset
	case *json.UnmarshalTypeError:
		category = CategorySchema
		offset = e.Offset
	}
	line, col := lineColumnAtOffset(data, offset)
	return &ParseError{
		Category: category,
		Detail:   err.Error(),
		File:     path,
		Line:     line,
		Column:   col,
		Err:      err,
	}
}

// lineColumnAtOffset converts a byte offset into data to a 1-based
// line/column pair, matching the convention text editors use to report a
// cursor position.
func lineColumnAtOffset(data []byte, offset int64) (line, column int) {
	line, column = 1, 1
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	for i := int64(0); i < offset; i++ {
		if data[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// ParseMetaGltf decodes a .gltf.meta sidecar's JSON bytes.
func ParseMetaGltf(path string, data []byte) (MetaGltf, error) {
	var meta MetaGltf
	if err := json.Unmarshal(data, &meta); err != nil {
		return MetaGltf{}, newParseError(path, data, err)
	}
	return meta, nil
}

// EncodeMetaGltf serializes meta back to indented JSON, suitable for
// ioutil.SafeWrite.
func EncodeMetaGltf(meta MetaGltf) ([]byte, error) {
	return json.MarshalIndent(meta, "", "  ")
}

// FindMesh returns the MetaMesh whose GUID matches g, and whether it was
// found.
func (m MetaGltf) FindMesh(g guid.GUID64) (MetaMesh, bool) {
	for _, mesh := range m.Meshes {
		if mesh.GUID == g {
			return mesh, true
		}
	}
	return MetaMesh{}, false
}

// GenerateMetaGltf derives a fresh MetaGltf for a parsed glTF document,
// minting a content-addressed GUID for every (mesh, primitive) pair via
// guid.ForMeshPrimitive. sourceStem is the source file's name without its
// directory or extension, used as the GUID's namespace.
func GenerateMetaGltf(doc *GltfDocument, sourceStem string) MetaGltf {
	var meshes []MetaMesh
	for meshIndex, mesh := range doc.Meshes {
		for primIndex := range mesh.Primitives {
			meshes = append(meshes, MetaMesh{
				Name:        fmt.Sprintf("%s::%s::%d", sourceStem, mesh.Name, primIndex),
				MeshID:      uint32(meshIndex),
				PrimitiveID: uint32(primIndex),
				GUID:        guid.ForMeshPrimitive(sourceStem, mesh.Name, primIndex),
			})
		}
	}
	return MetaGltf{Src: sourceStem, Meshes: meshes}
}
