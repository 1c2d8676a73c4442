package asset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/oxy-go/ren-core/core/ioutil"
)

// GltfDocument is the minimal subset of a glTF 2.0 JSON document the
// compiler needs: enough to walk meshes/primitives and resolve accessors
// down to raw bytes in the companion .bin buffer.
type GltfDocument struct {
	Meshes      []GltfMesh      `json:"meshes"`
	Accessors   []GltfAccessor  `json:"accessors"`
	BufferViews []GltfBufferView `json:"bufferViews"`
}

type GltfMesh struct {
	Name       string             `json:"name"`
	Primitives []GltfPrimitive `json:"primitives"`
}

type GltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices"`
}

type GltfAccessor struct {
	BufferView    int    `json:"bufferView"`
	ByteOffset    int    `json:"byteOffset"`
	ComponentType int    `json:"componentType"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
}

type GltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
}

// glTF componentType constants (from the 2.0 spec's accessor.componentType
// enum).
const (
	componentByte          = 5120
	componentUnsignedByte  = 5121
	componentShort         = 5122
	componentUnsignedShort = 5123
	componentUnsignedInt   = 5125
	componentFloat         = 5126
)

func componentSize(componentType int) (int, error) {
	switch componentType {
	case componentByte, componentUnsignedByte:
		return 1, nil
	case componentShort, componentUnsignedShort:
		return 2, nil
	case componentUnsignedInt, componentFloat:
		return 4, nil
	default:
		return 0, fmt.Errorf("asset: unsupported accessor componentType %d", componentType)
	}
}

func componentCount(accessorType string) (int, error) {
	switch accessorType {
	case "SCALAR":
		return 1, nil
	case "VEC2":
		return 2, nil
	case "VEC3":
		return 3, nil
	case "VEC4":
		return 4, nil
	case "MAT2":
		return 4, nil
	case "MAT3":
		return 9, nil
	case "MAT4":
		return 16, nil
	default:
		return 0, fmt.Errorf("asset: unsupported accessor type %q", accessorType)
	}
}

// ParseGltfDocument decodes the JSON structure of a .gltf file. It does not
// touch the companion .bin buffer; use AccessorFloats/AccessorIndices for
// that once you have the raw buffer bytes in hand.
func ParseGltfDocument(path string, data []byte) (*GltfDocument, error) {
	var doc GltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newParseError(path, data, err)
	}
	return &doc, nil
}

// AccessorFloats resolves accessorIndex to a flat []float32 slice, reading
// component bytes out of bin at the accessor's resolved offset. Only
// FLOAT-component accessors are supported; this is sufficient for the
// POSITION/NORMAL/TANGENT/TEXCOORD_0/COLOR_0 attributes the compiler reads.
func (d *GltfDocument) AccessorFloats(bin []byte, accessorIndex int) ([]float32, error) {
	if accessorIndex < 0 || accessorIndex >= len(d.Accessors) {
		return nil, fmt.Errorf("asset: accessor index %d out of range", accessorIndex)
	}
	acc := d.Accessors[accessorIndex]
	if acc.ComponentType != componentFloat {
		return nil, fmt.Errorf("asset: accessor %d is not float-typed", accessorIndex)
	}
	if acc.BufferView < 0 || acc.BufferView >= len(d.BufferViews) {
		return nil, fmt.Errorf("asset: accessor %d has invalid bufferView", accessorIndex)
	}
	view := d.BufferViews[acc.BufferView]
	numComponents, err := componentCount(acc.Type)
	if err != nil {
		return nil, err
	}
	size, _ := componentSize(acc.ComponentType)
	if err := ioutil.CheckAligned(fmt.Sprintf("accessor %d bufferView %d", accessorIndex, acc.BufferView), view.ByteLength, size); err != nil {
		return nil, err
	}
	offset := view.ByteOffset + acc.ByteOffset
	total := acc.Count * numComponents
	need := offset + total*size
	if need > len(bin) {
		return nil, fmt.Errorf("asset: accessor %d reads past end of buffer (need %d, have %d)", accessorIndex, need, len(bin))
	}
	out := make([]float32, total)
	for i := range out {
		bits := binary.LittleEndian.Uint32(bin[offset+i*4 : offset+i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// AccessorIndices resolves accessorIndex to a flat []uint32 index list,
// widening UNSIGNED_SHORT/UNSIGNED_BYTE source data as needed.
func (d *GltfDocument) AccessorIndices(bin []byte, accessorIndex int) ([]uint32, error) {
	if accessorIndex < 0 || accessorIndex >= len(d.Accessors) {
		return nil, fmt.Errorf("asset: accessor index %d out of range", accessorIndex)
	}
	acc := d.Accessors[accessorIndex]
	if acc.BufferView < 0 || acc.BufferView >= len(d.BufferViews) {
		return nil, fmt.Errorf("asset: accessor %d has invalid bufferView", accessorIndex)
	}
	view := d.BufferViews[acc.BufferView]
	size, err := componentSize(acc.ComponentType)
	if err != nil {
		return nil, err
	}
	if err := ioutil.CheckAligned(fmt.Sprintf("accessor %d bufferView %d", accessorIndex, acc.BufferView), view.ByteLength, size); err != nil {
		return nil, err
	}
	offset := view.ByteOffset + acc.ByteOffset
	need := offset + acc.Count*size
	if need > len(bin) {
		return nil, fmt.Errorf("asset: accessor %d reads past end of buffer (need %d, have %d)", accessorIndex, need, len(bin))
	}
	out := make([]uint32, acc.Count)
	for i := 0; i < acc.Count; i++ {
		base := offset + i*size
		switch acc.ComponentType {
		case componentUnsignedByte:
			out[i] = uint32(bin[base])
		case componentUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(bin[base : base+2]))
		case componentUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(bin[base : base+4])
		default:
			return nil, fmt.Errorf("asset: accessor %d has non-index componentType %d", accessorIndex, acc.ComponentType)
		}
	}
	return out, nil
}
