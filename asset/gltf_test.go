package asset

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/oxy-go/ren-core/core/ioutil"
	"github.com/stretchr/testify/require"
)

func floatBin(values ...float32) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func TestParseGltfDocumentDecodesMinimalDocument(t *testing.T) {
	src := `{
		"meshes": [{"name": "cube", "primitives": [{"attributes": {"POSITION": 0}}]}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": 36}]
	}`
	doc, err := ParseGltfDocument("cube.gltf", []byte(src))
	require.NoError(t, err)
	require.Len(t, doc.Meshes, 1)
	require.Equal(t, "cube", doc.Meshes[0].Name)
	require.Equal(t, 0, doc.Meshes[0].Primitives[0].Attributes["POSITION"])
}

func TestParseGltfDocumentReturnsParseErrorOnMalformedJSON(t *testing.T) {
	_, err := ParseGltfDocument("bad.gltf", []byte("{"))
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestAccessorFloatsExtractsVec3Data(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentFloat, Count: 1, Type: "VEC3"}},
		BufferViews: []GltfBufferView{{ByteLength: 12}},
	}
	bin := floatBin(1, 2, 3)

	got, err := doc.AccessorFloats(bin, 0)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, got)
}

func TestAccessorFloatsRejectsNonFloatComponentType(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentUnsignedShort, Count: 1, Type: "SCALAR"}},
		BufferViews: []GltfBufferView{{ByteLength: 2}},
	}
	_, err := doc.AccessorFloats([]byte{0, 0}, 0)
	require.Error(t, err)
}

func TestAccessorFloatsRejectsOutOfRangeRead(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentFloat, Count: 10, Type: "VEC3"}},
		BufferViews: []GltfBufferView{{ByteLength: 4}},
	}
	_, err := doc.AccessorFloats(make([]byte, 4), 0)
	require.Error(t, err)
}

func TestAccessorIndicesWidensUnsignedShort(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentUnsignedShort, Count: 3, Type: "SCALAR"}},
		BufferViews: []GltfBufferView{{ByteLength: 6}},
	}
	var bin bytes.Buffer
	binary.Write(&bin, binary.LittleEndian, uint16(0))
	binary.Write(&bin, binary.LittleEndian, uint16(1))
	binary.Write(&bin, binary.LittleEndian, uint16(2))

	got, err := doc.AccessorIndices(bin.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, got)
}

func TestAccessorFloatsRejectsFragmentedBufferView(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentFloat, Count: 1, Type: "VEC3"}},
		BufferViews: []GltfBufferView{{ByteLength: 13}}, // not a multiple of 4
	}
	_, err := doc.AccessorFloats(make([]byte, 16), 0)
	require.Error(t, err)
	var ioErr *ioutil.IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, ioutil.KindFragmented, ioErr.Kind)
}

func TestAccessorIndicesRejectsFragmentedBufferView(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentUnsignedShort, Count: 1, Type: "SCALAR"}},
		BufferViews: []GltfBufferView{{ByteLength: 3}}, // not a multiple of 2
	}
	_, err := doc.AccessorIndices(make([]byte, 4), 0)
	require.Error(t, err)
	var ioErr *ioutil.IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, ioutil.KindFragmented, ioErr.Kind)
}

func TestAccessorIndicesWidensUnsignedByte(t *testing.T) {
	doc := &GltfDocument{
		Accessors:   []GltfAccessor{{BufferView: 0, ComponentType: componentUnsignedByte, Count: 3, Type: "SCALAR"}},
		BufferViews: []GltfBufferView{{ByteLength: 3}},
	}
	got, err := doc.AccessorIndices([]byte{2, 1, 0}, 0)
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 1, 0}, got)
}
