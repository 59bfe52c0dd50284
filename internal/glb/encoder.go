package glb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Generator is written into asset.generator of every encoded document.
const Generator = "openlaptop-viewer glb encoder"

// Mesh is a single indexed triangle mesh.
type Mesh struct {
	Positions [][3]float32
	Indices   []uint32
}

// VertexCount returns the number of vertex positions.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles described by the index list.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Validate checks that the mesh can be encoded.
// All failures wrap ErrInvalidGeometry.
func (m *Mesh) Validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w: mesh has no vertices", ErrInvalidGeometry)
	}
	if len(m.Indices) == 0 {
		return fmt.Errorf("%w: mesh has no indices", ErrInvalidGeometry)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidGeometry, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int64(idx) >= int64(len(m.Positions)) {
			return fmt.Errorf("%w: index %d at position %d references missing vertex (vertex count %d)",
				ErrInvalidGeometry, idx, i, len(m.Positions))
		}
	}
	for i, p := range m.Positions {
		for axis, v := range p {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: vertex %d has non-finite coordinate on axis %d", ErrInvalidGeometry, i, axis)
			}
		}
	}
	return nil
}

// Bounds returns the per-axis minimum and maximum of the vertex positions.
func (m *Mesh) Bounds() (lo, hi [3]float32) {
	if len(m.Positions) == 0 {
		return lo, hi
	}
	lo, hi = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for axis := 0; axis < 3; axis++ {
			if p[axis] < lo[axis] {
				lo[axis] = p[axis]
			}
			if p[axis] > hi[axis] {
				hi[axis] = p[axis]
			}
		}
	}
	return lo, hi
}

// Scene description types. Only the subset of glTF the encoder emits.

type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Accessors   []gltfAccessor   `json:"accessors"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Buffers     []gltfBuffer     `json:"buffers"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfNode struct {
	Mesh int `json:"mesh"`
}

type gltfMesh struct {
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Mode       int            `json:"mode"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

// Encode serializes mesh into a complete GLB container.
//
// The vertex block (12 bytes per vertex) is followed directly by the index
// block (4 bytes per index) in the BIN chunk. The JSON chunk is padded with
// spaces and the BIN chunk with zero bytes to 4-byte boundaries.
func Encode(mesh Mesh) ([]byte, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	vertexBytes := len(mesh.Positions) * 12
	indexBytes := len(mesh.Indices) * 4
	dataLength := vertexBytes + indexBytes

	jsonData, err := json.Marshal(describe(&mesh, vertexBytes, indexBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scene description: %w", err)
	}

	jsonChunkLength := pad4(len(jsonData))
	binChunkLength := pad4(dataLength)
	total := HeaderSize + ChunkHeaderSize + jsonChunkLength + ChunkHeaderSize + binChunkLength
	if uint64(total) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: encoded size %d exceeds GLB limit", ErrInvalidGeometry, total)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	header := Header{Magic: Magic, Version: Version, Length: uint32(total)}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	// JSON chunk
	if err := binary.Write(&buf, binary.LittleEndian, ChunkHeader{Length: uint32(jsonChunkLength), Type: ChunkTypeJSON}); err != nil {
		return nil, fmt.Errorf("failed to write JSON chunk header: %w", err)
	}
	buf.Write(jsonData)
	writePadding(&buf, jsonChunkLength-len(jsonData), jsonPadByte)

	// BIN chunk
	if err := binary.Write(&buf, binary.LittleEndian, ChunkHeader{Length: uint32(binChunkLength), Type: ChunkTypeBIN}); err != nil {
		return nil, fmt.Errorf("failed to write BIN chunk header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, mesh.Positions); err != nil {
		return nil, fmt.Errorf("failed to write vertex positions: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, mesh.Indices); err != nil {
		return nil, fmt.Errorf("failed to write indices: %w", err)
	}
	writePadding(&buf, binChunkLength-dataLength, binPadByte)

	return buf.Bytes(), nil
}

// describe builds the scene description for a single-mesh, single-node scene.
func describe(mesh *Mesh, vertexBytes, indexBytes int) gltfDocument {
	lo, hi := mesh.Bounds()
	return gltfDocument{
		Asset:  gltfAsset{Version: "2.0", Generator: Generator},
		Scene:  0,
		Scenes: []gltfScene{{Nodes: []int{0}}},
		Nodes:  []gltfNode{{Mesh: 0}},
		Meshes: []gltfMesh{{
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0},
				Indices:    1,
				Mode:       modeTriangles,
			}},
		}},
		Accessors: []gltfAccessor{
			{
				BufferView:    0,
				ComponentType: componentFloat,
				Count:         len(mesh.Positions),
				Type:          "VEC3",
				Min:           lo[:],
				Max:           hi[:],
			},
			{
				BufferView:    1,
				ComponentType: componentUnsignedInt,
				Count:         len(mesh.Indices),
				Type:          "SCALAR",
			},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: vertexBytes, Target: targetArrayBuffer},
			{Buffer: 0, ByteOffset: vertexBytes, ByteLength: indexBytes, Target: targetElementArray},
		},
		Buffers: []gltfBuffer{{ByteLength: vertexBytes + indexBytes}},
	}
}

func writePadding(buf *bytes.Buffer, n int, b byte) {
	for i := 0; i < n; i++ {
		buf.WriteByte(b)
	}
}
