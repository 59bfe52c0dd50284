package glb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestEncode_SampleCube(t *testing.T) {
	data, err := Encode(SampleCube())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	header, err := ReadHeader(data)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if header.Magic != Magic {
		t.Errorf("Expected magic 0x%08X, got 0x%08X", Magic, header.Magic)
	}
	if header.Version != 2 {
		t.Errorf("Expected version 2, got %d", header.Version)
	}
	if int(header.Length) != len(data) {
		t.Errorf("Header length %d does not match buffer length %d", header.Length, len(data))
	}

	jsonLength := int(binary.LittleEndian.Uint32(data[12:16]))
	if jsonLength%4 != 0 {
		t.Errorf("JSON chunk length %d is not a multiple of 4", jsonLength)
	}
	if got := binary.LittleEndian.Uint32(data[16:20]); got != ChunkTypeJSON {
		t.Errorf("Expected JSON chunk type, got 0x%08X", got)
	}

	// 240 = 8 vertices * 12 bytes + 36 indices * 4 bytes
	expected := 12 + 8 + jsonLength + 8 + 240
	if len(data) != expected {
		t.Errorf("Expected %d bytes, got %d", expected, len(data))
	}

	binOffset := 20 + jsonLength
	if got := binary.LittleEndian.Uint32(data[binOffset : binOffset+4]); got != 240 {
		t.Errorf("Expected BIN chunk length 240, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[binOffset+4 : binOffset+8]); got != ChunkTypeBIN {
		t.Errorf("Expected BIN chunk type, got 0x%08X", got)
	}
}

func TestEncode_BinaryLayout(t *testing.T) {
	mesh := SampleCube()
	data, err := Encode(mesh)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	chunks, err := Chunks(data)
	if err != nil {
		t.Fatalf("Chunks failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	bin := chunks[1].Data

	for i, p := range mesh.Positions {
		for axis := 0; axis < 3; axis++ {
			off := i*12 + axis*4
			got := math.Float32frombits(binary.LittleEndian.Uint32(bin[off : off+4]))
			if got != p[axis] {
				t.Errorf("Vertex %d axis %d: expected %v, got %v", i, axis, p[axis], got)
			}
		}
	}
	for i, idx := range mesh.Indices {
		off := 96 + i*4
		if got := binary.LittleEndian.Uint32(bin[off : off+4]); got != idx {
			t.Errorf("Index %d: expected %d, got %d", i, idx, got)
		}
	}
}

func TestEncode_SceneDescription(t *testing.T) {
	data, err := Encode(SampleCube())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	chunks, err := Chunks(data)
	if err != nil {
		t.Fatalf("Chunks failed: %v", err)
	}

	jsonData := chunks[0].Data
	trimmed := bytes.TrimRight(jsonData, " ")
	if len(jsonData)-len(trimmed) > 3 {
		t.Errorf("Expected at most 3 padding bytes, got %d", len(jsonData)-len(trimmed))
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		t.Fatalf("Scene description is not valid JSON: %v", err)
	}

	if doc.Asset.Version != "2.0" {
		t.Errorf("Expected asset version 2.0, got %q", doc.Asset.Version)
	}
	if len(doc.BufferViews) != 2 {
		t.Fatalf("Expected 2 buffer views, got %d", len(doc.BufferViews))
	}
	if doc.BufferViews[0].ByteOffset != 0 || doc.BufferViews[0].ByteLength != 96 {
		t.Errorf("Unexpected vertex view: %+v", doc.BufferViews[0])
	}
	if doc.BufferViews[1].ByteOffset != 96 || doc.BufferViews[1].ByteLength != 144 {
		t.Errorf("Unexpected index view: %+v", doc.BufferViews[1])
	}
	if doc.Buffers[0].ByteLength != 240 {
		t.Errorf("Expected buffer length 240, got %d", doc.Buffers[0].ByteLength)
	}
	if doc.Accessors[0].Count != 8 || doc.Accessors[1].Count != 36 {
		t.Errorf("Unexpected accessor counts: %d, %d", doc.Accessors[0].Count, doc.Accessors[1].Count)
	}
	wantMin := []float32{-1, -1, -1}
	wantMax := []float32{1, 1, 1}
	for axis := 0; axis < 3; axis++ {
		if doc.Accessors[0].Min[axis] != wantMin[axis] || doc.Accessors[0].Max[axis] != wantMax[axis] {
			t.Errorf("Unexpected bounds: min=%v max=%v", doc.Accessors[0].Min, doc.Accessors[0].Max)
			break
		}
	}
}

func TestEncode_SingleTriangle(t *testing.T) {
	// 36 vertex bytes + 12 index bytes
	mesh := Mesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2},
	}
	data, err := Encode(mesh)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	chunks, err := Chunks(data)
	if err != nil {
		t.Fatalf("Chunks failed: %v", err)
	}
	if len(chunks[1].Data) != 48 {
		t.Errorf("Expected BIN chunk of 48 bytes, got %d", len(chunks[1].Data))
	}
}

func TestEncode_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		mesh Mesh
	}{
		{
			name: "no vertices",
			mesh: Mesh{Indices: []uint32{0, 1, 2}},
		},
		{
			name: "no indices",
			mesh: Mesh{Positions: [][3]float32{{0, 0, 0}}},
		},
		{
			name: "index count not a multiple of 3",
			mesh: Mesh{
				Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Indices:   []uint32{0, 1},
			},
		},
		{
			name: "index out of range",
			mesh: Mesh{
				Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Indices:   []uint32{0, 1, 3},
			},
		},
		{
			name: "NaN coordinate",
			mesh: Mesh{
				Positions: [][3]float32{{0, 0, 0}, {1, float32(math.NaN()), 0}, {0, 1, 0}},
				Indices:   []uint32{0, 1, 2},
			},
		},
		{
			name: "infinite coordinate",
			mesh: Mesh{
				Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, float32(math.Inf(1)), 0}},
				Indices:   []uint32{0, 1, 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.mesh)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Fatalf("Expected ErrInvalidGeometry, got %v", err)
			}
			if data != nil {
				t.Errorf("Expected no output on error, got %d bytes", len(data))
			}
		})
	}
}

func TestEncode_ValidateRoundTrip(t *testing.T) {
	meshes := map[string]Mesh{
		"cube": SampleCube(),
		"triangle": {
			Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Indices:   []uint32{0, 1, 2},
		},
		"quad": {
			Positions: [][3]float32{{0, 0, 0}, {2.5, 0, 0}, {2.5, 4, 0}, {0, 4, 0}},
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
		},
		"shared vertex fan": {
			Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {-1, 0, 0}},
			Indices:   []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4},
		},
	}

	for name, mesh := range meshes {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(mesh)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			result := Validate(data)
			if !result.Exists || !result.IsValid {
				t.Errorf("Expected valid result, got %+v", result)
			}
			if result.Size != len(data) {
				t.Errorf("Expected size %d, got %d", len(data), result.Size)
			}
			if result.Error != nil {
				t.Errorf("Expected nil error, got %q", *result.Error)
			}
			if err := ValidateStrict(data); err != nil {
				t.Errorf("ValidateStrict failed: %v", err)
			}
			if jsonLength := binary.LittleEndian.Uint32(data[12:16]); jsonLength%4 != 0 {
				t.Errorf("JSON chunk length %d is not a multiple of 4", jsonLength)
			}
		})
	}
}

func TestEncode_DoesNotAliasInput(t *testing.T) {
	mesh := SampleCube()
	first, err := Encode(mesh)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	snapshot := append([]byte(nil), first...)

	mesh.Positions[0] = [3]float32{5, 5, 5}
	mesh.Indices[0] = 7
	if !bytes.Equal(first, snapshot) {
		t.Fatal("Mutating the input mesh changed previously encoded output")
	}

	second, err := Encode(mesh)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("Expected a different container for the modified mesh")
	}
	if !bytes.Equal(first, snapshot) {
		t.Error("Encoding a second mesh changed previously encoded output")
	}
}

func TestMesh_Counts(t *testing.T) {
	mesh := SampleCube()
	if mesh.VertexCount() != 8 {
		t.Errorf("Expected 8 vertices, got %d", mesh.VertexCount())
	}
	if mesh.TriangleCount() != 12 {
		t.Errorf("Expected 12 triangles, got %d", mesh.TriangleCount())
	}
}

func TestPad4(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {1, 4}, {3, 4}, {4, 4}, {5, 8}, {240, 240}, {241, 244},
	}
	for _, tt := range tests {
		if got := pad4(tt.in); got != tt.want {
			t.Errorf("pad4(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
