// Package glb reads and writes the binary glTF 2.0 container (GLB).
//
// A GLB file is a 12-byte header followed by a JSON chunk describing the
// scene and a BIN chunk holding the raw buffer data. Every field is little-endian.
package glb

import "errors"

const (
	// Magic is "glTF" read as a little-endian uint32.
	Magic uint32 = 0x46546C67
	// Version is the only container version this package writes or accepts.
	Version uint32 = 2

	// ChunkTypeJSON tags the scene description chunk ("JSON").
	ChunkTypeJSON uint32 = 0x4E4F534A
	// ChunkTypeBIN tags the binary buffer chunk ("BIN\0").
	ChunkTypeBIN uint32 = 0x004E4942

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 12
	// ChunkHeaderSize is the size of a chunk's length+type prefix in bytes.
	ChunkHeaderSize = 8

	// ContentType is the media type registered for GLB files.
	ContentType = "model/gltf-binary"

	jsonPadByte = 0x20
	binPadByte  = 0x00
)

// glTF enum values used in the scene description.
const (
	componentFloat       = 5126
	componentUnsignedInt = 5125
	targetArrayBuffer    = 34962
	targetElementArray   = 34963
	modeTriangles        = 4
)

// Errors reported by the encoder and validators.
var (
	ErrInvalidGeometry    = errors.New("invalid geometry")
	ErrTruncatedBuffer    = errors.New("truncated GLB buffer")
	ErrFormatMismatch     = errors.New("invalid GLB format")
	ErrUnsupportedVersion = errors.New("unsupported GLB version")
	ErrLengthMismatch     = errors.New("GLB length mismatch")
	ErrBadChunk           = errors.New("malformed GLB chunk")
)

// Header is the fixed 12-byte GLB file header.
type Header struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// ChunkHeader prefixes every chunk in the container.
type ChunkHeader struct {
	Length uint32
	Type   uint32
}

// pad4 rounds n up to the next multiple of 4.
func pad4(n int) int {
	return (n + 3) &^ 3
}
