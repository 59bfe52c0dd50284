package glb

import (
	"encoding/binary"
	"fmt"
)

// InvalidFormatMessage is reported in Result.Error when the magic does not match.
const InvalidFormatMessage = "Invalid GLB format"

// Result is the outcome of a shallow structural check.
type Result struct {
	Exists  bool    `json:"exists"`
	IsValid bool    `json:"isValid"`
	Size    int     `json:"size"`
	Error   *string `json:"error"`
}

// Validate reports whether buf starts with the GLB magic number.
//
// Buffers shorter than the 4-byte magic are reported as not existing.
// Only the magic is inspected; use ValidateStrict for a structural check.
func Validate(buf []byte) Result {
	if len(buf) < 4 {
		return Result{Exists: false}
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != Magic {
		msg := InvalidFormatMessage
		return Result{Exists: true, IsValid: false, Size: len(buf), Error: &msg}
	}
	return Result{Exists: true, IsValid: true, Size: len(buf)}
}

// Check classifies buf the same way Validate does but as an error value:
// nil, ErrTruncatedBuffer or ErrFormatMismatch.
func Check(buf []byte) error {
	if len(buf) < 4 {
		return ErrTruncatedBuffer
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != Magic {
		return ErrFormatMismatch
	}
	return nil
}

// ReadHeader decodes the 12-byte file header.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d header bytes, have %d", ErrTruncatedBuffer, HeaderSize, len(buf))
	}
	return Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:4]),
		Version: binary.LittleEndian.Uint32(buf[4:8]),
		Length:  binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}

// Chunk is a chunk located inside a container. Data aliases the input buffer.
type Chunk struct {
	Type   uint32
	Offset int
	Data   []byte
}

// ValidateStrict performs a full structural check of the container: header
// fields, declared length against the actual length, and the chunk layout.
func ValidateStrict(buf []byte) error {
	_, err := Chunks(buf)
	return err
}

// Chunks validates buf and returns its chunks in file order.
// The first chunk must be JSON and a second chunk, when present, must be BIN.
func Chunks(buf []byte) ([]Chunk, error) {
	if err := Check(buf); err != nil {
		return nil, err
	}
	header, err := ReadHeader(buf)
	if err != nil {
		return nil, err
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}
	if int64(header.Length) != int64(len(buf)) {
		return nil, fmt.Errorf("%w: header declares %d bytes, buffer has %d", ErrLengthMismatch, header.Length, len(buf))
	}

	var chunks []Chunk
	offset := HeaderSize
	for offset < len(buf) {
		if len(buf)-offset < ChunkHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes at offset %d", ErrBadChunk, len(buf)-offset, offset)
		}
		length := int(binary.LittleEndian.Uint32(buf[offset : offset+4]))
		typ := binary.LittleEndian.Uint32(buf[offset+4 : offset+8])
		start := offset + ChunkHeaderSize
		if length%4 != 0 {
			return nil, fmt.Errorf("%w: chunk %d length %d is not 4-byte aligned", ErrBadChunk, len(chunks), length)
		}
		if length > len(buf)-start {
			return nil, fmt.Errorf("%w: chunk %d length %d overruns buffer", ErrBadChunk, len(chunks), length)
		}
		switch len(chunks) {
		case 0:
			if typ != ChunkTypeJSON {
				return nil, fmt.Errorf("%w: first chunk type 0x%08X is not JSON", ErrBadChunk, typ)
			}
		case 1:
			if typ != ChunkTypeBIN {
				return nil, fmt.Errorf("%w: second chunk type 0x%08X is not BIN", ErrBadChunk, typ)
			}
		}
		chunks = append(chunks, Chunk{Type: typ, Offset: offset, Data: buf[start : start+length]})
		offset = start + length
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: container has no JSON chunk", ErrBadChunk)
	}
	return chunks, nil
}
