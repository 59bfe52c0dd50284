package glb

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Summary describes the geometry found in a decoded container.
type Summary struct {
	AssetVersion string     `json:"asset_version"`
	Generator    string     `json:"generator,omitempty"`
	Meshes       int        `json:"meshes"`
	Primitives   int        `json:"primitives"`
	Vertices     int        `json:"vertices"`
	Triangles    int        `json:"triangles"`
	Min          [3]float32 `json:"min"`
	Max          [3]float32 `json:"max"`
}

// Inspect fully decodes buf as a glTF document and counts its geometry.
// The container must pass ValidateStrict first.
func Inspect(buf []byte) (*Summary, error) {
	if err := ValidateStrict(buf); err != nil {
		return nil, err
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(buf)).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode glTF document: %w", err)
	}

	summary := &Summary{
		AssetVersion: doc.Asset.Version,
		Generator:    doc.Asset.Generator,
		Meshes:       len(doc.Meshes),
	}

	first := true
	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			summary.Primitives++

			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			posAcc, err := accessorAt(doc, posIdx)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: positions: %w", mi, pi, err)
			}
			positions, err := modeler.ReadPosition(doc, posAcc, nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: read positions: %w", mi, pi, err)
			}
			summary.Vertices += len(positions)
			for _, p := range positions {
				if first {
					summary.Min, summary.Max = p, p
					first = false
					continue
				}
				for axis := 0; axis < 3; axis++ {
					summary.Min[axis] = minf(summary.Min[axis], p[axis])
					summary.Max[axis] = maxf(summary.Max[axis], p[axis])
				}
			}

			if prim.Indices != nil {
				idxAcc, err := accessorAt(doc, *prim.Indices)
				if err != nil {
					return nil, fmt.Errorf("mesh %d primitive %d: indices: %w", mi, pi, err)
				}
				indices, err := modeler.ReadIndices(doc, idxAcc, nil)
				if err != nil {
					return nil, fmt.Errorf("mesh %d primitive %d: read indices: %w", mi, pi, err)
				}
				summary.Triangles += len(indices) / 3
			} else {
				summary.Triangles += len(positions) / 3
			}
		}
	}

	return summary, nil
}

// accessorAt resolves an accessor index taken from the document and checks
// that the bytes it covers exist, since the decoder leaves references unchecked.
func accessorAt(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range (%d accessors)", ErrBadChunk, idx, len(doc.Accessors))
	}
	acc := doc.Accessors[idx]
	if acc == nil {
		return nil, fmt.Errorf("%w: accessor %d is null", ErrBadChunk, idx)
	}
	if acc.Sparse != nil {
		return nil, fmt.Errorf("%w: accessor %d uses sparse storage", ErrBadChunk, idx)
	}
	if acc.BufferView == nil || acc.Count == 0 {
		return acc, nil
	}

	viewIdx := *acc.BufferView
	if viewIdx < 0 || viewIdx >= len(doc.BufferViews) || doc.BufferViews[viewIdx] == nil {
		return nil, fmt.Errorf("%w: accessor %d references missing buffer view %d", ErrBadChunk, idx, viewIdx)
	}
	view := doc.BufferViews[viewIdx]
	if view.Buffer < 0 || view.Buffer >= len(doc.Buffers) || doc.Buffers[view.Buffer] == nil {
		return nil, fmt.Errorf("%w: buffer view %d references missing buffer %d", ErrBadChunk, viewIdx, view.Buffer)
	}
	if view.ByteOffset+view.ByteLength > len(doc.Buffers[view.Buffer].Data) {
		return nil, fmt.Errorf("%w: buffer view %d exceeds buffer %d", ErrBadChunk, viewIdx, view.Buffer)
	}

	elemSize := acc.Type.Components() * acc.ComponentType.ByteSize()
	stride := view.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if elemSize == 0 || acc.ByteOffset+stride*(acc.Count-1)+elemSize > view.ByteLength {
		return nil, fmt.Errorf("%w: accessor %d exceeds buffer view %d", ErrBadChunk, idx, viewIdx)
	}
	return acc, nil
}

func minf(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}

func maxf(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}
