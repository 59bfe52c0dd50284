package glb

// SampleCube returns the 2x2x2 cube centred on the origin used for the
// generated sample asset: 8 vertices and 12 triangles.
func SampleCube() Mesh {
	return Mesh{
		Positions: [][3]float32{
			{-1, -1, -1},
			{1, -1, -1},
			{1, 1, -1},
			{-1, 1, -1},
			{-1, -1, 1},
			{1, -1, 1},
			{1, 1, 1},
			{-1, 1, 1},
		},
		Indices: []uint32{
			0, 1, 2, 0, 2, 3, // back
			4, 6, 5, 4, 7, 6, // front
			0, 3, 7, 0, 7, 4, // left
			1, 5, 6, 1, 6, 2, // right
			0, 4, 5, 0, 5, 1, // bottom
			3, 2, 6, 3, 6, 7, // top
		},
	}
}
