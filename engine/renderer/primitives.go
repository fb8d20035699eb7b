package renderer

import (
	"github.com/cairn3d/cairn/common"
	"github.com/chewxy/math32"
)

// cubeCornerOffsets are the unit corner directions of an axis-aligned cube,
// ordered bottom face first (counter-clockwise from -X-Y-Z) then top face.
var cubeCornerOffsets = [8]common.Vec3{
	{-1, -1, -1},
	{1, -1, -1},
	{1, 1, -1},
	{-1, 1, -1},
	{-1, -1, 1},
	{1, -1, 1},
	{1, 1, 1},
	{-1, 1, 1},
}

// cubeEdges are the 12 edges of a cube as corner index pairs: the -Z face
// ring, the +Z face ring, then the four connecting edges.
var cubeEdges = [12][2]uint16{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// wireframeCubeGeometry builds the 8 vertices and 24 line indices of an
// axis-aligned wireframe cube.
func wireframeCubeGeometry(center common.Vec3, size float32, color common.Vec3) ([]common.Vertex, []uint16) {
	half := size * 0.5
	vertices := make([]common.Vertex, 0, 8)
	for _, offset := range cubeCornerOffsets {
		vertices = append(vertices, common.Vertex{
			Position: center.Add(offset.Scale(half)),
			Color:    color,
		})
	}

	indices := make([]uint16, 0, 24)
	for _, edge := range cubeEdges {
		indices = append(indices, edge[0], edge[1])
	}
	return vertices, indices
}

// wireframeSphereGeometry builds three orthogonal great circles approximating
// a sphere. Each circle spans one axis pair (XY, XZ, YZ) with segments+1
// vertices so the loop closes exactly.
func wireframeSphereGeometry(center common.Vec3, radius float32, color common.Vec3, segments int) ([]common.Vertex, []uint16) {
	if segments < 3 {
		segments = 3
	}

	axisPairs := [3][2]int{{0, 1}, {0, 2}, {1, 2}}
	vertices := make([]common.Vertex, 0, 3*(segments+1))
	indices := make([]uint16, 0, 3*segments*2)

	for _, pair := range axisPairs {
		base := uint16(len(vertices))
		for i := 0; i <= segments; i++ {
			angle := 2 * math32.Pi * float32(i) / float32(segments)
			pos := center
			pos[pair[0]] += math32.Cos(angle) * radius
			pos[pair[1]] += math32.Sin(angle) * radius
			vertices = append(vertices, common.Vertex{Position: pos, Color: color})
		}
		for i := 0; i < segments; i++ {
			indices = append(indices, base+uint16(i), base+uint16(i)+1)
		}
	}
	return vertices, indices
}

// wireframeGridGeometry builds a square grid of paired lines on the Y=0
// plane, centered on the origin. divisions is the number of cells per side,
// producing divisions+1 lines in each direction.
func wireframeGridGeometry(size float32, divisions int, color common.Vec3) ([]common.Vertex, []uint16) {
	if divisions < 1 {
		divisions = 1
	}

	half := size * 0.5
	step := size / float32(divisions)
	lineCount := divisions + 1

	vertices := make([]common.Vertex, 0, lineCount*4)
	indices := make([]uint16, 0, lineCount*4)

	appendLine := func(a, b common.Vec3) {
		base := uint16(len(vertices))
		vertices = append(vertices,
			common.Vertex{Position: a, Color: color},
			common.Vertex{Position: b, Color: color},
		)
		indices = append(indices, base, base+1)
	}

	for i := 0; i < lineCount; i++ {
		t := -half + float32(i)*step
		appendLine(common.Vec3{t, 0, -half}, common.Vec3{t, 0, half})
		appendLine(common.Vec3{-half, 0, t}, common.Vec3{half, 0, t})
	}
	return vertices, indices
}

// boundsGeometry builds the wireframe box for an axis-aligned bounding box,
// expanded 1% about its center so the box does not z-fight the surface it
// encloses.
func boundsGeometry(b common.Bounds, color common.Vec3) ([]common.Vertex, []uint16) {
	center := b.Center()
	expand := func(corner common.Vec3) common.Vec3 {
		return center.Add(corner.Sub(center).Scale(1.01))
	}

	minC := expand(b.Min)
	maxC := expand(b.Max)

	corners := [8]common.Vec3{
		{minC[0], minC[1], minC[2]},
		{maxC[0], minC[1], minC[2]},
		{maxC[0], maxC[1], minC[2]},
		{minC[0], maxC[1], minC[2]},
		{minC[0], minC[1], maxC[2]},
		{maxC[0], minC[1], maxC[2]},
		{maxC[0], maxC[1], maxC[2]},
		{minC[0], maxC[1], maxC[2]},
	}

	vertices := make([]common.Vertex, 0, 8)
	for _, c := range corners {
		vertices = append(vertices, common.Vertex{Position: c, Color: color})
	}

	indices := make([]uint16, 0, 24)
	for _, edge := range cubeEdges {
		indices = append(indices, edge[0], edge[1])
	}
	return vertices, indices
}
