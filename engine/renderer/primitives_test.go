package renderer

import (
	"testing"

	"github.com/cairn3d/cairn/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireframeCubeGeometry(t *testing.T) {
	center := common.Vec3{1, 2, 3}
	vertices, indices := wireframeCubeGeometry(center, 2, common.Vec3{1, 0, 0})

	require.Len(t, vertices, 8)
	require.Len(t, indices, 24)

	for _, v := range vertices {
		for axis := 0; axis < 3; axis++ {
			assert.InDelta(t, 1.0, absf(v.Position[axis]-center[axis]), 1e-6)
		}
		assert.Equal(t, common.Vec3{1, 0, 0}, v.Color)
	}

	// Every corner participates in exactly three edges.
	degree := make(map[uint16]int)
	for _, idx := range indices {
		degree[idx]++
	}
	require.Len(t, degree, 8)
	for corner, count := range degree {
		assert.Equal(t, 3, count, "corner %d", corner)
	}
}

func TestWireframeSphereGeometry(t *testing.T) {
	segments := 16
	vertices, indices := wireframeSphereGeometry(common.Vec3{}, 2, common.Vec3{0, 1, 0}, segments)

	assert.Len(t, vertices, 3*(segments+1))
	assert.Len(t, indices, 3*segments*2)

	// Every vertex sits on the sphere surface.
	for _, v := range vertices {
		dist := v.Position[0]*v.Position[0] + v.Position[1]*v.Position[1] + v.Position[2]*v.Position[2]
		assert.InDelta(t, 4.0, dist, 1e-4)
	}

	// Each circle closes: first and last vertex coincide.
	perCircle := segments + 1
	for circle := 0; circle < 3; circle++ {
		first := vertices[circle*perCircle].Position
		last := vertices[circle*perCircle+segments].Position
		for axis := 0; axis < 3; axis++ {
			assert.InDelta(t, first[axis], last[axis], 1e-4)
		}
	}
}

func TestWireframeSphereSegmentFloor(t *testing.T) {
	vertices, _ := wireframeSphereGeometry(common.Vec3{}, 1, common.Vec3{}, 0)
	assert.Len(t, vertices, 3*4)
}

func TestWireframeGridGeometry(t *testing.T) {
	vertices, indices := wireframeGridGeometry(10, 4, common.Vec3{0.5, 0.5, 0.5})

	lineCount := 5 * 2
	assert.Len(t, vertices, lineCount*2)
	assert.Len(t, indices, lineCount*2)

	for _, v := range vertices {
		assert.Equal(t, float32(0), v.Position[1])
		assert.LessOrEqual(t, absf(v.Position[0]), float32(5))
		assert.LessOrEqual(t, absf(v.Position[2]), float32(5))
	}
}

func TestBoundsGeometryExpansion(t *testing.T) {
	b := common.Bounds{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}
	vertices, indices := boundsGeometry(b, common.Vec3{1, 1, 0})

	require.Len(t, vertices, 8)
	require.Len(t, indices, 24)

	// Corners expand 1% about the center.
	for _, v := range vertices {
		for axis := 0; axis < 3; axis++ {
			assert.InDelta(t, 1.01, absf(v.Position[axis]), 1e-5)
		}
	}
}

func TestBoundsGeometryOffCenter(t *testing.T) {
	b := common.Bounds{Min: common.Vec3{2, 0, 0}, Max: common.Vec3{4, 2, 2}}
	vertices, _ := boundsGeometry(b, common.Vec3{})

	// The expansion is about the box center, so min X moves outward.
	minX := vertices[0].Position[0]
	assert.InDelta(t, 2-0.01, minX, 1e-5)
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
