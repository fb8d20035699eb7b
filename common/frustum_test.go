package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// lookDownZFrustum builds a frustum for a camera at the origin looking down
// negative Z with a 90 degree field of view.
func lookDownZFrustum(t *testing.T) Frustum {
	t.Helper()

	var view, proj, vp [16]float32
	LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)
	Perspective(proj[:], Radians(90), 1.0, 0.1, 100)
	Mul4(vp[:], proj[:], view[:])
	return ExtractFrustumFromMatrix(vp[:])
}

func TestFrustumPlanesAreNormalized(t *testing.T) {
	f := lookDownZFrustum(t)
	for i, p := range f.Planes {
		lenSq := p.Normal.Dot(p.Normal)
		assert.InDelta(t, 1.0, lenSq, 1e-4, "plane %d", i)
	}
}

func TestContainsPoint(t *testing.T) {
	f := lookDownZFrustum(t)

	assert.True(t, f.ContainsPoint(Vec3{0, 0, -10}), "point straight ahead")
	assert.False(t, f.ContainsPoint(Vec3{0, 0, 10}), "point behind the camera")
	assert.False(t, f.ContainsPoint(Vec3{0, 0, -200}), "point beyond the far plane")
	assert.False(t, f.ContainsPoint(Vec3{50, 0, -10}), "point far off to the side")
	// 90 degree fov: at depth 10 the frustum is 10 units wide each side.
	assert.True(t, f.ContainsPoint(Vec3{9, 0, -10}))
	assert.False(t, f.ContainsPoint(Vec3{11, 0, -10}))
}

func TestIntersectsBounds(t *testing.T) {
	f := lookDownZFrustum(t)

	inside := Bounds{Min: Vec3{-1, -1, -12}, Max: Vec3{1, 1, -10}}
	assert.True(t, f.IntersectsBounds(inside))

	behind := Bounds{Min: Vec3{-1, -1, 10}, Max: Vec3{1, 1, 12}}
	assert.False(t, f.IntersectsBounds(behind))

	// Straddles the near plane: partially visible boxes are kept.
	straddling := Bounds{Min: Vec3{-1, -1, -5}, Max: Vec3{1, 1, 5}}
	assert.True(t, f.IntersectsBounds(straddling))

	offToSide := Bounds{Min: Vec3{40, -1, -12}, Max: Vec3{42, 1, -10}}
	assert.False(t, f.IntersectsBounds(offToSide))
}
