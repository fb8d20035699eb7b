package camera

import (
	"testing"

	"github.com/cairn3d/cairn/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()

	x, y, z := c.Position()
	assert.Equal(t, [3]float32{0, 2, 5}, [3]float32{x, y, z})

	tx, ty, tz := c.Target()
	assert.Equal(t, [3]float32{0, 0, 0}, [3]float32{tx, ty, tz})

	assert.InDelta(t, 0.7853982, c.Fov(), 1e-5)
	assert.Equal(t, float32(1.0), c.Aspect())
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(100.0), c.Far())
}

func TestViewProjectionIsProjectionTimesView(t *testing.T) {
	c := NewCamera(
		WithPosition(3, 4, 5),
		WithTarget(0, 1, 0),
		WithAspect(16.0/9.0),
	)

	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	vp := c.ViewProjectionMatrix()

	var expected [16]float32
	common.Mul4(expected[:], proj[:], view[:])
	for i := range expected {
		assert.InDelta(t, expected[i], vp[i], 1e-5)
	}
}

func TestSettersRecomputeMatrices(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()

	c.SetAspect(2.0)
	after := c.ProjectionMatrix()
	require.NotEqual(t, before, after)
	// Widening the aspect shrinks the horizontal scale term.
	assert.InDelta(t, before[0]/2, after[0], 1e-5)

	viewBefore := c.ViewMatrix()
	c.SetPosition(10, 0, 0)
	assert.NotEqual(t, viewBefore, c.ViewMatrix())
}

func TestFrustumTracksCamera(t *testing.T) {
	c := NewCamera(
		WithPosition(0, 0, 10),
		WithTarget(0, 0, 0),
	)

	f := c.Frustum()
	assert.True(t, f.ContainsPoint(common.Vec3{0, 0, 0}))
	assert.False(t, f.ContainsPoint(common.Vec3{0, 0, 20}), "behind the camera")

	// Turning the camera around flips what is visible.
	c.SetTarget(0, 0, 20)
	f = c.Frustum()
	assert.False(t, f.ContainsPoint(common.Vec3{0, 0, 0}))
	assert.True(t, f.ContainsPoint(common.Vec3{0, 0, 20}))
}

func TestBuilderOptions(t *testing.T) {
	c := NewCamera(
		WithPosition(1, 2, 3),
		WithTarget(4, 5, 6),
		WithUp(0, 0, 1),
		WithFov(1.0),
		WithNear(0.5),
		WithFar(500),
	)

	x, y, z := c.Position()
	assert.Equal(t, [3]float32{1, 2, 3}, [3]float32{x, y, z})
	tx, ty, tz := c.Target()
	assert.Equal(t, [3]float32{4, 5, 6}, [3]float32{tx, ty, tz})
	ux, uy, uz := c.Up()
	assert.Equal(t, [3]float32{0, 0, 1}, [3]float32{ux, uy, uz})
	assert.Equal(t, float32(1.0), c.Fov())
	assert.Equal(t, float32(0.5), c.Near())
	assert.Equal(t, float32(500), c.Far())
}
