package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsCenterSizeHeight(t *testing.T) {
	b := Bounds{Min: Vec3{-1, -2, -3}, Max: Vec3{1, 2, 3}}
	assert.Equal(t, Vec3{0, 0, 0}, b.Center())
	assert.Equal(t, Vec3{2, 4, 6}, b.Size())
	assert.Equal(t, float32(4), b.Height())
}

func TestBoundsZero(t *testing.T) {
	var b Bounds
	assert.Equal(t, Vec3{}, b.Center())
	assert.Equal(t, Vec3{}, b.Size())
	assert.Equal(t, float32(0), b.Height())
}

func TestNewTransform(t *testing.T) {
	x := NewTransform()
	assert.Equal(t, Vec3{}, x.Position)
	assert.Equal(t, Vec3{}, x.Rotation)
	assert.Equal(t, Vec3{1, 1, 1}, x.Scale)
}

func TestVec3Ops(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}
	assert.Equal(t, Vec3{5, 7, 9}, a.Add(b))
	assert.Equal(t, Vec3{-3, -3, -3}, a.Sub(b))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 0, 5, 7))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, float32(1.5), Coalesce[float32](0, 1.5))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(float32(0.5), 1, 16))
	assert.Equal(t, float32(16), Clamp(float32(32), 1, 16))
	assert.Equal(t, float32(8), Clamp(float32(8), 1, 16))
}
