package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = 7
	}
	Identity(m)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}
			assert.Equal(t, want, m[i*4+j])
		}
	}
}

func TestMul4Identity(t *testing.T) {
	a := make([]float32, 16)
	BuildModelMatrix(a, 1, 2, 3, 0.4, 0.5, 0.6, 1, 2, 3)

	id := make([]float32, 16)
	Identity(id)

	out := make([]float32, 16)
	Mul4(out, a, id)
	assert.Equal(t, a, out)

	Mul4(out, id, a)
	assert.Equal(t, a, out)
}

func TestMul4TranslateCompose(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	BuildModelMatrix(a, 1, 0, 0, 0, 0, 0, 1, 1, 1)
	BuildModelMatrix(b, 0, 2, 0, 0, 0, 0, 1, 1, 1)

	out := make([]float32, 16)
	Mul4(out, a, b)
	assert.Equal(t, float32(1), out[12])
	assert.Equal(t, float32(2), out[13])
	assert.Equal(t, float32(0), out[14])
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	BuildModelMatrix(m, 3, -2, 5, 0.3, 1.1, -0.7, 2, 2, 2)

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, m))

	out := make([]float32, 16)
	Mul4(out, m, inv)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, out[i*4+j], 1e-4)
		}
	}
}

func TestInvert4Singular(t *testing.T) {
	m := make([]float32, 16) // all zero, det = 0
	out := make([]float32, 16)
	assert.False(t, Invert4(out, m))
}

func TestPerspectiveClipSpace(t *testing.T) {
	m := make([]float32, 16)
	Perspective(m, Radians(60), 16.0/9.0, 0.1, 100)

	// A point on the near plane maps to depth 0, far plane to depth 1.
	near := []float32{0, 0, -0.1, 1}
	far := []float32{0, 0, -100, 1}
	nearClip := transformPoint(m, near)
	farClip := transformPoint(m, far)
	assert.InDelta(t, 0, nearClip[2]/nearClip[3], 1e-5)
	assert.InDelta(t, 1, farClip[2]/farClip[3], 1e-4)
}

func TestLookAtOrigin(t *testing.T) {
	m := make([]float32, 16)
	LookAt(m, 0, 0, 5, 0, 0, 0, 0, 1, 0)

	// The target point ends up on the -Z axis in view space.
	p := transformPoint(m, []float32{0, 0, 0, 1})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -5, p[2], 1e-5)
}

func TestRadians(t *testing.T) {
	assert.InDelta(t, math32.Pi, Radians(180), 1e-6)
	assert.InDelta(t, math32.Pi/2, Radians(90), 1e-6)
	assert.Equal(t, float32(0), Radians(0))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32(nil)))

	data := []float32{1, 2}
	b := SliceToBytes(data)
	assert.Len(t, b, 8)
}

func TestStructToBytes(t *testing.T) {
	type uniform struct {
		MVP [16]float32
	}
	u := uniform{}
	b := StructToBytes(&u)
	assert.Len(t, b, 64)
}

// transformPoint applies a column-major 4x4 matrix to a 4-component point.
func transformPoint(m, p []float32) [4]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[row] += m[col*4+row] * p[col]
		}
	}
	return out
}
