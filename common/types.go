// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Vec3 is a 3-component float32 vector used for positions, colors, and directions.
type Vec3 [3]float32

// Add returns the component-wise sum of v and o.
//
// Parameters:
//   - o: the vector to add
//
// Returns:
//   - Vec3: the component-wise sum
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns the component-wise difference of v and o.
//
// Parameters:
//   - o: the vector to subtract
//
// Returns:
//   - Vec3: the component-wise difference
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v with every component multiplied by s.
//
// Parameters:
//   - s: the scalar multiplier
//
// Returns:
//   - Vec3: the scaled vector
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
//
// Parameters:
//   - o: the other vector
//
// Returns:
//   - float32: the dot product
func (v Vec3) Dot(o Vec3) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Vec2 is a 2-component float32 vector used for texture coordinates.
type Vec2 [2]float32

// Vec4 is a 4-component float32 vector used for RGBA colors.
type Vec4 [4]float32

// White is the neutral opaque white color.
var White = Vec4{1, 1, 1, 1}

// PrimitiveType identifies how a mesh's indices are interpreted when drawing.
type PrimitiveType uint8

const (
	// PrimitiveLines interprets index pairs as line segments.
	PrimitiveLines PrimitiveType = iota

	// PrimitiveTriangles interprets index triples as triangles.
	PrimitiveTriangles
)

// RenderMode selects how models are shaded when drawn.
type RenderMode uint8

const (
	// RenderModeWireframe draws model edges only.
	RenderModeWireframe RenderMode = iota

	// RenderModeTextured draws models with their textures applied.
	RenderModeTextured

	// RenderModeSolid draws models textured without a texture bound, producing a flat solid color.
	RenderModeSolid
)

// TextureFilter selects the sampler filtering quality used for model textures.
type TextureFilter uint8

const (
	// FilterNearest uses nearest-neighbor sampling with no mipmap interpolation.
	FilterNearest TextureFilter = iota

	// FilterLinear uses bilinear sampling with nearest mipmap selection.
	FilterLinear

	// FilterTrilinear uses bilinear sampling with linear mipmap interpolation. This is the default.
	FilterTrilinear
)

// Vertex is a position + color vertex used for wireframe meshes.
type Vertex struct {
	// Position is the vertex position in model space.
	Position Vec3
	// Color is the vertex color (RGB, 0-1 range).
	Color Vec3
}

// TexturedVertex is a position + normal + texcoord vertex used for model meshes.
type TexturedVertex struct {
	// Position is the vertex position in model space.
	Position Vec3
	// Normal is the vertex normal in model space.
	Normal Vec3
	// Texcoord is the UV texture coordinate.
	Texcoord Vec2
}

// Transform describes the placement of a model in world space.
// Rotation is expressed as Euler angles in degrees, applied in Y, X, Z order.
type Transform struct {
	// Position is the world-space translation.
	Position Vec3
	// Rotation holds Euler angles in degrees around each axis.
	Rotation Vec3
	// Scale holds per-axis scale factors.
	Scale Vec3
}

// NewTransform returns a Transform at the origin with no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func NewTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Bounds is an axis-aligned bounding box in model-local space.
type Bounds struct {
	// Min is the minimum corner of the box.
	Min Vec3
	// Max is the maximum corner of the box.
	Max Vec3
}

// Center returns the midpoint of the bounding box.
//
// Returns:
//   - Vec3: the center point
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of the bounding box along each axis.
//
// Returns:
//   - Vec3: the per-axis size
func (b Bounds) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Height returns the vertical extent of the bounding box.
//
// Returns:
//   - float32: the Y extent
func (b Bounds) Height() float32 {
	return b.Max[1] - b.Min[1]
}

// RenderStats holds per-frame rendering statistics. Counters are reset at the
// start of each frame; resource counts reflect the live resource tables.
type RenderStats struct {
	// DrawCalls is the number of draw commands issued this frame.
	DrawCalls uint32
	// Triangles is the number of triangles submitted this frame.
	Triangles uint32
	// Vertices is the number of vertices submitted this frame.
	Vertices uint32
	// ModelsLoaded is the number of models currently resident.
	ModelsLoaded uint32
	// TexturesLoaded is the number of textures currently resident.
	TexturesLoaded uint32
	// MeshesLoaded is the number of meshes currently resident.
	MeshesLoaded uint32
}

// TextureStagingData holds RGBA pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering, which can improve texture quality at oblique viewing angles.
	MaxAnisotropy uint16
}
