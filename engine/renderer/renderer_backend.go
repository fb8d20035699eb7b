package renderer

import (
	"github.com/cairn3d/cairn/common"
	"github.com/cairn3d/cairn/engine/renderer/pipeline"
	"github.com/cairn3d/cairn/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; other values (2, 8) are adapter-dependent and downgraded when unavailable.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA2x enables 2× multisample anti-aliasing. Adapter-dependent; downgraded to off when unsupported.
	MSAA2x MSAASampleCount = 2

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; downgraded to off when unsupported.
	MSAA8x MSAASampleCount = 8
)

// MeshBuffers holds the GPU vertex and index buffers for one uploaded mesh.
type MeshBuffers struct {
	// Vertex is the GPU vertex buffer.
	Vertex *wgpu.Buffer

	// Index is the GPU index buffer.
	Index *wgpu.Buffer

	// IndexFormat is the element format of the index buffer (Uint16 or Uint32).
	IndexFormat wgpu.IndexFormat

	// IndexCount is the number of indices to draw.
	IndexCount uint32

	// VertexCount is the number of vertices in the vertex buffer, used for stats.
	VertexCount uint32
}

// GPUTexture holds a GPU texture with its view, sampler and the pre-built
// bind group used to bind it to the textured pipeline family.
type GPUTexture struct {
	// Texture is the underlying GPU texture.
	Texture *wgpu.Texture

	// View is the full-mip-chain texture view.
	View *wgpu.TextureView

	// Sampler is the sampler this texture is bound with.
	Sampler *wgpu.Sampler

	// BindGroup binds View and Sampler at group 1 of the textured pipelines.
	BindGroup *wgpu.BindGroup

	// Width is the texture width in texels.
	Width uint32

	// Height is the texture height in texels.
	Height uint32
}

// RendererBackend is the GPU abstraction the Renderer drives. One frame is
// the sequence BeginFrame, scene draws, EndScenePass, optional
// ApplyPostProcess, optional overlay pass, Present. All methods must be
// called from the thread that created the backend.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain and recreates the
	// size-dependent targets (depth, MSAA, post-process) for the new size.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. A call to ConfigureSurface
	// is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceSize returns the current surface dimensions in pixels.
	//
	// Returns:
	//   - uint32: the surface width
	//   - uint32: the surface height
	SurfaceSize() (uint32, uint32)

	// SupportedSampleCount clamps a requested sample count to what the
	// adapter supports. Unsupported counts downgrade to MSAAOff.
	//
	// Parameters:
	//   - requested: the requested sample count
	//
	// Returns:
	//   - MSAASampleCount: the sample count that will actually be used
	SupportedSampleCount(requested MSAASampleCount) MSAASampleCount

	// EnsureMSAATargets creates or recreates the multisampled color and depth
	// targets at the given sample count if they do not already match.
	//
	// Parameters:
	//   - samples: the sample count the targets must have
	//
	// Returns:
	//   - bool: false if target creation failed and the frame must render without MSAA
	EnsureMSAATargets(samples MSAASampleCount) bool

	// EnsurePostProcessTarget creates the intermediate scene color target the
	// post-process pass samples from, if it does not already exist.
	//
	// Returns:
	//   - bool: false if target creation failed and the frame must render directly
	EnsurePostProcessTarget() bool

	// CreateMeshBuffers uploads vertex and index data into new GPU buffers.
	//
	// Parameters:
	//   - label: a debug label for the buffers
	//   - vertexData: the raw vertex bytes
	//   - indexData: the raw index bytes
	//   - indexFormat: the index element format
	//   - indexCount: the number of indices
	//   - vertexCount: the number of vertices
	//
	// Returns:
	//   - *MeshBuffers: the uploaded buffers
	//   - error: an error if buffer creation fails
	CreateMeshBuffers(label string, vertexData, indexData []byte, indexFormat wgpu.IndexFormat, indexCount, vertexCount uint32) (*MeshBuffers, error)

	// ReleaseMeshBuffers releases the GPU buffers. Nil-safe.
	//
	// Parameters:
	//   - buffers: the buffers to release
	ReleaseMeshBuffers(buffers *MeshBuffers)

	// CreateTexture uploads pixel data (including a pre-built mip chain) into
	// a new GPU texture and builds its sampler and bind group.
	//
	// Parameters:
	//   - label: a debug label for the texture
	//   - staging: the base level pixel data and dimensions
	//   - mips: the downsampled mip levels, smallest last (may be empty)
	//   - sampler: the sampler configuration
	//
	// Returns:
	//   - *GPUTexture: the uploaded texture
	//   - error: an error if texture creation fails
	CreateTexture(label string, staging common.TextureStagingData, mips []common.TextureStagingData, sampler common.SamplerStagingData) (*GPUTexture, error)

	// ReleaseTexture releases the GPU texture, view, sampler and bind group. Nil-safe.
	//
	// Parameters:
	//   - tex: the texture to release
	ReleaseTexture(tex *GPUTexture)

	// RegisterRenderPipeline builds the GPU pipeline object for a pipeline
	// configuration and stores it on the pipeline via SetRenderPipeline.
	// Any previous GPU object is released only on success.
	//
	// Parameters:
	//   - p: the pipeline configuration to build
	//   - prog: the shader program providing the WGSL sources
	//   - samples: the scene pass sample count for multisampled pipelines
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterRenderPipeline(p pipeline.Pipeline, prog shader.Program, samples MSAASampleCount) error

	// BeginFrame acquires the swapchain texture and begins the scene render
	// pass against the targets the plan selects.
	//
	// Parameters:
	//   - plan: the frame's target-chain decision
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame(plan FramePlan) error

	// BindPipeline sets the pipeline's GPU object on the current scene pass.
	//
	// Parameters:
	//   - p: the pipeline to bind
	BindPipeline(p pipeline.Pipeline)

	// PushUniforms appends one draw's uniform block to the per-frame uniform
	// arena and returns the dynamic offset to bind it with.
	//
	// Parameters:
	//   - data: the uniform block bytes
	//
	// Returns:
	//   - uint32: the dynamic offset for this draw's bind group
	PushUniforms(data []byte) uint32

	// DrawIndexed encodes one indexed draw within the scene pass using the
	// uniform block at the given arena offset.
	//
	// Parameters:
	//   - buffers: the mesh buffers to draw
	//   - uniformOffset: the arena offset returned by PushUniforms
	DrawIndexed(buffers *MeshBuffers, uniformOffset uint32)

	// DrawIndexedTextured encodes one indexed draw with a texture bound at
	// group 1.
	//
	// Parameters:
	//   - buffers: the mesh buffers to draw
	//   - uniformOffset: the arena offset returned by PushUniforms
	//   - tex: the texture to bind
	DrawIndexedTextured(buffers *MeshBuffers, uniformOffset uint32, tex *GPUTexture)

	// EndScenePass ends the scene render pass. If the plan used MSAA the
	// multisampled color target resolves into the scene output here.
	EndScenePass()

	// ApplyPostProcess encodes the fullscreen post-process pass, sampling the
	// intermediate scene target and writing the swapchain.
	//
	// Parameters:
	//   - p: the post-process pipeline
	//   - params: the post-process parameters for this frame
	ApplyPostProcess(p pipeline.Pipeline, params PostProcessParams)

	// BeginOverlayPass begins the UI overlay pass on the swapchain with
	// LoadOpLoad so the scene underneath is preserved.
	BeginOverlayPass()

	// EndOverlayPass ends the UI overlay pass.
	EndOverlayPass()

	// Present finishes the frame's command encoder, submits it to the GPU
	// queue and presents the surface. Releases the swapchain texture and
	// resets the uniform arena.
	Present()

	// WaitIdle blocks until the GPU has finished all submitted work.
	WaitIdle()

	// Release releases all GPU resources owned by the backend.
	Release()
}
