package renderer

import (
	"log"
	"path/filepath"

	"github.com/cairn3d/cairn/common"
	"github.com/cairn3d/cairn/engine/model"
	"github.com/cairn3d/cairn/engine/renderer/pipeline"
	"github.com/cairn3d/cairn/engine/shader"
	"github.com/cairn3d/cairn/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// MeshHandle identifies a wireframe mesh in the renderer's mesh table. The
// zero value is never issued and is safe to pass to any operation as a no-op.
type MeshHandle uint64

// ModelHandle identifies a loaded model in the renderer's model table. The
// zero value is never issued and is safe to pass to any operation as a no-op.
type ModelHandle uint64

// TextureHandle identifies a texture in the renderer's texture table. The
// zero value is never issued and is safe to pass to any operation as a no-op.
type TextureHandle uint64

const (
	// InvalidMeshHandle is the zero mesh handle returned on creation failure.
	InvalidMeshHandle MeshHandle = 0

	// InvalidModelHandle is the zero model handle returned on load failure.
	InvalidModelHandle ModelHandle = 0

	// InvalidTextureHandle is the zero texture handle returned on load failure.
	InvalidTextureHandle TextureHandle = 0
)

// Pipeline cache keys for the built-in pipeline families.
const (
	// PipelineWireframeLines renders position+color meshes as line lists.
	PipelineWireframeLines = "wireframe-lines"

	// PipelineWireframeTriangles renders position+color meshes as triangle lists.
	PipelineWireframeTriangles = "wireframe-triangles"

	// PipelineTextured renders model submeshes with texturing and lighting.
	PipelineTextured = "textured"

	// PipelineTexturedWireframe renders model submeshes as edge line lists.
	PipelineTexturedWireframe = "textured-wireframe"

	// PipelineBounds renders bounding boxes as line lists without depth writes.
	PipelineBounds = "bounds"

	// PipelinePostProcess is the fullscreen post-processing pass.
	PipelinePostProcess = "postprocess"
)

// Shader program registry names for the built-in pipeline families.
const (
	programWireframe   = "wireframe"
	programTextured    = "textured"
	programPostProcess = "postprocess"
)

// meshEntry is one wireframe mesh in the mesh table.
type meshEntry struct {
	buffers   *MeshBuffers
	primitive common.PrimitiveType
}

// modelSubmesh is one uploaded submesh of a model: the triangle buffers, the
// edge-index variant drawn in wireframe mode, and the resolved texture.
type modelSubmesh struct {
	triangles *MeshBuffers
	edges     *MeshBuffers
	texture   TextureHandle
}

// modelEntry is one loaded model in the model table. ownedTextures holds the
// textures created during this model's load; they are released with the model.
type modelEntry struct {
	path          string
	submeshes     []modelSubmesh
	ownedTextures []TextureHandle
	bounds        common.Bounds
	tint          common.Vec4
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	backendType RendererBackendType
	backend     RendererBackend

	shaders shader.Registry
	models  model.Registry

	pipelineCache map[string]pipeline.Pipeline

	meshTable    map[MeshHandle]*meshEntry
	modelTable   map[ModelHandle]*modelEntry
	textureTable map[TextureHandle]*GPUTexture
	texturePaths map[string]TextureHandle
	nextMesh     MeshHandle
	nextModel    ModelHandle
	nextTexture  TextureHandle

	defaultTexture TextureHandle

	viewProjection [16]float32
	renderMode     common.RenderMode
	background     [4]float32

	msaa          MSAASampleCount
	msaaTargetsOK bool
	pipelineDirty bool

	textureFilter common.TextureFilter
	maxAnisotropy uint16

	postParams PostProcessParams

	stats      common.RenderStats
	plan       FramePlan
	tempMeshes []MeshHandle

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	hotReload            bool
	shaderDir            string
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingRenderMode    *common.RenderMode
	pendingModels        model.Registry
}

// Renderer is the high-level rendering system: it owns the GPU resource
// tables (meshes, models, textures), the shader and pipeline registries, and
// the per-frame target chain (MSAA and post-processing). All methods must be
// called from the thread that created the Renderer; draws are only valid
// between BeginFrame and EndFrame.
type Renderer interface {
	// SetViewProjection sets the combined view-projection matrix used for all
	// draws this frame.
	//
	// Parameters:
	//   - m: a 16-element column-major matrix
	SetViewProjection(m []float32)

	// SetRenderMode sets how models are shaded when drawn.
	//
	// Parameters:
	//   - mode: the render mode to use
	SetRenderMode(mode common.RenderMode)

	// RenderMode returns the current model shading mode.
	//
	// Returns:
	//   - common.RenderMode: the current render mode
	RenderMode() common.RenderMode

	// SetBackground sets the scene clear color.
	//
	// Parameters:
	//   - r, g, b: the clear color components (0-1 range)
	SetBackground(r, g, b float32)

	// CreateMesh uploads a position+color mesh and returns its handle.
	// Empty vertex or index data is rejected with an invalid handle.
	//
	// Parameters:
	//   - vertices: the mesh vertices
	//   - indices: the mesh indices
	//   - primitive: how the indices are interpreted when drawing
	//
	// Returns:
	//   - MeshHandle: the new mesh handle, or InvalidMeshHandle on failure
	CreateMesh(vertices []common.Vertex, indices []uint16, primitive common.PrimitiveType) MeshHandle

	// CreateWireframeCube creates an axis-aligned wireframe cube mesh.
	//
	// Parameters:
	//   - center: the cube center
	//   - size: the edge length
	//   - color: the line color
	//
	// Returns:
	//   - MeshHandle: the new mesh handle, or InvalidMeshHandle on failure
	CreateWireframeCube(center common.Vec3, size float32, color common.Vec3) MeshHandle

	// CreateWireframeSphere creates a three-circle wireframe sphere mesh.
	//
	// Parameters:
	//   - center: the sphere center
	//   - radius: the sphere radius
	//   - color: the line color
	//   - segments: the number of segments per circle (minimum 3)
	//
	// Returns:
	//   - MeshHandle: the new mesh handle, or InvalidMeshHandle on failure
	CreateWireframeSphere(center common.Vec3, radius float32, color common.Vec3, segments int) MeshHandle

	// CreateWireframeGrid creates a square wireframe grid mesh on the Y=0 plane.
	//
	// Parameters:
	//   - size: the grid side length
	//   - divisions: the number of cells per side (minimum 1)
	//   - color: the line color
	//
	// Returns:
	//   - MeshHandle: the new mesh handle, or InvalidMeshHandle on failure
	CreateWireframeGrid(size float32, divisions int, color common.Vec3) MeshHandle

	// DestroyMesh releases a mesh and removes it from the mesh table.
	// Unknown or invalid handles are ignored.
	//
	// Parameters:
	//   - h: the mesh handle to destroy
	DestroyMesh(h MeshHandle)

	// Draw encodes a draw of the given mesh using the current view-projection
	// matrix. Unknown or invalid handles are ignored.
	//
	// Parameters:
	//   - h: the mesh handle to draw
	Draw(h MeshHandle)

	// LoadModel imports a model file, uploads every non-empty submesh and
	// resolves submesh textures. On any failure nothing is registered.
	//
	// Parameters:
	//   - path: the model file path
	//   - tint: the uniform color the model's texels are multiplied with; the zero value means no tint
	//
	// Returns:
	//   - ModelHandle: the new model handle, or InvalidModelHandle on failure
	//   - error: an error if import or upload fails, or the model has no usable meshes
	LoadModel(path string, tint common.Vec4) (ModelHandle, error)

	// UnloadModel releases a model's submesh buffers and its owned textures,
	// then removes it from the model table. Unknown or invalid handles are
	// ignored, making double unload safe.
	//
	// Parameters:
	//   - h: the model handle to unload
	UnloadModel(h ModelHandle)

	// DrawModel encodes draws for every submesh of the given model at the
	// given transform. Unknown or invalid handles are ignored.
	//
	// Parameters:
	//   - h: the model handle to draw
	//   - transform: the world-space placement of the model
	DrawModel(h ModelHandle, transform common.Transform)

	// Bounds returns the model's local-space bounding box.
	//
	// Parameters:
	//   - h: the model handle
	//
	// Returns:
	//   - common.Bounds: the bounding box, or the zero Bounds for unknown handles
	Bounds(h ModelHandle) common.Bounds

	// DrawBounds draws a wireframe box around the given bounds at the given
	// transform. The box mesh is temporary and is released at the start of
	// the next frame.
	//
	// Parameters:
	//   - b: the local-space bounds to draw
	//   - transform: the world-space placement
	//   - color: the line color
	DrawBounds(b common.Bounds, transform common.Transform, color common.Vec3)

	// LoadTexture decodes an image file, uploads it with a full mip chain and
	// returns its handle. Loading the same path twice returns the same handle.
	//
	// Parameters:
	//   - path: the image file path
	//
	// Returns:
	//   - TextureHandle: the texture handle, or InvalidTextureHandle on failure
	//   - error: an error if decoding or upload fails
	LoadTexture(path string) (TextureHandle, error)

	// UnloadTexture releases a texture and removes it from the texture table.
	// The default texture is protected and cannot be unloaded. Unknown or
	// invalid handles are ignored, making double unload safe.
	//
	// Parameters:
	//   - h: the texture handle to unload
	UnloadTexture(h TextureHandle)

	// SetMSAASamples requests a new MSAA sample count. Unsupported counts are
	// downgraded with a warning. Changing the count marks the pipeline
	// families for rebuild at the start of the next frame.
	//
	// Parameters:
	//   - samples: the requested sample count
	SetMSAASamples(samples MSAASampleCount)

	// MSAASamples returns the sample count currently in effect.
	//
	// Returns:
	//   - MSAASampleCount: the current sample count
	MSAASamples() MSAASampleCount

	// SetTextureFilter sets the sampler filter quality used for textures
	// created after this call.
	//
	// Parameters:
	//   - filter: the filter quality
	SetTextureFilter(filter common.TextureFilter)

	// SetMaxAnisotropy sets the anisotropic filtering level used for textures
	// created after this call. Only applies with FilterTrilinear.
	//
	// Parameters:
	//   - level: the anisotropy level (1 disables)
	SetMaxAnisotropy(level uint16)

	// SetPostProcess sets the post-processing parameters. Neutral parameters
	// (see DefaultPostProcessParams) bypass the post-process pass entirely.
	//
	// Parameters:
	//   - params: the parameters to apply from the next frame
	SetPostProcess(params PostProcessParams)

	// PostProcess returns the current post-processing parameters.
	//
	// Returns:
	//   - PostProcessParams: the current parameters
	PostProcess() PostProcessParams

	// Stats returns the statistics accumulated since the last BeginFrame.
	//
	// Returns:
	//   - common.RenderStats: the current frame statistics
	Stats() common.RenderStats

	// BeginFrame starts a new frame: releases the previous frame's temporary
	// meshes, resets the frame statistics, rebuilds dirty pipelines, decides
	// the frame's target chain and begins the scene pass.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// EndFrame ends the scene pass and, when active, applies the
	// post-processing chain to the swapchain.
	EndFrame()

	// BeginOverlay begins the UI overlay pass on top of the finished scene.
	BeginOverlay()

	// EndOverlay ends the UI overlay pass.
	EndOverlay()

	// Present submits the frame's commands and presents the surface.
	Present()

	// WaitIdle blocks until the GPU has finished all submitted work.
	WaitIdle()

	// Resize reconfigures the swapchain and size-dependent targets.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A call to Resize is
	// required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// ReloadPipelines rebuilds every pipeline family if a rebuild is pending.
	// Rebuild failures are logged and leave the previous GPU pipeline in place.
	ReloadPipelines()

	// ShaderRegistry returns the shader program registry, used by the engine
	// loop to poll for hot reloads.
	//
	// Returns:
	//   - shader.Registry: the shader registry
	ShaderRegistry() shader.Registry

	// Release releases every resource table, the shader registry and the
	// backend. The Renderer must not be used afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the given window's surface.
// Initialization failures (no adapter, no device, stock shader compile
// errors) panic, since nothing can render without them.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new Renderer instance
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := newRendererCore(options...)
	r.backendType = backendType

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(win.Width(), win.Height())

	r.msaa = r.backend.SupportedSampleCount(r.msaa)

	r.initShaders()
	r.initDefaultTexture()
	r.initPipelines()
	return r
}

// newRendererCore builds the renderer state shared by NewRenderer and the
// fake-backend construction path used in tests. The backend is left nil.
func newRendererCore(options ...RendererBuilderOption) *renderer {
	r := &renderer{
		pipelineCache: make(map[string]pipeline.Pipeline),
		meshTable:     make(map[MeshHandle]*meshEntry),
		modelTable:    make(map[ModelHandle]*modelEntry),
		textureTable:  make(map[TextureHandle]*GPUTexture),
		texturePaths:  make(map[string]TextureHandle),
		nextMesh:      1,
		nextModel:     1,
		nextTexture:   1,
		renderMode:    common.RenderModeTextured,
		background:    [4]float32{0.05, 0.05, 0.08, 1},
		msaa:          MSAA4x,
		textureFilter: common.FilterTrilinear,
		maxAnisotropy: 4,
		postParams:    DefaultPostProcessParams(),
	}
	common.Identity(r.viewProjection[:])

	for _, opt := range options {
		opt(r)
	}

	if r.pendingMSAA != nil {
		r.msaa = *r.pendingMSAA
	}
	if r.pendingRenderMode != nil {
		r.renderMode = *r.pendingRenderMode
	}

	r.models = r.pendingModels
	if r.models == nil {
		r.models = model.NewRegistry()
	}
	return r
}

// initShaders loads the built-in shader programs, preferring on-disk sources
// when a shader directory is configured so they can hot reload.
func (r *renderer) initShaders() {
	r.shaders = shader.NewRegistry(shader.WithHotReload(r.hotReload))
	r.shaders.SetReloadCallback(func(name string) {
		r.pipelineDirty = true
		log.Printf("[Renderer] shader program %q reloaded, pipelines queued for rebuild", name)
	})

	stock := []struct {
		name     string
		vs, fs   string
		embedded [2]string
	}{
		{programWireframe, "wireframe_vs.wgsl", "wireframe_fs.wgsl", [2]string{shader.WireframeVS, shader.WireframeFS}},
		{programTextured, "textured_vs.wgsl", "textured_fs.wgsl", [2]string{shader.TexturedVS, shader.TexturedFS}},
		{programPostProcess, "postprocess_vs.wgsl", "postprocess_fs.wgsl", [2]string{shader.PostProcessVS, shader.PostProcessFS}},
	}

	for _, s := range stock {
		if r.shaderDir != "" {
			_, err := r.shaders.LoadProgram(s.name, filepath.Join(r.shaderDir, s.vs), filepath.Join(r.shaderDir, s.fs))
			if err == nil {
				continue
			}
			log.Printf("[Renderer] shader program %q not usable from %s (%v), using embedded sources", s.name, r.shaderDir, err)
		}
		if _, err := r.shaders.LoadProgramSource(s.name, s.embedded[0], s.embedded[1]); err != nil {
			log.Panicf("[Renderer] embedded shader program %q failed to compile: %v", s.name, err)
		}
	}
}

// initDefaultTexture uploads the 1x1 white fallback texture bound whenever a
// model has no texture of its own.
func (r *renderer) initDefaultTexture() {
	h, err := r.createTexture("default", defaultTextureStaging())
	if err != nil {
		log.Panicf("[Renderer] failed to create default texture: %v", err)
	}
	r.defaultTexture = h
}

// initPipelines builds the pipeline family configurations and registers their
// GPU objects.
func (r *renderer) initPipelines() {
	families := []pipeline.Pipeline{
		pipeline.NewPipeline(PipelineWireframeLines, programWireframe,
			pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
		),
		pipeline.NewPipeline(PipelineWireframeTriangles, programWireframe),
		pipeline.NewPipeline(PipelineTextured, programTextured,
			pipeline.WithVertexLayout(pipeline.VertexLayoutTextured),
			pipeline.WithCullMode(wgpu.CullModeBack),
		),
		pipeline.NewPipeline(PipelineTexturedWireframe, programTextured,
			pipeline.WithVertexLayout(pipeline.VertexLayoutTextured),
			pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
		),
		pipeline.NewPipeline(PipelineBounds, programWireframe,
			pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
		),
		pipeline.NewPipeline(PipelinePostProcess, programPostProcess,
			pipeline.WithVertexLayout(pipeline.VertexLayoutNone),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithMultisampled(false),
		),
	}

	for _, p := range families {
		prog := r.shaders.Program(p.ShaderProgram())
		if prog == nil {
			log.Panicf("[Renderer] pipeline %q references unknown shader program %q", p.PipelineKey(), p.ShaderProgram())
		}
		if err := r.backend.RegisterRenderPipeline(p, prog, r.msaa); err != nil {
			log.Panicf("[Renderer] failed to register pipeline %q: %v", p.PipelineKey(), err)
		}
		r.pipelineCache[p.PipelineKey()] = p
	}
}

func (r *renderer) SetViewProjection(m []float32) {
	if len(m) < 16 {
		return
	}
	copy(r.viewProjection[:], m[:16])
}

func (r *renderer) SetRenderMode(mode common.RenderMode) {
	r.renderMode = mode
}

func (r *renderer) RenderMode() common.RenderMode {
	return r.renderMode
}

func (r *renderer) SetBackground(red, green, blue float32) {
	r.background = [4]float32{red, green, blue, 1}
}

func (r *renderer) CreateMesh(vertices []common.Vertex, indices []uint16, primitive common.PrimitiveType) MeshHandle {
	if len(vertices) == 0 || len(indices) == 0 {
		log.Printf("[Renderer] rejecting empty mesh (%d vertices, %d indices)", len(vertices), len(indices))
		return InvalidMeshHandle
	}

	return r.uploadMesh(vertices, indices, primitive)
}

// uploadMesh uploads a mesh and registers it in the mesh table.
func (r *renderer) uploadMesh(vertices []common.Vertex, indices []uint16, primitive common.PrimitiveType) MeshHandle {
	buffers, err := r.backend.CreateMeshBuffers(
		"mesh",
		common.SliceToBytes(vertices),
		common.SliceToBytes(indices),
		wgpu.IndexFormatUint16,
		uint32(len(indices)),
		uint32(len(vertices)),
	)
	if err != nil {
		log.Printf("[Renderer] mesh upload failed: %v", err)
		return InvalidMeshHandle
	}

	h := r.nextMesh
	r.nextMesh++
	r.meshTable[h] = &meshEntry{buffers: buffers, primitive: primitive}
	return h
}

func (r *renderer) CreateWireframeCube(center common.Vec3, size float32, color common.Vec3) MeshHandle {
	vertices, indices := wireframeCubeGeometry(center, size, color)
	return r.CreateMesh(vertices, indices, common.PrimitiveLines)
}

func (r *renderer) CreateWireframeSphere(center common.Vec3, radius float32, color common.Vec3, segments int) MeshHandle {
	vertices, indices := wireframeSphereGeometry(center, radius, color, segments)
	return r.CreateMesh(vertices, indices, common.PrimitiveLines)
}

func (r *renderer) CreateWireframeGrid(size float32, divisions int, color common.Vec3) MeshHandle {
	vertices, indices := wireframeGridGeometry(size, divisions, color)
	return r.CreateMesh(vertices, indices, common.PrimitiveLines)
}

func (r *renderer) DestroyMesh(h MeshHandle) {
	entry, exists := r.meshTable[h]
	if !exists {
		return
	}
	r.backend.ReleaseMeshBuffers(entry.buffers)
	delete(r.meshTable, h)
}

func (r *renderer) Draw(h MeshHandle) {
	entry, exists := r.meshTable[h]
	if !exists {
		return
	}

	key := PipelineWireframeLines
	if entry.primitive == common.PrimitiveTriangles {
		key = PipelineWireframeTriangles
	}
	r.drawLines(entry.buffers, r.pipelineCache[key], r.viewProjection[:])
}

// drawLines encodes one position+color draw with the given matrix as the
// full MVP.
func (r *renderer) drawLines(buffers *MeshBuffers, p pipeline.Pipeline, mvp []float32) {
	if p == nil {
		return
	}
	offset := r.backend.PushUniforms(common.SliceToBytes(mvp))
	r.backend.BindPipeline(p)
	r.backend.DrawIndexed(buffers, offset)

	r.stats.DrawCalls++
	r.stats.Vertices += buffers.VertexCount
}

func (r *renderer) DrawModel(h ModelHandle, transform common.Transform) {
	entry, exists := r.modelTable[h]
	if !exists {
		return
	}

	var modelMatrix, mvp [16]float32
	common.BuildModelMatrix(modelMatrix[:],
		transform.Position[0], transform.Position[1], transform.Position[2],
		common.Radians(transform.Rotation[0]), common.Radians(transform.Rotation[1]), common.Radians(transform.Rotation[2]),
		transform.Scale[0], transform.Scale[1], transform.Scale[2],
	)
	common.Mul4(mvp[:], r.viewProjection[:], modelMatrix[:])

	uniform := modelUniform{Tint: entry.tint}
	copy(uniform.MVP[:], mvp[:])
	data := common.StructToBytes(&uniform)

	wireframe := r.renderMode == common.RenderModeWireframe
	key := PipelineTextured
	if wireframe {
		key = PipelineTexturedWireframe
	}
	p := r.pipelineCache[key]
	if p == nil {
		return
	}

	for _, sub := range entry.submeshes {
		buffers := sub.triangles
		if wireframe {
			buffers = sub.edges
		}
		if buffers == nil {
			continue
		}

		tex := r.resolveTexture(sub.texture)
		offset := r.backend.PushUniforms(data)
		r.backend.BindPipeline(p)
		r.backend.DrawIndexedTextured(buffers, offset, tex)

		r.stats.DrawCalls++
		r.stats.Vertices += buffers.VertexCount
		if !wireframe {
			r.stats.Triangles += buffers.IndexCount / 3
		}
	}
}

// modelUniform is the uniform block layout shared by the textured pipelines.
type modelUniform struct {
	MVP  [16]float32
	Tint common.Vec4
}

// resolveTexture maps a texture handle to its GPU texture, falling back to
// the default texture. Solid render mode always uses the default so models
// draw untextured.
func (r *renderer) resolveTexture(h TextureHandle) *GPUTexture {
	if r.renderMode == common.RenderModeSolid {
		h = r.defaultTexture
	}
	if tex, exists := r.textureTable[h]; exists {
		return tex
	}
	return r.textureTable[r.defaultTexture]
}

func (r *renderer) Bounds(h ModelHandle) common.Bounds {
	if entry, exists := r.modelTable[h]; exists {
		return entry.bounds
	}
	return common.Bounds{}
}

func (r *renderer) DrawBounds(b common.Bounds, transform common.Transform, color common.Vec3) {
	vertices, indices := boundsGeometry(b, color)
	h := r.uploadMesh(vertices, indices, common.PrimitiveLines)
	if h == InvalidMeshHandle {
		return
	}
	r.tempMeshes = append(r.tempMeshes, h)

	var modelMatrix, mvp [16]float32
	common.BuildModelMatrix(modelMatrix[:],
		transform.Position[0], transform.Position[1], transform.Position[2],
		common.Radians(transform.Rotation[0]), common.Radians(transform.Rotation[1]), common.Radians(transform.Rotation[2]),
		transform.Scale[0], transform.Scale[1], transform.Scale[2],
	)
	common.Mul4(mvp[:], r.viewProjection[:], modelMatrix[:])

	p := r.pipelineCache[PipelineBounds]
	if p == nil {
		p = r.pipelineCache[PipelineWireframeLines]
	}
	r.drawLines(r.meshTable[h].buffers, p, mvp[:])
}

func (r *renderer) UnloadTexture(h TextureHandle) {
	if h == r.defaultTexture {
		log.Printf("[Renderer] refusing to unload the default texture")
		return
	}
	r.releaseTexture(h)
}

// releaseTexture releases a texture and removes it from the texture table
// and the path cache. Unknown handles are ignored.
func (r *renderer) releaseTexture(h TextureHandle) {
	tex, exists := r.textureTable[h]
	if !exists {
		return
	}
	r.backend.ReleaseTexture(tex)
	delete(r.textureTable, h)
	for path, cached := range r.texturePaths {
		if cached == h {
			delete(r.texturePaths, path)
		}
	}
}

func (r *renderer) UnloadModel(h ModelHandle) {
	entry, exists := r.modelTable[h]
	if !exists {
		return
	}

	for _, sub := range entry.submeshes {
		r.backend.ReleaseMeshBuffers(sub.triangles)
		r.backend.ReleaseMeshBuffers(sub.edges)
	}
	for _, th := range entry.ownedTextures {
		if th == r.defaultTexture {
			continue
		}
		r.releaseTexture(th)
	}
	delete(r.modelTable, h)
}

func (r *renderer) SetMSAASamples(samples MSAASampleCount) {
	supported := r.backend.SupportedSampleCount(samples)
	if supported != samples {
		log.Printf("[Renderer] MSAA %dx unsupported by adapter, using %dx", samples, supported)
	}
	if supported == r.msaa {
		return
	}
	r.msaa = supported
	r.msaaTargetsOK = false
	r.pipelineDirty = true
}

func (r *renderer) MSAASamples() MSAASampleCount {
	return r.msaa
}

func (r *renderer) SetTextureFilter(filter common.TextureFilter) {
	r.textureFilter = filter
}

func (r *renderer) SetMaxAnisotropy(level uint16) {
	r.maxAnisotropy = max(level, 1)
}

func (r *renderer) SetPostProcess(params PostProcessParams) {
	r.postParams = params
}

func (r *renderer) PostProcess() PostProcessParams {
	return r.postParams
}

func (r *renderer) Stats() common.RenderStats {
	return r.stats
}

func (r *renderer) BeginFrame() error {
	for _, h := range r.tempMeshes {
		if entry, exists := r.meshTable[h]; exists {
			r.backend.ReleaseMeshBuffers(entry.buffers)
			delete(r.meshTable, h)
		}
	}
	r.tempMeshes = r.tempMeshes[:0]

	r.stats = common.RenderStats{
		ModelsLoaded:   uint32(len(r.modelTable)),
		TexturesLoaded: uint32(len(r.textureTable)),
		MeshesLoaded:   uint32(len(r.meshTable)),
	}

	r.rebuildPipelines()

	if r.msaa > MSAAOff && !r.msaaTargetsOK {
		r.msaaTargetsOK = r.backend.EnsureMSAATargets(r.msaa)
		if !r.msaaTargetsOK {
			log.Printf("[Renderer] MSAA target creation failed, rendering without MSAA this frame")
		}
	}

	params := r.postParams
	if params.Active() && !r.backend.EnsurePostProcessTarget() {
		log.Printf("[Renderer] post-process target creation failed, rendering directly this frame")
		params = DefaultPostProcessParams()
	}

	r.plan = buildFramePlan(params, r.msaa, r.msaaTargetsOK, r.background)
	return r.backend.BeginFrame(r.plan)
}

func (r *renderer) EndFrame() {
	r.backend.EndScenePass()
	if r.plan.UsePostProcess {
		r.backend.ApplyPostProcess(r.pipelineCache[PipelinePostProcess], r.postParams)
	}
}

func (r *renderer) BeginOverlay() {
	r.backend.BeginOverlayPass()
}

func (r *renderer) EndOverlay() {
	r.backend.EndOverlayPass()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) WaitIdle() {
	r.backend.WaitIdle()
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
	r.msaaTargetsOK = false
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) ReloadPipelines() {
	r.rebuildPipelines()
}

// rebuildPipelines rebuilds every pipeline family when a rebuild is pending.
// Failures leave the previous GPU pipeline in place so the family keeps
// rendering with the last good shader.
func (r *renderer) rebuildPipelines() {
	if !r.pipelineDirty {
		return
	}
	r.pipelineDirty = false

	for _, p := range r.pipelineCache {
		prog := r.shaders.Program(p.ShaderProgram())
		if prog == nil {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p, prog, r.msaa); err != nil {
			log.Printf("[Renderer] rebuild of pipeline %q failed, keeping previous: %v", p.PipelineKey(), err)
		}
	}
}

func (r *renderer) ShaderRegistry() shader.Registry {
	return r.shaders
}

func (r *renderer) Release() {
	for h, entry := range r.meshTable {
		r.backend.ReleaseMeshBuffers(entry.buffers)
		delete(r.meshTable, h)
	}
	for h, entry := range r.modelTable {
		for _, sub := range entry.submeshes {
			r.backend.ReleaseMeshBuffers(sub.triangles)
			r.backend.ReleaseMeshBuffers(sub.edges)
		}
		delete(r.modelTable, h)
	}
	for h, tex := range r.textureTable {
		r.backend.ReleaseTexture(tex)
		delete(r.textureTable, h)
	}
	r.texturePaths = make(map[string]TextureHandle)
	r.tempMeshes = nil

	if r.shaders != nil {
		r.shaders.ReleaseAll()
	}
	r.backend.WaitIdle()
	r.backend.Release()
}
