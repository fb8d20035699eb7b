package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cairn3d/cairn/common"
	"github.com/cairn3d/cairn/engine/model"
	"github.com/cairn3d/cairn/engine/renderer/pipeline"
	"github.com/cairn3d/cairn/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements RendererBackend without a GPU, recording calls so
// tests can assert on the renderer's orchestration.
type fakeBackend struct {
	buffersCreated  int
	buffersReleased int
	// buffersUntilFail makes CreateMeshBuffers fail once this many more
	// buffers have been created. -1 disables failure injection.
	buffersUntilFail int

	texturesCreated  int
	texturesReleased int

	registered []string
	plans      []FramePlan
	draws      []fakeDraw
	uniforms   int

	msaaOK bool
	ppOK   bool

	scenePassesEnded int
	postApplied      int
	presented        int

	width, height uint32
}

type fakeDraw struct {
	indexCount  uint32
	vertexCount uint32
	textured    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		buffersUntilFail: -1,
		msaaOK:           true,
		ppOK:             true,
		width:            800,
		height:           600,
	}
}

func (f *fakeBackend) ConfigureSurface(width, height int) {
	f.width = uint32(width)
	f.height = uint32(height)
}
func (f *fakeBackend) SetPresentMode(PresentMode)       {}
func (f *fakeBackend) SurfaceSize() (uint32, uint32)    { return f.width, f.height }
func (f *fakeBackend) EnsureMSAATargets(MSAASampleCount) bool { return f.msaaOK }
func (f *fakeBackend) EnsurePostProcessTarget() bool          { return f.ppOK }

func (f *fakeBackend) SupportedSampleCount(requested MSAASampleCount) MSAASampleCount {
	switch requested {
	case MSAAOff, MSAA4x:
		return requested
	default:
		return MSAAOff
	}
}

func (f *fakeBackend) CreateMeshBuffers(label string, vertexData, indexData []byte, indexFormat wgpu.IndexFormat, indexCount, vertexCount uint32) (*MeshBuffers, error) {
	if f.buffersUntilFail == 0 {
		return nil, assert.AnError
	}
	if f.buffersUntilFail > 0 {
		f.buffersUntilFail--
	}
	f.buffersCreated++
	return &MeshBuffers{IndexFormat: indexFormat, IndexCount: indexCount, VertexCount: vertexCount}, nil
}

func (f *fakeBackend) ReleaseMeshBuffers(buffers *MeshBuffers) {
	if buffers != nil {
		f.buffersReleased++
	}
}

func (f *fakeBackend) CreateTexture(label string, staging common.TextureStagingData, mips []common.TextureStagingData, sampler common.SamplerStagingData) (*GPUTexture, error) {
	f.texturesCreated++
	return &GPUTexture{Width: staging.Width, Height: staging.Height}, nil
}

func (f *fakeBackend) ReleaseTexture(tex *GPUTexture) {
	if tex != nil {
		f.texturesReleased++
	}
}

func (f *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline, prog shader.Program, samples MSAASampleCount) error {
	f.registered = append(f.registered, p.PipelineKey())
	return nil
}

func (f *fakeBackend) BeginFrame(plan FramePlan) error {
	f.plans = append(f.plans, plan)
	return nil
}

func (f *fakeBackend) BindPipeline(pipeline.Pipeline) {}

func (f *fakeBackend) PushUniforms(data []byte) uint32 {
	f.uniforms++
	return uint32(f.uniforms * 256)
}

func (f *fakeBackend) DrawIndexed(buffers *MeshBuffers, uniformOffset uint32) {
	f.draws = append(f.draws, fakeDraw{indexCount: buffers.IndexCount, vertexCount: buffers.VertexCount})
}

func (f *fakeBackend) DrawIndexedTextured(buffers *MeshBuffers, uniformOffset uint32, tex *GPUTexture) {
	f.draws = append(f.draws, fakeDraw{indexCount: buffers.IndexCount, vertexCount: buffers.VertexCount, textured: true})
}

func (f *fakeBackend) EndScenePass() { f.scenePassesEnded++ }
func (f *fakeBackend) ApplyPostProcess(pipeline.Pipeline, PostProcessParams) {
	f.postApplied++
}
func (f *fakeBackend) BeginOverlayPass() {}
func (f *fakeBackend) EndOverlayPass()   {}
func (f *fakeBackend) Present()          { f.presented++ }
func (f *fakeBackend) WaitIdle()         {}
func (f *fakeBackend) Release()          {}

var _ RendererBackend = &fakeBackend{}

func newTestRenderer(t *testing.T, fb *fakeBackend, opts ...RendererBuilderOption) *renderer {
	t.Helper()
	r := newRendererCore(opts...)
	r.backend = fb
	r.msaa = fb.SupportedSampleCount(r.msaa)
	r.initShaders()
	r.initDefaultTexture()
	r.initPipelines()
	return r
}

func quadMesh(r *renderer) MeshHandle {
	vertices := []common.Vertex{
		{Position: common.Vec3{-1, -1, 0}},
		{Position: common.Vec3{1, -1, 0}},
		{Position: common.Vec3{1, 1, 0}},
		{Position: common.Vec3{-1, 1, 0}},
	}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	return r.CreateMesh(vertices, indices, common.PrimitiveTriangles)
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// unitCubeLoader returns a model registry whose .obj loader produces a unit
// cube submesh, optionally textured via the given material reference.
func unitCubeLoader(baseColor model.TextureRef) model.Registry {
	registry := model.NewRegistry()
	registry.Register(".obj", model.LoaderFunc(func(path string) (*model.Imported, error) {
		vertices := make([]common.TexturedVertex, 0, 8)
		for _, offset := range cubeCornerOffsets {
			vertices = append(vertices, common.TexturedVertex{Position: offset.Scale(0.5)})
		}
		indices := []uint32{
			0, 2, 1, 0, 3, 2,
			4, 5, 6, 4, 6, 7,
			0, 1, 5, 0, 5, 4,
			2, 3, 7, 2, 7, 6,
			0, 4, 7, 0, 7, 3,
			1, 2, 6, 1, 6, 5,
		}
		imported := &model.Imported{
			Submeshes: []model.Submesh{{Vertices: vertices, Indices: indices, MaterialIndex: 0}},
		}
		if !baseColor.IsZero() {
			imported.Materials = []model.Material{{Name: "base", BaseColor: baseColor}}
		}
		return imported, nil
	}))
	return registry
}

func TestHandleSpacesStartAtOne(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{})))

	assert.Equal(t, TextureHandle(1), r.defaultTexture)

	first := quadMesh(r)
	second := quadMesh(r)
	assert.Equal(t, MeshHandle(1), first)
	assert.Equal(t, MeshHandle(2), second)

	h, err := r.LoadModel("cube.obj", common.Vec4{})
	require.NoError(t, err)
	assert.Equal(t, ModelHandle(1), h)
}

func TestCreateMeshRejectsEmpty(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)

	assert.Equal(t, InvalidMeshHandle, r.CreateMesh(nil, []uint16{0}, common.PrimitiveLines))
	assert.Equal(t, InvalidMeshHandle, r.CreateMesh([]common.Vertex{{}}, nil, common.PrimitiveLines))
	assert.Zero(t, fb.buffersCreated)
}

func TestInvalidHandlesAreNoOps(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)
	require.NoError(t, r.BeginFrame())

	r.Draw(InvalidMeshHandle)
	r.Draw(MeshHandle(99))
	r.DestroyMesh(InvalidMeshHandle)
	r.DrawModel(InvalidModelHandle, common.NewTransform())
	r.UnloadModel(ModelHandle(99))
	r.UnloadTexture(TextureHandle(99))

	assert.Empty(t, fb.draws)
	assert.Zero(t, fb.buffersReleased)
	assert.Zero(t, fb.texturesReleased)
	assert.Equal(t, common.Bounds{}, r.Bounds(InvalidModelHandle))
}

func TestDrawAccumulatesStats(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)
	h := quadMesh(r)
	require.NoError(t, r.BeginFrame())

	r.Draw(h)
	r.Draw(h)

	stats := r.Stats()
	assert.Equal(t, uint32(2), stats.DrawCalls)
	assert.Equal(t, uint32(8), stats.Vertices)
	require.Len(t, fb.draws, 2)
	assert.Equal(t, uint32(6), fb.draws[0].indexCount)
	assert.False(t, fb.draws[0].textured)
}

func TestBeginFramePrepopulatesStats(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{})))
	quadMesh(r)
	quadMesh(r)
	_, err := r.LoadModel("cube.obj", common.Vec4{})
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())

	stats := r.Stats()
	assert.Equal(t, uint32(2), stats.MeshesLoaded)
	assert.Equal(t, uint32(1), stats.ModelsLoaded)
	assert.Equal(t, uint32(1), stats.TexturesLoaded)
	assert.Zero(t, stats.DrawCalls)
	assert.Zero(t, stats.Vertices)
	assert.Zero(t, stats.Triangles)
}

func TestDrawBoundsUsesTemporaryMesh(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)
	require.NoError(t, r.BeginFrame())

	bounds := common.Bounds{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}
	r.DrawBounds(bounds, common.NewTransform(), common.Vec3{1, 1, 0})

	assert.Len(t, r.meshTable, 1)
	assert.Len(t, r.tempMeshes, 1)
	assert.Equal(t, uint32(1), r.Stats().DrawCalls)

	released := fb.buffersReleased
	require.NoError(t, r.BeginFrame())
	assert.Equal(t, released+1, fb.buffersReleased)
	assert.Empty(t, r.meshTable)
	assert.Empty(t, r.tempMeshes)
}

func TestSupportedSampleCountDowngradesToOff(t *testing.T) {
	b := &wgpuRendererBackendImpl{}

	assert.Equal(t, MSAAOff, b.SupportedSampleCount(MSAAOff))
	assert.Equal(t, MSAA4x, b.SupportedSampleCount(MSAA4x))
	assert.Equal(t, MSAAOff, b.SupportedSampleCount(MSAA2x))
	assert.Equal(t, MSAAOff, b.SupportedSampleCount(MSAA8x))
}

func TestSetMSAADowngradesUnsupportedCounts(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)
	require.Equal(t, MSAA4x, r.MSAASamples())

	registeredBefore := len(fb.registered)
	r.SetMSAASamples(MSAA2x)
	assert.Equal(t, MSAAOff, r.MSAASamples())
	assert.True(t, r.pipelineDirty)

	require.NoError(t, r.BeginFrame())
	assert.Equal(t, registeredBefore+len(r.pipelineCache), len(fb.registered))
	assert.False(t, r.pipelineDirty)

	r.SetMSAASamples(MSAA4x)
	require.NoError(t, r.BeginFrame())
	require.False(t, r.pipelineDirty)

	r.SetMSAASamples(MSAA8x)
	assert.Equal(t, MSAAOff, r.MSAASamples())
	assert.True(t, r.pipelineDirty)
}

func TestMSAATargetFailureFallsBackToDirect(t *testing.T) {
	fb := newFakeBackend()
	fb.msaaOK = false
	r := newTestRenderer(t, fb)

	require.NoError(t, r.BeginFrame())
	require.NotEmpty(t, fb.plans)
	assert.False(t, fb.plans[len(fb.plans)-1].UseMSAA)
}

func TestPostProcessDrivesTargetChain(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)

	require.NoError(t, r.BeginFrame())
	assert.False(t, fb.plans[len(fb.plans)-1].UsePostProcess)
	r.EndFrame()
	assert.Zero(t, fb.postApplied)

	params := DefaultPostProcessParams()
	params.Vignette = 0.4
	r.SetPostProcess(params)

	require.NoError(t, r.BeginFrame())
	assert.True(t, fb.plans[len(fb.plans)-1].UsePostProcess)
	r.EndFrame()
	assert.Equal(t, 1, fb.postApplied)
}

func TestPostProcessTargetFailureRendersDirect(t *testing.T) {
	fb := newFakeBackend()
	fb.ppOK = false
	r := newTestRenderer(t, fb)

	params := DefaultPostProcessParams()
	params.FXAA = true
	r.SetPostProcess(params)

	require.NoError(t, r.BeginFrame())
	assert.False(t, fb.plans[len(fb.plans)-1].UsePostProcess)
	r.EndFrame()
	assert.Zero(t, fb.postApplied)
}

func TestLoadModelBoundsRoundTrip(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{})))

	h, err := r.LoadModel("cube.obj", common.Vec4{})
	require.NoError(t, err)

	bounds := r.Bounds(h)
	assert.Equal(t, common.Vec3{-0.5, -0.5, -0.5}, bounds.Min)
	assert.Equal(t, common.Vec3{0.5, 0.5, 0.5}, bounds.Max)
	assert.InDelta(t, 1.0, bounds.Height(), 1e-6)
	assert.Equal(t, common.Vec3{0, 0, 0}, bounds.Center())
}

func TestDrawModelStatsByRenderMode(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{})))
	h, err := r.LoadModel("cube.obj", common.Vec4{})
	require.NoError(t, err)

	require.NoError(t, r.BeginFrame())
	r.DrawModel(h, common.NewTransform())

	stats := r.Stats()
	assert.Equal(t, uint32(1), stats.DrawCalls)
	assert.Equal(t, uint32(8), stats.Vertices)
	assert.Equal(t, uint32(12), stats.Triangles)
	require.Len(t, fb.draws, 1)
	assert.True(t, fb.draws[0].textured)

	r.SetRenderMode(common.RenderModeWireframe)
	require.NoError(t, r.BeginFrame())
	r.DrawModel(h, common.NewTransform())

	stats = r.Stats()
	assert.Equal(t, uint32(1), stats.DrawCalls)
	assert.Zero(t, stats.Triangles, "wireframe draws contribute no triangles")
}

func TestLoadModelTint(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{})))

	plain, err := r.LoadModel("cube.obj", common.Vec4{})
	require.NoError(t, err)
	assert.Equal(t, common.White, r.modelTable[plain].tint)

	tinted, err := r.LoadModel("cube.obj", common.Vec4{1, 0.5, 0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, common.Vec4{1, 0.5, 0.5, 1}, r.modelTable[tinted].tint)
}

func TestLoadModelNoMeshes(t *testing.T) {
	registry := model.NewRegistry()
	registry.Register(".obj", model.LoaderFunc(func(string) (*model.Imported, error) {
		return &model.Imported{}, nil
	}))

	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(registry))

	created := fb.buffersCreated
	_, err := r.LoadModel("empty.obj", common.Vec4{})
	assert.ErrorIs(t, err, model.ErrNoMeshes)
	assert.Equal(t, created, fb.buffersCreated)
	assert.Empty(t, r.modelTable)
}

func TestLoadModelUploadFailureRollsBack(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{})))

	// The first buffer (triangles) uploads, the edge variant fails.
	fb.buffersUntilFail = 1
	_, err := r.LoadModel("cube.obj", common.Vec4{})
	require.Error(t, err)
	assert.Empty(t, r.modelTable)
	assert.Equal(t, 1, fb.buffersReleased)
}

func TestUnloadModelReleasesOwnedTextures(t *testing.T) {
	dir := t.TempDir()
	texPath := filepath.Join(dir, "base.png")
	writeTestPNG(t, texPath)

	fb := newFakeBackend()
	r := newTestRenderer(t, fb, WithModelRegistry(unitCubeLoader(model.TextureRef{Path: texPath})))

	h, err := r.LoadModel(filepath.Join(dir, "cube.obj"), common.Vec4{})
	require.NoError(t, err)
	assert.Len(t, r.textureTable, 2, "default plus the model texture")

	r.UnloadModel(h)
	assert.Len(t, r.textureTable, 1)
	assert.Equal(t, 1, fb.texturesReleased)
	assert.Equal(t, 2, fb.buffersReleased, "triangle and edge buffers for the submesh")

	r.UnloadModel(h)
	assert.Equal(t, 1, fb.texturesReleased)
}

func TestUnloadTextureRefusesDefault(t *testing.T) {
	fb := newFakeBackend()
	r := newTestRenderer(t, fb)

	r.UnloadTexture(r.defaultTexture)
	assert.Len(t, r.textureTable, 1)
	assert.Zero(t, fb.texturesReleased)
}

func TestLoadTextureCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tex.png")
	writeTestPNG(t, path)

	fb := newFakeBackend()
	r := newTestRenderer(t, fb)

	first, err := r.LoadTexture(path)
	require.NoError(t, err)
	second, err := r.LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, fb.texturesCreated, "default plus one cached texture")

	r.UnloadTexture(first)
	r.UnloadTexture(first)
	assert.Equal(t, 1, fb.texturesReleased)

	// A fresh load after unload re-creates the texture.
	third, err := r.LoadTexture(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestFindTextureForModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.png"), []byte{1}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aaa.jpg"), []byte{1}, 0o644))

	found := findTextureForModel(filepath.Join(dir, "crate.obj"))
	assert.Equal(t, filepath.Join(dir, "crate.png"), found)

	// Without a same-stem match the first image in directory order wins.
	found = findTextureForModel(filepath.Join(dir, "other.obj"))
	assert.Equal(t, filepath.Join(dir, "aaa.jpg"), found)

	assert.Empty(t, findTextureForModel(filepath.Join(t.TempDir(), "none.obj")))
}

func TestBuildEdgeIndices(t *testing.T) {
	// Two triangles sharing one edge: 5 unique edges.
	edges := buildEdgeIndices([]uint32{0, 1, 2, 0, 2, 3})
	assert.Len(t, edges, 10)

	seen := make(map[[2]uint32]bool)
	for i := 0; i < len(edges); i += 2 {
		a, b := edges[i], edges[i+1]
		require.Less(t, a, b)
		require.False(t, seen[[2]uint32{a, b}], "duplicate edge %d-%d", a, b)
		seen[[2]uint32{a, b}] = true
	}
}

func TestGrowBounds(t *testing.T) {
	first := []common.TexturedVertex{
		{Position: common.Vec3{1, 2, 3}},
		{Position: common.Vec3{-1, 0, 5}},
	}
	b := growBounds(common.Bounds{}, first, true)
	assert.Equal(t, common.Vec3{-1, 0, 3}, b.Min)
	assert.Equal(t, common.Vec3{1, 2, 5}, b.Max)

	b = growBounds(b, []common.TexturedVertex{{Position: common.Vec3{0, -4, 10}}}, false)
	assert.Equal(t, common.Vec3{-1, -4, 3}, b.Min)
	assert.Equal(t, common.Vec3{1, 2, 10}, b.Max)
}
