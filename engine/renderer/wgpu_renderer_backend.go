package renderer

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cairn3d/cairn/common"
	"github.com/cairn3d/cairn/engine/renderer/pipeline"
	"github.com/cairn3d/cairn/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformAlign is the dynamic offset alignment required for uniform buffer
// bindings by the WebGPU default limits.
const uniformAlign = 256

// uniformArenaSize is the per-frame uniform arena capacity: one 256-byte
// slot per draw, 4096 draws per frame.
const uniformArenaSize = uniformAlign * 4096

type wgpuRendererBackendImpl struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	width, height uint32
	presentMode   wgpu.PresentMode

	// Bind group layouts shared by every pipeline family.
	uniformLayout *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	postLayout    *wgpu.BindGroupLayout

	// Per-frame uniform arena bound with dynamic offsets so every draw can
	// carry its own uniform block in a single buffer.
	uniformBuffer    *wgpu.Buffer
	uniformBindGroup *wgpu.BindGroup
	uniformOffset    uint32

	// Single-sample depth target used when MSAA is off.
	depthView *wgpu.TextureView

	// Multisampled color and depth targets, created on demand.
	msaaColorView *wgpu.TextureView
	msaaDepthView *wgpu.TextureView
	msaaSamples   MSAASampleCount
	msaaWidth     uint32
	msaaHeight    uint32

	// Intermediate scene target sampled by the post-process pass.
	postTexture   *wgpu.Texture
	postView      *wgpu.TextureView
	postSampler   *wgpu.Sampler
	postBindGroup *wgpu.BindGroup
	postParamsBuf *wgpu.Buffer
	postWidth     uint32
	postHeight    uint32

	// Frame state between BeginFrame and Present.
	plan         FramePlan
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the WebGPU instance, surface, adapter and
// device, plus the bind group layouts and uniform arena shared by every
// pipeline. Failures panic since nothing can render without a device.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) RendererBackend {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.initBindGroupLayouts()
	b.initUniformArena()
	return b
}

// initBindGroupLayouts creates the three fixed bind group layouts: the
// dynamic-offset uniform block at group 0, the texture+sampler pair at
// group 1, and the post-process inputs.
func (b *wgpuRendererBackendImpl) initBindGroupLayouts() {
	var err error

	b.uniformLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Uniform Arena Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.textureLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Texture Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.postLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Post Process Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: 32,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
}

// initUniformArena creates the per-frame uniform buffer and the single bind
// group every scene draw binds with a dynamic offset.
func (b *wgpuRendererBackendImpl) initUniformArena() {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Arena",
		Size:  uniformArenaSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	b.uniformBuffer = buf

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Uniform Arena Bind Group",
		Layout: b.uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  0,
				Size:    uniformAlign,
			},
		},
	})
	if err != nil {
		panic(err)
	}
	b.uniformBindGroup = group
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.width = uint32(width)
	b.height = uint32(height)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       b.width,
		Height:      b.height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	// Size-dependent targets are stale now; the MSAA and post-process targets
	// are lazily recreated, the single-sample depth target immediately.
	b.releaseMSAATargets()
	b.releasePostTarget()
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              b.width,
			Height:             b.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	depthTexture.Release()
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SurfaceSize() (uint32, uint32) {
	return b.width, b.height
}

func (b *wgpuRendererBackendImpl) SupportedSampleCount(requested MSAASampleCount) MSAASampleCount {
	// WebGPU guarantees sample counts 1 and 4 for all renderable formats.
	switch requested {
	case MSAAOff, MSAA4x:
		return requested
	default:
		return MSAAOff
	}
}

func (b *wgpuRendererBackendImpl) EnsureMSAATargets(samples MSAASampleCount) bool {
	if b.msaaColorView != nil && b.msaaSamples == samples && b.msaaWidth == b.width && b.msaaHeight == b.height {
		return true
	}
	b.releaseMSAATargets()

	colorTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "MSAA Color Texture",
		Size: wgpu.Extent3D{
			Width:              b.width,
			Height:             b.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(samples),
		Dimension:     wgpu.TextureDimension2D,
		Format:        *b.surfaceFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return false
	}
	colorView, err := colorTexture.CreateView(nil)
	colorTexture.Release()
	if err != nil {
		return false
	}

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "MSAA Depth Texture",
		Size: wgpu.Extent3D{
			Width:              b.width,
			Height:             b.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(samples),
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		colorView.Release()
		return false
	}
	depthView, err := depthTexture.CreateView(nil)
	depthTexture.Release()
	if err != nil {
		colorView.Release()
		return false
	}

	b.msaaColorView = colorView
	b.msaaDepthView = depthView
	b.msaaSamples = samples
	b.msaaWidth = b.width
	b.msaaHeight = b.height
	return true
}

func (b *wgpuRendererBackendImpl) releaseMSAATargets() {
	if b.msaaColorView != nil {
		b.msaaColorView.Release()
		b.msaaColorView = nil
	}
	if b.msaaDepthView != nil {
		b.msaaDepthView.Release()
		b.msaaDepthView = nil
	}
	b.msaaSamples = 0
}

func (b *wgpuRendererBackendImpl) EnsurePostProcessTarget() bool {
	if b.postView != nil && b.postWidth == b.width && b.postHeight == b.height {
		return true
	}
	b.releasePostTarget()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Post Process Target",
		Size: wgpu.Extent3D{
			Width:              b.width,
			Height:             b.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        *b.surfaceFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return false
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return false
	}

	if b.postSampler == nil {
		b.postSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         "Post Process Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			view.Release()
			tex.Release()
			return false
		}
	}

	if b.postParamsBuf == nil {
		b.postParamsBuf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Post Process Params",
			Size:  32,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			view.Release()
			tex.Release()
			return false
		}
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Post Process Bind Group",
		Layout: b.postLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: b.postSampler},
			{Binding: 2, Buffer: b.postParamsBuf, Offset: 0, Size: 32},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return false
	}

	b.postTexture = tex
	b.postView = view
	b.postBindGroup = group
	b.postWidth = b.width
	b.postHeight = b.height
	return true
}

func (b *wgpuRendererBackendImpl) releasePostTarget() {
	if b.postBindGroup != nil {
		b.postBindGroup.Release()
		b.postBindGroup = nil
	}
	if b.postView != nil {
		b.postView.Release()
		b.postView = nil
	}
	if b.postTexture != nil {
		b.postTexture.Release()
		b.postTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) CreateMeshBuffers(label string, vertexData, indexData []byte, indexFormat wgpu.IndexFormat, indexCount, vertexCount uint32) (*MeshBuffers, error) {
	if len(vertexData) == 0 || len(indexData) == 0 {
		return nil, errors.New("mesh buffers require vertex and index data")
	}

	vertexBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(vertexBuf, 0, vertexData)

	// Buffer sizes and writes must be 4-byte aligned; uint16 index lists with
	// an odd count need a 2-byte pad.
	if len(indexData)%4 != 0 {
		indexData = append(indexData[:len(indexData):len(indexData)], 0, 0)
	}

	indexBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vertexBuf.Release()
		return nil, err
	}
	b.queue.WriteBuffer(indexBuf, 0, indexData)

	return &MeshBuffers{
		Vertex:      vertexBuf,
		Index:       indexBuf,
		IndexFormat: indexFormat,
		IndexCount:  indexCount,
		VertexCount: vertexCount,
	}, nil
}

func (b *wgpuRendererBackendImpl) ReleaseMeshBuffers(buffers *MeshBuffers) {
	if buffers == nil {
		return
	}
	if buffers.Vertex != nil {
		buffers.Vertex.Release()
		buffers.Vertex = nil
	}
	if buffers.Index != nil {
		buffers.Index.Release()
		buffers.Index = nil
	}
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, staging common.TextureStagingData, mips []common.TextureStagingData, sampler common.SamplerStagingData) (*GPUTexture, error) {
	if len(staging.Pixels) == 0 || staging.Width == 0 || staging.Height == 0 {
		return nil, errors.New("texture staging data is empty")
	}

	levels := []common.TextureStagingData{staging}
	levels = append(levels, mips...)

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: uint32(len(levels)),
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for level, data := range levels {
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(level),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			data.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  data.Width * 4,
				RowsPerImage: data.Height,
			},
			&wgpu.Extent3D{
				Width:              data.Width,
				Height:             data.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(sampler.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(sampler.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(sampler.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(sampler.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(sampler.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(sampler.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   sampler.LodMinClamp,
		LodMaxClamp:   common.Coalesce(sampler.LodMaxClamp, 32),
		MaxAnisotropy: common.Coalesce(sampler.MaxAnisotropy, 1),
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " Bind Group",
		Layout: b.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: samp},
		},
	})
	if err != nil {
		samp.Release()
		view.Release()
		tex.Release()
		return nil, err
	}

	return &GPUTexture{
		Texture:   tex,
		View:      view,
		Sampler:   samp,
		BindGroup: group,
		Width:     staging.Width,
		Height:    staging.Height,
	}, nil
}

func (b *wgpuRendererBackendImpl) ReleaseTexture(tex *GPUTexture) {
	if tex == nil {
		return
	}
	if tex.BindGroup != nil {
		tex.BindGroup.Release()
		tex.BindGroup = nil
	}
	if tex.Sampler != nil {
		tex.Sampler.Release()
		tex.Sampler = nil
	}
	if tex.View != nil {
		tex.View.Release()
		tex.View = nil
	}
	if tex.Texture != nil {
		tex.Texture.Release()
		tex.Texture = nil
	}
}

// vertexBufferLayouts maps a pipeline's vertex layout kind to the concrete
// WebGPU buffer layout.
func vertexBufferLayouts(kind pipeline.VertexLayoutKind) []wgpu.VertexBufferLayout {
	switch kind {
	case pipeline.VertexLayoutPosColor:
		return []wgpu.VertexBufferLayout{
			{
				ArrayStride: 24,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				},
			},
		}
	case pipeline.VertexLayoutTextured:
		return []wgpu.VertexBufferLayout{
			{
				ArrayStride: 32,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
				},
			},
		}
	default:
		return nil
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline, prog shader.Program, samples MSAASampleCount) error {
	if prog == nil {
		return errors.New("a shader program is required to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: prog.Name() + " VS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: prog.VertexSource(),
		},
	})
	if err != nil {
		return err
	}
	defer vs.Release()

	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: prog.Name() + " FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: prog.FragmentSource(),
		},
	})
	if err != nil {
		return err
	}
	defer fs.Release()

	var bindGroupLayouts []*wgpu.BindGroupLayout
	switch p.VertexLayout() {
	case pipeline.VertexLayoutNone:
		bindGroupLayouts = []*wgpu.BindGroupLayout{b.postLayout}
	case pipeline.VertexLayoutTextured:
		bindGroupLayouts = []*wgpu.BindGroupLayout{b.uniformLayout, b.textureLayout}
	case pipeline.VertexLayoutPosColor:
		fallthrough
	default:
		bindGroupLayouts = []*wgpu.BindGroupLayout{b.uniformLayout}
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	sampleCount := uint32(MSAAOff)
	if p.Multisampled() {
		sampleCount = uint32(samples)
	}

	var depthStencil *wgpu.DepthStencilState
	if p.VertexLayout() != pipeline.VertexLayoutNone {
		depthCompare := wgpu.CompareFunctionLess
		if !p.DepthTestEnabled() {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:              wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        depthCompare,
			DepthBias:           p.DepthBias(),
			DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: "vs_main",
			Buffers:    vertexBufferLayouts(p.VertexLayout()),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return fmt.Errorf("create render pipeline %q: %w", p.PipelineKey(), err)
	}

	if old := p.RenderPipeline(); old != nil {
		old.Release()
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame(plan FramePlan) error {
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.plan = plan
	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.uniformOffset = 0

	// The scene writes the post-process target when the chain is active,
	// otherwise the swapchain directly.
	sceneOutput := view
	if plan.UsePostProcess {
		sceneOutput = b.postView
	}

	color := wgpu.RenderPassColorAttachment{
		LoadOp:  wgpu.LoadOpClear,
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: float64(plan.ClearColor[0]),
			G: float64(plan.ClearColor[1]),
			B: float64(plan.ClearColor[2]),
			A: float64(plan.ClearColor[3]),
		},
	}
	depthView := b.depthView
	if plan.UseMSAA {
		color.View = b.msaaColorView
		color.ResolveTarget = sceneOutput
		color.StoreOp = wgpu.StoreOpDiscard
		depthView = b.msaaDepthView
	} else {
		color.View = sceneOutput
	}

	b.framePass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            "Scene Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	return nil
}

func (b *wgpuRendererBackendImpl) BindPipeline(p pipeline.Pipeline) {
	if b.framePass == nil || p == nil || p.RenderPipeline() == nil {
		return
	}
	b.framePass.SetPipeline(p.RenderPipeline())
}

func (b *wgpuRendererBackendImpl) PushUniforms(data []byte) uint32 {
	offset := b.uniformOffset
	if offset+uniformAlign > uniformArenaSize {
		// Arena exhausted; reuse the last slot rather than writing out of
		// bounds. Draws beyond the capacity share uniforms.
		offset = uniformArenaSize - uniformAlign
	} else {
		b.uniformOffset += uniformAlign
	}
	b.queue.WriteBuffer(b.uniformBuffer, uint64(offset), data)
	return offset
}

func (b *wgpuRendererBackendImpl) DrawIndexed(buffers *MeshBuffers, uniformOffset uint32) {
	if b.framePass == nil || buffers == nil {
		return
	}
	b.framePass.SetBindGroup(0, b.uniformBindGroup, []uint32{uniformOffset})
	b.framePass.SetVertexBuffer(0, buffers.Vertex, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(buffers.Index, buffers.IndexFormat, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(buffers.IndexCount, 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) DrawIndexedTextured(buffers *MeshBuffers, uniformOffset uint32, tex *GPUTexture) {
	if b.framePass == nil || buffers == nil || tex == nil {
		return
	}
	b.framePass.SetBindGroup(0, b.uniformBindGroup, []uint32{uniformOffset})
	b.framePass.SetBindGroup(1, tex.BindGroup, nil)
	b.framePass.SetVertexBuffer(0, buffers.Vertex, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(buffers.Index, buffers.IndexFormat, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(buffers.IndexCount, 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndScenePass() {
	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) ApplyPostProcess(p pipeline.Pipeline, params PostProcessParams) {
	if b.frameEncoder == nil || b.postBindGroup == nil || p == nil || p.RenderPipeline() == nil {
		return
	}

	fxaa := float32(0)
	if params.FXAA {
		fxaa = 1
	}
	block := [8]float32{
		params.Gamma,
		params.Brightness,
		params.Contrast,
		params.Saturation,
		params.Vignette,
		fxaa,
		float32(b.width),
		float32(b.height),
	}
	b.queue.WriteBuffer(b.postParamsBuf, 0, common.SliceToBytes(block[:]))

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Post Process Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    b.frameView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(p.RenderPipeline())
	pass.SetBindGroup(0, b.postBindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
}

func (b *wgpuRendererBackendImpl) BeginOverlayPass() {
	if b.frameEncoder == nil || b.framePass != nil {
		return
	}
	b.framePass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Overlay Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    b.frameView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
}

func (b *wgpuRendererBackendImpl) EndOverlayPass() {
	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	if b.frameSurface == nil {
		return
	}

	if b.framePass != nil {
		b.framePass.End()
		b.framePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		b.surface.Present()
	}

	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) WaitIdle() {
	if b.device != nil {
		b.device.Poll(true, nil)
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.releaseMSAATargets()
	b.releasePostTarget()
	if b.postSampler != nil {
		b.postSampler.Release()
		b.postSampler = nil
	}
	if b.postParamsBuf != nil {
		b.postParamsBuf.Release()
		b.postParamsBuf = nil
	}
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.uniformBindGroup != nil {
		b.uniformBindGroup.Release()
		b.uniformBindGroup = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.uniformLayout != nil {
		b.uniformLayout.Release()
		b.uniformLayout = nil
	}
	if b.textureLayout != nil {
		b.textureLayout.Release()
		b.textureLayout = nil
	}
	if b.postLayout != nil {
		b.postLayout.Release()
		b.postLayout = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
