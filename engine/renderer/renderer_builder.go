package renderer

import (
	"github.com/cairn3d/cairn/common"
	"github.com/cairn3d/cairn/engine/model"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Unsupported counts are downgraded at startup (2x to off, 8x to 4x).
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA2x, MSAA4x, or MSAA8x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithRenderMode sets the initial model shading mode. The default is
// RenderModeTextured.
//
// Parameters:
//   - mode: the render mode to start with
//
// Returns:
//   - RendererBuilderOption: a function that applies the render mode option to a renderer
func WithRenderMode(mode common.RenderMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingRenderMode = &mode
	}
}

// WithShaderDirectory loads the built-in shader programs from WGSL files in
// the given directory instead of the embedded sources. Programs that are
// missing or fail to compile fall back to the embedded sources.
//
// Parameters:
//   - dir: the directory containing the WGSL shader sources
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader directory option to a renderer
func WithShaderDirectory(dir string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderDir = dir
	}
}

// WithHotReload enables shader hot reloading for programs loaded from disk.
// Only effective together with WithShaderDirectory.
//
// Parameters:
//   - enable: true to enable hot reloading
//
// Returns:
//   - RendererBuilderOption: a function that applies the hot reload option to a renderer
func WithHotReload(enable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.hotReload = enable
	}
}

// WithTextureFilter sets the initial sampler filter quality for created
// textures. The default is FilterTrilinear.
//
// Parameters:
//   - filter: the filter quality to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the texture filter option to a renderer
func WithTextureFilter(filter common.TextureFilter) RendererBuilderOption {
	return func(r *renderer) {
		r.textureFilter = filter
	}
}

// WithMaxAnisotropy sets the initial anisotropic filtering level for created
// textures. Only applies with FilterTrilinear. The default is 4.
//
// Parameters:
//   - level: the anisotropy level (1 disables)
//
// Returns:
//   - RendererBuilderOption: a function that applies the anisotropy option to a renderer
func WithMaxAnisotropy(level uint16) RendererBuilderOption {
	return func(r *renderer) {
		r.maxAnisotropy = max(level, 1)
	}
}

// WithModelRegistry sets the model format registry used by LoadModel,
// replacing the default empty registry.
//
// Parameters:
//   - registry: the model registry with format loaders registered
//
// Returns:
//   - RendererBuilderOption: a function that applies the model registry option to a renderer
func WithModelRegistry(registry model.Registry) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingModels = registry
	}
}

// WithPostProcess sets the initial post-processing parameters.
//
// Parameters:
//   - params: the parameters to start with
//
// Returns:
//   - RendererBuilderOption: a function that applies the post-process option to a renderer
func WithPostProcess(params PostProcessParams) RendererBuilderOption {
	return func(r *renderer) {
		r.postParams = params
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for headless or CI environments.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
