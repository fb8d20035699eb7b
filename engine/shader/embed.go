package shader

import _ "embed"

// Stock WGSL sources compiled into the binary. Used when no shader directory
// is configured, and as the fallback when on-disk sources are missing.
var (
	//go:embed sources/wireframe_vs.wgsl
	WireframeVS string

	//go:embed sources/wireframe_fs.wgsl
	WireframeFS string

	//go:embed sources/textured_vs.wgsl
	TexturedVS string

	//go:embed sources/textured_fs.wgsl
	TexturedFS string

	//go:embed sources/postprocess_vs.wgsl
	PostProcessVS string

	//go:embed sources/postprocess_fs.wgsl
	PostProcessFS string
)
