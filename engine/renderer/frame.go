package renderer

// PostProcessParams holds the tunable post-processing chain parameters.
// The zero-cost defaults (see DefaultPostProcessParams) leave the chain
// inactive, in which case the scene renders directly to the swapchain.
type PostProcessParams struct {
	// Gamma is the display gamma applied as a final power curve. 2.2 is neutral.
	Gamma float32

	// Brightness is an additive offset applied to all channels. 0 is neutral.
	Brightness float32

	// Contrast scales distance from mid-grey. 1 is neutral.
	Contrast float32

	// Saturation interpolates between greyscale (0) and full color (1).
	Saturation float32

	// Vignette darkens screen corners. Values at or below the activation
	// threshold (0.001) are treated as off.
	Vignette float32

	// FXAA enables the luminance-contrast anti-aliasing filter.
	FXAA bool
}

// DefaultPostProcessParams returns the neutral parameter set that leaves the
// post-process chain inactive.
//
// Returns:
//   - PostProcessParams: the neutral parameters
func DefaultPostProcessParams() PostProcessParams {
	return PostProcessParams{
		Gamma:      2.2,
		Brightness: 0,
		Contrast:   1,
		Saturation: 1,
		Vignette:   0,
	}
}

// Active reports whether any parameter deviates from neutral, requiring the
// scene to render through the intermediate post-process target.
//
// Returns:
//   - bool: true if the post-process pass must run this frame
func (p PostProcessParams) Active() bool {
	return p.Gamma != 2.2 ||
		p.Brightness != 0 ||
		p.Contrast != 1 ||
		p.Saturation != 1 ||
		p.Vignette > 0.001 ||
		p.FXAA
}

// FramePlan is the per-frame target-chain decision: which intermediate
// targets the scene pass renders through before reaching the swapchain.
type FramePlan struct {
	// ClearColor is the scene pass background color (RGBA, 0-1).
	ClearColor [4]float32

	// UsePostProcess routes the scene through the intermediate post-process
	// target; the post pass then writes the swapchain.
	UsePostProcess bool

	// UseMSAA routes the scene through multisampled color/depth targets that
	// resolve into the scene output.
	UseMSAA bool
}

// buildFramePlan computes the target chain for one frame. Post-process
// activation is decided first, then MSAA; msaaTargetsOK reflects whether the
// multisampled targets exist (creation failure falls back to direct
// rendering for the frame).
func buildFramePlan(params PostProcessParams, samples MSAASampleCount, msaaTargetsOK bool, background [4]float32) FramePlan {
	return FramePlan{
		ClearColor:     background,
		UsePostProcess: params.Active(),
		UseMSAA:        samples > MSAAOff && msaaTargetsOK,
	}
}
