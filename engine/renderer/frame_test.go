package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPostProcessParamsInactive(t *testing.T) {
	assert.False(t, DefaultPostProcessParams().Active())
}

func TestPostProcessParamsActivation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PostProcessParams)
		active bool
	}{
		{"gamma", func(p *PostProcessParams) { p.Gamma = 1.8 }, true},
		{"brightness", func(p *PostProcessParams) { p.Brightness = 0.1 }, true},
		{"contrast", func(p *PostProcessParams) { p.Contrast = 1.2 }, true},
		{"saturation", func(p *PostProcessParams) { p.Saturation = 0.5 }, true},
		{"vignette above threshold", func(p *PostProcessParams) { p.Vignette = 0.5 }, true},
		{"vignette at threshold", func(p *PostProcessParams) { p.Vignette = 0.001 }, false},
		{"fxaa", func(p *PostProcessParams) { p.FXAA = true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultPostProcessParams()
			tt.mutate(&params)
			assert.Equal(t, tt.active, params.Active())
		})
	}
}

func TestBuildFramePlan(t *testing.T) {
	background := [4]float32{0.1, 0.2, 0.3, 1}

	plan := buildFramePlan(DefaultPostProcessParams(), MSAAOff, false, background)
	assert.False(t, plan.UsePostProcess)
	assert.False(t, plan.UseMSAA)
	assert.Equal(t, background, plan.ClearColor)

	params := DefaultPostProcessParams()
	params.FXAA = true
	plan = buildFramePlan(params, MSAA4x, true, background)
	assert.True(t, plan.UsePostProcess)
	assert.True(t, plan.UseMSAA)
}

func TestBuildFramePlanMSAATargetFailure(t *testing.T) {
	plan := buildFramePlan(DefaultPostProcessParams(), MSAA4x, false, [4]float32{})
	assert.False(t, plan.UseMSAA)
}
