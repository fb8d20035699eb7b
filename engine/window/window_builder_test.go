package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// applyOptions applies builder options to a bare engineWindow, bypassing
// platform window creation.
func applyOptions(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "Default Window Title",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func TestBuilderOptions(t *testing.T) {
	w := applyOptions(
		WithTitle("Debug Scene"),
		WithSize(1600, 900),
		WithSizeLimits(640, 480, 1920, 1080),
	)

	assert.Equal(t, "Debug Scene", w.title)
	assert.Equal(t, 1600, w.width)
	assert.Equal(t, 900, w.height)
	assert.Equal(t, 640, w.minWidth)
	assert.Equal(t, 480, w.minHeight)
	assert.Equal(t, 1920, w.maxWidth)
	assert.Equal(t, 1080, w.maxHeight)
}

func TestBuilderIgnoresNonPositiveDimensions(t *testing.T) {
	w := applyOptions(
		WithSize(0, -1),
		WithSizeLimits(-1, 0, 0, -1),
	)

	assert.Equal(t, 1280, w.width)
	assert.Equal(t, 720, w.height)
	assert.Equal(t, 320, w.minWidth)
	assert.Equal(t, 240, w.minHeight)
	assert.Equal(t, 3840, w.maxWidth)
	assert.Equal(t, 2160, w.maxHeight)
}
