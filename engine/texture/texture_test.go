package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTestPNG builds a width x height PNG where the top-left pixel is red
// and all others are blue.
func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeMemory(t *testing.T) {
	data := encodeTestPNG(t, 4, 2)

	staging, err := DecodeMemory(data, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), staging.Width)
	assert.Equal(t, uint32(2), staging.Height)
	assert.Len(t, staging.Pixels, 4*2*4)

	// Top-left pixel is red.
	assert.Equal(t, byte(255), staging.Pixels[0])
	assert.Equal(t, byte(0), staging.Pixels[2])
}

func TestDecodeMemoryFlip(t *testing.T) {
	data := encodeTestPNG(t, 4, 2)

	staging, err := DecodeMemory(data, true)
	require.NoError(t, err)

	// The red marker moved from the first row to the last.
	assert.Equal(t, byte(0), staging.Pixels[0])
	lastRow := int(staging.Width) * 4 * int(staging.Height-1)
	assert.Equal(t, byte(255), staging.Pixels[lastRow])
}

func TestDecodeMemoryInvalid(t *testing.T) {
	_, err := DecodeMemory([]byte("not an image"), false)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeFileNotFound(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "missing.png"), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecodeFileUnparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := Decode(path, false)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.png")
	require.NoError(t, os.WriteFile(path, encodeTestPNG(t, 8, 8), 0o644))

	staging, err := Decode(path, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), staging.Width)
	assert.Equal(t, uint32(8), staging.Height)
}

// encodeTestTGA builds a 2x2 uncompressed 24-bit TGA with the default
// bottom-left origin. The top-left pixel of the logical image is red, the
// rest are blue.
func encodeTestTGA() []byte {
	header := make([]byte, 18)
	header[2] = tgaTrueColor
	header[12] = 2 // width
	header[14] = 2 // height
	header[16] = 24

	// Rows are stored bottom-up, pixels as BGR.
	blue := []byte{0xFF, 0x00, 0x00}
	red := []byte{0x00, 0x00, 0xFF}
	data := append(header, blue...)
	data = append(data, blue...) // bottom row
	data = append(data, red...)
	data = append(data, blue...) // top row
	return data
}

func TestDecodeMemoryTGA(t *testing.T) {
	staging, err := DecodeMemory(encodeTestTGA(), false)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), staging.Width)
	assert.Equal(t, uint32(2), staging.Height)

	// Bottom-up storage resolves to a red top-left pixel.
	assert.Equal(t, []byte{0xFF, 0x00, 0x00, 0xFF}, staging.Pixels[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0xFF}, staging.Pixels[4:8])
}

func TestDecodeTGARLETopDown(t *testing.T) {
	header := make([]byte, 18)
	header[2] = tgaTrueColorRLE
	header[12] = 4 // width
	header[14] = 1 // height
	header[16] = 32
	header[17] = 0x20 // top-left origin

	// One run of 3 green pixels, then 1 literal translucent white pixel.
	data := append(header,
		0x82, 0x00, 0xFF, 0x00, 0xFF, // run: count 3, BGRA green
		0x00, 0xFF, 0xFF, 0xFF, 0x80, // literal: count 1, BGRA white
	)

	img, err := decodeTGA(data)
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())

	assert.Equal(t, []byte{0x00, 0xFF, 0x00, 0xFF}, img.Pix[0:4])
	assert.Equal(t, []byte{0x00, 0xFF, 0x00, 0xFF}, img.Pix[8:12])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0x80}, img.Pix[12:16])
}

func TestDecodeTGARejectsUnsupported(t *testing.T) {
	header := make([]byte, 18)
	header[2] = 1 // color-mapped
	header[1] = 1
	header[12] = 1
	header[14] = 1
	header[16] = 8

	_, err := decodeTGA(header)
	assert.Error(t, err)

	_, err = decodeTGA([]byte{0x00, 0x01})
	assert.Error(t, err)
}

func TestDefaultStagingData(t *testing.T) {
	staging := DefaultStagingData()
	assert.Equal(t, uint32(1), staging.Width)
	assert.Equal(t, uint32(1), staging.Height)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, staging.Pixels)
}

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		width, height uint32
		want          uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{256, 256, 9},
		{256, 4, 9},
		{300, 200, 9},
		{0, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MipLevelCount(tt.width, tt.height), "dims %dx%d", tt.width, tt.height)
	}
}

func TestBuildMipChain(t *testing.T) {
	base, err := DecodeMemory(encodeTestPNG(t, 8, 4), false)
	require.NoError(t, err)

	chain := BuildMipChain(base)
	require.Len(t, chain, 4)

	assert.Equal(t, uint32(8), chain[0].Width)
	assert.Equal(t, uint32(4), chain[1].Width)
	assert.Equal(t, uint32(2), chain[1].Height)
	assert.Equal(t, uint32(1), chain[3].Width)
	assert.Equal(t, uint32(1), chain[3].Height)
	for _, level := range chain {
		assert.Len(t, level.Pixels, int(level.Width*level.Height*4))
	}
}

func TestBuildMipChainSingleLevel(t *testing.T) {
	chain := BuildMipChain(DefaultStagingData())
	assert.Len(t, chain, 1)
}
