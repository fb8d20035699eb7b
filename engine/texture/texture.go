// package texture handles CPU-side image decoding and mipmap generation for
// the renderer's texture resources. GPU upload is performed by the renderer
// backend from the staging data produced here.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/chewxy/math32"
	"github.com/cairn3d/cairn/common"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var (
	// ErrNotFound indicates the texture file does not exist on disk.
	ErrNotFound = errors.New("texture: file not found")

	// ErrDecode indicates the file or byte stream could not be decoded as a supported image format.
	ErrDecode = errors.New("texture: decode failed")
)

// Decode reads and decodes an image file to RGBA staging data.
// Supported formats: PNG, JPEG, TGA, BMP, TIFF.
//
// Parameters:
//   - path: the image file path
//   - flipVertical: if true, rows are flipped so the first pixel row is the bottom of the image
//
// Returns:
//   - common.TextureStagingData: RGBA pixels and dimensions
//   - error: ErrNotFound if the file is missing, ErrDecode if the data is not a supported image
func Decode(path string, flipVertical bool) (common.TextureStagingData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.TextureStagingData{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return common.TextureStagingData{}, fmt.Errorf("texture: failed to read %s: %w", path, err)
	}

	staging, err := DecodeMemory(data, flipVertical)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("%w: %s", ErrDecode, path)
	}
	return staging, nil
}

// DecodeMemory decodes raw image bytes to RGBA staging data.
// Supported formats: PNG, JPEG, TGA, BMP, TIFF.
//
// Parameters:
//   - data: the raw image bytes
//   - flipVertical: if true, rows are flipped so the first pixel row is the bottom of the image
//
// Returns:
//   - common.TextureStagingData: RGBA pixels and dimensions
//   - error: ErrDecode if the bytes are not a supported image
func DecodeMemory(data []byte, flipVertical bool) (common.TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// TGA carries no magic number, so the registered decoders cannot
		// claim it; try it explicitly before giving up.
		tga, tgaErr := decodeTGA(data)
		if tgaErr != nil {
			return common.TextureStagingData{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		img = tga
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	staging := common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
	if flipVertical {
		flipRows(staging.Pixels, int(staging.Width), int(staging.Height))
	}
	return staging, nil
}

// DefaultStagingData returns the 1x1 opaque white texture used for untextured
// models. Sampled with nearest filtering so the single texel is never blurred.
//
// Returns:
//   - common.TextureStagingData: a single opaque white RGBA pixel
func DefaultStagingData() common.TextureStagingData {
	return common.TextureStagingData{
		Pixels: []byte{0xFF, 0xFF, 0xFF, 0xFF},
		Width:  1,
		Height: 1,
	}
}

// MipLevelCount returns the number of mip levels for a full mipmap pyramid of
// the given base dimensions, down to and including the 1x1 level.
//
// Parameters:
//   - width: base level width in pixels
//   - height: base level height in pixels
//
// Returns:
//   - uint32: the number of mip levels (at least 1)
func MipLevelCount(width, height uint32) uint32 {
	largest := max(width, height)
	if largest == 0 {
		return 1
	}
	return uint32(math32.Floor(math32.Log2(float32(largest)))) + 1
}

// BuildMipChain generates a full mipmap pyramid from the base level staging data.
// Each level halves the previous level's dimensions (clamped to 1) using a
// bilinear scaler. Level 0 of the result is the input data itself.
//
// Parameters:
//   - base: the full-resolution RGBA staging data
//
// Returns:
//   - []common.TextureStagingData: all mip levels, base first
func BuildMipChain(base common.TextureStagingData) []common.TextureStagingData {
	levels := MipLevelCount(base.Width, base.Height)
	chain := make([]common.TextureStagingData, 0, levels)
	chain = append(chain, base)

	src := stagingToImage(base)
	w, h := base.Width, base.Height
	for level := uint32(1); level < levels; level++ {
		w = max(w/2, 1)
		h = max(h/2, 1)

		dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

		chain = append(chain, common.TextureStagingData{
			Pixels: dst.Pix,
			Width:  w,
			Height: h,
		})
		src = dst
	}
	return chain
}

// flipRows reverses the pixel rows of an RGBA buffer in place.
func flipRows(pixels []byte, width, height int) {
	stride := width * 4
	tmp := make([]byte, stride)
	for y := 0; y < height/2; y++ {
		top := pixels[y*stride : (y+1)*stride]
		bottom := pixels[(height-1-y)*stride : (height-y)*stride]
		copy(tmp, top)
		copy(top, bottom)
		copy(bottom, tmp)
	}
}

// stagingToImage wraps staging data in an image.RGBA without copying.
func stagingToImage(staging common.TextureStagingData) *image.RGBA {
	return &image.RGBA{
		Pix:    staging.Pixels,
		Stride: int(staging.Width) * 4,
		Rect:   image.Rect(0, 0, int(staging.Width), int(staging.Height)),
	}
}
