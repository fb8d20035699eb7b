package texture

import (
	"encoding/binary"
	"fmt"
	"image"
)

// TGA image types handled by decodeTGA. Color-mapped and grayscale variants
// are rare as model textures and are rejected.
const (
	tgaTrueColor    = 2
	tgaTrueColorRLE = 10
)

// tgaHeaderSize is the fixed TGA header length preceding the image ID field.
const tgaHeaderSize = 18

// decodeTGA decodes Targa image bytes to an RGBA image. TGA has no magic
// number, so this cannot hang off image.RegisterFormat; DecodeMemory calls it
// directly when the standard decoders reject the bytes.
//
// Supports uncompressed and RLE-compressed true-color images at 24 or 32
// bits per pixel, with either bottom-left (the TGA default) or top-left
// pixel origin.
//
// Format reference: https://en.wikipedia.org/wiki/Truevision_TGA
//
// Parameters:
//   - data: the raw TGA file bytes
//
// Returns:
//   - *image.RGBA: the decoded image with top-left origin
//   - error: an error if the bytes are not a supported TGA image
func decodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("tga: truncated header")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(binary.LittleEndian.Uint16(data[12:14]))
	height := int(binary.LittleEndian.Uint16(data[14:16]))
	depth := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("tga: color-mapped images not supported")
	}
	if imageType != tgaTrueColor && imageType != tgaTrueColorRLE {
		return nil, fmt.Errorf("tga: unsupported image type %d", imageType)
	}
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("tga: unsupported pixel depth %d", depth)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tga: invalid dimensions %dx%d", width, height)
	}

	pixelData := data[tgaHeaderSize:]
	if len(pixelData) < idLength {
		return nil, fmt.Errorf("tga: truncated image ID field")
	}
	pixelData = pixelData[idLength:]

	bytesPerPixel := depth / 8
	pixels := make([]byte, width*height*bytesPerPixel)
	if imageType == tgaTrueColorRLE {
		if err := expandRLE(pixels, pixelData, bytesPerPixel); err != nil {
			return nil, err
		}
	} else {
		if len(pixelData) < len(pixels) {
			return nil, fmt.Errorf("tga: truncated pixel data")
		}
		copy(pixels, pixelData)
	}

	// Descriptor bit 5 set means rows are already stored top to bottom.
	topDown := descriptor&0x20 != 0

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcRow := y
		if !topDown {
			srcRow = height - 1 - y
		}
		for x := 0; x < width; x++ {
			src := (srcRow*width + x) * bytesPerPixel
			dst := rgba.PixOffset(x, y)

			// TGA stores BGR(A).
			rgba.Pix[dst+0] = pixels[src+2]
			rgba.Pix[dst+1] = pixels[src+1]
			rgba.Pix[dst+2] = pixels[src+0]
			if bytesPerPixel == 4 {
				rgba.Pix[dst+3] = pixels[src+3]
			} else {
				rgba.Pix[dst+3] = 0xFF
			}
		}
	}
	return rgba, nil
}

// expandRLE decompresses TGA run-length encoded pixel data into dst.
// Each packet is a count byte followed by either one pixel repeated
// (high bit set) or count+1 literal pixels.
func expandRLE(dst, src []byte, bytesPerPixel int) error {
	written := 0
	for written < len(dst) {
		if len(src) == 0 {
			return fmt.Errorf("tga: truncated RLE stream")
		}
		count := int(src[0]&0x7F) + 1
		isRun := src[0]&0x80 != 0
		src = src[1:]

		if isRun {
			if len(src) < bytesPerPixel {
				return fmt.Errorf("tga: truncated RLE run")
			}
			for i := 0; i < count && written < len(dst); i++ {
				copy(dst[written:], src[:bytesPerPixel])
				written += bytesPerPixel
			}
			src = src[bytesPerPixel:]
		} else {
			n := count * bytesPerPixel
			if len(src) < n {
				return fmt.Errorf("tga: truncated RLE literals")
			}
			copied := copy(dst[written:], src[:n])
			written += copied
			src = src[n:]
		}
	}
	return nil
}
