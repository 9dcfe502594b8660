// Package texture decodes and conditions image payloads for the renderer:
// PNG/JPEG decode, aspect-preserving downscale to a maximum dimension, and
// optional padding to multiple-of-4 dimensions for block compression.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered decoders for the image formats scene descriptions reference.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// ErrResourceMissing reports a referenced image that could not be fetched.
// Texture resolution yields no texture for that slot; the material falls back
// to its factor for that channel.
var ErrResourceMissing = errors.New("image resource missing")

// Texture is a decoded, conditioned image ready for renderer upload.
type Texture struct {
	// Width and Height are the final pixel dimensions, after any resize and padding.
	Width  int
	Height int

	// Pixels is tightly packed RGBA8 data, len = Width*Height*4.
	Pixels []byte

	// NormalMap marks textures decoded for linear (non-color) sampling.
	// Normal maps must not receive sRGB treatment.
	NormalMap bool
}

// Options configures texture decoding.
type Options struct {
	// MaxDimension clamps the larger image axis, preserving aspect ratio.
	// Zero disables resizing.
	MaxDimension int

	// PadBlockCompression pads width and height up to multiples of 4,
	// as block-compressed formats require.
	PadBlockCompression bool

	// NormalMap selects linear color-space handling for the decoded texture.
	NormalMap bool
}

// Decode decodes an image payload and conditions it per the options. The
// resampling kernel is bilinear; padding extends the image with transparent
// black on the right and bottom edges.
//
// Parameters:
//   - data: the raw image file bytes (PNG or JPEG)
//   - opts: decode options
//
// Returns:
//   - *Texture: the decoded RGBA texture
//   - error: error if the payload is not a decodable image
func Decode(data []byte, opts Options) (*Texture, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has degenerate dimensions %dx%d", width, height)
	}

	targetW, targetH := FitDimensions(width, height, opts.MaxDimension)

	padW, padH := targetW, targetH
	if opts.PadBlockCompression {
		padW = padUp4(targetW)
		padH = padUp4(targetH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, padW, padH))
	draw.ApproxBiLinear.Scale(dst, image.Rect(0, 0, targetW, targetH), src, bounds, draw.Src, nil)

	return &Texture{
		Width:     padW,
		Height:    padH,
		Pixels:    dst.Pix,
		NormalMap: opts.NormalMap,
	}, nil
}

// FitDimensions scales (width, height) down so the larger axis is at most
// maxDim, preserving aspect ratio. Dimensions never scale up and never drop
// below 1. A maxDim of zero leaves the dimensions unchanged.
//
// Parameters:
//   - width, height: source dimensions
//   - maxDim: the maximum allowed dimension, 0 to disable
//
// Returns:
//   - int, int: the fitted width and height
func FitDimensions(width, height, maxDim int) (int, int) {
	if maxDim <= 0 || (width <= maxDim && height <= maxDim) {
		return width, height
	}

	if width >= height {
		scaled := height * maxDim / width
		return maxDim, max(scaled, 1)
	}
	scaled := width * maxDim / height
	return max(scaled, 1), maxDim
}

// padUp4 rounds n up to the next multiple of 4.
func padUp4(n int) int {
	return (n + 3) &^ 3
}
