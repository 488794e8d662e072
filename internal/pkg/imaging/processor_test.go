package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func fill(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func encode(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestProbeDimensions(t *testing.T) {
	p := NewProcessor(90)

	for _, format := range []string{"png", "jpeg", "tiff"} {
		data := encode(t, fill(123, 45), format)
		w, h, err := p.Probe(bytes.NewReader(data))
		require.NoError(t, err, format)
		assert.Equal(t, 123, w, format)
		assert.Equal(t, 45, h, format)
	}
}

func TestProbeGarbageFails(t *testing.T) {
	p := NewProcessor(90)

	_, _, err := p.Probe(strings.NewReader("definitely not an image"))
	assert.Error(t, err)

	_, _, err = p.Probe(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestCropPreservesFormatAndSize(t *testing.T) {
	p := NewProcessor(90)

	for _, format := range []string{"png", "jpeg", "tiff"} {
		data := encode(t, fill(100, 80), format)

		out, outFormat, err := p.Crop(bytes.NewReader(data), image.Rect(10, 20, 60, 60))
		require.NoError(t, err, format)
		assert.Equal(t, format, outFormat)

		cfg, decoded, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err, format)
		assert.Equal(t, format, decoded)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 40, cfg.Height)
	}
}

func TestCropRejectsOutOfBounds(t *testing.T) {
	p := NewProcessor(90)
	data := encode(t, fill(50, 50), "png")

	_, _, err := p.Crop(bytes.NewReader(data), image.Rect(40, 40, 70, 70))
	assert.ErrorIs(t, err, ErrRectOutOfBounds)

	_, _, err = p.Crop(bytes.NewReader(data), image.Rect(0, 0, 0, 0))
	assert.ErrorIs(t, err, ErrRectOutOfBounds)
}

func TestCropGarbageFails(t *testing.T) {
	p := NewProcessor(90)

	_, _, err := p.Crop(strings.NewReader("not an image"), image.Rect(0, 0, 10, 10))
	assert.Error(t, err)
}

func TestCropPixelContent(t *testing.T) {
	p := NewProcessor(90)

	// PNG is lossless, so the cropped region must match the source
	// pixel for pixel.
	src := fill(64, 64)
	data := encode(t, src, "png")

	out, _, err := p.Crop(bytes.NewReader(data), image.Rect(8, 8, 24, 24))
	require.NoError(t, err)

	got, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := got.Bounds()
	require.Equal(t, 16, b.Dx())
	require.Equal(t, 16, b.Dy())

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			wr, wg, wb, wa := src.At(x+8, y+8).RGBA()
			gr, gg, gb, ga := got.At(b.Min.X+x, b.Min.Y+y).RGBA()
			require.Equal(t, [4]uint32{wr, wg, wb, wa}, [4]uint32{gr, gg, gb, ga})
		}
	}
}
