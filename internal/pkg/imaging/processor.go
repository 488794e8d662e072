package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/tiff"
)

// ErrRectOutOfBounds is returned when a crop rectangle does not fit
// inside the source image.
var ErrRectOutOfBounds = errors.New("crop rectangle outside source bounds")

// Processor decodes, probes and crops gallery images. It understands
// the formats of the upload allow-set: JPEG, PNG and TIFF.
type Processor struct {
	quality int // JPEG re-encode quality (1-100)
}

func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Processor{quality: quality}
}

// Probe reads just enough of the stream to extract pixel dimensions.
// A failure here is how ingestion classifies a file as corrupted.
func (p *Processor) Probe(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Crop decodes the source, extracts rect (source-image pixel
// coordinates) and re-encodes in the source's own format. Returns the
// encoded bytes and the format name ("jpeg", "png" or "tiff").
func (p *Processor) Crop(r io.Reader, rect image.Rectangle) ([]byte, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	if rect.Empty() || !rect.In(img.Bounds()) {
		return nil, "", ErrRectOutOfBounds
	}

	cropped := subImage(img, rect)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: p.quality})
	case "png":
		err = png.Encode(&buf, cropped)
	case "tiff":
		err = tiff.Encode(&buf, cropped, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return nil, "", fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s: %w", format, err)
	}

	return buf.Bytes(), format, nil
}

func subImage(img image.Image, rect image.Rectangle) image.Image {
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(rect)
	}
	// Exotic decoder result without SubImage support: copy the region.
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}
