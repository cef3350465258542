package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

type imageKind string

const (
	kindJPEG    imageKind = "image/jpeg"
	kindPNG     imageKind = "image/png"
	kindSVG     imageKind = "image/svg+xml"
	kindUnknown imageKind = ""
)

// detectImage sniffs the content, ignoring the file extension.
func detectImage(data []byte) imageKind {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is(string(kindJPEG)):
		return kindJPEG
	case mt.Is(string(kindPNG)):
		return kindPNG
	case mt.Is(string(kindSVG)):
		return kindSVG
	default:
		return kindUnknown
	}
}

func (k imageKind) format() (imaging.Format, bool) {
	switch k {
	case kindJPEG:
		return imaging.JPEG, true
	case kindPNG:
		return imaging.PNG, true
	default:
		return 0, false
	}
}

// ResizeOptions configures thumbnail generation.
type ResizeOptions struct {
	Width       int
	Upscale     bool
	JPEGQuality int
}

// ImageResizer scales JPEG and PNG images to a fixed width, keeping the aspect ratio.
type ImageResizer struct {
	opts ResizeOptions
}

func NewImageResizer(opts ResizeOptions) *ImageResizer {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 95
	}
	return &ImageResizer{opts: opts}
}

func (r *ImageResizer) Name() string { return "resize" }

func (r *ImageResizer) Transform(_ context.Context, f *File) (*File, error) {
	if f.Ext() != ".jpg" && f.Ext() != ".jpeg" && f.Ext() != ".png" {
		return nil, nil
	}
	format, ok := detectImage(f.Data).format()
	if !ok {
		return nil, fmt.Errorf("unsupported image data (%s)", mimetype.Detect(f.Data).String())
	}
	img, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	width := img.Bounds().Dx()
	if width == r.opts.Width || (width < r.opts.Width && !r.opts.Upscale) {
		return nil, nil
	}
	dst := imaging.Resize(img, r.opts.Width, 0, imaging.Lanczos)
	out, err := encodeImage(dst, format, r.opts.JPEGQuality)
	if err != nil {
		return nil, err
	}
	return f.WithData(out), nil
}

func encodeImage(img image.Image, format imaging.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
