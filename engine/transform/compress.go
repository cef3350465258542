package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

// CompressOptions configures the image optimization pass.
type CompressOptions struct {
	// JPEGQuality is used for baseline re-encoding; progressive output is not
	// supported by the Go encoder.
	JPEGQuality int
	// PNGColors is the palette size handed to the quantizer.
	PNGColors int
	// Quantizer builds the PNG palette; nil selects median cut.
	Quantizer draw.Quantizer
}

// ImageCompressor re-encodes JPEG, palette-quantizes PNG and minifies SVG.
// A result that is not smaller than its input is dropped in favour of the input.
type ImageCompressor struct {
	opts CompressOptions
	svg  *minify.M
}

func NewImageCompressor(opts CompressOptions) *ImageCompressor {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 85
	}
	if opts.PNGColors < 2 || opts.PNGColors > 256 {
		opts.PNGColors = 256
	}
	if opts.Quantizer == nil {
		opts.Quantizer = quantize.MedianCutQuantizer{}
	}
	m := minify.New()
	// viewBox and id attributes are left alone by the svg minifier.
	m.Add(svgMime, &svg.Minifier{})
	return &ImageCompressor{opts: opts, svg: m}
}

func (c *ImageCompressor) Name() string { return "compress" }

func (c *ImageCompressor) Transform(_ context.Context, f *File) (*File, error) {
	var (
		out []byte
		err error
	)
	switch detectImage(f.Data) {
	case kindJPEG:
		out, err = c.compressJPEG(f.Data)
	case kindPNG:
		out, err = c.compressPNG(f.Data)
	case kindSVG:
		out, err = c.svg.Bytes(svgMime, f.Data)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out) >= len(f.Data) {
		return nil, nil
	}
	return f.WithData(out), nil
}

func (c *ImageCompressor) compressJPEG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return encodeImage(img, imaging.JPEG, c.opts.JPEGQuality)
}

func (c *ImageCompressor) compressPNG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	bounds := img.Bounds()
	palette := c.opts.Quantizer.Quantize(make(color.Palette, 0, c.opts.PNGColors), img)
	if len(palette) == 0 {
		return nil, fmt.Errorf("quantizer produced an empty palette")
	}
	paletted := image.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(paletted, bounds, img, bounds.Min)
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, paletted); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
