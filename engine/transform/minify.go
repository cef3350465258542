package transform

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

const (
	cssMime = "text/css"
	jsMime  = "application/javascript"
	svgMime = "image/svg+xml"
)

var jsMimeRe = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)

// CSSOptions configures CSS minification.
type CSSOptions struct {
	// Precision limits significant digits of numbers; zero keeps them all.
	Precision int
	KeepCSS2  bool
}

// CSSMinifier strips whitespace and comments from stylesheets.
type CSSMinifier struct {
	opts CSSOptions
	m    *minify.M
}

func NewCSSMinifier(opts CSSOptions) *CSSMinifier {
	m := minify.New()
	m.Add(cssMime, &css.Minifier{Precision: opts.Precision, KeepCSS2: opts.KeepCSS2})
	return &CSSMinifier{opts: opts, m: m}
}

func (c *CSSMinifier) Name() string { return "minify-css" }

func (c *CSSMinifier) Transform(_ context.Context, f *File) (*File, error) {
	if f.Ext() != ".css" {
		return nil, nil
	}
	out, err := c.m.Bytes(cssMime, f.Data)
	if err != nil {
		return nil, fmt.Errorf("malformed stylesheet: %w", err)
	}
	return f.WithData(out), nil
}

// JSOptions configures JavaScript minification.
type JSOptions struct {
	KeepVarNames bool
}

// JSMinifier minifies JavaScript sources.
type JSMinifier struct {
	opts JSOptions
	m    *minify.M
}

func NewJSMinifier(opts JSOptions) *JSMinifier {
	m := minify.New()
	m.AddRegexp(jsMimeRe, &js.Minifier{KeepVarNames: opts.KeepVarNames})
	return &JSMinifier{opts: opts, m: m}
}

func (j *JSMinifier) Name() string { return "minify-js" }

func (j *JSMinifier) Transform(_ context.Context, f *File) (*File, error) {
	if f.Ext() != ".js" {
		return nil, nil
	}
	out, err := j.m.Bytes(jsMime, f.Data)
	if err != nil {
		return nil, fmt.Errorf("malformed script: %w", err)
	}
	return f.WithData(out), nil
}
