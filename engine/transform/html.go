package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const htmlMime = "text/html"

// HTMLOptions mirrors the html-minifier switches used by the build.
type HTMLOptions struct {
	CollapseWhitespace      bool
	RemoveComments          bool
	RemoveCommentsFromCDATA bool
	MinifyJS                bool
	MinifyCSS               bool
}

// HTMLMinifier minifies markup and, optionally, inline scripts and styles.
// Inside <style> blocks every @media block is copied byte-for-byte.
type HTMLMinifier struct {
	opts HTMLOptions
	m    *minify.M
	css  *css.Minifier
}

func NewHTMLMinifier(opts HTMLOptions) *HTMLMinifier {
	h := &HTMLMinifier{opts: opts, css: &css.Minifier{}}
	m := minify.New()
	m.Add(htmlMime, &html.Minifier{
		KeepComments:            !opts.RemoveComments,
		KeepSpecialComments:     true,
		KeepDefaultAttrVals:     true,
		KeepDocumentTags:        true,
		KeepEndTags:             true,
		KeepQuotes:              true,
		KeepWhitespace:          !opts.CollapseWhitespace,
	})
	if opts.MinifyCSS {
		m.AddFunc(cssMime, h.minifyStyle)
	}
	if opts.MinifyJS {
		// The script minifier drops comments, which also removes CDATA markers.
		m.AddRegexp(jsMimeRe, &js.Minifier{})
	}
	h.m = m
	return h
}

func (h *HTMLMinifier) Name() string { return "minify-html" }

func (h *HTMLMinifier) Transform(_ context.Context, f *File) (*File, error) {
	ext := f.Ext()
	if ext != ".html" && ext != ".htm" {
		return nil, nil
	}
	out, err := h.m.Bytes(htmlMime, f.Data)
	if err != nil {
		return nil, fmt.Errorf("malformed document: %w", err)
	}
	return f.WithData(out), nil
}

// minifyStyle minifies stylesheet text while keeping @media blocks verbatim.
// Style attributes carry the inline param and go straight to the CSS minifier.
func (h *HTMLMinifier) minifyStyle(m *minify.M, w io.Writer, r io.Reader, params map[string]string) error {
	if params["inline"] == "1" {
		return h.css.Minify(m, w, r, params)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, seg := range splitMedia(src) {
		if seg.verbatim {
			if _, err := w.Write(seg.data); err != nil {
				return err
			}
			continue
		}
		if len(bytes.TrimSpace(seg.data)) == 0 {
			continue
		}
		if err := h.css.Minify(m, w, bytes.NewReader(seg.data), params); err != nil {
			return err
		}
	}
	return nil
}

type cssSegment struct {
	data  []byte
	verbatim bool
}

var mediaKeyword = []byte("@media")

// splitMedia cuts a stylesheet into plain runs and verbatim blocks.
// A top-level @media block is verbatim, and so is any other top-level at-rule
// block with an @media somewhere inside it. Only depth zero is split.
// Comments and quoted strings are skipped while looking for block boundaries.
// An unterminated block runs to the end of the input.
func splitMedia(src []byte) []cssSegment {
	var segs []cssSegment
	plainStart := 0
	depth := 0
	i := 0
	for i < len(src) {
		switch {
		case bytes.HasPrefix(src[i:], []byte("/*")):
			i = skipComment(src, i)
		case src[i] == '"' || src[i] == '\'':
			i = skipString(src, i)
		case src[i] == '{':
			depth++
			i++
		case src[i] == '}':
			if depth > 0 {
				depth--
			}
			i++
		case src[i] == '@' && depth == 0:
			end := blockEnd(src, i)
			if !hasPrefixFold(src[i:], mediaKeyword) && !containsMedia(src[i+1:end]) {
				i = end
				continue
			}
			if i > plainStart {
				segs = append(segs, cssSegment{data: src[plainStart:i]})
			}
			segs = append(segs, cssSegment{data: src[i:end], verbatim: true})
			plainStart = end
			i = end
		default:
			i++
		}
	}
	if plainStart < len(src) {
		segs = append(segs, cssSegment{data: src[plainStart:]})
	}
	return segs
}

func containsMedia(b []byte) bool {
	return bytes.Contains(bytes.ToLower(b), mediaKeyword)
}

// blockEnd returns the index just past the brace that closes the block opened after start.
func blockEnd(src []byte, start int) int {
	depth := 0
	i := start
	for i < len(src) {
		switch {
		case bytes.HasPrefix(src[i:], []byte("/*")):
			i = skipComment(src, i)
			continue
		case src[i] == '"' || src[i] == '\'':
			i = skipString(src, i)
			continue
		case src[i] == '{':
			depth++
		case src[i] == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		case src[i] == ';' && depth == 0:
			// @media without a block.
			return i + 1
		}
		i++
	}
	return len(src)
}

func skipComment(src []byte, i int) int {
	end := bytes.Index(src[i+2:], []byte("*/"))
	if end < 0 {
		return len(src)
	}
	return i + 2 + end + 2
}

func skipString(src []byte, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote, '\n':
			return j + 1
		}
	}
	return len(src)
}

func hasPrefixFold(b, prefix []byte) bool {
	return len(b) >= len(prefix) && bytes.EqualFold(b[:len(prefix)], prefix)
}
