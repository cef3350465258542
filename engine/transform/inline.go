package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"
)

// HTMLInliner replaces local stylesheet links with <style> blocks.
//
// Relative hrefs resolve against the document's directory; root-relative hrefs
// resolve against the glob base the document was matched from. Remote hrefs are
// left in place.
type HTMLInliner struct {
	fs afero.Fs
}

// NewHTMLInliner reads stylesheets from fs, the same filesystem the pipeline reads sources from.
func NewHTMLInliner(fs afero.Fs) *HTMLInliner {
	return &HTMLInliner{fs: fs}
}

func (h *HTMLInliner) Name() string { return "inline-css" }

func (h *HTMLInliner) Transform(_ context.Context, f *File) (*File, error) {
	ext := f.Ext()
	if ext != ".html" && ext != ".htm" {
		return nil, nil
	}
	var out bytes.Buffer
	out.Grow(len(f.Data))
	z := html.NewTokenizer(bytes.NewReader(f.Data))
	inlined := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return nil, fmt.Errorf("tokenize document: %w", z.Err())
		}
		raw := append([]byte(nil), z.Raw()...)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "link" || !hasAttr {
			out.Write(raw)
			continue
		}
		attrs := readAttrs(z)
		href, ok := stylesheetHref(attrs)
		if !ok {
			out.Write(raw)
			continue
		}
		css, err := h.readStylesheet(f, href)
		if err != nil {
			return nil, err
		}
		writeStyle(&out, css, attrs["media"])
		inlined++
	}
	if inlined == 0 {
		return nil, nil
	}
	return f.WithData(out.Bytes()), nil
}

func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			return attrs
		}
	}
}

// stylesheetHref returns the href of a local stylesheet link.
func stylesheetHref(attrs map[string]string) (string, bool) {
	isStylesheet := false
	for _, rel := range strings.Fields(strings.ToLower(attrs["rel"])) {
		if rel == "stylesheet" {
			isStylesheet = true
		}
	}
	href := strings.TrimSpace(attrs["href"])
	if !isStylesheet || href == "" || isRemote(href) {
		return "", false
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	return href, href != ""
}

func isRemote(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "//") || strings.Contains(lower, "://") || strings.HasPrefix(lower, "data:")
}

func (h *HTMLInliner) readStylesheet(f *File, href string) ([]byte, error) {
	var p string
	if strings.HasPrefix(href, "/") {
		p = filepath.Join(f.Base, filepath.FromSlash(path.Clean(href)))
	} else {
		p = filepath.Join(filepath.Dir(f.Path), filepath.FromSlash(href))
	}
	data, err := afero.ReadFile(h.fs, p)
	if err != nil {
		return nil, fmt.Errorf("inline stylesheet %q: %w", href, err)
	}
	return data, nil
}

func writeStyle(out *bytes.Buffer, css []byte, media string) {
	media = strings.TrimSpace(media)
	out.WriteString("<style>")
	if media != "" && !strings.EqualFold(media, "all") {
		out.WriteString("@media ")
		out.WriteString(media)
		out.WriteString("{")
		out.Write(css)
		out.WriteString("}")
	} else {
		out.Write(css)
	}
	out.WriteString("</style>")
}
