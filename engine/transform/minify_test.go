package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSSMinifier(t *testing.T) {
	m := NewCSSMinifier(CSSOptions{})

	t.Run("Should strip whitespace and comments", func(t *testing.T) {
		in := &File{Path: "src/css/a.css", Rel: "a.css", Data: []byte("/* header */\na {\n  color : red ;\n}\n")}

		out, err := m.Transform(t.Context(), in)

		require.NoError(t, err)
		assert.Equal(t, "a{color:red}", string(out.Data))
	})

	t.Run("Should produce an empty stylesheet from comments and whitespace", func(t *testing.T) {
		in := &File{Path: "src/css/empty.css", Rel: "empty.css", Data: []byte("  /* one */\n\n/* two */\t\n")}

		out, err := m.Transform(t.Context(), in)

		require.NoError(t, err)
		assert.Empty(t, out.Data)
	})

	t.Run("Should decline non-css files", func(t *testing.T) {
		out, err := m.Transform(t.Context(), &File{Rel: "a.js", Data: []byte("x")})
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		in := &File{Rel: "a.css", Data: []byte("b { margin: 0px 0px; }  c{}")}
		first, err := m.Transform(t.Context(), in)
		require.NoError(t, err)
		second, err := m.Transform(t.Context(), in)
		require.NoError(t, err)
		assert.Equal(t, first.Data, second.Data)
	})
}

func TestJSMinifier(t *testing.T) {
	m := NewJSMinifier(JSOptions{})

	t.Run("Should remove comments and whitespace", func(t *testing.T) {
		src := "// leading comment\nfunction add(first, second) {\n    /* body */\n    return first + second;\n}\n"
		out, err := m.Transform(t.Context(), &File{Path: "src/js/a.js", Rel: "a.js", Data: []byte(src)})

		require.NoError(t, err)
		assert.NotContains(t, string(out.Data), "comment")
		assert.NotContains(t, string(out.Data), "body")
		assert.Less(t, len(out.Data), len(src))
		assert.True(t, strings.HasPrefix(string(out.Data), "function add("))
	})

	t.Run("Should report malformed scripts", func(t *testing.T) {
		_, err := m.Transform(t.Context(), &File{Rel: "bad.js", Data: []byte("function (")})
		assert.Error(t, err)
	})
}
