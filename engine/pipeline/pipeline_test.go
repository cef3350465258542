package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compozy/assetflow/engine/transform"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upperCase = transform.Func("upper", func(_ context.Context, f *transform.File) (*transform.File, error) {
	return f.WithData([]byte(strings.ToUpper(string(f.Data)))), nil
})

func failOn(name string) transform.Transformer {
	return transform.Func("fail-on-"+name, func(_ context.Context, f *transform.File) (*transform.File, error) {
		if filepath.Base(f.Path) == name {
			return nil, errors.New("malformed input")
		}
		return nil, nil
	})
}

func readString(t *testing.T, fs afero.Fs, p string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	return string(b)
}

func TestPipeline_Run(t *testing.T) {
	t.Run("Should transform and write every match below the destination", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/css/a.css": "a", "src/css/b.css": "b"})
		p := &Pipeline{Source: Sources("src/css/*.css"), Chain: transform.Chain{upperCase}, Dest: "dist/css"}

		res, err := p.Run(t.Context(), fs, Options{Workers: 2})

		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, 2, res.Processed)
		assert.Equal(t, []string{filepath.Join("dist", "css", "a.css"), filepath.Join("dist", "css", "b.css")}, res.Written)
		assert.Equal(t, "A", readString(t, fs, "dist/css/a.css"))
		assert.Equal(t, "B", readString(t, fs, "dist/css/b.css"))
	})

	t.Run("Should apply the rename rule", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/img/cat.png": "png"})
		p := &Pipeline{Source: Sources("src/img/*.png"), Dest: "src/img/thumbs", Rename: transform.Suffix("-thumb")}

		res, err := p.Run(t.Context(), fs, Options{})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, "png", readString(t, fs, "src/img/thumbs/cat-thumb.png"))
	})

	t.Run("Should keep going when a single file fails", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/js/ok.js": "ok", "src/js/bad.js": "bad", "src/js/fine.js": "fine"})
		p := &Pipeline{Source: Sources("src/js/*.js"), Chain: transform.Chain{failOn("bad.js"), upperCase}, Dest: "dist/js"}

		res, err := p.Run(t.Context(), fs, Options{Workers: 1})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Processed)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, "src/js/bad.js", res.Failed[0].Path)
		var te *transform.TransformError
		require.ErrorAs(t, res.Failed[0].Err, &te)
		assert.Equal(t, "fail-on-bad.js", te.Transformer)
		exists, err := afero.Exists(fs, "dist/js/bad.js")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, "OK", readString(t, fs, "dist/js/ok.js"))
	})

	t.Run("Should pick up files added between runs", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/a.html": "a"})
		p := &Pipeline{Source: Sources("src/*.html"), Dest: "dist"}

		first, err := p.Run(t.Context(), fs, Options{})
		require.NoError(t, err)
		seed(t, fs, map[string]string{"src/b.html": "b"})
		second, err := p.Run(t.Context(), fs, Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, first.Processed)
		assert.Equal(t, 2, second.Processed)
	})

	t.Run("Should produce identical output when run twice", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/css/a.css": "x", "src/css/b.css": "y"})
		p := &Pipeline{Source: Sources("src/css/*.css"), Chain: transform.Chain{upperCase}, Dest: "dist/css"}

		_, err := p.Run(t.Context(), fs, Options{})
		require.NoError(t, err)
		a1, b1 := readString(t, fs, "dist/css/a.css"), readString(t, fs, "dist/css/b.css")
		_, err = p.Run(t.Context(), fs, Options{})
		require.NoError(t, err)

		assert.Equal(t, a1, readString(t, fs, "dist/css/a.css"))
		assert.Equal(t, b1, readString(t, fs, "dist/css/b.css"))
	})

	t.Run("Should abort on an invalid glob without writing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/css/a.css": "a"})
		good := &Pipeline{Source: Sources("src/css/*.css"), Dest: "dist/css"}
		bad := &Pipeline{Source: Sources("src/[z-.css"), Dest: "dist"}

		_, err := Run(t.Context(), fs, Options{}, good, bad)

		var ge *GlobResolutionError
		require.ErrorAs(t, err, &ge)
		exists, _ := afero.Exists(fs, "dist/css/a.css")
		assert.False(t, exists)
	})

	t.Run("Should stop when the context is canceled", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/css/a.css": "a"})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := (&Pipeline{Source: Sources("src/css/*.css"), Dest: "dist"}).Run(ctx, fs, Options{})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRun_Collisions(t *testing.T) {
	newCollidingPipelines := func() []*Pipeline {
		return []*Pipeline{
			{Source: Sources("src/img/*.png", "src/img/thumbs/*.png"), Dest: "dist/img"},
		}
	}

	t.Run("Should reject every source that maps to the same destination", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{
			"src/img/a-thumb.png":        "original",
			"src/img/thumbs/a-thumb.png": "thumb",
			"src/img/b.png":              "b",
		})

		res, err := Run(t.Context(), fs, Options{}, newCollidingPipelines()...)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		require.Len(t, res.Failed, 2)
		assert.Equal(t, "src/img/a-thumb.png", res.Failed[0].Path)
		assert.Equal(t, "src/img/thumbs/a-thumb.png", res.Failed[1].Path)
		for _, f := range res.Failed {
			var we *WriteError
			require.ErrorAs(t, f.Err, &we)
			assert.ErrorIs(t, f.Err, ErrDestinationCollision)
			assert.Equal(t, filepath.Join("dist", "img", "a-thumb.png"), we.Dest)
		}
		exists, _ := afero.Exists(fs, "dist/img/a-thumb.png")
		assert.False(t, exists)
	})

	t.Run("Should report collisions identically across runs", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{
			"src/img/x.png":        "1",
			"src/img/thumbs/x.png": "2",
		})

		first, err := Run(t.Context(), fs, Options{Workers: 8}, newCollidingPipelines()...)
		require.NoError(t, err)
		second, err := Run(t.Context(), fs, Options{Workers: 1}, newCollidingPipelines()...)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("Should report unwritable destinations as write errors", func(t *testing.T) {
		base := afero.NewMemMapFs()
		seed(t, base, map[string]string{"src/a.html": "a"})
		fs := afero.NewReadOnlyFs(base)

		res, err := (&Pipeline{Source: Sources("src/*.html"), Dest: "dist"}).Run(t.Context(), fs, Options{})

		require.NoError(t, err)
		require.Len(t, res.Failed, 1)
		var we *WriteError
		assert.ErrorAs(t, res.Failed[0].Err, &we)
	})
}

func TestPipeline_Describe(t *testing.T) {
	t.Run("Should list patterns, destination and transformers", func(t *testing.T) {
		p := &Pipeline{Source: Sources("src/*.html"), Chain: transform.Chain{upperCase}, Dest: "dist/"}
		assert.Equal(t, "src/*.html -> dist [upper]", p.Describe())
	})
}
