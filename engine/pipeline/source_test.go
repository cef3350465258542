package pipeline

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0o644))
	}
}

func TestSourceSpec_Resolve(t *testing.T) {
	t.Run("Should expand brace sets relative to the static prefix", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{
			"src/img/b.png":        "b",
			"src/img/a.jpg":        "a",
			"src/img/c.gif":        "c",
			"src/img/thumbs/a.jpg": "t",
		})

		matches, err := Sources("src/img/*.{jpg,png}").Resolve(fs)

		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, Match{Path: "src/img/a.jpg", Base: "src/img", Rel: "a.jpg"}, matches[0])
		assert.Equal(t, Match{Path: "src/img/b.png", Base: "src/img", Rel: "b.png"}, matches[1])
	})

	t.Run("Should keep each pattern's base and drop duplicates", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{
			"src/img/a.png":        "a",
			"src/img/thumbs/a.png": "t",
		})

		matches, err := Sources("src/img/*.png", "src/img/thumbs/*.png", "src/img/a.png").Resolve(fs)

		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a.png", matches[0].Rel)
		assert.Equal(t, "src/img/thumbs", matches[1].Base)
		assert.Equal(t, "a.png", matches[1].Rel)
	})

	t.Run("Should treat zero matches as success", func(t *testing.T) {
		matches, err := Sources("src/css/*.css").Resolve(afero.NewMemMapFs())
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Should reject invalid patterns", func(t *testing.T) {
		_, err := Sources("src/[a-.css").Resolve(afero.NewMemMapFs())

		var ge *GlobResolutionError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, "src/[a-.css", ge.Pattern)
	})

	t.Run("Should honour an explicit base", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		seed(t, fs, map[string]string{"src/views/js/app.js": "x"})

		sources := SourceSpec{Patterns: []string{"src/views/js/*.js"}, Base: "src"}
		matches, err := sources.Resolve(fs)

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "views/js/app.js", matches[0].Rel)
	})
}
