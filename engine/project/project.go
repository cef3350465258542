// Package project holds the compiled-in task table of an assetflow project.
package project

import (
	"github.com/compozy/assetflow/engine/pipeline"
	"github.com/compozy/assetflow/engine/task"
	"github.com/compozy/assetflow/engine/transform"
	"github.com/compozy/assetflow/pkg/config"
	"github.com/spf13/afero"
)

const (
	TaskMinifyCSS  = "minify-css"
	TaskMinifyJS   = "minify-js"
	TaskMinifyHTML = "minify-html"
	TaskResize     = "resize"
	TaskImages     = "images"
	TaskWatch      = "watch"
	TaskDefault    = "default"
)

// ImageGlob is the only path set the watcher observes by default.
const ImageGlob = "src/img/*"

// SourceGlobs are the CSS, JS and HTML sources. They are watched only when
// Options.WatchSources is set.
var SourceGlobs = []string{"src/**/*.{css,js,html}"}

// ProcessingTasks are re-run by the watcher in this order.
var ProcessingTasks = []string{TaskMinifyCSS, TaskMinifyJS, TaskMinifyHTML, TaskResize, TaskImages}

// Transformer settings of the table. They are part of the task definitions
// and are not read from configuration.
const (
	ThumbWidth  = 100
	JPEGQuality = 85
	PNGColors   = 256
)

// Options carries the runtime inputs of the table. Paths, task names and
// transformer settings are fixed.
type Options struct {
	// FS is read by the HTML inliner to resolve linked stylesheets.
	FS           afero.Fs
	WatchSources bool
}

// OptionsFromConfig maps runtime configuration onto table options.
func OptionsFromConfig(cfg *config.Config, fsys afero.Fs) Options {
	return Options{
		FS:           fsys,
		WatchSources: cfg.Watch.IncludeSources,
	}
}

// Graph builds the task graph.
func Graph(opts Options) (*task.Graph, error) {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	css := transform.NewCSSMinifier(transform.CSSOptions{})
	js := transform.NewJSMinifier(transform.JSOptions{})
	html := transform.NewHTMLMinifier(transform.HTMLOptions{
		CollapseWhitespace:      true,
		RemoveComments:          true,
		RemoveCommentsFromCDATA: true,
		MinifyJS:                true,
		MinifyCSS:               true,
	})
	resize := transform.NewImageResizer(transform.ResizeOptions{
		Width:       ThumbWidth,
		Upscale:     false,
		JPEGQuality: JPEGQuality,
	})
	compress := transform.NewImageCompressor(transform.CompressOptions{
		JPEGQuality: JPEGQuality,
		PNGColors:   PNGColors,
	})

	minifyCSS := &task.Task{Name: TaskMinifyCSS, Pipelines: []*pipeline.Pipeline{
		{Source: pipeline.Sources("src/css/*.css"), Chain: transform.Chain{css}, Dest: "dist/css"},
		{Source: pipeline.Sources("src/views/css/*.css"), Chain: transform.Chain{css}, Dest: "dist/views/css"},
	}}
	minifyJS := &task.Task{Name: TaskMinifyJS, Pipelines: []*pipeline.Pipeline{
		{Source: pipeline.Sources("src/js/*.js"), Chain: transform.Chain{js}, Dest: "dist/js"},
		{Source: pipeline.Sources("src/views/js/*.js"), Chain: transform.Chain{js}, Dest: "dist/views/js"},
	}}
	minifyHTML := &task.Task{Name: TaskMinifyHTML, Pipelines: []*pipeline.Pipeline{
		{
			Source: pipeline.Sources("src/*.html"),
			Chain:  transform.Chain{transform.NewHTMLInliner(opts.FS), html},
			Dest:   "dist",
		},
		{Source: pipeline.Sources("src/views/*.html"), Chain: transform.Chain{html}, Dest: "dist/views"},
	}}
	resizeTask := &task.Task{Name: TaskResize, Pipelines: []*pipeline.Pipeline{{
		Source: pipeline.Sources("src/img/*.{jpg,png}"),
		Chain:  transform.Chain{resize},
		Dest:   "src/img/thumbs",
		Rename: transform.Suffix("-thumb"),
	}}}
	images := &task.Task{Name: TaskImages, Pipelines: []*pipeline.Pipeline{
		{
			Source: pipeline.Sources("src/img/*.{jpg,png}", "src/img/thumbs/*.{jpg,png}"),
			Chain:  transform.Chain{compress},
			Dest:   "dist/img",
		},
		{Source: pipeline.Sources("src/views/img/*.{jpg,png}"), Chain: transform.Chain{compress}, Dest: "dist/views/img"},
	}}

	return task.NewGraph(
		task.TaskEntry(minifyCSS),
		task.TaskEntry(minifyJS),
		task.TaskEntry(minifyHTML),
		task.TaskEntry(resizeTask),
		task.TaskEntry(images),
		task.WatchEntry(watchBinding(opts.WatchSources)),
		task.AggregateEntry(TaskDefault, append(append([]string{}, ProcessingTasks...), TaskWatch)...),
	)
}

func watchBinding(includeSources bool) *task.WatchBinding {
	b := &task.WatchBinding{
		Name:  TaskWatch,
		Globs: []string{ImageGlob},
		Tasks: append([]string{}, ProcessingTasks...),
	}
	if includeSources {
		b.Globs = append(b.Globs, SourceGlobs...)
		return b
	}
	b.Unwatched = append([]string{}, SourceGlobs...)
	return b
}
