package manifest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/program"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/render"
)

// FrameDelay is the per-frame delay of animated outputs, in hundredths of a
// second.
const FrameDelay = 8

// Result reports the outcome of one job.
type Result struct {
	Name   string
	Output string
	Frames int
	Stats  render.Stats
	Err    error
}

// Run renders every job in order. Relative paths in the manifest resolve
// against baseDir. A failing job does not stop later ones; its error is
// recorded in its Result. Run itself only fails when ctx is cancelled.
func (m *Manifest) Run(ctx context.Context, baseDir string, opts render.Options) ([]Result, error) {
	imagesDir := m.ImagesDir
	if imagesDir == "" {
		imagesDir = expr.DefaultImageDir
	}
	imagesDir = resolve(baseDir, imagesDir)
	outDir := resolve(baseDir, m.OutDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	results := make([]Result, 0, len(m.Renders))
	for _, job := range m.Renders {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := Result{Name: job.Name, Output: filepath.Join(outDir, job.Output)}
		res.Frames, res.Stats, res.Err = runJob(ctx, job, baseDir, imagesDir, res.Output, opts)
		if res.Err != nil {
			log.Printf("Warning: render %q failed: %v", job.Name, res.Err)
		} else {
			log.Printf("Rendered %s -> %s", job.Name, res.Output)
		}
		results = append(results, res)
	}
	return results, nil
}

func runJob(ctx context.Context, job Job, baseDir, imagesDir, output string, opts render.Options) (int, render.Stats, error) {
	src := job.Expression
	if job.File != "" {
		var err error
		src, err = program.ReadFile(resolve(baseDir, job.File))
		if err != nil {
			return 0, render.Stats{}, err
		}
	}

	env := expr.NewEnv(expr.WithImageDir(imagesDir))
	node, err := env.Parse(src)
	if err != nil {
		return 0, render.Stats{}, err
	}

	if job.Frames > 1 {
		frames, stats, err := render.Animate(ctx, node, env.Clock(), job.Frames, job.DT, job.Width, job.Height, opts)
		if err != nil {
			return 0, render.Stats{}, err
		}
		return len(frames), stats, raster.SaveGIF(output, frames, FrameDelay)
	}

	format, err := raster.FormatFromPath(output)
	if err != nil {
		return 0, render.Stats{}, err
	}
	img, stats, err := render.RenderImage(ctx, node, job.Width, job.Height, opts)
	if err != nil {
		return 0, render.Stats{}, err
	}
	return 1, stats, img.Save(output, format)
}

func resolve(baseDir, path string) string {
	if path == "" {
		return baseDir
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
