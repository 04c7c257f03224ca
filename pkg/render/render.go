// Package render evaluates expression trees over a raster. Rows are
// evaluated in parallel within a pass; animation passes run one after
// another with the clock advanced in between.
package render

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/types"
)

// Default output size.
const (
	DefaultWidth  = 600
	DefaultHeight = 600
)

// MaxDimension bounds the width and height accepted by RenderImage.
const MaxDimension = 8192

// Options controls a render pass.
type Options struct {
	// Workers bounds the rows evaluated concurrently. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Stats describes a finished pass.
type Stats struct {
	Pixels    int
	NonFinite int
}

// Domain maps pixel index i of n to the [-1, 1) coordinate domain.
func Domain(i, n int) float64 {
	return float64(i)/float64(n)*2 - 1
}

// Render evaluates node at every pixel of dst. Pixels whose color has a NaN
// or infinite channel are still written (clamped by the display conversion)
// and counted in Stats.NonFinite.
func Render(ctx context.Context, node expr.Node, dst raster.Raster, opts Options) (Stats, error) {
	w, h := dst.Size()
	var nonFinite atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for py := 0; py < h; py++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			y := Domain(py, h)
			for px := 0; px < w; px++ {
				c := node.Evaluate(Domain(px, w), y)
				if !c.IsFinite() {
					nonFinite.Add(1)
				}
				dst.Set(px, py, c.ToDisplay())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("render: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, fmt.Errorf("render: %w", err)
	}

	stats := Stats{Pixels: w * h, NonFinite: int(nonFinite.Load())}
	if stats.NonFinite > 0 {
		log.Printf("Warning: %d of %d pixels evaluated to NaN or Inf", stats.NonFinite, stats.Pixels)
	}
	return stats, nil
}

// RenderImage allocates a w by h image and renders node into it.
func RenderImage(ctx context.Context, node expr.Node, w, h int, opts Options) (*raster.Image, Stats, error) {
	if err := CheckSize(w, h); err != nil {
		return nil, Stats{}, err
	}
	img := raster.Blank(w, h)
	stats, err := Render(ctx, node, img, opts)
	if err != nil {
		return nil, Stats{}, err
	}
	return img, stats, nil
}

// CheckSize validates output dimensions.
func CheckSize(w, h int) error {
	if w < 1 || h < 1 || w > MaxDimension || h > MaxDimension {
		return types.NewInvalidArgumentError(fmt.Sprintf("invalid size %dx%d: each dimension must be between 1 and %d", w, h, MaxDimension))
	}
	return nil
}

// Animate renders frames passes of node, advancing clock by dt after each
// one. Passes never overlap, so every t in a frame sees the same time.
func Animate(ctx context.Context, node expr.Node, clock *expr.Clock, frames int, dt float64, w, h int, opts Options) ([]*raster.Image, Stats, error) {
	if frames < 1 {
		return nil, Stats{}, fmt.Errorf("frames must be at least 1, got %d", frames)
	}
	var total Stats
	out := make([]*raster.Image, 0, frames)
	for i := 0; i < frames; i++ {
		img, stats, err := RenderImage(ctx, node, w, h, opts)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("frame %d: %w", i, err)
		}
		total.Pixels += stats.Pixels
		total.NonFinite += stats.NonFinite
		out = append(out, img)
		clock.Advance(dt)
	}
	return out, total, nil
}
