package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/picasso/pkg/api"
	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/program"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/render"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [expression]",
		Short: "Render an expression, program file or random expression to an image",
		Example: `  picasso render "sin(x * 3) * y" -o waves.png
  picasso render -f swirl.exp -o swirl.jpg --width 1024 --height 768
  picasso render "sin(t)" --frames 24 --dt 0.25 -o pulse.gif
  picasso render --random --save-expr lucky.exp -o lucky.png
  picasso render --image photo.jpg -o photo.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRender,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "out.png", `Output file; the extension picks the format. "-" writes PNG to stdout`)
	f.StringP("file", "f", "", "Read the program from a .exp file")
	f.Int("width", render.DefaultWidth, "Image width in pixels")
	f.Int("height", render.DefaultHeight, "Image height in pixels")
	f.Bool("random", false, "Render a randomly generated expression")
	f.Int("depth", expr.DefaultRandomDepth, "Nesting depth of random expressions")
	f.Uint64("seed", 0, "Seed for --random (default: time based)")
	f.String("save-expr", "", "Also save the program text to this .exp file")
	f.String("image", "", "Re-encode an existing image instead of evaluating an expression")
	f.Int("frames", 1, "Number of animation frames; more than one writes a GIF")
	f.Float64("dt", 0.1, "Clock step between animation frames")
	f.Float64("t", 0, "Initial value of t")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	output, _ := f.GetString("output")
	file, _ := f.GetString("file")
	width, _ := f.GetInt("width")
	height, _ := f.GetInt("height")
	random, _ := f.GetBool("random")
	frames, _ := f.GetInt("frames")
	dt, _ := f.GetFloat64("dt")
	t0, _ := f.GetFloat64("t")
	saveExpr, _ := f.GetString("save-expr")
	imagePath, _ := f.GetString("image")
	workers, _ := f.GetInt("workers")
	opts := render.Options{Workers: workers}

	sources := 0
	for _, set := range []bool{len(args) == 1, file != "", random, imagePath != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("give exactly one of an expression, --file, --random or --image")
	}

	out, format, closeOut, err := openOutput(cmd, output, frames)
	if err != nil {
		return err
	}
	defer closeOut()

	if imagePath != "" {
		img, err := raster.Load(imagePath)
		if err != nil {
			return err
		}
		return img.Encode(out, format)
	}

	dir := imagesDir(cmd)
	var src string
	switch {
	case random:
		depth, _ := f.GetInt("depth")
		seed, _ := f.GetUint64("seed")
		if !f.Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}
		src = expr.RandomExpression(rand.New(rand.NewPCG(seed, seed)), depth, api.ListImages(dir))
		log.Printf("Random expression (seed %d): %s", seed, src)
	case file != "":
		if src, err = program.ReadFile(file); err != nil {
			return err
		}
	default:
		src = args[0]
	}

	env := expr.NewEnv(expr.WithImageDir(dir))
	env.Clock().Set(t0)
	node, err := env.Parse(src)
	if err != nil {
		return err
	}

	if saveExpr != "" {
		path, err := program.WriteFile(saveExpr, src)
		if err != nil {
			return err
		}
		log.Printf("Saved expression to %s", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stats render.Stats
	if frames > 1 {
		var imgs []*raster.Image
		imgs, stats, err = render.Animate(ctx, node, env.Clock(), frames, dt, width, height, opts)
		if err != nil {
			return err
		}
		err = raster.EncodeGIF(out, imgs, api.FrameDelay)
	} else {
		var img *raster.Image
		img, stats, err = render.RenderImage(ctx, node, width, height, opts)
		if err != nil {
			return err
		}
		err = img.Encode(out, format)
	}
	if err != nil {
		return err
	}
	if stats.NonFinite > 0 {
		log.Printf("Warning: %d of %d pixels were not finite", stats.NonFinite, stats.Pixels)
	}
	if output != "-" {
		log.Printf("Wrote %s", output)
	}
	return nil
}

// openOutput opens the render destination. "-" is stdout, which must not
// be a terminal.
func openOutput(cmd *cobra.Command, output string, frames int) (io.Writer, raster.Format, func(), error) {
	if output == "-" {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return nil, "", nil, errors.New("refusing to write binary image data to a terminal; use -o <file> or redirect stdout")
		}
		format := raster.FormatPNG
		if frames > 1 {
			format = raster.FormatGIF
		}
		w := bufio.NewWriter(cmd.OutOrStdout())
		return w, format, func() { w.Flush() }, nil
	}

	format, err := raster.FormatFromPath(output)
	if err != nil {
		return nil, "", nil, err
	}
	if frames > 1 && format != raster.FormatGIF {
		return nil, "", nil, fmt.Errorf("animations must be written as .gif, got %s", output)
	}
	fh, err := os.Create(output)
	if err != nil {
		return nil, "", nil, err
	}
	w := bufio.NewWriter(fh)
	return w, format, func() {
		if err := w.Flush(); err != nil {
			log.Printf("Warning: writing %s: %v", output, err)
		}
		fh.Close()
	}, nil
}
