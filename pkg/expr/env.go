package expr

import (
	"log"
	"math"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/lemonberrylabs/picasso/pkg/raster"
)

// DefaultImageDir is where bare image file names are looked up.
const DefaultImageDir = "images"

// Clock holds the animation time read by t. Reads are safe from any
// goroutine; the render driver only advances it between passes.
type Clock struct {
	bits atomic.Uint64
}

// Now returns the current time.
func (c *Clock) Now() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Set replaces the current time.
func (c *Clock) Set(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Advance adds dt to the current time and returns the new value.
func (c *Clock) Advance(dt float64) float64 {
	for {
		old := c.bits.Load()
		next := math.Float64frombits(old) + dt
		if c.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// Reset sets the time back to zero.
func (c *Clock) Reset() {
	c.bits.Store(0)
}

// ImageLoader reads an image file for the image functions.
type ImageLoader func(path string) (raster.Raster, error)

// LoadImageFile is the default ImageLoader.
func LoadImageFile(path string) (raster.Raster, error) {
	return raster.Load(path)
}

// Env is the context a program is parsed in: variable bindings, the
// animation clock, image resolution and the random source. One Env belongs to
// one program run and is not safe for concurrent parsing. Trees it produces
// are safe to evaluate concurrently.
type Env struct {
	vars     map[string]Node
	clock    *Clock
	imageDir string
	loader   ImageLoader
	images   map[string]raster.Raster
	random   func() float64
}

// Option configures an Env.
type Option func(*Env)

// WithImageDir sets the directory bare image names resolve under.
func WithImageDir(dir string) Option {
	return func(e *Env) { e.imageDir = dir }
}

// WithImageLoader replaces the image file reader.
func WithImageLoader(l ImageLoader) Option {
	return func(e *Env) { e.loader = l }
}

// WithRandomSource sets the uniform [0, 1) source used by random() and
// randomFunction(). It must be safe for concurrent use.
func WithRandomSource(fn func() float64) Option {
	return func(e *Env) { e.random = fn }
}

// WithClock shares an existing clock instead of creating one.
func WithClock(c *Clock) Option {
	return func(e *Env) { e.clock = c }
}

// NewEnv returns an empty environment.
func NewEnv(opts ...Option) *Env {
	e := &Env{
		vars:     make(map[string]Node),
		imageDir: DefaultImageDir,
		loader:   LoadImageFile,
		images:   make(map[string]raster.Raster),
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = &Clock{}
	}
	return e
}

// Clock returns the animation clock shared by every t in this Env's trees.
func (e *Env) Clock() *Clock {
	return e.clock
}

// ImageDir returns the directory bare image names resolve under.
func (e *Env) ImageDir() string {
	return e.imageDir
}

// Define binds name to node. Later parses that reference name substitute
// node; trees already built are unaffected.
func (e *Env) Define(name string, node Node) {
	e.vars[name] = node
}

// Lookup returns the node bound to name.
func (e *Env) Lookup(name string) (Node, bool) {
	n, ok := e.vars[name]
	return n, ok
}

// Variables returns the bound names in sorted order.
func (e *Env) Variables() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all bindings, the image cache and the clock.
func (e *Env) Reset() {
	e.vars = make(map[string]Node)
	e.images = make(map[string]raster.Raster)
	e.clock.Reset()
}

// ResolveImagePath roots a bare file name under dir. Names containing a path
// separator or starting at the filesystem root are returned unchanged.
func ResolveImagePath(dir, name string) string {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.ContainsAny(name, `/\`) {
		return name
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// image builds a StringValue for name, loading the file once per Env. A file
// that cannot be read is replaced by a 1x1 black image.
func (e *Env) image(name string) *StringValue {
	path := ResolveImagePath(e.imageDir, name)
	if img, ok := e.images[path]; ok {
		return &StringValue{Path: path, Image: img}
	}
	img, err := e.loader(path)
	if err != nil {
		log.Printf("Warning: %v; using blank image", err)
		img = raster.Blank(1, 1)
	}
	e.images[path] = img
	return &StringValue{Path: path, Image: img}
}
