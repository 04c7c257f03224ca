// Package api implements the REST API for storing, parsing and rendering
// picasso programs.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/program"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/render"
	"github.com/lemonberrylabs/picasso/pkg/store"
	"github.com/lemonberrylabs/picasso/pkg/types"
)

// FrameDelay is the per-frame delay of animated renders, in hundredths of a
// second.
const FrameDelay = 8

// DefaultDT is the clock step between animation frames when none is given.
const DefaultDT = 0.1

// Config configures a Server.
type Config struct {
	// ImagesDir is where bare file names in imageClip/imageWrap resolve.
	ImagesDir string
	// Render is passed to every render pass.
	Render render.Options
}

// Server is the picasso API server.
type Server struct {
	app   *fiber.App
	store *store.Store
	cfg   Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new API server.
func New(s *store.Store, cfg Config) *Server {
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = expr.DefaultImageDir
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		store:  s,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
	})

	// Programs API
	app.Post("/v1/programs", srv.createProgram)
	app.Get("/v1/programs", srv.listPrograms)
	app.Get("/v1/programs/:program", srv.getProgram)
	app.Patch("/v1/programs/:program", srv.updateProgram)
	app.Delete("/v1/programs/:program", srv.deleteProgram)

	// Renders API
	app.Post("/v1/programs/:program/renders", srv.createRender)
	app.Get("/v1/programs/:program/renders", srv.listRenders)
	app.Get("/v1/programs/:program/renders/:render", srv.getRender)
	app.Get("/v1/programs/:program/renders/:render/image", srv.renderImage)

	// Stateless expression API
	app.Post("/v1/parse", srv.parse)
	app.Post("/v1/evaluate", srv.evaluate)
	app.Get("/v1/render", srv.renderExpression)
	app.Get("/v1/random", srv.random)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the HTTP server, cancels background renders and waits for
// them to finish.
func (s *Server) Shutdown() error {
	s.cancel()
	err := s.app.Shutdown()
	s.wg.Wait()
	return err
}

// Wait blocks until all background renders have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// newEnv returns a fresh environment configured for this server.
func (s *Server) newEnv() *expr.Env {
	return expr.NewEnv(expr.WithImageDir(s.cfg.ImagesDir))
}

// --- Program Handlers ---

type programRequest struct {
	Source      string `json:"source"`
	Description string `json:"description"`
}

var validProgramID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func (s *Server) createProgram(c *fiber.Ctx) error {
	id := c.Query("programId")
	if id == "" {
		return invalidArgument(c, "programId query parameter is required")
	}
	if !validProgramID.MatchString(id) || len(id) > 128 {
		return invalidArgument(c, fmt.Sprintf("invalid programId %q", id))
	}

	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if strings.TrimSpace(req.Source) == "" {
		return invalidArgument(c, "source is required")
	}
	if _, err := s.newEnv().Parse(req.Source); err != nil {
		return sendError(c, err)
	}

	p, err := s.store.CreateProgram(id, req.Source, req.Description)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) getProgram(c *fiber.Ctx) error {
	p, err := s.store.GetProgram(c.Params("program"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) listPrograms(c *fiber.Ctx) error {
	programs := s.store.ListPrograms()
	items := make([]fiber.Map, len(programs))
	for i, p := range programs {
		items[i] = programToJSON(p)
	}
	return c.JSON(fiber.Map{
		"programs": items,
	})
}

func (s *Server) updateProgram(c *fiber.Ctx) error {
	name := c.Params("program")

	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument(c, fmt.Sprintf("invalid request body: %v", err))
	}

	current, err := s.store.GetProgram(name)
	if err != nil {
		return sendError(c, err)
	}
	if req.Source == "" {
		req.Source = current.Source
	} else if _, err := s.newEnv().Parse(req.Source); err != nil {
		return sendError(c, err)
	}

	p, err := s.store.UpdateProgram(name, req.Source, req.Description)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) deleteProgram(c *fiber.Ctx) error {
	name := c.Params("program")
	if err := s.store.DeleteProgram(name); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"name":    name,
		"deleted": true,
	})
}

// --- Render Handlers ---

type renderRequest struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Format string  `json:"format"`
	Frames int     `json:"frames"`
	DT     float64 `json:"dt"`
}

// normalize applies defaults and validates the request.
func (r *renderRequest) normalize() error {
	if r.Width == 0 {
		r.Width = render.DefaultWidth
	}
	if r.Height == 0 {
		r.Height = render.DefaultHeight
	}
	if err := render.CheckSize(r.Width, r.Height); err != nil {
		return err
	}
	if r.Frames < 0 {
		return types.NewInvalidArgumentError(fmt.Sprintf("frames must not be negative, got %d", r.Frames))
	}
	if r.Frames == 0 {
		r.Frames = 1
	}
	if r.Frames > 1 {
		if r.Format != "" && r.Format != string(raster.FormatGIF) {
			return types.NewInvalidArgumentError("animated renders must use the gif format")
		}
		r.Format = string(raster.FormatGIF)
		if r.DT == 0 {
			r.DT = DefaultDT
		}
		return nil
	}
	if r.Format == "" {
		r.Format = string(raster.FormatPNG)
	}
	f, err := raster.ParseFormat(r.Format)
	if err != nil {
		return types.NewInvalidArgumentError(err.Error())
	}
	r.Format = string(f)
	return nil
}

func (s *Server) createRender(c *fiber.Ctx) error {
	name := c.Params("program")

	var req renderRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return invalidArgument(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if err := req.normalize(); err != nil {
		return sendError(c, err)
	}

	p, err := s.store.GetProgram(name)
	if err != nil {
		return sendError(c, err)
	}
	env := s.newEnv()
	node, err := env.Parse(p.Source)
	if err != nil {
		return sendError(c, err)
	}

	r, err := s.store.CreateRender(name, req.Width, req.Height, req.Format, req.Frames)
	if err != nil {
		return sendError(c, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runRender(r.ID, node, env, req)
	}()

	return c.JSON(renderToJSON(r))
}

func (s *Server) runRender(id string, node expr.Node, env *expr.Env, req renderRequest) {
	data, stats, err := s.encode(s.ctx, node, env, req)
	if err != nil {
		log.Printf("Warning: render %s failed: %v", id, err)
		if serr := s.store.FailRender(id, err); serr != nil {
			log.Printf("Warning: could not record failure of render %s: %v", id, serr)
		}
		return
	}
	if stats.NonFinite > 0 {
		log.Printf("Render %s: %d of %d pixels were not finite", id, stats.NonFinite, stats.Pixels)
	}
	if err := s.store.CompleteRender(id, data, stats.NonFinite); err != nil {
		log.Printf("Warning: could not record result of render %s: %v", id, err)
	}
}

// encode renders node according to req and returns the encoded image.
func (s *Server) encode(ctx context.Context, node expr.Node, env *expr.Env, req renderRequest) ([]byte, render.Stats, error) {
	var buf bytes.Buffer
	if req.Frames > 1 {
		frames, stats, err := render.Animate(ctx, node, env.Clock(), req.Frames, req.DT, req.Width, req.Height, s.cfg.Render)
		if err != nil {
			return nil, render.Stats{}, err
		}
		if err := raster.EncodeGIF(&buf, frames, FrameDelay); err != nil {
			return nil, render.Stats{}, err
		}
		return buf.Bytes(), stats, nil
	}

	format, err := raster.ParseFormat(req.Format)
	if err != nil {
		return nil, render.Stats{}, err
	}
	img, stats, err := render.RenderImage(ctx, node, req.Width, req.Height, s.cfg.Render)
	if err != nil {
		return nil, render.Stats{}, err
	}
	if err := img.Encode(&buf, format); err != nil {
		return nil, render.Stats{}, err
	}
	return buf.Bytes(), stats, nil
}

func (s *Server) getRender(c *fiber.Ctx) error {
	r, err := s.store.GetRender(c.Params("program"), c.Params("render"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(renderToJSON(r))
}

func (s *Server) listRenders(c *fiber.Ctx) error {
	name := c.Params("program")
	if _, err := s.store.GetProgram(name); err != nil {
		return sendError(c, err)
	}
	renders := s.store.ListRenders(name)
	items := make([]fiber.Map, len(renders))
	for i, r := range renders {
		items[i] = renderToJSON(r)
	}
	return c.JSON(fiber.Map{
		"renders": items,
	})
}

func (s *Server) renderImage(c *fiber.Ctx) error {
	data, format, err := s.store.RenderImage(c.Params("program"), c.Params("render"))
	if err != nil {
		return sendError(c, err)
	}
	c.Set(fiber.HeaderContentType, raster.Format(format).ContentType())
	return c.Send(data)
}

// --- Expression Handlers ---

type expressionRequest struct {
	Expression string  `json:"expression"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	T          float64 `json:"t"`
}

func (s *Server) parse(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument(c, fmt.Sprintf("invalid request body: %v", err))
	}
	env := s.newEnv()
	node, err := env.Parse(req.Expression)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"tree":      node.String(),
		"variables": env.Variables(),
	})
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument(c, fmt.Sprintf("invalid request body: %v", err))
	}
	env := s.newEnv()
	env.Clock().Set(req.T)
	node, err := env.Parse(req.Expression)
	if err != nil {
		return sendError(c, err)
	}
	col := node.Evaluate(req.X, req.Y)
	d := col.ToDisplay()
	return c.JSON(fiber.Map{
		"tree":    node.String(),
		"color":   []float64{col.R, col.G, col.B},
		"display": []uint8{d.R, d.G, d.B},
		"finite":  col.IsFinite(),
	})
}

func (s *Server) renderExpression(c *fiber.Ctx) error {
	src := c.Query("expr")
	if strings.TrimSpace(src) == "" {
		return invalidArgument(c, "expr query parameter is required")
	}
	req := renderRequest{
		Width:  c.QueryInt("width"),
		Height: c.QueryInt("height"),
		Format: c.Query("format"),
	}
	if err := req.normalize(); err != nil {
		return sendError(c, err)
	}

	env := s.newEnv()
	if v := c.Query("t"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalidArgument(c, fmt.Sprintf("invalid t %q", v))
		}
		env.Clock().Set(t)
	}
	node, err := env.Parse(src)
	if err != nil {
		return sendError(c, err)
	}

	data, stats, err := s.encode(c.UserContext(), node, env, req)
	if err != nil {
		return sendError(c, err)
	}
	c.Set(fiber.HeaderContentType, raster.Format(req.Format).ContentType())
	c.Set("X-Picasso-Non-Finite", strconv.Itoa(stats.NonFinite))
	return c.Send(data)
}

func (s *Server) random(c *fiber.Ctx) error {
	depth := c.QueryInt("depth", expr.DefaultRandomDepth)
	if depth < 0 || depth > 32 {
		return invalidArgument(c, fmt.Sprintf("depth must be between 0 and 32, got %d", depth))
	}
	var rng *rand.Rand
	if v := c.Query("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return invalidArgument(c, fmt.Sprintf("invalid seed %q", v))
		}
		rng = rand.New(rand.NewPCG(seed, seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c.JSON(fiber.Map{
		"expression": expr.RandomExpression(rng, depth, ListImages(s.cfg.ImagesDir)),
	})
}

// --- Directory Loading ---

// LoadDir deploys every .exp file in dir as a program. The file name, sans
// extension and lowercased, becomes the program ID. Files that cannot be
// read or parsed are skipped with a warning.
func (s *Server) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading programs directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != program.Ext {
			continue
		}
		name := entry.Name()
		base := program.Name(name)
		id := strings.ToLower(base)
		if id != base {
			log.Printf("Warning: lowercased program ID %q (from file %q)", id, name)
		}
		if !validProgramID.MatchString(id) || len(id) > 128 {
			log.Printf("Warning: skipping file %q: invalid program ID %q", name, id)
			continue
		}

		src, err := program.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", name, err)
			continue
		}
		if _, err := s.newEnv().Parse(src); err != nil {
			log.Printf("Warning: could not parse %q: %v", name, err)
			continue
		}
		if _, err := s.store.CreateProgram(id, src, ""); err != nil {
			log.Printf("Warning: could not deploy %q: %v", name, err)
			continue
		}
		loaded++
		log.Printf("Loaded program %q from %s", id, name)
	}

	log.Printf("Loaded %d program(s) from %s", loaded, dir)
	return nil
}

// ListImages returns the names of the decodable image files in dir, sorted.
// A missing directory yields no names.
func ListImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := raster.FormatFromPath(e.Name()); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// --- Helpers ---

func programToJSON(p store.Program) fiber.Map {
	return fiber.Map{
		"name":        p.Name,
		"description": p.Description,
		"revisionId":  p.RevisionID,
		"createTime":  p.CreateTime.Format(time.RFC3339),
		"updateTime":  p.UpdateTime.Format(time.RFC3339),
		"source":      p.Source,
	}
}

func renderToJSON(r store.Render) fiber.Map {
	result := fiber.Map{
		"name":              r.Name,
		"id":                r.ID,
		"state":             r.State,
		"programRevisionId": r.RevisionID,
		"width":             r.Width,
		"height":            r.Height,
		"format":            r.Format,
		"frames":            r.Frames,
		"startTime":         r.StartTime.Format(time.RFC3339),
	}
	if r.State == store.RenderSucceeded {
		result["nonFinitePixels"] = r.NonFinite
	}
	if r.Error != nil {
		result["error"] = r.Error.ToMap()
	}
	if !r.EndTime.IsZero() {
		result["endTime"] = r.EndTime.Format(time.RFC3339)
	}
	return result
}

func invalidArgument(c *fiber.Ctx, msg string) error {
	return sendError(c, types.NewInvalidArgumentError(msg))
}

// sendError writes err as a JSON error envelope with a status derived from
// its type.
func sendError(c *fiber.Ctx, err error) error {
	code, status := classify(err)
	body := fiber.Map{
		"code":    code,
		"message": err.Error(),
		"status":  status,
	}
	var pe *expr.ParseError
	var te *expr.TokenizeError
	switch {
	case errors.As(err, &pe):
		body["position"] = pe.Pos
		body["message"] = pe.Message
	case errors.As(err, &te):
		body["position"] = te.Pos
		body["message"] = te.Msg
	}
	return c.Status(code).JSON(fiber.Map{"error": body})
}

// classify maps err to an HTTP code and a canonical status name.
func classify(err error) (int, string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 499, "CANCELLED"
	}
	var pe *expr.ParseError
	var te *expr.TokenizeError
	if errors.As(err, &pe) || errors.As(err, &te) {
		return 400, "INVALID_ARGUMENT"
	}
	var e *types.Error
	if errors.As(err, &e) {
		switch {
		case e.HasTag(types.TagNotFound):
			return 404, "NOT_FOUND"
		case e.HasTag(types.TagAlreadyExists):
			return 409, "ALREADY_EXISTS"
		case e.HasTag(types.TagInvalidArgument):
			return 400, "INVALID_ARGUMENT"
		case e.HasTag(types.TagCancelled):
			return 499, "CANCELLED"
		}
	}
	return 500, "INTERNAL"
}
