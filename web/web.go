// Package web provides the embedded web UI for browsing programs and their
// renders.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// PreviewSize is the edge length of the live previews on the UI pages.
const PreviewSize = 160

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store) *Handler {
	return &Handler{
		store: s,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"duration":   duration,
			"stateClass": stateClass,
			"stateIcon":  stateIcon,
			"truncate":   truncate,
			"countLines": countLines,
			"previewURL": previewURL,
			"imageURL":   imageURL,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	tmpl, err := template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	if err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/programs", h.programList)
	app.Get("/ui/programs/:program", h.programDetail)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Programs       []store.Program
	RecentRenders  []store.Render
	ActiveCount    int
	SucceededCount int
	FailedCount    int
	Functions      []string
}

type programView struct {
	store.Program
	RenderCount int
	ActiveCount int
}

type programListContent struct {
	Programs []programView
}

type programDetailContent struct {
	Program store.Program
	Tree    string
	Renders []store.Render
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	programs := h.store.ListPrograms()
	sort.SliceStable(programs, func(i, j int) bool {
		return programs[i].UpdateTime.After(programs[j].UpdateTime)
	})

	var all []store.Render
	var active, succeeded, failed int
	for _, p := range programs {
		for _, r := range h.store.ListRenders(p.Name) {
			all = append(all, r)
			switch r.State {
			case store.RenderActive:
				active++
			case store.RenderSucceeded:
				succeeded++
			case store.RenderFailed:
				failed++
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartTime.After(all[j].StartTime)
	})
	if len(all) > 10 {
		all = all[:10]
	}

	return h.render(c, "dashboard.html", "dashboard", dashboardContent{
		Programs:       programs,
		RecentRenders:  all,
		ActiveCount:    active,
		SucceededCount: succeeded,
		FailedCount:    failed,
		Functions:      expr.Functions(),
	})
}

func (h *Handler) programList(c *fiber.Ctx) error {
	var views []programView
	for _, p := range h.store.ListPrograms() {
		renders := h.store.ListRenders(p.Name)
		v := programView{Program: p, RenderCount: len(renders)}
		for _, r := range renders {
			if r.State == store.RenderActive {
				v.ActiveCount++
			}
		}
		views = append(views, v)
	}
	return h.render(c, "program_list.html", "programs", programListContent{
		Programs: views,
	})
}

func (h *Handler) programDetail(c *fiber.Ctx) error {
	name := c.Params("program")
	p, err := h.store.GetProgram(name)
	if err != nil {
		c.Status(404)
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Program '%s' not found", name),
		})
	}

	tree := ""
	if node, err := expr.NewEnv().Parse(p.Source); err == nil {
		tree = node.String()
	} else {
		tree = err.Error()
	}

	renders := h.store.ListRenders(name)
	sort.SliceStable(renders, func(i, j int) bool {
		return renders[i].StartTime.After(renders[j].StartTime)
	})

	return h.render(c, "program_detail.html", "programs", programDetailContent{
		Program: p,
		Tree:    tree,
		Renders: renders,
	})
}

// --- Template Helpers ---

// previewURL returns a stateless render URL for src.
func previewURL(src string) string {
	q := url.Values{}
	q.Set("expr", src)
	q.Set("width", fmt.Sprint(PreviewSize))
	q.Set("height", fmt.Sprint(PreviewSize))
	return "/v1/render?" + q.Encode()
}

func imageURL(r store.Render) string {
	return fmt.Sprintf("/v1/programs/%s/renders/%s/image", url.PathEscape(r.Program), url.PathEscape(r.ID))
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return fmt.Sprintf("%s (running)", formatDuration(time.Since(start)))
	}
	return formatDuration(end.Sub(start))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

func stateClass(state store.RenderState) string {
	switch state {
	case store.RenderActive:
		return "state-active"
	case store.RenderSucceeded:
		return "state-succeeded"
	case store.RenderFailed:
		return "state-failed"
	default:
		return ""
	}
}

func stateIcon(state store.RenderState) template.HTML {
	switch state {
	case store.RenderActive:
		return "&#9654;"
	case store.RenderSucceeded:
		return "&#10003;"
	case store.RenderFailed:
		return "&#10007;"
	default:
		return "&#8226;"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
