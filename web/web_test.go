package web

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/picasso/pkg/store"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(s)
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	for _, want := range []string{"Dashboard", "Picasso", "No programs deployed", "No renders yet", "perlinColor"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestDashboardWithData(t *testing.T) {
	app, s := setupTestApp(t)

	if _, err := s.CreateProgram("swirl", "sin(x * y)", "A test program"); err != nil {
		t.Fatalf("failed to create program: %v", err)
	}
	r, _ := s.CreateRender("swirl", 10, 10, "png", 1)
	s.CompleteRender(r.ID, []byte{1}, 0)
	r2, _ := s.CreateRender("swirl", 10, 10, "png", 1)
	s.FailRender(r2.ID, io.ErrUnexpectedEOF)

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"swirl", "/v1/render?", "state-succeeded", "state-failed"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestProgramList(t *testing.T) {
	app, s := setupTestApp(t)
	s.CreateProgram("one", "x", "First program")
	s.CreateProgram("two", "y\n-y", "Second program")

	code, html := get(t, app, "/ui/programs")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"one", "two", "First program", "Second program", "2 lines"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestProgramDetail(t *testing.T) {
	app, s := setupTestApp(t)
	s.CreateProgram("stripes", "wrap(x * 4)", "Test desc")
	r, _ := s.CreateRender("stripes", 8, 8, "png", 1)
	s.CompleteRender(r.ID, []byte{1}, 0)

	code, html := get(t, app, "/ui/programs/stripes")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"stripes", "Test desc", "wrap(x * 4)", "wrap((x * 4))", "/v1/programs/stripes/renders/" + r.ID + "/image"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestProgramNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui/programs/nonexistent")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
	if !strings.Contains(html, "Not found") || !strings.Contains(html, "nonexistent") {
		t.Error("expected not found message")
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Fatalf("expected 302 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Fatalf("expected redirect to /ui, got %s", loc)
	}
}

func TestPreviewURL(t *testing.T) {
	got := previewURL("x + y")
	want := "/v1/render?expr=x+%2B+y&height=160&width=160"
	if got != want {
		t.Errorf("previewURL = %q, want %q", got, want)
	}
}
