package history

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTemp(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return h, path
}

func TestAddAndList(t *testing.T) {
	h, _ := openTemp(t)
	defer h.Close()

	for i, line := range []string{"x", "y", "sin(x)"} {
		seq, err := h.Add(line)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if seq != i+1 {
			t.Errorf("Add(%q) seq = %d, want %d", line, seq, i+1)
		}
	}

	all, err := h.List(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{{1, "x"}, {2, "y"}, {3, "sin(x)"}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("List(0) mismatch (-want +got):\n%s", diff)
	}

	recent, _ := h.List(2)
	if diff := cmp.Diff(want[1:], recent); diff != "" {
		t.Errorf("List(2) mismatch (-want +got):\n%s", diff)
	}
}

func TestLast(t *testing.T) {
	h, _ := openTemp(t)
	defer h.Close()

	if _, err := h.Last(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Last on empty history: got %v, want ErrEmpty", err)
	}
	h.Add("a")
	h.Add("b")
	e, err := h.Last()
	if err != nil {
		t.Fatal(err)
	}
	if e != (Entry{Seq: 2, Text: "b"}) {
		t.Errorf("Last = %+v", e)
	}
}

func TestPersistsAcrossOpens(t *testing.T) {
	h, path := openTemp(t)
	h.Add("first")
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	h2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Close()
	seq, _ := h2.Add("second")
	if seq != 2 {
		t.Errorf("sequence after reopen = %d, want 2", seq)
	}
	all, _ := h2.List(0)
	if len(all) != 2 || all[0].Text != "first" {
		t.Errorf("List after reopen = %+v", all)
	}
}

func TestOpenBadPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "h.db")); err == nil {
		t.Error("expected error opening history in a missing directory")
	}
}
