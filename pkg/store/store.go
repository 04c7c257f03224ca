// Package store provides in-memory storage for programs and their renders.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/picasso/pkg/types"
)

// RenderState represents the state of a render.
type RenderState string

const (
	RenderActive    RenderState = "ACTIVE"
	RenderSucceeded RenderState = "SUCCEEDED"
	RenderFailed    RenderState = "FAILED"
)

// Program is a stored picasso program.
type Program struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RevisionID  string    `json:"revisionId"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
	Source      string    `json:"source"`
}

// Render is one evaluation of a program revision to an image.
type Render struct {
	Name       string       `json:"name"`
	ID         string       `json:"id"`
	Program    string       `json:"program"`
	RevisionID string       `json:"programRevisionId"`
	State      RenderState  `json:"state"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Format     string       `json:"format"`
	Frames     int          `json:"frames"`
	NonFinite  int          `json:"nonFinitePixels"`
	Error      *types.Error `json:"error,omitempty"`
	StartTime  time.Time    `json:"startTime"`
	EndTime    time.Time    `json:"endTime,omitempty"`

	image []byte
}

// Store is a thread-safe in-memory storage for programs and renders.
// Methods return copies, so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	programs map[string]*Program
	renders  map[string]*Render // keyed by render ID

	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		programs: make(map[string]*Program),
		renders:  make(map[string]*Render),
	}
}

// CreateProgram stores a new program.
func (s *Store) CreateProgram(name, source, description string) (Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.programs[name]; exists {
		return Program{}, types.NewAlreadyExistsError(fmt.Sprintf("program '%s' already exists", name))
	}

	s.revCounter++
	now := time.Now()
	p := &Program{
		Name:        name,
		Description: description,
		RevisionID:  revision(s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
		Source:      source,
	}
	s.programs[name] = p
	return *p, nil
}

// GetProgram retrieves a program by name.
func (s *Store) GetProgram(name string) (Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[name]
	if !ok {
		return Program{}, programNotFound(name)
	}
	return *p, nil
}

// ListPrograms returns all programs ordered by name.
func (s *Store) ListPrograms() []Program {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Program, 0, len(s.programs))
	for _, p := range s.programs {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateProgram replaces a program's source and starts a new revision. An
// empty description keeps the current one.
func (s *Store) UpdateProgram(name, source, description string) (Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[name]
	if !ok {
		return Program{}, programNotFound(name)
	}

	s.revCounter++
	p.Source = source
	if description != "" {
		p.Description = description
	}
	p.RevisionID = revision(s.revCounter)
	p.UpdateTime = time.Now()
	return *p, nil
}

// DeleteProgram removes a program and all of its renders.
func (s *Store) DeleteProgram(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.programs[name]; !ok {
		return programNotFound(name)
	}
	delete(s.programs, name)
	for id, r := range s.renders {
		if r.Program == name {
			delete(s.renders, id)
		}
	}
	return nil
}

// CreateRender records a new active render of the program's current
// revision.
func (s *Store) CreateRender(program string, width, height int, format string, frames int) (Render, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[program]
	if !ok {
		return Render{}, programNotFound(program)
	}

	id := uuid.NewString()
	r := &Render{
		Name:       fmt.Sprintf("programs/%s/renders/%s", program, id),
		ID:         id,
		Program:    program,
		RevisionID: p.RevisionID,
		State:      RenderActive,
		Width:      width,
		Height:     height,
		Format:     format,
		Frames:     frames,
		StartTime:  time.Now(),
	}
	s.renders[id] = r
	return *r, nil
}

// GetRender retrieves a render of a program.
func (s *Store) GetRender(program, id string) (Render, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.renders[id]
	if !ok || r.Program != program {
		return Render{}, renderNotFound(program, id)
	}
	return *r, nil
}

// ListRenders returns the renders of a program, oldest first.
func (s *Store) ListRenders(program string) []Render {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Render
	for _, r := range s.renders {
		if r.Program == program {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result
}

// CompleteRender marks a render as succeeded and stores its encoded image.
func (s *Store) CompleteRender(id string, image []byte, nonFinite int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.renders[id]
	if !ok {
		return fmt.Errorf("render '%s' not found", id)
	}
	if r.State != RenderActive {
		return fmt.Errorf("render '%s' is not active (state: %s)", id, r.State)
	}
	r.State = RenderSucceeded
	r.EndTime = time.Now()
	r.NonFinite = nonFinite
	r.image = image
	return nil
}

// FailRender marks a render as failed.
func (s *Store) FailRender(id string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.renders[id]
	if !ok {
		return fmt.Errorf("render '%s' not found", id)
	}
	if r.State != RenderActive {
		return fmt.Errorf("render '%s' is not active (state: %s)", id, r.State)
	}
	r.State = RenderFailed
	r.EndTime = time.Now()
	r.Error = types.FromError(err)
	return nil
}

// RenderImage returns the encoded image of a succeeded render.
func (s *Store) RenderImage(program, id string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.renders[id]
	if !ok || r.Program != program {
		return nil, "", renderNotFound(program, id)
	}
	if r.State != RenderSucceeded {
		return nil, "", types.NewNotFoundError(fmt.Sprintf("render '%s' has no image (state: %s)", id, r.State))
	}
	return r.image, r.Format, nil
}

func revision(n int64) string {
	return fmt.Sprintf("%06d-000", n)
}

func programNotFound(name string) error {
	return types.NewNotFoundError(fmt.Sprintf("program '%s' not found", name))
}

func renderNotFound(program, id string) error {
	return types.NewNotFoundError(fmt.Sprintf("render '%s' of program '%s' not found", id, program))
}
