// Package scene is a headless renderer: it keeps the world position of every
// visual handle and applies the displacements the scheduler sends.
//
// Handles start at the origin unless placed with [Scene.Place]; positions are
// therefore displacements from rest, which is what traces and the HTTP API
// report.
package scene

import (
	"slices"
	"sync"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// Scene maps handles to positions. It is safe for concurrent use.
type Scene struct {
	mu    sync.RWMutex
	pos   map[assembly.Handle]assembly.Vec3
	moves int
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{pos: make(map[assembly.Handle]assembly.Vec3)}
}

// FromTree creates a scene holding every handle of t at the origin.
func FromTree(t *assembly.Tree) *Scene {
	s := New()
	for _, p := range t.Parts() {
		for _, h := range p.Handles {
			s.pos[h] = assembly.Vec3{}
		}
	}
	return s
}

// Place sets the rest position of h.
func (s *Scene) Place(h assembly.Handle, at assembly.Vec3) {
	s.mu.Lock()
	s.pos[h] = at
	s.mu.Unlock()
}

// Translate moves every handle by v. Unknown handles are created at the
// origin first.
func (s *Scene) Translate(handles []assembly.Handle, v assembly.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range handles {
		s.pos[h] = s.pos[h].Add(v)
	}
	s.moves++
}

// Position returns the position of h.
func (s *Scene) Position(h assembly.Handle) (assembly.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.pos[h]
	return v, ok
}

// Snapshot returns a copy of all positions.
func (s *Scene) Snapshot() map[assembly.Handle]assembly.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[assembly.Handle]assembly.Vec3, len(s.pos))
	for h, v := range s.pos {
		out[h] = v
	}
	return out
}

// Handles returns every known handle in sorted order.
func (s *Scene) Handles() []assembly.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]assembly.Handle, 0, len(s.pos))
	for h := range s.pos {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Moves returns how many Translate calls the scene has received.
func (s *Scene) Moves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.moves
}

var _ scheduler.Renderer = (*Scene)(nil)
