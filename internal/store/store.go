// Package store keeps the client-side view of a user's project listing
// and reconciles it with change notifications.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/model"
)

// Fetcher loads one listing page from the server.
type Fetcher interface {
	FetchProjects(ctx context.Context, key CacheKey) (Snapshot, error)
}

// Store holds the displayed page and the snapshot cache. All mutations
// are serialized.
type Store struct {
	fetcher Fetcher
	cache   *Cache
	logger  *slog.Logger

	mu      sync.Mutex
	current Snapshot
	key     CacheKey
	// generation advances on every invalidation so a fetch that raced
	// one is not cached.
	generation uint64
	// fetching counts Loads waiting on the server. While any are, deleted
	// maps each deleted project id to the generation it was deleted in.
	fetching int
	deleted  map[string]uint64
}

func New(fetcher Fetcher, cache *Cache, logger *slog.Logger) *Store {
	return &Store{fetcher: fetcher, cache: cache, logger: logger}
}

// Load displays the page for key, from the cache when present.
func (s *Store) Load(ctx context.Context, key CacheKey) (Snapshot, error) {
	key = key.Normalize()

	s.mu.Lock()
	if snap, ok := s.cache.Get(key); ok {
		s.setLocked(key, snap)
		s.mu.Unlock()
		s.logger.Debug("project page served from cache", "key", key.String())
		return snap, nil
	}
	gen := s.generation
	s.fetching++
	s.mu.Unlock()

	snap, err := s.fetcher.FetchProjects(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.doneFetchingLocked()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load projects: %w", err)
	}

	if gen == s.generation {
		if err := s.cache.Put(key, snap); err != nil {
			s.logger.Warn("failed to cache project page", "key", key.String(), "error", err)
		}
	} else {
		// The server may have answered before seeing a deletion applied
		// since; keep deleted projects off the page.
		snap = s.dropDeletedLocked(snap, gen)
	}
	s.setLocked(key, snap)
	return snap, nil
}

// Apply reconciles the store with a change notification.
func (s *Store) Apply(n broadcast.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case n.Name == broadcast.ProjectCreated && n.Project != nil:
		s.addLocked(*n.Project)
	case n.Name == broadcast.ProjectUpdated && n.Project != nil:
		s.updateLocked(*n.Project)
	case n.Name == broadcast.ProjectDeleted && n.Deleted != nil:
		s.removeLocked(n.Deleted.ProjectID)
		s.noteDeletedLocked(n.Deleted.ProjectID)
	default:
		s.logger.Warn("ignoring malformed notification", "notification", n.Name, "id", n.ID)
		return
	}
	s.invalidateLocked()
	s.logger.Debug("applied notification", "notification", n.Name, "project_id", n.ProjectID())
}

// Invalidate drops every cached page, e.g. after a local mutation.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

// SetProjects replaces the displayed page.
func (s *Store) SetProjects(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap
}

// UpdateProjectInList replaces p on the displayed page. It reports
// whether p was shown.
func (s *Store) UpdateProjectInList(p model.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(p)
}

// RemoveProjectFromList drops projectID from the displayed page. It
// reports whether the project was shown.
func (s *Store) RemoveProjectFromList(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(projectID)
}

// AddProjectToList leaves the displayed page alone: where a new project
// belongs depends on the server-side sort and filters.
func (s *Store) AddProjectToList(p model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(p)
}

// Current returns a copy of the displayed page and its state.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.current
	snap.Projects.Data = append([]model.Project(nil), s.current.Projects.Data...)
	return snap
}

// Key returns the key of the displayed page.
func (s *Store) Key() CacheKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

func (s *Store) setLocked(key CacheKey, snap Snapshot) {
	s.key = key
	s.current = snap
}

func (s *Store) addLocked(p model.Project) {
	s.logger.Debug("project created elsewhere", "project_id", p.ID)
}

func (s *Store) updateLocked(p model.Project) bool {
	i := s.current.Projects.IndexOf(p.ID)
	if i < 0 {
		return false
	}
	data := append([]model.Project(nil), s.current.Projects.Data...)
	data[i] = p
	s.current.Projects.Data = data
	return true
}

func (s *Store) removeLocked(projectID string) bool {
	data := s.current.Projects.Data
	kept := make([]model.Project, 0, len(data))
	for _, p := range data {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	s.current.Projects.Data = kept
	return len(kept) != len(data)
}

func (s *Store) noteDeletedLocked(projectID string) {
	if s.fetching == 0 {
		return
	}
	if s.deleted == nil {
		s.deleted = make(map[string]uint64)
	}
	s.deleted[projectID] = s.generation
}

func (s *Store) doneFetchingLocked() {
	s.fetching--
	if s.fetching == 0 {
		s.deleted = nil
	}
}

// dropDeletedLocked removes projects deleted in generation since or later.
func (s *Store) dropDeletedLocked(snap Snapshot, since uint64) Snapshot {
	data := make([]model.Project, 0, len(snap.Projects.Data))
	for _, p := range snap.Projects.Data {
		if gen, ok := s.deleted[p.ID]; ok && gen >= since {
			continue
		}
		data = append(data, p)
	}
	snap.Projects.Data = data
	return snap
}

func (s *Store) invalidateLocked() {
	s.generation++
	s.cache.Clear()
}
