// Package repositorytest provides in-memory repositories for tests.
package repositorytest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/repository"
)

// Projects is an in-memory ProjectRepository and TaskRepository.
type Projects struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	projects map[string]model.Project
	tasks    map[string][]model.Task

	// Err, when set, is returned by every call.
	Err error
}

func NewProjects() *Projects {
	return &Projects{
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		projects: make(map[string]model.Project),
		tasks:    make(map[string][]model.Task),
	}
}

// Seed stores a project as-is, assigning an id and timestamps if missing.
func (r *Projects) Seed(p model.Project) model.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(p)
}

// SeedTasks attaches tasks to a project.
func (r *Projects) SeedTasks(projectID string, tasks ...model.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[projectID] = append(r.tasks[projectID], tasks...)
}

// Snapshot returns the stored project without going through the interface.
func (r *Projects) Snapshot(id string) (model.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	return p, ok
}

func (r *Projects) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.projects)
}

func (r *Projects) insert(p model.Project) model.Project {
	r.seq++
	r.clock = r.clock.Add(time.Minute)
	if p.ID == "" {
		p.ID = fmt.Sprintf("project-%d", r.seq)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.clock
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	r.projects[p.ID] = p
	return p
}

func (r *Projects) Create(ctx context.Context, project model.Project) (model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.Project{}, r.Err
	}
	project.ID = ""
	project.CreatedAt = time.Time{}
	project.UpdatedAt = time.Time{}
	return r.insert(project), nil
}

func (r *Projects) GetByID(ctx context.Context, projectID string) (model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.Project{}, r.Err
	}
	p, ok := r.projects[projectID]
	if !ok {
		return model.Project{}, fmt.Errorf("failed to scan project: %w", sql.ErrNoRows)
	}
	return p, nil
}

func (r *Projects) Update(ctx context.Context, project model.Project) (model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return model.Project{}, r.Err
	}
	existing, ok := r.projects[project.ID]
	if !ok || existing.UserID != project.UserID {
		return model.Project{}, fmt.Errorf("failed to scan project: %w", sql.ErrNoRows)
	}
	r.clock = r.clock.Add(time.Minute)
	existing.Name = project.Name
	existing.Description = project.Description
	existing.Status = project.Status
	existing.UpdatedAt = r.clock
	r.projects[project.ID] = existing
	return existing, nil
}

func (r *Projects) Delete(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.projects[projectID]; !ok {
		return sql.ErrNoRows
	}
	delete(r.projects, projectID)
	delete(r.tasks, projectID)
	return nil
}

func (r *Projects) List(ctx context.Context, params model.ProjectListParams) ([]model.Project, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	search := strings.ToLower(params.Filters.Search)
	var matched []model.Project
	for _, p := range r.projects {
		if p.UserID != params.UserID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if params.Filters.Status != "" && p.Status != params.Filters.Status {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		less := lessBy(params.Sort.Field, matched[i], matched[j])
		if params.Sort.Direction == model.SortAsc {
			return less
		}
		return lessBy(params.Sort.Field, matched[j], matched[i])
	})

	total := len(matched)
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = model.ProjectsPerPage
	}
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	page := append([]model.Project{}, matched[start:end]...)
	return page, total, nil
}

func lessBy(field model.SortField, a, b model.Project) bool {
	switch field {
	case model.SortByName:
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	case model.SortByStatus:
		if a.Status != b.Status {
			return a.Status < b.Status
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}

func (r *Projects) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	tasks := append([]model.Task{}, r.tasks[projectID]...)
	return tasks, nil
}

var (
	_ repository.ProjectRepository = (*Projects)(nil)
	_ repository.TaskRepository    = (*Projects)(nil)
)
