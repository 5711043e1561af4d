package repository

import (
	"context"

	"github.com/jaekwang-park/project-board/internal/model"
)

type ProjectRepository interface {
	Create(ctx context.Context, project model.Project) (model.Project, error)
	// GetByID is not scoped to a user; ownership is checked by the caller.
	GetByID(ctx context.Context, projectID string) (model.Project, error)
	Update(ctx context.Context, project model.Project) (model.Project, error)
	Delete(ctx context.Context, projectID string) error
	List(ctx context.Context, params model.ProjectListParams) ([]model.Project, int, error)
}

type TaskRepository interface {
	// ListByProject returns the project's tasks with subtasks loaded.
	ListByProject(ctx context.Context, projectID string) ([]model.Task, error)
}
