package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/policy"
	"github.com/jaekwang-park/project-board/internal/repository"
	"github.com/jaekwang-park/project-board/internal/validation"
)

// Notifier publishes project change notifications after a write.
type Notifier interface {
	Notify(ctx context.Context, n broadcast.Notification)
}

type ProjectListResult struct {
	Projects model.ProjectPage    `json:"projects"`
	Filters  model.ProjectFilters `json:"filters"`
	Sort     model.ProjectSort    `json:"sort"`
}

type ProjectService struct {
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	policy   policy.Policy
	notifier Notifier
	logger   *slog.Logger
}

func NewProjectService(
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	pol policy.Policy,
	notifier Notifier,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects: projects,
		tasks:    tasks,
		policy:   pol,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns one page of the user's projects plus the filters and sort
// actually applied.
func (s *ProjectService) List(ctx context.Context, userID string, query validation.ListQuery) (ProjectListResult, error) {
	filters, sort, page, errs := query.Resolve()
	if err := errs.OrNil(); err != nil {
		return ProjectListResult{}, err
	}

	params := model.ProjectListParams{
		UserID:  userID,
		Filters: filters,
		Sort:    sort,
		Page:    page,
		PerPage: model.ProjectsPerPage,
	}
	projects, total, err := s.projects.List(ctx, params)
	if err != nil {
		return ProjectListResult{}, fmt.Errorf("failed to list projects: %w", err)
	}

	return ProjectListResult{
		Projects: model.NewProjectPage(projects, page, model.ProjectsPerPage, total),
		Filters:  filters,
		Sort:     sort,
	}, nil
}

func (s *ProjectService) Create(ctx context.Context, userID string, input validation.ProjectInput) (model.Project, error) {
	if err := input.Validate().OrNil(); err != nil {
		return model.Project{}, err
	}
	input = input.Normalize()

	created, err := s.projects.Create(ctx, model.Project{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		Status:      model.ProjectStatus(input.Status),
	})
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.InfoContext(ctx, "project created", "project_id", created.ID, "user_id", userID)
	s.notifier.Notify(ctx, broadcast.Created(created))
	return created, nil
}

// Get loads a project with its tasks and subtasks for the show (view) and
// edit (update) pages.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string, action policy.Action) (model.Project, error) {
	project, err := s.authorized(ctx, userID, projectID, action)
	if err != nil {
		return model.Project{}, err
	}

	tasks, err := s.tasks.ListByProject(ctx, project.ID)
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	project.Tasks = tasks
	return project, nil
}

// Update checks ownership before validating, so a non-owner learns nothing
// beyond Forbidden.
func (s *ProjectService) Update(ctx context.Context, userID, projectID string, input validation.ProjectInput) (model.Project, error) {
	existing, err := s.authorized(ctx, userID, projectID, policy.ActionUpdate)
	if err != nil {
		return model.Project{}, err
	}
	if err := input.Validate().OrNil(); err != nil {
		return model.Project{}, err
	}
	input = input.Normalize()

	existing.Name = input.Name
	existing.Description = input.Description
	existing.Status = model.ProjectStatus(input.Status)

	updated, err := s.projects.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, ErrNotFound
		}
		return model.Project{}, fmt.Errorf("failed to update project: %w", err)
	}

	s.logger.InfoContext(ctx, "project updated", "project_id", updated.ID, "user_id", userID)
	s.notifier.Notify(ctx, broadcast.Updated(updated))
	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	existing, err := s.authorized(ctx, userID, projectID, policy.ActionDelete)
	if err != nil {
		return err
	}

	// Captured before the row disappears.
	deleted := broadcast.Deleted(existing.ID, existing.UserID)

	if err := s.projects.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.InfoContext(ctx, "project deleted", "project_id", existing.ID, "user_id", userID)
	s.notifier.Notify(ctx, deleted)
	return nil
}

func (s *ProjectService) authorized(ctx context.Context, userID, projectID string, action policy.Action) (model.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, ErrNotFound
		}
		return model.Project{}, fmt.Errorf("failed to get project: %w", err)
	}

	if err := policy.Authorize(s.policy, userID, policy.ProjectResource(project), action); err != nil {
		s.logger.WarnContext(ctx, "project access denied",
			"project_id", projectID,
			"user_id", userID,
			"action", string(action),
		)
		return model.Project{}, err
	}
	return project, nil
}
