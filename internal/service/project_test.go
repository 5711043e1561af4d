package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/broadcast/broadcasttest"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/policy"
	"github.com/jaekwang-park/project-board/internal/repository/repositorytest"
	"github.com/jaekwang-park/project-board/internal/service"
	"github.com/jaekwang-park/project-board/internal/validation"
)

type fixture struct {
	svc      *service.ProjectService
	repo     *repositorytest.Projects
	rec      *broadcasttest.Recorder
	notifier *broadcast.Notifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositorytest.NewProjects()
	rec := &broadcasttest.Recorder{}
	notifier := broadcast.NewNotifier(rec, logger, nil, 16)
	t.Cleanup(func() { notifier.Close(context.Background()) })

	return &fixture{
		svc:      service.NewProjectService(repo, repo, policy.NewOwnerPolicy(), notifier, logger),
		repo:     repo,
		rec:      rec,
		notifier: notifier,
	}
}

// drain waits for queued notifications to be delivered.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.notifier.Close(ctx))
}

func TestProjectService_Create(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Create(context.Background(), "user-1", validation.ProjectInput{
		Name:        "  My New Awesome Project ",
		Description: "This is a detailed description.",
		Status:      "in-progress",
	})
	require.NoError(t, err)
	f.drain(t)

	stored, ok := f.repo.Snapshot(got.ID)
	require.True(t, ok)
	assert.Equal(t, "My New Awesome Project", stored.Name)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, model.ProjectStatusInProgress, stored.Status)

	created := f.rec.Named(broadcast.ProjectCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "My New Awesome Project", created[0].Project.Name)
	assert.Equal(t, "user-1", created[0].Project.UserID)
	assert.Equal(t, "users.user-1", created[0].Channel)
}

func TestProjectService_Create_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "user-1", validation.ProjectInput{
		Name:   "",
		Status: "invalid_status",
	})
	f.drain(t)

	require.ErrorIs(t, err, service.ErrInvalidInput)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"name", "status"}, verrs.Fields())
	assert.Equal(t, 0, f.repo.Count())
	assert.Empty(t, f.rec.All())
}

func TestProjectService_Create_RepoError(t *testing.T) {
	f := newFixture(t)
	f.repo.Err = errors.New("db down")

	_, err := f.svc.Create(context.Background(), "user-1", validation.ProjectInput{Name: "x", Status: "pending"})
	f.drain(t)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create project")
	assert.Empty(t, f.rec.All())
}

func TestProjectService_List_ScopedToUser(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 13; i++ {
		f.repo.Seed(model.Project{UserID: "user-1", Name: fmt.Sprintf("Mine %02d", i), Status: model.ProjectStatusPending})
	}
	for i := 0; i < 4; i++ {
		f.repo.Seed(model.Project{UserID: "user-2", Name: fmt.Sprintf("Theirs %d", i), Status: model.ProjectStatusPending})
	}

	for _, page := range []string{"1", "2"} {
		result, err := f.svc.List(context.Background(), "user-1", validation.ListQuery{Page: page})
		require.NoError(t, err)

		assert.LessOrEqual(t, len(result.Projects.Data), model.ProjectsPerPage)
		assert.Equal(t, 13, result.Projects.Total)
		for _, p := range result.Projects.Data {
			assert.Equal(t, "user-1", p.UserID)
		}
	}
}

func TestProjectService_List_FiltersAndSort(t *testing.T) {
	f := newFixture(t)
	f.repo.Seed(model.Project{UserID: "u", Name: "Beta launch", Status: model.ProjectStatusCompleted})
	f.repo.Seed(model.Project{UserID: "u", Name: "Alpha", Description: "LAUNCH prep", Status: model.ProjectStatusCompleted})
	f.repo.Seed(model.Project{UserID: "u", Name: "Gamma launch", Status: model.ProjectStatusPending})

	result, err := f.svc.List(context.Background(), "u", validation.ListQuery{
		Search:    "launch",
		Status:    "completed",
		Sort:      "name",
		Direction: "asc",
	})
	require.NoError(t, err)

	require.Len(t, result.Projects.Data, 2)
	assert.Equal(t, "Alpha", result.Projects.Data[0].Name)
	assert.Equal(t, "Beta launch", result.Projects.Data[1].Name)
	assert.Equal(t, model.ProjectFilters{Search: "launch", Status: model.ProjectStatusCompleted}, result.Filters)
	assert.Equal(t, model.ProjectSort{Field: model.SortByName, Direction: model.SortAsc}, result.Sort)
}

func TestProjectService_List_DefaultNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.repo.Seed(model.Project{UserID: "u", Name: "old"})
	f.repo.Seed(model.Project{UserID: "u", Name: "new"})

	result, err := f.svc.List(context.Background(), "u", validation.ListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Projects.Data, 2)
	assert.Equal(t, "new", result.Projects.Data[0].Name)
}

func TestProjectService_List_InvalidQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), "u", validation.ListQuery{Status: "archived"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestProjectService_Get(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "owner", Name: "Alpha", Status: model.ProjectStatusPending})
	f.repo.SeedTasks(p.ID, model.Task{
		ID: "t-1", ProjectID: p.ID, Name: "Design",
		Subtasks: []model.Subtask{{ID: "s-1", TaskID: "t-1", Description: "Sketch", IsDone: true}},
	})

	tests := []struct {
		name    string
		userID  string
		id      string
		action  policy.Action
		wantErr error
	}{
		{"owner show", "owner", p.ID, policy.ActionView, nil},
		{"owner edit", "owner", p.ID, policy.ActionUpdate, nil},
		{"stranger show", "other", p.ID, policy.ActionView, service.ErrForbidden},
		{"stranger edit", "other", p.ID, policy.ActionUpdate, service.ErrForbidden},
		{"missing", "owner", "nope", policy.ActionView, service.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Get(context.Background(), tt.userID, tt.id, tt.action)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got.ID)
				return
			}
			require.NoError(t, err)
			require.Len(t, got.Tasks, 1)
			require.Len(t, got.Tasks[0].Subtasks, 1)
			assert.True(t, got.Tasks[0].Subtasks[0].IsDone)
		})
	}
}

func TestProjectService_Update(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "owner", Name: "Before", Status: model.ProjectStatusPending})

	got, err := f.svc.Update(context.Background(), "owner", p.ID, validation.ProjectInput{
		Name:        "Updated Project Title",
		Description: "Updated description here.",
		Status:      "completed",
	})
	require.NoError(t, err)
	f.drain(t)

	assert.Equal(t, "Updated Project Title", got.Name)
	stored, _ := f.repo.Snapshot(p.ID)
	assert.Equal(t, model.ProjectStatusCompleted, stored.Status)
	assert.Equal(t, "owner", stored.UserID)

	updated := f.rec.Named(broadcast.ProjectUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, p.ID, updated[0].Project.ID)
	assert.Equal(t, model.ProjectStatusCompleted, updated[0].Project.Status)
	assert.Equal(t, "Updated description here.", updated[0].Project.Description)
}

func TestProjectService_Update_NotOwner(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "other", Name: "Theirs", Status: model.ProjectStatusPending})

	_, err := f.svc.Update(context.Background(), "intruder", p.ID, validation.ProjectInput{
		Name:   "Malicious Update Attempt",
		Status: "pending",
	})
	f.drain(t)

	require.ErrorIs(t, err, service.ErrForbidden)
	stored, _ := f.repo.Snapshot(p.ID)
	assert.Equal(t, p, stored)
	assert.Empty(t, f.rec.Named(broadcast.ProjectUpdated))
}

func TestProjectService_Update_NotOwnerWithInvalidInputIsForbidden(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "other", Name: "Theirs", Status: model.ProjectStatusPending})

	_, err := f.svc.Update(context.Background(), "intruder", p.ID, validation.ProjectInput{})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestProjectService_Update_Invalid(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "owner", Name: "Keep", Status: model.ProjectStatusPending})

	_, err := f.svc.Update(context.Background(), "owner", p.ID, validation.ProjectInput{Name: "", Status: "done"})
	f.drain(t)

	require.ErrorIs(t, err, service.ErrInvalidInput)
	stored, _ := f.repo.Snapshot(p.ID)
	assert.Equal(t, "Keep", stored.Name)
	assert.Empty(t, f.rec.All())
}

func TestProjectService_Delete(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "owner", Name: "Doomed"})

	require.NoError(t, f.svc.Delete(context.Background(), "owner", p.ID))

	// Delivered before Delete returned: no drain needed.
	deleted := f.rec.Named(broadcast.ProjectDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, &broadcast.DeletedPayload{ProjectID: p.ID, UserID: "owner"}, deleted[0].Deleted)
	assert.Nil(t, deleted[0].Project)

	_, ok := f.repo.Snapshot(p.ID)
	assert.False(t, ok)
}

func TestProjectService_Delete_NotOwner(t *testing.T) {
	f := newFixture(t)
	p := f.repo.Seed(model.Project{UserID: "other", Name: "Safe"})

	err := f.svc.Delete(context.Background(), "intruder", p.ID)
	f.drain(t)

	require.ErrorIs(t, err, service.ErrForbidden)
	_, ok := f.repo.Snapshot(p.ID)
	assert.True(t, ok)
	assert.Empty(t, f.rec.All())
}

func TestProjectService_Delete_Missing(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Delete(context.Background(), "owner", "ghost")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Empty(t, f.rec.All())
}
