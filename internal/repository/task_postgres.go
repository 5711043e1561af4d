package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/jaekwang-park/project-board/internal/model"
)

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTask(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	query := `
		SELECT id, project_id, name, description, created_at, updated_at
		FROM tasks
		WHERE project_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Subtasks = []model.Subtask{}
		index[t.ID] = len(tasks)
		ids = append(ids, t.ID)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	subtasks, err := r.listSubtasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range subtasks {
		if i, ok := index[s.TaskID]; ok {
			tasks[i].Subtasks = append(tasks[i].Subtasks, s)
		}
	}

	return tasks, nil
}

func (r *PostgresTaskRepository) listSubtasks(ctx context.Context, taskIDs []string) ([]model.Subtask, error) {
	query := `
		SELECT id, task_id, description, is_done, created_at, updated_at
		FROM subtasks
		WHERE task_id = ANY($1)
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(taskIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []model.Subtask
	for rows.Next() {
		var s model.Subtask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Description, &s.IsDone, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		subtasks = append(subtasks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subtasks: %w", err)
	}
	return subtasks, nil
}

var _ TaskRepository = (*PostgresTaskRepository)(nil)
