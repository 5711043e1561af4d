package model

import "time"

type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusInProgress ProjectStatus = "in-progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPending, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	}
	return false
}

// ProjectStatuses lists the statuses in the order forms present them.
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{
		ProjectStatusPending,
		ProjectStatusInProgress,
		ProjectStatusCompleted,
	}
}

type Project struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Tasks       []Task        `json:"tasks,omitempty"`
}

type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Subtasks    []Subtask `json:"subtasks"`
}

type Subtask struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Description string    `json:"description"`
	IsDone      bool      `json:"is_done"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
