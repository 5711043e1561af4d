// Package broadcast publishes project change notifications on private
// per-user channels and fans them out to stream subscribers.
package broadcast

import (
	"time"

	"github.com/google/uuid"

	"github.com/jaekwang-park/project-board/internal/model"
)

// Name identifies a notification kind. Subscribers dispatch on it.
type Name string

const (
	ProjectCreated Name = "ProjectCreated"
	ProjectUpdated Name = "ProjectUpdated"
	ProjectDeleted Name = "ProjectDeleted"
)

// DeletedPayload is all a ProjectDeleted notification carries; the
// record no longer exists when it is delivered.
type DeletedPayload struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
}

type Notification struct {
	ID         string          `json:"id"`
	Name       Name            `json:"name"`
	Channel    string          `json:"channel"`
	Project    *model.Project  `json:"project,omitempty"`
	Deleted    *DeletedPayload `json:"deleted,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func Created(p model.Project) Notification {
	return withProject(ProjectCreated, p)
}

func Updated(p model.Project) Notification {
	return withProject(ProjectUpdated, p)
}

func Deleted(projectID, userID string) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Name:       ProjectDeleted,
		Channel:    model.UserChannel(userID),
		Deleted:    &DeletedPayload{ProjectID: projectID, UserID: userID},
		OccurredAt: time.Now().UTC(),
	}
}

func withProject(name Name, p model.Project) Notification {
	// Tasks are not part of the broadcast payload.
	p.Tasks = nil
	return Notification{
		ID:         uuid.NewString(),
		Name:       name,
		Channel:    model.UserChannel(p.UserID),
		Project:    &p,
		OccurredAt: time.Now().UTC(),
	}
}

// Immediate reports whether the notification must be delivered before
// the mutating request returns.
func (n Notification) Immediate() bool {
	return n.Name == ProjectDeleted
}

// ProjectID returns the id of the affected project for any kind.
func (n Notification) ProjectID() string {
	switch {
	case n.Project != nil:
		return n.Project.ID
	case n.Deleted != nil:
		return n.Deleted.ProjectID
	}
	return ""
}
