// Package policy holds capability checks of the form
// (user, resource, action) -> allow/deny.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jaekwang-park/project-board/internal/model"
)

// ErrForbidden is returned when a capability check denies an action.
var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Owned is implemented by any resource with a single owning user.
type Owned interface {
	OwnerID() string
}

// Policy decides whether a user may perform an action on a resource.
type Policy interface {
	Allows(userID string, resource Owned, action Action) bool
}

// OwnerPolicy grants the listed actions to the resource owner only.
type OwnerPolicy struct {
	actions map[Action]bool
}

// NewOwnerPolicy returns a policy granting the given actions to owners.
// With no actions it grants view, update and delete.
func NewOwnerPolicy(actions ...Action) *OwnerPolicy {
	if len(actions) == 0 {
		actions = []Action{ActionView, ActionUpdate, ActionDelete}
	}
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return &OwnerPolicy{actions: m}
}

func (p *OwnerPolicy) Allows(userID string, resource Owned, action Action) bool {
	if userID == "" || resource == nil {
		return false
	}
	return p.actions[action] && resource.OwnerID() == userID
}

// Authorize returns ErrForbidden unless policy allows the action.
func Authorize(p Policy, userID string, resource Owned, action Action) error {
	if !p.Allows(userID, resource, action) {
		return fmt.Errorf("%w: %s denied", ErrForbidden, action)
	}
	return nil
}

// ProjectResource adapts a project to Owned.
type ProjectResource model.Project

func (p ProjectResource) OwnerID() string { return p.UserID }

// CanSubscribe reports whether userID may listen on a private channel.
// Only users.<id> channels exist, and only their owner may join.
func CanSubscribe(userID, channel string) bool {
	id, ok := strings.CutPrefix(channel, "users.")
	return ok && userID != "" && id == userID
}
