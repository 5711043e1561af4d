package policy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/policy"
)

func TestOwnerPolicy_Allows(t *testing.T) {
	project := policy.ProjectResource(model.Project{ID: "p-1", UserID: "owner"})
	p := policy.NewOwnerPolicy()

	tests := []struct {
		name   string
		userID string
		action policy.Action
		want   bool
	}{
		{"owner view", "owner", policy.ActionView, true},
		{"owner update", "owner", policy.ActionUpdate, true},
		{"owner delete", "owner", policy.ActionDelete, true},
		{"stranger view", "other", policy.ActionView, false},
		{"stranger update", "other", policy.ActionUpdate, false},
		{"stranger delete", "other", policy.ActionDelete, false},
		{"anonymous", "", policy.ActionView, false},
		{"unknown action", "owner", policy.Action("archive"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allows(tt.userID, project, tt.action))
		})
	}
}

func TestOwnerPolicy_RestrictedActions(t *testing.T) {
	readOnly := policy.NewOwnerPolicy(policy.ActionView)
	project := policy.ProjectResource(model.Project{UserID: "owner"})

	assert.True(t, readOnly.Allows("owner", project, policy.ActionView))
	assert.False(t, readOnly.Allows("owner", project, policy.ActionDelete))
}

func TestOwnerPolicy_NilResource(t *testing.T) {
	assert.False(t, policy.NewOwnerPolicy().Allows("owner", nil, policy.ActionView))
}

func TestAuthorize(t *testing.T) {
	p := policy.NewOwnerPolicy()
	project := policy.ProjectResource(model.Project{UserID: "owner"})

	require.NoError(t, policy.Authorize(p, "owner", project, policy.ActionUpdate))

	err := policy.Authorize(p, "intruder", project, policy.ActionUpdate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, policy.ErrForbidden))
}

func TestCanSubscribe(t *testing.T) {
	tests := []struct {
		userID  string
		channel string
		want    bool
	}{
		{"7", "users.7", true},
		{"7", "users.8", false},
		{"7", "users.77", false},
		{"", "users.", false},
		{"7", "App.Models.User.7", false},
		{"7", "projects.7", false},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanSubscribe(tt.userID, tt.channel))
		})
	}
}
