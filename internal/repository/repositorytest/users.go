package repositorytest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/repository"
)

// Users is an in-memory UserRepository keyed by Cognito sub.
type Users struct {
	mu    sync.Mutex
	seq   int
	bySub map[string]model.User
}

func NewUsers() *Users {
	return &Users{bySub: make(map[string]model.User)}
}

func (r *Users) GetOrCreate(ctx context.Context, cognitoSub, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.bySub[cognitoSub]; ok {
		return u, nil
	}
	r.seq++
	u := model.User{ID: fmt.Sprintf("user-%d", r.seq), CognitoSub: cognitoSub, Email: email}
	r.bySub[cognitoSub] = u
	return u, nil
}

func (r *Users) GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.bySub[cognitoSub]
	if !ok {
		return model.User{}, fmt.Errorf("failed to scan user: %w", sql.ErrNoRows)
	}
	return u, nil
}

var _ repository.UserRepository = (*Users)(nil)
