package repository

import (
	"context"

	"github.com/jaekwang-park/project-board/internal/model"
)

type UserRepository interface {
	GetOrCreate(ctx context.Context, cognitoSub, email string) (model.User, error)
	GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error)
}
