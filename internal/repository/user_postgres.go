package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jaekwang-park/project-board/internal/model"
)

const userColumns = `id, cognito_sub, email, nickname, created_at, updated_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUser(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetOrCreate records a user on first login and refreshes the email on later ones.
func (r *PostgresUserRepository) GetOrCreate(ctx context.Context, cognitoSub, email string) (model.User, error) {
	query := `
		INSERT INTO users (cognito_sub, email)
		VALUES ($1, $2)
		ON CONFLICT (cognito_sub) DO UPDATE SET email = EXCLUDED.email, updated_at = now()
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, cognitoSub, email))
}

func (r *PostgresUserRepository) GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE cognito_sub = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, cognitoSub))
}

func scanUser(row scannable) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.CognitoSub, &u.Email, &u.Nickname, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
