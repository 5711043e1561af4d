package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jaekwang-park/project-board/internal/model"
)

const projectColumns = `id, user_id, name, description, status, created_at, updated_at`

type PostgresProjectRepository struct {
	db *sql.DB
}

func NewPostgresProject(db *sql.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db}
}

func (r *PostgresProjectRepository) Create(ctx context.Context, project model.Project) (model.Project, error) {
	query := `
		INSERT INTO projects (user_id, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + projectColumns

	row := r.db.QueryRowContext(ctx, query,
		project.UserID, project.Name, project.Description, project.Status,
	)

	created, err := scanProject(row)
	if err != nil {
		return model.Project{}, classify(err)
	}
	return created, nil
}

func (r *PostgresProjectRepository) GetByID(ctx context.Context, projectID string) (model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, projectID))
	if err != nil {
		return model.Project{}, classify(err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) Update(ctx context.Context, project model.Project) (model.Project, error) {
	query := `
		UPDATE projects
		SET name = $1, description = $2, status = $3, updated_at = now()
		WHERE id = $4 AND user_id = $5
		RETURNING ` + projectColumns

	row := r.db.QueryRowContext(ctx, query,
		project.Name, project.Description, project.Status, project.ID, project.UserID,
	)

	updated, err := scanProject(row)
	if err != nil {
		return model.Project{}, classify(err)
	}
	return updated, nil
}

// Delete removes the project; tasks and subtasks go with it via ON DELETE CASCADE.
func (r *PostgresProjectRepository) Delete(ctx context.Context, projectID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", classify(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresProjectRepository) List(ctx context.Context, params model.ProjectListParams) ([]model.Project, int, error) {
	where, args := buildProjectFilter(params)

	var total int
	countQuery := `SELECT count(*) FROM projects WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}
	if total == 0 {
		return []model.Project{}, 0, nil
	}

	perPage := params.PerPage
	if perPage <= 0 {
		perPage = model.ProjectsPerPage
	}

	query := fmt.Sprintf(`SELECT %s FROM projects WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		projectColumns, where, orderBy(params.Sort), len(args)+1, len(args)+2)
	args = append(args, perPage, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, total, nil
}

// buildProjectFilter returns the WHERE clause (always scoped to the user)
// and its positional arguments.
func buildProjectFilter(params model.ProjectListParams) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{params.UserID}

	if params.Filters.Search != "" {
		args = append(args, "%"+escapeLike(params.Filters.Search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if params.Filters.Status != "" {
		args = append(args, string(params.Filters.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// orderBy renders a whitelisted ORDER BY clause. Unknown values fall back
// to newest first. id breaks ties so pages are stable.
func orderBy(s model.ProjectSort) string {
	field := model.SortByCreatedAt
	if s.Field.IsValid() {
		field = s.Field
	}
	dir := "DESC"
	if s.Direction == model.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", field, dir, dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanProject(row scannable) (model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to scan project: %w", err)
	}
	return p, nil
}

var _ ProjectRepository = (*PostgresProjectRepository)(nil)
