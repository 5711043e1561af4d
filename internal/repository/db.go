package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// NewDB opens a Postgres pool and verifies connectivity.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ErrInvalidReference is returned when a write names a row that does not
// exist (foreign key violation).
var ErrInvalidReference = errors.New("invalid reference")

// classify maps Postgres error codes onto repository sentinels. A malformed
// id can name no row, so it reads as sql.ErrNoRows.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23503": // foreign_key_violation
		return fmt.Errorf("%s: %w", pqErr.Message, ErrInvalidReference)
	case "22P02": // invalid_text_representation, e.g. malformed uuid
		return fmt.Errorf("%s: %w", pqErr.Message, sql.ErrNoRows)
	}
	return err
}

type scannable interface {
	Scan(dest ...any) error
}
