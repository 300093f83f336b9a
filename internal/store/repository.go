/**
 * @description
 * This file implements the data access layer for the subscribe service.
 * It contains the SQL for the subscribers table and the sentinel errors the
 * application layer uses to classify storage failures.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// ErrSubscriberExists is returned when the email is already stored.
var ErrSubscriberExists = errors.New("subscriber already exists")

// DBTX is the subset of *pgxpool.Pool the repositories need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles database operations for subscribers.
type Repository struct {
	db DBTX
}

// NewRepository creates a new repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// CreateSubscriber inserts a new subscriber. The unique constraint on email is
// the only guard against duplicates, so concurrent inserts for the same address
// resolve to exactly one success and ErrSubscriberExists for the rest.
func (r *Repository) CreateSubscriber(ctx context.Context, email string) (*domain.Subscriber, error) {
	query := `
        INSERT INTO subscribers (id, email)
        VALUES ($1, $2)
        RETURNING id, email, created_at
    `
	var sub domain.Subscriber
	err := r.db.QueryRow(ctx, query, uuid.NewString(), email).Scan(
		&sub.ID,
		&sub.Email,
		&sub.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSubscriberExists
		}
		return nil, fmt.Errorf("insert subscriber: %w", err)
	}
	return &sub, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
