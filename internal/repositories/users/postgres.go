// Package users provides PostgreSQL-backed persistence for the access
// ledger: one row per platform user, keyed by the platform's numeric id.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/dbx"
	"github.com/neuronai/neuronbot/internal/models"
)

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a user row. FirstSeenAt is stored as passed; callers must
// normalize to UTC. The unique index on external_user_id makes a duplicate
// insert fail rather than overwrite the original first-contact timestamp.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (external_user_id, first_seen_at)
		 VALUES ($1, $2)
		 RETURNING id, first_seen_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ExternalID, user.FirstSeenAt).Scan(&user.ID, &user.FirstSeenAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByExternalID returns the user with the given platform id, or
// common.ErrNotFound.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	query :=
		`SELECT id, external_user_id, first_seen_at FROM users
		 WHERE external_user_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(&user.ID, &user.ExternalID, &user.FirstSeenAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// SetFirstSeen rewrites the first-contact timestamp, restarting the access
// window. Returns false when no such user exists.
func (r *PostgresRepository) SetFirstSeen(ctx context.Context, externalID int64, firstSeen time.Time) (bool, error) {
	query :=
		`UPDATE users SET first_seen_at = $2
		 WHERE external_user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, externalID, firstSeen)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

// List returns every user row; callers partition into active/expired.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query :=
		`SELECT id, external_user_id, first_seen_at FROM users
		 ORDER BY first_seen_at
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		var item models.User
		if err := rows.Scan(&item.ID, &item.ExternalID, &item.FirstSeenAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
