// Package interviews provides PostgreSQL-backed persistence for interview
// sessions. Rows are closed, never deleted; the partial unique index on
// (external_user_id) WHERE completed_at IS NULL backs the single-active
// invariant.
package interviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/dbx"
	"github.com/neuronai/neuronbot/internal/models"
)

const sessionColumns = `id, external_user_id, stage, q1, q2, q3, a1, a2, a3,
	voice_ref_1, voice_ref_2, voice_ref_3, recommendation, started_at, updated_at, completed_at`

// PostgresRepository implements interview storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanSession(row *sql.Row) (*models.InterviewSession, error) {
	s := &models.InterviewSession{}
	// database/sql cannot scan NULL into *json.RawMessage; go through []byte.
	var recommendation []byte
	err := row.Scan(
		&s.ID, &s.ExternalUserID, &s.Stage,
		&s.Q1, &s.Q2, &s.Q3,
		&s.A1, &s.A2, &s.A3,
		&s.VoiceRef1, &s.VoiceRef2, &s.VoiceRef3,
		&recommendation, &s.StartedAt, &s.UpdatedAt, &s.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Recommendation = recommendation
	return s, nil
}

// GetActive returns the user's open session (completed_at IS NULL), or
// common.ErrNotFound.
func (r *PostgresRepository) GetActive(ctx context.Context, externalUserID int64) (*models.InterviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM interview_sessions
		 WHERE external_user_id = $1 AND completed_at IS NULL
		 `

	return scanSession(r.db.QueryRowContext(ctx, query, externalUserID))
}

// Create inserts a new session at stage 0 with the first question set.
// The session id is assigned here when the caller left it empty.
func (r *PostgresRepository) Create(ctx context.Context, session *models.InterviewSession) (*models.InterviewSession, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO interview_sessions (id, external_user_id, stage, q1, started_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 RETURNING started_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		session.ID, session.ExternalUserID, session.Stage, session.Q1).Scan(&session.StartedAt, &session.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

// CloseActive marks the user's open session cancelled (stage -1) and stamps
// completed_at. Returns false when the user had no open session.
func (r *PostgresRepository) CloseActive(ctx context.Context, externalUserID int64, closedAt time.Time) (bool, error) {
	query :=
		`UPDATE interview_sessions
		 SET stage = $2, completed_at = $3, updated_at = $3
		 WHERE external_user_id = $1 AND completed_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, externalUserID, models.StageCancelled, closedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

// SaveAnswer persists one answered question on the open session. The stage
// argument is the collaborator-reported stage the session has moved to:
// stage 1 stores answer 1 and question 2, stage 2 stores answer 2 and
// question 3. Any other stage is a caller bug.
func (r *PostgresRepository) SaveAnswer(ctx context.Context, externalUserID int64, stage int, answer, nextQuestion string, voiceRef *string) error {
	var query string
	switch stage {
	case models.StageAwaitingQ2:
		query =
			`UPDATE interview_sessions
			 SET a1 = $2, q2 = $3, voice_ref_1 = $4, stage = $5, updated_at = now()
			 WHERE external_user_id = $1 AND completed_at IS NULL
			 `
	case models.StageAwaitingQ3:
		query =
			`UPDATE interview_sessions
			 SET a2 = $2, q3 = $3, voice_ref_2 = $4, stage = $5, updated_at = now()
			 WHERE external_user_id = $1 AND completed_at IS NULL
			 `
	default:
		return fmt.Errorf("unexpected stage %d", stage)
	}

	res, err := r.db.ExecContext(ctx, query, externalUserID, answer, nextQuestion, voiceRef, stage)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Complete stores the final answer plus the collaborator's recommendation
// verbatim, moves the session to stage 3 and stamps completed_at, all in one
// statement.
func (r *PostgresRepository) Complete(ctx context.Context, externalUserID int64, answer string, voiceRef *string, recommendation json.RawMessage, completedAt time.Time) error {
	query :=
		`UPDATE interview_sessions
		 SET a3 = $2, voice_ref_3 = $3, recommendation = $4, stage = $5, completed_at = $6, updated_at = $6
		 WHERE external_user_id = $1 AND completed_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query,
		externalUserID, answer, voiceRef, recommendation, models.StageCompleted, completedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
