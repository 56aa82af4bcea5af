// Package interview drives the interview flow state machine: NONE →
// stage 0 → 1 → 2 → 3 (completed) or -1 (cancelled). The collaborator's
// reported stage is authoritative for progress; the local store follows it
// rather than counting answers itself, so a collaborator-side retry can
// never desynchronize the session.
package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/dbx"
	"github.com/neuronai/neuronbot/internal/logging"
	"github.com/neuronai/neuronbot/internal/models"
	"github.com/neuronai/neuronbot/internal/n8n"
	"github.com/neuronai/neuronbot/internal/repositories/repomanager"
)

// Fallbacks for collaborator responses that are valid JSON but miss the
// expected fields. A parse-level failure is an error; a missing question is
// papered over so the user is never shown an internal fault.
const (
	defaultFirstQuestion = "Расскажите о себе и вашем опыте в продажах."
	defaultNextQuestion  = "Продолжайте, пожалуйста."
)

const questionCount = 3

// Collaborator is the slice of the n8n client the orchestrator needs.
type Collaborator interface {
	Call(ctx context.Context, url string, payload any) (*n8n.Response, error)
}

// StartResult carries the first question of a freshly created session.
type StartResult struct {
	Question string
}

// AnswerResult reports what a saved answer led to: either the next question
// (with its 1-based display number) or the final result text.
type AnswerResult struct {
	Done        bool
	Question    string
	QuestionNum int
	Result      string
}

// Answer is one user reply, text or voice.
type Answer struct {
	Kind        string // n8n.KindText or n8n.KindVoice
	Text        string
	VoiceFileID string
	Duration    int
}

// Service orchestrates interview sessions against the store and the
// collaborator.
type Service struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	collab     Collaborator
	webhookURL string
	logger     logging.Logger

	now func() time.Time
}

// NewService constructs the orchestrator.
func NewService(db *sql.DB, repos repomanager.RepositoryManager, collab Collaborator, webhookURL string, logger logging.Logger) *Service {
	return &Service{
		db:         db,
		repos:      repos,
		collab:     collab,
		webhookURL: webhookURL,
		logger:     logger.With("component", "interview"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// IsActive reports whether the user has an open session.
func (s *Service) IsActive(ctx context.Context, userID int64) (bool, error) {
	_, err := s.repos.Interviews(s.db).GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return true, nil
}

// Start asks the collaborator for the first question and creates the
// session at stage 0. On collaborator failure no session is created. Any
// prior open session is closed out (stage -1) in the same transaction that
// creates the new one, so duplicate start triggers can never leave two open
// rows.
func (s *Service) Start(ctx context.Context, userID, chatID int64, username, fullName string) (*StartResult, error) {
	resp, err := s.collab.Call(ctx, s.webhookURL, n8n.Request{
		Action:   "start",
		UserID:   userID,
		ChatID:   chatID,
		Username: username,
		FullName: fullName,
	})
	if err != nil {
		return nil, err
	}

	question := resp.Question
	if question == "" {
		s.logger.Warn(ctx, "collaborator start response missing question, using fallback", "user_id", userID)
		question = defaultFirstQuestion
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Interviews(tx)
		if _, err := repo.CloseActive(ctx, userID, s.now()); err != nil {
			return err
		}
		session := &models.InterviewSession{
			ExternalUserID: userID,
			Stage:          models.StageAwaitingQ1,
			Q1:             sql.NullString{String: question, Valid: true},
		}
		_, err := repo.Create(ctx, session)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return &StartResult{Question: question}, nil
}

// SubmitAnswer relays one answer to the collaborator and persists the stage
// transition it reports. With no open session the call is a silent no-op
// returning (nil, nil): a late message racing a state reset must not error
// and must not create a session. Collaborator failures leave the session
// untouched.
func (s *Service) SubmitAnswer(ctx context.Context, userID, chatID int64, answer Answer) (*AnswerResult, error) {
	repo := s.repos.Interviews(s.db)

	if _, err := repo.GetActive(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Debug(ctx, "answer without active session ignored", "user_id", userID)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	resp, err := s.collab.Call(ctx, s.webhookURL, n8n.Request{
		Action:      "answer",
		UserID:      userID,
		ChatID:      chatID,
		Type:        answer.Kind,
		Text:        answer.Text,
		VoiceFileID: answer.VoiceFileID,
		Duration:    answer.Duration,
	})
	if err != nil {
		return nil, err
	}

	var voiceRef *string
	if resp.VoiceFileID != "" {
		voiceRef = &resp.VoiceFileID
	}

	if resp.Done {
		if err := repo.Complete(ctx, userID, resp.Answer, voiceRef, resp.Recommendation, s.now()); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// The session vanished between the check and the write.
				s.logger.Warn(ctx, "completion for missing session ignored", "user_id", userID)
				return &AnswerResult{Done: true, Result: resp.Result}, nil
			}
			return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
		return &AnswerResult{Done: true, Result: resp.Result}, nil
	}

	question := resp.Question
	if question == "" {
		s.logger.Warn(ctx, "collaborator answer response missing question, using fallback", "user_id", userID)
		question = defaultNextQuestion
	}

	switch resp.Stage {
	case models.StageAwaitingQ2, models.StageAwaitingQ3:
		if err := repo.SaveAnswer(ctx, userID, resp.Stage, resp.Answer, question, voiceRef); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				s.logger.Warn(ctx, "answer for missing session ignored", "user_id", userID, "stage", resp.Stage)
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
	default:
		// The collaborator reported a stage the machine has no transition
		// for; keep the conversation going but persist nothing.
		s.logger.Warn(ctx, "unexpected collaborator stage", "user_id", userID, "stage", resp.Stage)
	}

	num := resp.Stage + 1
	if num < 1 || num > questionCount {
		num = questionCount
	}
	return &AnswerResult{Question: question, QuestionNum: num}, nil
}

// Cancel closes the user's open session (stage -1). The collaborator is
// notified best-effort: local cancellation commits regardless of whether
// the notification succeeds. Returns false when there was nothing to
// cancel.
func (s *Service) Cancel(ctx context.Context, userID int64) (bool, error) {
	repo := s.repos.Interviews(s.db)

	if _, err := repo.GetActive(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if _, err := s.collab.Call(ctx, s.webhookURL, n8n.Request{Action: "cancel", UserID: userID}); err != nil {
		s.logger.Warn(ctx, "cancel notification failed", "user_id", userID, "error", err)
	}

	ok, err := repo.CloseActive(ctx, userID, s.now())
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return ok, nil
}
