package interviews

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neuronai/neuronbot/internal/models"
)

type Repository interface {
	GetActive(ctx context.Context, externalUserID int64) (*models.InterviewSession, error)
	Create(ctx context.Context, session *models.InterviewSession) (*models.InterviewSession, error)
	CloseActive(ctx context.Context, externalUserID int64, closedAt time.Time) (bool, error)
	SaveAnswer(ctx context.Context, externalUserID int64, stage int, answer, nextQuestion string, voiceRef *string) error
	Complete(ctx context.Context, externalUserID int64, answer string, voiceRef *string, recommendation json.RawMessage, completedAt time.Time) error
}
