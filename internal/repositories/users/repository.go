package users

import (
	"context"
	"time"

	"github.com/neuronai/neuronbot/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.User, error)
	SetFirstSeen(ctx context.Context, externalID int64, firstSeen time.Time) (bool, error)
	List(ctx context.Context) ([]*models.User, error)
}
