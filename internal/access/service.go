// Package access implements the access ledger: one first-contact timestamp
// per user and a rolling access window computed from it. All timestamps are
// stored and compared in UTC.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/models"
	"github.com/neuronai/neuronbot/internal/repositories/repomanager"
)

// Info describes a user's access status for the admin surface.
type Info struct {
	ExternalID  int64          `json:"external_id"`
	FirstSeenAt time.Time      `json:"first_seen_at"`
	AccessUntil time.Time      `json:"access_until"`
	HasAccess   bool           `json:"has_access"`
	TimeLeft    *time.Duration `json:"time_left,omitempty"`
	ExpiredAgo  *time.Duration `json:"expired_ago,omitempty"`
}

// ExtendResult reports a bulk extension outcome per user id.
type ExtendResult struct {
	Success []int64 `json:"success"`
	Failed  []int64 `json:"failed"`
}

// Service owns the ledger logic over the users repository.
type Service struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	window time.Duration

	// now is a clock seam for window-boundary tests.
	now func() time.Time
}

// NewService constructs the ledger with the configured window duration.
func NewService(db *sql.DB, repos repomanager.RepositoryManager, window time.Duration) *Service {
	return &Service{
		db:     db,
		repos:  repos,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureStarted idempotently records a user's first contact. A repeat call
// returns the stored record unmodified; the first write wins. A zero
// observedAt falls back to the current time. Naive callers may pass any
// zone; the timestamp is normalized to UTC before storage.
func (s *Service) EnsureStarted(ctx context.Context, externalID int64, observedAt time.Time) (*models.User, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if observedAt.IsZero() {
		observedAt = s.now()
	}
	user = &models.User{ExternalID: externalID, FirstSeenAt: observedAt.UTC()}
	created, err := repo.Create(ctx, user)
	if err != nil {
		// A concurrent first contact may have won the unique index; the
		// stored record is the one that counts.
		if existing, getErr := repo.GetByExternalID(ctx, externalID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return created, nil
}

// CheckAccess reports whether the user's window is still open and when it
// closes. An unknown user is denied with a nil expiry; only store failures
// return an error (the gate decides fail-open on those). Pure read.
func (s *Service) CheckAccess(ctx context.Context, externalID int64) (bool, *time.Time, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	until := user.FirstSeenAt.UTC().Add(s.window)
	return s.now().Before(until), &until, nil
}

// ResetWindow restarts the user's window from now. Returns false when the
// user is unknown.
func (s *Service) ResetWindow(ctx context.Context, externalID int64) (bool, error) {
	ok, err := s.repos.Users(s.db).SetFirstSeen(ctx, externalID, s.now())
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return ok, nil
}

// ExtendMany resets the window for each id, reporting per-id outcome.
// Unknown ids land in Failed; a store failure aborts.
func (s *Service) ExtendMany(ctx context.Context, externalIDs []int64) (*ExtendResult, error) {
	result := &ExtendResult{Success: []int64{}, Failed: []int64{}}
	for _, id := range externalIDs {
		ok, err := s.ResetWindow(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			result.Success = append(result.Success, id)
		} else {
			result.Failed = append(result.Failed, id)
		}
	}
	return result, nil
}

// UserInfo returns the user's full access status, or common.ErrNotFound.
func (s *Service) UserInfo(ctx context.Context, externalID int64) (*Info, error) {
	user, err := s.repos.Users(s.db).GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	info := s.infoFor(user)
	return &info, nil
}

// ActiveUsers lists users whose window is still open.
func (s *Service) ActiveUsers(ctx context.Context) ([]Info, error) {
	return s.listUsers(ctx, true)
}

// ExpiredUsers lists users whose window has closed.
func (s *Service) ExpiredUsers(ctx context.Context) ([]Info, error) {
	return s.listUsers(ctx, false)
}

func (s *Service) listUsers(ctx context.Context, active bool) ([]Info, error) {
	all, err := s.repos.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	result := []Info{}
	for _, u := range all {
		info := s.infoFor(u)
		if info.HasAccess == active {
			result = append(result, info)
		}
	}
	return result, nil
}

func (s *Service) infoFor(user *models.User) Info {
	now := s.now()
	until := user.FirstSeenAt.UTC().Add(s.window)
	info := Info{
		ExternalID:  user.ExternalID,
		FirstSeenAt: user.FirstSeenAt.UTC(),
		AccessUntil: until,
		HasAccess:   now.Before(until),
	}
	if info.HasAccess {
		d := until.Sub(now)
		info.TimeLeft = &d
	} else {
		d := now.Sub(until)
		info.ExpiredAgo = &d
	}
	return info
}
