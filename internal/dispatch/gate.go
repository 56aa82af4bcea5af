package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/neuronai/neuronbot/internal/logging"
)

// AccessChecker is the slice of the access ledger the gate consults.
type AccessChecker interface {
	CheckAccess(ctx context.Context, externalID int64) (bool, *time.Time, error)
}

// Gate enforces the rolling access window on every inbound message except
// the begin command. Store failures fail OPEN: the bot staying responsive
// outranks strict enforcement during an outage.
type Gate struct {
	access  AccessChecker
	display *time.Location
	logger  logging.Logger
}

// NewGate builds the gate. displayTZ names the zone for expiry notices;
// an unloadable zone falls back to UTC.
func NewGate(access AccessChecker, displayTZ string, logger logging.Logger) *Gate {
	loc, err := time.LoadLocation(displayTZ)
	if err != nil {
		logger.Warn(context.Background(), "display timezone not found, using UTC", "tz", displayTZ)
		loc = time.UTC
	}
	return &Gate{access: access, display: loc, logger: logger.With("component", "gate")}
}

// Check decides whether the message may proceed. When denied it returns the
// notice to send instead of dispatching.
func (g *Gate) Check(ctx context.Context, userID int64) (allowed bool, notice string) {
	ok, until, err := g.access.CheckAccess(ctx, userID)
	if err != nil {
		g.logger.Error(ctx, "access check failed, letting message through", "user_id", userID, "error", err)
		return true, ""
	}
	if ok {
		return true, ""
	}

	if until == nil {
		// No ledger entry at all. Every user passes through /start first, so
		// this is worth a diagnostic line.
		g.logger.Warn(ctx, "message from user without ledger entry", "user_id", userID)
		return false, "Нажмите /start, чтобы начать работу с ботом."
	}

	return false, fmt.Sprintf(
		"⛔ <b>Доступ истек</b>\n\nВаш пробный период закончился %s.\nДля продления доступа свяжитесь с администратором.",
		until.In(g.display).Format("02.01.2006 15:04"),
	)
}
