package telegram

import (
	"context"
	"time"

	"github.com/neuronai/neuronbot/internal/logging"
)

// UpdateHandler consumes one inbound update. Handlers must not panic; the
// dispatcher converts every failure into a user-facing message.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd Update)
}

const pollTimeout = 30 * time.Second

// Poller runs the getUpdates long-poll loop and hands each update to the
// handler in its own goroutine, one lightweight task per inbound message.
// The platform serializes delivery per chat, so per-user ordering is
// preserved by the poll loop itself.
type Poller struct {
	client  *Client
	handler UpdateHandler
	logger  logging.Logger
}

func NewPoller(client *Client, handler UpdateHandler, logger logging.Logger) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger.With("component", "poller"),
	}
}

// Run polls until ctx is cancelled. Poll failures back off briefly and the
// loop continues; a broken poll must not kill the bot.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64

	p.logger.Info(ctx, "starting long poll")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.client.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error(ctx, "getUpdates failed", "error", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go p.handler.HandleUpdate(ctx, upd)
		}
	}
}
