package dispatch

import (
	"context"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/logging"
	"github.com/neuronai/neuronbot/internal/telegram"
)

const errNotice = "😔 Произошла ошибка. Попробуйте позже."

// Sender is the outbound slice of the platform client the dispatcher needs.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyMarkup any) (*telegram.Message, error)
}

// HandlerFunc processes one inbound message. A returned error is logged and
// converted to a generic notice; it never escapes the dispatcher.
type HandlerFunc func(ctx context.Context, msg *telegram.Message) error

// Dispatcher routes messages: recognized commands go to their registered
// handler, free-form input goes to the handler registered for the user's
// current conversation marker.
type Dispatcher struct {
	gate    *Gate
	tracker *convstate.Tracker
	sender  Sender
	logger  logging.Logger

	byCommand map[Command]HandlerFunc
	byMarker  map[convstate.Marker]HandlerFunc
	fallback  HandlerFunc
}

func NewDispatcher(gate *Gate, tracker *convstate.Tracker, sender Sender, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		gate:      gate,
		tracker:   tracker,
		sender:    sender,
		logger:    logger.With("component", "dispatcher"),
		byCommand: make(map[Command]HandlerFunc),
		byMarker:  make(map[convstate.Marker]HandlerFunc),
	}
}

// Command registers the handler for a menu command.
func (d *Dispatcher) Command(cmd Command, h HandlerFunc) {
	d.byCommand[cmd] = h
}

// Marker registers the handler for free-form input in a conversation state.
func (d *Dispatcher) Marker(m convstate.Marker, h HandlerFunc) {
	d.byMarker[m] = h
}

// Fallback registers the handler for free-form input with no marker handler.
func (d *Dispatcher) Fallback(h HandlerFunc) {
	d.fallback = h
}

// HandleUpdate implements telegram.UpdateHandler. A panic or error in a flow
// handler is confined to this one message; other users' traffic is never
// affected.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd telegram.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "handler panicked", "user_id", msg.From.ID, "panic", r)
			d.notifyFailure(ctx, msg.Chat.ID)
		}
	}()

	cmd := ParseCommand(msg.Text)

	// The begin command must work for everyone, expired or not.
	if cmd != CmdStart {
		allowed, notice := d.gate.Check(ctx, msg.From.ID)
		if !allowed {
			if _, err := d.sender.SendMessage(ctx, msg.Chat.ID, notice, nil); err != nil {
				d.logger.Error(ctx, "denial notice failed", "user_id", msg.From.ID, "error", err)
			}
			return
		}
	}

	h := d.resolve(cmd, msg.From.ID)
	if h == nil {
		return
	}

	if err := h(ctx, msg); err != nil {
		d.logger.Error(ctx, "handler failed", "user_id", msg.From.ID, "command", int(cmd), "error", err)
		d.notifyFailure(ctx, msg.Chat.ID)
	}
}

func (d *Dispatcher) resolve(cmd Command, userID int64) HandlerFunc {
	if cmd != CmdNone {
		if h, ok := d.byCommand[cmd]; ok {
			return h
		}
		// Known button without a handler still must not leak into a flow
		// as free-form input.
		return nil
	}
	if h, ok := d.byMarker[d.tracker.Get(userID)]; ok {
		return h
	}
	return d.fallback
}

func (d *Dispatcher) notifyFailure(ctx context.Context, chatID int64) {
	if _, err := d.sender.SendMessage(ctx, chatID, errNotice, nil); err != nil {
		d.logger.Error(ctx, "failure notice failed", "chat_id", chatID, "error", err)
	}
}
