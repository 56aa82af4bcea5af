package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/telegram"
)

type fakeSender struct {
	sent []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup any) (*telegram.Message, error) {
	f.sent = append(f.sent, text)
	return &telegram.Message{MessageID: 1}, nil
}

func message(userID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			From: &telegram.User{ID: userID},
			Chat: telegram.Chat{ID: userID},
			Text: text,
		},
	}
}

func newDispatcher(access AccessChecker) (*Dispatcher, *fakeSender, *convstate.Tracker) {
	sender := &fakeSender{}
	tracker := convstate.NewTracker()
	gate := NewGate(access, "UTC", testLogger())
	return NewDispatcher(gate, tracker, sender, testLogger()), sender, tracker
}

func activeAccess() AccessChecker {
	until := time.Now().UTC().Add(time.Hour)
	return &fakeAccess{ok: true, until: &until}
}

func TestDispatchByCommand(t *testing.T) {
	d, _, _ := newDispatcher(activeAccess())

	var got *telegram.Message
	d.Command(CmdHRMenu, func(ctx context.Context, msg *telegram.Message) error {
		got = msg
		return nil
	})

	d.HandleUpdate(context.Background(), message(42, BtnHRMenu))
	if got == nil || got.From.ID != 42 {
		t.Fatalf("command handler not invoked: %+v", got)
	}
}

func TestDispatchByMarker(t *testing.T) {
	d, _, tracker := newDispatcher(activeAccess())
	tracker.Set(42, convstate.MarkerInterview)

	var handled string
	d.Marker(convstate.MarkerInterview, func(ctx context.Context, msg *telegram.Message) error {
		handled = msg.Text
		return nil
	})

	d.HandleUpdate(context.Background(), message(42, "мой ответ"))
	if handled != "мой ответ" {
		t.Fatalf("marker handler not invoked, got %q", handled)
	}
}

func TestDispatchKnownButtonNeverReachesMarkerHandler(t *testing.T) {
	d, _, tracker := newDispatcher(activeAccess())
	tracker.Set(42, convstate.MarkerInterview)

	handled := false
	d.Marker(convstate.MarkerInterview, func(ctx context.Context, msg *telegram.Message) error {
		handled = true
		return nil
	})

	// A menu button with no registered command handler is dropped, not
	// forwarded as interview input.
	d.HandleUpdate(context.Background(), message(42, BtnSmartTicket))
	if handled {
		t.Fatal("button text leaked into the marker handler")
	}
}

func TestDispatchDeniedUserShortCircuits(t *testing.T) {
	until := time.Now().UTC().Add(-time.Hour)
	d, sender, _ := newDispatcher(&fakeAccess{ok: false, until: &until})

	handled := false
	d.Command(CmdHRMenu, func(ctx context.Context, msg *telegram.Message) error {
		handled = true
		return nil
	})

	d.HandleUpdate(context.Background(), message(42, BtnHRMenu))
	if handled {
		t.Fatal("flow handler must not run for a denied user")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("want one denial notice, got %v", sender.sent)
	}
}

func TestDispatchStartBypassesGate(t *testing.T) {
	until := time.Now().UTC().Add(-time.Hour)
	d, _, _ := newDispatcher(&fakeAccess{ok: false, until: &until})

	handled := false
	d.Command(CmdStart, func(ctx context.Context, msg *telegram.Message) error {
		handled = true
		return nil
	})

	d.HandleUpdate(context.Background(), message(42, "/start"))
	if !handled {
		t.Fatal("/start must bypass the access gate")
	}
}

func TestDispatchGateFailOpen(t *testing.T) {
	d, _, _ := newDispatcher(&fakeAccess{err: common.ErrStoreUnavailable})

	handled := false
	d.Command(CmdHRMenu, func(ctx context.Context, msg *telegram.Message) error {
		handled = true
		return nil
	})

	d.HandleUpdate(context.Background(), message(42, BtnHRMenu))
	if !handled {
		t.Fatal("store failure in the gate must not block dispatch")
	}
}

func TestDispatchHandlerErrorBecomesNotice(t *testing.T) {
	d, sender, _ := newDispatcher(activeAccess())

	d.Command(CmdHRMenu, func(ctx context.Context, msg *telegram.Message) error {
		return errors.New("boom")
	})

	d.HandleUpdate(context.Background(), message(42, BtnHRMenu))
	if len(sender.sent) != 1 || sender.sent[0] != errNotice {
		t.Fatalf("want generic failure notice, got %v", sender.sent)
	}
}

func TestDispatchHandlerPanicIsContained(t *testing.T) {
	d, sender, _ := newDispatcher(activeAccess())

	d.Command(CmdHRMenu, func(ctx context.Context, msg *telegram.Message) error {
		panic("boom")
	})

	d.HandleUpdate(context.Background(), message(42, BtnHRMenu))
	if len(sender.sent) != 1 || sender.sent[0] != errNotice {
		t.Fatalf("want generic failure notice after panic, got %v", sender.sent)
	}
}

func TestDispatchIgnoresNonMessageUpdates(t *testing.T) {
	d, sender, _ := newDispatcher(activeAccess())
	d.HandleUpdate(context.Background(), telegram.Update{UpdateID: 5})
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be sent, got %v", sender.sent)
	}
}
