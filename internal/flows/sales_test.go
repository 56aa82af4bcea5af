package flows

import (
	"context"
	"strings"
	"testing"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/n8n"
	"github.com/neuronai/neuronbot/internal/telegram"
)

func TestSalesFormFullRun(t *testing.T) {
	fx := newFixture()
	fx.collab.resp = &n8n.Response{Answer: "Бот под ключ: 120 000 руб."}
	ctx := context.Background()

	if err := fx.flows.handleSalesQuoteStart(ctx, textMessage(42, "")); err != nil {
		t.Fatalf("quote start: %v", err)
	}
	if fx.tracker.Get(42) != convstate.MarkerSalesNiche {
		t.Fatalf("want niche step, got %s", fx.tracker.Get(42))
	}

	if err := fx.flows.handleSalesNiche(ctx, textMessage(42, "стоматология")); err != nil {
		t.Fatalf("niche: %v", err)
	}
	if err := fx.flows.handleSalesTask(ctx, textMessage(42, "бот записи на прием")); err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := fx.flows.handleSalesBudget(ctx, textMessage(42, "до 50 000 руб")); err != nil {
		t.Fatalf("budget: %v", err)
	}
	if fx.tracker.Get(42) != convstate.MarkerSalesContact {
		t.Fatalf("want contact step, got %s", fx.tracker.Get(42))
	}

	if err := fx.flows.handleSalesContact(ctx, textMessage(42, "@alice")); err != nil {
		t.Fatalf("contact: %v", err)
	}

	if len(fx.collab.calls) != 1 || fx.collab.calls[0].url != "http://n8n/sales" {
		t.Fatalf("sales submission missing: %+v", fx.collab.calls)
	}
	payload := fx.collab.calls[0].payload.(map[string]any)
	if payload["niche"] != "стоматология" || payload["task"] != "бот записи на прием" ||
		payload["budget"] != "до 50 000 руб" || payload["contact"] != "@alice" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if !strings.Contains(fx.bot.lastText(t), "120 000 руб") {
		t.Fatalf("proposal not relayed: %q", fx.bot.lastText(t))
	}
	if len(fx.bot.deleted) != 1 {
		t.Fatalf("placeholder must be deleted, got %v", fx.bot.deleted)
	}
	if fx.tracker.Get(42) != convstate.MarkerSalesMenu {
		t.Fatalf("want sales menu after submission, got %s", fx.tracker.Get(42))
	}

	fx.flows.mu.Lock()
	_, ok := fx.flows.drafts[42]
	fx.flows.mu.Unlock()
	if ok {
		t.Fatal("draft must be discarded after submission")
	}
}

func TestSalesContactFromButton(t *testing.T) {
	fx := newFixture()
	fx.tracker.Set(42, convstate.MarkerSalesContact)
	fx.flows.draft(42).Niche = "ритейл"

	msg := textMessage(42, "")
	msg.Contact = &telegram.Contact{PhoneNumber: "+79990000000", FirstName: "Алиса"}

	if err := fx.flows.handleSalesContact(context.Background(), msg); err != nil {
		t.Fatalf("contact: %v", err)
	}
	payload := fx.collab.calls[0].payload.(map[string]any)
	if payload["contact"] != "+79990000000 (Алиса)" {
		t.Fatalf("unexpected contact: %+v", payload)
	}
}

func TestManagerRelayText(t *testing.T) {
	fx := newFixture()
	fx.tracker.Set(42, convstate.MarkerManagerContact)

	if err := fx.flows.handleManagerRelay(context.Background(), textMessage(42, "нужна помощь")); err != nil {
		t.Fatalf("relay: %v", err)
	}

	if len(fx.bot.sent) != 2 {
		t.Fatalf("want relay + confirmation, got %d messages", len(fx.bot.sent))
	}
	relay := fx.bot.sent[0]
	if relay.chatID != 999 || !strings.Contains(relay.text, "нужна помощь") || !strings.Contains(relay.text, "ID:</b> 42") {
		t.Fatalf("unexpected relay: %+v", relay)
	}
	if fx.tracker.Get(42) != convstate.MarkerMainMenu {
		t.Fatalf("relay must reset state, got %s", fx.tracker.Get(42))
	}
}

func TestManagerRelayPhoto(t *testing.T) {
	fx := newFixture()
	fx.tracker.Set(42, convstate.MarkerManagerContact)

	msg := textMessage(42, "")
	msg.Photo = []telegram.PhotoSize{{FileID: "small"}, {FileID: "big"}}

	if err := fx.flows.handleManagerRelay(context.Background(), msg); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if len(fx.bot.forwarded) != 1 || fx.bot.forwarded[0] != "photo:big" {
		t.Fatalf("largest photo must be forwarded, got %v", fx.bot.forwarded)
	}
}

func TestKnowledgeSearch(t *testing.T) {
	fx := newFixture()
	fx.tracker.Set(42, convstate.MarkerKnowledgeMenu)
	fx.collab.resp = &n8n.Response{Result: "Отпуск оформляется через портал."}

	if err := fx.flows.handleSearchAnswerInput(context.Background(), textMessage(42, "как оформить отпуск?")); err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(fx.collab.calls) != 1 || fx.collab.calls[0].url != "http://n8n/knowledge" {
		t.Fatalf("knowledge query missing: %+v", fx.collab.calls)
	}
	if !strings.Contains(fx.bot.lastText(t), "через портал") {
		t.Fatalf("answer not relayed: %q", fx.bot.lastText(t))
	}
	if fx.tracker.Get(42) != convstate.MarkerKnowledgeMenu {
		t.Fatal("user must stay in the knowledge section")
	}
}
