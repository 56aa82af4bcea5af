package flows

import (
	"context"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/telegram"
)

func helpdeskKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{dispatch.BtnAIEye},
		[]string{dispatch.BtnInstantAction},
		[]string{dispatch.BtnSmartTicket},
		[]string{dispatch.BtnHowToConnect},
		[]string{dispatch.BtnBack},
	)
}

func (f *Flows) handleHelpdeskMenu(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerHelpdeskMenu)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Это раздел IT Поддержки", helpdeskKeyboard())
	return err
}

func (f *Flows) handleAIEye(ctx context.Context, msg *telegram.Message) error {
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "🔍 AI-Глаз: функционал в разработке", nil)
	return err
}

func (f *Flows) handleInstantAction(ctx context.Context, msg *telegram.Message) error {
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "⚡ Мгновенное действие: функционал в разработке", nil)
	return err
}

func (f *Flows) handleSmartTicketStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerSmartTicket)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"📋 <b>Умный Тикет</b>\n\nОпишите проблему своими словами. ИИ классифицирует обращение и заведет тикет.",
		cancelKeyboard())
	return err
}

// handleSmartTicketInput relays the problem description and reports the
// created ticket back.
func (f *Flows) handleSmartTicketInput(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Опишите проблему текстом, пожалуйста.", nil)
		return err
	}

	if err := f.bot.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		f.logger.Warn(ctx, "chat action failed", "user_id", msg.From.ID, "error", err)
	}

	resp, err := f.collab.Call(ctx, f.webhooks.Ticket, map[string]any{
		"action":      "smart_ticket",
		"telegram_id": msg.From.ID,
		"username":    msg.From.Username,
		"text":        msg.Text,
	})
	if err != nil {
		return err
	}

	f.tracker.Set(msg.From.ID, convstate.MarkerHelpdeskMenu)
	text := resp.Result
	if text == "" {
		text = "✅ Тикет создан. Специалист свяжется с вами."
	}
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, helpdeskKeyboard())
	return err
}

func (f *Flows) handleHowToConnect(ctx context.Context, msg *telegram.Message) error {
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"❓ <b>Как подключить</b>\n\nНапишите нам, и мы поможем подключить вашу компанию к системе.", nil)
	return err
}
