package flows

import (
	"context"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/telegram"
)

const knowledgeIntro = `🧠 <b>База Знаний</b>

Система поиска может ответить на вопросы:
    • По основным процессам компании
    • По кадровым вопросам
    • По регламентам и правилам
    • По социальным гарантиям`

func (f *Flows) handleKnowledgeMenu(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerKnowledgeMenu)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, knowledgeIntro,
		telegram.Keyboard(
			[]string{dispatch.BtnSearchAnswer},
			[]string{dispatch.BtnBackToMenu},
		))
	return err
}

func (f *Flows) handleSearchAnswerStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerKnowledgeMenu)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"🔎 <b>Найти ответ</b>\n\nНапишите ваш вопрос, и ИИ найдет ответ в базе знаний:",
		telegram.Keyboard([]string{dispatch.BtnBackToMenu}))
	return err
}

// handleSearchAnswerInput runs one knowledge-base query. The user stays in
// the section to ask again.
func (f *Flows) handleSearchAnswerInput(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		return nil
	}

	if err := f.bot.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		f.logger.Warn(ctx, "chat action failed", "user_id", msg.From.ID, "error", err)
	}

	resp, err := f.collab.Call(ctx, f.webhooks.Knowledge, map[string]any{
		"action":      "search",
		"telegram_id": msg.From.ID,
		"question":    msg.Text,
	})
	if err != nil {
		return err
	}

	text := resp.Result
	if text == "" {
		text = "По вашему вопросу ничего не нашлось. Попробуйте сформулировать иначе."
	}
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text,
		telegram.Keyboard([]string{dispatch.BtnBackToMenu}))
	return err
}
