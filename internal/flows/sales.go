package flows

import (
	"context"
	"fmt"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/telegram"
)

// salesDraft accumulates the four qualification answers before submission.
type salesDraft struct {
	Niche  string
	Task   string
	Budget string
}

func (f *Flows) draft(userID int64) *salesDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[userID]
	if !ok {
		d = &salesDraft{}
		f.drafts[userID] = d
	}
	return d
}

func (f *Flows) discardDraft(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, userID)
}

func salesKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{dispatch.BtnSalesQuote},
		[]string{dispatch.BtnContactManager},
		[]string{dispatch.BtnBackToMenu},
	)
}

func (f *Flows) handleSalesMenu(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerSalesMenu)
	text := `💰 <b>AI-Менеджер</b>

Добро пожаловать в отдел продаж будущего.

Мой AI рассчитает смету вашего проекта на основе актуальных прайс-листов.

Что хотите сделать?`
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, text, salesKeyboard())
	return err
}

func (f *Flows) handleSalesQuoteStart(ctx context.Context, msg *telegram.Message) error {
	f.discardDraft(msg.From.ID)
	f.tracker.Set(msg.From.ID, convstate.MarkerSalesNiche)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"Я обучен на актуальных прайс-листах нашей студии.\nОтветьте на 4 вопроса, и я сформирую персональное предложение.\n\n1️⃣ <b>Какая у вас сфера бизнеса?</b>",
		cancelKeyboard())
	return err
}

func (f *Flows) handleSalesNiche(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		return nil
	}
	f.draft(msg.From.ID).Niche = msg.Text
	f.tracker.Set(msg.From.ID, convstate.MarkerSalesTask)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"2️⃣ <b>Опишите задачу своими словами.</b>\nНапример: <i>«Хочу бота, который отвечает на вопросы по PDF и записывает на прием»</i>",
		cancelKeyboard())
	return err
}

func (f *Flows) handleSalesTask(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		return nil
	}
	f.draft(msg.From.ID).Task = msg.Text
	f.tracker.Set(msg.From.ID, convstate.MarkerSalesBudget)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"3️⃣ <b>На какой бюджет вы ориентируетесь?</b>",
		telegram.Keyboard(
			[]string{"до 50 000 руб", "50-150 тыс. руб"},
			[]string{"150-300 тыс. руб", "Бюджет не ограничен"},
			[]string{dispatch.BtnCancel},
		))
	return err
}

func (f *Flows) handleSalesBudget(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		return nil
	}
	f.draft(msg.From.ID).Budget = msg.Text
	f.tracker.Set(msg.From.ID, convstate.MarkerSalesContact)

	kb := &telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: "📱 Отправить мой контакт", RequestContact: true}},
			{{Text: dispatch.BtnCancel}},
		},
		ResizeKeyboard: true,
	}
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"4️⃣ <b>Как с вами связаться?</b>\nНапишите телефон или @username (или нажмите кнопку ниже).", kb)
	return err
}

// handleSalesContact closes the form: the collected draft plus the contact
// goes to the sales endpoint and the generated proposal comes back.
func (f *Flows) handleSalesContact(ctx context.Context, msg *telegram.Message) error {
	var contact string
	switch {
	case msg.Contact != nil:
		contact = fmt.Sprintf("%s (%s)", msg.Contact.PhoneNumber, msg.Contact.FirstName)
	case msg.Text != "":
		contact = msg.Text
	default:
		return nil
	}

	userID := msg.From.ID
	d := f.draft(userID)

	placeholder, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"⏳ <b>AI анализирует задачу и считает смету...</b>",
		&telegram.ReplyKeyboardRemove{RemoveKeyboard: true})
	if err != nil {
		return err
	}
	if err := f.bot.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		f.logger.Warn(ctx, "chat action failed", "user_id", userID, "error", err)
	}

	resp, err := f.collab.Call(ctx, f.webhooks.Sales, map[string]any{
		"niche":    d.Niche,
		"task":     d.Task,
		"budget":   d.Budget,
		"contact":  contact,
		"username": msg.From.Username,
	})

	f.discardDraft(userID)
	f.tracker.Set(userID, convstate.MarkerSalesMenu)

	if delErr := f.bot.DeleteMessage(ctx, msg.Chat.ID, placeholder.MessageID); delErr != nil {
		f.logger.Warn(ctx, "placeholder delete failed", "user_id", userID, "error", delErr)
	}
	if err != nil {
		return err
	}

	answer := resp.Answer
	if answer == "" {
		answer = resp.Result
	}
	if answer == "" {
		answer = "Смета готовится, менеджер свяжется с вами."
	}
	text := fmt.Sprintf(
		"📝 <b>Ваше предварительное КП:</b>\n\n%s\n\n✅ <i>Ваш запрос и контакты уже переданы руководителю проекта.</i>",
		answer)
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, salesKeyboard())
	return err
}
