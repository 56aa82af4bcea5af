package flows

import (
	"context"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/n8n"
	"github.com/neuronai/neuronbot/internal/telegram"
)

func safetyKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{dispatch.BtnPhotoControl},
		[]string{dispatch.BtnWorkPermit},
		[]string{dispatch.BtnReportViolation},
		[]string{dispatch.BtnBotInstructor},
		[]string{dispatch.BtnBack},
	)
}

func (f *Flows) handleSafetyMenu(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerSafetyMenu)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Раздел 👷‍♂️ Охрана труда\n\nВыберите действие:", safetyKeyboard())
	return err
}

func (f *Flows) handlePhotoControlStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerPhotoControl)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"📸 <b>Получить допуск</b>\n\nПришлите фото в СИЗ (каска, жилет). ИИ проверит экипировку и выдаст допуск.",
		cancelKeyboard())
	return err
}

// handlePhotoControlInput relays the equipment photo for AI inspection.
func (f *Flows) handlePhotoControlInput(ctx context.Context, msg *telegram.Message) error {
	if len(msg.Photo) == 0 {
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Пожалуйста, пришлите именно фотографию.", nil)
		return err
	}

	if _, err := f.bot.SendMessage(ctx, msg.Chat.ID, "⏳ Анализирую фотографию, подождите...", nil); err != nil {
		return err
	}

	// The largest size is last in the array.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	resp, err := f.collab.Call(ctx, f.webhooks.Safety, map[string]any{
		"action":      "photo_control",
		"telegram_id": msg.From.ID,
		"file_id":     fileID,
	})
	if err != nil {
		return err
	}

	f.tracker.Set(msg.From.ID, convstate.MarkerSafetyMenu)
	text := resp.Result
	if text == "" {
		text = "✅ Фото принято на проверку. Результат придет в этот чат."
	}
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, safetyKeyboard())
	return err
}

func (f *Flows) handleWorkPermitStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerWorkPermit)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"📝 <b>Оформить работы</b>\n\nОпишите вид работ текстом или голосом, и я оформлю наряд-допуск.",
		cancelKeyboard())
	return err
}

// handleWorkPermitInput accepts a text or voice work description and relays
// it for permit drafting.
func (f *Flows) handleWorkPermitInput(ctx context.Context, msg *telegram.Message) error {
	payload := map[string]any{
		"action":      "work_permit",
		"telegram_id": msg.From.ID,
		"username":    msg.From.Username,
	}
	switch {
	case msg.Voice != nil:
		payload["type"] = n8n.KindVoice
		payload["voice_file_id"] = msg.Voice.FileID
		payload["duration"] = msg.Voice.Duration
	case msg.Text != "":
		payload["type"] = n8n.KindText
		payload["text"] = msg.Text
	default:
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Опишите работы текстом или голосовым сообщением.", nil)
		return err
	}

	if _, err := f.bot.SendMessage(ctx, msg.Chat.ID, "⏳ Оформляю документы, подождите...", nil); err != nil {
		return err
	}

	resp, err := f.collab.Call(ctx, f.webhooks.Safety, payload)
	if err != nil {
		return err
	}

	f.tracker.Set(msg.From.ID, convstate.MarkerSafetyMenu)
	text := resp.Result
	if text == "" {
		text = "✅ Наряд-допуск оформлен."
	}
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, safetyKeyboard())
	return err
}

func (f *Flows) handleReportViolationStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerReportViolation)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"🆘 <b>Сообщить о нарушении</b>\n\nОпишите нарушение и, если есть, приложите фото.",
		cancelKeyboard())
	return err
}

func (f *Flows) handleReportViolationInput(ctx context.Context, msg *telegram.Message) error {
	payload := map[string]any{
		"action":      "report_violation",
		"telegram_id": msg.From.ID,
		"username":    msg.From.Username,
		"text":        msg.Text,
	}
	if len(msg.Photo) > 0 {
		payload["file_id"] = msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Text == "" && len(msg.Photo) == 0 {
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Опишите нарушение текстом или пришлите фото.", nil)
		return err
	}

	if _, err := f.collab.Call(ctx, f.webhooks.Safety, payload); err != nil {
		return err
	}

	f.tracker.Set(msg.From.ID, convstate.MarkerSafetyMenu)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"✅ Сообщение о нарушении принято. Спасибо за бдительность!", safetyKeyboard())
	return err
}

func (f *Flows) handleBotInstructorStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerBotInstructor)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"🧠 <b>Бот-Инструктор</b>\n\nЗадайте вопрос по охране труда, и я отвечу по действующим инструкциям.",
		cancelKeyboard())
	return err
}

func (f *Flows) handleBotInstructorInput(ctx context.Context, msg *telegram.Message) error {
	if msg.Text == "" {
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Задайте вопрос текстом, пожалуйста.", nil)
		return err
	}

	if err := f.bot.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		f.logger.Warn(ctx, "chat action failed", "user_id", msg.From.ID, "error", err)
	}

	resp, err := f.collab.Call(ctx, f.webhooks.Safety, map[string]any{
		"action":      "instructor",
		"telegram_id": msg.From.ID,
		"text":        msg.Text,
	})
	if err != nil {
		return err
	}

	text := resp.Result
	if text == "" {
		text = "Не нашел ответа в инструкциях. Переформулируйте вопрос."
	}
	// The user stays in the instructor state: follow-up questions are
	// expected here.
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, cancelKeyboard())
	return err
}
