package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/interview"
	"github.com/neuronai/neuronbot/internal/n8n"
	"github.com/neuronai/neuronbot/internal/telegram"
)

func hrKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard(
		[]string{dispatch.BtnInterview},
		[]string{dispatch.BtnCVScan},
		[]string{dispatch.BtnQuickSearch},
		[]string{dispatch.BtnHRInfo},
		[]string{dispatch.BtnBackToMenu},
	)
}

func interviewKeyboard() *telegram.ReplyKeyboardMarkup {
	return telegram.Keyboard([]string{dispatch.BtnInterviewCancel})
}

func (f *Flows) handleHRMenu(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerHRMenu)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, "Раздел 🤝 HR и Найм\n\nВыберите действие:", hrKeyboard())
	return err
}

func (f *Flows) handleInterviewStart(ctx context.Context, msg *telegram.Message) error {
	userID := msg.From.ID

	active, err := f.interview.IsActive(ctx, userID)
	if err != nil {
		return err
	}
	if active {
		f.tracker.Set(userID, convstate.MarkerInterview)
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
			"У вас уже идет собеседование. Ответьте на текущий вопрос или нажмите «"+dispatch.BtnInterviewCancel+"».",
			interviewKeyboard())
		return err
	}

	if err := f.bot.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		f.logger.Warn(ctx, "chat action failed", "user_id", userID, "error", err)
	}

	res, err := f.interview.Start(ctx, userID, msg.Chat.ID, msg.From.Username, fullName(msg.From))
	if err != nil {
		return err
	}

	f.tracker.Set(userID, convstate.MarkerInterview)
	text := fmt.Sprintf(
		"🎭 <b>Собеседование началось!</b>\n\nВас ждут 3 вопроса. Отвечайте текстом или голосом.\n\n<b>Вопрос 1 из 3:</b>\n%s",
		res.Question)
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, interviewKeyboard())
	return err
}

// handleInterviewAnswer relays one answer. Menu taps never get here (the
// dispatcher drops recognized buttons), but slash-commands and empty text
// still must not reach the collaborator as answers.
func (f *Flows) handleInterviewAnswer(ctx context.Context, msg *telegram.Message) error {
	userID := msg.From.ID

	var answer interview.Answer
	switch {
	case msg.Voice != nil:
		answer = interview.Answer{Kind: n8n.KindVoice, VoiceFileID: msg.Voice.FileID, Duration: msg.Voice.Duration}
	case msg.Text != "" && !strings.HasPrefix(msg.Text, "/"):
		answer = interview.Answer{Kind: n8n.KindText, Text: msg.Text}
	default:
		return nil
	}

	if err := f.bot.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		f.logger.Warn(ctx, "chat action failed", "user_id", userID, "error", err)
	}

	res, err := f.interview.SubmitAnswer(ctx, userID, msg.Chat.ID, answer)
	if err != nil {
		return err
	}
	if res == nil {
		// No open session: a late message racing a reset. Put the user back
		// on the HR menu without noise.
		f.tracker.Set(userID, convstate.MarkerHRMenu)
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
			"Активное собеседование не найдено. Начните заново, если хотите.", hrKeyboard())
		return err
	}

	if res.Done {
		f.tracker.Set(userID, convstate.MarkerHRMenu)
		text := "✅ <b>Собеседование завершено!</b>\n\nСпасибо за ваши ответы."
		if res.Result != "" {
			text += "\n\n" + res.Result
		}
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID, text, hrKeyboard())
		return err
	}

	text := fmt.Sprintf("<b>Вопрос %d из 3:</b>\n%s", res.QuestionNum, res.Question)
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, interviewKeyboard())
	return err
}

func (f *Flows) handleInterviewCancel(ctx context.Context, msg *telegram.Message) error {
	cancelled, err := f.interview.Cancel(ctx, msg.From.ID)
	if err != nil {
		return err
	}

	f.tracker.Set(msg.From.ID, convstate.MarkerHRMenu)
	text := "Собеседование отменено."
	if !cancelled {
		text = "Активное собеседование не найдено."
	}
	_, err = f.bot.SendMessage(ctx, msg.Chat.ID, text, hrKeyboard())
	return err
}

func (f *Flows) handleCVScanStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerCVScan)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"📄 <b>Режим проверки резюме</b>\n\nПожалуйста, отправьте файл резюме (PDF или DOCX).\nЯ проанализирую его и дам оценку.",
		cancelKeyboard())
	return err
}

// handleCVScanInput expects a PDF/DOC/DOCX document and relays it to the
// collaborator for scoring.
func (f *Flows) handleCVScanInput(ctx context.Context, msg *telegram.Message) error {
	doc := msg.Document
	if doc == nil {
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
			"Пожалуйста, прикрепите именно <b>файл</b> (как документ), а не картинку или текст.", nil)
		return err
	}

	name := strings.ToLower(doc.FileName)
	if !strings.HasSuffix(name, ".pdf") && !strings.HasSuffix(name, ".doc") && !strings.HasSuffix(name, ".docx") {
		_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
			"⚠️ Пожалуйста, пришлите файл в формате PDF или Word (DOCX).", nil)
		return err
	}

	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"📥 Файл получен! Отправляю на анализ к ИИ... Это может занять 10-15 секунд.",
		&telegram.ReplyKeyboardRemove{RemoveKeyboard: true})
	if err != nil {
		return err
	}

	f.tracker.Set(msg.From.ID, convstate.MarkerHRMenu)

	_, err = f.collab.Call(ctx, f.webhooks.CVScan, map[string]any{
		"action":      "cv_scan",
		"telegram_id": msg.From.ID,
		"user_name":   fullName(msg.From),
		"file_id":     doc.FileID,
		"file_name":   doc.FileName,
	})
	if err != nil {
		_, sendErr := f.bot.SendMessage(ctx, msg.Chat.ID,
			"❌ Не удалось отправить резюме на анализ. Попробуйте позже.", hrKeyboard())
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	_, err = f.bot.SendMessage(ctx, msg.Chat.ID,
		"✅ Резюме отправлено на анализ. Я сообщу результат, как только он будет готов.", hrKeyboard())
	return err
}

func (f *Flows) handleQuickSearch(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerQuickSearch)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"🔥 <b>Быстрый подбор</b>\n\nФункционал в разработке...",
		telegram.Keyboard([]string{dispatch.BtnBack}))
	return err
}

func (f *Flows) handleHRInfo(ctx context.Context, msg *telegram.Message) error {
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"⚙️ <b>Информация для HR</b>\n\nФункционал в разработке...", nil)
	return err
}

func fullName(u *telegram.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
