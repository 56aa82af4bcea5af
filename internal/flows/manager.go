package flows

import (
	"context"
	"fmt"

	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/telegram"
)

func (f *Flows) handleContactManagerStart(ctx context.Context, msg *telegram.Message) error {
	f.tracker.Set(msg.From.ID, convstate.MarkerManagerContact)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID,
		"📞 <b>Связь с менеджером</b>\n\nНапишите ваше сообщение. Вы можете отправить текст, файл или фото.\nМенеджер ответит вам в ближайшее время.",
		cancelKeyboard())
	return err
}

// handleManagerRelay forwards one message (text, photo or document) to the
// manager chat with the sender's details attached.
func (f *Flows) handleManagerRelay(ctx context.Context, msg *telegram.Message) error {
	from := msg.From
	username := from.Username
	if username == "" {
		username = "не указан"
	}

	var kind, confirmation string
	switch {
	case msg.Document != nil:
		kind, confirmation = "Файл", "✅ Ваш файл отправлен менеджеру!"
	case len(msg.Photo) > 0:
		kind, confirmation = "Фото", "✅ Ваше фото отправлено менеджеру!"
	case msg.Text != "":
		kind, confirmation = "Сообщение", "✅ Ваше сообщение отправлено менеджеру!"
	default:
		return nil
	}

	header := fmt.Sprintf(
		"<b>%s от пользователя:</b>\n<b>ID:</b> %d\n<b>Имя:</b> %s\n<b>Username:</b> @%s",
		kind, from.ID, fullName(from), username)
	if msg.Text != "" {
		header += "\n<b>Сообщение:</b>\n" + msg.Text
	}

	if _, err := f.bot.SendMessage(ctx, f.manager, header, nil); err != nil {
		return err
	}
	switch {
	case msg.Document != nil:
		if err := f.bot.ForwardDocument(ctx, f.manager, msg.Document.FileID); err != nil {
			return err
		}
	case len(msg.Photo) > 0:
		if err := f.bot.ForwardPhoto(ctx, f.manager, msg.Photo[len(msg.Photo)-1].FileID); err != nil {
			return err
		}
	}

	f.tracker.Clear(msg.From.ID)
	_, err := f.bot.SendMessage(ctx, msg.Chat.ID, confirmation, mainMenuKeyboard())
	return err
}
