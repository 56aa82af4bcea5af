// Package telegram is a minimal Bot API client: long-polling for updates
// plus the handful of send methods the flows use. Only the fields the bot
// consumes are modeled.
package telegram

// Update is one inbound event from the platform.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message. Date is a unix timestamp in UTC.
type Message struct {
	MessageID int64        `json:"message_id"`
	From      *User        `json:"from"`
	Chat      Chat         `json:"chat"`
	Date      int64        `json:"date"`
	Text      string       `json:"text"`
	Voice     *Voice       `json:"voice"`
	Photo     []PhotoSize  `json:"photo"`
	Document  *Document    `json:"document"`
	Contact   *Contact     `json:"contact"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// Voice is a voice note; FileID is the opaque reference forwarded to the
// collaborator for transcription.
type Voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

type Contact struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
}

// ReplyKeyboardMarkup is a reply keyboard shown under the input field.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type KeyboardButton struct {
	Text           string `json:"text"`
	RequestContact bool   `json:"request_contact,omitempty"`
}

// ReplyKeyboardRemove hides a previously sent reply keyboard.
type ReplyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

// Keyboard builds a ReplyKeyboardMarkup from rows of button labels.
func Keyboard(rows ...[]string) *ReplyKeyboardMarkup {
	kb := &ReplyKeyboardMarkup{ResizeKeyboard: true}
	for _, row := range rows {
		buttons := make([]KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, KeyboardButton{Text: text})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}
