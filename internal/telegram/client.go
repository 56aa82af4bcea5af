package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Bot API over HTTP/JSON.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a Bot API client. baseURL is overridable for tests.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		// Long polling holds the connection open for up to pollTimeout;
		// the client timeout must sit above it.
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}

	var apiRes apiResponse
	if err := json.Unmarshal(data, &apiRes); err != nil {
		return fmt.Errorf("%s: malformed response: %w", method, err)
	}
	if !apiRes.OK {
		return fmt.Errorf("%s: api error: %s", method, apiRes.Description)
	}
	if out != nil {
		if err := json.Unmarshal(apiRes.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for new updates past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": int(timeout.Seconds()),
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat. replyMarkup may be a
// *ReplyKeyboardMarkup, a *ReplyKeyboardRemove, or nil.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup any) (*Message, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if replyMarkup != nil {
		payload["reply_markup"] = replyMarkup
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendChatAction shows a transient status ("typing") while the collaborator
// works.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	}, nil)
}

// DeleteMessage removes a previously sent message (status placeholders).
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// ForwardDocument re-sends a user's document to another chat by file id.
func (c *Client) ForwardDocument(ctx context.Context, chatID int64, fileID string) error {
	return c.call(ctx, "sendDocument", map[string]any{
		"chat_id":  chatID,
		"document": fileID,
	}, nil)
}

// ForwardPhoto re-sends a user's photo to another chat by file id.
func (c *Client) ForwardPhoto(ctx context.Context, chatID int64, fileID string) error {
	return c.call(ctx, "sendPhoto", map[string]any{
		"chat_id": chatID,
		"photo":   fileID,
	}, nil)
}
