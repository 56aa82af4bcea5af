// Package n8n is the HTTP client for the external reasoning collaborator.
// Each conversational flow posts JSON to its own webhook endpoint; the
// collaborator transcribes voice, runs the LLM and reports interview
// progress authoritatively.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/logging"
)

// Answer kinds accepted by the collaborator.
const (
	KindText  = "text"
	KindVoice = "voice"
)

// Request is the interview-flow payload. Other flows post their own shapes
// through Call.
type Request struct {
	Action      string `json:"action"` // start | answer | cancel
	UserID      int64  `json:"telegram_id"`
	ChatID      int64  `json:"chat_id,omitempty"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Type        string `json:"type,omitempty"` // text | voice
	Text        string `json:"text,omitempty"`
	VoiceFileID string `json:"voice_file_id,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

// Response is the collaborator's answer. On done=false the next question is
// present; on done=true the result and recommendation are. For
// action=answer the stage field reports the stage the session has moved to
// and answer carries the (possibly transcribed) answer text.
type Response struct {
	Question       string          `json:"question"`
	Done           bool            `json:"done"`
	Result         string          `json:"result"`
	Stage          int             `json:"stage"`
	Answer         string          `json:"answer"`
	VoiceFileID    string          `json:"voice_file_id"`
	Recommendation json.RawMessage `json:"hr_recommendation"`
}

// Client posts JSON payloads to collaborator webhooks with a bounded
// fixed-interval retry for the 404 "webhook not armed" condition.
type Client struct {
	httpClient    *http.Client
	logger        logging.Logger
	retryAttempts int
	retryInterval time.Duration
}

// NewClient constructs a collaborator client. The timeout covers the whole
// exchange; the collaborator may itself wait on speech-to-text and an LLM.
func NewClient(logger logging.Logger, timeout time.Duration, retryAttempts int, retryInterval time.Duration) *Client {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger.With("component", "n8n"),
		retryAttempts: retryAttempts,
		retryInterval: retryInterval,
	}
}

// Call posts payload to url and decodes the response. HTTP 404 means the
// workflow is not armed yet and is retried on a fixed interval up to the
// configured attempt count; every other failure is surfaced immediately:
//   - common.ErrCollaboratorUnready: 404s exhausted all attempts
//   - common.ErrCollaborator: non-2xx, transport failure, timeout, or a
//     body that is not valid JSON
func (c *Client) Call(ctx context.Context, url string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", common.ErrCollaborator, err)
	}

	var resp *Response
	attempt := 0

	backoff := retry.WithMaxRetries(uint64(c.retryAttempts-1), retry.NewConstant(c.retryInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.logger.Debug(ctx, "calling collaborator", "url", url, "attempt", attempt)

		r, callErr := c.callOnce(ctx, url, body)
		if callErr != nil {
			if errors.Is(callErr, common.ErrCollaboratorUnready) {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrCollaboratorUnready) {
			c.logger.Error(ctx, "collaborator webhook not armed", "url", url, "attempts", attempt)
		} else {
			c.logger.Error(ctx, "collaborator call failed", "url", url, "error", err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) callOnce(ctx context.Context, url string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCollaborator, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCollaborator, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, common.ErrCollaboratorUnready
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", common.ErrCollaborator, res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", common.ErrCollaborator, err)
	}

	resp := &Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", common.ErrCollaborator, err)
	}
	return resp, nil
}
