package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a classified Telegram Bot API failure.
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration // non-zero only for rate-limit errors
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error %d: %s", e.Code, e.Description)
}

// IsNotFound reports whether the target message no longer exists.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Description, "not found")
}

// IsUnchanged reports whether an edit was rejected because the text is
// identical to the current message. Callers treat this as success.
func IsUnchanged(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Description, "message is not modified")
}

// RetryAfter extracts the provider-requested backoff from a rate-limit
// error.
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	if apiErr.Code != http.StatusTooManyRequests {
		return 0, false
	}
	return apiErr.RetryAfter, true
}

// TelegramNotifier sends, edits and deletes messages in the single
// destination chat via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   int64
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (t *TelegramNotifier) call(method string, payload map[string]any) (json.RawMessage, error) {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/%s", t.BotToken, method)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.Client.Post(apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", method, err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("%s decode: status %d, body: %s", method, resp.StatusCode, string(respBody))
	}
	if !decoded.OK {
		apiErr := &APIError{Code: decoded.ErrorCode, Description: decoded.Description}
		if decoded.Parameters != nil && decoded.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(decoded.Parameters.RetryAfter) * time.Second
		}
		return nil, apiErr
	}
	return decoded.Result, nil
}

// Send posts a new HTML message and returns its message ID.
func (t *TelegramNotifier) Send(text string) (int64, error) {
	result, err := t.call("sendMessage", map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return 0, err
	}
	var sent struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.Unmarshal(result, &sent); err != nil {
		return 0, fmt.Errorf("sendMessage decode result: %w", err)
	}
	return sent.MessageID, nil
}

// Edit replaces the text of an existing message.
func (t *TelegramNotifier) Edit(messageID int64, text string) error {
	_, err := t.call("editMessageText", map[string]any{
		"chat_id":                  t.ChatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	return err
}

// Delete removes a message from the chat.
func (t *TelegramNotifier) Delete(messageID int64) error {
	_, err := t.call("deleteMessage", map[string]any{
		"chat_id":    t.ChatID,
		"message_id": messageID,
	})
	return err
}
