package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	telegramMaxMessageLen = 4096
	telegramAPI           = "https://api.telegram.org/bot"
	pollTimeoutSeconds    = 30
	pollRetryDelay        = 5 * time.Second
)

// BotCommand is one entry of the bot's command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// QuizCommands is the command menu published to Telegram.
var QuizCommands = []BotCommand{
	{Command: "start", Description: "Welcome and usage"},
	{Command: "quiz", Description: "Start a quiz, optionally on a subject"},
	{Command: "next", Description: "Show the next question"},
	{Command: "stats", Description: "Show your quiz results so far"},
	{Command: "end", Description: "End the current quiz"},
	{Command: "help", Description: "List commands"},
}

// TelegramOption configures a TelegramChannel.
type TelegramOption func(*TelegramChannel)

// WithTelegramBaseURL points the channel at another Bot API endpoint.
func WithTelegramBaseURL(u string) TelegramOption {
	return func(t *TelegramChannel) {
		t.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTelegramHTTPClient replaces the HTTP client.
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramChannel) {
		t.client = c
	}
}

// TelegramChannel implements the Channel interface for Telegram Bot API.
type TelegramChannel struct {
	token    string
	baseURL  string
	client   *http.Client
	offset   int
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTelegramChannel creates a Telegram channel adapter.
func NewTelegramChannel(token string, opts ...TelegramOption) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required (QUIZ_TELEGRAM_BOT_TOKEN)")
	}
	t := &TelegramChannel{
		token:   token,
		baseURL: telegramAPI + token,
		client: &http.Client{
			Timeout: (pollTimeoutSeconds + 30) * time.Second,
		},
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *TelegramChannel) SendTyping(ctx context.Context, userID string) error {
	return t.call(ctx, "sendChatAction", map[string]any{
		"chat_id": userID,
		"action":  "typing",
	})
}

func (t *TelegramChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	parts := SplitMessage(msg.Text, telegramMaxMessageLen)

	for i, part := range parts {
		payload := map[string]any{
			"chat_id": userID,
			"text":    part,
		}
		if msg.ParseMode != "" {
			payload["parse_mode"] = msg.ParseMode
		}
		// The keyboard rides on the last part so it sits under the full question.
		if i == len(parts)-1 {
			payload["reply_markup"] = replyMarkup(msg.Choices)
		}

		err := t.call(ctx, "sendMessage", payload)
		if err != nil && msg.ParseMode != "" && isBadRequest(err) {
			slog.Warn("Telegram markup parse failed, retrying plain")
			delete(payload, "parse_mode")
			err = t.call(ctx, "sendMessage", payload)
		}
		if err != nil {
			return fmt.Errorf("sending Telegram message: %w", err)
		}
	}
	return nil
}

func replyMarkup(choices []string) map[string]any {
	if len(choices) == 0 {
		return map[string]any{"remove_keyboard": true}
	}
	rows := make([][]map[string]string, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, []map[string]string{{"text": c}})
	}
	return map[string]any{
		"keyboard":          rows,
		"one_time_keyboard": true,
		"resize_keyboard":   true,
	}
}

// Start publishes the command menu and begins long polling.
func (t *TelegramChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	if err := t.syncCommands(ctx); err != nil {
		slog.Warn("failed to publish Telegram commands", "error", err)
	}
	go t.pollLoop(ctx, handler)
	return nil
}

func (t *TelegramChannel) Stop() error {
	t.stopOnce.Do(func() { close(t.stop) })
	return nil
}

func (t *TelegramChannel) syncCommands(ctx context.Context) error {
	return t.call(ctx, "setMyCommands", map[string]any{"commands": QuizCommands})
}

func (t *TelegramChannel) pollLoop(ctx context.Context, handler func(InboundMessage)) {
	slog.Info("Telegram long-polling started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		default:
		}

		updates, err := t.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Telegram getUpdates error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			t.offset = u.UpdateID + 1
			if msg, ok := mapTelegramInbound(u); ok {
				go handler(msg)
			}
		}
	}
}

func (t *TelegramChannel) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	params := url.Values{
		"offset":          {strconv.Itoa(t.offset)},
		"timeout":         {strconv.Itoa(pollTimeoutSeconds)},
		"allowed_updates": {`["message"]`},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var result struct {
		OK          bool       `json:"ok"`
		Description string     `json:"description"`
		Result      []tgUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram API returned ok=false: %s", result.Description)
	}
	return result.Result, nil
}

// apiError is a non-OK Bot API reply.
type apiError struct {
	Method      string
	Status      int
	Description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("telegram %s error %d: %s", e.Method, e.Status, e.Description)
}

func isBadRequest(err error) bool {
	apiErr, ok := err.(*apiError)
	return ok && apiErr.Status == http.StatusBadRequest
}

// call posts a JSON payload to a Bot API method.
func (t *TelegramChannel) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var reply struct {
			Description string `json:"description"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &reply)
		return &apiError{Method: method, Status: resp.StatusCode, Description: reply.Description}
	}
	return nil
}

// Telegram API types (minimal)
type tgUpdate struct {
	UpdateID int        `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	Text           string     `json:"text"`
	Chat           tgChat     `json:"chat"`
	From           tgUser     `json:"from"`
	ReplyToMessage *tgMessage `json:"reply_to_message,omitempty"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LanguageCode string `json:"language_code"`
}

// SplitMessage splits text into chunks that fit Telegram's max message length.
func SplitMessage(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > 0 {
			cutAt = idx + 1
		} else if idx := strings.LastIndex(text[:maxLen], " "); idx > 0 {
			cutAt = idx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// mapTelegramInbound keeps text messages. Commands addressed to a named bot
// ("/next@quizbot") lose the suffix.
func mapTelegramInbound(u tgUpdate) (InboundMessage, bool) {
	if u.Message == nil {
		return InboundMessage{}, false
	}

	text := strings.TrimSpace(u.Message.Text)
	if text == "" {
		return InboundMessage{}, false
	}
	if strings.HasPrefix(text, "/") {
		cmd, rest, _ := strings.Cut(text, " ")
		if at := strings.Index(cmd, "@"); at > 0 {
			cmd = cmd[:at]
		}
		text = strings.TrimSpace(cmd + " " + rest)
	}

	msg := InboundMessage{
		Channel:    "telegram",
		UserID:     strconv.FormatInt(u.Message.Chat.ID, 10),
		ExternalID: strconv.FormatInt(u.Message.From.ID, 10),
		Text:       text,
		Username:   u.Message.From.Username,
		FirstName:  u.Message.From.FirstName,
		Language:   u.Message.From.LanguageCode,
	}
	if u.Message.ReplyToMessage != nil {
		msg.ReplyToText = u.Message.ReplyToMessage.Text
	}
	return msg, true
}
