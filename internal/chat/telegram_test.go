package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/chat"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLen    int
		wantParts int
	}{
		{"short", "Hello", 4096, 1},
		{"exact", "Hello", 5, 1},
		{"split-needed", "Hello World, this is a test", 10, 4},
		{"empty", "", 4096, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := chat.SplitMessage(tt.text, tt.maxLen)
			if len(parts) != tt.wantParts {
				t.Errorf("SplitMessage() = %d parts, want %d", len(parts), tt.wantParts)
			}
		})
	}
}

func TestSplitMessage_PartsNotExceedMax(t *testing.T) {
	text := "This is a longer message that needs to be split into multiple parts for Telegram delivery."
	maxLen := 20
	parts := chat.SplitMessage(text, maxLen)

	if got := strings.Join(parts, ""); got != text {
		t.Errorf("joined parts = %q, want original text", got)
	}
	for i, part := range parts {
		if len(part) > maxLen {
			t.Errorf("part[%d] len=%d exceeds maxLen=%d: %q", i, len(part), maxLen, part)
		}
	}
}

func TestNewTelegramChannel_NoToken(t *testing.T) {
	_, err := chat.NewTelegramChannel("")
	if err == nil {
		t.Fatal("NewTelegramChannel() should error with empty token")
	}
	if !strings.Contains(err.Error(), "QUIZ_TELEGRAM_BOT_TOKEN") {
		t.Errorf("error = %q, want it to name QUIZ_TELEGRAM_BOT_TOKEN", err)
	}
}

type recordedCall struct {
	path    string
	payload map[string]any
}

func fakeBotAPI(t *testing.T, status int) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []recordedCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		calls = append(calls, recordedCall{path: r.URL.Path, payload: payload})
		mu.Unlock()

		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func TestTelegramChannel_SendMessageWithChoices(t *testing.T) {
	srv, calls := fakeBotAPI(t, http.StatusOK)
	ch, err := chat.NewTelegramChannel("test-token", chat.WithTelegramBaseURL(srv.URL), chat.WithTelegramHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewTelegramChannel() error = %v", err)
	}

	err = ch.SendMessage(context.Background(), "42", chat.OutboundMessage{
		Text:    "Which is larger?",
		Choices: []string{"1. 3/4", "2. 2/3"},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	got := calls()
	if len(got) != 1 {
		t.Fatalf("calls = %d, want 1", len(got))
	}
	if got[0].path != "/sendMessage" {
		t.Errorf("path = %q, want /sendMessage", got[0].path)
	}
	if got[0].payload["chat_id"] != "42" {
		t.Errorf("chat_id = %v, want 42", got[0].payload["chat_id"])
	}
	markup, ok := got[0].payload["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("reply_markup = %v, want object", got[0].payload["reply_markup"])
	}
	rows, ok := markup["keyboard"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("keyboard = %v, want two rows", markup["keyboard"])
	}
}

func TestTelegramChannel_SendMessageRemovesKeyboard(t *testing.T) {
	srv, calls := fakeBotAPI(t, http.StatusOK)
	ch, _ := chat.NewTelegramChannel("test-token", chat.WithTelegramBaseURL(srv.URL))

	if err := ch.SendMessage(context.Background(), "42", chat.OutboundMessage{Text: "Correct!"}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	markup, _ := calls()[0].payload["reply_markup"].(map[string]any)
	if markup["remove_keyboard"] != true {
		t.Errorf("reply_markup = %v, want remove_keyboard", markup)
	}
}

func TestTelegramChannel_SendMessageRetriesPlain(t *testing.T) {
	srv, calls := fakeBotAPI(t, http.StatusBadRequest)
	ch, _ := chat.NewTelegramChannel("test-token", chat.WithTelegramBaseURL(srv.URL))

	err := ch.SendMessage(context.Background(), "42", chat.OutboundMessage{Text: "*broken", ParseMode: "Markdown"})
	if err == nil {
		t.Fatal("SendMessage() should fail when the API keeps rejecting")
	}

	got := calls()
	if len(got) != 2 {
		t.Fatalf("calls = %d, want 2 (markdown then plain)", len(got))
	}
	if _, ok := got[1].payload["parse_mode"]; ok {
		t.Error("retry should drop parse_mode")
	}
}

func TestTelegramChannel_SendTyping(t *testing.T) {
	srv, calls := fakeBotAPI(t, http.StatusOK)
	ch, _ := chat.NewTelegramChannel("test-token", chat.WithTelegramBaseURL(srv.URL))

	if err := ch.SendTyping(context.Background(), "7"); err != nil {
		t.Fatalf("SendTyping() error = %v", err)
	}
	got := calls()
	if got[0].path != "/sendChatAction" || got[0].payload["action"] != "typing" {
		t.Errorf("call = %+v, want sendChatAction typing", got[0])
	}
}
