package chat_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/chat"
)

func TestNewGateway(t *testing.T) {
	gw := chat.NewGateway()
	if gw == nil {
		t.Fatal("NewGateway() returned nil")
	}
	if gw.Len() != 0 {
		t.Errorf("Len() = %d, want 0", gw.Len())
	}
}

func TestGateway_RegisterChannel(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}

	gw.Register("telegram", mock)

	if !gw.HasChannel("telegram") {
		t.Error("HasChannel(telegram) should be true after Register")
	}
	if gw.HasChannel("whatsapp") {
		t.Error("HasChannel(whatsapp) should be false when not registered")
	}
}

func TestGateway_SendMessage(t *testing.T) {
	gw := chat.NewGateway()
	mock := &chat.MockChannel{}
	gw.Register("telegram", mock)

	err := gw.Send(context.Background(), chat.OutboundMessage{
		Channel: "telegram",
		UserID:  "123",
		Text:    "Which is larger?",
		Choices: []string{"1. 3/4", "2. 2/3"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("Sent() = %d messages, want 1", len(sent))
	}
	if len(sent[0].Choices) != 2 {
		t.Errorf("Choices = %v, want 2 entries", sent[0].Choices)
	}
}

func TestGateway_UnknownChannel(t *testing.T) {
	gw := chat.NewGateway()

	err := gw.Send(context.Background(), chat.OutboundMessage{Channel: "unknown", UserID: "123", Text: "Hello!"})
	if err == nil {
		t.Error("Send() should error for unknown channel")
	}
	if err := gw.SendTyping(context.Background(), "unknown", "123"); err == nil {
		t.Error("SendTyping() should error for unknown channel")
	}
}

func TestGateway_StopAll(t *testing.T) {
	gw := chat.NewGateway()
	a, b := &chat.MockChannel{}, &chat.MockChannel{}
	gw.Register("a", a)
	gw.Register("b", b)

	if err := gw.StartAll(context.Background(), func(chat.InboundMessage) {}); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	gw.StopAll()

	if !a.Stopped || !b.Stopped {
		t.Errorf("Stopped = %v/%v, want both true", a.Stopped, b.Stopped)
	}
}
