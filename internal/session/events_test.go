package session_test

import (
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/session"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := session.NewMemoryEventLogger()

	err := logger.LogEvent(session.Event{
		SessionID: "quiz-1",
		UserID:    "user-1",
		EventType: session.EventAnswerSubmitted,
		Data: map[string]any{
			"is_correct": true,
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != session.EventAnswerSubmitted {
		t.Errorf("EventType = %q, want %s", events[0].EventType, session.EventAnswerSubmitted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := session.NewMemoryEventLogger()
	if err := logger.LogEvent(session.Event{SessionID: "quiz-1"}); err == nil {
		t.Fatal("expected error for empty event_type")
	}
	if len(logger.Events()) != 0 {
		t.Error("rejected event should not be stored")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := session.NewPostgresEventLogger(nil)

	err := logger.LogEvent(session.Event{
		SessionID: "quiz-1",
		EventType: session.EventQuizCreated,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
