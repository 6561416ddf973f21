package chat

import "testing"

func TestMapTelegramInbound_TextMessage(t *testing.T) {
	msg, ok := mapTelegramInbound(tgUpdate{
		UpdateID: 1,
		Message: &tgMessage{
			Text: "  2  ",
			Chat: tgChat{ID: 123},
			From: tgUser{ID: 456, Username: "u1", FirstName: "Aina", LanguageCode: "ms"},
		},
	})
	if !ok {
		t.Fatal("expected text update to map")
	}
	if msg.Text != "2" {
		t.Fatalf("Text = %q, want 2", msg.Text)
	}
	if msg.UserID != "123" || msg.ExternalID != "456" {
		t.Fatalf("UserID/ExternalID = %q/%q, want 123/456", msg.UserID, msg.ExternalID)
	}
	if msg.Channel != "telegram" || msg.FirstName != "Aina" || msg.Language != "ms" {
		t.Fatalf("unexpected mapping: %+v", msg)
	}
}

func TestMapTelegramInbound_CommandWithBotSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/quiz@pai_quiz_bot Science", "/quiz Science"},
		{"/next@pai_quiz_bot", "/next"},
		{"/stats", "/stats"},
		{"/quiz Algebra 101", "/quiz Algebra 101"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			msg, ok := mapTelegramInbound(tgUpdate{Message: &tgMessage{Text: tt.in, Chat: tgChat{ID: 1}}})
			if !ok {
				t.Fatal("expected command to map")
			}
			if msg.Text != tt.want {
				t.Errorf("Text = %q, want %q", msg.Text, tt.want)
			}
		})
	}
}

func TestMapTelegramInbound_EmptyMessage(t *testing.T) {
	_, ok := mapTelegramInbound(tgUpdate{
		UpdateID: 4,
		Message: &tgMessage{
			Chat: tgChat{ID: 1},
			From: tgUser{ID: 2},
		},
	})
	if ok {
		t.Fatal("expected empty message to be ignored")
	}
	if _, ok := mapTelegramInbound(tgUpdate{UpdateID: 5}); ok {
		t.Fatal("expected update without message to be ignored")
	}
}

func TestMapTelegramInbound_ReplyCarriesQuotedText(t *testing.T) {
	msg, ok := mapTelegramInbound(tgUpdate{
		UpdateID: 5,
		Message: &tgMessage{
			Text:           "B",
			Chat:           tgChat{ID: 123},
			From:           tgUser{ID: 456},
			ReplyToMessage: &tgMessage{Text: "Which planet is largest?"},
		},
	})
	if !ok {
		t.Fatal("expected reply text update to map")
	}
	if msg.ReplyToText != "Which planet is largest?" {
		t.Fatalf("ReplyToText = %q, want the quoted question", msg.ReplyToText)
	}
}
