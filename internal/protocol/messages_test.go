package protocol

import (
	"errors"
	"testing"
)

func TestParseChatMessage(t *testing.T) {
	msg, err := ParseChatMessage([]byte(`{"message": "보험 가입 방법은?"}`))
	if err != nil {
		t.Fatalf("ParseChatMessage() error = %v", err)
	}
	if msg.Message != "보험 가입 방법은?" {
		t.Errorf("message = %q", msg.Message)
	}
}

func TestParseChatMessageRejectsEmpty(t *testing.T) {
	for _, raw := range []string{`{}`, `{"message": ""}`, `{"message": "   "}`} {
		if _, err := ParseChatMessage([]byte(raw)); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("ParseChatMessage(%s) error = %v, want ErrEmptyMessage", raw, err)
		}
	}
}

func TestParseChatMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseChatMessage([]byte(`{message`)); err == nil {
		t.Fatalf("ParseChatMessage() accepted malformed frame")
	}
}

func TestNewBotReply(t *testing.T) {
	reply := NewBotReply("답변")
	if reply.Sender != SenderBot {
		t.Errorf("sender = %q, want %q", reply.Sender, SenderBot)
	}
	if reply.Message != "답변" {
		t.Errorf("message = %q", reply.Message)
	}
}
