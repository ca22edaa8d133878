package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SenderBot labels outbound chat frames.
const SenderBot = "bot"

var ErrEmptyMessage = errors.New("chat message is empty")

// ChatMessage is the inbound chat-widget frame.
type ChatMessage struct {
	Message string `json:"message"`
}

// BotReply is the outbound chat-widget frame.
type BotReply struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

func NewBotReply(message string) BotReply {
	return BotReply{Sender: SenderBot, Message: message}
}

// ParseChatMessage decodes and validates an inbound frame.
func ParseChatMessage(raw []byte) (ChatMessage, error) {
	var msg ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ChatMessage{}, fmt.Errorf("invalid chat frame: %w", err)
	}
	if strings.TrimSpace(msg.Message) == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	return msg, nil
}
