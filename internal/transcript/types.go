package transcript

import (
	"context"
	"time"
)

// Exchange records one answered question, from either channel.
type Exchange struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	AudioFile string    `json:"audio_file,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ChannelCall = "call"
	ChannelChat = "chat"
)

// Store persists and retrieves answered exchanges.
type Store interface {
	SaveExchange(ctx context.Context, ex Exchange) error
	Recent(ctx context.Context, limit int) ([]Exchange, error)
	Close() error
}
