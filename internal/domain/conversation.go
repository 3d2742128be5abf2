package domain

import (
	"context"
	"time"
)

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationRepository interface {
	Insert(ctx context.Context, conversation *Conversation) error
}

// Answer is the personalization service reply.
type Answer struct {
	Text           string `json:"answer"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// PersonalizationClient is the external AI answering service.
type PersonalizationClient interface {
	Ask(ctx context.Context, question string, payload ExternalContextPayload) (*Answer, error)
}

type ChatUsecase interface {
	StartConversation(ctx context.Context, identity Identity, title string) (*Conversation, error)
	Ask(ctx context.Context, identity Identity, question string) (*Answer, error)
}
