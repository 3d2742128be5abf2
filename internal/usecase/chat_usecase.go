package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultConversationTitle = "New conversation"
	maxConversationTitle     = 120
	maxQuestionLength        = 4000
)

type chatUsecase struct {
	conversations domain.ConversationRepository
	profiles      domain.ProfileUsecase
	context       domain.ContextUsecase
	assistant     domain.PersonalizationClient
}

func NewChatUsecase(conversations domain.ConversationRepository, profiles domain.ProfileUsecase, contextUC domain.ContextUsecase, assistant domain.PersonalizationClient) domain.ChatUsecase {
	return &chatUsecase{
		conversations: conversations,
		profiles:      profiles,
		context:       contextUC,
		assistant:     assistant,
	}
}

func (u *chatUsecase) StartConversation(ctx context.Context, identity domain.Identity, title string) (*domain.Conversation, error) {
	if identity.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}
	if utf8.RuneCountInString(title) > maxConversationTitle {
		title = string([]rune(title)[:maxConversationTitle])
	}

	if err := u.profiles.Require(ctx, identity); err != nil {
		return nil, err
	}

	conversation := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    identity.ID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.conversations.Insert(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// Ask forwards the question with whatever context could be gathered; missing sources never block it.
func (u *chatUsecase) Ask(ctx context.Context, identity domain.Identity, question string) (*domain.Answer, error) {
	if identity.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &domain.ValidationError{MissingFields: []string{"question"}}
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		return nil, &domain.ValidationError{InvalidFields: []string{"question"}}
	}

	uc := u.context.Build(ctx, identity)
	if !uc.Complete {
		logger.Log.Info("asking with partial context", "user_id", identity.ID, "failed_sources", uc.FailedSources)
	}
	return u.assistant.Ask(ctx, question, u.context.Format(uc))
}
