package postgres

import (
	"context"
	"fmt"

	"card-assistant-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type conversationRepo struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) domain.ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Insert(ctx context.Context, c *domain.Conversation) error {
	query := `INSERT INTO conversations (id, user_id, title, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, c.ID, c.UserID, c.Title, c.CreatedAt)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("conversation owner has no profile: %w", domain.ErrProfileCreationFailed)
		}
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}
