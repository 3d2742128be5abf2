package postgres

import (
	"context"
	"fmt"

	"card-assistant-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type cardRepo struct {
	db *pgxpool.Pool
}

func NewCardRepository(db *pgxpool.Pool) domain.CardRepository {
	return &cardRepo{db: db}
}

func (r *cardRepo) ListByUser(ctx context.Context, userID string) ([]domain.Card, error) {
	query := `
		SELECT id, user_id, name, card_type, network, issuer, category,
		       credit_limit, annual_fee, benefits, COALESCE(is_primary, false), created_at
		FROM user_cards
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.CardType, &c.Network, &c.Issuer, &c.Category,
			&c.CreditLimit, &c.AnnualFee, &c.Benefits, &c.IsPrimary, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

func (r *cardRepo) Insert(ctx context.Context, c *domain.Card) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if c.IsPrimary {
		if _, err := tx.Exec(ctx, `UPDATE user_cards SET is_primary = false WHERE user_id = $1 AND is_primary`, c.UserID); err != nil {
			return fmt.Errorf("failed to clear primary card: %w", err)
		}
	}

	query := `
		INSERT INTO user_cards (
			id, user_id, name, card_type, network, issuer, category,
			credit_limit, annual_fee, benefits, is_primary, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.UserID, c.Name, c.CardType, c.Network, c.Issuer, c.Category,
		c.CreditLimit, c.AnnualFee, c.Benefits, c.IsPrimary, c.CreatedAt,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("card owner has no profile: %w", domain.ErrProfileCreationFailed)
		}
		return fmt.Errorf("failed to insert card: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit card insert: %w", err)
	}
	return nil
}
