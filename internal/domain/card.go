package domain

import (
	"context"
	"time"
)

type Card struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	CardType    string    `json:"card_type"`
	Network     string    `json:"network"`
	Issuer      string    `json:"issuer"`
	Category    *string   `json:"category,omitempty"`
	CreditLimit *float64  `json:"credit_limit,omitempty"`
	AnnualFee   *float64  `json:"annual_fee,omitempty"`
	Benefits    *string   `json:"benefits,omitempty"`
	IsPrimary   bool      `json:"is_primary"`
	CreatedAt   time.Time `json:"created_at"`
}

// CardInput is what the UI submits when saving a card.
type CardInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	CardType    string   `json:"card_type" validate:"required,oneof=credit debit"`
	Network     string   `json:"network" validate:"required,oneof=visa mastercard rupay amex diners"`
	Issuer      string   `json:"issuer" validate:"required,max=100"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	CreditLimit *float64 `json:"credit_limit" validate:"omitempty,gte=0"`
	AnnualFee   *float64 `json:"annual_fee" validate:"omitempty,gte=0"`
	Benefits    *string  `json:"benefits" validate:"omitempty,max=2000"`
	IsPrimary   bool     `json:"is_primary"`
}

type CardRepository interface {
	ListByUser(ctx context.Context, userID string) ([]Card, error)
	// Insert clears other primaries for the user when card.IsPrimary is set.
	Insert(ctx context.Context, card *Card) error
}

type CardUsecase interface {
	ListCards(ctx context.Context, identity Identity) ([]Card, error)
	AddCard(ctx context.Context, identity Identity, input CardInput) (*Card, error)
}
