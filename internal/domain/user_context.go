package domain

import (
	"context"
	"time"
)

// Context sources, used in logs and UserContext.FailedSources.
const (
	SourceProfile      = "profile"
	SourceCards        = "cards"
	SourceInsights     = "insights"
	SourceTransactions = "transactions"
)

// UserContext is rebuilt on every request and never merged across identities.
type UserContext struct {
	UserID             string           `json:"user_id"`
	Profile            *Profile         `json:"profile,omitempty"`
	Cards              []Card           `json:"cards"`
	Insights           SpendingInsights `json:"insights"`
	RecentTransactions []Transaction    `json:"recent_transactions"`
	GeneratedAt        time.Time        `json:"generated_at"`
	// Complete is false when any source fell back to its empty value.
	Complete      bool     `json:"complete"`
	FailedSources []string `json:"failed_sources,omitempty"`
}

// PrimaryCard returns the card flagged primary, else the first card.
func (c UserContext) PrimaryCard() *Card {
	for i := range c.Cards {
		if c.Cards[i].IsPrimary {
			return &c.Cards[i]
		}
	}
	if len(c.Cards) > 0 {
		return &c.Cards[0]
	}
	return nil
}

// ExternalContextPayload is the compatibility surface consumed by the personalization service.
// Field names and nesting must not change.
type ExternalContextPayload struct {
	UserProfile      *PayloadUserProfile `json:"user_profile,omitempty"`
	OwnedCards       []PayloadCard       `json:"owned_cards"`
	SpendingPatterns []PayloadSpending   `json:"spending_patterns"`
	RecentActivity   PayloadActivity     `json:"recent_activity"`
	ContextMetadata  PayloadMetadata     `json:"context_metadata"`
}

type PayloadUserProfile struct {
	MonthlySpendingRange   string   `json:"monthly_spending_range,omitempty"`
	PreferredOptimizations []string `json:"preferred_optimizations"`
	PreferredCategories    []string `json:"preferred_categories"`
	IsOpenToNewCard        *bool    `json:"is_open_to_new_card,omitempty"`
	AdditionalInfo         *string  `json:"additional_info,omitempty"`
}

type PayloadCard struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Network     string  `json:"network"`
	Issuer      string  `json:"issuer"`
	Category    string  `json:"category"`
	CreditLimit float64 `json:"credit_limit"`
	AnnualFee   float64 `json:"annual_fee"`
	Benefits    string  `json:"benefits"`
	IsPrimary   bool    `json:"is_primary"`
}

type PayloadSpending struct {
	Category         string  `json:"category"`
	Amount           float64 `json:"amount"`
	TransactionCount int     `json:"transaction_count"`
	Percentage       float64 `json:"percentage"`
}

type PayloadActivity struct {
	HasRecentTransactions  bool `json:"has_recent_transactions"`
	TransactionCountLast10 int  `json:"transaction_count_last_10"`
}

type PayloadMetadata struct {
	GeneratedAt        time.Time `json:"generated_at"`
	CardsCount         int       `json:"cards_count"`
	HasCompleteProfile bool      `json:"has_complete_profile"`
}

type ContextUsecase interface {
	Build(ctx context.Context, identity Identity) UserContext
	Format(uc UserContext) ExternalContextPayload
	Summarize(uc UserContext) string
}
