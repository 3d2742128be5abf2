package domain

import (
	"context"
	"time"
)

type CategorySpend struct {
	Category         string  `json:"category"`
	Amount           float64 `json:"amount"`
	TransactionCount int     `json:"transaction_count"`
	Percentage       float64 `json:"percentage"`
}

type MonthlySpend struct {
	Month            time.Time `json:"month"`
	Total            float64   `json:"total"`
	TransactionCount int       `json:"transaction_count"`
}

type Transaction struct {
	ID         string    `json:"id"`
	Amount     float64   `json:"amount"`
	Category   string    `json:"category"`
	Merchant   string    `json:"merchant"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SpendingInsights is empty (zero value) when the source failed or the user has no history.
type SpendingInsights struct {
	MonthlySummary []MonthlySpend  `json:"monthly_summary"`
	TopCategories  []CategorySpend `json:"top_categories"`
}

func (s SpendingInsights) IsEmpty() bool {
	return len(s.MonthlySummary) == 0 && len(s.TopCategories) == 0
}

// InsightsRepository wraps the named aggregate reads, treated as opaque remote procedures.
type InsightsRepository interface {
	MonthlySummary(ctx context.Context, userID string, since time.Time) ([]MonthlySpend, error)
	TopCategories(ctx context.Context, userID string, days int) ([]CategorySpend, error)
	RecentTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
