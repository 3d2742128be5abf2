package postgres

import (
	"context"
	"fmt"
	"time"

	"card-assistant-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// insightsRepo calls the aggregate functions installed alongside the transactions table.
// Their bodies are owned by the database; only the result columns are relied on here.
type insightsRepo struct {
	db *pgxpool.Pool
}

func NewInsightsRepository(db *pgxpool.Pool) domain.InsightsRepository {
	return &insightsRepo{db: db}
}

func (r *insightsRepo) MonthlySummary(ctx context.Context, userID string, since time.Time) ([]domain.MonthlySpend, error) {
	rows, err := r.db.Query(ctx,
		`SELECT month, total_amount, transaction_count FROM get_monthly_summary($1, $2)`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to call get_monthly_summary: %w", err)
	}
	defer rows.Close()

	out := []domain.MonthlySpend{}
	for rows.Next() {
		var m domain.MonthlySpend
		if err := rows.Scan(&m.Month, &m.Total, &m.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly summary: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly summary: %w", err)
	}
	return out, nil
}

func (r *insightsRepo) TopCategories(ctx context.Context, userID string, days int) ([]domain.CategorySpend, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, total_amount, transaction_count, percentage FROM get_top_categories($1, $2)`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to call get_top_categories: %w", err)
	}
	defer rows.Close()

	out := []domain.CategorySpend{}
	for rows.Next() {
		var c domain.CategorySpend
		if err := rows.Scan(&c.Category, &c.Amount, &c.TransactionCount, &c.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan top category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top categories: %w", err)
	}
	return out, nil
}

func (r *insightsRepo) RecentTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, amount, COALESCE(category, ''), COALESCE(merchant, ''), occurred_at
		 FROM get_recent_transactions($1, $2)`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to call get_recent_transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Amount, &t.Category, &t.Merchant, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}
