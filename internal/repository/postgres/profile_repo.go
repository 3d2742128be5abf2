package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id, full_name, avatar_url,
	COALESCE(notification_preferences, '{}'::jsonb)::text,
	COALESCE(privacy_settings, '{}'::jsonb)::text,
	COALESCE(feature_flags, '{}'::jsonb)::text,
	monthly_spending_range, is_open_to_new_card, additional_info,
	preferred_optimizations, preferred_categories,
	COALESCE(onboarding_completed, false), onboarding_completed_at,
	created_at, updated_at`

func (r *profileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepo) Insert(ctx context.Context, p *domain.Profile) error {
	notifications, privacy, flags, err := marshalPreferenceMaps(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (
			id, full_name, avatar_url,
			notification_preferences, privacy_settings, feature_flags,
			preferred_optimizations, preferred_categories,
			onboarding_completed, created_at, updated_at
		) VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		p.ID, p.FullName, p.AvatarURL,
		notifications, privacy, flags,
		pq.Array(nonNil(p.PreferredOptimizations)), pq.Array(nonNil(p.PreferredCategories)),
		p.OnboardingCompleted, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return domain.ErrUniqueViolation
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *profileRepo) UpdateDetails(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Profile, error) {
	var notifications, privacy, flags *string
	for _, pair := range []struct {
		src map[string]bool
		dst **string
	}{
		{update.NotificationPreferences, &notifications},
		{update.PrivacySettings, &privacy},
		{update.FeatureFlags, &flags},
	} {
		if pair.src == nil {
			continue
		}
		raw, err := json.Marshal(pair.src)
		if err != nil {
			return nil, fmt.Errorf("failed to encode profile settings: %w", err)
		}
		s := string(raw)
		*pair.dst = &s
	}

	// jsonb maps merge into the stored value; NULL arguments leave columns untouched.
	query := `
		UPDATE profiles SET
			full_name = COALESCE($2, full_name),
			avatar_url = COALESCE($3, avatar_url),
			notification_preferences = COALESCE(notification_preferences, '{}'::jsonb) || COALESCE($4::jsonb, '{}'::jsonb),
			privacy_settings = COALESCE(privacy_settings, '{}'::jsonb) || COALESCE($5::jsonb, '{}'::jsonb),
			feature_flags = COALESCE(feature_flags, '{}'::jsonb) || COALESCE($6::jsonb, '{}'::jsonb),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns

	profile, err := scanProfile(r.db.QueryRow(ctx, query, id, update.FullName, update.AvatarURL, notifications, privacy, flags))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// UpdateOnboarding writes every questionnaire field plus the completion flag in one statement.
func (r *profileRepo) UpdateOnboarding(ctx context.Context, id string, data domain.OnboardingData, completedAt time.Time) error {
	var spending *string
	if data.MonthlySpendingRange != nil {
		s := string(*data.MonthlySpendingRange)
		spending = &s
	}

	query := `
		UPDATE profiles SET
			monthly_spending_range = $2,
			preferred_optimizations = $3,
			preferred_categories = $4,
			is_open_to_new_card = $5,
			additional_info = $6,
			onboarding_completed = true,
			onboarding_completed_at = $7,
			updated_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		id, spending,
		pq.Array(nonNil(data.PreferredOptimizations)), pq.Array(nonNil(data.PreferredCategories)),
		data.IsOpenToNewCard, data.AdditionalInfo, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepo) ClearOnboarding(ctx context.Context, id string) error {
	query := `
		UPDATE profiles SET
			monthly_spending_range = NULL,
			preferred_optimizations = '{}',
			preferred_categories = '{}',
			is_open_to_new_card = NULL,
			additional_info = NULL,
			onboarding_completed = false,
			onboarding_completed_at = NULL,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear onboarding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p                             domain.Profile
		notifications, privacy, flags string
		spending                      *string
		optimizations, categories     []string
	)
	err := row.Scan(
		&p.ID, &p.FullName, &p.AvatarURL,
		&notifications, &privacy, &flags,
		&spending, &p.IsOpenToNewCard, &p.AdditionalInfo,
		pq.Array(&optimizations), pq.Array(&categories),
		&p.OnboardingCompleted, &p.OnboardingCompletedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.NotificationPreferences = decodeFlags(p.ID, "notification_preferences", notifications)
	p.PrivacySettings = decodeFlags(p.ID, "privacy_settings", privacy)
	p.FeatureFlags = decodeFlags(p.ID, "feature_flags", flags)
	p.PreferredOptimizations = nonNil(optimizations)
	p.PreferredCategories = nonNil(categories)

	if spending != nil {
		if r, ok := domain.ParseSpendingRange(*spending); ok {
			p.MonthlySpendingRange = &r
		} else {
			logger.Log.Warn("dropping unknown spending range", "user_id", p.ID, "value", *spending)
		}
	}
	return &p, nil
}

// decodeFlags keeps only boolean entries; anything else in the column is dropped.
func decodeFlags(userID, column, raw string) map[string]bool {
	out := map[string]bool{}
	var loose map[string]any
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		logger.Log.Warn("invalid profile settings column", "user_id", userID, "column", column, "error", err)
		return out
	}
	for k, v := range loose {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

func marshalPreferenceMaps(p *domain.Profile) (string, string, string, error) {
	encoded := make([]string, 3)
	for i, m := range []map[string]bool{p.NotificationPreferences, p.PrivacySettings, p.FeatureFlags} {
		if m == nil {
			m = map[string]bool{}
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to encode profile settings: %w", err)
		}
		encoded[i] = string(raw)
	}
	return encoded[0], encoded[1], encoded[2], nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
