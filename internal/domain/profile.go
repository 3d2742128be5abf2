package domain

import (
	"context"
	"time"
)

// Profile is the single persisted row per identity; cards and conversations reference it.
type Profile struct {
	ID                      string          `json:"id"`
	FullName                *string         `json:"full_name,omitempty"`
	AvatarURL               *string         `json:"avatar_url,omitempty"`
	NotificationPreferences map[string]bool `json:"notification_preferences"`
	PrivacySettings         map[string]bool `json:"privacy_settings"`
	FeatureFlags            map[string]bool `json:"feature_flags"`

	// Onboarding questionnaire
	MonthlySpendingRange   *SpendingRange `json:"monthly_spending_range,omitempty"`
	IsOpenToNewCard        *bool          `json:"is_open_to_new_card,omitempty"`
	AdditionalInfo         *string        `json:"additional_info,omitempty"`
	PreferredOptimizations []string       `json:"preferred_optimizations"`
	PreferredCategories    []string       `json:"preferred_categories"`
	OnboardingCompleted    bool           `json:"onboarding_completed"`
	OnboardingCompletedAt  *time.Time     `json:"onboarding_completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Onboarding returns the stored questionnaire, or nil when nothing was ever saved.
func (p *Profile) Onboarding() *OnboardingData {
	if p == nil {
		return nil
	}
	if p.MonthlySpendingRange == nil && p.IsOpenToNewCard == nil && p.AdditionalInfo == nil &&
		len(p.PreferredOptimizations) == 0 && len(p.PreferredCategories) == 0 {
		return nil
	}
	return &OnboardingData{
		MonthlySpendingRange:   p.MonthlySpendingRange,
		PreferredOptimizations: append([]string(nil), p.PreferredOptimizations...),
		PreferredCategories:    append([]string(nil), p.PreferredCategories...),
		IsOpenToNewCard:        p.IsOpenToNewCard,
		AdditionalInfo:         p.AdditionalInfo,
	}
}

// HasCompleteOnboarding reports whether every questionnaire field the assistant relies on is present.
func (p *Profile) HasCompleteOnboarding() bool {
	if p == nil {
		return false
	}
	return p.OnboardingCompleted && p.MonthlySpendingRange != nil && p.IsOpenToNewCard != nil &&
		len(p.PreferredOptimizations) > 0 && len(p.PreferredCategories) > 0
}

// ProfileHints seed a default profile on first ensure.
type ProfileHints struct {
	Name      string
	Email     string
	AvatarURL string
}

// ProfileUpdate is a partial edit; nil fields are left untouched.
type ProfileUpdate struct {
	FullName                *string         `json:"full_name" validate:"omitempty,min=1,max=120,valid_name"`
	AvatarURL               *string         `json:"avatar_url" validate:"omitempty,url"`
	NotificationPreferences map[string]bool `json:"notification_preferences"`
	PrivacySettings         map[string]bool `json:"privacy_settings"`
	FeatureFlags            map[string]bool `json:"feature_flags"`
}

type ProfileRepository interface {
	// GetByID returns (nil, nil) when no profile exists.
	GetByID(ctx context.Context, id string) (*Profile, error)
	// Insert returns ErrUniqueViolation when the row already exists.
	Insert(ctx context.Context, profile *Profile) error
	UpdateDetails(ctx context.Context, id string, update ProfileUpdate) (*Profile, error)
	UpdateOnboarding(ctx context.Context, id string, data OnboardingData, completedAt time.Time) error
	ClearOnboarding(ctx context.Context, id string) error
}

type ProfileUsecase interface {
	Ensure(ctx context.Context, identity Identity, hints ProfileHints) error
	Require(ctx context.Context, identity Identity) error
	Get(ctx context.Context, identity Identity) (*Profile, error)
	UpdateDetails(ctx context.Context, identity Identity, update ProfileUpdate) (*Profile, error)
}
