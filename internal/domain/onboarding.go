package domain

import (
	"context"
	"encoding/json"
	"strings"
)

// SpendingRange is the monthly spend bracket chosen during onboarding.
type SpendingRange string

const (
	SpendingLessThan10k SpendingRange = "less_than_10k"
	Spending10kTo30k    SpendingRange = "10k_30k"
	Spending30kTo50k    SpendingRange = "30k_50k"
	Spending50kTo100k   SpendingRange = "50k_100k"
	SpendingMoreThan1L  SpendingRange = "more_than_100k"
)

var spendingRangeLabels = map[SpendingRange]string{
	SpendingLessThan10k: "Less than ₹10k",
	Spending10kTo30k:    "₹10-30k",
	Spending30kTo50k:    "₹30-50k",
	Spending50kTo100k:   "₹50k-1L",
	SpendingMoreThan1L:  "More than ₹1L",
}

// ValidSpendingRanges returns all valid ranges in ascending order
func ValidSpendingRanges() []SpendingRange {
	return []SpendingRange{SpendingLessThan10k, Spending10kTo30k, Spending30kTo50k, Spending50kTo100k, SpendingMoreThan1L}
}

func (r SpendingRange) IsValid() bool {
	_, ok := spendingRangeLabels[r]
	return ok
}

// Label is the UI wording ("₹10-30k"); unknown values are returned verbatim.
func (r SpendingRange) Label() string {
	if label, ok := spendingRangeLabels[r]; ok {
		return label
	}
	return string(r)
}

// ParseSpendingRange accepts either the stored key or the display label.
func ParseSpendingRange(s string) (SpendingRange, bool) {
	s = strings.TrimSpace(s)
	if r := SpendingRange(s); r.IsValid() {
		return r, true
	}
	for r, label := range spendingRangeLabels {
		if strings.EqualFold(label, s) {
			return r, true
		}
	}
	return "", false
}

// UnmarshalJSON normalizes labels to keys; unknown strings are kept so validation can name the field.
func (r *SpendingRange) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, ok := ParseSpendingRange(s); ok {
		*r = parsed
		return nil
	}
	*r = SpendingRange(s)
	return nil
}

// OnboardingData is the questionnaire submitted at the end of onboarding.
type OnboardingData struct {
	MonthlySpendingRange   *SpendingRange `json:"monthly_spending_range" validate:"required,spending_range"`
	PreferredOptimizations []string       `json:"preferred_optimizations" validate:"required,min=1,dive,required"`
	PreferredCategories    []string       `json:"preferred_categories" validate:"required,min=1,dive,required"`
	IsOpenToNewCard        *bool          `json:"is_open_to_new_card" validate:"required"`
	AdditionalInfo         *string        `json:"additional_info,omitempty" validate:"omitempty,max=1000"`
}

// OnboardingFlags are the device-scoped hints. They bias navigation and never gate functionality.
type OnboardingFlags struct {
	IsNewUser              bool `json:"is_new_user"`
	HasCompletedOnboarding bool `json:"has_completed_onboarding"`
}

type OnboardingChangeReason string

const (
	OnboardingMarked     OnboardingChangeReason = "marked"
	OnboardingCompleted  OnboardingChangeReason = "completed"
	OnboardingSkipped    OnboardingChangeReason = "skipped"
	OnboardingReconciled OnboardingChangeReason = "reconciled"
	OnboardingReset      OnboardingChangeReason = "reset"
	OnboardingCleared    OnboardingChangeReason = "cleared"
)

// OnboardingChange is published after every local flag write, in write order.
type OnboardingChange struct {
	Flags  OnboardingFlags        `json:"flags"`
	Reason OnboardingChangeReason `json:"reason"`
}

type OnboardingUsecase interface {
	IsNewUser() bool
	HasCompletedOnboarding() bool
	Flags() OnboardingFlags
	MarkNewUser(isNew bool)
	CompleteOnboarding(ctx context.Context, identity Identity, data OnboardingData) error
	SkipOnboarding()
	LoadRemoteOnboarding(ctx context.Context, identity Identity) (*OnboardingData, error)
	Reset(ctx context.Context, identity Identity) error
	ClearLocal()
}
