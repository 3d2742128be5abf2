package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps JSON field names to user-facing labels
var FieldLabels = map[string]string{
	// Onboarding
	"monthly_spending_range":  "Monthly spending",
	"preferred_optimizations": "What to optimize for",
	"preferred_categories":    "Top spending categories",
	"is_open_to_new_card":     "Open to a new card",
	"additional_info":         "Anything else",

	// Cards
	"name":         "Card name",
	"card_type":    "Card type",
	"network":      "Network",
	"issuer":       "Issuer",
	"category":     "Category",
	"credit_limit": "Credit limit",
	"annual_fee":   "Annual fee",
	"benefits":     "Benefits",

	// Profile
	"full_name":  "Display name",
	"avatar_url": "Avatar",
}

// SplitFieldErrors separates absent fields from present-but-invalid ones.
// Names are JSON names without element indexes, de-duplicated and sorted.
func SplitFieldErrors(err error) (missing, invalid []string, ok bool) {
	validationErrors, isValidation := err.(validator.ValidationErrors)
	if !isValidation {
		return nil, nil, false
	}

	missingSet := map[string]bool{}
	invalidSet := map[string]bool{}
	for _, e := range validationErrors {
		field, indexed := baseField(e.Field())
		switch {
		case !indexed && (e.Tag() == "required" || (e.Tag() == "min" && isEmptyCollection(e))):
			missingSet[field] = true
		default:
			invalidSet[field] = true
		}
	}
	for f := range missingSet {
		delete(invalidSet, f)
	}
	return sortedKeys(missingSet), sortedKeys(invalidSet), true
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	field, _ := baseField(e.Field())
	label := getFieldLabel(field)
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: required", label)
	case "min":
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: choose at least %s", label, param)
		}
		return fmt.Sprintf("%s: must be at least %s", label, param)
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: at most %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at most %s", label, param)
	case "gte":
		return fmt.Sprintf("%s: must be %s or more", label, param)
	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	case "url":
		return fmt.Sprintf("%s: must be a valid URL", label)
	case "spending_range":
		return fmt.Sprintf("%s: unknown spending range", label)
	case "valid_name":
		return fmt.Sprintf("%s: only letters, spaces and common punctuation", label)
	default:
		return fmt.Sprintf("%s: invalid (%s)", label, e.Tag())
	}
}

func getFieldLabel(field string) string {
	if label, ok := FieldLabels[field]; ok {
		return label
	}
	return strings.ReplaceAll(field, "_", " ")
}

// baseField strips "[0]" element suffixes produced by dive.
func baseField(name string) (string, bool) {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i], true
	}
	return name, false
}

func isEmptyCollection(e validator.FieldError) bool {
	switch e.Kind().String() {
	case "slice", "map", "array":
		return true
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
