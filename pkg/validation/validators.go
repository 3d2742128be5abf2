package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// spendingRanges mirrors the stored onboarding bracket keys.
var spendingRanges = map[string]bool{
	"less_than_10k":  true,
	"10k_30k":        true,
	"30k_50k":        true,
	"50k_100k":       true,
	"more_than_100k": true,
}

// Allow letters, numbers, spaces, and common punctuation in display names
var nameRegex = regexp.MustCompile(`^[\p{L}0-9 .'/&(),-]+$`)

// New returns a validator that reports JSON field names and knows the custom tags below.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonTagName)
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("spending_range", SpendingRange)
	_ = v.RegisterValidation("valid_name", ValidName)
}

// SpendingRange accepts only the known monthly spend brackets.
func SpendingRange(fl validator.FieldLevel) bool {
	return spendingRanges[fl.Field().String()]
}

// ValidName validates that a string contains only valid name characters
func ValidName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return nameRegex.MatchString(val)
}

func jsonTagName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}
