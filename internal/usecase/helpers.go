package usecase

import (
	"strings"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// validateStruct turns validator failures into a *domain.ValidationError keyed by JSON field names.
func validateStruct(v *validator.Validate, s any) error {
	if v == nil {
		v = validation.New()
	}
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	missing, invalid, ok := validation.SplitFieldErrors(err)
	if !ok {
		return err
	}
	return &domain.ValidationError{
		MissingFields: missing,
		InvalidFields: invalid,
		Messages:      validation.FormatValidationErrors(err),
	}
}
