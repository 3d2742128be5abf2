package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Relational store outcomes.
var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique violation")
)

// Identity and session outcomes.
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNetwork            = errors.New("network error")
	ErrProvider           = errors.New("identity provider error")
)

// ErrProfileCreationFailed is returned when a profile record could not be guaranteed
// before a dependent write.
var ErrProfileCreationFailed = errors.New("profile creation failed")

// ErrAggregationSource marks a context source that failed or timed out. Never returned by Build.
var ErrAggregationSource = errors.New("aggregation source failed")

type AuthErrorKind string

const (
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthNetwork            AuthErrorKind = "network_error"
	AuthProvider           AuthErrorKind = "provider_error"
)

// AuthError is what sign-in paths return. errors.Is matches the kind sentinels above.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func NewAuthError(kind AuthErrorKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Kind == AuthInvalidCredentials
	case ErrNetwork:
		return e.Kind == AuthNetwork
	case ErrProvider:
		return e.Kind == AuthProvider
	}
	return false
}

// ValidationError lists onboarding/card fields by their JSON names.
type ValidationError struct {
	MissingFields []string `json:"missing_fields"`
	InvalidFields []string `json:"invalid_fields,omitempty"`
	// Messages are user-facing, one per failed rule.
	Messages []string `json:"-"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.InvalidFields) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.InvalidFields, ", "))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns missing followed by invalid field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.MissingFields)+len(e.InvalidFields))
	out = append(out, e.MissingFields...)
	return append(out, e.InvalidFields...)
}
