package domain

import "context"

// Subjects published for other device-local consumers.
const (
	SubjectSessionChanged      = "session.changed"
	SubjectProfileCreated      = "profile.created"
	SubjectOnboardingCompleted = "onboarding.completed"
)

type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
