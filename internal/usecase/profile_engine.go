package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/logger"
	"card-assistant-backend/pkg/security"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// ProfileEngine guarantees a profile row exists for an identity before anything references it.
//
// Ensure is safe to call from any number of goroutines: calls for the same identity share one
// in-flight attempt, and a unique violation on insert means another writer created the row first.
type ProfileEngine struct {
	repo     domain.ProfileRepository
	events   domain.EventPublisher
	audit    *security.AuditLogger
	validate *validator.Validate
	inflight singleflight.Group
	now      func() time.Time
}

var _ domain.ProfileUsecase = (*ProfileEngine)(nil)

func NewProfileEngine(repo domain.ProfileRepository, events domain.EventPublisher, audit *security.AuditLogger, validate *validator.Validate) *ProfileEngine {
	if events == nil {
		events = domain.NoopPublisher{}
	}
	if audit == nil {
		audit = security.NopAuditLogger()
	}
	return &ProfileEngine{
		repo:     repo,
		events:   events,
		audit:    audit,
		validate: validate,
		now:      time.Now,
	}
}

// HintsFromIdentity picks profile defaults out of provider metadata.
func HintsFromIdentity(identity domain.Identity) domain.ProfileHints {
	return domain.ProfileHints{
		Name:      firstNonEmpty(identity.Metadata.FullName, identity.Metadata.Name),
		Email:     identity.Email,
		AvatarURL: firstNonEmpty(identity.Metadata.AvatarURL, identity.Metadata.Picture),
	}
}

func (e *ProfileEngine) Ensure(ctx context.Context, identity domain.Identity, hints domain.ProfileHints) error {
	if identity.IsZero() {
		return fmt.Errorf("%w: identity has no id", domain.ErrProfileCreationFailed)
	}

	// The shared attempt must not die with whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	ch := e.inflight.DoChan(identity.ID, func() (any, error) {
		attemptCtx, cancel := context.WithTimeout(shared, ensureTimeout)
		defer cancel()
		return nil, e.ensure(attemptCtx, identity, hints)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrProfileCreationFailed, ctx.Err())
	}
}

func (e *ProfileEngine) ensure(ctx context.Context, identity domain.Identity, hints domain.ProfileHints) error {
	ctx, span := tracer.Start(ctx, "ProfileEngine.Ensure", trace.WithAttributes(attribute.String("user.id", identity.ID)))
	defer span.End()

	existing, err := e.repo.GetByID(ctx, identity.ID)
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("%w: %w", domain.ErrProfileCreationFailed, err)
	}
	if existing != nil {
		return nil
	}

	profile := e.defaultProfile(identity, hints)
	err = e.repo.Insert(ctx, profile)
	if errors.Is(err, domain.ErrUniqueViolation) {
		logger.Log.Debug("profile created concurrently", "user_id", identity.ID)
		span.SetAttributes(attribute.Bool("profile.raced", true))
		return nil
	}
	if err != nil {
		recordSpanError(span, err)
		logger.Log.Error("failed to create profile", "user_id", identity.ID, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrProfileCreationFailed, err)
	}

	span.SetAttributes(attribute.Bool("profile.created", true))
	logger.Log.Info("profile created", "user_id", identity.ID)
	e.audit.Info(security.AuditProfileCreated, identity.ID, identity.Email)
	if err := e.events.Publish(ctx, domain.SubjectProfileCreated, map[string]string{"user_id": identity.ID}); err != nil {
		logger.Log.Warn("failed to publish profile creation", "user_id", identity.ID, "error", err)
	}
	return nil
}

// Require is the gate in front of every write that references the profile. It retries once.
func (e *ProfileEngine) Require(ctx context.Context, identity domain.Identity) error {
	hints := HintsFromIdentity(identity)
	err := e.Ensure(ctx, identity, hints)
	if err == nil {
		return nil
	}
	logger.Log.Warn("profile ensure failed, retrying", "user_id", identity.ID, "error", err)
	return e.Ensure(ctx, identity, hints)
}

func (e *ProfileEngine) Get(ctx context.Context, identity domain.Identity) (*domain.Profile, error) {
	profile, err := e.repo.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}

func (e *ProfileEngine) UpdateDetails(ctx context.Context, identity domain.Identity, update domain.ProfileUpdate) (*domain.Profile, error) {
	if err := validateStruct(e.validate, update); err != nil {
		return nil, err
	}
	if err := e.Require(ctx, identity); err != nil {
		return nil, err
	}
	return e.repo.UpdateDetails(ctx, identity.ID, update)
}

func (e *ProfileEngine) defaultProfile(identity domain.Identity, hints domain.ProfileHints) *domain.Profile {
	email := firstNonEmpty(identity.Email, hints.Email)
	localPart := (domain.Identity{Email: email}).EmailLocalPart()

	now := e.now().UTC()
	profile := &domain.Profile{
		ID:                      identity.ID,
		NotificationPreferences: map[string]bool{},
		PrivacySettings:         map[string]bool{},
		FeatureFlags:            map[string]bool{},
		PreferredOptimizations:  []string{},
		PreferredCategories:     []string{},
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if name := firstNonEmpty(hints.Name, identity.Metadata.FullName, identity.Metadata.Name, localPart); name != "" {
		profile.FullName = &name
	}
	if avatar := firstNonEmpty(hints.AvatarURL, identity.Metadata.AvatarURL, identity.Metadata.Picture); avatar != "" {
		profile.AvatarURL = &avatar
	}
	return profile
}
