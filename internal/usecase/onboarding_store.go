package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/logger"
	"card-assistant-backend/pkg/pubsub"
	"card-assistant-backend/pkg/security"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	onboardingFlagsKey = "onboarding.flags"
	localWriteTimeout  = 2 * time.Second
)

// OnboardingStore keeps the device-local onboarding hints next to the remote questionnaire.
// Reads come from an in-memory mirror of the local cache and never touch the network.
// Local flags only claim completion after the remote row does.
type OnboardingStore struct {
	repo     domain.ProfileRepository
	profiles domain.ProfileUsecase
	local    domain.LocalStore
	validate *validator.Validate
	events   domain.EventPublisher
	audit    *security.AuditLogger
	now      func() time.Time

	mu    sync.RWMutex
	flags domain.OnboardingFlags
	topic *pubsub.Topic[domain.OnboardingChange]

	persistMu sync.Mutex
}

var _ domain.OnboardingUsecase = (*OnboardingStore)(nil)

type OnboardingStoreConfig struct {
	Repo     domain.ProfileRepository
	Profiles domain.ProfileUsecase
	Local    domain.LocalStore
	Validate *validator.Validate
	Events   domain.EventPublisher
	Audit    *security.AuditLogger
}

// NewOnboardingStore loads the cached flags. An unreadable cache starts from zero flags.
func NewOnboardingStore(ctx context.Context, cfg OnboardingStoreConfig) *OnboardingStore {
	if cfg.Events == nil {
		cfg.Events = domain.NoopPublisher{}
	}
	if cfg.Audit == nil {
		cfg.Audit = security.NopAuditLogger()
	}
	s := &OnboardingStore{
		repo:     cfg.Repo,
		profiles: cfg.Profiles,
		local:    cfg.Local,
		validate: cfg.Validate,
		events:   cfg.Events,
		audit:    cfg.Audit,
		now:      time.Now,
		topic:    pubsub.NewTopic[domain.OnboardingChange](),
	}

	raw, err := cfg.Local.Get(ctx, onboardingFlagsKey)
	switch {
	case err != nil:
		logger.Log.Warn("failed to load onboarding flags", "error", err)
	case raw != nil:
		if err := json.Unmarshal(raw, &s.flags); err != nil {
			logger.Log.Warn("discarding corrupt onboarding flags", "error", err)
			s.flags = domain.OnboardingFlags{}
		}
	}
	return s
}

func (s *OnboardingStore) IsNewUser() bool {
	return s.Flags().IsNewUser
}

func (s *OnboardingStore) HasCompletedOnboarding() bool {
	return s.Flags().HasCompletedOnboarding
}

func (s *OnboardingStore) Flags() domain.OnboardingFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Subscribe delivers the current flags, then every later change.
func (s *OnboardingStore) Subscribe() *pubsub.Subscription[domain.OnboardingChange] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topic.Subscribe(domain.OnboardingChange{Flags: s.flags, Reason: domain.OnboardingReconciled})
}

func (s *OnboardingStore) Close() {
	s.topic.Close()
}

func (s *OnboardingStore) MarkNewUser(isNew bool) {
	s.update(domain.OnboardingMarked, func(f *domain.OnboardingFlags) {
		f.IsNewUser = isNew
	})
}

// CompleteOnboarding validates, writes the questionnaire remotely in one update, and only then
// flips the local flags.
func (s *OnboardingStore) CompleteOnboarding(ctx context.Context, identity domain.Identity, data domain.OnboardingData) error {
	if err := validateStruct(s.validate, data); err != nil {
		return err
	}
	if identity.IsZero() {
		return domain.ErrNotAuthenticated
	}

	ctx, span := tracer.Start(ctx, "OnboardingStore.CompleteOnboarding", trace.WithAttributes(attribute.String("user.id", identity.ID)))
	defer span.End()

	if s.profiles != nil {
		if err := s.profiles.Require(ctx, identity); err != nil {
			recordSpanError(span, err)
			return err
		}
	}

	completedAt := s.now().UTC()
	if err := s.repo.UpdateOnboarding(ctx, identity.ID, data, completedAt); err != nil {
		recordSpanError(span, err)
		logger.Log.Error("failed to save onboarding", "user_id", identity.ID, "error", err)
		return fmt.Errorf("failed to save onboarding: %w", err)
	}

	s.update(domain.OnboardingCompleted, func(f *domain.OnboardingFlags) {
		f.IsNewUser = false
		f.HasCompletedOnboarding = true
	})

	if err := s.events.Publish(ctx, domain.SubjectOnboardingCompleted, map[string]any{
		"user_id":      identity.ID,
		"completed_at": completedAt,
	}); err != nil {
		logger.Log.Warn("failed to publish onboarding completion", "user_id", identity.ID, "error", err)
	}
	return nil
}

// SkipOnboarding leaves the remote row alone; the user can still complete it later.
func (s *OnboardingStore) SkipOnboarding() {
	s.update(domain.OnboardingSkipped, func(f *domain.OnboardingFlags) {
		f.IsNewUser = false
	})
}

// LoadRemoteOnboarding reads the stored questionnaire and makes the local flags agree with it.
// Returns nil when nothing has been saved.
func (s *OnboardingStore) LoadRemoteOnboarding(ctx context.Context, identity domain.Identity) (*domain.OnboardingData, error) {
	if identity.IsZero() {
		return nil, domain.ErrNotAuthenticated
	}
	profile, err := s.repo.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding: %w", err)
	}

	remoteComplete := profile != nil && profile.OnboardingCompleted
	current := s.Flags()
	if current.HasCompletedOnboarding != remoteComplete || (remoteComplete && current.IsNewUser) {
		logger.Log.Info("reconciling onboarding flags with remote",
			"user_id", identity.ID, "local_completed", current.HasCompletedOnboarding, "remote_completed", remoteComplete)
		s.update(domain.OnboardingReconciled, func(f *domain.OnboardingFlags) {
			f.HasCompletedOnboarding = remoteComplete
			if remoteComplete {
				f.IsNewUser = false
			}
		})
	}
	return profile.Onboarding(), nil
}

// Reset clears the remote questionnaire, then re-marks the device as a new, unonboarded user
// (isNewUser=true, completed=false) so the questionnaire is offered again. Local flags are left
// untouched when the remote clear fails. Only for explicit account resets.
func (s *OnboardingStore) Reset(ctx context.Context, identity domain.Identity) error {
	if identity.IsZero() {
		return domain.ErrNotAuthenticated
	}
	if err := s.repo.ClearOnboarding(ctx, identity.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to reset onboarding: %w", err)
	}
	s.update(domain.OnboardingReset, func(f *domain.OnboardingFlags) {
		f.IsNewUser = true
		f.HasCompletedOnboarding = false
	})
	s.audit.Info(security.AuditOnboardingReset, identity.ID, identity.Email)
	return nil
}

// ClearLocal forgets the device flags, e.g. on logout.
func (s *OnboardingStore) ClearLocal() {
	s.update(domain.OnboardingCleared, func(f *domain.OnboardingFlags) {
		*f = domain.OnboardingFlags{}
	})
}

func (s *OnboardingStore) update(reason domain.OnboardingChangeReason, mutate func(*domain.OnboardingFlags)) {
	s.mu.Lock()
	mutate(&s.flags)
	s.topic.Publish(domain.OnboardingChange{Flags: s.flags, Reason: reason})
	s.mu.Unlock()

	s.persist()
}

// persist always writes the latest flags, so concurrent updates cannot leave an older value on disk.
func (s *OnboardingStore) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	raw, err := json.Marshal(s.Flags())
	if err != nil {
		logger.Log.Warn("failed to encode onboarding flags", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), localWriteTimeout)
	defer cancel()
	if err := s.local.Set(ctx, onboardingFlagsKey, raw); err != nil {
		logger.Log.Warn("failed to persist onboarding flags", "error", err)
	}
}
