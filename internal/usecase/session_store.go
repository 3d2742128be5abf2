package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/bg"
	"card-assistant-backend/pkg/logger"
	"card-assistant-backend/pkg/pubsub"
	"card-assistant-backend/pkg/security"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	refreshTokenKey = "session.refresh_token"
	ensureTimeout   = 15 * time.Second
)

type SessionStoreConfig struct {
	Provider    domain.IdentityProvider
	Verifier    domain.TokenVerifier
	Local       domain.LocalStore
	States      domain.OAuthStateStore
	Profiles    domain.ProfileUsecase
	Events      domain.EventPublisher
	Audit       *security.AuditLogger
	Runner      bg.Runner
	RedirectURL string
	StateTTL    time.Duration
}

// SessionStore owns the single current identity of this device and publishes every change.
type SessionStore struct {
	provider    domain.IdentityProvider
	verifier    domain.TokenVerifier
	local       domain.LocalStore
	states      domain.OAuthStateStore
	profiles    domain.ProfileUsecase
	events      domain.EventPublisher
	audit       *security.AuditLogger
	runner      bg.Runner
	redirectURL string
	stateTTL    time.Duration

	mu       sync.Mutex
	session  *domain.Session
	snapshot domain.SessionSnapshot
	topic    *pubsub.Topic[domain.SessionSnapshot]
}

var _ domain.SessionUsecase = (*SessionStore)(nil)

func NewSessionStore(cfg SessionStoreConfig) *SessionStore {
	if cfg.Events == nil {
		cfg.Events = domain.NoopPublisher{}
	}
	if cfg.Audit == nil {
		cfg.Audit = security.NopAuditLogger()
	}
	if cfg.Runner == nil {
		cfg.Runner = bg.Async{}
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	return &SessionStore{
		provider:    cfg.Provider,
		verifier:    cfg.Verifier,
		local:       cfg.Local,
		states:      cfg.States,
		profiles:    cfg.Profiles,
		events:      cfg.Events,
		audit:       cfg.Audit,
		runner:      cfg.Runner,
		redirectURL: cfg.RedirectURL,
		stateTTL:    cfg.StateTTL,
		topic:       pubsub.NewTopic[domain.SessionSnapshot](),
	}
}

func (s *SessionStore) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *SessionStore) Current() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.Identity{}, false
	}
	return s.session.Identity, true
}

// Subscribe delivers the current snapshot first when it is already resolved, then every change in order.
func (s *SessionStore) Subscribe() *pubsub.Subscription[domain.SessionSnapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Resolved {
		return s.topic.Subscribe(s.snapshot)
	}
	return s.topic.Subscribe()
}

// Close ends all subscriptions.
func (s *SessionStore) Close() {
	s.topic.Close()
}

func (s *SessionStore) SignIn(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "SessionStore.SignIn")
	defer span.End()

	session, err := s.provider.SignInWithPassword(ctx, creds)
	if err != nil {
		err = asAuthError(err)
		recordSpanError(span, err)
		s.audit.Warn(security.AuditSignInFailed, "", creds.Email, zap.String("method", "password"), zap.Error(err))
		return domain.Identity{}, err
	}

	s.establish(ctx, session, "password")
	return session.Identity, nil
}

// SignOut always clears the local session. The remote invalidation is best effort.
func (s *SessionStore) SignOut(ctx context.Context) {
	s.mu.Lock()
	var (
		accessToken string
		userID      string
	)
	if s.session != nil {
		accessToken = s.session.AccessToken
		userID = s.session.Identity.ID
	}
	s.session = nil
	s.publishLocked(nil)
	s.mu.Unlock()

	if err := s.local.Delete(ctx, refreshTokenKey); err != nil {
		logger.Log.Warn("failed to clear stored refresh token", "error", err)
	}
	s.announce(ctx, "")
	s.audit.Info(security.AuditSignOut, userID, "")

	if accessToken == "" {
		return
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		logger.Log.Warn("remote sign-out failed", "user_id", userID, "error", err)
		s.audit.Warn(security.AuditRemoteSignOutFail, userID, "", zap.Error(err))
	}
}

// SignInSilently resumes from the stored refresh token. Any failure resolves the session to none.
func (s *SessionStore) SignInSilently(ctx context.Context) (domain.Identity, bool) {
	if identity, ok := s.Current(); ok {
		return identity, true
	}

	ctx, span := tracer.Start(ctx, "SessionStore.SignInSilently")
	defer span.End()

	token, err := s.local.Get(ctx, refreshTokenKey)
	if err != nil {
		logger.Log.Warn("failed to read stored refresh token", "error", err)
	}
	if len(token) == 0 {
		s.resolveNone()
		return domain.Identity{}, false
	}

	session, err := s.provider.RefreshSession(ctx, string(token))
	if err != nil {
		recordSpanError(span, err)
		logger.Log.Info("silent sign-in failed", "error", err)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if delErr := s.local.Delete(ctx, refreshTokenKey); delErr != nil {
				logger.Log.Warn("failed to clear stored refresh token", "error", delErr)
			}
		}
		s.resolveNone()
		return domain.Identity{}, false
	}

	s.establish(ctx, session, "silent")
	s.audit.Info(security.AuditSilentSignIn, session.Identity.ID, session.Identity.Email)
	return session.Identity, true
}

// Restore is the app-resume check: re-ensure the profile of a live session, or try a silent sign-in.
func (s *SessionStore) Restore(ctx context.Context) domain.SessionSnapshot {
	if identity, ok := s.Current(); ok {
		s.scheduleEnsure(ctx, identity)
		return s.Snapshot()
	}
	s.SignInSilently(ctx)
	return s.Snapshot()
}

// BeginOAuth stores a PKCE verifier under a fresh state key and returns the provider URL.
func (s *SessionStore) BeginOAuth(ctx context.Context, provider string) (string, error) {
	verifier, err := newCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	stateKey := uuid.NewString()

	if err := s.states.SaveState(ctx, stateKey, domain.OAuthState{
		Provider:     provider,
		CodeVerifier: verifier,
		CreatedAt:    time.Now().UTC(),
	}, s.stateTTL); err != nil {
		return "", domain.NewAuthError(domain.AuthProvider, "could not start sign-in", err)
	}

	redirect, err := url.Parse(s.redirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid oauth redirect url: %w", err)
	}
	q := redirect.Query()
	q.Set("state", stateKey)
	redirect.RawQuery = q.Encode()

	return s.provider.AuthorizeURL(provider, redirect.String(), codeChallenge(verifier))
}

// CompleteOAuth resolves a provider callback. It may arrive long after the sign-in screen went away;
// the result is published like any other session change.
func (s *SessionStore) CompleteOAuth(ctx context.Context, stateKey, code string) (domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "SessionStore.CompleteOAuth")
	defer span.End()

	state, err := s.states.TakeState(ctx, stateKey)
	if err != nil {
		recordSpanError(span, err)
		return domain.Identity{}, domain.NewAuthError(domain.AuthProvider, "could not load sign-in state", err)
	}
	if state == nil || code == "" {
		s.audit.Warn(security.AuditOAuthRejected, "", "", zap.Bool("state_found", state != nil))
		return domain.Identity{}, domain.NewAuthError(domain.AuthInvalidCredentials, "unknown or expired sign-in attempt", nil)
	}
	span.SetAttributes(attribute.String("oauth.provider", state.Provider))

	session, err := s.provider.ExchangeCode(ctx, code, state.CodeVerifier)
	if err != nil {
		err = asAuthError(err)
		recordSpanError(span, err)
		s.audit.Warn(security.AuditSignInFailed, "", "", zap.String("method", "oauth:"+state.Provider), zap.Error(err))
		return domain.Identity{}, err
	}

	s.establish(ctx, session, "oauth:"+state.Provider)
	return session.Identity, nil
}

// AcceptSession adopts tokens obtained outside this process after verifying the access token.
func (s *SessionStore) AcceptSession(ctx context.Context, accessToken, refreshToken string) (domain.Identity, error) {
	identity, err := s.verifier.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		err = asAuthError(err)
		s.audit.Warn(security.AuditSignInFailed, "", "", zap.String("method", "external"), zap.Error(err))
		return domain.Identity{}, err
	}

	s.establish(ctx, &domain.Session{
		Identity:     *identity,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, "external")
	return *identity, nil
}

func (s *SessionStore) establish(ctx context.Context, session *domain.Session, method string) {
	identity := session.Identity

	s.mu.Lock()
	s.session = session
	s.publishLocked(&identity)
	s.mu.Unlock()

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", identity.ID))

	if session.RefreshToken != "" {
		if err := s.local.Set(ctx, refreshTokenKey, []byte(session.RefreshToken)); err != nil {
			logger.Log.Warn("failed to persist refresh token", "user_id", identity.ID, "error", err)
		}
	}
	s.announce(ctx, identity.ID)
	s.audit.Info(security.AuditSignInSuccess, identity.ID, identity.Email, zap.String("method", method))
	s.scheduleEnsure(ctx, identity)
}

// resolveNone publishes "no session" unless the snapshot already says so or a sign-in won meanwhile.
func (s *SessionStore) resolveNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil || s.snapshot.Resolved {
		return
	}
	s.publishLocked(nil)
}

func (s *SessionStore) publishLocked(identity *domain.Identity) {
	s.snapshot = domain.SessionSnapshot{
		Seq:      s.snapshot.Seq + 1,
		Resolved: true,
		Identity: identity,
	}
	s.topic.Publish(s.snapshot)
}

func (s *SessionStore) scheduleEnsure(ctx context.Context, identity domain.Identity) {
	if s.profiles == nil {
		return
	}
	bgCtx := context.WithoutCancel(ctx)
	s.runner.Do(func() {
		ctx, cancel := context.WithTimeout(bgCtx, ensureTimeout)
		defer cancel()
		if err := s.profiles.Ensure(ctx, identity, HintsFromIdentity(identity)); err != nil {
			logger.Log.Warn("background profile ensure failed", "user_id", identity.ID, "error", err)
		}
	})
}

func (s *SessionStore) announce(ctx context.Context, userID string) {
	payload := map[string]string{"user_id": userID}
	if err := s.events.Publish(ctx, domain.SubjectSessionChanged, payload); err != nil {
		logger.Log.Warn("failed to publish session change", "error", err)
	}
}

// asAuthError keeps provider classifications and treats anything else as a provider failure.
func asAuthError(err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return domain.NewAuthError(domain.AuthProvider, "sign-in failed", err)
}

func newCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
