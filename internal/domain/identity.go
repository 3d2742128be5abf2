package domain

import (
	"context"
	"strings"
	"time"
)

// Identity is the authenticated user handle issued by the identity provider.
// It is replaced wholesale on sign-out/sign-in and never mutated.
type Identity struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	Metadata ProviderMetadata `json:"-"`
}

func (i Identity) IsZero() bool {
	return i.ID == ""
}

// ProviderMetadata carries the profile hints the provider attaches to a user
// (Supabase user_metadata: Google/Apple sign-in fill different keys).
type ProviderMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// EmailLocalPart returns the part of the email before '@'.
func (i Identity) EmailLocalPart() string {
	local, _, found := strings.Cut(i.Email, "@")
	if !found {
		return i.Email
	}
	return local
}

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session is a signed-in identity plus the tokens needed to keep it alive.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SessionSnapshot is what the Session Store publishes. Resolved is false until the
// first real session state is known (restore/sign-in/sign-out).
type SessionSnapshot struct {
	Seq      uint64    `json:"seq"`
	Resolved bool      `json:"resolved"`
	Identity *Identity `json:"identity,omitempty"`
}

func (s SessionSnapshot) Authenticated() bool {
	return s.Identity != nil
}

// IdentityProvider is the narrow surface of the external auth provider the core depends on.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error)
	// SignOut invalidates the session remotely. Local state is the caller's concern.
	SignOut(ctx context.Context, accessToken string) error
	// RefreshSession backs silent sign-in from a stored refresh token.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	AuthorizeURL(provider, redirectURL, codeChallenge string) (string, error)
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Session, error)
}

// TokenVerifier turns a provider access token into an Identity.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*Identity, error)
}

// OAuthState is the pending half of a redirect-based sign-in.
type OAuthState struct {
	Provider     string    `json:"provider"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

type OAuthStateStore interface {
	SaveState(ctx context.Context, key string, state OAuthState, ttl time.Duration) error
	// TakeState loads and deletes the state; (nil, nil) when absent or expired.
	TakeState(ctx context.Context, key string) (*OAuthState, error)
}

// LocalStore is the device-scoped key/value cache.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type SessionUsecase interface {
	Snapshot() SessionSnapshot
	Current() (Identity, bool)
	SignIn(ctx context.Context, creds Credentials) (Identity, error)
	SignOut(ctx context.Context)
	SignInSilently(ctx context.Context) (Identity, bool)
	Restore(ctx context.Context) SessionSnapshot
	BeginOAuth(ctx context.Context, provider string) (string, error)
	CompleteOAuth(ctx context.Context, state, code string) (Identity, error)
	AcceptSession(ctx context.Context, accessToken, refreshToken string) (Identity, error)
}
