package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"card-assistant-backend/internal/domain"
)

// GoTrueClient talks to the Supabase Auth REST API (/auth/v1).
type GoTrueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoTrueClient(supabaseURL, apiKey string, client *http.Client) *GoTrueClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		apiKey:     apiKey,
		httpClient: client,
	}
}

var _ domain.IdentityProvider = (*GoTrueClient)(nil)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID           string                  `json:"id"`
		Email        string                  `json:"email"`
		UserMetadata domain.ProviderMetadata `json:"user_metadata"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *GoTrueClient) SignInWithPassword(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	return c.token(ctx, "password", map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
}

func (c *GoTrueClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *GoTrueClient) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*domain.Session, error) {
	return c.token(ctx, "pkce", map[string]string{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	})
}

// AuthorizeURL builds the provider redirect for a PKCE sign-in.
func (c *GoTrueClient) AuthorizeURL(provider, redirectURL, codeChallenge string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", fmt.Errorf("provider is required")
	}
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectURL)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return c.baseURL + "/authorize?" + q.Encode(), nil
}

func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewAuthError(domain.AuthNetwork, "logout request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	// 401 means the token is already invalid remotely, which is the goal.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnauthorized {
		return domain.NewAuthError(domain.AuthProvider, fmt.Sprintf("logout failed: status=%d", resp.StatusCode), nil)
	}
	return nil
}

func (c *GoTrueClient) token(ctx context.Context, grantType string, body map[string]string) (*domain.Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode token request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/token?grant_type="+url.QueryEscape(grantType), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthNetwork, "identity provider unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthNetwork, "read token response", err)
	}

	if resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)
		msg := errResp.text()
		if msg == "" {
			msg = fmt.Sprintf("status=%d", resp.StatusCode)
		}
		return nil, domain.NewAuthError(classifyStatus(resp.StatusCode), msg, nil)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, domain.NewAuthError(domain.AuthProvider, "decode token response", err)
	}
	if tr.AccessToken == "" || tr.User.ID == "" {
		return nil, domain.NewAuthError(domain.AuthProvider, "token response missing session", nil)
	}

	expiresAt := time.Unix(tr.ExpiresAt, 0)
	if tr.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return &domain.Session{
		Identity: domain.Identity{
			ID:       tr.User.ID,
			Email:    tr.User.Email,
			Metadata: tr.User.UserMetadata,
		},
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (c *GoTrueClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func classifyStatus(status int) domain.AuthErrorKind {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return domain.AuthProvider
	case status >= 400:
		return domain.AuthInvalidCredentials
	default:
		return domain.AuthProvider
	}
}
