package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-assistant-backend/config"
	v1 "card-assistant-backend/internal/delivery/http/v1"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/internal/navigation"
	"card-assistant-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Fields    []string        `json:"fields"`
	Retryable bool            `json:"retryable"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	router     *gin.Engine
	sessions   *MockSessionUsecase
	onboarding *MockOnboardingUsecase
	profiles   *MockProfileUsecase
	cards      *MockCardUsecase
	chat       *MockChatUsecase
	context    *MockContextUsecase
}

var alice = domain.Identity{ID: "user-1", Email: "alice@example.com"}

func newTestServer(state navigation.State) *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		sessions:   new(MockSessionUsecase),
		onboarding: new(MockOnboardingUsecase),
		profiles:   new(MockProfileUsecase),
		cards:      new(MockCardUsecase),
		chat:       new(MockChatUsecase),
		context:    new(MockContextUsecase),
	}
	s.router = v1.NewRouter(v1.RouterDeps{
		SessionUC:    s.sessions,
		OnboardingUC: s.onboarding,
		ProfileUC:    s.profiles,
		CardUC:       s.cards,
		ChatUC:       s.chat,
		ContextUC:    s.context,
		HealthUC:     usecase.NewHealthUsecase(nil),
		Navigator:    fixedNavigator{state: state},
		Config: &config.Config{
			ServiceName:              "card-assistant-test",
			RateLimitWindowSeconds:   60,
			RateLimitAuthThreshold:   100,
			RateLimitGlobalThreshold: 1000,
		},
	})
	return s
}

func (s *testServer) signedIn() {
	s.sessions.On("Current").Return(alice, true)
}

func (s *testServer) signedOut() {
	s.sessions.On("Current").Return(domain.Identity{}, false)
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(navigation.Unknown)
	w, env := s.do(t, http.MethodGet, "/v1/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
}

func TestAuthHandler_Login(t *testing.T) {
	creds := domain.Credentials{Email: "alice@example.com", Password: "secret"}

	t.Run("Should sign in and reconcile onboarding", func(t *testing.T) {
		s := newTestServer(navigation.Unknown)
		s.sessions.On("SignIn", mock.Anything, creds).Return(alice, nil)
		s.onboarding.On("LoadRemoteOnboarding", mock.Anything, alice).Return(nil, nil)
		s.onboarding.On("Flags").Return(domain.OnboardingFlags{IsNewUser: true})

		w, env := s.do(t, http.MethodPost, "/v1/auth/login", creds)

		assert.Equal(t, http.StatusOK, w.Code)
		var data v1.SessionResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.True(t, data.Authenticated)
		assert.Equal(t, "user-1", data.Identity.ID)
		assert.True(t, data.Onboarding.IsNewUser)
		s.onboarding.AssertExpectations(t)
	})

	t.Run("Should answer 401 for wrong credentials", func(t *testing.T) {
		s := newTestServer(navigation.Unknown)
		s.sessions.On("SignIn", mock.Anything, creds).
			Return(domain.Identity{}, domain.NewAuthError(domain.AuthInvalidCredentials, "invalid grant", nil))

		w, env := s.do(t, http.MethodPost, "/v1/auth/login", creds)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, env.Success)
		assert.False(t, env.Retryable)
	})

	t.Run("Should answer a retryable 503 when offline", func(t *testing.T) {
		s := newTestServer(navigation.Unknown)
		s.sessions.On("SignIn", mock.Anything, creds).
			Return(domain.Identity{}, domain.NewAuthError(domain.AuthNetwork, "dial", fmt.Errorf("no route to host")))

		w, env := s.do(t, http.MethodPost, "/v1/auth/login", creds)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.True(t, env.Retryable)
	})

	t.Run("Should reject a body without email", func(t *testing.T) {
		s := newTestServer(navigation.Unknown)

		w, env := s.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"password": "x"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []string{"email"}, env.Fields)
		s.sessions.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	s := newTestServer(navigation.AuthenticatedOnboarded)
	var order []string
	s.sessions.On("SignOut", mock.Anything).Run(func(mock.Arguments) { order = append(order, "sign-out") })
	s.onboarding.On("ClearLocal").Run(func(mock.Arguments) { order = append(order, "clear-flags") })
	s.onboarding.On("Flags").Return(domain.OnboardingFlags{})

	w, env := s.do(t, http.MethodPost, "/v1/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, []string{"sign-out", "clear-flags"}, order)
}

func TestAuthHandler_OAuth(t *testing.T) {
	t.Run("Should return the authorize url", func(t *testing.T) {
		s := newTestServer(navigation.Unauthenticated)
		s.sessions.On("BeginOAuth", mock.Anything, "google").Return("https://auth.example/authorize?x=1", nil)

		w, env := s.do(t, http.MethodGet, "/v1/auth/oauth/google", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"authorize_url":"https://auth.example/authorize?x=1"}`, string(env.Data))
	})

	t.Run("Should refuse unknown providers", func(t *testing.T) {
		s := newTestServer(navigation.Unauthenticated)
		w, _ := s.do(t, http.MethodGet, "/v1/auth/oauth/myspace", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should treat a provider error on callback as rejected sign-in", func(t *testing.T) {
		s := newTestServer(navigation.Unauthenticated)
		w, _ := s.do(t, http.MethodGet, "/v1/auth/callback?error=access_denied&state=abc", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		s.sessions.AssertNotCalled(t, "CompleteOAuth", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should name the missing callback parameters", func(t *testing.T) {
		s := newTestServer(navigation.Unauthenticated)
		w, env := s.do(t, http.MethodGet, "/v1/auth/callback?state=abc", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []string{"code"}, env.Fields)
	})

	t.Run("Should complete sign-in from the callback", func(t *testing.T) {
		s := newTestServer(navigation.Unauthenticated)
		s.sessions.On("CompleteOAuth", mock.Anything, "abc", "xyz").Return(alice, nil)
		s.onboarding.On("LoadRemoteOnboarding", mock.Anything, alice).Return(nil, nil)
		s.onboarding.On("Flags").Return(domain.OnboardingFlags{})

		w, env := s.do(t, http.MethodGet, "/v1/auth/callback?state=abc&code=xyz", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)
	})
}

func TestSessionHandler_Navigate(t *testing.T) {
	s := newTestServer(navigation.AuthenticatedNewUnonboarded)

	w, env := s.do(t, http.MethodGet, "/v1/navigation?route=/login", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var d navigation.Decision
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, navigation.Decision{Route: "/onboarding", Redirect: true, State: "authenticated_new_unonboarded"}, d)
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	s := newTestServer(navigation.Unauthenticated)
	s.signedOut()

	for _, path := range []string{"/v1/cards", "/v1/profile", "/v1/context", "/v1/onboarding"} {
		w, env := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.False(t, env.Success, path)
	}
}

func TestOnboardingHandler(t *testing.T) {
	t.Run("Should set the new-user flag without a session", func(t *testing.T) {
		s := newTestServer(navigation.Unauthenticated)
		s.onboarding.On("MarkNewUser", true).Once()
		s.onboarding.On("Flags").Return(domain.OnboardingFlags{IsNewUser: true})

		w, _ := s.do(t, http.MethodPut, "/v1/onboarding/new-user", map[string]bool{"is_new_user": true})

		assert.Equal(t, http.StatusOK, w.Code)
		s.onboarding.AssertExpectations(t)
	})

	t.Run("Should complete onboarding", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedNewUnonboarded)
		s.signedIn()
		s.onboarding.On("CompleteOnboarding", mock.Anything, alice, mock.AnythingOfType("domain.OnboardingData")).Return(nil)
		s.onboarding.On("Flags").Return(domain.OnboardingFlags{HasCompletedOnboarding: true})

		w, env := s.do(t, http.MethodPost, "/v1/onboarding/complete", map[string]any{
			"monthly_spending_range":  "₹10-30k",
			"preferred_optimizations": []string{"cashback"},
			"preferred_categories":    []string{"dining"},
			"is_open_to_new_card":     true,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var data v1.OnboardingResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.True(t, data.Flags.HasCompletedOnboarding)
		require.NotNil(t, data.Data.MonthlySpendingRange)
		assert.Equal(t, domain.Spending10kTo30k, *data.Data.MonthlySpendingRange)
	})

	t.Run("Should surface missing questionnaire fields", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedNewUnonboarded)
		s.signedIn()
		s.onboarding.On("CompleteOnboarding", mock.Anything, alice, mock.Anything).
			Return(&domain.ValidationError{MissingFields: []string{"is_open_to_new_card", "monthly_spending_range"}})

		w, env := s.do(t, http.MethodPost, "/v1/onboarding/complete", map[string]any{})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []string{"is_open_to_new_card", "monthly_spending_range"}, env.Fields)
	})
}

func TestCardHandler(t *testing.T) {
	input := domain.CardInput{Name: "Millennia", CardType: "credit", Network: "visa", Issuer: "HDFC"}

	t.Run("Should list an empty wallet as an empty array", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.cards.On("ListCards", mock.Anything, alice).Return(nil, nil)

		w, env := s.do(t, http.MethodGet, "/v1/cards", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(env.Data))
	})

	t.Run("Should create a card", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.cards.On("AddCard", mock.Anything, alice, input).Return(&domain.Card{ID: "c1", Name: "Millennia"}, nil)

		w, env := s.do(t, http.MethodPost, "/v1/cards", input)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, string(env.Data), `"id":"c1"`)
	})

	t.Run("Should answer a clear retryable error when the profile cannot be created", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.cards.On("AddCard", mock.Anything, alice, input).
			Return(nil, fmt.Errorf("add card: %w", domain.ErrProfileCreationFailed))

		w, env := s.do(t, http.MethodPost, "/v1/cards", input)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.True(t, env.Retryable)
		assert.Contains(t, env.Message, "profile")
	})
}

func TestChatHandler(t *testing.T) {
	uc := domain.UserContext{UserID: alice.ID, Complete: false, FailedSources: []string{"insights"}}

	t.Run("Should summarize the context", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.context.On("Build", mock.Anything, alice).Return(uc)
		s.context.On("Summarize", uc).Return("No cards yet · partial: insights unavailable")

		w, env := s.do(t, http.MethodGet, "/v1/context/summary", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var data v1.ContextSummaryResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.False(t, data.Complete)
		assert.Equal(t, []string{"insights"}, data.FailedSources)
		assert.Equal(t, "No cards yet · partial: insights unavailable", data.Summary)
	})

	t.Run("Should return the external payload on request", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.context.On("Build", mock.Anything, alice).Return(uc)
		s.context.On("Format", uc).Return(domain.ExternalContextPayload{OwnedCards: []domain.PayloadCard{}})

		w, env := s.do(t, http.MethodGet, "/v1/context?format=external", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(env.Data), `"owned_cards":[]`)
	})

	t.Run("Should start a conversation without a body", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.chat.On("StartConversation", mock.Anything, alice, "").Return(&domain.Conversation{ID: "conv-1", Title: "New conversation"}, nil)

		w, _ := s.do(t, http.MethodPost, "/v1/conversations", nil)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Should forward the question", func(t *testing.T) {
		s := newTestServer(navigation.AuthenticatedOnboarded)
		s.signedIn()
		s.chat.On("Ask", mock.Anything, alice, "Which card for dining?").Return(&domain.Answer{Text: "Use Millennia"}, nil)

		w, env := s.do(t, http.MethodPost, "/v1/chat/ask", v1.AskRequest{Question: "Which card for dining?"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"answer":"Use Millennia"}`, string(env.Data))
	})
}
