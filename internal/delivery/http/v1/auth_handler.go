package v1

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/apperror"
	"card-assistant-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	sessions   domain.SessionUsecase
	onboarding domain.OnboardingUsecase
}

func NewAuthHandler(public *gin.RouterGroup, limit gin.HandlerFunc, sessions domain.SessionUsecase, onboarding domain.OnboardingUsecase) {
	handler := &AuthHandler{sessions: sessions, onboarding: onboarding}

	auth := public.Group("/auth")
	auth.Use(limit)
	{
		auth.POST("/login", handler.Login)
		auth.POST("/logout", handler.Logout)
		auth.POST("/silent", handler.SignInSilently)
		auth.POST("/resume", handler.Resume)
		auth.GET("/oauth/:provider", handler.BeginOAuth)
		auth.GET("/callback", handler.OAuthCallback)
		auth.POST("/session", handler.AcceptSession)
	}
}

type SessionResponse struct {
	Authenticated bool                   `json:"authenticated"`
	Identity      *domain.Identity       `json:"identity,omitempty"`
	Onboarding    domain.OnboardingFlags `json:"onboarding"`
}

type AcceptSessionRequest struct {
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token"`
}

type OAuthStartResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

func (h *AuthHandler) signedIn(c *gin.Context, identity domain.Identity, message string) {
	// Best effort: a device that never saw this account's onboarding learns it from the profile row
	if _, err := h.onboarding.LoadRemoteOnboarding(c.Request.Context(), identity); err != nil {
		logger.Log.Warn("onboarding reconcile after sign-in failed", "user_id", identity.ID, "error", err)
	}
	response.Success(c, http.StatusOK, message, SessionResponse{
		Authenticated: true,
		Identity:      &identity,
		Onboarding:    h.onboarding.Flags(),
	})
}

// Login godoc
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      domain.Credentials  true  "Email and password"
// @Success      200          {object}  response.Response{data=SessionResponse}
// @Failure      401          {object}  response.Response
// @Failure      422          {object}  response.Response
// @Failure      503          {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var creds domain.Credentials
	if !bindJSON(c, &creds) {
		return
	}

	identity, err := h.sessions.SignIn(c.Request.Context(), creds)
	if err != nil {
		c.Error(err)
		return
	}
	h.signedIn(c, identity, "Signed in")
}

// Logout godoc
// @Summary      Sign out of this device
// @Description  Always succeeds locally, even when the provider cannot be reached. Clears the device onboarding flags.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.SignOut(c.Request.Context())
	h.onboarding.ClearLocal()
	response.Success(c, http.StatusOK, "Signed out", SessionResponse{Onboarding: h.onboarding.Flags()})
}

// SignInSilently godoc
// @Summary      Resume from the stored refresh token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=SessionResponse}
// @Router       /auth/silent [post]
func (h *AuthHandler) SignInSilently(c *gin.Context) {
	identity, ok := h.sessions.SignInSilently(c.Request.Context())
	if !ok {
		response.Success(c, http.StatusOK, "No stored session", SessionResponse{Onboarding: h.onboarding.Flags()})
		return
	}
	h.signedIn(c, identity, "Session resumed")
}

// Resume godoc
// @Summary      App resume check
// @Description  Re-ensures the profile of a live session or attempts a silent sign-in.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.SessionSnapshot}
// @Router       /auth/resume [post]
func (h *AuthHandler) Resume(c *gin.Context) {
	snapshot := h.sessions.Restore(c.Request.Context())
	response.Success(c, http.StatusOK, "Session checked", snapshot)
}

// BeginOAuth godoc
// @Summary      Start a redirect-based sign-in
// @Tags         auth
// @Produce      json
// @Param        provider  path      string  true  "google or apple"
// @Success      200       {object}  response.Response{data=OAuthStartResponse}
// @Failure      400       {object}  response.Response
// @Router       /auth/oauth/{provider} [get]
func (h *AuthHandler) BeginOAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider != "google" && provider != "apple" {
		c.Error(apperror.BadRequest("Unsupported sign-in provider"))
		return
	}

	url, err := h.sessions.BeginOAuth(c.Request.Context(), provider)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Continue in the browser", OAuthStartResponse{AuthorizeURL: url})
}

// OAuthCallback godoc
// @Summary      Finish a redirect-based sign-in
// @Tags         auth
// @Produce      json
// @Param        state  query     string  true   "State issued by /auth/oauth/{provider}"
// @Param        code   query     string  false  "Authorization code"
// @Param        error  query     string  false  "Provider error"
// @Success      200    {object}  response.Response{data=SessionResponse}
// @Failure      401    {object}  response.Response
// @Router       /auth/callback [get]
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		logger.Log.Info("oauth callback rejected by provider", "error", providerErr, "description", c.Query("error_description"))
		c.Error(domain.NewAuthError(domain.AuthInvalidCredentials, "sign-in was cancelled or denied", nil))
		return
	}
	state, code := c.Query("state"), c.Query("code")
	var missing []string
	if state == "" {
		missing = append(missing, "state")
	}
	if code == "" {
		missing = append(missing, "code")
	}
	if len(missing) > 0 {
		c.Error(apperror.Validation("Invalid callback", missing))
		return
	}

	identity, err := h.sessions.CompleteOAuth(c.Request.Context(), state, code)
	if err != nil {
		c.Error(err)
		return
	}
	h.signedIn(c, identity, "Signed in")
}

// AcceptSession godoc
// @Summary      Adopt a session obtained by the UI directly from the provider
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        session  body      AcceptSessionRequest  true  "Provider tokens"
// @Success      200      {object}  response.Response{data=SessionResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/session [post]
func (h *AuthHandler) AcceptSession(c *gin.Context) {
	var req AcceptSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	identity, err := h.sessions.AcceptSession(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		c.Error(err)
		return
	}
	h.signedIn(c, identity, "Signed in")
}
