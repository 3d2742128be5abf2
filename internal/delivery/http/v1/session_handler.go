package v1

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/internal/navigation"

	"github.com/gin-gonic/gin"
)

// Navigator answers route requests from the navigation state machine.
type Navigator interface {
	State() navigation.State
	Navigate(route string) navigation.Decision
}

type SessionHandler struct {
	sessions   domain.SessionUsecase
	onboarding domain.OnboardingUsecase
	navigator  Navigator
}

func NewSessionHandler(public *gin.RouterGroup, sessions domain.SessionUsecase, onboarding domain.OnboardingUsecase, navigator Navigator) {
	handler := &SessionHandler{sessions: sessions, onboarding: onboarding, navigator: navigator}

	public.GET("/session", handler.GetSession)
	public.GET("/navigation", handler.Navigate)
}

type SessionStateResponse struct {
	domain.SessionSnapshot
	Onboarding domain.OnboardingFlags `json:"onboarding"`
	Navigation string                 `json:"navigation"`
}

// GetSession godoc
// @Summary      Current session snapshot
// @Description  resolved is false until the first restore, sign-in or sign-out has completed.
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=SessionStateResponse}
// @Router       /session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	response.Success(c, http.StatusOK, "Session state", SessionStateResponse{
		SessionSnapshot: h.sessions.Snapshot(),
		Onboarding:      h.onboarding.Flags(),
		Navigation:      h.navigator.State().String(),
	})
}

// Navigate godoc
// @Summary      Resolve a UI route
// @Description  Returns the route to show and whether it is a redirect. Never redirects while the session is unknown.
// @Tags         session
// @Produce      json
// @Param        route  query     string  true  "Requested route, e.g. /login"
// @Success      200    {object}  response.Response{data=navigation.Decision}
// @Router       /navigation [get]
func (h *SessionHandler) Navigate(c *gin.Context) {
	response.Success(c, http.StatusOK, "Navigation decision", h.navigator.Navigate(c.DefaultQuery("route", "/")))
}
