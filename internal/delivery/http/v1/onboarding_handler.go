package v1

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	onboardingUC domain.OnboardingUsecase
}

// The new-user flag is set by the signup screen before the session exists, so it stays public.
func NewOnboardingHandler(public *gin.RouterGroup, protected *gin.RouterGroup, onboardingUC domain.OnboardingUsecase) {
	handler := &OnboardingHandler{onboardingUC: onboardingUC}

	public.PUT("/onboarding/new-user", handler.MarkNewUser)

	onboarding := protected.Group("/onboarding")
	{
		onboarding.GET("", handler.Get)
		onboarding.POST("/complete", handler.Complete)
		onboarding.POST("/skip", handler.Skip)
		onboarding.POST("/reset", handler.Reset)
	}
}

type OnboardingResponse struct {
	Flags domain.OnboardingFlags `json:"flags"`
	Data  *domain.OnboardingData `json:"data,omitempty"`
}

type MarkNewUserRequest struct {
	IsNewUser *bool `json:"is_new_user" binding:"required"`
}

// Get godoc
// @Summary      Get onboarding state
// @Description  Loads the stored questionnaire and reconciles the device flags with it
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=OnboardingResponse}
// @Failure      401  {object}  response.Response
// @Router       /onboarding [get]
func (h *OnboardingHandler) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	data, err := h.onboardingUC.LoadRemoteOnboarding(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding state retrieved", OnboardingResponse{
		Flags: h.onboardingUC.Flags(),
		Data:  data,
	})
}

// Complete godoc
// @Summary      Complete onboarding
// @Description  Validates and stores the questionnaire. Flags flip only after the remote write succeeds.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.OnboardingData  true  "Onboarding data"
// @Success      200      {object}  response.Response{data=OnboardingResponse}
// @Failure      401      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /onboarding/complete [post]
func (h *OnboardingHandler) Complete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req domain.OnboardingData
	if !bindJSON(c, &req) {
		return
	}

	if err := h.onboardingUC.CompleteOnboarding(c.Request.Context(), id, req); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding completed successfully", OnboardingResponse{
		Flags: h.onboardingUC.Flags(),
		Data:  &req,
	})
}

// Skip godoc
// @Summary      Skip onboarding on this device
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=OnboardingResponse}
// @Router       /onboarding/skip [post]
func (h *OnboardingHandler) Skip(c *gin.Context) {
	h.onboardingUC.SkipOnboarding()
	response.Success(c, http.StatusOK, "Onboarding skipped", OnboardingResponse{Flags: h.onboardingUC.Flags()})
}

// Reset godoc
// @Summary      Reset onboarding
// @Description  Clears the stored questionnaire and the device flags
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=OnboardingResponse}
// @Failure      503  {object}  response.Response
// @Router       /onboarding/reset [post]
func (h *OnboardingHandler) Reset(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	if err := h.onboardingUC.Reset(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Onboarding reset", OnboardingResponse{Flags: h.onboardingUC.Flags()})
}

// MarkNewUser godoc
// @Summary      Mark this device's user as new
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      MarkNewUserRequest  true  "Flag value"
// @Success      200      {object}  response.Response{data=OnboardingResponse}
// @Router       /onboarding/new-user [put]
func (h *OnboardingHandler) MarkNewUser(c *gin.Context) {
	var req MarkNewUserRequest
	if !bindJSON(c, &req) {
		return
	}

	h.onboardingUC.MarkNewUser(*req.IsNewUser)
	response.Success(c, http.StatusOK, "Onboarding flags updated", OnboardingResponse{Flags: h.onboardingUC.Flags()})
}
