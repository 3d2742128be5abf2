package v1

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUC domain.ProfileUsecase
}

func NewProfileHandler(r *gin.RouterGroup, profileUC domain.ProfileUsecase) {
	handler := &ProfileHandler{profileUC: profileUC}

	r.GET("/profile", handler.GetProfile)
	r.PATCH("/profile", handler.UpdateProfile)
}

// GetProfile godoc
// @Summary      Get the signed-in user's profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Profile}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	profile, err := h.profileUC.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Profile", profile)
}

// UpdateProfile godoc
// @Summary      Edit display name, avatar and preferences
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request  body      domain.ProfileUpdate  true  "Fields to change"
// @Success      200      {object}  response.Response{data=domain.Profile}
// @Failure      422      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /profile [patch]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req domain.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profileUC.UpdateDetails(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Profile updated", profile)
}
