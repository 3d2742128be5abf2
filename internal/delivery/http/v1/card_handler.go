package v1

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	cardUC domain.CardUsecase
}

func NewCardHandler(r *gin.RouterGroup, cardUC domain.CardUsecase) {
	handler := &CardHandler{cardUC: cardUC}

	cards := r.Group("/cards")
	{
		cards.GET("", handler.ListCards)
		cards.POST("", handler.AddCard)
	}
}

// ListCards godoc
// @Summary      List saved cards
// @Description  Primary card first
// @Tags         cards
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Card}
// @Failure      401  {object}  response.Response
// @Router       /cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	cards, err := h.cardUC.ListCards(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}

	response.Success(c, http.StatusOK, "Cards", cards)
}

// AddCard godoc
// @Summary      Save a card
// @Description  The profile row is guaranteed before the insert
// @Tags         cards
// @Accept       json
// @Produce      json
// @Param        request  body      domain.CardInput  true  "Card details"
// @Success      201      {object}  response.Response{data=domain.Card}
// @Failure      422      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /cards [post]
func (h *CardHandler) AddCard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req domain.CardInput
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cardUC.AddCard(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Card saved", card)
}
