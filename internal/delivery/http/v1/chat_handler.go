package v1

import (
	"net/http"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatUC    domain.ChatUsecase
	contextUC domain.ContextUsecase
}

func NewChatHandler(r *gin.RouterGroup, chatUC domain.ChatUsecase, contextUC domain.ContextUsecase) {
	handler := &ChatHandler{chatUC: chatUC, contextUC: contextUC}

	r.POST("/conversations", handler.StartConversation)
	r.POST("/chat/ask", handler.Ask)
	r.GET("/context", handler.GetContext)
	r.GET("/context/summary", handler.GetSummary)
}

type StartConversationRequest struct {
	Title string `json:"title"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type ContextSummaryResponse struct {
	Summary       string   `json:"summary"`
	Complete      bool     `json:"complete"`
	FailedSources []string `json:"failed_sources,omitempty"`
}

// StartConversation godoc
// @Summary      Start a chat conversation
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      StartConversationRequest  false  "Optional title"
// @Success      201      {object}  response.Response{data=domain.Conversation}
// @Failure      503      {object}  response.Response
// @Router       /conversations [post]
func (h *ChatHandler) StartConversation(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req StartConversationRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	conversation, err := h.chatUC.StartConversation(c.Request.Context(), id, req.Title)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Conversation started", conversation)
}

// Ask godoc
// @Summary      Ask the card assistant
// @Description  Builds the user context and forwards it with the question to the personalization service
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      AskRequest  true  "Question"
// @Success      200      {object}  response.Response{data=domain.Answer}
// @Failure      422      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /chat/ask [post]
func (h *ChatHandler) Ask(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req AskRequest
	if !bindJSON(c, &req) {
		return
	}

	answer, err := h.chatUC.Ask(c.Request.Context(), id, req.Question)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Answer", answer)
}

// GetContext godoc
// @Summary      Aggregated user context
// @Description  format=external returns the payload sent to the personalization service
// @Tags         chat
// @Produce      json
// @Param        format  query     string  false  "internal (default) or external"
// @Success      200     {object}  response.Response{data=domain.UserContext}
// @Router       /context [get]
func (h *ChatHandler) GetContext(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	uc := h.contextUC.Build(c.Request.Context(), id)
	if c.Query("format") == "external" {
		response.Success(c, http.StatusOK, "Context", h.contextUC.Format(uc))
		return
	}
	response.Success(c, http.StatusOK, "Context", uc)
}

// GetSummary godoc
// @Summary      One-line context summary
// @Tags         chat
// @Produce      json
// @Success      200  {object}  response.Response{data=ContextSummaryResponse}
// @Router       /context/summary [get]
func (h *ChatHandler) GetSummary(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	uc := h.contextUC.Build(c.Request.Context(), id)
	response.Success(c, http.StatusOK, "Context summary", ContextSummaryResponse{
		Summary:       h.contextUC.Summarize(uc),
		Complete:      uc.Complete,
		FailedSources: uc.FailedSources,
	})
}
