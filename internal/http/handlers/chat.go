package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ferag-backend/internal/http/response"
	"github.com/yungbote/ferag-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatReq struct {
	Question string `json:"question" binding:"required"`
}

// POST /api/rags/:id/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ans, err := h.chat.Ask(c.Request.Context(), callerID(c), ragID, req.Question)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, ans)
}
