package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatwidget/internal/app"
	"chatwidget/internal/transport/http/response"
)

type MessageHandler struct {
	chatService *app.ChatService
}

type MessageRequest struct {
	Content *string `json:"content" binding:"required"`
}

func NewMessageHandler(chatService *app.ChatService) *MessageHandler {
	return &MessageHandler{chatService: chatService}
}

func (h *MessageHandler) List(c *gin.Context) {
	messages, err := h.chatService.ListMessages(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "list messages failed")
		return
	}
	response.OK(c, messages)
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "invalid request payload")
		return
	}

	messages, err := h.chatService.CreateMessage(c.Request.Context(), *req.Content)
	if err != nil {
		h.writeError(c, err, "create message failed")
		return
	}
	response.OK(c, messages)
}

func (h *MessageHandler) Update(c *gin.Context) {
	id, ok := parseMessageID(c)
	if !ok {
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, "invalid request payload")
		return
	}

	message, err := h.chatService.UpdateMessage(c.Request.Context(), id, *req.Content)
	if err != nil {
		if errors.Is(err, app.ErrMessageNotFound) {
			response.Error(c, http.StatusNotFound, "Message not found or not editable")
			return
		}
		h.writeError(c, err, "update message failed")
		return
	}
	response.OK(c, message)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := parseMessageID(c)
	if !ok {
		return
	}

	if err := h.chatService.DeleteMessage(c.Request.Context(), id); err != nil {
		if errors.Is(err, app.ErrMessageNotFound) {
			response.Error(c, http.StatusNotFound, "Message not found or not deletable")
			return
		}
		h.writeError(c, err, "delete message failed")
		return
	}
	response.OK(c, response.StatusBody{Message: "Message and bot response deleted successfully"})
}

func (h *MessageHandler) writeError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrMessageNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrLLMConfig):
		response.Error(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrReplyFailed):
		response.Error(c, http.StatusBadGateway, app.ErrReplyFailed.Error())
	default:
		response.Error(c, http.StatusInternalServerError, fallback)
	}
}

func parseMessageID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		response.Error(c, http.StatusBadRequest, "invalid message id")
		return 0, false
	}
	return uint(id64), true
}
