package controllers

import (
	"log/slog"
	"net/http"

	"stepout/internal/delivery/http/helpers"
	"stepout/internal/domain"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

type ChatController struct {
	Logger  *slog.Logger
	Service domain.ChatService
}

func NewChatController(logger *slog.Logger, svc domain.ChatService) *ChatController {
	return &ChatController{
		Logger:  logger,
		Service: svc,
	}
}

// SendMessageRequest is the request body for POST /chats/{chatID}/messages.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// SendMessageResponse is the data of a sent message.
type SendMessageResponse struct {
	Success   bool            `json:"success"`
	MessageID string          `json:"message_id"`
	Message   *domain.Message `json:"message"`
}

// SendMessage godoc
// @Summary Send a chat message
// @Description Appends a text message. The caller must be a participant of the chat.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "Chat ID (the event ID)"
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} helpers.APIResponse "data: SendMessageResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not a participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 412 {object} helpers.APIResponse "error.code: failed_precondition (chat archived)"
// @Router /chats/{chatID}/messages [post]
func (c *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathParam(w, r, "chatID")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := c.Service.SendMessage(r.Context(), userID, chatID, req.Text)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, SendMessageResponse{Success: true, MessageID: msg.ID, Message: msg})
}

// MessagesResponse is the data of GET /chats/{chatID}/messages.
type MessagesResponse struct {
	Messages []*domain.Message `json:"messages"`
}

// GetMessages godoc
// @Summary Read chat messages
// @Description Returns messages oldest first and resets the caller's unread counter.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "Chat ID (the event ID)"
// @Param limit query int false "Max messages (default 50, max 200)"
// @Param before query string false "Cursor: only messages created before this instant (RFC 3339)"
// @Success 200 {object} helpers.APIResponse "data: MessagesResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not a participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /chats/{chatID}/messages [get]
func (c *ChatController) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathParam(w, r, "chatID")
	if !ok {
		return
	}
	before, err := helpers.ParseTimeParam(r, "before")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit := helpers.ParseLimit(r, defaultMessageLimit, maxMessageLimit)
	messages, err := c.Service.GetMessages(r.Context(), userID, chatID, limit, before)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessagesResponse{Messages: messages})
}

// ChatsResponse is the data of GET /chats.
type ChatsResponse struct {
	Chats []*domain.ChatSummary `json:"chats"`
}

// ListChats godoc
// @Summary List the caller's chats
// @Description Non-archived chats the caller participates in, most recent message first.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data: ChatsResponse"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /chats [get]
func (c *ChatController) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	chats, err := c.Service.ListChats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ChatsResponse{Chats: chats})
}
