package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatapp/internal/models"
	"chatapp/internal/repositories"
)

// MessageHandler exposes message history endpoints.
type MessageHandler struct {
	messages repositories.MessageRepository
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// GetConversation returns every message exchanged between two users,
// ordered by timestamp ascending. The result is symmetric in its two
// path parameters.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userA, err := strconv.Atoi(c.Param("user1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userB, err := strconv.Atoi(c.Param("user2"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	msgs, err := h.messages.GetConversation(c.Request.Context(), userA, userB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// GetInbox returns the messages addressed to a user as receiver. Sent
// messages are not included; the sender-inclusive view is the
// conversation endpoint.
func (h *MessageHandler) GetInbox(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	msgs, err := h.messages.GetInbox(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load inbox"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// MarkSeen transitions a message to SEEN.
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.messages.MarkSeen(c.Request.Context(), messageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.String(http.StatusNotFound, "Message Not Found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark message"})
		return
	}

	c.String(http.StatusOK, "Marked as Seen")
}
