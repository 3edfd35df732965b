package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatapp/internal/repositories"
	"chatapp/internal/session"
)

// SessionService is the session manager surface used by the HTTP layer.
type SessionService interface {
	Register(ctx context.Context, username, password string) (int, error)
	Login(ctx context.Context, username, password string) (int, error)
	Logout(ctx context.Context, userID int) error
}

// AuthHandler exposes registration and session endpoints.
type AuthHandler struct {
	sessions SessionService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(sessions SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.sessions.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			c.String(http.StatusConflict, "Username already exists")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.String(http.StatusOK, "Registration Successful")
}

// Login matches credentials and marks the user online.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			c.String(http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.String(http.StatusOK, fmt.Sprintf("Login Success - User ID: %d", userID))
}

// Logout marks the user offline.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.String(http.StatusNotFound, "User Not Found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.String(http.StatusOK, "Logout Successful")
}
