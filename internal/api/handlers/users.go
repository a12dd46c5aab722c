package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karvek/albion-scalper/internal/auth"
	"github.com/karvek/albion-scalper/internal/models"
)

// AuthService is the registration flow the user handler drives.
type AuthService interface {
	Register(email, password string) (string, error)
	Verify(token string) (models.User, error)
	Login(email, password string) (models.User, error)
}

// UserHandler exposes registration with email verification.
type UserHandler struct {
	auth AuthService
}

// NewUserHandler creates a user handler.
func NewUserHandler(auth AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

type credentialsPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/v1/users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var payload credentialsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Email and password are required",
		})
		return
	}

	if _, err := h.auth.Register(payload.Email, payload.Password); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, auth.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to send verification email",
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Verification email sent",
	})
}

// Verify handles GET /api/v1/users/verify?token=...
func (h *UserHandler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Token parameter is required",
		})
		return
	}

	user, err := h.auth.Verify(token)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrNotPending) {
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// Login handles POST /api/v1/users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var payload credentialsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Email and password are required",
		})
		return
	}

	user, err := h.auth.Login(payload.Email, payload.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid email or password",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
