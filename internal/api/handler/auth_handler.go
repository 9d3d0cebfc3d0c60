package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/cuongbtq/hr-records-be/internal/api/auth"
	"github.com/cuongbtq/hr-records-be/internal/api/dto"
	"github.com/cuongbtq/hr-records-be/internal/api/storage"
	"github.com/cuongbtq/hr-records-be/internal/config"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	auth    config.AuthConfig
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
		auth:    deps.Auth,
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, []string{err.Error()}, "Validation failed")
		return
	}

	user, err := h.storage.GetUserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		respondUnauthorized(c, "Invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("Failed to look up user", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondUnauthorized(c, "Invalid email or password")
		return
	}

	ttl := h.auth.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	token, err := auth.GenerateToken(h.auth.JWTSecret, user.ID, user.Email, user.Role, ttl)
	if err != nil {
		h.logger.Error("Failed to generate token", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}

	respondSuccessMessage(c, dto.LoginResponse{
		Token: token,
		User: dto.LoginUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}, "Login successful")
}
