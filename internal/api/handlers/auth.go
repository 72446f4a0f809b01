package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/internal/config"
	"github.com/skirmish-gg/skirmish-backend/internal/service"
	jwtutil "github.com/skirmish-gg/skirmish-backend/pkg/jwt"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
)

type AuthHandler struct {
	playerService *service.PlayerService
	jwtManager    *jwtutil.JWTManager
}

func NewAuthHandler(playerService *service.PlayerService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		playerService: playerService,
		jwtManager:    jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration),
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token  string `json:"token"`
	Player gin.H  `json:"player"`
}

// Register 플레이어 등록
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	player, err := h.playerService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrPlayerAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Username already taken",
			})
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid username or password",
			})
			return
		}

		logger.Error("Failed to register player", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to register",
		})
		return
	}

	token, err := h.jwtManager.Generate(player.ID, player.Username)
	if err != nil {
		logger.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	logger.Info("Player registered", "playerId", player.ID, "username", player.Username)

	c.JSON(http.StatusCreated, AuthResponse{
		Token: token,
		Player: gin.H{
			"id":       player.ID,
			"username": player.Username,
		},
	})
}

// Login 로그인
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	player, err := h.playerService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid username or password",
			})
			return
		}

		logger.Error("Failed to login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to login",
		})
		return
	}

	token, err := h.jwtManager.Generate(player.ID, player.Username)
	if err != nil {
		logger.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		Player: gin.H{
			"id":       player.ID,
			"username": player.Username,
		},
	})
}
