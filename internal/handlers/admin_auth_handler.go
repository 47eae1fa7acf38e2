package handlers

import (
	"fmt"
	"net/http"

	"vault-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthHandler authenticates operators with a bcrypt password plus a
// TOTP second factor and issues admin-role tokens.
type AdminAuthHandler struct {
	logger *logrus.Logger
}

func NewAdminAuthHandler(logger *logrus.Logger) *AdminAuthHandler {
	if config.AppConfig == nil ||
		config.AppConfig.Auth.AdminPasswordHash == "" ||
		config.AppConfig.Auth.AdminTOTPSecret == "" {
		logger.Warn("Admin password hash or TOTP secret not configured, admin login disabled")
	}
	return &AdminAuthHandler{logger: logger}
}

// AdminLoginRequest is the operator login payload.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

// AdminLoginHandler checks the password against the configured bcrypt hash
// and validates the TOTP code.
func (h *AdminAuthHandler) AdminLoginHandler(c *gin.Context) {
	cfg := config.AppConfig
	if cfg == nil || cfg.Auth.AdminPasswordHash == "" || cfg.Auth.AdminTOTPSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "admin authentication not configured",
			"code":    "ADMIN_AUTH_DISABLED",
		})
		return
	}

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("invalid request: %v", err),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cfg.Auth.AdminPasswordHash), []byte(req.Password)); err != nil {
		h.logger.WithField("remote", c.ClientIP()).Warn("Admin login rejected: bad password")
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "invalid credentials",
			"code":    "INVALID_CREDENTIALS",
		})
		return
	}

	if !totp.Validate(req.TOTPCode, cfg.Auth.AdminTOTPSecret) {
		h.logger.WithField("remote", c.ClientIP()).Warn("Admin login rejected: bad TOTP code")
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "invalid credentials",
			"code":    "INVALID_CREDENTIALS",
		})
		return
	}

	token, err := GenerateToken("admin", RoleAdmin, tokenTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to issue token",
			"code":    "TOKEN_ISSUE_FAILED",
		})
		return
	}

	h.logger.WithField("remote", c.ClientIP()).Info("Admin login succeeded")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}
