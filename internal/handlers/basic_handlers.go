package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vault-backend/internal/services"
)

// HealthHandler reports process liveness plus database and push status.
// db is nil when the service runs on the in-memory store.
type HealthHandler struct {
	db   *gorm.DB
	push *services.WebSocketPushService
}

func NewHealthHandler(db *gorm.DB, push *services.WebSocketPushService) *HealthHandler {
	return &HealthHandler{db: db, push: push}
}

func (h *HealthHandler) HealthCheckHandler(c *gin.Context) {
	dbStatus := "memory"
	healthy := true
	if h.db != nil {
		dbStatus = "ok"
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbStatus = "unreachable"
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"success":               healthy,
		"database":              dbStatus,
		"websocket_connections": h.push.ConnectionCount(),
		"timestamp":             time.Now().UTC().Format(time.RFC3339),
	})
}
