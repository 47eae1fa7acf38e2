package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// WebSocketHandler upgrades wallet-scoped push subscriptions. Browsers
// cannot set an Authorization header on the upgrade request, so the token
// rides in the query string.
type WebSocketHandler struct {
	push     *services.WebSocketPushService
	accounts *services.AccountService
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

func NewWebSocketHandler(push *services.WebSocketPushService, accounts *services.AccountService, logger *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		push:     push,
		accounts: accounts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleConnection authenticates, upgrades and pumps one subscription.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	walletID := c.Query("wallet_id")
	if token == "" || walletID == "" {
		respondBadRequest(c, "token and wallet_id query parameters are required")
		return
	}

	claims, err := ValidateJWTToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid or expired token",
			"code":    "INVALID_TOKEN",
		})
		return
	}

	principal := claims.Principal
	if claims.Role == RoleBackend || claims.Role == RoleAdmin {
		principal = ""
	}
	if err := h.accounts.AuthorizeOwner(c.Request.Context(), principal, walletID); err != nil {
		respondServiceError(c, err)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := &services.Connection{
		ID:       uuid.New().String(),
		WalletID: walletID,
		Conn:     ws,
		Send:     make(chan []byte, 64),
		LastPing: time.Now(),
	}
	h.push.RegisterConnection(conn)

	go h.writePump(conn)
	h.readPump(conn)
}

// readPump drains client frames. The subscription is one-way; reads exist
// only to process pongs and detect disconnects.
func (h *WebSocketHandler) readPump(conn *services.Connection) {
	defer func() {
		h.push.UnregisterConnection(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.LastPing = time.Now()
		return conn.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithFields(logrus.Fields{
					"connection_id": conn.ID,
					"wallet_id":     conn.WalletID,
				}).WithError(err).Debug("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(conn *services.Connection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
