package services

import (
	"encoding/json"
	"sync"
	"time"

	"vault-backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Connection is one websocket subscriber, scoped to a wallet. The handler
// owns the socket; the push service only fans messages into Send.
type Connection struct {
	ID       string          `json:"id"`
	WalletID string          `json:"wallet_id"`
	Conn     *websocket.Conn `json:"-"`
	Send     chan []byte     `json:"-"`
	LastPing time.Time       `json:"last_ping"`
}

// PushMessage is the wire envelope for every push.
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	WalletID  string      `json:"wallet_id"`
	Data      interface{} `json:"data"`
}

// WithdrawRequestUpdateData notifies a wallet of a request transition.
type WithdrawRequestUpdateData struct {
	Request     models.WithdrawRequest `json:"request"`
	UserMessage string                 `json:"user_message,omitempty"`
}

// RewardCreditData notifies a wallet of a pending reward credit.
type RewardCreditData struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// WebSocketPushService fans ledger notifications out to per-wallet websocket
// connections. Delivery is best-effort: a full send buffer drops the message
// rather than blocking a ledger operation.
type WebSocketPushService struct {
	connections map[string]*Connection   // key: connection id
	walletConns map[string][]*Connection // key: wallet id
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
	logger      *logrus.Logger
}

func NewWebSocketPushService(logger *logrus.Logger) *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		walletConns: make(map[string][]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger,
	}
	go service.run()
	return service
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)
		case conn := <-s.unregister:
			s.handleUnregister(conn)
		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// RegisterConnection attaches a handler-managed connection to the fanout.
func (s *WebSocketPushService) RegisterConnection(conn *Connection) {
	s.register <- conn
}

// UnregisterConnection detaches a connection; the handler closes the socket.
func (s *WebSocketPushService) UnregisterConnection(conn *Connection) {
	s.unregister <- conn
}

// PushWithdrawRequestUpdate notifies the owning wallet of a request change.
func (s *WebSocketPushService) PushWithdrawRequestUpdate(request *models.WithdrawRequest) {
	s.push(PushMessage{
		Type:      "withdraw_request_update",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		WalletID:  request.WalletID,
		Data: WithdrawRequestUpdateData{
			Request:     *request,
			UserMessage: withdrawStatusMessage(request),
		},
	})
}

// PushRewardCredit notifies a referrer wallet of a freshly accrued reward.
func (s *WebSocketPushService) PushRewardCredit(walletID, asset string, amount uint64) {
	s.push(PushMessage{
		Type:      "reward_credit",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		WalletID:  walletID,
		Data:      RewardCreditData{Asset: asset, Amount: amount},
	})
}

func (s *WebSocketPushService) push(message PushMessage) {
	select {
	case s.hub <- message:
	default:
		s.logger.WithField("type", message.Type).Warn("Push hub full, dropping message")
	}
}

func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connections[conn.ID] = conn
	s.walletConns[conn.WalletID] = append(s.walletConns[conn.WalletID], conn)

	s.logger.WithFields(logrus.Fields{
		"wallet_id": conn.WalletID,
		"conn_id":   conn.ID,
	}).Info("WebSocket connection registered")

	if conn.Send != nil {
		s.sendToConnection(conn, PushMessage{
			Type:      "connection_established",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			MessageID: uuid.New().String(),
			WalletID:  conn.WalletID,
			Data: map[string]interface{}{
				"wallet_id":     conn.WalletID,
				"connection_id": conn.ID,
			},
		})
	}
}

func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.connections[conn.ID]; !ok {
		return
	}
	delete(s.connections, conn.ID)

	conns := s.walletConns[conn.WalletID]
	for i, c := range conns {
		if c.ID == conn.ID {
			s.walletConns[conn.WalletID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(s.walletConns[conn.WalletID]) == 0 {
		delete(s.walletConns, conn.WalletID)
	}
	if conn.Send != nil {
		close(conn.Send)
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": conn.WalletID,
		"conn_id":   conn.ID,
	}).Info("WebSocket connection unregistered")
}

func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	conns, ok := s.walletConns[message.WalletID]
	if !ok {
		return
	}
	for _, conn := range conns {
		s.sendToConnection(conn, message)
	}
}

func (s *WebSocketPushService) sendToConnection(conn *Connection, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal push message")
		return
	}
	select {
	case conn.Send <- data:
	default:
		s.logger.WithField("conn_id", conn.ID).Warn("Send buffer full, dropping push")
	}
}

// ConnectionCount reports active connections; exposed through the health
// endpoint.
func (s *WebSocketPushService) ConnectionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}

func withdrawStatusMessage(r *models.WithdrawRequest) string {
	switch r.Status {
	case models.WithdrawStatusPending:
		if r.AvailableAmount > 0 {
			return "Liquidity sourced, ready to settle"
		}
		return "Withdrawal request received, sourcing liquidity"
	case models.WithdrawStatusSuccess:
		return "Withdrawal request completed"
	case models.WithdrawStatusFailed:
		return "Withdrawal request failed: " + r.ErrorMessage
	default:
		return ""
	}
}
