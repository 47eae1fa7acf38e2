package clients

import (
	"fmt"
	"time"

	"vault-backend/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient is a thin publisher over a NATS connection. The vault only
// pushes records out; nothing in the core subscribes.
type NATSClient struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// NewNATSClient connects to the NATS server with automatic reconnection.
func NewNATSClient(url string, timeout time.Duration, logger *logrus.Logger) (*NATSClient, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	conn, err := nats.Connect(url,
		nats.Timeout(timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	metrics.NATSConnectionStatus.Set(1)
	return &NATSClient{conn: conn, logger: logger}, nil
}

// Publish sends a raw payload on a subject. Delivery is best-effort.
func (c *NATSClient) Publish(subject string, payload []byte) error {
	return c.conn.Publish(subject, payload)
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
	}
}
