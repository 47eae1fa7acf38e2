package events

import (
	"encoding/json"
	"time"

	"vault-backend/internal/clients"
	"vault-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// NATS subjects for vault ledger events. Consumers (risk, reporting,
// notification workers) subscribe by prefix, e.g. "vault.ledger.>".
const (
	SubjectDeposit          = "vault.ledger.deposit"
	SubjectWithdrawal       = "vault.ledger.withdrawal"
	SubjectWithdrawRequest  = "vault.withdraw.requested"
	SubjectWithdrawStatus   = "vault.withdraw.status"
	SubjectFeesDistributed  = "vault.fees.distributed"
	SubjectStrategyFlow     = "vault.strategy.flow"
	SubjectRewardsClaimed   = "vault.rewards.claimed"
	SubjectAssetConfigured  = "vault.assets.configured"
	SubjectWalletRegistered = "vault.wallets.registered"
)

// Publisher emits ledger events. Publishing is fire-and-forget: ledger
// state is already committed when an event goes out, so a publish failure
// is logged, never returned to the caller.
type Publisher interface {
	Publish(subject string, payload interface{})
}

// NATSPublisher publishes JSON-encoded events through a NATS connection.
type NATSPublisher struct {
	client *clients.NATSClient
	logger *logrus.Logger
}

func NewNATSPublisher(client *clients.NATSClient, logger *logrus.Logger) *NATSPublisher {
	return &NATSPublisher{client: client, logger: logger}
}

// envelope wraps every event with the subject and emit time so consumers
// can process from a single wildcard subscription.
type envelope struct {
	Subject   string      `json:"subject"`
	EmittedAt time.Time   `json:"emitted_at"`
	Data      interface{} `json:"data"`
}

func (p *NATSPublisher) Publish(subject string, payload interface{}) {
	data, err := json.Marshal(envelope{
		Subject:   subject,
		EmittedAt: time.Now().UTC(),
		Data:      payload,
	})
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to encode event")
		metrics.NATSPublishErrors.WithLabelValues(subject).Inc()
		return
	}

	if err := p.client.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to publish event")
		metrics.NATSPublishErrors.WithLabelValues(subject).Inc()
		return
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject).Inc()
}

// NopPublisher discards events. Used in dev mode when NATS is not
// configured and in service tests.
type NopPublisher struct{}

func (NopPublisher) Publish(subject string, payload interface{}) {}
