package app

import (
	"time"

	"vault-backend/internal/clients"
	"vault-backend/internal/config"
	"vault-backend/internal/db"
	"vault-backend/internal/events"
	"vault-backend/internal/handlers"
	"vault-backend/internal/repository"
	"vault-backend/internal/router"
	"vault-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires the full service graph from configuration. An empty
// database DSN selects the in-memory store, an empty NATS URL disables event
// publishing and an empty custody URL disables custody transfers; all three
// fallbacks exist for local development.
type ServiceContainer struct {
	DB    *gorm.DB
	Store repository.Store

	NATSClient *clients.NATSClient
	Publisher  events.Publisher
	Custody    clients.CustodyClient

	AssetService           *services.AssetService
	AccountService         *services.AccountService
	WithdrawRequestService *services.WithdrawRequestService
	DistributionService    *services.DistributionService
	StrategyService        *services.StrategyService
	PushService            *services.WebSocketPushService

	Logger *logrus.Logger
}

func NewServiceContainer(logger *logrus.Logger) (*ServiceContainer, error) {
	cfg := config.AppConfig
	container := &ServiceContainer{Logger: logger}

	if cfg.Database.DSN != "" {
		db.InitDB()
		container.DB = db.DB
		container.Store = repository.NewGormStore(db.DB)
		logger.Info("Using PostgreSQL store")
	} else {
		container.Store = repository.NewMemoryStore()
		logger.Warn("No database DSN configured, using in-memory store")
	}

	container.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsClient, err := clients.NewNATSClient(cfg.NATS.URL, time.Duration(cfg.NATS.Timeout)*time.Second, logger)
		if err != nil {
			return nil, err
		}
		container.NATSClient = natsClient
		container.Publisher = events.NewNATSPublisher(natsClient, logger)
		logger.WithField("url", cfg.NATS.URL).Info("NATS event publishing enabled")
	} else {
		logger.Warn("No NATS URL configured, events disabled")
	}

	container.Custody = clients.NopCustodyClient{}
	if cfg.Custody.ServiceURL != "" {
		container.Custody = clients.NewHTTPCustodyClient(
			cfg.Custody.ServiceURL,
			cfg.Custody.AuthToken,
			time.Duration(cfg.Custody.Timeout)*time.Second,
		)
		logger.WithField("url", cfg.Custody.ServiceURL).Info("Custody client configured")
	} else {
		logger.Warn("No custody service configured, transfers are no-ops")
	}

	container.PushService = services.NewWebSocketPushService(logger)
	container.AssetService = services.NewAssetService(container.Store, container.Publisher, logger)
	container.AccountService = services.NewAccountService(container.Store, container.Custody, container.Publisher, logger)
	container.WithdrawRequestService = services.NewWithdrawRequestService(container.Store, container.Custody, container.Publisher, logger)
	container.WithdrawRequestService.SetPushService(container.PushService)
	container.DistributionService = services.NewDistributionService(
		container.Store,
		container.Custody,
		container.Publisher,
		logger,
		cfg.Vault.SystemFeeBps,
		cfg.Vault.ReferralPercents,
		cfg.Vault.FeeRecipientWallet,
	)
	container.DistributionService.SetPushService(container.PushService)
	container.StrategyService = services.NewStrategyService(container.Store, container.DistributionService, container.Publisher, logger)
	container.StrategyService.Register("manual", services.NopStrategy{})

	return container, nil
}

// Router builds the HTTP engine over the container's services.
func (c *ServiceContainer) Router() *gin.Engine {
	return router.SetupRouter(router.Dependencies{
		Auth:        handlers.NewAuthHandler(),
		AdminAuth:   handlers.NewAdminAuthHandler(c.Logger),
		Wallet:      handlers.NewWalletHandler(c.AccountService, c.Logger),
		Vault:       handlers.NewVaultHandler(c.AccountService, c.AssetService, c.Logger),
		Requests:    handlers.NewWithdrawRequestHandler(c.WithdrawRequestService, c.AccountService, c.Logger),
		Rewards:     handlers.NewRewardHandler(c.DistributionService, c.Logger),
		Strategies:  handlers.NewStrategyHandler(c.StrategyService, c.Logger),
		AdminAssets: handlers.NewAdminAssetHandler(c.AssetService, c.Logger),
		WebSocket:   handlers.NewWebSocketHandler(c.PushService, c.AccountService, c.Logger),
		Health:      handlers.NewHealthHandler(c.DB, c.PushService),
		Logger:      c.Logger,
	})
}

// Close releases external connections.
func (c *ServiceContainer) Close() {
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
