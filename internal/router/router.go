package router

import (
	"net/http"
	"strconv"
	"strings"

	"vault-backend/internal/config"
	"vault-backend/internal/handlers"
	"vault-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Dependencies carries the wired handlers into route registration.
type Dependencies struct {
	Auth        *handlers.AuthHandler
	AdminAuth   *handlers.AdminAuthHandler
	Wallet      *handlers.WalletHandler
	Vault       *handlers.VaultHandler
	Requests    *handlers.WithdrawRequestHandler
	Rewards     *handlers.RewardHandler
	Strategies  *handlers.StrategyHandler
	AdminAssets *handlers.AdminAssetHandler
	WebSocket   *handlers.WebSocketHandler
	Health      *handlers.HealthHandler
	Logger      *logrus.Logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowedOrigins := []string{"*"}
		allowCredentials := false
		maxAge := 3600
		if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		}

		origin := c.GetHeader("Origin")
		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRouter wires every HTTP route. Owner routes require any valid token;
// settlement routes require the backend capability; asset administration
// requires admin.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	auth := middleware.NewAuthMiddleware(deps.Logger)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", deps.Health.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Authentication.
	authGroup := r.Group("/api/auth")
	{
		authGroup.GET("/nonce", deps.Auth.GenerateNonceHandler)
		authGroup.POST("/login", deps.Auth.AuthenticateHandler)
	}
	r.POST("/api/admin/login", deps.AdminAuth.AdminLoginHandler)

	// Owner-facing ledger operations.
	api := r.Group("/api", auth.RequireAuth())
	{
		api.GET("/assets", deps.Vault.ListAssetsHandler)
		api.GET("/assets/:asset", deps.Vault.GetAssetHandler)
		api.GET("/strategies", deps.Strategies.ListStrategiesHandler)

		api.POST("/vault/deposit", deps.Vault.DepositHandler)
		api.POST("/vault/withdraw", deps.Vault.WithdrawHandler)

		api.POST("/withdraw-requests", deps.Requests.RequestWithdrawHandler)
		api.POST("/withdraw-requests/finalize", deps.Requests.WithdrawRequestedAmountHandler)

		api.GET("/wallets/:wallet_id", deps.Wallet.GetWalletStateHandler)
		api.GET("/wallets/:wallet_id/fees", deps.Wallet.GetPendingFeesHandler)
		api.GET("/wallets/:wallet_id/deposits", deps.Vault.ListDepositsHandler)
		api.GET("/wallets/:wallet_id/withdrawals", deps.Vault.ListWithdrawalsHandler)
		api.GET("/wallets/:wallet_id/withdraw-requests", deps.Requests.ListRequestsHandler)
		api.GET("/wallets/:wallet_id/withdrawal-state/:asset", deps.Requests.GetWithdrawalStateHandler)

		api.POST("/rewards/claim", deps.Rewards.ClaimRewardsHandler)
	}

	// Settlement backend operations.
	backend := r.Group("/api/backend", auth.RequireRole(handlers.RoleBackend, handlers.RoleAdmin))
	{
		backend.POST("/wallets", deps.Wallet.RegisterWalletHandler)
		backend.POST("/wallets/:wallet_id/referrer", deps.Wallet.SetReferrerHandler)
		backend.POST("/withdraw-requests/status", deps.Requests.UpdateRequestStatusHandler)
		backend.POST("/strategies/deposit", deps.Strategies.StrategyDepositHandler)
		backend.POST("/strategies/withdraw", deps.Strategies.StrategyWithdrawHandler)
	}

	// Asset administration.
	admin := r.Group("/api/admin", auth.RequireRole(handlers.RoleAdmin))
	{
		admin.POST("/assets", deps.AdminAssets.RegisterAssetHandler)
		admin.PATCH("/assets/:asset", deps.AdminAssets.UpdateAssetHandler)
		admin.GET("/assets/:asset/reconcile", deps.AdminAssets.ReconcileHandler)
	}

	// Push subscriptions authenticate through the query string.
	r.GET("/ws", deps.WebSocket.HandleConnection)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "endpoint not found",
			"code":    "NOT_FOUND",
		})
	})

	return r
}
