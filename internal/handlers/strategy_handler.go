package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/services"
)

// StrategyHandler serves the allocation gateway. Moving pool liquidity into
// and out of strategies is a backend capability.
type StrategyHandler struct {
	strategies *services.StrategyService
	logger     *logrus.Logger
}

func NewStrategyHandler(strategies *services.StrategyService, logger *logrus.Logger) *StrategyHandler {
	return &StrategyHandler{strategies: strategies, logger: logger}
}

// ListStrategiesHandler returns the registered strategy names.
func (h *StrategyHandler) ListStrategiesHandler(c *gin.Context) {
	respondOK(c, gin.H{"strategies": h.strategies.Strategies()})
}

type StrategyDepositRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
	Strategy string `json:"strategy" binding:"required"`
	Amount   uint64 `json:"amount" binding:"required"`
}

// StrategyDepositHandler deploys idle pool liquidity into a strategy on
// behalf of a wallet position.
func (h *StrategyHandler) StrategyDepositHandler(c *gin.Context) {
	var req StrategyDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.strategies.DepositToStrategy(c.Request.Context(), req.WalletID, req.Asset, req.Strategy, req.Amount); err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": req.WalletID,
		"asset":     req.Asset,
		"strategy":  req.Strategy,
		"amount":    req.Amount,
	}).Info("Strategy deposit completed")
	respondOK(c, gin.H{"wallet_id": req.WalletID, "asset": req.Asset, "strategy": req.Strategy, "amount": req.Amount})
}

type StrategyWithdrawRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
	Strategy string `json:"strategy" binding:"required"`
	Amount   uint64 `json:"amount" binding:"required"`
	Interest uint64 `json:"interest"`
}

// StrategyWithdrawHandler recalls principal plus realized interest from a
// strategy. Interest triggers fee distribution before joining the pool.
func (h *StrategyHandler) StrategyWithdrawHandler(c *gin.Context) {
	var req StrategyWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.strategies.WithdrawFromStrategy(c.Request.Context(), req.WalletID, req.Asset, req.Strategy, req.Amount, req.Interest); err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": req.WalletID,
		"asset":     req.Asset,
		"strategy":  req.Strategy,
		"amount":    req.Amount,
		"interest":  req.Interest,
	}).Info("Strategy withdrawal completed")
	respondOK(c, gin.H{"wallet_id": req.WalletID, "asset": req.Asset, "strategy": req.Strategy, "amount": req.Amount, "interest": req.Interest})
}
