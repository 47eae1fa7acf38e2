package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/services"
)

// RewardHandler serves referral reward claims.
type RewardHandler struct {
	distribution *services.DistributionService
	logger       *logrus.Logger
}

func NewRewardHandler(distribution *services.DistributionService, logger *logrus.Logger) *RewardHandler {
	return &RewardHandler{distribution: distribution, logger: logger}
}

type ClaimRewardsRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
}

// ClaimRewardsHandler pays the wallet's accrued referral rewards for one
// asset out of the fee account.
func (h *RewardHandler) ClaimRewardsHandler(c *gin.Context) {
	var req ClaimRewardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	claimed, err := h.distribution.ClaimRewards(c.Request.Context(), callerPrincipal(c), req.WalletID, req.Asset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": req.WalletID,
		"asset":     req.Asset,
		"claimed":   claimed,
	}).Info("Rewards claimed")
	respondOK(c, gin.H{"wallet_id": req.WalletID, "asset": req.Asset, "claimed": claimed})
}
