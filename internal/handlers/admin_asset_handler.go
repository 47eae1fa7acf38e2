package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/services"
)

// AdminAssetHandler serves asset configuration and pool reconciliation.
// Admin capability only.
type AdminAssetHandler struct {
	assets *services.AssetService
	logger *logrus.Logger
}

func NewAdminAssetHandler(assets *services.AssetService, logger *logrus.Logger) *AdminAssetHandler {
	return &AdminAssetHandler{assets: assets, logger: logger}
}

type RegisterAssetRequest struct {
	Asset              string `json:"asset" binding:"required"`
	MinDeposit         uint64 `json:"min_deposit"`
	MaxDeposit         uint64 `json:"max_deposit"`
	MinWithdraw        uint64 `json:"min_withdraw"`
	MaxWithdraw        uint64 `json:"max_withdraw"`
	EnabledForDeposit  bool   `json:"enabled_for_deposit"`
	EnabledForWithdraw bool   `json:"enabled_for_withdraw"`
}

func (h *AdminAssetHandler) RegisterAssetHandler(c *gin.Context) {
	var req RegisterAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	asset, err := h.assets.RegisterAsset(c.Request.Context(), services.RegisterAssetInput{
		Asset:              req.Asset,
		MinDeposit:         req.MinDeposit,
		MaxDeposit:         req.MaxDeposit,
		MinWithdraw:        req.MinWithdraw,
		MaxWithdraw:        req.MaxWithdraw,
		EnabledForDeposit:  req.EnabledForDeposit,
		EnabledForWithdraw: req.EnabledForWithdraw,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithField("asset", asset.Asset).Info("Asset registered")
	respondOK(c, gin.H{"asset": asset})
}

type UpdateAssetRequest struct {
	EnabledForDeposit  *bool   `json:"enabled_for_deposit"`
	EnabledForWithdraw *bool   `json:"enabled_for_withdraw"`
	MinDeposit         *uint64 `json:"min_deposit"`
	MaxDeposit         *uint64 `json:"max_deposit"`
	MinWithdraw        *uint64 `json:"min_withdraw"`
	MaxWithdraw        *uint64 `json:"max_withdraw"`
}

func (h *AdminAssetHandler) UpdateAssetHandler(c *gin.Context) {
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	asset, err := h.assets.UpdateAsset(c.Request.Context(), c.Param("asset"), services.UpdateAssetInput{
		EnabledForDeposit:  req.EnabledForDeposit,
		EnabledForWithdraw: req.EnabledForWithdraw,
		MinDeposit:         req.MinDeposit,
		MaxDeposit:         req.MaxDeposit,
		MinWithdraw:        req.MinWithdraw,
		MaxWithdraw:        req.MaxWithdraw,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithField("asset", asset.Asset).Info("Asset configuration updated")
	respondOK(c, gin.H{"asset": asset})
}

// ReconcileHandler compares the pool total against the sum of wallet
// positions so operators can detect ledger drift.
func (h *AdminAssetHandler) ReconcileHandler(c *gin.Context) {
	result, err := h.assets.Reconcile(c.Request.Context(), c.Param("asset"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if result.TotalAmount != result.SumWalletCurrent {
		h.logger.WithFields(logrus.Fields{
			"asset":              result.Asset,
			"total_amount":       result.TotalAmount,
			"sum_wallet_current": result.SumWalletCurrent,
		}).Warn("Pool total does not match wallet positions")
	}
	respondOK(c, gin.H{"reconciliation": result})
}
