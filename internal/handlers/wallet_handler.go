package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/services"
)

// WalletHandler serves wallet registration and account state queries.
type WalletHandler struct {
	accounts *services.AccountService
	logger   *logrus.Logger
}

func NewWalletHandler(accounts *services.AccountService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{accounts: accounts, logger: logger}
}

type RegisterWalletRequest struct {
	WalletID         string  `json:"wallet_id" binding:"required"`
	OwnerAddress     string  `json:"owner_address" binding:"required"`
	ReferrerID       string  `json:"referrer_id"`
	ReferralPercents []int64 `json:"referral_percents"`
	SystemFeeBps     *int64  `json:"system_fee_bps"`
}

// RegisterWalletHandler creates a wallet account. Backend capability only.
func (h *WalletHandler) RegisterWalletHandler(c *gin.Context) {
	var req RegisterWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	wallet, err := h.accounts.RegisterWallet(c.Request.Context(), services.RegisterWalletInput{
		WalletID:         req.WalletID,
		OwnerAddress:     req.OwnerAddress,
		ReferrerID:       req.ReferrerID,
		ReferralPercents: req.ReferralPercents,
		SystemFeeBps:     req.SystemFeeBps,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": wallet.ID,
		"owner":     wallet.OwnerAddress,
	}).Info("Wallet registered")
	respondOK(c, gin.H{"wallet": wallet})
}

type SetReferrerRequest struct {
	ReferrerID string `json:"referrer_id" binding:"required"`
}

// SetReferrerHandler binds a referrer to an existing wallet. The binding is
// write-once.
func (h *WalletHandler) SetReferrerHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	var req SetReferrerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.accounts.SetReferrer(c.Request.Context(), walletID, req.ReferrerID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"wallet_id": walletID, "referrer_id": req.ReferrerID})
}

// GetWalletStateHandler returns the wallet row, its per-asset positions and
// pending reward balances. Owners only see their own wallet.
func (h *WalletHandler) GetWalletStateHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	ctx := c.Request.Context()

	if err := h.accounts.AuthorizeOwner(ctx, callerPrincipal(c), walletID); err != nil {
		respondServiceError(c, err)
		return
	}
	state, err := h.accounts.GetWalletState(ctx, walletID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"state": state})
}

// GetPendingFeesHandler returns the wallet's unclaimed referral rewards per
// asset.
func (h *WalletHandler) GetPendingFeesHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	ctx := c.Request.Context()

	if err := h.accounts.AuthorizeOwner(ctx, callerPrincipal(c), walletID); err != nil {
		respondServiceError(c, err)
		return
	}
	fees, err := h.accounts.GetPendingReferralFees(ctx, walletID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"wallet_id": walletID, "pending_fees": fees})
}
