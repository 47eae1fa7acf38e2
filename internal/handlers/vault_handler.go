package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/services"
)

// VaultHandler serves the synchronous ledger operations: deposits, immediate
// withdrawals and history queries.
type VaultHandler struct {
	accounts *services.AccountService
	assets   *services.AssetService
	logger   *logrus.Logger
}

func NewVaultHandler(accounts *services.AccountService, assets *services.AssetService, logger *logrus.Logger) *VaultHandler {
	return &VaultHandler{accounts: accounts, assets: assets, logger: logger}
}

type LedgerMoveRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
	Amount   uint64 `json:"amount" binding:"required"`
}

// DepositHandler credits the caller's wallet and mints LP shares at the
// current exchange rate.
func (h *VaultHandler) DepositHandler(c *gin.Context) {
	var req LedgerMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.accounts.Deposit(c.Request.Context(), callerPrincipal(c), req.WalletID, req.Asset, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": result.WalletID,
		"asset":     result.Asset,
		"amount":    result.Amount,
		"shares":    result.SharesMinted,
	}).Info("Deposit completed")
	respondOK(c, gin.H{"deposit": result})
}

// WithdrawHandler burns shares and pays out immediately from idle custody.
func (h *VaultHandler) WithdrawHandler(c *gin.Context) {
	var req LedgerMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.accounts.Withdraw(c.Request.Context(), callerPrincipal(c), req.WalletID, req.Asset, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": result.WalletID,
		"asset":     result.Asset,
		"amount":    result.Amount,
		"shares":    result.SharesBurned,
	}).Info("Withdrawal completed")
	respondOK(c, gin.H{"withdrawal": result})
}

// ListAssetsHandler returns every configured asset with its pool state.
func (h *VaultHandler) ListAssetsHandler(c *gin.Context) {
	assets, err := h.assets.ListAssets(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"assets": assets})
}

// GetAssetHandler returns one asset's configuration and pool totals.
func (h *VaultHandler) GetAssetHandler(c *gin.Context) {
	asset, err := h.assets.GetAsset(c.Request.Context(), c.Param("asset"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"asset": asset})
}

// ListDepositsHandler pages the wallet's deposit history.
func (h *VaultHandler) ListDepositsHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	ctx := c.Request.Context()
	page, pageSize := paging(c)

	if err := h.accounts.AuthorizeOwner(ctx, callerPrincipal(c), walletID); err != nil {
		respondServiceError(c, err)
		return
	}
	records, total, err := h.accounts.ListDeposits(ctx, walletID, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{
		"deposits":  records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListWithdrawalsHandler pages the wallet's withdrawal history.
func (h *VaultHandler) ListWithdrawalsHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	ctx := c.Request.Context()
	page, pageSize := paging(c)

	if err := h.accounts.AuthorizeOwner(ctx, callerPrincipal(c), walletID); err != nil {
		respondServiceError(c, err)
		return
	}
	records, total, err := h.accounts.ListWithdrawals(ctx, walletID, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{
		"withdrawals": records,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

func paging(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
