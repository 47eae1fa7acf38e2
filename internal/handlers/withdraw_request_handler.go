package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vault-backend/internal/models"
	"vault-backend/internal/services"
)

// WithdrawRequestHandler serves the deferred withdrawal flow: request
// creation by owners, status updates by the settlement backend and
// finalization of sourced liquidity.
type WithdrawRequestHandler struct {
	requests *services.WithdrawRequestService
	accounts *services.AccountService
	logger   *logrus.Logger
}

func NewWithdrawRequestHandler(
	requests *services.WithdrawRequestService,
	accounts *services.AccountService,
	logger *logrus.Logger,
) *WithdrawRequestHandler {
	return &WithdrawRequestHandler{requests: requests, accounts: accounts, logger: logger}
}

// RequestWithdrawHandler opens a deferred withdrawal request for funds
// currently deployed to strategies.
func (h *WithdrawRequestHandler) RequestWithdrawHandler(c *gin.Context) {
	var req LedgerMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	request, err := h.requests.RequestWithdraw(c.Request.Context(), callerPrincipal(c), req.WalletID, req.Asset, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id":  request.WalletID,
		"request_id": request.RequestID,
		"asset":      request.Asset,
		"amount":     request.RequestedAmount,
	}).Info("Withdraw request created")
	respondOK(c, gin.H{"request": request})
}

type UpdateRequestStatusRequest struct {
	WalletID     string `json:"wallet_id" binding:"required"`
	RequestID    uint64 `json:"request_id" binding:"required"`
	Status       string `json:"status" binding:"required"`
	AvailableAdd uint64 `json:"available_add"`
	ErrorMessage string `json:"error_message"`
}

// UpdateRequestStatusHandler applies a backend-driven status or liquidity
// update to a request. Backend capability only.
func (h *WithdrawRequestHandler) UpdateRequestStatusHandler(c *gin.Context) {
	var req UpdateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	request, err := h.requests.UpdateRequestStatus(c.Request.Context(), c.GetString("principal"), services.UpdateRequestStatusInput{
		WalletID:     req.WalletID,
		RequestID:    req.RequestID,
		Status:       models.WithdrawStatus(req.Status),
		AvailableAdd: req.AvailableAdd,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"request": request})
}

type FinalizeWithdrawRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
}

// WithdrawRequestedAmountHandler settles every sourced tranche across the
// wallet's requests in one ledger transaction.
func (h *WithdrawRequestHandler) WithdrawRequestedAmountHandler(c *gin.Context) {
	var req FinalizeWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	settled, err := h.requests.WithdrawRequestedAmount(c.Request.Context(), callerPrincipal(c), req.WalletID, req.Asset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wallet_id": req.WalletID,
		"asset":     req.Asset,
		"settled":   settled,
	}).Info("Requested amount withdrawn")
	respondOK(c, gin.H{"wallet_id": req.WalletID, "asset": req.Asset, "settled": settled})
}

// GetWithdrawalStateHandler aggregates the wallet's request pipeline for one
// asset: outstanding, sourced and lifetime-settled amounts.
func (h *WithdrawRequestHandler) GetWithdrawalStateHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	assetKey := c.Param("asset")
	ctx := c.Request.Context()

	if err := h.accounts.AuthorizeOwner(ctx, callerPrincipal(c), walletID); err != nil {
		respondServiceError(c, err)
		return
	}
	state, err := h.requests.GetWithdrawalState(ctx, walletID, assetKey)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"state": state})
}

// ListRequestsHandler returns the wallet's withdraw requests, optionally
// filtered by status.
func (h *WithdrawRequestHandler) ListRequestsHandler(c *gin.Context) {
	walletID := c.Param("wallet_id")
	ctx := c.Request.Context()

	var statuses []models.WithdrawStatus
	if raw := c.Query("status"); raw != "" {
		status := models.WithdrawStatus(raw)
		switch status {
		case models.WithdrawStatusPending, models.WithdrawStatusSuccess, models.WithdrawStatusFailed:
			statuses = append(statuses, status)
		default:
			respondBadRequest(c, "Unknown status filter: "+raw)
			return
		}
	}

	if err := h.accounts.AuthorizeOwner(ctx, callerPrincipal(c), walletID); err != nil {
		respondServiceError(c, err)
		return
	}
	requests, err := h.requests.ListRequests(ctx, walletID, statuses...)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"requests": requests})
}
