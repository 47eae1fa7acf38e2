package handlers

import (
	"errors"
	"net/http"

	"vault-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	status int
	code   string
}

// serviceErrorMappings pins each service sentinel to an HTTP status and a
// stable machine-readable code. Anything unmapped is treated as internal.
var serviceErrorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{services.ErrInvalidWalletID, errorMapping{http.StatusBadRequest, "INVALID_WALLET_ID"}},
	{services.ErrInvalidAmount, errorMapping{http.StatusBadRequest, "INVALID_AMOUNT"}},
	{services.ErrAmountOutOfRange, errorMapping{http.StatusBadRequest, "AMOUNT_OUT_OF_RANGE"}},
	{services.ErrInvalidReferral, errorMapping{http.StatusBadRequest, "INVALID_REFERRAL"}},
	{services.ErrNotAuthorized, errorMapping{http.StatusForbidden, "NOT_AUTHORIZED"}},
	{services.ErrAssetNotSupported, errorMapping{http.StatusNotFound, "ASSET_NOT_SUPPORTED"}},
	{services.ErrWalletNotFound, errorMapping{http.StatusNotFound, "WALLET_NOT_FOUND"}},
	{services.ErrReferrerNotFound, errorMapping{http.StatusNotFound, "REFERRER_NOT_FOUND"}},
	{services.ErrRequestNotFound, errorMapping{http.StatusNotFound, "REQUEST_NOT_FOUND"}},
	{services.ErrStrategyNotFound, errorMapping{http.StatusNotFound, "STRATEGY_NOT_FOUND"}},
	{services.ErrWalletExists, errorMapping{http.StatusConflict, "WALLET_EXISTS"}},
	{services.ErrAssetExists, errorMapping{http.StatusConflict, "ASSET_EXISTS"}},
	{services.ErrRequestTerminal, errorMapping{http.StatusConflict, "REQUEST_TERMINAL"}},
	{services.ErrConcurrentModification, errorMapping{http.StatusConflict, "CONCURRENT_MODIFICATION"}},
	{services.ErrDepositDisabled, errorMapping{http.StatusUnprocessableEntity, "DEPOSIT_DISABLED"}},
	{services.ErrWithdrawDisabled, errorMapping{http.StatusUnprocessableEntity, "WITHDRAW_DISABLED"}},
	{services.ErrInsufficientShares, errorMapping{http.StatusUnprocessableEntity, "INSUFFICIENT_SHARES"}},
	{services.ErrInsufficientLiquidity, errorMapping{http.StatusUnprocessableEntity, "INSUFFICIENT_LIQUIDITY"}},
	{services.ErrInsufficientFund, errorMapping{http.StatusUnprocessableEntity, "INSUFFICIENT_FUND"}},
	{services.ErrInsufficientIdleLiquidity, errorMapping{http.StatusUnprocessableEntity, "INSUFFICIENT_IDLE_LIQUIDITY"}},
	{services.ErrNoAvailableAmount, errorMapping{http.StatusUnprocessableEntity, "NO_AVAILABLE_AMOUNT"}},
	{services.ErrNoPendingRewards, errorMapping{http.StatusUnprocessableEntity, "NO_PENDING_REWARDS"}},
}

func respondServiceError(c *gin.Context, err error) {
	for _, m := range serviceErrorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.mapping.status, gin.H{
				"success": false,
				"error":   err.Error(),
				"code":    m.mapping.code,
			})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "internal error",
		"code":    "INTERNAL_ERROR",
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
		"code":    "INVALID_REQUEST",
	})
}

// callerPrincipal returns the principal to enforce ownership against. Backend
// and admin tokens act on any wallet, so their calls carry no principal.
func callerPrincipal(c *gin.Context) string {
	role := c.GetString("role")
	if role == RoleBackend || role == RoleAdmin {
		return ""
	}
	return c.GetString("principal")
}

func respondOK(c *gin.Context, data gin.H) {
	payload := gin.H{"success": true}
	for k, v := range data {
		payload[k] = v
	}
	c.JSON(http.StatusOK, payload)
}
