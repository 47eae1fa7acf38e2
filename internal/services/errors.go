package services

import (
	"errors"
)

// Service-level error taxonomy. Validation and authorization failures reject
// before any state mutation; state-conflict failures reject with no partial
// mutation (the transaction rolls back). Handlers map these onto HTTP codes.
var (
	// Validation
	ErrInvalidWalletID   = errors.New("invalid wallet id")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAmountOutOfRange  = errors.New("amount out of configured range")
	ErrAssetNotSupported = errors.New("asset not supported")
	ErrDepositDisabled   = errors.New("deposits disabled for asset")
	ErrWithdrawDisabled  = errors.New("withdrawals disabled for asset")
	ErrInvalidReferral   = errors.New("invalid referral schedule")

	// Authorization
	ErrNotAuthorized = errors.New("not authorized")

	// State conflict
	ErrWalletExists              = errors.New("wallet already registered")
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrReferrerNotFound          = errors.New("referrer wallet not found")
	ErrAssetExists               = errors.New("asset already registered")
	ErrInsufficientShares        = errors.New("insufficient lp shares")
	ErrInsufficientLiquidity     = errors.New("insufficient vault liquidity")
	ErrInsufficientFund          = errors.New("insufficient funds for withdraw request")
	ErrInsufficientIdleLiquidity = errors.New("insufficient idle liquidity")
	ErrNoAvailableAmount         = errors.New("no available amount to settle")
	ErrRequestNotFound           = errors.New("withdraw request not found")
	ErrRequestTerminal           = errors.New("withdraw request already terminal")
	ErrConcurrentModification    = errors.New("concurrent modification detected")
	ErrNoPendingRewards          = errors.New("no pending rewards to claim")
	ErrStrategyNotFound          = errors.New("strategy not registered")
)

// ErrLedgerInvariant signals arithmetic that would corrupt the ledger
// (totals going negative, shares minted from nothing). It is never reachable
// through valid input; seeing it means a core bug, not a user error.
var ErrLedgerInvariant = errors.New("ledger invariant violation")
