package models

import (
	"time"

	"github.com/lib/pq"
)

// WithdrawStatus is the lifecycle state of a deferred withdrawal request.
// Pending is the only non-terminal state; Success and Failed are final.
type WithdrawStatus string

const (
	WithdrawStatusPending WithdrawStatus = "pending"
	WithdrawStatusSuccess WithdrawStatus = "success"
	WithdrawStatusFailed  WithdrawStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s WithdrawStatus) Terminal() bool {
	return s == WithdrawStatusSuccess || s == WithdrawStatusFailed
}

// AssetState is the per-asset aggregate ledger. One row per supported asset,
// created on admin registration and never deleted (assets are disabled
// instead).
//
// TotalAmount covers all custody under vault control including funds deployed
// to strategies. TotalDistributedAmount is the cumulative amount ever sent to
// strategies and only grows; StrategyAmount is what is currently outstanding
// in strategies, so idle custody = TotalAmount - StrategyAmount.
type AssetState struct {
	Asset                  string `json:"asset" gorm:"primaryKey;size:50"` // asset key, e.g. "USDC"
	TotalAmount            uint64 `json:"total_amount" gorm:"not null;default:0"`
	TotalLPShares          uint64 `json:"total_lp_shares" gorm:"column:total_lp_shares;not null;default:0"`
	TotalDistributedAmount uint64 `json:"total_distributed_amount" gorm:"not null;default:0"`
	StrategyAmount         uint64 `json:"strategy_amount" gorm:"not null;default:0"`

	MinDeposit  uint64 `json:"min_deposit" gorm:"not null;default:0"`
	MaxDeposit  uint64 `json:"max_deposit" gorm:"not null;default:0"` // 0 = unbounded
	MinWithdraw uint64 `json:"min_withdraw" gorm:"not null;default:0"`
	MaxWithdraw uint64 `json:"max_withdraw" gorm:"not null;default:0"` // 0 = unbounded

	EnabledForDeposit  bool `json:"enabled_for_deposit" gorm:"not null;default:true"`
	EnabledForWithdraw bool `json:"enabled_for_withdraw" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdleAmount is the custody not currently deployed to strategies.
func (a *AssetState) IdleAmount() uint64 {
	if a.StrategyAmount > a.TotalAmount {
		return 0
	}
	return a.TotalAmount - a.StrategyAmount
}

// WalletAccount is the vault's internal account identity, keyed by a 32-byte
// wallet identifier (0x + 64 hex chars). The id and the referrer link are
// immutable after registration; the referrer may be set at most once.
type WalletAccount struct {
	ID           string `json:"id" gorm:"primaryKey;size:66"`
	OwnerAddress string `json:"owner_address" gorm:"size:66;not null;index:idx_wallet_owner"`
	ReferrerID   string `json:"referrer_id" gorm:"size:66;index:idx_wallet_referrer"` // empty = no referrer

	// ReferralPercents is the per-level referral schedule in basis points,
	// level 1 first. Nil falls back to the global schedule.
	ReferralPercents pq.Int64Array `json:"referral_percents" gorm:"type:bigint[]"`

	// SystemFeeBps overrides the global system fee when non-nil.
	SystemFeeBps *int64 `json:"system_fee_bps" gorm:"column:system_fee_bps"`

	// NextRequestID allocates monotonically increasing withdraw request ids
	// for this wallet. Bumped inside the same transaction that stores the
	// request.
	NextRequestID uint64 `json:"next_request_id" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountAsset is the per-wallet per-asset position. LPAmount corresponds to
// DepositedAmount converted at the exchange rate in force at each deposit
// event; shares are minted incrementally, never recomputed retroactively.
type AccountAsset struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	WalletID string `json:"wallet_id" gorm:"size:66;not null;uniqueIndex:idx_account_asset,priority:1"`
	Asset    string `json:"asset" gorm:"size:50;not null;uniqueIndex:idx_account_asset,priority:2"`

	CurrentAmount     uint64 `json:"current_amount" gorm:"not null;default:0"` // net principal position
	DepositedAmount   uint64 `json:"deposited_amount" gorm:"not null;default:0"`
	LPAmount          uint64 `json:"lp_amount" gorm:"column:lp_amount;not null;default:0"`
	SwapInAmount      uint64 `json:"swap_in_amount" gorm:"not null;default:0"`
	SwapOutAmount     uint64 `json:"swap_out_amount" gorm:"not null;default:0"`
	DistributedAmount uint64 `json:"distributed_amount" gorm:"not null;default:0"` // outstanding in strategies
	WithdrawnAmount   uint64 `json:"withdrawn_amount" gorm:"not null;default:0"`

	InterestAmount      uint64 `json:"interest_amount" gorm:"not null;default:0"`       // gross yield attributed
	InterestShareAmount uint64 `json:"interest_share_amount" gorm:"not null;default:0"` // net yield after fees

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RewardBalance is a pending referral reward accrued on a referrer wallet,
// keyed by the asset that generated it. Credited by the distribution engine
// and decremented by the claim path.
type RewardBalance struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	WalletID string `json:"wallet_id" gorm:"size:66;not null;uniqueIndex:idx_reward_balance,priority:1"`
	Asset    string `json:"asset" gorm:"size:50;not null;uniqueIndex:idx_reward_balance,priority:2"`
	Amount   uint64 `json:"amount" gorm:"not null;default:0"`

	UpdatedAt time.Time `json:"updated_at"`
}

// WithdrawRequest is a deferred withdrawal claim. RequestID is monotonically
// increasing per wallet. AvailableAmount is backend-populated, never exceeds
// RequestedAmount - SettledAmount, and is non-decreasing while Pending except
// when the user settles it (finalization drains it into SettledAmount).
//
// Version implements optimistic concurrency between backend status updates
// and user finalization; writers must match the version they read.
type WithdrawRequest struct {
	ID        uint64 `json:"-" gorm:"primaryKey;autoIncrement"`
	WalletID  string `json:"wallet_id" gorm:"size:66;not null;uniqueIndex:idx_wallet_request,priority:1"`
	RequestID uint64 `json:"request_id" gorm:"not null;uniqueIndex:idx_wallet_request,priority:2"`
	Asset     string `json:"asset" gorm:"size:50;not null;index:idx_request_asset"`

	RequestedAmount uint64 `json:"requested_amount" gorm:"not null"`
	AvailableAmount uint64 `json:"available_amount" gorm:"not null;default:0"`
	SettledAmount   uint64 `json:"settled_amount" gorm:"not null;default:0"`

	Status       WithdrawStatus `json:"status" gorm:"size:20;not null;index:idx_request_status"`
	ErrorMessage string         `json:"error_message" gorm:"type:text"` // non-empty only when Failed

	Version     uint64    `json:"version" gorm:"not null;default:0"`
	RequestedAt time.Time `json:"requested_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Outstanding is the portion of the request not yet settled.
func (r *WithdrawRequest) Outstanding() uint64 {
	if r.SettledAmount > r.RequestedAmount {
		return 0
	}
	return r.RequestedAmount - r.SettledAmount
}
