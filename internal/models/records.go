package models

import (
	"time"
)

// Append-only record tables. Written alongside each mutating operation and
// mirrored to the event sink; core logic never reads them back for decisions.

// DepositRecord is emitted once per successful deposit.
type DepositRecord struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"` // UUID
	WalletID     string    `json:"wallet_id" gorm:"size:66;not null;index:idx_deposit_wallet"`
	Principal    string    `json:"principal" gorm:"size:66;not null"`
	Asset        string    `json:"asset" gorm:"size:50;not null"`
	Amount       uint64    `json:"amount" gorm:"not null"`
	SharesMinted uint64    `json:"shares_minted" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"index:idx_deposit_created"`
}

// WithdrawalRecord is emitted by both the synchronous withdraw path and
// request finalization; RequestID is nil for the synchronous path.
type WithdrawalRecord struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	WalletID     string    `json:"wallet_id" gorm:"size:66;not null;index:idx_withdrawal_wallet"`
	Principal    string    `json:"principal" gorm:"size:66;not null"`
	Asset        string    `json:"asset" gorm:"size:50;not null"`
	Amount       uint64    `json:"amount" gorm:"not null"`
	SharesBurned uint64    `json:"shares_burned" gorm:"not null"`
	RequestID    *uint64   `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" gorm:"index:idx_withdrawal_created"`
}

// WithdrawRequestRecord is emitted when a withdraw request is created.
type WithdrawRequestRecord struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	WalletID        string    `json:"wallet_id" gorm:"size:66;not null;index:idx_request_record_wallet"`
	Asset           string    `json:"asset" gorm:"size:50;not null"`
	RequestID       uint64    `json:"request_id" gorm:"not null"`
	RequestedAmount uint64    `json:"requested_amount" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
}

// RequestStatusRecord is emitted on every backend status update.
type RequestStatusRecord struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	WalletID       string         `json:"wallet_id" gorm:"size:66;not null;index:idx_status_record_wallet"`
	RequestID      uint64         `json:"request_id" gorm:"not null"`
	Status         WithdrawStatus `json:"status" gorm:"size:20;not null"`
	AvailableAdded uint64         `json:"available_added" gorm:"not null;default:0"`
	ErrorMessage   string         `json:"error_message" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"`
}

// FeeShareRecord is the aggregate audit record for one distribution event:
// how one interest report was split between the depositor, the referral
// chain and the retained vault fee. Breakdown holds the per-level detail as
// JSON, one entry per referral level actually paid.
type FeeShareRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	WalletID       string    `json:"wallet_id" gorm:"size:66;not null;index:idx_fee_share_wallet"` // earning wallet
	Asset          string    `json:"asset" gorm:"size:50;not null"`
	Strategy       string    `json:"strategy" gorm:"size:50"`
	InterestAmount uint64    `json:"interest_amount" gorm:"not null"`
	SystemFee      uint64    `json:"system_fee" gorm:"not null"`
	NetInterest    uint64    `json:"net_interest" gorm:"not null"`
	RetainedFee    uint64    `json:"retained_fee" gorm:"not null"`
	Breakdown      string    `json:"breakdown" gorm:"type:jsonb"`
	CreatedAt      time.Time `json:"created_at"`
}

// FeeShareLevel is one referral level inside FeeShareRecord.Breakdown.
type FeeShareLevel struct {
	Level      int    `json:"level"` // 1-based
	WalletID   string `json:"wallet_id"`
	PercentBps int64  `json:"percent_bps"`
	Reward     uint64 `json:"reward"`
}

// StrategyFlowRecord tracks custody moved into or out of a strategy.
type StrategyFlowRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	WalletID       string    `json:"wallet_id" gorm:"size:66;not null;index:idx_strategy_flow_wallet"`
	Asset          string    `json:"asset" gorm:"size:50;not null"`
	Strategy       string    `json:"strategy" gorm:"size:50;not null"`
	Direction      string    `json:"direction" gorm:"size:10;not null"` // "deposit" | "withdraw"
	Amount         uint64    `json:"amount" gorm:"not null"`
	InterestAmount uint64    `json:"interest_amount" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
}

// RewardClaimRecord is emitted when pending referral rewards are claimed.
type RewardClaimRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	WalletID  string    `json:"wallet_id" gorm:"size:66;not null;index:idx_reward_claim_wallet"`
	Asset     string    `json:"asset" gorm:"size:50;not null"`
	Amount    uint64    `json:"amount" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
