package events

// Event payloads carried in the envelope's data field. Amounts are raw
// uint64 units of the asset's smallest denomination, matching the ledger.

type DepositEvent struct {
	WalletID      string `json:"wallet_id"`
	Asset         string `json:"asset"`
	Amount        uint64 `json:"amount"`
	SharesMinted  uint64 `json:"shares_minted"`
	TotalAmount   uint64 `json:"total_amount"`
	TotalLPShares uint64 `json:"total_lp_shares"`
}

type WithdrawalEvent struct {
	WalletID     string  `json:"wallet_id"`
	Asset        string  `json:"asset"`
	Amount       uint64  `json:"amount"`
	SharesBurned uint64  `json:"shares_burned"`
	RequestID    *uint64 `json:"request_id,omitempty"`
}

type WithdrawRequestedEvent struct {
	WalletID  string `json:"wallet_id"`
	RequestID uint64 `json:"request_id"`
	Asset     string `json:"asset"`
	Amount    uint64 `json:"amount"`
}

type WithdrawStatusEvent struct {
	WalletID      string `json:"wallet_id"`
	RequestID     uint64 `json:"request_id"`
	Asset         string `json:"asset"`
	Status        string `json:"status"`
	SettledAmount uint64 `json:"settled_amount"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type FeeShareEntry struct {
	WalletID string `json:"wallet_id"`
	Level    int    `json:"level"`
	Bps      int64  `json:"bps"`
	Amount   uint64 `json:"amount"`
}

type FeesDistributedEvent struct {
	WalletID       string          `json:"wallet_id"`
	Asset          string          `json:"asset"`
	InterestAmount uint64          `json:"interest_amount"`
	SystemFee      uint64          `json:"system_fee"`
	NetInterest    uint64          `json:"net_interest"`
	RetainedFee    uint64          `json:"retained_fee"`
	ReferralShares []FeeShareEntry `json:"referral_shares,omitempty"`
}

type StrategyFlowEvent struct {
	Strategy  string `json:"strategy"`
	Asset     string `json:"asset"`
	Direction string `json:"direction"`
	Amount    uint64 `json:"amount"`
	Interest  uint64 `json:"interest,omitempty"`
}

type RewardsClaimedEvent struct {
	WalletID string `json:"wallet_id"`
	Asset    string `json:"asset"`
	Amount   uint64 `json:"amount"`
}

type AssetConfiguredEvent struct {
	Asset              string `json:"asset"`
	EnabledForDeposit  bool   `json:"enabled_for_deposit"`
	EnabledForWithdraw bool   `json:"enabled_for_withdraw"`
}

type WalletRegisteredEvent struct {
	WalletID     string `json:"wallet_id"`
	OwnerAddress string `json:"owner_address"`
	ReferrerID   string `json:"referrer_id,omitempty"`
}
