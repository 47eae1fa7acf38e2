package repository

import (
	"context"
	"errors"

	"vault-backend/internal/models"
)

// Storage-level sentinel errors. Services translate these into their own
// error taxonomy; handlers never see them directly.
var (
	ErrNotFound        = errors.New("repository: record not found")
	ErrDuplicate       = errors.New("repository: duplicate record")
	ErrVersionConflict = errors.New("repository: version conflict")
)

// AssetRepository is the per-asset aggregate ledger store.
type AssetRepository interface {
	Create(ctx context.Context, asset *models.AssetState) error
	Get(ctx context.Context, asset string) (*models.AssetState, error)
	// GetForUpdate locks the row for the duration of the surrounding
	// transaction. Outside a transaction it behaves like Get.
	GetForUpdate(ctx context.Context, asset string) (*models.AssetState, error)
	List(ctx context.Context) ([]*models.AssetState, error)
	Save(ctx context.Context, asset *models.AssetState) error
}

// WalletRepository stores wallet accounts, their per-asset positions and
// pending reward balances.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.WalletAccount) error
	Get(ctx context.Context, id string) (*models.WalletAccount, error)
	GetForUpdate(ctx context.Context, id string) (*models.WalletAccount, error)
	Save(ctx context.Context, wallet *models.WalletAccount) error

	GetAccountAsset(ctx context.Context, walletID, asset string) (*models.AccountAsset, error)
	GetOrCreateAccountAsset(ctx context.Context, walletID, asset string) (*models.AccountAsset, error)
	SaveAccountAsset(ctx context.Context, account *models.AccountAsset) error
	ListAccountAssets(ctx context.Context, walletID string) ([]*models.AccountAsset, error)
	// SumCurrentAmounts aggregates CurrentAmount over all wallets holding
	// the asset; used by the reconciliation endpoint.
	SumCurrentAmounts(ctx context.Context, asset string) (uint64, error)

	GetRewardBalance(ctx context.Context, walletID, asset string) (*models.RewardBalance, error)
	SaveRewardBalance(ctx context.Context, balance *models.RewardBalance) error
	ListRewardBalances(ctx context.Context, walletID string) ([]*models.RewardBalance, error)
}

// WithdrawRequestRepository stores the deferred withdrawal state machine.
type WithdrawRequestRepository interface {
	Create(ctx context.Context, request *models.WithdrawRequest) error
	Get(ctx context.Context, walletID string, requestID uint64) (*models.WithdrawRequest, error)
	// ListByWalletAsset returns the wallet's requests for one asset, oldest
	// first, optionally filtered by status.
	ListByWalletAsset(ctx context.Context, walletID, asset string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error)
	ListByWallet(ctx context.Context, walletID string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error)
	// UpdateVersioned persists the request only if the stored row still
	// carries expectedVersion, bumping Version by one. Returns
	// ErrVersionConflict on a lost race.
	UpdateVersioned(ctx context.Context, request *models.WithdrawRequest, expectedVersion uint64) error
}

// RecordRepository appends audit records. Append-only; updates are never
// issued against these tables.
type RecordRepository interface {
	CreateDeposit(ctx context.Context, rec *models.DepositRecord) error
	CreateWithdrawal(ctx context.Context, rec *models.WithdrawalRecord) error
	CreateWithdrawRequest(ctx context.Context, rec *models.WithdrawRequestRecord) error
	CreateRequestStatus(ctx context.Context, rec *models.RequestStatusRecord) error
	CreateFeeShare(ctx context.Context, rec *models.FeeShareRecord) error
	CreateStrategyFlow(ctx context.Context, rec *models.StrategyFlowRecord) error
	CreateRewardClaim(ctx context.Context, rec *models.RewardClaimRecord) error

	ListDepositsByWallet(ctx context.Context, walletID string, page, pageSize int) ([]*models.DepositRecord, int64, error)
	ListWithdrawalsByWallet(ctx context.Context, walletID string, page, pageSize int) ([]*models.WithdrawalRecord, int64, error)
	ListFeeSharesByWallet(ctx context.Context, walletID string, page, pageSize int) ([]*models.FeeShareRecord, int64, error)
}

// Store aggregates the repositories and provides transactional scope. Every
// externally invoked operation runs inside a single Transact call; the
// function receives a Store bound to the transaction, and an error return
// rolls back every write made through it.
type Store interface {
	Assets() AssetRepository
	Wallets() WalletRepository
	WithdrawRequests() WithdrawRequestRepository
	Records() RecordRepository

	Transact(ctx context.Context, fn func(Store) error) error
}
