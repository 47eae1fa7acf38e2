package services

import (
	"context"
	"errors"
	"fmt"

	"vault-backend/internal/clients"
	"vault-backend/internal/events"
	"vault-backend/internal/metrics"
	"vault-backend/internal/models"
	"vault-backend/internal/repository"
	"vault-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AccountService owns wallet registration and the synchronous deposit and
// withdraw paths. Every mutating operation runs as one store transaction;
// custody transfers happen inside it so a custody failure rolls the ledger
// back.
type AccountService struct {
	store     repository.Store
	custody   clients.CustodyClient
	publisher events.Publisher
	logger    *logrus.Logger
}

func NewAccountService(
	store repository.Store,
	custody clients.CustodyClient,
	publisher events.Publisher,
	logger *logrus.Logger,
) *AccountService {
	return &AccountService{
		store:     store,
		custody:   custody,
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterWalletInput creates a new wallet account. ReferrerID is optional
// and immutable once set; ReferralPercents and SystemFeeBps override the
// global configuration when provided.
type RegisterWalletInput struct {
	WalletID         string
	OwnerAddress     string
	ReferrerID       string
	ReferralPercents []int64
	SystemFeeBps     *int64
}

func (s *AccountService) RegisterWallet(ctx context.Context, input RegisterWalletInput) (*models.WalletAccount, error) {
	defer metrics.TimeOperation("register_wallet").ObserveDuration()
	walletID, err := utils.NormalizeWalletID(input.WalletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	owner, err := utils.NormalizePrincipal(input.OwnerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: bad owner: %v", ErrInvalidWalletID, err)
	}
	referrerID := ""
	if input.ReferrerID != "" {
		referrerID, err = utils.NormalizeWalletID(input.ReferrerID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad referrer: %v", ErrInvalidWalletID, err)
		}
		if referrerID == walletID {
			return nil, fmt.Errorf("%w: wallet cannot refer itself", ErrInvalidReferral)
		}
	}
	if err := validateReferralSchedule(input.ReferralPercents); err != nil {
		return nil, err
	}
	if input.SystemFeeBps != nil && (*input.SystemFeeBps < 0 || *input.SystemFeeBps > utils.BpsDenominator) {
		return nil, fmt.Errorf("%w: system fee bps out of range", ErrInvalidReferral)
	}

	wallet := &models.WalletAccount{
		ID:               walletID,
		OwnerAddress:     owner,
		ReferrerID:       referrerID,
		ReferralPercents: input.ReferralPercents,
		SystemFeeBps:     input.SystemFeeBps,
		NextRequestID:    1,
	}

	err = s.store.Transact(ctx, func(tx repository.Store) error {
		if referrerID != "" {
			if _, err := tx.Wallets().Get(ctx, referrerID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrReferrerNotFound
				}
				return fmt.Errorf("failed to load referrer %s: %w", referrerID, err)
			}
		}
		if err := tx.Wallets().Create(ctx, wallet); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrWalletExists
			}
			return fmt.Errorf("failed to create wallet %s: %w", walletID, err)
		}
		return nil
	})
	metrics.RecordOperation("register_wallet", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"owner":     owner,
		"referrer":  referrerID,
	}).Info("Wallet registered")
	s.publisher.Publish(events.SubjectWalletRegistered, events.WalletRegisteredEvent{
		WalletID:     walletID,
		OwnerAddress: owner,
		ReferrerID:   referrerID,
	})
	return wallet, nil
}

// SetReferrer binds the referrer link after registration. The link is
// write-once: a wallet that already carries one cannot change it.
func (s *AccountService) SetReferrer(ctx context.Context, walletID, referrerID string) error {
	defer metrics.TimeOperation("set_referrer").ObserveDuration()
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	referrerID, err = utils.NormalizeWalletID(referrerID)
	if err != nil {
		return fmt.Errorf("%w: bad referrer: %v", ErrInvalidWalletID, err)
	}
	if referrerID == walletID {
		return fmt.Errorf("%w: wallet cannot refer itself", ErrInvalidReferral)
	}

	err = s.store.Transact(ctx, func(tx repository.Store) error {
		wallet, err := tx.Wallets().GetForUpdate(ctx, walletID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to load wallet %s: %w", walletID, err)
		}
		if wallet.ReferrerID != "" {
			return fmt.Errorf("%w: referrer already set", ErrInvalidReferral)
		}
		if _, err := tx.Wallets().Get(ctx, referrerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReferrerNotFound
			}
			return fmt.Errorf("failed to load referrer %s: %w", referrerID, err)
		}
		wallet.ReferrerID = referrerID
		return tx.Wallets().Save(ctx, wallet)
	})
	metrics.RecordOperation("set_referrer", err)
	return err
}

// DepositResult reports the outcome of a deposit.
type DepositResult struct {
	WalletID      string `json:"wallet_id"`
	Asset         string `json:"asset"`
	Amount        uint64 `json:"amount"`
	SharesMinted  uint64 `json:"shares_minted"`
	TotalAmount   uint64 `json:"total_amount"`
	TotalLPShares uint64 `json:"total_lp_shares"`
}

// Deposit mints LP shares for principal's contribution at the current
// exchange rate.
func (s *AccountService) Deposit(ctx context.Context, principal, walletID, assetKey string, amount uint64) (*DepositResult, error) {
	defer metrics.TimeOperation("deposit").ObserveDuration()
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}

	var result *DepositResult
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		wallet, err := loadOwnedWallet(ctx, tx, walletID, principal)
		if err != nil {
			return err
		}
		asset, err := loadAssetForUpdate(ctx, tx, assetKey)
		if err != nil {
			return err
		}
		if !asset.EnabledForDeposit {
			return ErrDepositDisabled
		}
		if err := checkDepositBounds(asset, amount); err != nil {
			return err
		}

		if err := s.custody.Transfer(ctx, asset.Asset, wallet.OwnerAddress, clients.VaultAccount, amount); err != nil {
			if errors.Is(err, clients.ErrInsufficientBalance) {
				return ErrInsufficientFund
			}
			return fmt.Errorf("custody transfer failed: %w", err)
		}

		shares := mintShares(asset, amount)

		account, err := tx.Wallets().GetOrCreateAccountAsset(ctx, walletID, asset.Asset)
		if err != nil {
			return fmt.Errorf("failed to load account position: %w", err)
		}
		account.CurrentAmount += amount
		account.DepositedAmount += amount
		account.LPAmount += shares

		if err := tx.Wallets().SaveAccountAsset(ctx, account); err != nil {
			return fmt.Errorf("failed to save account position: %w", err)
		}
		if err := tx.Assets().Save(ctx, asset); err != nil {
			return fmt.Errorf("failed to save asset ledger: %w", err)
		}
		if err := tx.Records().CreateDeposit(ctx, &models.DepositRecord{
			ID:           uuid.New().String(),
			WalletID:     walletID,
			Principal:    wallet.OwnerAddress,
			Asset:        asset.Asset,
			Amount:       amount,
			SharesMinted: shares,
		}); err != nil {
			return fmt.Errorf("failed to write deposit record: %w", err)
		}

		result = &DepositResult{
			WalletID:      walletID,
			Asset:         asset.Asset,
			Amount:        amount,
			SharesMinted:  shares,
			TotalAmount:   asset.TotalAmount,
			TotalLPShares: asset.TotalLPShares,
		}
		metrics.SetPoolGauges(asset.Asset, asset.TotalAmount, asset.TotalLPShares, asset.StrategyAmount)
		return nil
	})
	metrics.RecordOperation("deposit", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"asset":     result.Asset,
		"amount":    amount,
		"shares":    result.SharesMinted,
	}).Info("Deposit settled")
	s.publisher.Publish(events.SubjectDeposit, events.DepositEvent{
		WalletID:      result.WalletID,
		Asset:         result.Asset,
		Amount:        result.Amount,
		SharesMinted:  result.SharesMinted,
		TotalAmount:   result.TotalAmount,
		TotalLPShares: result.TotalLPShares,
	})
	return result, nil
}

// WithdrawResult reports the outcome of a synchronous withdrawal.
type WithdrawResult struct {
	WalletID     string `json:"wallet_id"`
	Asset        string `json:"asset"`
	Amount       uint64 `json:"amount"`
	SharesBurned uint64 `json:"shares_burned"`
}

// Withdraw burns shares and releases funds immediately. It requires the
// vault's idle custody to cover the amount; when the pool is deployed to
// strategies the caller must take the deferred request path instead.
func (s *AccountService) Withdraw(ctx context.Context, principal, walletID, assetKey string, amount uint64) (*WithdrawResult, error) {
	defer metrics.TimeOperation("withdraw").ObserveDuration()
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}

	var result *WithdrawResult
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		wallet, err := loadOwnedWallet(ctx, tx, walletID, principal)
		if err != nil {
			return err
		}
		asset, err := loadAssetForUpdate(ctx, tx, assetKey)
		if err != nil {
			return err
		}
		if !asset.EnabledForWithdraw {
			return ErrWithdrawDisabled
		}
		if err := checkWithdrawBounds(asset, amount); err != nil {
			return err
		}

		account, err := tx.Wallets().GetAccountAsset(ctx, walletID, asset.Asset)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInsufficientShares
			}
			return fmt.Errorf("failed to load account position: %w", err)
		}
		shares, err := sharesToBurn(asset, amount, account.LPAmount)
		if err != nil {
			return err
		}
		// Wallet-side check passed; now the vault-side one.
		if amount > asset.IdleAmount() {
			return ErrInsufficientLiquidity
		}

		if err := burnShares(asset, amount, shares); err != nil {
			return err
		}
		debitPrincipal(account, amount)
		account.LPAmount -= shares
		account.WithdrawnAmount += amount

		if err := s.custody.Transfer(ctx, asset.Asset, clients.VaultAccount, wallet.OwnerAddress, amount); err != nil {
			if errors.Is(err, clients.ErrInsufficientBalance) {
				return ErrInsufficientLiquidity
			}
			return fmt.Errorf("custody transfer failed: %w", err)
		}

		if err := tx.Wallets().SaveAccountAsset(ctx, account); err != nil {
			return fmt.Errorf("failed to save account position: %w", err)
		}
		if err := tx.Assets().Save(ctx, asset); err != nil {
			return fmt.Errorf("failed to save asset ledger: %w", err)
		}
		if err := tx.Records().CreateWithdrawal(ctx, &models.WithdrawalRecord{
			ID:           uuid.New().String(),
			WalletID:     walletID,
			Principal:    wallet.OwnerAddress,
			Asset:        asset.Asset,
			Amount:       amount,
			SharesBurned: shares,
		}); err != nil {
			return fmt.Errorf("failed to write withdrawal record: %w", err)
		}

		result = &WithdrawResult{
			WalletID:     walletID,
			Asset:        asset.Asset,
			Amount:       amount,
			SharesBurned: shares,
		}
		metrics.SetPoolGauges(asset.Asset, asset.TotalAmount, asset.TotalLPShares, asset.StrategyAmount)
		return nil
	})
	metrics.RecordOperation("withdraw", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"asset":     result.Asset,
		"amount":    amount,
		"shares":    result.SharesBurned,
	}).Info("Withdrawal settled")
	s.publisher.Publish(events.SubjectWithdrawal, events.WithdrawalEvent{
		WalletID:     result.WalletID,
		Asset:        result.Asset,
		Amount:       result.Amount,
		SharesBurned: result.SharesBurned,
	})
	return result, nil
}

// WalletState is the read model for one wallet: positions plus pending
// referral rewards.
type WalletState struct {
	Wallet  *models.WalletAccount  `json:"wallet"`
	Assets  []*models.AccountAsset `json:"assets"`
	Rewards map[string]uint64      `json:"rewards"`
}

func (s *AccountService) GetWalletState(ctx context.Context, walletID string) (*WalletState, error) {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	wallet, err := s.store.Wallets().Get(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet %s: %w", walletID, err)
	}
	accounts, err := s.store.Wallets().ListAccountAssets(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	rewards, err := s.GetPendingReferralFees(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return &WalletState{Wallet: wallet, Assets: accounts, Rewards: rewards}, nil
}

// GetPendingReferralFees returns the wallet's unclaimed rewards keyed by the
// asset that generated them.
func (s *AccountService) GetPendingReferralFees(ctx context.Context, walletID string) (map[string]uint64, error) {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	balances, err := s.store.Wallets().ListRewardBalances(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reward balances: %w", err)
	}
	out := make(map[string]uint64, len(balances))
	for _, b := range balances {
		if b.Amount > 0 {
			out[b.Asset] = b.Amount
		}
	}
	return out, nil
}

// ListDeposits pages the wallet's deposit history, newest first.
func (s *AccountService) ListDeposits(ctx context.Context, walletID string, page, pageSize int) ([]*models.DepositRecord, int64, error) {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	return s.store.Records().ListDepositsByWallet(ctx, walletID, page, pageSize)
}

// ListWithdrawals pages the wallet's withdrawal history, newest first.
func (s *AccountService) ListWithdrawals(ctx context.Context, walletID string, page, pageSize int) ([]*models.WithdrawalRecord, int64, error) {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	return s.store.Records().ListWithdrawalsByWallet(ctx, walletID, page, pageSize)
}

// AuthorizeOwner verifies that principal owns walletID. An empty principal
// passes unconditionally; callers use that for backend and admin capabilities.
func (s *AccountService) AuthorizeOwner(ctx context.Context, principal, walletID string) error {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	_, err = loadOwnedWallet(ctx, s.store, walletID, principal)
	return err
}

// loadOwnedWallet fetches the wallet and verifies the caller owns it. An
// empty principal means the caller already passed a stronger capability
// check (backend or admin).
func loadOwnedWallet(ctx context.Context, tx repository.Store, walletID, principal string) (*models.WalletAccount, error) {
	wallet, err := tx.Wallets().Get(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet %s: %w", walletID, err)
	}
	if principal != "" {
		p, err := utils.NormalizePrincipal(principal)
		if err != nil || p != wallet.OwnerAddress {
			return nil, ErrNotAuthorized
		}
	}
	return wallet, nil
}

func loadAssetForUpdate(ctx context.Context, tx repository.Store, assetKey string) (*models.AssetState, error) {
	asset, err := tx.Assets().GetForUpdate(ctx, assetKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssetNotSupported
		}
		return nil, fmt.Errorf("failed to load asset %s: %w", assetKey, err)
	}
	return asset, nil
}

func validateReferralSchedule(percents []int64) error {
	var sum int64
	for _, p := range percents {
		if p < 0 || p > utils.BpsDenominator {
			return fmt.Errorf("%w: level percent %d out of range", ErrInvalidReferral, p)
		}
		sum += p
	}
	if sum > utils.BpsDenominator {
		return fmt.Errorf("%w: schedule sums above 100%%", ErrInvalidReferral)
	}
	return nil
}
