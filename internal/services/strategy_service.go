package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vault-backend/internal/events"
	"vault-backend/internal/metrics"
	"vault-backend/internal/models"
	"vault-backend/internal/repository"
	"vault-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Strategy is an external yield destination. Implementations move custody on
// their side and either complete or fail within the calling transaction;
// long-running settlement re-enters through the withdraw request engine.
type Strategy interface {
	Deposit(ctx context.Context, asset string, amount uint64) error
	Withdraw(ctx context.Context, asset string, amount uint64) error
}

// NopStrategy accepts every flow. Registered as "manual" in dev mode where
// an operator moves funds out of band.
type NopStrategy struct{}

func (NopStrategy) Deposit(ctx context.Context, asset string, amount uint64) error  { return nil }
func (NopStrategy) Withdraw(ctx context.Context, asset string, amount uint64) error { return nil }

// StrategyService moves idle custody into and out of named strategies and
// reconciles the aggregate ledger. Realized interest reported on withdrawal
// is handed to the distribution engine inside the same transaction.
type StrategyService struct {
	store        repository.Store
	distribution *DistributionService
	publisher    events.Publisher
	logger       *logrus.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy
}

func NewStrategyService(
	store repository.Store,
	distribution *DistributionService,
	publisher events.Publisher,
	logger *logrus.Logger,
) *StrategyService {
	return &StrategyService{
		store:        store,
		distribution: distribution,
		publisher:    publisher,
		logger:       logger,
		strategies:   make(map[string]Strategy),
	}
}

// Register adds a strategy under a name. Registration replaces any existing
// strategy with the same name.
func (s *StrategyService) Register(name string, strategy Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[name] = strategy
}

// Strategies lists the registered strategy names.
func (s *StrategyService) Strategies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	return names
}

func (s *StrategyService) lookup(name string) (Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	strategy, ok := s.strategies[name]
	if !ok {
		return nil, ErrStrategyNotFound
	}
	return strategy, nil
}

// DepositToStrategy deploys idle custody to a strategy on behalf of a
// wallet's position.
func (s *StrategyService) DepositToStrategy(ctx context.Context, walletID, assetKey, strategyName string, amount uint64) error {
	defer metrics.TimeOperation("deposit_to_strategy").ObserveDuration()
	if amount == 0 {
		return ErrInvalidAmount
	}
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	strategy, err := s.lookup(strategyName)
	if err != nil {
		return err
	}

	err = s.store.Transact(ctx, func(tx repository.Store) error {
		asset, err := loadAssetForUpdate(ctx, tx, assetKey)
		if err != nil {
			return err
		}
		if amount > asset.IdleAmount() {
			return ErrInsufficientIdleLiquidity
		}
		account, err := tx.Wallets().GetAccountAsset(ctx, walletID, asset.Asset)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to load account position: %w", err)
		}

		if err := strategy.Deposit(ctx, asset.Asset, amount); err != nil {
			return fmt.Errorf("strategy %s rejected deposit: %w", strategyName, err)
		}

		asset.StrategyAmount += amount
		asset.TotalDistributedAmount += amount
		account.DistributedAmount += amount

		if err := tx.Wallets().SaveAccountAsset(ctx, account); err != nil {
			return fmt.Errorf("failed to save account position: %w", err)
		}
		if err := tx.Assets().Save(ctx, asset); err != nil {
			return fmt.Errorf("failed to save asset ledger: %w", err)
		}
		metrics.SetPoolGauges(asset.Asset, asset.TotalAmount, asset.TotalLPShares, asset.StrategyAmount)
		return tx.Records().CreateStrategyFlow(ctx, &models.StrategyFlowRecord{
			ID:        uuid.New().String(),
			WalletID:  walletID,
			Asset:     asset.Asset,
			Strategy:  strategyName,
			Direction: "deposit",
			Amount:    amount,
		})
	})
	metrics.RecordOperation("deposit_to_strategy", err)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"asset":     assetKey,
		"strategy":  strategyName,
		"amount":    amount,
	}).Info("Custody deployed to strategy")
	s.publisher.Publish(events.SubjectStrategyFlow, events.StrategyFlowEvent{
		Strategy:  strategyName,
		Asset:     assetKey,
		Direction: "deposit",
		Amount:    amount,
	})
	return nil
}

// WithdrawFromStrategy returns principal from a strategy and settles the
// realized interest it reports: the system fee and referral shares are
// carved out and the net interest joins the pool.
func (s *StrategyService) WithdrawFromStrategy(ctx context.Context, walletID, assetKey, strategyName string, amount, interest uint64) error {
	defer metrics.TimeOperation("withdraw_from_strategy").ObserveDuration()
	if amount == 0 && interest == 0 {
		return ErrInvalidAmount
	}
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	strategy, err := s.lookup(strategyName)
	if err != nil {
		return err
	}

	var distribution *DistributionResult
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		asset, err := loadAssetForUpdate(ctx, tx, assetKey)
		if err != nil {
			return err
		}
		if amount > asset.StrategyAmount {
			return fmt.Errorf("%w: strategy return %d exceeds deployed %d", ErrLedgerInvariant, amount, asset.StrategyAmount)
		}
		account, err := tx.Wallets().GetAccountAsset(ctx, walletID, asset.Asset)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to load account position: %w", err)
		}
		if amount > account.DistributedAmount {
			return fmt.Errorf("%w: strategy return exceeds wallet's deployed amount", ErrLedgerInvariant)
		}

		if err := strategy.Withdraw(ctx, asset.Asset, amount+interest); err != nil {
			return fmt.Errorf("strategy %s rejected withdrawal: %w", strategyName, err)
		}

		asset.StrategyAmount -= amount
		account.DistributedAmount -= amount
		// Save the position before distribution: Distribute reloads this row
		// to credit interest stats.
		if err := tx.Wallets().SaveAccountAsset(ctx, account); err != nil {
			return fmt.Errorf("failed to save account position: %w", err)
		}

		if interest > 0 {
			distribution, err = s.distribution.Distribute(ctx, tx, walletID, asset.Asset, strategyName, interest)
			if err != nil {
				return err
			}
			asset.TotalAmount += distribution.NetInterest
		}

		if err := tx.Assets().Save(ctx, asset); err != nil {
			return fmt.Errorf("failed to save asset ledger: %w", err)
		}
		metrics.SetPoolGauges(asset.Asset, asset.TotalAmount, asset.TotalLPShares, asset.StrategyAmount)
		return tx.Records().CreateStrategyFlow(ctx, &models.StrategyFlowRecord{
			ID:             uuid.New().String(),
			WalletID:       walletID,
			Asset:          asset.Asset,
			Strategy:       strategyName,
			Direction:      "withdraw",
			Amount:         amount,
			InterestAmount: interest,
		})
	})
	metrics.RecordOperation("withdraw_from_strategy", err)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"asset":     assetKey,
		"strategy":  strategyName,
		"amount":    amount,
		"interest":  interest,
	}).Info("Custody returned from strategy")
	s.publisher.Publish(events.SubjectStrategyFlow, events.StrategyFlowEvent{
		Strategy:  strategyName,
		Asset:     assetKey,
		Direction: "withdraw",
		Amount:    amount,
		Interest:  interest,
	})
	if distribution != nil {
		s.distribution.PublishResult(distribution)
	}
	return nil
}
