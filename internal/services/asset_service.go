package services

import (
	"context"
	"errors"
	"fmt"

	"vault-backend/internal/events"
	"vault-backend/internal/metrics"
	"vault-backend/internal/models"
	"vault-backend/internal/repository"
	"vault-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// AssetService covers the admin-facing asset surface: registration, bounds
// and per-direction gating. Assets are never deleted, only disabled.
type AssetService struct {
	store     repository.Store
	publisher events.Publisher
	logger    *logrus.Logger
}

func NewAssetService(store repository.Store, publisher events.Publisher, logger *logrus.Logger) *AssetService {
	return &AssetService{store: store, publisher: publisher, logger: logger}
}

// RegisterAssetInput carries the initial configuration for a new asset.
type RegisterAssetInput struct {
	Asset              string
	MinDeposit         uint64
	MaxDeposit         uint64
	MinWithdraw        uint64
	MaxWithdraw        uint64
	EnabledForDeposit  bool
	EnabledForWithdraw bool
}

func (s *AssetService) RegisterAsset(ctx context.Context, input RegisterAssetInput) (*models.AssetState, error) {
	defer metrics.TimeOperation("register_asset").ObserveDuration()
	if !utils.IsValidAssetKey(input.Asset) {
		return nil, fmt.Errorf("%w: bad asset key %q", ErrAssetNotSupported, input.Asset)
	}
	if input.MaxDeposit > 0 && input.MinDeposit > input.MaxDeposit {
		return nil, fmt.Errorf("%w: min deposit above max", ErrAmountOutOfRange)
	}
	if input.MaxWithdraw > 0 && input.MinWithdraw > input.MaxWithdraw {
		return nil, fmt.Errorf("%w: min withdraw above max", ErrAmountOutOfRange)
	}

	asset := &models.AssetState{
		Asset:              input.Asset,
		MinDeposit:         input.MinDeposit,
		MaxDeposit:         input.MaxDeposit,
		MinWithdraw:        input.MinWithdraw,
		MaxWithdraw:        input.MaxWithdraw,
		EnabledForDeposit:  input.EnabledForDeposit,
		EnabledForWithdraw: input.EnabledForWithdraw,
	}

	err := s.store.Transact(ctx, func(tx repository.Store) error {
		if err := tx.Assets().Create(ctx, asset); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAssetExists
			}
			return fmt.Errorf("failed to create asset %s: %w", input.Asset, err)
		}
		return nil
	})
	metrics.RecordOperation("register_asset", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"asset":            asset.Asset,
		"deposit_enabled":  asset.EnabledForDeposit,
		"withdraw_enabled": asset.EnabledForWithdraw,
	}).Info("Asset registered")
	s.publisher.Publish(events.SubjectAssetConfigured, events.AssetConfiguredEvent{
		Asset:              asset.Asset,
		EnabledForDeposit:  asset.EnabledForDeposit,
		EnabledForWithdraw: asset.EnabledForWithdraw,
	})
	return asset, nil
}

// UpdateAssetInput updates gating and bounds; nil fields are left unchanged.
type UpdateAssetInput struct {
	EnabledForDeposit  *bool
	EnabledForWithdraw *bool
	MinDeposit         *uint64
	MaxDeposit         *uint64
	MinWithdraw        *uint64
	MaxWithdraw        *uint64
}

func (s *AssetService) UpdateAsset(ctx context.Context, assetKey string, input UpdateAssetInput) (*models.AssetState, error) {
	defer metrics.TimeOperation("update_asset").ObserveDuration()
	var updated *models.AssetState
	err := s.store.Transact(ctx, func(tx repository.Store) error {
		asset, err := tx.Assets().GetForUpdate(ctx, assetKey)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAssetNotSupported
			}
			return fmt.Errorf("failed to load asset %s: %w", assetKey, err)
		}
		if input.EnabledForDeposit != nil {
			asset.EnabledForDeposit = *input.EnabledForDeposit
		}
		if input.EnabledForWithdraw != nil {
			asset.EnabledForWithdraw = *input.EnabledForWithdraw
		}
		if input.MinDeposit != nil {
			asset.MinDeposit = *input.MinDeposit
		}
		if input.MaxDeposit != nil {
			asset.MaxDeposit = *input.MaxDeposit
		}
		if input.MinWithdraw != nil {
			asset.MinWithdraw = *input.MinWithdraw
		}
		if input.MaxWithdraw != nil {
			asset.MaxWithdraw = *input.MaxWithdraw
		}
		if asset.MaxDeposit > 0 && asset.MinDeposit > asset.MaxDeposit {
			return fmt.Errorf("%w: min deposit above max", ErrAmountOutOfRange)
		}
		if asset.MaxWithdraw > 0 && asset.MinWithdraw > asset.MaxWithdraw {
			return fmt.Errorf("%w: min withdraw above max", ErrAmountOutOfRange)
		}
		if err := tx.Assets().Save(ctx, asset); err != nil {
			return fmt.Errorf("failed to save asset %s: %w", assetKey, err)
		}
		updated = asset
		return nil
	})
	metrics.RecordOperation("update_asset", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("asset", assetKey).Info("Asset configuration updated")
	s.publisher.Publish(events.SubjectAssetConfigured, events.AssetConfiguredEvent{
		Asset:              updated.Asset,
		EnabledForDeposit:  updated.EnabledForDeposit,
		EnabledForWithdraw: updated.EnabledForWithdraw,
	})
	return updated, nil
}

func (s *AssetService) GetAsset(ctx context.Context, assetKey string) (*models.AssetState, error) {
	asset, err := s.store.Assets().Get(ctx, assetKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssetNotSupported
		}
		return nil, fmt.Errorf("failed to load asset %s: %w", assetKey, err)
	}
	return asset, nil
}

func (s *AssetService) ListAssets(ctx context.Context) ([]*models.AssetState, error) {
	return s.store.Assets().List(ctx)
}

// Reconcile compares the aggregate ledger against the sum of wallet
// positions for one asset. Strategy P&L makes the two legitimately diverge,
// so the result is reported, not enforced.
type ReconcileResult struct {
	Asset            string `json:"asset"`
	TotalAmount      uint64 `json:"total_amount"`
	SumWalletCurrent uint64 `json:"sum_wallet_current"`
	StrategyAmount   uint64 `json:"strategy_amount"`
}

func (s *AssetService) Reconcile(ctx context.Context, assetKey string) (*ReconcileResult, error) {
	asset, err := s.GetAsset(ctx, assetKey)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.Wallets().SumCurrentAmounts(ctx, assetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sum wallet positions for %s: %w", assetKey, err)
	}
	return &ReconcileResult{
		Asset:            asset.Asset,
		TotalAmount:      asset.TotalAmount,
		SumWalletCurrent: sum,
		StrategyAmount:   asset.StrategyAmount,
	}, nil
}
