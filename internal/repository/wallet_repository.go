package repository

import (
	"context"
	"errors"
	"time"

	"vault-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// walletRepository implements WalletRepository over gorm.
type walletRepository struct {
	db *gorm.DB
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.WalletAccount) error {
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	return translateGormError(r.db.WithContext(ctx).Create(wallet).Error)
}

func (r *walletRepository) Get(ctx context.Context, id string) (*models.WalletAccount, error) {
	var wallet models.WalletAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetForUpdate(ctx context.Context, id string) (*models.WalletAccount, error) {
	var wallet models.WalletAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wallet).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &wallet, nil
}

func (r *walletRepository) Save(ctx context.Context, wallet *models.WalletAccount) error {
	wallet.UpdatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Save(wallet).Error)
}

func (r *walletRepository) GetAccountAsset(ctx context.Context, walletID, asset string) (*models.AccountAsset, error) {
	var account models.AccountAsset
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND asset = ?", walletID, asset).
		First(&account).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &account, nil
}

func (r *walletRepository) GetOrCreateAccountAsset(ctx context.Context, walletID, asset string) (*models.AccountAsset, error) {
	account, err := r.GetAccountAsset(ctx, walletID, asset)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := time.Now()
	account = &models.AccountAsset{
		WalletID:  walletID,
		Asset:     asset,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, translateGormError(err)
	}
	return account, nil
}

func (r *walletRepository) SaveAccountAsset(ctx context.Context, account *models.AccountAsset) error {
	account.UpdatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Save(account).Error)
}

func (r *walletRepository) ListAccountAssets(ctx context.Context, walletID string) ([]*models.AccountAsset, error) {
	var accounts []*models.AccountAsset
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("asset ASC").
		Find(&accounts).Error
	return accounts, translateGormError(err)
}

func (r *walletRepository) SumCurrentAmounts(ctx context.Context, asset string) (uint64, error) {
	var sum uint64
	err := r.db.WithContext(ctx).
		Model(&models.AccountAsset{}).
		Where("asset = ?", asset).
		Select("COALESCE(SUM(current_amount), 0)").
		Scan(&sum).Error
	return sum, translateGormError(err)
}

func (r *walletRepository) GetRewardBalance(ctx context.Context, walletID, asset string) (*models.RewardBalance, error) {
	var balance models.RewardBalance
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND asset = ?", walletID, asset).
		First(&balance).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &balance, nil
}

func (r *walletRepository) SaveRewardBalance(ctx context.Context, balance *models.RewardBalance) error {
	balance.UpdatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Save(balance).Error)
}

func (r *walletRepository) ListRewardBalances(ctx context.Context, walletID string) ([]*models.RewardBalance, error) {
	var balances []*models.RewardBalance
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("asset ASC").
		Find(&balances).Error
	return balances, translateGormError(err)
}
