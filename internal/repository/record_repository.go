package repository

import (
	"context"
	"time"

	"vault-backend/internal/models"

	"gorm.io/gorm"
)

// recordRepository implements RecordRepository over gorm.
type recordRepository struct {
	db *gorm.DB
}

func (r *recordRepository) CreateDeposit(ctx context.Context, rec *models.DepositRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) CreateWithdrawal(ctx context.Context, rec *models.WithdrawalRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) CreateWithdrawRequest(ctx context.Context, rec *models.WithdrawRequestRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) CreateRequestStatus(ctx context.Context, rec *models.RequestStatusRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) CreateFeeShare(ctx context.Context, rec *models.FeeShareRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) CreateStrategyFlow(ctx context.Context, rec *models.StrategyFlowRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) CreateRewardClaim(ctx context.Context, rec *models.RewardClaimRecord) error {
	rec.CreatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *recordRepository) ListDepositsByWallet(ctx context.Context, walletID string, page, pageSize int) ([]*models.DepositRecord, int64, error) {
	var records []*models.DepositRecord
	var total int64

	query := r.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if err := query.Model(&models.DepositRecord{}).Count(&total).Error; err != nil {
		return nil, 0, translateGormError(err)
	}
	err := query.
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&records).Error
	return records, total, translateGormError(err)
}

func (r *recordRepository) ListWithdrawalsByWallet(ctx context.Context, walletID string, page, pageSize int) ([]*models.WithdrawalRecord, int64, error) {
	var records []*models.WithdrawalRecord
	var total int64

	query := r.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if err := query.Model(&models.WithdrawalRecord{}).Count(&total).Error; err != nil {
		return nil, 0, translateGormError(err)
	}
	err := query.
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&records).Error
	return records, total, translateGormError(err)
}

func (r *recordRepository) ListFeeSharesByWallet(ctx context.Context, walletID string, page, pageSize int) ([]*models.FeeShareRecord, int64, error) {
	var records []*models.FeeShareRecord
	var total int64

	query := r.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if err := query.Model(&models.FeeShareRecord{}).Count(&total).Error; err != nil {
		return nil, 0, translateGormError(err)
	}
	err := query.
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&records).Error
	return records, total, translateGormError(err)
}
