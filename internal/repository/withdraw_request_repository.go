package repository

import (
	"context"
	"time"

	"vault-backend/internal/models"

	"gorm.io/gorm"
)

// withdrawRequestRepository implements WithdrawRequestRepository over gorm.
type withdrawRequestRepository struct {
	db *gorm.DB
}

func (r *withdrawRequestRepository) Create(ctx context.Context, request *models.WithdrawRequest) error {
	now := time.Now()
	request.RequestedAt = now
	request.UpdatedAt = now
	return translateGormError(r.db.WithContext(ctx).Create(request).Error)
}

func (r *withdrawRequestRepository) Get(ctx context.Context, walletID string, requestID uint64) (*models.WithdrawRequest, error) {
	var request models.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND request_id = ?", walletID, requestID).
		First(&request).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &request, nil
}

func (r *withdrawRequestRepository) ListByWalletAsset(ctx context.Context, walletID, asset string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_id = ? AND asset = ?", walletID, asset)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var requests []*models.WithdrawRequest
	err := query.Order("request_id ASC").Find(&requests).Error
	return requests, translateGormError(err)
}

func (r *withdrawRequestRepository) ListByWallet(ctx context.Context, walletID string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error) {
	query := r.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var requests []*models.WithdrawRequest
	err := query.Order("request_id ASC").Find(&requests).Error
	return requests, translateGormError(err)
}

// UpdateVersioned writes the request guarded by the version it was read at.
// A concurrent writer that got in first leaves RowsAffected at zero, which
// surfaces as ErrVersionConflict instead of silently overwriting.
func (r *withdrawRequestRepository) UpdateVersioned(ctx context.Context, request *models.WithdrawRequest, expectedVersion uint64) error {
	request.Version = expectedVersion + 1
	request.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.WithdrawRequest{}).
		Where("wallet_id = ? AND request_id = ? AND version = ?", request.WalletID, request.RequestID, expectedVersion).
		Updates(map[string]interface{}{
			"available_amount": request.AvailableAmount,
			"settled_amount":   request.SettledAmount,
			"status":           request.Status,
			"error_message":    request.ErrorMessage,
			"version":          request.Version,
			"updated_at":       request.UpdatedAt,
		})
	if result.Error != nil {
		return translateGormError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
