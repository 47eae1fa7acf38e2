package repository

import (
	"context"
	"time"

	"vault-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// assetRepository implements AssetRepository over gorm.
type assetRepository struct {
	db *gorm.DB
}

func (r *assetRepository) Create(ctx context.Context, asset *models.AssetState) error {
	now := time.Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	return translateGormError(r.db.WithContext(ctx).Create(asset).Error)
}

func (r *assetRepository) Get(ctx context.Context, asset string) (*models.AssetState, error) {
	var state models.AssetState
	err := r.db.WithContext(ctx).Where("asset = ?", asset).First(&state).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &state, nil
}

func (r *assetRepository) GetForUpdate(ctx context.Context, asset string) (*models.AssetState, error) {
	var state models.AssetState
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ?", asset).
		First(&state).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &state, nil
}

func (r *assetRepository) List(ctx context.Context) ([]*models.AssetState, error) {
	var states []*models.AssetState
	err := r.db.WithContext(ctx).Order("asset ASC").Find(&states).Error
	return states, translateGormError(err)
}

func (r *assetRepository) Save(ctx context.Context, asset *models.AssetState) error {
	asset.UpdatedAt = time.Now()
	return translateGormError(r.db.WithContext(ctx).Save(asset).Error)
}
