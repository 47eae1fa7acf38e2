package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// gormStore implements Store on top of a *gorm.DB handle. The same type
// serves both the root store and transaction-scoped stores: Transact simply
// rebinds the handle to the transaction.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm handle in the Store interface.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Assets() AssetRepository {
	return &assetRepository{db: s.db}
}

func (s *gormStore) Wallets() WalletRepository {
	return &walletRepository{db: s.db}
}

func (s *gormStore) WithdrawRequests() WithdrawRequestRepository {
	return &withdrawRequestRepository{db: s.db}
}

func (s *gormStore) Records() RecordRepository {
	return &recordRepository{db: s.db}
}

func (s *gormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translateGormError maps gorm errors onto the repository sentinels.
func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
