// Package services provides the vault's accounting and settlement logic.
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

// WithdrawRequestService is the deferred withdrawal state machine. Users
// file requests against their position; an authorized backend actor sources
// liquidity and raises available_amount (possibly in partial fills); users
// settle whatever has been sourced so far.
type WithdrawRequestService struct {
	store       repository.Store
	custody     clients.CustodyClient
	publisher   events.Publisher
	logger      *logrus.Logger
	pushService *WebSocketPushService // optional
}

func NewWithdrawRequestService(
	store repository.Store,
	custody clients.CustodyClient,
	publisher events.Publisher,
	logger *logrus.Logger,
) *WithdrawRequestService {
	return &WithdrawRequestService{
		store:     store,
		custody:   custody,
		publisher: publisher,
		logger:    logger,
	}
}

// SetPushService enables websocket notification of request transitions.
func (s *WithdrawRequestService) SetPushService(push *WebSocketPushService) {
	s.pushService = push
}

// RequestWithdraw files a deferred withdrawal claim. The amount is checked
// against the wallet's position net of already-outstanding requests, not
// against liquid custody; sourcing liquidity is the backend's problem.
func (s *WithdrawRequestService) RequestWithdraw(ctx context.Context, principal, walletID, assetKey string, amount uint64) (*models.WithdrawRequest, error) {
	defer metrics.TimeOperation("request_withdraw").ObserveDuration()
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}

	var request *models.WithdrawRequest
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		wallet, err := tx.Wallets().GetForUpdate(ctx, walletID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to load wallet %s: %w", walletID, err)
		}
		if principal != "" {
			p, perr := utils.NormalizePrincipal(principal)
			if perr != nil || p != wallet.OwnerAddress {
				return ErrNotAuthorized
			}
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
				return ErrInsufficientFund
			}
			return fmt.Errorf("failed to load account position: %w", err)
		}

		pending, err := tx.WithdrawRequests().ListByWalletAsset(ctx, walletID, asset.Asset, models.WithdrawStatusPending)
		if err != nil {
			return fmt.Errorf("failed to list pending requests: %w", err)
		}
		var committed uint64
		for _, r := range pending {
			committed += r.Outstanding()
		}
		// Budget against the share value, not deposited principal: interest
		// distribution appreciates the position without touching it.
		position := utils.AmountForShares(account.LPAmount, asset.TotalAmount, asset.TotalLPShares)
		if committed+amount > position {
			return ErrInsufficientFund
		}

		requestID := wallet.NextRequestID
		wallet.NextRequestID++
		if err := tx.Wallets().Save(ctx, wallet); err != nil {
			return fmt.Errorf("failed to advance request counter: %w", err)
		}

		request = &models.WithdrawRequest{
			WalletID:        walletID,
			RequestID:       requestID,
			Asset:           asset.Asset,
			RequestedAmount: amount,
			Status:          models.WithdrawStatusPending,
		}
		if err := tx.WithdrawRequests().Create(ctx, request); err != nil {
			return fmt.Errorf("failed to create withdraw request: %w", err)
		}
		return tx.Records().CreateWithdrawRequest(ctx, &models.WithdrawRequestRecord{
			ID:              uuid.New().String(),
			WalletID:        walletID,
			Asset:           asset.Asset,
			RequestID:       requestID,
			RequestedAmount: amount,
		})
	})
	metrics.RecordOperation("request_withdraw", err)
	if err != nil {
		return nil, err
	}
	metrics.PendingWithdrawRequests.WithLabelValues(request.Asset).Inc()

	s.logger.WithFields(logrus.Fields{
		"wallet_id":  walletID,
		"request_id": request.RequestID,
		"asset":      request.Asset,
		"amount":     amount,
	}).Info("Withdraw request created")
	s.publisher.Publish(events.SubjectWithdrawRequest, events.WithdrawRequestedEvent{
		WalletID:  walletID,
		RequestID: request.RequestID,
		Asset:     request.Asset,
		Amount:    amount,
	})
	return request, nil
}

// UpdateRequestStatusInput is a backend fill or terminal transition.
// AvailableAdd raises available_amount; Status success requires the request
// to be fully sourced and an empty error message, failed requires a
// non-empty one.
type UpdateRequestStatusInput struct {
	WalletID     string
	RequestID    uint64
	Status       models.WithdrawStatus
	AvailableAdd uint64
	ErrorMessage string
}

func (s *WithdrawRequestService) UpdateRequestStatus(ctx context.Context, actor string, input UpdateRequestStatusInput) (*models.WithdrawRequest, error) {
	defer metrics.TimeOperation("update_withdraw_request_status").ObserveDuration()
	walletID, err := utils.NormalizeWalletID(input.WalletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	switch input.Status {
	case models.WithdrawStatusPending, models.WithdrawStatusSuccess:
		if input.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: error message only allowed on failed", ErrInvalidAmount)
		}
	case models.WithdrawStatusFailed:
		if input.ErrorMessage == "" {
			return nil, fmt.Errorf("%w: failed status requires an error message", ErrInvalidAmount)
		}
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidAmount, input.Status)
	}

	var request *models.WithdrawRequest
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		req, err := tx.WithdrawRequests().Get(ctx, walletID, input.RequestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to load request: %w", err)
		}
		if req.Status.Terminal() {
			return ErrRequestTerminal
		}

		version := req.Version
		if input.AvailableAdd > 0 {
			if req.AvailableAmount+input.AvailableAdd > req.Outstanding() {
				return fmt.Errorf("%w: fill exceeds outstanding amount", ErrInvalidAmount)
			}
			req.AvailableAmount += input.AvailableAdd
		}
		switch input.Status {
		case models.WithdrawStatusSuccess:
			if req.SettledAmount+req.AvailableAmount != req.RequestedAmount {
				return fmt.Errorf("%w: success requires the request fully sourced", ErrInvalidAmount)
			}
			req.Status = models.WithdrawStatusSuccess
		case models.WithdrawStatusFailed:
			req.Status = models.WithdrawStatusFailed
			req.ErrorMessage = input.ErrorMessage
		}

		if err := tx.WithdrawRequests().UpdateVersioned(ctx, req, version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrConcurrentModification
			}
			return fmt.Errorf("failed to update request: %w", err)
		}
		request = req
		return tx.Records().CreateRequestStatus(ctx, &models.RequestStatusRecord{
			ID:             uuid.New().String(),
			WalletID:       walletID,
			RequestID:      req.RequestID,
			Status:         req.Status,
			AvailableAdded: input.AvailableAdd,
			ErrorMessage:   input.ErrorMessage,
		})
	})
	metrics.RecordOperation("update_withdraw_request_status", err)
	if err != nil {
		return nil, err
	}
	// The terminal guard above means any terminal status here left pending.
	if request.Status.Terminal() {
		metrics.PendingWithdrawRequests.WithLabelValues(request.Asset).Dec()
	}

	s.logger.WithFields(logrus.Fields{
		"actor":      actor,
		"wallet_id":  walletID,
		"request_id": request.RequestID,
		"status":     request.Status,
		"added":      input.AvailableAdd,
	}).Info("Withdraw request updated")
	s.notifyStatus(request)
	return request, nil
}

// WithdrawRequestedAmount settles exactly the sourced liquidity across the
// wallet's requests on one asset, oldest first. A request whose settled
// amount reaches its requested amount flips to Success.
func (s *WithdrawRequestService) WithdrawRequestedAmount(ctx context.Context, principal, walletID, assetKey string) (uint64, error) {
	defer metrics.TimeOperation("withdraw_requested_amount").ObserveDuration()
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}

	var (
		total     uint64
		settled   []*models.WithdrawRequest
		completed int
	)
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		wallet, err := loadOwnedWallet(ctx, tx, walletID, principal)
		if err != nil {
			return err
		}
		asset, err := loadAssetForUpdate(ctx, tx, assetKey)
		if err != nil {
			return err
		}

		requests, err := tx.WithdrawRequests().ListByWalletAsset(ctx, walletID, asset.Asset,
			models.WithdrawStatusPending, models.WithdrawStatusSuccess)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}
		total = 0
		settled = settled[:0]
		completed = 0
		for _, r := range requests {
			if r.AvailableAmount > 0 {
				total += r.AvailableAmount
			}
		}
		if total == 0 {
			return ErrNoAvailableAmount
		}
		if total > asset.IdleAmount() {
			return ErrInsufficientLiquidity
		}

		account, err := tx.Wallets().GetAccountAsset(ctx, walletID, asset.Asset)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: request without position", ErrLedgerInvariant)
			}
			return fmt.Errorf("failed to load account position: %w", err)
		}
		shares, err := sharesToBurn(asset, total, account.LPAmount)
		if err != nil {
			return err
		}
		if err := burnShares(asset, total, shares); err != nil {
			return err
		}
		debitPrincipal(account, total)
		account.LPAmount -= shares
		account.WithdrawnAmount += total

		if err := s.custody.Transfer(ctx, asset.Asset, clients.VaultAccount, wallet.OwnerAddress, total); err != nil {
			if errors.Is(err, clients.ErrInsufficientBalance) {
				return ErrInsufficientLiquidity
			}
			return fmt.Errorf("custody transfer failed: %w", err)
		}

		for _, r := range requests {
			if r.AvailableAmount == 0 {
				continue
			}
			version := r.Version
			portion := r.AvailableAmount
			r.SettledAmount += portion
			r.AvailableAmount = 0
			if r.Status == models.WithdrawStatusPending && r.SettledAmount == r.RequestedAmount {
				r.Status = models.WithdrawStatusSuccess
				completed++
			}
			if err := tx.WithdrawRequests().UpdateVersioned(ctx, r, version); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return ErrConcurrentModification
				}
				return fmt.Errorf("failed to settle request %d: %w", r.RequestID, err)
			}
			requestID := r.RequestID
			if err := tx.Records().CreateWithdrawal(ctx, &models.WithdrawalRecord{
				ID:           uuid.New().String(),
				WalletID:     walletID,
				Principal:    wallet.OwnerAddress,
				Asset:        asset.Asset,
				Amount:       portion,
				SharesBurned: utils.SharesForWithdraw(portion, asset.TotalAmount+total, asset.TotalLPShares+shares),
				RequestID:    &requestID,
			}); err != nil {
				return fmt.Errorf("failed to write withdrawal record: %w", err)
			}
			settled = append(settled, r)
		}

		if err := tx.Wallets().SaveAccountAsset(ctx, account); err != nil {
			return fmt.Errorf("failed to save account position: %w", err)
		}
		if err := tx.Assets().Save(ctx, asset); err != nil {
			return fmt.Errorf("failed to save asset ledger: %w", err)
		}
		metrics.SetPoolGauges(asset.Asset, asset.TotalAmount, asset.TotalLPShares, asset.StrategyAmount)
		return nil
	})
	metrics.RecordOperation("withdraw_requested_amount", err)
	if err != nil {
		return 0, err
	}
	if completed > 0 {
		metrics.PendingWithdrawRequests.WithLabelValues(settled[0].Asset).Sub(float64(completed))
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"asset":     assetKey,
		"amount":    total,
		"requests":  len(settled),
	}).Info("Requested amount settled")
	for _, r := range settled {
		requestID := r.RequestID
		s.publisher.Publish(events.SubjectWithdrawal, events.WithdrawalEvent{
			WalletID:  walletID,
			Asset:     r.Asset,
			Amount:    r.SettledAmount,
			RequestID: &requestID,
		})
		s.notifyStatus(r)
	}
	return total, nil
}

// WithdrawalState aggregates the wallet's deferred withdrawal position on
// one asset.
type WithdrawalState struct {
	WalletID  string `json:"wallet_id"`
	Asset     string `json:"asset"`
	Requested uint64 `json:"requested"` // outstanding across pending requests
	Available uint64 `json:"available"` // sourced, not yet settled
	Settled   uint64 `json:"settled"`   // lifetime settled through requests
}

func (s *WithdrawRequestService) GetWithdrawalState(ctx context.Context, walletID, assetKey string) (*WithdrawalState, error) {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	requests, err := s.store.WithdrawRequests().ListByWalletAsset(ctx, walletID, assetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	state := &WithdrawalState{WalletID: walletID, Asset: assetKey}
	for _, r := range requests {
		state.Settled += r.SettledAmount
		if r.Status == models.WithdrawStatusPending {
			state.Requested += r.Outstanding()
			state.Available += r.AvailableAmount
		} else if r.Status == models.WithdrawStatusSuccess {
			state.Available += r.AvailableAmount
		}
	}
	return state, nil
}

// ListRequests returns the wallet's requests, oldest first, optionally
// filtered by status.
func (s *WithdrawRequestService) ListRequests(ctx context.Context, walletID string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error) {
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}
	return s.store.WithdrawRequests().ListByWallet(ctx, walletID, statuses...)
}

func (s *WithdrawRequestService) notifyStatus(r *models.WithdrawRequest) {
	s.publisher.Publish(events.SubjectWithdrawStatus, events.WithdrawStatusEvent{
		WalletID:      r.WalletID,
		RequestID:     r.RequestID,
		Asset:         r.Asset,
		Status:        string(r.Status),
		SettledAmount: r.SettledAmount,
		ErrorMessage:  r.ErrorMessage,
	})
	if s.pushService != nil {
		s.pushService.PushWithdrawRequestUpdate(r)
	}
}
