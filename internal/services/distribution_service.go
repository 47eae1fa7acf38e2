package services

import (
	"context"
	"encoding/json"
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

// DistributionService splits realized yield into the system fee, the
// referral chain payouts and the net interest credited back to the pool.
// Referral payouts accrue as pending rewards; claiming them transfers
// custody out of the fee account.
type DistributionService struct {
	store       repository.Store
	custody     clients.CustodyClient
	publisher   events.Publisher
	pushService *WebSocketPushService // optional
	logger      *logrus.Logger

	systemFeeBps     int64
	referralPercents []int64 // global default schedule, level 1 first
	feeRecipient     string  // wallet id collecting the retained fee, may be empty
}

func NewDistributionService(
	store repository.Store,
	custody clients.CustodyClient,
	publisher events.Publisher,
	logger *logrus.Logger,
	systemFeeBps int64,
	referralPercents []int64,
	feeRecipient string,
) *DistributionService {
	return &DistributionService{
		store:            store,
		custody:          custody,
		publisher:        publisher,
		logger:           logger,
		systemFeeBps:     systemFeeBps,
		referralPercents: referralPercents,
		feeRecipient:     feeRecipient,
	}
}

// SetPushService enables websocket notification of reward credits.
func (s *DistributionService) SetPushService(push *WebSocketPushService) {
	s.pushService = push
}

// DistributionResult is the full accounting of one interest report.
type DistributionResult struct {
	WalletID       string                 `json:"wallet_id"`
	Asset          string                 `json:"asset"`
	Strategy       string                 `json:"strategy,omitempty"`
	InterestAmount uint64                 `json:"interest_amount"`
	SystemFee      uint64                 `json:"system_fee"`
	NetInterest    uint64                 `json:"net_interest"`
	RetainedFee    uint64                 `json:"retained_fee"`
	Levels         []models.FeeShareLevel `json:"levels"`
}

// Distribute apportions one realized interest amount inside an already-open
// transaction. The strategy gateway calls this so that custody reconciliation
// and fee distribution commit or roll back together; the caller credits the
// returned NetInterest to the pool total, which lifts the exchange rate for
// every holder without minting shares. Referral shares and the retained fee
// stay outside the pool as claimable balances.
func (s *DistributionService) Distribute(ctx context.Context, tx repository.Store, walletID, assetKey, strategy string, interest uint64) (*DistributionResult, error) {
	if interest == 0 {
		return nil, ErrInvalidAmount
	}
	wallet, err := tx.Wallets().Get(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet %s: %w", walletID, err)
	}

	feeBps := s.systemFeeBps
	if wallet.SystemFeeBps != nil {
		feeBps = *wallet.SystemFeeBps
	}
	systemFee := utils.BpsShare(interest, feeBps)
	netInterest := interest - systemFee

	account, err := tx.Wallets().GetOrCreateAccountAsset(ctx, walletID, assetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load account position: %w", err)
	}
	account.InterestAmount += interest
	account.InterestShareAmount += netInterest
	if err := tx.Wallets().SaveAccountAsset(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account position: %w", err)
	}

	schedule := s.referralPercents
	if len(wallet.ReferralPercents) > 0 {
		schedule = wallet.ReferralPercents
	}

	result := &DistributionResult{
		WalletID:       walletID,
		Asset:          assetKey,
		Strategy:       strategy,
		InterestAmount: interest,
		SystemFee:      systemFee,
		NetInterest:    netInterest,
	}

	// Walk the referrer chain level by level. A broken chain stops the walk;
	// unpaid levels revert to the retained fee, never to other levels.
	var paidOut uint64
	current := wallet.ReferrerID
	for i, bps := range schedule {
		if current == "" {
			break
		}
		referrer, err := tx.Wallets().Get(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("failed to load referrer %s: %w", current, err)
		}
		reward := utils.BpsShare(systemFee, bps)
		if reward > 0 {
			if err := s.creditReward(ctx, tx, referrer.ID, assetKey, reward); err != nil {
				return nil, err
			}
			paidOut += reward
		}
		result.Levels = append(result.Levels, models.FeeShareLevel{
			Level:      i + 1,
			WalletID:   referrer.ID,
			PercentBps: bps,
			Reward:     reward,
		})
		current = referrer.ReferrerID
	}
	if paidOut > systemFee {
		return nil, fmt.Errorf("%w: referral payouts exceed system fee", ErrLedgerInvariant)
	}
	result.RetainedFee = systemFee - paidOut

	if result.RetainedFee > 0 && s.feeRecipient != "" {
		if err := s.creditReward(ctx, tx, s.feeRecipient, assetKey, result.RetainedFee); err != nil {
			return nil, err
		}
	}

	breakdown, err := json.Marshal(result.Levels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	if err := tx.Records().CreateFeeShare(ctx, &models.FeeShareRecord{
		ID:             uuid.New().String(),
		WalletID:       walletID,
		Asset:          assetKey,
		Strategy:       strategy,
		InterestAmount: interest,
		SystemFee:      systemFee,
		NetInterest:    netInterest,
		RetainedFee:    result.RetainedFee,
		Breakdown:      string(breakdown),
	}); err != nil {
		return nil, fmt.Errorf("failed to write fee share record: %w", err)
	}
	return result, nil
}

// PublishResult emits the fee distribution event; called after the owning
// transaction commits.
func (s *DistributionService) PublishResult(result *DistributionResult) {
	shares := make([]events.FeeShareEntry, 0, len(result.Levels))
	for _, l := range result.Levels {
		shares = append(shares, events.FeeShareEntry{
			WalletID: l.WalletID,
			Level:    l.Level,
			Bps:      l.PercentBps,
			Amount:   l.Reward,
		})
	}
	s.publisher.Publish(events.SubjectFeesDistributed, events.FeesDistributedEvent{
		WalletID:       result.WalletID,
		Asset:          result.Asset,
		InterestAmount: result.InterestAmount,
		SystemFee:      result.SystemFee,
		NetInterest:    result.NetInterest,
		RetainedFee:    result.RetainedFee,
		ReferralShares: shares,
	})
	if s.pushService != nil {
		for _, l := range result.Levels {
			if l.Reward > 0 {
				s.pushService.PushRewardCredit(l.WalletID, result.Asset, l.Reward)
			}
		}
		if result.RetainedFee > 0 && s.feeRecipient != "" {
			s.pushService.PushRewardCredit(s.feeRecipient, result.Asset, result.RetainedFee)
		}
	}
}

// ClaimRewards pays out the wallet's pending rewards for one asset and
// zeroes the balance.
func (s *DistributionService) ClaimRewards(ctx context.Context, principal, walletID, assetKey string) (uint64, error) {
	defer metrics.TimeOperation("claim_rewards").ObserveDuration()
	walletID, err := utils.NormalizeWalletID(walletID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWalletID, err)
	}

	var claimed uint64
	err = s.store.Transact(ctx, func(tx repository.Store) error {
		wallet, err := loadOwnedWallet(ctx, tx, walletID, principal)
		if err != nil {
			return err
		}
		balance, err := tx.Wallets().GetRewardBalance(ctx, walletID, assetKey)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoPendingRewards
			}
			return fmt.Errorf("failed to load reward balance: %w", err)
		}
		if balance.Amount == 0 {
			return ErrNoPendingRewards
		}
		claimed = balance.Amount
		balance.Amount = 0
		if err := tx.Wallets().SaveRewardBalance(ctx, balance); err != nil {
			return fmt.Errorf("failed to save reward balance: %w", err)
		}
		if err := s.custody.Transfer(ctx, assetKey, clients.FeeAccount, wallet.OwnerAddress, claimed); err != nil {
			if errors.Is(err, clients.ErrInsufficientBalance) {
				return ErrInsufficientLiquidity
			}
			return fmt.Errorf("custody transfer failed: %w", err)
		}
		return tx.Records().CreateRewardClaim(ctx, &models.RewardClaimRecord{
			ID:       uuid.New().String(),
			WalletID: walletID,
			Asset:    assetKey,
			Amount:   claimed,
		})
	})
	metrics.RecordOperation("claim_rewards", err)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"asset":     assetKey,
		"amount":    claimed,
	}).Info("Rewards claimed")
	s.publisher.Publish(events.SubjectRewardsClaimed, events.RewardsClaimedEvent{
		WalletID: walletID,
		Asset:    assetKey,
		Amount:   claimed,
	})
	return claimed, nil
}

func (s *DistributionService) creditReward(ctx context.Context, tx repository.Store, walletID, assetKey string, amount uint64) error {
	balance, err := tx.Wallets().GetRewardBalance(ctx, walletID, assetKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to load reward balance: %w", err)
		}
		balance = &models.RewardBalance{WalletID: walletID, Asset: assetKey}
	}
	balance.Amount += amount
	if err := tx.Wallets().SaveRewardBalance(ctx, balance); err != nil {
		return fmt.Errorf("failed to credit reward: %w", err)
	}
	return nil
}
