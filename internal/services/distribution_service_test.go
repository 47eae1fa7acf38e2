package services

import (
	"context"
	"errors"
	"testing"

	"vault-backend/internal/repository"
)

// chainEnv builds w1 -> w2 -> w3 (w2 refers w1, w3 refers w2) plus a fee
// recipient wallet, all holding a USDC position for w1.
func chainEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(3), OwnerAddress: ownerAddr(3)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(2), OwnerAddress: ownerAddr(2), ReferrerID: walletID(3)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1), ReferrerID: walletID(2)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(9), OwnerAddress: ownerAddr(9)}) // fee recipient
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 10000)
	return env
}

func distribute(t *testing.T, env *testEnv, d *DistributionService, wallet string, interest uint64) *DistributionResult {
	t.Helper()
	var result *DistributionResult
	err := env.store.Transact(context.Background(), func(tx repository.Store) error {
		var err error
		result, err = d.Distribute(context.Background(), tx, wallet, "USDC", "manual", interest)
		return err
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	return result
}

func rewardOf(t *testing.T, env *testEnv, wallet string) uint64 {
	t.Helper()
	balance, err := env.store.Wallets().GetRewardBalance(context.Background(), wallet, "USDC")
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0
		}
		t.Fatalf("load reward balance: %v", err)
	}
	return balance.Amount
}

func TestDistributeTwoLevelChain(t *testing.T) {
	env := chainEnv(t)
	// 10% system fee, levels paying 5% and 2% of the fee.
	d := env.distribution(t, 1000, []int64{500, 200}, walletID(9))

	result := distribute(t, env, d, walletID(1), 10000)

	if result.SystemFee != 1000 || result.NetInterest != 9000 {
		t.Fatalf("expected fee 1000 / net 9000, got %d/%d", result.SystemFee, result.NetInterest)
	}
	if got := rewardOf(t, env, walletID(2)); got != 50 {
		t.Fatalf("expected level-1 reward 50, got %d", got)
	}
	if got := rewardOf(t, env, walletID(3)); got != 20 {
		t.Fatalf("expected level-2 reward 20, got %d", got)
	}
	if result.RetainedFee != 930 {
		t.Fatalf("expected retained fee 930, got %d", result.RetainedFee)
	}
	if got := rewardOf(t, env, walletID(9)); got != 930 {
		t.Fatalf("expected recipient credited 930, got %d", got)
	}

	// The fee splits exactly: nothing minted, nothing lost.
	var total uint64
	for _, l := range result.Levels {
		total += l.Reward
	}
	if total+result.RetainedFee != result.SystemFee {
		t.Fatalf("fee conservation broken: %d + %d != %d", total, result.RetainedFee, result.SystemFee)
	}
}

func TestDistributeBrokenChainRetainsFee(t *testing.T) {
	env := chainEnv(t)
	d := env.distribution(t, 1000, []int64{500, 200, 100}, walletID(9))

	// w3 has no referrer, so the third level goes unpaid.
	result := distribute(t, env, d, walletID(1), 10000)
	if len(result.Levels) != 2 {
		t.Fatalf("expected 2 paid levels, got %d", len(result.Levels))
	}
	if result.RetainedFee != 930 {
		t.Fatalf("expected retained 930 with the third level reverting, got %d", result.RetainedFee)
	}
}

func TestDistributeNoReferrer(t *testing.T) {
	env := chainEnv(t)
	d := env.distribution(t, 1000, []int64{500, 200}, walletID(9))

	// w3 stands alone; the whole fee is retained.
	env.mustDeposit(t, ownerAddr(3), walletID(3), "USDC", 1000)
	result := distribute(t, env, d, walletID(3), 10000)
	if len(result.Levels) != 0 {
		t.Fatalf("expected no levels, got %d", len(result.Levels))
	}
	if result.RetainedFee != 1000 {
		t.Fatalf("expected full fee retained, got %d", result.RetainedFee)
	}
}

func TestDistributeWalletFeeOverride(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterAsset(t, "USDC")
	feeBps := int64(2000)
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1), SystemFeeBps: &feeBps})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 10000)

	d := env.distribution(t, 1000, nil, "")
	result := distribute(t, env, d, walletID(1), 10000)
	if result.SystemFee != 2000 || result.NetInterest != 8000 {
		t.Fatalf("expected wallet override 2000/8000, got %d/%d", result.SystemFee, result.NetInterest)
	}
	// No recipient configured: the retained fee stays unassigned on the
	// ledger record only.
	if result.RetainedFee != 2000 {
		t.Fatalf("expected retained 2000, got %d", result.RetainedFee)
	}
}

func TestDistributeWalletScheduleOverride(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(2), OwnerAddress: ownerAddr(2)})
	env.mustRegisterWallet(t, RegisterWalletInput{
		WalletID:         walletID(1),
		OwnerAddress:     ownerAddr(1),
		ReferrerID:       walletID(2),
		ReferralPercents: []int64{1000},
	})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 10000)

	// The wallet's own schedule (10% of the fee) beats the global 1%.
	d := env.distribution(t, 1000, []int64{100}, "")
	distribute(t, env, d, walletID(1), 10000)
	if got := rewardOf(t, env, walletID(2)); got != 100 {
		t.Fatalf("expected wallet schedule payout 100, got %d", got)
	}
}

func TestDistributeAccruesInterestStats(t *testing.T) {
	env := chainEnv(t)
	d := env.distribution(t, 1000, nil, "")

	distribute(t, env, d, walletID(1), 10000)
	account, err := env.store.Wallets().GetAccountAsset(context.Background(), walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.InterestAmount != 10000 || account.InterestShareAmount != 9000 {
		t.Fatalf("expected interest stats 10000/9000, got %d/%d", account.InterestAmount, account.InterestShareAmount)
	}
}

func TestClaimRewards(t *testing.T) {
	env := chainEnv(t)
	d := env.distribution(t, 1000, []int64{500}, "")
	distribute(t, env, d, walletID(1), 10000)

	claimed, err := d.ClaimRewards(context.Background(), ownerAddr(2), walletID(2), "USDC")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != 50 {
		t.Fatalf("expected claim of 50, got %d", claimed)
	}
	if got := rewardOf(t, env, walletID(2)); got != 0 {
		t.Fatalf("expected zeroed balance, got %d", got)
	}

	_, err = d.ClaimRewards(context.Background(), ownerAddr(2), walletID(2), "USDC")
	if !errors.Is(err, ErrNoPendingRewards) {
		t.Fatalf("expected ErrNoPendingRewards, got %v", err)
	}
}

func TestClaimRewardsOwnerCheck(t *testing.T) {
	env := chainEnv(t)
	d := env.distribution(t, 1000, []int64{500}, "")
	distribute(t, env, d, walletID(1), 10000)

	_, err := d.ClaimRewards(context.Background(), ownerAddr(1), walletID(2), "USDC")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}
