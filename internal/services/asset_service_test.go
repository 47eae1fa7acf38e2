package services

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAssetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustRegisterAsset(t, "USDC")
	if _, err := env.assets.RegisterAsset(ctx, RegisterAssetInput{Asset: "USDC"}); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
	if _, err := env.assets.RegisterAsset(ctx, RegisterAssetInput{Asset: "usdc"}); !errors.Is(err, ErrAssetNotSupported) {
		t.Fatalf("expected rejection of lowercase key, got %v", err)
	}
	_, err := env.assets.RegisterAsset(ctx, RegisterAssetInput{Asset: "WBTC", MinDeposit: 10, MaxDeposit: 5})
	if !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange for min above max, got %v", err)
	}
}

func TestUpdateAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")

	disabled := false
	min := uint64(25)
	updated, err := env.assets.UpdateAsset(ctx, "USDC", UpdateAssetInput{
		EnabledForWithdraw: &disabled,
		MinDeposit:         &min,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.EnabledForWithdraw || updated.MinDeposit != 25 {
		t.Fatalf("update not applied: withdraw=%v min=%d", updated.EnabledForWithdraw, updated.MinDeposit)
	}
	// Untouched fields survive.
	if !updated.EnabledForDeposit {
		t.Fatal("unrelated field was reset")
	}

	if _, err := env.assets.UpdateAsset(ctx, "GHOST", UpdateAssetInput{}); !errors.Is(err, ErrAssetNotSupported) {
		t.Fatalf("expected ErrAssetNotSupported, got %v", err)
	}
}

func TestReconcileMatchesPositions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(2), OwnerAddress: ownerAddr(2)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 700)
	env.mustDeposit(t, ownerAddr(2), walletID(2), "USDC", 300)

	result, err := env.assets.Reconcile(ctx, "USDC")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.TotalAmount != 1000 || result.SumWalletCurrent != 1000 {
		t.Fatalf("expected balanced ledger 1000/1000, got %d/%d", result.TotalAmount, result.SumWalletCurrent)
	}
}
