package services

import (
	"context"
	"errors"
	"testing"

	"vault-backend/internal/utils"
)

func strategyEnv(t *testing.T) (*testEnv, *StrategyService) {
	t.Helper()
	env := newTestEnv(t)
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 1000)

	// 10% system fee, no referral schedule, no fee recipient.
	d := env.distribution(t, 1000, nil, "")
	return env, env.strategies(t, d)
}

func TestDepositToStrategy(t *testing.T) {
	env, gateway := strategyEnv(t)
	ctx := context.Background()

	if err := gateway.DepositToStrategy(ctx, walletID(1), "USDC", "manual", 600); err != nil {
		t.Fatalf("deploy: %v", err)
	}

	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.StrategyAmount != 600 || asset.IdleAmount() != 400 {
		t.Fatalf("expected 600 deployed / 400 idle, got %d/%d", asset.StrategyAmount, asset.IdleAmount())
	}
	if asset.TotalAmount != 1000 {
		t.Fatalf("deploying must not change the pool total, got %d", asset.TotalAmount)
	}

	account, err := env.store.Wallets().GetAccountAsset(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.DistributedAmount != 600 {
		t.Fatalf("expected wallet deployed 600, got %d", account.DistributedAmount)
	}

	// Only idle custody can be deployed.
	if err := gateway.DepositToStrategy(ctx, walletID(1), "USDC", "manual", 500); !errors.Is(err, ErrInsufficientIdleLiquidity) {
		t.Fatalf("expected ErrInsufficientIdleLiquidity, got %v", err)
	}
}

func TestDepositToStrategyUnknownName(t *testing.T) {
	_, gateway := strategyEnv(t)
	err := gateway.DepositToStrategy(context.Background(), walletID(1), "USDC", "ghost", 100)
	if !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestWithdrawFromStrategyPrincipalOnly(t *testing.T) {
	env, gateway := strategyEnv(t)
	ctx := context.Background()

	if err := gateway.DepositToStrategy(ctx, walletID(1), "USDC", "manual", 600); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := gateway.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 600, 0); err != nil {
		t.Fatalf("recall: %v", err)
	}

	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.StrategyAmount != 0 || asset.TotalAmount != 1000 {
		t.Fatalf("expected 0 deployed / 1000 total, got %d/%d", asset.StrategyAmount, asset.TotalAmount)
	}
}

func TestWithdrawFromStrategyDistributesInterest(t *testing.T) {
	env, gateway := strategyEnv(t)
	ctx := context.Background()

	if err := gateway.DepositToStrategy(ctx, walletID(1), "USDC", "manual", 600); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	// 100 realized interest: 10 system fee, 90 joins the pool.
	if err := gateway.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 600, 100); err != nil {
		t.Fatalf("recall with interest: %v", err)
	}

	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.TotalAmount != 1090 || asset.TotalLPShares != 1000 {
		t.Fatalf("expected pool 1090/1000, got %d/%d", asset.TotalAmount, asset.TotalLPShares)
	}

	// The exchange rate rose for every holder without minting shares.
	if got := utils.AmountForShares(1000, asset.TotalAmount, asset.TotalLPShares); got != 1090 {
		t.Fatalf("expected 1000 shares to redeem 1090, got %d", got)
	}

	account, err := env.store.Wallets().GetAccountAsset(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.InterestAmount != 100 || account.InterestShareAmount != 90 {
		t.Fatalf("expected interest stats 100/90, got %d/%d", account.InterestAmount, account.InterestShareAmount)
	}
	if account.DistributedAmount != 0 {
		t.Fatalf("expected wallet fully recalled, got %d", account.DistributedAmount)
	}
}

func TestWithdrawFromStrategyBoundsChecks(t *testing.T) {
	env, gateway := strategyEnv(t)
	ctx := context.Background()

	if err := gateway.DepositToStrategy(ctx, walletID(1), "USDC", "manual", 600); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if err := gateway.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 700, 0); !errors.Is(err, ErrLedgerInvariant) {
		t.Fatalf("expected ErrLedgerInvariant above deployed amount, got %v", err)
	}
	if err := gateway.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero flow, got %v", err)
	}

	// A rollback leaves the deployed amount intact.
	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.StrategyAmount != 600 {
		t.Fatalf("expected 600 still deployed, got %d", asset.StrategyAmount)
	}
}

func TestInterestOnlyReport(t *testing.T) {
	env, gateway := strategyEnv(t)
	ctx := context.Background()

	if err := gateway.DepositToStrategy(ctx, walletID(1), "USDC", "manual", 600); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	// Zero principal, pure yield report.
	if err := gateway.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 0, 50); err != nil {
		t.Fatalf("interest-only report: %v", err)
	}

	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.TotalAmount != 1045 || asset.StrategyAmount != 600 {
		t.Fatalf("expected pool 1045 with 600 still deployed, got %d/%d", asset.TotalAmount, asset.StrategyAmount)
	}
}
