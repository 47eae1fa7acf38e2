package services

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterWalletValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})

	_, err := env.accounts.RegisterWallet(ctx, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	if !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists, got %v", err)
	}

	_, err = env.accounts.RegisterWallet(ctx, RegisterWalletInput{
		WalletID:     walletID(2),
		OwnerAddress: ownerAddr(2),
		ReferrerID:   walletID(2),
	})
	if !errors.Is(err, ErrInvalidReferral) {
		t.Fatalf("expected ErrInvalidReferral for self-referral, got %v", err)
	}

	_, err = env.accounts.RegisterWallet(ctx, RegisterWalletInput{
		WalletID:     walletID(2),
		OwnerAddress: ownerAddr(2),
		ReferrerID:   walletID(99),
	})
	if !errors.Is(err, ErrReferrerNotFound) {
		t.Fatalf("expected ErrReferrerNotFound, got %v", err)
	}

	_, err = env.accounts.RegisterWallet(ctx, RegisterWalletInput{
		WalletID:         walletID(2),
		OwnerAddress:     ownerAddr(2),
		ReferralPercents: []int64{6000, 5000},
	})
	if !errors.Is(err, ErrInvalidReferral) {
		t.Fatalf("expected ErrInvalidReferral for schedule above 100%%, got %v", err)
	}

	_, err = env.accounts.RegisterWallet(ctx, RegisterWalletInput{WalletID: "0x1234", OwnerAddress: ownerAddr(3)})
	if !errors.Is(err, ErrInvalidWalletID) {
		t.Fatalf("expected ErrInvalidWalletID, got %v", err)
	}
}

func TestSetReferrerWriteOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(2), OwnerAddress: ownerAddr(2)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(3), OwnerAddress: ownerAddr(3)})

	if err := env.accounts.SetReferrer(ctx, walletID(1), walletID(2)); err != nil {
		t.Fatalf("set referrer: %v", err)
	}
	err := env.accounts.SetReferrer(ctx, walletID(1), walletID(3))
	if !errors.Is(err, ErrInvalidReferral) {
		t.Fatalf("expected write-once rejection, got %v", err)
	}

	wallet, err := env.store.Wallets().Get(ctx, walletID(1))
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if wallet.ReferrerID != walletID(2) {
		t.Fatalf("expected referrer %s, got %s", walletID(2), wallet.ReferrerID)
	}
}

func TestDepositMintsSharesAtExchangeRate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(2), OwnerAddress: ownerAddr(2)})

	first, err := env.accounts.Deposit(ctx, ownerAddr(1), walletID(1), "USDC", 1000)
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if first.SharesMinted != 1000 {
		t.Fatalf("expected 1:1 mint into empty pool, got %d", first.SharesMinted)
	}

	second, err := env.accounts.Deposit(ctx, ownerAddr(2), walletID(2), "USDC", 500)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if second.SharesMinted != 500 {
		t.Fatalf("expected 500 shares at parity, got %d", second.SharesMinted)
	}
	if second.TotalAmount != 1500 || second.TotalLPShares != 1500 {
		t.Fatalf("expected pool 1500/1500, got %d/%d", second.TotalAmount, second.TotalLPShares)
	}

	// Pool total equals the sum of wallet positions while no strategy or
	// interest activity has occurred.
	sum, err := env.store.Wallets().SumCurrentAmounts(ctx, "USDC")
	if err != nil {
		t.Fatalf("sum positions: %v", err)
	}
	if sum != second.TotalAmount {
		t.Fatalf("conservation broken: positions %d vs pool %d", sum, second.TotalAmount)
	}
}

func TestDepositValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})

	if _, err := env.accounts.Deposit(ctx, ownerAddr(1), walletID(1), "USDC", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.accounts.Deposit(ctx, ownerAddr(1), walletID(1), "USDC", 100); !errors.Is(err, ErrAssetNotSupported) {
		t.Fatalf("expected ErrAssetNotSupported, got %v", err)
	}

	_, err := env.assets.RegisterAsset(ctx, RegisterAssetInput{
		Asset:              "USDC",
		MinDeposit:         100,
		MaxDeposit:         1000,
		EnabledForDeposit:  true,
		EnabledForWithdraw: true,
	})
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}

	if _, err := env.accounts.Deposit(ctx, ownerAddr(1), walletID(1), "USDC", 50); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange below min, got %v", err)
	}
	if _, err := env.accounts.Deposit(ctx, ownerAddr(1), walletID(1), "USDC", 1001); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange above max, got %v", err)
	}

	disabled := false
	if _, err := env.assets.UpdateAsset(ctx, "USDC", UpdateAssetInput{EnabledForDeposit: &disabled}); err != nil {
		t.Fatalf("disable deposits: %v", err)
	}
	if _, err := env.accounts.Deposit(ctx, ownerAddr(1), walletID(1), "USDC", 500); !errors.Is(err, ErrDepositDisabled) {
		t.Fatalf("expected ErrDepositDisabled, got %v", err)
	}
}

func TestDepositOwnerCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})

	if _, err := env.accounts.Deposit(ctx, ownerAddr(9), walletID(1), "USDC", 100); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	// Empty principal means a backend capability already vouched for the call.
	if _, err := env.accounts.Deposit(ctx, "", walletID(1), "USDC", 100); err != nil {
		t.Fatalf("backend deposit: %v", err)
	}
}

func TestWithdrawBurnsShares(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 1000)

	result, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 400)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.SharesBurned != 400 {
		t.Fatalf("expected 400 shares burned at parity, got %d", result.SharesBurned)
	}

	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.TotalAmount != 600 || asset.TotalLPShares != 600 {
		t.Fatalf("expected pool 600/600, got %d/%d", asset.TotalAmount, asset.TotalLPShares)
	}

	// Full exit drains the position exactly.
	if _, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 600); err != nil {
		t.Fatalf("full exit: %v", err)
	}
	account, err := env.store.Wallets().GetAccountAsset(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.CurrentAmount != 0 || account.LPAmount != 0 {
		t.Fatalf("expected empty position, got amount=%d shares=%d", account.CurrentAmount, account.LPAmount)
	}
}

func TestWithdrawInsufficient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 1000)

	if _, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 1001); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}

	// Deployed liquidity blocks the synchronous path even though the wallet
	// position covers the amount.
	env.setStrategyAmount(t, "USDC", 700)
	if _, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 500); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if _, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 300); err != nil {
		t.Fatalf("withdraw within idle custody: %v", err)
	}
}

func TestWithdrawRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 1000)
	env.setStrategyAmount(t, "USDC", 1000)

	if _, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}

	account, err := env.store.Wallets().GetAccountAsset(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.CurrentAmount != 1000 || account.LPAmount != 1000 {
		t.Fatalf("rejected withdraw mutated the position: amount=%d shares=%d", account.CurrentAmount, account.LPAmount)
	}
}

func TestGetWalletState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterAsset(t, "WBTC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 1000)
	env.mustDeposit(t, ownerAddr(1), walletID(1), "WBTC", 5)

	state, err := env.accounts.GetWalletState(ctx, walletID(1))
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Wallet.ID != walletID(1) {
		t.Fatalf("unexpected wallet id %s", state.Wallet.ID)
	}
	if len(state.Assets) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(state.Assets))
	}

	if _, err := env.accounts.GetWalletState(ctx, walletID(9)); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestWithdrawAppreciatedValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	strategies := env.strategies(t, env.distribution(t, 0, nil, ""))
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(2), OwnerAddress: ownerAddr(2)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 500)
	env.mustDeposit(t, ownerAddr(2), walletID(2), "USDC", 500)

	// 100 interest at zero fee lifts the rate to 1100/1000.
	if err := strategies.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 0, 100); err != nil {
		t.Fatalf("report interest: %v", err)
	}

	// A 500-share holder now owns 550 and can withdraw all of it, not just
	// the 500 deposited.
	result, err := env.accounts.Withdraw(ctx, ownerAddr(1), walletID(1), "USDC", 550)
	if err != nil {
		t.Fatalf("withdraw appreciated value: %v", err)
	}
	if result.Amount != 550 || result.SharesBurned != 500 {
		t.Fatalf("expected 550 units for 500 shares, got %d for %d", result.Amount, result.SharesBurned)
	}

	account, err := env.store.Wallets().GetAccountAsset(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.LPAmount != 0 || account.CurrentAmount != 0 {
		t.Fatalf("full exit left shares=%d principal=%d", account.LPAmount, account.CurrentAmount)
	}

	// The remaining holder's claim is untouched by the exit.
	asset, err := env.store.Assets().Get(ctx, "USDC")
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	if asset.TotalAmount != 550 || asset.TotalLPShares != 500 {
		t.Fatalf("expected pool 550/500, got %d/%d", asset.TotalAmount, asset.TotalLPShares)
	}
}
