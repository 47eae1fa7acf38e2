package services

import (
	"context"
	"errors"
	"testing"

	"vault-backend/internal/models"
)

func reqEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.mustRegisterAsset(t, "USDC")
	env.mustRegisterWallet(t, RegisterWalletInput{WalletID: walletID(1), OwnerAddress: ownerAddr(1)})
	env.mustDeposit(t, ownerAddr(1), walletID(1), "USDC", 1000)
	return env
}

func TestRequestWithdrawAssignsSequentialIDs(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	first, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 200)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if first.RequestID != 1 || second.RequestID != 2 {
		t.Fatalf("expected request ids 1,2 got %d,%d", first.RequestID, second.RequestID)
	}
	if first.Status != models.WithdrawStatusPending {
		t.Fatalf("expected pending, got %s", first.Status)
	}
}

func TestRequestWithdrawOverCommit(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 600); err != nil {
		t.Fatalf("first request: %v", err)
	}
	// Outstanding 600 + 500 exceeds the 1000 position.
	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 500); !errors.Is(err, ErrInsufficientFund) {
		t.Fatalf("expected ErrInsufficientFund, got %v", err)
	}
	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 400); err != nil {
		t.Fatalf("request within position: %v", err)
	}
}

func TestRequestWithdrawOwnerCheck(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(9), walletID(1), "USDC", 100); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestPartialFillAndSettle(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	request, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Backend sources a 40 tranche; the request stays pending.
	updated, err := env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusPending,
		AvailableAdd: 40,
	})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if updated.AvailableAmount != 40 || updated.Status != models.WithdrawStatusPending {
		t.Fatalf("expected pending with 40 available, got %s/%d", updated.Status, updated.AvailableAmount)
	}

	// The user settles exactly what was sourced.
	settled, err := env.requests.WithdrawRequestedAmount(ctx, ownerAddr(1), walletID(1), "USDC")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled != 40 {
		t.Fatalf("expected 40 settled, got %d", settled)
	}

	after, err := env.store.WithdrawRequests().Get(ctx, walletID(1), request.RequestID)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if after.Status != models.WithdrawStatusPending || after.SettledAmount != 40 || after.AvailableAmount != 0 {
		t.Fatalf("expected pending settled=40 available=0, got %s settled=%d available=%d",
			after.Status, after.SettledAmount, after.AvailableAmount)
	}
	if after.Outstanding() != 60 {
		t.Fatalf("expected 60 outstanding, got %d", after.Outstanding())
	}

	account, err := env.store.Wallets().GetAccountAsset(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if account.CurrentAmount != 960 || account.LPAmount != 960 {
		t.Fatalf("expected position 960/960 after settlement, got %d/%d", account.CurrentAmount, account.LPAmount)
	}

	// Sourcing the remainder and marking success completes the request.
	if _, err := env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusSuccess,
		AvailableAdd: 60,
	}); err != nil {
		t.Fatalf("final fill: %v", err)
	}
	settled, err = env.requests.WithdrawRequestedAmount(ctx, ownerAddr(1), walletID(1), "USDC")
	if err != nil {
		t.Fatalf("final settle: %v", err)
	}
	if settled != 60 {
		t.Fatalf("expected 60 settled, got %d", settled)
	}
	final, err := env.store.WithdrawRequests().Get(ctx, walletID(1), request.RequestID)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if final.Status != models.WithdrawStatusSuccess || final.SettledAmount != 100 {
		t.Fatalf("expected success fully settled, got %s settled=%d", final.Status, final.SettledAmount)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	request, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Failed requires an operator message.
	_, err = env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:  walletID(1),
		RequestID: request.RequestID,
		Status:    models.WithdrawStatusFailed,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected rejection of failed without message, got %v", err)
	}

	// Success without the request fully sourced.
	_, err = env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:  walletID(1),
		RequestID: request.RequestID,
		Status:    models.WithdrawStatusSuccess,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected rejection of premature success, got %v", err)
	}

	// A fill above the outstanding amount.
	_, err = env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusPending,
		AvailableAdd: 101,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected rejection of over-fill, got %v", err)
	}

	// Unknown request.
	_, err = env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:  walletID(1),
		RequestID: 99,
		Status:    models.WithdrawStatusPending,
	})
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestTerminalRequestsRejectUpdates(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	request, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusFailed,
		ErrorMessage: "liquidity source unavailable",
	}); err != nil {
		t.Fatalf("fail request: %v", err)
	}

	_, err = env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusPending,
		AvailableAdd: 10,
	})
	if !errors.Is(err, ErrRequestTerminal) {
		t.Fatalf("expected ErrRequestTerminal, got %v", err)
	}
}

func TestSettleWithoutAvailableAmount(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100); err != nil {
		t.Fatalf("request: %v", err)
	}
	_, err := env.requests.WithdrawRequestedAmount(ctx, ownerAddr(1), walletID(1), "USDC")
	if !errors.Is(err, ErrNoAvailableAmount) {
		t.Fatalf("expected ErrNoAvailableAmount, got %v", err)
	}
}

func TestSettleRequiresIdleLiquidity(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	request, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 100)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusPending,
		AvailableAdd: 100,
	}); err != nil {
		t.Fatalf("fill: %v", err)
	}

	env.setStrategyAmount(t, "USDC", 950)
	_, err = env.requests.WithdrawRequestedAmount(ctx, ownerAddr(1), walletID(1), "USDC")
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}

	env.setStrategyAmount(t, "USDC", 0)
	if _, err := env.requests.WithdrawRequestedAmount(ctx, ownerAddr(1), walletID(1), "USDC"); err != nil {
		t.Fatalf("settle after recall: %v", err)
	}
}

func TestGetWithdrawalState(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()

	request, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 300)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := env.requests.UpdateRequestStatus(ctx, "backend", UpdateRequestStatusInput{
		WalletID:     walletID(1),
		RequestID:    request.RequestID,
		Status:       models.WithdrawStatusPending,
		AvailableAdd: 120,
	}); err != nil {
		t.Fatalf("fill: %v", err)
	}

	state, err := env.requests.GetWithdrawalState(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Requested != 300 || state.Available != 120 || state.Settled != 0 {
		t.Fatalf("expected 300/120/0, got %d/%d/%d", state.Requested, state.Available, state.Settled)
	}

	if _, err := env.requests.WithdrawRequestedAmount(ctx, ownerAddr(1), walletID(1), "USDC"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	state, err = env.requests.GetWithdrawalState(ctx, walletID(1), "USDC")
	if err != nil {
		t.Fatalf("state after settle: %v", err)
	}
	if state.Requested != 180 || state.Available != 0 || state.Settled != 120 {
		t.Fatalf("expected 180/0/120, got %d/%d/%d", state.Requested, state.Available, state.Settled)
	}
}

func TestRequestWithdrawBudgetsShareValue(t *testing.T) {
	env := reqEnv(t)
	ctx := context.Background()
	strategies := env.strategies(t, env.distribution(t, 0, nil, ""))

	// 100 interest at zero fee: the 1000-share position is now worth 1100.
	if err := strategies.WithdrawFromStrategy(ctx, walletID(1), "USDC", "manual", 0, 100); err != nil {
		t.Fatalf("report interest: %v", err)
	}

	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 1100); err != nil {
		t.Fatalf("request for appreciated value: %v", err)
	}
	// The budget is the share value, not more.
	if _, err := env.requests.RequestWithdraw(ctx, ownerAddr(1), walletID(1), "USDC", 1); !errors.Is(err, ErrInsufficientFund) {
		t.Fatalf("expected ErrInsufficientFund beyond share value, got %v", err)
	}
}
