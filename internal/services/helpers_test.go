package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"vault-backend/internal/clients"
	"vault-backend/internal/events"
	"vault-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

// testEnv wires the service stack over the in-memory store with custody and
// events stubbed out.
type testEnv struct {
	store    *repository.MemoryStore
	assets   *AssetService
	accounts *AccountService
	requests *WithdrawRequestService
	logger   *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repository.NewMemoryStore()
	publisher := events.NopPublisher{}
	custody := clients.NopCustodyClient{}

	return &testEnv{
		store:    store,
		assets:   NewAssetService(store, publisher, logger),
		accounts: NewAccountService(store, custody, publisher, logger),
		requests: NewWithdrawRequestService(store, custody, publisher, logger),
		logger:   logger,
	}
}

func (e *testEnv) distribution(t *testing.T, feeBps int64, schedule []int64, recipient string) *DistributionService {
	t.Helper()
	return NewDistributionService(e.store, clients.NopCustodyClient{}, events.NopPublisher{}, e.logger, feeBps, schedule, recipient)
}

func (e *testEnv) strategies(t *testing.T, distribution *DistributionService) *StrategyService {
	t.Helper()
	s := NewStrategyService(e.store, distribution, events.NopPublisher{}, e.logger)
	s.Register("manual", NopStrategy{})
	return s
}

// walletID builds a canonical 32-byte wallet identifier from a small tag.
func walletID(n byte) string {
	return "0x" + strings.Repeat("00", 31) + fmt.Sprintf("%02x", n)
}

// ownerAddr builds a canonical 20-byte owner address from a small tag.
func ownerAddr(n byte) string {
	return "0x" + strings.Repeat("00", 19) + fmt.Sprintf("%02x", n)
}

func (e *testEnv) mustRegisterAsset(t *testing.T, key string) {
	t.Helper()
	_, err := e.assets.RegisterAsset(context.Background(), RegisterAssetInput{
		Asset:              key,
		EnabledForDeposit:  true,
		EnabledForWithdraw: true,
	})
	if err != nil {
		t.Fatalf("register asset %s: %v", key, err)
	}
}

func (e *testEnv) mustRegisterWallet(t *testing.T, input RegisterWalletInput) {
	t.Helper()
	if _, err := e.accounts.RegisterWallet(context.Background(), input); err != nil {
		t.Fatalf("register wallet %s: %v", input.WalletID, err)
	}
}

func (e *testEnv) mustDeposit(t *testing.T, owner, wallet, asset string, amount uint64) {
	t.Helper()
	if _, err := e.accounts.Deposit(context.Background(), owner, wallet, asset, amount); err != nil {
		t.Fatalf("deposit %d %s for %s: %v", amount, asset, wallet, err)
	}
}

// setStrategyAmount force-sets the deployed portion of the pool, bypassing
// the gateway, to stage liquidity scenarios.
func (e *testEnv) setStrategyAmount(t *testing.T, assetKey string, amount uint64) {
	t.Helper()
	ctx := context.Background()
	asset, err := e.store.Assets().Get(ctx, assetKey)
	if err != nil {
		t.Fatalf("load asset: %v", err)
	}
	asset.StrategyAmount = amount
	if err := e.store.Assets().Save(ctx, asset); err != nil {
		t.Fatalf("save asset: %v", err)
	}
}
