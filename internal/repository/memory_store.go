package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"vault-backend/internal/models"

	"github.com/lib/pq"
)

// MemoryStore is an in-process Store. It backs the service stack when no
// database DSN is configured and is the fixture for service tests. A single
// mutex serializes operations, matching the single-writer-per-transaction
// semantics the services assume; Transact snapshots the state so an error
// rolls back every write of the unit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	inTx  bool
}

type memoryState struct {
	assets   map[string]models.AssetState
	wallets  map[string]models.WalletAccount
	accounts map[string]models.AccountAsset    // walletID|asset
	rewards  map[string]models.RewardBalance   // walletID|asset
	requests map[string]models.WithdrawRequest // walletID|requestID

	nextAccountID uint64
	nextRewardID  uint64
	nextRowID     uint64

	deposits       []models.DepositRecord
	withdrawals    []models.WithdrawalRecord
	requestRecords []models.WithdrawRequestRecord
	statusRecords  []models.RequestStatusRecord
	feeShares      []models.FeeShareRecord
	strategyFlows  []models.StrategyFlowRecord
	rewardClaims   []models.RewardClaimRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		assets:        make(map[string]models.AssetState),
		wallets:       make(map[string]models.WalletAccount),
		accounts:      make(map[string]models.AccountAsset),
		rewards:       make(map[string]models.RewardBalance),
		requests:      make(map[string]models.WithdrawRequest),
		nextAccountID: 1,
		nextRewardID:  1,
		nextRowID:     1,
	}}
}

func accountKey(walletID, asset string) string { return walletID + "|" + asset }

func requestKey(walletID string, requestID uint64) string {
	return walletID + "|" + strconv.FormatUint(requestID, 10)
}

func (s *MemoryStore) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *MemoryStore) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *MemoryStore) Assets() AssetRepository                     { return &memAssetRepo{s} }
func (s *MemoryStore) Wallets() WalletRepository                   { return &memWalletRepo{s} }
func (s *MemoryStore) WithdrawRequests() WithdrawRequestRepository { return &memRequestRepo{s} }
func (s *MemoryStore) Records() RecordRepository                   { return &memRecordRepo{s} }

func (s *MemoryStore) Transact(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		// Joined transaction; the outer scope owns the snapshot.
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := &MemoryStore{state: s.state, inTx: true}
	if err := fn(tx); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		assets:        make(map[string]models.AssetState, len(st.assets)),
		wallets:       make(map[string]models.WalletAccount, len(st.wallets)),
		accounts:      make(map[string]models.AccountAsset, len(st.accounts)),
		rewards:       make(map[string]models.RewardBalance, len(st.rewards)),
		requests:      make(map[string]models.WithdrawRequest, len(st.requests)),
		nextAccountID: st.nextAccountID,
		nextRewardID:  st.nextRewardID,
		nextRowID:     st.nextRowID,
	}
	for k, v := range st.assets {
		c.assets[k] = v
	}
	for k, v := range st.wallets {
		c.wallets[k] = cloneWallet(v)
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.rewards {
		c.rewards[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v
	}
	c.deposits = append([]models.DepositRecord(nil), st.deposits...)
	c.withdrawals = append([]models.WithdrawalRecord(nil), st.withdrawals...)
	c.requestRecords = append([]models.WithdrawRequestRecord(nil), st.requestRecords...)
	c.statusRecords = append([]models.RequestStatusRecord(nil), st.statusRecords...)
	c.feeShares = append([]models.FeeShareRecord(nil), st.feeShares...)
	c.strategyFlows = append([]models.StrategyFlowRecord(nil), st.strategyFlows...)
	c.rewardClaims = append([]models.RewardClaimRecord(nil), st.rewardClaims...)
	return c
}

func cloneWallet(w models.WalletAccount) models.WalletAccount {
	if w.ReferralPercents != nil {
		w.ReferralPercents = append(pq.Int64Array(nil), w.ReferralPercents...)
	}
	if w.SystemFeeBps != nil {
		v := *w.SystemFeeBps
		w.SystemFeeBps = &v
	}
	return w
}

// ---- assets ----

type memAssetRepo struct{ s *MemoryStore }

func (r *memAssetRepo) Create(_ context.Context, asset *models.AssetState) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.state.assets[asset.Asset]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now
	r.s.state.assets[asset.Asset] = *asset
	return nil
}

func (r *memAssetRepo) Get(_ context.Context, asset string) (*models.AssetState, error) {
	r.s.lock()
	defer r.s.unlock()
	state, ok := r.s.state.assets[asset]
	if !ok {
		return nil, ErrNotFound
	}
	return &state, nil
}

func (r *memAssetRepo) GetForUpdate(ctx context.Context, asset string) (*models.AssetState, error) {
	return r.Get(ctx, asset)
}

func (r *memAssetRepo) List(_ context.Context) ([]*models.AssetState, error) {
	r.s.lock()
	defer r.s.unlock()
	out := make([]*models.AssetState, 0, len(r.s.state.assets))
	for _, v := range r.s.state.assets {
		state := v
		out = append(out, &state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (r *memAssetRepo) Save(_ context.Context, asset *models.AssetState) error {
	r.s.lock()
	defer r.s.unlock()
	asset.UpdatedAt = time.Now()
	r.s.state.assets[asset.Asset] = *asset
	return nil
}

// ---- wallets ----

type memWalletRepo struct{ s *MemoryStore }

func (r *memWalletRepo) Create(_ context.Context, wallet *models.WalletAccount) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.state.wallets[wallet.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	r.s.state.wallets[wallet.ID] = cloneWallet(*wallet)
	return nil
}

func (r *memWalletRepo) Get(_ context.Context, id string) (*models.WalletAccount, error) {
	r.s.lock()
	defer r.s.unlock()
	wallet, ok := r.s.state.wallets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneWallet(wallet)
	return &out, nil
}

func (r *memWalletRepo) GetForUpdate(ctx context.Context, id string) (*models.WalletAccount, error) {
	return r.Get(ctx, id)
}

func (r *memWalletRepo) Save(_ context.Context, wallet *models.WalletAccount) error {
	r.s.lock()
	defer r.s.unlock()
	wallet.UpdatedAt = time.Now()
	r.s.state.wallets[wallet.ID] = cloneWallet(*wallet)
	return nil
}

func (r *memWalletRepo) GetAccountAsset(_ context.Context, walletID, asset string) (*models.AccountAsset, error) {
	r.s.lock()
	defer r.s.unlock()
	account, ok := r.s.state.accounts[accountKey(walletID, asset)]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (r *memWalletRepo) GetOrCreateAccountAsset(_ context.Context, walletID, asset string) (*models.AccountAsset, error) {
	r.s.lock()
	defer r.s.unlock()
	key := accountKey(walletID, asset)
	if account, ok := r.s.state.accounts[key]; ok {
		return &account, nil
	}
	now := time.Now()
	account := models.AccountAsset{
		ID:        r.s.state.nextAccountID,
		WalletID:  walletID,
		Asset:     asset,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.state.nextAccountID++
	r.s.state.accounts[key] = account
	return &account, nil
}

func (r *memWalletRepo) SaveAccountAsset(_ context.Context, account *models.AccountAsset) error {
	r.s.lock()
	defer r.s.unlock()
	account.UpdatedAt = time.Now()
	r.s.state.accounts[accountKey(account.WalletID, account.Asset)] = *account
	return nil
}

func (r *memWalletRepo) ListAccountAssets(_ context.Context, walletID string) ([]*models.AccountAsset, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []*models.AccountAsset
	for _, v := range r.s.state.accounts {
		if v.WalletID == walletID {
			account := v
			out = append(out, &account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (r *memWalletRepo) SumCurrentAmounts(_ context.Context, asset string) (uint64, error) {
	r.s.lock()
	defer r.s.unlock()
	var sum uint64
	for _, v := range r.s.state.accounts {
		if v.Asset == asset {
			sum += v.CurrentAmount
		}
	}
	return sum, nil
}

func (r *memWalletRepo) GetRewardBalance(_ context.Context, walletID, asset string) (*models.RewardBalance, error) {
	r.s.lock()
	defer r.s.unlock()
	balance, ok := r.s.state.rewards[accountKey(walletID, asset)]
	if !ok {
		return nil, ErrNotFound
	}
	return &balance, nil
}

func (r *memWalletRepo) SaveRewardBalance(_ context.Context, balance *models.RewardBalance) error {
	r.s.lock()
	defer r.s.unlock()
	if balance.ID == 0 {
		balance.ID = r.s.state.nextRewardID
		r.s.state.nextRewardID++
	}
	balance.UpdatedAt = time.Now()
	r.s.state.rewards[accountKey(balance.WalletID, balance.Asset)] = *balance
	return nil
}

func (r *memWalletRepo) ListRewardBalances(_ context.Context, walletID string) ([]*models.RewardBalance, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []*models.RewardBalance
	for _, v := range r.s.state.rewards {
		if v.WalletID == walletID {
			balance := v
			out = append(out, &balance)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

// ---- withdraw requests ----

type memRequestRepo struct{ s *MemoryStore }

func (r *memRequestRepo) Create(_ context.Context, request *models.WithdrawRequest) error {
	r.s.lock()
	defer r.s.unlock()
	key := requestKey(request.WalletID, request.RequestID)
	if _, ok := r.s.state.requests[key]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	request.ID = r.s.state.nextRowID
	r.s.state.nextRowID++
	request.RequestedAt = now
	request.UpdatedAt = now
	r.s.state.requests[key] = *request
	return nil
}

func (r *memRequestRepo) Get(_ context.Context, walletID string, requestID uint64) (*models.WithdrawRequest, error) {
	r.s.lock()
	defer r.s.unlock()
	request, ok := r.s.state.requests[requestKey(walletID, requestID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &request, nil
}

func (r *memRequestRepo) ListByWalletAsset(_ context.Context, walletID, asset string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.filter(func(req models.WithdrawRequest) bool {
		return req.WalletID == walletID && req.Asset == asset && matchStatus(req.Status, statuses)
	}), nil
}

func (r *memRequestRepo) ListByWallet(_ context.Context, walletID string, statuses ...models.WithdrawStatus) ([]*models.WithdrawRequest, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.filter(func(req models.WithdrawRequest) bool {
		return req.WalletID == walletID && matchStatus(req.Status, statuses)
	}), nil
}

func (r *memRequestRepo) filter(keep func(models.WithdrawRequest) bool) []*models.WithdrawRequest {
	var out []*models.WithdrawRequest
	for _, v := range r.s.state.requests {
		if keep(v) {
			request := v
			out = append(out, &request)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out
}

func matchStatus(status models.WithdrawStatus, statuses []models.WithdrawStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *memRequestRepo) UpdateVersioned(_ context.Context, request *models.WithdrawRequest, expectedVersion uint64) error {
	r.s.lock()
	defer r.s.unlock()
	key := requestKey(request.WalletID, request.RequestID)
	stored, ok := r.s.state.requests[key]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	request.Version = expectedVersion + 1
	request.UpdatedAt = time.Now()
	r.s.state.requests[key] = *request
	return nil
}

// ---- records ----

type memRecordRepo struct{ s *MemoryStore }

func (r *memRecordRepo) CreateDeposit(_ context.Context, rec *models.DepositRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.deposits = append(r.s.state.deposits, *rec)
	return nil
}

func (r *memRecordRepo) CreateWithdrawal(_ context.Context, rec *models.WithdrawalRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.withdrawals = append(r.s.state.withdrawals, *rec)
	return nil
}

func (r *memRecordRepo) CreateWithdrawRequest(_ context.Context, rec *models.WithdrawRequestRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.requestRecords = append(r.s.state.requestRecords, *rec)
	return nil
}

func (r *memRecordRepo) CreateRequestStatus(_ context.Context, rec *models.RequestStatusRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.statusRecords = append(r.s.state.statusRecords, *rec)
	return nil
}

func (r *memRecordRepo) CreateFeeShare(_ context.Context, rec *models.FeeShareRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.feeShares = append(r.s.state.feeShares, *rec)
	return nil
}

func (r *memRecordRepo) CreateStrategyFlow(_ context.Context, rec *models.StrategyFlowRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.strategyFlows = append(r.s.state.strategyFlows, *rec)
	return nil
}

func (r *memRecordRepo) CreateRewardClaim(_ context.Context, rec *models.RewardClaimRecord) error {
	r.s.lock()
	defer r.s.unlock()
	rec.CreatedAt = time.Now()
	r.s.state.rewardClaims = append(r.s.state.rewardClaims, *rec)
	return nil
}

func (r *memRecordRepo) ListDepositsByWallet(_ context.Context, walletID string, page, pageSize int) ([]*models.DepositRecord, int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var all []models.DepositRecord
	for _, rec := range r.s.state.deposits {
		if rec.WalletID == walletID {
			all = append(all, rec)
		}
	}
	total := int64(len(all))
	out := paginateNewestFirst(all, page, pageSize, func(a, b models.DepositRecord) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	result := make([]*models.DepositRecord, len(out))
	for i := range out {
		result[i] = &out[i]
	}
	return result, total, nil
}

func (r *memRecordRepo) ListWithdrawalsByWallet(_ context.Context, walletID string, page, pageSize int) ([]*models.WithdrawalRecord, int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var all []models.WithdrawalRecord
	for _, rec := range r.s.state.withdrawals {
		if rec.WalletID == walletID {
			all = append(all, rec)
		}
	}
	total := int64(len(all))
	out := paginateNewestFirst(all, page, pageSize, func(a, b models.WithdrawalRecord) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	result := make([]*models.WithdrawalRecord, len(out))
	for i := range out {
		result[i] = &out[i]
	}
	return result, total, nil
}

func (r *memRecordRepo) ListFeeSharesByWallet(_ context.Context, walletID string, page, pageSize int) ([]*models.FeeShareRecord, int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var all []models.FeeShareRecord
	for _, rec := range r.s.state.feeShares {
		if rec.WalletID == walletID {
			all = append(all, rec)
		}
	}
	total := int64(len(all))
	out := paginateNewestFirst(all, page, pageSize, func(a, b models.FeeShareRecord) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	result := make([]*models.FeeShareRecord, len(out))
	for i := range out {
		result[i] = &out[i]
	}
	return result, total, nil
}

func paginateNewestFirst[T any](all []T, page, pageSize int, newer func(a, b T) bool) []T {
	sort.SliceStable(all, func(i, j int) bool { return newer(all[i], all[j]) })
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
