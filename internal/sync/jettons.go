package sync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/storage"
	"github.com/vietddude/tonkit/internal/infra/tonapi"
	"github.com/vietddude/tonkit/internal/metrics"
)

// JettonManager keeps the full jetton balance set of the watched
// address current. The set is replaced as a map on every sync.
type JettonManager struct {
	address domain.Address
	api     tonapi.Client
	storage storage.JettonBalanceRepository
	logger  *slog.Logger

	mu       sync.Mutex
	balances map[domain.Address]domain.JettonBalance
	state    domain.SyncState

	balancesPub *Publisher[map[domain.Address]domain.JettonBalance]
	statePub    *Publisher[domain.SyncState]
}

func NewJettonManager(address domain.Address, api tonapi.Client, repo storage.JettonBalanceRepository, logger *slog.Logger) *JettonManager {
	m := &JettonManager{
		address:     address,
		api:         api,
		storage:     repo,
		logger:      logger,
		balances:    make(map[domain.Address]domain.JettonBalance),
		state:       domain.SyncStateNotSynced(ErrNotStarted),
		balancesPub: NewPublisher[map[domain.Address]domain.JettonBalance](),
		statePub:    NewPublisher[domain.SyncState](),
	}

	if cached, err := repo.JettonBalances(context.Background(), address); err == nil {
		m.balances = balanceMap(cached)
	}

	return m
}

// JettonBalanceMap returns the cached balances keyed by jetton master
// address. The returned map is a copy.
func (m *JettonManager) JettonBalanceMap() map[domain.Address]domain.JettonBalance {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[domain.Address]domain.JettonBalance, len(m.balances))
	for key, value := range m.balances {
		out[key] = value
	}
	return out
}

func (m *JettonManager) SyncState() domain.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *JettonManager) SubscribeBalances() *Subscription[map[domain.Address]domain.JettonBalance] {
	return m.balancesPub.Subscribe()
}

func (m *JettonManager) SubscribeSyncState() *Subscription[domain.SyncState] {
	return m.statePub.Subscribe()
}

// Sync fetches and replaces the cached balance set. A no-op while a
// sync is already in flight.
func (m *JettonManager) Sync(ctx context.Context) {
	m.logger.Debug("Syncing jetton balances...")

	if !m.beginSync() {
		m.logger.Debug("Already syncing jetton balances")
		return
	}

	go func() {
		balances, err := m.api.GetJettonBalances(ctx, m.address)
		if err != nil {
			m.logger.Error("Jetton sync error", "error", err)
			metrics.SyncRunsTotal.WithLabelValues("jettons", "error").Inc()
			m.setState(domain.SyncStateNotSynced(err))
			return
		}

		m.logger.Debug("Got jetton balances", "count", len(balances))

		m.mu.Lock()
		m.balances = balanceMap(balances)
		m.mu.Unlock()

		if err := m.storage.ReplaceJettonBalances(ctx, m.address, balances); err != nil {
			m.logger.Warn("Failed to cache jetton balances", "error", err)
		}

		m.balancesPub.Publish(m.JettonBalanceMap())
		metrics.SyncRunsTotal.WithLabelValues("jettons", "success").Inc()
		m.setState(domain.SyncStateSynced())
	}()
}

func (m *JettonManager) beginSync() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Syncing() {
		return false
	}
	m.state = domain.SyncStateSyncing()
	m.statePub.Publish(m.state)
	return true
}

func (m *JettonManager) setState(state domain.SyncState) {
	m.mu.Lock()
	changed := !m.state.Equal(state)
	m.state = state
	m.mu.Unlock()

	if changed {
		m.statePub.Publish(state)
	}
}

func balanceMap(balances []domain.JettonBalance) map[domain.Address]domain.JettonBalance {
	out := make(map[domain.Address]domain.JettonBalance, len(balances))
	for _, balance := range balances {
		out[balance.JettonAddress] = balance
	}
	return out
}
