package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/storage"
	"github.com/vietddude/tonkit/internal/infra/tonapi"
	"github.com/vietddude/tonkit/internal/metrics"
)

// ErrNotStarted is the initial notSynced error before any sync ran.
var ErrNotStarted = errors.New("sync not started")

// AccountManager keeps the cached native account snapshot of the
// watched address current.
type AccountManager struct {
	address domain.Address
	api     tonapi.Client
	storage storage.AccountRepository
	logger  *slog.Logger

	mu      sync.Mutex
	account *domain.Account
	state   domain.SyncState

	accountPub *Publisher[domain.Account]
	statePub   *Publisher[domain.SyncState]
}

func NewAccountManager(address domain.Address, api tonapi.Client, repo storage.AccountRepository, logger *slog.Logger) *AccountManager {
	m := &AccountManager{
		address:    address,
		api:        api,
		storage:    repo,
		logger:     logger,
		state:      domain.SyncStateNotSynced(ErrNotStarted),
		accountPub: NewPublisher[domain.Account](),
		statePub:   NewPublisher[domain.SyncState](),
	}

	// Best-effort warm start from the cache.
	if account, err := repo.Account(context.Background(), address); err == nil {
		m.account = account
	}

	return m
}

// Account returns the last successfully fetched snapshot, nil before the
// first successful sync on a cold cache.
func (m *AccountManager) Account() *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account
}

func (m *AccountManager) SyncState() domain.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *AccountManager) SubscribeAccount() *Subscription[domain.Account] {
	return m.accountPub.Subscribe()
}

func (m *AccountManager) SubscribeSyncState() *Subscription[domain.SyncState] {
	return m.statePub.Subscribe()
}

// Sync fetches and replaces the cached snapshot. A no-op while a sync is
// already in flight; no retry is scheduled on failure.
func (m *AccountManager) Sync(ctx context.Context) {
	m.logger.Debug("Syncing account...")

	if !m.beginSync() {
		m.logger.Debug("Already syncing account")
		return
	}

	go func() {
		account, err := m.api.GetAccount(ctx, m.address)
		if err != nil {
			m.logger.Error("Account sync error", "error", err)
			metrics.SyncRunsTotal.WithLabelValues("account", "error").Inc()
			m.setState(domain.SyncStateNotSynced(err))
			return
		}

		m.logger.Debug("Got account", "balance", account.Balance)

		m.mu.Lock()
		m.account = account
		m.mu.Unlock()

		// Best-effort cache write; the remote source stays authoritative.
		if err := m.storage.SaveAccount(ctx, account); err != nil {
			m.logger.Warn("Failed to cache account", "error", err)
		}

		m.accountPub.Publish(*account)
		metrics.SyncRunsTotal.WithLabelValues("account", "success").Inc()
		m.setState(domain.SyncStateSynced())
	}()
}

func (m *AccountManager) beginSync() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Syncing() {
		return false
	}
	m.state = domain.SyncStateSyncing()
	m.statePub.Publish(m.state)
	return true
}

func (m *AccountManager) setState(state domain.SyncState) {
	m.mu.Lock()
	changed := !m.state.Equal(state)
	m.state = state
	m.mu.Unlock()

	if changed {
		m.statePub.Publish(state)
	}
}
