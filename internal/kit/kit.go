package kit

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	stdsync "sync"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/redis"
	"github.com/vietddude/tonkit/internal/infra/storage"
	"github.com/vietddude/tonkit/internal/infra/tonapi"
	"github.com/vietddude/tonkit/internal/send"
	"github.com/vietddude/tonkit/internal/sync"
)

// ErrWatchOnly is returned when a signing operation is requested from a
// kit constructed without a secret key. The check happens before any
// network call.
var ErrWatchOnly = errors.New("kit is watch-only")

// Deps bundles the infrastructure a Kit is assembled from. Dedupe is
// optional; without it notification deduplication falls back to an
// in-process set.
type Deps struct {
	API      tonapi.Client
	Listener tonapi.Listener
	Accounts storage.AccountRepository
	Jettons  storage.JettonBalanceRepository
	Events   storage.EventRepository
	Dedupe   *redis.Client
	Logger   *slog.Logger
}

// Kit is the single entry point for one watched wallet: cached state,
// sync orchestration, push subscription and outgoing transfers.
type Kit struct {
	address   domain.Address
	watchOnly bool

	api      tonapi.Client
	listener tonapi.Listener
	dedupe   *redis.Client
	logger   *slog.Logger

	account *sync.AccountManager
	jettons *sync.JettonManager
	events  *sync.EventManager
	sender  *send.Sender

	mu         stdsync.Mutex
	listenDone context.CancelFunc
	seen       map[string]struct{}
	pending    bool
}

// New builds a watch-only kit for an address. Signing operations fail
// with ErrWatchOnly.
func New(address domain.Address, deps Deps) *Kit {
	return build(address, true, nil, deps)
}

// NewWithKey builds a full kit from an ed25519 secret key. The watched
// address is derived from the public key.
func NewWithKey(secret ed25519.PrivateKey, deps Deps) *Kit {
	address := send.WalletAddress(secret.Public().(ed25519.PublicKey))
	return build(address, false, send.NewSecretKeySigner(secret), deps)
}

func build(address domain.Address, watchOnly bool, signer send.Signer, deps Deps) *Kit {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("address", address.Raw())

	k := &Kit{
		address:   address,
		watchOnly: watchOnly,
		api:       deps.API,
		listener:  deps.Listener,
		dedupe:    deps.Dedupe,
		logger:    logger,
		account:   sync.NewAccountManager(address, deps.API, deps.Accounts, logger),
		jettons:   sync.NewJettonManager(address, deps.API, deps.Jettons, logger),
		events:    sync.NewEventManager(address, deps.API, deps.Events, logger),
		seen:      make(map[string]struct{}),
	}

	if !watchOnly {
		k.sender = send.NewSender(deps.API, address, jettonResolver{k.jettons}, signer, logger)
	}
	return k
}

// Validate reports whether the string parses as a TON address in either
// raw or friendly form.
func Validate(address string) error {
	_, err := domain.ParseAddress(address)
	return err
}

// Address is the watched wallet address.
func (k *Kit) Address() domain.Address {
	return k.address
}

// ReceiveAddress is the raw-form address to share for incoming funds.
func (k *Kit) ReceiveAddress() string {
	return k.address.Raw()
}

func (k *Kit) WatchOnly() bool {
	return k.watchOnly
}

// Account returns the cached native account snapshot, nil before the
// first successful sync on a cold cache.
func (k *Kit) Account() *domain.Account {
	return k.account.Account()
}

func (k *Kit) JettonBalanceMap() map[domain.Address]domain.JettonBalance {
	return k.jettons.JettonBalanceMap()
}

// Jetton fetches metadata for a jetton master address from the chain
// API. Not cached: balances carry their own metadata, this is for
// tokens the wallet does not hold yet.
func (k *Kit) Jetton(ctx context.Context, address domain.Address) (*domain.Jetton, error) {
	return k.api.GetJettonInfo(ctx, address)
}

func (k *Kit) AccountSyncState() domain.SyncState {
	return k.account.SyncState()
}

func (k *Kit) JettonSyncState() domain.SyncState {
	return k.jettons.SyncState()
}

func (k *Kit) EventSyncState() domain.SyncState {
	return k.events.SyncState()
}

func (k *Kit) SubscribeAccount() *sync.Subscription[domain.Account] {
	return k.account.SubscribeAccount()
}

func (k *Kit) SubscribeJettonBalances() *sync.Subscription[map[domain.Address]domain.JettonBalance] {
	return k.jettons.SubscribeBalances()
}

func (k *Kit) SubscribeAccountSyncState() *sync.Subscription[domain.SyncState] {
	return k.account.SubscribeSyncState()
}

func (k *Kit) SubscribeJettonSyncState() *sync.Subscription[domain.SyncState] {
	return k.jettons.SubscribeSyncState()
}

func (k *Kit) SubscribeEventSyncState() *sync.Subscription[domain.SyncState] {
	return k.events.SubscribeSyncState()
}

// Events returns cached events matching the query, newest first.
func (k *Kit) Events(ctx context.Context, query domain.TagQuery, beforeLt *int64, limit int) ([]domain.Event, error) {
	return k.events.Events(ctx, query, beforeLt, limit)
}

func (k *Kit) SubscribeEvents(query domain.TagQuery) *sync.Subscription[[]domain.Event] {
	return k.events.SubscribeEvents(query)
}

// Refresh kicks all three sync domains. Each is a no-op if already in
// flight; the call returns immediately.
func (k *Kit) Refresh(ctx context.Context) {
	k.account.Sync(ctx)
	k.jettons.Sync(ctx)
	k.events.Sync(ctx)
}

// Start opens the push subscription and refreshes on every fresh
// transaction notification.
func (k *Kit) Start(ctx context.Context) {
	k.mu.Lock()
	if k.listenDone != nil {
		k.listenDone()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	k.listenDone = cancel
	k.mu.Unlock()

	k.listener.Start(k.address)
	go k.listen(loopCtx)
	go k.drainPending(loopCtx)
	k.Refresh(ctx)
}

// Stop tears down the push subscription. Cached state stays queryable.
func (k *Kit) Stop() {
	k.mu.Lock()
	if k.listenDone != nil {
		k.listenDone()
		k.listenDone = nil
	}
	k.mu.Unlock()

	k.listener.Stop()
}

func (k *Kit) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case txHash, ok := <-k.listener.Transactions():
			if !ok {
				return
			}
			if !k.firstSighting(ctx, txHash) {
				k.logger.Debug("Duplicate notification", "tx_hash", txHash)
				continue
			}
			k.logger.Debug("New transaction notification", "tx_hash", txHash)
			k.refreshOrQueue(ctx)
		}
	}
}

// refreshOrQueue kicks a refresh, or queues one when the event sync is
// already in flight so the notification is not swallowed by the
// single-flight guard. The flag is raised before the state check: if
// the sync terminates in between, the drain may already have consumed
// its terminal state, so the flag is serviced here instead.
func (k *Kit) refreshOrQueue(ctx context.Context) {
	k.mu.Lock()
	k.pending = true
	k.mu.Unlock()

	if k.events.SyncState().Syncing() {
		return
	}

	k.mu.Lock()
	pending := k.pending
	k.pending = false
	k.mu.Unlock()

	if pending {
		k.Refresh(ctx)
	}
}

// drainPending re-triggers a refresh once the event sync reaches a
// terminal state while a notification is queued.
func (k *Kit) drainPending(ctx context.Context) {
	sub := k.events.SubscribeSyncState()
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-sub.C:
			if !ok {
				return
			}
			if state.Syncing() {
				continue
			}

			k.mu.Lock()
			pending := k.pending
			k.pending = false
			k.mu.Unlock()

			if pending {
				k.Refresh(ctx)
			}
		}
	}
}

// firstSighting reports whether the hash has not been seen before.
// Backed by Redis when configured so replayed notifications refresh at
// most once cluster-wide; otherwise an in-process set.
func (k *Kit) firstSighting(ctx context.Context, txHash string) bool {
	if k.dedupe != nil {
		fresh, err := k.dedupe.MarkSeen(ctx, k.address.Raw(), txHash)
		if err != nil {
			k.logger.Warn("Dedupe check failed", "error", err)
			return true
		}
		return fresh
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.seen[txHash]; ok {
		return false
	}
	k.seen[txHash] = struct{}{}
	return true
}

// ListenerState exposes the push connection state.
func (k *Kit) ListenerState() tonapi.ListenerState {
	return k.listener.State()
}

// EstimateFee emulates the transfer and returns its total fee. Rejected
// for watch-only kits: emulation uses the same message the submission
// would, which requires a signing wallet.
func (k *Kit) EstimateFee(ctx context.Context, req domain.TransferRequest) (*domain.FeeEstimate, error) {
	if k.watchOnly {
		return nil, ErrWatchOnly
	}
	return k.sender.EstimateFee(ctx, req)
}

// Send signs and broadcasts the transfer.
func (k *Kit) Send(ctx context.Context, req domain.TransferRequest) error {
	if k.watchOnly {
		return ErrWatchOnly
	}
	return k.sender.Send(ctx, req)
}

// jettonResolver resolves jetton wallet addresses from the cached
// balance set.
type jettonResolver struct {
	jettons *sync.JettonManager
}

func (r jettonResolver) JettonWallet(jetton domain.Address) (domain.Address, bool) {
	balance, ok := r.jettons.JettonBalanceMap()[jetton]
	if !ok {
		return domain.Address{}, false
	}
	return balance.WalletAddress, true
}
