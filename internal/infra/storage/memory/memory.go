package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/storage"
)

// Storage is an in-memory record store. It backs tests and cacheless
// setups; safe for concurrent use.
type Storage struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account
	jettons    map[string][]domain.JettonBalance
	events     map[string]domain.Event
	tags       map[string][]domain.Tag
	checkpoint *storage.Checkpoint
}

func NewStorage() *Storage {
	return &Storage{
		accounts: make(map[string]*domain.Account),
		jettons:  make(map[string][]domain.JettonBalance),
		events:   make(map[string]domain.Event),
		tags:     make(map[string][]domain.Tag),
	}
}

// -----------------------------------------------------------------------------
// Account Repository
// -----------------------------------------------------------------------------

type AccountRepo struct {
	store *Storage
}

func NewAccountRepo(store *Storage) *AccountRepo {
	return &AccountRepo{store: store}
}

func (r *AccountRepo) Account(ctx context.Context, address domain.Address) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	account, ok := r.store.accounts[address.Raw()]
	if !ok {
		return nil, nil
	}
	clone := *account
	return &clone, nil
}

func (r *AccountRepo) SaveAccount(ctx context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *account
	r.store.accounts[account.Address.Raw()] = &clone
	return nil
}

// -----------------------------------------------------------------------------
// Jetton Balance Repository
// -----------------------------------------------------------------------------

type JettonBalanceRepo struct {
	store *Storage
}

func NewJettonBalanceRepo(store *Storage) *JettonBalanceRepo {
	return &JettonBalanceRepo{store: store}
}

func (r *JettonBalanceRepo) JettonBalances(ctx context.Context, owner domain.Address) ([]domain.JettonBalance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	balances := r.store.jettons[owner.Raw()]
	out := make([]domain.JettonBalance, len(balances))
	copy(out, balances)
	return out, nil
}

func (r *JettonBalanceRepo) ReplaceJettonBalances(ctx context.Context, owner domain.Address, balances []domain.JettonBalance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	replaced := make([]domain.JettonBalance, len(balances))
	copy(replaced, balances)
	r.store.jettons[owner.Raw()] = replaced
	return nil
}

// -----------------------------------------------------------------------------
// Event Repository
// -----------------------------------------------------------------------------

type EventRepo struct {
	store *Storage
}

func NewEventRepo(store *Storage) *EventRepo {
	return &EventRepo{store: store}
}

func (r *EventRepo) Event(ctx context.Context, id string) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	event, ok := r.store.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (r *EventRepo) Events(ctx context.Context, query domain.TagQuery, beforeLt *int64, limit int) ([]domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []domain.Event
	for id, event := range r.store.events {
		if beforeLt != nil && event.Lt >= *beforeLt {
			continue
		}
		if !query.IsEmpty() && !anyConforms(r.store.tags[id], query) {
			continue
		}
		matched = append(matched, event)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Lt > matched[j].Lt })

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *EventRepo) LatestEvent(ctx context.Context) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *domain.Event
	for id := range r.store.events {
		event := r.store.events[id]
		if latest == nil || event.Lt > latest.Lt {
			latest = &event
		}
	}
	return latest, nil
}

func (r *EventRepo) OldestEvent(ctx context.Context) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var oldest *domain.Event
	for id := range r.store.events {
		event := r.store.events[id]
		if oldest == nil || event.Lt < oldest.Lt {
			oldest = &event
		}
	}
	return oldest, nil
}

func (r *EventRepo) SaveEvents(ctx context.Context, events []domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, event := range events {
		r.store.events[event.ID] = event
	}
	return nil
}

func (r *EventRepo) ResaveTags(ctx context.Context, tags []domain.Tag, eventIDs []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, id := range eventIDs {
		delete(r.store.tags, id)
	}
	for _, tag := range tags {
		r.store.tags[tag.EventID] = append(r.store.tags[tag.EventID], tag)
	}
	return nil
}

func (r *EventRepo) DeleteEventsBefore(ctx context.Context, timestamp int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, event := range r.store.events {
		if event.Timestamp < timestamp {
			delete(r.store.events, id)
			delete(r.store.tags, id)
		}
	}
	return nil
}

func (r *EventRepo) Checkpoint(ctx context.Context) (*storage.Checkpoint, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.checkpoint == nil {
		return nil, nil
	}
	clone := *r.store.checkpoint
	return &clone, nil
}

func (r *EventRepo) SaveCheckpoint(ctx context.Context, checkpoint storage.Checkpoint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.checkpoint = &checkpoint
	return nil
}

func anyConforms(tags []domain.Tag, query domain.TagQuery) bool {
	for _, tag := range tags {
		if tag.Conforms(query) {
			return true
		}
	}
	return false
}
