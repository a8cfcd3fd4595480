package storage

import (
	"context"
	"errors"

	"github.com/vietddude/tonkit/internal/core/domain"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("record not found")
)

// Checkpoint marks per-domain sync progress. AllSynced flips to true once
// backward backfill has reached the oldest event; it never flips back.
type Checkpoint struct {
	AllSynced bool
}

// AccountRepository caches the native account snapshot.
type AccountRepository interface {
	// Account retrieves the cached snapshot, nil when none is cached.
	Account(ctx context.Context, address domain.Address) (*domain.Account, error)

	// SaveAccount replaces the cached snapshot (upsert, not merge).
	SaveAccount(ctx context.Context, account *domain.Account) error
}

// JettonBalanceRepository caches the full jetton balance set of an owner.
type JettonBalanceRepository interface {
	// JettonBalances retrieves all cached balances of the owner.
	JettonBalances(ctx context.Context, owner domain.Address) ([]domain.JettonBalance, error)

	// ReplaceJettonBalances atomically replaces the owner's balance set.
	ReplaceJettonBalances(ctx context.Context, owner domain.Address, balances []domain.JettonBalance) error
}

// EventRepository caches events, their derived tags and the backfill
// checkpoint. Event saves are idempotent upserts keyed by event id.
type EventRepository interface {
	// Event retrieves one event by id, nil when not cached.
	Event(ctx context.Context, id string) (*domain.Event, error)

	// Events returns cached events matching the query, ordered by
	// descending lt, strictly older than beforeLt when set.
	Events(ctx context.Context, query domain.TagQuery, beforeLt *int64, limit int) ([]domain.Event, error)

	// LatestEvent returns the newest cached event by lt, nil when empty.
	LatestEvent(ctx context.Context) (*domain.Event, error)

	// OldestEvent returns the oldest cached event by lt, nil when empty.
	OldestEvent(ctx context.Context) (*domain.Event, error)

	// SaveEvents upserts events by id (replace-on-conflict).
	SaveEvents(ctx context.Context, events []domain.Event) error

	// ResaveTags deletes all tags of the given event ids and inserts the
	// new set, so tags never drift from the current action lists.
	ResaveTags(ctx context.Context, tags []domain.Tag, eventIDs []string) error

	// DeleteEventsBefore removes cached events older than the timestamp,
	// along with their tags.
	DeleteEventsBefore(ctx context.Context, timestamp int64) error

	// Checkpoint retrieves the backfill checkpoint, nil when never saved.
	Checkpoint(ctx context.Context) (*Checkpoint, error)

	// SaveCheckpoint replaces the backfill checkpoint.
	SaveCheckpoint(ctx context.Context, checkpoint Checkpoint) error
}
