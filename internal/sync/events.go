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

// PageLimit is the history page size requested from the chain API.
const PageLimit = 100

// EventManager keeps the event history of the watched address current:
// incremental catch-up, historical backfill, in-progress reconciliation,
// tag derivation and tag-indexed query/subscription.
type EventManager struct {
	address domain.Address
	api     tonapi.Client
	storage storage.EventRepository
	logger  *slog.Logger

	mu    sync.Mutex
	state domain.SyncState

	statePub *Publisher[domain.SyncState]
	eventPub *Publisher[[]domain.Event]
}

func NewEventManager(address domain.Address, api tonapi.Client, repo storage.EventRepository, logger *slog.Logger) *EventManager {
	return &EventManager{
		address:  address,
		api:      api,
		storage:  repo,
		logger:   logger,
		state:    domain.SyncStateNotSynced(ErrNotStarted),
		statePub: NewPublisher[domain.SyncState](),
		eventPub: NewPublisher[[]domain.Event](),
	}
}

func (m *EventManager) SyncState() domain.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *EventManager) SubscribeSyncState() *Subscription[domain.SyncState] {
	return m.statePub.Subscribe()
}

// Events returns cached events matching the query, newest first, paged
// by the exclusive beforeLt cursor.
func (m *EventManager) Events(ctx context.Context, query domain.TagQuery, beforeLt *int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = PageLimit
	}
	return m.storage.Events(ctx, query, beforeLt, limit)
}

// SubscribeEvents yields batches of newly persisted events filtered by
// the query. A batch is delivered iff at least one event in it carries a
// conforming tag; an empty query delivers every batch unfiltered.
func (m *EventManager) SubscribeEvents(query domain.TagQuery) *Subscription[[]domain.Event] {
	raw := m.eventPub.Subscribe()
	out := make(chan []domain.Event, subscriptionBuffer)

	go func() {
		defer close(out)
		for batch := range raw.C {
			filtered := m.filterBatch(batch, query)
			if len(filtered) == 0 {
				continue
			}
			select {
			case out <- filtered:
			default:
			}
		}
	}()

	return &Subscription[[]domain.Event]{C: out, cancel: raw.cancel}
}

func (m *EventManager) filterBatch(batch []domain.Event, query domain.TagQuery) []domain.Event {
	if query.IsEmpty() {
		return batch
	}

	var filtered []domain.Event
	for _, event := range batch {
		for _, tag := range domain.EventTags(event, m.address) {
			if tag.Conforms(query) {
				filtered = append(filtered, event)
				break
			}
		}
	}
	return filtered
}

// Sync runs incremental catch-up followed by historical backfill. A
// no-op while a sync is already in flight. Failures land in SyncState;
// partial progress already persisted is kept.
func (m *EventManager) Sync(ctx context.Context) {
	m.logger.Debug("Syncing events...")

	if !m.beginSync() {
		m.logger.Debug("Already syncing events")
		return
	}

	go func() {
		if err := m.sync(ctx); err != nil {
			m.logger.Error("Event sync error", "error", err)
			metrics.SyncRunsTotal.WithLabelValues("events", "error").Inc()
			m.setState(domain.SyncStateNotSynced(err))
			return
		}
		metrics.SyncRunsTotal.WithLabelValues("events", "success").Inc()
		m.setState(domain.SyncStateSynced())
	}()
}

func (m *EventManager) sync(ctx context.Context) error {
	latest, err := m.storage.LatestEvent(ctx)
	if err != nil {
		return err
	}

	if latest != nil {
		if err := m.catchUp(ctx, latest); err != nil {
			return err
		}
	}

	return m.backfill(ctx)
}

// catchUp pages backward through events newer than the cached frontier,
// bounded below by the latest cached event's timestamp.
func (m *EventManager) catchUp(ctx context.Context, latest *domain.Event) error {
	m.logger.Debug("Fetching latest events...")

	startTimestamp := latest.Timestamp
	var beforeLt *int64

	for {
		events, err := m.api.GetEvents(ctx, m.address, beforeLt, &startTimestamp, PageLimit)
		if err != nil {
			return err
		}
		metrics.EventPagesFetched.WithLabelValues("catch_up").Inc()
		m.logger.Debug("Got latest events", "count", len(events))

		m.reconcile(ctx, events)

		if len(events) < PageLimit {
			return nil
		}
		lt := events[len(events)-1].Lt
		beforeLt = &lt
	}
}

// backfill pages backward from the oldest cached event until the server
// history is exhausted, then marks the checkpoint.
func (m *EventManager) backfill(ctx context.Context) error {
	checkpoint, err := m.storage.Checkpoint(ctx)
	if err != nil {
		return err
	}
	if checkpoint != nil && checkpoint.AllSynced {
		return nil
	}

	m.logger.Debug("Fetching history events...")

	var beforeLt *int64
	oldest, err := m.storage.OldestEvent(ctx)
	if err != nil {
		return err
	}
	if oldest != nil {
		beforeLt = &oldest.Lt
	}

	for {
		events, err := m.api.GetEvents(ctx, m.address, beforeLt, nil, PageLimit)
		if err != nil {
			return err
		}
		metrics.EventPagesFetched.WithLabelValues("backfill").Inc()
		m.logger.Debug("Got history events", "count", len(events))

		// Historical pages are assumed new; persist unconditionally.
		m.persist(ctx, events)

		if len(events) < PageLimit {
			break
		}
		lt := events[len(events)-1].Lt
		beforeLt = &lt
	}

	oldest, err = m.storage.OldestEvent(ctx)
	if err != nil {
		return err
	}
	if oldest != nil {
		if err := m.storage.SaveCheckpoint(ctx, storage.Checkpoint{AllSynced: true}); err != nil {
			m.logger.Warn("Failed to save checkpoint", "error", err)
		}
	}
	return nil
}

// reconcile persists a catch-up page. In-progress events are always
// re-persisted; completed events only when new or when they supersede a
// cached in-progress version, so unchanged completed events don't churn
// their tags.
func (m *EventManager) reconcile(ctx context.Context, events []domain.Event) {
	var toSave []domain.Event

	for _, event := range events {
		if event.InProgress {
			toSave = append(toSave, event)
			continue
		}

		cached, err := m.storage.Event(ctx, event.ID)
		if err != nil {
			m.logger.Warn("Failed to read cached event", "event_id", event.ID, "error", err)
		}
		if cached == nil || cached.InProgress {
			toSave = append(toSave, event)
		}
	}

	m.persist(ctx, toSave)
}

// persist upserts events, regenerates their full tag sets and publishes
// the batch. Store write failures are swallowed: sync correctness
// depends on the remote source of truth, not on cache durability.
func (m *EventManager) persist(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}

	if err := m.storage.SaveEvents(ctx, events); err != nil {
		m.logger.Warn("Failed to cache events", "error", err)
	}

	var tags []domain.Tag
	ids := make([]string, len(events))
	for i, event := range events {
		ids[i] = event.ID
		tags = append(tags, domain.EventTags(event, m.address)...)
	}

	if err := m.storage.ResaveTags(ctx, tags, ids); err != nil {
		m.logger.Warn("Failed to cache tags", "error", err)
	}

	metrics.EventsPersisted.Add(float64(len(events)))
	m.eventPub.Publish(events)
}

func (m *EventManager) beginSync() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Syncing() {
		return false
	}
	m.state = domain.SyncStateSyncing()
	m.statePub.Publish(m.state)
	return true
}

func (m *EventManager) setState(state domain.SyncState) {
	m.mu.Lock()
	changed := !m.state.Equal(state)
	m.state = state
	m.mu.Unlock()

	if changed {
		m.statePub.Publish(state)
	}
}
