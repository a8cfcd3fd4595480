package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/storage"
)

// checkpointID keys the single checkpoint row per database.
const checkpointID = "event_sync_state"

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

type eventRow struct {
	ID         string `db:"id"`
	Lt         int64  `db:"lt"`
	Timestamp  int64  `db:"timestamp"`
	IsScam     bool   `db:"is_scam"`
	InProgress bool   `db:"in_progress"`
	Actions    []byte `db:"actions"`
}

func (row *eventRow) toDomain() (domain.Event, error) {
	var actions []domain.Action
	if err := json.Unmarshal(row.Actions, &actions); err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode actions: %w", err)
	}

	return domain.Event{
		ID:         row.ID,
		Lt:         row.Lt,
		Timestamp:  row.Timestamp,
		IsScam:     row.IsScam,
		InProgress: row.InProgress,
		Actions:    actions,
	}, nil
}

func (r *EventRepo) Event(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT id, lt, timestamp, is_scam, in_progress, actions FROM event WHERE id = $1`

	var row eventRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	event, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Events returns events matching the tag query, newest first. A non-empty
// query joins the tag table; the address field matches by exact membership
// in the tag's comma-joined address list.
func (r *EventRepo) Events(ctx context.Context, query domain.TagQuery, beforeLt *int64, limit int) ([]domain.Event, error) {
	var (
		conditions []string
		args       []any
		joinClause string
	)

	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if !query.IsEmpty() {
		joinClause = "INNER JOIN tag ON event.id = tag.event_id"

		if query.Direction != nil {
			conditions = append(conditions, "tag.direction = "+arg(string(*query.Direction)))
		}
		if query.Platform != nil {
			conditions = append(conditions, "tag.platform = "+arg(string(*query.Platform)))
		}
		if query.JettonAddress != nil {
			conditions = append(conditions, "tag.jetton_address = "+arg(query.JettonAddress.Raw()))
		}
		if query.Address != nil {
			// Delimit both sides so one raw form cannot substring-match
			// another (a 10: workchain address contains a 0: one).
			conditions = append(conditions, "',' || tag.addresses || ',' LIKE "+arg("%,"+query.Address.Raw()+",%"))
		}
	}

	if beforeLt != nil {
		conditions = append(conditions, "event.lt < "+arg(*beforeLt))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	sqlQuery := fmt.Sprintf(`
		SELECT DISTINCT event.id, event.lt, event.timestamp, event.is_scam, event.in_progress, event.actions
		FROM event
		%s
		%s
		ORDER BY event.lt DESC
		LIMIT %d
	`, joinClause, whereClause, limit)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *EventRepo) LatestEvent(ctx context.Context) (*domain.Event, error) {
	return r.boundaryEvent(ctx, "DESC")
}

func (r *EventRepo) OldestEvent(ctx context.Context) (*domain.Event, error) {
	return r.boundaryEvent(ctx, "ASC")
}

func (r *EventRepo) boundaryEvent(ctx context.Context, order string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT id, lt, timestamp, is_scam, in_progress, actions FROM event ORDER BY lt %s LIMIT 1`, order)

	var row eventRow
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get boundary event: %w", err)
	}

	event, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepo) SaveEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event (id, lt, timestamp, is_scam, in_progress, actions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			lt = EXCLUDED.lt,
			timestamp = EXCLUDED.timestamp,
			is_scam = EXCLUDED.is_scam,
			in_progress = EXCLUDED.in_progress,
			actions = EXCLUDED.actions
	`

	for _, event := range events {
		actions, err := json.Marshal(event.Actions)
		if err != nil {
			return fmt.Errorf("failed to encode actions: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			event.ID, event.Lt, event.Timestamp, event.IsScam, event.InProgress, actions,
		)
		if err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}

	return tx.Commit()
}

// ResaveTags replaces the full tag set of the touched events in one
// transaction; tags are never merged.
func (r *EventRepo) ResaveTags(ctx context.Context, tags []domain.Tag, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	deleteQuery, deleteArgs, err := sqlx.In(`DELETE FROM tag WHERE event_id IN (?)`, eventIDs)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(deleteQuery), deleteArgs...); err != nil {
		return fmt.Errorf("failed to delete tags: %w", err)
	}

	insertQuery := `
		INSERT INTO tag (event_id, direction, platform, jetton_address, addresses)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, tag := range tags {
		var jettonAddress *string
		if tag.JettonAddress != nil {
			raw := tag.JettonAddress.Raw()
			jettonAddress = &raw
		}

		addresses := make([]string, len(tag.Addresses))
		for i, addr := range tag.Addresses {
			addresses[i] = addr.Raw()
		}

		_, err = tx.ExecContext(ctx, insertQuery,
			tag.EventID, string(tag.Direction), string(tag.Platform),
			jettonAddress, strings.Join(addresses, ","),
		)
		if err != nil {
			return fmt.Errorf("failed to save tag: %w", err)
		}
	}

	return tx.Commit()
}

func (r *EventRepo) DeleteEventsBefore(ctx context.Context, timestamp int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tagQuery := `DELETE FROM tag WHERE event_id IN (SELECT id FROM event WHERE timestamp < $1)`
	if _, err := tx.ExecContext(ctx, tagQuery, timestamp); err != nil {
		return fmt.Errorf("failed to delete old tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event WHERE timestamp < $1`, timestamp); err != nil {
		return fmt.Errorf("failed to delete old events: %w", err)
	}

	return tx.Commit()
}

func (r *EventRepo) Checkpoint(ctx context.Context) (*storage.Checkpoint, error) {
	query := `SELECT all_synced FROM event_sync_state WHERE id = $1`

	var allSynced bool
	err := r.db.GetContext(ctx, &allSynced, query, checkpointID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return &storage.Checkpoint{AllSynced: allSynced}, nil
}

func (r *EventRepo) SaveCheckpoint(ctx context.Context, checkpoint storage.Checkpoint) error {
	query := `
		INSERT INTO event_sync_state (id, all_synced)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET all_synced = EXCLUDED.all_synced
	`

	_, err := r.db.ExecContext(ctx, query, checkpointID, checkpoint.AllSynced)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
