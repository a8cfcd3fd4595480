package domain

import "fmt"

// SyncState is the per-domain sync state machine: synced, syncing, or
// notSynced with the error that stopped the last attempt. It drives both
// the single-flight guard and external observability.
type SyncState struct {
	kind syncStateKind
	err  error
}

type syncStateKind int

const (
	syncStateNotSynced syncStateKind = iota
	syncStateSyncing
	syncStateSynced
)

func SyncStateSynced() SyncState {
	return SyncState{kind: syncStateSynced}
}

func SyncStateSyncing() SyncState {
	return SyncState{kind: syncStateSyncing}
}

func SyncStateNotSynced(err error) SyncState {
	return SyncState{kind: syncStateNotSynced, err: err}
}

func (s SyncState) Synced() bool  { return s.kind == syncStateSynced }
func (s SyncState) Syncing() bool { return s.kind == syncStateSyncing }

// NotSynced reports whether the last sync attempt failed (or none ran).
func (s SyncState) NotSynced() bool { return s.kind == syncStateNotSynced }

// Err returns the failure of the last sync attempt, nil unless NotSynced.
func (s SyncState) Err() error { return s.err }

// Equal compares states; notSynced errors compare by message.
func (s SyncState) Equal(other SyncState) bool {
	if s.kind != other.kind {
		return false
	}
	if s.kind != syncStateNotSynced {
		return true
	}
	return fmt.Sprint(s.err) == fmt.Sprint(other.err)
}

func (s SyncState) String() string {
	switch s.kind {
	case syncStateSynced:
		return "synced"
	case syncStateSyncing:
		return "syncing"
	default:
		return fmt.Sprintf("not synced: %v", s.err)
	}
}
