package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/storage"
)

var (
	owner = domain.MustParseAddress("0:1111111111111111111111111111111111111111111111111111111111111111")
	peer  = domain.MustParseAddress("0:2222222222222222222222222222222222222222222222222222222222222222")
	other = domain.MustParseAddress("0:3333333333333333333333333333333333333333333333333333333333333333")
)

func seedEvents(t *testing.T, repo *EventRepo, events ...domain.Event) {
	t.Helper()

	if err := repo.SaveEvents(context.Background(), events); err != nil {
		t.Fatalf("SaveEvents failed: %v", err)
	}

	var tags []domain.Tag
	ids := make([]string, len(events))
	for i, event := range events {
		ids[i] = event.ID
		tags = append(tags, domain.EventTags(event, owner)...)
	}
	if err := repo.ResaveTags(context.Background(), tags, ids); err != nil {
		t.Fatalf("ResaveTags failed: %v", err)
	}
}

func transferEvent(id string, lt, ts int64, from domain.Address) domain.Event {
	return domain.Event{
		ID: id, Lt: lt, Timestamp: ts,
		Actions: []domain.Action{{
			Type: domain.ActionTypeTonTransfer,
			TonTransfer: &domain.TonTransferAction{
				Sender:    domain.AccountAddress{Address: from},
				Recipient: domain.AccountAddress{Address: owner},
			},
		}},
	}
}

func TestEventRepo_QueryOrderingAndPaging(t *testing.T) {
	repo := NewEventRepo(NewStorage())
	seedEvents(t, repo,
		transferEvent("e1", 10, 100, peer),
		transferEvent("e2", 20, 200, peer),
		transferEvent("e3", 30, 300, peer),
	)

	events, err := repo.Events(context.Background(), domain.TagQuery{}, nil, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 3 || events[0].ID != "e3" || events[2].ID != "e1" {
		t.Errorf("Expected newest-first ordering, got %v", events)
	}

	// beforeLt is exclusive.
	beforeLt := int64(30)
	events, err = repo.Events(context.Background(), domain.TagQuery{}, &beforeLt, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 || events[0].ID != "e2" {
		t.Errorf("Expected events older than lt 30, got %v", events)
	}

	events, err = repo.Events(context.Background(), domain.TagQuery{}, nil, 2)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected limit to apply, got %d events", len(events))
	}
}

func TestEventRepo_QueryFiltersByTag(t *testing.T) {
	repo := NewEventRepo(NewStorage())
	seedEvents(t, repo,
		transferEvent("from-peer", 10, 100, peer),
		transferEvent("from-other", 20, 200, other),
	)

	events, err := repo.Events(context.Background(), domain.TagQuery{Address: &peer}, nil, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "from-peer" {
		t.Errorf("Expected only the peer event, got %v", events)
	}
}

func TestEventRepo_QueryAddressExactMembership(t *testing.T) {
	// The raw form of a 10: workchain address contains the raw form of
	// the corresponding 0: one; the filter must not substring-match.
	wc0 := domain.MustParseAddress("0:2222222222222222222222222222222222222222222222222222222222222222")
	wc10 := domain.MustParseAddress("10:2222222222222222222222222222222222222222222222222222222222222222")

	repo := NewEventRepo(NewStorage())
	seedEvents(t, repo, transferEvent("from-wc10", 10, 100, wc10))

	events, err := repo.Events(context.Background(), domain.TagQuery{Address: &wc0}, nil, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Workchain 0 query must not match the workchain 10 counterparty, got %v", events)
	}

	events, err = repo.Events(context.Background(), domain.TagQuery{Address: &wc10}, nil, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "from-wc10" {
		t.Errorf("Exact counterparty must match, got %v", events)
	}
}

func TestEventRepo_ResaveTagsReplaces(t *testing.T) {
	repo := NewEventRepo(NewStorage())
	event := transferEvent("e1", 10, 100, peer)
	seedEvents(t, repo, event)

	// Resave with a tag pointing at a different counterparty; the old tag
	// must be gone.
	newTags := []domain.Tag{{
		EventID:   "e1",
		Direction: domain.TagDirectionIncoming,
		Platform:  domain.TagPlatformNative,
		Addresses: []domain.Address{other},
	}}
	if err := repo.ResaveTags(context.Background(), newTags, []string{"e1"}); err != nil {
		t.Fatalf("ResaveTags failed: %v", err)
	}

	if events, _ := repo.Events(context.Background(), domain.TagQuery{Address: &peer}, nil, 10); len(events) != 0 {
		t.Errorf("Old tag must not match anymore, got %v", events)
	}
	if events, _ := repo.Events(context.Background(), domain.TagQuery{Address: &other}, nil, 10); len(events) != 1 {
		t.Errorf("New tag must match, got %v", events)
	}
}

func TestEventRepo_BoundaryEvents(t *testing.T) {
	repo := NewEventRepo(NewStorage())

	latest, err := repo.LatestEvent(context.Background())
	if err != nil || latest != nil {
		t.Errorf("Empty cache must yield nil, got %v, %v", latest, err)
	}

	seedEvents(t, repo,
		transferEvent("e1", 10, 100, peer),
		transferEvent("e2", 20, 200, peer),
	)

	latest, _ = repo.LatestEvent(context.Background())
	oldest, _ := repo.OldestEvent(context.Background())
	if latest == nil || latest.ID != "e2" {
		t.Errorf("Expected e2 latest, got %v", latest)
	}
	if oldest == nil || oldest.ID != "e1" {
		t.Errorf("Expected e1 oldest, got %v", oldest)
	}
}

func TestEventRepo_DeleteEventsBefore(t *testing.T) {
	repo := NewEventRepo(NewStorage())
	seedEvents(t, repo,
		transferEvent("old", 10, 100, peer),
		transferEvent("new", 20, 200, peer),
	)

	if err := repo.DeleteEventsBefore(context.Background(), 150); err != nil {
		t.Fatalf("DeleteEventsBefore failed: %v", err)
	}

	if event, _ := repo.Event(context.Background(), "old"); event != nil {
		t.Error("Old event must be pruned")
	}
	if event, _ := repo.Event(context.Background(), "new"); event == nil {
		t.Error("Recent event must survive pruning")
	}

	// Pruned tags must not match queries anymore.
	if events, _ := repo.Events(context.Background(), domain.TagQuery{Address: &peer}, nil, 10); len(events) != 1 {
		t.Errorf("Expected one surviving tagged event, got %v", events)
	}
}

func TestEventRepo_Checkpoint(t *testing.T) {
	repo := NewEventRepo(NewStorage())

	checkpoint, err := repo.Checkpoint(context.Background())
	if err != nil || checkpoint != nil {
		t.Errorf("Expected nil checkpoint on cold cache, got %v, %v", checkpoint, err)
	}

	if err := repo.SaveCheckpoint(context.Background(), storage.Checkpoint{AllSynced: true}); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	checkpoint, _ = repo.Checkpoint(context.Background())
	if checkpoint == nil || !checkpoint.AllSynced {
		t.Errorf("Expected AllSynced checkpoint, got %v", checkpoint)
	}
}

func TestAccountRepo_RoundTrip(t *testing.T) {
	repo := NewAccountRepo(NewStorage())

	account, err := repo.Account(context.Background(), owner)
	if err != nil || account != nil {
		t.Errorf("Expected nil on cold cache, got %v, %v", account, err)
	}

	saved := &domain.Account{Address: owner, Balance: big.NewInt(9), Status: domain.AccountStatusActive}
	if err := repo.SaveAccount(context.Background(), saved); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	account, _ = repo.Account(context.Background(), owner)
	if account == nil || account.Balance.Int64() != 9 {
		t.Errorf("Unexpected cached account: %+v", account)
	}
}

func TestJettonBalanceRepo_Replace(t *testing.T) {
	repo := NewJettonBalanceRepo(NewStorage())
	usdt := domain.MustParseAddress("0:4444444444444444444444444444444444444444444444444444444444444444")

	first := []domain.JettonBalance{{JettonAddress: usdt, Balance: big.NewInt(1), WalletAddress: peer}}
	if err := repo.ReplaceJettonBalances(context.Background(), owner, first); err != nil {
		t.Fatalf("ReplaceJettonBalances failed: %v", err)
	}

	if err := repo.ReplaceJettonBalances(context.Background(), owner, nil); err != nil {
		t.Fatalf("ReplaceJettonBalances failed: %v", err)
	}

	balances, _ := repo.JettonBalances(context.Background(), owner)
	if len(balances) != 0 {
		t.Errorf("Replacement must be wholesale, got %v", balances)
	}
}
