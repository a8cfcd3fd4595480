package tonapi

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/tonkit/internal/core/domain"
)

func newTestSSEStream(body string) *sseStream {
	r := io.NopCloser(strings.NewReader(body))
	return &sseStream{body: r, scanner: bufio.NewScanner(r)}
}

var listenerAddr = domain.MustParseAddress("0:1111111111111111111111111111111111111111111111111111111111111111")

type fakeStream struct {
	hashes chan string
}

func (s *fakeStream) Next() (string, error) {
	hash, ok := <-s.hashes
	if !ok {
		return "", io.EOF
	}
	return hash, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeDialer struct {
	mu    sync.Mutex
	dials int
	next  func(ctx context.Context) (Stream, error)
}

func (d *fakeDialer) Dial(ctx context.Context, address domain.Address) (Stream, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return d.next(ctx)
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func TestStreamListener_DeliversTransactionHashes(t *testing.T) {
	stream := &fakeStream{hashes: make(chan string, 4)}
	dialer := &fakeDialer{next: func(ctx context.Context) (Stream, error) { return stream, nil }}

	l := NewStreamListener(dialer, slog.Default())
	l.SetReconnectDelay(time.Millisecond)
	l.Start(listenerAddr)
	defer l.Stop()

	stream.hashes <- "hash-1"
	stream.hashes <- "hash-2"

	for _, want := range []string{"hash-1", "hash-2"} {
		select {
		case got := <-l.Transactions():
			if got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Did not receive %s", want)
		}
	}

	if state := l.State(); state != ListenerStateConnected {
		t.Errorf("Expected connected, got %s", state)
	}
}

func TestStreamListener_ReconnectsAfterStreamEnd(t *testing.T) {
	dialer := &fakeDialer{next: func(ctx context.Context) (Stream, error) {
		stream := &fakeStream{hashes: make(chan string)}
		close(stream.hashes) // immediate EOF
		return stream, nil
	}}

	l := NewStreamListener(dialer, slog.Default())
	l.SetReconnectDelay(time.Millisecond)
	l.Start(listenerAddr)
	defer l.Stop()

	deadline := time.After(2 * time.Second)
	for dialer.dialCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected repeated reconnects, got %d dials", dialer.dialCount())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStreamListener_StopEndsReconnectLoop(t *testing.T) {
	dialer := &fakeDialer{next: func(ctx context.Context) (Stream, error) {
		stream := &fakeStream{hashes: make(chan string)}
		close(stream.hashes)
		return stream, nil
	}}

	l := NewStreamListener(dialer, slog.Default())
	l.SetReconnectDelay(time.Millisecond)
	l.Start(listenerAddr)

	// Let it cycle a few times, then stop.
	time.Sleep(20 * time.Millisecond)
	l.Stop()

	if state := l.State(); state != ListenerStateDisconnected {
		t.Errorf("Expected disconnected after Stop, got %s", state)
	}

	settled := dialer.dialCount()
	time.Sleep(20 * time.Millisecond)
	if got := dialer.dialCount(); got > settled+1 {
		t.Errorf("Expected reconnects to cease after Stop, got %d -> %d", settled, got)
	}
}

func TestSSEStream_ParsesMessageFrames(t *testing.T) {
	body := "event: heartbeat\ndata: {}\n\n" +
		"event: message\ndata: {\"tx_hash\":\"abc123\"}\n\n" +
		"event: message\ndata: {\"tx_hash\":\"def456\"}\n\n"

	stream := newTestSSEStream(body)

	for _, want := range []string{"abc123", "def456"} {
		got, err := stream.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}

	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Expected EOF at end of stream, got %v", err)
	}
}
