package tonapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/metrics"
)

// reconnectDelay is the fixed backoff between reconnect attempts. Losing
// push connectivity is not fatal, so the retry loop is unbounded.
const reconnectDelay = 3 * time.Second

type ListenerState string

const (
	ListenerStateDisconnected ListenerState = "disconnected"
	ListenerStateConnecting   ListenerState = "connecting"
	ListenerStateConnected    ListenerState = "connected"
)

// Listener is a long-lived push subscription that emits one notification
// per new on-chain transaction hash of the subscribed address.
type Listener interface {
	Start(address domain.Address)
	Stop()
	Transactions() <-chan string
	State() ListenerState
}

// Stream is one open push connection. Next blocks until the next
// transaction hash arrives; it returns io.EOF when the stream ends.
type Stream interface {
	Next() (string, error)
	Close() error
}

// StreamDialer opens a push subscription for an address.
type StreamDialer interface {
	Dial(ctx context.Context, address domain.Address) (Stream, error)
}

// StreamListener runs the reconnect loop on top of a StreamDialer.
type StreamListener struct {
	dialer StreamDialer
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	state   ListenerState
	address domain.Address
	cancel  context.CancelFunc

	transactions chan string
}

func NewStreamListener(dialer StreamDialer, logger *slog.Logger) *StreamListener {
	return &StreamListener{
		dialer:       dialer,
		delay:        reconnectDelay,
		logger:       logger,
		state:        ListenerStateDisconnected,
		transactions: make(chan string, 64),
	}
}

// SetReconnectDelay overrides the backoff between attempts. For tests.
func (l *StreamListener) SetReconnectDelay(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = delay
}

// Start subscribes for the address, tearing down any existing
// subscription first. The loop reconnects until Stop is called.
func (l *StreamListener) Start(address domain.Address) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.address = address
	l.cancel = cancel
	delay := l.delay
	l.mu.Unlock()

	go l.run(ctx, address, delay)
}

// Stop cancels the in-flight connection and clears the target address;
// no further events or reconnects are observed afterwards.
func (l *StreamListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.address = domain.Address{}
	l.state = ListenerStateDisconnected
}

func (l *StreamListener) Transactions() <-chan string {
	return l.transactions
}

func (l *StreamListener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *StreamListener) setState(ctx context.Context, state ListenerState) {
	if ctx.Err() != nil {
		return
	}
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
	l.logger.Debug("Listener state changed", "state", state)
}

func (l *StreamListener) run(ctx context.Context, address domain.Address, delay time.Duration) {
	for {
		l.setState(ctx, ListenerStateConnecting)

		stream, err := l.dialer.Dial(ctx, address)
		if err == nil {
			l.setState(ctx, ListenerStateConnected)
			err = l.consume(ctx, stream)
			_ = stream.Close()
		}

		l.setState(ctx, ListenerStateDisconnected)

		if ctx.Err() != nil {
			return
		}
		if err != nil && err != io.EOF {
			l.logger.Error("Listener stream error", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			metrics.ListenerReconnects.Inc()
		}
	}
}

func (l *StreamListener) consume(ctx context.Context, stream Stream) error {
	for {
		hash, err := stream.Next()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case l.transactions <- hash:
		default:
			// Subscriber is behind; drop. Poll-based sync remains the
			// correctness backstop.
			l.logger.Debug("Dropped transaction notification", "tx_hash", hash)
		}
	}
}

// -----------------------------------------------------------------------------
// SSE dialer
// -----------------------------------------------------------------------------

// SSEDialer opens server-sent-event subscriptions against tonapi.io.
type SSEDialer struct {
	baseURL string
	http    *http.Client
}

func NewSSEDialer(network Network) *SSEDialer {
	// No client timeout: the stream stays open indefinitely.
	return &SSEDialer{baseURL: network.BaseURL(), http: &http.Client{}}
}

func (d *SSEDialer) Dial(ctx context.Context, address domain.Address) (Stream, error) {
	target := fmt.Sprintf("%s/v2/sse/accounts/transactions?accounts=%s",
		d.baseURL, url.QueryEscape(address.Raw()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d from sse endpoint", ErrStatus, resp.StatusCode)
	}

	return &sseStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Next reads frames until a "message" event with a tx_hash payload.
// Heartbeat and unrecognized events are skipped.
func (s *sseStream) Next() (string, error) {
	event := ""
	data := ""

	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case line == "":
			if event == "message" && data != "" {
				var payload struct {
					TxHash string `json:"tx_hash"`
				}
				if err := json.Unmarshal([]byte(data), &payload); err == nil && payload.TxHash != "" {
					return payload.TxHash, nil
				}
			}
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
