package tonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vietddude/tonkit/internal/core/domain"
)

var (
	// ErrDecode is returned when a response body cannot be parsed.
	ErrDecode = errors.New("failed to decode response")

	// ErrStatus is returned on a non-2xx response.
	ErrStatus = errors.New("unexpected response status")
)

// Network selects the API environment.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// BaseURL returns the REST endpoint for the network.
func (n Network) BaseURL() string {
	if n == NetworkTestnet {
		return "https://testnet.tonapi.io"
	}
	return "https://tonapi.io"
}

// Client is the chain API consumed by the sync and send components.
// GetEvents returns events ordered by descending lt; beforeLt is an
// exclusive upper bound, startTimestamp an inclusive lower bound.
type Client interface {
	GetAccount(ctx context.Context, address domain.Address) (*domain.Account, error)
	GetJettonBalances(ctx context.Context, address domain.Address) ([]domain.JettonBalance, error)
	GetJettonInfo(ctx context.Context, address domain.Address) (*domain.Jetton, error)
	GetEvents(ctx context.Context, address domain.Address, beforeLt, startTimestamp *int64, limit int) ([]domain.Event, error)
	GetSeqno(ctx context.Context, address domain.Address) (uint64, error)
	GetRawTime(ctx context.Context) (int64, error)
	Emulate(ctx context.Context, boc string) (*domain.FeeEstimate, error)
	Send(ctx context.Context, boc string) error
}

// HTTPClient implements Client against the tonapi.io REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(network Network) *HTTPClient {
	return &HTTPClient{
		baseURL: network.BaseURL(),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) GetAccount(ctx context.Context, address domain.Address) (*domain.Account, error) {
	var resp apiAccount
	path := fmt.Sprintf("/v2/accounts/%s", url.PathEscape(address.Raw()))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain()
}

func (c *HTTPClient) GetJettonBalances(ctx context.Context, address domain.Address) ([]domain.JettonBalance, error) {
	var resp apiJettonBalances
	path := fmt.Sprintf("/v2/accounts/%s/jettons", url.PathEscape(address.Raw()))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	balances := make([]domain.JettonBalance, 0, len(resp.Balances))
	for _, balance := range resp.Balances {
		converted, err := balance.toDomain()
		if err != nil {
			return nil, err
		}
		balances = append(balances, converted)
	}
	return balances, nil
}

func (c *HTTPClient) GetJettonInfo(ctx context.Context, address domain.Address) (*domain.Jetton, error) {
	var resp apiJettonInfo
	path := fmt.Sprintf("/v2/jettons/%s", url.PathEscape(address.Raw()))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain()
}

func (c *HTTPClient) GetEvents(ctx context.Context, address domain.Address, beforeLt, startTimestamp *int64, limit int) ([]domain.Event, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if beforeLt != nil {
		query.Set("before_lt", strconv.FormatInt(*beforeLt, 10))
	}
	if startTimestamp != nil {
		query.Set("start_date", strconv.FormatInt(*startTimestamp, 10))
	}

	var resp apiEvents
	path := fmt.Sprintf("/v2/accounts/%s/events", url.PathEscape(address.Raw()))
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(resp.Events))
	for _, event := range resp.Events {
		converted, err := event.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, converted)
	}
	return events, nil
}

func (c *HTTPClient) GetSeqno(ctx context.Context, address domain.Address) (uint64, error) {
	var resp struct {
		Seqno uint64 `json:"seqno"`
	}
	path := fmt.Sprintf("/v2/wallet/%s/seqno", url.PathEscape(address.Raw()))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Seqno, nil
}

func (c *HTTPClient) GetRawTime(ctx context.Context) (int64, error) {
	var resp struct {
		Time int64 `json:"time"`
	}
	if err := c.get(ctx, "/v2/rawtime", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Time, nil
}

func (c *HTTPClient) Emulate(ctx context.Context, boc string) (*domain.FeeEstimate, error) {
	var resp apiEmulateResult
	if err := c.post(ctx, "/v2/wallet/emulate", map[string]string{"boc": boc}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain()
}

func (c *HTTPClient) Send(ctx context.Context, boc string) error {
	return c.post(ctx, "/v2/blockchain/message", map[string]string{"boc": boc}, nil)
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %d from %s: %s", ErrStatus, resp.StatusCode, req.URL.Path, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, req.URL.Path, err)
	}
	return nil
}
