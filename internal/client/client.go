// Package client talks to a ledger node over HTTP. It signs transactions
// with a local key and asks the node for the next sequence number before
// each submission.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Alecsis/py-chain/internal/observability"
	"github.com/Alecsis/py-chain/internal/sign"
	"github.com/Alecsis/py-chain/internal/txpipe"
)

const DefaultTimeout = 5 * time.Second

var (
	ErrNoKey       = errors.New("client: no signing key")
	ErrBadResponse = errors.New("client: unreadable node response")
)

type Client struct {
	baseURL string
	key     *sign.PrivateKey
	http    *http.Client
}

// New returns a client for the node at baseURL. key may be nil for a
// query-only client.
func New(baseURL string, key *sign.PrivateKey, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: normalizeBaseURL(baseURL),
		key:     key,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Address() string {
	if c.key == nil {
		return ""
	}
	return c.key.Address()
}

func (c *Client) Faucet(ctx context.Context, amount int64) (txpipe.Result, error) {
	return c.Submit(ctx, txpipe.Faucet{Amount: amount})
}

func (c *Client) Transfer(ctx context.Context, to string, amount int64) (txpipe.Result, error) {
	return c.Submit(ctx, txpipe.Transfer{To: to, Amount: amount})
}

func (c *Client) Burn(ctx context.Context, amount int64) (txpipe.Result, error) {
	return c.Submit(ctx, txpipe.Burn{Amount: amount})
}

// Submit signs req at the signer's next sequence and posts it. When another
// submission from the same key wins the race, it re-signs once at the
// sequence the node reports.
func (c *Client) Submit(ctx context.Context, req txpipe.Request) (txpipe.Result, error) {
	if c.key == nil {
		return txpipe.Result{}, ErrNoKey
	}
	seq, err := c.Sequence(ctx, c.key.Address())
	if err != nil {
		return txpipe.Result{}, err
	}

	res, err := c.submitAt(ctx, seq, req)
	if err != nil {
		return res, err
	}
	if res.Code == txpipe.CodeBadSequenceNumber && res.Expected != nil && *res.Expected != seq {
		log.Debug().
			Uint64("sequence", seq).
			Uint64("expected", *res.Expected).
			Msg("client: resubmitting at node sequence")
		return c.submitAt(ctx, *res.Expected, req)
	}
	return res, nil
}

func (c *Client) submitAt(ctx context.Context, seq uint64, req txpipe.Request) (txpipe.Result, error) {
	env, err := txpipe.NewEnvelope(c.key, seq, req)
	if err != nil {
		return txpipe.Result{}, fmt.Errorf("client: build envelope: %w", err)
	}
	return c.post(ctx, "/tx", env)
}

func (c *Client) Query(ctx context.Context, req txpipe.Request) (txpipe.Result, error) {
	return c.post(ctx, "/query", req)
}

// Balance returns nil when the node does not know the address.
func (c *Client) Balance(ctx context.Context, address string) (*int64, error) {
	res, err := c.Query(ctx, txpipe.BalanceQuery{Address: address})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("client: balance query: %s", res.Error)
	}
	return res.Balance, nil
}

func (c *Client) Sequence(ctx context.Context, address string) (uint64, error) {
	res, err := c.Query(ctx, txpipe.SequenceQuery{Address: address})
	if err != nil {
		return 0, err
	}
	if !res.Success || res.Sequence == nil {
		return 0, fmt.Errorf("client: sequence query: %s", res.Error)
	}
	return *res.Sequence, nil
}

func (c *Client) Supply(ctx context.Context) (txpipe.Result, error) {
	return c.Query(ctx, txpipe.SupplyQuery{})
}

func (c *Client) post(ctx context.Context, path string, body any) (txpipe.Result, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return txpipe.Result{}, fmt.Errorf("client: encode %s body: %w", path, err)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return txpipe.Result{}, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(observability.RequestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Str("url", url).Err(err).Msg("client: request failed")
		return txpipe.Result{}, fmt.Errorf("client: %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return txpipe.Result{}, fmt.Errorf("client: read %s response: %w", path, err)
	}
	var res txpipe.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return txpipe.Result{}, fmt.Errorf("%w: status %d: %v", ErrBadResponse, resp.StatusCode, err)
	}
	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Bool("success", res.Success).
		Str("code", string(res.Code)).
		Msg("client: response")
	return res, nil
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "http://localhost:9300"
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "http://" + raw
	}
	return raw
}
