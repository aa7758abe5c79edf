// Package storeclient is the HTTP client the dashboard uses to reach the
// record store.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"brandenbed/internal/adapters/observability"
	"brandenbed/internal/domain"
)

var _ domain.StoreClient = (*Client)(nil)

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter // nil = unlimited
}

// New builds a client for the store at base. rps <= 0 disables client-side
// rate limiting.
func New(base string, timeout time.Duration, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("store base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("store base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
	if rps > 0 {
		c.rl = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return c, nil
}

// ---- Public API ----

func (c *Client) List(ctx context.Context, coll string, out any) error {
	return c.do(ctx, http.MethodGet, "/"+url.PathEscape(coll), nil, out)
}

func (c *Client) Get(ctx context.Context, coll, id string, out any) error {
	return c.do(ctx, http.MethodGet, itemPath(coll, id), nil, out)
}

func (c *Client) Create(ctx context.Context, coll string, in, out any) error {
	return c.do(ctx, http.MethodPost, "/"+url.PathEscape(coll), in, out)
}

func (c *Client) Patch(ctx context.Context, coll, id string, patch, out any) error {
	return c.do(ctx, http.MethodPatch, itemPath(coll, id), patch, out)
}

func (c *Client) Replace(ctx context.Context, coll, id string, in, out any) error {
	return c.do(ctx, http.MethodPut, itemPath(coll, id), in, out)
}

func (c *Client) Delete(ctx context.Context, coll, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(coll, id), nil, nil)
}

// Snapshot fetches the whole database.
func (c *Client) Snapshot(ctx context.Context) (map[string][]domain.Record, error) {
	var out map[string][]domain.Record
	return out, c.do(ctx, http.MethodGet, "/db", nil, &out)
}

// ---- Internals ----

func itemPath(coll, id string) string {
	return "/" + url.PathEscape(coll) + "/" + url.PathEscape(id)
}

// do performs one request: no retries, the caller decides what to do with a
// failure. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "brandenbed-dashboard/1.0")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	endpoint := method + " " + endpointOf(path)
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("store", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("store", endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrConflict)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%s %s: %w: %s", method, path, domain.ErrInvalid, detail(resp.Body))
	default:
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, detail(resp.Body))
	}
}

// endpointOf collapses ids so metrics stay low-cardinality.
func endpointOf(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	if len(parts) == 2 {
		return "/" + parts[0] + "/{id}"
	}
	return "/" + parts[0]
}

// detail reads a small error body for diagnostics.
func detail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var p struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if json.Unmarshal(b, &p) == nil && (p.Detail != "" || p.Title != "") {
		if p.Detail != "" {
			return p.Detail
		}
		return p.Title
	}
	return strings.TrimSpace(string(b))
}
