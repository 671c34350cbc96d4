// internal/adapters/revenue/client.go
package revenue

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"hotel_rms/internal/adapters/observability"
	"hotel_rms/internal/domain"
)

type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
	cb    *gobreaker.CircuitBreaker
}

func New(base, token string, rps int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("backend token is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		cb:    newBreaker("revenue-backend"),
	}, nil
}

// newBreaker trips after three consecutive transport/5xx failures.
// Not-found and denied answers are the backend working normally.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, domain.ErrForbidden) ||
				errors.Is(err, domain.ErrUnauthorized) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// ---- Public API (tries current endpoints first, falls back to legacy variants) ----

func (c *Client) GetProperty(ctx context.Context, id string) (map[string]any, error) {
	id = url.PathEscape(id)
	candidates := []string{
		fmt.Sprintf("%s/properties/%s", c.base, id), // preferred
		fmt.Sprintf("%s/property/%s", c.base, id),   // legacy
	}
	var out map[string]any
	return out, c.getFirst(ctx, "property", candidates, &out)
}

func (c *Client) ListMyProperties(ctx context.Context) ([]map[string]any, error) {
	candidates := []string{
		c.base + "/properties/mine",
		c.base + "/users/me/properties",
	}
	var out envelope
	if err := c.getFirst(ctx, "my_properties", candidates, &out); err != nil {
		return nil, err
	}
	return out.items, nil
}

// GetPriceHistory returns the raw rows of one series for a 0-indexed month.
func (c *Client) GetPriceHistory(ctx context.Context, propertyID string, kind domain.HistoryKind, year, month int) ([]map[string]any, error) {
	var path string
	switch kind {
	case domain.HistoryRegular:
		path = "price-history"
	case domain.HistoryMSP:
		path = "msp"
	case domain.HistoryCompetitorAverage:
		path = "competitors/average-prices"
	default:
		return nil, fmt.Errorf("unknown history kind %q", kind)
	}
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month+1))
	u := fmt.Sprintf("%s/properties/%s/%s?%s", c.base, url.PathEscape(propertyID), path, q.Encode())

	var out envelope
	if err := c.getFirst(ctx, "history_"+string(kind), []string{u}, &out); err != nil {
		return nil, err
	}
	return out.items, nil
}

// ---- Internals ----

// envelope accepts either a bare JSON array or {"data":[...]} / {"results":[...]}.
type envelope struct{ items []map[string]any }

func (e *envelope) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &e.items); err == nil {
		return nil
	}
	var wrapped struct {
		Data    []map[string]any `json:"data"`
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	e.items = wrapped.Data
	if e.items == nil {
		e.items = wrapped.Results
	}
	return nil
}

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, c.get(ctx, endpoint, u, out)
		})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		return nil
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	status := 0
	defer func() { observability.ObserveExternal("revenue", endpoint, status, time.Since(start)) }()

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotel-rms/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		status = resp.StatusCode

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return &domain.StatusError{Endpoint: endpoint, Code: resp.StatusCode}

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &domain.StatusError{Endpoint: endpoint, Code: resp.StatusCode}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &domain.StatusError{Endpoint: endpoint, Code: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff: 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
