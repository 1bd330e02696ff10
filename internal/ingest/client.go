// Package ingest pulls raw records from the marketing platforms: social
// posts, ad-campaign events, storefront sales and web traffic. Every adapter
// degrades to an empty set when its credentials are absent; a platform being
// disconnected must never take the whole feed down.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

const maxAttempts = 3

// Client wraps an HTTPClient with a shared rate limit and retry. All
// adapters go through it, so one aggressive platform pull cannot starve the
// rest or trip the vendors' own limits.
type Client struct {
	httpc HTTPClient
	lim   *rate.Limiter
	log   *slog.Logger
}

func NewClient(httpc HTTPClient, rps float64, log *slog.Logger) *Client {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{httpc: httpc, lim: rate.NewLimiter(rate.Limit(rps), burst), log: log}
}

func (c *Client) getJSON(ctx context.Context, url string, hdr map[string]string, dst any) error {
	return c.do(ctx, http.MethodGet, url, hdr, nil, dst)
}

func (c *Client) postJSON(ctx context.Context, url string, hdr map[string]string, body, dst any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, hdr, raw, dst)
}

// do issues the request up to maxAttempts times with exponential backoff and
// jitter. Transport errors, 429 and 5xx retry; other statuses fail
// immediately since repeating them changes nothing.
func (c *Client) do(ctx context.Context, method, url string, hdr map[string]string, body []byte, dst any) error {
	if url == "" {
		return errors.New("empty url")
	}
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if err := c.lim.Wait(ctx); err != nil {
			return err
		}
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range hdr {
			req.Header.Set(k, v)
		}

		resp, err := c.httpc.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			if dst == nil {
				io.Copy(io.Discard, resp.Body)
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(dst)
		}
		if err != nil {
			lastErr = err
		} else {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			lastErr = fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
			if !retryableStatus(resp.StatusCode) {
				return lastErr
			}
		}
		if i < maxAttempts-1 {
			if err := sleepCtx(ctx, backoff(i)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * 200 * time.Millisecond
	return d + time.Duration(rand.Intn(150))*time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
