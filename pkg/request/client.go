// Package request is a small HTTP client for content-store fetches. Requests
// to the same host are serialized through a queue, retried with exponential
// backoff and throttled per host after repeated failures.
package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"tourguide/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("TourGuide/%s (+geofence narration)", version.Version)

// ErrMaxRetries is returned when every attempt hit a retryable failure.
var ErrMaxRetries = errors.New("max retries exceeded")

// ErrClosed is returned for requests issued after Close.
var ErrClosed = errors.New("request client closed")

// StatusError is a non-retryable HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.Code)
	}
	return fmt.Sprintf("api error: status %d - %s", e.Code, e.Body)
}

// Options configures a Client.
type Options struct {
	Retries   int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
	UserAgent string
}

// Client handles HTTP requests with per-host queuing and backoff.
type Client struct {
	httpClient *http.Client
	opts       Options
	backoff    *ProviderBackoff

	mu     sync.Mutex // protects queues and closed
	queues map[string]chan job
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	req      *http.Request
	headers  map[string]string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client.
func New(opts Options) *Client {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		backoff:    NewProviderBackoff(opts.BaseDelay, opts.MaxDelay),
		queues:     make(map[string]chan job),
	}
}

// Get performs a GET request through the host's queue.
func (c *Client) Get(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	if err := c.dispatch(parsedURL.Host, job{req: req, headers: headers, respChan: respChan}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

// Close stops the queue workers. Queued jobs are still answered.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, q := range c.queues {
		close(q)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 16)
		c.queues[provider] = q
		c.wg.Add(1)
		go c.worker(provider, q)
	}

	// Blocks while the queue is full, throttling the caller.
	select {
	case q <- j:
		return nil
	case <-j.req.Context().Done():
		return j.req.Context().Err()
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	defer c.wg.Done()
	for j := range q {
		ctx := j.req.Context()
		if err := c.backoff.Wait(ctx, provider); err != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", provider, "error", err)
			j.respChan <- jobResult{err: err}
			continue
		}

		uaSet := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaSet = true
			}
		}
		if !uaSet {
			j.req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		body, err := c.executeWithBackoff(j.req)
		var statusErr *StatusError
		switch {
		case err == nil:
			c.backoff.RecordSuccess(provider)
		case errors.As(err, &statusErr), ctx.Err() != nil:
			// Client-side errors and cancellations say nothing about host health.
		default:
			c.backoff.RecordFailure(provider)
		}

		j.respChan <- jobResult{body: body, err: err}
	}
}

// executeWithBackoff attempts the request, retrying network errors, 429 and 5xx.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.Retries; attempt++ {
		if attempt > 0 {
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.opts.BaseDelay
			if sleepDur > c.opts.MaxDelay {
				sleepDur = c.opts.MaxDelay
			}
			timer := time.NewTimer(sleepDur)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			}
		}

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			slog.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Body: string(snippet)}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
}
