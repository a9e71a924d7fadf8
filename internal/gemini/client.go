// Package gemini wraps a single document-analysis inference call with the
// resilience the service needs in practice: request validation, a shared
// inter-request delay, per-attempt timeouts, bounded retries with exponential
// backoff, error classification, progress notifications, and a health view.
package gemini

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"docuform/internal/config"
)

const maxBackoff = 30 * time.Second

// Completion is the raw outcome of one successful inference call.
type Completion struct {
	Text       string
	TokenCount int32
	Attempts   int
}

// Health is the client's coarse operational state.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// transport performs the actual network call. It exists so tests can inject
// deterministic fakes; the production implementation lives in transport.go.
type transport interface {
	generateContent(ctx context.Context, req AnalyzeRequest) (text string, tokens int32, err error)
}

// Client issues analysis requests. Independent requests may call Complete
// concurrently; the only shared mutable state is the rate-limit slot and the
// health counters, both mutex-guarded.
type Client struct {
	cfg config.ClientConfig
	tr  transport
	log *zap.Logger

	mu              sync.Mutex
	nextSlot        time.Time
	consecutiveErrs int
	initialized     bool
}

// New builds a client backed by the Gemini API.
func New(ctx context.Context, cfg config.ClientConfig, log *zap.Logger) (*Client, error) {
	tr, err := newGenaiTransport(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create inference transport: %w", err)
	}
	return newClient(cfg, tr, log), nil
}

func newClient(cfg config.ClientConfig, tr transport, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Client{cfg: cfg, tr: tr, log: log, initialized: true}
}

// Complete runs one request through validation, rate limiting, and the retry
// loop, returning the raw completion text. Errors are always *AnalysisError.
func (c *Client) Complete(ctx context.Context, req AnalyzeRequest, sink Sink) (*Completion, error) {
	n := newNotifier(sink)
	defer n.close()

	if verr := req.Validate(c.cfg.MaxPayloadBytes); verr != nil {
		n.emit(StageFailed, 0, c.cfg.MaxRetries, verr.Message)
		c.recordFailure()
		return nil, verr
	}
	n.emit(StageValidated, 0, c.cfg.MaxRetries, "request validated")

	if err := c.waitRateLimit(ctx); err != nil {
		return nil, Classify(err)
	}
	n.emit(StageRateLimited, 0, c.cfg.MaxRetries, "rate limit cleared")

	var lastErr *AnalysisError
	attempts := 0
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attempts = attempt
		n.emit(StageAttempt, attempt, c.cfg.MaxRetries,
			fmt.Sprintf("attempt %d/%d", attempt, c.cfg.MaxRetries))

		text, tokens, err := c.attempt(ctx, req)
		if err == nil {
			c.recordSuccess()
			n.emit(StageSucceeded, attempt, c.cfg.MaxRetries, "analysis succeeded")
			return &Completion{Text: text, TokenCount: tokens, Attempts: attempt}, nil
		}

		lastErr = Classify(err)
		c.recordFailure()
		c.log.Warn("inference attempt failed",
			zap.Int("attempt", attempt),
			zap.String("code", string(lastErr.Code)),
			zap.Bool("retryable", lastErr.Retryable),
			zap.Error(err))

		if !lastErr.Retryable || attempt == c.cfg.MaxRetries {
			break
		}

		delay := c.backoff(attempt)
		n.emit(StageWaitingRetry, attempt, c.cfg.MaxRetries,
			fmt.Sprintf("waiting %s before retry", delay.Round(time.Millisecond)))
		select {
		case <-ctx.Done():
			return nil, Classify(ctx.Err())
		case <-time.After(delay):
		}
	}

	n.emit(StageFailed, attempts, c.cfg.MaxRetries, lastErr.Message)
	return nil, lastErr
}

// attempt wraps one transport call in the configured timeout.
func (c *Client) attempt(ctx context.Context, req AnalyzeRequest) (string, int32, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMS)*time.Millisecond)
	defer cancel()
	return c.tr.generateContent(attemptCtx, req)
}

// waitRateLimit blocks until this request's reserved slot. Slots are handed
// out under the mutex so concurrent callers still observe the configured gap
// between consecutive requests.
func (c *Client) waitRateLimit(ctx context.Context) error {
	delay := time.Duration(c.cfg.RateLimitMS) * time.Millisecond

	c.mu.Lock()
	now := time.Now()
	slot := c.nextSlot
	if slot.Before(now) {
		slot = now
	}
	c.nextSlot = slot.Add(delay)
	c.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// backoff computes min(base*2^(attempt-1) + jitter, 30s) with jitter drawn
// from [0, 1000ms). The shift is guarded so deep retry counts hit the cap
// instead of overflowing the duration.
func (c *Client) backoff(attempt int) time.Duration {
	base := time.Duration(c.cfg.RetryDelayMS) * time.Millisecond
	shift := attempt - 1
	if shift < 0 || shift > 62 || base >= maxBackoff>>shift {
		return maxBackoff
	}
	d := base<<shift + rand.N(time.Second)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.consecutiveErrs = 0
	c.mu.Unlock()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.consecutiveErrs++
	c.mu.Unlock()
}

// Health reports the client's operational state: unhealthy when
// uninitialized or after three consecutive errors, degraded after one.
func (c *Client) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.initialized || c.consecutiveErrs >= 3:
		return HealthUnhealthy
	case c.consecutiveErrs >= 1:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
