// Package notify pushes project events (master list saves, vendor emails,
// task creation) to an ntfy topic.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration

	mutex       sync.Mutex
	failures    int
	lastFailure time.Time
	circuitOpen bool

	totalSent    int64
	totalFailed  int64
	totalRetries int64
}

// PushError carries the failure category so callers (and the retry loop)
// can tell transient trouble from configuration problems.
type PushError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *PushError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL, topic string, enabled bool, priority string, maxRetries int, baseDelay, maxDelay time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		topic:      topic,
		enabled:    enabled,
		priority:   priority,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish delivers one message, retrying transient failures with
// exponential backoff. After five consecutive delivery failures the
// circuit opens and publishes are skipped for thirty seconds.
func (c *Client) Publish(ctx context.Context, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &PushError{
			Type:       "circuit_open",
			Underlying: fmt.Errorf("circuit breaker is open"),
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying notification after delay")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			c.incrementRetries()
		}

		err := c.post(ctx, message, attempt+1)
		if err == nil {
			c.recordSuccess()
			return nil
		}
		lastErr = err

		if pushErr, ok := err.(*PushError); ok && !pushErr.IsRetryable() {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Msg("Non-retryable error, giving up")
			c.recordFailure()
			return err
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Notification attempt failed")
	}

	c.recordFailure()
	return &PushError{
		Type:       "max_retries_exceeded",
		Attempt:    c.maxRetries + 1,
		Underlying: lastErr,
	}
}

// PublishAsync fires the publish in the background; failures are logged.
func (c *Client) PublishAsync(ctx context.Context, message string) {
	go func() {
		if err := c.Publish(ctx, message); err != nil {
			log.Warn().Err(err).Msg("Async notification failed")
		}
	}()
}

// NotifyMasterListSaved announces a reconciled save of a project's master
// item list.
func (c *Client) NotifyMasterListSaved(ctx context.Context, project string, updated, appended int, backup string) {
	if !c.enabled {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: master item list saved\n", project))
	sb.WriteString(fmt.Sprintf("%d updated, %d added\n", updated, appended))
	if backup != "" {
		sb.WriteString(fmt.Sprintf("Backup: %s\n", backup))
	} else {
		sb.WriteString("No backup taken\n")
	}
	c.PublishAsync(ctx, strings.TrimSuffix(sb.String(), "\n"))
}

// NotifyVendorEmail announces a price request that went out.
func (c *Client) NotifyVendorEmail(ctx context.Context, vendor, recipient string, items int) {
	if !c.enabled {
		return
	}
	message := fmt.Sprintf("Price request sent to %s (%s)\n%d items", vendor, recipient, items)
	c.PublishAsync(ctx, message)
}

// NotifyTaskCreated announces a new project task.
func (c *Client) NotifyTaskCreated(ctx context.Context, name, url string) {
	if !c.enabled {
		return
	}
	message := fmt.Sprintf("Task created: %s", name)
	if url != "" {
		message += "\n" + url
	}
	c.PublishAsync(ctx, message)
}

func (c *Client) post(ctx context.Context, message string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBufferString(message))
	if err != nil {
		return &PushError{Type: "client", Attempt: attempt, Underlying: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &PushError{Type: "network", Attempt: attempt, Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &PushError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.circuitOpen && time.Since(c.lastFailure) > 30*time.Second {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}
	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	if c.circuitOpen {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= 5 && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func (c *Client) incrementRetries() {
	c.mutex.Lock()
	c.totalRetries++
	c.mutex.Unlock()
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	base := float64(c.baseDelay)
	backoff := base * math.Pow(2, float64(attempt-1))

	// Jitter of +/-25% keeps a burst of retries from synchronizing.
	jitter := rand.Float64()*0.5 - 0.25
	backoff = backoff * (1 + jitter)

	if max := float64(c.maxDelay); backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// Metrics returns delivery counters since startup.
func (c *Client) Metrics() (sent, failed, retries int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed, c.totalRetries
}
