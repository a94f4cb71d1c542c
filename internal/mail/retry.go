package mail

import (
	"context"

	"studio_pm/internal/retry"
)

// RetryMailer wraps a Mailer and retries transient send and draft failures
// with exponential backoff.
type RetryMailer struct {
	inner Mailer
	cfg   retry.Config
}

func NewRetryMailer(inner Mailer, cfg retry.Config) *RetryMailer {
	return &RetryMailer{inner: inner, cfg: cfg}
}

func (m *RetryMailer) Send(ctx context.Context, msg Message) error {
	_, err := retry.WithRetry(ctx, m.cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.inner.Send(ctx, msg)
	})
	return err
}

func (m *RetryMailer) CreateDraft(ctx context.Context, msg Message) (string, error) {
	return retry.WithRetry(ctx, m.cfg, func(ctx context.Context) (string, error) {
		return m.inner.CreateDraft(ctx, msg)
	})
}
