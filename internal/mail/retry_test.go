package mail

import (
	"context"
	"fmt"
	"testing"
	"time"

	"studio_pm/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyMailer fails the first failures calls of each operation, then
// delegates to a Recorder.
type flakyMailer struct {
	Recorder
	failures int
	sends    int
	drafts   int
}

func (m *flakyMailer) Send(ctx context.Context, msg Message) error {
	m.sends++
	if m.sends <= m.failures {
		return fmt.Errorf("transient send failure %d", m.sends)
	}
	return m.Recorder.Send(ctx, msg)
}

func (m *flakyMailer) CreateDraft(ctx context.Context, msg Message) (string, error) {
	m.drafts++
	if m.drafts <= m.failures {
		return "", fmt.Errorf("transient draft failure %d", m.drafts)
	}
	return m.Recorder.CreateDraft(ctx, msg)
}

func fastMailRetry(maxRetries int) retry.Config {
	return retry.Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetryMailerRetriesSend(t *testing.T) {
	flaky := &flakyMailer{failures: 2}
	mailer := NewRetryMailer(flaky, fastMailRetry(3))

	err := mailer.Send(context.Background(), Message{To: "orders@hudsonlighting.com", Subject: "Price Request"})
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.sends)
	require.Len(t, flaky.Sent, 1)
	assert.Equal(t, "orders@hudsonlighting.com", flaky.Sent[0].To)
}

func TestRetryMailerRetriesDraftAndReturnsID(t *testing.T) {
	flaky := &flakyMailer{failures: 1}
	flaky.DraftID = "draft-42"
	mailer := NewRetryMailer(flaky, fastMailRetry(2))

	id, err := mailer.CreateDraft(context.Background(), Message{To: "orders@hudsonlighting.com"})
	require.NoError(t, err)
	assert.Equal(t, "draft-42", id)
	assert.Equal(t, 2, flaky.drafts)
}

func TestRetryMailerGivesUp(t *testing.T) {
	flaky := &flakyMailer{failures: 10}
	mailer := NewRetryMailer(flaky, fastMailRetry(1))

	err := mailer.Send(context.Background(), Message{To: "orders@hudsonlighting.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Empty(t, flaky.Sent)
}
