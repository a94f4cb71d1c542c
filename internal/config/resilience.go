package config

import (
	"time"

	"studio_pm/internal/retry"
)

// ResilienceConfig bundles per-concern retry policies. The task API client
// deliberately has no bundle: its calls are single-shot.
type ResilienceConfig struct {
	SheetRead  retry.Config
	SheetWrite retry.Config
	MailSend   retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
	SheetWrite: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    30 * time.Second,
	},
	MailSend: retry.Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   20 * time.Second,
		Timeout:    30 * time.Second,
	},
}

var InfiniteResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		BaseDelay:     2 * time.Second,
		MaxDelay:      30 * time.Second,
		Timeout:       15 * time.Second,
		InfiniteRetry: true,
	},
	SheetWrite: retry.Config{
		BaseDelay:     2 * time.Second,
		MaxDelay:      30 * time.Second,
		Timeout:       30 * time.Second,
		InfiniteRetry: true,
	},
	MailSend: retry.Config{
		BaseDelay:     2 * time.Second,
		MaxDelay:      20 * time.Second,
		Timeout:       30 * time.Second,
		InfiniteRetry: true,
	},
}
