package tabular

import (
	"context"

	"studio_pm/internal/retry"
)

// RetryStore wraps a Store and retries transient failures with exponential
// backoff. Reads and writes carry separate configs since writes tolerate
// longer timeouts.
type RetryStore struct {
	inner    Store
	readCfg  retry.Config
	writeCfg retry.Config
}

func NewRetryStore(inner Store, readCfg, writeCfg retry.Config) *RetryStore {
	return &RetryStore{inner: inner, readCfg: readCfg, writeCfg: writeCfg}
}

func (s *RetryStore) Title(ctx context.Context) (string, error) {
	return retry.WithRetry(ctx, s.readCfg, func(ctx context.Context) (string, error) {
		return s.inner.Title(ctx)
	})
}

func (s *RetryStore) ReadTable(ctx context.Context, table string) ([][]interface{}, error) {
	return retry.WithRetry(ctx, s.readCfg, func(ctx context.Context) ([][]interface{}, error) {
		return s.inner.ReadTable(ctx, table)
	})
}

func (s *RetryStore) TableExists(ctx context.Context, table string) (bool, error) {
	return retry.WithRetry(ctx, s.readCfg, func(ctx context.Context) (bool, error) {
		return s.inner.TableExists(ctx, table)
	})
}

func (s *RetryStore) WriteRange(ctx context.Context, table string, row, col int, values [][]interface{}) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.WriteRange(ctx, table, row, col, values)
	})
}

func (s *RetryStore) AppendRows(ctx context.Context, table string, rows [][]interface{}) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.AppendRows(ctx, table, rows)
	})
}

func (s *RetryStore) ClearRows(ctx context.Context, table string, fromRow int) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.ClearRows(ctx, table, fromRow)
	})
}

func (s *RetryStore) EnsureTable(ctx context.Context, table string, headers []string, hidden bool) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.EnsureTable(ctx, table, headers, hidden)
	})
}

func (s *RetryStore) DeleteTable(ctx context.Context, table string) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.DeleteTable(ctx, table)
	})
}

func (s *RetryStore) CopyTable(ctx context.Context, from, to string, hidden bool) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.CopyTable(ctx, from, to, hidden)
	})
}

func (s *RetryStore) SetColumnValidation(ctx context.Context, table string, col, fromRow, toRow int, allowed []string) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.SetColumnValidation(ctx, table, col, fromRow, toRow, allowed)
	})
}

func (s *RetryStore) BoldCell(ctx context.Context, table string, row, col int) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.BoldCell(ctx, table, row, col)
	})
}

func (s *RetryStore) CopyFormatting(ctx context.Context, fromTable, toTable string, rows, cols int) error {
	return s.write(ctx, func(ctx context.Context) error {
		return s.inner.CopyFormatting(ctx, fromTable, toTable, rows, cols)
	})
}

func (s *RetryStore) write(ctx context.Context, op func(context.Context) error) error {
	_, err := retry.WithRetry(ctx, s.writeCfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
