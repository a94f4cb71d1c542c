package tabular

import (
	"context"
	"fmt"
	"sync"
)

// ValidationCall records one SetColumnValidation invocation on a MemStore.
type ValidationCall struct {
	Table   string
	Col     int
	FromRow int
	ToRow   int
	Allowed []string
}

// BackupCall records one CopyTable invocation on a MemStore.
type BackupCall struct {
	Src    string
	Dst    string
	Hidden bool
	// Snapshot holds the source grid as it existed at copy time.
	Snapshot [][]interface{}
}

type memTable struct {
	rows   [][]interface{}
	hidden bool
}

// MemStore is an in-memory Store used by tests. It records validation and
// backup calls so behavior around them can be asserted directly.
type MemStore struct {
	mu          sync.Mutex
	tables      map[string]*memTable
	title       string
	Validations []ValidationCall
	Backups     []BackupCall
	// FailCopy makes CopyTable return an error, for exercising the
	// backup-is-best-effort path.
	FailCopy bool
}

func NewMemStore(title string) *MemStore {
	return &MemStore{
		tables: make(map[string]*memTable),
		title:  title,
	}
}

// Seed installs a table with the given grid, replacing any previous content.
func (s *MemStore) Seed(table string, rows [][]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = &memTable{rows: cloneGrid(rows)}
}

// Rows returns a copy of the current grid of a table.
func (s *MemStore) Rows(table string) [][]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	return cloneGrid(t.rows)
}

// Hidden reports whether a table exists and is hidden.
func (s *MemStore) Hidden(table string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	return ok && t.hidden
}

func (s *MemStore) ReadTable(ctx context.Context, table string) ([][]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cloneGrid(t.rows), nil
}

func (s *MemStore) WriteRange(ctx context.Context, table string, row, col int, values [][]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("table %s not found", table)
	}
	for i, vrow := range values {
		r := row - 1 + i
		for len(t.rows) <= r {
			t.rows = append(t.rows, nil)
		}
		for j, v := range vrow {
			c := col - 1 + j
			for len(t.rows[r]) <= c {
				t.rows[r] = append(t.rows[r], nil)
			}
			t.rows[r][c] = v
		}
	}
	return nil
}

func (s *MemStore) AppendRows(ctx context.Context, table string, rows [][]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("table %s not found", table)
	}
	t.rows = append(t.rows, cloneGrid(rows)...)
	return nil
}

func (s *MemStore) ClearRows(ctx context.Context, table string, fromRow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("table %s not found", table)
	}
	if fromRow-1 < len(t.rows) {
		t.rows = t.rows[:fromRow-1]
	}
	return nil
}

func (s *MemStore) EnsureTable(ctx context.Context, table string, headers []string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; ok {
		return nil
	}
	t := &memTable{hidden: hidden}
	if len(headers) > 0 {
		row := make([]interface{}, len(headers))
		for i, h := range headers {
			row[i] = h
		}
		t.rows = [][]interface{}{row}
	}
	s.tables[table] = t
	return nil
}

func (s *MemStore) DeleteTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("table %s not found", table)
	}
	delete(s.tables, table)
	return nil
}

func (s *MemStore) CopyTable(ctx context.Context, src, dst string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCopy {
		return fmt.Errorf("copy of %s refused", src)
	}
	t, ok := s.tables[src]
	if !ok {
		return fmt.Errorf("table %s not found", src)
	}
	snapshot := cloneGrid(t.rows)
	s.tables[dst] = &memTable{rows: cloneGrid(t.rows), hidden: hidden}
	s.Backups = append(s.Backups, BackupCall{Src: src, Dst: dst, Hidden: hidden, Snapshot: snapshot})
	return nil
}

func (s *MemStore) TableExists(ctx context.Context, table string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[table]
	return ok, nil
}

func (s *MemStore) SetColumnValidation(ctx context.Context, table string, col, fromRow, toRow int, allowed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("table %s not found", table)
	}
	s.Validations = append(s.Validations, ValidationCall{
		Table:   table,
		Col:     col,
		FromRow: fromRow,
		ToRow:   toRow,
		Allowed: append([]string(nil), allowed...),
	})
	return nil
}

func (s *MemStore) BoldCell(ctx context.Context, table string, row, col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("table %s not found", table)
	}
	return nil
}

func (s *MemStore) CopyFormatting(ctx context.Context, src, dst string, rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[src]; !ok {
		return fmt.Errorf("table %s not found", src)
	}
	if _, ok := s.tables[dst]; !ok {
		return fmt.Errorf("table %s not found", dst)
	}
	return nil
}

func (s *MemStore) Title(ctx context.Context) (string, error) {
	return s.title, nil
}

func cloneGrid(rows [][]interface{}) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = append([]interface{}(nil), r...)
	}
	return out
}
