package tabular

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Store is the capability surface over a spreadsheet-like document of named
// tables. Row and column coordinates are 1-based throughout; row 1 of every
// table holds header text.
type Store interface {
	// ReadTable returns the whole grid of a table, header row included.
	ReadTable(ctx context.Context, table string) ([][]interface{}, error)
	// WriteRange writes a block of values anchored at (row, col).
	WriteRange(ctx context.Context, table string, row, col int, values [][]interface{}) error
	// AppendRows appends rows after the last populated row of the table.
	AppendRows(ctx context.Context, table string, rows [][]interface{}) error
	// ClearRows clears all cell contents from fromRow down.
	ClearRows(ctx context.Context, table string, fromRow int) error
	// EnsureTable creates the table with the given bold headers if it does
	// not already exist. Existing tables are left untouched.
	EnsureTable(ctx context.Context, table string, headers []string, hidden bool) error
	DeleteTable(ctx context.Context, table string) error
	// CopyTable duplicates src (values and formatting) into a new table
	// named dst, replacing any previous table of that name.
	CopyTable(ctx context.Context, src, dst string, hidden bool) error
	TableExists(ctx context.Context, table string) (bool, error)
	// SetColumnValidation constrains a column range to a fixed value list.
	// A blank cell is always allowed.
	SetColumnValidation(ctx context.Context, table string, col, fromRow, toRow int, allowed []string) error
	BoldCell(ctx context.Context, table string, row, col int) error
	// CopyFormatting copies cell-level formatting (not values) for the
	// top-left rows x cols block from src to dst.
	CopyFormatting(ctx context.Context, src, dst string, rows, cols int) error
	// Title returns the containing document's display name.
	Title(ctx context.Context) (string, error)
}

// HeaderMap builds the name->column-index map from a table's first row.
// Indices are 0-based into the row slices returned by ReadTable. Header
// identity is the trimmed cell text; duplicate headers keep the first index.
func HeaderMap(grid [][]interface{}) map[string]int {
	m := make(map[string]int)
	if len(grid) == 0 {
		return m
	}
	for i := range grid[0] {
		name := strings.TrimSpace(CellString(grid[0], i))
		if name == "" {
			continue
		}
		if _, seen := m[name]; !seen {
			m[name] = i
		}
	}
	return m
}

// RequireHeaders checks that every named header resolved to a column and
// returns an error naming the first one missing.
func RequireHeaders(headers map[string]int, required []string) error {
	for _, h := range required {
		if _, ok := headers[h]; !ok {
			return fmt.Errorf("missing required header %q", h)
		}
	}
	return nil
}

// CellString returns the cell at index as a string, tolerating short rows
// and nil cells.
func CellString(row []interface{}, index int) string {
	if index < 0 || index >= len(row) || row[index] == nil {
		return ""
	}
	return fmt.Sprintf("%v", row[index])
}

// CellFloat parses the cell at index as a float. The second return is false
// for blank, missing, or unparseable cells.
func CellFloat(row []interface{}, index int) (float64, bool) {
	s := strings.TrimSpace(CellString(row, index))
	if s == "" {
		return 0, false
	}
	// Tolerate currency-style formatting left behind by hand edits.
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CellInt parses the cell at index as an integer, accepting float-shaped
// spreadsheet numbers like "2.0".
func CellInt(row []interface{}, index int) (int, bool) {
	f, ok := CellFloat(row, index)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// ColumnLetter converts a 1-based column index to its A1 letter form
// (1 -> A, 27 -> AA).
func ColumnLetter(col int) string {
	var sb strings.Builder
	for col > 0 {
		col--
		sb.WriteByte(byte('A' + col%26))
		col /= 26
	}
	// Reverse the accumulated letters.
	s := sb.String()
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
