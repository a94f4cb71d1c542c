// Package splitter partitions the Master Item List by its SPEC/FFE flag
// into rebuilt target tables, driven by a declarative column mapping.
package splitter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"studio_pm/internal/tabular"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Column describes how one target column is filled. Exactly one of Source,
// Blank, or Product applies: Source copies a master column verbatim, Blank
// leaves the column empty for hand entry, and Product writes a formula
// multiplying two of the target's own columns, addressed by the target
// table's column letters.
type Column struct {
	Target  string   `yaml:"target"`
	Source  string   `yaml:"source,omitempty"`
	Blank   bool     `yaml:"blank,omitempty"`
	Product []string `yaml:"product,omitempty"`
}

// Target is one rebuilt output table and the flag value that routes master
// rows into it.
type Target struct {
	Table   string   `yaml:"table"`
	Flag    string   `yaml:"flag"`
	Columns []Column `yaml:"columns"`
}

// PricingColumn maps one source column of the rebuilt FFE table onto a
// named column of the Pricing table.
type PricingColumn struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Pricing describes the post-split feed of FFE rows into the Pricing table.
type Pricing struct {
	Table   string          `yaml:"table"`
	Source  string          `yaml:"source"`
	Columns []PricingColumn `yaml:"columns"`
}

// Config is the whole split, loadable from YAML.
type Config struct {
	Master     string   `yaml:"master"`
	FlagColumn string   `yaml:"flagColumn"`
	Targets    []Target `yaml:"targets"`
	Pricing    *Pricing `yaml:"pricing,omitempty"`
}

const (
	defaultMaster     = "Master Item List"
	defaultFlagColumn = "SPEC/FFE"
	ffeTableName      = "FFE"
	specTableName     = "SPEC"
	pricingTableName  = "Pricing"
)

// DefaultConfig returns the compiled-in split: FFE keeps the master layout
// minus the flag column, SPEC is rebuilt into the allowances layout with
// blank hand-entry columns and recomputed total formulas.
func DefaultConfig() Config {
	return Config{
		Master:     defaultMaster,
		FlagColumn: defaultFlagColumn,
		Targets: []Target{
			{
				Table: ffeTableName,
				Flag:  "FFE",
				Columns: []Column{
					{Target: "ROOM", Source: "ROOM"},
					{Target: "TYPE", Source: "TYPE"},
					{Target: "ITEM", Source: "ITEM"},
					{Target: "QUANTITY", Source: "QUANTITY"},
					{Target: "LOW BUDGET", Source: "LOW BUDGET"},
					{Target: "HIGH BUDGET", Source: "HIGH BUDGET"},
					{Target: "LOW BUDGET TOTAL", Product: []string{"LOW BUDGET", "QUANTITY"}},
					{Target: "HIGH BUDGET TOTAL", Product: []string{"HIGH BUDGET", "QUANTITY"}},
				},
			},
			{
				Table: specTableName,
				Flag:  "SPEC",
				Columns: []Column{
					{Target: "CATEGORIES", Blank: true},
					{Target: "TYPE", Source: "TYPE"},
					{Target: "ITEM", Source: "ITEM"},
					{Target: "ACTUAL PRICE", Blank: true},
					{Target: "QUANTITY", Source: "QUANTITY"},
					{Target: "LOW", Source: "LOW BUDGET"},
					{Target: "TOTAL LOW", Product: []string{"LOW", "QUANTITY"}},
					{Target: "HIGH", Source: "HIGH BUDGET"},
					{Target: "TOTAL HIGH", Product: []string{"HIGH", "QUANTITY"}},
					{Target: "NOTES", Blank: true},
				},
			},
		},
		Pricing: &Pricing{
			Table:  pricingTableName,
			Source: ffeTableName,
			Columns: []PricingColumn{
				{Source: "ROOM", Target: "Room"},
				{Source: "TYPE", Target: "Item Type"},
				{Source: "ITEM", Target: "Item Name"},
				{Source: "QUANTITY", Target: "Quantity"},
				{Source: "LOW BUDGET TOTAL", Target: "Budget Low"},
				{Source: "HIGH BUDGET TOTAL", Target: "Budget High"},
			},
		},
	}
}

// LoadConfig reads a split config from a YAML file, falling back to the
// compiled-in defaults when path is empty or the file does not exist.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("No split config file, using defaults")
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read split config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse split config: %w", err)
	}
	if cfg.Master == "" {
		cfg.Master = defaultMaster
	}
	if cfg.FlagColumn == "" {
		cfg.FlagColumn = defaultFlagColumn
	}
	if len(cfg.Targets) == 0 {
		return Config{}, fmt.Errorf("split config has no targets")
	}
	return cfg, nil
}

// Result reports how many rows landed in each rebuilt table.
type Result struct {
	Rows        map[string]int `json:"rows"`
	PricingRows int            `json:"pricingRows"`
}

type Service struct {
	store tabular.Store
	cfg   Config
}

func NewService(store tabular.Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Run performs the full split: every target table is cleared and rebuilt
// from the current master rows, formatting is carried over in one batched
// copy per target, and the FFE rows are fed into the Pricing table.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	grid, err := s.store.ReadTable(ctx, s.cfg.Master)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.cfg.Master, err)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%s is empty", s.cfg.Master)
	}
	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, []string{s.cfg.FlagColumn}); err != nil {
		return nil, fmt.Errorf("%s: %w", s.cfg.Master, err)
	}

	result := &Result{Rows: make(map[string]int)}
	rebuilt := make(map[string][][]interface{})
	for _, target := range s.cfg.Targets {
		values, err := s.rebuildTarget(ctx, target, grid, headers)
		if err != nil {
			return nil, err
		}
		rebuilt[target.Table] = values
		result.Rows[target.Table] = len(values) - 1
		log.Info().
			Str("table", target.Table).
			Str("flag", target.Flag).
			Int("rows", len(values)-1).
			Msg("Rebuilt split target")
	}

	if s.cfg.Pricing != nil {
		ffeRows, ok := rebuilt[s.cfg.Pricing.Source]
		if !ok {
			return nil, fmt.Errorf("pricing source table %q is not a split target", s.cfg.Pricing.Source)
		}
		n, err := s.feedPricing(ctx, ffeRows)
		if err != nil {
			return nil, err
		}
		result.PricingRows = n
	}

	return result, nil
}

// rebuildTarget clears and rewrites one target table from the master rows
// carrying its flag. Product columns are written as formulas but returned as
// computed numbers, so downstream consumers see evaluated values the way a
// spreadsheet read would return them.
func (s *Service) rebuildTarget(ctx context.Context, target Target, master [][]interface{}, masterHeaders map[string]int) ([][]interface{}, error) {
	targetCols := make(map[string]int, len(target.Columns))
	headerRow := make([]interface{}, len(target.Columns))
	for i, col := range target.Columns {
		targetCols[col.Target] = i
		headerRow[i] = col.Target
	}

	// Resolve every mapping up front so a bad config fails before any write.
	for _, col := range target.Columns {
		if col.Source != "" {
			if _, ok := masterHeaders[col.Source]; !ok {
				return nil, fmt.Errorf("target %s: master column %q not found", target.Table, col.Source)
			}
		}
		for _, operand := range col.Product {
			if _, ok := targetCols[operand]; !ok {
				return nil, fmt.Errorf("target %s: formula column %q references unknown target column %q", target.Table, col.Target, operand)
			}
		}
		if len(col.Product) != 0 && len(col.Product) != 2 {
			return nil, fmt.Errorf("target %s: formula column %q needs exactly two operands", target.Table, col.Target)
		}
	}

	out := [][]interface{}{headerRow}
	values := [][]interface{}{headerRow}
	flagIdx := masterHeaders[s.cfg.FlagColumn]
	for i := 1; i < len(master); i++ {
		flag := strings.TrimSpace(tabular.CellString(master[i], flagIdx))
		if !strings.EqualFold(flag, target.Flag) {
			continue
		}
		targetRow := len(out) + 1 // 1-based row this will occupy in the target
		row := make([]interface{}, len(target.Columns))
		valueRow := make([]interface{}, len(target.Columns))
		for j, col := range target.Columns {
			switch {
			case col.Blank:
				row[j] = ""
				valueRow[j] = ""
			case len(col.Product) == 2:
				// Formulas address the target table's own columns.
				a := tabular.ColumnLetter(targetCols[col.Product[0]] + 1)
				b := tabular.ColumnLetter(targetCols[col.Product[1]] + 1)
				row[j] = fmt.Sprintf("=%s%d*%s%d", a, targetRow, b, targetRow)
			default:
				row[j] = master[i][masterHeaders[col.Source]]
				valueRow[j] = master[i][masterHeaders[col.Source]]
			}
		}
		// Second pass: evaluate product columns from their operand cells,
		// which are all plain copies by this point.
		for j, col := range target.Columns {
			if len(col.Product) != 2 {
				continue
			}
			a, aOK := tabular.CellFloat(valueRow, targetCols[col.Product[0]])
			b, bOK := tabular.CellFloat(valueRow, targetCols[col.Product[1]])
			if aOK && bOK {
				valueRow[j] = a * b
			} else {
				valueRow[j] = ""
			}
		}
		out = append(out, row)
		values = append(values, valueRow)
	}

	if err := s.store.EnsureTable(ctx, target.Table, nil, false); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", target.Table, err)
	}
	if err := s.store.ClearRows(ctx, target.Table, 1); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", target.Table, err)
	}
	if err := s.store.WriteRange(ctx, target.Table, 1, 1, out); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", target.Table, err)
	}
	if err := s.store.CopyFormatting(ctx, s.cfg.Master, target.Table, len(out), len(headerRow)); err != nil {
		log.Warn().Err(err).Str("table", target.Table).Msg("Failed to carry formatting over")
	}
	return values, nil
}

// feedPricing writes the mapped FFE columns into the Pricing table. The
// Pricing table keeps its own layout; mapped columns are located by header
// and rewritten in place, untouched columns are preserved.
func (s *Service) feedPricing(ctx context.Context, ffe [][]interface{}) (int, error) {
	p := s.cfg.Pricing

	targetHeaders := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		targetHeaders[i] = col.Target
	}
	if err := s.store.EnsureTable(ctx, p.Table, targetHeaders, false); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", p.Table, err)
	}

	pricingGrid, err := s.store.ReadTable(ctx, p.Table)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", p.Table, err)
	}
	pricingCols := tabular.HeaderMap(pricingGrid)
	if err := tabular.RequireHeaders(pricingCols, targetHeaders); err != nil {
		return 0, fmt.Errorf("%s: %w", p.Table, err)
	}

	sourceCols := tabular.HeaderMap(ffe)
	for _, col := range p.Columns {
		if _, ok := sourceCols[col.Source]; !ok {
			return 0, fmt.Errorf("pricing feed: source column %q not found in %s", col.Source, p.Source)
		}
	}

	dataLen := len(ffe) - 1
	// Overwrite past the new data so stale rows from a longer previous
	// feed do not survive in the mapped columns.
	oldLen := len(pricingGrid) - 1
	blockLen := dataLen
	if oldLen > blockLen {
		blockLen = oldLen
	}

	for _, col := range p.Columns {
		srcIdx := sourceCols[col.Source]
		column := make([][]interface{}, blockLen)
		for r := 0; r < blockLen; r++ {
			var v interface{} = ""
			if r < dataLen && srcIdx < len(ffe[r+1]) && ffe[r+1][srcIdx] != nil {
				v = ffe[r+1][srcIdx]
			}
			column[r] = []interface{}{v}
		}
		if blockLen == 0 {
			continue
		}
		if err := s.store.WriteRange(ctx, p.Table, 2, pricingCols[col.Target]+1, column); err != nil {
			return 0, fmt.Errorf("failed to write %s column %s: %w", p.Table, col.Target, err)
		}
	}

	log.Info().Int("rows", dataLen).Str("table", p.Table).Msg("Fed FFE rows into pricing table")
	return dataLen, nil
}
