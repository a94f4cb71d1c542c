package items

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studio_pm/internal/tabular"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// MasterTableName is the canonical per-project item list.
	MasterTableName = "Master Item List"
	// DataTableName is the shared catalog table (rooms, types, item names).
	DataTableName = "Data"

	roomsMarker = "Rooms"

	specFfeSpec = "SPEC"
	specFfeFfe  = "FFE"

	backupTimeFormat = "20060102_150405"
	catalogTTL       = 10 * time.Minute

	colRoom      = "ROOM"
	colType      = "TYPE"
	colItem      = "ITEM"
	colQuantity  = "QUANTITY"
	colLow       = "LOW BUDGET"
	colHigh      = "HIGH BUDGET"
	colLowTotal  = "LOW BUDGET TOTAL"
	colHighTotal = "HIGH BUDGET TOTAL"
	colSpecFfe   = "SPEC/FFE"
)

// masterHeaders are the headers the Master Item List must carry, in any
// column order. Saves refuse to touch a table missing one of them.
var masterHeaders = []string{
	colRoom, colType, colItem, colQuantity,
	colLow, colHigh,
	colLowTotal, colHighTotal, colSpecFfe,
}

// Item is one budgeted line of the master list. RowNumber is the 1-based
// physical row in the table (header is row 1, so data rows start at 2); zero
// means the item has not been placed yet.
type Item struct {
	ID              string   `json:"id"`
	RowNumber       int      `json:"rowNumber,omitempty"`
	TempID          string   `json:"originalTemporaryId,omitempty"`
	Room            string   `json:"room"`
	Type            string   `json:"type"`
	Item            string   `json:"item"`
	Quantity        int      `json:"quantity"`
	LowBudget       *float64 `json:"lowBudget"`
	HighBudget      *float64 `json:"highBudget"`
	LowBudgetTotal  *float64 `json:"lowBudgetTotal"`
	HighBudgetTotal *float64 `json:"highBudgetTotal"`
	SpecFfe         string   `json:"specFfe"`
}

// ItemsData is the master list read back out, grouped for display.
type ItemsData struct {
	Items         []Item            `json:"items"`
	ItemsByRoom   map[string][]Item `json:"itemsByRoom"`
	SelectedRooms []string          `json:"selectedRooms"`
}

// SaveResult carries the reconciled items (sorted by row) and the name of
// the pre-save backup table, empty when the backup could not be taken.
type SaveResult struct {
	Items       []Item `json:"items"`
	BackupTable string `json:"backupTable,omitempty"`
}

// ProjectSummary is the headline view of a project's master list.
type ProjectSummary struct {
	ProjectName     string  `json:"projectName"`
	RoomCount       int     `json:"roomCount"`
	ItemCount       int     `json:"itemCount"`
	TotalLowBudget  float64 `json:"totalLowBudget"`
	TotalHighBudget float64 `json:"totalHighBudget"`
}

// CatalogItem is one Data-table row of the shared item catalog.
type CatalogItem struct {
	Type string `json:"type"`
	Item string `json:"item"`
}

// Service manages the master item list of one project plus the shared Data
// catalog. The catalog store may be the same document as the project store.
type Service struct {
	store tabular.Store
	data  tabular.Store

	catalogMu sync.Mutex
	catalog   []CatalogItem
	catalogAt time.Time
}

func NewService(store, data tabular.Store) *Service {
	if data == nil {
		data = store
	}
	return &Service{store: store, data: data}
}

// Data returns all master list items, optionally filtered to the given
// rooms, each carrying its physical row number. Totals are derived from
// quantity and unit budgets rather than trusted from the sheet.
func (s *Service) Data(ctx context.Context, selectedRooms []string) (*ItemsData, error) {
	grid, err := s.store.ReadTable(ctx, MasterTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", MasterTableName, err)
	}
	if len(grid) < 2 {
		log.Debug().Msg("Master item list is empty or headers only")
		return &ItemsData{Items: []Item{}, ItemsByRoom: map[string][]Item{}, SelectedRooms: selectedRooms}, nil
	}

	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, masterHeaders); err != nil {
		return nil, fmt.Errorf("%s: %w", MasterTableName, err)
	}

	wanted := make(map[string]bool, len(selectedRooms))
	for _, r := range selectedRooms {
		wanted[r] = true
	}

	result := &ItemsData{Items: []Item{}, ItemsByRoom: map[string][]Item{}}
	for i := 1; i < len(grid); i++ {
		row := grid[i]
		room := strings.TrimSpace(tabular.CellString(row, headers["ROOM"]))
		if room == "" {
			room = "Unassigned"
		}
		if len(wanted) > 0 && !wanted[room] {
			continue
		}

		rowNumber := i + 1
		item := Item{
			ID:        fmt.Sprintf("row_%d", rowNumber),
			RowNumber: rowNumber,
			Room:      room,
			Type:      strings.TrimSpace(tabular.CellString(row, headers["TYPE"])),
			Item:      strings.TrimSpace(tabular.CellString(row, headers["ITEM"])),
			Quantity:  1,
			SpecFfe:   strings.TrimSpace(tabular.CellString(row, headers["SPEC/FFE"])),
		}
		if q, ok := tabular.CellInt(row, headers["QUANTITY"]); ok && q > 0 {
			item.Quantity = q
		}
		if low, ok := tabular.CellFloat(row, headers["LOW BUDGET"]); ok {
			item.LowBudget = &low
			total := low * float64(item.Quantity)
			item.LowBudgetTotal = &total
		}
		if high, ok := tabular.CellFloat(row, headers["HIGH BUDGET"]); ok {
			item.HighBudget = &high
			total := high * float64(item.Quantity)
			item.HighBudgetTotal = &total
		}

		result.Items = append(result.Items, item)
		result.ItemsByRoom[room] = append(result.ItemsByRoom[room], item)
	}

	if len(selectedRooms) > 0 {
		result.SelectedRooms = selectedRooms
	} else {
		for room := range result.ItemsByRoom {
			result.SelectedRooms = append(result.SelectedRooms, room)
		}
		sort.Strings(result.SelectedRooms)
	}

	log.Debug().
		Int("items", len(result.Items)).
		Int("rooms", len(result.ItemsByRoom)).
		Msg("Loaded master item list")
	return result, nil
}

// SaveToMasterList reconciles a batch of items against the master list:
// rows with a live row number are updated in place, everything else is
// appended as one contiguous block. The whole batch is rejected before any
// write if an item is missing its room or name, or if the table's header
// row lost one of the required columns.
func (s *Service) SaveToMasterList(ctx context.Context, toSave []Item) (*SaveResult, error) {
	if len(toSave) == 0 {
		return nil, fmt.Errorf("no items to save")
	}

	backupName := s.backupMasterList(ctx)

	// Validate and normalize before touching the table at all.
	prepared := make([]Item, len(toSave))
	for i, item := range toSave {
		if strings.TrimSpace(item.Room) == "" || strings.TrimSpace(item.Item) == "" {
			return nil, fmt.Errorf("item %d is missing a room or item name, nothing saved", i+1)
		}
		prepared[i] = normalizeItem(item)
	}

	grid, err := s.store.ReadTable(ctx, MasterTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", MasterTableName, err)
	}
	cols, err := masterColumns(grid)
	if err != nil {
		return nil, err
	}

	var updates, appends []int
	for i := range prepared {
		if prepared[i].RowNumber > 0 {
			updates = append(updates, i)
		} else {
			appends = append(appends, i)
		}
	}

	// Apply updates against the in-memory copy of the data rows. A row
	// number pointing past the current data (a stale client view) is
	// re-routed to the append block instead of failing the batch.
	dataRows := grid[1:]
	applied := 0
	for _, i := range updates {
		offset := prepared[i].RowNumber - 2
		if offset < 0 || offset >= len(dataRows) {
			log.Warn().
				Int("row_number", prepared[i].RowNumber).
				Str("item", prepared[i].Item).
				Msg("Stale row number, appending instead")
			prepared[i].RowNumber = 0
			appends = append(appends, i)
			continue
		}
		dataRows[offset] = applyItemToRow(dataRows[offset], cols, prepared[i])
		applied++
	}

	// Append-only batches leave the existing rows untouched.
	if applied > 0 {
		if err := s.store.WriteRange(ctx, MasterTableName, 2, 1, dataRows); err != nil {
			return nil, fmt.Errorf("failed to write updated rows: %w", err)
		}
	}

	if len(appends) > 0 {
		sort.Ints(appends)
		rows := make([][]interface{}, 0, len(appends))
		nextRow := len(grid) + 1
		for _, i := range appends {
			prepared[i].RowNumber = nextRow
			prepared[i].ID = fmt.Sprintf("row_%d", nextRow)
			rows = append(rows, applyItemToRow(blankRow(len(grid[0])), cols, prepared[i]))
			nextRow++
		}
		if err := s.store.AppendRows(ctx, MasterTableName, rows); err != nil {
			return nil, fmt.Errorf("failed to append new rows: %w", err)
		}
	}

	lastRow := len(grid) + len(appends)
	if lastRow >= 2 {
		specCol := cols[colSpecFfe] + 1
		if err := s.store.SetColumnValidation(ctx, MasterTableName, specCol, 2, lastRow, []string{specFfeSpec, specFfeFfe, ""}); err != nil {
			log.Warn().Err(err).Msg("Failed to reapply SPEC/FFE validation")
		}
	}

	sort.SliceStable(prepared, func(a, b int) bool {
		return prepared[a].RowNumber < prepared[b].RowNumber
	})

	log.Info().
		Int("updated", len(toSave)-len(appends)).
		Int("appended", len(appends)).
		Str("backup", backupName).
		Msg("Saved items to master list")
	return &SaveResult{Items: prepared, BackupTable: backupName}, nil
}

// Summary aggregates the master list into the project dashboard numbers.
func (s *Service) Summary(ctx context.Context) (*ProjectSummary, error) {
	title, err := s.store.Title(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read project title: %w", err)
	}

	data, err := s.Data(ctx, nil)
	if err != nil {
		return nil, err
	}

	summary := &ProjectSummary{ProjectName: title, ItemCount: len(data.Items)}
	for _, item := range data.Items {
		if item.LowBudgetTotal != nil {
			summary.TotalLowBudget += *item.LowBudgetTotal
		}
		if item.HighBudgetTotal != nil {
			summary.TotalHighBudget += *item.HighBudgetTotal
		}
	}

	rooms, err := s.SelectedRooms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read selected rooms for summary")
	} else {
		summary.RoomCount = len(rooms)
	}
	return summary, nil
}

// backupMasterList copies the master list into a hidden timestamped table.
// A failed backup is reported but never blocks the save.
func (s *Service) backupMasterList(ctx context.Context) string {
	name := fmt.Sprintf("%s_Backup_%s", MasterTableName, time.Now().Format(backupTimeFormat))
	if err := s.store.CopyTable(ctx, MasterTableName, name, true); err != nil {
		log.Warn().Err(err).Str("backup", name).Msg("Failed to back up master list, continuing without one")
		return ""
	}
	log.Debug().Str("backup", name).Msg("Backed up master list")
	return name
}

func normalizeItem(item Item) Item {
	out := item
	out.Room = strings.ToUpper(strings.TrimSpace(item.Room))
	out.Type = strings.ToUpper(strings.TrimSpace(item.Type))
	out.Item = strings.ToUpper(strings.TrimSpace(item.Item))
	out.SpecFfe = strings.ToUpper(strings.TrimSpace(item.SpecFfe))
	if out.Quantity < 1 {
		out.Quantity = 1
	}
	out.LowBudgetTotal = nil
	out.HighBudgetTotal = nil
	if out.LowBudget != nil {
		total := *out.LowBudget * float64(out.Quantity)
		out.LowBudgetTotal = &total
	}
	if out.HighBudget != nil {
		total := *out.HighBudget * float64(out.Quantity)
		out.HighBudgetTotal = &total
	}
	if strings.HasPrefix(item.ID, "new_") {
		out.TempID = item.ID
	}
	if item.ID == "" && item.RowNumber <= 0 {
		out.TempID = "new_" + uuid.NewString()
		out.ID = out.TempID
	}
	return out
}

// masterColumns resolves the nine required headers by name, in whatever
// column order the table carries them. A table missing any of them rejects
// the whole save.
func masterColumns(grid [][]interface{}) (map[string]int, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%s has no header row", MasterTableName)
	}
	cols := make(map[string]int, len(grid[0]))
	for i := range grid[0] {
		name := strings.ToUpper(strings.TrimSpace(tabular.CellString(grid[0], i)))
		if name == "" {
			continue
		}
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	for _, want := range masterHeaders {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%s is missing header %q, nothing saved", MasterTableName, want)
		}
	}
	return cols, nil
}

// applyItemToRow writes the item's fields into the row at their mapped
// columns, growing the row as needed and leaving unmapped cells alone.
func applyItemToRow(row []interface{}, cols map[string]int, item Item) []interface{} {
	set := func(name string, v interface{}) {
		idx := cols[name]
		for len(row) <= idx {
			row = append(row, "")
		}
		row[idx] = v
	}
	set(colRoom, item.Room)
	set(colType, item.Type)
	set(colItem, item.Item)
	set(colQuantity, item.Quantity)
	set(colLow, floatCell(item.LowBudget))
	set(colHigh, floatCell(item.HighBudget))
	set(colLowTotal, floatCell(item.LowBudgetTotal))
	set(colHighTotal, floatCell(item.HighBudgetTotal))
	set(colSpecFfe, item.SpecFfe)
	return row
}

func blankRow(width int) []interface{} {
	row := make([]interface{}, width)
	for i := range row {
		row[i] = ""
	}
	return row
}

func floatCell(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}
