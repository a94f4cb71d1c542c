package budget

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"studio_pm/internal/tabular"

	"github.com/rs/zerolog/log"
)

const (
	TableName       = "Budget"
	MasterTableName = "Master Item List"

	typeHeader      = "TYPE"
	totalLowHeader  = "TOTAL LOW"
	totalHighHeader = "TOTAL HIGH"
)

// Headers used when the Budget table has to be created. CATEGORIES, SET
// ALLOWANCE and NOTES are hand-maintained and never overwritten by the
// summarizer.
var budgetHeaders = []string{
	"CATEGORIES", "TYPE", "SET ALLOWANCE", "LOW",
	"TOTAL LOW", "HIGH", "TOTAL HIGH", "NOTES",
}

type Item struct {
	Item      string  `json:"item"`
	Type      string  `json:"type"`
	Quantity  int     `json:"quantity"`
	Low       float64 `json:"low"`
	LowTotal  float64 `json:"lowTotal"`
	High      float64 `json:"high"`
	HighTotal float64 `json:"highTotal"`
}

type Room struct {
	Name       string  `json:"name"`
	LowBudget  float64 `json:"lowBudget"`
	HighBudget float64 `json:"highBudget"`
	Items      []Item  `json:"items"`
}

type Summary struct {
	TotalLowBudget  float64 `json:"totalLowBudget"`
	TotalHighBudget float64 `json:"totalHighBudget"`
}

type Data struct {
	Summary Summary `json:"summary"`
	Rooms   []Room  `json:"rooms"`
}

// SummarizeResult reports what the SPEC summarizer changed.
type SummarizeResult struct {
	Updated int `json:"updated"`
	Added   int `json:"added"`
}

type Service struct {
	store tabular.Store
}

func NewService(store tabular.Store) *Service {
	return &Service{store: store}
}

// Data rolls up per-room and project-wide low/high totals. The Budget table
// is preferred; when absent the master item list serves as the source. Rooms
// come back sorted descending by high total.
func (s *Service) Data(ctx context.Context) (*Data, error) {
	grid, err := s.store.ReadTable(ctx, TableName)
	if err != nil {
		log.Debug().Msg("Budget table not found, falling back to the master item list")
		grid, err = s.store.ReadTable(ctx, MasterTableName)
		if err != nil {
			return nil, fmt.Errorf("neither %q nor %q table found", TableName, MasterTableName)
		}
	}
	if len(grid) < 2 {
		return nil, fmt.Errorf("budget source table is empty or has only headers")
	}

	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, []string{"ROOM", "ITEM", "LOW BUDGET", "HIGH BUDGET"}); err != nil {
		return nil, fmt.Errorf("budget source table: %w", err)
	}

	lowTotalCol, hasLowTotal := headers["LOW BUDGET TOTAL"]
	highTotalCol, hasHighTotal := headers["HIGH BUDGET TOTAL"]

	roomIndex := make(map[string]int)
	var rooms []Room
	var summary Summary

	for _, row := range grid[1:] {
		roomName := strings.TrimSpace(tabular.CellString(row, headers["ROOM"]))
		itemName := strings.TrimSpace(tabular.CellString(row, headers["ITEM"]))
		if roomName == "" || itemName == "" {
			continue
		}

		itemType := ""
		if col, ok := headers["TYPE"]; ok {
			itemType = strings.TrimSpace(tabular.CellString(row, col))
		}
		quantity := 1
		if col, ok := headers["QUANTITY"]; ok {
			if q, qok := tabular.CellInt(row, col); qok && q > 0 {
				quantity = q
			}
		}
		low, _ := tabular.CellFloat(row, headers["LOW BUDGET"])
		high, _ := tabular.CellFloat(row, headers["HIGH BUDGET"])

		// Totals columns are trusted only when present and numeric;
		// otherwise the contribution is derived from unit x quantity.
		lowTotal := low * float64(quantity)
		if hasLowTotal {
			if v, ok := tabular.CellFloat(row, lowTotalCol); ok {
				lowTotal = v
			}
		}
		highTotal := high * float64(quantity)
		if hasHighTotal {
			if v, ok := tabular.CellFloat(row, highTotalCol); ok {
				highTotal = v
			}
		}

		idx, ok := roomIndex[roomName]
		if !ok {
			idx = len(rooms)
			roomIndex[roomName] = idx
			rooms = append(rooms, Room{Name: roomName})
		}

		rooms[idx].Items = append(rooms[idx].Items, Item{
			Item:      itemName,
			Type:      itemType,
			Quantity:  quantity,
			Low:       low,
			LowTotal:  lowTotal,
			High:      high,
			HighTotal: highTotal,
		})
		rooms[idx].LowBudget += lowTotal
		rooms[idx].HighBudget += highTotal
		summary.TotalLowBudget += lowTotal
		summary.TotalHighBudget += highTotal
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].HighBudget > rooms[j].HighBudget
	})

	log.Debug().
		Int("rooms", len(rooms)).
		Float64("total_low", summary.TotalLowBudget).
		Float64("total_high", summary.TotalHighBudget).
		Msg("Processed budget data")

	return &Data{Summary: summary, Rooms: rooms}, nil
}

// SummarizeSpecIntoBudget aggregates the master list's SPEC rows by TYPE and
// writes the totals into the Budget table: matching TYPE rows are updated in
// place, unmatched types are appended, and the hand-maintained columns are
// left untouched.
func (s *Service) SummarizeSpecIntoBudget(ctx context.Context) (*SummarizeResult, error) {
	master, err := s.store.ReadTable(ctx, MasterTableName)
	if err != nil {
		return nil, fmt.Errorf("table %q not found: %w", MasterTableName, err)
	}
	if len(master) < 2 {
		return nil, fmt.Errorf("table %q has no data to process", MasterTableName)
	}

	masterHeaders := tabular.HeaderMap(master)
	required := []string{"SPEC/FFE", "TYPE", "LOW BUDGET TOTAL", "HIGH BUDGET TOTAL"}
	if err := tabular.RequireHeaders(masterHeaders, required); err != nil {
		return nil, fmt.Errorf("table %q: %w", MasterTableName, err)
	}

	type totals struct{ low, high float64 }
	specTotals := make(map[string]*totals)
	var typeOrder []string

	for _, row := range master[1:] {
		flag := strings.ToUpper(strings.TrimSpace(tabular.CellString(row, masterHeaders["SPEC/FFE"])))
		if flag != "SPEC" {
			continue
		}
		typeName := strings.TrimSpace(tabular.CellString(row, masterHeaders["TYPE"]))
		if typeName == "" {
			continue
		}

		lowTotal, _ := tabular.CellFloat(row, masterHeaders["LOW BUDGET TOTAL"])
		highTotal, _ := tabular.CellFloat(row, masterHeaders["HIGH BUDGET TOTAL"])

		t, ok := specTotals[typeName]
		if !ok {
			t = &totals{}
			specTotals[typeName] = t
			typeOrder = append(typeOrder, typeName)
		}
		t.low += lowTotal
		t.high += highTotal
	}

	if len(specTotals) == 0 {
		return nil, fmt.Errorf("no SPEC items found in %q", MasterTableName)
	}

	if err := s.store.EnsureTable(ctx, TableName, budgetHeaders, false); err != nil {
		return nil, err
	}
	grid, err := s.store.ReadTable(ctx, TableName)
	if err != nil {
		return nil, err
	}

	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, []string{typeHeader, totalLowHeader, totalHighHeader}); err != nil {
		return nil, fmt.Errorf("table %q: %w", TableName, err)
	}

	typeRow := make(map[string]int)
	for r, row := range grid[1:] {
		name := strings.TrimSpace(tabular.CellString(row, headers[typeHeader]))
		if name != "" {
			typeRow[name] = r + 2
		}
	}

	result := &SummarizeResult{}
	width := len(grid[0])
	var rowsToAdd [][]interface{}

	for _, typeName := range typeOrder {
		t := specTotals[typeName]
		if row, ok := typeRow[typeName]; ok {
			if err := s.store.WriteRange(ctx, TableName, row, headers[totalLowHeader]+1, [][]interface{}{{fmt.Sprintf("%.2f", t.low)}}); err != nil {
				return nil, err
			}
			if err := s.store.WriteRange(ctx, TableName, row, headers[totalHighHeader]+1, [][]interface{}{{fmt.Sprintf("%.2f", t.high)}}); err != nil {
				return nil, err
			}
			result.Updated++
			continue
		}

		newRow := make([]interface{}, width)
		for i := range newRow {
			newRow[i] = ""
		}
		newRow[headers[typeHeader]] = typeName
		newRow[headers[totalLowHeader]] = fmt.Sprintf("%.2f", t.low)
		newRow[headers[totalHighHeader]] = fmt.Sprintf("%.2f", t.high)
		rowsToAdd = append(rowsToAdd, newRow)
		result.Added++
	}

	if len(rowsToAdd) > 0 {
		if err := s.store.AppendRows(ctx, TableName, rowsToAdd); err != nil {
			return nil, err
		}
	}

	log.Info().Int("updated", result.Updated).Int("added", result.Added).Msg("Summarized SPEC items into budget")
	return result, nil
}
