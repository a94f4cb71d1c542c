package items

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"studio_pm/internal/tabular"

	"github.com/rs/zerolog/log"
)

// Hidden scratch tables holding in-flight wizard state. Every mutation is a
// wholesale clear and rewrite, so concurrent editors are last-writer-wins.
const (
	tempSelectedRoomsTable  = "_TempSelectedRooms"
	tempRoomTypesTable      = "_TempRoomTypes"
	tempItemDataTable       = "_TempItemData"
	tempItemSelectionsTable = "_TempItemSelections"

	selectionsMarker = "ROOM_ITEMS_JSON"
)

// SelectedRooms returns the saved room selection, in saved order.
func (s *Service) SelectedRooms(ctx context.Context) ([]string, error) {
	exists, err := s.store.TableExists(ctx, tempSelectedRoomsTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	grid, err := s.store.ReadTable(ctx, tempSelectedRoomsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read selected rooms: %w", err)
	}
	var rooms []string
	for i := 1; i < len(grid); i++ {
		room := strings.TrimSpace(tabular.CellString(grid[i], 0))
		if room != "" {
			rooms = append(rooms, room)
		}
	}
	log.Debug().Int("rooms", len(rooms)).Msg("Loaded selected rooms")
	return rooms, nil
}

// SaveSelectedRooms replaces the saved room selection.
func (s *Service) SaveSelectedRooms(ctx context.Context, rooms []string) error {
	if err := s.store.EnsureTable(ctx, tempSelectedRoomsTable, []string{"Room"}, true); err != nil {
		return fmt.Errorf("failed to prepare selected rooms table: %w", err)
	}
	if err := s.store.ClearRows(ctx, tempSelectedRoomsTable, 2); err != nil {
		return fmt.Errorf("failed to clear selected rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil
	}
	values := make([][]interface{}, 0, len(rooms))
	for _, room := range rooms {
		if strings.TrimSpace(room) == "" {
			continue
		}
		values = append(values, []interface{}{room})
	}
	if err := s.store.AppendRows(ctx, tempSelectedRoomsTable, values); err != nil {
		return fmt.Errorf("failed to save selected rooms: %w", err)
	}
	log.Debug().Int("rooms", len(values)).Msg("Saved selected rooms")
	return nil
}

// RoomCategories returns the saved room-to-category assignments.
func (s *Service) RoomCategories(ctx context.Context) (map[string][]string, error) {
	assignments := make(map[string][]string)

	exists, err := s.store.TableExists(ctx, tempRoomTypesTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return assignments, nil
	}

	grid, err := s.store.ReadTable(ctx, tempRoomTypesTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read room categories: %w", err)
	}
	for i := 1; i < len(grid); i++ {
		room := strings.TrimSpace(tabular.CellString(grid[i], 0))
		category := strings.TrimSpace(tabular.CellString(grid[i], 1))
		if room == "" || category == "" {
			continue
		}
		assignments[room] = append(assignments[room], category)
	}
	log.Debug().Int("rooms", len(assignments)).Msg("Loaded room-category assignments")
	return assignments, nil
}

// SaveRoomCategories replaces all room-to-category assignments, flattened
// to one (room, category) pair per row.
func (s *Service) SaveRoomCategories(ctx context.Context, assignments map[string][]string) error {
	if err := s.store.EnsureTable(ctx, tempRoomTypesTable, []string{"Room", "Type"}, true); err != nil {
		return fmt.Errorf("failed to prepare room categories table: %w", err)
	}
	if err := s.store.ClearRows(ctx, tempRoomTypesTable, 2); err != nil {
		return fmt.Errorf("failed to clear room categories: %w", err)
	}

	rooms := make([]string, 0, len(assignments))
	for room := range assignments {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	var values [][]interface{}
	for _, room := range rooms {
		for _, category := range assignments[room] {
			if strings.TrimSpace(category) == "" {
				continue
			}
			values = append(values, []interface{}{room, strings.TrimSpace(category)})
		}
	}
	if len(values) == 0 {
		log.Debug().Msg("No room-category assignments to save")
		return nil
	}
	if err := s.store.AppendRows(ctx, tempRoomTypesTable, values); err != nil {
		return fmt.Errorf("failed to save room categories: %w", err)
	}
	log.Debug().Int("pairs", len(values)).Msg("Saved room-category assignments")
	return nil
}

// UpdateRoomCategory toggles a single (room, category) assignment through a
// full read-modify-rewrite cycle.
func (s *Service) UpdateRoomCategory(ctx context.Context, room, category string, selected bool) error {
	room = strings.TrimSpace(room)
	category = strings.TrimSpace(category)
	if room == "" || category == "" {
		return fmt.Errorf("room and category are required")
	}

	assignments, err := s.RoomCategories(ctx)
	if err != nil {
		return err
	}

	current := assignments[room]
	filtered := current[:0]
	for _, c := range current {
		if !strings.EqualFold(c, category) {
			filtered = append(filtered, c)
		}
	}
	if selected {
		filtered = append(filtered, category)
	}
	if len(filtered) == 0 {
		delete(assignments, room)
	} else {
		assignments[room] = filtered
	}

	return s.SaveRoomCategories(ctx, assignments)
}

// SaveItemSelections persists the per-room item picks as one JSON blob so
// the wizard can round-trip between steps without losing state.
func (s *Service) SaveItemSelections(ctx context.Context, selections map[string][]SelectionItem) error {
	if selections == nil {
		return fmt.Errorf("invalid item selections")
	}
	blob, err := json.Marshal(selections)
	if err != nil {
		return fmt.Errorf("failed to encode item selections: %w", err)
	}

	if err := s.store.EnsureTable(ctx, tempItemSelectionsTable, nil, true); err != nil {
		return fmt.Errorf("failed to prepare item selections table: %w", err)
	}
	if err := s.store.ClearRows(ctx, tempItemSelectionsTable, 1); err != nil {
		return fmt.Errorf("failed to clear item selections: %w", err)
	}
	if err := s.store.WriteRange(ctx, tempItemSelectionsTable, 1, 1, [][]interface{}{{selectionsMarker, string(blob)}}); err != nil {
		return fmt.Errorf("failed to save item selections: %w", err)
	}
	log.Debug().Int("rooms", len(selections)).Msg("Saved item selections")
	return nil
}

// ItemSelections returns the previously saved per-room item picks, or an
// empty map when nothing has been saved yet.
func (s *Service) ItemSelections(ctx context.Context) (map[string][]SelectionItem, error) {
	selections := make(map[string][]SelectionItem)

	exists, err := s.store.TableExists(ctx, tempItemSelectionsTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return selections, nil
	}

	grid, err := s.store.ReadTable(ctx, tempItemSelectionsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read item selections: %w", err)
	}
	if len(grid) == 0 {
		return selections, nil
	}
	blob := tabular.CellString(grid[0], 1)
	if strings.TrimSpace(blob) == "" {
		return selections, nil
	}
	if err := json.Unmarshal([]byte(blob), &selections); err != nil {
		// A corrupt blob only costs the saved selections, not the flow.
		log.Warn().Err(err).Msg("Discarding unreadable saved item selections")
		return map[string][]SelectionItem{}, nil
	}
	return selections, nil
}

// SaveDraft stores one in-progress item form as a timestamped JSON row.
// There is a single draft slot and each save overwrites it.
func (s *Service) SaveDraft(ctx context.Context, draft map[string]interface{}) error {
	if len(draft) == 0 {
		return nil
	}
	blob, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.store.EnsureTable(ctx, tempItemDataTable, []string{"Timestamp", "ItemDataJSON"}, true); err != nil {
		return fmt.Errorf("failed to prepare draft table: %w", err)
	}
	if err := s.store.WriteRange(ctx, tempItemDataTable, 2, 1, [][]interface{}{{time.Now().Format(time.RFC3339), string(blob)}}); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	log.Debug().Msg("Saved item draft")
	return nil
}

// Draft returns the saved in-progress item form, or nil when the slot is
// empty.
func (s *Service) Draft(ctx context.Context) (map[string]interface{}, error) {
	exists, err := s.store.TableExists(ctx, tempItemDataTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	grid, err := s.store.ReadTable(ctx, tempItemDataTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	if len(grid) < 2 {
		return nil, nil
	}
	blob := tabular.CellString(grid[1], 1)
	if strings.TrimSpace(blob) == "" {
		return nil, nil
	}
	var draft map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return draft, nil
}

// ClearScratch drops all wizard scratch state so the next project setup
// starts clean.
func (s *Service) ClearScratch(ctx context.Context) error {
	for _, table := range []string{tempSelectedRoomsTable, tempRoomTypesTable, tempItemDataTable, tempItemSelectionsTable} {
		exists, err := s.store.TableExists(ctx, table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := s.store.DeleteTable(ctx, table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
