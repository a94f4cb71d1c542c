package items

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"studio_pm/internal/tabular"

	"github.com/rs/zerolog/log"
)

// Rooms returns the shared room list from the Data table. Rooms live as a
// vertical run in column A beneath a "Rooms" marker cell, terminated by the
// first blank cell.
func (s *Service) Rooms(ctx context.Context) ([]string, error) {
	rooms, _, err := s.roomData(ctx)
	return rooms, err
}

// AddRoom appends a room to the Data table's room list, upper-cased. Names
// already present (case-insensitively) are rejected.
func (s *Service) AddRoom(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("room name cannot be empty")
	}
	upper := strings.ToUpper(name)

	rooms, markerRow, err := s.roomData(ctx)
	if err != nil {
		return "", err
	}
	for _, existing := range rooms {
		if strings.EqualFold(existing, upper) {
			return "", fmt.Errorf("room %q already exists", upper)
		}
	}

	// First free row beneath the marker and the existing run.
	insertRow := markerRow + len(rooms) + 1
	if err := s.data.WriteRange(ctx, DataTableName, insertRow, 1, [][]interface{}{{upper}}); err != nil {
		return "", fmt.Errorf("failed to add room: %w", err)
	}
	log.Info().Str("room", upper).Int("row", insertRow).Msg("Added room")
	return upper, nil
}

// roomData locates the marker and collects the rooms beneath it, returning
// the marker's 1-based row so AddRoom can place the next entry.
func (s *Service) roomData(ctx context.Context) ([]string, int, error) {
	grid, err := s.data.ReadTable(ctx, DataTableName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", DataTableName, err)
	}

	markerIdx := -1
	for i, row := range grid {
		if strings.TrimSpace(tabular.CellString(row, 0)) == roomsMarker {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		return nil, 0, fmt.Errorf("no %q marker found in %s column A", roomsMarker, DataTableName)
	}

	var rooms []string
	for i := markerIdx + 1; i < len(grid); i++ {
		room := strings.TrimSpace(tabular.CellString(grid[i], 0))
		if room == "" {
			break
		}
		rooms = append(rooms, room)
	}

	log.Debug().Int("rooms", len(rooms)).Msg("Loaded room list")
	return rooms, markerIdx + 1, nil
}

// Catalog returns the available items from the Data table, cached for ten
// minutes. The cache has no invalidation hook, so catalog edits can take up
// to the TTL to show.
func (s *Service) Catalog(ctx context.Context) ([]CatalogItem, error) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	if s.catalog != nil && time.Since(s.catalogAt) < catalogTTL {
		log.Debug().Int("items", len(s.catalog)).Msg("Using cached item catalog")
		return s.catalog, nil
	}

	grid, err := s.data.ReadTable(ctx, DataTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DataTableName, err)
	}
	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, []string{"Item-Type", "Item-Name"}); err != nil {
		return nil, fmt.Errorf("%s: %w", DataTableName, err)
	}

	var catalog []CatalogItem
	for i := 1; i < len(grid); i++ {
		name := strings.TrimSpace(tabular.CellString(grid[i], headers["Item-Name"]))
		if name == "" {
			continue
		}
		catalog = append(catalog, CatalogItem{
			Type: strings.TrimSpace(tabular.CellString(grid[i], headers["Item-Type"])),
			Item: name,
		})
	}

	s.catalog = catalog
	s.catalogAt = time.Now()
	log.Debug().Int("items", len(catalog)).Msg("Loaded and cached item catalog")
	return catalog, nil
}

// Types returns the distinct values of the Data table's Type column,
// sorted case-insensitively.
func (s *Service) Types(ctx context.Context) ([]string, error) {
	grid, err := s.data.ReadTable(ctx, DataTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DataTableName, err)
	}
	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, []string{"Type"}); err != nil {
		return nil, fmt.Errorf("%s: %w", DataTableName, err)
	}

	seen := make(map[string]bool)
	var types []string
	for i := 1; i < len(grid); i++ {
		t := strings.TrimSpace(tabular.CellString(grid[i], headers["Type"]))
		if t == "" || seen[strings.ToUpper(t)] {
			continue
		}
		seen[strings.ToUpper(t)] = true
		types = append(types, t)
	}
	sort.Slice(types, func(a, b int) bool {
		return strings.ToLower(types[a]) < strings.ToLower(types[b])
	})
	return types, nil
}

// CombinedItems renders the catalog as "Type : Item" autocomplete strings,
// de-duplicated in catalog order.
func (s *Service) CombinedItems(ctx context.Context) ([]string, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(catalog))
	var combined []string
	for _, entry := range catalog {
		key := fmt.Sprintf("%s : %s", entry.Type, entry.Item)
		if seen[key] {
			continue
		}
		seen[key] = true
		combined = append(combined, key)
	}
	return combined, nil
}

// SelectionItem is a catalog item offered for one room during selection.
type SelectionItem struct {
	Room     string `json:"room"`
	Type     string `json:"type"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Selected bool   `json:"isSelected"`
}

// SelectionData is everything the item-selection step needs in one shot.
type SelectionData struct {
	Items         []SelectionItem            `json:"items"`
	ItemsByRoom   map[string][]SelectionItem `json:"itemsByRoom"`
	SelectedRooms []string                   `json:"selectedRooms"`
	CombinedItems []string                   `json:"combinedItems"`
	Available     []CatalogItem              `json:"availableItems"`
}

// SelectionData assembles the category-filtered catalog for the given rooms
// (or the saved room selection when none are passed): for each room, the
// items of its assigned categories, alphabetized per category.
func (s *Service) SelectionData(ctx context.Context, targetRooms []string) (*SelectionData, error) {
	selectedRooms := targetRooms
	if len(selectedRooms) == 0 {
		saved, err := s.SelectedRooms(ctx)
		if err != nil {
			return nil, err
		}
		selectedRooms = saved
	}
	if len(selectedRooms) == 0 {
		return nil, fmt.Errorf("no rooms selected")
	}

	roomCategories, err := s.RoomCategories(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	byType := make(map[string][]CatalogItem)
	for _, entry := range catalog {
		key := strings.ToUpper(strings.TrimSpace(entry.Type))
		if key == "" {
			key = "UNCATEGORIZED"
		}
		byType[key] = append(byType[key], entry)
	}
	for _, group := range byType {
		sort.SliceStable(group, func(a, b int) bool {
			return strings.ToLower(group[a].Item) < strings.ToLower(group[b].Item)
		})
	}

	data := &SelectionData{
		Items:         []SelectionItem{},
		ItemsByRoom:   map[string][]SelectionItem{},
		SelectedRooms: selectedRooms,
		Available:     catalog,
	}
	combinedSeen := make(map[string]bool)
	for _, room := range selectedRooms {
		data.ItemsByRoom[room] = []SelectionItem{}
		for _, category := range roomCategories[room] {
			for _, entry := range byType[strings.ToUpper(category)] {
				item := SelectionItem{
					Room:     room,
					Type:     strings.ToUpper(entry.Type),
					Item:     strings.ToUpper(entry.Item),
					Quantity: 1,
				}
				data.ItemsByRoom[room] = append(data.ItemsByRoom[room], item)
				data.Items = append(data.Items, item)

				combined := fmt.Sprintf("%s : %s", entry.Type, entry.Item)
				if !combinedSeen[combined] {
					combinedSeen[combined] = true
					data.CombinedItems = append(data.CombinedItems, combined)
				}
			}
		}
	}

	log.Debug().
		Int("items", len(data.Items)).
		Int("rooms", len(selectedRooms)).
		Msg("Prepared item selection data")
	return data, nil
}
