package items

import (
	"context"
	"strings"
	"testing"

	"studio_pm/internal/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headerRow = []interface{}{
	"ROOM", "TYPE", "ITEM", "QUANTITY", "LOW BUDGET", "HIGH BUDGET",
	"LOW BUDGET TOTAL", "HIGH BUDGET TOTAL", "SPEC/FFE",
}

func seededMaster(t *testing.T) *tabular.MemStore {
	t.Helper()
	store := tabular.NewMemStore("Dunes House")
	store.Seed(MasterTableName, [][]interface{}{
		headerRow,
		{"KITCHEN", "LIGHTING", "SCONCE", 2, 100.0, 200.0, 200.0, 400.0, "FFE"},
		{"DEN", "SEATING", "SOFA", 1, 900.0, 1500.0, 900.0, 1500.0, "SPEC"},
	})
	return store
}

func f(v float64) *float64 { return &v }

func TestSaveUpdatesRowInPlace(t *testing.T) {
	store := seededMaster(t)
	svc := NewService(store, nil)

	result, err := svc.SaveToMasterList(context.Background(), []Item{
		{RowNumber: 2, Room: "Kitchen", Type: "Lighting", Item: "Pendant", Quantity: 3, LowBudget: f(50), HighBudget: f(90), SpecFfe: "ffe"},
	})
	require.NoError(t, err)

	rows := store.Rows(MasterTableName)
	require.Len(t, rows, 3, "update must not add rows")
	assert.Equal(t, "PENDANT", rows[1][2])
	assert.Equal(t, 3, rows[1][3])
	assert.Equal(t, 150.0, rows[1][6], "low total recomputed server-side")
	assert.Equal(t, 270.0, rows[1][7])
	assert.Equal(t, "FFE", rows[1][8])
	assert.Equal(t, 2, result.Items[0].RowNumber)

	// Saving the identical payload again changes nothing.
	_, err = svc.SaveToMasterList(context.Background(), []Item{
		{RowNumber: 2, Room: "Kitchen", Type: "Lighting", Item: "Pendant", Quantity: 3, LowBudget: f(50), HighBudget: f(90), SpecFfe: "ffe"},
	})
	require.NoError(t, err)
	assert.Equal(t, rows, store.Rows(MasterTableName))
}

func TestSaveStaleRowNumberReroutedToAppend(t *testing.T) {
	store := seededMaster(t)
	svc := NewService(store, nil)

	result, err := svc.SaveToMasterList(context.Background(), []Item{
		{RowNumber: 50, Room: "Den", Item: "Ottoman", Quantity: 1},
	})
	require.NoError(t, err)

	rows := store.Rows(MasterTableName)
	require.Len(t, rows, 4)
	assert.Equal(t, "OTTOMAN", rows[3][2])
	assert.Equal(t, 4, result.Items[0].RowNumber, "stale row number is reassigned from the append position")
}

func TestSaveAppendsContiguouslyAndSortsResult(t *testing.T) {
	store := seededMaster(t)
	svc := NewService(store, nil)

	result, err := svc.SaveToMasterList(context.Background(), []Item{
		{ID: "new_a1", Room: "Patio", Item: "Umbrella", Quantity: 1},
		{RowNumber: 3, Room: "Den", Type: "Seating", Item: "Sofa", Quantity: 1, LowBudget: f(900), HighBudget: f(1500), SpecFfe: "SPEC"},
		{ID: "new_b2", Room: "Patio", Item: "Lounge Chair", Quantity: 2, LowBudget: f(200), HighBudget: f(350)},
	})
	require.NoError(t, err)

	rows := store.Rows(MasterTableName)
	require.Len(t, rows, 5)
	assert.Equal(t, "UMBRELLA", rows[3][2])
	assert.Equal(t, "LOUNGE CHAIR", rows[4][2])

	require.Len(t, result.Items, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{result.Items[0].RowNumber, result.Items[1].RowNumber, result.Items[2].RowNumber})
	assert.Equal(t, "new_a1", result.Items[1].TempID, "temporary ids survive for client-side reconciliation")
	assert.Equal(t, "new_b2", result.Items[2].TempID)
}

func TestSaveNormalizesQuantityAndBudgets(t *testing.T) {
	store := seededMaster(t)
	svc := NewService(store, nil)

	result, err := svc.SaveToMasterList(context.Background(), []Item{
		{Room: "den", Item: "rug", Quantity: 0},
	})
	require.NoError(t, err)

	item := result.Items[0]
	assert.Equal(t, 1, item.Quantity, "quantity clamps to at least 1")
	assert.Nil(t, item.LowBudget)
	assert.Nil(t, item.LowBudgetTotal, "missing unit budget leaves the total unset")

	rows := store.Rows(MasterTableName)
	assert.Equal(t, "", rows[3][4])
	assert.Equal(t, "", rows[3][6])
	assert.True(t, strings.HasPrefix(item.TempID, "new_"), "items without an id get a generated temporary one")
}

func TestSaveRejectsBatchOnMissingRoomOrItem(t *testing.T) {
	store := seededMaster(t)
	before := store.Rows(MasterTableName)

	_, err := NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{Room: "DEN", Item: "RUG", Quantity: 1},
		{Room: "", Item: "LAMP", Quantity: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a room or item name")
	assert.Equal(t, before, store.Rows(MasterTableName), "a bad item aborts the whole batch")
}

func TestSaveRejectsDriftedHeadersWithoutMutation(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(MasterTableName, [][]interface{}{
		{"ROOM", "TYPE", "ITEM", "QUANTITY", "LOW", "HIGH", "LOW TOTAL", "HIGH TOTAL", "SPEC/FFE"},
		{"DEN", "SEATING", "SOFA", 1, 900.0, 1500.0, 900.0, 1500.0, "SPEC"},
	})
	before := store.Rows(MasterTableName)

	_, err := NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{Room: "DEN", Item: "RUG", Quantity: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing header "LOW BUDGET"`)
	assert.Equal(t, before, store.Rows(MasterTableName))
}

func TestSaveResolvesReorderedHeadersByName(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(MasterTableName, [][]interface{}{
		{"ROOM", "ITEM", "TYPE", "QUANTITY", "LOW BUDGET", "HIGH BUDGET", "LOW BUDGET TOTAL", "HIGH BUDGET TOTAL", "SPEC/FFE"},
		{"DEN", "SOFA", "SEATING", 1, 900.0, 1500.0, 900.0, 1500.0, "SPEC"},
	})

	result, err := NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{RowNumber: 2, Room: "DEN", Item: "SOFA", Type: "UPHOLSTERY", Quantity: 2, LowBudget: f(900), HighBudget: f(1500)},
		{Room: "DEN", Item: "OTTOMAN", Type: "SEATING", Quantity: 1, LowBudget: f(200)},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	rows := store.Rows(MasterTableName)
	require.Len(t, rows, 3)
	// Columns are placed by header name, not position.
	assert.Equal(t, "SOFA", rows[1][1])
	assert.Equal(t, "UPHOLSTERY", rows[1][2])
	assert.Equal(t, 1800.0, rows[1][6])
	assert.Equal(t, "OTTOMAN", rows[2][1])
	assert.Equal(t, "SEATING", rows[2][2])
	assert.Equal(t, 200.0, rows[2][6])
}

// writeCountingStore counts WriteRange calls so tests can tell a rewrite
// of the data block apart from plain appends.
type writeCountingStore struct {
	*tabular.MemStore
	writeRanges int
}

func (s *writeCountingStore) WriteRange(ctx context.Context, table string, row, col int, values [][]interface{}) error {
	s.writeRanges++
	return s.MemStore.WriteRange(ctx, table, row, col, values)
}

func TestSaveAppendOnlyBatchSkipsRowRewrite(t *testing.T) {
	store := &writeCountingStore{MemStore: seededMaster(t)}

	_, err := NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{Room: "DEN", Item: "RUG", Quantity: 1},
		{Room: "DEN", Item: "LAMP", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.writeRanges, "appends alone leave the existing rows untouched")
	assert.Len(t, store.Rows(MasterTableName), 5)

	_, err = NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{RowNumber: 2, Room: "KITCHEN", Item: "SCONCE", Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.writeRanges, "an in-place update rewrites the data block once")
}

func TestSaveTakesHiddenBackupAndToleratesFailure(t *testing.T) {
	store := seededMaster(t)
	before := store.Rows(MasterTableName)

	result, err := NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{Room: "DEN", Item: "RUG", Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, store.Backups, 1)
	backup := store.Backups[0]
	assert.Equal(t, MasterTableName, backup.Src)
	assert.True(t, strings.HasPrefix(backup.Dst, MasterTableName+"_Backup_"))
	assert.True(t, backup.Hidden)
	assert.Equal(t, before, backup.Snapshot, "backup captures the pre-save state")
	assert.Equal(t, backup.Dst, result.BackupTable)

	// A refused copy downgrades to a save without a backup.
	failing := seededMaster(t)
	failing.FailCopy = true
	result, err = NewService(failing, nil).SaveToMasterList(context.Background(), []Item{
		{Room: "DEN", Item: "RUG", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, result.BackupTable)
	assert.Len(t, failing.Rows(MasterTableName), 4)
}

func TestSaveReappliesSpecFfeValidation(t *testing.T) {
	store := seededMaster(t)

	_, err := NewService(store, nil).SaveToMasterList(context.Background(), []Item{
		{Room: "DEN", Item: "RUG", Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, store.Validations, 1)
	v := store.Validations[0]
	assert.Equal(t, MasterTableName, v.Table)
	assert.Equal(t, 9, v.Col)
	assert.Equal(t, 2, v.FromRow)
	assert.Equal(t, 4, v.ToRow, "validation covers every data row, appended ones included")
	assert.Equal(t, []string{"SPEC", "FFE", ""}, v.Allowed)
}

func TestDataFiltersByRoomAndDerivesTotals(t *testing.T) {
	store := seededMaster(t)

	data, err := NewService(store, nil).Data(context.Background(), []string{"KITCHEN"})
	require.NoError(t, err)

	require.Len(t, data.Items, 1)
	item := data.Items[0]
	assert.Equal(t, 2, item.RowNumber)
	assert.Equal(t, "SCONCE", item.Item)
	assert.Equal(t, 200.0, *item.LowBudgetTotal)
	assert.Equal(t, 400.0, *item.HighBudgetTotal)
	assert.Equal(t, []string{"KITCHEN"}, data.SelectedRooms)

	all, err := NewService(store, nil).Data(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, []string{"DEN", "KITCHEN"}, all.SelectedRooms)
}

func TestRoomsReadFromMarkerRun(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(DataTableName, [][]interface{}{
		{"Item-Type", "Item-Name", "Type"},
		{"", "", ""},
		{"Rooms", "", ""},
		{"KITCHEN", "", ""},
		{"DEN", "", ""},
		{"", "", ""},
		{"ORPHAN", "", ""},
	})
	svc := NewService(tabular.NewMemStore("p"), store)

	rooms, err := svc.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KITCHEN", "DEN"}, rooms, "the run stops at the first blank cell")
}

func TestAddRoomUppercasesAndRejectsDuplicates(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(DataTableName, [][]interface{}{
		{"Item-Type", "Item-Name", "Type"},
		{"Rooms", "", ""},
		{"KITCHEN", "", ""},
	})
	svc := NewService(tabular.NewMemStore("p"), store)

	added, err := svc.AddRoom(context.Background(), "  guest suite ")
	require.NoError(t, err)
	assert.Equal(t, "GUEST SUITE", added)

	rows := store.Rows(DataTableName)
	assert.Equal(t, "GUEST SUITE", rows[3][0], "new room lands directly after the run")

	_, err = svc.AddRoom(context.Background(), "kitchen")
	require.Error(t, err)
	_, err = svc.AddRoom(context.Background(), "   ")
	require.Error(t, err)
}

func TestCatalogCachesForTTL(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(DataTableName, [][]interface{}{
		{"Item-Type", "Item-Name", "Type"},
		{"LIGHTING", "SCONCE", "LIGHTING"},
		{"SEATING", "SOFA", "SEATING"},
		{"", "", ""},
	})
	svc := NewService(tabular.NewMemStore("p"), store)

	catalog, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	// Catalog edits are invisible until the TTL lapses.
	store.Seed(DataTableName, [][]interface{}{
		{"Item-Type", "Item-Name", "Type"},
		{"LIGHTING", "CHANDELIER", "LIGHTING"},
	})
	catalog, err = svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SCONCE", catalog[0].Item)

	svc.catalogAt = svc.catalogAt.Add(-catalogTTL - 1)
	catalog, err = svc.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "CHANDELIER", catalog[0].Item)
}

func TestTypesAreUniqueAndSorted(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(DataTableName, [][]interface{}{
		{"Item-Type", "Item-Name", "Type"},
		{"", "", "Seating"},
		{"", "", "lighting"},
		{"", "", "SEATING"},
		{"", "", ""},
		{"", "", "Tables"},
	})
	svc := NewService(tabular.NewMemStore("p"), store)

	types, err := svc.Types(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lighting", "Seating", "Tables"}, types)
}

func TestSelectedRoomsRoundTrip(t *testing.T) {
	store := tabular.NewMemStore("doc")
	svc := NewService(store, nil)

	rooms, err := svc.SelectedRooms(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rooms, "no scratch table means no selection")

	require.NoError(t, svc.SaveSelectedRooms(context.Background(), []string{"KITCHEN", "DEN"}))
	assert.True(t, store.Hidden(tempSelectedRoomsTable))

	rooms, err = svc.SelectedRooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"KITCHEN", "DEN"}, rooms)

	// Each save replaces the previous selection entirely.
	require.NoError(t, svc.SaveSelectedRooms(context.Background(), []string{"PATIO"}))
	rooms, err = svc.SelectedRooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PATIO"}, rooms)
}

func TestUpdateRoomCategoryToggles(t *testing.T) {
	store := tabular.NewMemStore("doc")
	svc := NewService(store, nil)

	require.NoError(t, svc.SaveRoomCategories(context.Background(), map[string][]string{
		"KITCHEN": {"LIGHTING", "PLUMBING"},
	}))
	require.NoError(t, svc.UpdateRoomCategory(context.Background(), "KITCHEN", "SEATING", true))
	require.NoError(t, svc.UpdateRoomCategory(context.Background(), "KITCHEN", "plumbing", false))

	assignments, err := svc.RoomCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"LIGHTING", "SEATING"}, assignments["KITCHEN"])

	require.NoError(t, svc.UpdateRoomCategory(context.Background(), "KITCHEN", "LIGHTING", false))
	require.NoError(t, svc.UpdateRoomCategory(context.Background(), "KITCHEN", "SEATING", false))
	assignments, err = svc.RoomCategories(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, assignments, "KITCHEN", "a room with no categories left drops out")
}

func TestItemSelectionsRoundTrip(t *testing.T) {
	store := tabular.NewMemStore("doc")
	svc := NewService(store, nil)

	selections, err := svc.ItemSelections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, selections)

	saved := map[string][]SelectionItem{
		"KITCHEN": {{Room: "KITCHEN", Type: "LIGHTING", Item: "SCONCE", Quantity: 2, Selected: true}},
	}
	require.NoError(t, svc.SaveItemSelections(context.Background(), saved))
	assert.True(t, store.Hidden(tempItemSelectionsTable))

	selections, err = svc.ItemSelections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, selections)
}

func TestSelectionDataFiltersByRoomCategories(t *testing.T) {
	data := tabular.NewMemStore("doc")
	data.Seed(DataTableName, [][]interface{}{
		{"Item-Type", "Item-Name", "Type"},
		{"LIGHTING", "Sconce", ""},
		{"LIGHTING", "Chandelier", ""},
		{"SEATING", "Sofa", ""},
	})
	project := tabular.NewMemStore("p")
	svc := NewService(project, data)
	require.NoError(t, svc.SaveSelectedRooms(context.Background(), []string{"KITCHEN", "DEN"}))
	require.NoError(t, svc.SaveRoomCategories(context.Background(), map[string][]string{
		"KITCHEN": {"Lighting"},
		"DEN":     {"Seating"},
	}))

	result, err := svc.SelectionData(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.ItemsByRoom["KITCHEN"], 2)
	// Alphabetized within the category.
	assert.Equal(t, "CHANDELIER", result.ItemsByRoom["KITCHEN"][0].Item)
	assert.Equal(t, "SCONCE", result.ItemsByRoom["KITCHEN"][1].Item)
	require.Len(t, result.ItemsByRoom["DEN"], 1)
	assert.Equal(t, "SOFA", result.ItemsByRoom["DEN"][0].Item)
	assert.Len(t, result.Items, 3)
	assert.Equal(t, 1, result.Items[0].Quantity)
}

func TestSelectionDataRequiresRooms(t *testing.T) {
	svc := NewService(tabular.NewMemStore("p"), tabular.NewMemStore("doc"))
	_, err := svc.SelectionData(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rooms selected")
}

func TestSummary(t *testing.T) {
	store := seededMaster(t)
	svc := NewService(store, nil)
	require.NoError(t, svc.SaveSelectedRooms(context.Background(), []string{"KITCHEN", "DEN"}))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dunes House", summary.ProjectName)
	assert.Equal(t, 2, summary.RoomCount)
	assert.Equal(t, 2, summary.ItemCount)
	assert.Equal(t, 1100.0, summary.TotalLowBudget)
	assert.Equal(t, 1900.0, summary.TotalHighBudget)
}
