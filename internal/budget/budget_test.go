package budget

import (
	"context"
	"testing"

	"studio_pm/internal/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var masterHeaders = []interface{}{
	"ROOM", "TYPE", "ITEM", "QUANTITY", "LOW BUDGET", "HIGH BUDGET",
	"LOW BUDGET TOTAL", "HIGH BUDGET TOTAL", "SPEC/FFE",
}

func TestDataAggregation(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(TableName, [][]interface{}{
		masterHeaders,
		{"KITCHEN", "LIGHTING", "SCONCE", "2", "100", "200", "200", "400", "FFE"},
		{"KITCHEN", "PLUMBING", "FAUCET", "1", "50", "80", "50", "80", "SPEC"},
		{"DEN", "SEATING", "SOFA", "1", "900", "1500", "900", "1500", "FFE"},
		{"", "", "NO ROOM", "1", "10", "20", "10", "20", ""},
	})

	data, err := NewService(store).Data(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Rooms, 2)
	// Rooms are sorted descending by high total: DEN (1500) before KITCHEN (480).
	assert.Equal(t, "DEN", data.Rooms[0].Name)
	assert.Equal(t, "KITCHEN", data.Rooms[1].Name)
	assert.Equal(t, 480.0, data.Rooms[1].HighBudget)
	assert.Equal(t, 250.0, data.Rooms[1].LowBudget)
	assert.Equal(t, 1150.0, data.Summary.TotalLowBudget)
	assert.Equal(t, 1980.0, data.Summary.TotalHighBudget)
	assert.Len(t, data.Rooms[1].Items, 2, "row without a room is skipped")
}

func TestDataTotalsFallbackToUnitTimesQuantity(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(TableName, [][]interface{}{
		masterHeaders,
		// Blank totals, derived as 3*40=120 and 3*60=180.
		{"DEN", "TABLES", "SIDE TABLE", "3", "40", "60", "", "", "FFE"},
		// Non-numeric totals, also derived.
		{"DEN", "TABLES", "COFFEE TABLE", "2", "100", "150", "tbd", "tbd", "FFE"},
		// Numeric totals are trusted even when they disagree with unit*qty.
		{"DEN", "TABLES", "DESK", "2", "100", "150", "999", "1111", "FFE"},
	})

	data, err := NewService(store).Data(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Rooms, 1)
	assert.Equal(t, 120.0+200.0+999.0, data.Rooms[0].LowBudget)
	assert.Equal(t, 180.0+300.0+1111.0, data.Rooms[0].HighBudget)
}

func TestDataFallsBackToMasterList(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(MasterTableName, [][]interface{}{
		masterHeaders,
		{"KITCHEN", "LIGHTING", "SCONCE", "1", "100", "200", "100", "200", "FFE"},
	})

	data, err := NewService(store).Data(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Rooms, 1)
	assert.Equal(t, 100.0, data.Summary.TotalLowBudget)
}

func TestDataMissingRequiredHeaders(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(TableName, [][]interface{}{
		{"ROOM", "ITEM"},
		{"DEN", "SOFA"},
	})

	_, err := NewService(store).Data(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOW BUDGET")
}

func TestSummarizeSpecIntoBudget(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(MasterTableName, [][]interface{}{
		masterHeaders,
		{"KITCHEN", "TILE", "BACKSPLASH", "1", "10", "20", "100", "200", "SPEC"},
		{"BATH", "TILE", "FLOOR TILE", "1", "10", "20", "50", "70", "SPEC"},
		{"BATH", "PAINT", "WALL PAINT", "1", "10", "20", "30", "40", "spec"},
		{"DEN", "SEATING", "SOFA", "1", "10", "20", "900", "1500", "FFE"},
	})
	store.Seed(TableName, [][]interface{}{
		{"CATEGORIES", "TYPE", "SET ALLOWANCE", "LOW", "TOTAL LOW", "HIGH", "TOTAL HIGH", "NOTES"},
		{"Finishes", "TILE", "500", "", "0", "", "0", "keep an eye on this"},
	})

	result, err := NewService(store).SummarizeSpecIntoBudget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Added)

	rows := store.Rows(TableName)
	require.Len(t, rows, 3)
	// TILE row updated in place; hand-maintained columns untouched.
	assert.Equal(t, "150.00", rows[1][4])
	assert.Equal(t, "270.00", rows[1][6])
	assert.Equal(t, "Finishes", rows[1][0])
	assert.Equal(t, "500", rows[1][2])
	assert.Equal(t, "keep an eye on this", rows[1][7])
	// PAINT appended.
	assert.Equal(t, "PAINT", rows[2][1])
	assert.Equal(t, "30.00", rows[2][4])
	assert.Equal(t, "40.00", rows[2][6])
}

func TestSummarizeSpecCreatesBudgetTable(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(MasterTableName, [][]interface{}{
		masterHeaders,
		{"KITCHEN", "TILE", "BACKSPLASH", "1", "10", "20", "100", "200", "SPEC"},
	})

	result, err := NewService(store).SummarizeSpecIntoBudget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Added)

	rows := store.Rows(TableName)
	require.Len(t, rows, 2)
	assert.Equal(t, "TILE", rows[1][1])
}

func TestSummarizeSpecNoSpecItems(t *testing.T) {
	store := tabular.NewMemStore("doc")
	store.Seed(MasterTableName, [][]interface{}{
		masterHeaders,
		{"DEN", "SEATING", "SOFA", "1", "10", "20", "900", "1500", "FFE"},
	})

	_, err := NewService(store).SummarizeSpecIntoBudget(context.Background())
	require.Error(t, err)
}
