package tabular

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMap(t *testing.T) {
	grid := [][]interface{}{
		{"ROOM", " TYPE ", "", "ITEM", "ROOM"},
		{"KITCHEN", "LIGHTING", "x", "SCONCE", "dup"},
	}

	m := HeaderMap(grid)
	assert.Equal(t, 0, m["ROOM"])
	assert.Equal(t, 1, m["TYPE"])
	assert.Equal(t, 3, m["ITEM"])
	_, hasBlank := m[""]
	assert.False(t, hasBlank)
}

func TestHeaderMapEmptyGrid(t *testing.T) {
	assert.Empty(t, HeaderMap(nil))
	assert.Empty(t, HeaderMap([][]interface{}{}))
}

func TestRequireHeaders(t *testing.T) {
	m := map[string]int{"ROOM": 0, "ITEM": 1}

	assert.NoError(t, RequireHeaders(m, []string{"ROOM", "ITEM"}))
	err := RequireHeaders(m, []string{"ROOM", "QUANTITY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUANTITY")
}

func TestCellParsers(t *testing.T) {
	row := []interface{}{"text", "12.5", "$1,200.50", "", nil, 3.0, "abc"}

	assert.Equal(t, "text", CellString(row, 0))
	assert.Equal(t, "", CellString(row, 4))
	assert.Equal(t, "", CellString(row, 99))

	f, ok := CellFloat(row, 1)
	require.True(t, ok)
	assert.Equal(t, 12.5, f)

	f, ok = CellFloat(row, 2)
	require.True(t, ok)
	assert.Equal(t, 1200.50, f)

	_, ok = CellFloat(row, 3)
	assert.False(t, ok)
	_, ok = CellFloat(row, 6)
	assert.False(t, ok)

	n, ok := CellInt(row, 5)
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.col), "col %d", tt.col)
	}
}

func TestMemStoreWriteRangeGrows(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("Test Doc")
	s.Seed("T", [][]interface{}{{"A", "B"}})

	require.NoError(t, s.WriteRange(ctx, "T", 3, 2, [][]interface{}{{"x", "y"}}))

	rows := s.Rows("T")
	require.Len(t, rows, 3)
	assert.Equal(t, "x", rows[2][1])
	assert.Equal(t, "y", rows[2][2])
}

func TestMemStoreCopyTableRecordsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("Test Doc")
	s.Seed("Src", [][]interface{}{{"H"}, {"v1"}})

	require.NoError(t, s.CopyTable(ctx, "Src", "Src_Backup", true))
	require.NoError(t, s.WriteRange(ctx, "Src", 2, 1, [][]interface{}{{"v2"}}))

	require.Len(t, s.Backups, 1)
	assert.Equal(t, "v1", s.Backups[0].Snapshot[1][0])
	assert.True(t, s.Hidden("Src_Backup"))
}

func TestMemStoreClearRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("Test Doc")
	s.Seed("T", [][]interface{}{{"H"}, {"a"}, {"b"}})

	require.NoError(t, s.ClearRows(ctx, "T", 2))
	assert.Len(t, s.Rows("T"), 1)
}
