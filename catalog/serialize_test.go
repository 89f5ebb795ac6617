package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/types"
)

func decimalType(t *testing.T) *types.Type {
	ty, err := types.Of(types.Decimal, 10, 2, "", "")
	require.NoError(t, err)
	return ty
}

// TestStoreRoundTrip exercises §8's deserialize ∘ serialize = id law: a
// catalog's logical and allocation layers, written to a Store and read
// back via Restore, must describe the same namespaces, tables, columns,
// keys, placements, allocation columns, partitions and allocation
// tables as the original.
func TestStoreRoundTrip(t *testing.T) {
	cat := catalog.New(nil)
	ns, err := cat.CreateNamespace("public", catalog.Relational, true)
	require.NoError(t, err)

	def := "0"
	tbl, err := cat.CreateTable(ns.ID, "orders", []*catalog.Column{
		{Name: "id", Type: intType()},
		{Name: "total", Type: decimalType(t), Nullable: true, Default: &def},
	})
	require.NoError(t, err)

	_, err = cat.AddPrimaryKey(tbl.ID, []int64{tbl.Columns[0].ID})
	require.NoError(t, err)

	part, err := cat.AddPartition(tbl.ID, catalog.HashPartition, "4")
	require.NoError(t, err)

	placement, err := cat.AddPlacement(tbl.ID, 7, []int64{tbl.Columns[1].ID})
	require.NoError(t, err)

	_, err = cat.AddAllocation(placement.ID, part.ID, 7, tbl.ID)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Persist(cat.Current()))
	require.NoError(t, store.Close())

	store2, err := catalog.OpenStore(path)
	require.NoError(t, err)
	defer store2.Close()

	restored, err := catalog.Restore(store2, nil)
	require.NoError(t, err)

	want := cat.Current()
	got := restored.Current()

	wantNS, ok := want.Namespace(ns.ID)
	require.True(t, ok)
	gotNS, ok := got.Namespace(ns.ID)
	require.True(t, ok)
	require.Equal(t, wantNS, gotNS)

	wantTbl, ok := want.Table(tbl.ID)
	require.True(t, ok)
	gotTbl, ok := got.Table(tbl.ID)
	require.True(t, ok)
	require.Equal(t, wantTbl.Name, gotTbl.Name)
	require.Equal(t, wantTbl.NamespaceID, gotTbl.NamespaceID)
	require.Len(t, gotTbl.Columns, len(wantTbl.Columns))
	for i, c := range wantTbl.Columns {
		require.Equal(t, c.ID, gotTbl.Columns[i].ID)
		require.Equal(t, c.Name, gotTbl.Columns[i].Name)
		require.Equal(t, c.Position, gotTbl.Columns[i].Position)
		require.Equal(t, c.Nullable, gotTbl.Columns[i].Nullable)
		require.True(t, types.Equal(c.Type, gotTbl.Columns[i].Type))
		if c.Default != nil {
			require.NotNil(t, gotTbl.Columns[i].Default)
			require.Equal(t, *c.Default, *gotTbl.Columns[i].Default)
		}
	}
	require.Len(t, gotTbl.Keys, len(wantTbl.Keys))
	require.Equal(t, wantTbl.Keys[0].Kind, gotTbl.Keys[0].Kind)
	require.Equal(t, wantTbl.Keys[0].ColumnIDs, gotTbl.Keys[0].ColumnIDs)

	wantPlacements := want.Placements(tbl.ID)
	gotPlacements := got.Placements(tbl.ID)
	require.Len(t, gotPlacements, len(wantPlacements))
	require.Equal(t, wantPlacements[0].AdapterID, gotPlacements[0].AdapterID)

	wantCols := want.AllocationColumns(placement.ID)
	gotCols := got.AllocationColumns(placement.ID)
	require.Len(t, gotCols, len(wantCols))
	for i, ac := range wantCols {
		require.Equal(t, ac.ColumnID, gotCols[i].ColumnID)
		require.Equal(t, ac.Position, gotCols[i].Position)
		require.Equal(t, ac.PlacementType, gotCols[i].PlacementType)
	}

	wantParts := want.Partitions(tbl.ID)
	gotParts := got.Partitions(tbl.ID)
	require.Len(t, gotParts, len(wantParts))
	require.Equal(t, wantParts[0].Kind, gotParts[0].Kind)
	require.Equal(t, wantParts[0].Qualifier, gotParts[0].Qualifier)

	wantAllocTables := want.AllocationTables(placement.ID)
	gotAllocTables := got.AllocationTables(placement.ID)
	require.Len(t, gotAllocTables, len(wantAllocTables))
}
