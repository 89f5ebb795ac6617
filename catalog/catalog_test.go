package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/types"
)

func intType() *types.Type {
	t, _ := types.Of(types.Integer, 0, 0, "", "")
	return t
}

func TestCreateNamespaceAndTable(t *testing.T) {
	cat := catalog.New(nil)
	ns, err := cat.CreateNamespace("public", catalog.Relational, true)
	require.NoError(t, err)

	tbl, err := cat.CreateTable(ns.ID, "t", []*catalog.Column{
		{Name: "a", Type: intType()},
		{Name: "b", Type: intType()},
	})
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Columns[0].Position)
	require.Equal(t, 2, tbl.Columns[1].Position)

	snap := cat.Snapshot()
	got, ok := snap.Table(tbl.ID)
	require.True(t, ok)
	require.Equal(t, "t", got.Name)
}

func TestDuplicateNameConflict(t *testing.T) {
	cat := catalog.New(nil)
	ns, _ := cat.CreateNamespace("public", catalog.Relational, true)
	_, err := cat.CreateTable(ns.ID, "t", nil)
	require.NoError(t, err)
	_, err = cat.CreateTable(ns.ID, "t", nil)
	require.Error(t, err)
	require.True(t, catalog.ErrNameConflict.Is(err))
}

func TestUnknownID(t *testing.T) {
	cat := catalog.New(nil)
	err := cat.RenameNamespace(999, "x")
	require.Error(t, err)
	require.True(t, catalog.ErrUnknownID.Is(err))
}

func TestDropLastPlacementRejected(t *testing.T) {
	cat := catalog.New(nil)
	ns, _ := cat.CreateNamespace("public", catalog.Relational, true)
	tbl, _ := cat.CreateTable(ns.ID, "t", []*catalog.Column{{Name: "a", Type: intType()}})
	p, err := cat.AddPlacement(tbl.ID, 1, []int64{tbl.Columns[0].ID})
	require.NoError(t, err)

	err = cat.DropPlacement(p.ID)
	require.Error(t, err)
	require.True(t, catalog.ErrInvariantViolated.Is(err))
}

func TestPrimaryKeyReplicatedOnNewPlacement(t *testing.T) {
	cat := catalog.New(nil)
	ns, _ := cat.CreateNamespace("public", catalog.Relational, true)
	tbl, _ := cat.CreateTable(ns.ID, "t", []*catalog.Column{
		{Name: "a", Type: intType()},
		{Name: "b", Type: intType()},
	})
	_, err := cat.AddPrimaryKey(tbl.ID, []int64{tbl.Columns[0].ID})
	require.NoError(t, err)

	p, err := cat.AddPlacement(tbl.ID, 2, []int64{tbl.Columns[1].ID})
	require.NoError(t, err)

	snap := cat.Snapshot()
	cols := snap.AllocationColumns(p.ID)
	require.Len(t, cols, 2) // requested column b + replicated PK column a
}

func TestSnapshotIsImmutableAcrossMutation(t *testing.T) {
	cat := catalog.New(nil)
	ns, _ := cat.CreateNamespace("public", catalog.Relational, true)
	before := cat.Snapshot()
	beforeGen := before.Generation

	_, err := cat.CreateTable(ns.ID, "t", nil)
	require.NoError(t, err)

	require.Equal(t, beforeGen, before.Generation) // snapshot itself never mutates
	after := cat.Snapshot()
	require.Greater(t, after.Generation, before.Generation)
	_, ok := before.TableByName(ns.ID, "t")
	require.False(t, ok, "a snapshot taken before the mutation must not see it")
}

func TestPhysicalNaming(t *testing.T) {
	require.Equal(t, "tab42", catalog.PhysicalTableName(42, 0))
	require.Equal(t, "tab42r3", catalog.PhysicalTableName(42, 3))

	prefix, id, rev, ok := catalog.ParsePhysicalName("col17r2")
	require.True(t, ok)
	require.Equal(t, "col", prefix)
	require.EqualValues(t, 17, id)
	require.Equal(t, 2, rev)

	_, _, _, ok = catalog.ParsePhysicalName("bogus")
	require.False(t, ok)
}
