package router_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/router"
	"github.com/polypheny/polypheny-go/txn"
	"github.com/polypheny/polypheny-go/types"
)

func newUsersTable(t *testing.T) (*catalog.Catalog, *catalog.Table) {
	t.Helper()
	c := catalog.New(nil)
	ns, err := c.CreateNamespace("public", catalog.Relational, true)
	require.NoError(t, err)

	intType, _ := types.Of(types.Integer, 0, 0, "", "")
	varchar, _ := types.Of(types.VarChar, 255, 0, "", "")
	tbl, err := c.CreateTable(ns.ID, "users", []*catalog.Column{
		{Name: "id", Type: intType, Nullable: false},
		{Name: "name", Type: varchar, Nullable: true},
		{Name: "age", Type: intType, Nullable: true},
	})
	require.NoError(t, err)
	_, err = c.AddPrimaryKey(tbl.ID, []int64{tbl.Columns[0].ID})
	require.NoError(t, err)
	return c, tbl
}

func scanAllColumns(tbl *catalog.Table) *algebra.Scan {
	fields := make([]types.Field, len(tbl.Columns))
	for i, col := range tbl.Columns {
		fields[i] = types.Field{Name: col.Name, Type: col.Type, Nullable: col.Nullable}
	}
	rowType := types.RecordOf(fields, false)
	entity := algebra.EntityRef{NamespaceID: tbl.NamespaceID, TableID: tbl.ID, Name: tbl.Name}
	return algebra.NewScan(entity, rowType, algebra.TraitSet{Convention: algebra.Logical})
}

func newTxn() *txn.Transaction {
	return txn.NewManager(nil).Begin("test", 0, txn.Auto, false)
}

func TestRouteSinglePlacementCoveringAllColumns(t *testing.T) {
	c, tbl := newUsersTable(t)
	allCols := []int64{tbl.Columns[0].ID, tbl.Columns[1].ID, tbl.Columns[2].ID}
	_, err := c.AddPlacement(tbl.ID, 1, allCols)
	require.NoError(t, err)

	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))

	r := router.New(c.Current(), reg)
	tx := newTxn()

	scan := scanAllColumns(tbl)
	out, err := r.Route(scan, tx)
	require.NoError(t, err)

	ps, ok := out.(*router.PhysicalScan)
	require.True(t, ok)
	require.Equal(t, int64(1), ps.AdapterID)
	require.Len(t, ps.Columns, 3)
	require.ElementsMatch(t, []int64{1}, tx.InvolvedStores())
}

func TestRouteMultiPlacementReconstructsOnPrimaryKey(t *testing.T) {
	c, tbl := newUsersTable(t)
	_, err := c.AddPlacement(tbl.ID, 1, []int64{tbl.Columns[1].ID}) // id (auto, PK) + name
	require.NoError(t, err)
	_, err = c.AddPlacement(tbl.ID, 2, []int64{tbl.Columns[2].ID}) // id (auto, PK) + age
	require.NoError(t, err)

	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))
	reg.Register(memadapter.New(2))

	r := router.New(c.Current(), reg)
	tx := newTxn()

	scan := scanAllColumns(tbl)
	out, err := r.Route(scan, tx)
	require.NoError(t, err)

	proj, ok := out.(*algebra.Project)
	require.True(t, ok)
	require.Len(t, proj.RowType().Fields, 3)
	require.Equal(t, []string{"id", "name", "age"}, fieldNames(proj.RowType()))

	join, ok := proj.Inputs()[0].(*algebra.Join)
	require.True(t, ok)
	require.Equal(t, algebra.InnerJoin, join.JoinType)
	require.NotNil(t, join.Cond)

	require.ElementsMatch(t, []int64{1, 2}, tx.InvolvedStores())
}

func TestRouteNoPlacementCoversColumns(t *testing.T) {
	c, tbl := newUsersTable(t)
	_, err := c.AddPlacement(tbl.ID, 1, []int64{tbl.Columns[1].ID}) // id + name only, never gets age

	require.NoError(t, err)

	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))

	r := router.New(c.Current(), reg)
	tx := newTxn()

	scan := scanAllColumns(tbl) // needs id, name, age
	_, err = r.Route(scan, tx)
	require.Error(t, err)
	require.True(t, router.ErrNoPlacementCoversColumns.Is(err))
}

func TestRouteInsertFansOutToEveryPlacement(t *testing.T) {
	c, tbl := newUsersTable(t)
	_, err := c.AddPlacement(tbl.ID, 1, []int64{tbl.Columns[1].ID}) // id + name
	require.NoError(t, err)
	_, err = c.AddPlacement(tbl.ID, 2, []int64{tbl.Columns[2].ID}) // id + age
	require.NoError(t, err)

	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))
	reg.Register(memadapter.New(2))

	r := router.New(c.Current(), reg)
	tx := newTxn()

	entity := algebra.EntityRef{NamespaceID: tbl.NamespaceID, TableID: tbl.ID, Name: tbl.Name}
	idLit := &algebra.Literal{Value: int64(1), Typ: tbl.Columns[0].Type}
	nameLit := &algebra.Literal{Value: "ada", Typ: tbl.Columns[1].Type}
	ageLit := &algebra.Literal{Value: int64(30), Typ: tbl.Columns[2].Type}
	values := algebra.NewValues([][]algebra.RexNode{{idLit, nameLit, ageLit}}, scanAllColumns(tbl).RowType(), algebra.TraitSet{Convention: algebra.Logical})
	modify := algebra.NewTableModify(values, entity, algebra.Insert, nil, nil)

	out, err := r.Route(modify, tx)
	require.NoError(t, err)

	mux, ok := out.(*router.Multiplex)
	require.True(t, ok)
	require.Len(t, mux.Targets, 2)
	require.ElementsMatch(t, []int64{1, 2}, tx.InvolvedStores())
	for _, target := range mux.Targets {
		require.Equal(t, algebra.Insert, target.ModOp)
		require.Len(t, target.Rows, 1)
		require.Len(t, target.Rows[0], 2) // id + (name or age)
	}
}

func fieldNames(rt *algebra.RowType) []string {
	out := make([]string, len(rt.Fields))
	for i, f := range rt.Fields {
		out[i] = f.Name
	}
	return out
}
