package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/exec"
	"github.com/polypheny/polypheny-go/router"
	"github.com/polypheny/polypheny-go/session"
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

func deployAndPlace(t *testing.T, c *catalog.Catalog, tbl *catalog.Table, ids ...int64) (*adapter.Registry, *session.Context) {
	t.Helper()
	reg := adapter.NewRegistry()
	ctx := session.NewEmptyContext()
	allCols := make([]int64, len(tbl.Columns))
	for i, col := range tbl.Columns {
		allCols[i] = col.ID
	}
	for _, id := range ids {
		a := memadapter.New(id)
		reg.Register(a)
		alloc, err := c.AddPlacement(tbl.ID, id, allCols)
		require.NoError(t, err)
		allocTables := c.Current().AllocationTables(alloc.ID)
		require.Len(t, allocTables, 1)
		require.NoError(t, a.CreateTable(ctx, allocTables[0], tbl.Columns))
	}
	return reg, ctx
}

func TestExecInsertThenScan(t *testing.T) {
	c, tbl := newUsersTable(t)
	reg, ctx := deployAndPlace(t, c, tbl, 1)

	r := router.New(c.Current(), reg)
	tm := txn.NewManager(nil)
	tx := tm.Begin("test", 0, txn.Auto, false)

	entity := algebra.EntityRef{NamespaceID: tbl.NamespaceID, TableID: tbl.ID, Name: tbl.Name}
	idLit := &algebra.Literal{Value: int64(1), Typ: tbl.Columns[0].Type}
	nameLit := &algebra.Literal{Value: "ada", Typ: tbl.Columns[1].Type}
	ageLit := &algebra.Literal{Value: int64(30), Typ: tbl.Columns[2].Type}
	values := algebra.NewValues([][]algebra.RexNode{{idLit, nameLit, ageLit}}, scanAllColumns(tbl).RowType(), algebra.TraitSet{Convention: algebra.Logical})
	modify := algebra.NewTableModify(values, entity, algebra.Insert, nil, nil)

	routed, err := r.Route(modify, tx)
	require.NoError(t, err)

	e := exec.New(reg)
	rows, err := e.Run(ctx, routed)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0][0])

	scan := scanAllColumns(tbl)
	scanRouted, err := r.Route(scan, tx)
	require.NoError(t, err)

	scanRows, err := e.Run(ctx, scanRouted)
	require.NoError(t, err)
	require.Len(t, scanRows, 1)
	require.Equal(t, "ada", scanRows[0][1])
	require.Equal(t, int64(30), scanRows[0][2])
}

func TestExecFilterAndProject(t *testing.T) {
	c, tbl := newUsersTable(t)
	reg, ctx := deployAndPlace(t, c, tbl, 1)

	r := router.New(c.Current(), reg)
	tm := txn.NewManager(nil)
	tx := tm.Begin("test", 0, txn.Auto, false)

	entity := algebra.EntityRef{NamespaceID: tbl.NamespaceID, TableID: tbl.ID, Name: tbl.Name}
	rows := [][]algebra.RexNode{
		{&algebra.Literal{Value: int64(1), Typ: tbl.Columns[0].Type}, &algebra.Literal{Value: "ada", Typ: tbl.Columns[1].Type}, &algebra.Literal{Value: int64(30), Typ: tbl.Columns[2].Type}},
		{&algebra.Literal{Value: int64(2), Typ: tbl.Columns[0].Type}, &algebra.Literal{Value: "bob", Typ: tbl.Columns[1].Type}, &algebra.Literal{Value: int64(20), Typ: tbl.Columns[2].Type}},
	}
	values := algebra.NewValues(rows, scanAllColumns(tbl).RowType(), algebra.TraitSet{Convention: algebra.Logical})
	insert := algebra.NewTableModify(values, entity, algebra.Insert, nil, nil)
	insertRouted, err := r.Route(insert, tx)
	require.NoError(t, err)
	e := exec.New(reg)
	_, err = e.Run(ctx, insertRouted)
	require.NoError(t, err)

	scan := scanAllColumns(tbl)
	ageType := tbl.Columns[2].Type
	boolType, _ := types.Of(types.Boolean, 0, 0, "", "")
	cond := &algebra.Call{
		Op:   algebra.Operator{Name: ">"},
		Args: []algebra.RexNode{&algebra.InputRef{Index: 2, Typ: ageType}, &algebra.Literal{Value: int64(25), Typ: ageType}},
		Typ:  boolType,
	}
	filtered := algebra.NewFilter(scan, cond, scan.Traits())
	proj := algebra.NewProject(filtered,
		[]algebra.RexNode{&algebra.InputRef{Index: 1, Typ: tbl.Columns[1].Type}},
		[]string{"name"},
	)

	routed, err := r.Route(proj, tx)
	require.NoError(t, err)
	out, err := e.Run(ctx, routed)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "ada", out[0][0])
}

func TestExecMultiPlacementJoinAndAggregate(t *testing.T) {
	c, tbl := newUsersTable(t)
	reg := adapter.NewRegistry()
	ctx := session.NewEmptyContext()

	a1 := memadapter.New(1)
	a2 := memadapter.New(2)
	reg.Register(a1)
	reg.Register(a2)
	p1, err := c.AddPlacement(tbl.ID, 1, []int64{tbl.Columns[1].ID}) // id(auto)+name
	require.NoError(t, err)
	p2, err := c.AddPlacement(tbl.ID, 2, []int64{tbl.Columns[2].ID}) // id(auto)+age
	require.NoError(t, err)
	for _, alloc := range []*catalog.Placement{p1, p2} {
		allocTables := c.Current().AllocationTables(alloc.ID)
		require.Len(t, allocTables, 1)
		a, _ := reg.Get(alloc.AdapterID)
		require.NoError(t, a.CreateTable(ctx, allocTables[0], tbl.Columns))
	}

	r := router.New(c.Current(), reg)
	tm := txn.NewManager(nil)
	tx := tm.Begin("test", 0, txn.Auto, false)

	entity := algebra.EntityRef{NamespaceID: tbl.NamespaceID, TableID: tbl.ID, Name: tbl.Name}
	rows := [][]algebra.RexNode{
		{&algebra.Literal{Value: int64(1), Typ: tbl.Columns[0].Type}, &algebra.Literal{Value: "ada", Typ: tbl.Columns[1].Type}, &algebra.Literal{Value: int64(30), Typ: tbl.Columns[2].Type}},
		{&algebra.Literal{Value: int64(2), Typ: tbl.Columns[0].Type}, &algebra.Literal{Value: "bob", Typ: tbl.Columns[1].Type}, &algebra.Literal{Value: int64(20), Typ: tbl.Columns[2].Type}},
	}
	values := algebra.NewValues(rows, scanAllColumns(tbl).RowType(), algebra.TraitSet{Convention: algebra.Logical})
	insert := algebra.NewTableModify(values, entity, algebra.Insert, nil, nil)
	insertRouted, err := r.Route(insert, tx)
	require.NoError(t, err)
	e := exec.New(reg)
	_, err = e.Run(ctx, insertRouted)
	require.NoError(t, err)

	scan := scanAllColumns(tbl)
	scanRouted, err := r.Route(scan, tx)
	require.NoError(t, err)
	out, err := e.Run(ctx, scanRouted)
	require.NoError(t, err)
	require.Len(t, out, 2)

	bigint, _ := types.Of(types.BigInt, 0, 0, "", "")
	agg := algebra.NewAggregate(scan, nil, []algebra.AggCall{{Op: algebra.Operator{Name: "COUNT", IsAggregate: true}, Name: "cnt", Typ: bigint}})
	aggRouted, err := r.Route(agg, tx)
	require.NoError(t, err)
	aggOut, err := e.Run(ctx, aggRouted)
	require.NoError(t, err)
	require.Len(t, aggOut, 1)
	require.Equal(t, int64(2), aggOut[0][0])
}
