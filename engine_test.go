package polypheny_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	polypheny "github.com/polypheny/polypheny-go"
	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/types"
)

func newTestEngine(t *testing.T) (*polypheny.Engine, *catalog.Table) {
	t.Helper()
	cat := catalog.New(nil)
	ns, err := cat.CreateNamespace("public", catalog.Relational, true)
	require.NoError(t, err)

	intType, _ := types.Of(types.Integer, 0, 0, "", "")
	varchar, _ := types.Of(types.VarChar, 255, 0, "", "")
	tbl, err := cat.CreateTable(ns.ID, "users", []*catalog.Column{
		{Name: "id", Type: intType, Nullable: false},
		{Name: "name", Type: varchar, Nullable: true},
	})
	require.NoError(t, err)
	_, err = cat.AddPrimaryKey(tbl.ID, []int64{tbl.Columns[0].ID})
	require.NoError(t, err)

	registry := adapter.NewRegistry()
	a := memadapter.New(1)
	registry.Register(a)
	allCols := []int64{tbl.Columns[0].ID, tbl.Columns[1].ID}
	alloc, err := cat.AddPlacement(tbl.ID, 1, allCols)
	require.NoError(t, err)
	allocTables := cat.Current().AllocationTables(alloc.ID)
	require.Len(t, allocTables, 1)
	require.NoError(t, a.CreateTable(session.NewEmptyContext(), allocTables[0], tbl.Columns))

	e := polypheny.NewEngine(polypheny.Config{DefaultNamespace: "public"}, cat, registry, nil, nil)
	return e, tbl
}

func TestEngineInsertThenSelect(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := session.NewEmptyContext()

	_, err := e.Query(ctx, "root", "public", "INSERT INTO users (id, name) VALUES (1, 'ada')")
	require.NoError(t, err)

	res, err := e.Query(ctx, "root", "public", "SELECT id, name FROM users")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, int64(1), res.Rows[0][0])
	require.Equal(t, "ada", res.Rows[0][1])
}

func TestEngineReadOnlyRejectsInsert(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Config.IsReadOnly = true
	ctx := session.NewEmptyContext()

	_, err := e.Query(ctx, "root", "public", "INSERT INTO users (id, name) VALUES (1, 'ada')")
	require.Error(t, err)
}
