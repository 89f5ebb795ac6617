package driver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	polypheny "github.com/polypheny/polypheny-go"
	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/catalog"
	pdriver "github.com/polypheny/polypheny-go/driver"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/types"
)

func newTestEngine(t *testing.T) *polypheny.Engine {
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

	return polypheny.NewEngine(polypheny.Config{DefaultNamespace: "public"}, cat, registry, nil, nil)
}

func TestDriverExecAndQuery(t *testing.T) {
	db := pdriver.Open("users", newTestEngine(t), nil)
	defer db.Close()

	res, err := db.Exec("INSERT INTO users (id, name) VALUES (1, 'ada')")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	rows, err := db.Query("SELECT id, name FROM users")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, cols)

	require.True(t, rows.Next())
	var id int64
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	require.Equal(t, int64(1), id)
	require.Equal(t, "ada", name)
	require.False(t, rows.Next())
}

func TestDriverRejectsBindParams(t *testing.T) {
	db := pdriver.Open("users", newTestEngine(t), nil)
	defer db.Close()

	_, err := db.Exec("INSERT INTO users (id, name) VALUES (?, ?)", 1, "ada")
	require.ErrorIs(t, err, pdriver.ErrBindParamsUnsupported)
}
