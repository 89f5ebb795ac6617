package sqladapter_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/sqladapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/types"
)

// These exercise sqladapter against a real MySQL-protocol server; skipped
// unless POLYPHENY_MYSQL_DSN names one, the same opt-in-integration-test
// idiom the teacher's own driver-dependent suites use.
func dsn(t *testing.T) string {
	t.Helper()
	d := os.Getenv("POLYPHENY_MYSQL_DSN")
	if d == "" {
		t.Skip("POLYPHENY_MYSQL_DSN not set, skipping sqladapter integration test")
	}
	return d
}

func TestSQLAdapterInsertScanUpdateDelete(t *testing.T) {
	d := dsn(t)
	a, err := sqladapter.Open(1, d)
	require.NoError(t, err)
	defer a.Close()

	intType, err := types.Of(types.Integer, 0, 0, "", "")
	require.NoError(t, err)
	varchar, err := types.Of(types.VarChar, 255, 0, "", "")
	require.NoError(t, err)

	ctx := session.NewEmptyContext()
	alloc := &catalog.AllocationTable{ID: 10, AdapterID: 1, LogicalID: 100}
	cols := []*catalog.Column{
		{ID: 1, Name: "id", Type: intType, Nullable: false},
		{ID: 2, Name: "name", Type: varchar, Nullable: true},
	}
	require.NoError(t, a.CreateTable(ctx, alloc, cols))
	defer a.DropTable(ctx, alloc)

	idCol := catalog.PhysicalColumnName(1, 0)
	nameCol := catalog.PhysicalColumnName(2, 0)

	n, err := a.Insert(ctx, alloc, adapter.Plan{
		Columns: []string{idCol, nameCol},
		Rows:    []adapter.Row{{int64(1), "ada"}, {int64(2), "bob"}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	stream, err := a.Scan(ctx, alloc, []string{idCol, nameCol}, nil)
	require.NoError(t, err)
	var rows []adapter.Row
	for {
		row, ok, err := stream.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.NoError(t, stream.Close())
	require.Len(t, rows, 2)

	filter := &algebra.Call{
		Op: algebra.Operator{Name: "="},
		Args: []algebra.RexNode{
			&algebra.FieldAccess{Name: idCol, Typ: intType},
			&algebra.Literal{Value: int64(1), Typ: intType},
		},
	}
	updated, err := a.Update(ctx, alloc, adapter.Plan{
		Set:    map[string]algebra.RexNode{nameCol: &algebra.Literal{Value: "ada2", Typ: varchar}},
		Filter: filter,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	deleted, err := a.Delete(ctx, alloc, adapter.Plan{Filter: filter})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}
