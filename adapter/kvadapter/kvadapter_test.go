package kvadapter_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/kvadapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/types"
)

func newAdapter(t *testing.T) *kvadapter.Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	a, err := kvadapter.Open(1, path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func newUsersAlloc(t *testing.T) (*catalog.AllocationTable, []*catalog.Column) {
	t.Helper()
	cols := []*catalog.Column{
		{ID: 1, Name: "id"},
		{ID: 2, Name: "name"},
	}
	return &catalog.AllocationTable{ID: 10, AdapterID: 1, LogicalID: 100}, cols
}

func TestKVAdapterInsertAndScan(t *testing.T) {
	a := newAdapter(t)
	ctx := session.NewEmptyContext()
	alloc, cols := newUsersAlloc(t)
	require.NoError(t, a.CreateTable(ctx, alloc, cols))

	physCols := []string{catalog.PhysicalColumnName(1, 0), catalog.PhysicalColumnName(2, 0)}
	n, err := a.Insert(ctx, alloc, adapter.Plan{
		Columns: physCols,
		Rows: []adapter.Row{
			{int64(1), "ada"},
			{int64(2), "bob"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	stream, err := a.Scan(ctx, alloc, physCols, nil)
	require.NoError(t, err)
	defer stream.Close()

	var rows []adapter.Row
	for {
		row, ok, err := stream.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
}

func TestKVAdapterUpdateAndDelete(t *testing.T) {
	a := newAdapter(t)
	ctx := session.NewEmptyContext()
	alloc, cols := newUsersAlloc(t)
	require.NoError(t, a.CreateTable(ctx, alloc, cols))

	idCol := catalog.PhysicalColumnName(1, 0)
	nameCol := catalog.PhysicalColumnName(2, 0)
	_, err := a.Insert(ctx, alloc, adapter.Plan{
		Columns: []string{idCol, nameCol},
		Rows:    []adapter.Row{{int64(1), "ada"}, {int64(2), "bob"}},
	})
	require.NoError(t, err)

	intType, err := types.Of(types.Integer, 0, 0, "", "")
	require.NoError(t, err)
	filter := &algebra.Call{
		Op: algebra.Operator{Name: "="},
		Args: []algebra.RexNode{
			&algebra.FieldAccess{Name: idCol, Typ: intType},
			&algebra.Literal{Value: int64(1), Typ: intType},
		},
	}

	n, err := a.Update(ctx, alloc, adapter.Plan{
		Set:    map[string]algebra.RexNode{nameCol: &algebra.Literal{Value: "ada2", Typ: intType}},
		Filter: filter,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	d, err := a.Delete(ctx, alloc, adapter.Plan{Filter: filter})
	require.NoError(t, err)
	require.Equal(t, int64(1), d)

	stream, err := a.Scan(ctx, alloc, []string{idCol, nameCol}, nil)
	require.NoError(t, err)
	defer stream.Close()
	var rows []adapter.Row
	for {
		row, ok, err := stream.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 1)
	require.Equal(t, "bob", rows[0][1])
}
