package memadapter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/types"
)

func TestInsertAndScan(t *testing.T) {
	ctx := session.NewEmptyContext()
	a := memadapter.New(1)

	intType, _ := types.Of(types.Integer, 0, 0, "", "")
	col := &catalog.Column{ID: 10, Name: "a", Type: intType}
	alloc := &catalog.AllocationTable{ID: 100}

	require.NoError(t, a.CreateTable(ctx, alloc, []*catalog.Column{col}))

	physName := catalog.PhysicalColumnName(col.ID, 0)
	n, err := a.Insert(ctx, alloc, adapter.Plan{Columns: []string{physName}, Rows: []adapter.Row{{int64(1)}, {int64(2)}}})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	stream, err := a.Scan(ctx, alloc, []string{physName}, nil)
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

func TestDeleteRemovesMatchingRows(t *testing.T) {
	ctx := session.NewEmptyContext()
	a := memadapter.New(1)
	intType, _ := types.Of(types.Integer, 0, 0, "", "")
	col := &catalog.Column{ID: 10, Name: "a", Type: intType}
	alloc := &catalog.AllocationTable{ID: 100}
	require.NoError(t, a.CreateTable(ctx, alloc, []*catalog.Column{col}))
	physName := catalog.PhysicalColumnName(col.ID, 0)
	_, err := a.Insert(ctx, alloc, adapter.Plan{Columns: []string{physName}, Rows: []adapter.Row{{int64(1)}, {int64(2)}}})
	require.NoError(t, err)

	n, err := a.Delete(ctx, alloc, adapter.Plan{})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	stream, _ := a.Scan(ctx, alloc, []string{physName}, nil)
	_, ok, _ := stream.Next(ctx)
	require.False(t, ok)
}
