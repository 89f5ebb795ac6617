package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSchema(t *testing.T) {
	cat, registry, err := loadSchema("testdata/schema.toml")
	require.NoError(t, err)

	snap := cat.Current()
	ns, ok := snap.NamespaceByName("public")
	require.True(t, ok)

	tbl, ok := snap.TableByName(ns.ID, "users")
	require.True(t, ok)
	require.Len(t, tbl.Columns, 2)

	placements := snap.Placements(tbl.ID)
	require.Len(t, placements, 1)

	a, ok := registry.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(1), a.ID())
}

func TestPolyTypeNamed(t *testing.T) {
	k, err := polyTypeNamed("integer")
	require.NoError(t, err)
	require.Equal(t, "INTEGER", k.String())

	_, err = polyTypeNamed("not-a-type")
	require.Error(t, err)
}
