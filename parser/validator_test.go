package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/parser"
	"github.com/polypheny/polypheny-go/types"
)

func newTestCatalog(t *testing.T) (*catalog.Catalog, int64, int64) {
	t.Helper()
	c := catalog.New(nil)
	ns, err := c.CreateNamespace("public", catalog.Relational, true)
	require.NoError(t, err)

	intType, _ := types.Of(types.Integer, 0, 0, "", "")
	varchar, _ := types.Of(types.VarChar, 255, 0, "", "")
	tbl, err := c.CreateTable(ns.ID, "users", []*catalog.Column{
		{Name: "id", Type: intType, Nullable: false},
		{Name: "name", Type: varchar, Nullable: true},
	})
	require.NoError(t, err)
	return c, ns.ID, tbl.ID
}

func TestValidateSimpleSelect(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	stmt, err := parser.Parse("SELECT id, name FROM users WHERE id = 1")
	require.NoError(t, err)

	v := parser.NewValidator(c.Current(), "public", "public")
	node, err := v.Validate(stmt)
	require.NoError(t, err)

	project, ok := node.(*algebra.Project)
	require.True(t, ok)
	require.Len(t, project.RowType().Fields, 2)
	require.Equal(t, "id", project.RowType().Fields[0].Name)

	filter, ok := project.Inputs()[0].(*algebra.Filter)
	require.True(t, ok)
	_, ok = filter.Inputs()[0].(*algebra.Scan)
	require.True(t, ok)
}

func TestValidateUnknownTable(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	stmt, err := parser.Parse("SELECT * FROM missing")
	require.NoError(t, err)

	v := parser.NewValidator(c.Current(), "public", "public")
	_, err = v.Validate(stmt)
	require.Error(t, err)
	require.True(t, parser.ErrUnknownTable.Is(err))
}

func TestValidateInsert(t *testing.T) {
	c, _, tblID := newTestCatalog(t)
	stmt, err := parser.Parse("INSERT INTO users (id, name) VALUES (1, 'ada')")
	require.NoError(t, err)

	v := parser.NewValidator(c.Current(), "public", "public")
	node, err := v.Validate(stmt)
	require.NoError(t, err)

	modify, ok := node.(*algebra.TableModify)
	require.True(t, ok)
	require.Equal(t, algebra.Insert, modify.ModOp)
	require.Equal(t, tblID, modify.Entity.TableID)
}

func TestValidateDeleteWithWhere(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	stmt, err := parser.Parse("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	v := parser.NewValidator(c.Current(), "public", "public")
	node, err := v.Validate(stmt)
	require.NoError(t, err)

	modify, ok := node.(*algebra.TableModify)
	require.True(t, ok)
	require.Equal(t, algebra.Delete, modify.ModOp)
	_, ok = modify.Inputs()[0].(*algebra.Filter)
	require.True(t, ok)
}
