package algebra_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/types"
)

func intType() *types.Type {
	t, _ := types.Of(types.Integer, 0, 0, "", "")
	return t
}

func scanOf(name string, fieldNames ...string) algebra.AlgNode {
	fields := make([]types.Field, len(fieldNames))
	for i, n := range fieldNames {
		fields[i] = types.Field{Name: n, Type: intType()}
	}
	rowType := types.RecordOf(fields, false)
	return algebra.NewScan(algebra.EntityRef{TableID: 1, Name: name}, rowType, algebra.TraitSet{Convention: algebra.Logical})
}

func TestJoinRowTypeConcatenation(t *testing.T) {
	left := scanOf("t1", "a", "b")
	right := scanOf("t2", "c", "d")
	j, err := algebra.NewJoin(left, right, algebra.InnerJoin, nil)
	require.NoError(t, err)
	require.Len(t, j.RowType().Fields, 4)
	require.Equal(t, "a", j.RowType().Fields[0].Name)
	require.Equal(t, "d", j.RowType().Fields[3].Name)
}

func TestJoinSemiKeepsLeftOnly(t *testing.T) {
	left := scanOf("t1", "a", "b")
	right := scanOf("t2", "c")
	j, err := algebra.NewJoin(left, right, algebra.SemiJoin, nil)
	require.NoError(t, err)
	require.Len(t, j.RowType().Fields, 2)
}

func TestJoinLeftMakesRightNullable(t *testing.T) {
	left := scanOf("t1", "a")
	right := scanOf("t2", "b")
	j, err := algebra.NewJoin(left, right, algebra.LeftJoin, nil)
	require.NoError(t, err)
	require.False(t, j.RowType().Fields[0].Nullable)
	require.True(t, j.RowType().Fields[1].Nullable)
}

func TestFilterPreservesRowType(t *testing.T) {
	s := scanOf("t1", "a", "b")
	f := algebra.NewFilter(s, &algebra.Literal{Value: true, Typ: intType()}, s.Traits())
	require.True(t, types.Equal(f.RowType(), s.RowType()))
}

func TestProjectRowType(t *testing.T) {
	s := scanOf("t1", "a", "b")
	p := algebra.NewProject(s, []algebra.RexNode{&algebra.InputRef{Index: 1, Typ: intType()}}, []string{"b"})
	require.Len(t, p.RowType().Fields, 1)
	require.Equal(t, "b", p.RowType().Fields[0].Name)
}

func TestSetOpRequiresMatchingArity(t *testing.T) {
	a := scanOf("t1", "a", "b")
	b := scanOf("t2", "c")
	_, err := algebra.NewSetOp(algebra.SetUnion, true, []algebra.AlgNode{a, b})
	require.Error(t, err)
}

func TestEqualModuloTraits(t *testing.T) {
	s1 := scanOf("t1", "a")
	s2 := scanOf("t1", "a")
	s2 = s2.WithTraits(algebra.TraitSet{Convention: algebra.Enumerable}).(*algebra.Scan)
	require.True(t, algebra.Equal(s1, s2))
}
