package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/planner"
	"github.com/polypheny/polypheny-go/types"
)

func intType() *types.Type {
	t, _ := types.Of(types.Integer, 0, 0, "", "")
	return t
}

func boolType() *types.Type {
	t, _ := types.Of(types.Boolean, 0, 0, "", "")
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

func TestOptimizeConvertsScanToEnumerable(t *testing.T) {
	s := scanOf("t1", "a", "b")
	opt := planner.NewOptimizer(nil)
	plan, _, err := opt.Optimize(s, algebra.TraitSet{Convention: algebra.Enumerable}, 1)
	require.NoError(t, err)
	require.Equal(t, algebra.Enumerable, plan.Traits().Convention)
	require.Equal(t, "Scan", plan.Op())
}

func TestOptimizeMergesStackedFilters(t *testing.T) {
	s := scanOf("t1", "a", "b")
	f1 := algebra.NewFilter(s, &algebra.Literal{Value: true, Typ: boolType()}, s.Traits())
	f2 := algebra.NewFilter(f1, &algebra.Literal{Value: true, Typ: boolType()}, f1.Traits())

	opt := planner.NewOptimizer(nil)
	plan, _, err := opt.Optimize(f2, algebra.TraitSet{Convention: algebra.Enumerable}, 1)
	require.NoError(t, err)
	require.Equal(t, algebra.Enumerable, plan.Traits().Convention)
	// the merged single Filter sits directly above the Scan; a plan that
	// still nested two Filters would mean FilterMerge never fired.
	require.Equal(t, "Filter", plan.Op())
	require.Equal(t, "Scan", plan.Inputs()[0].Op())
}

func TestOptimizeNoImplementationForUnsatisfiableTraits(t *testing.T) {
	s := scanOf("t1", "a")
	opt := planner.NewOptimizer(nil)
	required := algebra.TraitSet{Convention: algebra.Enumerable, Collation: algebra.Collation{{FieldIndex: 0}}}
	_, _, err := opt.Optimize(s, required, 1)
	require.Error(t, err)
	require.True(t, planner.ErrNoImplementation.Is(err))
}

func TestOptimizeCachesByGeneration(t *testing.T) {
	s := scanOf("t1", "a")
	opt := planner.NewOptimizer(nil)
	required := algebra.TraitSet{Convention: algebra.Enumerable}

	p1, _, err := opt.Optimize(s, required, 7)
	require.NoError(t, err)

	p2, _, err := opt.Optimize(s, required, 7)
	require.NoError(t, err)
	require.True(t, algebra.Equal(p1, p2))

	// a new generation must not reuse a stale cache entry transparently;
	// it should still resolve correctly rather than erroring.
	p3, _, err := opt.Optimize(s, required, 8)
	require.NoError(t, err)
	require.True(t, algebra.Equal(p1, p3))
}
