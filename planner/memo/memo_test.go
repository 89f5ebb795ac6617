package memo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/planner/cost"
	"github.com/polypheny/polypheny-go/planner/memo"
	"github.com/polypheny/polypheny-go/types"
)

func intType() *types.Type {
	t, _ := types.Of(types.Integer, 0, 0, "", "")
	return t
}

func scanOf(name string) algebra.AlgNode {
	rowType := types.RecordOf([]types.Field{{Name: "a", Type: intType()}}, false)
	return algebra.NewScan(algebra.EntityRef{TableID: 1, Name: name}, rowType, algebra.TraitSet{Convention: algebra.Logical})
}

func TestAddDedupsStructurallyEqualExpressions(t *testing.T) {
	m := memo.New()
	id1 := m.Add(scanOf("t1"))
	id2 := m.Add(scanOf("t1"))
	require.Equal(t, id1, id2)
	require.Len(t, m.Sets(), 1)
	require.Len(t, m.Set(id1).Exprs, 2)
}

func TestAddCreatesDistinctSetsForDifferentShapes(t *testing.T) {
	m := memo.New()
	id1 := m.Add(scanOf("t1"))
	id2 := m.Add(scanOf("t2"))
	require.NotEqual(t, id1, id2)
}

func TestAddToSetSkipsStructuralDuplicate(t *testing.T) {
	m := memo.New()
	id := m.Add(scanOf("t1"))
	m.AddToSet(id, scanOf("t1"))
	require.Len(t, m.Set(id).Exprs, 1)
}

func TestUpdateBestKeepsCheaperCandidate(t *testing.T) {
	m := memo.New()
	id := m.Add(scanOf("t1"))
	traits := algebra.TraitSet{Convention: algebra.Enumerable}

	replaced := m.UpdateBest(id, traits, scanOf("t1"), cost.Cost{Rows: 100, CPU: 100})
	require.True(t, replaced, "first candidate should always beat the infinite initial cost")

	replaced = m.UpdateBest(id, traits, scanOf("t1"), cost.Cost{Rows: 200, CPU: 200})
	require.False(t, replaced, "a more expensive candidate must not replace the cheaper one")

	sub := m.EnsureSubset(id, traits)
	require.Equal(t, 100.0, sub.Cost.Rows)
}
