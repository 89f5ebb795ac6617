package cost_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/planner/cost"
)

func TestLessComparesRowsFirst(t *testing.T) {
	fewerRows := cost.Cost{Rows: 1, CPU: 20, IO: 1}
	moreRows := cost.Cost{Rows: 1000, CPU: 10, IO: 10}
	require.True(t, fewerRows.Less(moreRows))
}

func TestLessFallsBackToCPUOnRowTie(t *testing.T) {
	a := cost.Cost{Rows: 5, CPU: 10, IO: 5}
	b := cost.Cost{Rows: 5, CPU: 20, IO: 5}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

func TestInfinityLosesToAnyRealCost(t *testing.T) {
	require.True(t, cost.Cost{Rows: 1, CPU: 1, IO: 1}.Less(cost.Infinity()))
}

func TestPlusAccumulates(t *testing.T) {
	total := cost.Cost{Rows: 1, CPU: 2, IO: 3}.Plus(cost.Cost{Rows: 1, CPU: 2, IO: 3})
	require.Equal(t, cost.Cost{Rows: 2, CPU: 4, IO: 6}, total)
}
