package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/types"
)

func TestDecimalArithAddition(t *testing.T) {
	a, err := types.Of(types.Decimal, 5, 2, "", "")
	require.NoError(t, err)
	b, err := types.Of(types.Decimal, 7, 3, "", "")
	require.NoError(t, err)

	r, err := types.DecimalArith(a, b, '+')
	require.NoError(t, err)
	// max(5-2,7-3)+max(2,3)+1 = max(3,4)+3+1 = 8
	require.Equal(t, 8, r.Precision)
	require.Equal(t, 3, r.Scale)
}

func TestDecimalArithOverflow(t *testing.T) {
	a, _ := types.Of(types.Decimal, 65, 2, "", "")
	b, _ := types.Of(types.Decimal, 65, 2, "", "")
	_, err := types.DecimalArith(a, b, '+')
	require.Error(t, err)
	require.True(t, types.ErrOverflow.Is(err))
}

func TestPrecisionOutOfRange(t *testing.T) {
	_, err := types.Of(types.Timestamp, 0, 0, "", "")
	require.NoError(t, err)
	_, err = types.Of(types.Time, 10, 0, "", "")
	require.Error(t, err)
	require.True(t, types.ErrPrecisionOutOfRange.Is(err))
}

func TestLeastRestrictiveNumeric(t *testing.T) {
	i, _ := types.Of(types.Integer, 0, 0, "", "")
	bi, _ := types.Of(types.BigInt, 0, 0, "", "")
	result, err := types.LeastRestrictive([]*types.Type{i, bi})
	require.NoError(t, err)
	require.Equal(t, types.BigInt, result.Kind)
}

func TestLeastRestrictiveIncompatible(t *testing.T) {
	i, _ := types.Of(types.Integer, 0, 0, "", "")
	c, _ := types.Of(types.VarChar, 16, 0, "utf8", "")
	_, err := types.LeastRestrictive([]*types.Type{i, c})
	require.Error(t, err)
	require.True(t, types.ErrIncompatibleFamilies.Is(err))
}

func TestLeastRestrictiveWithNull(t *testing.T) {
	i, _ := types.Of(types.Integer, 0, 0, "", "")
	result, err := types.LeastRestrictive([]*types.Type{i, nil})
	require.NoError(t, err)
	require.Equal(t, types.Integer, result.Kind)
	require.True(t, result.Nullable)
}

func TestCoerceNeedsCast(t *testing.T) {
	i, _ := types.Of(types.Integer, 0, 0, "", "")
	bi, _ := types.Of(types.BigInt, 0, 0, "", "")
	c, err := types.Coerce(i, bi)
	require.NoError(t, err)
	require.True(t, c.NeedsCast)
}

func TestCombineCollationsConflict(t *testing.T) {
	_, _, err := types.CombineCollations("utf8_bin", types.Explicit, "utf8_general_ci", types.Explicit)
	require.Error(t, err)
}
