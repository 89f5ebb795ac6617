package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/parser"
)

func TestParseValidSelect(t *testing.T) {
	stmt, err := parser.Parse("SELECT 1 FROM dual")
	require.NoError(t, err)
	require.NotNil(t, stmt)
}

func TestParseRejectsMalformedSQL(t *testing.T) {
	_, err := parser.Parse("SELECT FROM FROM FROM")
	require.Error(t, err)
	require.True(t, parser.ErrParse.Is(err))
}
