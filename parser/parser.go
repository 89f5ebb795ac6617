// Package parser implements the parser & validator (C4): a thin wrapper
// over vitess's sqlparser (parse tree), and a Validator that resolves
// names against a catalog.Snapshot and lowers the result to this
// module's own convention-neutral algebra (C2). Grounded directly on the
// teacher's engine.go, which parses with
// sqlparser.ParseOneWithOptions(query, sqlMode.ParserOptions()) before
// handing the statement to its planbuilder — this package plays the
// planbuilder's role, targeting algebra.AlgNode instead of sql.Node.
package parser

import (
	"github.com/dolthub/vitess/go/vt/sqlparser"
)

// Parse parses a single SQL statement with vitess's default dialect
// options. The teacher additionally threads a session sql_mode through
// sqlMode.ParserOptions(); this module has no session-level SQL-mode
// concept (DOMAIN STACK Open Question, recorded in SPEC_FULL.md), so it
// always parses with the default ParserOptions.
func Parse(sql string) (sqlparser.Statement, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, ErrParse.New(Position{}.String(), err.Error())
	}
	return stmt, nil
}
