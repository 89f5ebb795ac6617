package parser

import (
	"strconv"

	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrParse is reported when vitess's sqlparser rejects the query text
	// outright; the position argument is reported as unknown (?:?), and the
	// vitess error text that follows carries the parser's own offset (§7).
	ErrParse = errors.NewKind("parse error at %s: %s")
	// ErrValidation is reported for a validator failure with a source
	// position attached, e.g. an unresolvable table or malformed DML
	// target (§4.4, §7: "ParseError, ValidationError (source position
	// required)").
	ErrValidation = errors.NewKind("validation error at %s: %s")
	// ErrAmbiguousColumn is reported when an unqualified column name is
	// exposed by more than one input to the current scope (§4.4).
	ErrAmbiguousColumn = errors.NewKind("ambiguous column %q at %s: exposed by more than one input")
	// ErrNoMatchingOverload is reported when function-overload resolution
	// finds zero operand-type-family matches (§4.4).
	ErrNoMatchingOverload = errors.NewKind("no matching overload for %s(%s) at %s")
	// ErrUnknownTable is reported when a table/collection name does not
	// resolve under the name-resolution order of §4.4.
	ErrUnknownTable = errors.NewKind("unknown table %q at %s")
	// ErrUnknownColumn mirrors ErrUnknownTable for column names.
	ErrUnknownColumn = errors.NewKind("unknown column %q at %s")
	// ErrUnsupported marks SQL surface this validator does not cover yet;
	// reported instead of silently mis-parsing.
	ErrUnsupported = errors.NewKind("unsupported SQL construct: %s")
)

// Position is a source location, reported on every ParseError/ValidationError
// per §7.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	if p.Line == 0 && p.Col == 0 {
		return "?:?"
	}
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}
