// Package algebra implements the polystore relational algebra (C2):
// a tree of relational operators and scalar expressions, traits, and
// deterministic row-type propagation. Grounded on the teacher's
// sql/plan (operator tree) and sql/expression (scalar tree) packages.
package algebra

import (
	"strconv"
	"strings"
)

// Convention identifies the runtime that will execute a plan fragment.
// The zero value Logical is the convention produced by the parser and
// consumed by the planner before physical implementation is chosen.
type Convention int

const (
	Logical Convention = iota
	Bindable
	Enumerable
	StoreSpecific
)

func (c Convention) String() string {
	switch c {
	case Logical:
		return "LOGICAL"
	case Bindable:
		return "BINDABLE"
	case Enumerable:
		return "ENUMERABLE"
	case StoreSpecific:
		return "STORE"
	default:
		return "UNKNOWN"
	}
}

// Direction is the sort direction of one collation field.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// NullDirection controls where NULLs sort relative to non-NULL values.
type NullDirection int

const (
	NullsLast NullDirection = iota
	NullsFirst
)

// FieldCollation orders a single row-type field.
type FieldCollation struct {
	FieldIndex int
	Direction  Direction
	Nulls      NullDirection
}

// Collation is an ordered list of FieldCollations; the empty Collation
// means "no ordering guarantee".
type Collation []FieldCollation

func (c Collation) satisfies(required Collation) bool {
	if len(required) > len(c) {
		return false
	}
	for i, rf := range required {
		cf := c[i]
		if cf.FieldIndex != rf.FieldIndex || cf.Direction != rf.Direction || cf.Nulls != rf.Nulls {
			return false
		}
	}
	return true
}

func (c Collation) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		d := "ASC"
		if f.Direction == Descending {
			d = "DESC"
		}
		parts[i] = strconv.Itoa(f.FieldIndex) + " " + d
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// DistributionKind describes how rows of a fragment are spread across
// executor threads/stores.
type DistributionKind int

const (
	Any DistributionKind = iota
	Single
	Hash
	Broadcast
)

// Distribution is a DistributionKind plus, for Hash, the key fields.
type Distribution struct {
	Kind DistributionKind
	Keys []int
}

// TraitSet is the tuple (convention, collation, distribution) that every
// algebra node is annotated with once it leaves the parser/validator.
type TraitSet struct {
	Convention   Convention
	Collation    Collation
	Distribution Distribution
}

// Satisfies reports whether a plan fragment with traits `child` may be
// substituted where traits `parent` are required — the planner's core
// substitutability test (§4.2).
func Satisfies(child, required TraitSet) bool {
	if required.Convention != Logical && child.Convention != required.Convention {
		return false
	}
	if len(required.Collation) > 0 && !child.Collation.satisfies(required.Collation) {
		return false
	}
	if required.Distribution.Kind != Any && child.Distribution.Kind != required.Distribution.Kind {
		return false
	}
	return true
}

// Top returns the most permissive TraitSet (no requirement on any axis).
func Top() TraitSet {
	return TraitSet{Convention: Logical}
}
