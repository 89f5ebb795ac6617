package types

import "fmt"

// Coercibility ranks how strongly a collation was assigned to an
// expression, per the dyadic coercibility rules referenced in §4.1:
// explicit > implicit > coercible > no-collation.
type Coercibility int

const (
	NoCollation Coercibility = iota
	Coercible
	Implicit
	Explicit
)

// CombineCollations applies the dyadic coercibility rules: the stronger
// coercibility wins; equal coercibility requires equal collations or
// reports ErrIncompatibleFamilies.
func CombineCollations(aColl string, aCoerc Coercibility, bColl string, bCoerc Coercibility) (string, Coercibility, error) {
	if aCoerc > bCoerc {
		return aColl, aCoerc, nil
	}
	if bCoerc > aCoerc {
		return bColl, bCoerc, nil
	}
	if aColl != bColl {
		return "", 0, ErrIncompatibleFamilies.New(fmt.Sprintf("collation %s vs %s at equal coercibility", aColl, bColl))
	}
	return aColl, aCoerc, nil
}

// CanCoerce reports whether a value of type from can be implicitly
// coerced to type to (same family, and for character types the same
// charset).
func CanCoerce(from, to *Type) bool {
	if from == nil || to == nil {
		return true
	}
	if from.Kind == Null || to.Kind == Any {
		return true
	}
	ff, tf := Family(from), Family(to)
	if ff == tf {
		if ff == FamilyCharacter && from.Charset != "" && to.Charset != "" && from.Charset != to.Charset {
			return false
		}
		return true
	}
	return false
}

// Coercion describes how an expression of type From must be converted
// (via CAST) to satisfy Target. NeedsCast is false when From already
// satisfies Target exactly or by widening that requires no runtime work
// (e.g. nullability relaxation).
type Coercion struct {
	From      *Type
	Target    *Type
	NeedsCast bool
}

// Coerce decides how to reconcile an expression's type with a required
// target type.
// It does not rewrite the expression tree itself — the caller (parser or
// expression builder) wraps the expression in a CAST when NeedsCast is set.
func Coerce(from, target *Type) (*Coercion, error) {
	if !CanCoerce(from, target) {
		return nil, ErrIncompatibleFamilies.New(fmt.Sprintf("%s -> %s", from, target))
	}
	needsCast := !Equal(from, target)
	return &Coercion{From: from, Target: target, NeedsCast: needsCast}, nil
}
