// Package types implements the polystore type system (PURPOSE & SCOPE C1):
// scalar and composite data types, type families, nullability and the
// coercion rules used by the validator (C4) and the expression layer (C2).
package types

import (
	"fmt"

	"gopkg.in/src-d/go-errors.v1"
)

// PolyType tags the shape of a Type. It intentionally does not distinguish
// nullability or parameters (precision, scale, charset) — those live on
// the surrounding Type value.
type PolyType int

const (
	Invalid PolyType = iota
	Boolean
	TinyInt
	SmallInt
	Integer
	BigInt
	Decimal
	Float
	Double
	Char
	VarChar
	Date
	Time
	Timestamp
	IntervalYearMonth
	IntervalDaySecond
	Array
	Multiset
	Record
	Any
	Null
)

func (p PolyType) String() string {
	switch p {
	case Boolean:
		return "BOOLEAN"
	case TinyInt:
		return "TINYINT"
	case SmallInt:
		return "SMALLINT"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Decimal:
		return "DECIMAL"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Char:
		return "CHAR"
	case VarChar:
		return "VARCHAR"
	case Date:
		return "DATE"
	case Time:
		return "TIME"
	case Timestamp:
		return "TIMESTAMP"
	case IntervalYearMonth:
		return "INTERVAL YEAR TO MONTH"
	case IntervalDaySecond:
		return "INTERVAL DAY TO SECOND"
	case Array:
		return "ARRAY"
	case Multiset:
		return "MULTISET"
	case Record:
		return "RECORD"
	case Any:
		return "ANY"
	case Null:
		return "NULL"
	default:
		return "INVALID"
	}
}

// TypeFamily groups PolyTypes for the purposes of coercion (§4.1).
type TypeFamily int

const (
	FamilyNone TypeFamily = iota
	FamilyNumeric
	FamilyCharacter
	FamilyDatetime
	FamilyInterval
	FamilyBoolean
	FamilyCollection
	FamilyAny
)

// Field describes one member of a Record type.
type Field struct {
	Name     string
	Type     *Type
	Nullable bool
}

// Type is an immutable, tagged value describing a scalar or composite
// polystore data type. Zero value is invalid; use the of/With* helpers.
type Type struct {
	Kind      PolyType
	Nullable  bool
	Precision int // DECIMAL precision, CHAR/VARCHAR length, datetime fractional-second precision
	Scale     int // DECIMAL scale
	Charset   string
	Collation string
	Component *Type  // element type for Array/Multiset
	Fields    []Field // members for Record
}

var (
	// ErrPrecisionOutOfRange is reported when a datetime precision exceeds 9
	// or a DECIMAL precision/scale combination is not representable.
	ErrPrecisionOutOfRange = errors.NewKind("precision out of range: %s")
	// ErrOverflow is reported when DECIMAL arithmetic overflows its result type.
	ErrOverflow = errors.NewKind("numeric overflow computing %s")
	// ErrIncompatibleFamilies is reported by leastRestrictive when no common
	// type exists for the given family.
	ErrIncompatibleFamilies = errors.NewKind("incompatible types: %s")
)

const maxDateTimePrecision = 9

// Of constructs a Type for a scalar PolyType, validating precision/scale
// where applicable. charset/collation apply only to Char/VarChar.
func Of(kind PolyType, precision, scale int, charset, collation string) (*Type, error) {
	t := &Type{Kind: kind, Precision: precision, Scale: scale, Charset: charset, Collation: collation}
	switch kind {
	case Decimal:
		if precision <= 0 || scale < 0 || scale > precision {
			return nil, ErrPrecisionOutOfRange.New(fmt.Sprintf("DECIMAL(%d,%d)", precision, scale))
		}
	case Time, Timestamp:
		if precision < 0 || precision > maxDateTimePrecision {
			return nil, ErrPrecisionOutOfRange.New(fmt.Sprintf("%s(%d)", kind, precision))
		}
	case Char, VarChar:
		if charset == "" {
			t.Charset = "utf8"
		}
	}
	return t, nil
}

// WithNullable returns a copy of t with the nullable flag set.
func WithNullable(t *Type, nullable bool) *Type {
	cp := *t
	cp.Nullable = nullable
	return &cp
}

// ArrayOf builds an ARRAY(elem) type.
func ArrayOf(elem *Type, nullable bool) *Type {
	return &Type{Kind: Array, Nullable: nullable, Component: elem}
}

// MultisetOf builds a MULTISET(elem) type.
func MultisetOf(elem *Type, nullable bool) *Type {
	return &Type{Kind: Multiset, Nullable: nullable, Component: elem}
}

// RecordOf builds a RECORD(fields...) type.
func RecordOf(fields []Field, nullable bool) *Type {
	return &Type{Kind: Record, Nullable: nullable, Fields: fields}
}

// Family classifies t for the purposes of coercion.
func Family(t *Type) TypeFamily {
	switch t.Kind {
	case Boolean:
		return FamilyBoolean
	case TinyInt, SmallInt, Integer, BigInt, Decimal, Float, Double:
		return FamilyNumeric
	case Char, VarChar:
		return FamilyCharacter
	case Date, Time, Timestamp:
		return FamilyDatetime
	case IntervalYearMonth, IntervalDaySecond:
		return FamilyInterval
	case Array, Multiset, Record:
		return FamilyCollection
	case Any:
		return FamilyAny
	default:
		return FamilyNone
	}
}

// numericRank orders numeric kinds from narrowest to widest for widening
// decisions; DECIMAL is handled specially by decimalPlus/decimalResult.
var numericRank = map[PolyType]int{
	TinyInt: 0, SmallInt: 1, Integer: 2, BigInt: 3, Decimal: 4, Float: 5, Double: 6,
}

// LeastRestrictive returns the narrowest type that every input can be
// implicitly coerced to, or an error if the family is mixed and no common
// type exists. nil entries (representing an untyped NULL literal) are
// ignored for the purpose of choosing a kind but make the result nullable.
func LeastRestrictive(ts []*Type) (*Type, error) {
	var nullable bool
	var chosen *Type
	fam := FamilyNone
	for _, t := range ts {
		if t == nil || t.Kind == Null {
			nullable = true
			continue
		}
		if t.Nullable {
			nullable = true
		}
		if t.Kind == Any {
			continue
		}
		f := Family(t)
		if fam == FamilyNone {
			fam = f
		} else if fam != f {
			return nil, ErrIncompatibleFamilies.New(fmt.Sprintf("%v vs %v", fam, f))
		}
		if chosen == nil {
			chosen = t
			continue
		}
		chosen = widen(chosen, t)
	}
	if chosen == nil {
		n := &Type{Kind: Null, Nullable: true}
		return n, nil
	}
	return WithNullable(chosen, nullable), nil
}

func widen(a, b *Type) *Type {
	switch Family(a) {
	case FamilyNumeric:
		if a.Kind == Decimal || b.Kind == Decimal {
			return decimalResult(asDecimal(a), asDecimal(b), '+')
		}
		if numericRank[b.Kind] > numericRank[a.Kind] {
			return b
		}
		return a
	case FamilyCharacter:
		if b.Precision > a.Precision {
			return b
		}
		return a
	default:
		return a
	}
}

func asDecimal(t *Type) *Type {
	if t.Kind == Decimal {
		return t
	}
	p, s := precisionScaleOf(t.Kind)
	return &Type{Kind: Decimal, Precision: p, Scale: s, Nullable: t.Nullable}
}

func precisionScaleOf(k PolyType) (int, int) {
	switch k {
	case TinyInt:
		return 3, 0
	case SmallInt:
		return 5, 0
	case Integer:
		return 10, 0
	case BigInt:
		return 19, 0
	default:
		return 15, 4
	}
}

// decimalResult implements the SQL-standard DECIMAL(p,s) arithmetic rules
// from §4.1. op is one of '+','-','*','/'.
func decimalResult(a, b *Type, op byte) *Type {
	switch op {
	case '+', '-':
		s := maxInt(a.Scale, b.Scale)
		p := maxInt(a.Precision-a.Scale, b.Precision-b.Scale) + s + 1
		return &Type{Kind: Decimal, Precision: p, Scale: s}
	case '*':
		return &Type{Kind: Decimal, Precision: a.Precision + b.Precision + 1, Scale: a.Scale + b.Scale}
	default: // '/'
		s := maxInt(a.Scale+b.Precision-b.Scale+1, 6)
		return &Type{Kind: Decimal, Precision: a.Precision - a.Scale + b.Scale + s, Scale: s}
	}
}

// DecimalArith computes the result Type of a DECIMAL arithmetic expression,
// reporting ErrOverflow when the resulting precision is not representable
// (capped here at 65 digits, matching common SQL engine limits).
func DecimalArith(a, b *Type, op byte) (*Type, error) {
	r := decimalResult(asDecimal(a), asDecimal(b), op)
	if r.Precision > 65 {
		return nil, ErrOverflow.New(fmt.Sprintf("DECIMAL(%d,%d) %c DECIMAL(%d,%d)", a.Precision, a.Scale, op, b.Precision, b.Scale))
	}
	return r, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Equal reports whether two types are structurally equal, ignoring
// collation strength markers (only charset/collation identity matters).
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Nullable != b.Nullable {
		return false
	}
	switch a.Kind {
	case Decimal:
		return a.Precision == b.Precision && a.Scale == b.Scale
	case Char, VarChar:
		return a.Precision == b.Precision && a.Charset == b.Charset && a.Collation == b.Collation
	case Array, Multiset:
		return Equal(a.Component, b.Component)
	case Record:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !Equal(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t *Type) String() string {
	switch t.Kind {
	case Decimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case Char, VarChar:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Precision)
	case Array:
		return fmt.Sprintf("ARRAY(%s)", t.Component)
	case Multiset:
		return fmt.Sprintf("MULTISET(%s)", t.Component)
	default:
		return t.Kind.String()
	}
}
