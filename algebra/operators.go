package algebra

import (
	"fmt"

	"github.com/polypheny/polypheny-go/types"
)

// JoinType enumerates the supported join semantics (§3 Algebra).
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	SemiJoin
	AntiJoin
)

func (j JoinType) String() string {
	return [...]string{"INNER", "LEFT", "RIGHT", "FULL", "SEMI", "ANTI"}[j]
}

// ModifyOp enumerates TableModify operation kinds.
type ModifyOp int

const (
	Insert ModifyOp = iota
	Update
	Delete
	Merge
)

// ---- Scan ----

type Scan struct {
	base
	Entity EntityRef
}

func NewScan(entity EntityRef, rowType *RowType, traits TraitSet) *Scan {
	return &Scan{base: base{rowType: rowType, traits: traits}, Entity: entity}
}

func (s *Scan) Op() string { return "Scan" }
func (s *Scan) WithTraits(t TraitSet) AlgNode {
	cp := *s
	cp.traits = t
	return &cp
}
func (s *Scan) WithInputs([]AlgNode) AlgNode { return s }

// ---- Values ----

type Values struct {
	base
	Rows [][]RexNode // each row's expressions must be Literal (or foldable constants)
}

func NewValues(rows [][]RexNode, rowType *RowType, traits TraitSet) *Values {
	return &Values{base: base{rowType: rowType, traits: traits}, Rows: rows}
}

func (v *Values) Op() string { return "Values" }
func (v *Values) WithTraits(t TraitSet) AlgNode {
	cp := *v
	cp.traits = t
	return &cp
}
func (v *Values) WithInputs([]AlgNode) AlgNode { return v }

// ---- Filter ----

type Filter struct {
	base
	Cond RexNode
}

// NewFilter propagates the input's row type unchanged (§4.2): a Filter
// never adds, removes, or retypes fields.
func NewFilter(input AlgNode, cond RexNode, traits TraitSet) *Filter {
	return &Filter{base: base{inputs: []AlgNode{input}, rowType: input.RowType(), traits: traits}, Cond: cond}
}

func (f *Filter) Op() string { return "Filter" }
func (f *Filter) WithTraits(t TraitSet) AlgNode {
	cp := *f
	cp.traits = t
	return &cp
}
func (f *Filter) WithInputs(inputs []AlgNode) AlgNode {
	cp := *f
	cp.inputs = inputs
	return &cp
}

// ---- Project ----

type Project struct {
	base
	Exprs []RexNode
	Names []string
}

// NewProject computes the output row type as Record(Names[i]: Exprs[i].Type()),
// and derives collation by mapping the input's collation through any
// input-ref or monotonic single-arg projections (§4.2), tie-broken by
// projection index.
func NewProject(input AlgNode, exprs []RexNode, names []string) *Project {
	fields := make([]types.Field, len(exprs))
	for i, e := range exprs {
		fields[i] = types.Field{Name: names[i], Type: e.Type(), Nullable: e.Type().Nullable}
	}
	rowType := types.RecordOf(fields, false)
	traits := TraitSet{Convention: input.Traits().Convention, Collation: projectCollation(input, exprs), Distribution: input.Traits().Distribution}
	return &Project{base: base{inputs: []AlgNode{input}, rowType: rowType, traits: traits}, Exprs: exprs, Names: names}
}

func projectCollation(input AlgNode, exprs []RexNode) Collation {
	inputCollation := input.Traits().Collation
	if len(inputCollation) == 0 {
		return nil
	}
	// map input field index -> projected position (first occurrence wins,
	// i.e. the lowest projection index, per the spec's tie-break rule)
	mapped := map[int]int{}
	for outIdx, e := range exprs {
		switch ex := e.(type) {
		case *InputRef:
			if _, ok := mapped[ex.Index]; !ok {
				mapped[ex.Index] = outIdx
			}
		case *Call:
			if len(ex.Args) == 1 && ex.Op.Monotonic {
				if ir, ok := ex.Args[0].(*InputRef); ok {
					if _, exists := mapped[ir.Index]; !exists {
						mapped[ir.Index] = outIdx
					}
				}
			}
		}
	}
	var out Collation
	for _, fc := range inputCollation {
		outIdx, ok := mapped[fc.FieldIndex]
		if !ok {
			break // collation only holds as a prefix; stop at first unmapped field
		}
		out = append(out, FieldCollation{FieldIndex: outIdx, Direction: fc.Direction, Nulls: fc.Nulls})
	}
	return out
}

func (p *Project) Op() string { return "Project" }
func (p *Project) WithTraits(t TraitSet) AlgNode {
	cp := *p
	cp.traits = t
	return &cp
}
func (p *Project) WithInputs(inputs []AlgNode) AlgNode {
	cp := *p
	cp.inputs = inputs
	return &cp
}

// ---- Aggregate ----

type AggCall struct {
	Op     Operator
	Args   []RexNode
	Name   string
	Typ    *types.Type
	Distinct bool
}

type Aggregate struct {
	base
	GroupKeys []int // field indices of the input row type
	Aggs      []AggCall
}

// NewAggregate's row type is group keys (in groupKeys order) followed by
// aggregate results, per the teacher's sql/plan.GroupBy schema rule.
func NewAggregate(input AlgNode, groupKeys []int, aggs []AggCall) *Aggregate {
	inRow := input.RowType()
	fields := make([]types.Field, 0, len(groupKeys)+len(aggs))
	for _, k := range groupKeys {
		f := inRow.Fields[k]
		fields = append(fields, f)
	}
	for _, a := range aggs {
		fields = append(fields, types.Field{Name: a.Name, Type: a.Typ, Nullable: a.Typ.Nullable})
	}
	rowType := types.RecordOf(fields, false)
	traits := TraitSet{Convention: input.Traits().Convention}
	return &Aggregate{base: base{inputs: []AlgNode{input}, rowType: rowType, traits: traits}, GroupKeys: groupKeys, Aggs: aggs}
}

func (a *Aggregate) Op() string { return "Aggregate" }
func (a *Aggregate) WithTraits(t TraitSet) AlgNode {
	cp := *a
	cp.traits = t
	return &cp
}
func (a *Aggregate) WithInputs(inputs []AlgNode) AlgNode {
	cp := *a
	cp.inputs = inputs
	return &cp
}

// ---- Join ----

type Join struct {
	base
	JoinType JoinType
	Cond     RexNode
}

// NewJoin's row type is the concatenation left ∥ right, except for
// semi/anti joins where only the left side survives (§4.2).
func NewJoin(left, right AlgNode, joinType JoinType, cond RexNode) (*Join, error) {
	var fields []types.Field
	switch joinType {
	case SemiJoin, AntiJoin:
		fields = append(fields, left.RowType().Fields...)
	case RightJoin:
		fields = append(fields, nullableFields(left.RowType().Fields)...)
		fields = append(fields, right.RowType().Fields...)
	case LeftJoin:
		fields = append(fields, left.RowType().Fields...)
		fields = append(fields, nullableFields(right.RowType().Fields)...)
	case FullJoin:
		fields = append(fields, nullableFields(left.RowType().Fields)...)
		fields = append(fields, nullableFields(right.RowType().Fields)...)
	default: // InnerJoin
		fields = append(fields, left.RowType().Fields...)
		fields = append(fields, right.RowType().Fields...)
	}
	rowType := types.RecordOf(fields, false)
	traits := TraitSet{Convention: Logical}
	return &Join{base: base{inputs: []AlgNode{left, right}, rowType: rowType, traits: traits}, JoinType: joinType, Cond: cond}, nil
}

func nullableFields(fields []types.Field) []types.Field {
	out := make([]types.Field, len(fields))
	for i, f := range fields {
		out[i] = types.Field{Name: f.Name, Type: types.WithNullable(f.Type, true), Nullable: true}
	}
	return out
}

func (j *Join) Op() string { return "Join" }
func (j *Join) WithTraits(t TraitSet) AlgNode {
	cp := *j
	cp.traits = t
	return &cp
}
func (j *Join) WithInputs(inputs []AlgNode) AlgNode {
	cp := *j
	cp.inputs = inputs
	return &cp
}

// ---- Set operations ----

type SetOpKind int

const (
	SetUnion SetOpKind = iota
	SetIntersect
	SetMinus
)

type SetOp struct {
	base
	Kind SetOpKind
	All  bool
}

// NewSetOp requires all inputs to share a pairwise-coercible row type
// (same arity; fields pairwise in the same family, §4.2); the output row
// type is the least-restrictive combination of all inputs' fields.
func NewSetOp(kind SetOpKind, all bool, inputs []AlgNode) (*SetOp, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("set operation requires at least one input")
	}
	arity := len(inputs[0].RowType().Fields)
	for _, in := range inputs[1:] {
		if len(in.RowType().Fields) != arity {
			return nil, fmt.Errorf("set operation inputs have mismatched arity")
		}
	}
	fields := make([]types.Field, arity)
	for i := 0; i < arity; i++ {
		var column []*types.Type
		for _, in := range inputs {
			column = append(column, in.RowType().Fields[i].Type)
		}
		t, err := types.LeastRestrictive(column)
		if err != nil {
			return nil, fmt.Errorf("set operation column %d: %w", i, err)
		}
		fields[i] = types.Field{Name: inputs[0].RowType().Fields[i].Name, Type: t, Nullable: t.Nullable}
	}
	rowType := types.RecordOf(fields, false)
	return &SetOp{base: base{inputs: inputs, rowType: rowType, traits: TraitSet{Convention: Logical}}, Kind: kind, All: all}, nil
}

func (s *SetOp) Op() string {
	switch s.Kind {
	case SetUnion:
		return "Union"
	case SetIntersect:
		return "Intersect"
	default:
		return "Minus"
	}
}
func (s *SetOp) WithTraits(t TraitSet) AlgNode {
	cp := *s
	cp.traits = t
	return &cp
}
func (s *SetOp) WithInputs(inputs []AlgNode) AlgNode {
	cp := *s
	cp.inputs = inputs
	return &cp
}

// ---- Sort ----

type Sort struct {
	base
	Offset *int
	Limit  *int
}

func NewSort(input AlgNode, collation Collation, offset, limit *int) *Sort {
	traits := input.Traits()
	traits.Collation = collation
	return &Sort{base: base{inputs: []AlgNode{input}, rowType: input.RowType(), traits: traits}, Offset: offset, Limit: limit}
}

func (s *Sort) Op() string { return "Sort" }
func (s *Sort) WithTraits(t TraitSet) AlgNode {
	cp := *s
	cp.traits = t
	return &cp
}
func (s *Sort) WithInputs(inputs []AlgNode) AlgNode {
	cp := *s
	cp.inputs = inputs
	return &cp
}

// ---- Window ----

type WindowGroup struct {
	Spec  WindowSpec
	Calls []AggCall
}

type Window struct {
	base
	Groups []WindowGroup
}

// NewWindow appends each group's output columns to the input's row type,
// in group then call order.
func NewWindow(input AlgNode, groups []WindowGroup) *Window {
	fields := append([]types.Field{}, input.RowType().Fields...)
	for _, g := range groups {
		for _, c := range g.Calls {
			fields = append(fields, types.Field{Name: c.Name, Type: c.Typ, Nullable: c.Typ.Nullable})
		}
	}
	rowType := types.RecordOf(fields, false)
	return &Window{base: base{inputs: []AlgNode{input}, rowType: rowType, traits: input.Traits()}, Groups: groups}
}

func (w *Window) Op() string { return "Window" }
func (w *Window) WithTraits(t TraitSet) AlgNode {
	cp := *w
	cp.traits = t
	return &cp
}
func (w *Window) WithInputs(inputs []AlgNode) AlgNode {
	cp := *w
	cp.inputs = inputs
	return &cp
}

// ---- TableModify ----

type TableModify struct {
	base
	Entity            EntityRef
	ModOp             ModifyOp
	UpdateColumns     []string
	SourceExpressions []RexNode
}

// NewTableModify's row type is a single BIGINT "update count" column,
// matching standard DML result semantics.
func NewTableModify(input AlgNode, entity EntityRef, op ModifyOp, updateColumns []string, sourceExprs []RexNode) *TableModify {
	countType, _ := types.Of(types.BigInt, 0, 0, "", "")
	rowType := types.RecordOf([]types.Field{{Name: "ROWCOUNT", Type: countType}}, false)
	var inputs []AlgNode
	if input != nil {
		inputs = []AlgNode{input}
	}
	return &TableModify{
		base:              base{inputs: inputs, rowType: rowType, traits: TraitSet{Convention: Logical}},
		Entity:            entity,
		ModOp:             op,
		UpdateColumns:     updateColumns,
		SourceExpressions: sourceExprs,
	}
}

func (t *TableModify) Op() string { return "TableModify" }
func (t *TableModify) WithTraits(ts TraitSet) AlgNode {
	cp := *t
	cp.traits = ts
	return &cp
}
func (t *TableModify) WithInputs(inputs []AlgNode) AlgNode {
	cp := *t
	cp.inputs = inputs
	return &cp
}

// ---- Exchange ----

type Exchange struct {
	base
}

// NewExchange changes only the distribution trait; row type is unchanged
// (it is the router/planner's distinguished "change partitioning/convention"
// operator, inserted by the optimizer, never by the frontend, §4.2).
func NewExchange(input AlgNode, dist Distribution) *Exchange {
	traits := input.Traits()
	traits.Distribution = dist
	return &Exchange{base: base{inputs: []AlgNode{input}, rowType: input.RowType(), traits: traits}}
}

func (e *Exchange) Op() string { return "Exchange" }
func (e *Exchange) WithTraits(t TraitSet) AlgNode {
	cp := *e
	cp.traits = t
	return &cp
}
func (e *Exchange) WithInputs(inputs []AlgNode) AlgNode {
	cp := *e
	cp.inputs = inputs
	return &cp
}

// ---- Correlate ----

type Correlate struct {
	base
	CorrelationID string
	JoinType      JoinType
}

// NewCorrelate's row type follows Join's rule for the same join type,
// since a decorrelated plan is structurally a join.
func NewCorrelate(left, right AlgNode, correlationID string, joinType JoinType) (*Correlate, error) {
	j, err := NewJoin(left, right, joinType, nil)
	if err != nil {
		return nil, err
	}
	return &Correlate{base: j.base, CorrelationID: correlationID, JoinType: joinType}, nil
}

func (c *Correlate) Op() string { return "Correlate" }
func (c *Correlate) WithTraits(t TraitSet) AlgNode {
	cp := *c
	cp.traits = t
	return &cp
}
func (c *Correlate) WithInputs(inputs []AlgNode) AlgNode {
	cp := *c
	cp.inputs = inputs
	return &cp
}
