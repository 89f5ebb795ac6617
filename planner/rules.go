// Package planner implements the cost-based, Volcano-style optimizer
// (C5 §4.5): rules rewrite algebra.AlgNode trees inside a memo.Memo,
// and the optimizer picks the cheapest physical implementation of the
// root under the traits the caller requires. Grounded on the teacher's
// sql/analyzer rule-based rewrite passes (predicate pushdown, projection
// pruning) generalized into Calcite-style memo-driven rules.
package planner

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/planner/cost"
)

// RuleKind classifies a Rule the way §4.5 distinguishes them:
// TransformationRule produces an equivalent logical expression,
// ConverterRule changes only traits, and PhysicalRule attaches a cost
// and a physical convention.
type RuleKind int

const (
	TransformationRule RuleKind = iota
	ConverterRule
	PhysicalRule
)

// Rule is one rewrite the optimizer may fire against a memo expression.
type Rule interface {
	Name() string
	Kind() RuleKind
	Matches(n algebra.AlgNode) bool
	Apply(n algebra.AlgNode) []algebra.AlgNode
}

// DefaultRules returns the rule set wired into a fresh Optimizer:
// a handful of transformation rules covering the classic pushdown and
// merge rewrites, plus the single physical rule that stamps the
// Enumerable convention bottom-up.
func DefaultRules() []Rule {
	return []Rule{
		filterProjectTransposeRule{},
		projectMergeRule{},
		filterMergeRule{},
		joinCommuteRule{},
		enumerableImplRule{},
	}
}

// remapIndices rewrites every InputRef in e by looking its current Index
// up in mapping, leaving literals and correlation variables untouched.
func remapIndices(e algebra.RexNode, mapping map[int]int) algebra.RexNode {
	switch v := e.(type) {
	case *algebra.InputRef:
		return &algebra.InputRef{Index: mapping[v.Index], Typ: v.Typ}
	case *algebra.Call:
		args := make([]algebra.RexNode, len(v.Args))
		for i, a := range v.Args {
			args[i] = remapIndices(a, mapping)
		}
		return &algebra.Call{Op: v.Op, Args: args, Typ: v.Typ}
	case *algebra.FieldAccess:
		return &algebra.FieldAccess{Struct: remapIndices(v.Struct, mapping), Name: v.Name, Typ: v.Typ}
	default:
		return e
	}
}

// substitute replaces each InputRef(i) in e with inputs[i], composing two
// stacked Projects' expressions into one.
func substitute(e algebra.RexNode, inputs []algebra.RexNode) algebra.RexNode {
	switch v := e.(type) {
	case *algebra.InputRef:
		return inputs[v.Index]
	case *algebra.Call:
		args := make([]algebra.RexNode, len(v.Args))
		for i, a := range v.Args {
			args[i] = substitute(a, inputs)
		}
		return &algebra.Call{Op: v.Op, Args: args, Typ: v.Typ}
	case *algebra.FieldAccess:
		return &algebra.FieldAccess{Struct: substitute(v.Struct, inputs), Name: v.Name, Typ: v.Typ}
	default:
		return e
	}
}

// ---- FilterProjectTransposeRule ----

// filterProjectTransposeRule pushes a Filter below a pass-through Project
// (one whose expressions are plain column references) so a later pass
// can push it further still, toward a Scan. Only fires when every
// projected expression is an InputRef: anything computed would need its
// own substitution into the condition, which ProjectMergeRule handles
// from the other direction instead.
type filterProjectTransposeRule struct{}

func (filterProjectTransposeRule) Name() string     { return "FilterProjectTranspose" }
func (filterProjectTransposeRule) Kind() RuleKind { return TransformationRule }

func (filterProjectTransposeRule) Matches(n algebra.AlgNode) bool {
	f, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	p, ok := f.Inputs()[0].(*algebra.Project)
	if !ok {
		return false
	}
	for _, e := range p.Exprs {
		if _, ok := e.(*algebra.InputRef); !ok {
			return false
		}
	}
	return true
}

func (filterProjectTransposeRule) Apply(n algebra.AlgNode) []algebra.AlgNode {
	f := n.(*algebra.Filter)
	p := f.Inputs()[0].(*algebra.Project)
	mapping := make(map[int]int, len(p.Exprs))
	for outIdx, e := range p.Exprs {
		mapping[outIdx] = e.(*algebra.InputRef).Index
	}
	base := p.Inputs()[0]
	newFilter := algebra.NewFilter(base, remapIndices(f.Cond, mapping), base.Traits())
	newProject := algebra.NewProject(newFilter, p.Exprs, p.Names)
	return []algebra.AlgNode{newProject}
}

// ---- ProjectMergeRule ----

// projectMergeRule composes two stacked Projects into one, eliminating
// an intermediate row materialization.
type projectMergeRule struct{}

func (projectMergeRule) Name() string     { return "ProjectMerge" }
func (projectMergeRule) Kind() RuleKind { return TransformationRule }

func (projectMergeRule) Matches(n algebra.AlgNode) bool {
	outer, ok := n.(*algebra.Project)
	if !ok {
		return false
	}
	_, ok = outer.Inputs()[0].(*algebra.Project)
	return ok
}

func (projectMergeRule) Apply(n algebra.AlgNode) []algebra.AlgNode {
	outer := n.(*algebra.Project)
	inner := outer.Inputs()[0].(*algebra.Project)
	composed := make([]algebra.RexNode, len(outer.Exprs))
	for i, e := range outer.Exprs {
		composed[i] = substitute(e, inner.Exprs)
	}
	merged := algebra.NewProject(inner.Inputs()[0], composed, outer.Names)
	return []algebra.AlgNode{merged}
}

// ---- FilterMergeRule ----

var andOperator = algebra.Operator{Name: "AND"}

// filterMergeRule combines two stacked Filters into one AND-joined
// condition, so the planner only ever schedules a single predicate
// evaluation per row.
type filterMergeRule struct{}

func (filterMergeRule) Name() string     { return "FilterMerge" }
func (filterMergeRule) Kind() RuleKind { return TransformationRule }

func (filterMergeRule) Matches(n algebra.AlgNode) bool {
	outer, ok := n.(*algebra.Filter)
	if !ok {
		return false
	}
	_, ok = outer.Inputs()[0].(*algebra.Filter)
	return ok
}

func (filterMergeRule) Apply(n algebra.AlgNode) []algebra.AlgNode {
	outer := n.(*algebra.Filter)
	inner := outer.Inputs()[0].(*algebra.Filter)
	combined := &algebra.Call{Op: andOperator, Args: []algebra.RexNode{outer.Cond, inner.Cond}, Typ: outer.Cond.Type()}
	merged := algebra.NewFilter(inner.Inputs()[0], combined, inner.Inputs()[0].Traits())
	return []algebra.AlgNode{merged}
}

// ---- JoinCommuteRule ----

// joinCommuteRule swaps an InnerJoin's sides, giving the optimizer two
// candidate orderings to cost against each other; row-type-changing
// outer joins are left alone since commuting them changes semantics.
type joinCommuteRule struct{}

func (joinCommuteRule) Name() string     { return "JoinCommute" }
func (joinCommuteRule) Kind() RuleKind { return TransformationRule }

func (joinCommuteRule) Matches(n algebra.AlgNode) bool {
	j, ok := n.(*algebra.Join)
	return ok && j.JoinType == algebra.InnerJoin
}

func (joinCommuteRule) Apply(n algebra.AlgNode) []algebra.AlgNode {
	j := n.(*algebra.Join)
	left, right := j.Inputs()[0], j.Inputs()[1]
	leftArity, rightArity := len(left.RowType().Fields), len(right.RowType().Fields)
	mapping := make(map[int]int, leftArity+rightArity)
	for i := 0; i < leftArity; i++ {
		mapping[i] = rightArity + i
	}
	for i := 0; i < rightArity; i++ {
		mapping[leftArity+i] = i
	}
	var cond algebra.RexNode
	if j.Cond != nil {
		cond = remapIndices(j.Cond, mapping)
	}
	swapped, err := algebra.NewJoin(right, left, algebra.InnerJoin, cond)
	if err != nil {
		return nil
	}
	return []algebra.AlgNode{swapped}
}

// ---- enumerableImplRule ----

// enumerableImplRule is the single PhysicalRule wired by default. It
// stamps a Logical-convention node's own trait set to Enumerable and
// assigns it a cost; it does not require (or rebuild) its children,
// since only the root of a candidate plan is compared against the
// optimizer caller's required TraitSet. Real per-store implementations
// are layered on top by the router (C6), which walks the whole tree and
// rewrites Scan into a store-specific physical scan after the planner
// has picked a shape.
type enumerableImplRule struct{}

func (enumerableImplRule) Name() string     { return "EnumerableImpl" }
func (enumerableImplRule) Kind() RuleKind { return PhysicalRule }

func (enumerableImplRule) Matches(n algebra.AlgNode) bool {
	return n.Traits().Convention == algebra.Logical
}

func (enumerableImplRule) Apply(n algebra.AlgNode) []algebra.AlgNode {
	traits := n.Traits()
	traits.Convention = algebra.Enumerable
	return []algebra.AlgNode{n.WithTraits(traits)}
}

// EstimateCost assigns the heuristic per-operator cost §4.5 asks a
// PhysicalRule to provide. Row counts are placeholders in the absence of
// catalog statistics (DOMAIN STACK Open Question, see SPEC_FULL.md);
// what matters for rule selection is each operator's relative weight.
func EstimateCost(n algebra.AlgNode) cost.Cost {
	childCost := cost.Zero()
	rows := 1.0
	for _, in := range n.Inputs() {
		childCost = childCost.Plus(EstimateCost(in))
	}
	switch v := n.(type) {
	case *algebra.Scan:
		return cost.Cost{Rows: 1000, CPU: 1000, IO: 1000}
	case *algebra.Filter:
		inRows := inputRows(v.Inputs()[0])
		return childCost.Plus(cost.Cost{Rows: inRows * 0.33, CPU: inRows})
	case *algebra.Project:
		inRows := inputRows(v.Inputs()[0])
		return childCost.Plus(cost.Cost{Rows: inRows, CPU: inRows * float64(len(v.Exprs))})
	case *algebra.Join:
		l, r := inputRows(v.Inputs()[0]), inputRows(v.Inputs()[1])
		return childCost.Plus(cost.Cost{Rows: l * r * 0.1, CPU: l * r, IO: 0})
	case *algebra.Aggregate:
		inRows := inputRows(v.Inputs()[0])
		return childCost.Plus(cost.Cost{Rows: inRows * 0.1, CPU: inRows * 2})
	case *algebra.Sort:
		inRows := inputRows(v.Inputs()[0])
		return childCost.Plus(cost.Cost{Rows: inRows, CPU: inRows * logApprox(inRows)})
	case *algebra.Exchange:
		inRows := inputRows(v.Inputs()[0])
		return childCost.Plus(cost.Cost{Rows: inRows, IO: inRows})
	default:
		return childCost.Plus(cost.Cost{Rows: rows})
	}
}

func inputRows(n algebra.AlgNode) float64 {
	c := EstimateCost(n)
	if c.Rows <= 0 {
		return 1
	}
	return c.Rows
}

func logApprox(n float64) float64 {
	count := 0.0
	for n > 1 {
		n /= 2
		count++
	}
	if count < 1 {
		return 1
	}
	return count
}
