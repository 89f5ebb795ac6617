package algebra

import "github.com/polypheny/polypheny-go/types"

// RowType is the record type describing the output rows of an AlgNode;
// it is exactly a types.Type of Kind Record.
type RowType = types.Type

// EntityRef identifies the logical catalog entity a Scan reads, by
// namespace-qualified name and id. The catalog package is the source of
// truth; algebra only needs enough to resolve and to print plans.
type EntityRef struct {
	NamespaceID int64
	TableID     int64
	Name        string
}

// AlgNode is a node of arity 0..n in the relational algebra tree (C2).
// Implementations are tagged variants over a closed operator set
// (§9 "Deep inheritance" redesign) rather than a class hierarchy: each
// concrete struct below implements this interface directly.
type AlgNode interface {
	// Op names the operator kind, e.g. "Scan", "Filter", "Join".
	Op() string
	// Inputs returns this node's child AlgNodes, in order.
	Inputs() []AlgNode
	// RowType returns the deterministic row type for this node (§4.2
	// invariant i): a pure function of operator kind + input row types.
	RowType() *RowType
	// Traits returns the node's current trait set.
	Traits() TraitSet
	// WithTraits returns a copy of this node with Traits replaced; used
	// by the planner to explore alternative physical implementations of
	// the same logical content.
	WithTraits(TraitSet) AlgNode
	// WithInputs returns a copy of this node with Inputs replaced,
	// keeping RowType and Traits unchanged. Used by the router (C6) to
	// rebuild a tree bottom-up after swapping a logical Scan for one or
	// more physical scans: callers must only substitute inputs whose
	// RowType exactly matches the one being replaced, since no recomputation
	// happens here (mirrors Calcite's RelNode.copy(traitSet, inputs)).
	WithInputs([]AlgNode) AlgNode
}

// base carries the fields shared by (almost) every operator; concrete
// operators embed it rather than repeating RowType/Traits bookkeeping.
type base struct {
	inputs  []AlgNode
	rowType *RowType
	traits  TraitSet
}

func (b *base) Inputs() []AlgNode   { return b.inputs }
func (b *base) RowType() *RowType   { return b.rowType }
func (b *base) Traits() TraitSet    { return b.traits }

// Equal reports structural equality of two algebra trees modulo trait set
// (§4.2 invariant iii), recursing through inputs. Operator payloads are
// compared only for Scan (table id), Filter, Project and Join (type and
// condition); any other operators are equal when their Op and inputs are.
func Equal(a, b AlgNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Op() != b.Op() {
		return false
	}
	ai, bi := a.Inputs(), b.Inputs()
	if len(ai) != len(bi) {
		return false
	}
	for i := range ai {
		if !Equal(ai[i], bi[i]) {
			return false
		}
	}
	return equalExprs(a, b)
}

// equalExprs compares the operator-specific scalar payload (conditions,
// projections, ...) of two nodes already known to share an Op and input
// count. It type-switches because each operator carries different
// expression fields.
func equalExprs(a, b AlgNode) bool {
	switch av := a.(type) {
	case *Filter:
		return RexEqual(av.Cond, b.(*Filter).Cond)
	case *Project:
		bv := b.(*Project)
		if len(av.Exprs) != len(bv.Exprs) {
			return false
		}
		for i := range av.Exprs {
			if !RexEqual(av.Exprs[i], bv.Exprs[i]) || av.Names[i] != bv.Names[i] {
				return false
			}
		}
		return true
	case *Join:
		bv := b.(*Join)
		return av.JoinType == bv.JoinType && RexEqual(av.Cond, bv.Cond)
	case *Scan:
		return av.Entity.TableID == b.(*Scan).Entity.TableID
	default:
		return true
	}
}
