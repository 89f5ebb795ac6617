// Package memo implements the planner's Volcano-style memoization
// structure (C5 §4.5): RelSets partition structurally-equivalent algebra
// expressions, and RelSubsets within a set hold the best plan found so
// far for one required TraitSet. Grounded on the teacher's sql/memo
// package, reworked around an arena of sets referenced by index (§9
// "Cyclic graphs": avoid cyclic ownership — a subset refers to its set
// by index, a set holds subsets by value).
package memo

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/planner/cost"
)

// SetID indexes into Memo.sets.
type SetID int32

// RelSubset is the best-known implementation of its RelSet's equivalence
// class under one required algebra.TraitSet.
type RelSubset struct {
	SetID  SetID
	Traits algebra.TraitSet
	Best   algebra.AlgNode
	Cost   cost.Cost
}

// RelSet groups every algebra.AlgNode expression proven equivalent
// (interchangeable) so far, plus the RelSubsets indexing them by
// required trait set.
type RelSet struct {
	ID      SetID
	Exprs   []algebra.AlgNode
	Subsets []RelSubset
}

// Memo is the arena of RelSets. Expressions are de-duplicated by
// structural equality modulo traits (§4.5).
type Memo struct {
	sets []*RelSet
}

func New() *Memo {
	return &Memo{}
}

// Sets returns every RelSet in the memo, for inspection/testing.
func (m *Memo) Sets() []*RelSet {
	return m.sets
}

// Add inserts expr into the memo, returning the SetID of the equivalence
// class it belongs to. If an equal expression (modulo traits) is already
// present, expr is merged into that set instead of creating a new one.
func (m *Memo) Add(expr algebra.AlgNode) SetID {
	for _, s := range m.sets {
		for _, e := range s.Exprs {
			if algebra.Equal(e, expr) {
				s.Exprs = append(s.Exprs, expr)
				return s.ID
			}
		}
	}
	id := SetID(len(m.sets))
	m.sets = append(m.sets, &RelSet{ID: id, Exprs: []algebra.AlgNode{expr}})
	return id
}

// Set returns the RelSet for id.
func (m *Memo) Set(id SetID) *RelSet {
	return m.sets[id]
}

// AddToSet records expr as an alternative, proven-equivalent expression
// within an already-known RelSet — the case a TransformationRule
// produces: its output is semantically equivalent to its input by
// construction, even though the two trees are rarely structurally equal
// (that would make the rule a no-op). Add, by contrast, only merges
// expressions that are structurally equal outright.
func (m *Memo) AddToSet(id SetID, expr algebra.AlgNode) {
	s := m.sets[id]
	for _, e := range s.Exprs {
		if algebra.Equal(e, expr) {
			return
		}
	}
	s.Exprs = append(s.Exprs, expr)
}

// EnsureSubset returns the RelSubset of set `id` for the given required
// traits, creating an empty one (infinite cost, no best plan yet) if
// absent.
func (m *Memo) EnsureSubset(id SetID, traits algebra.TraitSet) *RelSubset {
	s := m.sets[id]
	for i := range s.Subsets {
		if traitsEqual(s.Subsets[i].Traits, traits) {
			return &s.Subsets[i]
		}
	}
	s.Subsets = append(s.Subsets, RelSubset{SetID: id, Traits: traits, Cost: cost.Infinity()})
	return &s.Subsets[len(s.Subsets)-1]
}

// traitsEqual compares two TraitSets field-by-field; TraitSet holds
// slices (Collation, Distribution.Keys) so it is not `==`-comparable.
func traitsEqual(a, b algebra.TraitSet) bool {
	if a.Convention != b.Convention {
		return false
	}
	if len(a.Collation) != len(b.Collation) {
		return false
	}
	for i := range a.Collation {
		if a.Collation[i] != b.Collation[i] {
			return false
		}
	}
	if a.Distribution.Kind != b.Distribution.Kind {
		return false
	}
	if len(a.Distribution.Keys) != len(b.Distribution.Keys) {
		return false
	}
	for i := range a.Distribution.Keys {
		if a.Distribution.Keys[i] != b.Distribution.Keys[i] {
			return false
		}
	}
	return true
}

// UpdateBest replaces a subset's best plan if candidateCost is strictly
// better than what is stored; on a tie the stored plan is kept, and
// neither Memo nor its caller in the optimizer applies another tie-break.
func (m *Memo) UpdateBest(id SetID, traits algebra.TraitSet, candidate algebra.AlgNode, candidateCost cost.Cost) bool {
	sub := m.EnsureSubset(id, traits)
	if candidateCost.Less(sub.Cost) {
		sub.Best = candidate
		sub.Cost = candidateCost
		return true
	}
	return false
}
