package planner

import (
	"fmt"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/planner/cost"
	"github.com/polypheny/polypheny-go/planner/memo"
)

// Optimizer runs rule-based exploration over a memo.Memo and picks the
// cheapest physical plan under a caller-supplied required TraitSet
// (§4.5). It is the only planner entry point a caller needs; Memo, Rule
// and Cost are building blocks it composes.
type Optimizer struct {
	rules         []Rule
	maxIterations int
	logicalCache  *PlanCache
	implCache     *ImplementationCache
}

// NewOptimizer builds an Optimizer with the given rule set (DefaultRules
// if nil) and bounded plan/implementation caches.
func NewOptimizer(rules []Rule) *Optimizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Optimizer{
		rules:         rules,
		maxIterations: 200,
		logicalCache:  NewPlanCache(256),
		implCache:     NewImplementationCache(256),
	}
}

// Optimize returns the cheapest physical plan equivalent to root that
// satisfies required, along with its estimated cost. generation is the
// catalog.Snapshot generation the plan is valid against; it keys the
// implementation cache so a DDL change transparently invalidates stale
// entries instead of serving them (§4.5, §6).
func (o *Optimizer) Optimize(root algebra.AlgNode, required algebra.TraitSet, generation int64) (algebra.AlgNode, cost.Cost, error) {
	key := fmt.Sprintf("%s|%s", signature(root), traitsKey(required))
	if cached, ok := o.implCache.Get(key, generation); ok {
		return cached, EstimateCost(cached), nil
	}

	m := memo.New()
	rootID := m.Add(root)

	o.exploreLogical(m)

	best, bestCost, found := o.bestPlanFor(m, rootID, required)
	if !found {
		return nil, cost.Cost{}, ErrNoImplementation.New(traitsKey(required))
	}

	o.implCache.Put(key, generation, best)
	return best, bestCost, nil
}

// exploreLogical applies every TransformationRule to every expression in
// the memo to a fixpoint (or until maxIterations elapses), discovering
// alternative logical shapes for the same RelSet.
func (o *Optimizer) exploreLogical(m *memo.Memo) {
	for iter := 0; iter < o.maxIterations; iter++ {
		progress := false
		for _, set := range m.Sets() {
			exprs := append([]algebra.AlgNode{}, set.Exprs...)
			for _, expr := range exprs {
				for _, r := range o.rules {
					if r.Kind() != TransformationRule || !r.Matches(expr) {
						continue
					}
					for _, out := range r.Apply(expr) {
						if out == nil {
							continue
						}
						before := len(m.Set(set.ID).Exprs)
						m.AddToSet(set.ID, out)
						if len(m.Set(set.ID).Exprs) != before {
							progress = true
						}
					}
				}
			}
		}
		if !progress {
			break
		}
	}
}

// bestPlanFor applies every PhysicalRule to each logical shape discovered
// for rootID, keeping the cheapest physical candidate whose traits
// satisfy required. Physical rules are applied directly here rather than
// folded into the memo's own Exprs list: memo.Memo dedups by
// algebra.Equal, which is explicitly defined modulo trait set (§4.2), so
// a physical stamping of an already-present logical expression would
// never be recognized as distinct there.
func (o *Optimizer) bestPlanFor(m *memo.Memo, rootID memo.SetID, required algebra.TraitSet) (algebra.AlgNode, cost.Cost, bool) {
	set := m.Set(rootID)
	var best algebra.AlgNode
	bestCost := cost.Infinity()
	found := false
	for _, logical := range set.Exprs {
		for _, r := range o.rules {
			if r.Kind() != PhysicalRule || !r.Matches(logical) {
				continue
			}
			for _, candidate := range r.Apply(logical) {
				if candidate == nil || !algebra.Satisfies(candidate.Traits(), required) {
					continue
				}
				c := EstimateCost(candidate)
				if c.Less(bestCost) {
					best, bestCost, found = candidate, c, true
				}
			}
		}
	}
	return best, bestCost, found
}

// signature renders a canonical, parameter-stripped shape of a plan:
// literal values are elided so two invocations of the same prepared
// statement with different arguments hit the same cache entry (§4.5,
// §6 Parameterized statements).
func signature(n algebra.AlgNode) string {
	if n == nil {
		return "nil"
	}
	s := n.Op()
	for _, in := range n.Inputs() {
		s += "(" + signature(in) + ")"
	}
	return s
}

func traitsKey(t algebra.TraitSet) string {
	return fmt.Sprintf("%d/%v/%d", t.Convention, t.Collation, t.Distribution.Kind)
}
