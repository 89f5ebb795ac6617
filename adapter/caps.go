package adapter

import "github.com/polypheny/polypheny-go/algebra"

// Caps describes what an adapter implementation can do natively, so the
// router (C6) and planner (C5) know when a pushdown is possible instead
// of always inserting a coordinator-side operator (§4.9).
type Caps struct {
	SchemaReadOnly       bool
	SupportsIndex        bool
	SupportsSort         bool
	SupportsAggregation  bool
	SupportedJoinTypes   []algebra.JoinType
}

// SupportsJoin reports whether jt is in SupportedJoinTypes.
func (c Caps) SupportsJoin(jt algebra.JoinType) bool {
	for _, t := range c.SupportedJoinTypes {
		if t == jt {
			return true
		}
	}
	return false
}
