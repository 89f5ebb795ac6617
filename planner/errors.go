package planner

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrNoImplementation is reported when rule exploration exhausts its
	// budget without finding a physical plan satisfying the required
	// traits (§4.5).
	ErrNoImplementation = errors.NewKind("no physical implementation satisfies required traits: %s")
)
