package catalog

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrUnknownID is reported when a mutation targets a non-existent id (§4.3).
	ErrUnknownID = errors.NewKind("unknown catalog id: %d")
	// ErrInvariantViolated is reported for constraint violations, e.g.
	// dropping the last primary-key placement (§4.3).
	ErrInvariantViolated = errors.NewKind("catalog invariant violated: %s")
	// ErrNameConflict is reported when a DDL operation would duplicate a
	// name within a namespace (names are unique per §3).
	ErrNameConflict = errors.NewKind("name already exists in namespace: %s")
)
