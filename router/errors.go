package router

import "gopkg.in/src-d/go-errors.v1"

// ErrNoPlacementCoversColumns is reported when no combination of a
// table's placements can cover the columns a scan projects (§4.6
// Failure): this indicates the catalog's allocation layer is
// inconsistent with its logical layer, not a query error.
var ErrNoPlacementCoversColumns = errors.NewKind("no placement combination for table %q covers columns %v")

// ErrUnsupportedCrossStoreOperator is reported when an operator spans
// adapters that disagree on conventions and no adapter in the pair
// supports a native pushdown, and no coordinator-side implementation
// exists either (§4.6 Failure).
var ErrUnsupportedCrossStoreOperator = errors.NewKind("operator %q cannot run across adapters %d and %d")

// ErrUnknownAdapter is reported when a placement references an adapter
// id that is not registered, which the registry (§4.9) should never
// allow but which the router still checks defensively before dispatch.
var ErrUnknownAdapter = errors.NewKind("adapter %d is not registered")
