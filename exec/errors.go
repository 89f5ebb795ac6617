package exec

import "gopkg.in/src-d/go-errors.v1"

// ErrUnsupportedNode is reported when Compile reaches an algebra.AlgNode
// or router physical node the executor has no operator for (§4.7).
var ErrUnsupportedNode = errors.NewKind("executor: no operator implements node %q")

// ErrUnsupportedExpr is reported when the scalar evaluator reaches a
// RexNode kind or operator it does not know how to evaluate (§4.2/§4.7).
var ErrUnsupportedExpr = errors.NewKind("executor: cannot evaluate expression %q")

// ErrUnknownAdapter is reported when a physical node names an adapter id
// the registry does not hold, mirroring the router's own defensive check
// (§4.9).
var ErrUnknownAdapter = errors.NewKind("executor: adapter %d is not registered")
