// Package adapter defines the abstract store interface (C9) consumed by
// the router (C6), executor (C7) and transaction manager (C8). Adapter
// methods are synchronous from the core's perspective even though an
// implementation may internally be asynchronous (§4.9).
package adapter

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
)

// TxnToken identifies a transaction to an adapter without exposing the
// transaction manager's internals; adapters treat it as an opaque key.
type TxnToken string

// RowStream is a pull-based iterator over rows read from an adapter,
// consumed by the executor (C7).
type RowStream interface {
	Next(ctx *session.Context) (Row, bool, error)
	Close() error
}

// Row is a single physical row: positional values matching the physical
// column subset requested from Scan.
type Row []interface{}

// Plan is the adapter-facing description of an insert/update/delete,
// already restricted to one allocation's physical column names.
type Plan struct {
	Columns []string
	Rows    []Row               // for Insert
	Set     map[string]algebra.RexNode // for Update: physical column -> new value expr
	Filter  algebra.RexNode     // for Update/Delete
}

// Adapter is the store contract every backend (relational, key-value,
// file, document) implements (§4.9). All methods take the allocation id
// they operate on; adapters are responsible for translating it to their
// own physical naming via catalog.PhysicalTableName/PhysicalColumnName.
type Adapter interface {
	ID() int64
	Deploy(config map[string]string) error

	NamespacePhysicalName(logicalNamespaceID int64) string

	CreateTable(ctx *session.Context, allocation *catalog.AllocationTable, columns []*catalog.Column) error
	DropTable(ctx *session.Context, allocation *catalog.AllocationTable) error
	AddColumn(ctx *session.Context, allocation *catalog.AllocationTable, col *catalog.Column) error
	DropColumn(ctx *session.Context, allocation *catalog.AllocationTable, col *catalog.Column) error

	Insert(ctx *session.Context, allocation *catalog.AllocationTable, plan Plan) (int64, error)
	Update(ctx *session.Context, allocation *catalog.AllocationTable, plan Plan) (int64, error)
	Delete(ctx *session.Context, allocation *catalog.AllocationTable, plan Plan) (int64, error)
	Scan(ctx *session.Context, allocation *catalog.AllocationTable, columnSubset []string, predicate algebra.RexNode) (RowStream, error)

	Prepare(ctx *session.Context, txn TxnToken) error
	Commit(ctx *session.Context, txn TxnToken) error
	Rollback(ctx *session.Context, txn TxnToken) error

	CanPushdown(op string, leftConvention, rightConvention algebra.Convention) bool
	Capabilities() Caps
}
