// Package memadapter is an in-memory Adapter (C9) implementation, the
// default and most-tested backend: grounded on the teacher's memory
// package (memory.NewTable, memory.Table partition iteration) but
// restructured around allocation ids and physical column names rather
// than a single logical table per database.
package memadapter

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
)

type table struct {
	columns []string // physical column names, in position order
	rows    []adapter.Row
}

// Adapter is a single in-process, mutex-guarded store. Capabilities claim
// no native join/aggregation/sort pushdown, so the router/planner always
// fall back to the coordinator for those operators against this adapter.
type Adapter struct {
	id int64

	mu     sync.Mutex
	tables map[int64]*table // keyed by allocation id
}

func New(id int64) *Adapter {
	return &Adapter{id: id, tables: map[int64]*table{}}
}

func (a *Adapter) ID() int64 { return a.id }

func (a *Adapter) Deploy(map[string]string) error { return nil }

func (a *Adapter) NamespacePhysicalName(logicalNamespaceID int64) string {
	return catalog.PhysicalSchemaName(logicalNamespaceID, 0)
}

func (a *Adapter) CreateTable(ctx *session.Context, allocation *catalog.AllocationTable, columns []*catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = catalog.PhysicalColumnName(c.ID, 0)
	}
	a.tables[allocation.ID] = &table{columns: names}
	return nil
}

func (a *Adapter) DropTable(ctx *session.Context, allocation *catalog.AllocationTable) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tables, allocation.ID)
	return nil
}

func (a *Adapter) AddColumn(ctx *session.Context, allocation *catalog.AllocationTable, col *catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tables[allocation.ID]
	if !ok {
		return adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	t.columns = append(t.columns, catalog.PhysicalColumnName(col.ID, 0))
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}
	return nil
}

func (a *Adapter) DropColumn(ctx *session.Context, allocation *catalog.AllocationTable, col *catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tables[allocation.ID]
	if !ok {
		return adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	name := catalog.PhysicalColumnName(col.ID, 0)
	idx := -1
	for i, c := range t.columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	t.columns = append(t.columns[:idx], t.columns[idx+1:]...)
	for i, row := range t.rows {
		t.rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return nil
}

func (a *Adapter) Insert(ctx *session.Context, allocation *catalog.AllocationTable, plan adapter.Plan) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tables[allocation.ID]
	if !ok {
		return 0, adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	positions := columnPositions(t.columns, plan.Columns)
	for _, row := range plan.Rows {
		full := make(adapter.Row, len(t.columns))
		for i, v := range row {
			full[positions[i]] = v
		}
		t.rows = append(t.rows, full)
	}
	return int64(len(plan.Rows)), nil
}

func (a *Adapter) Update(ctx *session.Context, allocation *catalog.AllocationTable, plan adapter.Plan) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tables[allocation.ID]
	if !ok {
		return 0, adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	var count int64
	for i, row := range t.rows {
		if !matches(row, t.columns, plan.Filter) {
			continue
		}
		for col, expr := range plan.Set {
			idx := indexOf(t.columns, col)
			if idx >= 0 {
				t.rows[i][idx] = literalValue(expr)
			}
		}
		count++
	}
	return count, nil
}

func (a *Adapter) Delete(ctx *session.Context, allocation *catalog.AllocationTable, plan adapter.Plan) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tables[allocation.ID]
	if !ok {
		return 0, adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	var kept []adapter.Row
	var count int64
	for _, row := range t.rows {
		if matches(row, t.columns, plan.Filter) {
			count++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return count, nil
}

func (a *Adapter) Scan(ctx *session.Context, allocation *catalog.AllocationTable, columnSubset []string, predicate algebra.RexNode) (adapter.RowStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tables[allocation.ID]
	if !ok {
		return nil, adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	positions := columnPositions(t.columns, columnSubset)
	var out []adapter.Row
	for _, row := range t.rows {
		if predicate != nil && !matches(row, t.columns, predicate) {
			continue
		}
		projected := make(adapter.Row, len(columnSubset))
		for i, pos := range positions {
			projected[i] = row[pos]
		}
		out = append(out, projected)
	}
	return &rowStream{rows: out}, nil
}

func (a *Adapter) Prepare(ctx *session.Context, txn adapter.TxnToken) error  { return nil }
func (a *Adapter) Commit(ctx *session.Context, txn adapter.TxnToken) error  { return nil }
func (a *Adapter) Rollback(ctx *session.Context, txn adapter.TxnToken) error { return nil }

func (a *Adapter) CanPushdown(op string, left, right algebra.Convention) bool { return false }

func (a *Adapter) Capabilities() adapter.Caps {
	return adapter.Caps{SupportsIndex: false, SupportsSort: false, SupportsAggregation: false}
}

type rowStream struct {
	rows []adapter.Row
	pos  int
}

func (s *rowStream) Next(ctx *session.Context) (adapter.Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *rowStream) Close() error { return nil }

func columnPositions(physical []string, subset []string) []int {
	out := make([]int, len(subset))
	for i, name := range subset {
		out[i] = indexOf(physical, name)
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// matches evaluates a restricted predicate subset: equality of one
// physical column against a literal, sufficient for the executor's
// pushdown of simple point filters to this adapter.
func matches(row adapter.Row, columns []string, predicate algebra.RexNode) bool {
	call, ok := predicate.(*algebra.Call)
	if !ok || len(call.Args) != 2 {
		return true
	}
	fa, ok := call.Args[0].(*algebra.FieldAccess)
	if !ok {
		return true
	}
	idx := indexOf(columns, fa.Name)
	if idx < 0 {
		return true
	}
	lit, ok := call.Args[1].(*algebra.Literal)
	if !ok {
		return true
	}
	return valuesEqual(row[idx], lit.Value)
}

// valuesEqual compares two already-evaluated column values for the
// restricted equality-pushdown predicate above. decimal.Decimal needs
// its own Equal method since two Decimals holding the same numeric
// value can wrap distinct *big.Int instances, making == unreliable the
// way it is for every other comparable value this adapter stores.
func valuesEqual(a, b interface{}) bool {
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
		return false
	}
	return a == b
}

func literalValue(e algebra.RexNode) interface{} {
	if lit, ok := e.(*algebra.Literal); ok {
		return lit.Value
	}
	return nil
}

func errTableNotFound(allocationID int64) error {
	return fmt.Errorf("allocation table not found: %d", allocationID)
}
