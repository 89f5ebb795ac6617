// Package kvadapter is a key-value Adapter (C9) implementation backed by
// go.etcd.io/bbolt, standing in for the "key-value store"/"file store"
// adapter category spec.md names as an external collaborator (§4.9,
// SPEC_FULL.md DOMAIN STACK). Structurally grounded on memadapter's
// allocation-keyed table map, but each allocation is its own bbolt
// bucket and each row is a gob-encoded map[string]interface{} keyed by
// physical column name rather than a positional slice, since a
// key-value store has no fixed row shape to rely on.
package kvadapter

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
)

func init() {
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register(decimal.Decimal{})
}

// Adapter is a single bbolt-file-backed store. One bucket per allocation
// id, one key per row (bbolt's own auto-incrementing sequence), one
// gob-encoded map[string]interface{} value per row.
type Adapter struct {
	id int64
	db *bolt.DB

	mu     sync.Mutex
	tables map[int64][]string // allocation id -> physical column names, in declared order
}

// Open opens (creating if absent) the bbolt file at path as adapter id's
// backing store.
func Open(id int64, path string) (*Adapter, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kvadapter: open %s: %w", path, err)
	}
	return &Adapter{id: id, db: db, tables: map[int64][]string{}}, nil
}

func (a *Adapter) Close() error { return a.db.Close() }

func (a *Adapter) ID() int64 { return a.id }

func (a *Adapter) Deploy(map[string]string) error { return nil }

func (a *Adapter) NamespacePhysicalName(logicalNamespaceID int64) string {
	return catalog.PhysicalSchemaName(logicalNamespaceID, 0)
}

func bucketName(allocationID int64) []byte {
	return []byte(fmt.Sprintf("alloc%d", allocationID))
}

func (a *Adapter) CreateTable(ctx *session.Context, allocation *catalog.AllocationTable, columns []*catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = catalog.PhysicalColumnName(c.ID, 0)
	}
	err := a.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName(allocation.ID))
		return err
	})
	if err != nil {
		return adapter.NewAdapterError(a.id, err)
	}
	a.tables[allocation.ID] = names
	return nil
}

func (a *Adapter) DropTable(ctx *session.Context, allocation *catalog.AllocationTable) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tables, allocation.ID)
	err := a.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket(bucketName(allocation.ID))
	})
	if err != nil && err != bolt.ErrBucketNotFound {
		return adapter.NewAdapterError(a.id, err)
	}
	return nil
}

func (a *Adapter) AddColumn(ctx *session.Context, allocation *catalog.AllocationTable, col *catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.tables[allocation.ID]; !ok {
		return adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	a.tables[allocation.ID] = append(a.tables[allocation.ID], catalog.PhysicalColumnName(col.ID, 0))
	return nil
}

// DropColumn drops a column from the declared schema; existing rows keep
// the stale field in their encoded map, simply no longer projected (a KV
// store has no fixed row shape to rewrite in place).
func (a *Adapter) DropColumn(ctx *session.Context, allocation *catalog.AllocationTable, col *catalog.Column) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	names, ok := a.tables[allocation.ID]
	if !ok {
		return adapter.NewAdapterError(a.id, errTableNotFound(allocation.ID))
	}
	name := catalog.PhysicalColumnName(col.ID, 0)
	for i, n := range names {
		if n == name {
			a.tables[allocation.ID] = append(names[:i], names[i+1:]...)
			break
		}
	}
	return nil
}

func (a *Adapter) Insert(ctx *session.Context, allocation *catalog.AllocationTable, plan adapter.Plan) (int64, error) {
	var count int64
	err := a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(allocation.ID))
		if b == nil {
			return errTableNotFound(allocation.ID)
		}
		for _, row := range plan.Rows {
			values := make(map[string]interface{}, len(plan.Columns))
			for i, col := range plan.Columns {
				values[col] = row[i]
			}
			encoded, err := encodeRow(values)
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(seq), encoded); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, adapter.NewAdapterError(a.id, err)
	}
	return count, nil
}

func (a *Adapter) Update(ctx *session.Context, allocation *catalog.AllocationTable, plan adapter.Plan) (int64, error) {
	var count int64
	err := a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(allocation.ID))
		if b == nil {
			return errTableNotFound(allocation.ID)
		}
		return b.ForEach(func(k, v []byte) error {
			values, err := decodeRow(v)
			if err != nil {
				return err
			}
			if !matches(values, plan.Filter) {
				return nil
			}
			for col, expr := range plan.Set {
				values[col] = literalValue(expr)
			}
			encoded, err := encodeRow(values)
			if err != nil {
				return err
			}
			count++
			return b.Put(k, encoded)
		})
	})
	if err != nil {
		return 0, adapter.NewAdapterError(a.id, err)
	}
	return count, nil
}

func (a *Adapter) Delete(ctx *session.Context, allocation *catalog.AllocationTable, plan adapter.Plan) (int64, error) {
	var count int64
	err := a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(allocation.ID))
		if b == nil {
			return errTableNotFound(allocation.ID)
		}
		var toDelete [][]byte
		err := b.ForEach(func(k, v []byte) error {
			values, err := decodeRow(v)
			if err != nil {
				return err
			}
			if matches(values, plan.Filter) {
				key := append([]byte{}, k...)
				toDelete = append(toDelete, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, adapter.NewAdapterError(a.id, err)
	}
	return count, nil
}

func (a *Adapter) Scan(ctx *session.Context, allocation *catalog.AllocationTable, columnSubset []string, predicate algebra.RexNode) (adapter.RowStream, error) {
	var out []adapter.Row
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(allocation.ID))
		if b == nil {
			return errTableNotFound(allocation.ID)
		}
		return b.ForEach(func(k, v []byte) error {
			values, err := decodeRow(v)
			if err != nil {
				return err
			}
			if predicate != nil && !matches(values, predicate) {
				return nil
			}
			row := make(adapter.Row, len(columnSubset))
			for i, col := range columnSubset {
				row[i] = values[col]
			}
			out = append(out, row)
			return nil
		})
	})
	if err != nil {
		return nil, adapter.NewAdapterError(a.id, err)
	}
	return &rowStream{rows: out}, nil
}

func (a *Adapter) Prepare(ctx *session.Context, txn adapter.TxnToken) error  { return nil }
func (a *Adapter) Commit(ctx *session.Context, txn adapter.TxnToken) error  { return nil }
func (a *Adapter) Rollback(ctx *session.Context, txn adapter.TxnToken) error { return nil }

func (a *Adapter) CanPushdown(op string, left, right algebra.Convention) bool { return false }

// Capabilities claims native index support (bbolt's buckets are B+trees
// keyed in sequence order) but no join/sort/aggregation pushdown, same as
// memadapter.
func (a *Adapter) Capabilities() adapter.Caps {
	return adapter.Caps{SupportsIndex: true, SupportsSort: false, SupportsAggregation: false}
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

func seqKey(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func encodeRow(values map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRow(data []byte) (map[string]interface{}, error) {
	var values map[string]interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// matches evaluates the same restricted predicate subset memadapter
// does: equality of one physical column against a literal.
func matches(values map[string]interface{}, predicate algebra.RexNode) bool {
	call, ok := predicate.(*algebra.Call)
	if !ok || len(call.Args) != 2 {
		return true
	}
	fa, ok := call.Args[0].(*algebra.FieldAccess)
	if !ok {
		return true
	}
	lit, ok := call.Args[1].(*algebra.Literal)
	if !ok {
		return true
	}
	return valuesEqual(values[fa.Name], lit.Value)
}

// valuesEqual compares two already-decoded column values, special-casing
// decimal.Decimal the same way memadapter's own valuesEqual does: two
// Decimals holding the same numeric value can wrap distinct *big.Int
// instances, so == is not reliable for them the way it is for gob's
// other registered concrete types.
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
