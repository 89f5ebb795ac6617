package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	bolt "go.etcd.io/bbolt"

	"github.com/sirupsen/logrus"

	"github.com/polypheny/polypheny-go/types"
)

// Store persists the logical and allocation layers only (§6): physical
// state is reconstructed at startup by enlisting adapters, not stored
// here. Backed by a single bbolt file, grounded on the teacher's
// boltdb/bolt dependency (superseded by its maintained fork).
type Store struct {
	db *bolt.DB
}

var (
	bucketNamespaces   = []byte("namespaces")
	bucketTables       = []byte("tables")
	bucketPlacements   = []byte("placements")
	bucketAllocColumns = []byte("alloc_columns")
	bucketPartitions   = []byte("partitions")
	bucketAllocTables  = []byte("alloc_tables")
	bucketMeta         = []byte("meta")
)

// OpenStore opens (creating if absent) the bbolt-backed catalog store at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNamespaces, bucketTables, bucketPlacements,
			bucketAllocColumns, bucketPartitions, bucketAllocTables, bucketMeta,
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// writeString writes a 32-bit length-prefixed UTF-8 string (§6).
func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeID(w io.Writer, id int64) error {
	return binary.Write(w, binary.LittleEndian, id)
}

func readID(r io.Reader) (int64, error) {
	var id int64
	err := binary.Read(r, binary.LittleEndian, &id)
	return id, err
}

func writeInt32(w io.Writer, n int) error {
	return binary.Write(w, binary.LittleEndian, int32(n))
}

func readInt32(r io.Reader) (int, error) {
	var n int32
	err := binary.Read(r, binary.LittleEndian, &n)
	return int(n), err
}

func writeBool(w io.Writer, b bool) error {
	v := byte(0)
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r io.Reader) (bool, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return false, err
	}
	return buf[0] == 1, nil
}

// record is the serialized form of one entity: declared fields in a
// fixed byte layout, followed by whatever trailing bytes were present
// when the record was read (forward-compatibility: unknown fields from a
// newer format round-trip unchanged, §6).
type record struct {
	declared []byte
	extra    []byte
}

func (r record) bytes() []byte {
	return append(append([]byte{}, r.declared...), r.extra...)
}

// trailingExtra returns whatever bytes remain in r past every field this
// module's decoder understands, so the next encode can round-trip them.
func trailingExtra(r *bytes.Reader) []byte {
	extra := make([]byte, r.Len())
	io.ReadFull(r, extra)
	return extra
}

// ---- Type (nested inside Column / Field) ----

func encodeType(w *bytes.Buffer, t *types.Type) {
	if t == nil {
		writeBool(w, false)
		return
	}
	writeBool(w, true)
	writeInt32(w, int(t.Kind))
	writeBool(w, t.Nullable)
	writeInt32(w, t.Precision)
	writeInt32(w, t.Scale)
	writeString(w, t.Charset)
	writeString(w, t.Collation)
	encodeType(w, t.Component)
	writeInt32(w, len(t.Fields))
	for _, f := range t.Fields {
		writeString(w, f.Name)
		writeBool(w, f.Nullable)
		encodeType(w, f.Type)
	}
}

func decodeType(r *bytes.Reader) (*types.Type, error) {
	present, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	kind, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	nullable, err := readBool(r)
	if err != nil {
		return nil, err
	}
	precision, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	scale, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	charset, err := readString(r)
	if err != nil {
		return nil, err
	}
	collation, err := readString(r)
	if err != nil {
		return nil, err
	}
	component, err := decodeType(r)
	if err != nil {
		return nil, err
	}
	numFields, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	fields := make([]types.Field, 0, numFields)
	for i := 0; i < numFields; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		fNullable, err := readBool(r)
		if err != nil {
			return nil, err
		}
		fType, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.Field{Name: name, Nullable: fNullable, Type: fType})
	}
	return &types.Type{
		Kind: types.PolyType(kind), Nullable: nullable,
		Precision: precision, Scale: scale,
		Charset: charset, Collation: collation,
		Component: component, Fields: fields,
	}, nil
}

// ---- Column / Key (nested inside Table) ----

func encodeColumn(w *bytes.Buffer, c *Column) {
	writeID(w, c.ID)
	writeString(w, c.Name)
	writeInt32(w, c.Position)
	encodeType(w, c.Type)
	writeBool(w, c.Nullable)
	if c.Default != nil {
		writeBool(w, true)
		writeString(w, *c.Default)
	} else {
		writeBool(w, false)
	}
}

func decodeColumn(r *bytes.Reader) (*Column, error) {
	id, err := readID(r)
	if err != nil {
		return nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	position, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	typ, err := decodeType(r)
	if err != nil {
		return nil, err
	}
	nullable, err := readBool(r)
	if err != nil {
		return nil, err
	}
	hasDefault, err := readBool(r)
	if err != nil {
		return nil, err
	}
	var def *string
	if hasDefault {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		def = &s
	}
	return &Column{ID: id, Name: name, Position: position, Type: typ, Nullable: nullable, Default: def}, nil
}

func encodeKey(w *bytes.Buffer, k *Key) {
	writeID(w, k.ID)
	writeID(w, k.TableID)
	writeInt32(w, int(k.Kind))
	writeInt32(w, len(k.ColumnIDs))
	for _, id := range k.ColumnIDs {
		writeID(w, id)
	}
}

func decodeKey(r *bytes.Reader) (*Key, error) {
	id, err := readID(r)
	if err != nil {
		return nil, err
	}
	tableID, err := readID(r)
	if err != nil {
		return nil, err
	}
	kind, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	colIDs := make([]int64, n)
	for i := range colIDs {
		colIDs[i], err = readID(r)
		if err != nil {
			return nil, err
		}
	}
	return &Key{ID: id, TableID: tableID, Kind: KeyKind(kind), ColumnIDs: colIDs}, nil
}

// ---- Namespace ----

// encodeNamespace serializes a Namespace's declared fields in order:
// id, name, model, caseSensitive.
func encodeNamespace(ns *Namespace, extra []byte) []byte {
	var buf bytes.Buffer
	writeID(&buf, ns.ID)
	writeString(&buf, ns.Name)
	writeInt32(&buf, int(ns.Model))
	writeBool(&buf, ns.CaseSensitive)
	return record{declared: buf.Bytes(), extra: extra}.bytes()
}

func decodeNamespace(data []byte) (*Namespace, []byte, error) {
	r := bytes.NewReader(data)
	id, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, nil, err
	}
	model, err := readInt32(r)
	if err != nil {
		return nil, nil, err
	}
	caseSensitive, err := readBool(r)
	if err != nil {
		return nil, nil, err
	}
	return &Namespace{ID: id, Name: name, Model: DataModel(model), CaseSensitive: caseSensitive}, trailingExtra(r), nil
}

// SaveNamespaces writes every namespace in snap, preserving each
// namespace's previously-stored trailing bytes if any (read back from the
// record already stored under the same id in the namespaces bucket).
func (s *Store) SaveNamespaces(snap *Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNamespaces)
		for id, ns := range snap.namespaces {
			key := idKey(id)
			var extra []byte
			if existing := b.Get(key); existing != nil {
				if _, ex, err := decodeNamespace(existing); err == nil {
					extra = ex
				}
			}
			if err := b.Put(key, encodeNamespace(ns, extra)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadNamespaces reads every persisted namespace.
func (s *Store) LoadNamespaces() (map[int64]*Namespace, error) {
	out := map[int64]*Namespace{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNamespaces)
		return b.ForEach(func(k, v []byte) error {
			ns, _, err := decodeNamespace(v)
			if err != nil {
				return err
			}
			out[ns.ID] = ns
			return nil
		})
	})
	return out, err
}

// ---- Table (logical layer: columns + keys nested) ----

// encodeTable serializes a Table's declared fields in order: id,
// namespaceID, name, columns (length-prefixed), keys (length-prefixed).
func encodeTable(t *Table, extra []byte) []byte {
	var buf bytes.Buffer
	writeID(&buf, t.ID)
	writeID(&buf, t.NamespaceID)
	writeString(&buf, t.Name)
	writeInt32(&buf, len(t.Columns))
	for _, c := range t.Columns {
		encodeColumn(&buf, c)
	}
	writeInt32(&buf, len(t.Keys))
	for _, k := range t.Keys {
		encodeKey(&buf, k)
	}
	return record{declared: buf.Bytes(), extra: extra}.bytes()
}

func decodeTable(data []byte) (*Table, []byte, error) {
	r := bytes.NewReader(data)
	id, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	nsID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, nil, err
	}
	numCols, err := readInt32(r)
	if err != nil {
		return nil, nil, err
	}
	cols := make([]*Column, numCols)
	for i := range cols {
		cols[i], err = decodeColumn(r)
		if err != nil {
			return nil, nil, err
		}
	}
	numKeys, err := readInt32(r)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]*Key, numKeys)
	for i := range keys {
		keys[i], err = decodeKey(r)
		if err != nil {
			return nil, nil, err
		}
	}
	return &Table{ID: id, NamespaceID: nsID, Name: name, Columns: cols, Keys: keys}, trailingExtra(r), nil
}

// SaveTables writes every logical table (with its columns and keys) in
// snap, preserving each table's previously-stored trailing bytes.
func (s *Store) SaveTables(snap *Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTables)
		for id, t := range snap.tables {
			key := idKey(id)
			var extra []byte
			if existing := b.Get(key); existing != nil {
				if _, ex, err := decodeTable(existing); err == nil {
					extra = ex
				}
			}
			if err := b.Put(key, encodeTable(t, extra)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTables reads every persisted logical table.
func (s *Store) LoadTables() (map[int64]*Table, error) {
	out := map[int64]*Table{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTables)
		return b.ForEach(func(k, v []byte) error {
			t, _, err := decodeTable(v)
			if err != nil {
				return err
			}
			out[t.ID] = t
			return nil
		})
	})
	return out, err
}

// ---- Allocation layer: Placement, AllocationColumn, Partition, AllocationTable ----

func encodePlacement(p *Placement, extra []byte) []byte {
	var buf bytes.Buffer
	writeID(&buf, p.ID)
	writeID(&buf, p.LogicalTableID)
	writeID(&buf, p.AdapterID)
	return record{declared: buf.Bytes(), extra: extra}.bytes()
}

func decodePlacement(data []byte) (*Placement, []byte, error) {
	r := bytes.NewReader(data)
	id, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	tableID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	adapterID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	return &Placement{ID: id, LogicalTableID: tableID, AdapterID: adapterID}, trailingExtra(r), nil
}

func encodeAllocationColumn(ac *AllocationColumn, extra []byte) []byte {
	var buf bytes.Buffer
	writeID(&buf, ac.PlacementID)
	writeID(&buf, ac.ColumnID)
	writeInt32(&buf, ac.Position)
	writeInt32(&buf, int(ac.PlacementType))
	return record{declared: buf.Bytes(), extra: extra}.bytes()
}

func decodeAllocationColumn(data []byte) (*AllocationColumn, []byte, error) {
	r := bytes.NewReader(data)
	placementID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	columnID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	position, err := readInt32(r)
	if err != nil {
		return nil, nil, err
	}
	pt, err := readInt32(r)
	if err != nil {
		return nil, nil, err
	}
	return &AllocationColumn{
		PlacementID: placementID, ColumnID: columnID,
		Position: position, PlacementType: PlacementType(pt),
	}, trailingExtra(r), nil
}

func encodePartition(p *Partition, extra []byte) []byte {
	var buf bytes.Buffer
	writeID(&buf, p.ID)
	writeID(&buf, p.TableID)
	writeInt32(&buf, int(p.Kind))
	writeString(&buf, p.Qualifier)
	return record{declared: buf.Bytes(), extra: extra}.bytes()
}

func decodePartition(data []byte) (*Partition, []byte, error) {
	r := bytes.NewReader(data)
	id, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	tableID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	kind, err := readInt32(r)
	if err != nil {
		return nil, nil, err
	}
	qualifier, err := readString(r)
	if err != nil {
		return nil, nil, err
	}
	return &Partition{ID: id, TableID: tableID, Kind: PartitionKind(kind), Qualifier: qualifier}, trailingExtra(r), nil
}

func encodeAllocationTable(at *AllocationTable, extra []byte) []byte {
	var buf bytes.Buffer
	writeID(&buf, at.ID)
	writeID(&buf, at.PlacementID)
	writeID(&buf, at.PartitionID)
	writeID(&buf, at.AdapterID)
	writeID(&buf, at.LogicalID)
	return record{declared: buf.Bytes(), extra: extra}.bytes()
}

func decodeAllocationTable(data []byte) (*AllocationTable, []byte, error) {
	r := bytes.NewReader(data)
	id, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	placementID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	partitionID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	adapterID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	logicalID, err := readID(r)
	if err != nil {
		return nil, nil, err
	}
	return &AllocationTable{
		ID: id, PlacementID: placementID, PartitionID: partitionID,
		AdapterID: adapterID, LogicalID: logicalID,
	}, trailingExtra(r), nil
}

func allocColumnKey(placementID, columnID int64) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[:8], uint64(placementID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(columnID))
	return buf
}

// PlacementState is every allocation-layer entity LoadPlacements read
// back, grouped the way Snapshot itself groups them.
type PlacementState struct {
	Placements   map[int64]*Placement
	AllocColumns map[int64][]*AllocationColumn // keyed by placement id
	Partitions   map[int64]*Partition
	AllocTables  map[int64]*AllocationTable
}

// SavePlacements writes every placement, allocation column, partition
// and allocation table in snap across their respective buckets,
// preserving each entity's previously-stored trailing bytes.
func (s *Store) SavePlacements(snap *Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		pb := tx.Bucket(bucketPlacements)
		for id, p := range snap.placements {
			key := idKey(id)
			var extra []byte
			if existing := pb.Get(key); existing != nil {
				if _, ex, err := decodePlacement(existing); err == nil {
					extra = ex
				}
			}
			if err := pb.Put(key, encodePlacement(p, extra)); err != nil {
				return err
			}
		}

		acb := tx.Bucket(bucketAllocColumns)
		for _, cols := range snap.allocColumns {
			for _, ac := range cols {
				key := allocColumnKey(ac.PlacementID, ac.ColumnID)
				var extra []byte
				if existing := acb.Get(key); existing != nil {
					if _, ex, err := decodeAllocationColumn(existing); err == nil {
						extra = ex
					}
				}
				if err := acb.Put(key, encodeAllocationColumn(ac, extra)); err != nil {
					return err
				}
			}
		}

		ptb := tx.Bucket(bucketPartitions)
		for id, p := range snap.partitions {
			key := idKey(id)
			var extra []byte
			if existing := ptb.Get(key); existing != nil {
				if _, ex, err := decodePartition(existing); err == nil {
					extra = ex
				}
			}
			if err := ptb.Put(key, encodePartition(p, extra)); err != nil {
				return err
			}
		}

		atb := tx.Bucket(bucketAllocTables)
		for id, at := range snap.allocTables {
			key := idKey(id)
			var extra []byte
			if existing := atb.Get(key); existing != nil {
				if _, ex, err := decodeAllocationTable(existing); err == nil {
					extra = ex
				}
			}
			if err := atb.Put(key, encodeAllocationTable(at, extra)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPlacements reads back every persisted allocation-layer entity.
func (s *Store) LoadPlacements() (*PlacementState, error) {
	out := &PlacementState{
		Placements:   map[int64]*Placement{},
		AllocColumns: map[int64][]*AllocationColumn{},
		Partitions:   map[int64]*Partition{},
		AllocTables:  map[int64]*AllocationTable{},
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketPlacements).ForEach(func(k, v []byte) error {
			p, _, err := decodePlacement(v)
			if err != nil {
				return err
			}
			out.Placements[p.ID] = p
			return nil
		}); err != nil {
			return err
		}

		if err := tx.Bucket(bucketAllocColumns).ForEach(func(k, v []byte) error {
			ac, _, err := decodeAllocationColumn(v)
			if err != nil {
				return err
			}
			out.AllocColumns[ac.PlacementID] = append(out.AllocColumns[ac.PlacementID], ac)
			return nil
		}); err != nil {
			return err
		}

		if err := tx.Bucket(bucketPartitions).ForEach(func(k, v []byte) error {
			p, _, err := decodePartition(v)
			if err != nil {
				return err
			}
			out.Partitions[p.ID] = p
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(bucketAllocTables).ForEach(func(k, v []byte) error {
			at, _, err := decodeAllocationTable(v)
			if err != nil {
				return err
			}
			out.AllocTables[at.ID] = at
			return nil
		})
	})
	return out, err
}

func idKey(id int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(id))
	return buf
}

// Restore rebuilds a Catalog from store's persisted logical and
// allocation layers, implementing §8's deserialize ∘ serialize = id law
// for the persisted catalog: the physical layer is never persisted (see
// Store's doc comment), so a restored Catalog starts with an empty
// physicalTables map. The txn Reconciler does not repopulate it (it only
// retries phase-2 commits); the router falls back to the deterministic
// col<id> physical names for an allocation with no PhysicalTable entry.
func Restore(store *Store, log *logrus.Entry) (*Catalog, error) {
	namespaces, err := store.LoadNamespaces()
	if err != nil {
		return nil, fmt.Errorf("restore namespaces: %w", err)
	}
	tables, err := store.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("restore tables: %w", err)
	}
	alloc, err := store.LoadPlacements()
	if err != nil {
		return nil, fmt.Errorf("restore placements: %w", err)
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Catalog{
		namespaces:  namespaces,
		tables:      tables,
		placements:  alloc.Placements,
		allocCols:   alloc.AllocColumns,
		partitions:  alloc.Partitions,
		allocTables: alloc.AllocTables,
		log:         log,
	}
	c.nextID = maxPersistedID(namespaces, tables, alloc)
	c.publish()
	return c, nil
}

// maxPersistedID finds the highest id among every entity Restore loaded,
// including nested Columns/Keys, so the restored Catalog's id allocator
// never reissues an id already on disk.
func maxPersistedID(namespaces map[int64]*Namespace, tables map[int64]*Table, alloc *PlacementState) int64 {
	var max int64
	bump := func(id int64) {
		if id > max {
			max = id
		}
	}
	for id := range namespaces {
		bump(id)
	}
	for id, t := range tables {
		bump(id)
		for _, c := range t.Columns {
			bump(c.ID)
		}
		for _, k := range t.Keys {
			bump(k.ID)
		}
	}
	for id := range alloc.Placements {
		bump(id)
	}
	for id := range alloc.Partitions {
		bump(id)
	}
	for id := range alloc.AllocTables {
		bump(id)
	}
	return max
}

// Persist writes snap's logical and allocation layers to store in one
// pass, the save-side counterpart to Restore.
func (s *Store) Persist(snap *Snapshot) error {
	if err := s.SaveNamespaces(snap); err != nil {
		return fmt.Errorf("persist namespaces: %w", err)
	}
	if err := s.SaveTables(snap); err != nil {
		return fmt.Errorf("persist tables: %w", err)
	}
	if err := s.SavePlacements(snap); err != nil {
		return fmt.Errorf("persist placements: %w", err)
	}
	return nil
}
