package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/polypheny/polypheny-go/types"
)

// ChangeEvent is published after every catalog mutation (§4.3); observers
// "need not react synchronously" so delivery is best-effort via a
// buffered fan-out — a slow or absent subscriber never blocks a writer.
type ChangeEvent struct {
	Generation int64
}

// Catalog owns all three layers (C3) and serializes mutations behind mu.
// Readers never take mu: they call Current() and consult the returned
// Snapshot, which is never mutated after publication. This is the
// concrete replacement for the teacher's implicit global catalog
// singleton (§9 "Global state"): one Catalog instance is threaded through
// the per-request context rather than referenced as a package global.
type Catalog struct {
	mu sync.Mutex

	nextID     int64
	generation int64
	current    atomic.Pointer[Snapshot]

	namespaces map[int64]*Namespace
	tables     map[int64]*Table
	placements map[int64]*Placement
	allocCols  map[int64][]*AllocationColumn
	partitions map[int64]*Partition
	allocTables map[int64]*AllocationTable

	subscribers []chan ChangeEvent

	log *logrus.Entry
}

// New constructs an empty Catalog and publishes its (empty) initial
// snapshot at generation 1.
func New(log *logrus.Entry) *Catalog {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Catalog{
		namespaces: map[int64]*Namespace{},
		tables:     map[int64]*Table{},
		placements: map[int64]*Placement{},
		allocCols:  map[int64][]*AllocationColumn{},
		partitions: map[int64]*Partition{},
		allocTables: map[int64]*AllocationTable{},
		log:        log,
	}
	c.publish()
	return c
}

// Subscribe registers a channel that receives a ChangeEvent after every
// mutation. The channel is never closed by Catalog; callers unregister by
// discarding their reference.
func (c *Catalog) Subscribe(buffer int) <-chan ChangeEvent {
	ch := make(chan ChangeEvent, buffer)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()
	return ch
}

// Current returns the most recently published snapshot. Safe for
// concurrent use without holding mu.
func (c *Catalog) Current() *Snapshot {
	return c.current.Load()
}

func (c *Catalog) allocID() int64 {
	return atomic.AddInt64(&c.nextID, 1)
}

// publish must be called with mu held. It builds a fresh Snapshot from
// the current maps, bumps the generation, stores it atomically, and
// notifies subscribers without blocking.
func (c *Catalog) publish() {
	c.generation++
	snap := &Snapshot{
		Generation:             c.generation,
		namespaces:             copyNamespaces(c.namespaces),
		tables:                 copyTables(c.tables),
		tablesByNS:             indexTablesByNS(c.tables),
		placements:             copyPlacements(c.placements),
		placementsByTable:      indexPlacementsByTable(c.placements),
		allocColumns:           copyAllocCols(c.allocCols),
		partitions:             copyPartitions(c.partitions),
		partitionsByTable:      indexPartitionsByTable(c.partitions),
		allocTables:            copyAllocTables(c.allocTables),
		allocTablesByPlacement: indexAllocTablesByPlacement(c.allocTables),
		physicalTables:         map[int64]*PhysicalTable{},
	}
	c.current.Store(snap)
	event := ChangeEvent{Generation: c.generation}
	for _, sub := range c.subscribers {
		select {
		case sub <- event:
		default:
			c.log.WithField("generation", c.generation).Warn("catalog subscriber dropped change event")
		}
	}
}

// ---- Namespace operations ----

func (c *Catalog) CreateNamespace(name string, model DataModel, caseSensitive bool) (*Namespace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.namespaces {
		if n.Name == name {
			return nil, ErrNameConflict.New(name)
		}
	}
	ns := &Namespace{ID: c.allocID(), Name: name, Model: model, CaseSensitive: caseSensitive}
	c.namespaces[ns.ID] = ns
	c.publish()
	return ns, nil
}

func (c *Catalog) RenameNamespace(id int64, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns, ok := c.namespaces[id]
	if !ok {
		return ErrUnknownID.New(id)
	}
	ns.Name = newName
	c.publish()
	return nil
}

func (c *Catalog) DropNamespace(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.namespaces[id]; !ok {
		return ErrUnknownID.New(id)
	}
	for _, t := range c.tables {
		if t.NamespaceID == id {
			return ErrInvariantViolated.New("namespace has tables")
		}
	}
	delete(c.namespaces, id)
	c.publish()
	return nil
}

// ---- Table / column / key operations ----

func (c *Catalog) CreateTable(namespaceID int64, name string, columns []*Column) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.namespaces[namespaceID]; !ok {
		return nil, ErrUnknownID.New(namespaceID)
	}
	for _, t := range c.tables {
		if t.NamespaceID == namespaceID && t.Name == name {
			return nil, ErrNameConflict.New(name)
		}
	}
	for i, col := range columns {
		col.ID = c.allocID()
		col.Position = i + 1
	}
	t := &Table{ID: c.allocID(), NamespaceID: namespaceID, Name: name, Columns: columns}
	c.tables[t.ID] = t
	c.publish()
	return t, nil
}

func (c *Catalog) AddColumn(tableID int64, name string, typ *types.Type, nullable bool, def *string) (*Column, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return nil, ErrUnknownID.New(tableID)
	}
	for _, existing := range t.Columns {
		if existing.Name == name {
			return nil, ErrNameConflict.New(name)
		}
	}
	col := &Column{ID: c.allocID(), Name: name, Position: len(t.Columns) + 1, Type: typ, Nullable: nullable, Default: def}
	t.Columns = append(t.Columns, col)
	c.publish()
	return col, nil
}

func (c *Catalog) RenameColumn(tableID, columnID int64, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return ErrUnknownID.New(tableID)
	}
	for _, col := range t.Columns {
		if col.ID == columnID {
			col.Name = newName
			c.publish()
			return nil
		}
	}
	return ErrUnknownID.New(columnID)
}

func (c *Catalog) DropColumn(tableID, columnID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return ErrUnknownID.New(tableID)
	}
	if pk, ok := t.PrimaryKey(); ok {
		for _, cid := range pk.ColumnIDs {
			if cid == columnID {
				return ErrInvariantViolated.New("cannot drop a primary-key column")
			}
		}
	}
	idx := -1
	for i, col := range t.Columns {
		if col.ID == columnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownID.New(columnID)
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for i, col := range t.Columns {
		col.Position = i + 1
	}
	c.publish()
	return nil
}

func (c *Catalog) SetColumnPosition(tableID, columnID int64, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return ErrUnknownID.New(tableID)
	}
	var target *Column
	for _, col := range t.Columns {
		if col.ID == columnID {
			target = col
			break
		}
	}
	if target == nil {
		return ErrUnknownID.New(columnID)
	}
	if position < 1 || position > len(t.Columns) {
		return ErrInvariantViolated.New("position out of range")
	}
	cols := make([]*Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.ID != columnID {
			cols = append(cols, col)
		}
	}
	idx := position - 1
	cols = append(cols[:idx], append([]*Column{target}, cols[idx:]...)...)
	for i, col := range cols {
		col.Position = i + 1
	}
	t.Columns = cols
	c.publish()
	return nil
}

func (c *Catalog) AddKey(tableID int64, columnIDs []int64, kind KeyKind) (*Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return nil, ErrUnknownID.New(tableID)
	}
	if kind == PrimaryKey {
		if _, exists := t.PrimaryKey(); exists {
			return nil, ErrInvariantViolated.New("table already has a primary key")
		}
	}
	k := &Key{ID: c.allocID(), TableID: tableID, ColumnIDs: columnIDs, Kind: kind}
	t.Keys = append(t.Keys, k)
	c.publish()
	return k, nil
}

// AddPrimaryKey is sugar over AddKey(..., PrimaryKey) matching the
// operation named explicitly in §4.3.
func (c *Catalog) AddPrimaryKey(tableID int64, columnIDs []int64) (*Key, error) {
	return c.AddKey(tableID, columnIDs, PrimaryKey)
}

func (c *Catalog) DropKey(tableID, keyID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return ErrUnknownID.New(tableID)
	}
	idx := -1
	for i, k := range t.Keys {
		if k.ID == keyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownID.New(keyID)
	}
	if t.Keys[idx].Kind == PrimaryKey && len(c.placementsOf(tableID)) > 0 {
		return ErrInvariantViolated.New("cannot drop primary key while placements exist")
	}
	t.Keys = append(t.Keys[:idx], t.Keys[idx+1:]...)
	c.publish()
	return nil
}

// ---- Allocation operations ----

func (c *Catalog) placementsOf(tableID int64) []*Placement {
	var out []*Placement
	for _, p := range c.placements {
		if p.LogicalTableID == tableID {
			out = append(out, p)
		}
	}
	return out
}

// AddPlacement creates a placement of table on adapter and, per §3's
// invariant, replicates every primary-key column onto it automatically.
func (c *Catalog) AddPlacement(tableID, adapterID int64, requestedColumnIDs []int64) (*Placement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableID]
	if !ok {
		return nil, ErrUnknownID.New(tableID)
	}
	p := &Placement{ID: c.allocID(), LogicalTableID: tableID, AdapterID: adapterID}
	c.placements[p.ID] = p

	colSet := map[int64]bool{}
	for _, id := range requestedColumnIDs {
		colSet[id] = true
	}
	if pk, ok := t.PrimaryKey(); ok {
		for _, id := range pk.ColumnIDs {
			colSet[id] = true
		}
	}
	pos := 1
	for _, col := range t.Columns {
		if colSet[col.ID] {
			pt := Automatic
			for _, req := range requestedColumnIDs {
				if req == col.ID {
					pt = Manual
				}
			}
			c.allocCols[p.ID] = append(c.allocCols[p.ID], &AllocationColumn{PlacementID: p.ID, ColumnID: col.ID, Position: pos, PlacementType: pt})
			pos++
		}
	}
	// every placement gets one default (unpartitioned) allocation table
	at := &AllocationTable{ID: c.allocID(), PlacementID: p.ID, AdapterID: adapterID, LogicalID: tableID}
	c.allocTables[at.ID] = at
	c.publish()
	return p, nil
}

// DropPlacement removes a placement, refusing to drop the table's last
// primary-key-bearing placement (§3 lifecycle rules).
func (c *Catalog) DropPlacement(placementID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.placements[placementID]
	if !ok {
		return ErrUnknownID.New(placementID)
	}
	if len(c.placementsOf(p.LogicalTableID)) <= 1 {
		return ErrInvariantViolated.New("cannot drop the last placement of a table")
	}
	delete(c.placements, placementID)
	delete(c.allocCols, placementID)
	for id, at := range c.allocTables {
		if at.PlacementID == placementID {
			delete(c.allocTables, id)
		}
	}
	c.publish()
	return nil
}

func (c *Catalog) UpdatePlacementType(placementID, columnID int64, pt PlacementType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cols, ok := c.allocCols[placementID]
	if !ok {
		return ErrUnknownID.New(placementID)
	}
	for _, ac := range cols {
		if ac.ColumnID == columnID {
			ac.PlacementType = pt
			c.publish()
			return nil
		}
	}
	return ErrUnknownID.New(columnID)
}

func (c *Catalog) AddAllocation(placementID, partitionID, adapterID, logicalID int64) (*AllocationTable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.placements[placementID]; !ok {
		return nil, ErrUnknownID.New(placementID)
	}
	at := &AllocationTable{ID: c.allocID(), PlacementID: placementID, PartitionID: partitionID, AdapterID: adapterID, LogicalID: logicalID}
	c.allocTables[at.ID] = at
	c.publish()
	return at, nil
}

func (c *Catalog) DeleteAllocation(allocationID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.allocTables[allocationID]; !ok {
		return ErrUnknownID.New(allocationID)
	}
	delete(c.allocTables, allocationID)
	c.publish()
	return nil
}

func (c *Catalog) AddPartition(tableID int64, kind PartitionKind, qualifier string) (*Partition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[tableID]; !ok {
		return nil, ErrUnknownID.New(tableID)
	}
	p := &Partition{ID: c.allocID(), TableID: tableID, Kind: kind, Qualifier: qualifier}
	c.partitions[p.ID] = p
	c.publish()
	return p, nil
}

func (c *Catalog) DeletePartition(partitionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.partitions[partitionID]; !ok {
		return ErrUnknownID.New(partitionID)
	}
	delete(c.partitions, partitionID)
	c.publish()
	return nil
}

func (c *Catalog) UpdatePartition(partitionID int64, qualifier string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[partitionID]
	if !ok {
		return ErrUnknownID.New(partitionID)
	}
	p.Qualifier = qualifier
	c.publish()
	return nil
}

// Snapshot returns a fresh point-in-time view (identical to Current;
// provided under the name used in §4.3's operation list).
func (c *Catalog) Snapshot() *Snapshot {
	return c.Current()
}
