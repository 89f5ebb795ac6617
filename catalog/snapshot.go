package catalog

// Snapshot is the immutable, point-in-time view of the catalog that
// readers hold for the duration of a request (§3 "Snapshot"). A Snapshot
// is never mutated after construction; Catalog.publish builds a fresh
// one after every mutation and replaces the current pointer atomically.
type Snapshot struct {
	Generation int64

	namespaces map[int64]*Namespace
	tables     map[int64]*Table
	// tablesByNS[namespaceID] -> tableID -> *Table, grouped by namespace so
	// name lookups and logicalRel/logicalDoc/logicalGraph (which check the
	// namespace's data model) can be served without scanning every table.
	tablesByNS map[int64]map[int64]*Table

	placements       map[int64]*Placement
	placementsByTable map[int64][]*Placement
	allocColumns     map[int64][]*AllocationColumn // keyed by placement id
	partitions       map[int64]*Partition
	partitionsByTable map[int64][]*Partition
	allocTables      map[int64]*AllocationTable
	allocTablesByPlacement map[int64][]*AllocationTable

	physicalTables map[int64]*PhysicalTable // keyed by allocation id
}

// Namespace looks up a namespace by id.
func (s *Snapshot) Namespace(id int64) (*Namespace, bool) {
	n, ok := s.namespaces[id]
	return n, ok
}

// NamespaceByName finds a namespace by name (exact match; callers must
// normalize case per the target namespace's CaseSensitive flag before
// calling when searching case-insensitively).
func (s *Snapshot) NamespaceByName(name string) (*Namespace, bool) {
	for _, n := range s.namespaces {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Namespaces returns every namespace in the snapshot, used by
// cmd/polyctl's catalog dump.
func (s *Snapshot) Namespaces() []*Namespace {
	out := make([]*Namespace, 0, len(s.namespaces))
	for _, n := range s.namespaces {
		out = append(out, n)
	}
	return out
}

// Table looks up a logical table by id.
func (s *Snapshot) Table(id int64) (*Table, bool) {
	t, ok := s.tables[id]
	return t, ok
}

// TableByName finds a table by name within a namespace.
func (s *Snapshot) TableByName(namespaceID int64, name string) (*Table, bool) {
	for _, t := range s.tablesByNS[namespaceID] {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// LogicalRel returns every relational table in namespace ns.
func (s *Snapshot) LogicalRel(ns int64) []*Table {
	return s.modelTables(ns, Relational)
}

// LogicalDoc returns every document collection (modelled as a Table) in
// namespace ns.
func (s *Snapshot) LogicalDoc(ns int64) []*Table {
	return s.modelTables(ns, Document)
}

// LogicalGraph returns every graph label (modelled as a Table) in
// namespace ns.
func (s *Snapshot) LogicalGraph(ns int64) []*Table {
	return s.modelTables(ns, Graph)
}

func (s *Snapshot) modelTables(nsID int64, model DataModel) []*Table {
	ns, ok := s.namespaces[nsID]
	if !ok || ns.Model != model {
		return nil
	}
	var out []*Table
	for _, t := range s.tablesByNS[nsID] {
		out = append(out, t)
	}
	return out
}

// Placements returns every placement of a logical table.
func (s *Snapshot) Placements(tableID int64) []*Placement {
	return s.placementsByTable[tableID]
}

// AllocationColumns returns the allocation columns of a placement, in
// position order.
func (s *Snapshot) AllocationColumns(placementID int64) []*AllocationColumn {
	return s.allocColumns[placementID]
}

// Partitions returns every partition declared on a table.
func (s *Snapshot) Partitions(tableID int64) []*Partition {
	return s.partitionsByTable[tableID]
}

// AllocationTables returns every concrete allocation table backing a
// placement (one per partition).
func (s *Snapshot) AllocationTables(placementID int64) []*AllocationTable {
	return s.allocTablesByPlacement[placementID]
}

// PhysicalTable returns the physical binding for an allocation, if the
// adapter has reconciled it since the last restart.
func (s *Snapshot) PhysicalTable(allocationID int64) (*PhysicalTable, bool) {
	pt, ok := s.physicalTables[allocationID]
	return pt, ok
}
