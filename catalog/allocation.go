package catalog

// PlacementType distinguishes allocation columns a user explicitly asked
// for from ones the system added automatically (e.g. replicated PK columns).
type PlacementType int

const (
	Automatic PlacementType = iota
	Manual
)

// Placement records that adapterID is responsible for hosting a subset of
// logicalTableID's columns (§3 Allocation layer).
type Placement struct {
	ID            int64
	LogicalTableID int64
	AdapterID     int64
}

// AllocationColumn binds one logical column into a Placement at a given
// position within that placement's physical row.
type AllocationColumn struct {
	PlacementID   int64
	ColumnID      int64
	Position      int
	PlacementType PlacementType
}

// PartitionKind enumerates supported partitioning strategies (§6 DDL).
type PartitionKind int

const (
	NoPartition PartitionKind = iota
	HashPartition
	RangePartition
	ListPartition
)

// Partition is one partition of a table under a partitioning scheme.
// Qualifier holds the partition-specific bound (a list of values for
// LIST, a range boundary pair encoded by the caller for RANGE, or the
// hash-bucket index for HASH).
type Partition struct {
	ID        int64
	TableID   int64
	Kind      PartitionKind
	Qualifier string
}

// AllocationTable is the concrete unit the router (C6) consumes: one
// placement's columns, restricted to one partition, hosted by one adapter.
type AllocationTable struct {
	ID          int64
	PlacementID int64
	PartitionID int64
	AdapterID   int64
	LogicalID   int64
}
