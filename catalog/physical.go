package catalog

import (
	"fmt"
	"regexp"
)

// physicalNamePattern matches the deterministic physical naming scheme of
// §3/§6: (col|tab|sch)<id>(r<revision>)?.
var physicalNamePattern = regexp.MustCompile(`^(col|tab|sch)([0-9]+)(r([0-9]+))?$`)

// PhysicalColumn is a store-local column binding: PhysicalName is
// generated deterministically from LogicalID and Revision.
type PhysicalColumn struct {
	ID           int64
	AllocationID int64
	LogicalID    int64
	PhysicalName string
	Position     int
}

// PhysicalTable is a store-local table binding reconciled from an
// AllocationTable after adapter (re)start (§3).
type PhysicalTable struct {
	ID            int64
	AllocationID  int64
	NamespaceName string
	Name          string
	Columns       []*PhysicalColumn
}

// PhysicalTableName deterministically derives a table's physical name
// from its logical id and an optional revision (incremented when a
// column/table is redefined without an id change, §3).
func PhysicalTableName(logicalID int64, revision int) string {
	return physicalName("tab", logicalID, revision)
}

// PhysicalColumnName deterministically derives a column's physical name.
func PhysicalColumnName(logicalID int64, revision int) string {
	return physicalName("col", logicalID, revision)
}

// PhysicalSchemaName deterministically derives a schema/namespace's
// physical name.
func PhysicalSchemaName(logicalID int64, revision int) string {
	return physicalName("sch", logicalID, revision)
}

func physicalName(prefix string, id int64, revision int) string {
	if revision <= 0 {
		return fmt.Sprintf("%s%d", prefix, id)
	}
	return fmt.Sprintf("%s%dr%d", prefix, id, revision)
}

// ParsePhysicalName validates a name against the regex from §3/§6 and
// extracts its prefix, logical id and revision (0 if absent).
func ParsePhysicalName(name string) (prefix string, logicalID int64, revision int, ok bool) {
	m := physicalNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, 0, false
	}
	var id, rev int64
	fmt.Sscanf(m[2], "%d", &id)
	if m[4] != "" {
		fmt.Sscanf(m[4], "%d", &rev)
	}
	return m[1], id, int(rev), true
}
