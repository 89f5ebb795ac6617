// Package catalog implements the three-level polystore catalog (C3):
// logical entities, the allocation layer mapping logical entities to
// adapters, and the physical layer of store-local names, plus the
// immutable Snapshot readers consult during a request.
package catalog

import "github.com/polypheny/polypheny-go/types"

// DataModel identifies which logical data model a Namespace holds.
type DataModel int

const (
	Relational DataModel = iota
	Document
	Graph
)

func (m DataModel) String() string {
	switch m {
	case Document:
		return "DOCUMENT"
	case Graph:
		return "GRAPH"
	default:
		return "RELATIONAL"
	}
}

// Namespace is a logical grouping of tables/collections/graphs sharing a
// data model and a case-sensitivity policy (§3).
type Namespace struct {
	ID            int64
	Name          string
	Model         DataModel
	CaseSensitive bool
}

// KeyKind enumerates the kinds of Key a Table may declare.
type KeyKind int

const (
	PrimaryKey KeyKind = iota
	UniqueKey
	ForeignKey
	IndexKey
	ConstraintKey
)

// Column is a logical column of a Table. Position is 1-based and dense
// within the table (§3).
type Column struct {
	ID       int64
	Name     string
	Position int
	Type     *types.Type
	Nullable bool
	Default  *string
}

// Key groups a set of columns under one of the KeyKind roles.
type Key struct {
	ID        int64
	TableID   int64
	ColumnIDs []int64
	Kind      KeyKind
}

// Table is a logical table (or document collection / graph label,
// depending on the owning Namespace's model) with an ordered column list.
type Table struct {
	ID          int64
	NamespaceID int64
	Name        string
	Columns     []*Column
	Keys        []*Key
}

// ColumnByName finds a column by name honoring the namespace's
// case-sensitivity (callers pass the already-normalized name).
func (t *Table) ColumnByName(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// PrimaryKey returns the table's primary key, if any.
func (t *Table) PrimaryKey() (*Key, bool) {
	for _, k := range t.Keys {
		if k.Kind == PrimaryKey {
			return k, true
		}
	}
	return nil, false
}
