package router

import (
	"fmt"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
)

// PhysicalScan is the leaf the router (C6) rewrites a logical Scan into:
// one adapter's allocation, restricted to the physical column names that
// back the needed logical columns. It carries algebra.StoreSpecific
// convention so the planner/executor's trait machinery can tell a
// store-resident fragment from one the coordinator must pull in.
type PhysicalScan struct {
	rowType *algebra.RowType
	traits  algebra.TraitSet

	Entity     algebra.EntityRef
	AdapterID  int64
	Allocation *catalog.AllocationTable
	Columns    []string // physical column names, in RowType() field order
	Predicate  algebra.RexNode
}

func newPhysicalScan(entity algebra.EntityRef, adapterID int64, alloc *catalog.AllocationTable, rowType *algebra.RowType, columns []string, predicate algebra.RexNode) *PhysicalScan {
	return &PhysicalScan{
		rowType:    rowType,
		traits:     algebra.TraitSet{Convention: algebra.StoreSpecific},
		Entity:     entity,
		AdapterID:  adapterID,
		Allocation: alloc,
		Columns:    columns,
		Predicate:  predicate,
	}
}

func (s *PhysicalScan) Op() string                 { return "PhysicalScan" }
func (s *PhysicalScan) Inputs() []algebra.AlgNode   { return nil }
func (s *PhysicalScan) RowType() *algebra.RowType   { return s.rowType }
func (s *PhysicalScan) Traits() algebra.TraitSet    { return s.traits }
func (s *PhysicalScan) WithTraits(t algebra.TraitSet) algebra.AlgNode {
	cp := *s
	cp.traits = t
	return &cp
}
func (s *PhysicalScan) WithInputs([]algebra.AlgNode) algebra.AlgNode { return s }

func (s *PhysicalScan) String() string {
	return fmt.Sprintf("PhysicalScan(adapter=%d, alloc=%d, cols=%v)", s.AdapterID, s.Allocation.ID, s.Columns)
}

// PhysicalModify is one placement's share of a logical TableModify,
// restricted to that placement's physical column names (§4.6 DML
// fan-out). It is a leaf: DML does not flow through the pull-based
// iterator model (§4.7) but is handed to the adapter as one
// adapter.Plan-shaped batch, so there is nothing for Inputs() to expose.
// Rows backs INSERT; Set and Filter back UPDATE; Filter alone backs
// DELETE (nil Filter means unconditional).
type PhysicalModify struct {
	rowType *algebra.RowType
	traits  algebra.TraitSet

	Entity     algebra.EntityRef
	AdapterID  int64
	Allocation *catalog.AllocationTable
	ModOp      algebra.ModifyOp
	Columns    []string // physical column names, position order

	Rows   [][]algebra.RexNode          // INSERT only
	Set    map[string]algebra.RexNode   // UPDATE only: physical column -> new value
	Filter algebra.RexNode              // UPDATE/DELETE only
}

func newPhysicalModify(entity algebra.EntityRef, adapterID int64, alloc *catalog.AllocationTable, modOp algebra.ModifyOp, columns []string) *PhysicalModify {
	return &PhysicalModify{
		rowType:    rowCountType(),
		traits:     algebra.TraitSet{Convention: algebra.StoreSpecific},
		Entity:     entity,
		AdapterID:  adapterID,
		Allocation: alloc,
		ModOp:      modOp,
		Columns:    columns,
	}
}

func (m *PhysicalModify) Op() string                { return "PhysicalModify" }
func (m *PhysicalModify) Inputs() []algebra.AlgNode { return nil }
func (m *PhysicalModify) RowType() *algebra.RowType { return m.rowType }
func (m *PhysicalModify) Traits() algebra.TraitSet  { return m.traits }
func (m *PhysicalModify) WithTraits(t algebra.TraitSet) algebra.AlgNode {
	cp := *m
	cp.traits = t
	return &cp
}
func (m *PhysicalModify) WithInputs([]algebra.AlgNode) algebra.AlgNode { return m }

// Multiplex fans a single logical DML statement out across every
// placement it must update (§4.6 DML fan-out). The executor sums each
// target's row count to report one ROWCOUNT to the caller.
type Multiplex struct {
	rowType *algebra.RowType
	traits  algebra.TraitSet

	Entity  algebra.EntityRef
	Targets []*PhysicalModify
}

func newMultiplex(entity algebra.EntityRef, targets []*PhysicalModify) *Multiplex {
	return &Multiplex{
		rowType: rowCountType(),
		traits:  algebra.TraitSet{Convention: algebra.Enumerable},
		Entity:  entity,
		Targets: targets,
	}
}

func (m *Multiplex) Op() string { return "Multiplex" }
func (m *Multiplex) Inputs() []algebra.AlgNode {
	out := make([]algebra.AlgNode, len(m.Targets))
	for i, t := range m.Targets {
		out[i] = t
	}
	return out
}
func (m *Multiplex) RowType() *algebra.RowType { return m.rowType }
func (m *Multiplex) Traits() algebra.TraitSet  { return m.traits }
func (m *Multiplex) WithTraits(t algebra.TraitSet) algebra.AlgNode {
	cp := *m
	cp.traits = t
	return &cp
}
func (m *Multiplex) WithInputs(inputs []algebra.AlgNode) algebra.AlgNode {
	cp := *m
	cp.Targets = make([]*PhysicalModify, len(inputs))
	for i, in := range inputs {
		cp.Targets[i] = in.(*PhysicalModify)
	}
	return &cp
}
