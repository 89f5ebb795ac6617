// Package router assigns each logical Scan and TableModify to concrete
// adapter placements, inserting Exchanges where execution crosses
// adapters (C6, §4.6). It runs after the planner (C5) has produced an
// optimized, trait-stamped logical plan and before the executor (C7)
// compiles it.
package router

import (
	"fmt"
	"sort"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/txn"
	"github.com/polypheny/polypheny-go/types"
)

// Router rewrites a logical plan into a physical one allocation-by-
// allocation, consulting a catalog snapshot for placements and an
// adapter registry for pushdown capabilities.
type Router struct {
	snapshot *catalog.Snapshot
	registry *adapter.Registry
}

// New builds a Router bound to one request's catalog snapshot, mirroring
// the immutability guarantee every other C-stage consults (§3 Snapshot).
func New(snapshot *catalog.Snapshot, registry *adapter.Registry) *Router {
	return &Router{snapshot: snapshot, registry: registry}
}

// Route rewrites root into a physical plan, enlisting every adapter it
// touches on t. root is either a query (ending in Project/Aggregate/...)
// or a single top-level TableModify produced by the validator for DML.
func (r *Router) Route(root algebra.AlgNode, t *txn.Transaction) (algebra.AlgNode, error) {
	if tm, ok := root.(*algebra.TableModify); ok {
		return r.routeModify(tm, t)
	}
	routed, _, _, err := r.routeNode(root, t)
	return routed, err
}

// routeNode rewrites n bottom-up. It returns, alongside the rewritten
// node, whether the result is still store-resident (storeSpecific) and,
// if so, which adapter it runs on — information the caller one level up
// needs to decide whether a pushdown across the boundary is possible.
func (r *Router) routeNode(n algebra.AlgNode, t *txn.Transaction) (out algebra.AlgNode, storeSpecific bool, adapterID int64, err error) {
	if scan, ok := n.(*algebra.Scan); ok {
		return r.routeScan(scan, t)
	}

	inputs := n.Inputs()
	if len(inputs) == 0 {
		return n, false, 0, nil
	}

	newInputs := make([]algebra.AlgNode, len(inputs))
	childStoreSpecific := make([]bool, len(inputs))
	childAdapter := make([]int64, len(inputs))
	for i, in := range inputs {
		rewritten, ss, aid, cerr := r.routeNode(in, t)
		if cerr != nil {
			return nil, false, 0, cerr
		}
		newInputs[i] = rewritten
		childStoreSpecific[i] = ss
		childAdapter[i] = aid
	}

	if pushable, aid := r.canPushdownAll(n.Op(), childStoreSpecific, childAdapter); pushable {
		rebuilt := n.WithInputs(newInputs).WithTraits(algebra.TraitSet{Convention: algebra.StoreSpecific})
		return rebuilt, true, aid, nil
	}

	for i, in := range newInputs {
		if childStoreSpecific[i] {
			newInputs[i] = algebra.NewExchange(in, algebra.Distribution{Kind: algebra.Single})
		}
	}
	rebuilt := n.WithInputs(newInputs)
	return rebuilt, false, 0, nil
}

// canPushdownAll reports whether every store-specific child is resident
// on the same adapter and that adapter accepts op natively (§4.6
// "unless an adapter pair supports a native pushdown"). Children that
// are not store-specific (already coordinator-side) block pushdown,
// since the operator would then need rows from both a store and the
// coordinator in the same native call.
func (r *Router) canPushdownAll(op string, storeSpecific []bool, adapterIDs []int64) (bool, int64) {
	if len(storeSpecific) == 0 {
		return false, 0
	}
	first := adapterIDs[0]
	for i, ss := range storeSpecific {
		if !ss || adapterIDs[i] != first {
			return false, 0
		}
	}
	a, ok := r.registry.Get(first)
	if !ok {
		return false, 0
	}
	if !a.CanPushdown(op, algebra.StoreSpecific, algebra.StoreSpecific) {
		return false, 0
	}
	return true, first
}

// routeScan rewrites a logical Scan to one PhysicalScan, or to a Join
// tree of PhysicalScans reconciled on the table's primary key when no
// single placement covers every column the scan projects (§4.6).
func (r *Router) routeScan(scan *algebra.Scan, t *txn.Transaction) (algebra.AlgNode, bool, int64, error) {
	table, ok := r.snapshot.Table(scan.Entity.TableID)
	if !ok {
		return nil, false, 0, fmt.Errorf("router: scan references unknown table %d", scan.Entity.TableID)
	}

	needed := make([]string, len(scan.RowType().Fields))
	for i, f := range scan.RowType().Fields {
		needed[i] = f.Name
	}

	placements, err := r.selectPlacements(table, needed)
	if err != nil {
		return nil, false, 0, err
	}

	if len(placements) == 1 {
		ps, err := r.buildPhysicalScan(scan.Entity, table, placements[0], needed)
		if err != nil {
			return nil, false, 0, err
		}
		t.Enlist(ps.AdapterID)
		return ps, true, ps.AdapterID, nil
	}

	pk, hasPK := table.PrimaryKey()
	if !hasPK {
		return nil, false, 0, ErrNoPlacementCoversColumns.New(table.Name, needed)
	}
	pkNames := make([]string, len(pk.ColumnIDs))
	colName := colIDToName(table)
	for i, cid := range pk.ColumnIDs {
		pkNames[i] = colName[cid]
	}

	// Every placement is assumed to carry its table's primary key columns
	// (the catalog marks these AllocationColumns Automatic, §3 Allocation
	// layer), which is what makes the join below always reconstructable.
	allNeeded := unionColumns(needed, pkNames)
	var joined algebra.AlgNode
	var joinedNames []string
	for i, p := range placements {
		cov := r.columnCoverage(table, p)
		var cols []string
		for _, c := range allNeeded {
			if cov[c] {
				cols = append(cols, c)
			}
		}
		ps, err := r.buildPhysicalScan(scan.Entity, table, p, cols)
		if err != nil {
			return nil, false, 0, err
		}
		t.Enlist(ps.AdapterID)
		exch := algebra.AlgNode(algebra.NewExchange(ps, algebra.Distribution{Kind: algebra.Single}))
		if i == 0 {
			joined = exch
			joinedNames = cols
			continue
		}
		cond, jerr := buildPKJoinCond(joinedNames, joined.RowType(), cols, ps.RowType(), pkNames)
		if jerr != nil {
			return nil, false, 0, jerr
		}
		j, jerr := algebra.NewJoin(joined, exch, algebra.InnerJoin, cond)
		if jerr != nil {
			return nil, false, 0, jerr
		}
		joined = j
		joinedNames = append(append([]string{}, joinedNames...), cols...)
	}

	proj, perr := projectToNeeded(joined, joinedNames, needed)
	if perr != nil {
		return nil, false, 0, perr
	}
	return proj, false, 0, nil
}

// selectPlacements implements §4.6's preference order: (i) a single
// placement covering every needed column, (ii) otherwise a covering set
// built greedily in adapter-id order (a placement is kept when it adds a
// still-uncovered column, so the set is not always the smallest one),
// both tie-broken deterministically by adapter id since
// this router does not yet track estimated transfer cost per placement.
func (r *Router) selectPlacements(table *catalog.Table, needed []string) ([]*catalog.Placement, error) {
	placements := append([]*catalog.Placement{}, r.snapshot.Placements(table.ID)...)
	sort.Slice(placements, func(i, j int) bool { return placements[i].AdapterID < placements[j].AdapterID })

	coverage := map[int64]map[string]bool{}
	for _, p := range placements {
		coverage[p.ID] = r.columnCoverage(table, p)
	}

	for _, p := range placements {
		if coversAll(coverage[p.ID], needed) {
			return []*catalog.Placement{p}, nil
		}
	}

	var chosen []*catalog.Placement
	covered := map[string]bool{}
	for _, p := range placements {
		if coversAll(covered, needed) {
			break
		}
		adds := false
		for _, c := range needed {
			if !covered[c] && coverage[p.ID][c] {
				adds = true
				break
			}
		}
		if adds {
			chosen = append(chosen, p)
			for c := range coverage[p.ID] {
				covered[c] = true
			}
		}
	}
	if !coversAll(covered, needed) {
		return nil, ErrNoPlacementCoversColumns.New(table.Name, needed)
	}
	return chosen, nil
}

func coversAll(have map[string]bool, needed []string) bool {
	for _, c := range needed {
		if !have[c] {
			return false
		}
	}
	return true
}

// columnCoverage reports which of table's logical columns (by name) a
// placement's AllocationColumns bind.
func (r *Router) columnCoverage(table *catalog.Table, p *catalog.Placement) map[string]bool {
	colName := colIDToName(table)
	set := map[string]bool{}
	for _, ac := range r.snapshot.AllocationColumns(p.ID) {
		set[colName[ac.ColumnID]] = true
	}
	return set
}

func colIDToName(table *catalog.Table) map[int64]string {
	out := make(map[int64]string, len(table.Columns))
	for _, c := range table.Columns {
		out[c.ID] = c.Name
	}
	return out
}

func unionColumns(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range a {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range b {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// buildPhysicalScan resolves cols' physical names from the placement's
// reconciled PhysicalTable when available, falling back to the
// deterministic col<id> naming scheme (§3/§6) otherwise, and restricts
// the scan's row type to exactly those columns, in the requested order.
func (r *Router) buildPhysicalScan(entity algebra.EntityRef, table *catalog.Table, p *catalog.Placement, cols []string) (*PhysicalScan, error) {
	if _, ok := r.registry.Get(p.AdapterID); !ok {
		return nil, ErrUnknownAdapter.New(p.AdapterID)
	}
	alloc, err := r.allocationTable(p, table.Name)
	if err != nil {
		return nil, err
	}

	colByName := map[string]*catalog.Column{}
	for _, c := range table.Columns {
		colByName[c.Name] = c
	}
	physByLogical := r.physicalColumnNames(alloc)

	fields := make([]types.Field, len(cols))
	physNames := make([]string, len(cols))
	for i, name := range cols {
		col, ok := colByName[name]
		if !ok {
			return nil, fmt.Errorf("router: column %q not found on table %q", name, table.Name)
		}
		fields[i] = types.Field{Name: col.Name, Type: col.Type, Nullable: col.Nullable}
		physNames[i] = physicalNameFor(physByLogical, col.ID)
	}
	rowType := types.RecordOf(fields, false)
	return newPhysicalScan(entity, p.AdapterID, alloc, rowType, physNames, nil), nil
}

// allocationTable returns the (first, since partitioning beyond a single
// partition is out of scope here) concrete AllocationTable backing a
// placement.
func (r *Router) allocationTable(p *catalog.Placement, tableName string) (*catalog.AllocationTable, error) {
	allocTables := r.snapshot.AllocationTables(p.ID)
	if len(allocTables) == 0 {
		return nil, fmt.Errorf("router: placement %d of table %q has no allocation table", p.ID, tableName)
	}
	return allocTables[0], nil
}

// physicalColumnNames resolves alloc's reconciled physical column
// bindings, keyed by logical column id. An empty map means the adapter
// has not reconciled this allocation since its last restart (§3); callers
// fall back to the deterministic col<id> naming scheme via physicalNameFor.
func (r *Router) physicalColumnNames(alloc *catalog.AllocationTable) map[int64]string {
	physTable, reconciled := r.snapshot.PhysicalTable(alloc.ID)
	out := map[int64]string{}
	if reconciled {
		for _, pc := range physTable.Columns {
			out[pc.LogicalID] = pc.PhysicalName
		}
	}
	return out
}

func physicalNameFor(byLogical map[int64]string, colID int64) string {
	if pn, ok := byLogical[colID]; ok {
		return pn
	}
	return catalog.PhysicalColumnName(colID, 0)
}

// buildPKJoinCond builds left.pk[i] = right.pk[i] AND ... over the
// concatenated row produced once leftNames and rightNames are joined
// side by side, used to reconstruct one logical row split across
// placements (§4.6 "insert a Join on the table's primary key").
func buildPKJoinCond(leftNames []string, leftRow *algebra.RowType, rightNames []string, rightRow *algebra.RowType, pkNames []string) (algebra.RexNode, error) {
	leftIdx := indexOf(leftNames)
	rightIdx := indexOf(rightNames)
	boolType, _ := types.Of(types.Boolean, 0, 0, "", "")
	var cond algebra.RexNode
	for _, pk := range pkNames {
		li, ok := leftIdx[pk]
		if !ok {
			return nil, fmt.Errorf("router: primary key column %q missing from left join side", pk)
		}
		ri, ok := rightIdx[pk]
		if !ok {
			return nil, fmt.Errorf("router: primary key column %q missing from right join side", pk)
		}
		left := &algebra.InputRef{Index: li, Typ: leftRow.Fields[li].Type}
		right := &algebra.InputRef{Index: len(leftNames) + ri, Typ: rightRow.Fields[ri].Type}
		eq := &algebra.Call{Op: algebra.Operator{Name: "="}, Args: []algebra.RexNode{left, right}, Typ: boolType}
		if cond == nil {
			cond = eq
		} else {
			cond = &algebra.Call{Op: algebra.Operator{Name: "AND"}, Args: []algebra.RexNode{cond, eq}, Typ: boolType}
		}
	}
	return cond, nil
}

func indexOf(names []string) map[string]int {
	out := make(map[string]int, len(names))
	for i, n := range names {
		out[n] = i
	}
	return out
}

// projectToNeeded drops the duplicate primary-key columns a multi-
// placement reconstruction join carries and restores the scan's
// original projected column order.
func projectToNeeded(joined algebra.AlgNode, joinedNames, needed []string) (*algebra.Project, error) {
	idx := indexOf(joinedNames)
	exprs := make([]algebra.RexNode, len(needed))
	names := make([]string, len(needed))
	for i, n := range needed {
		fi, ok := idx[n]
		if !ok {
			return nil, fmt.Errorf("router: reconstructed join is missing needed column %q", n)
		}
		exprs[i] = &algebra.InputRef{Index: fi, Typ: joined.RowType().Fields[fi].Type}
		names[i] = n
	}
	return algebra.NewProject(joined, exprs, names), nil
}

func rowCountType() *algebra.RowType {
	countType, _ := types.Of(types.BigInt, 0, 0, "", "")
	return types.RecordOf([]types.Field{{Name: "ROWCOUNT", Type: countType}}, false)
}

// routeModify fans a logical TableModify out to every placement it must
// touch (§4.6 DML fan-out), enlisting each placement's adapter on t. A
// placement whose covered columns don't intersect the write (e.g. an
// UPDATE that never touches that placement's columns) is skipped.
//
// The WHERE condition, when present, is left referencing the logical
// table's column positions rather than rewritten per placement: adapters
// receive Plan.Filter as a predicate over the logical row and are
// responsible for translating it against their own physical layout,
// exactly as Plan.Columns/Plan.Set already name physical columns for the
// values half of the same Plan.
func (r *Router) routeModify(tm *algebra.TableModify, t *txn.Transaction) (algebra.AlgNode, error) {
	table, ok := r.snapshot.Table(tm.Entity.TableID)
	if !ok {
		return nil, fmt.Errorf("router: modify references unknown table %d", tm.Entity.TableID)
	}
	placements := r.snapshot.Placements(table.ID)
	if len(placements) == 0 {
		return nil, ErrNoPlacementCoversColumns.New(table.Name, []string{"*"})
	}
	colName := colIDToName(table)

	var filter algebra.RexNode
	var rows [][]algebra.RexNode
	switch tm.ModOp {
	case algebra.Insert:
		inputs := tm.Inputs()
		valuesNode, ok := inputs[0].(*algebra.Values)
		if !ok {
			return nil, fmt.Errorf("router: insert input is %T, want *algebra.Values", inputs[0])
		}
		rows = valuesNode.Rows
	case algebra.Update, algebra.Delete:
		inputs := tm.Inputs()
		switch in := inputs[0].(type) {
		case *algebra.Filter:
			filter = in.Cond
		case *algebra.Scan:
			filter = nil
		default:
			return nil, fmt.Errorf("router: unsupported modify input %T", in)
		}
	default:
		return nil, fmt.Errorf("router: unsupported modify op %v", tm.ModOp)
	}

	colIndex := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		colIndex[c.Name] = i
	}

	var targets []*PhysicalModify
	for _, p := range placements {
		if _, ok := r.registry.Get(p.AdapterID); !ok {
			return nil, ErrUnknownAdapter.New(p.AdapterID)
		}
		alloc, err := r.allocationTable(p, table.Name)
		if err != nil {
			return nil, err
		}
		physByLogical := r.physicalColumnNames(alloc)

		covered := map[string]bool{}
		physOf := map[string]string{}
		for _, ac := range r.snapshot.AllocationColumns(p.ID) {
			name := colName[ac.ColumnID]
			covered[name] = true
			physOf[name] = physicalNameFor(physByLogical, ac.ColumnID)
		}

		var physCols []string
		for _, c := range table.Columns {
			if covered[c.Name] {
				physCols = append(physCols, physOf[c.Name])
			}
		}

		var pm *PhysicalModify
		switch tm.ModOp {
		case algebra.Insert:
			placementRows := make([][]algebra.RexNode, len(rows))
			for i, row := range rows {
				var pr []algebra.RexNode
				for _, c := range table.Columns {
					if covered[c.Name] {
						pr = append(pr, row[colIndex[c.Name]])
					}
				}
				placementRows[i] = pr
			}
			pm = newPhysicalModify(tm.Entity, p.AdapterID, alloc, algebra.Insert, physCols)
			pm.Rows = placementRows
		case algebra.Update:
			set := map[string]algebra.RexNode{}
			for i, col := range tm.UpdateColumns {
				if covered[col] {
					set[physOf[col]] = tm.SourceExpressions[i]
				}
			}
			if len(set) == 0 {
				continue // this placement stores none of the updated columns
			}
			pm = newPhysicalModify(tm.Entity, p.AdapterID, alloc, algebra.Update, physCols)
			pm.Set = set
			pm.Filter = filter
		case algebra.Delete:
			pm = newPhysicalModify(tm.Entity, p.AdapterID, alloc, algebra.Delete, physCols)
			pm.Filter = filter
		}
		targets = append(targets, pm)
		t.Enlist(p.AdapterID)
	}
	if len(targets) == 0 {
		return nil, ErrNoPlacementCoversColumns.New(table.Name, []string{"*"})
	}
	return newMultiplex(tm.Entity, targets), nil
}
