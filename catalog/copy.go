package catalog

// copy.go holds the shallow-copy/index helpers used by Catalog.publish to
// build an immutable Snapshot. Mutation methods on Catalog change the
// live entities in place, so every entity a Snapshot holds (including each
// Table's Columns and Keys and each placement's AllocationColumns) is a
// copy taken at publish time, never a value the live maps still reach.

func copyNamespaces(m map[int64]*Namespace) map[int64]*Namespace {
	out := make(map[int64]*Namespace, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func copyTables(m map[int64]*Table) map[int64]*Table {
	out := make(map[int64]*Table, len(m))
	for k, v := range m {
		cp := *v
		cp.Columns = make([]*Column, len(v.Columns))
		for i, col := range v.Columns {
			c := *col
			cp.Columns[i] = &c
		}
		cp.Keys = make([]*Key, len(v.Keys))
		for i, key := range v.Keys {
			kc := *key
			cp.Keys[i] = &kc
		}
		out[k] = &cp
	}
	return out
}

func indexTablesByNS(m map[int64]*Table) map[int64]map[int64]*Table {
	out := map[int64]map[int64]*Table{}
	for _, t := range copyTables(m) {
		cp := *t
		if out[t.NamespaceID] == nil {
			out[t.NamespaceID] = map[int64]*Table{}
		}
		out[t.NamespaceID][t.ID] = &cp
	}
	return out
}

func copyPlacements(m map[int64]*Placement) map[int64]*Placement {
	out := make(map[int64]*Placement, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func indexPlacementsByTable(m map[int64]*Placement) map[int64][]*Placement {
	out := map[int64][]*Placement{}
	for _, p := range m {
		cp := *p
		out[p.LogicalTableID] = append(out[p.LogicalTableID], &cp)
	}
	return out
}

func copyAllocCols(m map[int64][]*AllocationColumn) map[int64][]*AllocationColumn {
	out := make(map[int64][]*AllocationColumn, len(m))
	for k, v := range m {
		cp := make([]*AllocationColumn, len(v))
		for i, ac := range v {
			c := *ac
			cp[i] = &c
		}
		out[k] = cp
	}
	return out
}

func copyPartitions(m map[int64]*Partition) map[int64]*Partition {
	out := make(map[int64]*Partition, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func indexPartitionsByTable(m map[int64]*Partition) map[int64][]*Partition {
	out := map[int64][]*Partition{}
	for _, p := range m {
		cp := *p
		out[p.TableID] = append(out[p.TableID], &cp)
	}
	return out
}

func copyAllocTables(m map[int64]*AllocationTable) map[int64]*AllocationTable {
	out := make(map[int64]*AllocationTable, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func indexAllocTablesByPlacement(m map[int64]*AllocationTable) map[int64][]*AllocationTable {
	out := map[int64][]*AllocationTable{}
	for _, at := range m {
		cp := *at
		out[at.PlacementID] = append(out[at.PlacementID], &cp)
	}
	return out
}
