package gazetteer

// hierarchy answers is_ancestor(parent_id, child_id) from a precomputed
// closure table. Spec §9's Design Notes call out that the place
// hierarchy is a DAG, not a tree, and that is_ancestor should use a
// closure table or cached BFS rather than recursive pointer traversal -
// this builds that closure once at startup.
type hierarchy struct {
	ancestors map[string]map[string]bool // child -> set of all ancestors
}

func newHierarchy(edges []HierarchyEdge) hierarchy {
	children := make(map[string][]string) // parent -> direct children
	for _, e := range edges {
		children[e.ParentID] = append(children[e.ParentID], e.ChildID)
	}

	h := hierarchy{ancestors: make(map[string]map[string]bool)}

	// For every node that appears as a parent, BFS down and record it as
	// an ancestor of everything reachable.
	for root := range children {
		visited := make(map[string]bool)
		queue := append([]string{}, children[root]...)
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if visited[node] {
				continue
			}
			visited[node] = true

			if h.ancestors[node] == nil {
				h.ancestors[node] = make(map[string]bool)
			}
			h.ancestors[node][root] = true

			queue = append(queue, children[node]...)
		}
	}

	return h
}

func (h hierarchy) isAncestor(parentID, childID string) bool {
	if parentID == "" || childID == "" {
		return false
	}
	return h.ancestors[childID][parentID]
}
