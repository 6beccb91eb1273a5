package graph

import "slices"

// HasCycle reports whether the graph contains a cycle. The answer is cached
// until the graph changes.
func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	if g.cycleValid {
		result := g.hasCycle
		g.mu.RUnlock()
		return result
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cycleValid {
		g.hasCycle = len(g.cycles(true)) > 0
		g.cycleValid = true
	}
	return g.hasCycle
}

// CyclePath returns a cycle reachable from start as a closed path
// (first element repeated at the end), or nil.
func (g *Graph) CyclePath(start string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cycleFrom(start, make(map[string]bool))
}

// Cycles returns one closed path per distinct cycle found while walking the
// graph in insertion order.
func (g *Graph) Cycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cycles(false)
}

func (g *Graph) cycles(firstOnly bool) [][]string {
	var found [][]string
	done := make(map[string]bool)

	for _, id := range g.order {
		if done[id] {
			continue
		}
		path := g.cycleFrom(id, done)
		if path == nil {
			continue
		}
		found = append(found, path)
		if firstOnly {
			return found
		}
		for _, n := range path {
			done[n] = true
		}
	}
	return found
}

// cycleFrom runs a depth-first search from start. Nodes in done are not
// walked again; nodes proven acyclic are added to it.
func (g *Graph) cycleFrom(start string, done map[string]bool) []string {
	var path []string
	inPath := make(map[string]bool)

	var visit func(id string) []string
	visit = func(id string) []string {
		if inPath[id] {
			i := slices.Index(path, id)
			return append(slices.Clone(path[i:]), id)
		}
		if done[id] {
			return nil
		}

		path = append(path, id)
		inPath[id] = true
		for _, dep := range g.known(id) {
			if cycle := visit(dep); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		inPath[id] = false
		done[id] = true
		return nil
	}

	if _, exists := g.edges[start]; !exists {
		return nil
	}
	return visit(start)
}
