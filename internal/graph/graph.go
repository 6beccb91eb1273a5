package graph

import (
	"slices"
	"sync"
)

// Graph is a dependency graph of bean names. Nodes keep their insertion
// order; every traversal visits them in that order so results are
// deterministic.
type Graph struct {
	mu    sync.RWMutex
	order []string
	edges map[string][]string

	cycleValid bool
	hasCycle   bool
}

func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// AddNode adds id with its dependencies, replacing the edges of an existing
// node without changing its position.
func (g *Graph) AddNode(id string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[id]; !exists {
		g.order = append(g.order, id)
	}
	g.edges[id] = slices.Clone(dependencies)
	g.cycleValid = false
}

func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[id]; !exists {
		return
	}
	delete(g.edges, id)
	g.order = slices.DeleteFunc(g.order, func(n string) bool { return n == id })
	g.cycleValid = false
}

func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.edges[id]
	return exists
}

func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Clone(g.edges[id])
}

// Dependents returns the nodes depending on id, in insertion order.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, node := range g.order {
		if slices.Contains(g.edges[node], id) {
			dependents = append(dependents, node)
		}
	}
	return dependents
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Clone(g.order)
}

func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.order)
}

func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := New()
	clone.order = slices.Clone(g.order)
	for id, deps := range g.edges {
		clone.edges[id] = slices.Clone(deps)
	}
	return clone
}

// Missing returns dependencies that are not nodes of the graph, each once,
// in the order they are first referenced.
func (g *Graph) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []string
	seen := make(map[string]bool)
	for _, id := range g.order {
		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; !exists && !seen[dep] {
				missing = append(missing, dep)
				seen[dep] = true
			}
		}
	}
	return missing
}

// known returns the dependencies of id that are nodes. Caller holds g.mu.
func (g *Graph) known(id string) []string {
	deps := g.edges[id]
	out := deps[:0:0]
	for _, dep := range deps {
		if _, exists := g.edges[dep]; exists {
			out = append(out, dep)
		}
	}
	return out
}
