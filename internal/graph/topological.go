package graph

import (
	"errors"
	"slices"
)

var ErrCycleDetected = errors.New("cycle detected in graph")

// StartupOrder returns the nodes with every node after its dependencies,
// otherwise in insertion order.
func (g *Graph) StartupOrder() ([]string, error) {
	if g.HasCycle() {
		return nil, ErrCycleDetected
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(g.order))
	sorted := make([]string, 0, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.known(id) {
			visit(dep)
		}
		sorted = append(sorted, id)
	}
	for _, id := range g.order {
		visit(id)
	}
	return sorted, nil
}

// ShutdownOrder is StartupOrder reversed.
func (g *Graph) ShutdownOrder() ([]string, error) {
	sorted, err := g.StartupOrder()
	if err != nil {
		return nil, err
	}
	slices.Reverse(sorted)
	return sorted, nil
}

// ResolutionOrder returns target's transitive dependencies followed by
// target itself.
func (g *Graph) ResolutionOrder(target string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, exists := g.edges[target]; !exists {
		return []string{target}, nil
	}

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		if visiting[id] {
			return ErrCycleDetected
		}
		if visited[id] {
			return nil
		}

		visiting[id] = true
		for _, dep := range g.known(id) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[id] = false
		visited[id] = true
		order = append(order, id)
		return nil
	}

	if err := visit(target); err != nil {
		return nil, err
	}
	return order, nil
}

// Group is a set of nodes whose dependencies all live in lower levels, so
// they can be started concurrently.
type Group struct {
	Level int
	Nodes []string
}

// Levels groups nodes by dependency depth: level 0 has no known
// dependencies, level n depends on at least one node of level n-1.
func (g *Graph) Levels() ([]Group, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	levels := make(map[string]int, len(g.order))
	visiting := make(map[string]bool)

	var level func(id string) (int, error)
	level = func(id string) (int, error) {
		if l, ok := levels[id]; ok {
			return l, nil
		}
		if visiting[id] {
			return 0, ErrCycleDetected
		}
		visiting[id] = true
		defer delete(visiting, id)

		l := 0
		for _, dep := range g.known(id) {
			depLevel, err := level(dep)
			if err != nil {
				return 0, err
			}
			l = max(l, depLevel+1)
		}
		levels[id] = l
		return l, nil
	}

	maxLevel := -1
	for _, id := range g.order {
		l, err := level(id)
		if err != nil {
			return nil, err
		}
		maxLevel = max(maxLevel, l)
	}

	groups := make([]Group, maxLevel+1)
	for i := range groups {
		groups[i].Level = i
	}
	for _, id := range g.order {
		l := levels[id]
		groups[l].Nodes = append(groups[l].Nodes, id)
	}
	return groups, nil
}

// ReverseLevels returns Levels with the deepest group first.
func (g *Graph) ReverseLevels() ([]Group, error) {
	groups, err := g.Levels()
	if err != nil {
		return nil, err
	}
	slices.Reverse(groups)
	return groups, nil
}
