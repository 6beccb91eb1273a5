package aop

import (
	"sort"
)

// SortAdvisors orders advisors ascending by Order. Within a run of equal
// order, advisors from the same aspect are arranged by declaration order in
// the slots they occupy; everything else keeps its input position. The sort
// is deterministic for identical input.
func SortAdvisors(advisors []Advisor) []Advisor {
	out := make([]Advisor, len(advisors))
	copy(out, advisors)

	sort.SliceStable(out, func(i, j int) bool {
		return OrderOf(out[i]) < OrderOf(out[j])
	})

	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && OrderOf(out[end]) == OrderOf(out[start]) {
			end++
		}
		if end-start > 1 {
			sortByDeclaration(out[start:end])
		}
		start = end
	}
	return out
}

// sortByDeclaration reorders the members of each aspect within run by
// declaration order, reusing the positions that aspect already held.
func sortByDeclaration(run []Advisor) {
	slots := make(map[string][]int)
	var aspects []string
	for i, a := range run {
		pi, ok := a.(PrecedenceInformation)
		if !ok {
			continue
		}
		name := pi.AspectName()
		if _, seen := slots[name]; !seen {
			aspects = append(aspects, name)
		}
		slots[name] = append(slots[name], i)
	}

	for _, name := range aspects {
		positions := slots[name]
		if len(positions) < 2 {
			continue
		}
		members := make([]Advisor, len(positions))
		for i, p := range positions {
			members[i] = run[p]
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].(PrecedenceInformation).DeclarationOrder() <
				members[j].(PrecedenceInformation).DeclarationOrder()
		})
		for i, p := range positions {
			run[p] = members[i]
		}
	}
}
