package aop

import (
	"reflect"
)

// ClassFilter restricts a pointcut or introduction to a set of target types.
type ClassFilter interface {
	Matches(t reflect.Type) bool
}

// ClassFilterFunc adapts a function to ClassFilter.
type ClassFilterFunc func(t reflect.Type) bool

func (f ClassFilterFunc) Matches(t reflect.Type) bool {
	return f(t)
}

type trueClassFilter struct{}

func (trueClassFilter) Matches(reflect.Type) bool { return true }

func (trueClassFilter) String() string { return "ClassFilter.TRUE" }

// TrueClassFilter matches every type.
var TrueClassFilter ClassFilter = trueClassFilter{}

// TypeClassFilter matches types assignable to t; for interface types this
// means implementing it.
func TypeClassFilter(t reflect.Type) ClassFilter {
	return ClassFilterFunc(func(candidate reflect.Type) bool {
		return candidate != nil && candidate.AssignableTo(t)
	})
}

type unionClassFilter []ClassFilter

func (u unionClassFilter) Matches(t reflect.Type) bool {
	for _, f := range u {
		if f.Matches(t) {
			return true
		}
	}
	return false
}

type intersectionClassFilter []ClassFilter

func (in intersectionClassFilter) Matches(t reflect.Type) bool {
	for _, f := range in {
		if !f.Matches(t) {
			return false
		}
	}
	return true
}

// UnionClassFilters matches what either filter matches.
func UnionClassFilters(a, b ClassFilter) ClassFilter {
	if a == TrueClassFilter || b == TrueClassFilter {
		return TrueClassFilter
	}
	return unionClassFilter{a, b}
}

// IntersectClassFilters matches only what both filters match.
func IntersectClassFilters(a, b ClassFilter) ClassFilter {
	if a == TrueClassFilter {
		return b
	}
	if b == TrueClassFilter {
		return a
	}
	return intersectionClassFilter{a, b}
}

// NegateClassFilter inverts f.
func NegateClassFilter(f ClassFilter) ClassFilter {
	return ClassFilterFunc(func(t reflect.Type) bool { return !f.Matches(t) })
}
