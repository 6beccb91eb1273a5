package aop

import (
	"path"
	"reflect"
)

// Pointcut selects join points by type and method.
type Pointcut interface {
	ClassFilter() ClassFilter
	MethodMatcher() MethodMatcher
}

type staticPointcut struct {
	cf ClassFilter
	mm MethodMatcher
}

func (p staticPointcut) ClassFilter() ClassFilter     { return p.cf }
func (p staticPointcut) MethodMatcher() MethodMatcher { return p.mm }

// NewPointcut pairs a class filter with a method matcher. Nil parts match
// everything.
func NewPointcut(cf ClassFilter, mm MethodMatcher) Pointcut {
	if cf == nil {
		cf = TrueClassFilter
	}
	if mm == nil {
		mm = TrueMethodMatcher
	}
	return staticPointcut{cf: cf, mm: mm}
}

// TruePointcut matches every method of every type.
var TruePointcut Pointcut = staticPointcut{cf: TrueClassFilter, mm: TrueMethodMatcher}

// ComposablePointcut narrows or widens a pointcut through chained calls.
// All mutators return the receiver.
type ComposablePointcut struct {
	cf ClassFilter
	mm MethodMatcher
}

// NewComposablePointcut starts from the given pointcut, or TruePointcut when
// nil.
func NewComposablePointcut(pc Pointcut) *ComposablePointcut {
	if pc == nil {
		pc = TruePointcut
	}
	return &ComposablePointcut{cf: pc.ClassFilter(), mm: pc.MethodMatcher()}
}

func (c *ComposablePointcut) ClassFilter() ClassFilter     { return c.cf }
func (c *ComposablePointcut) MethodMatcher() MethodMatcher { return c.mm }

func (c *ComposablePointcut) UnionClassFilter(cf ClassFilter) *ComposablePointcut {
	c.cf = UnionClassFilters(c.cf, cf)
	return c
}

func (c *ComposablePointcut) IntersectClassFilter(cf ClassFilter) *ComposablePointcut {
	c.cf = IntersectClassFilters(c.cf, cf)
	return c
}

func (c *ComposablePointcut) UnionMethodMatcher(mm MethodMatcher) *ComposablePointcut {
	c.mm = UnionMethodMatchers(c.mm, mm)
	return c
}

func (c *ComposablePointcut) IntersectMethodMatcher(mm MethodMatcher) *ComposablePointcut {
	c.mm = IntersectMethodMatchers(c.mm, mm)
	return c
}

// Union widens to everything either pointcut selects. The method matcher is
// built class-filter aware so a method from one side only counts for types
// that side's class filter accepts.
func (c *ComposablePointcut) Union(other Pointcut) *ComposablePointcut {
	c.mm = unionWithClassFilters(c.mm, c.cf, other.MethodMatcher(), other.ClassFilter())
	c.cf = UnionClassFilters(c.cf, other.ClassFilter())
	return c
}

// Intersection narrows to what both pointcuts select.
func (c *ComposablePointcut) Intersection(other Pointcut) *ComposablePointcut {
	c.cf = IntersectClassFilters(c.cf, other.ClassFilter())
	c.mm = IntersectMethodMatchers(c.mm, other.MethodMatcher())
	return c
}

// UnionPointcuts returns a pointcut selecting what a or b selects.
func UnionPointcuts(a, b Pointcut) Pointcut {
	return NewComposablePointcut(a).Union(b)
}

// IntersectPointcuts returns a pointcut selecting what both select.
func IntersectPointcuts(a, b Pointcut) Pointcut {
	return NewComposablePointcut(a).Intersection(b)
}

// NameMatchPointcut matches methods whose name matches one of the given
// shell-style patterns.
func NameMatchPointcut(patterns ...string) Pointcut {
	return NewPointcut(TrueClassFilter, StaticMatcherFunc(func(m Method, _ reflect.Type) bool {
		for _, p := range patterns {
			if ok, _ := path.Match(p, m.Name); ok {
				return true
			}
		}
		return false
	}))
}

// MatchesInvocation reports whether pc selects a concrete call.
func MatchesInvocation(pc Pointcut, m Method, target reflect.Type, args []any) bool {
	if !pc.ClassFilter().Matches(target) {
		return false
	}
	mm := pc.MethodMatcher()
	if !mm.Matches(m, target) {
		return false
	}
	return !mm.IsRuntime() || mm.MatchesArgs(m, target, args)
}

// CanApply reports whether pc can select at least one method of target or of
// one of the proxied interfaces.
func CanApply(pc Pointcut, target reflect.Type, interfaces []reflect.Type, hasIntroductions bool) bool {
	if !pc.ClassFilter().Matches(target) {
		return false
	}

	mm := pc.MethodMatcher()
	if mm == TrueMethodMatcher {
		return true
	}

	candidates := make([]reflect.Type, 0, len(interfaces)+1)
	candidates = append(candidates, target)
	candidates = append(candidates, interfaces...)

	for _, t := range candidates {
		for _, m := range MethodsOf(t) {
			if matchesStatically(mm, m, target, hasIntroductions) {
				return true
			}
		}
	}
	return false
}

// CanApplyAdvisor reports whether advisor is relevant for target. Introduction
// advisors only look at their class filter.
func CanApplyAdvisor(advisor Advisor, target reflect.Type, interfaces []reflect.Type, hasIntroductions bool) bool {
	switch a := advisor.(type) {
	case IntroductionAdvisor:
		return a.ClassFilter().Matches(target)
	case PointcutAdvisor:
		return CanApply(a.Pointcut(), target, interfaces, hasIntroductions)
	default:
		return true
	}
}

// FindAdvisorsThatCanApply filters candidates down to those relevant for
// target, keeping the input order. Introductions are evaluated first so the
// remaining advisors know whether any introduction applies.
func FindAdvisorsThatCanApply(candidates []Advisor, target reflect.Type, interfaces []reflect.Type) []Advisor {
	if len(candidates) == 0 {
		return nil
	}

	eligible := make([]Advisor, 0, len(candidates))
	for _, candidate := range candidates {
		if ia, ok := candidate.(IntroductionAdvisor); ok && ia.ClassFilter().Matches(target) {
			eligible = append(eligible, candidate)
		}
	}

	hasIntroductions := len(eligible) > 0
	for _, candidate := range candidates {
		if _, ok := candidate.(IntroductionAdvisor); ok {
			continue
		}
		if CanApplyAdvisor(candidate, target, interfaces, hasIntroductions) {
			eligible = append(eligible, candidate)
		}
	}
	return eligible
}
