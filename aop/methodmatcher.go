package aop

import (
	"reflect"
)

// MethodMatcher decides whether advice applies to a method. Static matching
// happens once per method and target type; when IsRuntime reports true the
// chain also calls MatchesArgs on every invocation, and only after Matches
// returned true.
type MethodMatcher interface {
	Matches(m Method, target reflect.Type) bool
	IsRuntime() bool
	MatchesArgs(m Method, target reflect.Type, args []any) bool
}

// IntroductionAwareMethodMatcher is told whether the target carries
// introductions, so it can accept methods only satisfied through an
// introduced interface.
type IntroductionAwareMethodMatcher interface {
	MethodMatcher
	MatchesIntroductions(m Method, target reflect.Type, hasIntroductions bool) bool
}

// StaticMatcherFunc is a static MethodMatcher. Its dynamic form must never be
// reached; calling it panics.
type StaticMatcherFunc func(m Method, target reflect.Type) bool

func (f StaticMatcherFunc) Matches(m Method, target reflect.Type) bool {
	return f(m, target)
}

func (f StaticMatcherFunc) IsRuntime() bool { return false }

func (f StaticMatcherFunc) MatchesArgs(Method, reflect.Type, []any) bool {
	panic(errIllegalState("illegal MethodMatcher usage: static matcher asked for a dynamic match"))
}

// DynamicMatcherFunc is a runtime MethodMatcher that accepts every method
// statically and decides on the arguments.
type DynamicMatcherFunc func(m Method, target reflect.Type, args []any) bool

func (f DynamicMatcherFunc) Matches(Method, reflect.Type) bool { return true }

func (f DynamicMatcherFunc) IsRuntime() bool { return true }

func (f DynamicMatcherFunc) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	return f(m, target, args)
}

type trueMethodMatcher struct{}

func (trueMethodMatcher) Matches(Method, reflect.Type) bool { return true }

func (trueMethodMatcher) IsRuntime() bool { return false }

func (trueMethodMatcher) MatchesArgs(Method, reflect.Type, []any) bool {
	panic(errIllegalState("illegal MethodMatcher usage: static matcher asked for a dynamic match"))
}

func (trueMethodMatcher) String() string { return "MethodMatcher.TRUE" }

// TrueMethodMatcher matches every method.
var TrueMethodMatcher MethodMatcher = trueMethodMatcher{}

// matchesStatically evaluates the static form, honoring introduction
// awareness.
func matchesStatically(mm MethodMatcher, m Method, target reflect.Type, hasIntroductions bool) bool {
	if ia, ok := mm.(IntroductionAwareMethodMatcher); ok {
		return ia.MatchesIntroductions(m, target, hasIntroductions)
	}
	return mm.Matches(m, target)
}

// matchesAtRuntime evaluates the strongest form mm supports. The dynamic form
// only runs after the static form accepted the method.
func matchesAtRuntime(mm MethodMatcher, m Method, target reflect.Type, args []any) bool {
	if !mm.Matches(m, target) {
		return false
	}
	if mm.IsRuntime() {
		return mm.MatchesArgs(m, target, args)
	}
	return true
}

type unionMethodMatcher struct {
	a, b MethodMatcher
}

func (u unionMethodMatcher) Matches(m Method, target reflect.Type) bool {
	return u.a.Matches(m, target) || u.b.Matches(m, target)
}

func (u unionMethodMatcher) MatchesIntroductions(m Method, target reflect.Type, hasIntroductions bool) bool {
	return matchesStatically(u.a, m, target, hasIntroductions) ||
		matchesStatically(u.b, m, target, hasIntroductions)
}

func (u unionMethodMatcher) IsRuntime() bool {
	return u.a.IsRuntime() || u.b.IsRuntime()
}

func (u unionMethodMatcher) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	return matchesAtRuntime(u.a, m, target, args) || matchesAtRuntime(u.b, m, target, args)
}

// classFilterAwareUnion only counts a method from one side if that side's
// class filter also accepts the candidate type.
type classFilterAwareUnion struct {
	a, b MethodMatcher
	cfa  ClassFilter
	cfb  ClassFilter
}

func (u classFilterAwareUnion) Matches(m Method, target reflect.Type) bool {
	return (u.cfa.Matches(target) && u.a.Matches(m, target)) ||
		(u.cfb.Matches(target) && u.b.Matches(m, target))
}

func (u classFilterAwareUnion) MatchesIntroductions(m Method, target reflect.Type, hasIntroductions bool) bool {
	return (u.cfa.Matches(target) && matchesStatically(u.a, m, target, hasIntroductions)) ||
		(u.cfb.Matches(target) && matchesStatically(u.b, m, target, hasIntroductions))
}

func (u classFilterAwareUnion) IsRuntime() bool {
	return u.a.IsRuntime() || u.b.IsRuntime()
}

func (u classFilterAwareUnion) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	return (u.cfa.Matches(target) && matchesAtRuntime(u.a, m, target, args)) ||
		(u.cfb.Matches(target) && matchesAtRuntime(u.b, m, target, args))
}

type intersectionMethodMatcher struct {
	a, b MethodMatcher
}

func (in intersectionMethodMatcher) Matches(m Method, target reflect.Type) bool {
	return in.a.Matches(m, target) && in.b.Matches(m, target)
}

func (in intersectionMethodMatcher) MatchesIntroductions(m Method, target reflect.Type, hasIntroductions bool) bool {
	return matchesStatically(in.a, m, target, hasIntroductions) &&
		matchesStatically(in.b, m, target, hasIntroductions)
}

func (in intersectionMethodMatcher) IsRuntime() bool {
	return in.a.IsRuntime() || in.b.IsRuntime()
}

func (in intersectionMethodMatcher) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	return matchesAtRuntime(in.a, m, target, args) && matchesAtRuntime(in.b, m, target, args)
}

// UnionMethodMatchers matches what either matcher matches.
func UnionMethodMatchers(a, b MethodMatcher) MethodMatcher {
	if a == TrueMethodMatcher || b == TrueMethodMatcher {
		return TrueMethodMatcher
	}
	return unionMethodMatcher{a: a, b: b}
}

// IntersectMethodMatchers matches only what both matchers match.
func IntersectMethodMatchers(a, b MethodMatcher) MethodMatcher {
	if a == TrueMethodMatcher {
		return b
	}
	if b == TrueMethodMatcher {
		return a
	}
	return intersectionMethodMatcher{a: a, b: b}
}

func unionWithClassFilters(a MethodMatcher, cfa ClassFilter, b MethodMatcher, cfb ClassFilter) MethodMatcher {
	if cfa == TrueClassFilter && cfb == TrueClassFilter {
		return UnionMethodMatchers(a, b)
	}
	return classFilterAwareUnion{a: a, b: b, cfa: cfa, cfb: cfb}
}
