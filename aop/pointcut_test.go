package aop

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alpha struct{}

func (alpha) Run() {}

type beta struct{}

func (beta) Run()  {}
func (beta) Stop() {}

type gamma struct{}

func (gamma) Run() {}

var (
	alphaType = reflect.TypeOf(alpha{})
	betaType  = reflect.TypeOf(beta{})
	gammaType = reflect.TypeOf(gamma{})
)

func only(types ...reflect.Type) ClassFilter {
	return ClassFilterFunc(func(t reflect.Type) bool {
		for _, candidate := range types {
			if candidate == t {
				return true
			}
		}
		return false
	})
}

func named(name string) MethodMatcher {
	return StaticMatcherFunc(func(m Method, _ reflect.Type) bool { return m.Name == name })
}

func TestClassFilters_TrueShortCircuits(t *testing.T) {
	t.Parallel()

	a := only(alphaType)

	assert.Equal(t, TrueClassFilter, UnionClassFilters(a, TrueClassFilter))
	assert.Equal(t, TrueClassFilter, UnionClassFilters(TrueClassFilter, a))
	assert.True(t, IntersectClassFilters(TrueClassFilter, a).Matches(alphaType))
	assert.False(t, IntersectClassFilters(a, TrueClassFilter).Matches(betaType))

	union := UnionClassFilters(only(alphaType), only(betaType))
	assert.True(t, union.Matches(alphaType))
	assert.True(t, union.Matches(betaType))
	assert.False(t, union.Matches(gammaType))

	assert.False(t, NegateClassFilter(a).Matches(alphaType))
	assert.True(t, NegateClassFilter(a).Matches(betaType))
}

func TestComposablePointcut_UnionThenIntersection(t *testing.T) {
	t.Parallel()

	a := NewPointcut(only(alphaType), nil)
	b := NewPointcut(only(betaType), nil)
	c := NewPointcut(only(betaType, gammaType), nil)

	pc := NewComposablePointcut(a).Union(b).Intersection(c)

	for _, tt := range []struct {
		typ  reflect.Type
		want bool
	}{
		{alphaType, false},
		{betaType, true},
		{gammaType, false},
	} {
		assert.Equal(t, tt.want, pc.ClassFilter().Matches(tt.typ), "type %v", tt.typ)
	}
}

func TestComposablePointcut_UnionIsClassFilterAware(t *testing.T) {
	t.Parallel()

	runOnAlpha := NewPointcut(only(alphaType), named("Run"))
	stopOnBeta := NewPointcut(only(betaType), named("Stop"))

	pc := NewComposablePointcut(runOnAlpha).Union(stopOnBeta)
	run, _ := MethodOf(betaType, "Run")
	stop, _ := MethodOf(betaType, "Stop")

	assert.True(t, pc.ClassFilter().Matches(betaType))
	assert.False(t, pc.MethodMatcher().Matches(run, betaType), "Run only counts for alpha")
	assert.True(t, pc.MethodMatcher().Matches(stop, betaType))

	alphaRun, _ := MethodOf(alphaType, "Run")
	assert.True(t, pc.MethodMatcher().Matches(alphaRun, alphaType))
}

func TestComposablePointcut_Chaining(t *testing.T) {
	t.Parallel()

	pc := NewComposablePointcut(nil).
		IntersectClassFilter(only(betaType)).
		UnionClassFilter(only(gammaType)).
		IntersectMethodMatcher(named("Run")).
		UnionMethodMatcher(named("Stop"))

	stop, _ := MethodOf(betaType, "Stop")
	run, _ := MethodOf(gammaType, "Run")

	assert.False(t, pc.ClassFilter().Matches(alphaType))
	assert.True(t, pc.ClassFilter().Matches(gammaType))
	assert.True(t, pc.MethodMatcher().Matches(stop, betaType))
	assert.True(t, pc.MethodMatcher().Matches(run, gammaType))
}

func TestStaticMatcher_RejectsDynamicForm(t *testing.T) {
	t.Parallel()

	m, _ := MethodOf(alphaType, "Run")
	mm := named("Run")

	require.False(t, mm.IsRuntime())
	assert.Panics(t, func() { mm.MatchesArgs(m, alphaType, nil) })
	assert.Panics(t, func() { TrueMethodMatcher.MatchesArgs(m, alphaType, nil) })
}

func TestMethodMatchers_Composition(t *testing.T) {
	t.Parallel()

	run, _ := MethodOf(betaType, "Run")
	stop, _ := MethodOf(betaType, "Stop")

	assert.Equal(t, TrueMethodMatcher, UnionMethodMatchers(named("Run"), TrueMethodMatcher))
	assert.Equal(t, TrueMethodMatcher, IntersectMethodMatchers(TrueMethodMatcher, TrueMethodMatcher))

	both := IntersectMethodMatchers(named("Run"), named("Stop"))
	assert.False(t, both.Matches(run, betaType))

	either := UnionMethodMatchers(named("Run"), named("Stop"))
	assert.True(t, either.Matches(run, betaType))
	assert.True(t, either.Matches(stop, betaType))

	dynamic := DynamicMatcherFunc(func(_ Method, _ reflect.Type, args []any) bool { return len(args) > 0 })
	mixed := IntersectMethodMatchers(named("Run"), dynamic)
	require.True(t, mixed.IsRuntime())
	assert.True(t, mixed.MatchesArgs(run, betaType, []any{1}))
	assert.False(t, mixed.MatchesArgs(run, betaType, nil))
}

func TestUnionMethodMatchers_DynamicFormNeedsOwnStaticMatch(t *testing.T) {
	t.Parallel()

	run, _ := MethodOf(betaType, "Run")
	stop, _ := MethodOf(betaType, "Stop")

	var calls []string
	runOnly := &countingMatcher{
		static: func(m Method) bool { return m.Name == "Run" },
		dynamic: func(args []any) bool {
			calls = append(calls, "dynamic")
			return len(args) > 0
		},
	}

	for _, union := range []MethodMatcher{
		UnionMethodMatchers(runOnly, named("Stop")),
		NewComposablePointcut(NewPointcut(nil, runOnly)).Union(NewPointcut(nil, named("Stop"))).MethodMatcher(),
	} {
		calls = nil
		require.True(t, union.IsRuntime())
		require.True(t, union.Matches(stop, betaType))

		assert.True(t, union.MatchesArgs(stop, betaType, nil))
		assert.Empty(t, calls)

		assert.False(t, union.MatchesArgs(run, betaType, nil))
		assert.True(t, union.MatchesArgs(run, betaType, []any{1}))
		assert.Len(t, calls, 2)
	}
}

func TestCanApply(t *testing.T) {
	t.Parallel()

	stopOnly := NewPointcut(nil, named("Stop"))

	assert.True(t, CanApply(stopOnly, betaType, nil, false))
	assert.False(t, CanApply(stopOnly, alphaType, nil, false))
	assert.False(t, CanApply(NewPointcut(only(betaType), nil), alphaType, nil, false))
	assert.True(t, CanApply(TruePointcut, alphaType, nil, false))

	placeOnly := NewPointcut(nil, named("Place"))
	iface := TypeOf[OrderService]()
	assert.True(t, CanApply(placeOnly, alphaType, []reflect.Type{iface}, false), "interface methods are candidates")
}

type introductionOnly struct{}

func (introductionOnly) Matches(Method, reflect.Type) bool { return false }

func (introductionOnly) IsRuntime() bool { return false }

func (introductionOnly) MatchesArgs(Method, reflect.Type, []any) bool { return false }

func (introductionOnly) MatchesIntroductions(_ Method, _ reflect.Type, hasIntroductions bool) bool {
	return hasIntroductions
}

func TestCanApply_IntroductionAware(t *testing.T) {
	t.Parallel()

	pc := NewPointcut(nil, introductionOnly{})

	assert.False(t, CanApply(pc, alphaType, nil, false))
	assert.True(t, CanApply(pc, alphaType, nil, true))
}

func TestNameMatchPointcut(t *testing.T) {
	t.Parallel()

	pc := NameMatchPointcut("St*", "Cancel")
	stop, _ := MethodOf(betaType, "Stop")
	run, _ := MethodOf(betaType, "Run")

	assert.True(t, pc.MethodMatcher().Matches(stop, betaType))
	assert.False(t, pc.MethodMatcher().Matches(run, betaType))
}

func TestFindAdvisorsThatCanApply_IntroductionsFirst(t *testing.T) {
	t.Parallel()

	pointcutAdvisor := NewPointcutAdvisor(NewPointcut(nil, named("Run")), BeforeFunc(func(Method, []any, any) error {
		return nil
	}))
	intro := NewDeclareParentsAdvisor(
		TypeOf[Describer](), TrueClassFilter, func() (any, error) { return describer{}, nil }, 0,
	)
	unrelated := NewPointcutAdvisor(NewPointcut(only(gammaType), nil), InterceptorFunc(func(inv MethodInvocation) ([]any, error) {
		return inv.Proceed()
	}))

	eligible := FindAdvisorsThatCanApply([]Advisor{pointcutAdvisor, unrelated, intro}, alphaType, nil)
	require.Len(t, eligible, 2)
	assert.Same(t, intro, eligible[0])
	assert.Same(t, pointcutAdvisor, eligible[1])
}
