package aop

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, expr string) Pointcut {
	t.Helper()
	pc, err := DefaultExpressionParser().Parse(expr)
	require.NoError(t, err)
	return pc
}

func matches(pc Pointcut, target reflect.Type, method string) bool {
	m, ok := MethodOf(target, method)
	if !ok {
		return false
	}
	return pc.ClassFilter().Matches(target) && pc.MethodMatcher().Matches(m, target)
}

var (
	orderServiceType = reflect.TypeOf(&orderService{})
	orderIfaceType   = TypeOf[OrderService]()
)

func TestPatternParser_Execution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr   string
		target reflect.Type
		method string
		want   bool
	}{
		{"* ..*Service.*(..)", orderIfaceType, "Place", true},
		{"* ..*Service.*(..)", orderServiceType, "Count", true},
		{"* github.com/danpasecinic/stitch/..*Service.*(..)", orderIfaceType, "Cancel", true},
		{"* example.com/..*Service.*(..)", orderIfaceType, "Cancel", false},
		{"execution(* OrderService.Place(..))", orderIfaceType, "Place", true},
		{"execution(* OrderService.Place(..))", orderIfaceType, "Cancel", false},
		{"* *.Ca*(..)", orderIfaceType, "Cancel", true},
		{"int *.Count()", orderIfaceType, "Count", true},
		{"string *.Count()", orderIfaceType, "Count", false},
		{"error *.Cancel(..)", orderIfaceType, "Cancel", true},
		{"(aop.Order,..) *.Place(..)", orderIfaceType, "Place", true},
		{"* *.Place(context.Context, string)", orderIfaceType, "Place", true},
		{"* *.Place(*, *)", orderIfaceType, "Place", true},
		{"* *.Place(*)", orderIfaceType, "Place", false},
		{"* *.Place(context.Context, ..)", orderIfaceType, "Place", true},
		{"* *.Count()", orderIfaceType, "Count", true},
		{"* *.Place()", orderIfaceType, "Place", false},
		{"Place(..)", orderIfaceType, "Place", true},
	}

	for _, tt := range tests {
		pc := parse(t, tt.expr)
		assert.Equal(t, tt.want, matches(pc, tt.target, tt.method), "%s on %v.%s", tt.expr, tt.target, tt.method)
	}
}

func TestPatternParser_Within(t *testing.T) {
	t.Parallel()

	pc := parse(t, "within(*Service)")
	assert.True(t, pc.ClassFilter().Matches(orderIfaceType))
	assert.True(t, pc.ClassFilter().Matches(orderServiceType))
	assert.False(t, pc.ClassFilter().Matches(alphaType))

	qualified := parse(t, "within(github.com/danpasecinic/stitch/aop.*)")
	assert.True(t, qualified.ClassFilter().Matches(alphaType))
	assert.False(t, qualified.ClassFilter().Matches(reflect.TypeOf(context.Background())))
}

func TestPatternParser_Errors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"Place", "a b c Place(..)", "within()"} {
		_, err := PatternParser{}.Parse(expr)
		assert.Error(t, err, expr)
	}
}

func TestCompileExpression_Operators(t *testing.T) {
	t.Parallel()

	named := map[string]string{
		"services": "within(*Service)",
		"mutating": "* *.Place(..) || * *.Cancel(..)",
	}
	compile := func(expr string) Pointcut {
		pc, err := CompileExpression(expr, alphaType, named, DefaultExpressionParser())
		require.NoError(t, err, expr)
		return pc
	}

	mutating := compile("services() && mutating()")
	assert.True(t, matches(mutating, orderIfaceType, "Place"))
	assert.True(t, matches(mutating, orderIfaceType, "Cancel"))
	assert.False(t, matches(mutating, orderIfaceType, "Count"))
	assert.False(t, matches(mutating, betaType, "Stop"))

	reads := compile("services() && !mutating()")
	assert.True(t, matches(reads, orderIfaceType, "Count"))
	assert.False(t, matches(reads, orderIfaceType, "Place"))

	grouped := compile("(* *.Run(..) || * *.Stop(..)) && within(beta)")
	assert.True(t, matches(grouped, betaType, "Run"))
	assert.False(t, matches(grouped, alphaType, "Run"))

	ep := compile("services()").(*ExpressionPointcut)
	assert.Equal(t, "services()", ep.Expression())
	assert.Equal(t, alphaType, ep.AspectType())
}

func TestCompileExpression_Errors(t *testing.T) {
	t.Parallel()

	named := map[string]string{
		"a": "b()",
		"b": "a()",
	}

	for _, expr := range []string{"a()", "", "(* *.Run(..)", "* *.Run(..) &&", "* *.Run(..) )"} {
		_, err := CompileExpression(expr, alphaType, named, DefaultExpressionParser())
		require.Error(t, err, expr)
		assert.True(t, IsConfigError(err), expr)
	}
}

func TestExprParser(t *testing.T) {
	t.Parallel()

	static := parse(t, `expr: Name endsWith "Service" && Method in ["Place", "Cancel"]`)
	require.False(t, static.MethodMatcher().IsRuntime())
	assert.True(t, matches(static, orderIfaceType, "Place"))
	assert.False(t, matches(static, orderIfaceType, "Count"))
	assert.False(t, matches(static, alphaType, "Run"))

	runtime := parse(t, `expr: Method == "Place" && len(Args) == 2 && Args[1] == "vip"`)
	require.True(t, runtime.MethodMatcher().IsRuntime())

	place, _ := MethodOf(orderIfaceType, "Place")
	assert.True(t, runtime.MethodMatcher().MatchesArgs(place, orderIfaceType, []any{context.Background(), "vip"}))
	assert.False(t, runtime.MethodMatcher().MatchesArgs(place, orderIfaceType, []any{context.Background(), "basic"}))

	_, err := NewExprParser().Parse("expr: Nope +")
	assert.True(t, IsConfigError(err))
	_, err = NewExprParser().Parse("expr:")
	assert.Error(t, err)
}
