package aop

import (
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

const exprPrefix = "expr:"

// staticEnv is what a program sees when it is evaluated once per method.
type staticEnv struct {
	Type    string
	Name    string
	Package string
	Method  string
}

// runtimeEnv adds the call arguments; programs that need them are evaluated
// on every call.
type runtimeEnv struct {
	Type    string
	Name    string
	Package string
	Method  string
	Args    []any
}

// ExprParser compiles "expr:" expressions into pointcuts with
// github.com/expr-lang/expr. The program must evaluate to a bool over Type
// ("pkgpath.Name" of the target), Name (bare type name), Package, Method and
// optionally Args.
type ExprParser struct{}

func NewExprParser() *ExprParser {
	return &ExprParser{}
}

func (p *ExprParser) Parse(expression string) (Pointcut, error) {
	src := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expression), exprPrefix))
	if src == "" {
		return nil, errConfig(expression, "empty expr pointcut")
	}

	if program, err := expr.Compile(src, expr.Env(staticEnv{}), expr.AsBool()); err == nil {
		return NewPointcut(TrueClassFilter, &exprMatcher{source: src, program: program}), nil
	}

	program, err := expr.Compile(src, expr.Env(runtimeEnv{}), expr.AsBool())
	if err != nil {
		return nil, newError(ErrCodeConfig, "invalid expr pointcut", err).WithSubject(src)
	}
	return NewPointcut(TrueClassFilter, &exprMatcher{source: src, program: program, runtime: true}), nil
}

type exprMatcher struct {
	source  string
	program *vm.Program
	runtime bool
}

func (e *exprMatcher) Matches(m Method, target reflect.Type) bool {
	if e.runtime {
		return true
	}
	env := staticEnv{Method: m.Name}
	env.Type, env.Name, env.Package = describeType(target)
	return e.run(env)
}

func (e *exprMatcher) IsRuntime() bool { return e.runtime }

func (e *exprMatcher) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	if !e.runtime {
		panic(errIllegalState("illegal MethodMatcher usage: static matcher asked for a dynamic match"))
	}
	env := runtimeEnv{Method: m.Name, Args: args}
	env.Type, env.Name, env.Package = describeType(target)
	return e.run(env)
}

func (e *exprMatcher) run(env any) bool {
	out, err := vm.Run(e.program, env)
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func (e *exprMatcher) String() string { return exprPrefix + e.source }

func describeType(t reflect.Type) (qualified, name, pkg string) {
	if t == nil {
		return "", "", ""
	}
	return ireflect.QualifiedName(t), ireflect.SimpleName(t), ireflect.Indirect(t).PkgPath()
}
