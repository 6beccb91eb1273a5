package aop

import (
	"strings"
)

// Shape is the set of invocation protocols an Advice implements. It is a
// closed bitmask; the adapter registry dispatches on it.
type Shape uint8

const (
	ShapeInterceptor Shape = 1 << iota
	ShapeBefore
	ShapeAfterReturning
	ShapeThrows
	ShapeIntroduction
)

var shapeNames = []struct {
	shape Shape
	name  string
}{
	{ShapeInterceptor, "interceptor"},
	{ShapeBefore, "before"},
	{ShapeAfterReturning, "afterReturning"},
	{ShapeThrows, "throws"},
	{ShapeIntroduction, "introduction"},
}

func (s Shape) Has(other Shape) bool {
	return s&other != 0
}

func (s Shape) String() string {
	var parts []string
	for _, n := range shapeNames {
		if s.Has(n.shape) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Advice is behavior to run at a join point. Shapes tells the adapter
// registry which protocols the value implements.
type Advice interface {
	Shapes() Shape
}

// MethodInterceptor is the uniform interception unit every advice is
// adapted into.
type MethodInterceptor interface {
	Advice
	Invoke(inv MethodInvocation) ([]any, error)
}

// MethodBeforeAdvice runs before the join point. A non-nil error aborts the
// call and is returned to the caller.
type MethodBeforeAdvice interface {
	Advice
	Before(m Method, args []any, target any) error
}

// AfterReturningAdvice runs after a normal return and sees the results. It
// cannot change them.
type AfterReturningAdvice interface {
	Advice
	AfterReturning(results []any, m Method, args []any, target any) error
}

// InterceptorFunc is a MethodInterceptor; it is how around advice is written
// inline.
type InterceptorFunc func(inv MethodInvocation) ([]any, error)

func (f InterceptorFunc) Shapes() Shape { return ShapeInterceptor }

func (f InterceptorFunc) Invoke(inv MethodInvocation) ([]any, error) {
	return f(inv)
}

// BeforeFunc adapts a function to MethodBeforeAdvice.
type BeforeFunc func(m Method, args []any, target any) error

func (f BeforeFunc) Shapes() Shape { return ShapeBefore }

func (f BeforeFunc) Before(m Method, args []any, target any) error {
	return f(m, args, target)
}

// AfterReturningFunc adapts a function to AfterReturningAdvice.
type AfterReturningFunc func(results []any, m Method, args []any, target any) error

func (f AfterReturningFunc) Shapes() Shape { return ShapeAfterReturning }

func (f AfterReturningFunc) AfterReturning(results []any, m Method, args []any, target any) error {
	return f(results, m, args, target)
}

// ThrowsAdvice marks a handler object whose AfterThrowing* methods are
// dispatched on errors. See Throws.
type ThrowsAdvice struct {
	Handler any
}

func (t ThrowsAdvice) Shapes() Shape { return ShapeThrows }

// Throws wraps handler as throws advice. Handler methods are named with the
// AfterThrowing prefix and take either the error, or the method, arguments,
// target and error.
func Throws(handler any) ThrowsAdvice {
	return ThrowsAdvice{Handler: handler}
}

// throwsHandler returns the object carrying the AfterThrowing methods.
func throwsHandler(advice Advice) any {
	if t, ok := advice.(ThrowsAdvice); ok {
		return t.Handler
	}
	return advice
}
