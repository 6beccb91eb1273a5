package aop

import (
	"context"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

type invocationKey struct{}

type proxyKey struct{}

// CurrentInvocation returns the invocation exposed on ctx. It is set for
// methods whose first parameter is a context.Context when the proxy carries
// aspect advisors.
func CurrentInvocation(ctx context.Context) (MethodInvocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(MethodInvocation)
	return inv, ok
}

// CurrentProxy returns the proxy exposed on ctx when the proxy was built with
// expose-proxy enabled.
func CurrentProxy(ctx context.Context) (*Proxy, bool) {
	p, ok := ctx.Value(proxyKey{}).(*Proxy)
	return p, ok
}

type exposeInvocationInterceptor struct{}

func (exposeInvocationInterceptor) Shapes() Shape { return ShapeInterceptor }

func (exposeInvocationInterceptor) Order() int { return HighestPrecedence }

func (exposeInvocationInterceptor) Invoke(inv MethodInvocation) ([]any, error) {
	args, ok := withContextArg(inv.Method(), inv.Arguments(), func(ctx context.Context) context.Context {
		return context.WithValue(ctx, invocationKey{}, inv)
	})
	if !ok {
		return inv.Proceed()
	}
	return inv.ProceedWith(args)
}

func (exposeInvocationInterceptor) String() string { return "ExposeInvocationInterceptor" }

// ExposeInvocationAdvisor runs first on every call and puts the invocation on
// the call's context.
var ExposeInvocationAdvisor Advisor = NewAdvisor(exposeInvocationInterceptor{}).WithOrder(HighestPrecedence)

// withContextArg returns a copy of args with the leading context replaced by
// wrap(ctx). It reports false when the method takes no leading context.
func withContextArg(m Method, args []any, wrap func(context.Context) context.Context) ([]any, bool) {
	if m.Type == nil || m.Type.NumIn() == 0 || m.Type.In(0) != ireflect.ContextType() || len(args) == 0 {
		return args, false
	}
	ctx, _ := args[0].(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	out := make([]any, len(args))
	copy(out, args)
	out[0] = wrap(ctx)
	return out, true
}
