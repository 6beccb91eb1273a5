package aop

import (
	"context"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// JoinPoint is the read-only view of an intercepted call.
type JoinPoint interface {
	// Context is the call's first argument when it is a context.Context, and
	// context.Background otherwise.
	Context() context.Context
	Method() Method
	Arguments() []any
	// This is the proxy the call entered through.
	This() any
	Target() any
	TargetType() reflect.Type
}

// ProceedingJoinPoint lets around advice continue the chain, possibly more
// than once or with replaced arguments.
type ProceedingJoinPoint interface {
	JoinPoint
	Proceed() ([]any, error)
	ProceedWith(args []any) ([]any, error)
}

// MethodInvocation is what interceptors receive. Attributes are shared by all
// interceptors of one call.
type MethodInvocation interface {
	ProceedingJoinPoint
	Attribute(key string) (any, bool)
	SetAttribute(key string, value any)
}

type chainEntry struct {
	interceptor MethodInterceptor
	// matcher is set for interceptors whose pointcut must also be checked
	// against the arguments of each call.
	matcher MethodMatcher
}

type joinpointFunc func(args []any) ([]any, error)

// invocation walks the chain. Each Proceed works on a copy advanced past the
// interceptor that called it, so proceeding twice re-runs the rest of the
// chain.
type invocation struct {
	proxy      any
	target     any
	targetType reflect.Type
	method     Method
	args       []any
	chain      []chainEntry
	index      int
	joinpoint  joinpointFunc
	attrs      map[string]any
}

func newInvocation(
	proxy, target any, targetType reflect.Type, m Method, args []any, chain []chainEntry, jp joinpointFunc,
) *invocation {
	return &invocation{
		proxy:      proxy,
		target:     target,
		targetType: targetType,
		method:     m,
		args:       args,
		chain:      chain,
		joinpoint:  jp,
		attrs:      make(map[string]any),
	}
}

func (inv *invocation) Context() context.Context {
	return contextArg(inv.method, inv.args)
}

func (inv *invocation) Method() Method           { return inv.method }
func (inv *invocation) Arguments() []any         { return inv.args }
func (inv *invocation) This() any                { return inv.proxy }
func (inv *invocation) Target() any              { return inv.target }
func (inv *invocation) TargetType() reflect.Type { return inv.targetType }

func (inv *invocation) Attribute(key string) (any, bool) {
	v, ok := inv.attrs[key]
	return v, ok
}

func (inv *invocation) SetAttribute(key string, value any) {
	inv.attrs[key] = value
}

func (inv *invocation) Proceed() ([]any, error) {
	return inv.ProceedWith(inv.args)
}

func (inv *invocation) ProceedWith(args []any) ([]any, error) {
	for i := inv.index; i < len(inv.chain); i++ {
		entry := inv.chain[i]
		if entry.matcher != nil && !entry.matcher.MatchesArgs(inv.method, inv.targetType, args) {
			continue
		}
		next := *inv
		next.index = i + 1
		next.args = args
		return entry.interceptor.Invoke(&next)
	}
	return inv.joinpoint(args)
}

func (inv *invocation) String() string {
	return fmt.Sprintf("invocation of %s with %d argument(s)", inv.method, len(inv.args))
}

func contextArg(m Method, args []any) context.Context {
	if m.Type != nil && m.Type.NumIn() > 0 && m.Type.In(0) == ireflect.ContextType() && len(args) > 0 {
		if ctx, ok := args[0].(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// invokeReflective calls the named method on target. Errors returned by the
// method come back as the error result; a mismatch between arguments and
// signature is reported as an invocation failure.
func invokeReflective(target any, m Method, args []any) ([]any, error) {
	fn := reflect.ValueOf(target).MethodByName(m.Name)
	if !fn.IsValid() {
		return nil, newError(ErrCodeNoSuchMethod, fmt.Sprintf("target %T has no method %s", target, m.Name), nil).
			WithSubject(m.String())
	}

	ft := fn.Type()
	in, err := argumentValues(ft, args)
	if err != nil {
		return nil, errInvocation(m.String(), err)
	}

	var out []reflect.Value
	if ft.IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}
	return splitResults(ft, out)
}

func argumentValues(ft reflect.Type, args []any) ([]reflect.Value, error) {
	if len(args) != ft.NumIn() {
		return nil, fmt.Errorf("expected %d argument(s), got %d", ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := ft.In(i)
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(pt):
			in[i] = v
		case v.Type().ConvertibleTo(pt):
			in[i] = v.Convert(pt)
		default:
			return nil, fmt.Errorf("argument %d: %s is not assignable to %s", i, v.Type(), pt)
		}
	}
	return in, nil
}

func splitResults(ft reflect.Type, out []reflect.Value) ([]any, error) {
	n := len(out)
	var err error
	if ireflect.ReturnsError(ft) {
		n--
		if e := out[n]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}

	results := make([]any, n)
	for i := 0; i < n; i++ {
		results[i] = out[i].Interface()
	}
	return results, err
}
