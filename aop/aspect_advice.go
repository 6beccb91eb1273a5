package aop

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

var (
	joinPointType           = reflect.TypeOf((*JoinPoint)(nil)).Elem()
	proceedingJoinPointType = reflect.TypeOf((*ProceedingJoinPoint)(nil)).Elem()
)

type paramRole uint8

const (
	roleJoinPoint paramRole = iota
	roleContext
	roleBinding
)

// adviceSignature is the validated shape of an advice method.
type adviceSignature struct {
	name       string
	roles      []paramRole
	binding    reflect.Type
	returnsErr bool
}

// analyzeAdvice validates the advice method name of aspect (a pointer type)
// against the rules for its kind.
func analyzeAdvice(aspect reflect.Type, name string, ann AdviceAnnotation) (*adviceSignature, error) {
	subject := ireflect.QualifiedName(aspect) + "." + name
	m, ok := aspect.MethodByName(name)
	if !ok {
		return nil, errConfig(subject, "no such method on aspect")
	}

	ft := m.Type
	if ft.IsVariadic() {
		return nil, errConfig(subject, "advice methods cannot be variadic")
	}

	sig := &adviceSignature{name: name}
	proceeding := false
	for i := 1; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		switch {
		case pt == proceedingJoinPointType:
			if ann.Kind != KindAround {
				return nil, errConfig(subject, "ProceedingJoinPoint is only supported for around advice")
			}
			proceeding = true
			sig.roles = append(sig.roles, roleJoinPoint)
		case pt == joinPointType:
			sig.roles = append(sig.roles, roleJoinPoint)
		case pt == ireflect.ContextType():
			sig.roles = append(sig.roles, roleContext)
		default:
			if ann.Kind != KindAfterReturning && ann.Kind != KindAfterThrowing {
				return nil, errConfig(subject, "unbound parameter of type %s", pt)
			}
			if sig.binding != nil {
				return nil, errConfig(subject, "only one result or error parameter can be bound")
			}
			if ann.Kind == KindAfterThrowing && pt.Kind() != reflect.Interface && !pt.Implements(ireflect.ErrorType()) {
				return nil, errConfig(subject, "thrown parameter of type %s does not implement error", pt)
			}
			sig.binding = pt
			sig.roles = append(sig.roles, roleBinding)
		}
	}

	if ann.Kind == KindAfterReturning && ann.Returning != "" && sig.binding == nil {
		return nil, errConfig(subject, "returning %q is not bound to a parameter", ann.Returning)
	}
	if ann.Kind == KindAfterThrowing && ann.Throwing != "" && sig.binding == nil {
		return nil, errConfig(subject, "throwing %q is not bound to a parameter", ann.Throwing)
	}

	if ann.Kind == KindAround {
		if !proceeding {
			return nil, errConfig(subject, "around advice must take an aop.ProceedingJoinPoint")
		}
		if ft.NumOut() != 2 || ft.Out(0) != argsType || ft.Out(1) != ireflect.ErrorType() {
			return nil, errConfig(subject, "around advice must return ([]any, error)")
		}
		sig.returnsErr = true
		return sig, nil
	}

	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == ireflect.ErrorType():
		sig.returnsErr = true
	default:
		return nil, errConfig(subject, "%s advice may only return error", ann.Kind)
	}
	return sig, nil
}

// aspectAdvice is the part shared by all advice compiled from aspect methods.
type aspectAdvice struct {
	kind             AdviceKind
	sig              *adviceSignature
	pointcut         Pointcut
	factory          AspectInstanceFactory
	aspectName       string
	declarationOrder int
}

func (a *aspectAdvice) Kind() AdviceKind      { return a.kind }
func (a *aspectAdvice) Order() int            { return a.factory.Order() }
func (a *aspectAdvice) AspectName() string    { return a.aspectName }
func (a *aspectAdvice) DeclarationOrder() int { return a.declarationOrder }
func (a *aspectAdvice) Pointcut() Pointcut    { return a.pointcut }
func (a *aspectAdvice) MethodName() string    { return a.sig.name }

func (a *aspectAdvice) String() string {
	return fmt.Sprintf("%s advice %s.%s", a.kind, a.aspectName, a.sig.name)
}

func (a *aspectAdvice) call(jp JoinPoint, binding reflect.Value) ([]reflect.Value, error) {
	instance, err := a.factory.AspectInstance(jp.Context())
	if err != nil {
		return nil, err
	}

	fn := reflect.ValueOf(instance).MethodByName(a.sig.name)
	if !fn.IsValid() {
		return nil, newError(
			ErrCodeNoSuchMethod, fmt.Sprintf("aspect instance %T has no method %s", instance, a.sig.name), nil,
		).WithSubject(a.aspectName)
	}

	in := make([]reflect.Value, len(a.sig.roles))
	for i, role := range a.sig.roles {
		switch role {
		case roleJoinPoint:
			in[i] = reflect.ValueOf(jp)
		case roleContext:
			in[i] = reflect.ValueOf(jp.Context())
		case roleBinding:
			in[i] = binding
		}
	}
	return fn.Call(in), nil
}

func (a *aspectAdvice) run(jp JoinPoint, binding reflect.Value) error {
	out, err := a.call(jp, binding)
	if err != nil {
		return err
	}
	if a.sig.returnsErr {
		if e := out[len(out)-1]; !e.IsNil() {
			return e.Interface().(error)
		}
	}
	return nil
}

type aspectBeforeAdvice struct {
	aspectAdvice
}

func (a *aspectBeforeAdvice) Shapes() Shape        { return ShapeBefore }
func (a *aspectBeforeAdvice) IsBeforeAdvice() bool { return true }
func (a *aspectBeforeAdvice) IsAfterAdvice() bool  { return false }

func (a *aspectBeforeAdvice) Before(m Method, args []any, target any) error {
	return a.beforeJoinPoint(detachedJoinPoint{method: m, args: args, target: target})
}

func (a *aspectBeforeAdvice) beforeJoinPoint(jp JoinPoint) error {
	return a.run(jp, reflect.Value{})
}

type aspectAfterReturningAdvice struct {
	aspectAdvice
}

func (a *aspectAfterReturningAdvice) Shapes() Shape        { return ShapeAfterReturning }
func (a *aspectAfterReturningAdvice) IsBeforeAdvice() bool { return false }
func (a *aspectAfterReturningAdvice) IsAfterAdvice() bool  { return true }

func (a *aspectAfterReturningAdvice) AfterReturning(results []any, m Method, args []any, target any) error {
	return a.afterReturningJoinPoint(detachedJoinPoint{method: m, args: args, target: target}, results)
}

// afterReturningJoinPoint runs the advice unless it binds a result the first
// returned value cannot be assigned to.
func (a *aspectAfterReturningAdvice) afterReturningJoinPoint(jp JoinPoint, results []any) error {
	var binding reflect.Value
	if a.sig.binding != nil {
		v, ok := bindResult(results, a.sig.binding)
		if !ok {
			return nil
		}
		binding = v
	}
	return a.run(jp, binding)
}

func bindResult(results []any, t reflect.Type) (reflect.Value, bool) {
	if len(results) == 0 {
		return reflect.Value{}, false
	}
	r := results[0]
	if r == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(r)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, false
	}
	return v, true
}

type aspectAfterAdvice struct {
	aspectAdvice
}

func (a *aspectAfterAdvice) Shapes() Shape        { return ShapeInterceptor }
func (a *aspectAfterAdvice) IsBeforeAdvice() bool { return false }
func (a *aspectAfterAdvice) IsAfterAdvice() bool  { return true }

// Invoke runs the advice after the call however it ends, panics included. An
// error from the advice replaces a successful outcome only.
func (a *aspectAfterAdvice) Invoke(inv MethodInvocation) (results []any, err error) {
	defer func() {
		if aerr := a.run(inv, reflect.Value{}); aerr != nil && err == nil {
			err = aerr
		}
	}()
	return inv.Proceed()
}

type aspectAfterThrowingAdvice struct {
	aspectAdvice
}

func (a *aspectAfterThrowingAdvice) Shapes() Shape        { return ShapeInterceptor }
func (a *aspectAfterThrowingAdvice) IsBeforeAdvice() bool { return false }
func (a *aspectAfterThrowingAdvice) IsAfterAdvice() bool  { return true }

// Invoke runs the advice when the call fails with an error matching the
// bound parameter, then returns the original error.
func (a *aspectAfterThrowingAdvice) Invoke(inv MethodInvocation) ([]any, error) {
	results, err := inv.Proceed()
	if err == nil {
		return results, nil
	}

	var binding reflect.Value
	if a.sig.binding != nil {
		target := reflect.New(a.sig.binding)
		if !errors.As(err, target.Interface()) {
			return results, err
		}
		binding = target.Elem()
	}
	if aerr := a.run(inv, binding); aerr != nil {
		return results, aerr
	}
	return results, err
}

type aspectAroundAdvice struct {
	aspectAdvice
}

func (a *aspectAroundAdvice) Shapes() Shape        { return ShapeInterceptor }
func (a *aspectAroundAdvice) IsBeforeAdvice() bool { return false }
func (a *aspectAroundAdvice) IsAfterAdvice() bool  { return false }

func (a *aspectAroundAdvice) Invoke(inv MethodInvocation) ([]any, error) {
	out, err := a.call(inv, reflect.Value{})
	if err != nil {
		return nil, err
	}
	var results []any
	if !out[0].IsNil() {
		results = out[0].Interface().([]any)
	}
	if e := out[1]; !e.IsNil() {
		return results, e.Interface().(error)
	}
	return results, nil
}

// detachedJoinPoint serves advice invoked outside a proxy chain.
type detachedJoinPoint struct {
	method Method
	args   []any
	target any
}

func (d detachedJoinPoint) Context() context.Context { return contextArg(d.method, d.args) }
func (d detachedJoinPoint) Method() Method           { return d.method }
func (d detachedJoinPoint) Arguments() []any         { return d.args }
func (d detachedJoinPoint) This() any                { return d.target }
func (d detachedJoinPoint) Target() any              { return d.target }
func (d detachedJoinPoint) TargetType() reflect.Type { return reflect.TypeOf(d.target) }
