package aop

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

const throwsHandlerPrefix = "AfterThrowing"

var (
	methodType   = reflect.TypeOf(Method{})
	argsType     = reflect.TypeOf([]any(nil))
	anyValueType = reflect.TypeOf((*any)(nil)).Elem()
)

type throwsHandlerMethod struct {
	name    string
	fn      reflect.Value
	errType reflect.Type
	full    bool
}

func (h throwsHandlerMethod) call(inv MethodInvocation, err error) error {
	errValue := reflect.ValueOf(err)

	var in []reflect.Value
	if h.full {
		target := inv.Target()
		targetValue := reflect.Zero(anyValueType)
		if target != nil {
			targetValue = reflect.ValueOf(&target).Elem()
		}
		in = []reflect.Value{
			reflect.ValueOf(inv.Method()),
			reflect.ValueOf(inv.Arguments()),
			targetValue,
			errValue,
		}
	} else {
		in = []reflect.Value{errValue}
	}

	out := h.fn.Call(in)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// throwsInterceptor dispatches an error returned by the rest of the chain to
// the most specific AfterThrowing handler, then returns the original error.
type throwsInterceptor struct {
	handler  any
	byType   map[reflect.Type]throwsHandlerMethod
	byIface  []throwsHandlerMethod
	catchAll *throwsHandlerMethod
}

func newThrowsInterceptor(handler any) (*throwsInterceptor, error) {
	if handler == nil {
		return nil, newError(ErrCodeNoHandlers, "throws advice has no handler object", nil)
	}

	ti := &throwsInterceptor{
		handler: handler,
		byType:  make(map[reflect.Type]throwsHandlerMethod),
	}

	v := reflect.ValueOf(handler)
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || !strings.HasPrefix(m.Name, throwsHandlerPrefix) {
			continue
		}
		h, ok := parseThrowsHandler(m.Name, v.Method(i))
		if !ok {
			continue
		}
		if err := ti.register(h); err != nil {
			return nil, err
		}
	}

	if len(ti.byType) == 0 && len(ti.byIface) == 0 && ti.catchAll == nil {
		return nil, newError(
			ErrCodeNoHandlers,
			fmt.Sprintf("at least one handler method named %s* must be found on %T", throwsHandlerPrefix, handler),
			nil,
		)
	}

	sort.SliceStable(ti.byIface, func(i, j int) bool {
		return ti.byIface[i].errType.String() < ti.byIface[j].errType.String()
	})
	return ti, nil
}

func parseThrowsHandler(name string, fn reflect.Value) (throwsHandlerMethod, bool) {
	ft := fn.Type()

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) != ireflect.ErrorType() {
			return throwsHandlerMethod{}, false
		}
	default:
		return throwsHandlerMethod{}, false
	}

	h := throwsHandlerMethod{name: name, fn: fn}
	switch ft.NumIn() {
	case 1:
		h.errType = ft.In(0)
	case 4:
		if ft.In(0) != methodType || ft.In(1) != argsType || ft.In(2) != anyValueType {
			return throwsHandlerMethod{}, false
		}
		h.errType = ft.In(3)
		h.full = true
	default:
		return throwsHandlerMethod{}, false
	}

	if !h.errType.Implements(ireflect.ErrorType()) {
		return throwsHandlerMethod{}, false
	}
	return h, true
}

// register rejects a second handler for an error type that already has one.
func (ti *throwsInterceptor) register(h throwsHandlerMethod) error {
	var existing string
	switch {
	case h.errType == ireflect.ErrorType():
		if ti.catchAll != nil {
			existing = ti.catchAll.name
			break
		}
		ti.catchAll = &h
	case h.errType.Kind() == reflect.Interface:
		for _, other := range ti.byIface {
			if other.errType == h.errType {
				existing = other.name
				break
			}
		}
		if existing == "" {
			ti.byIface = append(ti.byIface, h)
		}
	default:
		if other, ok := ti.byType[h.errType]; ok {
			existing = other.name
			break
		}
		ti.byType[h.errType] = h
	}
	if existing != "" {
		return errConfig(fmt.Sprintf("%T", ti.handler),
			"handlers %s and %s both handle %s", existing, h.name, h.errType)
	}
	return nil
}

func (ti *throwsInterceptor) Shapes() Shape { return ShapeInterceptor }

// HandlerCount is the number of registered handler methods.
func (ti *throwsInterceptor) HandlerCount() int {
	n := len(ti.byType) + len(ti.byIface)
	if ti.catchAll != nil {
		n++
	}
	return n
}

func (ti *throwsInterceptor) Invoke(inv MethodInvocation) ([]any, error) {
	results, err := inv.Proceed()
	if err == nil {
		return results, nil
	}

	if h, matched := ti.handlerFor(err); h != nil {
		if herr := h.call(inv, matched); herr != nil {
			return results, herr
		}
	}
	return results, err
}

// handlerFor finds the handler for err: an exact dynamic type anywhere along
// the unwrap chain first, then an interface handler, then the catch-all. It
// also returns the chain element the handler is called with.
func (ti *throwsInterceptor) handlerFor(err error) (*throwsHandlerMethod, error) {
	chain := unwrapChain(err)

	for _, e := range chain {
		if h, ok := ti.byType[reflect.TypeOf(e)]; ok {
			return &h, e
		}
	}
	for _, e := range chain {
		et := reflect.TypeOf(e)
		for i := range ti.byIface {
			if et.Implements(ti.byIface[i].errType) {
				return &ti.byIface[i], e
			}
		}
	}
	if ti.catchAll != nil {
		return ti.catchAll, err
	}
	return nil, nil
}

// unwrapChain lists err and its causes, nearest first, following both
// single and joined unwrapping.
func unwrapChain(err error) []error {
	var out []error
	queue := []error{err}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e == nil {
			continue
		}
		out = append(out, e)
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			queue = append(queue, x.Unwrap()...)
		default:
			if next := errors.Unwrap(e); next != nil {
				queue = append(queue, next)
			}
		}
	}
	return out
}
