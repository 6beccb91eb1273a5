package aop

import (
	"fmt"
	"reflect"
	"sync"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// StubRegistry maps a declared type to the function building its typed view
// over a *Proxy. Go cannot implement an interface at run time, so every
// proxied interface needs a stub; Func builds its methods.
type StubRegistry struct {
	mu    sync.RWMutex
	stubs map[reflect.Type]func(*Proxy) any
}

func NewStubRegistry() *StubRegistry {
	return &StubRegistry{stubs: make(map[reflect.Type]func(*Proxy) any)}
}

// RegisterStub registers the typed view for T, usually an interface.
func RegisterStub[T any](r *StubRegistry, build func(p *Proxy) T) {
	t := ireflect.TypeOf[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stubs[t] = func(p *Proxy) any { return build(p) }
}

func (r *StubRegistry) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stubs[t]
	return ok
}

// Types returns the registered types.
func (r *StubRegistry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]reflect.Type, 0, len(r.stubs))
	for t := range r.stubs {
		out = append(out, t)
	}
	return out
}

// Stub builds the typed view of p for t.
func (r *StubRegistry) Stub(t reflect.Type, p *Proxy) (any, error) {
	r.mu.RLock()
	build, ok := r.stubs[t]
	r.mu.RUnlock()
	if !ok {
		return nil, newError(ErrCodeNoStub, "no stub registered for proxied type", nil).WithSubject(fmt.Sprint(t))
	}
	return build(p), nil
}

// ProxyOf returns the proxy behind a stub. Stubs expose it by embedding
// *Proxy.
func ProxyOf(v any) (*Proxy, bool) {
	holder, ok := v.(interface{ AopProxy() *Proxy })
	if !ok {
		return nil, false
	}
	return holder.AopProxy(), true
}

// IsProxy reports whether v is a proxy or a stub over one.
func IsProxy(v any) bool {
	_, ok := ProxyOf(v)
	return ok
}

// Func returns a function of type F that dispatches to the named method
// through p. F must match the method's signature. An error reaching a
// function without an error result panics with an UNDECLARED error.
func Func[F any](p *Proxy, name string) F {
	ft := ireflect.TypeOf[F]()
	if ft.Kind() != reflect.Func {
		panic(errIllegalState(fmt.Sprintf("aop.Func needs a func type, got %s", ft)))
	}

	m, ok := p.method(name)
	if !ok {
		panic(newError(ErrCodeNoSuchMethod, "proxy has no such method", nil).WithSubject(name))
	}

	returnsErr := ireflect.ReturnsError(ft)
	fn := reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}
		results, err := p.invoke(m, args)
		if err != nil && !returnsErr {
			panic(newError(ErrCodeUndeclared, "undeclared error returned through "+m.String(), err))
		}
		return resultValues(ft, results, err)
	})
	return fn.Interface().(F)
}

func resultValues(ft reflect.Type, results []any, err error) []reflect.Value {
	n := ft.NumOut()
	out := make([]reflect.Value, n)

	values := n
	if ireflect.ReturnsError(ft) {
		values--
		if err != nil {
			out[values] = reflect.ValueOf(&err).Elem()
		} else {
			out[values] = reflect.Zero(ireflect.ErrorType())
		}
	}

	for i := 0; i < values; i++ {
		rt := ft.Out(i)
		if i >= len(results) || results[i] == nil {
			out[i] = reflect.Zero(rt)
			continue
		}
		v := reflect.ValueOf(results[i])
		switch {
		case v.Type().AssignableTo(rt):
			if v.Type() != rt {
				converted := reflect.New(rt).Elem()
				converted.Set(v)
				v = converted
			}
		case v.Type().ConvertibleTo(rt):
			v = v.Convert(rt)
		default:
			panic(errInvocation(ft.String(), fmt.Errorf("result %d: %s is not assignable to %s", i, v.Type(), rt)))
		}
		out[i] = v
	}
	return out
}
