package aop

import (
	"fmt"
	"sync"
)

// AdvisorAdapter turns the advice of an advisor into a MethodInterceptor.
// It is only asked about advice whose shape it was registered for.
type AdvisorAdapter interface {
	Interceptor(advisor Advisor) (MethodInterceptor, error)
}

// AdvisorAdapterFunc adapts a function to AdvisorAdapter.
type AdvisorAdapterFunc func(advisor Advisor) (MethodInterceptor, error)

func (f AdvisorAdapterFunc) Interceptor(advisor Advisor) (MethodInterceptor, error) {
	return f(advisor)
}

type adapterEntry struct {
	shape   Shape
	adapter AdvisorAdapter
}

// AdvisorAdapterRegistry is the ordered dispatch table from advice shape to
// adapter. Create one per composition root with NewAdvisorAdapterRegistry.
type AdvisorAdapterRegistry struct {
	mu      sync.RWMutex
	entries []adapterEntry
}

// NewAdvisorAdapterRegistry returns a registry with the before,
// after-returning and throws adapters registered, in that order.
func NewAdvisorAdapterRegistry() *AdvisorAdapterRegistry {
	r := &AdvisorAdapterRegistry{}
	r.Register(ShapeBefore, AdvisorAdapterFunc(adaptBefore))
	r.Register(ShapeAfterReturning, AdvisorAdapterFunc(adaptAfterReturning))
	r.Register(ShapeThrows, AdvisorAdapterFunc(adaptThrows))
	return r
}

// Register appends an adapter for advice carrying shape.
func (r *AdvisorAdapterRegistry) Register(shape Shape, adapter AdvisorAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, adapterEntry{shape: shape, adapter: adapter})
}

func (r *AdvisorAdapterRegistry) snapshot() []adapterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}

// Wrap returns v as an Advisor. Advisors pass through unchanged, so Wrap is
// idempotent. Interceptors and advice of a registered shape are bound to
// TruePointcut.
func (r *AdvisorAdapterRegistry) Wrap(v any) (Advisor, error) {
	switch x := v.(type) {
	case Advisor:
		return x, nil
	case Advice:
		shapes := x.Shapes()
		if shapes.Has(ShapeInterceptor) {
			if _, ok := x.(MethodInterceptor); ok {
				return NewAdvisor(x), nil
			}
		}
		for _, e := range r.snapshot() {
			if shapes.Has(e.shape) {
				return NewAdvisor(x), nil
			}
		}
	}
	return nil, errUnknownAdviceType(v)
}

// Interceptors resolves the advice of advisor into the interceptors that run
// it. An advice that is itself an interceptor comes first; every adapter whose
// shape it carries contributes one more.
func (r *AdvisorAdapterRegistry) Interceptors(advisor Advisor) ([]MethodInterceptor, error) {
	advice := advisor.Advice()
	if advice == nil {
		return nil, errUnknownAdviceType(advice)
	}

	shapes := advice.Shapes()
	var out []MethodInterceptor

	if shapes.Has(ShapeInterceptor) {
		mi, ok := advice.(MethodInterceptor)
		if !ok {
			return nil, errUnsupportedAdvice(
				fmt.Sprintf("%T", advice), "declares the interceptor shape but has no Invoke method",
			)
		}
		out = append(out, mi)
	}

	for _, e := range r.snapshot() {
		if !shapes.Has(e.shape) {
			continue
		}
		mi, err := e.adapter.Interceptor(advisor)
		if err != nil {
			return nil, err
		}
		out = append(out, mi)
	}

	if len(out) == 0 {
		return nil, errUnknownAdviceType(advice)
	}
	return out, nil
}

func adaptBefore(advisor Advisor) (MethodInterceptor, error) {
	advice, ok := advisor.Advice().(MethodBeforeAdvice)
	if !ok {
		return nil, errUnsupportedAdvice(fmt.Sprintf("%T", advisor.Advice()), "declares the before shape but has no Before method")
	}
	return &beforeInterceptor{advice: advice}, nil
}

func adaptAfterReturning(advisor Advisor) (MethodInterceptor, error) {
	advice, ok := advisor.Advice().(AfterReturningAdvice)
	if !ok {
		return nil, errUnsupportedAdvice(
			fmt.Sprintf("%T", advisor.Advice()), "declares the afterReturning shape but has no AfterReturning method",
		)
	}
	return &afterReturningInterceptor{advice: advice}, nil
}

func adaptThrows(advisor Advisor) (MethodInterceptor, error) {
	return newThrowsInterceptor(throwsHandler(advisor.Advice()))
}
