package aop

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/stitch/bean"
)

type Order struct {
	ID    string
	Total int
}

type OrderService interface {
	Place(ctx context.Context, id string) (Order, error)
	Cancel(ctx context.Context, id string) error
	Count() int
}

type orderService struct {
	calls   atomic.Int32
	failFor string
}

var errOrderNotFound = errors.New("order not found")

func (s *orderService) Place(_ context.Context, id string) (Order, error) {
	s.calls.Add(1)
	if id == s.failFor {
		return Order{}, fmt.Errorf("place %s: %w", id, errOrderNotFound)
	}
	return Order{ID: id, Total: 42}, nil
}

func (s *orderService) Cancel(_ context.Context, id string) error {
	s.calls.Add(1)
	if id == s.failFor {
		return errOrderNotFound
	}
	return nil
}

func (s *orderService) Count() int {
	return int(s.calls.Load())
}

type orderServiceStub struct {
	*Proxy
	place  func(ctx context.Context, id string) (Order, error)
	cancel func(ctx context.Context, id string) error
	count  func() int
}

func (s orderServiceStub) Place(ctx context.Context, id string) (Order, error) { return s.place(ctx, id) }
func (s orderServiceStub) Cancel(ctx context.Context, id string) error         { return s.cancel(ctx, id) }
func (s orderServiceStub) Count() int                                          { return s.count() }

func newOrderServiceStub(p *Proxy) OrderService {
	return orderServiceStub{
		Proxy:  p,
		place:  Func[func(context.Context, string) (Order, error)](p, "Place"),
		cancel: Func[func(context.Context, string) error](p, "Cancel"),
		count:  Func[func() int](p, "Count"),
	}
}

func testStubs() *StubRegistry {
	r := NewStubRegistry()
	RegisterStub(r, newOrderServiceStub)
	return r
}

// recorder collects advice events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeBean struct {
	name      string
	declared  reflect.Type
	singleton bool
	create    func(ctx context.Context) (any, error)
	instance  any
	created   int
}

// fakeFactory is a minimal bean.Factory.
type fakeFactory struct {
	mu         sync.Mutex
	beans      []*fakeBean
	inCreation map[string]bool
	post       bean.PostProcessor
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{inCreation: make(map[string]bool)}
}

func (f *fakeFactory) add(name string, declared reflect.Type, singleton bool, create func(ctx context.Context) (any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beans = append(f.beans, &fakeBean{name: name, declared: declared, singleton: singleton, create: create})
}

func (f *fakeFactory) lookup(name string) (*fakeBean, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.beans {
		if b.name == name {
			return b, true
		}
	}
	return nil, false
}

func (f *fakeFactory) createdCount(name string) int {
	b, _ := f.lookup(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	return b.created
}

func (f *fakeFactory) BeanNamesForType(t reflect.Type) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, b := range f.beans {
		if t == nil || b.declared.AssignableTo(t) {
			names = append(names, b.name)
		}
	}
	return names
}

func (f *fakeFactory) Type(name string) (reflect.Type, bool) {
	b, ok := f.lookup(name)
	if !ok {
		return nil, false
	}
	return b.declared, true
}

func (f *fakeFactory) IsSingleton(name string) bool {
	b, ok := f.lookup(name)
	return ok && b.singleton
}

func (f *fakeFactory) IsCurrentlyInCreation(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inCreation[name]
}

func (f *fakeFactory) setInCreation(name string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inCreation[name] = v
}

func (f *fakeFactory) Bean(ctx context.Context, name string) (any, error) {
	b, ok := f.lookup(name)
	if !ok {
		return nil, fmt.Errorf("no bean %q", name)
	}

	f.mu.Lock()
	if b.singleton && b.instance != nil {
		instance := b.instance
		f.mu.Unlock()
		return instance, nil
	}
	b.created++
	f.mu.Unlock()

	instance, err := b.create(ctx)
	if err != nil {
		return nil, &bean.CreationError{Bean: name, Cause: err}
	}
	if f.post != nil {
		instance, err = f.post.PostProcessAfterInitialization(ctx, instance, name)
		if err != nil {
			return nil, &bean.CreationError{Bean: name, Cause: err}
		}
	}

	if b.singleton {
		f.mu.Lock()
		b.instance = instance
		f.mu.Unlock()
	}
	return instance, nil
}

func valueOf(v any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) { return v, nil }
}

var _ bean.Factory = (*fakeFactory)(nil)
