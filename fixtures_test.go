package stitch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/stitch"
	"github.com/danpasecinic/stitch/aop"
	"github.com/danpasecinic/stitch/logging"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
	Name   string
}

type Server struct {
	DB     *Database
	Config *Config
}

type Order struct {
	ID    string
	Total int
}

type OrderService interface {
	Place(ctx context.Context, id string) (Order, error)
	Count() int
}

var errRejected = errors.New("order rejected")

type orderService struct {
	calls  atomic.Int32
	reject string
}

func (s *orderService) Place(_ context.Context, id string) (Order, error) {
	s.calls.Add(1)
	if id == s.reject {
		return Order{}, fmt.Errorf("place %s: %w", id, errRejected)
	}
	return Order{ID: id, Total: 42}, nil
}

func (s *orderService) Count() int {
	return int(s.calls.Load())
}

type orderServiceStub struct {
	*aop.Proxy
	place func(ctx context.Context, id string) (Order, error)
	count func() int
}

func (s orderServiceStub) Place(ctx context.Context, id string) (Order, error) { return s.place(ctx, id) }
func (s orderServiceStub) Count() int                                          { return s.count() }

func newOrderServiceStub(p *aop.Proxy) OrderService {
	return orderServiceStub{
		Proxy: p,
		place: aop.Func[func(context.Context, string) (Order, error)](p, "Place"),
		count: aop.Func[func() int](p, "Count"),
	}
}

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

type auditAspect struct {
	rec *recorder
}

func (*auditAspect) Annotations() aop.Annotations {
	return aop.Annotations{Advice: map[string]aop.AdviceAnnotation{
		"Enter":    aop.Before("* ..*Service.Place(..)"),
		"Returned": aop.AfterReturning("* ..*Service.Place(..)", "order"),
		"Failed":   aop.AfterThrowing("* ..*Service.Place(..)", "err"),
	}}
}

func (a *auditAspect) Enter(jp aop.JoinPoint) {
	a.rec.add("enter " + jp.Method().Name)
}

func (a *auditAspect) Returned(order Order) {
	a.rec.add("returned " + order.ID)
}

func (a *auditAspect) Failed(err error) {
	a.rec.add("failed " + err.Error())
}

// newAOPContainer returns a container with auto-proxying, the order stub
// and the audit aspect registered.
func newAOPContainer(rec *recorder, opts ...stitch.Option) *stitch.Container {
	opts = append([]stitch.Option{stitch.WithLogger(logging.Nop()), stitch.WithAutoProxy()}, opts...)
	c := stitch.New(opts...)
	stitch.RegisterStub(c, newOrderServiceStub)
	if err := stitch.ProvideAspect(c, func(context.Context, stitch.Resolver) (*auditAspect, error) {
		return &auditAspect{rec: rec}, nil
	}); err != nil {
		panic(err)
	}
	return c
}
