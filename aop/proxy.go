package aop

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Advised exposes the configuration a proxy was built with.
type Advised interface {
	Advisors() []Advisor
	TargetSource() TargetSource
	Interfaces() []reflect.Type
	IsExposeProxy() bool
	IsFrozen() bool
}

// ProxyOption configures a ProxyFactory.
type ProxyOption func(*ProxyFactory)

// WithAdapterRegistry sets the registry advice is adapted with.
func WithAdapterRegistry(r *AdvisorAdapterRegistry) ProxyOption {
	return func(f *ProxyFactory) {
		f.registry = r
	}
}

// WithTargetSource replaces the singleton target source.
func WithTargetSource(ts TargetSource) ProxyOption {
	return func(f *ProxyFactory) {
		f.targetSource = ts
	}
}

// WithInterfaces adds proxied interfaces.
func WithInterfaces(ifaces ...reflect.Type) ProxyOption {
	return func(f *ProxyFactory) {
		f.interfaces = append(f.interfaces, ifaces...)
	}
}

// WithExposeProxy puts the proxy on the context of each call.
func WithExposeProxy(expose bool) ProxyOption {
	return func(f *ProxyFactory) {
		f.exposeProxy = expose
	}
}

// WithFrozen rejects advisor changes after construction.
func WithFrozen(frozen bool) ProxyOption {
	return func(f *ProxyFactory) {
		f.frozen = frozen
	}
}

func WithProxyLogger(logger *slog.Logger) ProxyOption {
	return func(f *ProxyFactory) {
		f.logger = logger
	}
}

// ProxyFactory collects advisors and builds proxies around one target.
type ProxyFactory struct {
	registry     *AdvisorAdapterRegistry
	targetSource TargetSource
	advisors     []Advisor
	interfaces   []reflect.Type
	exposeProxy  bool
	frozen       bool
	logger       *slog.Logger
}

func NewProxyFactory(target any, opts ...ProxyOption) *ProxyFactory {
	f := &ProxyFactory{
		targetSource: SingletonTarget(target),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.registry == nil {
		f.registry = NewAdvisorAdapterRegistry()
	}
	return f
}

// AddAdvisors appends advisors in order. Introduction advisors are validated
// and their interfaces are added to the proxy.
func (f *ProxyFactory) AddAdvisors(advisors ...Advisor) error {
	if f.frozen {
		return errIllegalState("cannot add advisors: configuration is frozen")
	}
	for _, a := range advisors {
		if ia, ok := a.(IntroductionAdvisor); ok {
			if err := ia.ValidateInterfaces(); err != nil {
				return err
			}
			f.addInterfaces(ia.Interfaces()...)
		}
		f.advisors = append(f.advisors, a)
	}
	return nil
}

// AddAdvice wraps advice through the adapter registry and appends it.
func (f *ProxyFactory) AddAdvice(advice Advice) error {
	advisor, err := f.registry.Wrap(advice)
	if err != nil {
		return err
	}
	return f.AddAdvisors(advisor)
}

func (f *ProxyFactory) addInterfaces(ifaces ...reflect.Type) {
	for _, t := range ifaces {
		if !containsType(f.interfaces, t) {
			f.interfaces = append(f.interfaces, t)
		}
	}
}

// Proxy builds the proxy. Later changes to the factory do not affect it.
func (f *ProxyFactory) Proxy() *Proxy {
	advisors := make([]Advisor, len(f.advisors))
	copy(advisors, f.advisors)
	interfaces := make([]reflect.Type, len(f.interfaces))
	copy(interfaces, f.interfaces)

	p := &Proxy{
		targetSource: f.targetSource,
		targetType:   f.targetSource.TargetType(),
		advisors:     advisors,
		interfaces:   interfaces,
		registry:     f.registry,
		exposeProxy:  f.exposeProxy,
		frozen:       f.frozen,
		logger:       f.logger,
	}
	for _, a := range advisors {
		if ia, ok := a.(IntroductionAdvisor); ok && ia.ClassFilter().Matches(p.targetType) {
			p.hasIntroductions = true
			break
		}
	}
	return p
}

// Proxy dispatches calls through the interceptor chain of each method. Typed
// views over it are built with stubs; see StubRegistry and Func.
type Proxy struct {
	targetSource     TargetSource
	targetType       reflect.Type
	advisors         []Advisor
	interfaces       []reflect.Type
	registry         *AdvisorAdapterRegistry
	exposeProxy      bool
	frozen           bool
	hasIntroductions bool
	logger           *slog.Logger

	methods sync.Map
	chains  sync.Map
}

func (p *Proxy) Advisors() []Advisor        { return p.advisors }
func (p *Proxy) TargetSource() TargetSource { return p.targetSource }
func (p *Proxy) Interfaces() []reflect.Type { return p.interfaces }
func (p *Proxy) IsExposeProxy() bool        { return p.exposeProxy }
func (p *Proxy) IsFrozen() bool             { return p.frozen }
func (p *Proxy) TargetType() reflect.Type   { return p.targetType }

// AopProxy lets stubs that embed *Proxy be recognized by ProxyOf.
func (p *Proxy) AopProxy() *Proxy { return p }

func (p *Proxy) String() string {
	return fmt.Sprintf("aop proxy for %v with %d advisor(s)", p.targetType, len(p.advisors))
}

// Invoke calls the named method with args through the chain. Results exclude
// the trailing error, which is returned separately.
func (p *Proxy) Invoke(name string, args ...any) ([]any, error) {
	m, ok := p.method(name)
	if !ok {
		return nil, newError(ErrCodeNoSuchMethod, "proxy has no such method", nil).
			WithSubject(fmt.Sprintf("%v.%s", p.targetType, name))
	}
	return p.invoke(m, args)
}

// method resolves name against the proxied interfaces first, then the
// target type.
func (p *Proxy) method(name string) (Method, bool) {
	if cached, ok := p.methods.Load(name); ok {
		return cached.(Method), true
	}
	var (
		m  Method
		ok bool
	)
	for _, iface := range p.interfaces {
		if m, ok = MethodOf(iface, name); ok {
			break
		}
	}
	if !ok {
		m, ok = MethodOf(p.targetType, name)
	}
	if !ok {
		return Method{}, false
	}
	p.methods.Store(name, m)
	return m, true
}

func (p *Proxy) invoke(m Method, args []any) ([]any, error) {
	ctx := contextArg(m, args)
	target, err := p.targetSource.Target(ctx)
	if err != nil {
		return nil, err
	}
	defer p.targetSource.Release(target)

	if p.exposeProxy {
		args, _ = withContextArg(m, args, func(ctx context.Context) context.Context {
			return context.WithValue(ctx, proxyKey{}, p)
		})
	}

	chain, err := p.chain(m)
	if err != nil {
		return nil, err
	}

	joinpoint := func(args []any) ([]any, error) {
		return invokeReflective(target, m, args)
	}
	if len(chain) == 0 {
		return joinpoint(args)
	}
	return newInvocation(p, target, p.targetType, m, args, chain, joinpoint).Proceed()
}

// Chain returns the interceptors that run for the named method, outermost
// first.
func (p *Proxy) Chain(name string) ([]MethodInterceptor, error) {
	m, ok := p.method(name)
	if !ok {
		return nil, newError(ErrCodeNoSuchMethod, "proxy has no such method", nil).WithSubject(name)
	}
	chain, err := p.chain(m)
	if err != nil {
		return nil, err
	}
	out := make([]MethodInterceptor, len(chain))
	for i, e := range chain {
		out[i] = e.interceptor
	}
	return out, nil
}

func (p *Proxy) chain(m Method) ([]chainEntry, error) {
	if cached, ok := p.chains.Load(m.Name); ok {
		return cached.([]chainEntry), nil
	}
	chain, err := buildChain(p.registry, p.advisors, m, p.targetType, p.hasIntroductions)
	if err != nil {
		return nil, err
	}
	actual, _ := p.chains.LoadOrStore(m.Name, chain)
	return actual.([]chainEntry), nil
}

// buildChain selects, in advisor order, the interceptors for m. Advisors with
// a runtime method matcher are kept with their matcher so the arguments are
// checked on every call.
func buildChain(
	registry *AdvisorAdapterRegistry, advisors []Advisor, m Method, targetType reflect.Type, hasIntroductions bool,
) ([]chainEntry, error) {
	var chain []chainEntry
	for _, advisor := range advisors {
		var matcher MethodMatcher

		switch a := advisor.(type) {
		case PointcutAdvisor:
			pc := a.Pointcut()
			if !pc.ClassFilter().Matches(targetType) {
				continue
			}
			mm := pc.MethodMatcher()
			if !matchesStatically(mm, m, targetType, hasIntroductions) {
				continue
			}
			if mm.IsRuntime() {
				matcher = mm
			}
		case IntroductionAdvisor:
			if !a.ClassFilter().Matches(targetType) {
				continue
			}
		}

		interceptors, err := registry.Interceptors(advisor)
		if err != nil {
			return nil, err
		}
		for _, mi := range interceptors {
			chain = append(chain, chainEntry{interceptor: mi, matcher: matcher})
		}
	}
	return chain, nil
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
