package aop

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/danpasecinic/stitch/bean"
	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

var (
	adviceType   = reflect.TypeOf((*Advice)(nil)).Elem()
	pointcutType = reflect.TypeOf((*Pointcut)(nil)).Elem()
)

// AutoProxyOption configures an AutoProxyCreator.
type AutoProxyOption func(*AutoProxyCreator)

func WithAutoProxyLogger(logger *slog.Logger) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.logger = logger
	}
}

// WithAutoProxyRegistry sets the adapter registry used by created proxies.
func WithAutoProxyRegistry(r *AdvisorAdapterRegistry) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.registry = r
	}
}

// WithAutoProxyParser sets the pointcut expression parser used for aspects.
func WithAutoProxyParser(p ExpressionParser) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.parser = p
	}
}

// WithIncludePatterns restricts aspect beans to names matching one of the
// regular expressions.
func WithIncludePatterns(patterns ...string) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.include = append(c.include, patterns...)
	}
}

// WithProxyExposure makes created proxies put themselves on the context of
// each call.
func WithProxyExposure(expose bool) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.exposeProxy = expose
	}
}

// WithFrozenProxies freezes the configuration of created proxies.
func WithFrozenProxies(frozen bool) AutoProxyOption {
	return func(c *AutoProxyCreator) {
		c.frozen = frozen
	}
}

// AutoProxyCreator decides per bean which advisors apply and wraps the bean
// in a proxy when any do. It is installed in the container as a
// bean.PostProcessor.
type AutoProxyCreator struct {
	factory     bean.Factory
	stubs       *StubRegistry
	registry    *AdvisorAdapterRegistry
	parser      ExpressionParser
	include     []string
	exposeProxy bool
	frozen      bool
	logger      *slog.Logger

	retrieval *AdvisorRetrieval
	builder   *AspectAdvisorsBuilder

	mu           sync.RWMutex
	programmatic []Advisor
	doNotProxy   map[string]bool
}

func NewAutoProxyCreator(
	factory bean.Factory, stubs *StubRegistry, opts ...AutoProxyOption,
) (*AutoProxyCreator, error) {
	c := &AutoProxyCreator{
		factory:    factory,
		stubs:      stubs,
		logger:     slog.Default(),
		doNotProxy: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewAdvisorAdapterRegistry()
	}
	if c.stubs == nil {
		c.stubs = NewStubRegistry()
	}

	c.retrieval = NewAdvisorRetrieval(factory, c.logger)
	c.builder = NewAspectAdvisorsBuilder(factory, NewAspectAdvisorFactory(c.parser, c.logger), c.logger)
	if err := c.builder.SetIncludePatterns(c.include...); err != nil {
		return nil, err
	}
	c.retrieval.IsEligible = c.builder.IsEligibleBean
	return c, nil
}

// AddAdvisors registers advisors that are not container beans. They are
// considered ahead of the container's advisors.
func (c *AutoProxyCreator) AddAdvisors(advisors ...Advisor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programmatic = append(c.programmatic, advisors...)
}

func (c *AutoProxyCreator) Registry() *AdvisorAdapterRegistry { return c.registry }
func (c *AutoProxyCreator) Stubs() *StubRegistry              { return c.stubs }
func (c *AutoProxyCreator) Builder() *AspectAdvisorsBuilder   { return c.builder }

// FindCandidateAdvisors returns programmatic advisors, advisor beans and
// advisors compiled from aspect beans, in that order.
func (c *AutoProxyCreator) FindCandidateAdvisors(ctx context.Context) ([]Advisor, error) {
	c.mu.RLock()
	candidates := append([]Advisor(nil), c.programmatic...)
	c.mu.RUnlock()

	beans, err := c.retrieval.FindAdvisorBeans(ctx)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, beans...)

	aspects, err := c.builder.BuildAspectAdvisors(ctx)
	if err != nil {
		return nil, err
	}
	return append(candidates, aspects...), nil
}

// FindEligibleAdvisors returns the sorted advisors that can apply to a bean
// of type t named beanName. Advisors compiled from the bean itself never
// apply to it.
func (c *AutoProxyCreator) FindEligibleAdvisors(
	ctx context.Context, t reflect.Type, beanName string,
) ([]Advisor, error) {
	candidates, err := c.FindCandidateAdvisors(ctx)
	if err != nil {
		return nil, err
	}

	var interfaces []reflect.Type
	if declared, ok := c.factory.Type(beanName); ok && declared.Kind() == reflect.Interface {
		interfaces = append(interfaces, declared)
	}

	eligible := FindAdvisorsThatCanApply(withoutOwnAspect(candidates, beanName), t, interfaces)
	eligible = ExtendAdvisors(eligible)
	if len(eligible) == 0 {
		return nil, nil
	}
	return SortAdvisors(eligible), nil
}

func withoutOwnAspect(advisors []Advisor, beanName string) []Advisor {
	out := advisors[:0:0]
	for _, a := range advisors {
		if pi, ok := a.(PrecedenceInformation); ok && pi.AspectName() == beanName {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ExtendAdvisors prepends ExposeInvocationAdvisor when any advisor was
// compiled from an aspect and it is not present yet.
func ExtendAdvisors(advisors []Advisor) []Advisor {
	if len(advisors) == 0 {
		return advisors
	}

	foundAspect := false
	for _, a := range advisors {
		if a == ExposeInvocationAdvisor {
			return advisors
		}
		if isAspectAdvisor(a) {
			foundAspect = true
		}
	}
	if !foundAspect {
		return advisors
	}
	return append([]Advisor{ExposeInvocationAdvisor}, advisors...)
}

func isAspectAdvisor(a Advisor) bool {
	switch a.(type) {
	case *InstantiationModelAwarePointcutAdvisor, *syntheticInstantiationAdvisor, *DeclareParentsAdvisor:
		return true
	}
	switch a.Advice().(type) {
	case *aspectBeforeAdvice, *aspectAfterAdvice, *aspectAfterReturningAdvice,
		*aspectAfterThrowingAdvice, *aspectAroundAdvice:
		return true
	}
	return false
}

// AdvicesAndAdvisorsForBean returns the advisors for a bean, or ok false when
// the bean should not be proxied.
func (c *AutoProxyCreator) AdvicesAndAdvisorsForBean(
	ctx context.Context, t reflect.Type, beanName string,
) (advisors []Advisor, ok bool, err error) {
	advisors, err = c.FindEligibleAdvisors(ctx, t, beanName)
	if err != nil {
		return nil, false, err
	}
	return advisors, len(advisors) > 0, nil
}

// IsInfrastructure reports whether t is part of the AOP machinery and must
// never be proxied.
func (c *AutoProxyCreator) IsInfrastructure(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for _, iface := range []reflect.Type{advisorType, adviceType, pointcutType} {
		if t.Implements(iface) {
			return true
		}
	}
	return IsAspect(t)
}

// PostProcessAfterInitialization proxies instance when advisors apply to it.
// The proxy is returned through the stub registered for the bean's declared
// type; beans declared with a concrete type are left alone.
func (c *AutoProxyCreator) PostProcessAfterInitialization(ctx context.Context, instance any, name string) (any, error) {
	if instance == nil || IsProxy(instance) {
		return instance, nil
	}

	c.mu.RLock()
	skip := c.doNotProxy[name]
	c.mu.RUnlock()
	if skip {
		return instance, nil
	}

	t := reflect.TypeOf(instance)
	declared, ok := c.factory.Type(name)
	if !ok {
		declared = t
	}
	if c.IsInfrastructure(t) || c.IsInfrastructure(declared) {
		c.markDoNotProxy(name)
		return instance, nil
	}

	advisors, ok, err := c.AdvicesAndAdvisorsForBean(ctx, t, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		c.logger.Debug("no advisors apply", slog.String("bean", name))
		c.markDoNotProxy(name)
		return instance, nil
	}

	if declared.Kind() != reflect.Interface {
		c.logger.Debug("advisors apply but bean is not declared as an interface",
			slog.String("bean", name),
			slog.String("type", ireflect.TypeKeyOf(declared)),
		)
		c.markDoNotProxy(name)
		return instance, nil
	}

	proxy, err := c.createProxy(instance, declared, advisors)
	if err != nil {
		return nil, err
	}
	stub, err := c.stubs.Stub(declared, proxy)
	if err != nil {
		return nil, err
	}

	c.logger.Info("created proxy",
		slog.String("bean", name),
		slog.String("type", ireflect.TypeKeyOf(declared)),
		slog.Int("advisors", len(advisors)),
	)
	return stub, nil
}

func (c *AutoProxyCreator) createProxy(instance any, declared reflect.Type, advisors []Advisor) (*Proxy, error) {
	pf := NewProxyFactory(instance,
		WithAdapterRegistry(c.registry),
		WithInterfaces(declared),
		WithExposeProxy(c.exposeProxy),
		WithProxyLogger(c.logger),
	)
	if err := pf.AddAdvisors(advisors...); err != nil {
		return nil, err
	}
	if c.frozen {
		pf.frozen = true
	}
	return pf.Proxy(), nil
}

func (c *AutoProxyCreator) markDoNotProxy(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doNotProxy[name] = true
}
