package aop

import (
	"reflect"
	"sync"
)

// AspectInstanceCache shares singleton aspect instances between
// AspectProxyFactory values, keyed by aspect type.
type AspectInstanceCache struct {
	mu        sync.Mutex
	instances map[reflect.Type]any
}

func NewAspectInstanceCache() *AspectInstanceCache {
	return &AspectInstanceCache{instances: make(map[reflect.Type]any)}
}

// Instance returns the cached instance of the aspect type t, creating its
// zero value on first use.
func (c *AspectInstanceCache) Instance(t reflect.Type) any {
	t = aspectPointer(t)

	c.mu.Lock()
	defer c.mu.Unlock()

	if instance, ok := c.instances[t]; ok {
		return instance
	}
	instance := zeroAspect(t).Interface()
	c.instances[t] = instance
	return instance
}

func (c *AspectInstanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

// AspectProxyFactory builds proxies from aspects without a container.
//
//	pf := aop.NewAspectProxyFactory(service, aop.WithInterfaces(aop.TypeOf[OrderService]()))
//	_ = pf.AddAspectInstance(&Audit{})
//	proxy := pf.Proxy()
type AspectProxyFactory struct {
	*ProxyFactory
	advisorFactory *AspectAdvisorFactory
	cache          *AspectInstanceCache
	target         reflect.Type
}

// AspectProxyFactoryOption configures an AspectProxyFactory.
type AspectProxyFactoryOption func(*AspectProxyFactory)

// WithAspectInstanceCache shares singleton aspect instances with other
// factories.
func WithAspectInstanceCache(c *AspectInstanceCache) AspectProxyFactoryOption {
	return func(f *AspectProxyFactory) {
		f.cache = c
	}
}

// WithAdvisorFactory sets the aspect compiler.
func WithAdvisorFactory(af *AspectAdvisorFactory) AspectProxyFactoryOption {
	return func(f *AspectProxyFactory) {
		f.advisorFactory = af
	}
}

func NewAspectProxyFactory(target any, opts ...ProxyOption) *AspectProxyFactory {
	return NewAspectProxyFactoryWith(target, nil, opts...)
}

// NewAspectProxyFactoryWith is NewAspectProxyFactory with aspect options.
func NewAspectProxyFactoryWith(
	target any, aspectOpts []AspectProxyFactoryOption, opts ...ProxyOption,
) *AspectProxyFactory {
	pf := NewProxyFactory(target, opts...)
	f := &AspectProxyFactory{
		ProxyFactory: pf,
		target:       pf.targetSource.TargetType(),
	}
	for _, opt := range aspectOpts {
		opt(f)
	}
	if f.advisorFactory == nil {
		f.advisorFactory = NewAspectAdvisorFactory(nil, pf.logger)
	}
	if f.cache == nil {
		f.cache = NewAspectInstanceCache()
	}
	return f
}

// AddAspectInstance adds the advisors of a singleton aspect instance.
func (f *AspectProxyFactory) AddAspectInstance(instance any) error {
	t := reflect.TypeOf(instance)
	factory, err := NewSingletonAspectInstanceFactory(instance, "", f.advisorFactory.Parser())
	if err != nil {
		return err
	}
	if kind := factory.AspectMetadata().PerClause.Kind; kind != SingletonKind {
		return errConfig(factory.AspectMetadata().AspectName,
			"aspect type %s does not define a singleton aspect (%s)", t, kind)
	}
	return f.addFromFactory(factory)
}

// AddAspect adds the advisors of the aspect type t. Singleton aspects share
// one instance per cache; other models get a fresh instance per
// materialization.
func (f *AspectProxyFactory) AddAspect(t reflect.Type) error {
	md, err := NewAspectMetadata(t, "", f.advisorFactory.Parser())
	if err != nil {
		return err
	}

	var factory MetadataAwareAspectInstanceFactory
	if md.PerClause.Kind == SingletonKind {
		factory, err = NewSingletonAspectInstanceFactory(f.cache.Instance(t), md.AspectName, f.advisorFactory.Parser())
	} else {
		factory, err = NewSimpleAspectInstanceFactory(t, f.advisorFactory.Parser())
	}
	if err != nil {
		return err
	}
	return f.addFromFactory(factory)
}

// AddAspectOf is AddAspect for the aspect type A.
func AddAspectOf[A any](f *AspectProxyFactory) error {
	return f.AddAspect(TypeOf[A]())
}

func (f *AspectProxyFactory) addFromFactory(factory MetadataAwareAspectInstanceFactory) error {
	advisors, err := f.advisorFactory.Advisors(factory)
	if err != nil {
		return err
	}
	advisors = FindAdvisorsThatCanApply(advisors, f.target, f.interfaces)
	for _, existing := range f.advisors {
		if existing == ExposeInvocationAdvisor {
			return f.AddAdvisors(SortAdvisors(advisors)...)
		}
	}
	return f.AddAdvisors(SortAdvisors(ExtendAdvisors(advisors))...)
}
