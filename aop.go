package stitch

import (
	"context"
	"reflect"
	"slices"

	"github.com/danpasecinic/stitch/aop"
	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// RegisterStub registers the typed view the container returns for proxied
// beans declared as T. Without one, proxying a T bean fails.
func RegisterStub[T any](c *Container, build func(p *aop.Proxy) T) {
	aop.RegisterStub(c.stubs, build)
}

// ProvideAspect registers an aspect bean. Its advice methods are compiled
// into advisors the first time a bean is post-processed. Per-target aspects
// need WithScope(Transient).
func ProvideAspect[T aop.Aspect](c *Container, provider Provider[T], opts ...ProviderOption) error {
	if err := aop.ValidateAspect(ireflect.TypeOf[T]()); err != nil {
		return errAOPConfig("invalid aspect", err).WithService(ireflect.TypeKey[T]())
	}
	return Provide(c, provider, opts...)
}

// ProvideAdvisor registers advisor as a bean named "aop.Advisor#name".
func ProvideAdvisor(c *Container, name string, advisor aop.Advisor, opts ...ProviderOption) error {
	return ProvideNamedValue(c, name, advisor, opts...)
}

// AddAdvisors adds advisors that are not beans. They precede advisor and
// aspect beans when advisors are collected.
func (c *Container) AddAdvisors(advisors ...aop.Advisor) error {
	if c.autoProxy == nil {
		return errAOPConfig("auto-proxy is not enabled", c.err)
	}
	c.autoProxy.AddAdvisors(advisors...)
	return nil
}

// Advisors returns the sorted advisor chain that applies to beanName. The
// instance type is used once the bean exists, the declared type before.
// Beans declared with a concrete type are never proxied and have none.
func (c *Container) Advisors(ctx context.Context, beanName string) ([]aop.Advisor, error) {
	if c.autoProxy == nil {
		return nil, errAOPConfig("auto-proxy is not enabled", c.err)
	}

	declared, ok := c.internal.Type(beanName)
	if !ok {
		return nil, errResolutionFailed(beanName, notFound(beanName))
	}
	t := declared
	if instance, ok := c.internal.Instance(beanName); ok && instance != nil {
		if p, isProxy := aop.ProxyOf(instance); isProxy {
			return slices.Clone(p.Advisors()), nil
		}
		t = reflect.TypeOf(instance)
	}
	if declared.Kind() != reflect.Interface ||
		c.autoProxy.IsInfrastructure(t) || c.autoProxy.IsInfrastructure(declared) {
		return nil, nil
	}

	advisors, err := c.autoProxy.FindEligibleAdvisors(ctx, t, beanName)
	if err != nil {
		return nil, errAOPConfig("collecting advisors failed", err).WithService(beanName)
	}
	return advisors, nil
}
