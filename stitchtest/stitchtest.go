// Package stitchtest wraps a stitch container for use in tests. Failures are
// reported through the test instead of returned, and the container is
// stopped when the test ends.
package stitchtest

import (
	"context"

	"github.com/danpasecinic/stitch"
	"github.com/danpasecinic/stitch/aop"
	"github.com/danpasecinic/stitch/internal/reflect"
	"github.com/danpasecinic/stitch/logging"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestContainer struct {
	*stitch.Container
	tb TB
}

// New returns a container that logs nothing unless opts set a logger.
func New(tb TB, opts ...stitch.Option) *TestContainer {
	tb.Helper()

	opts = append([]stitch.Option{stitch.WithLogger(logging.Nop())}, opts...)
	c := stitch.New(opts...)
	if err := c.Err(); err != nil {
		tb.Fatalf("invalid container options: %v", err)
	}

	tc := &TestContainer{
		Container: c,
		tb:        tb,
	}

	tb.Cleanup(func() {
		if err := c.Stop(context.Background()); err != nil {
			tb.Fatalf("failed to stop container: %v", err)
		}
	})

	return tc
}

func (tc *TestContainer) RequireStart(ctx context.Context) {
	tc.tb.Helper()

	if err := tc.Start(ctx); err != nil {
		tc.tb.Fatalf("failed to start container: %v", err)
	}
}

func (tc *TestContainer) RequireStop(ctx context.Context) {
	tc.tb.Helper()

	if err := tc.Stop(ctx); err != nil {
		tc.tb.Fatalf("failed to stop container: %v", err)
	}
}

func (tc *TestContainer) RequireValidate() {
	tc.tb.Helper()

	if err := tc.Validate(); err != nil {
		tc.tb.Fatalf("container validation failed: %v", err)
	}
}

// Override makes every resolve of T return value instead of what its
// provider builds. It must be called before T is first resolved.
func Override[T any](tc *TestContainer, value T) {
	tc.tb.Helper()

	requireHas(tc, reflect.TypeKey[T]())
	stitch.Decorate(tc.Container, func(context.Context, stitch.Resolver, T) (T, error) {
		return value, nil
	})
}

func OverrideNamed[T any](tc *TestContainer, name string, value T) {
	tc.tb.Helper()

	requireHas(tc, reflect.TypeKeyNamed[T](name))
	stitch.DecorateNamed(tc.Container, name, func(context.Context, stitch.Resolver, T) (T, error) {
		return value, nil
	})
}

func requireHas(tc *TestContainer, key string) {
	tc.tb.Helper()

	for _, k := range tc.Keys() {
		if k == key {
			return
		}
	}
	tc.tb.Fatalf("cannot override %s: not registered", key)
}

func AssertHas[T any](tc *TestContainer) {
	tc.tb.Helper()

	if !stitch.Has[T](tc.Container) {
		tc.tb.Fatalf("expected container to have %s", reflect.TypeKey[T]())
	}
}

func AssertHasNamed[T any](tc *TestContainer, name string) {
	tc.tb.Helper()

	if !stitch.HasNamed[T](tc.Container, name) {
		tc.tb.Fatalf("expected container to have %s", reflect.TypeKeyNamed[T](name))
	}
}

func AssertNotHas[T any](tc *TestContainer) {
	tc.tb.Helper()

	if stitch.Has[T](tc.Container) {
		tc.tb.Fatalf("expected container to not have %s", reflect.TypeKey[T]())
	}
}

// RequireProxied resolves T and fails unless the bean is an aop proxy. It
// returns the proxy so tests can inspect its advisors.
func RequireProxied[T any](tc *TestContainer) *aop.Proxy {
	tc.tb.Helper()

	p, ok := aop.ProxyOf(MustInvoke[T](tc))
	if !ok {
		tc.tb.Fatalf("expected %s to be proxied", reflect.TypeKey[T]())
	}
	return p
}

func RequireNotProxied[T any](tc *TestContainer) {
	tc.tb.Helper()

	if aop.IsProxy(MustInvoke[T](tc)) {
		tc.tb.Fatalf("expected %s not to be proxied", reflect.TypeKey[T]())
	}
}

func MustInvoke[T any](tc *TestContainer) T {
	tc.tb.Helper()

	v, err := stitch.Invoke[T](tc.Container)
	if err != nil {
		tc.tb.Fatalf("failed to invoke %s: %v", reflect.TypeKey[T](), err)
	}
	return v
}

func MustInvokeNamed[T any](tc *TestContainer, name string) T {
	tc.tb.Helper()

	v, err := stitch.InvokeNamed[T](tc.Container, name)
	if err != nil {
		tc.tb.Fatalf("failed to invoke %s: %v", reflect.TypeKeyNamed[T](name), err)
	}
	return v
}

func MustProvide[T any](tc *TestContainer, provider stitch.Provider[T], opts ...stitch.ProviderOption) {
	tc.tb.Helper()

	if err := stitch.Provide(tc.Container, provider, opts...); err != nil {
		tc.tb.Fatalf("failed to provide %s: %v", reflect.TypeKey[T](), err)
	}
}

func MustProvideValue[T any](tc *TestContainer, value T, opts ...stitch.ProviderOption) {
	tc.tb.Helper()

	if err := stitch.ProvideValue(tc.Container, value, opts...); err != nil {
		tc.tb.Fatalf("failed to provide value %s: %v", reflect.TypeKey[T](), err)
	}
}

func MustProvideNamed[T any](tc *TestContainer, name string, provider stitch.Provider[T], opts ...stitch.ProviderOption) {
	tc.tb.Helper()

	if err := stitch.ProvideNamed(tc.Container, name, provider, opts...); err != nil {
		tc.tb.Fatalf("failed to provide %s: %v", reflect.TypeKeyNamed[T](name), err)
	}
}

func MustBind[I, T any](tc *TestContainer, opts ...stitch.ProviderOption) {
	tc.tb.Helper()

	if err := stitch.Bind[I, T](tc.Container, opts...); err != nil {
		tc.tb.Fatalf("failed to bind %s: %v", reflect.TypeKey[I](), err)
	}
}

func MustProvideAspect[T aop.Aspect](tc *TestContainer, provider stitch.Provider[T], opts ...stitch.ProviderOption) {
	tc.tb.Helper()

	if err := stitch.ProvideAspect(tc.Container, provider, opts...); err != nil {
		tc.tb.Fatalf("failed to provide aspect %s: %v", reflect.TypeKey[T](), err)
	}
}
