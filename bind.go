package stitch

import (
	"context"

	"github.com/danpasecinic/stitch/internal/container"
	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

type Decorator[T any] func(ctx context.Context, r Resolver, base T) (T, error)

// Bind registers interface I as an alias for the bean of T. The I bean is
// declared with the interface type, so the auto-proxy creator may wrap it in
// a stub for I while the T bean stays unproxied.
func Bind[I, T any](c *Container, opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	interfaceKey := cfg.key(ireflect.TypeKey[I]())
	implKey := ireflect.TypeKey[T]()

	provider := func(ctx context.Context, r container.Resolver) (any, error) {
		impl, err := r.Resolve(ctx, implKey)
		if err != nil {
			return nil, err
		}
		if _, ok := impl.(I); !ok {
			return nil, errTypeMismatch(ireflect.TypeName[I](), impl)
		}
		return impl, nil
	}

	cfg.dependencies = append([]string{implKey}, cfg.dependencies...)
	return c.register(interfaceKey, ireflect.TypeOf[I](), provider, cfg)
}

func BindNamed[I, T any](c *Container, name string, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Bind[I, T](c, opts...)
}

// Decorate wraps every instance of the T bean when it is created. Decorators
// run in registration order, before the auto-proxy creator.
func Decorate[T any](c *Container, decorator Decorator[T]) {
	decorate(c, ireflect.TypeKey[T](), decorator)
}

func DecorateNamed[T any](c *Container, name string, decorator Decorator[T]) {
	decorate(c, ireflect.TypeKeyNamed[T](name), decorator)
}

func decorate[T any](c *Container, key string, decorator Decorator[T]) {
	c.internal.AddDecorator(
		key, func(ctx context.Context, _ container.Resolver, instance any) (any, error) {
			typed, ok := instance.(T)
			if !ok {
				return nil, errDecoratorTypeMismatch(ireflect.TypeName[T]())
			}
			return decorator(ctx, &resolverAdapter{container: c}, typed)
		},
	)
}
