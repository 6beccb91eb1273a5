package stitch

import (
	"context"

	"github.com/danpasecinic/stitch/internal/reflect"
)

// Resolver is passed to providers and decorators. Resolve with the ctx they
// receive.
type Resolver interface {
	Resolve(ctx context.Context, key string) (any, error)
	Has(key string) bool
}

type resolverAdapter struct {
	container *Container
}

func (r *resolverAdapter) Resolve(ctx context.Context, key string) (any, error) {
	return r.container.internal.Resolve(ctx, key)
}

func (r *resolverAdapter) Has(key string) bool {
	return r.container.internal.Has(key)
}

// invoke resolves key and asserts the bean to T. label names the bean in
// errors.
func invoke[T any](ctx context.Context, c *Container, key, label string) (T, error) {
	var zero T

	instance, err := c.internal.Resolve(ctx, key)
	if err != nil {
		return zero, errResolutionFailed(label, err)
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errTypeMismatch(label, instance)
	}
	return typed, nil
}

func Invoke[T any](c *Container) (T, error) {
	return InvokeCtx[T](context.Background(), c)
}

// InvokeCtx resolves the bean named after T. Inside a provider pass the
// provider's ctx.
func InvokeCtx[T any](ctx context.Context, c *Container) (T, error) {
	return invoke[T](ctx, c, reflect.TypeKey[T](), reflect.TypeName[T]())
}

func InvokeNamed[T any](c *Container, name string) (T, error) {
	return InvokeNamedCtx[T](context.Background(), c, name)
}

func InvokeNamedCtx[T any](ctx context.Context, c *Container, name string) (T, error) {
	return invoke[T](ctx, c, reflect.TypeKeyNamed[T](name), reflect.TypeName[T]()+"#"+name)
}

// InvokeKey resolves a bean by its full name, as listed by Keys.
func InvokeKey[T any](ctx context.Context, c *Container, key string) (T, error) {
	return invoke[T](ctx, c, key, key)
}

func MustInvoke[T any](c *Container) T {
	return must[T](Invoke[T](c))
}

func MustInvokeCtx[T any](ctx context.Context, c *Container) T {
	return must[T](InvokeCtx[T](ctx, c))
}

func MustInvokeNamed[T any](c *Container, name string) T {
	return must[T](InvokeNamed[T](c, name))
}

func MustInvokeNamedCtx[T any](ctx context.Context, c *Container, name string) T {
	return must[T](InvokeNamedCtx[T](ctx, c, name))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TryInvoke[T any](c *Container) (T, bool) {
	v, err := Invoke[T](c)
	return v, err == nil
}

func TryInvokeNamed[T any](c *Container, name string) (T, bool) {
	v, err := InvokeNamed[T](c, name)
	return v, err == nil
}

func Has[T any](c *Container) bool {
	return c.internal.Has(reflect.TypeKey[T]())
}

func HasNamed[T any](c *Container, name string) bool {
	return c.internal.Has(reflect.TypeKeyNamed[T](name))
}

type Optional[T any] struct {
	value   T
	present bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func (o Optional[T]) OrElseFunc(fn func() T) T {
	if o.present {
		return o.value
	}
	return fn()
}

func InvokeOptional[T any](c *Container) (Optional[T], error) {
	return InvokeOptionalCtx[T](context.Background(), c)
}

// InvokeOptionalCtx returns None when no bean is registered for T. A bean
// that is registered but fails to resolve is an error.
func InvokeOptionalCtx[T any](ctx context.Context, c *Container) (Optional[T], error) {
	return invokeOptional[T](ctx, c, reflect.TypeKey[T](), reflect.TypeName[T]())
}

func InvokeOptionalNamed[T any](c *Container, name string) (Optional[T], error) {
	return InvokeOptionalNamedCtx[T](context.Background(), c, name)
}

func InvokeOptionalNamedCtx[T any](ctx context.Context, c *Container, name string) (Optional[T], error) {
	return invokeOptional[T](ctx, c, reflect.TypeKeyNamed[T](name), reflect.TypeName[T]()+"#"+name)
}

func invokeOptional[T any](ctx context.Context, c *Container, key, label string) (Optional[T], error) {
	if !c.internal.Has(key) {
		return None[T](), nil
	}
	v, err := invoke[T](ctx, c, key, label)
	if err != nil {
		return None[T](), err
	}
	return Some(v), nil
}
