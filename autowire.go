package stitch

import (
	"context"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// TagKey marks struct fields for injection: `stitch:""` by type,
// `stitch:"name"` for a named bean, `stitch:",optional"` to skip missing
// beans.
const TagKey = "stitch"

// ProvideFunc registers constructor as the provider of T. Each parameter is
// resolved by its type and declared as a dependency. constructor returns T
// or (T, error).
func ProvideFunc[T any](c *Container, constructor any, opts ...ProviderOption) error {
	key := ireflect.TypeKey[T]()

	params, result, hasError, err := ireflect.FuncParams(constructor)
	if err != nil {
		return errInvalidConfig("invalid constructor", err).WithService(key)
	}
	if expected := ireflect.TypeOf[T](); !result.AssignableTo(expected) {
		return errInvalidConfig(fmt.Sprintf("constructor returns %s, expected %s", result, expected), nil).
			WithService(key)
	}

	fn := reflect.ValueOf(constructor)
	deps := make([]string, len(params))
	for i, p := range params {
		deps[i] = p.TypeKey
	}

	provider := func(ctx context.Context, _ Resolver) (T, error) {
		var zero T

		args := make([]reflect.Value, len(params))
		for i, p := range params {
			instance, err := c.internal.Resolve(ctx, p.TypeKey)
			if err != nil {
				return zero, fmt.Errorf("parameter %d (%s): %w", i, p.TypeKey, err)
			}
			args[i] = valueOf(instance, p.Type)
		}

		results := fn.Call(args)
		if hasError && !results[1].IsNil() {
			return zero, results[1].Interface().(error)
		}
		out, _ := results[0].Interface().(T)
		return out, nil
	}

	opts = append([]ProviderOption{WithDependencies(deps...)}, opts...)
	return Provide(c, provider, opts...)
}

// ProvideStruct registers T, a struct or pointer to struct, built by
// injecting its tagged fields. Required fields are declared dependencies.
func ProvideStruct[T any](c *Container, opts ...ProviderOption) error {
	fields, err := ireflect.StructFields(ireflect.TypeOf[T](), TagKey)
	if err != nil {
		return errInvalidConfig("invalid struct", err).WithService(ireflect.TypeKey[T]())
	}

	var deps []string
	for _, f := range fields {
		if !f.Optional {
			deps = append(deps, f.Key())
		}
	}

	provider := func(ctx context.Context, _ Resolver) (T, error) {
		return InvokeStructCtx[T](ctx, c)
	}

	opts = append([]ProviderOption{WithDependencies(deps...)}, opts...)
	return Provide(c, provider, opts...)
}

func InvokeStruct[T any](c *Container) (T, error) {
	return InvokeStructCtx[T](context.Background(), c)
}

// InvokeStructCtx builds a T without registering it.
func InvokeStructCtx[T any](ctx context.Context, c *Container) (T, error) {
	var zero T
	t := ireflect.TypeOf[T]()
	label := ireflect.TypeName[T]()

	fields, err := ireflect.StructFields(t, TagKey)
	if err != nil {
		return zero, errInvalidConfig("invalid struct", err).WithService(label)
	}

	isPtr := t.Kind() == reflect.Ptr
	if isPtr && t.Elem().Kind() != reflect.Struct {
		return zero, errInvalidConfig("invalid struct", fmt.Errorf("%s is not a struct or pointer to struct", t)).
			WithService(label)
	}
	ptr := reflect.New(ireflect.Indirect(t))
	structVal := ptr.Elem()

	for _, field := range fields {
		key := field.Key()
		if field.Optional && !c.internal.Has(key) {
			continue
		}

		instance, err := c.internal.Resolve(ctx, key)
		if err != nil {
			return zero, errResolutionFailed(label+"."+field.Name, err)
		}

		value := valueOf(instance, field.Type)
		if !value.Type().AssignableTo(field.Type) {
			return zero, errTypeMismatch(label+"."+field.Name, instance)
		}
		structVal.Field(field.Index).Set(value)
	}

	if isPtr {
		return ptr.Interface().(T), nil
	}
	return structVal.Interface().(T), nil
}

// valueOf returns instance as a reflect.Value, the zero value of t for nil.
func valueOf(instance any, t reflect.Type) reflect.Value {
	if instance == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(instance)
}
