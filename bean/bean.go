// Package bean defines the contract between the container and the AOP engine.
//
// The container implements Factory; the engine only enumerates bean names and
// types, asks about scope and in-creation state, and fetches instances by name.
package bean

import (
	"context"
	"reflect"
)

// Factory is the read side of a container as seen by the AOP engine.
type Factory interface {
	// BeanNamesForType returns, in registration order, the names of all beans
	// whose declared type is assignable to t. A nil t matches every bean.
	BeanNamesForType(t reflect.Type) []string

	// Type returns the declared type of the named bean.
	Type(name string) (reflect.Type, bool)

	// IsSingleton reports whether the named bean is container-singleton scoped.
	IsSingleton(name string) bool

	// IsCurrentlyInCreation reports whether the named bean is being created.
	IsCurrentlyInCreation(name string) bool

	// Bean returns the instance for name, creating it if needed.
	Bean(ctx context.Context, name string) (any, error)
}

// PostProcessor is applied by the container to every freshly created bean
// after its decorators ran. The returned value replaces the instance.
type PostProcessor interface {
	PostProcessAfterInitialization(ctx context.Context, instance any, name string) (any, error)
}

// PostProcessorFunc adapts a function to PostProcessor.
type PostProcessorFunc func(ctx context.Context, instance any, name string) (any, error)

func (f PostProcessorFunc) PostProcessAfterInitialization(ctx context.Context, instance any, name string) (any, error) {
	return f(ctx, instance, name)
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// AnyType is the type every bean is assignable to.
func AnyType() reflect.Type {
	return anyType
}
