package aop

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/stitch/bean"
)

// AspectInstanceFactory supplies the aspect instance advice runs on.
type AspectInstanceFactory interface {
	AspectInstance(ctx context.Context) (any, error)
	Order() int
}

// MetadataAwareAspectInstanceFactory also knows the aspect's metadata and the
// mutex guarding its lazy creation. A nil mutex means creation needs no lock.
type MetadataAwareAspectInstanceFactory interface {
	AspectInstanceFactory
	AspectMetadata() *AspectMetadata
	CreationMutex() *sync.Mutex
}

// SingletonAspectInstanceFactory always returns one pre-built instance.
type SingletonAspectInstanceFactory struct {
	instance any
	metadata *AspectMetadata
	mu       sync.Mutex
}

func NewSingletonAspectInstanceFactory(
	instance any, name string, parser ExpressionParser,
) (*SingletonAspectInstanceFactory, error) {
	if instance == nil {
		return nil, errConfig(name, "aspect instance must not be nil")
	}
	md, err := NewAspectMetadata(reflect.TypeOf(instance), name, parser)
	if err != nil {
		return nil, err
	}
	return &SingletonAspectInstanceFactory{instance: instance, metadata: md}, nil
}

func (f *SingletonAspectInstanceFactory) AspectInstance(context.Context) (any, error) {
	return f.instance, nil
}

func (f *SingletonAspectInstanceFactory) Order() int {
	if o, ok := f.instance.(Ordered); ok {
		return o.Order()
	}
	return aspectOrder(f.metadata.AspectType)
}

func (f *SingletonAspectInstanceFactory) AspectMetadata() *AspectMetadata { return f.metadata }
func (f *SingletonAspectInstanceFactory) CreationMutex() *sync.Mutex      { return &f.mu }

// BeanAspectInstanceFactory fetches the aspect from the container on every
// call. The container's own scope decides whether that is the same instance.
type BeanAspectInstanceFactory struct {
	factory  bean.Factory
	name     string
	metadata *AspectMetadata
	mu       *sync.Mutex
}

// NewBeanAspectInstanceFactory builds a factory for the named bean. When t is
// nil the bean's declared type is used.
func NewBeanAspectInstanceFactory(
	factory bean.Factory, name string, t reflect.Type, parser ExpressionParser,
) (*BeanAspectInstanceFactory, error) {
	if t == nil {
		declared, ok := factory.Type(name)
		if !ok {
			return nil, errConfig(name, "cannot determine type of aspect bean")
		}
		t = declared
	}
	md, err := NewAspectMetadata(t, name, parser)
	if err != nil {
		return nil, err
	}

	f := &BeanAspectInstanceFactory{factory: factory, name: name, metadata: md}
	if !factory.IsSingleton(name) {
		f.mu = &sync.Mutex{}
	}
	return f, nil
}

func (f *BeanAspectInstanceFactory) AspectInstance(ctx context.Context) (any, error) {
	return f.factory.Bean(ctx, f.name)
}

func (f *BeanAspectInstanceFactory) Order() int {
	return aspectOrder(f.metadata.AspectType)
}

func (f *BeanAspectInstanceFactory) AspectMetadata() *AspectMetadata { return f.metadata }
func (f *BeanAspectInstanceFactory) CreationMutex() *sync.Mutex      { return f.mu }
func (f *BeanAspectInstanceFactory) BeanName() string                { return f.name }

func (f *BeanAspectInstanceFactory) String() string {
	return fmt.Sprintf("BeanAspectInstanceFactory: bean name %q", f.name)
}

// PrototypeAspectInstanceFactory asks the container for a new aspect instance
// on every call. It refuses singleton-scoped beans.
type PrototypeAspectInstanceFactory struct {
	*BeanAspectInstanceFactory
}

func NewPrototypeAspectInstanceFactory(
	factory bean.Factory, name string, parser ExpressionParser,
) (*PrototypeAspectInstanceFactory, error) {
	if factory.IsSingleton(name) {
		return nil, errScopeMismatch(name, "cannot use a prototype aspect instance factory for a singleton-scoped bean")
	}
	inner, err := NewBeanAspectInstanceFactory(factory, name, nil, parser)
	if err != nil {
		return nil, err
	}
	return &PrototypeAspectInstanceFactory{BeanAspectInstanceFactory: inner}, nil
}

type instanceSlot struct {
	instance any
}

// LazySingletonAspectInstanceFactory materializes the aspect from the wrapped
// factory at most once. With a creation mutex the slot is double-checked
// under the lock; without one the wrapped factory is trusted to return the
// same instance.
type LazySingletonAspectInstanceFactory struct {
	inner MetadataAwareAspectInstanceFactory
	slot  atomic.Pointer[instanceSlot]
}

func NewLazySingletonAspectInstanceFactory(
	inner MetadataAwareAspectInstanceFactory,
) *LazySingletonAspectInstanceFactory {
	return &LazySingletonAspectInstanceFactory{inner: inner}
}

func (f *LazySingletonAspectInstanceFactory) AspectInstance(ctx context.Context) (any, error) {
	if s := f.slot.Load(); s != nil {
		return s.instance, nil
	}

	mu := f.inner.CreationMutex()
	if mu == nil {
		instance, err := f.inner.AspectInstance(ctx)
		if err != nil {
			return nil, err
		}
		f.slot.Store(&instanceSlot{instance: instance})
		return instance, nil
	}

	mu.Lock()
	defer mu.Unlock()

	if s := f.slot.Load(); s != nil {
		return s.instance, nil
	}
	instance, err := f.inner.AspectInstance(ctx)
	if err != nil {
		return nil, err
	}
	f.slot.Store(&instanceSlot{instance: instance})
	return instance, nil
}

// IsMaterialized reports whether the aspect instance exists.
func (f *LazySingletonAspectInstanceFactory) IsMaterialized() bool {
	return f.slot.Load() != nil
}

func (f *LazySingletonAspectInstanceFactory) Order() int                      { return f.inner.Order() }
func (f *LazySingletonAspectInstanceFactory) AspectMetadata() *AspectMetadata { return f.inner.AspectMetadata() }
func (f *LazySingletonAspectInstanceFactory) CreationMutex() *sync.Mutex      { return f.inner.CreationMutex() }

func (f *LazySingletonAspectInstanceFactory) String() string {
	return fmt.Sprintf("LazySingletonAspectInstanceFactory decorating %v", f.inner)
}

// SimpleAspectInstanceFactory creates a new zero-valued aspect per call.
type SimpleAspectInstanceFactory struct {
	metadata *AspectMetadata
	mu       sync.Mutex
}

func NewSimpleAspectInstanceFactory(t reflect.Type, parser ExpressionParser) (*SimpleAspectInstanceFactory, error) {
	md, err := NewAspectMetadata(t, "", parser)
	if err != nil {
		return nil, err
	}
	return &SimpleAspectInstanceFactory{metadata: md}, nil
}

func (f *SimpleAspectInstanceFactory) AspectInstance(context.Context) (any, error) {
	return zeroAspect(f.metadata.AspectType).Interface(), nil
}

func (f *SimpleAspectInstanceFactory) Order() int                      { return aspectOrder(f.metadata.AspectType) }
func (f *SimpleAspectInstanceFactory) AspectMetadata() *AspectMetadata { return f.metadata }
func (f *SimpleAspectInstanceFactory) CreationMutex() *sync.Mutex      { return &f.mu }
