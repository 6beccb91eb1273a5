package container

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/danpasecinic/stitch/internal/scope"
)

type ProviderFunc func(ctx context.Context, r Resolver) (any, error)

type DecoratorFunc func(ctx context.Context, r Resolver, instance any) (any, error)

type Hook func(ctx context.Context) error

type Resolver interface {
	Resolve(ctx context.Context, key string) (any, error)
	Has(key string) bool
}

// ServiceEntry is one bean definition.
type ServiceEntry struct {
	Key          string
	Type         reflect.Type
	Provider     ProviderFunc
	Dependencies []string
	Scope        scope.Scope
	Lazy         bool

	Instance     any
	Instantiated bool
	StartRan     bool
	OnStart      []Hook
	OnStop       []Hook

	// creation serializes creating this singleton.
	creation sync.Mutex
}

// Registry stores definitions in registration order.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*ServiceEntry
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]*ServiceEntry),
	}
}

func (r *Registry) Register(entry *ServiceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[entry.Key]; !exists {
		r.order = append(r.order, entry.Key)
	}
	r.services[entry.Key] = entry
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.services[key]
	return exists
}

func (r *Registry) Get(key string) (*ServiceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.services[key]
	return entry, exists
}

func (r *Registry) Instance(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.services[key]
	if !exists || !entry.Instantiated {
		return nil, false
	}
	return entry.Instance, true
}

func (r *Registry) SetInstance(key string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.services[key]; exists {
		entry.Instance = instance
		entry.Instantiated = true
	}
}

// MarkStarted records that key's OnStart hooks ran. It reports false when
// they already had.
func (r *Registry) MarkStarted(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.services[key]
	if !exists || entry.StartRan {
		return false
	}
	entry.StartRan = true
	return true
}

// MarkStopped clears the started flag of key. It reports whether the flag
// was set.
func (r *Registry) MarkStopped(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.services[key]
	if !exists || !entry.StartRan {
		return false
	}
	entry.StartRan = false
	return true
}

func (r *Registry) Hooks(key string) (onStart, onStop []Hook) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.services[key]
	if !exists {
		return nil, nil
	}
	return slices.Clone(entry.OnStart), slices.Clone(entry.OnStop)
}

func (r *Registry) AddOnStart(key string, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.services[key]; exists {
		entry.OnStart = append(entry.OnStart, hook)
	}
}

func (r *Registry) AddOnStop(key string, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.services[key]; exists {
		entry.OnStop = append(entry.OnStop, hook)
	}
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// KeysAssignableTo returns, in registration order, the keys whose declared
// type is assignable to t. A nil t matches every key.
func (r *Registry) KeysAssignableTo(t reflect.Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for _, key := range r.order {
		declared := r.services[key].Type
		if t == nil || (declared != nil && declared.AssignableTo(t)) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.services)
}

func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.services, key)
	r.order = slices.DeleteFunc(r.order, func(k string) bool { return k == key })
}
