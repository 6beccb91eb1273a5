package container

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/danpasecinic/stitch/bean"
	"github.com/danpasecinic/stitch/internal/scope"
)

type pathKey struct{}

// Path returns the beans being created on the resolution path carried by
// ctx, outermost first.
func Path(ctx context.Context) []string {
	path, _ := ctx.Value(pathKey{}).([]string)
	return path
}

func withPath(ctx context.Context, key string) context.Context {
	path := Path(ctx)
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return context.WithValue(ctx, pathKey{}, append(next, key))
}

func (c *Container) Resolve(ctx context.Context, key string) (any, error) {
	start := time.Now()
	instance, err := c.resolve(ctx, key)
	c.callObservers(c.onResolve, key, time.Since(start), err)
	return instance, err
}

func (c *Container) resolve(ctx context.Context, key string) (any, error) {
	if path := Path(ctx); slices.Contains(path, key) {
		return nil, &bean.CreationError{
			Bean:  key,
			Cause: &bean.InCreationError{Bean: key, Path: append(slices.Clone(path), key)},
		}
	}

	entry, exists := c.registry.Get(key)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	switch entry.Scope {
	case scope.Transient:
		return c.create(ctx, entry)
	case scope.Request:
		return c.resolveRequest(ctx, entry)
	default:
		return c.resolveSingleton(ctx, entry)
	}
}

func (c *Container) resolveSingleton(ctx context.Context, entry *ServiceEntry) (any, error) {
	if instance, ok := c.registry.Instance(entry.Key); ok {
		return instance, nil
	}

	entry.creation.Lock()
	defer entry.creation.Unlock()

	if instance, ok := c.registry.Instance(entry.Key); ok {
		return instance, nil
	}

	instance, err := c.create(ctx, entry)
	if err != nil {
		return nil, err
	}
	c.registry.SetInstance(entry.Key, instance)

	if entry.Lazy && c.State() == StateRunning {
		if err := c.runStartHooks(ctx, entry.Key); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// create builds a fresh instance: dependencies, provider, decorators, then
// post-processors. No container lock is held while user code runs.
func (c *Container) create(ctx context.Context, entry *ServiceEntry) (any, error) {
	key := entry.Key
	c.beginCreation(key)
	defer c.endCreation(key)

	ctx = withPath(ctx, key)

	for _, dep := range entry.Dependencies {
		if _, err := c.Resolve(ctx, dep); err != nil {
			return nil, &bean.CreationError{Bean: key, Cause: fmt.Errorf("dependency %s: %w", dep, err)}
		}
	}

	instance, err := entry.Provider(ctx, c)
	if err != nil {
		return nil, &bean.CreationError{Bean: key, Cause: err}
	}

	instance, err = c.applyDecorators(ctx, key, instance)
	if err != nil {
		return nil, &bean.CreationError{Bean: key, Cause: err}
	}

	instance, err = c.applyPostProcessors(ctx, key, instance)
	if err != nil {
		return nil, &bean.CreationError{Bean: key, Cause: err}
	}

	c.logger.Debug("created bean", "service", key, "scope", entry.Scope.String())
	return instance, nil
}

func (c *Container) applyPostProcessors(ctx context.Context, key string, instance any) (any, error) {
	c.postProcessorsMu.RLock()
	postProcessors := slices.Clone(c.postProcessors)
	c.postProcessorsMu.RUnlock()

	var err error
	for _, pp := range postProcessors {
		instance, err = pp.PostProcessAfterInitialization(ctx, instance, key)
		if err != nil {
			return nil, fmt.Errorf("post-processing %s: %w", key, err)
		}
	}
	return instance, nil
}

func (c *Container) callObservers(observers []Observer, key string, duration time.Duration, err error) {
	for _, observe := range observers {
		observe(key, duration, err)
	}
}

type requestScopeKey struct{}

// RequestScope holds the request-scoped instances of one request.
type RequestScope struct {
	mu        sync.Mutex
	instances map[string]any
}

func NewRequestScope() *RequestScope {
	return &RequestScope{
		instances: make(map[string]any),
	}
}

func (rs *RequestScope) Get(key string) (any, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	instance, ok := rs.instances[key]
	return instance, ok
}

// Set stores instance unless another one won the race, and returns the
// stored instance.
func (rs *RequestScope) Set(key string, instance any) any {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if existing, ok := rs.instances[key]; ok {
		return existing
	}
	rs.instances[key] = instance
	return instance
}

func WithRequestScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestScopeKey{}, NewRequestScope())
}

func requestScope(ctx context.Context) *RequestScope {
	if rs, ok := ctx.Value(requestScopeKey{}).(*RequestScope); ok {
		return rs
	}
	return nil
}

func (c *Container) resolveRequest(ctx context.Context, entry *ServiceEntry) (any, error) {
	rs := requestScope(ctx)
	if rs == nil {
		return nil, fmt.Errorf("%w for %s; use WithRequestScope(ctx)", ErrNoRequestScope, entry.Key)
	}

	if instance, ok := rs.Get(entry.Key); ok {
		return instance, nil
	}

	instance, err := c.create(ctx, entry)
	if err != nil {
		return nil, err
	}
	return rs.Set(entry.Key, instance), nil
}
