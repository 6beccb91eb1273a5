package stitch

import (
	"context"
	"reflect"

	"github.com/danpasecinic/stitch/internal/container"
	ireflect "github.com/danpasecinic/stitch/internal/reflect"
	"github.com/danpasecinic/stitch/internal/scope"
)

type Provider[T any] func(ctx context.Context, r Resolver) (T, error)

type ProviderOption func(*providerConfig)

type providerConfig struct {
	name         string
	dependencies []string
	onStart      []container.Hook
	onStop       []container.Hook
	scope        scope.Scope
	lazy         bool
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *providerConfig) key(base string) string {
	if cfg.name != "" {
		return base + "#" + cfg.name
	}
	return base
}

// Provide registers a provider for T. The bean is named after T, or
// "T#name" with WithName. Providers must resolve their dependencies through
// the ctx they receive so that cycles are reported instead of blocking.
func Provide[T any](c *Container, provider Provider[T], opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	key := cfg.key(ireflect.TypeKey[T]())

	wrappedProvider := func(ctx context.Context, _ container.Resolver) (any, error) {
		instance, err := provider(ctx, &resolverAdapter{container: c})
		if err != nil {
			return nil, errProviderFailed(key, err)
		}
		return instance, nil
	}

	return c.register(key, ireflect.TypeOf[T](), wrappedProvider, cfg)
}

// ProvideValue registers an already built T. Decorators and post-processors
// apply to it on first resolve.
func ProvideValue[T any](c *Container, value T, opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	key := cfg.key(ireflect.TypeKey[T]())

	provider := func(context.Context, container.Resolver) (any, error) {
		return value, nil
	}

	cfg.scope = scope.Singleton
	return c.register(key, ireflect.TypeOf[T](), provider, cfg)
}

func ProvideNamed[T any](c *Container, name string, provider Provider[T], opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Provide(c, provider, opts...)
}

func ProvideNamedValue[T any](c *Container, name string, value T, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return ProvideValue(c, value, opts...)
}

func (c *Container) register(key string, t reflect.Type, provider container.ProviderFunc, cfg *providerConfig) error {
	entry := &container.ServiceEntry{
		Key:          key,
		Type:         t,
		Provider:     provider,
		Dependencies: cfg.dependencies,
		Scope:        cfg.scope,
		Lazy:         cfg.lazy,
		OnStart:      cfg.onStart,
		OnStop:       cfg.onStop,
	}

	if err := c.internal.Register(entry); err != nil {
		return errRegister(key, err)
	}

	c.notifyProvide(key)
	return nil
}

func WithName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.name = name
	}
}

// WithDependencies declares bean names resolved before the provider runs.
// They also order startup and shutdown.
func WithDependencies(deps ...string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.dependencies = deps
	}
}

func WithOnStart(hook Hook) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.onStart = append(cfg.onStart, container.Hook(hook))
	}
}

func WithOnStop(hook Hook) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.onStop = append(cfg.onStop, container.Hook(hook))
	}
}

func WithScope(s Scope) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.scope = s
	}
}

// WithLazy defers creation, and the OnStart hooks, to the first resolve.
func WithLazy() ProviderOption {
	return func(cfg *providerConfig) {
		cfg.lazy = true
	}
}
