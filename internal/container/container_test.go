package container

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/stitch/bean"
	"github.com/danpasecinic/stitch/internal/scope"
)

var (
	stringType = reflect.TypeOf("")
	mapType    = reflect.TypeOf(map[string]string{})
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

func register(t *testing.T, c *Container, key string, typ reflect.Type, deps []string, provider ProviderFunc) {
	t.Helper()
	require.NoError(t, c.Register(&ServiceEntry{Key: key, Type: typ, Provider: provider, Dependencies: deps}))
}

func value(v any) ProviderFunc {
	return func(context.Context, Resolver) (any, error) { return v, nil }
}

func TestContainer_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	register(t, c, "config", mapType, nil, value(map[string]string{"port": "8080"}))

	instance, err := c.Resolve(context.Background(), "config")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"port": "8080"}, instance)
}

func TestContainer_DependencyResolution(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	require.NoError(t, c.Register(&ServiceEntry{Key: "config", Type: mapType, Provider: value(map[string]string{"db": "postgres"})}))
	register(t, c, "database", stringType, []string{"config"}, func(ctx context.Context, r Resolver) (any, error) {
		cfg, err := r.Resolve(ctx, "config")
		if err != nil {
			return nil, err
		}
		return "connected to " + cfg.(map[string]string)["db"], nil
	})

	instance, err := c.Resolve(context.Background(), "database")
	require.NoError(t, err)
	assert.Equal(t, "connected to postgres", instance)
}

func TestContainer_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	require.NoError(t, c.Register(&ServiceEntry{Key: "a", Type: stringType, Provider: value("x")}))

	err := c.Register(&ServiceEntry{Key: "a", Type: stringType, Provider: value("y")})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestContainer_CircularDeclaredDependency(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	register(t, c, "A", stringType, []string{"B"}, value("a"))

	err := c.Register(&ServiceEntry{Key: "B", Type: stringType, Provider: value("b"), Dependencies: []string{"A"}})
	require.ErrorIs(t, err, ErrCircular)
	assert.False(t, c.Has("B"), "the offending definition is rolled back")
	assert.Equal(t, []string{"A"}, c.Keys())
}

func TestContainer_CircularResolutionIsInCreation(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	register(t, c, "A", stringType, nil, func(ctx context.Context, r Resolver) (any, error) {
		return r.Resolve(ctx, "B")
	})
	register(t, c, "B", stringType, nil, func(ctx context.Context, r Resolver) (any, error) {
		return r.Resolve(ctx, "A")
	})

	_, err := c.Resolve(context.Background(), "A")
	require.Error(t, err)

	var ce *bean.CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "A", ce.Bean)

	ice, ok := bean.InCreationCause(err)
	require.True(t, ok)
	assert.Equal(t, "A", ice.Bean)
	assert.Equal(t, []string{"A", "B", "A"}, ice.Path)

	assert.False(t, c.IsCurrentlyInCreation("A"))
	assert.False(t, c.IsCurrentlyInCreation("B"))
}

func TestContainer_MissingDependency(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	register(t, c, "service", stringType, []string{"missing"}, value("s"))

	_, err := c.Resolve(context.Background(), "service")
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Validate(), ErrNotFound)

	_, err = c.Resolve(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContainer_ProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	c := New(&Config{})
	register(t, c, "failing", stringType, nil, func(context.Context, Resolver) (any, error) {
		return nil, boom
	})

	_, err := c.Resolve(context.Background(), "failing")
	require.ErrorIs(t, err, boom)

	var ce *bean.CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "failing", ce.Bean)
}

func TestContainer_Singleton(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := New(&Config{})
	register(t, c, "counter", reflect.TypeOf(&atomic.Int32{}), nil, func(context.Context, Resolver) (any, error) {
		calls.Add(1)
		return &atomic.Int32{}, nil
	})

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Resolve(context.Background(), "counter")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestContainer_Transient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := New(&Config{})
	require.NoError(t, c.Register(&ServiceEntry{
		Key:   "t",
		Type:  reflect.TypeOf(0),
		Scope: scope.Transient,
		Provider: func(context.Context, Resolver) (any, error) {
			return int(calls.Add(1)), nil
		},
	}))

	first, err := c.Resolve(context.Background(), "t")
	require.NoError(t, err)
	second, err := c.Resolve(context.Background(), "t")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.False(t, c.IsSingleton("t"))
}

func TestContainer_RequestScope(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := New(&Config{})
	require.NoError(t, c.Register(&ServiceEntry{
		Key:   "req",
		Type:  reflect.TypeOf(0),
		Scope: scope.Request,
		Provider: func(context.Context, Resolver) (any, error) {
			return int(calls.Add(1)), nil
		},
	}))

	_, err := c.Resolve(context.Background(), "req")
	require.ErrorIs(t, err, ErrNoRequestScope)

	ctx1 := WithRequestScope(context.Background())
	a, err := c.Resolve(ctx1, "req")
	require.NoError(t, err)
	b, err := c.Resolve(ctx1, "req")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := c.Resolve(WithRequestScope(context.Background()), "req")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestContainer_DecoratorsThenPostProcessors(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	register(t, c, "greeting", stringType, nil, value("hello"))

	c.AddDecorator("greeting", func(_ context.Context, _ Resolver, instance any) (any, error) {
		return instance.(string) + " world", nil
	})
	c.AddDecorator("greeting", func(_ context.Context, _ Resolver, instance any) (any, error) {
		return instance.(string) + "!", nil
	})

	var seen []string
	c.AddPostProcessor(bean.PostProcessorFunc(func(ctx context.Context, instance any, name string) (any, error) {
		seen = append(seen, name)
		assert.True(t, c.IsCurrentlyInCreation(name))
		assert.Equal(t, []string{name}, Path(ctx))
		return "<" + instance.(string) + ">", nil
	}))

	instance, err := c.Resolve(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Equal(t, "<hello world!>", instance)
	assert.Equal(t, []string{"greeting"}, seen)
	assert.False(t, c.IsCurrentlyInCreation("greeting"))
}

func TestContainer_PostProcessorError(t *testing.T) {
	t.Parallel()

	denied := errors.New("denied")
	c := New(&Config{})
	register(t, c, "svc", stringType, nil, value("svc"))
	c.AddPostProcessor(bean.PostProcessorFunc(func(context.Context, any, string) (any, error) {
		return nil, denied
	}))

	_, err := c.Resolve(context.Background(), "svc")
	require.ErrorIs(t, err, denied)
	_, instantiated := c.Instance("svc")
	assert.False(t, instantiated)
}

func TestContainer_PostProcessorsSeeEveryStartedBean(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	c := New(&Config{})
	c.AddPostProcessor(bean.PostProcessorFunc(func(_ context.Context, instance any, name string) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, name)
		return instance, nil
	}))
	require.NoError(t, c.Register(&ServiceEntry{Key: "config", Type: stringType, Provider: value("cfg")}))
	register(t, c, "server", stringType, []string{"config"}, value("srv"))

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	assert.ElementsMatch(t, []string{"config", "server"}, seen)
}

func TestContainer_PostProcessorSeesOtherBeanInCreation(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	register(t, c, "service", stringType, nil, value("service"))
	register(t, c, "advisor", errorType, nil, func(ctx context.Context, r Resolver) (any, error) {
		if _, err := r.Resolve(ctx, "service"); err != nil {
			return nil, err
		}
		return errors.New("advisor"), nil
	})

	var lookupErr error
	c.AddPostProcessor(bean.PostProcessorFunc(func(ctx context.Context, instance any, name string) (any, error) {
		if name == "service" {
			_, lookupErr = c.Bean(ctx, "advisor")
		}
		return instance, nil
	}))

	_, err := c.Resolve(context.Background(), "service")
	require.NoError(t, err)

	require.Error(t, lookupErr)
	var ce *bean.CreationError
	require.ErrorAs(t, lookupErr, &ce)
	assert.Equal(t, "advisor", ce.Bean)
	ice, ok := bean.InCreationCause(lookupErr)
	require.True(t, ok)
	assert.Equal(t, "service", ice.Bean)
}

func TestContainer_BeanFactory(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	require.NoError(t, c.Register(&ServiceEntry{Key: "b", Type: stringType, Provider: value("b")}))
	require.NoError(t, c.Register(&ServiceEntry{Key: "err", Type: errorType, Provider: value(errors.New("e"))}))
	require.NoError(t, c.Register(&ServiceEntry{Key: "a", Type: stringType, Provider: value("a")}))
	require.NoError(t, c.Register(&ServiceEntry{Key: "t", Type: stringType, Scope: scope.Transient, Provider: value("t")}))

	assert.Equal(t, []string{"b", "a", "t"}, c.BeanNamesForType(stringType))
	assert.Equal(t, []string{"err"}, c.BeanNamesForType(errorType))
	assert.Equal(t, []string{"b", "err", "a", "t"}, c.BeanNamesForType(nil))
	assert.Equal(t, []string{"b", "err", "a", "t"}, c.BeanNamesForType(bean.AnyType()))

	typ, ok := c.Type("err")
	require.True(t, ok)
	assert.Equal(t, errorType, typ)
	_, ok = c.Type("missing")
	assert.False(t, ok)

	assert.True(t, c.IsSingleton("a"))
	assert.False(t, c.IsSingleton("t"))
	assert.False(t, c.IsSingleton("missing"))

	instance, err := c.Bean(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", instance)
	assert.Equal(t, 4, c.Size())
}

func TestContainer_ResolveObserver(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var observed []string
	c := New(&Config{OnResolve: []Observer{func(key string, _ time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			observed = append(observed, key+":error")
			return
		}
		observed = append(observed, key)
	}}})
	require.NoError(t, c.Register(&ServiceEntry{Key: "config", Type: stringType, Provider: value("cfg")}))
	register(t, c, "server", stringType, []string{"config"}, value("srv"))

	_, err := c.Resolve(context.Background(), "server")
	require.NoError(t, err)
	_, err = c.Resolve(context.Background(), "missing")
	require.Error(t, err)

	assert.Equal(t, []string{"config", "server", "missing:error"}, observed)
}

func TestContainer_Validate(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	require.NoError(t, c.Register(&ServiceEntry{Key: "a", Type: stringType, Provider: value("a")}))
	register(t, c, "b", stringType, []string{"a"}, value("b"))

	assert.NoError(t, c.Validate())
	assert.Equal(t, []string{"a"}, c.Graph().Dependencies("b"))
}

func TestContainer_ContextCarriesPath(t *testing.T) {
	t.Parallel()

	c := New(&Config{})
	var inner []string
	register(t, c, "inner", stringType, nil, func(ctx context.Context, _ Resolver) (any, error) {
		inner = Path(ctx)
		return "inner", nil
	})
	register(t, c, "outer", stringType, []string{"inner"}, value("outer"))

	_, err := c.Resolve(context.Background(), "outer")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, inner)
	assert.Empty(t, Path(context.Background()))
}
