package stitch

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/danpasecinic/stitch/aop"
	"github.com/danpasecinic/stitch/internal/container"
)

type Container struct {
	internal  *container.Container
	config    *containerConfig
	stubs     *aop.StubRegistry
	autoProxy *aop.AutoProxyCreator
	err       error
}

type containerConfig struct {
	logger          *slog.Logger
	parallel        bool
	shutdownTimeout time.Duration

	onResolve []ResolveHook
	onProvide []ProvideHook
	onStart   []StartHook
	onStop    []StopHook

	autoProxy     bool
	autoProxyOpts []aop.AutoProxyOption

	errs []error
}

// New creates a container. Configuration errors do not stop construction;
// they are reported by Err, Validate and Start.
func New(opts ...Option) *Container {
	cfg := &containerConfig{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	internal := container.New(
		&container.Config{
			Logger:    cfg.logger,
			Parallel:  cfg.parallel,
			OnResolve: observers(cfg.onResolve),
			OnStart:   observers(cfg.onStart),
			OnStop:    observers(cfg.onStop),
		},
	)

	c := &Container{
		internal: internal,
		config:   cfg,
		stubs:    aop.NewStubRegistry(),
		err:      multierr.Combine(cfg.errs...),
	}

	if cfg.autoProxy {
		opts := append([]aop.AutoProxyOption{aop.WithAutoProxyLogger(cfg.logger)}, cfg.autoProxyOpts...)
		creator, err := aop.NewAutoProxyCreator(internal, c.stubs, opts...)
		if err != nil {
			c.err = multierr.Append(c.err, errAOPConfig("invalid auto-proxy configuration", err))
		} else {
			c.autoProxy = creator
			internal.AddPostProcessor(creator)
		}
	}

	return c
}

func observers[H ~func(string, time.Duration, error)](hooks []H) []container.Observer {
	out := make([]container.Observer, len(hooks))
	for i, h := range hooks {
		out[i] = container.Observer(h)
	}
	return out
}

// Err returns the configuration errors collected by New.
func (c *Container) Err() error {
	return c.err
}

func (c *Container) Validate() error {
	if c.err != nil {
		return errValidationFailed(c.err)
	}
	if err := c.internal.Validate(); err != nil {
		return errValidationFailed(err)
	}
	return nil
}

func (c *Container) Size() int {
	return c.internal.Size()
}

func (c *Container) Keys() []string {
	return c.internal.Keys()
}

func (c *Container) Start(ctx context.Context) error {
	if c.err != nil {
		return errStartupFailed(c.err)
	}
	if err := c.internal.Start(ctx); err != nil {
		return errStartupFailed(err)
	}
	return nil
}

// Stop runs the OnStop hooks. With a shutdown timeout configured, ctx is
// bounded by it.
func (c *Container) Stop(ctx context.Context) error {
	if c.config.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.shutdownTimeout)
		defer cancel()
	}

	if err := c.internal.Stop(ctx); err != nil {
		return errShutdownFailed(err)
	}
	return nil
}

func (c *Container) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)

	return c.Stop(context.Background())
}
