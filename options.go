package stitch

import (
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/danpasecinic/stitch/aop"
	"github.com/danpasecinic/stitch/config"
	"github.com/danpasecinic/stitch/logging"
)

type Option func(*containerConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithZapLogger logs through z. Level filtering is left to z's core.
func WithZapLogger(z *zap.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logging.NewSlog("debug", z)
	}
}

// WithParallel starts and stops independent beans concurrently.
func WithParallel() Option {
	return func(cfg *containerConfig) {
		cfg.parallel = true
	}
}

// WithShutdownTimeout bounds Stop and the shutdown phase of Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(cfg *containerConfig) {
		cfg.shutdownTimeout = d
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *containerConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithProvideObserver(hook ProvideHook) Option {
	return func(cfg *containerConfig) {
		cfg.onProvide = append(cfg.onProvide, hook)
	}
}

func WithStartObserver(hook StartHook) Option {
	return func(cfg *containerConfig) {
		cfg.onStart = append(cfg.onStart, hook)
	}
}

func WithStopObserver(hook StopHook) Option {
	return func(cfg *containerConfig) {
		cfg.onStop = append(cfg.onStop, hook)
	}
}

// WithAutoProxy installs the auto-proxy creator: every bean created after
// that is matched against the container's advisors and aspects and wrapped
// in a proxy when any apply.
func WithAutoProxy(opts ...aop.AutoProxyOption) Option {
	return func(cfg *containerConfig) {
		cfg.autoProxy = true
		cfg.autoProxyOpts = append(cfg.autoProxyOpts, opts...)
	}
}

// WithConfig applies loaded settings. A logger built from cfg.Log replaces
// the current one unless the build fails, in which case New reports the
// error through Err.
func WithConfig(cfg *config.Config) Option {
	return func(c *containerConfig) {
		if cfg == nil {
			return
		}

		logger, _, err := logging.New(cfg.Log)
		if err != nil {
			c.errs = append(c.errs, errInvalidConfig("invalid log configuration", err))
		} else {
			c.logger = logger
		}

		c.parallel = cfg.Container.Parallel
		if cfg.Container.ShutdownTimeout > 0 {
			c.shutdownTimeout = cfg.Container.ShutdownTimeout
		}

		if cfg.AOP.Disabled {
			c.autoProxy = false
			c.autoProxyOpts = nil
			return
		}
		c.autoProxy = true
		c.autoProxyOpts = append(
			c.autoProxyOpts,
			aop.WithIncludePatterns(cfg.AOP.Include...),
			aop.WithProxyExposure(cfg.AOP.ExposeProxy),
			aop.WithFrozenProxies(cfg.AOP.Frozen),
		)
	}
}
