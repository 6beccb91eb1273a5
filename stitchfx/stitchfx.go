// Package stitchfx runs a stitch container inside an fx application. The
// container starts and stops with the fx lifecycle, and its beans can be
// exposed to fx constructors.
package stitchfx

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/danpasecinic/stitch"
)

// Module supplies c to the fx graph and ties its Start and Stop to the fx
// lifecycle.
func Module(c *stitch.Container) fx.Option {
	return fx.Module(
		"stitch",
		fx.Supply(c),
		fx.Invoke(bindLifecycle),
	)
}

func bindLifecycle(lc fx.Lifecycle, c *stitch.Container) {
	lc.Append(fx.Hook{
		OnStart: c.Start,
		OnStop:  c.Stop,
	})
}

// Provide exposes the stitch bean of T as an fx constructor result. The bean
// is resolved when fx first needs it, so proxies and decorators apply.
func Provide[T any](c *stitch.Container) fx.Option {
	return fx.Provide(func() (T, error) {
		return stitch.Invoke[T](c)
	})
}

// ProvideNamed exposes the named stitch bean as an fx value tagged with the
// same name.
func ProvideNamed[T any](c *stitch.Container, name string) fx.Option {
	return fx.Provide(fx.Annotate(
		func() (T, error) {
			return stitch.InvokeNamed[T](c, name)
		},
		fx.ResultTags(fmt.Sprintf(`name:"%s"`, name)),
	))
}

// Export registers the fx value of T as a stitch bean, so stitch providers
// can depend on values built by fx.
func Export[T any](c *stitch.Container, opts ...stitch.ProviderOption) fx.Option {
	return fx.Invoke(func(v T) error {
		return stitch.ProvideValue(c, v, opts...)
	})
}

// WithZapLogger routes fx events to z.
func WithZapLogger(z *zap.Logger) fx.Option {
	return fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: z.Named("fx")}
	})
}
