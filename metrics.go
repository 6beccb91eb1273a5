package stitch

import (
	"time"
)

type ResolveHook func(key string, duration time.Duration, err error)

// ProvideHook is called after a bean definition is registered.
type ProvideHook func(key string)

type StartHook func(key string, duration time.Duration, err error)

type StopHook func(key string, duration time.Duration, err error)

func (c *Container) notifyProvide(key string) {
	for _, hook := range c.config.onProvide {
		hook(key)
	}
}
