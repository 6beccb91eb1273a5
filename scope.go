package stitch

import (
	"context"

	"github.com/danpasecinic/stitch/internal/container"
	"github.com/danpasecinic/stitch/internal/scope"
)

type Scope = scope.Scope

const (
	Singleton = scope.Singleton
	Transient = scope.Transient
	Request   = scope.Request
)

// WithRequestScope returns a context holding a fresh request scope. Beans
// with the Request scope are shared within it.
func WithRequestScope(ctx context.Context) context.Context {
	return container.WithRequestScope(ctx)
}
