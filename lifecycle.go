package stitch

import (
	"context"
)

// Hook runs when the container starts or stops a bean.
type Hook func(ctx context.Context) error
