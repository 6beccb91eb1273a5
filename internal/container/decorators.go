package container

import (
	"context"
	"fmt"
	"slices"
)

// AddDecorator appends a decorator for key. Decorators run in the order
// they were added, before post-processors.
func (c *Container) AddDecorator(key string, decorator DecoratorFunc) {
	c.decoratorsMu.Lock()
	defer c.decoratorsMu.Unlock()

	c.decorators[key] = append(c.decorators[key], decorator)
}

func (c *Container) applyDecorators(ctx context.Context, key string, instance any) (any, error) {
	c.decoratorsMu.RLock()
	decorators := slices.Clone(c.decorators[key])
	c.decoratorsMu.RUnlock()

	var err error
	for i, decorator := range decorators {
		instance, err = decorator(ctx, c, instance)
		if err != nil {
			return nil, fmt.Errorf("decorator %d failed for %s: %w", i, key, err)
		}
	}

	return instance, nil
}
