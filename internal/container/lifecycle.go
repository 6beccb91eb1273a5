package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateNew && c.state != StateStopped {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateStarting
	c.mu.Unlock()

	var err error
	if c.parallel {
		err = c.startParallel(ctx)
	} else {
		err = c.startSequential(ctx)
	}

	c.mu.Lock()
	if err != nil {
		c.state = StateStopped
	} else {
		c.state = StateRunning
	}
	c.mu.Unlock()

	return err
}

func (c *Container) startSequential(ctx context.Context) error {
	order, err := c.graph.StartupOrder()
	if err != nil {
		return fmt.Errorf("failed to determine startup order: %w", err)
	}

	for _, key := range order {
		if err := c.startService(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

func (c *Container) startParallel(ctx context.Context) error {
	groups, err := c.graph.Levels()
	if err != nil {
		return fmt.Errorf("failed to determine startup groups: %w", err)
	}

	for _, group := range groups {
		if err := c.startGroup(ctx, group.Nodes); err != nil {
			return err
		}
	}

	return nil
}

func (c *Container) startGroup(ctx context.Context, keys []string) error {
	if len(keys) == 1 {
		return c.startService(ctx, keys[0])
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			if err := c.startService(ctx, k); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(key)
	}
	wg.Wait()

	return errs
}

func (c *Container) startService(ctx context.Context, key string) error {
	entry, exists := c.registry.Get(key)
	if !exists || entry.Lazy {
		return nil
	}

	if _, err := c.Resolve(ctx, key); err != nil {
		c.callObservers(c.onStart, key, 0, err)
		return fmt.Errorf("failed to resolve %s during startup: %w", key, err)
	}

	return c.runStartHooks(ctx, key)
}

// runStartHooks runs key's OnStart hooks once.
func (c *Container) runStartHooks(ctx context.Context, key string) error {
	if !c.registry.MarkStarted(key) {
		return nil
	}

	start := time.Now()
	onStart, _ := c.registry.Hooks(key)

	var startErr error
	for _, hook := range onStart {
		c.logger.Debug("running OnStart hook", "service", key)
		if err := hook(ctx); err != nil {
			startErr = fmt.Errorf("OnStart hook failed for %s: %w", key, err)
			break
		}
	}

	c.callObservers(c.onStart, key, time.Since(start), startErr)
	return startErr
}

// Stop runs OnStop hooks of started beans in reverse startup order and
// returns every failure combined.
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	c.mu.Unlock()

	var err error
	if c.parallel {
		err = c.stopParallel(ctx)
	} else {
		err = c.stopSequential(ctx)
	}

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()

	return err
}

func (c *Container) stopSequential(ctx context.Context) error {
	order, err := c.graph.ShutdownOrder()
	if err != nil {
		return fmt.Errorf("failed to determine shutdown order: %w", err)
	}

	var errs error
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, fmt.Errorf("shutdown timeout exceeded: %w", err))
		}
		errs = multierr.Append(errs, c.stopService(ctx, key))
	}
	return errs
}

func (c *Container) stopParallel(ctx context.Context) error {
	groups, err := c.graph.ReverseLevels()
	if err != nil {
		return fmt.Errorf("failed to determine shutdown groups: %w", err)
	}

	var errs error
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, fmt.Errorf("shutdown timeout exceeded: %w", err))
		}
		errs = multierr.Append(errs, c.stopGroup(ctx, group.Nodes))
	}
	return errs
}

func (c *Container) stopGroup(ctx context.Context, keys []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			if err := c.stopService(ctx, k); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(key)
	}
	wg.Wait()
	return errs
}

// stopService runs key's OnStop hooks in reverse order when its OnStart
// hooks ran.
func (c *Container) stopService(ctx context.Context, key string) error {
	if !c.registry.MarkStopped(key) {
		return nil
	}

	start := time.Now()
	_, onStop := c.registry.Hooks(key)

	var errs error
	for i := len(onStop) - 1; i >= 0; i-- {
		c.logger.Debug("running OnStop hook", "service", key)
		if err := onStop[i](ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("OnStop hook failed for %s: %w", key, err))
		}
	}

	c.callObservers(c.onStop, key, time.Since(start), errs)
	return errs
}
