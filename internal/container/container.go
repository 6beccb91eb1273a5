package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/danpasecinic/stitch/bean"
	"github.com/danpasecinic/stitch/internal/graph"
	"github.com/danpasecinic/stitch/internal/scope"
)

var (
	ErrNotFound       = errors.New("service not found")
	ErrDuplicate      = errors.New("service already registered")
	ErrCircular       = errors.New("circular dependency detected")
	ErrAlreadyStarted = errors.New("container already started")
	ErrNoRequestScope = errors.New("request scope not found in context")
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

// Observer is notified after a resolve, start or stop of a bean.
type Observer func(key string, duration time.Duration, err error)

type Config struct {
	Logger    *slog.Logger
	Parallel  bool
	OnResolve []Observer
	OnStart   []Observer
	OnStop    []Observer
}

// Container holds bean definitions and their instances. It implements
// bean.Factory.
type Container struct {
	mu       sync.RWMutex
	registry *Registry
	graph    *graph.Graph
	logger   *slog.Logger
	state    State
	parallel bool

	decorators   map[string][]DecoratorFunc
	decoratorsMu sync.RWMutex

	postProcessors   []bean.PostProcessor
	postProcessorsMu sync.RWMutex

	creating   map[string]int
	creatingMu sync.Mutex

	onResolve []Observer
	onStart   []Observer
	onStop    []Observer
}

var _ bean.Factory = (*Container)(nil)

func New(cfg *Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Container{
		registry:   NewRegistry(),
		graph:      graph.New(),
		logger:     logger,
		parallel:   cfg.Parallel,
		decorators: make(map[string][]DecoratorFunc),
		creating:   make(map[string]int),
		onResolve:  cfg.OnResolve,
		onStart:    cfg.OnStart,
		onStop:     cfg.OnStop,
	}
}

// Register adds a definition. Declared dependencies must not close a cycle.
func (c *Container) Register(entry *ServiceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.Has(entry.Key) {
		return fmt.Errorf("%w: %s", ErrDuplicate, entry.Key)
	}

	c.registry.Register(entry)
	c.graph.AddNode(entry.Key, entry.Dependencies)

	if c.graph.HasCycle() {
		cyclePath := c.graph.CyclePath(entry.Key)
		c.registry.Remove(entry.Key)
		c.graph.RemoveNode(entry.Key)
		return fmt.Errorf("%w: %v", ErrCircular, cyclePath)
	}

	return nil
}

func (c *Container) AddPostProcessor(pp bean.PostProcessor) {
	c.postProcessorsMu.Lock()
	defer c.postProcessorsMu.Unlock()

	c.postProcessors = append(c.postProcessors, pp)
}

func (c *Container) Has(key string) bool {
	return c.registry.Has(key)
}

// Keys returns bean names in registration order.
func (c *Container) Keys() []string {
	return c.registry.Keys()
}

func (c *Container) Size() int {
	return c.registry.Size()
}

func (c *Container) Instance(key string) (any, bool) {
	return c.registry.Instance(key)
}

func (c *Container) Entry(key string) (*ServiceEntry, bool) {
	return c.registry.Get(key)
}

func (c *Container) BeanNamesForType(t reflect.Type) []string {
	return c.registry.KeysAssignableTo(t)
}

func (c *Container) Type(name string) (reflect.Type, bool) {
	entry, ok := c.registry.Get(name)
	if !ok || entry.Type == nil {
		return nil, false
	}
	return entry.Type, true
}

func (c *Container) IsSingleton(name string) bool {
	entry, ok := c.registry.Get(name)
	return ok && entry.Scope == scope.Singleton
}

func (c *Container) IsCurrentlyInCreation(name string) bool {
	c.creatingMu.Lock()
	defer c.creatingMu.Unlock()

	return c.creating[name] > 0
}

func (c *Container) Bean(ctx context.Context, name string) (any, error) {
	return c.Resolve(ctx, name)
}

func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if missing := c.graph.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing dependencies %v", ErrNotFound, missing)
	}

	if cycles := c.graph.Cycles(); len(cycles) > 0 {
		return fmt.Errorf("%w: %v", ErrCircular, cycles)
	}

	return nil
}

func (c *Container) Graph() *graph.Graph {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.graph.Clone()
}

func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Container) AddOnStart(key string, hook Hook) {
	c.registry.AddOnStart(key, hook)
}

func (c *Container) AddOnStop(key string, hook Hook) {
	c.registry.AddOnStop(key, hook)
}

func (c *Container) beginCreation(key string) {
	c.creatingMu.Lock()
	defer c.creatingMu.Unlock()
	c.creating[key]++
}

func (c *Container) endCreation(key string) {
	c.creatingMu.Lock()
	defer c.creatingMu.Unlock()

	if c.creating[key] <= 1 {
		delete(c.creating, key)
		return
	}
	c.creating[key]--
}
