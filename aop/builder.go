package aop

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/stitch/bean"
)

// AspectAdvisorsBuilder mines the container for aspect beans and compiles
// them into advisors.
//
// The first call scans every bean and remembers which are aspects. Advisors
// of singleton aspects are cached by bean name. Other instantiation models
// cache only their instance factory and are recompiled on each call, so each
// caller gets advisors bound to fresh lazy aspect instances.
type AspectAdvisorsBuilder struct {
	factory        bean.Factory
	advisorFactory *AspectAdvisorFactory
	logger         *slog.Logger
	include        atomic.Pointer[[]*regexp.Regexp]

	mu            sync.Mutex
	aspectNames   []string
	scanned       bool
	advisorsCache map[string][]Advisor
	factoryCache  map[string]MetadataAwareAspectInstanceFactory
}

func NewAspectAdvisorsBuilder(
	factory bean.Factory, advisorFactory *AspectAdvisorFactory, logger *slog.Logger,
) *AspectAdvisorsBuilder {
	if advisorFactory == nil {
		advisorFactory = NewAspectAdvisorFactory(nil, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AspectAdvisorsBuilder{
		factory:        factory,
		advisorFactory: advisorFactory,
		logger:         logger,
		advisorsCache:  make(map[string][]Advisor),
		factoryCache:   make(map[string]MetadataAwareAspectInstanceFactory),
	}
}

// SetIncludePatterns restricts aspect beans to names matching at least one
// of the regular expressions. No patterns means all beans are eligible.
func (b *AspectAdvisorsBuilder) SetIncludePatterns(patterns ...string) error {
	include := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return errConfig(p, "invalid include pattern: %v", err)
		}
		include = append(include, re)
	}

	b.include.Store(&include)
	return nil
}

// IsEligibleBean reports whether name passes the include patterns. It reads
// one snapshot of the patterns and is safe to call while they are replaced.
func (b *AspectAdvisorsBuilder) IsEligibleBean(name string) bool {
	include := b.include.Load()
	if include == nil || len(*include) == 0 {
		return true
	}
	for _, re := range *include {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// BuildAspectAdvisors returns the advisors of every aspect bean. Aspect
// instances are never created by this call; lazy factories materialize them
// on first matching invocation.
func (b *AspectAdvisorsBuilder) BuildAspectAdvisors(ctx context.Context) ([]Advisor, error) {
	b.mu.Lock()
	if !b.scanned {
		advisors, err := b.scan()
		b.mu.Unlock()
		return advisors, err
	}
	names := b.aspectNames
	b.mu.Unlock()

	var advisors []Advisor
	for _, name := range names {
		b.mu.Lock()
		cached, ok := b.advisorsCache[name]
		factory := b.factoryCache[name]
		b.mu.Unlock()

		if ok {
			advisors = append(advisors, cached...)
			continue
		}
		compiled, err := b.advisorFactory.Advisors(factory)
		if err != nil {
			return nil, err
		}
		advisors = append(advisors, compiled...)
	}
	return advisors, nil
}

// scan runs with b.mu held. It only reads bean metadata from the container.
func (b *AspectAdvisorsBuilder) scan() ([]Advisor, error) {
	var (
		names    []string
		advisors []Advisor
	)

	for _, name := range b.factory.BeanNamesForType(nil) {
		if !b.IsEligibleBean(name) {
			continue
		}
		t, ok := b.factory.Type(name)
		if !ok || t == nil || !b.advisorFactory.IsAspect(t) {
			continue
		}

		beanFactory, err := NewBeanAspectInstanceFactory(b.factory, name, t, b.advisorFactory.Parser())
		if err != nil {
			return nil, err
		}
		md := beanFactory.AspectMetadata()
		singletonBean := b.factory.IsSingleton(name)

		if md.PerClause.Kind == SingletonKind {
			if !singletonBean {
				return nil, errScopeMismatch(name, "singleton aspect must be a singleton-scoped bean")
			}
			compiled, err := b.advisorFactory.Advisors(beanFactory)
			if err != nil {
				return nil, err
			}
			b.advisorsCache[name] = compiled
			advisors = append(advisors, compiled...)
		} else {
			if singletonBean {
				return nil, errScopeMismatch(
					name, "aspect with "+md.PerClause.Kind.String()+" instantiation must not be a singleton-scoped bean",
				)
			}
			prototype, err := NewPrototypeAspectInstanceFactory(b.factory, name, b.advisorFactory.Parser())
			if err != nil {
				return nil, err
			}
			compiled, err := b.advisorFactory.Advisors(prototype)
			if err != nil {
				return nil, err
			}
			b.factoryCache[name] = prototype
			advisors = append(advisors, compiled...)
		}

		names = append(names, name)
		b.logger.Debug("found aspect bean",
			slog.String("bean", name),
			slog.String("perClause", md.PerClause.Kind.String()),
		)
	}

	b.aspectNames = names
	b.scanned = true
	return advisors, nil
}

// AspectNames returns the aspect bean names found by the scan, or nil before
// the first BuildAspectAdvisors.
func (b *AspectAdvisorsBuilder) AspectNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.aspectNames...)
}
