package aop

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/danpasecinic/stitch/bean"
)

var advisorType = reflect.TypeOf((*Advisor)(nil)).Elem()

// AdvisorRetrieval collects the container's beans that are advisors.
type AdvisorRetrieval struct {
	factory bean.Factory
	logger  *slog.Logger

	// IsEligible filters advisor bean names. Nil accepts all.
	IsEligible func(name string) bool

	mu     sync.Mutex
	names  []string
	cached bool
}

func NewAdvisorRetrieval(factory bean.Factory, logger *slog.Logger) *AdvisorRetrieval {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisorRetrieval{factory: factory, logger: logger}
}

// advisorNames returns the advisor bean names, scanning the container once.
func (r *AdvisorRetrieval) advisorNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cached {
		r.names = r.factory.BeanNamesForType(advisorType)
		r.cached = true
	}
	return r.names
}

// FindAdvisorBeans returns the eligible advisor beans in registration order.
// Beans still being created are skipped. A creation failure caused by another
// bean being in creation is treated as "not available yet"; all other
// failures are returned.
func (r *AdvisorRetrieval) FindAdvisorBeans(ctx context.Context) ([]Advisor, error) {
	names := r.advisorNames()
	if len(names) == 0 {
		return nil, nil
	}

	advisors := make([]Advisor, 0, len(names))
	for _, name := range names {
		if r.IsEligible != nil && !r.IsEligible(name) {
			continue
		}
		if r.factory.IsCurrentlyInCreation(name) {
			r.logger.Debug("skipping advisor currently in creation", slog.String("bean", name))
			continue
		}

		instance, err := r.factory.Bean(ctx, name)
		if err != nil {
			if r.inCreationElsewhere(name, err) {
				continue
			}
			return nil, err
		}

		advisor, ok := instance.(Advisor)
		if !ok {
			return nil, errConfig(name, "bean of type %T is not an advisor", instance)
		}
		advisors = append(advisors, advisor)
	}
	return advisors, nil
}

func (r *AdvisorRetrieval) inCreationElsewhere(name string, err error) bool {
	var ce *bean.CreationError
	if !errors.As(err, &ce) {
		return false
	}
	ice, ok := bean.InCreationCause(err)
	if !ok || ice.Bean == name || !r.factory.IsCurrentlyInCreation(ice.Bean) {
		return false
	}
	r.logger.Debug("skipping advisor depending on a bean in creation",
		slog.String("bean", name),
		slog.String("inCreation", ice.Bean),
		slog.String("error", err.Error()),
	)
	return true
}
