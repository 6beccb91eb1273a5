package stitch

import (
	"github.com/danpasecinic/stitch/aop"
)

// Step is one registration a module performs.
type Step func(c *Container) error

// Module groups registrations so that a feature, for example a set of
// aspects with their stubs, can be installed in one call.
type Module struct {
	name       string
	steps      []Step
	submodules []*Module
}

func NewModule(name string, steps ...Step) *Module {
	return &Module{name: name, steps: steps}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Add(steps ...Step) *Module {
	m.steps = append(m.steps, steps...)
	return m
}

// Include installs submodule before m's own steps.
func (m *Module) Include(submodules ...*Module) *Module {
	m.submodules = append(m.submodules, submodules...)
	return m
}

func (m *Module) apply(c *Container) error {
	for _, sub := range m.submodules {
		if err := sub.apply(c); err != nil {
			return err
		}
	}
	for _, step := range m.steps {
		if err := step(c); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
	}
	return nil
}

// Apply installs modules in order and stops at the first failure.
func (c *Container) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(c); err != nil {
			return err
		}
	}
	return nil
}

func errModuleApplyFailed(moduleName string, cause error) error {
	return newError(ErrCodeModuleApplyFailed, "failed to apply module "+moduleName, cause)
}

func ProvideStep[T any](provider Provider[T], opts ...ProviderOption) Step {
	return func(c *Container) error {
		return Provide(c, provider, opts...)
	}
}

func ValueStep[T any](value T, opts ...ProviderOption) Step {
	return func(c *Container) error {
		return ProvideValue(c, value, opts...)
	}
}

func BindStep[I, T any](opts ...ProviderOption) Step {
	return func(c *Container) error {
		return Bind[I, T](c, opts...)
	}
}

func DecorateStep[T any](decorator Decorator[T]) Step {
	return func(c *Container) error {
		Decorate(c, decorator)
		return nil
	}
}

func AspectStep[T aop.Aspect](provider Provider[T], opts ...ProviderOption) Step {
	return func(c *Container) error {
		return ProvideAspect(c, provider, opts...)
	}
}

func AdvisorStep(name string, advisor aop.Advisor) Step {
	return func(c *Container) error {
		return ProvideAdvisor(c, name, advisor)
	}
}

func StubStep[T any](build func(p *aop.Proxy) T) Step {
	return func(c *Container) error {
		RegisterStub(c, build)
		return nil
	}
}
