package aop

import (
	"fmt"
	"reflect"
	"sync"
)

// DelegatePerTargetIntroductionInterceptor serves introduced interfaces from a
// delegate created once per target object.
type DelegatePerTargetIntroductionInterceptor struct {
	interfaces  []reflect.Type
	newDelegate func() (any, error)

	mu        sync.Mutex
	delegates map[any]any
}

// NewDelegatePerTargetIntroductionInterceptor introduces interfaces, each
// target getting its own delegate from newDelegate.
func NewDelegatePerTargetIntroductionInterceptor(
	newDelegate func() (any, error), interfaces ...reflect.Type,
) *DelegatePerTargetIntroductionInterceptor {
	return &DelegatePerTargetIntroductionInterceptor{
		interfaces:  interfaces,
		newDelegate: newDelegate,
		delegates:   make(map[any]any),
	}
}

func (d *DelegatePerTargetIntroductionInterceptor) Shapes() Shape {
	return ShapeInterceptor | ShapeIntroduction
}

func (d *DelegatePerTargetIntroductionInterceptor) ImplementsInterface(t reflect.Type) bool {
	for _, iface := range d.interfaces {
		if iface == t || iface.Implements(t) {
			return true
		}
	}
	return false
}

func (d *DelegatePerTargetIntroductionInterceptor) Invoke(inv MethodInvocation) ([]any, error) {
	if !d.introduces(inv.Method()) {
		return inv.Proceed()
	}
	delegate, err := d.delegateFor(inv.Target())
	if err != nil {
		return nil, err
	}
	return invokeReflective(delegate, inv.Method(), inv.Arguments())
}

func (d *DelegatePerTargetIntroductionInterceptor) introduces(m Method) bool {
	return m.DeclaringType != nil && m.DeclaringType.Kind() == reflect.Interface &&
		d.ImplementsInterface(m.DeclaringType)
}

func (d *DelegatePerTargetIntroductionInterceptor) delegateFor(target any) (any, error) {
	key := target
	if t := reflect.TypeOf(target); t != nil && !t.Comparable() {
		key = t
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if delegate, ok := d.delegates[key]; ok {
		return delegate, nil
	}
	delegate, err := d.newDelegate()
	if err != nil {
		return nil, fmt.Errorf("creating introduction delegate: %w", err)
	}
	d.delegates[key] = delegate
	return delegate, nil
}

// DeclareParentsAdvisor introduces one interface into every type matched by a
// type pattern that does not implement it already.
type DeclareParentsAdvisor struct {
	introduced  reflect.Type
	classFilter ClassFilter
	advice      *DelegatePerTargetIntroductionInterceptor
	order       int
}

func NewDeclareParentsAdvisor(
	introduced reflect.Type, typePattern ClassFilter, newDelegate func() (any, error), order int,
) *DeclareParentsAdvisor {
	exclusion := ClassFilterFunc(func(t reflect.Type) bool {
		return t != nil && !t.Implements(introduced)
	})
	return &DeclareParentsAdvisor{
		introduced:  introduced,
		classFilter: IntersectClassFilters(typePattern, exclusion),
		advice:      NewDelegatePerTargetIntroductionInterceptor(newDelegate, introduced),
		order:       order,
	}
}

func (a *DeclareParentsAdvisor) Advice() Advice             { return a.advice }
func (a *DeclareParentsAdvisor) ClassFilter() ClassFilter   { return a.classFilter }
func (a *DeclareParentsAdvisor) Interfaces() []reflect.Type { return []reflect.Type{a.introduced} }
func (a *DeclareParentsAdvisor) Order() int                 { return a.order }

func (a *DeclareParentsAdvisor) ValidateInterfaces() error {
	return validateIntroduced(a.advice, a.Interfaces())
}

func (a *DeclareParentsAdvisor) String() string {
	return fmt.Sprintf("DeclareParentsAdvisor: introducing %v", a.introduced)
}
