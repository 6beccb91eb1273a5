package aop

import (
	"fmt"
	"math"
	"reflect"
)

const (
	HighestPrecedence = math.MinInt32
	LowestPrecedence  = math.MaxInt32
)

// Advisor holds one piece of advice and the filter deciding where it applies.
type Advisor interface {
	Advice() Advice
}

// PointcutAdvisor applies its advice to the methods its pointcut selects.
type PointcutAdvisor interface {
	Advisor
	Pointcut() Pointcut
}

// IntroductionAdvisor adds interfaces to every proxy of a type its class
// filter accepts. It has no method matcher.
type IntroductionAdvisor interface {
	Advisor
	ClassFilter() ClassFilter
	Interfaces() []reflect.Type
	ValidateInterfaces() error
}

// Ordered values sort ascending; lower values run further out in the chain.
type Ordered interface {
	Order() int
}

// PrecedenceInformation is carried by advisors compiled from aspects and is
// used to break order ties within one aspect.
type PrecedenceInformation interface {
	Ordered
	AspectName() string
	DeclarationOrder() int
	IsBeforeAdvice() bool
	IsAfterAdvice() bool
}

// OrderOf returns the order of v, or LowestPrecedence when v is not Ordered.
func OrderOf(v any) int {
	if o, ok := v.(Ordered); ok {
		return o.Order()
	}
	return LowestPrecedence
}

// DefaultPointcutAdvisor is the general purpose PointcutAdvisor.
type DefaultPointcutAdvisor struct {
	pointcut Pointcut
	advice   Advice
	order    *int
}

// NewPointcutAdvisor binds advice to pc. A nil pointcut matches everything.
func NewPointcutAdvisor(pc Pointcut, advice Advice) *DefaultPointcutAdvisor {
	if pc == nil {
		pc = TruePointcut
	}
	return &DefaultPointcutAdvisor{pointcut: pc, advice: advice}
}

// NewAdvisor binds advice to every method.
func NewAdvisor(advice Advice) *DefaultPointcutAdvisor {
	return NewPointcutAdvisor(TruePointcut, advice)
}

func (a *DefaultPointcutAdvisor) Advice() Advice     { return a.advice }
func (a *DefaultPointcutAdvisor) Pointcut() Pointcut { return a.pointcut }

// WithOrder sets an explicit order and returns the advisor.
func (a *DefaultPointcutAdvisor) WithOrder(order int) *DefaultPointcutAdvisor {
	a.order = &order
	return a
}

// Order is the explicit order, then the advice's own order, then
// LowestPrecedence.
func (a *DefaultPointcutAdvisor) Order() int {
	if a.order != nil {
		return *a.order
	}
	return OrderOf(a.advice)
}

func (a *DefaultPointcutAdvisor) String() string {
	return fmt.Sprintf("DefaultPointcutAdvisor: pointcut [%v]; advice [%T]", a.pointcut, a.advice)
}

// IntroductionInterceptor serves the methods of introduced interfaces and
// passes everything else on.
type IntroductionInterceptor interface {
	MethodInterceptor
	ImplementsInterface(t reflect.Type) bool
}

// DefaultIntroductionAdvisor introduces interfaces through an
// IntroductionInterceptor.
type DefaultIntroductionAdvisor struct {
	advice      IntroductionInterceptor
	interfaces  []reflect.Type
	classFilter ClassFilter
	order       int
}

// NewIntroductionAdvisor introduces interfaces into every type cf accepts.
// A nil class filter accepts all types.
func NewIntroductionAdvisor(
	advice IntroductionInterceptor, cf ClassFilter, interfaces ...reflect.Type,
) *DefaultIntroductionAdvisor {
	if cf == nil {
		cf = TrueClassFilter
	}
	return &DefaultIntroductionAdvisor{
		advice:      advice,
		interfaces:  interfaces,
		classFilter: cf,
		order:       OrderOf(advice),
	}
}

func (a *DefaultIntroductionAdvisor) Advice() Advice             { return a.advice }
func (a *DefaultIntroductionAdvisor) ClassFilter() ClassFilter   { return a.classFilter }
func (a *DefaultIntroductionAdvisor) Interfaces() []reflect.Type { return a.interfaces }
func (a *DefaultIntroductionAdvisor) Order() int                 { return a.order }

func (a *DefaultIntroductionAdvisor) ValidateInterfaces() error {
	return validateIntroduced(a.advice, a.interfaces)
}

func validateIntroduced(advice IntroductionInterceptor, interfaces []reflect.Type) error {
	for _, iface := range interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return errConfig(fmt.Sprint(iface), "only interfaces can be introduced")
		}
		if !advice.ImplementsInterface(iface) {
			return errConfig(iface.String(), "introduction advice [%T] does not implement the interface", advice)
		}
	}
	return nil
}
