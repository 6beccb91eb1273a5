package aop

import (
	"fmt"
	"reflect"
	"sync"
)

// InstantiationModelAwarePointcutAdvisor is the advisor compiled from one
// advice method of an aspect. For lazily instantiated aspects its pointcut is
// dynamic: it only matches calls once the aspect has materialized. Its advice
// is created on first access.
type InstantiationModelAwarePointcutAdvisor struct {
	declaredPointcut *ExpressionPointcut
	pointcut         Pointcut
	annotation       AdviceAnnotation
	signature        *adviceSignature
	factory          MetadataAwareAspectInstanceFactory
	aspectName       string
	declarationOrder int
	lazy             bool

	mu     sync.Mutex
	advice Advice
}

func newModelAdvisor(
	declared *ExpressionPointcut,
	ann AdviceAnnotation,
	sig *adviceSignature,
	factory MetadataAwareAspectInstanceFactory,
	declarationOrder int,
	aspectName string,
) *InstantiationModelAwarePointcutAdvisor {
	a := &InstantiationModelAwarePointcutAdvisor{
		declaredPointcut: declared,
		pointcut:         declared,
		annotation:       ann,
		signature:        sig,
		factory:          factory,
		aspectName:       aspectName,
		declarationOrder: declarationOrder,
	}

	md := factory.AspectMetadata()
	if md.IsLazilyInstantiated() {
		a.lazy = true
		a.pointcut = newPerTargetPointcut(declared, md.PerClausePointcut, factory)
	} else {
		a.advice = a.instantiateAdvice()
	}
	return a
}

func (a *InstantiationModelAwarePointcutAdvisor) Pointcut() Pointcut { return a.pointcut }

// Advice returns the advice, creating it on first call.
func (a *InstantiationModelAwarePointcutAdvisor) Advice() Advice {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.advice == nil {
		a.advice = a.instantiateAdvice()
	}
	return a.advice
}

// IsAdviceInstantiated reports whether Advice has created the advice yet.
func (a *InstantiationModelAwarePointcutAdvisor) IsAdviceInstantiated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.advice != nil
}

func (a *InstantiationModelAwarePointcutAdvisor) instantiateAdvice() Advice {
	base := aspectAdvice{
		kind:             a.annotation.Kind,
		sig:              a.signature,
		pointcut:         a.declaredPointcut,
		factory:          a.factory,
		aspectName:       a.aspectName,
		declarationOrder: a.declarationOrder,
	}

	switch a.annotation.Kind {
	case KindAround:
		return &aspectAroundAdvice{aspectAdvice: base}
	case KindBefore:
		return &aspectBeforeAdvice{aspectAdvice: base}
	case KindAfter:
		return &aspectAfterAdvice{aspectAdvice: base}
	case KindAfterReturning:
		return &aspectAfterReturningAdvice{aspectAdvice: base}
	default:
		return &aspectAfterThrowingAdvice{aspectAdvice: base}
	}
}

func (a *InstantiationModelAwarePointcutAdvisor) IsLazy() bool { return a.lazy }

func (a *InstantiationModelAwarePointcutAdvisor) DeclaredPointcut() *ExpressionPointcut {
	return a.declaredPointcut
}

func (a *InstantiationModelAwarePointcutAdvisor) AspectMetadata() *AspectMetadata {
	return a.factory.AspectMetadata()
}

func (a *InstantiationModelAwarePointcutAdvisor) AspectInstanceFactory() MetadataAwareAspectInstanceFactory {
	return a.factory
}

func (a *InstantiationModelAwarePointcutAdvisor) Order() int            { return a.factory.Order() }
func (a *InstantiationModelAwarePointcutAdvisor) AspectName() string    { return a.aspectName }
func (a *InstantiationModelAwarePointcutAdvisor) DeclarationOrder() int { return a.declarationOrder }
func (a *InstantiationModelAwarePointcutAdvisor) Kind() AdviceKind      { return a.annotation.Kind }
func (a *InstantiationModelAwarePointcutAdvisor) MethodName() string    { return a.signature.name }

func (a *InstantiationModelAwarePointcutAdvisor) IsBeforeAdvice() bool {
	return a.annotation.Kind == KindBefore
}

func (a *InstantiationModelAwarePointcutAdvisor) IsAfterAdvice() bool {
	switch a.annotation.Kind {
	case KindAfter, KindAfterReturning, KindAfterThrowing:
		return true
	}
	return false
}

func (a *InstantiationModelAwarePointcutAdvisor) String() string {
	return fmt.Sprintf(
		"InstantiationModelAwarePointcutAdvisor: expression [%s]; advice method [%s.%s]; perClauseKind=%s",
		a.declaredPointcut.Expression(), a.aspectName, a.signature.name, a.factory.AspectMetadata().PerClause.Kind,
	)
}

type materializable interface {
	IsMaterialized() bool
}

// perTargetPointcut matches statically on the declared pointcut once the
// aspect exists and on the pre-instantiation pointcut before that. The
// per-call check only passes after materialization.
type perTargetPointcut struct {
	declared         Pointcut
	preInstantiation Pointcut
	factory          MetadataAwareAspectInstanceFactory
}

func newPerTargetPointcut(declared, perClause Pointcut, factory MetadataAwareAspectInstanceFactory) *perTargetPointcut {
	return &perTargetPointcut{
		declared:         declared,
		preInstantiation: UnionPointcuts(perClause, declared),
		factory:          factory,
	}
}

func (p *perTargetPointcut) ClassFilter() ClassFilter     { return TrueClassFilter }
func (p *perTargetPointcut) MethodMatcher() MethodMatcher { return p }

func (p *perTargetPointcut) Matches(m Method, target reflect.Type) bool {
	if p.materialized() && p.declared.ClassFilter().Matches(target) &&
		p.declared.MethodMatcher().Matches(m, target) {
		return true
	}
	pre := p.preInstantiation
	return pre.ClassFilter().Matches(target) && pre.MethodMatcher().Matches(m, target)
}

func (p *perTargetPointcut) IsRuntime() bool { return true }

func (p *perTargetPointcut) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	return p.materialized() && MatchesInvocation(p.declared, m, target, args)
}

func (p *perTargetPointcut) materialized() bool {
	mf, ok := p.factory.(materializable)
	return !ok || mf.IsMaterialized()
}

// syntheticInstantiationAdvisor materializes a lazy aspect on the first call
// its per-clause pointcut selects. It sorts ahead of the aspect's own
// advisors.
type syntheticInstantiationAdvisor struct {
	pointcut   Pointcut
	advice     *instantiationAdvice
	aspectName string
}

func newSyntheticInstantiationAdvisor(factory MetadataAwareAspectInstanceFactory) *syntheticInstantiationAdvisor {
	md := factory.AspectMetadata()
	return &syntheticInstantiationAdvisor{
		pointcut:   md.PerClausePointcut,
		advice:     &instantiationAdvice{factory: factory},
		aspectName: md.AspectName,
	}
}

func (a *syntheticInstantiationAdvisor) Advice() Advice        { return a.advice }
func (a *syntheticInstantiationAdvisor) Pointcut() Pointcut    { return a.pointcut }
func (a *syntheticInstantiationAdvisor) Order() int            { return a.advice.factory.Order() }
func (a *syntheticInstantiationAdvisor) AspectName() string    { return a.aspectName }
func (a *syntheticInstantiationAdvisor) DeclarationOrder() int { return -1 }
func (a *syntheticInstantiationAdvisor) IsBeforeAdvice() bool  { return true }
func (a *syntheticInstantiationAdvisor) IsAfterAdvice() bool   { return false }

func (a *syntheticInstantiationAdvisor) String() string {
	return "SyntheticInstantiationAdvisor for aspect " + a.aspectName
}

type instantiationAdvice struct {
	factory AspectInstanceFactory
}

func (a *instantiationAdvice) Shapes() Shape { return ShapeBefore }

func (a *instantiationAdvice) Before(m Method, args []any, _ any) error {
	_, err := a.factory.AspectInstance(contextArg(m, args))
	return err
}

func (a *instantiationAdvice) beforeJoinPoint(jp JoinPoint) error {
	_, err := a.factory.AspectInstance(jp.Context())
	return err
}
