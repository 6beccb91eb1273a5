package aop

import (
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// Aspect marks a type whose methods are advice. Annotations is called on the
// zero value of the type and must not depend on its fields.
//
//	type Logging struct{ log *slog.Logger }
//
//	func (Logging) Annotations() aop.Annotations {
//		return aop.Annotations{Advice: map[string]aop.AdviceAnnotation{
//			"Trace": aop.Before("* ..*Service.*(..)"),
//		}}
//	}
//
//	func (l *Logging) Trace(jp aop.JoinPoint) { l.log.Info("call", "method", jp.Method()) }
type Aspect interface {
	Annotations() Annotations
}

// Annotations declares an aspect's instantiation model and which of its
// methods are advice or named pointcuts, keyed by method name.
type Annotations struct {
	PerClause PerClause
	Advice    map[string]AdviceAnnotation
}

// AdviceKind is the kind of an aspect method. The declaration order is the
// precedence rank used when sorting advice within one aspect.
type AdviceKind uint8

const (
	KindAround AdviceKind = iota
	KindBefore
	KindAfter
	KindAfterReturning
	KindAfterThrowing
	KindPointcut
)

var kindNames = map[AdviceKind]string{
	KindAround:         "Around",
	KindBefore:         "Before",
	KindAfter:          "After",
	KindAfterReturning: "AfterReturning",
	KindAfterThrowing:  "AfterThrowing",
	KindPointcut:       "Pointcut",
}

func (k AdviceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("AdviceKind(%d)", k)
}

// IsAdvice reports whether k is one of the five advice kinds.
func (k AdviceKind) IsAdvice() bool {
	return k <= KindAfterThrowing
}

// AdviceAnnotation declares one aspect method.
type AdviceAnnotation struct {
	Kind     AdviceKind
	Pointcut string

	// Returning names the parameter bound to the result for AfterReturning.
	Returning string

	// Throwing names the parameter bound to the error for AfterThrowing.
	Throwing string
}

func Before(pointcut string) AdviceAnnotation {
	return AdviceAnnotation{Kind: KindBefore, Pointcut: pointcut}
}

func After(pointcut string) AdviceAnnotation {
	return AdviceAnnotation{Kind: KindAfter, Pointcut: pointcut}
}

func Around(pointcut string) AdviceAnnotation {
	return AdviceAnnotation{Kind: KindAround, Pointcut: pointcut}
}

func AfterReturning(pointcut, returning string) AdviceAnnotation {
	return AdviceAnnotation{Kind: KindAfterReturning, Pointcut: pointcut, Returning: returning}
}

func AfterThrowing(pointcut, throwing string) AdviceAnnotation {
	return AdviceAnnotation{Kind: KindAfterThrowing, Pointcut: pointcut, Throwing: throwing}
}

// NamedPointcut declares a reusable pointcut other expressions of the aspect
// can refer to as Name(). It needs no method.
func NamedPointcut(pointcut string) AdviceAnnotation {
	return AdviceAnnotation{Kind: KindPointcut, Pointcut: pointcut}
}

// PerClauseKind is the instantiation model of an aspect.
type PerClauseKind uint8

const (
	SingletonKind PerClauseKind = iota
	PerThisKind
	PerTargetKind
	PerTypeWithinKind
	PerCflowKind
	PerCflowBelowKind
)

var perClauseNames = map[PerClauseKind]string{
	SingletonKind:     "SINGLETON",
	PerThisKind:       "PER_THIS",
	PerTargetKind:     "PER_TARGET",
	PerTypeWithinKind: "PER_TYPE_WITHIN",
	PerCflowKind:      "PER_CFLOW",
	PerCflowBelowKind: "PER_CFLOW_BELOW",
}

func (k PerClauseKind) String() string {
	if name, ok := perClauseNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PerClauseKind(%d)", k)
}

// PerClause is the instantiation model with its pointcut. The zero value is
// the singleton model.
type PerClause struct {
	Kind       PerClauseKind
	Expression string
}

func PerThis(pointcut string) PerClause {
	return PerClause{Kind: PerThisKind, Expression: pointcut}
}

func PerTarget(pointcut string) PerClause {
	return PerClause{Kind: PerTargetKind, Expression: pointcut}
}

func PerTypeWithin(typePattern string) PerClause {
	return PerClause{Kind: PerTypeWithinKind, Expression: typePattern}
}

func PerCflow(pointcut string) PerClause {
	return PerClause{Kind: PerCflowKind, Expression: pointcut}
}

func PerCflowBelow(pointcut string) PerClause {
	return PerClause{Kind: PerCflowBelowKind, Expression: pointcut}
}

var aspectType = reflect.TypeOf((*Aspect)(nil)).Elem()

// IsAspect reports whether t or *t implements Aspect.
func IsAspect(t reflect.Type) bool {
	return ireflect.Implements(t, aspectType)
}

// aspectPointer normalizes t to a pointer to struct.
func aspectPointer(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Struct {
		return reflect.PointerTo(t)
	}
	return t
}

// zeroAspect returns a pointer to a new zero value of the aspect type.
func zeroAspect(t reflect.Type) reflect.Value {
	return reflect.New(aspectPointer(t).Elem())
}

// annotationsOf evaluates Annotations on the zero value of t.
func annotationsOf(t reflect.Type) Annotations {
	return zeroAspect(t).Interface().(Aspect).Annotations()
}

// ValidateAspect checks that t can be compiled into advisors.
func ValidateAspect(t reflect.Type) error {
	pt := aspectPointer(t)
	if pt == nil || pt.Kind() != reflect.Ptr || pt.Elem().Kind() != reflect.Struct {
		return errNotAnAspect(fmt.Sprint(t), "aspects must be struct types")
	}
	name := ireflect.QualifiedName(pt)
	if !IsAspect(pt) {
		return errNotAnAspect(name, "type does not implement aop.Aspect")
	}

	st := pt.Elem()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && IsAspect(f.Type) {
			return errNotAnAspect(
				name,
				fmt.Sprintf("cannot extend concrete aspect %s: only non-aspect types may be embedded", f.Type),
			)
		}
	}

	switch annotationsOf(pt).PerClause.Kind {
	case PerCflowKind, PerCflowBelowKind:
		return errNotAnAspect(name, "PER_CFLOW and PER_CFLOW_BELOW aspects are not supported")
	}
	return nil
}

// aspectOrder is the Order of the zero value when the aspect implements
// Ordered, LowestPrecedence otherwise.
func aspectOrder(t reflect.Type) int {
	return OrderOf(zeroAspect(t).Interface())
}
