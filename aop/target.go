package aop

import (
	"context"
	"fmt"
	"reflect"
)

// TargetSource supplies the object a proxy call is finally dispatched to.
type TargetSource interface {
	TargetType() reflect.Type
	Target(ctx context.Context) (any, error)
	Release(target any)
	IsStatic() bool
}

type singletonTargetSource struct {
	target any
}

// SingletonTarget always returns target.
func SingletonTarget(target any) TargetSource {
	return singletonTargetSource{target: target}
}

func (s singletonTargetSource) TargetType() reflect.Type            { return reflect.TypeOf(s.target) }
func (s singletonTargetSource) Target(context.Context) (any, error) { return s.target, nil }
func (s singletonTargetSource) Release(any)                         {}
func (s singletonTargetSource) IsStatic() bool                      { return true }

func (s singletonTargetSource) String() string {
	return fmt.Sprintf("SingletonTargetSource for target object [%T]", s.target)
}

// FuncTargetSource fetches a fresh target per call, e.g. from a non-singleton
// bean.
type FuncTargetSource struct {
	Type  reflect.Type
	Fetch func(ctx context.Context) (any, error)
}

func (s FuncTargetSource) TargetType() reflect.Type { return s.Type }

func (s FuncTargetSource) Target(ctx context.Context) (any, error) {
	return s.Fetch(ctx)
}

func (s FuncTargetSource) Release(any)    {}
func (s FuncTargetSource) IsStatic() bool { return false }
