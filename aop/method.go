package aop

import (
	"reflect"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// Method identifies a method on a target or proxied interface. Type is the
// signature without receiver.
type Method struct {
	Name          string
	Type          reflect.Type
	DeclaringType reflect.Type
}

func (m Method) String() string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return ireflect.QualifiedName(m.DeclaringType) + "." + m.Name
}

// ReturnsError reports whether the trailing result of the method is error.
func (m Method) ReturnsError() bool {
	return m.Type != nil && ireflect.ReturnsError(m.Type)
}

// MethodsOf returns the exported methods of t, sorted by name, declared on t.
func MethodsOf(t reflect.Type) []Method {
	infos := ireflect.Methods(t)
	out := make([]Method, len(infos))
	for i, info := range infos {
		out[i] = Method{Name: info.Name, Type: info.Type, DeclaringType: t}
	}
	return out
}

// MethodOf looks up a method of t by name.
func MethodOf(t reflect.Type, name string) (Method, bool) {
	info, ok := ireflect.MethodByName(t, name)
	if !ok {
		return Method{}, false
	}
	return Method{Name: info.Name, Type: info.Type, DeclaringType: t}, true
}

// TypeOf returns the reflect.Type of T; interface types are preserved.
func TypeOf[T any]() reflect.Type {
	return ireflect.TypeOf[T]()
}
