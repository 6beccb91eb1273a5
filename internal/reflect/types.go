package reflect

import (
	"context"
	"reflect"
	"strconv"
	"sync"
)

var (
	typeKeyCache sync.Map

	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

func ErrorType() reflect.Type {
	return errorType
}

func ContextType() reflect.Type {
	return contextType
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TypeKey[T any]() string {
	return TypeKeyOf(TypeOf[T]())
}

func TypeKeyNamed[T any](name string) string {
	return TypeKey[T]() + "#" + name
}

// TypeKeyOf returns the bean-name key for t.
func TypeKeyOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(string)
	}

	key := buildTypeKey(t)
	typeKeyCache.Store(t, key)
	return key
}

func buildTypeKey(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildTypeKey(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeKey(t.Key()) + "]" + buildTypeKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeKey(t.Elem())
		default:
			return "chan " + buildTypeKey(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		return QualifiedName(t)
	}
}

// Indirect strips pointer indirections from t.
func Indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// QualifiedName returns "pkgpath.Name" for named types, dereferencing
// pointers. Unnamed types fall back to their String form.
func QualifiedName(t reflect.Type) string {
	t = Indirect(t)
	if t == nil {
		return "<nil>"
	}
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// SimpleName returns the unqualified type name, dereferencing pointers.
func SimpleName(t reflect.Type) string {
	t = Indirect(t)
	if t == nil {
		return ""
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func TypeName[T any]() string {
	return TypeOf[T]().String()
}

// Assignable reports whether a value of type from can be used where to is
// expected. A nil to accepts everything.
func Assignable(from, to reflect.Type) bool {
	if to == nil {
		return true
	}
	if from == nil {
		return false
	}
	return from.AssignableTo(to)
}
