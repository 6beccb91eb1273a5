package reflect

import (
	"reflect"
	"sort"
)

// MethodInfo describes an exported method with its receiver stripped.
type MethodInfo struct {
	Name  string
	Type  reflect.Type
	Index int
}

// Methods returns the exported methods callable on a value of type t, sorted by
// name. For concrete types the receiver is removed from the signature.
func Methods(t reflect.Type) []MethodInfo {
	if t == nil {
		return nil
	}

	out := make([]MethodInfo, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		out = append(out, MethodInfo{Name: m.Name, Type: stripReceiver(t, m), Index: i})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MethodByName looks up an exported method of t by name.
func MethodByName(t reflect.Type, name string) (MethodInfo, bool) {
	if t == nil {
		return MethodInfo{}, false
	}
	m, ok := t.MethodByName(name)
	if !ok || !m.IsExported() {
		return MethodInfo{}, false
	}
	return MethodInfo{Name: m.Name, Type: stripReceiver(t, m), Index: m.Index}, true
}

func stripReceiver(t reflect.Type, m reflect.Method) reflect.Type {
	if t.Kind() == reflect.Interface {
		return m.Type
	}

	ft := m.Type
	in := make([]reflect.Type, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	out := make([]reflect.Type, 0, ft.NumOut())
	for i := 0; i < ft.NumOut(); i++ {
		out = append(out, ft.Out(i))
	}
	return reflect.FuncOf(in, out, ft.IsVariadic())
}

// ReturnsError reports whether the last result of fn is exactly error.
func ReturnsError(fn reflect.Type) bool {
	n := fn.NumOut()
	return n > 0 && fn.Out(n-1) == errorType
}

// Implements reports whether t (or *t) implements iface.
func Implements(t, iface reflect.Type) bool {
	if t == nil || iface == nil {
		return false
	}
	if t.Implements(iface) {
		return true
	}
	if t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface {
		return reflect.PointerTo(t).Implements(iface)
	}
	return false
}
