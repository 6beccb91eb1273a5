package reflect

import (
	"fmt"
	"reflect"
	"strings"
)

// Param is one constructor parameter.
type Param struct {
	Index   int
	Type    reflect.Type
	TypeKey string
}

// FuncParams describes a constructor: its parameters, its first result and
// whether a second result of type error follows.
func FuncParams(fn any) (params []Param, result reflect.Type, hasError bool, err error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, nil, false, fmt.Errorf("constructor must be a function, got %v", ft)
	}
	if ft.IsVariadic() {
		return nil, nil, false, fmt.Errorf("constructor %s must not be variadic", ft)
	}

	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, nil, false, fmt.Errorf("second result of %s must be error", ft)
		}
		hasError = true
	default:
		return nil, nil, false, fmt.Errorf("constructor %s must return T or (T, error)", ft)
	}

	params = make([]Param, ft.NumIn())
	for i := range params {
		in := ft.In(i)
		params[i] = Param{Index: i, Type: in, TypeKey: TypeKeyOf(in)}
	}
	return params, ft.Out(0), hasError, nil
}

// Field is a struct field marked for injection.
type Field struct {
	Name     string
	Index    int
	Type     reflect.Type
	TypeKey  string
	Named    string
	Optional bool
}

// Key is the bean name the field is resolved from.
func (f Field) Key() string {
	if f.Named != "" {
		return f.TypeKey + "#" + f.Named
	}
	return f.TypeKey
}

// StructFields returns the fields of t (or *t) carrying tag. The tag value
// is "name,optional", both parts optional.
func StructFields(t reflect.Type, tag string) ([]Field, error) {
	st := Indirect(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%v is not a struct type", t)
	}

	var fields []Field
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		value, ok := sf.Tag.Lookup(tag)
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("field %s of %s is tagged but unexported", sf.Name, st)
		}

		name, opts, _ := strings.Cut(value, ",")
		fields = append(fields, Field{
			Name:     sf.Name,
			Index:    i,
			Type:     sf.Type,
			TypeKey:  TypeKeyOf(sf.Type),
			Named:    strings.TrimSpace(name),
			Optional: strings.TrimSpace(opts) == "optional",
		})
	}
	return fields, nil
}
