package reflect

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet(name string) (string, error)
}

type englishGreeter struct {
	Name string
}

func (g *englishGreeter) Greet(name string) (string, error) { return "hello " + name, nil }

func (g *englishGreeter) lower() {}

func (g englishGreeter) Language() string { return "en" }

func TestTypeKey(t *testing.T) {
	t.Parallel()

	pkg := "github.com/danpasecinic/stitch/internal/reflect"

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "builtin", got: TypeKey[int](), want: "int"},
		{name: "pointer", got: TypeKey[*englishGreeter](), want: "*" + pkg + ".englishGreeter"},
		{name: "struct", got: TypeKey[englishGreeter](), want: pkg + ".englishGreeter"},
		{name: "interface", got: TypeKey[greeter](), want: pkg + ".greeter"},
		{name: "slice", got: TypeKey[[]string](), want: "[]string"},
		{name: "array", got: TypeKey[[2]int](), want: "[2]int"},
		{name: "map", got: TypeKey[map[string]*englishGreeter](), want: "map[string]*" + pkg + ".englishGreeter"},
		{name: "recv chan", got: TypeKey[<-chan int](), want: "<-chan int"},
		{name: "context", got: TypeKey[context.Context](), want: "context.Context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestTypeKey_PointerAndValueDiffer(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, TypeKey[englishGreeter](), TypeKey[*englishGreeter]())
	assert.Equal(t, TypeKey[*englishGreeter](), TypeKeyOf(reflect.TypeOf(&englishGreeter{})))
}

func TestTypeKeyNamed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TypeKey[greeter]()+"#primary", TypeKeyNamed[greeter]("primary"))
	assert.Equal(t, "<nil>", TypeKeyOf(nil))
}

func TestNames(t *testing.T) {
	t.Parallel()

	pt := TypeOf[*englishGreeter]()
	assert.Equal(t, "englishGreeter", SimpleName(pt))
	assert.Equal(t, "github.com/danpasecinic/stitch/internal/reflect.englishGreeter", QualifiedName(pt))
	assert.Equal(t, "int", QualifiedName(TypeOf[int]()))
	assert.Equal(t, "[]string", SimpleName(TypeOf[[]string]()))
	assert.Equal(t, TypeOf[englishGreeter](), Indirect(TypeOf[**englishGreeter]()))
	assert.Equal(t, "reflect.greeter", TypeName[greeter]())
}

func TestIsNil(t *testing.T) {
	t.Parallel()

	var nilPtr *englishGreeter
	var nilIface greeter

	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(nilPtr))
	assert.True(t, IsNil(nilIface))
	assert.True(t, IsNil([]int(nil)))
	assert.False(t, IsNil(&englishGreeter{}))
	assert.False(t, IsNil(42))
	assert.False(t, IsNil(englishGreeter{}))
}

func TestAssignable(t *testing.T) {
	t.Parallel()

	assert.True(t, Assignable(TypeOf[*englishGreeter](), TypeOf[greeter]()))
	assert.False(t, Assignable(TypeOf[englishGreeter](), TypeOf[greeter]()))
	assert.True(t, Assignable(TypeOf[int](), nil))
	assert.False(t, Assignable(nil, TypeOf[int]()))
}

func TestMethods(t *testing.T) {
	t.Parallel()

	methods := Methods(TypeOf[*englishGreeter]())
	require.Len(t, methods, 2, "unexported methods are skipped")
	assert.Equal(t, "Greet", methods[0].Name)
	assert.Equal(t, "Language", methods[1].Name)
	assert.Equal(t, TypeOf[func(string) (string, error)](), methods[0].Type, "receiver is stripped")

	ifaceMethods := Methods(TypeOf[greeter]())
	require.Len(t, ifaceMethods, 1)
	assert.Equal(t, methods[0].Type, ifaceMethods[0].Type)

	assert.Nil(t, Methods(nil))
}

func TestMethodByName(t *testing.T) {
	t.Parallel()

	m, ok := MethodByName(TypeOf[englishGreeter](), "Language")
	require.True(t, ok)
	assert.Equal(t, TypeOf[func() string](), m.Type)

	_, ok = MethodByName(TypeOf[englishGreeter](), "Greet")
	assert.False(t, ok, "pointer method is not in the value method set")

	_, ok = MethodByName(TypeOf[*englishGreeter](), "lower")
	assert.False(t, ok)
}

func TestReturnsError(t *testing.T) {
	t.Parallel()

	assert.True(t, ReturnsError(TypeOf[func() error]()))
	assert.True(t, ReturnsError(TypeOf[func() (int, error)]()))
	assert.False(t, ReturnsError(TypeOf[func() int]()))
	assert.False(t, ReturnsError(TypeOf[func()]()))
}

func TestImplements(t *testing.T) {
	t.Parallel()

	iface := TypeOf[greeter]()
	assert.True(t, Implements(TypeOf[*englishGreeter](), iface))
	assert.True(t, Implements(TypeOf[englishGreeter](), iface), "pointer method set is considered")
	assert.False(t, Implements(TypeOf[int](), iface))
	assert.False(t, Implements(nil, iface))
}

func BenchmarkTypeKey(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = TypeKey[*englishGreeter]()
	}
}

func BenchmarkTypeKeyNamed(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = TypeKeyNamed[*englishGreeter]("primary")
	}
}
