package aop

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notAdvice struct{}

func (notAdvice) Shapes() Shape { return 0 }

type beforeAndAfter struct {
	rec *recorder
}

func (b beforeAndAfter) Shapes() Shape { return ShapeBefore | ShapeAfterReturning }

func (b beforeAndAfter) Before(m Method, _ []any, _ any) error {
	b.rec.add("before " + m.Name)
	return nil
}

func (b beforeAndAfter) AfterReturning(_ []any, m Method, _ []any, _ any) error {
	b.rec.add("after " + m.Name)
	return nil
}

func TestRegistry_WrapIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()
	advice := BeforeFunc(func(Method, []any, any) error { return nil })

	first, err := r.Wrap(advice)
	require.NoError(t, err)
	second, err := r.Wrap(first)
	require.NoError(t, err)

	assert.Same(t, first, second)

	pa, ok := first.(PointcutAdvisor)
	require.True(t, ok)
	assert.Equal(t, TruePointcut, pa.Pointcut())
}

func TestRegistry_WrapInterceptor(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()
	mi := InterceptorFunc(func(inv MethodInvocation) ([]any, error) { return inv.Proceed() })

	advisor, err := r.Wrap(mi)
	require.NoError(t, err)

	interceptors, err := r.Interceptors(advisor)
	require.NoError(t, err)
	require.Len(t, interceptors, 1)
}

func TestRegistry_WrapUnknown(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()

	_, err := r.Wrap(notAdvice{})
	require.Error(t, err)
	assert.True(t, IsUnknownAdviceType(err))

	_, err = r.Wrap("not advice at all")
	assert.True(t, IsUnknownAdviceType(err))
}

func TestRegistry_InterceptorsForUnknownAdvice(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()

	_, err := r.Interceptors(NewAdvisor(notAdvice{}))
	require.Error(t, err)
	assert.True(t, IsUnknownAdviceType(err))
}

func TestRegistry_InterceptorsForThrowsAdvice(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()
	interceptors, err := r.Interceptors(NewAdvisor(Throws(&ioHandlers{})))
	require.NoError(t, err)
	assert.NotEmpty(t, interceptors)
}

func TestRegistry_MultipleShapes(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()
	interceptors, err := r.Interceptors(NewAdvisor(beforeAndAfter{rec: &recorder{}}))
	require.NoError(t, err)
	assert.Len(t, interceptors, 2)
}

type auditAdvice struct{}

func (auditAdvice) Shapes() Shape { return ShapeIntroduction << 1 }

func TestRegistry_CustomAdapter(t *testing.T) {
	t.Parallel()

	r := NewAdvisorAdapterRegistry()
	_, err := r.Wrap(auditAdvice{})
	require.Error(t, err)

	called := false
	r.Register(ShapeIntroduction<<1, AdvisorAdapterFunc(func(Advisor) (MethodInterceptor, error) {
		return InterceptorFunc(func(inv MethodInvocation) ([]any, error) {
			called = true
			return inv.Proceed()
		}), nil
	}))

	advisor, err := r.Wrap(auditAdvice{})
	require.NoError(t, err)

	pf := NewProxyFactory(&orderService{}, WithAdapterRegistry(r))
	require.NoError(t, pf.AddAdvisors(advisor))
	_, err = pf.Proxy().Invoke("Count")
	require.NoError(t, err)
	assert.True(t, called)
}

// ioError stands in for a family of I/O failures; notFoundError is one of
// them and unwraps to its ioError.
type ioError struct {
	op string
}

func (e *ioError) Error() string { return "io: " + e.op }

type notFoundError struct {
	io   *ioError
	name string
}

func (e *notFoundError) Error() string { return "not found: " + e.name }
func (e *notFoundError) Unwrap() error { return e.io }

type ioHandlers struct {
	rec recorder
}

func (h *ioHandlers) AfterThrowingIO(err *ioError) {
	h.rec.add("io " + err.op)
}

func (h *ioHandlers) AfterThrowing(m Method, _ []any, _ any, err error) {
	h.rec.add("any " + m.Name + " " + err.Error())
}

func (h *ioHandlers) AfterThrowingIgnored(int) {}

func (h *ioHandlers) Unrelated(err error) {}

type failingService struct {
	err error
}

func (s *failingService) Do() error { return s.err }

func throwsProxy(t *testing.T, target any, handler any) *Proxy {
	t.Helper()

	pf := NewProxyFactory(target)
	require.NoError(t, pf.AddAdvice(Throws(handler)))
	return pf.Proxy()
}

func TestThrows_MostSpecificHandler(t *testing.T) {
	t.Parallel()

	h := &ioHandlers{}
	cause := &notFoundError{io: &ioError{op: "open"}, name: "orders.db"}
	p := throwsProxy(t, &failingService{err: cause}, h)

	_, err := p.Invoke("Do")
	require.Error(t, err)
	assert.Same(t, cause, err, "the original error is returned")
	assert.Equal(t, []string{"io open"}, h.rec.list())
}

func TestThrows_CatchAll(t *testing.T) {
	t.Parallel()

	h := &ioHandlers{}
	cause := errors.New("boom")
	p := throwsProxy(t, &failingService{err: cause}, h)

	_, err := p.Invoke("Do")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"any Do boom"}, h.rec.list())
}

type pathHandler struct {
	paths []string
}

func (h *pathHandler) AfterThrowingPath(err *fs.PathError) {
	h.paths = append(h.paths, err.Path)
}

func TestThrows_NoMatchingHandlerPropagates(t *testing.T) {
	t.Parallel()

	h := &pathHandler{}
	cause := fmt.Errorf("wrapped: %w", errors.New("plain"))
	p := throwsProxy(t, &failingService{err: cause}, h)

	_, err := p.Invoke("Do")
	assert.Same(t, cause, err)
	assert.Empty(t, h.paths)

	wrapped := fmt.Errorf("read: %w", &fs.PathError{Op: "open", Path: "/tmp/x", Err: fs.ErrNotExist})
	p = throwsProxy(t, &failingService{err: wrapped}, h)
	_, err = p.Invoke("Do")
	assert.Same(t, wrapped, err)
	assert.Equal(t, []string{"/tmp/x"}, h.paths)
}

type failingHandler struct{}

func (failingHandler) AfterThrowing(err error) error {
	return fmt.Errorf("handler: %w", err)
}

func TestThrows_HandlerErrorReplaces(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	p := throwsProxy(t, &failingService{err: cause}, failingHandler{})

	_, err := p.Invoke("Do")
	require.Error(t, err)
	assert.Equal(t, "handler: boom", err.Error())
}

func TestThrows_NoHandlers(t *testing.T) {
	t.Parallel()

	_, err := newThrowsInterceptor(&failingService{})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrCodeNoHandlers, aerr.Code)
}

type duplicateIOHandlers struct{}

func (duplicateIOHandlers) AfterThrowingRead(*ioError) {}

func (duplicateIOHandlers) AfterThrowingWrite(Method, []any, any, *ioError) {}

type duplicateCatchAll struct{}

func (duplicateCatchAll) AfterThrowing(error) {}

func (duplicateCatchAll) AfterThrowingAnything(error) {}

func TestThrows_DuplicateHandlersRejected(t *testing.T) {
	t.Parallel()

	for name, handler := range map[string]any{
		"concrete type": duplicateIOHandlers{},
		"catch-all":     duplicateCatchAll{},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newThrowsInterceptor(handler)
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), "both handle")

			_, err = NewAdvisorAdapterRegistry().Interceptors(NewAdvisor(Throws(handler)))
			assert.Error(t, err)
		})
	}
}

func TestThrows_HandlerCount(t *testing.T) {
	t.Parallel()

	ti, err := newThrowsInterceptor(&ioHandlers{})
	require.NoError(t, err)
	assert.Equal(t, 2, ti.HandlerCount())
}

func TestUnwrapChain_Joined(t *testing.T) {
	t.Parallel()

	a := errors.New("a")
	b := &ioError{op: "b"}
	chain := unwrapChain(fmt.Errorf("outer: %w", errors.Join(a, b)))

	require.Len(t, chain, 4)
	assert.Same(t, a, chain[2])
	assert.Same(t, b, chain[3])
}
