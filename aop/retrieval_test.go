package aop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/stitch/bean"
)

func noopAdvisor() Advisor {
	return NewAdvisor(BeforeFunc(func(Method, []any, any) error { return nil }))
}

func TestAdvisorRetrieval_RegistrationOrder(t *testing.T) {
	t.Parallel()

	first, second := noopAdvisor(), noopAdvisor()
	ff := newFakeFactory()
	ff.add("first", advisorType, true, valueOf(first))
	ff.add("orders", TypeOf[OrderService](), true, valueOf(&orderService{}))
	ff.add("second", advisorType, true, valueOf(second))

	advisors, err := NewAdvisorRetrieval(ff, nil).FindAdvisorBeans(context.Background())
	require.NoError(t, err)
	require.Len(t, advisors, 2)
	assert.Same(t, first, advisors[0])
	assert.Same(t, second, advisors[1])
	assert.Zero(t, ff.createdCount("orders"))
}

func TestAdvisorRetrieval_SkipsBeansInCreation(t *testing.T) {
	t.Parallel()

	ff := newFakeFactory()
	ff.add("busy", advisorType, true, valueOf(noopAdvisor()))
	ff.add("ready", advisorType, true, valueOf(noopAdvisor()))
	ff.setInCreation("busy", true)

	advisors, err := NewAdvisorRetrieval(ff, nil).FindAdvisorBeans(context.Background())
	require.NoError(t, err)
	assert.Len(t, advisors, 1)
	assert.Zero(t, ff.createdCount("busy"))
}

func TestAdvisorRetrieval_DependencyInCreation(t *testing.T) {
	t.Parallel()

	inCreation := func(context.Context) (any, error) {
		return nil, &bean.CreationError{Bean: "dep", Cause: &bean.InCreationError{Bean: "dep"}}
	}

	t.Run("skipped while the dependency is in creation", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFactory()
		ff.add("needsDep", advisorType, true, inCreation)
		ff.setInCreation("dep", true)

		advisors, err := NewAdvisorRetrieval(ff, nil).FindAdvisorBeans(context.Background())
		require.NoError(t, err)
		assert.Empty(t, advisors)
	})

	t.Run("returned once the dependency is done", func(t *testing.T) {
		t.Parallel()

		ff := newFakeFactory()
		ff.add("needsDep", advisorType, true, inCreation)

		_, err := NewAdvisorRetrieval(ff, nil).FindAdvisorBeans(context.Background())
		require.Error(t, err)
		_, ok := bean.InCreationCause(err)
		assert.True(t, ok)
	})
}

func TestAdvisorRetrieval_OtherErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ff := newFakeFactory()
	ff.add("broken", advisorType, true, func(context.Context) (any, error) { return nil, boom })

	_, err := NewAdvisorRetrieval(ff, nil).FindAdvisorBeans(context.Background())
	assert.ErrorIs(t, err, boom)

	var ce *bean.CreationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken", ce.Bean)
}

func TestAdvisorRetrieval_NotAnAdvisor(t *testing.T) {
	t.Parallel()

	ff := newFakeFactory()
	ff.add("liar", advisorType, true, valueOf("not an advisor"))

	_, err := NewAdvisorRetrieval(ff, nil).FindAdvisorBeans(context.Background())
	assert.True(t, IsConfigError(err))
}

func TestAdvisorRetrieval_EligibilityAndNameCache(t *testing.T) {
	t.Parallel()

	ff := newFakeFactory()
	ff.add("keep", advisorType, true, valueOf(noopAdvisor()))
	ff.add("drop", advisorType, true, valueOf(noopAdvisor()))

	r := NewAdvisorRetrieval(ff, nil)
	r.IsEligible = func(name string) bool { return name != "drop" }

	advisors, err := r.FindAdvisorBeans(context.Background())
	require.NoError(t, err)
	assert.Len(t, advisors, 1)
	assert.Zero(t, ff.createdCount("drop"))

	ff.add("late", advisorType, true, valueOf(noopAdvisor()))
	advisors, err = r.FindAdvisorBeans(context.Background())
	require.NoError(t, err)
	assert.Len(t, advisors, 1, "advisor names are scanned once")
}
