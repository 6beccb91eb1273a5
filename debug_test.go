package stitch_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/stitch"
)

func TestFprintGraph_Empty(t *testing.T) {
	t.Parallel()

	c := newContainer()
	assert.Equal(t, "(empty container)\n", c.SprintGraph())
}

func TestFprintGraph(t *testing.T) {
	t.Parallel()

	c := newContainer()
	require.NoError(t, stitch.ProvideValue(c, &Config{}))
	require.NoError(t, stitch.Provide(c, func(context.Context, stitch.Resolver) (*Database, error) {
		return &Database{}, nil
	}, stitch.WithDependencies("*"+pkg+".Config"), stitch.WithScope(stitch.Transient)))

	_ = stitch.MustInvoke[*Config](c)

	lines := strings.Split(strings.TrimSpace(c.SprintGraph()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "● *"+pkg+".Config", lines[0])
	assert.Equal(t, "○ *"+pkg+".Database [transient] ← *"+pkg+".Config", lines[1])
}

func TestFprintGraph_Proxied(t *testing.T) {
	t.Parallel()

	c := newAOPContainer(&recorder{})
	provideOrders(t, c, &orderService{})
	_ = stitch.MustInvoke[OrderService](c)

	out := c.SprintGraph()
	assert.Contains(t, out, "◆ "+pkg+".OrderService ← *"+pkg+".orderService\n")
	assert.Contains(t, out, "● *"+pkg+".orderService\n")

	info := c.Graph()
	for _, svc := range info.Services {
		if svc.Key == pkg+".OrderService" {
			assert.True(t, svc.Proxied)
			assert.Equal(t, "singleton", svc.Scope)
		}
	}
}

func TestFprintGraphDOT(t *testing.T) {
	t.Parallel()

	c := newContainer()
	provideServerGraph(t, c)
	_ = stitch.MustInvoke[*Server](c)

	var buf bytes.Buffer
	c.FprintGraphDOT(&buf)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph dependencies {\n"))
	assert.Contains(t, out, `label="stitch_test.Server", style=filled, fillcolor=lightblue`)
	assert.Contains(t, out, `"*`+pkg+`.Server" -> "*`+pkg+`.Database";`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Equal(t, out, c.SprintGraphDOT())
}
