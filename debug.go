package stitch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/danpasecinic/stitch/aop"
	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

type GraphInfo struct {
	Services []ServiceInfo
}

type ServiceInfo struct {
	Key          string
	Type         string
	Dependencies []string
	Dependents   []string
	Instantiated bool
	Proxied      bool
	Lazy         bool
	Scope        string
}

func (c *Container) Graph() GraphInfo {
	keys := c.internal.Keys()
	sort.Strings(keys)

	graph := c.internal.Graph()
	services := make([]ServiceInfo, 0, len(keys))

	for _, key := range keys {
		entry, ok := c.internal.Entry(key)
		if !ok {
			continue
		}
		instance, instantiated := c.internal.Instance(key)

		services = append(
			services, ServiceInfo{
				Key:          key,
				Type:         ireflect.TypeKeyOf(entry.Type),
				Dependencies: graph.Dependencies(key),
				Dependents:   graph.Dependents(key),
				Instantiated: instantiated,
				Proxied:      instantiated && aop.IsProxy(instance),
				Lazy:         entry.Lazy,
				Scope:        entry.Scope.String(),
			},
		)
	}

	return GraphInfo{Services: services}
}

func (c *Container) PrintGraph() {
	c.FprintGraph(os.Stdout)
}

// FprintGraph writes one line per bean: ● created, ○ not yet, ◆ proxied.
func (c *Container) FprintGraph(w io.Writer) {
	info := c.Graph()

	if len(info.Services) == 0 {
		_, _ = fmt.Fprintln(w, "(empty container)")
		return
	}

	for _, svc := range info.Services {
		status := "○"
		switch {
		case svc.Proxied:
			status = "◆"
		case svc.Instantiated:
			status = "●"
		}

		line := status + " " + svc.Key
		if svc.Scope != Singleton.String() {
			line += " [" + svc.Scope + "]"
		}
		if len(svc.Dependencies) > 0 {
			line += " ← " + strings.Join(svc.Dependencies, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func (c *Container) SprintGraph() string {
	var sb strings.Builder
	c.FprintGraph(&sb)
	return sb.String()
}

func (c *Container) FprintGraphDOT(w io.Writer) {
	info := c.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, svc := range info.Services {
		style := ""
		switch {
		case svc.Proxied:
			style = ", style=filled, fillcolor=orange"
		case svc.Instantiated:
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", svc.Key, shortLabel(svc.Key), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, svc := range info.Services {
		for _, dep := range svc.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", svc.Key, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (c *Container) SprintGraphDOT() string {
	var sb strings.Builder
	c.FprintGraphDOT(&sb)
	return sb.String()
}

func shortLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}

// FprintAdvisors writes the advisor chain of every bean that has one, in
// the order the advice runs.
func (c *Container) FprintAdvisors(ctx context.Context, w io.Writer) error {
	keys := c.internal.Keys()
	sort.Strings(keys)

	printed := false
	for _, key := range keys {
		advisors, err := c.Advisors(ctx, key)
		if err != nil {
			return err
		}
		if len(advisors) == 0 {
			continue
		}

		printed = true
		_, _ = fmt.Fprintln(w, key)
		for i, a := range advisors {
			_, _ = fmt.Fprintf(w, "  %d. %v\n", i+1, a)
		}
	}

	if !printed {
		_, _ = fmt.Fprintln(w, "(no advised beans)")
	}
	return nil
}
