// Package report renders a target.Registry's dependency graph, running
// order, and post-run summaries as human-facing text, DOT, or listings.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hako/durafmt"

	"weave/internal/graph"
	"weave/internal/target"
	"weave/internal/tracelog"
)

// PrintGraph renders the dependency tree rooted at root: one indented
// line per visit, "<==" for hard edges and "<=?" for soft edges. When
// verbose is false, repeat visits of an already-printed target are
// omitted; when true, every visit is printed.
func PrintGraph(sink tracelog.Sink, registry *target.Registry, root string, verbose bool) error {
	tr := graph.NewTraversal(registry)
	var lines []string
	var walkErr error

	_, _, err := tr.VisitDependencies(func(parent, name string, kind graph.EdgeKind, depth int, already bool) {
		if already && !verbose {
			return
		}
		if parent == "" {
			lines = append(lines, name)
			return
		}
		arrow := "<=="
		if kind == graph.Soft {
			arrow = "<=?"
		}
		indent := strings.Repeat("  ", depth)
		lines = append(lines, fmt.Sprintf("%s%s %s", indent, arrow, name))
	}, root)
	if err != nil {
		walkErr = err
	}
	if walkErr != nil {
		return walkErr
	}

	tracelog.SafeCall(sink, func(s tracelog.Sink) {
		for _, l := range lines {
			s.Trace(l)
		}
	})
	return nil
}

// DOT renders every registered target and dependency edge as a DOT
// digraph. Soft edges are tagged style=dotted.
func DOT(registry *target.Registry) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box];\n")

	names := registry.ListTargetNames()
	sorted := append([]string{}, names...)
	sort.Strings(sorted)

	for _, name := range sorted {
		fmt.Fprintf(&b, "  %q;\n", name)
	}
	for _, name := range sorted {
		t, err := registry.GetTarget(name)
		if err != nil {
			continue
		}
		for _, child := range t.HardDependencies {
			fmt.Fprintf(&b, "  %q -> %q;\n", name, child)
		}
		for _, child := range t.SoftDependencies {
			fmt.Fprintf(&b, "  %q -> %q [style=dotted];\n", name, child)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// List renders every registered target name and its description (if
// any), one per line, sorted by name.
func List(registry *target.Registry) string {
	names := registry.ListTargetNames()
	sorted := append([]string{}, names...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, name := range sorted {
		t, err := registry.GetTarget(name)
		if err != nil {
			continue
		}
		if t.Description != "" {
			fmt.Fprintf(&b, "%s - %s\n", t.Name, t.Description)
		} else {
			fmt.Fprintf(&b, "%s\n", t.Name)
		}
	}
	return b.String()
}

// PrintRunningOrder renders the computed waves: a flat list in serial
// mode, or numbered "Group - k" sections in parallel mode.
func PrintRunningOrder(sink tracelog.Sink, waves [][]string, parallel bool) {
	tracelog.SafeCall(sink, func(s tracelog.Sink) {
		if !parallel {
			s.TraceHeader("Running order:")
			for _, wave := range waves {
				for _, name := range wave {
					s.Trace(name)
				}
			}
			return
		}
		s.TraceHeader("Running order:")
		for i, wave := range waves {
			s.Tracef("Group - %d", i+1)
			for _, name := range wave {
				s.Tracef("  %s", name)
			}
		}
	})
}

// TimeSummary renders the per-target duration table, a total, and a
// final Status line.
func TimeSummary(entries []target.ExecutedEntry, hasErrors bool) string {
	var b strings.Builder

	longest := 0
	for _, e := range entries {
		if len(e.Name) > longest {
			longest = len(e.Name)
		}
	}

	var total time.Duration
	for _, e := range entries {
		total += e.Duration
		fmt.Fprintf(&b, "%-*s  %s\n", longest, e.Name, durafmt.Parse(e.Duration).String())
	}
	fmt.Fprintf(&b, "%-*s  %s\n", longest, "Total", durafmt.Parse(total).String())

	if hasErrors {
		b.WriteString("Status: Failure\n")
	} else {
		b.WriteString("Status: Ok\n")
	}
	return b.String()
}

// ErrorSummary enumerates accumulated error entries with 1-based
// indices.
func ErrorSummary(errors []target.ErrorEntry) string {
	if len(errors) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range errors {
		fmt.Fprintf(&b, "%d) [%s] %s\n", i+1, e.Target, e.Message)
	}
	return b.String()
}
