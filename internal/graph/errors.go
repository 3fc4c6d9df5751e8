// Package graph implements dependency admission, traversal, and level
// scheduling over a target.Registry.
package graph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// EdgeKind distinguishes hard dependencies (pulled into any run, must
// complete first) from soft dependencies (ordering only, activated iff
// already hard-reachable from the run root).
type EdgeKind int

const (
	Hard EdgeKind = iota
	Soft
)

func (k EdgeKind) String() string {
	if k == Soft {
		return "soft"
	}
	return "hard"
}

// ErrCyclicDependency is returned by the Admission operations when
// adding an edge would introduce a cycle over the same edge kind.
type ErrCyclicDependency struct {
	Kind   EdgeKind
	Parent string
	Child  string
	Path   []string
}

func (e *ErrCyclicDependency) Error() string {
	return fmt.Sprintf("cyclic %s dependency: adding %q -> %q would cycle through %s",
		e.Kind, e.Parent, e.Child, strings.Join(e.Path, " -> "))
}

func newCyclicDependency(kind EdgeKind, parent, child string, path []string) error {
	return errors.WithStack(&ErrCyclicDependency{Kind: kind, Parent: parent, Child: child, Path: path})
}
