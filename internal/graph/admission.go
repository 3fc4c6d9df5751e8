package graph

import (
	"weave/internal/target"
)

// Admission validates and installs dependency edges between targets
// already registered in a target.Registry, rejecting additions that
// would introduce a cycle over the same edge kind.
type Admission struct {
	registry *target.Registry
}

// NewAdmission returns an Admission bound to registry.
func NewAdmission(registry *target.Registry) *Admission {
	return &Admission{registry: registry}
}

func depsOf(t *target.Target, kind EdgeKind) []string {
	if kind == Soft {
		return t.SoftDependencies
	}
	return t.HardDependencies
}

func setDeps(t *target.Target, kind EdgeKind, deps []string) {
	if kind == Soft {
		t.SoftDependencies = deps
	} else {
		t.HardDependencies = deps
	}
}

// reachable returns, for the given edge kind, every name transitively
// reachable from root following only edges of that kind. Used to prove
// that adding parent -> child would not cycle: it fails iff parent is
// reachable from child.
func (a *Admission) reachable(kind EdgeKind, root string) (map[string]bool, []string, error) {
	visited := map[string]bool{}
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		key := lower(name)
		if visited[key] {
			return nil
		}
		visited[key] = true
		path = append(path, name)

		t, err := a.registry.GetTarget(name)
		if err != nil {
			return err
		}
		for _, child := range depsOf(t, kind) {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(root); err != nil {
		return nil, nil, err
	}
	return visited, path, nil
}

func (a *Admission) checkCycle(kind EdgeKind, parent, child string) error {
	reach, path, err := a.reachable(kind, child)
	if err != nil {
		return err
	}
	if reach[lower(parent)] {
		return newCyclicDependency(kind, parent, child, append(path, parent))
	}
	return nil
}

func lower(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r - 'A' + 'a'
		}
		out = append(out, r)
	}
	return string(out)
}

func addDependency(a *Admission, kind EdgeKind, parent, child string, front bool) error {
	if _, err := a.registry.GetTarget(child); err != nil {
		return err
	}
	p, err := a.registry.GetTarget(parent)
	if err != nil {
		return err
	}

	if err := a.checkCycle(kind, parent, child); err != nil {
		return err
	}

	deps := depsOf(p, kind)
	if front {
		deps = append([]string{child}, deps...)
	} else {
		deps = append(deps, child)
	}
	setDeps(p, kind, deps)
	return nil
}

// AddHardDependencyEnd appends child to parent's hard dependencies.
func (a *Admission) AddHardDependencyEnd(parent, child string) error {
	return addDependency(a, Hard, parent, child, false)
}

// AddHardDependencyFront prepends child to parent's hard dependencies.
func (a *Admission) AddHardDependencyFront(parent, child string) error {
	return addDependency(a, Hard, parent, child, true)
}

// AddSoftDependencyEnd appends child to parent's soft dependencies.
func (a *Admission) AddSoftDependencyEnd(parent, child string) error {
	return addDependency(a, Soft, parent, child, false)
}

// AddSoftDependencyFront prepends child to parent's soft dependencies.
func (a *Admission) AddSoftDependencyFront(parent, child string) error {
	return addDependency(a, Soft, parent, child, true)
}

// AddHardDependencies applies AddHardDependencyEnd for each child, left
// to right.
func (a *Admission) AddHardDependencies(parent string, children []string) error {
	for _, c := range children {
		if err := a.AddHardDependencyEnd(parent, c); err != nil {
			return err
		}
	}
	return nil
}

// AddSoftDependencies applies AddSoftDependencyEnd for each child, left
// to right.
func (a *Admission) AddSoftDependencies(parent string, children []string) error {
	for _, c := range children {
		if err := a.AddSoftDependencyEnd(parent, c); err != nil {
			return err
		}
	}
	return nil
}
