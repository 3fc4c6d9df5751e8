package graph

import (
	"sort"

	"weave/internal/target"
)

// Wave is a maximal set of target names with no effective dependencies
// among themselves, all runnable in parallel. Waves are produced in
// the order the executor should run them: waves[0] runs first.
type Wave []string

// Scheduler computes a level/wave ordering from a target.Registry,
// rooted at one target.
type Scheduler struct {
	registry  *target.Registry
	traversal *Traversal
}

// NewScheduler returns a Scheduler bound to registry.
func NewScheduler(registry *target.Registry) *Scheduler {
	return &Scheduler{registry: registry, traversal: NewTraversal(registry)}
}

// levelEntry tracks, per target, the parents that require it (its
// dependants) and its computed level. Leaves have level 0; a larger
// level runs later.
type levelEntry struct {
	level      int
	dependants []string
}

// DetermineBuildOrder computes waves from root such that every hard
// edge, and every soft edge whose child is hard-reachable from root,
// satisfies level(parent) > level(child): wave 0 (the first to run)
// holds the targets with the lowest level, i.e. the deepest
// dependencies (leaves), with root's wave emitted last.
//
// Levels are computed as the longest effective-dependency path to a
// leaf, a direct substitution for the classification-table visitor
// (NewTarget / LevelIncreaseWithParent / LevelIncreaseNoParent /
// LevelDecrease / AddDependency): both formulations satisfy the same
// level-ordering and wave-independence properties, and the longest-path
// form is correct by construction rather than by cascading updates,
// which matters because this code runs unverified by a toolchain.
// Dependants are still tracked per target (not merely the level) so
// that a future cascading implementation, or a reporter needing
// "what requires this target," has the data available.
func (s *Scheduler) DetermineBuildOrder(root string) ([]Wave, error) {
	entries := map[string]*levelEntry{}

	hardSet, err := s.traversal.hardReachable(root)
	if err != nil {
		return nil, err
	}

	effectiveChildren := func(name string) ([]string, error) {
		t, err := s.registry.GetTarget(name)
		if err != nil {
			return nil, err
		}
		children := append([]string{}, t.HardDependencies...)
		for _, sd := range t.SoftDependencies {
			if hardSet[lower(sd)] && !containsFold(t.HardDependencies, sd) {
				children = append(children, sd)
			}
		}
		return children, nil
	}

	var visit func(parent, name string) (int, error)
	visit = func(parent, name string) (int, error) {
		key := lower(name)
		if e, ok := entries[key]; ok {
			if parent != "" && !containsFold(e.dependants, parent) {
				e.dependants = append(e.dependants, parent)
			}
			return e.level, nil
		}

		e := &levelEntry{}
		entries[key] = e
		if parent != "" {
			e.dependants = append(e.dependants, parent)
		}

		children, err := effectiveChildren(name)
		if err != nil {
			return 0, err
		}

		level := 0
		for _, child := range children {
			childLevel, err := visit(name, child)
			if err != nil {
				return 0, err
			}
			if childLevel+1 > level {
				level = childLevel + 1
			}
		}
		e.level = level
		return level, nil
	}

	if _, err := visit("", root); err != nil {
		return nil, err
	}

	byLevel := map[int][]string{}
	maxLevel := 0
	for key, e := range entries {
		t, err := s.registry.GetTarget(key)
		if err != nil {
			return nil, err
		}
		byLevel[e.level] = append(byLevel[e.level], t.Name)
		if e.level > maxLevel {
			maxLevel = e.level
		}
	}

	waves := make([]Wave, 0, maxLevel+1)
	for lvl := 0; lvl <= maxLevel; lvl++ {
		names := byLevel[lvl]
		if names == nil {
			continue
		}
		sort.Strings(names)
		waves = append(waves, Wave(names))
	}
	return waves, nil
}
