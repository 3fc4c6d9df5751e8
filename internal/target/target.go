// Package target defines the domain model for weave's build-target
// graph: the Target itself, the case-insensitive Registry that owns
// target identity, and the run-scoped state (executed targets, their
// durations, and captured errors) the executor accumulates against it.
//
// Design constraints:
//   - Target identity is case-insensitive; the Registry stores a single
//     canonical display form and normalizes every lookup.
//   - Registry mutation (CreateTarget, dependency admission, hook
//     registration) is confined to the driver thread between runs; the
//     only state a worker goroutine touches during a run is through
//     AddExecutedTarget and RecordError, both mutex-guarded.
package target

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Body is the opaque, side-effecting callable a Target runs. It takes
// no arguments and signals failure through its return value; it is
// never inspected or introspected by the Registry.
type Body func() error

// Target is a named build step: a body plus its dependency lists.
// Dependency order is observable by reporters (internal/report); it
// does not affect scheduling (internal/graph computes levels from the
// set of edges, not their order).
type Target struct {
	// Name is the canonical display form, as first registered.
	Name string

	// Description is an optional human-readable string, set via the
	// one-shot pending-description slot (see Registry.SetDescription).
	Description string

	// HardDependencies is the ordered list of names this target pulls
	// into any run rooted at it; all must complete before it runs.
	HardDependencies []string

	// SoftDependencies is the ordered list of names this target must
	// run after, but only if they are already part of the run (pulled
	// in by some hard edge from the run root).
	SoftDependencies []string

	// Body is the callable this target executes. A nil Body is treated
	// as a no-op by the executor.
	Body Body
}

// ExecutedEntry records one target's completed run: its name and wall
// clock duration, in completion order.
type ExecutedEntry struct {
	Name     string
	Duration time.Duration
}

// ErrorEntry records one captured target-body failure.
type ErrorEntry struct {
	Target  string
	Message string
}

// hookEntry tracks a hook target's activation flag alongside its
// insertion order, since spec.md requires hooks to run in the order
// they were registered.
type hookEntry struct {
	name      string
	activated bool
}

// Registry stores target definitions keyed by case-insensitive name,
// the two auxiliary sets of activatable hook targets, and all
// run-scoped state accumulated by a single invocation of Run. It is
// process-scoped and resettable: Reset clears everything so a process
// may drive multiple independent builds in sequence.
type Registry struct {
	mu sync.Mutex

	targets    map[string]*Target
	names      []string // canonical names, insertion order

	finalTargets        map[string]*hookEntry
	finalOrder          []string
	buildFailureTargets map[string]*hookEntry
	buildFailureOrder   []string

	executed      map[string]bool
	executedTimes []ExecutedEntry
	errors        []ErrorEntry

	pendingDescription *string

	currentTarget string
	currentOrder  [][]string
	defaultTarget string
}

// New returns an empty Registry.
func New() *Registry {
	r := &Registry{}
	r.init()
	return r
}

func (r *Registry) init() {
	r.targets = map[string]*Target{}
	r.names = nil
	r.finalTargets = map[string]*hookEntry{}
	r.finalOrder = nil
	r.buildFailureTargets = map[string]*hookEntry{}
	r.buildFailureOrder = nil
	r.executed = map[string]bool{}
	r.executedTimes = nil
	r.errors = nil
	r.pendingDescription = nil
	r.currentTarget = ""
	r.currentOrder = nil
	r.defaultTarget = ""
}

// Reset clears all registry state (targets, hooks, and run state) so
// the process may start a fresh, independent build.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()
}

func lower(s string) string {
	return strings.ToLower(s)
}

// SetDescription assigns the one-shot pending-description slot,
// consumed by the next CreateTarget (or RegisterFinal/
// RegisterBuildFailure). It fails if a description is already pending
// and has not yet been consumed.
func (r *Registry) SetDescription(text string) error {
	if r.pendingDescription != nil {
		return fmt.Errorf("a description is already pending: %q", *r.pendingDescription)
	}
	r.pendingDescription = &text
	return nil
}

// PendingDescription reports whether a description has been set via
// SetDescription but not yet consumed by a target creation.
func (r *Registry) PendingDescription() bool {
	return r.pendingDescription != nil
}

func (r *Registry) consumePendingDescription() string {
	if r.pendingDescription == nil {
		return ""
	}
	d := *r.pendingDescription
	r.pendingDescription = nil
	return d
}

// CreateTarget creates a Target named name with the given body, empty
// dependency lists, and the currently pending description (if any).
// It fails if name is already registered under any case (the open
// question in spec.md §9 is resolved in favor of rejecting rather than
// silently overwriting).
func (r *Registry) CreateTarget(name string, body Body) (*Target, error) {
	if name == "" {
		return nil, fmt.Errorf("target name must not be empty")
	}
	key := lower(name)
	if _, exists := r.targets[key]; exists {
		return nil, fmt.Errorf("target %q already registered", name)
	}

	t := &Target{
		Name:        name,
		Description: r.consumePendingDescription(),
		Body:        body,
	}
	r.targets[key] = t
	r.names = append(r.names, name)
	return t, nil
}

// TargetBuilder is the non-ambient alternative to SetDescription +
// CreateTarget's pending-description slot: it carries a target's
// description and body as plain fields on the builder value itself,
// with no Registry-global state touched until Register is called.
type TargetBuilder struct {
	registry    *Registry
	name        string
	description string
	body        Body
}

// NewTargetBuilder starts building a target named name against this
// registry. Register must be called to actually create it.
func (r *Registry) NewTargetBuilder(name string) *TargetBuilder {
	return &TargetBuilder{registry: r, name: name}
}

// Describe sets the builder's pending description and returns the
// builder for chaining.
func (b *TargetBuilder) Describe(text string) *TargetBuilder {
	b.description = text
	return b
}

// Body sets the builder's target body and returns the builder for
// chaining.
func (b *TargetBuilder) Body(body Body) *TargetBuilder {
	b.body = body
	return b
}

// Register creates the target via the registry's ordinary
// CreateTarget, with the builder's description attached directly
// (bypassing the pending-description slot entirely, since the builder
// never shares mutable state with any other in-flight registration).
func (b *TargetBuilder) Register() (*Target, error) {
	pending := b.registry.pendingDescription
	b.registry.pendingDescription = nil
	t, err := b.registry.CreateTarget(b.name, b.body)
	b.registry.pendingDescription = pending
	if err != nil {
		return nil, err
	}
	t.Description = b.description
	return t, nil
}

// Template is a thin convenience for instantiating similarly-shaped
// targets: a fixed set of default hard dependencies plus a body
// factory parameterized by a single string.
type Template struct {
	defaultDependencies []string
	bodyFactory         func(parameter string) Body
}

// CreateTemplate returns a Template that hard-depends on
// defaultDependencies and builds its body by calling bodyFactory with
// the instantiation parameter.
func CreateTemplate(defaultDependencies []string, bodyFactory func(parameter string) Body) *Template {
	return &Template{
		defaultDependencies: append([]string{}, defaultDependencies...),
		bodyFactory:         bodyFactory,
	}
}

// InstantiateTemplate creates a target named name whose body is
// tmpl.bodyFactory(parameter) and which hard-depends on
// tmpl.defaultDependencies. The dependency names are appended directly,
// not through internal/graph's Admission, so they are neither resolved
// nor cycle-checked here; an unknown name is reported when a run that
// reaches this target is scheduled.
func (r *Registry) InstantiateTemplate(tmpl *Template, name, parameter string) (*Target, error) {
	t, err := r.CreateTarget(name, tmpl.bodyFactory(parameter))
	if err != nil {
		return nil, err
	}
	t.HardDependencies = append(t.HardDependencies, tmpl.defaultDependencies...)
	return t, nil
}

// RegisterFinal creates a target named name and inserts it into the
// final-hook set with activated = false. Final hooks always run after
// the main sequence, once explicitly activated via ActivateFinal.
func (r *Registry) RegisterFinal(name string, body Body) (*Target, error) {
	t, err := r.CreateTarget(name, body)
	if err != nil {
		return nil, err
	}
	key := lower(name)
	r.finalTargets[key] = &hookEntry{name: name}
	r.finalOrder = append(r.finalOrder, key)
	return t, nil
}

// RegisterBuildFailure creates a target named name and inserts it into
// the build-failure-hook set with activated = false. Build-failure
// hooks run after the main sequence only if errors were captured, once
// explicitly activated via ActivateBuildFailure.
func (r *Registry) RegisterBuildFailure(name string, body Body) (*Target, error) {
	t, err := r.CreateTarget(name, body)
	if err != nil {
		return nil, err
	}
	key := lower(name)
	r.buildFailureTargets[key] = &hookEntry{name: name}
	r.buildFailureOrder = append(r.buildFailureOrder, key)
	return t, nil
}

// ActivateFinal flags name's final hook as activated. It fails if name
// is not a registered final hook.
func (r *Registry) ActivateFinal(name string) error {
	e, ok := r.finalTargets[lower(name)]
	if !ok {
		return fmt.Errorf("%q is not a registered final target", name)
	}
	e.activated = true
	return nil
}

// ActivateBuildFailure flags name's build-failure hook as activated.
// It fails if name is not a registered build-failure hook.
func (r *Registry) ActivateBuildFailure(name string) error {
	e, ok := r.buildFailureTargets[lower(name)]
	if !ok {
		return fmt.Errorf("%q is not a registered build-failure target", name)
	}
	e.activated = true
	return nil
}

// ActivatedFinalTargets returns the names of activated final hooks, in
// registration order.
func (r *Registry) ActivatedFinalTargets() []string {
	return activatedNames(r.finalTargets, r.finalOrder)
}

// ActivatedBuildFailureTargets returns the names of activated
// build-failure hooks, in registration order.
func (r *Registry) ActivatedBuildFailureTargets() []string {
	return activatedNames(r.buildFailureTargets, r.buildFailureOrder)
}

func activatedNames(set map[string]*hookEntry, order []string) []string {
	var out []string
	for _, key := range order {
		if e := set[key]; e != nil && e.activated {
			out = append(out, e.name)
		}
	}
	return out
}

// GetTarget performs a case-insensitive lookup. On failure it lists
// every known target name to help the caller spot typos.
func (r *Registry) GetTarget(name string) (*Target, error) {
	if t, ok := r.targets[lower(name)]; ok {
		return t, nil
	}
	known := r.ListTargetNames()
	sort.Strings(known)
	return nil, fmt.Errorf("unknown target %q; known targets: %s", name, strings.Join(known, ", "))
}

// ListTargetNames returns every registered target's canonical name.
func (r *Registry) ListTargetNames() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// SetDefaultTarget records the name a caller should run when none is
// given explicitly (typically loaded from a build file).
func (r *Registry) SetDefaultTarget(name string) {
	r.defaultTarget = name
}

// DefaultTarget returns the previously configured default target name,
// or the empty string if none was set.
func (r *Registry) DefaultTarget() string {
	return r.defaultTarget
}

// SetCurrentTarget records the name of the target currently executing
// on the driving thread, for diagnostics. Cleared by passing "".
func (r *Registry) SetCurrentTarget(name string) {
	r.currentTarget = name
}

// CurrentTarget returns the name most recently passed to
// SetCurrentTarget.
func (r *Registry) CurrentTarget() string {
	return r.currentTarget
}

// SetCurrentOrder records the last computed wave listing, consumed by
// the running-order reporter.
func (r *Registry) SetCurrentOrder(order [][]string) {
	r.currentOrder = order
}

// CurrentOrder returns the wave listing most recently passed to
// SetCurrentOrder.
func (r *Registry) CurrentOrder() [][]string {
	return r.currentOrder
}

// AddExecutedTarget records that name finished running in duration.
// Safe for concurrent use by worker goroutines within a parallel wave;
// this is the only registry mutation permitted off the driver thread
// besides RecordError.
func (r *Registry) AddExecutedTarget(name string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed[lower(name)] = true
	r.executedTimes = append(r.executedTimes, ExecutedEntry{Name: name, Duration: duration})
}

// RecordError appends an (target, message) entry to the accumulated
// error list. Safe for concurrent use by worker goroutines.
func (r *Registry) RecordError(targetName, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ErrorEntry{Target: targetName, Message: message})
}

// HasErrors reports whether any error has been recorded during the
// current invocation.
func (r *Registry) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// Executed reports whether name has run during the current invocation.
func (r *Registry) Executed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.executed[lower(name)]
}

// ExecutedTimes returns the (name, duration) pairs recorded so far, in
// completion order.
func (r *Registry) ExecutedTimes() []ExecutedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExecutedEntry, len(r.executedTimes))
	copy(out, r.executedTimes)
	return out
}

// Errors returns the accumulated (target, message) error records, in
// the order they were captured.
func (r *Registry) Errors() []ErrorEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorEntry, len(r.errors))
	copy(out, r.errors)
	return out
}
