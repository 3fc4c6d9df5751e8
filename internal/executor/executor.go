// Package executor drives a target.Registry's computed wave schedule:
// bounded-parallelism dispatch, fail-fast short-circuiting, final and
// build-failure hook targets, and exit-code determination.
package executor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"weave/internal/graph"
	"weave/internal/report"
	"weave/internal/target"
	"weave/internal/tracelog"
)

const (
	// ListTargetsFlag and its short form select the list reporter
	// instead of running a build.
	ListTargetsFlag      = "--listTargets"
	ListTargetsShortFlag = "-lt"

	// DotGraphFlag and its short form select the DOT reporter instead
	// of running a build.
	DotGraphFlag      = "--dotGraph"
	DotGraphShortFlag = "-dg"

	// DefaultExitCodeOnError is the process exit code used when a build
	// fails and the caller has not configured a different value.
	DefaultExitCodeOnError = 42
)

// Options configures one Run invocation. Values are resolved by an
// external caller (internal/config, internal/buildfile, or a direct Go
// caller) before Run is invoked; the executor itself never reads
// environment variables, files, or flags.
type Options struct {
	// Parallelism is the number of target bodies that may run
	// concurrently within a wave. Values <= 1 run waves flattened and
	// sequential.
	Parallelism int

	// SingleTarget, when true, skips dependencies entirely and runs
	// only the root target's body.
	SingleTarget bool

	// Sink receives all human-facing output. A nil Sink is treated as
	// tracelog.NopSink{}.
	Sink tracelog.Sink

	// ExitCodeOnError is returned by Run when the build fails. Defaults
	// to DefaultExitCodeOnError when zero.
	ExitCodeOnError int

	// PrintStackTrace, when true, additionally records a %+v rendering
	// of each captured error (meaningful for errors constructed with
	// github.com/pkg/errors, which attach a stack trace).
	PrintStackTrace bool
}

func (o Options) sink() tracelog.Sink {
	if o.Sink == nil {
		return tracelog.NopSink{}
	}
	return o.Sink
}

func (o Options) exitCodeOnError() int {
	if o.ExitCodeOnError == 0 {
		return DefaultExitCodeOnError
	}
	return o.ExitCodeOnError
}

const (
	stateRunning int32 = iota
	stateFailed
)

// Run executes targetName per the registry's computed schedule. It
// returns the process exit code (0 on success) and a non-nil error only
// for conditions that prevent scheduling at all (unknown target or
// pending description). A cycle through activated soft edges is not
// reported as an error: the scheduler visits each target once.
// Target-body failures are captured into the registry's
// error list, not returned here; check the returned exit code.
func Run(registry *target.Registry, targetName string, opts Options) (int, error) {
	sink := opts.sink()

	switch targetName {
	case ListTargetsFlag, ListTargetsShortFlag:
		tracelog.SafeCall(sink, func(s tracelog.Sink) { s.Log(report.List(registry)) })
		return 0, nil
	case DotGraphFlag, DotGraphShortFlag:
		tracelog.SafeCall(sink, func(s tracelog.Sink) { s.Log(report.DOT(registry)) })
		return 0, nil
	}

	if registry.PendingDescription() {
		return 0, pkgerrors.New("a description was set with no target to attach it to")
	}

	runID := uuid.New().String()
	start := time.Now()

	tracelog.SafeCall(sink, func(s tracelog.Sink) {
		s.TraceHeader(fmt.Sprintf("weave run %s: target %q", runID, targetName))
	})

	if err := report.PrintGraph(sink, registry, targetName, false); err != nil {
		return 0, err
	}

	var state int32 = stateRunning
	runCtx := &runContext{registry: registry, sink: sink, opts: opts, runID: runID, state: &state}

	if opts.SingleTarget {
		t, err := registry.GetTarget(targetName)
		if err != nil {
			return 0, err
		}
		runCtx.runSingleTarget(t)
	} else {
		sched := graph.NewScheduler(registry)
		waves, err := sched.DetermineBuildOrder(targetName)
		if err != nil {
			return 0, err
		}

		order := make([][]string, len(waves))
		for i, w := range waves {
			order[i] = append([]string{}, w...)
		}
		registry.SetCurrentOrder(order)
		report.PrintRunningOrder(sink, order, opts.Parallelism > 1)

		if opts.Parallelism > 1 {
			runCtx.runParallel(waves, opts.Parallelism)
		} else {
			runCtx.runSerial(waves)
		}
	}

	runFinalTargets(runCtx)
	runBuildFailureTargets(runCtx)

	tracelog.SafeCall(sink, func(s tracelog.Sink) {
		s.KillAllCreatedProcesses()
		s.CloseAllOpenTags()
	})

	_ = start // total duration is reconstructed from executedTimes in report.TimeSummary
	hasErrors := registry.HasErrors()
	tracelog.SafeCall(sink, func(s tracelog.Sink) {
		s.Log(report.TimeSummary(registry.ExecutedTimes(), hasErrors))
		if hasErrors {
			s.Log(report.ErrorSummary(registry.Errors()))
		}
	})

	if hasErrors {
		return opts.exitCodeOnError(), nil
	}
	return 0, nil
}

// runContext bundles the dependencies a single Run invocation's target
// bodies need, so worker goroutines don't close over Run's local
// variables directly.
type runContext struct {
	registry *target.Registry
	sink     tracelog.Sink
	opts     Options
	runID    string
	state    *int32
}

func (rc *runContext) failed() bool {
	return atomic.LoadInt32(rc.state) == stateFailed
}

func (rc *runContext) markFailed() {
	atomic.StoreInt32(rc.state, stateFailed)
}

// runSingleTarget runs one target's body, short-circuiting if the run
// has already failed. It never lets the body's panic or error escape:
// failures are captured via recordError.
func (rc *runContext) runSingleTarget(t *target.Target) {
	if rc.failed() {
		return
	}

	// Only the driver thread records the current target; in a parallel
	// wave this runs on a worker goroutine.
	onDriver := rc.opts.SingleTarget || rc.opts.Parallelism <= 1
	if onDriver {
		rc.registry.SetCurrentTarget(t.Name)
	}
	depString := joinDeps(t)
	tracelog.SafeCall(rc.sink, func(s tracelog.Sink) {
		s.TraceStartTarget(t.Name, t.Description, depString)
	})

	started := time.Now()
	err := invokeBody(t)
	duration := time.Since(started)

	rc.registry.AddExecutedTarget(t.Name, duration)
	tracelog.SafeCall(rc.sink, func(s tracelog.Sink) { s.TraceEndTarget(t.Name) })
	if onDriver {
		rc.registry.SetCurrentTarget("")
	}

	if err != nil {
		rc.recordError(t.Name, err)
		rc.markFailed()
	}
}

// invokeBody calls t.Body, converting a panic into an error so one
// misbehaving target body cannot crash the whole process.
func invokeBody(t *target.Target) (err error) {
	if t.Body == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Errorf("target %q panicked: %v", t.Name, r)
		}
	}()
	return t.Body()
}

func joinDeps(t *target.Target) string {
	if len(t.HardDependencies) == 0 {
		return ""
	}
	out := t.HardDependencies[0]
	for _, d := range t.HardDependencies[1:] {
		out += ", " + d
	}
	return out
}

// recordError expands a MultiError into one entry per sub-error
// (preceded by a top-level entry), recognizes TestsFailedError to skip
// the vendor-error notification, and optionally records a stack-trace
// line when PrintStackTrace is set.
func (rc *runContext) recordError(targetName string, err error) {
	if merr, ok := err.(MultiError); ok {
		rc.registry.RecordError(targetName, merr.Error())
		for _, sub := range merr {
			rc.recordError(targetName, sub)
		}
		return
	}

	rc.registry.RecordError(targetName, err.Error())

	var testsFailed *TestsFailedError
	if !pkgerrors.As(err, &testsFailed) {
		tracelog.SafeCall(rc.sink, func(s tracelog.Sink) { s.SendVendorError(err.Error()) })
	}

	if rc.opts.PrintStackTrace {
		rc.registry.RecordError(targetName, fmt.Sprintf("%+v", err))
	}
}

// runSerial flattens waves (already ordered lowest-level-first, i.e.
// deepest dependency first) into one sequence and runs it in order.
func (rc *runContext) runSerial(waves []graph.Wave) {
	for _, wave := range waves {
		for _, name := range wave {
			if rc.failed() {
				return
			}
			t, err := rc.registry.GetTarget(name)
			if err != nil {
				rc.recordError(name, err)
				rc.markFailed()
				return
			}
			rc.runSingleTarget(t)
		}
	}
}

// runParallel runs each wave with up to concurrency worker goroutines,
// blocking until the whole wave completes before starting the next one.
// A failure in wave i does not cancel still-running targets in wave i;
// subsequent waves short-circuit immediately via runSingleTarget.
func (rc *runContext) runParallel(waves []graph.Wave, concurrency int) {
	for _, wave := range waves {
		var wg sync.WaitGroup
		sem := make(chan struct{}, concurrency)

		for _, name := range wave {
			name := name
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				t, err := rc.registry.GetTarget(name)
				if err != nil {
					rc.recordError(name, err)
					rc.markFailed()
					return
				}
				rc.runSingleTarget(t)
			}()
		}
		wg.Wait()
	}
}

// runFinalTargets runs every activated final hook, independent of
// whether the main run failed. Hooks never short-circuit on prior
// errors; each runs in its own failure scope.
func runFinalTargets(rc *runContext) {
	for _, name := range rc.registry.ActivatedFinalTargets() {
		t, err := rc.registry.GetTarget(name)
		if err != nil {
			continue
		}
		runHook(rc, t)
	}
}

// runBuildFailureTargets runs every activated build-failure hook, but
// only if the main run captured at least one error.
func runBuildFailureTargets(rc *runContext) {
	if !rc.registry.HasErrors() {
		return
	}
	for _, name := range rc.registry.ActivatedBuildFailureTargets() {
		t, err := rc.registry.GetTarget(name)
		if err != nil {
			continue
		}
		runHook(rc, t)
	}
}

// runHook runs t.Body unconditionally (hooks do not consult the
// short-circuit state) and records its duration/error like a regular
// target run.
func runHook(rc *runContext, t *target.Target) {
	tracelog.SafeCall(rc.sink, func(s tracelog.Sink) {
		s.TraceStartTarget(t.Name, t.Description, "")
	})
	started := time.Now()
	err := invokeBody(t)
	duration := time.Since(started)
	rc.registry.AddExecutedTarget(t.Name, duration)
	tracelog.SafeCall(rc.sink, func(s tracelog.Sink) { s.TraceEndTarget(t.Name) })
	if err != nil {
		rc.recordError(t.Name, err)
	}
}
