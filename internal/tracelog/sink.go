// Package tracelog implements the logging/tracing sink contract the
// executor consumes: a set of named operations for human-facing build
// output, backed by zap for structured logging and colorized for
// interactive terminals.
package tracelog

// Sink is the collaborator the executor and reporters call for all
// human-facing output. Implementations must be inert: a panicking or
// slow Sink method must never take down a build. Call sites should
// route through SafeCall rather than invoking Sink methods directly.
type Sink interface {
	Log(line string)
	Logf(format string, args ...any)
	Trace(line string)
	Tracef(format string, args ...any)
	TraceError(line string)
	TraceLine()
	TraceHeader(line string)
	TraceImportant(line string)
	TraceStartTarget(name, description, depString string)
	TraceEndTarget(name string)
	SendVendorError(msg string)
	CloseAllOpenTags()
	KillAllCreatedProcesses()
}

// NopSink discards everything. Useful in tests that don't care about
// output.
type NopSink struct{}

func (NopSink) Log(string)                              {}
func (NopSink) Logf(string, ...any)                      {}
func (NopSink) Trace(string)                             {}
func (NopSink) Tracef(string, ...any)                    {}
func (NopSink) TraceError(string)                        {}
func (NopSink) TraceLine()                               {}
func (NopSink) TraceHeader(string)                       {}
func (NopSink) TraceImportant(string)                    {}
func (NopSink) TraceStartTarget(string, string, string)  {}
func (NopSink) TraceEndTarget(string)                    {}
func (NopSink) SendVendorError(string)                   {}
func (NopSink) CloseAllOpenTags()                        {}
func (NopSink) KillAllCreatedProcesses()                 {}

// SafeCall invokes fn against sink and swallows any panic, guaranteeing
// the Sink's inertness even if an implementation is buggy. If sink is
// nil, SafeCall is a no-op.
func SafeCall(sink Sink, fn func(Sink)) {
	if sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(sink)
}
