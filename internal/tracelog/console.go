package tracelog

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleSink writes build output to a writer, using zap as the
// structured logging backbone and fatih/color for important/error
// lines. Color is disabled automatically when the destination
// is not a terminal, so piped output (CI logs, redirected dot graphs)
// stays plain text.
type ConsoleSink struct {
	out    io.Writer
	logger *zap.SugaredLogger
	color  bool

	important *color.Color
	errorC    *color.Color

	mu        sync.Mutex
	processes []*exec.Cmd
}

// NewConsoleSink builds a ConsoleSink writing to out. colorCapable is
// normally isatty.IsTerminal(fd), injected so callers can force color on
// or off (e.g. for tests).
func NewConsoleSink(out io.Writer, colorCapable bool) *ConsoleSink {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(out),
		zapcore.DebugLevel,
	)
	logger := zap.New(core)

	important := color.New(color.FgCyan, color.Bold)
	errorC := color.New(color.FgRed, color.Bold)
	if !colorCapable {
		important.DisableColor()
		errorC.DisableColor()
	}

	return &ConsoleSink{
		out:       out,
		logger:    logger.Sugar(),
		color:     colorCapable,
		important: important,
		errorC:    errorC,
	}
}

// NewAutoConsoleSink builds a ConsoleSink writing to out, detecting
// color capability via go-isatty when out is an *os.File.
func NewAutoConsoleSink(out io.Writer) *ConsoleSink {
	capable := false
	if f, ok := out.(*os.File); ok {
		capable = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return NewConsoleSink(out, capable)
}

func (c *ConsoleSink) Log(line string) {
	fmt.Fprintln(c.out, line)
}

func (c *ConsoleSink) Logf(format string, args ...any) {
	c.Log(fmt.Sprintf(format, args...))
}

func (c *ConsoleSink) Trace(line string) {
	c.logger.Debug(line)
}

func (c *ConsoleSink) Tracef(format string, args ...any) {
	c.logger.Debugf(format, args...)
}

func (c *ConsoleSink) TraceError(line string) {
	c.errorC.Fprintln(c.out, line)
}

func (c *ConsoleSink) TraceLine() {
	fmt.Fprintln(c.out)
}

func (c *ConsoleSink) TraceHeader(line string) {
	c.important.Fprintln(c.out, line)
}

func (c *ConsoleSink) TraceImportant(line string) {
	c.important.Fprintln(c.out, line)
}

func (c *ConsoleSink) TraceStartTarget(name, description, depString string) {
	label := name
	if description != "" {
		label = fmt.Sprintf("%s (%s)", name, description)
	}
	if depString != "" {
		c.logger.Infof("Starting target %s [deps: %s]", label, depString)
		return
	}
	c.logger.Infof("Starting target %s", label)
}

func (c *ConsoleSink) TraceEndTarget(name string) {
	c.logger.Infof("Finished target %s", name)
}

func (c *ConsoleSink) SendVendorError(msg string) {
	c.errorC.Fprintln(c.out, "vendor-error:", msg)
}

func (c *ConsoleSink) CloseAllOpenTags() {
	_ = c.logger.Sync()
}

// TrackProcess registers a started *exec.Cmd so KillAllCreatedProcesses
// can terminate it if the build aborts. Shell-command target bodies
// (internal/buildfile) call this after starting a command.
func (c *ConsoleSink) TrackProcess(cmd *exec.Cmd) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processes = append(c.processes, cmd)
}

// KillAllCreatedProcesses signals the process group of every tracked,
// still-running command. Child-process lifecycle is an external
// collaborator's concern per the core contract; this is that concrete
// implementation at the outermost layer.
func (c *ConsoleSink) KillAllCreatedProcesses() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cmd := range c.processes {
		if cmd.Process == nil || cmd.ProcessState != nil {
			continue
		}
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	c.processes = nil
}
