package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// Phase is a step in the single-invocation lifecycle.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseResolved
	PhaseUnknownAction
	PhaseExecuting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseResolved:
		return "action_resolved"
	case PhaseUnknownAction:
		return "unknown_action"
	case PhaseExecuting:
		return "executing"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome describes how one invocation ended.
type Outcome struct {
	Action   string
	Args     []string
	Phase    Phase
	Status   int
	Err      error
	Duration time.Duration
}

// Dispatcher runs exactly one action per invocation.
type Dispatcher struct {
	registry      *Registry
	defaultAction string
	stderr        io.Writer
	logger        *slog.Logger
	observer      func(Outcome)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStderr sets the writer for diagnostics (default os.Stderr).
func WithStderr(w io.Writer) Option {
	return func(d *Dispatcher) {
		d.stderr = w
	}
}

// WithLogger sets the logger used for lifecycle tracing.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithDefaultAction overrides the action used for an empty invocation.
func WithDefaultAction(name string) Option {
	return func(d *Dispatcher) {
		d.defaultAction = name
	}
}

// WithObserver registers fn to receive the final Outcome of every dispatch.
func WithObserver(fn func(Outcome)) Option {
	return func(d *Dispatcher) {
		d.observer = fn
	}
}

// New creates a dispatcher over registry.
func New(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:      registry,
		defaultAction: DefaultAction,
		stderr:        os.Stderr,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs the invocation and returns the exit status.
func (d *Dispatcher) Dispatch(ctx context.Context, invocation []string) int {
	return d.Execute(ctx, invocation).Status
}

// Execute runs the invocation and returns the full Outcome.
func (d *Dispatcher) Execute(ctx context.Context, invocation []string) Outcome {
	start := time.Now()
	out := d.execute(ctx, invocation)
	out.Duration = time.Since(start)

	d.logger.Debug("dispatch terminated",
		"action", out.Action,
		"phase", out.Phase.String(),
		"status", out.Status,
		"duration", out.Duration,
	)
	if d.observer != nil {
		d.observer(out)
	}
	return out
}

func (d *Dispatcher) execute(ctx context.Context, invocation []string) Outcome {
	name, args := d.defaultAction, []string{}
	if len(invocation) > 0 {
		name, args = invocation[0], invocation[1:]
	}
	out := Outcome{Action: name, Args: args, Phase: PhaseStarted}
	d.logger.Debug("dispatch started", "action", name, "args", len(args))

	action, ok := d.registry.Lookup(name)
	if !ok {
		out.Phase = PhaseUnknownAction
		out.Status = ExitUsage
		out.Err = fmt.Errorf("unknown action %q", name)
		fmt.Fprintf(d.stderr, "error: unknown action %q\n", name)
		fmt.Fprintf(d.stderr, "valid actions: %s\n", strings.Join(d.registry.Names(), ", "))
		return out
	}
	out.Phase = PhaseResolved
	d.logger.Debug("action resolved", "action", name)

	out.Phase = PhaseExecuting
	err := invoke(ctx, action.Handler, args)
	if err == nil && ctx.Err() != nil {
		// A signal that lands after the handler's last context check still must not exit 0.
		err = fmt.Errorf("interrupted: %w", ctx.Err())
	}
	if err == nil {
		out.Phase = PhaseSucceeded
		out.Status = ExitSuccess
		return out
	}

	out.Phase = PhaseFailed
	out.Err = err
	out.Status = statusFor(err)
	if errors.Is(ctx.Err(), context.Canceled) {
		out.Status = ExitInterrupted
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		d.logger.Debug("action panicked", "action", name, "stack", string(panicErr.Stack))
	}
	fmt.Fprintf(d.stderr, "error: %s: %s\n", name, singleLine(err.Error()))
	return out
}

// invoke calls h, converting a panic into a *PanicError.
func invoke(ctx context.Context, h Handler, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return h(ctx, args)
}

func singleLine(s string) string {
	s = strings.TrimSpace(s)
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}

// PrintUsage writes a help listing of the registered actions to w.
func (d *Dispatcher) PrintUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "Usage: %s [action] [action-args...]\n\n", program)
	fmt.Fprintf(w, "Actions (default %q):\n", d.defaultAction)

	width := 0
	for _, name := range d.registry.Names() {
		if len(name) > width {
			width = len(name)
		}
	}
	for _, a := range d.registry.Actions() {
		fmt.Fprintf(w, "  %-*s  %s\n", width, a.Name, a.Description)
	}
	fmt.Fprintf(w, "\nRun '%s <action> --help' for action flags.\n", program)
}
