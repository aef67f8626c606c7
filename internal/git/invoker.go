package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
)

// State is the lifecycle position of one git invocation.
type State int

const (
	Idle State = iota
	Running
	Succeeded
	Failed
	Retrying
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Retrying:
		return "retrying"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Error is returned when git exits non-zero.
type Error struct {
	Args     []string
	Message  string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	prefix := "git " + strings.Join(e.Args, " ")
	if e.Message != "" {
		prefix = e.Message + " (" + prefix + ")"
	}
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}

func (e *Error) Unwrap() error { return e.Err }

// RetryPolicy decides whether a failed invocation runs again.
type RetryPolicy interface {
	ShouldRetry(failure *Error) (bool, error)
}

// NoRetry never retries.
type NoRetry struct{}

func (NoRetry) ShouldRetry(*Error) (bool, error) { return false, nil }

// AskRetry shows git's stderr and lets the user choose.
type AskRetry struct {
	UI    *output.UI
	Asker prompt.Asker
}

func (p AskRetry) ShouldRetry(failure *Error) (bool, error) {
	p.UI.Error("%s", failure.Message)
	if msg := strings.TrimSpace(failure.Stderr); msg != "" {
		fmt.Fprintln(p.UI.ErrOut, msg)
	}
	return p.Asker.Confirm("Do you want to retry?", true)
}

// Invoker runs the git executable. Each Run walks
// Idle -> Running -> Succeeded, or Running -> Failed -> Retrying -> Running
// until the policy gives up, ending in Aborted.
type Invoker struct {
	Runner proc.Runner
	Binary string
	UI     *output.UI

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)

	state State
}

// NewInvoker returns an Invoker for the git binary at path.
func NewInvoker(runner proc.Runner, binary string, ui *output.UI) *Invoker {
	return &Invoker{Runner: runner, Binary: binary, UI: ui}
}

// State returns the state reached by the last Run.
func (i *Invoker) State() State { return i.state }

func (i *Invoker) move(to State) {
	if i.OnTransition != nil {
		i.OnTransition(i.state, to)
	}
	i.state = to
}

// Invocation is one git command line.
type Invocation struct {
	Dir     string
	Args    []string
	Message string
	Policy  RetryPolicy
}

// Run executes inv, retrying as long as its policy agrees.
func (i *Invoker) Run(ctx context.Context, inv Invocation) (proc.Result, error) {
	policy := inv.Policy
	if policy == nil {
		policy = NoRetry{}
	}
	i.state = Idle

	for {
		i.move(Running)
		if i.UI != nil {
			i.UI.VerboseLog("git %s (in %s)", strings.Join(inv.Args, " "), inv.Dir)
		}
		res, err := i.Runner.Run(ctx, proc.Command{Name: i.Binary, Args: inv.Args, Dir: inv.Dir})
		if err == nil {
			i.move(Succeeded)
			return res, nil
		}

		i.move(Failed)
		failure := &Error{Args: inv.Args, Message: inv.Message, Stderr: res.Stderr, ExitCode: res.ExitCode, Err: err}
		var exitErr *proc.ExitError
		if !errors.As(err, &exitErr) {
			// Start failures (missing binary) are never retried.
			i.move(Aborted)
			return res, failure
		}

		retry, perr := policy.ShouldRetry(failure)
		if perr != nil {
			i.move(Aborted)
			return res, perr
		}
		if !retry {
			i.move(Aborted)
			return res, failure
		}
		i.move(Retrying)
	}
}
