// Package proctest provides a scripted proc.Runner for tests.
package proctest

import (
	"context"
	"strings"

	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
)

// HandlerFunc decides the outcome of one command.
type HandlerFunc func(cmd proc.Command) (proc.Result, error)

// Runner records every command and answers through Handle.
// A nil Handle makes every command succeed with empty output.
type Runner struct {
	Handle HandlerFunc
	Calls  []proc.Command
}

func (r *Runner) Run(_ context.Context, cmd proc.Command) (proc.Result, error) {
	r.Calls = append(r.Calls, cmd)
	if r.Handle == nil {
		return proc.Result{}, nil
	}
	return r.Handle(cmd)
}

// CommandLines returns the recorded calls rendered as strings.
func (r *Runner) CommandLines() []string {
	lines := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Called reports whether any recorded call contains all the given arguments in order.
func (r *Runner) Called(args ...string) bool {
	want := strings.Join(args, " ")
	for _, c := range r.Calls {
		if strings.Contains(strings.Join(c.Args, " "), want) {
			return true
		}
	}
	return false
}

// Fail builds the error a real runner returns on a non-zero exit.
func Fail(cmd proc.Command, code int, stderr string) (proc.Result, error) {
	return proc.Result{Stderr: stderr, ExitCode: code}, &proc.ExitError{Command: cmd.String(), Code: code, Stderr: stderr}
}

// Output builds a successful result with the given stdout.
func Output(stdout string) (proc.Result, error) {
	return proc.Result{Stdout: stdout}, nil
}
