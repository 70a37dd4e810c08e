// Package toolexec provides a narrow port for spawning external command-line
// tools and awaiting their outcome. The rest of the module depends only on
// this interface, never on os/exec directly, so higher layers are testable
// against a fake runner.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Outcome is the observable result of a finished child process: its exit
// code plus the captured standard streams. Stdout is captured for metadata
// queries; large media output is never routed through it.
type Outcome struct {
	// ExitCode is the process exit status. Zero means success.
	ExitCode int
	// Stdout is the captured standard output text.
	Stdout string
	// Stderr is the captured standard error text, used for diagnostics.
	Stderr string
}

// Runner spawns a command and awaits its termination.
//
// A non-zero exit code is not an error at this level: the Outcome carries it
// and the caller decides what it means. Run returns an error only when the
// process could not be started or was terminated by the context (binary
// missing, permission denied, cancellation, deadline).
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Outcome, error)
}

// ExecRunner implements Runner using os/exec. Cancelling the context kills
// the child process rather than detaching from it.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Outcome, error) {
	// #nosec G204 - name and args are built by this module, not user input
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Outcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		// Context termination wins over the exit error it causes.
		if ctx.Err() != nil {
			return out, fmt.Errorf("run %s: %w", name, ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}

		// Spawn failure: binary missing, not executable, etc.
		return out, fmt.Errorf("run %s: %w", name, err)
	}

	return out, nil
}
