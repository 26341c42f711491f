// Package process runs external tools with a hard timeout and captured output.
//
// A Runner never lets caller cancellation interrupt a tool that has already
// started: only the per-command timeout stops it, and then the whole process
// group is killed so no orphaned helper keeps writing into a scratch directory
// that is about to be removed.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Sentinel errors for command execution.
var (
	ErrTimeout    = errors.New("process timed out")
	ErrExitStatus = errors.New("process exited with non-zero status")
	ErrNotFound   = errors.New("executable not found")
)

// DefaultWaitDelay bounds how long Run waits for output pipes after a kill.
const DefaultWaitDelay = 2 * time.Second

// Command describes one invocation of an external tool.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration // zero means no limit
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished (or killed) command.
// ExitCode is -1 when the process never started or was killed.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output returns stdout followed by stderr.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner abstracts external command execution for testability.
// Run always returns a non-nil Result, even alongside an error.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	WaitDelay time.Duration
}

// NewExecRunner returns a runner with DefaultWaitDelay.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

// Run executes c and classifies its failure as ErrTimeout, ErrNotFound or
// ErrExitStatus. Values carried by ctx are kept; its cancellation is not.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	res := &Result{ExitCode: -1}

	// With SysProcAttr set, a missing Dir surfaces as a fork/exec ENOENT that
	// would read as a missing executable.
	if c.Dir != "" {
		if _, err := os.Stat(c.Dir); err != nil {
			return res, fmt.Errorf("working directory for %s: %w", c.Name, err)
		}
	}

	runCtx := context.WithoutCancel(ctx)
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...) // #nosec G204 -- tool names come from configuration
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, c.Name, c.Timeout)
	}
	if isNotFound(err) {
		return res, fmt.Errorf("%w: %s", ErrNotFound, c.Name)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, fmt.Errorf("%w: %s exited with status %d", ErrExitStatus, c.Name, res.ExitCode)
	}
	return res, fmt.Errorf("running %s: %w", c.Name, err)
}

// isNotFound reports whether err means the executable itself is missing,
// as opposed to a missing working directory.
func isNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) && pathErr.Op == "fork/exec" && errors.Is(err, fs.ErrNotExist)
}
