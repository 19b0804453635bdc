// Package elevation runs commands with elevated privileges.
//
// The runner wraps a command in the configured escalation tool and captures
// its output. It never prompts on a terminal: sudo and doas run
// non-interactively, pkexec uses the desktop agent. The "none" method runs
// the command as the current user, for hosts where the process already has
// the rights it needs.
package elevation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Command is a program and its arguments. It is never passed through a shell.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result captures the outcome of an elevated command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Elevator executes commands with elevated privileges
type Elevator interface {
	RunElevated(ctx context.Context, cmd Command) (*Result, error)
}

// ErrUnknownMethod is returned for unsupported escalation methods
var ErrUnknownMethod = errors.New("unknown elevation method")

// Runner executes commands through sudo, pkexec, doas or directly
type Runner struct {
	method   string
	logger   *zap.Logger
	lookPath func(string) (string, error)
}

// NewRunner creates a runner for method
func NewRunner(method string, logger *zap.Logger) (*Runner, error) {
	switch method {
	case "sudo", "pkexec", "doas", "none":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{method: method, logger: logger, lookPath: exec.LookPath}, nil
}

// Method returns the escalation method
func (r *Runner) Method() string {
	return r.method
}

// Wrap returns the argv actually executed for cmd
func (r *Runner) Wrap(cmd Command) []string {
	argv := append([]string{cmd.Name}, cmd.Args...)
	switch r.method {
	case "sudo":
		return append([]string{"sudo", "-n", "--"}, argv...)
	case "doas":
		return append([]string{"doas", "-n"}, argv...)
	case "pkexec":
		return append([]string{"pkexec"}, argv...)
	default:
		return argv
	}
}

// RunElevated executes cmd and returns its captured output. A non-zero exit
// is reported as an error alongside the result.
func (r *Runner) RunElevated(ctx context.Context, cmd Command) (*Result, error) {
	argv := r.Wrap(cmd)
	bin, err := r.lookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("elevation: %s not available: %w", argv[0], err)
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, bin, argv[1:]...)
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("Running elevated command",
		zap.String("method", r.method),
		zap.String("command", cmd.String()),
	)

	runErr := c.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	if runErr != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = runErr.Error()
		}
		return res, fmt.Errorf("elevation: %s: %s: %w", cmd.Name, msg, runErr)
	}
	return res, nil
}
