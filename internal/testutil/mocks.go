// Package testutil provides test doubles shared across control plane tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/fsplane/internal/providers/elevation"
	"github.com/GriffinCanCode/fsplane/internal/providers/ledger"
)

// MockLedger is a mock implementation of ledger.Ledger.
type MockLedger struct {
	mock.Mock
}

// SaveGlyph mocks the SaveGlyph method.
func (m *MockLedger) SaveGlyph(ctx context.Context, g ledger.Glyph) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

// MockElevator is a mock implementation of elevation.Elevator.
type MockElevator struct {
	mock.Mock
}

// RunElevated mocks the RunElevated method.
func (m *MockElevator) RunElevated(ctx context.Context, cmd elevation.Command) (*elevation.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elevation.Result), args.Error(1)
}

// LocalElevator performs the cp, chmod, mv and rm commands issued by the
// privileged writer in process, as the current user. FailOn, when set, is
// consulted before each command; a non-nil error fails that command
// without running it.
type LocalElevator struct {
	mu     sync.Mutex
	FailOn func(call int, cmd elevation.Command) error
	calls  []elevation.Command
}

// Calls returns every command received, in order.
func (e *LocalElevator) Calls() []elevation.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]elevation.Command(nil), e.calls...)
}

// RunElevated executes cmd.
func (e *LocalElevator) RunElevated(ctx context.Context, cmd elevation.Command) (*elevation.Result, error) {
	e.mu.Lock()
	call := len(e.calls)
	e.calls = append(e.calls, cmd)
	fail := e.FailOn
	e.mu.Unlock()

	if fail != nil {
		if err := fail(call, cmd); err != nil {
			return &elevation.Result{ExitCode: 1, Stderr: err.Error()}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := operands(cmd.Args)
	var err error
	switch cmd.Name {
	case "cp":
		err = copyFile(args[0], args[1])
	case "chmod":
		var mode uint64
		mode, err = strconv.ParseUint(args[0], 8, 32)
		if err == nil {
			err = os.Chmod(args[1], os.FileMode(mode))
		}
	case "mv":
		err = os.Rename(args[0], args[1])
	case "rm":
		err = os.Remove(args[0])
		if os.IsNotExist(err) {
			err = nil
		}
	default:
		err = fmt.Errorf("unsupported command %q", cmd.Name)
	}
	if err != nil {
		return &elevation.Result{ExitCode: 1, Stderr: err.Error()}, err
	}
	return &elevation.Result{}, nil
}

// operands drops flags and the "--" separator.
func operands(args []string) []string {
	var out []string
	for _, a := range args {
		if a == "--" || (len(a) > 1 && a[0] == '-') {
			continue
		}
		out = append(out, a)
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
