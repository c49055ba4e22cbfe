package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors to control return values. Both maps are first
// consulted with the full command line ("cmd arg1 arg2 ..."), then with the
// bare command name, so tests can distinguish invocations of the same binary.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps command lines (or bare command names) to their output.
	Outputs map[string][]byte

	// Errors maps command lines (or bare command names) to their error.
	Errors map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

// LookPath always reports true so availability checks pass in tests.
func (e *RecordingExecutor) LookPath(string) bool { return true }

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{
		Dir:  dir,
		Cmd:  cmd,
		Args: args,
	})

	line := strings.Join(append([]string{cmd}, args...), " ")

	var out []byte
	var err error
	if e.Outputs != nil {
		if v, ok := e.Outputs[line]; ok {
			out = v
		} else {
			out = e.Outputs[cmd]
		}
	}
	if e.Errors != nil {
		if v, ok := e.Errors[line]; ok {
			err = v
		} else {
			err = e.Errors[cmd]
		}
	}

	return out, err
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
