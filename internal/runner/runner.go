// Package runner provides safe binary execution with bounded output,
// a wall-clock timeout, and cancellation by execution ID.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultTimeout is the wall-clock limit of one execution.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long output is drained after the process exits,
// e.g. when a grandchild inherited the pipes.
const waitDelay = 2 * time.Second

// Stream names an output channel of the child process.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Event is an incremental output notification.
type Event struct {
	ExecutionID string `json:"execution_id"`
	Stream      Stream `json:"stream"`
	Delta       string `json:"delta"`
}

// EventSink receives output as it is produced. Emit must not block for
// long; the runner does not wait for acknowledgement.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Request describes one execution.
type Request struct {
	ExecutionID string
	BinaryPath  string
	Args        []string
	Stdin       *string   // nil closes stdin without writing
	Sink        EventSink // optional
}

// ExecError is returned when the process could not be spawned or failed
// outside of a normal exit.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string { return "binary execution failed: " + e.Err.Error() }

func (e *ExecError) Unwrap() error { return e.Err }

// Runner executes binaries. Each execution ID is tracked in Registry for
// its whole lifetime.
type Runner struct {
	Registry *Registry
	Timeout  time.Duration // zero means DefaultTimeout

	// stdinWriter feeds stdin to the child; nil means writeStdin.
	stdinWriter func(io.WriteCloser, *string) error
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// Run starts req.BinaryPath with req.Args (no shell) and waits for it.
//
// The execution settles on the first of: process exit, spawn or wait
// failure, or a stdin write failure other than a broken pipe. A timeout or
// a cancellation (via Registry.Cancel or ctx) kills the process with
// SIGKILL and is reported through the Outcome, not as an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	exe, err := r.Registry.reserve(req.ExecutionID)
	if err != nil {
		return nil, err
	}
	defer r.Registry.Release(req.ExecutionID)

	stdout, stderr := NewCollector(), NewCollector()

	cmd := exec.Command(req.BinaryPath, req.Args...)
	cmd.Stdout = &streamWriter{executionID: req.ExecutionID, stream: Stdout, collector: stdout, sink: req.Sink}
	cmd.Stderr = &streamWriter{executionID: req.ExecutionID, stream: Stderr, collector: stderr, sink: req.Sink}
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ExecError{Err: err}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ExecError{Err: err}
	}
	exe.attach(cmd.Process)

	var (
		once     sync.Once
		settled  atomic.Bool
		timedOut atomic.Bool
		done     = make(chan error, 1)
	)
	settle := func(err error) {
		once.Do(func() {
			settled.Store(true)
			done <- err
		})
	}

	timer := time.AfterFunc(r.timeout(), func() {
		if settled.Load() {
			return
		}
		timedOut.Store(true)
		exe.kill()
	})
	defer timer.Stop()

	stopCtx := context.AfterFunc(ctx, exe.kill)
	defer stopCtx()

	go func() {
		write := r.stdinWriter
		if write == nil {
			write = writeStdin
		}
		if err := write(stdin, req.Stdin); err != nil {
			settle(&ExecError{Err: err})
			exe.kill()
		}
	}()

	go func() {
		err := cmd.Wait()
		if cmd.ProcessState == nil {
			settle(&ExecError{Err: err})
			return
		}
		// A non-zero exit or an expired WaitDelay still means the
		// process exited; both are reported through the outcome.
		settle(nil)
	}()

	if err := <-done; err != nil {
		return nil, err
	}
	timer.Stop()

	exitCode, signal, signo := exitStatus(cmd.ProcessState)
	return &Outcome{
		ExecutionID:     req.ExecutionID,
		ExitCode:        exitCode,
		Signal:          signal,
		SignalNumber:    signo,
		TimedOut:        timedOut.Load(),
		DurationMs:      time.Since(start).Milliseconds(),
		Stdout:          string(stdout.Bytes()),
		Stderr:          string(stderr.Bytes()),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
		StdoutBytes:     stdout.Len(),
		StderrBytes:     stderr.Len(),
	}, nil
}

// writeStdin writes the payload, if any, and closes the pipe so the child
// sees end of input. A child that exits without reading stdin produces a
// broken pipe, which is expected and ignored.
func writeStdin(w io.WriteCloser, stdin *string) error {
	if stdin != nil && *stdin != "" {
		if _, err := io.WriteString(w, *stdin); err != nil && !brokenPipe(err) {
			_ = w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil && !brokenPipe(err) {
		return err
	}
	return nil
}

// brokenPipe reports whether err means the read end of stdin is gone,
// either because the child closed it or because Wait already reaped it.
func brokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}

// exitStatus returns either the exit code or the name and number of the
// signal that terminated the process.
func exitStatus(ps *os.ProcessState) (*int, string, int) {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		name := unix.SignalName(sig)
		if name == "" {
			name = sig.String()
		}
		return nil, name, int(sig)
	}
	code := ps.ExitCode()
	return &code, "", 0
}
