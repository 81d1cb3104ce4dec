// Package sandbox is the entry point for executing agent binaries. It
// chains authorization, input validation, and the runner, and is consumed
// by both the MCP server and the CLI.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deixis/warden/internal/authz"
	"github.com/deixis/warden/internal/runner"
	"github.com/deixis/warden/internal/validate"
)

// Kind classifies an error returned by Service.Execute.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConcurrency   Kind = "concurrency"
	KindProcess       Kind = "process"
	KindInternal      Kind = "internal"
)

// KindOf returns the kind of err, or "" for a nil error.
func KindOf(err error) Kind {
	var (
		verr *validate.Error
		aerr *authz.Error
		xerr *runner.ExecError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &aerr):
		return KindAuthorization
	case errors.Is(err, runner.ErrAlreadyRunning):
		return KindConcurrency
	case errors.As(err, &xerr):
		return KindProcess
	default:
		return KindInternal
	}
}

// ExecuteRequest is a request from an agent to run one of its binaries.
type ExecuteRequest struct {
	AgentID     string
	ExecutionID string
	BinaryPath  string
	Args        []string
	Stdin       *string
	Sink        runner.EventSink // optional
}

// Service executes and cancels agent binaries.
type Service struct {
	Gate   *authz.Gate
	Runner *runner.Runner
	Logger *slog.Logger // nil means slog.Default()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Execute authorizes, validates, and runs req, returning the first failure
// or the outcome. A timed-out execution is an outcome, not an error. A
// panic inside the pipeline is returned as an internal error.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (out *runner.Outcome, err error) {
	log := s.logger().With(
		slog.String("execution_id", req.ExecutionID),
		slog.String("agent_id", req.AgentID),
		slog.String("binary", req.BinaryPath),
	)
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("internal error: %v", r)
		}
		if err != nil {
			log.Warn("execution rejected", slog.String("kind", string(KindOf(err))), slog.Any("error", err))
		}
	}()

	if err := s.Gate.Authorize(req.AgentID, req.BinaryPath); err != nil {
		return nil, err
	}
	if err := validate.ExecutionID(req.ExecutionID); err != nil {
		return nil, err
	}
	if err := validate.Args(req.Args); err != nil {
		return nil, err
	}
	if err := validate.Stdin(req.Stdin); err != nil {
		return nil, err
	}

	log.Debug("execution starting", slog.Int("args", len(req.Args)), slog.Bool("stdin", req.Stdin != nil))
	out, err = s.Runner.Run(ctx, runner.Request{
		ExecutionID: req.ExecutionID,
		BinaryPath:  req.BinaryPath,
		Args:        req.Args,
		Stdin:       req.Stdin,
		Sink:        req.Sink,
	})
	if err != nil {
		return nil, err
	}

	attrs := []any{
		slog.Bool("timed_out", out.TimedOut),
		slog.Int64("duration_ms", out.DurationMs),
		slog.Int("stdout_bytes", out.StdoutBytes),
		slog.Int("stderr_bytes", out.StderrBytes),
	}
	if out.ExitCode != nil {
		attrs = append(attrs, slog.Int("exit_code", *out.ExitCode))
	}
	if out.Signal != "" {
		attrs = append(attrs, slog.String("signal", out.Signal))
	}
	log.Info("execution finished", attrs...)
	return out, nil
}

// Cancel kills the execution running under executionID. Cancelling an
// execution that finished or never started succeeds.
func (s *Service) Cancel(executionID string) error {
	s.logger().Debug("execution cancel requested", slog.String("execution_id", executionID))
	return s.Runner.Registry.Cancel(executionID)
}
