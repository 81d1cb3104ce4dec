package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/deixis/warden/internal/runner"
	"github.com/deixis/warden/internal/sandbox"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newExecCmd(opts *rootOptions) *cobra.Command {
	var (
		agentID     string
		executionID string
		stdinFile   string
	)
	cmd := &cobra.Command{
		Use:   "exec --agent ID [flags] BINARY [ARGS...]",
		Short: "Execute an allow-listed binary as an agent",
		Long: `Execute an allow-listed binary with the same checks and limits the MCP
server applies. Output is streamed as it is produced; a summary is written
to stderr and the command exits with the child's exit status.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if executionID == "" {
				executionID = uuid.NewString()
			}

			var stdin *string
			if stdinFile != "" {
				s, err := readStdin(stdinFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				stdin = &s
			}

			out, err := a.service.Execute(cmd.Context(), sandbox.ExecuteRequest{
				AgentID:     agentID,
				ExecutionID: executionID,
				BinaryPath:  args[0],
				Args:        args[1:],
				Stdin:       stdin,
				Sink:        newConsoleSink(cmd.OutOrStdout(), cmd.ErrOrStderr()),
			})
			if err != nil {
				return fmt.Errorf("%s: %w", sandbox.KindOf(err), err)
			}

			printSummary(cmd.ErrOrStderr(), out)
			if code := exitCode(out); code != 0 {
				return exitError(code)
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&agentID, "agent", "", "agent ID whose allow-list applies (required)")
	cmd.Flags().StringVar(&executionID, "id", "", "execution ID (default: random UUID)")
	cmd.Flags().StringVar(&stdinFile, "stdin-file", "", `file written to the child's stdin ("-" reads this process's stdin)`)
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

// exitCode maps an outcome to a shell-style status: the child's exit code,
// or 128 plus the number of the signal that killed it.
func exitCode(out *runner.Outcome) int {
	if out.ExitCode != nil {
		return *out.ExitCode
	}
	return 128 + out.SignalNumber
}

func readStdin(path string, in io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading stdin file: %w", err)
	}
	return string(data), nil
}

// consoleSink copies streamed output to the terminal as it arrives.
type consoleSink struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
}

func newConsoleSink(stdout, stderr io.Writer) *consoleSink {
	return &consoleSink{stdout: stdout, stderr: stderr}
}

func (s *consoleSink) Emit(e runner.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.stdout
	if e.Stream == runner.Stderr {
		w = s.stderr
	}
	_, _ = io.WriteString(w, e.Delta)
}

func printSummary(w io.Writer, out *runner.Outcome) {
	fmt.Fprintf(w, "\nexecution %s: ", out.ExecutionID)
	switch {
	case out.TimedOut:
		fmt.Fprintf(w, "timed out (%s)", out.Signal)
	case out.Signal != "":
		fmt.Fprintf(w, "killed (%s)", out.Signal)
	default:
		fmt.Fprintf(w, "exit %d", *out.ExitCode)
	}
	fmt.Fprintf(w, " in %dms", out.DurationMs)
	if out.StdoutTruncated {
		fmt.Fprintf(w, ", stdout truncated at %d bytes", out.StdoutBytes)
	}
	if out.StderrTruncated {
		fmt.Fprintf(w, ", stderr truncated at %d bytes", out.StderrBytes)
	}
	fmt.Fprintln(w)
}
