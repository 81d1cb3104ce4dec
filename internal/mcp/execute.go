package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/warden/internal/runner"
	"github.com/deixis/warden/internal/sandbox"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type executeParams struct {
	AgentID     string   `json:"agent_id" jsonschema:"the ID of the calling agent"`
	BinaryPath  string   `json:"binary_path" jsonschema:"absolute path of an allow-listed binary (see agent_binaries)"`
	Args        []string `json:"args,omitempty" jsonschema:"arguments passed to the binary, one element per argument (no shell interpretation)"`
	Stdin       *string  `json:"stdin,omitempty" jsonschema:"text written to the binary's standard input; stdin is closed immediately when omitted"`
	ExecutionID string   `json:"execution_id,omitempty" jsonschema:"caller-chosen ID used to cancel the execution; generated when omitted"`
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params executeParams) (*mcp.CallToolResult, any, error) {
	id := params.ExecutionID
	if id == "" {
		id = uuid.NewString()
	}

	out, err := h.service.Execute(ctx, sandbox.ExecuteRequest{
		AgentID:     params.AgentID,
		ExecutionID: id,
		BinaryPath:  params.BinaryPath,
		Args:        params.Args,
		Stdin:       params.Stdin,
		Sink:        sessionSink{ctx: ctx, session: req.Session},
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Execution %s failed (%s): %v", id, sandbox.KindOf(err), err))
	}
	return textResult(formatOutcome(out))
}

func formatOutcome(out *runner.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Execution: %s\n", out.ExecutionID)
	if out.ExitCode != nil {
		fmt.Fprintf(&b, "Exit code: %d\n", *out.ExitCode)
	}
	if out.Signal != "" {
		fmt.Fprintf(&b, "Signal: %s\n", out.Signal)
	}
	fmt.Fprintf(&b, "Timed out: %t\n", out.TimedOut)
	fmt.Fprintf(&b, "Duration: %dms\n", out.DurationMs)

	writeStream(&b, "Stdout", out.Stdout, out.StdoutBytes, out.StdoutTruncated)
	writeStream(&b, "Stderr", out.Stderr, out.StderrBytes, out.StderrTruncated)

	return b.String()
}

func writeStream(b *strings.Builder, name, text string, n int, truncated bool) {
	fmt.Fprintln(b)
	if n == 0 {
		fmt.Fprintf(b, "%s: (empty)\n", name)
		return
	}
	if truncated {
		fmt.Fprintf(b, "%s (%d bytes, truncated):\n", name, n)
	} else {
		fmt.Fprintf(b, "%s (%d bytes):\n", name, n)
	}
	fmt.Fprint(b, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(b)
	}
}
