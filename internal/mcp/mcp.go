// Package mcp provides the Warden MCP server, registering the execution
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"

	"github.com/deixis/warden"
	"github.com/deixis/warden/internal/agent"
	"github.com/deixis/warden/internal/runner"
	"github.com/deixis/warden/internal/sandbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// loggerName is the logger reported on streamed output notifications.
const loggerName = "warden"

// handler holds shared dependencies for all tool handlers.
type handler struct {
	service *sandbox.Service
	agents  agent.Store
}

// NewServer creates an MCP server with all Warden tools registered.
func NewServer(svc *sandbox.Service, agents agent.Store) *mcp.Server {
	h := &handler{service: svc, agents: agents}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools:   &mcp.ToolCapabilities{ListChanged: false},
			Logging: &mcp.LoggingCapabilities{},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "warden", Version: warden.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "agent_binaries",
		Description: "List the binaries an agent is allowed to execute.",
	}, h.binariesHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "agent_binary_execute",
		Description: `Execute an allow-listed binary and return its exit status and output.

Arguments are passed directly to the program (no shell). Output is streamed as
log notifications while the program runs and capped at 64 KiB per stream.
The program is killed after 30 seconds.`,
	}, h.executeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "agent_binary_cancel",
		Description: `Kill a running execution by its execution_id.

Cancelling an execution that already finished, or never started, succeeds.`,
	}, h.cancelHandler)

	return s
}

// sessionSink forwards output deltas to the client as log notifications.
type sessionSink struct {
	ctx     context.Context
	session *mcp.ServerSession
}

func (s sessionSink) Emit(e runner.Event) {
	if s.session == nil {
		return
	}
	_ = s.session.Log(s.ctx, &mcp.LoggingMessageParams{
		Level:  "info",
		Logger: loggerName,
		Data:   e,
	})
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
