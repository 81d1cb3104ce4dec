package mcp

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deixis/warden/internal/agent"
	"github.com/deixis/warden/internal/authz"
	"github.com/deixis/warden/internal/runner"
	"github.com/deixis/warden/internal/sandbox"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()
	p, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return p
}

// setup creates a full Warden MCP server + client over in-memory transports.
// The "builder" agent may run the given binaries.
func setup(t *testing.T, clientOpts *mcp.ClientOptions, binaries ...string) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	def := agent.Definition{ID: "builder", Description: "Build helper"}
	for _, b := range binaries {
		def.Binaries = append(def.Binaries, agent.Binary{Path: b, Description: "test binary"})
	}
	agents := agent.NewStaticStore([]agent.Definition{def, {ID: "idle"}})

	svc := &sandbox.Service{
		Gate:   &authz.Gate{Agents: agents},
		Runner: &runner.Runner{Registry: runner.NewRegistry(), Timeout: 10 * time.Second},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	server := NewServer(svc, agents)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, clientOpts)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// --- agent_binaries ---

func TestAgentBinaries(t *testing.T) {
	echo := lookPath(t, "echo")
	cs := setup(t, nil, echo)
	res := callTool(t, cs, "agent_binaries", map[string]any{"agent_id": "builder"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, echo) {
		t.Errorf("expected %s in output, got:\n%s", echo, text)
	}
	if !strings.Contains(text, "Binaries (1):") {
		t.Errorf("expected binary count, got:\n%s", text)
	}
}

func TestAgentBinaries_NoneAllowed(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "agent_binaries", map[string]any{"agent_id": "idle"})
	if !strings.Contains(resultText(res), "No binaries allowed.") {
		t.Errorf("got:\n%s", resultText(res))
	}
}

func TestAgentBinaries_UnknownAgent(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "agent_binaries", map[string]any{"agent_id": "ghost"})
	if !res.IsError {
		t.Error("expected IsError for unknown agent")
	}
}

// --- agent_binary_execute ---

func TestExecute_Success(t *testing.T) {
	echo := lookPath(t, "echo")
	cs := setup(t, nil, echo)
	res := callTool(t, cs, "agent_binary_execute", map[string]any{
		"agent_id":     "builder",
		"execution_id": "run-1",
		"binary_path":  echo,
		"args":         []string{"hello"},
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"Execution: run-1", "Exit code: 0", "Timed out: false", "Stdout (6 bytes):", "hello"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestExecute_GeneratesExecutionID(t *testing.T) {
	echo := lookPath(t, "echo")
	cs := setup(t, nil, echo)
	res := callTool(t, cs, "agent_binary_execute", map[string]any{
		"agent_id":    "builder",
		"binary_path": echo,
	})
	text := resultText(res)

	var id string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Execution: ") {
			id = strings.TrimPrefix(line, "Execution: ")
			break
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("execution ID %q is not a UUID: %v", id, err)
	}
}

func TestExecute_Stdin(t *testing.T) {
	cat := lookPath(t, "cat")
	cs := setup(t, nil, cat)
	res := callTool(t, cs, "agent_binary_execute", map[string]any{
		"agent_id":    "builder",
		"binary_path": cat,
		"stdin":       "from stdin",
	})
	if !strings.Contains(resultText(res), "from stdin") {
		t.Errorf("expected stdin echoed, got:\n%s", resultText(res))
	}
}

func TestExecute_NotAllowed(t *testing.T) {
	echo := lookPath(t, "echo")
	cs := setup(t, nil)
	res := callTool(t, cs, "agent_binary_execute", map[string]any{
		"agent_id":    "builder",
		"binary_path": echo,
	})
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected IsError, got:\n%s", text)
	}
	if !strings.Contains(text, "authorization") {
		t.Errorf("expected authorization kind, got:\n%s", text)
	}
}

func TestExecute_Validation(t *testing.T) {
	echo := lookPath(t, "echo")
	cs := setup(t, nil, echo)
	res := callTool(t, cs, "agent_binary_execute", map[string]any{
		"agent_id":    "builder",
		"binary_path": echo,
		"args":        []string{"a\x00b"},
	})
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected IsError, got:\n%s", text)
	}
	if !strings.Contains(text, "Arguments cannot contain NUL bytes") {
		t.Errorf("expected NUL byte message, got:\n%s", text)
	}
}

func TestExecute_MissingAgentID(t *testing.T) {
	echo := lookPath(t, "echo")
	cs := setup(t, nil, echo)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "agent_binary_execute",
		Arguments: map[string]any{"binary_path": echo},
	})
	if err == nil {
		t.Error("expected error for missing agent_id")
	}
}

func TestExecute_StreamsOutput(t *testing.T) {
	echo := lookPath(t, "echo")

	var (
		mu     sync.Mutex
		deltas []string
	)
	got := make(chan struct{}, 1)
	opts := &mcp.ClientOptions{
		LoggingMessageHandler: func(_ context.Context, req *mcp.LoggingMessageRequest) {
			if req.Params.Logger != loggerName {
				return
			}
			data, ok := req.Params.Data.(map[string]any)
			if !ok {
				return
			}
			mu.Lock()
			deltas = append(deltas, data["delta"].(string))
			mu.Unlock()
			select {
			case got <- struct{}{}:
			default:
			}
		},
	}
	cs := setup(t, opts, echo)
	if err := cs.SetLoggingLevel(context.Background(), &mcp.SetLoggingLevelParams{Level: "debug"}); err != nil {
		t.Fatalf("SetLoggingLevel: %v", err)
	}

	callTool(t, cs, "agent_binary_execute", map[string]any{
		"agent_id":     "builder",
		"execution_id": "stream-1",
		"binary_path":  echo,
		"args":         []string{"streamed"},
	})

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no output notification received")
	}
	mu.Lock()
	defer mu.Unlock()
	if joined := strings.Join(deltas, ""); !strings.Contains(joined, "streamed") {
		t.Errorf("streamed deltas = %q, want to contain 'streamed'", joined)
	}
}

// --- agent_binary_cancel ---

func TestCancel_Unknown(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "agent_binary_cancel", map[string]any{"execution_id": "never"})
	if res.IsError {
		t.Errorf("cancel of unknown execution failed: %s", resultText(res))
	}
}

func TestCancel_EmptyID(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "agent_binary_cancel", map[string]any{"execution_id": ""})
	if res.IsError {
		t.Errorf("cancel with empty execution_id failed: %s", resultText(res))
	}
}

func TestCancel_Running(t *testing.T) {
	sleep := lookPath(t, "sleep")
	cs := setup(t, nil, sleep)

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
			Name: "agent_binary_execute",
			Arguments: map[string]any{
				"agent_id":     "builder",
				"execution_id": "long",
				"binary_path":  sleep,
				"args":         []string{"10"},
			},
		})
		if err != nil {
			t.Errorf("CallTool: %v", err)
		}
		done <- res
	}()

	// Cancel until the execution reports a signal; the first cancels may
	// arrive before the process is spawned and are then no-ops.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case res := <-done:
			if res == nil {
				t.Fatal("no result")
			}
			if !strings.Contains(resultText(res), "Signal: SIGKILL") {
				t.Errorf("expected SIGKILL, got:\n%s", resultText(res))
			}
			return
		case <-tick.C:
			callTool(t, cs, "agent_binary_cancel", map[string]any{"execution_id": "long"})
		case <-deadline:
			t.Fatal("execution was not cancelled")
		}
	}
}
