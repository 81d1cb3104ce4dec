package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/warden/internal/agent"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type binariesParams struct {
	AgentID string `json:"agent_id" jsonschema:"the ID of the calling agent"`
}

func (h *handler) binariesHandler(ctx context.Context, req *mcp.CallToolRequest, params binariesParams) (*mcp.CallToolResult, any, error) {
	def, err := h.agents.Get(params.AgentID)
	if errors.Is(err, agent.ErrNotFound) {
		return errorResult(fmt.Sprintf("Agent %q not found", params.AgentID))
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to look up agent %s: %v", params.AgentID, err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Agent: %s\n", def.ID)
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n", def.Description)
	}
	fmt.Fprintln(&b)
	if len(def.Binaries) == 0 {
		fmt.Fprintln(&b, "No binaries allowed.")
		return textResult(b.String())
	}
	fmt.Fprintf(&b, "Binaries (%d):\n", len(def.Binaries))
	for _, bin := range def.Binaries {
		if bin.Description != "" {
			fmt.Fprintf(&b, "  %s  %s\n", bin.Path, bin.Description)
		} else {
			fmt.Fprintf(&b, "  %s\n", bin.Path)
		}
	}
	return textResult(b.String())
}
