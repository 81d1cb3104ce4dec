package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type cancelParams struct {
	ExecutionID string `json:"execution_id" jsonschema:"the execution_id passed to or returned by agent_binary_execute"`
}

func (h *handler) cancelHandler(ctx context.Context, req *mcp.CallToolRequest, params cancelParams) (*mcp.CallToolResult, any, error) {
	if err := h.service.Cancel(params.ExecutionID); err != nil {
		return errorResult(fmt.Sprintf("cancel failed: %v", err))
	}
	return textResult(fmt.Sprintf("Cancellation requested for %s.", params.ExecutionID))
}
