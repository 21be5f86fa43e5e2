// Package mcpserver exposes the risk engine as a Model Context Protocol
// server, so agentic callers can score and explain transactions without
// going through HTTP.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/fraudpipe/riskengine/internal/engine"
)

// NewMCPServer creates a configured MCP server with score_transaction and
// explain_transaction registered against e.
func NewMCPServer(e *engine.Engine) *server.MCPServer {
	s := server.NewMCPServer("riskengine", "1.0.0")
	h := NewHandlers(e)

	s.AddTool(ToolScoreTransaction, h.HandleScoreTransaction)
	s.AddTool(ToolExplainTransaction, h.HandleExplainTransaction)

	return s
}
