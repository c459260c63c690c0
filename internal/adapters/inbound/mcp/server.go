package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewReviewMCPServer creates a new MCP server with all ai-review tools
// and resources registered. The projectPath is the root of the checkout
// to review.
func NewReviewMCPServer(projectPath string) *server.MCPServer {
	s := server.NewMCPServer(
		"ai-review",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, projectPath)
	registerResources(s, projectPath)

	return s
}
