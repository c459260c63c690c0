package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	configloader "github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/config"
)

// registerResources registers all ai-review MCP resources on the given
// server.
func registerResources(s *server.MCPServer, projectPath string) {
	// ai-review://config - the resolved review configuration
	s.AddResource(
		mcplib.NewResource(
			"ai-review://config",
			"Review Configuration",
			mcplib.WithResourceDescription("Merged review configuration for the project (defaults, company, project file, environment)"),
			mcplib.WithMIMEType("application/json"),
		),
		handleConfigResource(projectPath),
	)
}

func handleConfigResource(projectPath string) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		absPath, err := filepath.Abs(projectPath)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}

		cfg, err := configloader.New(zap.NewNop().Sugar()).Load(absPath, "")
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling config: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      "ai-review://config",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
