package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/aiclient"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/analyzer"
	configloader "github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/config"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/platform"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/prompt"
	"github.com/bodis/ai-review-cicd-actions/internal/application"
	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/bodis/ai-review-cicd-actions/internal/domain/dedup"
)

// registerTools registers all ai-review MCP tools on the given server.
func registerTools(s *server.MCPServer, projectPath string) {
	// 1. ai_review_diff
	s.AddTool(
		mcplib.NewTool("ai_review_diff",
			mcplib.WithDescription("Run the full review pipeline over a local diff and return the report as JSON"),
			mcplib.WithString("base", mcplib.Description("Diff base revision (default main)")),
			mcplib.WithString("head", mcplib.Description("Diff head revision (default HEAD)")),
			mcplib.WithString("config", mcplib.Description("Config file path (overrides the standard locations)")),
		),
		handleReviewDiff(projectPath),
	)

	// 2. ai_review_validate_config
	s.AddTool(
		mcplib.NewTool("ai_review_validate_config",
			mcplib.WithDescription("Validate the merged review configuration and return the resolved form as JSON"),
			mcplib.WithString("config", mcplib.Description("Config file path (overrides the standard locations)")),
		),
		handleValidateConfig(projectPath),
	)
}

func handleReviewDiff(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		log := zap.NewNop().Sugar()

		absPath, err := filepath.Abs(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("resolving path: %v", err)), nil
		}

		args := request.GetArguments()
		configFile, _ := args["config"].(string)
		baseRev, _ := args["base"].(string)
		headRev, _ := args["head"].(string)

		cfg, err := configloader.New(log).Load(absPath, configFile)
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}

		svc, err := newReviewService(ctx, cfg, absPath, log)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		plat, err := platform.NewLocal(platform.Options{
			RepoPath: absPath,
			BaseRev:  baseRev,
			HeadRev:  headRev,
			Log:      log,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("opening repository: %v", err)), nil
		}

		change, err := plat.Context(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("diffing: %v", err)), nil
		}

		report, err := svc.Run(ctx, change)
		if err != nil {
			return errorResult(fmt.Sprintf("review failed: %v", err)), nil
		}
		return jsonResult(report)
	}
}

func handleValidateConfig(projectPath string) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		log := zap.NewNop().Sugar()

		absPath, err := filepath.Abs(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("resolving path: %v", err)), nil
		}

		configFile, _ := request.GetArguments()["config"].(string)
		cfg, err := configloader.New(log).Load(absPath, configFile)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid configuration: %v", err)), nil
		}
		if _, err := prompt.Aspects(cfg, absPath); err != nil {
			return errorResult(fmt.Sprintf("invalid configuration: %v", err)), nil
		}
		return jsonResult(cfg)
	}
}

// newReviewService mirrors the CLI wiring: resolved aspects, analyzer
// registry, AI client when anything needs one, deduplicator.
func newReviewService(ctx context.Context, cfg *domain.Config, projectPath string, log *zap.SugaredLogger) (*application.ReviewService, error) {
	aspects, err := prompt.Aspects(cfg, projectPath)
	if err != nil {
		return nil, err
	}

	needsAI := cfg.Dedup.Enabled && cfg.Dedup.Fuzzy
	for _, a := range aspects {
		if a.Enabled && a.Kind == domain.AspectAI {
			needsAI = true
		}
	}

	metrics := domain.NewMetrics()
	var client domain.AIClient
	if needsAI {
		client, err = aiclient.New(ctx, aiclient.Options{
			Provider:  cfg.AI.Provider,
			Model:     cfg.AI.Model,
			APIKey:    cfg.AI.APIKey,
			Endpoint:  cfg.AI.Endpoint,
			MaxTokens: cfg.AI.MaxTokens,
			CacheSize: cfg.AI.CacheSize,
			Metrics:   metrics,
			Log:       log,
		})
		if err != nil {
			return nil, fmt.Errorf("building ai client: %w", err)
		}
	}

	deduper := dedup.New(client, dedup.Config{
		Fuzzy:               cfg.Dedup.Fuzzy,
		LineWindow:          cfg.Dedup.LineWindow,
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
	}, log)

	return application.NewReviewService(application.ReviewServiceConfig{
		Config:    cfg,
		Aspects:   aspects,
		Analyzers: analyzer.Registry(log),
		Client:    client,
		Renderer:  prompt.NewRenderer(cfg.Context),
		Deduper:   deduper,
		Metrics:   metrics,
		Log:       log,
	}), nil
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
