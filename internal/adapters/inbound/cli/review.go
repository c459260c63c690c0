package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/aiclient"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/analyzer"
	configloader "github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/config"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/platform"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/prompt"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/report"
	"github.com/bodis/ai-review-cicd-actions/internal/application"
	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/bodis/ai-review-cicd-actions/internal/domain/dedup"
	"github.com/bodis/ai-review-cicd-actions/internal/logging"
)

func newReviewCmd() *cobra.Command {
	var (
		path       string
		baseRev    string
		headRev    string
		prNumber   int
		configFile string
		outputPath string
		jsonOutput bool
		noPost     bool
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review one change set and block or approve it",
		Long: "Run the configured review pipeline against the current pull/merge " +
			"request (GitHub Actions and GitLab CI are detected automatically) or " +
			"against a local diff between --base and --head. Exits non-zero when " +
			"the blocking policy rejects the change.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New(debug)
			defer log.Sync() //nolint:errcheck

			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg, err := configloader.New(log).Load(absPath, configFile)
			if err != nil {
				return err
			}

			svc, err := buildReviewService(ctx, cfg, absPath, log)
			if err != nil {
				return err
			}

			plat, err := platform.Detect(platform.Options{
				RepoPath: absPath,
				BaseRev:  baseRev,
				HeadRev:  headRev,
				Number:   prNumber,
				Out:      cmd.OutOrStdout(),
				Log:      log,
			})
			if err != nil {
				return fmt.Errorf("detecting platform: %w", err)
			}
			log.Infow("platform detected", "platform", plat.Name())

			change, err := plat.Context(ctx)
			if err != nil {
				return fmt.Errorf("fetching change request: %w", err)
			}

			rep, err := svc.Run(ctx, change)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), report.Terminal(rep))
			}

			artifact := outputPath
			if artifact == "" {
				artifact = filepath.Join(absPath, ".ai-review", "report.json")
			}
			if err := report.NewStore().Save(rep, artifact); err != nil {
				log.Warnw("could not write report artifact", "path", artifact, "error", err)
			}

			if !noPost && plat.Name() != "local" {
				if err := plat.PostSummary(ctx, report.Markdown(rep)); err != nil {
					log.Warnw("could not post summary", "error", err)
				}
				state := domain.StatusSuccess
				if rep.Verdict.ShouldBlock {
					state = domain.StatusFailure
				}
				if err := plat.UpdateStatus(ctx, state, report.StatusDescription(rep)); err != nil {
					log.Warnw("could not update commit status", "error", err)
				}
			}

			if rep.Verdict.ShouldBlock {
				return fmt.Errorf("review blocked: %d rule(s) triggered", len(rep.Verdict.TriggeredRules))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Repository checkout to review")
	cmd.Flags().StringVar(&baseRev, "base", "", "Diff base revision for local runs (default main)")
	cmd.Flags().StringVar(&headRev, "head", "", "Diff head revision for local runs (default HEAD)")
	cmd.Flags().IntVar(&prNumber, "pr", 0, "Pull/merge request number when not inferable from CI environment")
	cmd.Flags().StringVar(&configFile, "config", "", "Config file (overrides the standard locations)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Report artifact path (default .ai-review/report.json)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVar(&noPost, "no-post", false, "Skip posting the summary and commit status")
	cmd.Flags().BoolVar(&debug, "debug", false, "Verbose logging")

	return cmd
}

// buildReviewService assembles the pipeline from a merged config:
// resolved aspects, analyzer registry, AI client, deduplicator. The AI
// client is only constructed when something will call it, so a purely
// static configuration needs no credentials.
func buildReviewService(ctx context.Context, cfg *domain.Config, projectPath string, log *zap.SugaredLogger) (*application.ReviewService, error) {
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
