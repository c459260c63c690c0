package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	configloader "github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/config"
	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/prompt"
	"github.com/bodis/ai-review-cicd-actions/internal/logging"
)

func newValidateCmd() *cobra.Command {
	var (
		configFile string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate the review configuration",
		Long: "Load and validate the merged configuration (defaults, company " +
			"config, project file, environment) without running a review. " +
			"Exits non-zero when the configuration is invalid.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			log := logging.New(false)
			defer log.Sync() //nolint:errcheck

			cfg, err := configloader.New(log).Load(absPath, configFile)
			if err != nil {
				return err
			}
			if _, err := prompt.Aspects(cfg, absPath); err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid: %d aspect(s), provider %s\n",
				len(cfg.Review.Aspects), cfg.AI.Provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Config file (overrides the standard locations)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the resolved configuration as JSON")

	return cmd
}
