package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai-review",
		Short: "Automated AI code review for pull requests",
		Long: "ai-review runs a multi-stage review pipeline over one change set: " +
			"deterministic linters and AI reviewers in configurable order, merged " +
			"findings, and a single block/approve verdict for CI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newReviewCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newMCPCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	// Local runs keep credentials in .env; missing file is fine.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}
