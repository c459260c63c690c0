package main

import (
	"os"

	"github.com/bodis/ai-review-cicd-actions/internal/adapters/inbound/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
