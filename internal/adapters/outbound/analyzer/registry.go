package analyzer

import (
	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Registry returns every known analyzer keyed by the tool name used in
// aspect configuration. Aspects referencing a tool not in here are
// logged and skipped by the runner.
func Registry(log *zap.SugaredLogger) map[string]domain.Analyzer {
	analyzers := []domain.Analyzer{
		NewRuff(log),
		NewBandit(log),
		NewESLint(log),
		NewStaticcheck(log),
	}
	byTool := make(map[string]domain.Analyzer, len(analyzers))
	for _, a := range analyzers {
		byTool[a.Tool()] = a
	}
	return byTool
}
