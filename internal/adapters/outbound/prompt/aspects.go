package prompt

import (
	"fmt"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Aspects turns the configured aspect list into runtime aspects with
// prompt templates resolved: an inline config prompt wins, then a
// project override file, then the bundled template. The resolved list
// is validated as a whole.
func Aspects(cfg *domain.Config, projectPath string) ([]domain.ReviewAspect, error) {
	aspects := cfg.ReviewAspects()
	for i := range aspects {
		if aspects[i].Kind != domain.AspectAI || aspects[i].PromptTemplate != "" {
			continue
		}
		tpl, err := Resolve(projectPath, aspects[i].Name)
		if err != nil {
			return nil, domain.NewConfigError(fmt.Sprintf("aspect %q", aspects[i].Name), err)
		}
		aspects[i].PromptTemplate = tpl
	}
	if err := domain.ValidateAspects(aspects); err != nil {
		return nil, domain.NewConfigError("aspect list", err)
	}
	return aspects, nil
}
