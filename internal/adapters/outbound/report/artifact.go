package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Store is a file-based implementation of domain.ReportStore. Reports
// are written as indented JSON so CI artifact viewers stay readable.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Save writes a report to disk, creating parent directories as needed.
func (s *Store) Save(report *domain.ReviewReport, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a previously saved report.
func (s *Store) Load(path string) (*domain.ReviewReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report domain.ReviewReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}
