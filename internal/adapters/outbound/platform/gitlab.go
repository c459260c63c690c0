package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

const defaultGitLabURL = "https://gitlab.com"

// GitLab reviews one merge request through the GitLab REST API.
type GitLab struct {
	baseURL string // server URL including /api/v4
	project string
	iid     int
	token   string
	client  *http.Client
	log     *zap.SugaredLogger

	headSHA string
}

// NewGitLab builds the adapter from options and the GitLab CI
// environment: CI_PROJECT_ID, CI_MERGE_REQUEST_IID and CI_SERVER_URL.
func NewGitLab(opts Options) (*GitLab, error) {
	token := opts.Token
	if token == "" {
		token = os.Getenv("GITLAB_TOKEN")
	}
	if token == "" {
		token = os.Getenv("CI_JOB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("gitlab: token required (set GITLAB_TOKEN or CI_JOB_TOKEN)")
	}
	project := os.Getenv("CI_PROJECT_ID")
	if project == "" {
		return nil, fmt.Errorf("gitlab: CI_PROJECT_ID not set")
	}
	iid := opts.Number
	if iid == 0 {
		iid, _ = strconv.Atoi(os.Getenv("CI_MERGE_REQUEST_IID"))
	}
	if iid == 0 {
		return nil, fmt.Errorf("gitlab: merge request iid unknown (pass --pr or run in a merge request pipeline)")
	}
	server := os.Getenv("CI_SERVER_URL")
	if server == "" {
		server = defaultGitLabURL
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GitLab{
		baseURL: strings.TrimRight(server, "/") + "/api/v4",
		project: url.PathEscape(project),
		iid:     iid,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}, nil
}

func (g *GitLab) Name() string { return "gitlab" }

type glChange struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	DeletedFile bool   `json:"deleted_file"`
	Diff        string `json:"diff"`
}

type glAuthor struct {
	Username string `json:"username"`
}

type glMergeRequest struct {
	IID          int        `json:"iid"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Author       glAuthor   `json:"author"`
	SourceBranch string     `json:"source_branch"`
	TargetBranch string     `json:"target_branch"`
	SHA          string     `json:"sha"`
	Changes      []glChange `json:"changes"`
}

type glNote struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

func (g *GitLab) Context(ctx context.Context) (*domain.ChangeRequest, error) {
	var mr glMergeRequest
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/changes", g.project, g.iid)
	if err := g.do(ctx, http.MethodGet, path, nil, &mr); err != nil {
		return nil, err
	}
	g.headSHA = mr.SHA

	change := &domain.ChangeRequest{
		Number:      mr.IID,
		Title:       mr.Title,
		Description: mr.Description,
		Author:      mr.Author.Username,
		BaseBranch:  mr.TargetBranch,
		HeadBranch:  mr.SourceBranch,
		HeadSHA:     mr.SHA,
		RepoPath:    os.Getenv("CI_PROJECT_DIR"),
	}
	var diff strings.Builder
	for _, c := range mr.Changes {
		change.ChangedFiles = append(change.ChangedFiles, c.NewPath)
		status := ""
		switch {
		case c.NewFile:
			status = "added"
		case c.DeletedFile:
			status = "removed"
		}
		writePatch(&diff, c.NewPath, c.OldPath, status, c.Diff)
	}
	change.Diff = diff.String()

	g.log.Infow("fetched merge request context",
		"project", g.project, "iid", g.iid, "files", len(mr.Changes))
	return change, nil
}

// PostSummary upserts the review note: an existing note carrying the
// summary marker is edited in place, otherwise a new one is created.
func (g *GitLab) PostSummary(ctx context.Context, markdown string) error {
	var notes []glNote
	listPath := fmt.Sprintf("/projects/%s/merge_requests/%d/notes?per_page=%d", g.project, g.iid, perPage)
	if err := g.do(ctx, http.MethodGet, listPath, nil, &notes); err != nil {
		return err
	}
	body := map[string]string{"body": markdown}
	for _, n := range notes {
		if strings.Contains(n.Body, domain.SummaryMarker) {
			return g.do(ctx, http.MethodPut,
				fmt.Sprintf("/projects/%s/merge_requests/%d/notes/%d", g.project, g.iid, n.ID), body, nil)
		}
	}
	return g.do(ctx, http.MethodPost,
		fmt.Sprintf("/projects/%s/merge_requests/%d/notes", g.project, g.iid), body, nil)
}

func (g *GitLab) UpdateStatus(ctx context.Context, state domain.StatusState, description string) error {
	if g.headSHA == "" {
		return fmt.Errorf("gitlab: no commit sha known for status update")
	}
	body := map[string]string{
		"state":       gitlabState(state),
		"description": description,
		"name":        statusContext,
	}
	return g.do(ctx, http.MethodPost,
		fmt.Sprintf("/projects/%s/statuses/%s", g.project, g.headSHA), body, nil)
}

// gitlabState maps the shared status vocabulary to GitLab's. GitLab
// calls the red state "failed" and the in-progress state "running".
func gitlabState(state domain.StatusState) string {
	switch state {
	case domain.StatusFailure:
		return "failed"
	case domain.StatusPending:
		return "running"
	default:
		return string(state)
	}
}

func (g *GitLab) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("PRIVATE-TOKEN", g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gitlab: %s %s: status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
