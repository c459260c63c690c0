package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

const (
	defaultGitHubAPI = "https://api.github.com"
	perPage          = 100
)

// GitHub reviews one pull request through the GitHub REST API.
type GitHub struct {
	apiURL string
	repo   string
	number int
	token  string
	client *http.Client
	log    *zap.SugaredLogger

	// headSHA is captured by Context; statuses attach to it.
	headSHA string
}

// NewGitHub builds the adapter from options and the Actions environment.
// GITHUB_REPOSITORY and a token are required. The PR number falls back
// to parsing GITHUB_REF ("refs/pull/<n>/merge").
func NewGitHub(opts Options) (*GitHub, error) {
	token := opts.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("github: token required (set GITHUB_TOKEN)")
	}
	repo := os.Getenv("GITHUB_REPOSITORY")
	if repo == "" {
		return nil, fmt.Errorf("github: GITHUB_REPOSITORY not set")
	}
	number := opts.Number
	if number == 0 {
		number = prNumberFromRef(os.Getenv("GITHUB_REF"))
	}
	if number == 0 {
		return nil, fmt.Errorf("github: pull request number unknown (pass --pr or run on a pull_request event)")
	}
	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = defaultGitHubAPI
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GitHub{
		apiURL:  strings.TrimRight(apiURL, "/"),
		repo:    repo,
		number:  number,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
		headSHA: os.Getenv("GITHUB_SHA"),
	}, nil
}

// prNumberFromRef parses "refs/pull/123/merge" style refs.
func prNumberFromRef(ref string) int {
	parts := strings.Split(ref, "/")
	if len(parts) >= 3 && parts[0] == "refs" && parts[1] == "pull" {
		if n, err := strconv.Atoi(parts[2]); err == nil {
			return n
		}
	}
	return 0
}

func (g *GitHub) Name() string { return "github" }

type ghPull struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
}

type ghFile struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previous_filename"`
	Status           string `json:"status"`
	Patch            string `json:"patch"`
}

type ghComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

func (g *GitHub) Context(ctx context.Context) (*domain.ChangeRequest, error) {
	var pull ghPull
	if err := g.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/pulls/%d", g.repo, g.number), nil, &pull); err != nil {
		return nil, err
	}
	g.headSHA = pull.Head.SHA

	var files []ghFile
	for page := 1; ; page++ {
		var batch []ghFile
		path := fmt.Sprintf("/repos/%s/pulls/%d/files?per_page=%d&page=%d", g.repo, g.number, perPage, page)
		if err := g.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < perPage {
			break
		}
	}

	change := &domain.ChangeRequest{
		Number:      pull.Number,
		Title:       pull.Title,
		Description: pull.Body,
		Author:      pull.User.Login,
		BaseBranch:  pull.Base.Ref,
		HeadBranch:  pull.Head.Ref,
		HeadSHA:     pull.Head.SHA,
		RepoPath:    os.Getenv("GITHUB_WORKSPACE"),
	}
	var diff strings.Builder
	for _, f := range files {
		change.ChangedFiles = append(change.ChangedFiles, f.Filename)
		writePatch(&diff, f.Filename, f.PreviousFilename, f.Status, f.Patch)
	}
	change.Diff = diff.String()

	g.log.Infow("fetched pull request context",
		"repo", g.repo, "number", g.number, "files", len(files))
	return change, nil
}

// PostSummary upserts the review comment: an existing comment carrying
// the summary marker is edited in place, otherwise a new one is created.
func (g *GitHub) PostSummary(ctx context.Context, markdown string) error {
	var comments []ghComment
	listPath := fmt.Sprintf("/repos/%s/issues/%d/comments?per_page=%d", g.repo, g.number, perPage)
	if err := g.do(ctx, http.MethodGet, listPath, nil, &comments); err != nil {
		return err
	}
	body := map[string]string{"body": markdown}
	for _, c := range comments {
		if strings.Contains(c.Body, domain.SummaryMarker) {
			return g.do(ctx, http.MethodPatch,
				fmt.Sprintf("/repos/%s/issues/comments/%d", g.repo, c.ID), body, nil)
		}
	}
	return g.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/issues/%d/comments", g.repo, g.number), body, nil)
}

func (g *GitHub) UpdateStatus(ctx context.Context, state domain.StatusState, description string) error {
	if g.headSHA == "" {
		return fmt.Errorf("github: no commit sha known for status update")
	}
	body := map[string]string{
		"state":       string(state),
		"description": description,
		"context":     statusContext,
	}
	return g.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/statuses/%s", g.repo, g.headSHA), body, nil)
}

func (g *GitHub) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.apiURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github: %s %s: status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
