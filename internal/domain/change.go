package domain

// ChangeRequest is the pull/merge request under review, supplied by a
// platform adapter and treated as read-only input for the whole run.
type ChangeRequest struct {
	Number       int      `json:"number,omitempty"`
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Author       string   `json:"author,omitempty"`
	BaseBranch   string   `json:"base_branch,omitempty"`
	HeadBranch   string   `json:"head_branch,omitempty"`
	HeadSHA      string   `json:"head_sha,omitempty"`
	RepoPath     string   `json:"repo_path,omitempty"`
	ChangedFiles []string `json:"changed_files"`
	Diff         string   `json:"-"`
}
