package core

import "time"

// FileChange is one changed file in a pull request, with its patch
// truncated to the fetch stage's per-file byte cap.
type FileChange struct {
	Filename     string
	PatchExcerpt string
	Truncated    bool
}

// PullRequest is the fetch stage's per-PR unit, trimmed to what the
// summarise stage's prompt serialisation needs.
type PullRequest struct {
	Number      int
	Title       string
	URL         string
	State       string
	AuthorLogin string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Description string
	Labels      []string
	Files       []FileChange
}

// FetchBundle is the fetch stage's output: the PRs retained after the
// author/window filter, plus whether any activity was found at all.
type FetchBundle struct {
	Repository  string
	PRs         []PullRequest
	HasActivity bool
}
