// Package fetch implements the fetch stage (C4): enumerate pull requests
// authored by a target within a time window on one repository, collecting
// bounded per-file diffs. Grounded on the retrieved
// kurihiro0119/github-activity-metrics example's internal/collector
// package — the paged-list-then-per-item-detail shape and its
// rate-limit/response handling are adapted here to PR listing instead of
// commit listing, with the §5 jittered backoff this design requires layered
// on top since go-github's own rate-limit plumbing doesn't implement it.
package fetch

import (
	"context"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

const (
	MaxPRsPerRun    = 100
	MaxFilesPerPR   = 10
	MaxDiffBytes    = 500
	PerCallTimeout  = 15 * time.Second
)

// Params is the fetch stage's input for one run.
type Params struct {
	Owner       string
	Name        string
	Credential  string // decrypted per-repository token, empty triggers fallback search
	GlobalToken string // process-global token used when Credential is empty
	AuthorLogin string
	From        time.Time
	To          time.Time
}

// Stage is the fetch stage's public surface, implemented by GitHubStage.
type Stage interface {
	Fetch(ctx context.Context, params Params) (*core.FetchBundle, error)
}
