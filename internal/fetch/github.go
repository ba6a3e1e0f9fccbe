package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/google/go-github/v55/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GitHubStage is the production Stage implementation against GitHub.
type GitHubStage struct {
	logger *zap.Logger
}

func NewGitHubStage(logger *zap.Logger) *GitHubStage {
	return &GitHubStage{logger: logger}
}

func (s *GitHubStage) clientFor(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

func (s *GitHubStage) Fetch(ctx context.Context, p Params) (*core.FetchBundle, error) {
	token := p.Credential
	if token == "" {
		token = p.GlobalToken
	}

	if p.Credential == "" {
		return s.fetchViaSearch(ctx, p, token)
	}
	return s.fetchViaRepo(ctx, p, token)
}

// fetchViaRepo lists PRs directly on the repository, as §4.4 step 1
// requires when a per-repository credential is available.
func (s *GitHubStage) fetchViaRepo(ctx context.Context, p Params, token string) (*core.FetchBundle, error) {
	client := s.clientFor(ctx, token)

	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var retained []*github.PullRequest
	for {
		prs, resp, err := s.listPageWithRetry(ctx, client, p.Owner, p.Name, opts)
		if err != nil {
			return nil, err
		}

		for _, pr := range prs {
			login := pr.GetUser().GetLogin()
			updated := pr.GetUpdatedAt().Time
			if !strings.EqualFold(login, p.AuthorLogin) {
				continue
			}
			if updated.Before(p.From) || updated.After(p.To) {
				continue
			}
			retained = append(retained, pr)
			if len(retained) >= MaxPRsPerRun {
				break
			}
		}

		if resp == nil || resp.NextPage == 0 || len(retained) >= MaxPRsPerRun {
			break
		}
		opts.Page = resp.NextPage
	}

	return s.buildBundle(ctx, client, p.Owner, p.Name, retained, true)
}

// listPageWithRetry retries HTTP 429/5xx responses up to maxAttempts with
// the §5 jittered backoff; 401/403/404 fail immediately as fatal.
func (s *GitHubStage) listPageWithRetry(ctx context.Context, client *github.Client, owner, name string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error) {
	var lastErr *core.PipelineError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, PerCallTimeout)
		prs, resp, err := client.PullRequests.List(reqCtx, owner, name, opts)
		cancel()

		if err == nil {
			return prs, resp, nil
		}

		pipelineErr := s.classifyListError(err, resp)
		if pipelineErr.Kind != core.ErrVCSRate {
			return nil, resp, pipelineErr
		}
		lastErr = pipelineErr

		if attempt < maxAttempts {
			s.logger.Warn("fetch: retrying after rate limit/5xx",
				zap.String("owner", owner), zap.String("repo", name), zap.Int("attempt", attempt))
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, nil, core.NewPipelineError(core.ErrVCSRate, "context cancelled during backoff", ctx.Err())
			}
		}
	}
	return nil, nil, lastErr
}

// fetchViaSearch is the fallback path (§4.4) used when the monitoring
// entry carries no repository credential: a host-wide author search
// restricted to the time window. This cannot see private repositories.
func (s *GitHubStage) fetchViaSearch(ctx context.Context, p Params, token string) (*core.FetchBundle, error) {
	client := s.clientFor(ctx, token)

	query := fmt.Sprintf("author:%s is:pr updated:%s..%s",
		p.AuthorLogin, p.From.Format("2006-01-02"), p.To.Format("2006-01-02"))

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}

	reqCtx, cancel := context.WithTimeout(ctx, PerCallTimeout)
	defer cancel()
	result, resp, err := client.Search.Issues(reqCtx, query, opts)
	if err != nil {
		if pipelineErr := s.classifyListError(err, resp); pipelineErr != nil {
			return nil, pipelineErr
		}
	}

	var retained []*github.PullRequest
	for _, issue := range result.Issues {
		if len(retained) >= MaxPRsPerRun {
			break
		}
		retained = append(retained, &github.PullRequest{
			Number:    issue.Number,
			Title:     issue.Title,
			HTMLURL:   issue.HTMLURL,
			State:     issue.State,
			User:      issue.User,
			CreatedAt: issue.CreatedAt,
			UpdatedAt: issue.UpdatedAt,
			Body:      issue.Body,
			Labels:    issue.Labels,
		})
	}

	// The search path surfaces PRs from whatever repository each issue
	// actually lives in, not necessarily p.Owner/p.Name, so per-file diffs
	// (scoped to a single owner/repo) are skipped here rather than fetched
	// against the wrong repository.
	return s.buildBundle(ctx, client, p.Owner, p.Name, retained, false)
}

func (s *GitHubStage) buildBundle(ctx context.Context, client *github.Client, owner, name string, prs []*github.PullRequest, fetchFiles bool) (*core.FetchBundle, error) {
	bundle := &core.FetchBundle{HasActivity: len(prs) > 0}
	if owner != "" && name != "" {
		bundle.Repository = owner + "/" + name
	}
	if !bundle.HasActivity {
		return bundle, nil
	}

	for _, pr := range prs {
		out := core.PullRequest{
			Number:      pr.GetNumber(),
			Title:       pr.GetTitle(),
			URL:         pr.GetHTMLURL(),
			State:       pr.GetState(),
			AuthorLogin: pr.GetUser().GetLogin(),
			CreatedAt:   pr.GetCreatedAt().Time,
			UpdatedAt:   pr.GetUpdatedAt().Time,
			Description: pr.GetBody(),
		}
		for _, l := range pr.Labels {
			out.Labels = append(out.Labels, l.GetName())
		}

		if fetchFiles && owner != "" && name != "" && pr.GetNumber() != 0 {
			files, err := s.listFiles(ctx, client, owner, name, pr.GetNumber())
			if err != nil {
				s.logger.Warn("fetch: failed to list PR files, continuing without them",
					zap.String("owner", owner), zap.String("repo", name),
					zap.Int("pr", pr.GetNumber()), zap.Error(err))
			} else {
				out.Files = files
			}
		}

		bundle.PRs = append(bundle.PRs, out)
	}

	return bundle, nil
}

func (s *GitHubStage) listFiles(ctx context.Context, client *github.Client, owner, name string, number int) ([]core.FileChange, error) {
	reqCtx, cancel := context.WithTimeout(ctx, PerCallTimeout)
	defer cancel()

	opts := &github.ListOptions{PerPage: MaxFilesPerPR}
	files, _, err := client.PullRequests.ListFiles(reqCtx, owner, name, number, opts)
	if err != nil {
		return nil, err
	}

	out := make([]core.FileChange, 0, len(files))
	for i, f := range files {
		if i >= MaxFilesPerPR {
			break
		}
		patch := f.GetPatch()
		truncated := false
		if len(patch) > MaxDiffBytes {
			patch = patch[:MaxDiffBytes] + "…"
			truncated = true
		}
		out = append(out, core.FileChange{
			Filename:     f.GetFilename(),
			PatchExcerpt: patch,
			Truncated:    truncated,
		})
	}
	return out, nil
}

// classifyListError maps the version-control host contract's status codes
// (§6) to the run executor's error taxonomy.
func (s *GitHubStage) classifyListError(err error, resp *github.Response) *core.PipelineError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	switch {
	case status == 401 || status == 403 || status == 404:
		return core.NewPipelineError(core.ErrVCSAuth, "version-control host rejected the request", err)
	case status == 429 || status >= 500:
		return core.NewPipelineError(core.ErrVCSRate, "version-control host rate limited or unavailable", err)
	default:
		return core.NewPipelineError(core.ErrVCSAuth, "version-control host request failed", err)
	}
}
