// Package summarize implements the summarise stage (C5): turn a fetched
// bundle into an email-ready text block via a chat-completion LLM call,
// with a process-wide throttle and retry on 429/5xx. Grounded on the
// retrieved kurihiro0119/github-activity-metrics example's pacing idea
// (golang.org/x/time/rate, already a teacher dependency) and the teacher's
// own retry-with-backoff idiom in internal/checker (since deleted), rebuilt
// here against the §4.5/§5 formula instead of the teacher's fixed interval.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxAttempts         = 3
	descriptionMaxChars = 200
	callTimeout         = 60 * time.Second
	defaultMinInterval  = 2 * time.Second
)

// Stage is the summarise stage's public surface.
type Stage interface {
	Summarize(ctx context.Context, bundle *core.FetchBundle, instruction string) (*string, error)
}

// LLMStage calls a chat-completion endpoint, pacing every call through a
// single process-wide limiter so the 2s minimum inter-request interval
// holds across every monitoring entry the tick loop visits.
type LLMStage struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMStage builds the stage. The limiter must be owned by the same
// process as the tick loop (cmd/worker) and never shared across processes.
// minInterval is the §6 pacer knob (config.LLMConfig.MinInterval); callers
// that pass zero get the documented 2s default.
func NewLLMStage(apiKey, model string, minInterval time.Duration, logger *zap.Logger) *LLMStage {
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}
	return &LLMStage{
		client:  openai.NewClient(apiKey),
		model:   model,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:  logger,
	}
}

// Summarize returns (nil, nil) when the bundle has no activity, per §4.5's
// no-activity short-circuit: no LLM call is made.
func (s *LLMStage) Summarize(ctx context.Context, bundle *core.FetchBundle, instruction string) (*string, error) {
	if bundle == nil || !bundle.HasActivity {
		return nil, nil
	}

	prompt := buildPrompt(bundle, instruction)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, core.NewPipelineError(core.ErrLLMFail, "pacer wait cancelled", err)
		}

		reqCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err := s.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return nil, core.NewPipelineError(core.ErrLLMFail, "llm returned no choices", nil)
			}
			text := resp.Choices[0].Message.Content
			return &text, nil
		}

		retryable := classifyRetryable(err)
		if !retryable || attempt == maxAttempts {
			return nil, core.NewPipelineError(core.ErrLLMFail, "llm request failed", err)
		}

		s.logger.Warn("summarize: retrying after llm error", zap.Int("attempt", attempt), zap.Error(err))
		delay := retryDelay(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, core.NewPipelineError(core.ErrLLMFail, "context cancelled during backoff", ctx.Err())
		}
	}

	return nil, core.NewPipelineError(core.ErrLLMFail, "retries exhausted", nil)
}

// retryDelay implements §4.5's formula: (2^attempt * 15 + random(0,5)) seconds.
func retryDelay(attempt int) time.Duration {
	base := math.Pow(2, float64(attempt)) * 15
	jitter := rand.Float64() * 5
	return time.Duration((base + jitter) * float64(time.Second))
}

// classifyRetryable treats an *openai.APIError with a 429 or 5xx status as
// retryable; anything else (4xx, network errors without a status) is
// treated as a fatal failure of the stage.
func classifyRetryable(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
}

// buildPrompt serialises the bundle into the compact, deterministic shape
// required by §4.5: title, repository, state, creation date, URL,
// description truncated to 200 chars, labels, truncated file patches.
func buildPrompt(bundle *core.FetchBundle, instruction string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")

	for _, pr := range bundle.PRs {
		fmt.Fprintf(&b, "PR #%d: %s\n", pr.Number, pr.Title)
		if bundle.Repository != "" {
			fmt.Fprintf(&b, "Repository: %s\n", bundle.Repository)
		}
		fmt.Fprintf(&b, "State: %s\n", pr.State)
		fmt.Fprintf(&b, "Created: %s\n", pr.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "URL: %s\n", pr.URL)
		if len(pr.Labels) > 0 {
			fmt.Fprintf(&b, "Labels: %s\n", strings.Join(pr.Labels, ", "))
		}
		if desc := truncate(pr.Description, descriptionMaxChars); desc != "" {
			fmt.Fprintf(&b, "Description: %s\n", desc)
		}
		for _, f := range pr.Files {
			fmt.Fprintf(&b, "File %s:\n%s\n", f.Filename, f.PatchExcerpt)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
