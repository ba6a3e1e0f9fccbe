package summarize

import (
	"strings"
	"testing"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

func TestBuildPrompt_TruncatesDescriptionAndIncludesFields(t *testing.T) {
	longDesc := strings.Repeat("a", 250)
	bundle := &core.FetchBundle{
		HasActivity: true,
		Repository:  "acme/widgets",
		PRs: []core.PullRequest{
			{
				Number:      7,
				Title:       "Add retry logic",
				URL:         "https://example.com/pr/7",
				State:       "open",
				CreatedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Description: longDesc,
				Labels:      []string{"bug", "backend"},
				Files: []core.FileChange{
					{Filename: "main.go", PatchExcerpt: "+added a line"},
				},
			},
		},
	}

	prompt := buildPrompt(bundle, "Summarize the following activity.")

	if !strings.Contains(prompt, "PR #7: Add retry logic") {
		t.Fatalf("expected PR title in prompt, got: %s", prompt)
	}
	if !strings.Contains(prompt, "Repository: acme/widgets") {
		t.Fatalf("expected repository in prompt, got: %s", prompt)
	}
	if !strings.Contains(prompt, "Labels: bug, backend") {
		t.Fatalf("expected labels in prompt, got: %s", prompt)
	}
	if strings.Contains(prompt, longDesc) {
		t.Fatalf("expected description to be truncated, got full description in prompt")
	}
	if !strings.Contains(prompt, strings.Repeat("a", descriptionMaxChars)+"…") {
		t.Fatalf("expected truncated description with ellipsis marker")
	}
	if !strings.Contains(prompt, "main.go") {
		t.Fatalf("expected file patch excerpt in prompt")
	}
}

func TestLLMStage_NoActivitySkipsCall(t *testing.T) {
	stage := NewLLMStage("unused-key", "gpt-4o-mini", 0, nil)
	bundle := &core.FetchBundle{HasActivity: false}

	summary, err := stage.Summarize(nil, bundle, "instruction")
	if err != nil {
		t.Fatalf("expected no error for no-activity bundle, got %v", err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary for no-activity bundle, got %q", *summary)
	}
}

func TestRetryDelay_WithinExpectedRange(t *testing.T) {
	d := retryDelay(1)
	min := 30 * time.Second
	max := 35 * time.Second
	if d < min || d > max {
		t.Fatalf("expected delay in [%v, %v], got %v", min, max, d)
	}
}
