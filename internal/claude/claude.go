package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 2048

// Risk is a task Claude flags as threatening the schedule.
type Risk struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// Explanation is the stakeholder report returned by ExplainSchedule.
type Explanation struct {
	Headline  string `json:"headline"`
	Narrative string `json:"narrative"`
	Risks     []Risk `json:"risks"`
}

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to Claude Sonnet; maxTokens <= 0 means 2048.
func NewClient(apiKey, model string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := anthropic.ModelClaudeSonnet4_6
	if model != "" {
		m = anthropic.Model(model)
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{inner: inner, model: m, maxTokens: int64(maxTokens)}, nil
}

const explainSchedulePrompt = `You are a project manager writing a schedule status note for stakeholders.

You will receive a critical path analysis of one milestone: the project span,
the critical path, every task's early/late start, duration and slack in days,
and any data-quality warnings.

Write:
- A one-line headline stating whether the milestone is on track.
- A short narrative (one or two paragraphs) explaining which chain of tasks
  drives the finish date and where there is room to absorb delays.
- A list of risks: tasks with zero or negative slack, and tasks whose
  warnings suggest the plan itself is inconsistent.

Only refer to task IDs that appear in the analysis. Do not invent dates.

Return your answer as JSON with this exact structure:
{
  "headline": "<one line>",
  "narrative": "<plain text>",
  "risks": [
    {"task_id": "<task id>", "reason": "<short explanation>"}
  ]
}

Return ONLY the JSON object. No markdown fences, no commentary outside the JSON.
`

// buildPrompt constructs the user message for a schedule explanation.
func buildPrompt(summary string) string {
	var b strings.Builder
	b.WriteString("## Schedule Analysis\n\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	return b.String()
}

// ExplainSchedule sends a plain-text analysis summary to Claude and returns
// a stakeholder-facing explanation of the schedule.
func (c *Client) ExplainSchedule(ctx context.Context, summary string) (*Explanation, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("empty schedule summary")
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: explainSchedulePrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(summary))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return parseExplanation(text)
}

func parseExplanation(text string) (*Explanation, error) {
	text = stripJSONFences(text)

	var result Explanation
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse claude response: %w\nraw: %s", err, text)
	}
	if result.Headline == "" && result.Narrative == "" {
		return nil, fmt.Errorf("claude response has no headline or narrative")
	}
	return &result, nil
}

// stripJSONFences removes markdown code fences that Claude sometimes adds.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	// Remove ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
