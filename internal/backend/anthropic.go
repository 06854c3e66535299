package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
	"github.com/valpere/ensembletran/internal/postprocess"
)

// DefaultAnthropicModel is used when no model is configured explicitly.
const DefaultAnthropicModel = "claude-3-5-sonnet-latest"

const anthropicSystemPrompt = `You are a professional Arabic-to-English translator. Translate the text the user sends, preserving meaning, tone, and register. Respond with the translation only — no preamble, no explanations, no quotation marks.`

// AnthropicBackend realizes Contextual LLM A via the Anthropic Messages API.
type AnthropicBackend struct {
	apiKey string
	model  string
	client anthropic.Client
}

// NewAnthropicBackend builds a Backend bound to apiKey. model falls back to
// DefaultAnthropicModel when empty.
func NewAnthropicBackend(apiKey, model string) *AnthropicBackend {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicBackend{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (b *AnthropicBackend) MethodName() string { return "anthropic" }

func (b *AnthropicBackend) Translate(ctx context.Context, job Job) (ensemble.Candidate, error) {
	if isEmpty(job.Text) {
		return emptyInputCandidate(b.MethodName(), job.Text)
	}

	return withLatency(func() (ensemble.Candidate, error) {
		c := ensemble.Candidate{BackendID: b.MethodName(), SourceText: job.Text}

		prompt := job.Text
		if job.Context != "" {
			prompt = fmt.Sprintf("CONTEXT (previous passage, for continuity only — do not retranslate this):\n%s\n\nTEXT TO TRANSLATE:\n%s", job.Context, job.Text)
		}

		message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(b.model),
			MaxTokens:   4096,
			Temperature: anthropic.Float(0.2),
			System: []anthropic.TextBlockParam{
				{Text: anthropicSystemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			c.Err = err.Error()
			return c, err
		}

		var out strings.Builder
		for _, block := range message.Content {
			if text := block.Text; text != "" {
				out.WriteString(text)
			}
		}
		translated := postprocess.Clean(out.String())
		if strings.TrimSpace(translated) == "" {
			c.Err = "empty translation response"
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		confidence := 0.90
		if message.StopReason == anthropic.StopReasonEndTurn {
			confidence += 0.02
		}
		if len([]rune(translated)) < int(0.2*float64(len([]rune(job.Text)))) {
			confidence *= 0.7
		}

		c.TranslatedText = translated
		c.SelfConfidence = confidence
		c.Metadata = map[string]string{
			"model":       b.model,
			"stop_reason": string(message.StopReason),
		}
		return c, nil
	})
}
