package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
	"github.com/valpere/ensembletran/internal/postprocess"
)

// DefaultOpenAIModel is used when no model is configured explicitly.
const DefaultOpenAIModel = "gpt-4o"

const openaiSystemPrompt = `You are a professional Arabic-to-English translator. You specialize in Modern Standard Arabic, classical Arabic, and technical/legal/literary registers.

Rules:
1. Output ONLY the English translation — no notes, no transliterations, no explanations
2. Preserve the original meaning, tone, and register
3. Translate idiomatic expressions to natural English equivalents
4. Keep proper nouns in standard English transliteration
5. Maintain paragraph structure and formatting`

// OpenAIBackend realizes the Contextual LLM B role via the OpenAI Chat
// Completions API.
type OpenAIBackend struct {
	model  string
	client openai.Client
}

// NewOpenAIBackend builds a Backend bound to apiKey. model falls back to
// DefaultOpenAIModel when empty.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIBackend{
		model:  model,
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (b *OpenAIBackend) MethodName() string { return "openai" }

func (b *OpenAIBackend) Translate(ctx context.Context, job Job) (ensemble.Candidate, error) {
	if isEmpty(job.Text) {
		return emptyInputCandidate(b.MethodName(), job.Text)
	}

	return withLatency(func() (ensemble.Candidate, error) {
		c := ensemble.Candidate{BackendID: b.MethodName(), SourceText: job.Text}

		userMessage := fmt.Sprintf("Translate the following Arabic text to English:\n\n%s", job.Text)
		if job.Context != "" {
			userMessage = fmt.Sprintf("Context (for reference only, do NOT translate):\n%s\n\n---\n\nTranslate the following Arabic text to English:\n\n%s", job.Context, job.Text)
		}

		resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: b.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(openaiSystemPrompt),
				openai.UserMessage(userMessage),
			},
			Temperature: openai.Float(0.3),
			MaxTokens:   openai.Int(4096),
		})
		if err != nil {
			c.Err = err.Error()
			return c, err
		}
		if len(resp.Choices) == 0 {
			c.Err = "empty response from API"
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		translated := postprocess.Clean(strings.TrimSpace(resp.Choices[0].Message.Content))
		if translated == "" {
			c.Err = "empty translation response"
			return c, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}

		finishReason := resp.Choices[0].FinishReason
		confidence := 0.87
		if finishReason == "stop" {
			confidence = 0.89
		}
		if len([]rune(translated)) < int(0.2*float64(len([]rune(job.Text)))) {
			confidence *= 0.7
		}

		c.TranslatedText = translated
		c.SelfConfidence = confidence
		c.Metadata = map[string]string{
			"model":             b.model,
			"finish_reason":     finishReason,
			"prompt_tokens":     fmt.Sprintf("%d", resp.Usage.PromptTokens),
			"completion_tokens": fmt.Sprintf("%d", resp.Usage.CompletionTokens),
		}
		return c, nil
	})
}
