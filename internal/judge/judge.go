// Package judge implements the LLM-as-judge tiebreaker: when automated
// quality scores are too close to call, the judge receives the source and
// every successful candidate and returns a 1-10 score per candidate across
// five dimensions, plus a rationale. It shares its credential with the
// anthropic backend, per the external-interfaces contract.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
	"github.com/valpere/ensembletran/internal/evaluator"
)

// DefaultModel is used when no model is configured explicitly.
const DefaultModel = "claude-sonnet-4-6"

// maxSourcePrefix truncates the source text handed to the judge to avoid
// blowing the prompt budget on very long chunks.
const maxSourcePrefix = 2000

// AnthropicJudge realizes evaluator.Judge via the Anthropic Messages API.
type AnthropicJudge struct {
	model  string
	client anthropic.Client
}

// New builds an AnthropicJudge bound to apiKey (the same credential as the
// anthropic backend). model falls back to DefaultModel when empty.
func New(apiKey, model string) *AnthropicJudge {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicJudge{
		model:  model,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Evaluate implements evaluator.Judge.
func (j *AnthropicJudge) Evaluate(ctx context.Context, source string, candidates []ensemble.Candidate) (evaluator.JudgeResult, error) {
	if len(candidates) < 2 {
		return evaluator.JudgeResult{}, &ensembleerr.JudgeError{Reason: "fewer than two candidates to judge"}
	}

	prompt := buildPrompt(source, candidates)

	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return evaluator.JudgeResult{}, &ensembleerr.JudgeError{Reason: fmt.Sprintf("transport error: %v", err)}
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		responseText.WriteString(block.Text)
	}

	return parseResponse(responseText.String())
}

func buildPrompt(source string, candidates []ensemble.Candidate) string {
	truncated := source
	if len([]rune(truncated)) > maxSourcePrefix {
		truncated = string([]rune(truncated)[:maxSourcePrefix])
	}

	var translationsBlock strings.Builder
	var evalTemplates []string
	for i, c := range candidates {
		fmt.Fprintf(&translationsBlock, "\n--- TRANSLATION %d (method: %s) ---\n%s\n", i+1, c.BackendID, c.TranslatedText)
		evalTemplates = append(evalTemplates, fmt.Sprintf(
			`"%s": {"accuracy": <1-10>, "fluency": <1-10>, "completeness": <1-10>, "terminology": <1-10>, "register": <1-10>}`,
			c.BackendID))
	}

	var sb strings.Builder
	sb.WriteString("You are an expert translation quality evaluator specializing in Arabic-to-English translation.\n\n")
	fmt.Fprintf(&sb, "You will be given the original Arabic text and %d different English translations.\n", len(candidates))
	sb.WriteString("Evaluate each translation on these dimensions (score 1-10 for each): accuracy, fluency, completeness, terminology, register.\n\n")
	sb.WriteString("ORIGINAL ARABIC TEXT:\n")
	sb.WriteString(truncated)
	sb.WriteString("\n")
	sb.WriteString(translationsBlock.String())
	sb.WriteString("\nRespond in this EXACT JSON format (no other text):\n{\n  \"evaluations\": {\n    ")
	sb.WriteString(strings.Join(evalTemplates, ",\n    "))
	sb.WriteString("\n  },\n  \"best_method\": \"<method_name of the best translation>\",\n  \"reasoning\": \"<brief explanation>\"\n}")

	return sb.String()
}

type judgeResponse struct {
	Evaluations map[string]map[string]json.Number `json:"evaluations"`
	BestMethod  string                            `json:"best_method"`
	Reasoning   string                            `json:"reasoning"`
}

// parseResponse extracts the outermost JSON object from raw (which may
// carry leading/trailing prose) and normalizes judge scores from 1-10 to
// [0,1], prefixing each dimension with "judge_".
func parseResponse(raw string) (evaluator.JudgeResult, error) {
	object, ok := extractJSONObject(raw)
	if !ok {
		return evaluator.JudgeResult{}, &ensembleerr.JudgeError{Reason: "no JSON object found in judge response"}
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return evaluator.JudgeResult{}, &ensembleerr.JudgeError{Reason: fmt.Sprintf("malformed judge response: %v", err)}
	}

	perBackend := make(map[string]ensemble.DimensionScores, len(parsed.Evaluations))
	for backendID, dims := range parsed.Evaluations {
		normalized := make(ensemble.DimensionScores, len(dims))
		for dimName, rawScore := range dims {
			f, err := strconv.ParseFloat(rawScore.String(), 64)
			if err != nil {
				continue
			}
			normalized["judge_"+dimName] = f / 10.0
		}
		if len(normalized) > 0 {
			perBackend[backendID] = normalized
		}
	}

	if len(perBackend) == 0 {
		return evaluator.JudgeResult{}, &ensembleerr.JudgeError{Reason: "judge response had no usable evaluations"}
	}

	return evaluator.JudgeResult{PerBackend: perBackend, Reasoning: parsed.Reasoning}, nil
}

// extractJSONObject finds the first "{" and its matching "}" by brace
// depth, tolerating any leading or trailing prose the model added.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
