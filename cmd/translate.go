/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/ensembletran/internal/config"
	"github.com/valpere/ensembletran/internal/detector"
	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/judge"
	"github.com/valpere/ensembletran/internal/markdown"
	"github.com/valpere/ensembletran/internal/orchestrator"
	"github.com/valpere/ensembletran/internal/registry"
	"github.com/valpere/ensembletran/internal/store"
)

var (
	inputFile   string
	outputFile  string
	sourceLang  string
	targetLang  string

	anthropicAPIKey string
	anthropicModel  string
	googleCredsFile string
	googleAPIKey    string
	deeplAPIKey     string
	openaiAPIKey    string
	openaiModel     string
	judgeModel      string

	maxChunkChars     int
	chunkOverlapChars int
	forceMultiMethod  bool
	disableEnsemble   bool
	qualityThreshold  float64
	perCallTimeout    time.Duration
	maxRetries        int
	baseBackoff       time.Duration
	maxBackoff        time.Duration
	disableJudge      bool
	preferenceOrder   []string

	dbPath         string
	noCache        bool
	fuzzyThreshold float64

	stripMarkdown bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a source file through the backend ensemble",
	Long: `Translate reads inputFile, fans the text out to every configured backend
in parallel, scores the resulting candidates, and writes the winning
translation to outputFile.

Backends are discovered from explicit flags or, when a flag is empty, from
the matching environment variable (ANTHROPIC_API_KEY, GOOGLE_APPLICATION_CREDENTIALS
or GOOGLE_TRANSLATE_API_KEY, DEEPL_API_KEY, OPENAI_API_KEY). A backend with
no credential is skipped with a warning rather than failing the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(raw)

		if stripMarkdown {
			text = markdown.ToPlainText(raw)
		}

		if sourceLang == "auto" || sourceLang == "" {
			det := detector.New()
			if detected, ok := det.DetectISO(text); ok {
				sourceLang = detected
				fmt.Fprintf(os.Stderr, "Detected source language: %s\n", sourceLang)
			} else {
				sourceLang = "ar"
			}
		}

		ctx := context.Background()

		var db *store.Store
		if !noCache && dbPath != "" {
			db, err = store.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if cached, found, cacheErr := db.GetCachedTranslation(ctx, text, sourceLang, targetLang); cacheErr == nil && found {
				fmt.Fprintf(os.Stderr, "Using cached translation\n")
				return writeOutput(outputFile, cached, sourceLang, targetLang, true)
			}

			if fuzzyThreshold > 0 {
				if cached, found, cacheErr := db.FuzzyGetCachedTranslation(ctx, text, sourceLang, targetLang, fuzzyThreshold); cacheErr == nil && found {
					fmt.Fprintf(os.Stderr, "Using fuzzy-matched cached translation\n")
					return writeOutput(outputFile, cached, sourceLang, targetLang, true)
				}
			}
		}

		cfg := buildConfig()

		reg, err := registry.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to build backend registry: %w", err)
		}

		var j *judge.AnthropicJudge
		if cfg.JudgeEnabled {
			apiKey, model := reg.JudgeCredential()
			if apiKey != "" {
				j = judge.New(apiKey, model)
			} else {
				fmt.Fprintf(os.Stderr, "[judge] no anthropic credential available, disabling judge\n")
			}
		}

		orch, err := orchestrator.New(reg, cfg, j)
		if err != nil {
			return fmt.Errorf("failed to build orchestrator: %w", err)
		}

		result, err := orch.Translate(ctx, ensemble.SourceJob{
			Text:       text,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		})
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}

		if db != nil && !noCache {
			if err := db.SaveWinner(ctx, text, sourceLang, targetLang, result.Translation, result.Report.WinnerBackendID, result.Report.JudgeUsed, result.Report.PerBackendTotal[result.Report.WinnerBackendID]); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save translation memory: %v\n", err)
			}
		}

		fmt.Fprintf(os.Stderr, "Winner: %s (judge used: %v)\n", result.Report.WinnerBackendID, result.Report.JudgeUsed)
		return writeOutput(outputFile, result.Translation, sourceLang, targetLang, false)
	},
}

// buildConfig assembles an internal/config.Config from CLI flags, layering
// over the spec-mandated defaults.
func buildConfig() config.Config {
	cfg := config.Default()

	if maxChunkChars > 0 {
		cfg.MaxChunkChars = maxChunkChars
	}
	if chunkOverlapChars >= 0 {
		cfg.ChunkOverlapChars = chunkOverlapChars
	}
	cfg.EnableEnsemble = !disableEnsemble
	cfg.ForceMultiMethod = forceMultiMethod
	if qualityThreshold > 0 {
		cfg.QualityThreshold = qualityThreshold
	}
	if perCallTimeout > 0 {
		cfg.PerCallTimeout = perCallTimeout
	}
	if maxRetries >= 0 {
		cfg.MaxRetries = maxRetries
	}
	if baseBackoff > 0 {
		cfg.BaseBackoff = baseBackoff
	}
	if maxBackoff > 0 {
		cfg.MaxBackoff = maxBackoff
	}
	cfg.JudgeEnabled = !disableJudge
	if len(preferenceOrder) > 0 {
		cfg.PreferenceOrder = preferenceOrder
	}

	cfg.Credentials = config.Credentials{
		AnthropicAPIKey:       anthropicAPIKey,
		AnthropicModel:        anthropicModel,
		GoogleCredentialsFile: googleCredsFile,
		GoogleAPIKey:          googleAPIKey,
		DeepLAPIKey:           deeplAPIKey,
		OpenAIAPIKey:          openaiAPIKey,
		OpenAIModel:           openaiModel,
		JudgeModel:            judgeModel,
	}

	return cfg
}

// writeOutput writes the translated text to outputFile and prints a summary.
func writeOutput(outputFile, text, sourceLang, targetLang string, fromCache bool) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if fromCache {
		fmt.Printf("Successfully translated %s to %s (from cache)\n", sourceLang, targetLang)
	} else {
		fmt.Printf("Successfully translated %s to %s\n", sourceLang, targetLang)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for translation (required)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code (auto-detects when omitted)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")

	translateCmd.Flags().StringVar(&anthropicAPIKey, "anthropic-key", "", "Anthropic API key (falls back to ANTHROPIC_API_KEY)")
	translateCmd.Flags().StringVar(&anthropicModel, "anthropic-model", "", "Anthropic model override")
	translateCmd.Flags().StringVar(&googleCredsFile, "google-credentials", "", "Path to Google Cloud credentials JSON (falls back to GOOGLE_APPLICATION_CREDENTIALS)")
	translateCmd.Flags().StringVar(&googleAPIKey, "google-api-key", "", "Google Translate API key for the direct-HTTPS fallback transport (falls back to GOOGLE_TRANSLATE_API_KEY)")
	translateCmd.Flags().StringVar(&deeplAPIKey, "deepl-key", "", "DeepL API key (falls back to DEEPL_API_KEY)")
	translateCmd.Flags().StringVar(&openaiAPIKey, "openai-key", "", "OpenAI API key (falls back to OPENAI_API_KEY)")
	translateCmd.Flags().StringVar(&openaiModel, "openai-model", "", "OpenAI model override")
	translateCmd.Flags().StringVar(&judgeModel, "judge-model", "", "Anthropic model used by the judge (defaults to judge.DefaultModel)")

	translateCmd.Flags().IntVar(&maxChunkChars, "max-chunk-chars", 0, "Maximum characters per chunk (0 = use default)")
	translateCmd.Flags().IntVar(&chunkOverlapChars, "chunk-overlap-chars", -1, "Chunk overlap in characters, passed to the chunker, which does not use it; carry-context is always the whole preceding chunk (-1 = use default)")
	translateCmd.Flags().BoolVar(&forceMultiMethod, "force-multi-method", false, "Force ensemble fan-out even when --disable-ensemble is set")
	translateCmd.Flags().BoolVar(&disableEnsemble, "disable-ensemble", false, "Disable ensemble fan-out (use the highest-preference available backend only, no evaluator)")
	translateCmd.Flags().Float64Var(&qualityThreshold, "quality-threshold", 0, "Score gap below which the judge is consulted (0 = use default)")
	translateCmd.Flags().DurationVar(&perCallTimeout, "per-call-timeout", 0, "Per-backend-call timeout (0 = use default)")
	translateCmd.Flags().IntVar(&maxRetries, "max-retries", -1, "Retries per backend call after the first attempt (values below 1 use the default)")
	translateCmd.Flags().DurationVar(&baseBackoff, "base-backoff", 0, "Base exponential backoff duration (0 = use default)")
	translateCmd.Flags().DurationVar(&maxBackoff, "max-backoff", 0, "Maximum backoff duration (0 = use default)")
	translateCmd.Flags().BoolVar(&disableJudge, "disable-judge", false, "Disable the LLM judge tiebreaker")
	translateCmd.Flags().StringSliceVar(&preferenceOrder, "preference-order", nil, "Deterministic tie-break backend order (comma-separated)")

	translateCmd.Flags().StringVar(&dbPath, "db", "./data/ensembletran.db", "Database path for translation memory")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable translation memory cache")
	translateCmd.Flags().Float64Var(&fuzzyThreshold, "fuzzy-threshold", 0, "Fuzzy cache similarity threshold (0 to disable, e.g. 0.85)")

	translateCmd.Flags().BoolVar(&stripMarkdown, "markdown", false, "Strip Markdown markup from OCR input before chunking")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}
