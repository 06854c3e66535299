// Package evaluator ranks a set of Candidate translations across five
// quality dimensions — accuracy, fluency, completeness, consistency, and
// cross-agreement — blending automated heuristics with an optional
// LLM-as-judge pass when the automated scores are too close to call.
package evaluator

import (
	"context"
	"sort"

	"github.com/valpere/ensembletran/internal/ensemble"
)

// DimensionWeights are the fixed weights used to combine automated
// dimension scores into a single total. They never change when judge
// dimensions are blended in afterward.
var DimensionWeights = map[string]float64{
	"accuracy":        0.30,
	"fluency":         0.25,
	"completeness":    0.25,
	"consistency":     0.10,
	"cross_agreement": 0.10,
}

// DefaultPreferenceOrder breaks ties deterministically: contextual LLM A,
// fluency-optimized neural MT, contextual LLM B, statistical/neural MT A.
var DefaultPreferenceOrder = []string{"anthropic", "deepl", "openai", "google"}

// DefaultQualityThreshold is the score gap below which the judge is invoked.
const DefaultQualityThreshold = 0.10

// Judge evaluates a source string against a set of successful candidates
// and returns per-backend 1-10 scores across five judge dimensions, plus a
// rationale. Implementations must tolerate malformed provider responses and
// return a JudgeError rather than panicking.
type Judge interface {
	Evaluate(ctx context.Context, source string, candidates []ensemble.Candidate) (JudgeResult, error)
}

// JudgeResult is the normalized [0,1] output of a Judge pass.
type JudgeResult struct {
	// PerBackend maps backend id to its judge dimension scores, already
	// divided by 10 and prefixed with "judge_".
	PerBackend map[string]ensemble.DimensionScores
	Reasoning  string
}

// Config controls preference order and the judge-trigger gap.
type Config struct {
	PreferenceOrder  []string
	QualityThreshold float64
	Judge            Judge
	JudgeEnabled     bool

	// LanguageValid maps a backend id to whether its candidate passed the
	// per-chunk target-language check (internal/validator). A backend
	// absent from the map is treated as unchecked and never forces the
	// judge on its own. A false entry is an additional quality signal: it
	// forces a judge pass regardless of the automated score gap, since an
	// automated total can score a wrong-language candidate highly.
	LanguageValid map[string]bool
}

func (c Config) withDefaults() Config {
	if len(c.PreferenceOrder) == 0 {
		c.PreferenceOrder = DefaultPreferenceOrder
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = DefaultQualityThreshold
	}
	return c
}

// Evaluate ranks candidates against source and returns the resulting
// QualityReport. Failed candidates are recorded in neither the totals nor
// cross-agreement and never win; when every candidate failed, the report
// has no winner.
func Evaluate(ctx context.Context, source string, candidates []ensemble.Candidate, cfg Config) ensemble.QualityReport {
	cfg = cfg.withDefaults()

	successful := make([]ensemble.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Successful() {
			successful = append(successful, c)
		}
	}

	if len(successful) == 0 {
		return ensemble.QualityReport{Rationale: "all backends failed"}
	}

	if len(successful) == 1 {
		only := successful[0]
		return ensemble.QualityReport{
			PerBackendTotal: map[string]float64{only.BackendID: only.SelfConfidence},
			PerBackendDimensions: map[string]ensemble.DimensionScores{
				only.BackendID: {"self_confidence": only.SelfConfidence},
			},
			WinnerBackendID: only.BackendID,
		}
	}

	dims := make(map[string]ensemble.DimensionScores, len(successful))
	totals := make(map[string]float64, len(successful))

	peerTextsByBackend := make(map[string][]string, len(successful))
	for _, c := range successful {
		var peers []string
		for _, other := range successful {
			if other.BackendID == c.BackendID {
				continue
			}
			peers = append(peers, other.TranslatedText)
		}
		peerTextsByBackend[c.BackendID] = peers
	}

	for _, c := range successful {
		d := ensemble.DimensionScores{
			"accuracy":        accuracy(c.TranslatedText, c.SelfConfidence),
			"fluency":         fluency(c.TranslatedText),
			"completeness":    completeness(source, c.TranslatedText),
			"consistency":     consistency(c.TranslatedText),
			"cross_agreement": crossAgreement(c.TranslatedText, peerTextsByBackend[c.BackendID]),
		}
		dims[c.BackendID] = d
		totals[c.BackendID] = weightedTotal(d)
	}

	judgeUsed := false
	reasoning := ""

	if cfg.JudgeEnabled && cfg.Judge != nil && (shouldUseJudge(totals, cfg.QualityThreshold) || anyLanguageInvalid(successful, cfg.LanguageValid)) {
		if result, err := cfg.Judge.Evaluate(ctx, source, successful); err == nil {
			for backendID, judgeDims := range result.PerBackend {
				if _, ok := totals[backendID]; !ok {
					continue
				}
				judgeMean := meanDimensions(judgeDims)
				totals[backendID] = 0.6*judgeMean + 0.4*totals[backendID]
				for k, v := range judgeDims {
					dims[backendID][k] = v
				}
			}
			reasoning = result.Reasoning
			judgeUsed = true
		}
		// A judge error is swallowed here: the evaluator proceeds
		// heuristic-only, matching the JudgeError contract.
	}

	winner := pickWinner(totals, cfg.PreferenceOrder)

	return ensemble.QualityReport{
		PerBackendTotal:      totals,
		PerBackendDimensions: dims,
		WinnerBackendID:      winner,
		JudgeUsed:            judgeUsed,
		Rationale:            reasoning,
	}
}

func weightedTotal(d ensemble.DimensionScores) float64 {
	var total, weight float64
	for dim, w := range DimensionWeights {
		if v, ok := d[dim]; ok {
			total += v * w
			weight += w
		}
	}
	if weight == 0 {
		return 0
	}
	return total / weight
}

func meanDimensions(d ensemble.DimensionScores) float64 {
	if len(d) == 0 {
		return 0
	}
	var sum float64
	for _, v := range d {
		sum += v
	}
	return sum / float64(len(d))
}

// anyLanguageInvalid reports whether any successful candidate failed its
// target-language check, per the validator-derived signal in languageValid.
// A backend absent from languageValid was never checked and does not count.
func anyLanguageInvalid(successful []ensemble.Candidate, languageValid map[string]bool) bool {
	for _, c := range successful {
		if valid, checked := languageValid[c.BackendID]; checked && !valid {
			return true
		}
	}
	return false
}

func shouldUseJudge(totals map[string]float64, threshold float64) bool {
	if len(totals) < 2 {
		return false
	}
	values := make([]float64, 0, len(totals))
	for _, v := range totals {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values[0]-values[1] < threshold
}

// pickWinner returns the backend with the highest total, breaking ties by
// preferenceOrder so selection is deterministic across runs regardless of
// map iteration order.
func pickWinner(totals map[string]float64, preferenceOrder []string) string {
	var best string
	bestScore := -1.0
	for _, backendID := range preferenceOrder {
		score, ok := totals[backendID]
		if !ok {
			continue
		}
		if score > bestScore {
			best = backendID
			bestScore = score
		}
	}
	// Any backend absent from preferenceOrder (unexpected, but handled)
	// still participates, appended after the preferred ones in a stable,
	// sorted order so ties remain deterministic.
	var extras []string
	for backendID := range totals {
		if !contains(preferenceOrder, backendID) {
			extras = append(extras, backendID)
		}
	}
	sort.Strings(extras)
	for _, backendID := range extras {
		score := totals[backendID]
		if score > bestScore {
			best = backendID
			bestScore = score
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
