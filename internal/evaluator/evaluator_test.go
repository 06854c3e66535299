package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/valpere/ensembletran/internal/ensemble"
)

func TestEvaluate_NoSuccessfulCandidates(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", Err: "transport error"},
		{BackendID: "openai", Err: "transport error"},
	}
	report := Evaluate(context.Background(), "source", candidates, Config{})
	if !report.Failed() {
		t.Error("expected Failed() when no candidate succeeded")
	}
}

func TestEvaluate_SingleCandidatePassthrough(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", TranslatedText: "Hello there.", SelfConfidence: 0.91},
	}
	report := Evaluate(context.Background(), "مرحبا", candidates, Config{})
	if report.WinnerBackendID != "anthropic" {
		t.Errorf("expected anthropic to win by default, got %s", report.WinnerBackendID)
	}
	if report.PerBackendTotal["anthropic"] != 0.91 {
		t.Errorf("expected single-candidate total to mirror self confidence, got %v", report.PerBackendTotal["anthropic"])
	}
}

func TestEvaluate_PicksHigherScoringCandidate(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", TranslatedText: "This is a clean, fluent, well formed English sentence about the weather today.", SelfConfidence: 0.9},
		{BackendID: "google", TranslatedText: "bad مرحبا output", SelfConfidence: 0.5},
	}
	report := Evaluate(context.Background(), "هذا نص عن الطقس اليوم.", candidates, Config{QualityThreshold: 0.10})
	if report.WinnerBackendID != "anthropic" {
		t.Errorf("expected anthropic to win on quality, got %s", report.WinnerBackendID)
	}
}

func TestEvaluate_SkipsFailedCandidates(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", Err: "timeout"},
		{BackendID: "openai", TranslatedText: "A reasonable translation of the source text.", SelfConfidence: 0.85},
	}
	report := Evaluate(context.Background(), "source text", candidates, Config{})
	if report.WinnerBackendID != "openai" {
		t.Errorf("expected openai to win as the only successful candidate, got %s", report.WinnerBackendID)
	}
	if _, ok := report.PerBackendTotal["anthropic"]; ok {
		t.Error("expected failed candidate to be absent from PerBackendTotal")
	}
}

type stubJudge struct {
	result JudgeResult
	err    error
	called bool
}

func (j *stubJudge) Evaluate(ctx context.Context, source string, candidates []ensemble.Candidate) (JudgeResult, error) {
	j.called = true
	return j.result, j.err
}

func TestEvaluate_InvokesJudgeWhenScoresAreClose(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", TranslatedText: "A fluent translation of reasonable length and quality here today.", SelfConfidence: 0.85},
		{BackendID: "openai", TranslatedText: "A fluent translation of reasonable length and quality here today!", SelfConfidence: 0.85},
	}
	judge := &stubJudge{result: JudgeResult{
		PerBackend: map[string]ensemble.DimensionScores{
			"anthropic": {"judge_accuracy": 0.95},
			"openai":    {"judge_accuracy": 0.70},
		},
		Reasoning: "anthropic is slightly more precise",
	}}
	report := Evaluate(context.Background(), "source", candidates, Config{
		Judge:        judge,
		JudgeEnabled: true,
	})
	if !judge.called {
		t.Fatal("expected judge to be invoked when automated totals are close")
	}
	if !report.JudgeUsed {
		t.Error("expected JudgeUsed=true")
	}
	if report.WinnerBackendID != "anthropic" {
		t.Errorf("expected judge-blended score to favor anthropic, got %s", report.WinnerBackendID)
	}
}

func TestEvaluate_JudgeErrorIsSwallowed(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", TranslatedText: "A fluent translation of reasonable length and quality here today.", SelfConfidence: 0.85},
		{BackendID: "openai", TranslatedText: "A fluent translation of reasonable length and quality here today!", SelfConfidence: 0.85},
	}
	judge := &stubJudge{err: errors.New("judge transport failure")}
	report := Evaluate(context.Background(), "source", candidates, Config{
		Judge:        judge,
		JudgeEnabled: true,
	})
	if !judge.called {
		t.Fatal("expected judge to be invoked")
	}
	if report.JudgeUsed {
		t.Error("expected JudgeUsed=false when the judge errors")
	}
	if report.WinnerBackendID == "" {
		t.Error("expected a heuristic-only winner despite the judge error")
	}
}

func TestEvaluate_LanguageInvalidForcesJudgeDespiteWideScoreGap(t *testing.T) {
	candidates := []ensemble.Candidate{
		{BackendID: "anthropic", TranslatedText: "This is a clean, fluent, well formed English sentence about the weather today.", SelfConfidence: 0.95},
		{BackendID: "google", TranslatedText: "bad مرحبا output", SelfConfidence: 0.10},
	}
	judge := &stubJudge{result: JudgeResult{
		PerBackend: map[string]ensemble.DimensionScores{
			"anthropic": {"judge_accuracy": 0.9},
			"google":    {"judge_accuracy": 0.2},
		},
	}}
	Evaluate(context.Background(), "هذا نص عن الطقس اليوم.", candidates, Config{
		Judge:         judge,
		JudgeEnabled:  true,
		LanguageValid: map[string]bool{"anthropic": true, "google": false},
	})
	if !judge.called {
		t.Error("expected a failed language check to force a judge pass even with a wide automated score gap")
	}
}

func TestAnyLanguageInvalid(t *testing.T) {
	successful := []ensemble.Candidate{{BackendID: "anthropic"}, {BackendID: "google"}}
	if anyLanguageInvalid(successful, nil) {
		t.Error("expected no forced judge pass when no languages were checked")
	}
	if anyLanguageInvalid(successful, map[string]bool{"anthropic": true, "google": true}) {
		t.Error("expected no forced judge pass when all checks passed")
	}
	if !anyLanguageInvalid(successful, map[string]bool{"anthropic": true, "google": false}) {
		t.Error("expected a forced judge pass when one candidate failed its language check")
	}
}

func TestPickWinner_TieBreaksByPreferenceOrder(t *testing.T) {
	totals := map[string]float64{
		"anthropic": 0.8,
		"deepl":     0.8,
		"openai":    0.8,
	}
	winner := pickWinner(totals, DefaultPreferenceOrder)
	if winner != "anthropic" {
		t.Errorf("expected anthropic to win an exact tie per preference order, got %s", winner)
	}
}

func TestPickWinner_StrictlyHigherWins(t *testing.T) {
	totals := map[string]float64{
		"anthropic": 0.5,
		"deepl":     0.9,
	}
	if winner := pickWinner(totals, DefaultPreferenceOrder); winner != "deepl" {
		t.Errorf("expected deepl to win on strictly higher score, got %s", winner)
	}
}

func TestShouldUseJudge(t *testing.T) {
	if !shouldUseJudge(map[string]float64{"a": 0.80, "b": 0.75}, 0.10) {
		t.Error("expected judge to trigger when gap is under threshold")
	}
	if shouldUseJudge(map[string]float64{"a": 0.95, "b": 0.50}, 0.10) {
		t.Error("expected judge not to trigger when gap exceeds threshold")
	}
	if shouldUseJudge(map[string]float64{"a": 0.80}, 0.10) {
		t.Error("expected judge not to trigger with fewer than two candidates")
	}
}
