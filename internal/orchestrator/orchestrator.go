// Package orchestrator is the top-level ensemble component: it discovers
// available backends via internal/registry, fans out per chunk, applies
// internal/evaluator, selects the winner, and assembles chunk winners into
// the final translation.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valpere/ensembletran/internal/backend"
	"github.com/valpere/ensembletran/internal/chunker"
	"github.com/valpere/ensembletran/internal/config"
	"github.com/valpere/ensembletran/internal/ensemble"
	"github.com/valpere/ensembletran/internal/ensembleerr"
	"github.com/valpere/ensembletran/internal/evaluator"
	"github.com/valpere/ensembletran/internal/registry"
	"github.com/valpere/ensembletran/internal/retry"
	"github.com/valpere/ensembletran/internal/validator"
)

// deadlineSlack is added on top of the per-call timeout to form each
// chunk's overall deadline.
const deadlineSlack = 5 * time.Second

// Result is the top-level contract's return value: the final joined
// translation, every Candidate produced across every chunk, and the
// aggregated QualityReport.
type Result struct {
	Translation string
	Candidates  []ensemble.Candidate
	Report      ensemble.QualityReport
}

// Orchestrator runs the ensemble translate(job) contract over a frozen
// BackendRegistry.
type Orchestrator struct {
	reg   *registry.Registry
	cfg   config.Config
	judge evaluator.Judge
	val   *validator.Validator
}

// New constructs an Orchestrator. It fails with a ConfigError if reg has no
// registered backends.
func New(reg *registry.Registry, cfg config.Config, judge evaluator.Judge) (*Orchestrator, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, &ensembleerr.ConfigError{Reason: "no backends registered"}
	}
	return &Orchestrator{reg: reg, cfg: cfg, judge: judge, val: validator.New()}, nil
}

// Translate runs the full chunk → fan-out → evaluate → join pipeline.
//
// State machine (per job): Constructed → Chunking → DispatchingChunk(i) →
// Evaluating(i) → (i<n ? DispatchingChunk(i+1) : Joining) → Done | Failed.
// Transitions are serial; parallelism lives strictly within
// DispatchingChunk(i).
func (o *Orchestrator) Translate(ctx context.Context, job ensemble.SourceJob) (Result, error) {
	if job.Trimmed() == "" {
		return Result{}, &ensembleerr.InputError{Reason: "empty or whitespace-only input"}
	}

	maxChars := o.cfg.MaxChunkChars
	if maxChars <= 0 {
		maxChars = config.Default().MaxChunkChars
	}
	plan := chunker.Plan(job.Text, maxChars, o.cfg.ChunkOverlapChars)
	if len(plan) == 0 {
		return Result{}, &ensembleerr.InputError{Reason: "empty or whitespace-only input"}
	}

	var (
		allCandidates []ensemble.Candidate
		chunkReports  []ensemble.QualityReport
		joined        []string
		lastReport    ensemble.QualityReport
	)

	for _, chunk := range plan {
		candidates, report, err := o.translateChunk(ctx, job, chunk)
		if err != nil {
			return Result{}, err
		}

		allCandidates = append(allCandidates, candidates...)
		chunkReports = append(chunkReports, report)
		lastReport = report

		text, err := winnerText(candidates, report)
		if err != nil {
			return Result{}, err
		}
		joined = append(joined, text)
	}

	lastReport.ChunkReports = chunkReports

	return Result{
		Translation: strings.Join(joined, " "),
		Candidates:  allCandidates,
		Report:      lastReport,
	}, nil
}

// translateChunk runs DispatchingChunk(i) followed by Evaluating(i) against
// the registry's backends.
func (o *Orchestrator) translateChunk(ctx context.Context, job ensemble.SourceJob, chunk ensemble.Chunk) ([]ensemble.Candidate, ensemble.QualityReport, error) {
	return o.translateChunkWithBackends(ctx, job, chunk, o.reg.Backends())
}

// translateChunkWithBackends is translateChunk with the backend set taken
// as a parameter, so the single-vs-multi-backend dispatch split can be
// exercised without a live registry.
func (o *Orchestrator) translateChunkWithBackends(ctx context.Context, job ensemble.SourceJob, chunk ensemble.Chunk, backends []backend.Backend) ([]ensemble.Candidate, ensemble.QualityReport, error) {
	bj := backend.Job{
		Text:       chunk.Text,
		SourceLang: job.SourceLang,
		TargetLang: job.TargetLang,
		Context:    carryContext(job, chunk),
	}

	// A single registered backend never fans out, regardless of
	// EnableEnsemble/ForceMultiMethod — there is nothing to compare against.
	if len(backends) == 1 {
		return o.translateSingleBackend(ctx, backends[0], bj)
	}

	// Ensemble disabled and not overridden: use the first backend available
	// in preference order directly, with no evaluator pass — the "single
	// best" path §4.6 requires.
	if !o.cfg.EnableEnsemble && !o.cfg.ForceMultiMethod {
		preferenceOrder := evaluator.DefaultPreferenceOrder
		if o.reg != nil {
			preferenceOrder = o.reg.PreferenceOrder()
		}
		if b := pickPreferred(backends, preferenceOrder); b != nil {
			return o.translateSingleBackend(ctx, b, bj)
		}
	}

	candidates := o.fanOut(ctx, backends, bj)

	preferenceOrder := evaluator.DefaultPreferenceOrder
	if o.reg != nil {
		preferenceOrder = o.reg.PreferenceOrder()
	}

	evalCfg := evaluator.Config{
		PreferenceOrder:  preferenceOrder,
		QualityThreshold: o.cfg.QualityThreshold,
		Judge:            o.judge,
		JudgeEnabled:     o.cfg.JudgeEnabled && o.judge != nil,
		LanguageValid:    o.languageValidity(candidates, job.TargetLang),
	}
	report := evaluator.Evaluate(ctx, chunk.Text, candidates, evalCfg)

	if report.Failed() {
		var causes []error
		for _, c := range candidates {
			if c.Err != "" {
				causes = append(causes, fmt.Errorf("%s: %s", c.BackendID, c.Err))
			}
		}
		return candidates, report, &ensembleerr.BackendTransportError{Backend: "all", Causes: causes}
	}

	return candidates, report, nil
}

// translateSingleBackend calls b directly and wraps its Candidate into a
// single-entry QualityReport, bypassing the evaluator entirely — used both
// when only one backend is registered and for the "single best" path when
// ensemble mode is disabled.
func (o *Orchestrator) translateSingleBackend(ctx context.Context, b backend.Backend, bj backend.Job) ([]ensemble.Candidate, ensemble.QualityReport, error) {
	candidate := o.callBackend(ctx, b, bj)
	if !candidate.Successful() {
		return []ensemble.Candidate{candidate}, ensemble.QualityReport{}, &ensembleerr.BackendTransportError{
			Backend: candidate.BackendID,
			Causes:  []error{fmt.Errorf("%s", candidate.Err)},
		}
	}
	report := ensemble.QualityReport{
		PerBackendTotal:      map[string]float64{candidate.BackendID: candidate.SelfConfidence},
		PerBackendDimensions: map[string]ensemble.DimensionScores{candidate.BackendID: {"self_confidence": candidate.SelfConfidence}},
		WinnerBackendID:      candidate.BackendID,
	}
	return []ensemble.Candidate{candidate}, report, nil
}

// pickPreferred returns the first backend in backends whose MethodName
// appears earliest in preferenceOrder, or nil if none match (the caller
// falls back to the full ensemble fan-out in that case).
func pickPreferred(backends []backend.Backend, preferenceOrder []string) backend.Backend {
	byName := make(map[string]backend.Backend, len(backends))
	for _, b := range backends {
		byName[b.MethodName()] = b
	}
	for _, name := range preferenceOrder {
		if b, ok := byName[name]; ok {
			return b
		}
	}
	return nil
}

// languageValidity runs the target-language check against every successful
// candidate, feeding the result into the evaluator as an additional
// quality signal alongside the automated dimension scores.
func (o *Orchestrator) languageValidity(candidates []ensemble.Candidate, targetLang string) map[string]bool {
	if o.val == nil {
		return nil
	}
	result := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !c.Successful() {
			continue
		}
		valid, err := o.val.IsValid(c.TranslatedText, targetLang)
		result[c.BackendID] = err == nil && valid
	}
	return result
}

// carryContext resolves the advisory context passed to every backend: the
// preceding chunk's source text takes precedence (per §4.5); a caller-
// supplied job-level context is used only for the first chunk.
func carryContext(job ensemble.SourceJob, chunk ensemble.Chunk) string {
	if chunk.CarryContext != "" {
		return chunk.CarryContext
	}
	if chunk.Index == 0 {
		return job.Context
	}
	return ""
}

// fanOut dispatches bj to every backend in parallel with a per-call timeout
// and an overall chunk deadline, collecting every Candidate (successful and
// failed) regardless of completion order.
func (o *Orchestrator) fanOut(ctx context.Context, backends []backend.Backend, bj backend.Job) []ensemble.Candidate {
	perCallTimeout := o.cfg.PerCallTimeout
	if perCallTimeout <= 0 {
		perCallTimeout = config.Default().PerCallTimeout
	}

	chunkCtx, cancel := context.WithTimeout(ctx, perCallTimeout+deadlineSlack)
	defer cancel()

	results := make([]ensemble.Candidate, len(backends))
	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(i int, b backend.Backend) {
			defer wg.Done()
			results[i] = o.callBackend(chunkCtx, b, bj)
		}(i, b)
	}
	wg.Wait()

	return results
}

// callBackend wraps one backend call with retry/backoff and a per-attempt
// timeout, converting a context deadline into the Deadline error kind.
func (o *Orchestrator) callBackend(ctx context.Context, b backend.Backend, bj backend.Job) ensemble.Candidate {
	perCallTimeout := o.cfg.PerCallTimeout
	if perCallTimeout <= 0 {
		perCallTimeout = config.Default().PerCallTimeout
	}

	retryCfg := retry.Config{
		MaxRetries:  o.cfg.MaxRetries,
		BaseBackoff: o.cfg.BaseBackoff,
		MaxBackoff:  o.cfg.MaxBackoff,
		Label:       b.MethodName(),
	}

	candidate, err := retry.Do(ctx, retryCfg, func(attemptCtx context.Context) (ensemble.Candidate, error) {
		callCtx, cancel := context.WithTimeout(attemptCtx, perCallTimeout)
		defer cancel()

		c, err := b.Translate(callCtx, bj)
		if err != nil {
			return ensemble.Candidate{}, err
		}
		if !c.Successful() {
			// Defensive: every adapter pairs a failed Candidate with a
			// non-nil, classification-bearing error, so this should be
			// unreachable. Treat it as non-retryable rather than falling
			// through to classify.Retryable's retryable-by-default path.
			return ensemble.Candidate{}, &ensembleerr.BackendClientError{Backend: b.MethodName(), Reason: c.Err}
		}
		return c, nil
	})

	if err != nil {
		reason := err.Error()
		if ctx.Err() != nil {
			return ensemble.Candidate{BackendID: b.MethodName(), SourceText: bj.Text, Err: (&ensembleerr.Deadline{Backend: b.MethodName()}).Error()}
		}
		fmt.Fprintf(os.Stderr, "[%s] all attempts failed: %s\n", b.MethodName(), reason)
		return ensemble.Candidate{BackendID: b.MethodName(), SourceText: bj.Text, Err: reason}
	}

	return candidate
}

// winnerText looks up the winning backend's translated text among
// candidates.
func winnerText(candidates []ensemble.Candidate, report ensemble.QualityReport) (string, error) {
	for _, c := range candidates {
		if c.BackendID == report.WinnerBackendID && c.Successful() {
			return c.TranslatedText, nil
		}
	}
	return "", &ensembleerr.BackendResultError{Backend: report.WinnerBackendID, Reason: "winner candidate not found among results"}
}
