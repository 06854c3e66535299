// Package ensemble holds the data model shared by every component of the
// translation ensemble: the job a caller submits, the candidates backends
// produce, and the quality report the evaluator derives from them.
package ensemble

import (
	"strings"
	"time"
)

// SourceJob is the immutable input to a translation run.
type SourceJob struct {
	Text       string
	SourceLang string
	TargetLang string
	Context    string
}

// Trimmed returns the job text with leading/trailing whitespace removed.
func (j SourceJob) Trimmed() string {
	return strings.TrimSpace(j.Text)
}

// Candidate is one backend's attempt at translating a SourceJob (or one
// chunk of it). Candidates are immutable once returned by a backend.
type Candidate struct {
	BackendID      string
	SourceText     string
	TranslatedText string
	SelfConfidence float64
	Latency        time.Duration
	Metadata       map[string]string
	Err            string
}

// Successful reports whether the candidate represents usable output: no
// error recorded and a non-empty translated text after trimming.
func (c Candidate) Successful() bool {
	return c.Err == "" && strings.TrimSpace(c.TranslatedText) != ""
}

// DimensionScores maps a quality dimension name to a score in [0,1].
type DimensionScores map[string]float64

// QualityReport is the Evaluator's verdict over a set of Candidates.
type QualityReport struct {
	PerBackendTotal      map[string]float64
	PerBackendDimensions map[string]DimensionScores
	WinnerBackendID      string
	JudgeUsed            bool
	Rationale            string

	// ChunkReports aggregates every per-chunk QualityReport produced while
	// translating a multi-chunk job, in chunk order. The top-level fields
	// above always mirror the last chunk, matching the upstream contract;
	// ChunkReports is the superset for callers that want per-chunk detail.
	ChunkReports []QualityReport
}

// Failed reports whether every backend failed and no winner was selected.
func (r QualityReport) Failed() bool {
	return r.WinnerBackendID == ""
}

// Chunk is one ordered piece of a chunked SourceJob, plus the carry-context
// threaded into it (the preceding chunk's source text, for index > 0).
type Chunk struct {
	Index        int
	Text         string
	CarryContext string
}
