// Package pipeline sequences the review stages: Parse, then Policy Review
// and Case Research concurrently, Legal Review as soon as Parse is done,
// and Synthesis last. It reports every stage transition to an Observer and
// always ends in a report or an explicit parse failure.
package pipeline

import (
	"context"
	"errors"

	"scriptreview/internal/finding"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
)

// ErrParse marks a fatal parse failure. It is the only error Run returns
// apart from cancellation.
var ErrParse = errors.New("pipeline: parse failed")

// CaseMetadata is the case information passed through to the analyzers.
type CaseMetadata struct {
	Title        string   `yaml:"title" json:"title,omitempty"`
	Subjects     []string `yaml:"subjects" json:"subjects,omitempty"`
	Jurisdiction string   `yaml:"jurisdiction" json:"jurisdiction,omitempty"`
	CaseStatus   string   `yaml:"case_status" json:"case_status,omitempty"`
	Platform     string   `yaml:"platform" json:"platform,omitempty"`
	Notes        string   `yaml:"notes" json:"notes,omitempty"`
}

// Request is one review run.
type Request struct {
	// ReviewID is generated when empty.
	ReviewID string
	Title    string
	Text     string
	Format   script.Format
	Meta     CaseMetadata
	// Observer receives this run's events in addition to the
	// orchestrator's own observer.
	Observer Observer
}

// LegalInput is what the legal stage sees. Research is nil when it failed
// or did not finish within the grace period.
type LegalInput struct {
	Script   *script.Script
	Meta     CaseMetadata
	Research *report.Research
	Flags    []finding.Normalized
}

// SynthesisInput carries every prior stage output. Nil fields are stages
// that failed.
type SynthesisInput struct {
	ReviewID string
	Script   *script.Script
	Meta     CaseMetadata
	Legal    *report.Legal
	Policy   *report.Policy
	Research *report.Research
	Flags    []finding.Merged
	Degraded []string
}

// Parser turns the request into a script.
type Parser interface {
	Parse(ctx context.Context, req Request) (*script.Script, error)
}

// PolicyReviewer reviews platform-policy risk.
type PolicyReviewer interface {
	ReviewPolicy(ctx context.Context, sc *script.Script, meta CaseMetadata) (*report.Policy, error)
}

// CaseResearcher gathers precedent and docket context.
type CaseResearcher interface {
	Research(ctx context.Context, sc *script.Script, meta CaseMetadata) (*report.Research, error)
}

// LegalReviewer runs the multi-analyzer legal review. It returns an error
// only when no analyzer produced a usable result.
type LegalReviewer interface {
	ReviewLegal(ctx context.Context, in LegalInput) (*report.Legal, error)
}

// Synthesizer produces the verdict from all stage outputs.
type Synthesizer interface {
	Synthesize(ctx context.Context, in SynthesisInput) (*report.Synthesis, error)
}

// Flagger produces cheap heuristic flags right after parsing.
type Flagger interface {
	Flag(sc *script.Script, meta CaseMetadata) []finding.Normalized
}

// ScriptParser is the default Parser.
type ScriptParser struct{}

func (ScriptParser) Parse(ctx context.Context, req Request) (*script.Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := req.Title
	if title == "" {
		title = req.Meta.Title
	}
	return script.Parse(title, req.Text, req.Format)
}

// ParseSummary is the payload of the parse completion event.
type ParseSummary struct {
	Title     string   `json:"title"`
	Lines     int      `json:"lines"`
	Words     int      `json:"words"`
	People    []string `json:"people,omitempty"`
	Heuristic int      `json:"heuristic_flags"`
}
