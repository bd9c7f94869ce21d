package review

import (
	"context"
	"fmt"
	"strings"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/llmjson"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
)

// Synthesis asks one analyzer for the final verdict.
type Synthesis struct {
	analyzer analyzer.Analyzer
}

// NewSynthesis returns a synthesizer backed by a.
func NewSynthesis(a analyzer.Analyzer) *Synthesis {
	return &Synthesis{analyzer: a}
}

type synthesisResponse struct {
	Verdict         string   `json:"verdict"`
	RiskScore       *float64 `json:"risk_score"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

func (s *Synthesis) Synthesize(ctx context.Context, in pipeline.SynthesisInput) (*report.Synthesis, error) {
	prompt, err := renderPrompt("synthesis", promptData{
		Script:   in.Script,
		Meta:     in.Meta,
		Legal:    in.Legal,
		Policy:   in.Policy,
		Research: in.Research,
		Merged:   in.Flags,
		Degraded: in.Degraded,
	})
	if err != nil {
		return nil, err
	}
	text, err := s.analyzer.Invoke(ctx, synthesisSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	resp, err := llmjson.Decode[synthesisResponse](text)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	if resp.RiskScore == nil || strings.TrimSpace(resp.Summary) == "" {
		return nil, fmt.Errorf("synthesis: response missing risk_score or summary")
	}
	return &report.Synthesis{
		Verdict:         report.ParseVerdict(strings.ToLower(strings.TrimSpace(resp.Verdict))),
		RiskScore:       int(*resp.RiskScore + 0.5),
		Summary:         strings.TrimSpace(resp.Summary),
		Recommendations: resp.Recommendations,
	}, nil
}

var _ pipeline.Synthesizer = (*Synthesis)(nil)
