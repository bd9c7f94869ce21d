package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/finding"
	"scriptreview/internal/llmjson"
	"scriptreview/internal/logging"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
)

// Policy reviews a script against platform content policies with a single
// analyzer. Its findings are not cross-validated.
type Policy struct {
	analyzer analyzer.Analyzer
	logger   *slog.Logger
}

// NewPolicy returns a policy reviewer backed by a.
func NewPolicy(a analyzer.Analyzer) *Policy {
	return &Policy{analyzer: a, logger: logging.New("policy")}
}

type policyResponse struct {
	Summary      string        `json:"summary"`
	Monetization string        `json:"monetization"`
	Findings     []finding.Raw `json:"findings"`
}

func (p *Policy) ReviewPolicy(ctx context.Context, sc *script.Script, meta pipeline.CaseMetadata) (*report.Policy, error) {
	prompt, err := renderPrompt("policy", promptData{
		Script:     sc,
		Meta:       meta,
		Categories: finding.PolicyCategories,
	})
	if err != nil {
		return nil, err
	}
	text, err := p.analyzer.Invoke(ctx, policySystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("policy review: %w", err)
	}
	resp, err := decodePolicy(text)
	if err != nil {
		return nil, fmt.Errorf("policy review: %w", err)
	}

	out := &report.Policy{Summary: resp.Summary, Monetization: resp.Monetization}
	for _, n := range finding.NormalizeAll(resp.Findings, p.analyzer.Name()) {
		out.Findings = append(out.Findings, finding.Single(n))
	}
	sort.SliceStable(out.Findings, func(i, j int) bool {
		return out.Findings[i].Severity.Rank() > out.Findings[j].Severity.Rank()
	})
	p.logger.Debug("policy review done", slog.Int("findings", len(out.Findings)))
	return out, nil
}

// decodePolicy accepts the full object or a bare finding array.
func decodePolicy(text string) (policyResponse, error) {
	raw, err := llmjson.Extract(text)
	if err != nil {
		return policyResponse{}, err
	}
	var resp policyResponse
	if err := json.Unmarshal(raw, &resp); err == nil && (resp.Findings != nil || resp.Summary != "") {
		return resp, nil
	}
	list, err := findingsFromJSON(raw)
	if err != nil {
		return policyResponse{}, err
	}
	return policyResponse{Findings: list}, nil
}

var _ pipeline.PolicyReviewer = (*Policy)(nil)
