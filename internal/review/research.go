package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/llmjson"
	"scriptreview/internal/logging"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
)

const (
	defaultDocketLimit   = 5
	maxDocketQueries     = 3
	noResearchConfigured = "No research sources are configured."
)

// Research gathers case context. Both the analyzer and the docket searcher
// are optional; with neither it returns an empty result.
type Research struct {
	analyzer    analyzer.Analyzer
	dockets     DocketSearcher
	docketLimit int
	logger      *slog.Logger
}

// ResearchOption configures a Research stage.
type ResearchOption func(*Research)

// WithDocketSearcher enables court record lookups.
func WithDocketSearcher(d DocketSearcher) ResearchOption {
	return func(r *Research) { r.dockets = d }
}

// WithDocketLimit caps results per query.
func WithDocketLimit(n int) ResearchOption {
	return func(r *Research) {
		if n > 0 {
			r.docketLimit = n
		}
	}
}

// NewResearch returns a research stage. a may be nil.
func NewResearch(a analyzer.Analyzer, opts ...ResearchOption) *Research {
	r := &Research{analyzer: a, docketLimit: defaultDocketLimit, logger: logging.New("research")}
	for _, o := range opts {
		o(r)
	}
	return r
}

type researchResponse struct {
	Summary        string               `json:"summary"`
	RelatedCases   []report.RelatedCase `json:"related_cases"`
	Considerations []string             `json:"considerations"`
}

func (r *Research) Research(ctx context.Context, sc *script.Script, meta pipeline.CaseMetadata) (*report.Research, error) {
	out := &report.Research{}
	if r.dockets != nil {
		out.Dockets = r.searchDockets(ctx, docketQueries(sc, meta))
	}

	if r.analyzer == nil {
		switch {
		case r.dockets == nil:
			out.Summary = noResearchConfigured
		default:
			out.Summary = fmt.Sprintf("Found %d court records.", len(out.Dockets))
		}
		return out, nil
	}

	prompt, err := renderPrompt("research", promptData{Script: sc, Meta: meta, Research: out})
	if err != nil {
		return nil, err
	}
	text, err := r.analyzer.Invoke(ctx, researchSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("case research: %w", err)
	}
	resp, err := llmjson.Decode[researchResponse](text)
	if err != nil {
		return nil, fmt.Errorf("case research: %w", err)
	}
	out.Summary = strings.TrimSpace(resp.Summary)
	out.RelatedCases = resp.RelatedCases
	out.Considerations = resp.Considerations
	return out, nil
}

// searchDockets queries each subject in turn. Lookup failures are logged
// and skipped.
func (r *Research) searchDockets(ctx context.Context, queries []string) []report.Docket {
	seen := make(map[string]bool)
	var out []report.Docket
	for _, q := range queries {
		found, err := r.dockets.SearchDockets(ctx, q, r.docketLimit)
		if err != nil {
			r.logger.Warn("docket search failed", slog.String("query", q), slog.Any("error", err))
			continue
		}
		for _, d := range found {
			key := d.Court + "|" + d.DocketNumber + "|" + d.CaseName
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}
	return out
}

// docketQueries prefers metadata subjects, then people found in the
// script, then the case title.
func docketQueries(sc *script.Script, meta pipeline.CaseMetadata) []string {
	var qs []string
	switch {
	case len(meta.Subjects) > 0:
		qs = meta.Subjects
	case sc != nil && len(sc.People) > 0:
		qs = sc.People
	case meta.Title != "":
		qs = []string{meta.Title}
	}
	if len(qs) > maxDocketQueries {
		qs = qs[:maxDocketQueries]
	}
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, fmt.Sprintf("%q", q))
		}
	}
	return out
}

var _ pipeline.CaseResearcher = (*Research)(nil)
