package crossval

import (
	"log/slog"
	"sort"

	"scriptreview/internal/finding"
	"scriptreview/internal/logging"
)

// Source is one analyzer's complete finding list.
type Source struct {
	Analyzer string
	Findings []finding.Raw
}

// Engine runs normalisation, grouping, adjudication and representative
// selection over a set of sources.
type Engine struct {
	cfg     Config
	matcher *Matcher
	logger  *slog.Logger
}

// NewEngine returns an engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		matcher: NewMatcher(cfg),
		logger:  logging.New("crossval"),
	}
}

// Merge reconciles sources into one finding set, most severe first. The
// order of sources is the canonical analyzer order; identical inputs always
// produce identical output.
func (e *Engine) Merge(sources []Source) []finding.Merged {
	rank := make(map[string]int, len(sources))
	var all []finding.Normalized
	for i, src := range sources {
		if _, seen := rank[src.Analyzer]; !seen {
			rank[src.Analyzer] = i
		}
		all = append(all, finding.NormalizeAll(src.Findings, src.Analyzer)...)
	}
	return e.MergeNormalized(all, rank)
}

// MergeNormalized merges findings that are already normalized. rank gives
// the canonical analyzer order used for tie-breaks.
func (e *Engine) MergeNormalized(all []finding.Normalized, rank map[string]int) []finding.Merged {
	groups := GroupFindings(e.matcher, all)

	merged := make([]finding.Merged, 0, len(groups))
	agreed := 0
	for _, g := range groups {
		if g.Size() > 1 {
			agreed++
		}
		merged = append(merged, e.mergeGroup(g, rank))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Severity.Rank() > merged[j].Severity.Rank()
	})

	e.logger.Debug("merged findings",
		slog.Int("input", len(all)),
		slog.Int("groups", len(groups)),
		slog.Int("multi_source", agreed))
	return merged
}

func (e *Engine) mergeGroup(g Group, rank map[string]int) finding.Merged {
	v := Adjudicate(e.cfg, g)
	rep := SelectRepresentative(g, rank)

	analyzers := make([]string, 0, g.Size())
	severities := make(map[string]finding.Severity, g.Size())
	for _, m := range g.Members {
		analyzers = append(analyzers, m.Analyzer)
		severities[m.Analyzer] = m.Severity
	}
	sort.SliceStable(analyzers, func(i, j int) bool { return rank[analyzers[i]] < rank[analyzers[j]] })

	return finding.Merged{
		Kind:               finding.KindMerged,
		Line:               rep.Base.Line,
		Text:               rep.Base.Text,
		Subject:            rep.Base.Subject,
		Category:           rep.Base.Category,
		Severity:           v.Severity,
		Rationale:          rep.Rationale,
		Remediation:        rep.Remediation,
		Citation:           rep.Base.Citation,
		ExpertReview:       v.ExpertReview,
		Confidence:         v.Confidence,
		AgreementCount:     g.Size(),
		Analyzers:          analyzers,
		AnalyzerSeverities: severities,
		CrossValidated:     true,
	}
}
