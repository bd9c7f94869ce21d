// Package review implements the analysis stages the pipeline sequences:
// multi-analyzer legal review with cross-validation, platform policy
// review, case research with optional docket search, synthesis and the
// heuristic pre-screen.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/crossval"
	"scriptreview/internal/finding"
	"scriptreview/internal/logging"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
)

// Legal fans the legal prompt out to every analyzer and cross-validates
// the answers.
type Legal struct {
	analyzers         []analyzer.Analyzer
	engine            *crossval.Engine
	includeHeuristics bool
	logger            *slog.Logger
}

// LegalOption configures a Legal reviewer.
type LegalOption func(*Legal)

// WithHeuristicSource adds legal-category heuristic flags as an extra
// cross-validation source, ranked after every model analyzer.
func WithHeuristicSource(on bool) LegalOption {
	return func(l *Legal) { l.includeHeuristics = on }
}

// WithLegalLogger sets the logger.
func WithLegalLogger(logger *slog.Logger) LegalOption {
	return func(l *Legal) { l.logger = logger }
}

// NewLegal returns a legal reviewer. The analyzer order is the canonical
// order used for tie-breaks in cross-validation.
func NewLegal(analyzers []analyzer.Analyzer, engine *crossval.Engine, opts ...LegalOption) (*Legal, error) {
	if len(analyzers) == 0 {
		return nil, fmt.Errorf("legal review: no analyzers configured")
	}
	seen := make(map[string]bool, len(analyzers))
	for _, a := range analyzers {
		if seen[a.Name()] {
			return nil, fmt.Errorf("legal review: duplicate analyzer %q", a.Name())
		}
		seen[a.Name()] = true
	}
	if engine == nil {
		engine = crossval.NewEngine(crossval.DefaultConfig())
	}
	l := &Legal{analyzers: analyzers, engine: engine}
	for _, o := range opts {
		o(l)
	}
	if l.logger == nil {
		l.logger = logging.New("legal")
	}
	return l, nil
}

type legalBranch struct {
	findings []finding.Raw
	err      error
	elapsed  time.Duration
}

// ReviewLegal invokes every analyzer concurrently. A failed or unparseable
// answer is recorded in Failures; the result is an error only when every
// analyzer failed.
func (l *Legal) ReviewLegal(ctx context.Context, in pipeline.LegalInput) (*report.Legal, error) {
	prompt, err := renderPrompt("legal", promptData{
		Script:     in.Script,
		Meta:       in.Meta,
		Research:   in.Research,
		Flags:      in.Flags,
		Categories: finding.LegalCategories,
	})
	if err != nil {
		return nil, err
	}

	results := make([]legalBranch, len(l.analyzers))
	var g errgroup.Group
	for i, a := range l.analyzers {
		g.Go(func() error {
			start := time.Now()
			text, err := a.Invoke(ctx, legalSystem, prompt)
			if err == nil {
				results[i].findings, err = decodeFindings(text)
			}
			results[i].err = err
			results[i].elapsed = time.Since(start)
			return nil
		})
	}
	_ = g.Wait() // errors captured in results

	out := &report.Legal{Analyzers: make([]string, 0, len(l.analyzers))}
	sources := make([]crossval.Source, 0, len(l.analyzers)+1)
	for i, a := range l.analyzers {
		out.Analyzers = append(out.Analyzers, a.Name())
		res := results[i]
		if res.err != nil {
			if out.Failures == nil {
				out.Failures = make(map[string]string)
			}
			out.Failures[a.Name()] = res.err.Error()
			if analyzer.IsUnauthorized(res.err) {
				l.logger.Error("legal analyzer rejected credentials",
					slog.String("analyzer", a.Name()),
					slog.Any("error", res.err))
				continue
			}
			l.logger.Warn("legal analyzer failed",
				slog.String("analyzer", a.Name()),
				slog.Duration("elapsed", res.elapsed),
				slog.Any("error", res.err))
			continue
		}
		l.logger.Debug("legal analyzer done",
			slog.String("analyzer", a.Name()),
			slog.Int("findings", len(res.findings)),
			slog.Duration("elapsed", res.elapsed))
		sources = append(sources, crossval.Source{Analyzer: a.Name(), Findings: res.findings})
	}

	if len(sources) == 0 {
		return out, fmt.Errorf("%w (%d of %d)", ErrAllAnalyzersFailed, len(out.Failures), len(l.analyzers))
	}

	if l.includeHeuristics {
		if src, ok := heuristicSource(in.Flags); ok {
			sources = append(sources, src)
		}
	}
	out.Findings = l.engine.Merge(sources)
	return out, nil
}

// heuristicSource converts legal-category flags to a cross-validation
// source.
func heuristicSource(flags []finding.Normalized) (crossval.Source, bool) {
	var raws []finding.Raw
	for _, f := range flags {
		if f.Category.IsLegal() {
			raws = append(raws, f.Raw())
		}
	}
	if len(raws) == 0 {
		return crossval.Source{}, false
	}
	return crossval.Source{Analyzer: HeuristicsAnalyzer, Findings: raws}, true
}

var _ pipeline.LegalReviewer = (*Legal)(nil)
