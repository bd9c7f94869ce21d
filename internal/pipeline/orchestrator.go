package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scriptreview/internal/finding"
	"scriptreview/internal/logging"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
	"scriptreview/internal/store"
)

// DefaultResearchGrace is how long legal review waits for case research.
const DefaultResearchGrace = 20 * time.Second

// SyntheticAnalyzer is the analyzer id on the placeholder finding produced
// when every legal analyzer fails.
const SyntheticAnalyzer = "legal-review"

// Config wires the orchestrator's collaborators. Parser, Policy, Research,
// Legal and Synthesizer are required unless noted.
type Config struct {
	// Parser defaults to ScriptParser.
	Parser      Parser
	Policy      PolicyReviewer
	Research    CaseResearcher
	Legal       LegalReviewer
	Synthesizer Synthesizer

	// Flagger is optional.
	Flagger Flagger
	// Store is optional; nil disables persistence.
	Store store.Store
	// Observer defaults to a LogObserver.
	Observer Observer

	// ResearchGrace bounds how long legal review waits for research.
	// Zero means legal review only uses research that is already done.
	ResearchGrace time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Orchestrator runs reviews. It holds no per-run state and is safe for
// concurrent use.
type Orchestrator struct {
	parser   Parser
	policy   PolicyReviewer
	research CaseResearcher
	legal    LegalReviewer
	synth    Synthesizer
	flagger  Flagger
	store    store.Store
	observer Observer
	grace    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New validates cfg and returns an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Policy == nil:
		return nil, errors.New("pipeline: policy reviewer is required")
	case cfg.Research == nil:
		return nil, errors.New("pipeline: case researcher is required")
	case cfg.Legal == nil:
		return nil, errors.New("pipeline: legal reviewer is required")
	case cfg.Synthesizer == nil:
		return nil, errors.New("pipeline: synthesizer is required")
	}
	o := &Orchestrator{
		parser:   cfg.Parser,
		policy:   cfg.Policy,
		research: cfg.Research,
		legal:    cfg.Legal,
		synth:    cfg.Synthesizer,
		flagger:  cfg.Flagger,
		store:    cfg.Store,
		observer: cfg.Observer,
		grace:    cfg.ResearchGrace,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if o.parser == nil {
		o.parser = ScriptParser{}
	}
	if o.logger == nil {
		o.logger = logging.New("pipeline")
	}
	if o.observer == nil {
		o.observer = &LogObserver{Logger: o.logger}
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	return o, nil
}

// Run executes one review. It returns a report (real or fallback) unless
// parsing fails, in which case the error wraps ErrParse, or ctx is
// cancelled, in which case ctx.Err() is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*report.Report, error) {
	id := req.ReviewID
	if id == "" {
		id = uuid.NewString()
	}
	title := req.Title
	if title == "" {
		title = req.Meta.Title
	}
	r := &run{o: o, id: id, title: title, observer: o.observer, logger: o.logger.With("review_id", id)}
	if req.Observer != nil {
		r.observer = MultiObserver{o.observer, req.Observer}
	}

	r.create(ctx)
	for _, s := range Stages {
		r.emit(s, StatusPending, nil, nil)
	}

	r.emit(StageParse, StatusRunning, nil, nil)
	sc, err := o.parser.Parse(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, r.abandon(ctx, ctxErr)
		}
		r.emit(StageParse, StatusError, nil, err)
		r.finish(ctx, store.FailedPatch("parse: "+err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if r.title == "" {
		r.title = sc.Title
	}

	var flags []finding.Normalized
	if o.flagger != nil {
		flags = o.flagger.Flag(sc, req.Meta)
	}
	r.emit(StageParse, StatusComplete, ParseSummary{
		Title:     sc.Title,
		Lines:     len(sc.Lines),
		Words:     sc.WordCount,
		People:    sc.People,
		Heuristic: len(flags),
	}, nil)
	r.persist(ctx, stagePatch(StageParse, StatusComplete))

	w := r.wave(ctx, sc, req.Meta, flags)
	if err := ctx.Err(); err != nil {
		return nil, r.abandon(ctx, err)
	}
	r.persistWave(ctx, w)

	merged := make([]finding.Merged, 0, len(flags))
	for _, f := range flags {
		merged = append(merged, finding.Single(f))
	}
	degraded := w.degraded()

	r.emit(StageSynthesis, StatusRunning, nil, nil)
	syn, err := o.synth.Synthesize(ctx, SynthesisInput{
		ReviewID: id,
		Script:   sc,
		Meta:     req.Meta,
		Legal:    w.legal,
		Policy:   w.policy,
		Research: w.research,
		Flags:    merged,
		Degraded: degraded,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, r.abandon(ctx, ctxErr)
	}
	if err == nil && syn == nil {
		err = errors.New("synthesizer returned no result")
	}

	var rep *report.Report
	if err != nil {
		r.logger.Warn("synthesis failed, using fallback report", "error", err)
		rep = report.Fallback(id, r.title, w.legal, w.policy, w.research, merged, o.now())
		rep.Degraded = append(degraded, StageSynthesis.Key())
		r.emit(StageSynthesis, StatusError, rep, err)
	} else {
		rep = assemble(id, r.title, syn, w, merged, degraded, o.now())
		r.emit(StageSynthesis, StatusComplete, rep, nil)
	}

	complete := store.StatusComplete
	r.finish(ctx, store.Patch{Status: &complete, Report: rep})
	return rep, nil
}

// waveResult holds one value per concurrent branch. Each branch writes only
// its own fields.
type waveResult struct {
	policy      *report.Policy
	policyErr   error
	research    *report.Research
	researchErr error
	legal       *report.Legal
	legalErr    error
}

func (w *waveResult) degraded() []string {
	var out []string
	if w.policyErr != nil {
		out = append(out, StagePolicy.Key())
	}
	if w.researchErr != nil {
		out = append(out, StageResearch.Key())
	}
	if w.legalErr != nil || w.legal.Degraded() {
		out = append(out, StageLegal.Key())
	}
	return out
}

type run struct {
	o        *Orchestrator
	id       string
	title    string
	observer Observer
	logger   *slog.Logger

	mu sync.Mutex // serialises observer calls
}

// wave runs Policy, Research and Legal concurrently. Legal waits for
// Research only up to the grace period.
func (r *run) wave(ctx context.Context, sc *script.Script, meta CaseMetadata, flags []finding.Normalized) *waveResult {
	var (
		res          waveResult
		researchDone = make(chan struct{})
		g            errgroup.Group
	)

	g.Go(func() error {
		r.emit(StagePolicy, StatusRunning, nil, nil)
		p, err := r.o.policy.ReviewPolicy(ctx, sc, meta)
		if err != nil {
			r.logger.Warn("policy review failed", "error", err)
			r.emit(StagePolicy, StatusError, nil, err)
			res.policyErr = err
			return nil
		}
		res.policy = p
		r.emit(StagePolicy, StatusComplete, p, nil)
		return nil
	})

	g.Go(func() error {
		defer close(researchDone)
		r.emit(StageResearch, StatusRunning, nil, nil)
		rs, err := r.o.research.Research(ctx, sc, meta)
		if err != nil {
			r.logger.Warn("case research failed", "error", err)
			r.emit(StageResearch, StatusError, nil, err)
			res.researchErr = err
			return nil
		}
		res.research = rs
		r.emit(StageResearch, StatusComplete, rs, nil)
		return nil
	})

	g.Go(func() error {
		r.emit(StageLegal, StatusRunning, nil, nil)
		in := LegalInput{Script: sc, Meta: meta, Flags: flags}
		if r.awaitResearch(ctx, researchDone) {
			in.Research = res.research
		}
		l, err := r.o.legal.ReviewLegal(ctx, in)
		if err != nil {
			r.logger.Error("legal review failed", "error", err)
			l = SyntheticLegal(l, err)
			l.UsedResearch = in.Research != nil
			res.legal, res.legalErr = l, err
			r.emit(StageLegal, StatusError, l, err)
			return nil
		}
		if l == nil {
			l = &report.Legal{}
		}
		l.UsedResearch = in.Research != nil
		res.legal = l
		r.emit(StageLegal, StatusComplete, l, nil)
		return nil
	})

	_ = g.Wait() // errors captured in waveResult
	return &res
}

// awaitResearch reports whether research finished before the grace period
// ran out. The caller may read the research result only when it returns true.
func (r *run) awaitResearch(ctx context.Context, done <-chan struct{}) bool {
	if r.o.grace <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(r.o.grace)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		r.logger.Info("case research not ready, legal review proceeds without it", "grace", r.o.grace)
		return false
	case <-ctx.Done():
		return false
	}
}

func (r *run) emit(stage StageID, status Status, payload any, err error) {
	e := Event{
		ReviewID: r.id,
		Stage:    stage,
		Name:     stage.Name(),
		Status:   status,
		Payload:  payload,
		At:       r.o.now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer.OnEvent(e)
}

func (r *run) create(ctx context.Context) {
	if r.o.store == nil {
		return
	}
	now := r.o.now()
	rec := &store.Record{
		ID:        r.id,
		Title:     r.title,
		Status:    store.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.o.store.Create(ctx, rec); err != nil {
		r.logger.Warn("create review record", "error", err)
	}
}

// persist applies a best-effort partial update.
func (r *run) persist(ctx context.Context, p store.Patch) {
	if r.o.store == nil {
		return
	}
	if err := r.o.store.Update(ctx, r.id, p); err != nil {
		r.logger.Warn("update review record", "error", err)
	}
}

func (r *run) persistWave(ctx context.Context, w *waveResult) {
	p := stagePatch(StagePolicy, statusOf(w.policyErr))
	p.Policy = w.policy
	r.persist(ctx, p)

	p = stagePatch(StageResearch, statusOf(w.researchErr))
	p.Research = w.research
	r.persist(ctx, p)

	p = stagePatch(StageLegal, statusOf(w.legalErr))
	p.Legal = w.legal
	r.persist(ctx, p)
}

// finish writes the terminal status. It runs on a context detached from
// cancellation because it is the outcome callers observe.
func (r *run) finish(ctx context.Context, p store.Patch) {
	if r.o.store == nil {
		return
	}
	if err := r.o.store.Update(context.WithoutCancel(ctx), r.id, p); err != nil {
		r.logger.Error("final review record write", "error", err)
	}
}

func (r *run) abandon(ctx context.Context, err error) error {
	r.logger.Warn("review cancelled", "error", err)
	r.finish(ctx, store.FailedPatch("review cancelled: "+err.Error()))
	return err
}

func stagePatch(s StageID, st Status) store.Patch {
	return store.Patch{Stage: &store.StageStatus{Name: s.Key(), Status: string(st)}}
}

func statusOf(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusComplete
}

// SyntheticLegal builds the legal result used when no analyzer produced a
// usable answer: one severe finding that requires expert review, so a
// missing legal analysis never reads as a clean script. Analyzer names and
// failures from partial are kept.
func SyntheticLegal(partial *report.Legal, err error) *report.Legal {
	l := &report.Legal{Synthetic: true}
	if partial != nil {
		l.Analyzers = partial.Analyzers
		l.Failures = partial.Failures
	}
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	l.Findings = []finding.Merged{finding.Single(finding.Normalized{
		Analyzer: SyntheticAnalyzer,
		Subject:  finding.UnknownSubject,
		Category: finding.CategoryDefamation,
		Severity: finding.SeveritySevere,
		Rationale: "Automated legal review could not be completed (" + reason + "). " +
			"The script has not been checked for defamation, privacy, false light or appropriation risk.",
		Remediation:  "Have counsel review the full script before publication.",
		ExpertReview: true,
		Confidence:   0,
	})}
	return l
}

func assemble(id, title string, syn *report.Synthesis, w *waveResult, flags []finding.Merged, degraded []string, now time.Time) *report.Report {
	rep := &report.Report{
		ReviewID:        id,
		Title:           title,
		Verdict:         syn.Verdict,
		RiskScore:       clampScore(syn.RiskScore),
		Summary:         syn.Summary,
		HeuristicFlags:  flags,
		Recommendations: syn.Recommendations,
		Research:        w.research,
		Degraded:        degraded,
		GeneratedAt:     now,
	}
	if rep.Verdict == "" {
		rep.Verdict = report.VerdictBorderline
	}
	if w.legal != nil {
		rep.LegalFindings = w.legal.Findings
	}
	if w.policy != nil {
		rep.PolicyFindings = w.policy.Findings
	}
	return rep
}

func clampScore(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
