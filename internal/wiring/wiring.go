// Package wiring builds the review pipeline from configuration. It is the
// only place that knows how analyzers, stages, stores and observers fit
// together; the CLI, MCP server and HTTP API all start here.
package wiring

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/config"
	"scriptreview/internal/crossval"
	"scriptreview/internal/logging"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/review"
	"scriptreview/internal/store"
)

// App is a ready-to-run review service.
type App struct {
	Config       *config.Config
	Orchestrator *pipeline.Orchestrator
	Store        store.Store
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	httpClient *http.Client
	observer   pipeline.Observer
	store      store.Store
	getenv     func(string) string
}

// WithHTTPClient is passed to every analyzer and the docket client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) { o.httpClient = c }
}

// WithObserver replaces the default log observer.
func WithObserver(obs pipeline.Observer) Option {
	return func(o *buildOptions) { o.observer = obs }
}

// WithStore uses st instead of opening the configured store.
func WithStore(st store.Store) Option {
	return func(o *buildOptions) { o.store = st }
}

// WithGetenv overrides environment lookups for API keys.
func WithGetenv(fn func(string) string) Option {
	return func(o *buildOptions) { o.getenv = fn }
}

// Build constructs every collaborator from cfg.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	bo := &buildOptions{getenv: os.Getenv}
	for _, o := range opts {
		o(bo)
	}

	analyzers, err := BuildAnalyzers(cfg, bo.getenv, bo.httpClient)
	if err != nil {
		return nil, err
	}

	legalAnalyzers := make([]analyzer.Analyzer, 0, len(cfg.Legal.Analyzers))
	for _, name := range cfg.Legal.Analyzers {
		legalAnalyzers = append(legalAnalyzers, analyzers[name])
	}
	legal, err := review.NewLegal(legalAnalyzers, crossval.NewEngine(cfg.CrossVal),
		review.WithHeuristicSource(cfg.Legal.IncludeHeuristics && cfg.Heuristics.Enabled),
		review.WithLegalLogger(logging.New("legal")))
	if err != nil {
		return nil, err
	}

	var researchOpts []review.ResearchOption
	if cfg.Docket.Enabled {
		clOpts := []review.CourtListenerOption{}
		if cfg.Docket.BaseURL != "" {
			clOpts = append(clOpts, review.WithCourtListenerURL(cfg.Docket.BaseURL))
		}
		if bo.httpClient != nil {
			clOpts = append(clOpts, review.WithCourtListenerHTTPClient(bo.httpClient))
		}
		token := ""
		if cfg.Docket.TokenEnv != "" {
			token = bo.getenv(cfg.Docket.TokenEnv)
		}
		researchOpts = append(researchOpts,
			review.WithDocketSearcher(review.NewCourtListener(token, clOpts...)),
			review.WithDocketLimit(cfg.Docket.Limit))
	}
	var researchAnalyzer analyzer.Analyzer
	if cfg.Research != "" {
		researchAnalyzer = analyzers[cfg.Research]
	}

	var flagger pipeline.Flagger
	if cfg.Heuristics.Enabled {
		h := review.DefaultHeuristics()
		if cfg.Heuristics.RulesFile != "" {
			if h, err = review.LoadHeuristics(cfg.Heuristics.RulesFile); err != nil {
				return nil, err
			}
		}
		flagger = h
	}

	st := bo.store
	if st == nil {
		if st, err = OpenStore(ctx, cfg.Store, bo.getenv); err != nil {
			return nil, err
		}
	}

	orch, err := pipeline.New(pipeline.Config{
		Policy:        review.NewPolicy(analyzers[cfg.Policy]),
		Research:      review.NewResearch(researchAnalyzer, researchOpts...),
		Legal:         legal,
		Synthesizer:   review.NewSynthesis(analyzers[cfg.Synthesis]),
		Flagger:       flagger,
		Store:         st,
		Observer:      bo.observer,
		ResearchGrace: cfg.Pipeline.ResearchGrace,
		Logger:        logging.New("pipeline"),
	})
	if err != nil {
		if bo.store == nil {
			_ = st.Close()
		}
		return nil, err
	}
	return &App{Config: cfg, Orchestrator: orch, Store: st}, nil
}

// BuildAnalyzers creates one client per configured analyzer that a stage
// references. Unreferenced entries are skipped so their API keys are not
// required.
func BuildAnalyzers(cfg *config.Config, getenv func(string) string, hc *http.Client) (map[string]analyzer.Analyzer, error) {
	used := make(map[string]bool)
	for _, n := range cfg.Legal.Analyzers {
		used[n] = true
	}
	for _, n := range []string{cfg.Policy, cfg.Research, cfg.Synthesis} {
		if n != "" {
			used[n] = true
		}
	}

	out := make(map[string]analyzer.Analyzer, len(used))
	for _, ac := range cfg.Analyzers {
		if !used[ac.Name] {
			continue
		}
		a, err := buildAnalyzer(ac, getenv, hc)
		if err != nil {
			return nil, err
		}
		out[ac.Name] = a
	}
	for n := range used {
		if _, ok := out[n]; !ok {
			return nil, fmt.Errorf("analyzer %q is referenced but not configured", n)
		}
	}
	return out, nil
}

func buildAnalyzer(ac config.AnalyzerConfig, getenv func(string) string, hc *http.Client) (analyzer.Analyzer, error) {
	if ac.Provider == config.ProviderStatic {
		if ac.ResponseFile != "" {
			return analyzer.NewStaticFromFile(ac.Name, ac.ResponseFile)
		}
		return analyzer.Static{ID: ac.Name, Response: ac.Response}, nil
	}

	key := ""
	if ac.APIKeyEnv != "" {
		key = getenv(ac.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("analyzer %q: environment variable %s is not set", ac.Name, ac.APIKeyEnv)
		}
	}
	opts := []analyzer.Option{
		analyzer.WithLogger(logging.New("analyzer")),
		analyzer.WithTimeout(ac.Timeout),
		analyzer.WithMaxTokens(ac.MaxTokens),
	}
	if hc != nil {
		opts = append(opts, analyzer.WithHTTPClient(hc))
	}
	if ac.BaseURL != "" {
		opts = append(opts, analyzer.WithBaseURL(ac.BaseURL))
	}
	return analyzer.New(ac.Name, analyzer.Provider(ac.Provider), ac.Model, key, opts...)
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, sc config.StoreConfig, getenv func(string) string) (store.Store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return store.NewMemStore(), nil
	case config.DriverSQLite:
		return store.Open(sc.Path)
	case config.DriverRedis:
		password := ""
		if sc.RedisPassEnv != "" && getenv != nil {
			password = getenv(sc.RedisPassEnv)
		}
		return store.OpenRedis(ctx, sc.RedisAddr, password, sc.RedisDB, sc.RedisTTL)
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}
