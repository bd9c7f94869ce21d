// Package config loads the scriptreview YAML configuration: analyzer
// endpoints, which analyzer serves which stage, cross-validation tuning,
// storage and logging.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"scriptreview/internal/crossval"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/store"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = ".scriptreview/config.yaml"

// Provider values accepted in analyzer entries.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderStatic    = "static"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the root of the configuration file.
type Config struct {
	Analyzers  []AnalyzerConfig `yaml:"analyzers"`
	Legal      LegalConfig      `yaml:"legal"`
	Policy     string           `yaml:"policy"`
	Research   string           `yaml:"research"`
	Synthesis  string           `yaml:"synthesis"`
	CrossVal   crossval.Config  `yaml:"crossval"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Heuristics HeuristicsConfig `yaml:"heuristics"`
	Docket     DocketConfig     `yaml:"docket"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// AnalyzerConfig declares one model endpoint.
type AnalyzerConfig struct {
	Name      string        `yaml:"name"`
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
	// Response and ResponseFile configure the static provider.
	Response     string `yaml:"response"`
	ResponseFile string `yaml:"response_file"`
}

// LegalConfig selects the legal analyzers. It also accepts a bare list of
// analyzer names.
type LegalConfig struct {
	Analyzers         []string `yaml:"analyzers"`
	IncludeHeuristics bool     `yaml:"include_heuristics"`
}

func (l *LegalConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&l.Analyzers)
	}
	type plain LegalConfig
	return node.Decode((*plain)(l))
}

type PipelineConfig struct {
	ResearchGrace time.Duration `yaml:"research_grace"`
}

type HeuristicsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RulesFile string `yaml:"rules_file"`
}

type DocketConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
	Limit    int    `yaml:"limit"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver"`
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassEnv  string        `yaml:"redis_password_env"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration that reviews with one model from each of
// the three providers.
func Default() *Config {
	return &Config{
		Analyzers: []AnalyzerConfig{
			{Name: "claude", Provider: ProviderAnthropic, Model: "claude-sonnet-4-5", APIKeyEnv: "ANTHROPIC_API_KEY", Timeout: 2 * time.Minute},
			{Name: "gpt", Provider: ProviderOpenAI, Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY", Timeout: 2 * time.Minute},
			{Name: "gemini", Provider: ProviderGemini, Model: "gemini-2.0-flash", APIKeyEnv: "GEMINI_API_KEY", Timeout: 2 * time.Minute},
		},
		Legal:      LegalConfig{Analyzers: []string{"claude", "gpt", "gemini"}},
		Policy:     "claude",
		Research:   "claude",
		Synthesis:  "claude",
		CrossVal:   crossval.DefaultConfig(),
		Pipeline:   PipelineConfig{ResearchGrace: pipeline.DefaultResearchGrace},
		Heuristics: HeuristicsConfig{Enabled: true},
		Docket:     DocketConfig{TokenEnv: "COURTLISTENER_TOKEN", Limit: 5},
		Store:      StoreConfig{Driver: DriverSQLite, Path: store.DefaultDBPath, RedisAddr: "localhost:6379", RedisTTL: 30 * 24 * time.Hour},
		Log:        LogConfig{Level: "info", Format: "text"},
		HTTP:       HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault loads path, or returns the defaults when path is the
// default location and does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Analyzer returns the named analyzer entry.
func (c *Config) Analyzer(name string) (AnalyzerConfig, bool) {
	for _, a := range c.Analyzers {
		if a.Name == name {
			return a, true
		}
	}
	return AnalyzerConfig{}, false
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	names := make(map[string]bool, len(c.Analyzers))
	for i, a := range c.Analyzers {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Errorf("analyzers[%d]: name is required", i))
			continue
		case names[a.Name]:
			errs = append(errs, fmt.Errorf("analyzers[%d]: duplicate name %q", i, a.Name))
		}
		names[a.Name] = true
		switch a.Provider {
		case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
			if a.Model == "" {
				errs = append(errs, fmt.Errorf("analyzer %q: model is required", a.Name))
			}
		case ProviderStatic:
			if a.Response == "" && a.ResponseFile == "" {
				errs = append(errs, fmt.Errorf("analyzer %q: static provider needs response or response_file", a.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("analyzer %q: unknown provider %q", a.Name, a.Provider))
		}
		if a.Timeout < 0 {
			errs = append(errs, fmt.Errorf("analyzer %q: negative timeout", a.Name))
		}
	}

	if len(c.Legal.Analyzers) == 0 {
		errs = append(errs, errors.New("legal: at least one analyzer is required"))
	}
	seen := make(map[string]bool)
	for _, n := range c.Legal.Analyzers {
		if !names[n] {
			errs = append(errs, fmt.Errorf("legal: unknown analyzer %q", n))
		}
		if seen[n] {
			errs = append(errs, fmt.Errorf("legal: analyzer %q listed twice", n))
		}
		seen[n] = true
	}
	for _, ref := range [][2]string{{"policy", c.Policy}, {"synthesis", c.Synthesis}} {
		if !names[ref[1]] {
			errs = append(errs, fmt.Errorf("%s: unknown analyzer %q", ref[0], ref[1]))
		}
	}
	if c.Research != "" && !names[c.Research] {
		errs = append(errs, fmt.Errorf("research: unknown analyzer %q", c.Research))
	}

	if t := c.CrossVal.OverlapThreshold; t <= 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("crossval.overlap_threshold must be in (0,1), got %v", t))
	}
	if c.CrossVal.ConfidenceBase <= 0 || c.CrossVal.ConfidencePerVote < 0 {
		errs = append(errs, errors.New("crossval: confidence_base must be > 0 and confidence_per_vote >= 0"))
	}
	if c.Pipeline.ResearchGrace < 0 {
		errs = append(errs, errors.New("pipeline.research_grace must not be negative"))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
