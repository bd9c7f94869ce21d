package review

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"scriptreview/internal/finding"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/script"
)

//go:embed heuristics.yaml
var heuristicsYAML []byte

// HeuristicsAnalyzer is the analyzer id on heuristic flags.
const HeuristicsAnalyzer = "heuristics"

type ruleSpec struct {
	ID              string   `yaml:"id"`
	Category        string   `yaml:"category"`
	Severity        string   `yaml:"severity"`
	RequiresCounsel bool     `yaml:"requires_counsel"`
	NeedsPerson     bool     `yaml:"needs_person"`
	Confidence      float64  `yaml:"confidence"`
	Rationale       string   `yaml:"rationale"`
	Patterns        []string `yaml:"patterns"`
	Unless          []string `yaml:"unless"`
}

type rule struct {
	spec     ruleSpec
	category finding.Category
	severity finding.Severity
	patterns []*regexp.Regexp
	unless   []*regexp.Regexp
}

// Heuristics flags lines with cheap pattern rules. It needs no network and
// never fails once constructed.
type Heuristics struct {
	rules []rule
}

// DefaultHeuristics returns the built-in rule set.
func DefaultHeuristics() *Heuristics {
	h, err := NewHeuristics(heuristicsYAML)
	if err != nil {
		panic(fmt.Sprintf("load heuristics.yaml: %v", err))
	}
	return h
}

// LoadHeuristics reads a rule file with the same layout as the built-in set.
func LoadHeuristics(path string) (*Heuristics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read heuristics %s: %w", path, err)
	}
	return NewHeuristics(data)
}

// NewHeuristics compiles a YAML rule set.
func NewHeuristics(data []byte) (*Heuristics, error) {
	var doc struct {
		Rules []ruleSpec `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse heuristics: %w", err)
	}
	h := &Heuristics{}
	for _, spec := range doc.Rules {
		if len(spec.Patterns) == 0 {
			return nil, fmt.Errorf("rule %q: no patterns", spec.ID)
		}
		r := rule{
			spec:     spec,
			category: finding.ParseCategory(spec.Category),
			severity: finding.ParseSeverity(spec.Severity),
		}
		var err error
		if r.patterns, err = compileAll(spec.Patterns); err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.ID, err)
		}
		if r.unless, err = compileAll(spec.Unless); err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.ID, err)
		}
		h.rules = append(h.rules, r)
	}
	return h, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Rules returns the ids of the loaded rules in order.
func (h *Heuristics) Rules() []string {
	ids := make([]string, len(h.rules))
	for i, r := range h.rules {
		ids[i] = r.spec.ID
	}
	return ids
}

// Flag scans every line. A rule fires at most once per line.
func (h *Heuristics) Flag(sc *script.Script, meta pipeline.CaseMetadata) []finding.Normalized {
	people := knownPeople(sc, meta)
	var out []finding.Normalized
	for _, line := range sc.Lines {
		for _, r := range h.rules {
			if !anyMatch(r.patterns, line.Text) || anyMatch(r.unless, line.Text) {
				continue
			}
			subject := finding.UnknownSubject
			if person := mentionedPerson(people, line.Text); person != "" {
				subject = person
			} else if r.spec.NeedsPerson {
				continue
			}
			out = append(out, finding.Normalized{
				Analyzer:     HeuristicsAnalyzer,
				Line:         line.Number,
				Text:         line.Text,
				Subject:      subject,
				Category:     r.category,
				Severity:     r.severity,
				Rationale:    r.spec.Rationale,
				ExpertReview: r.spec.RequiresCounsel,
				Confidence:   r.spec.Confidence,
			})
		}
	}
	return out
}

// knownPeople puts metadata subjects first so they win over names guessed
// from the script text.
func knownPeople(sc *script.Script, meta pipeline.CaseMetadata) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range append(append([]string{}, meta.Subjects...), sc.People...) {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func mentionedPerson(people []string, text string) string {
	lower := strings.ToLower(text)
	for _, p := range people {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

var _ pipeline.Flagger = (*Heuristics)(nil)
