// Package finding defines the shapes a risk finding takes on its way from an
// analyzer's raw output to a merged, cross-validated report entry.
package finding

import (
	"encoding/json"
	"strings"
)

// UnknownSubject is the subject used when an analyzer names nobody.
const UnknownSubject = "Unknown"

// DefaultConfidence is assigned when an analyzer omits a confidence value.
const DefaultConfidence = 0.5

// Kind tags a report finding as single-source or cross-validated.
type Kind string

const (
	KindRaw    Kind = "raw"
	KindMerged Kind = "merged"
)

// Raw is one finding exactly as an analyzer returned it. Optional fields are
// pointers so that "absent" and "zero" stay distinguishable.
type Raw struct {
	Line         *int     `json:"line,omitempty"`
	Text         string   `json:"text"`
	Subject      string   `json:"subject,omitempty"`
	Category     string   `json:"category"`
	Severity     string   `json:"severity"`
	Rationale    string   `json:"rationale,omitempty"`
	Remediation  string   `json:"remediation,omitempty"`
	Citation     string   `json:"citation,omitempty"`
	ExpertReview *bool    `json:"requires_counsel,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// UnmarshalJSON accepts the handful of field spellings models actually emit.
func (r *Raw) UnmarshalJSON(data []byte) error {
	type plain Raw
	var aux struct {
		plain
		LineNumber     *int     `json:"line_number"`
		FlaggedText    string   `json:"flagged_text"`
		Quote          string   `json:"quote"`
		Person         string   `json:"person"`
		Issue          string   `json:"issue"`
		RiskLevel      string   `json:"risk_level"`
		Explanation    string   `json:"explanation"`
		Reasoning      string   `json:"reasoning"`
		Suggestion     string   `json:"suggestion"`
		SuggestedFix   string   `json:"suggested_fix"`
		RequiresReview *bool    `json:"requires_review"`
		NeedsCounsel   *bool    `json:"needs_counsel"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Raw(aux.plain)
	if r.Line == nil {
		r.Line = aux.LineNumber
	}
	r.Text = firstNonEmpty(r.Text, aux.FlaggedText, aux.Quote)
	r.Subject = firstNonEmpty(r.Subject, aux.Person)
	r.Category = firstNonEmpty(r.Category, aux.Issue)
	r.Severity = firstNonEmpty(r.Severity, aux.RiskLevel)
	r.Rationale = firstNonEmpty(r.Rationale, aux.Explanation, aux.Reasoning)
	r.Remediation = firstNonEmpty(r.Remediation, aux.SuggestedFix, aux.Suggestion)
	if r.ExpertReview == nil {
		r.ExpertReview = aux.RequiresReview
	}
	if r.ExpertReview == nil {
		r.ExpertReview = aux.NeedsCounsel
	}
	return nil
}

// Normalized is a Raw finding with every default applied, tagged with the
// analyzer that produced it. Never mutated after Normalize returns it.
type Normalized struct {
	Analyzer     string   `json:"analyzer"`
	Line         int      `json:"line,omitempty"`
	Text         string   `json:"text"`
	Subject      string   `json:"subject"`
	Category     Category `json:"category"`
	Severity     Severity `json:"severity"`
	Rationale    string   `json:"rationale"`
	Remediation  string   `json:"remediation"`
	Citation     string   `json:"citation"`
	ExpertReview bool     `json:"requires_counsel"`
	Confidence   float64  `json:"confidence"`
}

// Normalize fills defaults on r. It never fails.
func Normalize(r Raw, analyzer string) Normalized {
	n := Normalized{
		Analyzer:    strings.TrimSpace(analyzer),
		Text:        strings.TrimSpace(r.Text),
		Subject:     strings.TrimSpace(r.Subject),
		Category:    ParseCategory(r.Category),
		Severity:    ParseSeverity(r.Severity),
		Rationale:   strings.TrimSpace(r.Rationale),
		Remediation: strings.TrimSpace(r.Remediation),
		Citation:    strings.TrimSpace(r.Citation),
		Confidence:  DefaultConfidence,
	}
	if r.Line != nil && *r.Line > 0 {
		n.Line = *r.Line
	}
	if n.Subject == "" {
		n.Subject = UnknownSubject
	}
	if r.ExpertReview != nil {
		n.ExpertReview = *r.ExpertReview
	}
	if r.Confidence != nil {
		n.Confidence = clamp01(*r.Confidence)
	}
	return n
}

// Raw converts n back into analyzer shape with every optional field set.
// Normalize(n.Raw(), n.Analyzer) == n.
func (n Normalized) Raw() Raw {
	r := Raw{
		Text:         n.Text,
		Subject:      n.Subject,
		Category:     string(n.Category),
		Severity:     string(n.Severity),
		Rationale:    n.Rationale,
		Remediation:  n.Remediation,
		Citation:     n.Citation,
		ExpertReview: &n.ExpertReview,
		Confidence:   &n.Confidence,
	}
	if n.Line > 0 {
		line := n.Line
		r.Line = &line
	}
	return r
}

// Merged is a report entry. Kind says whether it came out of
// cross-validation or was carried through from a single source.
type Merged struct {
	Kind               Kind                `json:"kind"`
	Line               int                 `json:"line,omitempty"`
	Text               string              `json:"text"`
	Subject            string              `json:"subject"`
	Category           Category            `json:"category"`
	Severity           Severity            `json:"severity"`
	Rationale          string              `json:"rationale"`
	Remediation        string              `json:"remediation"`
	Citation           string              `json:"citation,omitempty"`
	ExpertReview       bool                `json:"requires_counsel"`
	Confidence         float64             `json:"confidence"`
	AgreementCount     int                 `json:"agreement_count"`
	Analyzers          []string            `json:"analyzers"`
	AnalyzerSeverities map[string]Severity `json:"analyzer_severities"`
	CrossValidated     bool                `json:"cross_validated"`
}

// Single wraps one normalized finding as a raw-kind report entry without
// any adjudication.
func Single(n Normalized) Merged {
	return Merged{
		Kind:               KindRaw,
		Line:               n.Line,
		Text:               n.Text,
		Subject:            n.Subject,
		Category:           n.Category,
		Severity:           n.Severity,
		Rationale:          n.Rationale,
		Remediation:        n.Remediation,
		Citation:           n.Citation,
		ExpertReview:       n.ExpertReview,
		Confidence:         n.Confidence,
		AgreementCount:     1,
		Analyzers:          []string{n.Analyzer},
		AnalyzerSeverities: map[string]Severity{n.Analyzer: n.Severity},
	}
}

// NormalizeAll normalizes a batch from one analyzer, preserving order.
func NormalizeAll(raws []Raw, analyzer string) []Normalized {
	out := make([]Normalized, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r, analyzer))
	}
	return out
}

func clamp01(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
