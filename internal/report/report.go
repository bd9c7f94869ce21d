// Package report holds the stage results and final report of a script
// review. It is shared by the pipeline, the stores and the output surfaces.
package report

import (
	"time"

	"scriptreview/internal/finding"
)

// Verdict is the overall publishing recommendation.
type Verdict string

const (
	VerdictClear      Verdict = "clear"
	VerdictBorderline Verdict = "borderline"
	VerdictHighRisk   Verdict = "high_risk"
)

// ParseVerdict maps synthesis wording onto a verdict. Unknown values are
// treated as borderline.
func ParseVerdict(s string) Verdict {
	switch Verdict(s) {
	case VerdictClear, VerdictBorderline, VerdictHighRisk:
		return Verdict(s)
	}
	switch s {
	case "approved", "safe", "low_risk", "publish":
		return VerdictClear
	case "high-risk", "do_not_publish", "rejected", "unsafe":
		return VerdictHighRisk
	}
	return VerdictBorderline
}

// Legal is the cross-validated legal review output.
type Legal struct {
	Findings  []finding.Merged `json:"findings"`
	Analyzers []string         `json:"analyzers"`
	// Failures maps an analyzer that failed to its error text.
	Failures map[string]string `json:"failures,omitempty"`
	// Synthetic is set when every analyzer failed and Findings holds the
	// single placeholder finding.
	Synthetic bool `json:"synthetic,omitempty"`
	// UsedResearch records whether case research arrived in time.
	UsedResearch bool `json:"used_research"`
}

// Degraded reports whether at least one analyzer failed.
func (l *Legal) Degraded() bool { return l != nil && len(l.Failures) > 0 }

// Policy is the platform policy review output.
type Policy struct {
	Findings     []finding.Merged `json:"findings"`
	Summary      string           `json:"summary,omitempty"`
	Monetization string           `json:"monetization,omitempty"`
}

// RelatedCase is a precedent or comparable case surfaced by research.
type RelatedCase struct {
	Name      string `json:"name"`
	Citation  string `json:"citation,omitempty"`
	Relevance string `json:"relevance,omitempty"`
}

// Docket is a court record returned by a docket search.
type Docket struct {
	CaseName     string `json:"case_name"`
	Court        string `json:"court,omitempty"`
	DocketNumber string `json:"docket_number,omitempty"`
	DateFiled    string `json:"date_filed,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Research is the case research output used to enrich legal review.
type Research struct {
	Summary        string        `json:"summary"`
	RelatedCases   []RelatedCase `json:"related_cases,omitempty"`
	Considerations []string      `json:"considerations,omitempty"`
	Dockets        []Docket      `json:"dockets,omitempty"`
}

// Report is the terminal output of a review.
type Report struct {
	ReviewID        string           `json:"review_id"`
	Title           string           `json:"title"`
	Verdict         Verdict          `json:"verdict"`
	RiskScore       int              `json:"risk_score"`
	Summary         string           `json:"summary"`
	LegalFindings   []finding.Merged `json:"legal_findings"`
	PolicyFindings  []finding.Merged `json:"policy_findings"`
	HeuristicFlags  []finding.Merged `json:"heuristic_flags,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Research        *Research        `json:"research,omitempty"`
	// Degraded lists stages that failed or ran with partial input.
	Degraded    []string  `json:"degraded,omitempty"`
	Fallback    bool      `json:"fallback"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExpertReviewCount counts findings flagged for counsel.
func (r *Report) ExpertReviewCount() int {
	n := 0
	for _, group := range [][]finding.Merged{r.LegalFindings, r.PolicyFindings} {
		for _, f := range group {
			if f.ExpertReview {
				n++
			}
		}
	}
	return n
}

// Synthesis is the verdict part of a report, produced by the synthesis
// stage. Findings are attached by the pipeline, not by the synthesizer.
type Synthesis struct {
	Verdict         Verdict  `json:"verdict"`
	RiskScore       int      `json:"risk_score"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
}
