package report

import (
	"time"

	"scriptreview/internal/finding"
)

// FallbackRiskScore is the fixed score of a fallback report.
const FallbackRiskScore = 50

// FallbackSummary is the fixed summary of a fallback report.
const FallbackSummary = "Automated synthesis was unavailable. Findings from the legal and " +
	"policy reviews are listed unmerged below; treat this script as borderline " +
	"until counsel has reviewed them."

// Fallback builds the deterministic report used when synthesis fails.
// Findings are carried through verbatim.
func Fallback(reviewID, title string, legal *Legal, policy *Policy, research *Research, flags []finding.Merged, now time.Time) *Report {
	r := &Report{
		ReviewID:       reviewID,
		Title:          title,
		Verdict:        VerdictBorderline,
		RiskScore:      FallbackRiskScore,
		Summary:        FallbackSummary,
		HeuristicFlags: flags,
		Research:       research,
		Fallback:       true,
		GeneratedAt:    now,
	}
	if legal != nil {
		r.LegalFindings = legal.Findings
	}
	if policy != nil {
		r.PolicyFindings = policy.Findings
	}
	return r
}
