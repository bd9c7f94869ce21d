package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"scriptreview/internal/finding"
)

func TestFallback_CarriesFindingsVerbatim(t *testing.T) {
	legal := &Legal{Findings: []finding.Merged{{Kind: finding.KindMerged, Subject: "X", Severity: finding.SeverityHigh, ExpertReview: true}}}
	policy := &Policy{Findings: []finding.Merged{{Kind: finding.KindRaw, Category: finding.CategoryMonetization}}}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := Fallback("rev-1", "Doc", legal, policy, nil, nil, now)

	if r.Verdict != VerdictBorderline || r.RiskScore != FallbackRiskScore || !r.Fallback {
		t.Errorf("unexpected fallback header: %+v", r)
	}
	if diff := cmp.Diff(legal.Findings, r.LegalFindings); diff != "" {
		t.Errorf("legal findings changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(policy.Findings, r.PolicyFindings); diff != "" {
		t.Errorf("policy findings changed (-want +got):\n%s", diff)
	}
	if r.ExpertReviewCount() != 1 {
		t.Errorf("ExpertReviewCount = %d", r.ExpertReviewCount())
	}
}

func TestFallback_NilStages(t *testing.T) {
	r := Fallback("rev-2", "Doc", nil, nil, nil, nil, time.Time{})
	if r.LegalFindings != nil || r.PolicyFindings != nil {
		t.Errorf("expected empty findings, got %+v", r)
	}
}

func TestParseVerdict(t *testing.T) {
	cases := map[string]Verdict{
		"clear":     VerdictClear,
		"high_risk": VerdictHighRisk,
		"rejected":  VerdictHighRisk,
		"approved":  VerdictClear,
		"":          VerdictBorderline,
		"maybe":     VerdictBorderline,
	}
	for in, want := range cases {
		if got := ParseVerdict(in); got != want {
			t.Errorf("ParseVerdict(%q) = %s, want %s", in, got, want)
		}
	}
}
