package crossval

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scriptreview/internal/finding"
)

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool     { return &v }
func intp(v int) *int        { return &v }

func TestEngine_JohnSmithScenario(t *testing.T) {
	text := "john smith secretly diverted donor money into his own accounts for years"
	sources := []Source{
		{Analyzer: "claude", Findings: []finding.Raw{{
			Line: intp(14), Text: text, Subject: "John Smith", Category: "defamation", Severity: "high",
			Rationale: strings.Repeat("c", 40), Remediation: "hedge", Confidence: f64(0.9),
		}}},
		{Analyzer: "gpt", Findings: []finding.Raw{{
			Line: intp(14), Text: text + " while", Subject: "john smith", Category: "defamation", Severity: "medium",
			Rationale: strings.Repeat("g", 15), Remediation: "attribute the claim to the indictment", Confidence: f64(0.8),
		}}},
		{Analyzer: "gemini", Findings: []finding.Raw{{
			Line: intp(15), Text: text, Subject: "John Smith", Category: "defamation", Severity: "severe",
			Rationale: strings.Repeat("m", 60), Citation: "NY Times v. Sullivan", ExpertReview: boolp(true), Confidence: f64(0.9),
		}}},
	}

	got := NewEngine(DefaultConfig()).Merge(sources)
	if len(got) != 1 {
		t.Fatalf("expected 1 merged finding, got %d", len(got))
	}
	m := got[0]

	if m.Severity != finding.SeverityHigh {
		t.Errorf("severity = %s, want high", m.Severity)
	}
	if m.AgreementCount != 3 || !m.CrossValidated || m.Kind != finding.KindMerged {
		t.Errorf("unexpected provenance: %+v", m)
	}
	wantConf := math.Min(1, (0.9+0.8+0.9)/3*1.15)
	if math.Abs(m.Confidence-wantConf) > 1e-9 {
		t.Errorf("confidence = %v, want %v", m.Confidence, wantConf)
	}
	// Longest rationale (gemini) supplies the base record.
	if m.Line != 15 || m.Citation != "NY Times v. Sullivan" {
		t.Errorf("base record not taken from longest rationale: line=%d citation=%q", m.Line, m.Citation)
	}
	if m.Remediation != "attribute the claim to the indictment" {
		t.Errorf("remediation = %q", m.Remediation)
	}
	if !m.ExpertReview {
		t.Error("review flag lost")
	}
	wantRationale := "[claude] " + strings.Repeat("c", 40) + "\n\n[gpt] " + strings.Repeat("g", 15) + "\n\n[gemini] " + strings.Repeat("m", 60)
	if m.Rationale != wantRationale {
		t.Errorf("rationale = %q", m.Rationale)
	}
	if diff := cmp.Diff([]string{"claude", "gpt", "gemini"}, m.Analyzers); diff != "" {
		t.Errorf("analyzers (-want +got):\n%s", diff)
	}
	wantSev := map[string]finding.Severity{"claude": "high", "gpt": "medium", "gemini": "severe"}
	if diff := cmp.Diff(wantSev, m.AnalyzerSeverities); diff != "" {
		t.Errorf("analyzer severities (-want +got):\n%s", diff)
	}
}

func TestEngine_SingleSevereIsDowngraded(t *testing.T) {
	got := NewEngine(DefaultConfig()).Merge([]Source{
		{Analyzer: "claude", Findings: []finding.Raw{{Text: "x is a fraud", Subject: "X", Category: "defamation", Severity: "severe"}}},
		{Analyzer: "gpt"},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(got))
	}
	if got[0].Severity != finding.SeverityHigh || got[0].AgreementCount != 1 {
		t.Errorf("got severity %s agreement %d, want high/1", got[0].Severity, got[0].AgreementCount)
	}
}

func TestEngine_SortedBySeverityStable(t *testing.T) {
	raw := func(subject, sev string) finding.Raw {
		return finding.Raw{Text: "some quoted line", Subject: subject, Category: "privacy", Severity: sev}
	}
	got := NewEngine(DefaultConfig()).Merge([]Source{
		{Analyzer: "a", Findings: []finding.Raw{raw("P1", "medium"), raw("P2", "severe"), raw("P3", "medium"), raw("P4", "high")}},
	})
	var order []string
	for _, m := range got {
		order = append(order, m.Subject+":"+string(m.Severity))
	}
	want := []string{"P2:high", "P4:medium", "P1:low", "P3:low"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestEngine_EmptyInput(t *testing.T) {
	got := NewEngine(DefaultConfig()).Merge(nil)
	if len(got) != 0 {
		t.Errorf("expected no findings, got %d", len(got))
	}
}

func TestEngine_RepresentativeTieBreaks(t *testing.T) {
	text := "the mayor took bribes from the contractor every single month"
	tests := []struct {
		name                        string
		zetaRationale, zetaRemedy   string
		alphaRationale, alphaRemedy string
		wantLine                    int
		wantCitation, wantRemedy    string
	}{
		{
			name:          "equal lengths go to the earliest analyzer",
			zetaRationale: "zzzz", zetaRemedy: "rr",
			alphaRationale: "aaaa", alphaRemedy: "ss",
			wantLine: 1, wantCitation: "zeta cite", wantRemedy: "rr",
		},
		{
			name:          "longer text wins regardless of order",
			zetaRationale: "zzzz", zetaRemedy: "rr",
			alphaRationale: "aaaaa", alphaRemedy: "sss",
			wantLine: 2, wantCitation: "alpha cite", wantRemedy: "sss",
		},
		{
			name:          "length counts characters not bytes",
			zetaRationale: "ééé", zetaRemedy: "üñï",
			alphaRationale: "abcd", alphaRemedy: "wxyz",
			wantLine: 2, wantCitation: "alpha cite", wantRemedy: "wxyz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEngine(DefaultConfig()).Merge([]Source{
				{Analyzer: "zeta", Findings: []finding.Raw{{
					Line: intp(1), Text: text, Subject: "The Mayor", Category: "defamation", Severity: "high",
					Rationale: tt.zetaRationale, Remediation: tt.zetaRemedy, Citation: "zeta cite",
				}}},
				{Analyzer: "alpha", Findings: []finding.Raw{{
					Line: intp(2), Text: text, Subject: "the mayor", Category: "defamation", Severity: "high",
					Rationale: tt.alphaRationale, Remediation: tt.alphaRemedy, Citation: "alpha cite",
				}}},
			})
			if len(got) != 1 {
				t.Fatalf("expected 1 merged finding, got %d", len(got))
			}
			m := got[0]
			if m.Line != tt.wantLine || m.Citation != tt.wantCitation {
				t.Errorf("base record: line=%d citation=%q, want line=%d citation=%q", m.Line, m.Citation, tt.wantLine, tt.wantCitation)
			}
			if m.Remediation != tt.wantRemedy {
				t.Errorf("remediation = %q, want %q", m.Remediation, tt.wantRemedy)
			}
			if diff := cmp.Diff([]string{"zeta", "alpha"}, m.Analyzers); diff != "" {
				t.Errorf("analyzers (-want +got):\n%s", diff)
			}
		})
	}
}
