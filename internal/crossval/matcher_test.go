package crossval

import (
	"testing"

	"scriptreview/internal/finding"
)

func nf(analyzer, subject string, cat finding.Category, sev finding.Severity, text string) finding.Normalized {
	return finding.Normalized{
		Analyzer:   analyzer,
		Subject:    subject,
		Category:   cat,
		Severity:   sev,
		Text:       text,
		Confidence: finding.DefaultConfidence,
	}
}

func TestOverlapRatio(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "he took the money", "He took the MONEY", 1},
		{"subset uses smaller set", "took money", "he took the money from the fund", 1},
		{"half", "a b c d", "a b x y", 0.5},
		{"duplicates collapse", "a a a b", "a c", 0.5},
		{"empty left", "", "a b", 0},
		{"empty right", "a b", "   ", 0},
		{"disjoint", "a b", "c d", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OverlapRatio(tc.a, tc.b); got != tc.want {
				t.Errorf("OverlapRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestMatcher_Matches(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	base := nf("a", "John Smith", finding.CategoryDefamation, finding.SeverityHigh, "john smith embezzled the charity funds")

	cases := []struct {
		name  string
		other finding.Normalized
		want  bool
	}{
		{"same issue different case", nf("b", "JOHN SMITH", finding.CategoryDefamation, finding.SeverityLow, "John Smith embezzled charity funds"), true},
		{"adjacent category", nf("b", "John Smith", finding.CategoryFalseLight, finding.SeverityLow, "john smith embezzled the charity funds"), true},
		{"different subject", nf("b", "Jane Doe", finding.CategoryDefamation, finding.SeverityHigh, "john smith embezzled the charity funds"), false},
		{"incompatible category", nf("b", "John Smith", finding.CategoryPrivacy, finding.SeverityHigh, "john smith embezzled the charity funds"), false},
		{"low overlap", nf("b", "John Smith", finding.CategoryDefamation, finding.SeverityHigh, "a completely different sentence here"), false},
		{"empty text", nf("b", "John Smith", finding.CategoryDefamation, finding.SeverityHigh, ""), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Matches(base, tc.other); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
			if got := m.Matches(tc.other, base); got != tc.want {
				t.Errorf("Matches (reversed) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatcher_ThresholdIsStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OverlapThreshold = 0.5
	m := NewMatcher(cfg)
	a := nf("a", "X", finding.CategoryPrivacy, finding.SeverityLow, "a b c d")
	b := nf("b", "X", finding.CategoryPrivacy, finding.SeverityLow, "a b y z")
	if m.Matches(a, b) {
		t.Error("ratio equal to threshold must not match")
	}
}

func TestMatcher_AdjacencyIsExplicit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Adjacent = nil
	m := NewMatcher(cfg)
	if m.Compatible(finding.CategoryDefamation, finding.CategoryFalseLight) {
		t.Error("adjacency must not be inferred without configuration")
	}

	m = NewMatcher(DefaultConfig())
	if !m.Compatible(finding.CategoryAppropriation, finding.CategoryPrivacy) {
		t.Error("adjacency must be symmetric")
	}
	if m.Compatible(finding.CategoryDefamation, finding.CategoryPrivacy) {
		t.Error("adjacency must not be transitive or inferred")
	}
}
