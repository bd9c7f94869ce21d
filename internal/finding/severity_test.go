package finding

import "testing"

func TestSeverity_Downgrade(t *testing.T) {
	cases := []struct{ in, want Severity }{
		{SeveritySevere, SeverityHigh},
		{SeverityHigh, SeverityMedium},
		{SeverityMedium, SeverityLow},
		{SeverityLow, SeverityLow},
	}
	for _, tc := range cases {
		if got := tc.in.Downgrade(); got != tc.want {
			t.Errorf("%s.Downgrade() = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"Critical":   SeveritySevere,
		" severe ":   SeveritySevere,
		"HIGH":       SeverityHigh,
		"moderate":   SeverityMedium,
		"minor":      SeverityLow,
		"":           SeverityMedium,
		"apocalypse": SeverityMedium,
	}
	for in, want := range cases {
		if got := ParseSeverity(in); got != want {
			t.Errorf("ParseSeverity(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSeverityFromRank_Clamps(t *testing.T) {
	if SeverityFromRank(-1) != SeverityLow || SeverityFromRank(9) != SeveritySevere {
		t.Error("rank not clamped to scale")
	}
	for _, s := range severityScale {
		if SeverityFromRank(s.Rank()) != s {
			t.Errorf("round trip failed for %s", s)
		}
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"False Light":         CategoryFalseLight,
		"false-light":         CategoryFalseLight,
		"Libel":               CategoryDefamation,
		"right of publicity":  CategoryAppropriation,
		"Age Restriction":     CategoryAgeRestriction,
		"something_invented":  Category("something_invented"),
	}
	for in, want := range cases {
		if got := ParseCategory(in); got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", in, got, want)
		}
	}
}
