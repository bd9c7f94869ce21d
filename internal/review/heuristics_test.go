package review

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"scriptreview/internal/finding"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/script"
)

func TestDefaultHeuristics_Loads(t *testing.T) {
	h := DefaultHeuristics()
	if len(h.Rules()) == 0 {
		t.Fatal("no built-in rules")
	}
}

func TestHeuristics_Flag(t *testing.T) {
	text := `NARRATOR: Mary Jones killed her husband in cold blood.
NARRATOR: Prosecutors said Mary Jones killed her husband.
NARRATOR: You can still reach the family at 555-123-4567.
NARRATOR: Someone must have known.
NARRATOR: Mary Jones was probably drunk that night.`
	sc, err := script.Parse("t", text, script.FormatPlain)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	flags := DefaultHeuristics().Flag(sc, pipeline.CaseMetadata{Subjects: []string{"Mary Jones"}})

	type hit struct {
		Line     int
		Subject  string
		Category finding.Category
	}
	var got []hit
	for _, f := range flags {
		if f.Analyzer != HeuristicsAnalyzer {
			t.Errorf("analyzer = %q", f.Analyzer)
		}
		got = append(got, hit{f.Line, f.Subject, f.Category})
	}
	want := []hit{
		{1, "Mary Jones", finding.CategoryDefamation},
		{3, finding.UnknownSubject, finding.CategoryPrivacy},
		{5, "Mary Jones", finding.CategoryFalseLight},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
	if !flags[0].ExpertReview || flags[0].Severity != finding.SeverityHigh {
		t.Errorf("accusation flag = %+v", flags[0])
	}
}

func TestNewHeuristics_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no patterns", "rules:\n  - id: x\n    category: privacy\n"},
		{"bad regex", "rules:\n  - id: x\n    patterns: ['(unclosed']\n"},
		{"bad yaml", "rules: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHeuristics([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
