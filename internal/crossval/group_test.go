package crossval

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scriptreview/internal/finding"
)

func analyzers(g Group) []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Analyzer
	}
	return out
}

func TestGroupFindings_ThreeWayAgreement(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	in := []finding.Normalized{
		nf("claude", "John Smith", finding.CategoryDefamation, finding.SeverityHigh, "john smith stole from the pension fund"),
		nf("gpt", "John Smith", finding.CategoryDefamation, finding.SeverityMedium, "John Smith stole from the pension fund"),
		nf("gemini", "john smith", finding.CategoryDefamation, finding.SeveritySevere, "john smith stole from the pension fund."),
	}
	groups := GroupFindings(m, in)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if diff := cmp.Diff([]string{"claude", "gpt", "gemini"}, analyzers(groups[0])); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
}

func TestGroupFindings_TransitiveClosure(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	// A~B and B~C, but A and C share only one of four tokens.
	a := nf("a", "X", finding.CategoryPrivacy, finding.SeverityHigh, "one two three four")
	b := nf("b", "X", finding.CategoryPrivacy, finding.SeverityHigh, "three four five six")
	c := nf("c", "X", finding.CategoryPrivacy, finding.SeverityHigh, "four five six seven")
	if m.Matches(a, c) {
		t.Fatal("fixture broken: a and c should not match directly")
	}

	// C precedes B in scan order, so it can only join after B does.
	groups := GroupFindings(m, []finding.Normalized{a, c, b})
	if len(groups) != 1 {
		t.Fatalf("expected transitive group, got %d groups", len(groups))
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, analyzers(groups[0])); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
}

func TestGroupFindings_SubjectMismatch(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	in := []finding.Normalized{
		nf("claude", "Jane Doe", finding.CategoryDefamation, finding.SeverityHigh, "was convicted of fraud in 2019"),
		nf("gpt", "John Smith", finding.CategoryDefamation, finding.SeverityHigh, "was convicted of fraud in 2019"),
	}
	groups := GroupFindings(m, in)
	if len(groups) != 2 {
		t.Fatalf("expected 2 singleton groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Size() != 1 {
			t.Errorf("expected singleton, got %v", analyzers(g))
		}
	}
}

func TestGroupFindings_OneVotePerAnalyzer(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	in := []finding.Normalized{
		nf("claude", "X", finding.CategoryDefamation, finding.SeverityHigh, "the mayor took bribes"),
		nf("claude", "X", finding.CategoryDefamation, finding.SeverityHigh, "the mayor took bribes again"),
		nf("gpt", "X", finding.CategoryDefamation, finding.SeverityHigh, "the mayor took bribes"),
	}
	groups := GroupFindings(m, in)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if diff := cmp.Diff([]string{"claude", "gpt"}, analyzers(groups[0])); diff != "" {
		t.Errorf("first group (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"claude"}, analyzers(groups[1])); diff != "" {
		t.Errorf("second group (-want +got):\n%s", diff)
	}
}

// fixture builds a noisy multi-analyzer input with overlapping subjects.
func fixture() []finding.Normalized {
	subjects := []string{"Ann", "Bob", "ann"}
	cats := []finding.Category{finding.CategoryDefamation, finding.CategoryFalseLight, finding.CategoryPrivacy}
	texts := []string{
		"ann lied under oath",
		"ann lied under oath twice",
		"bob hid assets offshore",
		"hid assets offshore",
		"",
		"lied under oath",
	}
	var out []finding.Normalized
	for ai, a := range []string{"claude", "gpt", "gemini"} {
		for i := 0; i < 6; i++ {
			k := ai + i
			out = append(out, nf(a, subjects[k%len(subjects)], cats[k%len(cats)], finding.SeverityMedium, texts[(k*5)%len(texts)]))
		}
	}
	return out
}

func TestGroupFindings_Properties(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	in := fixture()
	groups := GroupFindings(m, in)

	// Partition totality: output is a multiset-equal rearrangement of input.
	count := make(map[string]int)
	for _, f := range in {
		count[fmt.Sprintf("%+v", f)]++
	}
	total := 0
	for _, g := range groups {
		total += g.Size()
		voted := make(map[string]bool)
		for _, mem := range g.Members {
			if voted[mem.Analyzer] {
				t.Errorf("analyzer %s voted twice in one group", mem.Analyzer)
			}
			voted[mem.Analyzer] = true
			count[fmt.Sprintf("%+v", mem)]--
		}
	}
	if total != len(in) {
		t.Fatalf("partition size %d, want %d", total, len(in))
	}
	for k, v := range count {
		if v != 0 {
			t.Errorf("finding %s appears %+d times too many", k, -v)
		}
	}

	again := GroupFindings(m, in)
	if diff := cmp.Diff(groups, again); diff != "" {
		t.Errorf("grouping not deterministic:\n%s", diff)
	}
}
