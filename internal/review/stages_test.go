package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/finding"
	"scriptreview/internal/llmjson"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
)

func TestPolicy_ObjectResponse(t *testing.T) {
	resp := `{"summary": "Mostly fine.", "monetization": "limited", "findings": [
	  {"line": 1, "text": "arrested", "category": "monetization", "severity": "low", "rationale": "Crime topic."},
	  {"line": 2, "text": "stole", "category": "Community Guidelines", "severity": "high", "rationale": "Harassment risk."}]}`
	p := NewPolicy(static("policy", resp))
	got, err := p.ReviewPolicy(context.Background(), parseTestScript(t), pipeline.CaseMetadata{})
	if err != nil {
		t.Fatalf("ReviewPolicy: %v", err)
	}
	if got.Summary != "Mostly fine." || got.Monetization != "limited" {
		t.Errorf("got %+v", got)
	}
	if len(got.Findings) != 2 {
		t.Fatalf("findings = %+v", got.Findings)
	}
	first := got.Findings[0]
	if first.Category != finding.CategoryCommunityGuidelines || first.Severity != finding.SeverityHigh {
		t.Errorf("findings not sorted by severity: %+v", got.Findings)
	}
	if first.Kind != finding.KindRaw || first.CrossValidated || first.Subject != finding.UnknownSubject {
		t.Errorf("policy finding = %+v", first)
	}
}

func TestPolicy_BareArray(t *testing.T) {
	p := NewPolicy(static("policy", `[{"text": "x", "category": "copyright", "severity": "medium"}]`))
	got, err := p.ReviewPolicy(context.Background(), parseTestScript(t), pipeline.CaseMetadata{})
	if err != nil {
		t.Fatalf("ReviewPolicy: %v", err)
	}
	if len(got.Findings) != 1 || got.Findings[0].Category != finding.CategoryCopyright {
		t.Errorf("got %+v", got.Findings)
	}
}

func TestPolicy_Failures(t *testing.T) {
	tests := []struct {
		name string
		a    analyzer.Analyzer
	}{
		{"call error", failing("policy", errors.New("503"))},
		{"no json", static("policy", "Sorry, I can't help with that.")},
		{"unknown object", static("policy", `{"verdict": "ok"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPolicy(tt.a).ReviewPolicy(context.Background(), parseTestScript(t), pipeline.CaseMetadata{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSynthesis(t *testing.T) {
	resp := "```json\n{\"verdict\": \"High-Risk\", \"risk_score\": 72.6, \"summary\": \" Needs edits. \", \"recommendations\": [\"Attribute line 2\"]}\n```"
	s := NewSynthesis(static("synth", resp))
	got, err := s.Synthesize(context.Background(), pipeline.SynthesisInput{Script: parseTestScript(t)})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := &report.Synthesis{
		Verdict:         report.VerdictHighRisk,
		RiskScore:       73,
		Summary:         "Needs edits.",
		Recommendations: []string{"Attribute line 2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("synthesis mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesis_IncompleteResponse(t *testing.T) {
	s := NewSynthesis(static("synth", `{"verdict": "clear"}`))
	if _, err := s.Synthesize(context.Background(), pipeline.SynthesisInput{Script: parseTestScript(t)}); err == nil {
		t.Error("expected error for missing score and summary")
	}
}

func TestSynthesis_PromptMentionsDegradedStages(t *testing.T) {
	var prompt string
	a := analyzer.Func{ID: "synth", Fn: func(_ context.Context, _, p string) (string, error) {
		prompt = p
		return `{"verdict": "borderline", "risk_score": 50, "summary": "s"}`, nil
	}}
	_, err := NewSynthesis(a).Synthesize(context.Background(), pipeline.SynthesisInput{
		Script:   parseTestScript(t),
		Degraded: []string{"policy", "research"},
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, want := range []string{"Legal review unavailable.", "Policy review unavailable.", "policy, research"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestDecodeFindings(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr error
	}{
		{"array", `[{"text": "a"}, {"text": "b"}]`, 2, nil},
		{"wrapped flags", `{"flags": [{"text": "a"}]}`, 1, nil},
		{"truncated", `[{"text": "a"}, {"text": "b", "subj`, 2, nil},
		{"empty", `[]`, 0, nil},
		{"no list", `{"ok": true}`, 0, ErrNoFindings},
		{"prose", `nothing to report`, 0, llmjson.ErrNoJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeFindings(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFindings: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}
