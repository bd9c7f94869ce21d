package format

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"scriptreview/internal/display"
	"scriptreview/internal/finding"
	"scriptreview/internal/report"
	"scriptreview/internal/store"
)

const textColumnWidth = 60

// Report renders a review report.
func Report(rep *report.Report, m Mode) (string, error) {
	if m == JSON {
		return toJSON(rep)
	}

	var b strings.Builder
	heading(&b, m, 1, rep.Title)
	field(&b, m, "Review", rep.ReviewID)
	field(&b, m, "Verdict", fmt.Sprintf("%s (risk score %d/100)", display.Verdict(rep.Verdict), rep.RiskScore))
	if n := rep.ExpertReviewCount(); n > 0 {
		field(&b, m, "Needs counsel", strconv.Itoa(n)+" findings")
	}
	if rep.Fallback {
		field(&b, m, "Note", "automated synthesis failed; this is the fallback report")
	}
	if len(rep.Degraded) > 0 {
		field(&b, m, "Degraded", display.StageList(rep.Degraded))
	}
	b.WriteString("\n")
	b.WriteString(rep.Summary)
	b.WriteString("\n")

	section(&b, m, "Legal findings", rep.LegalFindings, true)
	section(&b, m, "Policy findings", rep.PolicyFindings, false)
	if len(rep.HeuristicFlags) > 0 {
		section(&b, m, "Heuristic flags", rep.HeuristicFlags, false)
	}

	if len(rep.Recommendations) > 0 {
		heading(&b, m, 2, "Recommendations")
		for _, r := range rep.Recommendations {
			b.WriteString("- " + r + "\n")
		}
	}

	if rs := rep.Research; rs != nil {
		heading(&b, m, 2, "Case research")
		if rs.Summary != "" {
			b.WriteString(rs.Summary + "\n")
		}
		if len(rs.RelatedCases) > 0 {
			tb := NewTable(m)
			tb.Header("Case", "Citation", "Relevance")
			for _, c := range rs.RelatedCases {
				tb.Row(c.Name, c.Citation, OneLine(c.Relevance))
			}
			tb.Columns(ColumnConfig{Number: 3, MaxWidth: textColumnWidth})
			b.WriteString("\n" + tb.String() + "\n")
		}
		if len(rs.Dockets) > 0 {
			tb := NewTable(m)
			tb.Header("Docket", "Court", "Number", "Filed")
			for _, d := range rs.Dockets {
				tb.Row(d.CaseName, d.Court, d.DocketNumber, d.DateFiled)
			}
			b.WriteString("\n" + tb.String() + "\n")
		}
	}
	return b.String(), nil
}

// FindingsTable renders findings most severe first, as ordered by the
// caller.
func FindingsTable(fs []finding.Merged, m Mode, withAgreement bool) string {
	tb := NewTable(m)
	cols := []string{"Severity", "Category", "Subject", "Line"}
	if withAgreement {
		cols = append(cols, "Agree", "Analyzers")
	}
	cols = append(cols, "Counsel", "Conf.", "Text")
	tb.Header(cols...)
	for _, f := range fs {
		line := ""
		if f.Line > 0 {
			line = strconv.Itoa(f.Line)
		}
		row := []any{display.Severity(f.Severity), display.Category(f.Category), f.Subject, line}
		if withAgreement {
			row = append(row, f.AgreementCount, strings.Join(f.Analyzers, ","))
		}
		row = append(row, display.Counsel(f.ExpertReview), FmtConfidence(f.Confidence), Truncate(OneLine(f.Text), 2*textColumnWidth))
		tb.Row(row...)
	}
	tb.Columns(ColumnConfig{Number: len(cols), MaxWidth: textColumnWidth})
	return tb.String()
}

// Records renders a review list, newest first.
func Records(recs []*store.Record, m Mode) (string, error) {
	if m == JSON {
		return toJSON(recs)
	}
	tb := NewTable(m)
	tb.Header("ID", "Title", "Status", "Verdict", "Score", "Created", "Took")
	for _, r := range recs {
		verdict, score := "", ""
		if r.Report != nil {
			verdict = display.Verdict(r.Report.Verdict)
			score = strconv.Itoa(r.Report.RiskScore)
		}
		took := ""
		if r.Status == store.StatusComplete || r.Status == store.StatusFailed {
			took = FmtDuration(r.UpdatedAt.Sub(r.CreatedAt))
		}
		tb.Row(r.ID, Truncate(r.Title, 40), string(r.Status), verdict, score, r.CreatedAt.Format("2006-01-02 15:04"), took)
	}
	tb.Columns(ColumnConfig{Number: 5, Align: AlignRight})
	return tb.String(), nil
}

func section(b *strings.Builder, m Mode, title string, fs []finding.Merged, withAgreement bool) {
	heading(b, m, 2, fmt.Sprintf("%s (%d)", title, len(fs)))
	if len(fs) == 0 {
		b.WriteString("None.\n")
		return
	}
	b.WriteString(FindingsTable(fs, m, withAgreement))
	b.WriteString("\n")
	for i, f := range fs {
		if f.Remediation == "" && f.Rationale == "" {
			continue
		}
		fmt.Fprintf(b, "\n%d. %s / %s\n", i+1, display.Category(f.Category), f.Subject)
		if f.Rationale != "" {
			b.WriteString(indent(f.Rationale) + "\n")
		}
		if f.Remediation != "" {
			b.WriteString("   Suggested: " + f.Remediation + "\n")
		}
	}
}

func heading(b *strings.Builder, m Mode, level int, s string) {
	if m == Markdown {
		b.WriteString("\n" + strings.Repeat("#", level) + " " + s + "\n\n")
		return
	}
	b.WriteString("\n" + s + "\n")
	ch := "="
	if level > 1 {
		ch = "-"
	}
	b.WriteString(strings.Repeat(ch, len([]rune(s))) + "\n")
}

func field(b *strings.Builder, m Mode, k, v string) {
	if m == Markdown {
		b.WriteString("**" + k + ":** " + v + "  \n")
		return
	}
	b.WriteString(k + ": " + v + "\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "   " + l
		}
	}
	return strings.Join(lines, "\n")
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data) + "\n", nil
}
