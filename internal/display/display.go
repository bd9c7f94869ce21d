// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports, logs, and docs.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import (
	"strings"

	"scriptreview/internal/finding"
	"scriptreview/internal/report"
)

// --- Categories ---

var categories = map[finding.Category]string{
	finding.CategoryDefamation:          "Defamation",
	finding.CategoryPrivacy:             "Invasion of Privacy",
	finding.CategoryFalseLight:          "False Light",
	finding.CategoryAppropriation:       "Appropriation of Likeness",
	finding.CategoryCommunityGuidelines: "Community Guidelines",
	finding.CategoryAgeRestriction:      "Age Restriction",
	finding.CategoryMonetization:        "Monetization",
	finding.CategoryCopyright:           "Copyright",
	finding.CategoryMisinformation:      "Misinformation",
	finding.CategoryGraphicContent:      "Graphic Content",
	finding.CategoryHarassment:          "Harassment",
}

// Category returns the human-readable name for a category code.
// Unknown categories are title-cased from their code.
func Category(c finding.Category) string {
	if name, ok := categories[c]; ok {
		return name
	}
	return titleCase(string(c))
}

// CategoryWithCode returns "False Light (false_light)" format.
func CategoryWithCode(c finding.Category) string {
	if name, ok := categories[c]; ok {
		return name + " (" + string(c) + ")"
	}
	return string(c)
}

// --- Severity ---

// Severity returns "Low", "Medium", "High" or "Severe".
func Severity(s finding.Severity) string {
	return titleCase(string(s))
}

// SeverityMark returns a short fixed-width marker for tables.
func SeverityMark(s finding.Severity) string {
	switch s {
	case finding.SeveritySevere:
		return "!!!"
	case finding.SeverityHigh:
		return "!!"
	case finding.SeverityMedium:
		return "!"
	default:
		return "."
	}
}

// --- Verdicts ---

var verdicts = map[report.Verdict]string{
	report.VerdictClear:      "Clear to publish",
	report.VerdictBorderline: "Borderline",
	report.VerdictHighRisk:   "High risk",
}

// Verdict returns the human-readable verdict.
func Verdict(v report.Verdict) string {
	if name, ok := verdicts[v]; ok {
		return name
	}
	return string(v)
}

// --- Stages ---

var stages = map[string]string{
	"parse":     "Parsing script",
	"policy":    "Policy review",
	"research":  "Case research",
	"legal":     "Legal review",
	"synthesis": "Synthesis",
}

// Stage returns the human-readable name for a stage key.
// "legal" -> "Legal review".
func Stage(key string) string {
	if name, ok := stages[key]; ok {
		return name
	}
	return key
}

// StageList converts stage keys to a comma-separated human-readable list.
// ["policy", "legal"] -> "Policy review, Legal review"
func StageList(keys []string) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = Stage(k)
	}
	return strings.Join(names, ", ")
}

// Counsel returns "Yes" when a finding needs expert review, else "".
func Counsel(v bool) string {
	if v {
		return "Yes"
	}
	return ""
}

func titleCase(code string) string {
	words := strings.Fields(strings.ReplaceAll(code, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
