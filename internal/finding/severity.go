package finding

import "strings"

// Severity is the ordered risk scale low < medium < high < severe.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeveritySevere Severity = "severe"
)

// severityScale lists severities in ascending order; the index is the rank.
var severityScale = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeveritySevere}

// Rank returns the position of s on the scale (0 = low). Unknown values
// rank as medium.
func (s Severity) Rank() int {
	for i, v := range severityScale {
		if v == s {
			return i
		}
	}
	return 1
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	for _, v := range severityScale {
		if v == s {
			return true
		}
	}
	return false
}

// Downgrade returns the severity one step below s. Low stays low.
func (s Severity) Downgrade() Severity {
	r := s.Rank()
	if r == 0 {
		return SeverityLow
	}
	return severityScale[r-1]
}

// SeverityFromRank clamps r onto the scale.
func SeverityFromRank(r int) Severity {
	if r < 0 {
		r = 0
	}
	if r >= len(severityScale) {
		r = len(severityScale) - 1
	}
	return severityScale[r]
}

// ParseSeverity maps analyzer wording onto the scale. Models drift between
// "critical", "moderate" and friends; anything unrecognised becomes medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minor", "minimal", "info", "informational":
		return SeverityLow
	case "medium", "moderate", "med":
		return SeverityMedium
	case "high", "major", "serious":
		return SeverityHigh
	case "severe", "critical", "extreme", "very high":
		return SeveritySevere
	default:
		return SeverityMedium
	}
}
