// Package crossval reconciles finding sets from independent analyzers into
// one confidence-adjusted set. Findings describing the same issue are
// grouped, each group is adjudicated, and a representative record is chosen
// to display it.
package crossval

import "scriptreview/internal/finding"

// Config holds the tunable constants of the merge. None of them is a
// correctness invariant; they were picked empirically.
type Config struct {
	// OverlapThreshold is the token overlap ratio two snippets must exceed.
	OverlapThreshold float64 `yaml:"overlap_threshold" json:"overlap_threshold"`
	// DowngradeSingleSource lowers an unconfirmed finding by one severity step.
	DowngradeSingleSource bool `yaml:"downgrade_single_source" json:"downgrade_single_source"`
	// ConfidenceBase and ConfidencePerVote scale the mean member confidence
	// as base + perVote*agreement.
	ConfidenceBase    float64 `yaml:"confidence_base" json:"confidence_base"`
	ConfidencePerVote float64 `yaml:"confidence_per_vote" json:"confidence_per_vote"`
	// Adjacent lists category pairs that may describe the same issue.
	Adjacent [][2]finding.Category `yaml:"adjacent_categories" json:"adjacent_categories"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		OverlapThreshold:      0.4,
		DowngradeSingleSource: true,
		ConfidenceBase:        0.7,
		ConfidencePerVote:     0.15,
		Adjacent: [][2]finding.Category{
			{finding.CategoryDefamation, finding.CategoryFalseLight},
			{finding.CategoryPrivacy, finding.CategoryAppropriation},
		},
	}
}
