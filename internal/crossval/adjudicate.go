package crossval

import (
	"sort"

	"scriptreview/internal/finding"
)

// Verdict is the adjudicated outcome for one group.
type Verdict struct {
	Severity     finding.Severity
	Confidence   float64
	ExpertReview bool
}

// Adjudicate derives one severity, confidence and review flag from a group.
//
// With two or more members the severity is the lower median of the sorted
// member ranks. A lone member is downgraded one step when the config asks
// for it. Confidence is the mean member confidence scaled by
// base + perVote*n and capped at 1. Any member asking for expert review
// keeps the flag set.
func Adjudicate(cfg Config, g Group) Verdict {
	n := len(g.Members)
	if n == 0 {
		return Verdict{Severity: finding.SeverityLow}
	}

	var v Verdict
	ranks := make([]int, n)
	sum := 0.0
	for i, m := range g.Members {
		ranks[i] = m.Severity.Rank()
		sum += m.Confidence
		if m.ExpertReview {
			v.ExpertReview = true
		}
	}

	if n == 1 {
		v.Severity = g.Members[0].Severity
		if !v.Severity.Valid() {
			v.Severity = finding.SeverityFromRank(ranks[0])
		}
		if cfg.DowngradeSingleSource {
			v.Severity = v.Severity.Downgrade()
		}
	} else {
		sort.Ints(ranks)
		v.Severity = finding.SeverityFromRank(ranks[(n-1)/2])
	}

	conf := sum / float64(n) * (cfg.ConfidenceBase + cfg.ConfidencePerVote*float64(n))
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	v.Confidence = conf
	return v
}
