package crossval

import (
	"strings"

	"scriptreview/internal/finding"
)

// Matcher decides whether two findings describe the same underlying issue.
type Matcher struct {
	threshold float64
	adjacent  map[finding.Category]map[finding.Category]bool
}

// NewMatcher builds a matcher from cfg. The adjacency relation is made
// symmetric here; nothing else is inferred.
func NewMatcher(cfg Config) *Matcher {
	m := &Matcher{
		threshold: cfg.OverlapThreshold,
		adjacent:  make(map[finding.Category]map[finding.Category]bool),
	}
	for _, pair := range cfg.Adjacent {
		m.link(pair[0], pair[1])
		m.link(pair[1], pair[0])
	}
	return m
}

func (m *Matcher) link(a, b finding.Category) {
	if m.adjacent[a] == nil {
		m.adjacent[a] = make(map[finding.Category]bool)
	}
	m.adjacent[a][b] = true
}

// Matches requires equal subjects (case-insensitive), compatible categories
// and a snippet overlap strictly above the threshold.
func (m *Matcher) Matches(a, b finding.Normalized) bool {
	if !strings.EqualFold(a.Subject, b.Subject) {
		return false
	}
	if !m.Compatible(a.Category, b.Category) {
		return false
	}
	return OverlapRatio(a.Text, b.Text) > m.threshold
}

// Compatible reports whether categories a and b are identical or configured
// as adjacent.
func (m *Matcher) Compatible(a, b finding.Category) bool {
	return a == b || m.adjacent[a][b]
}

// OverlapRatio is |A∩B| / min(|A|,|B|) over lower-cased whitespace token
// sets. Either set empty gives 0.
func OverlapRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	small, large := setA, setB
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for tok := range small {
		if large[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func tokenSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
