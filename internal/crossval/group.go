package crossval

import "scriptreview/internal/finding"

// Group is a set of findings judged to describe one issue, at most one per
// analyzer. Members keep the order in which they joined; the seed is first.
type Group struct {
	Members []finding.Normalized
}

// Size is the agreement count of the group.
func (g Group) Size() int { return len(g.Members) }

// Has reports whether analyzer already contributed a member.
func (g Group) Has(analyzer string) bool {
	for _, m := range g.Members {
		if m.Analyzer == analyzer {
			return true
		}
	}
	return false
}

// GroupFindings partitions findings into groups. The input order is the
// canonical order (analyzer-then-index) and fully determines the output.
//
// Each unconsumed finding seeds a group. Remaining findings from analyzers
// not yet in the group join when they match any current member; the scan
// repeats until a full pass adds nobody, so A~B and B~C put A, B and C
// together even when A and C do not match directly. A second finding from
// an analyzer already in the group is left for a later group of its own.
func GroupFindings(m *Matcher, findings []finding.Normalized) []Group {
	consumed := make([]bool, len(findings))
	var groups []Group

	for seed := range findings {
		if consumed[seed] {
			continue
		}
		consumed[seed] = true
		g := Group{Members: []finding.Normalized{findings[seed]}}

		for grew := true; grew; {
			grew = false
			for j := seed + 1; j < len(findings); j++ {
				if consumed[j] || g.Has(findings[j].Analyzer) {
					continue
				}
				if matchesAny(m, g, findings[j]) {
					g.Members = append(g.Members, findings[j])
					consumed[j] = true
					grew = true
				}
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func matchesAny(m *Matcher, g Group, f finding.Normalized) bool {
	for _, member := range g.Members {
		if m.Matches(member, f) {
			return true
		}
	}
	return false
}
