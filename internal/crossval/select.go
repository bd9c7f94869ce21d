package crossval

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"scriptreview/internal/finding"
)

// Representative holds the display fields chosen for a merged finding.
type Representative struct {
	Base        finding.Normalized
	Remediation string
	Rationale   string
}

// SelectRepresentative picks display fields for g. rank maps an analyzer to
// its canonical position and breaks ties toward the earlier analyzer.
func SelectRepresentative(g Group, rank map[string]int) Representative {
	members := make([]finding.Normalized, len(g.Members))
	copy(members, g.Members)
	sort.SliceStable(members, func(i, j int) bool {
		return rank[members[i].Analyzer] < rank[members[j].Analyzer]
	})

	var rep Representative
	if len(members) == 0 {
		return rep
	}

	rep.Base = members[0]
	rep.Remediation = members[0].Remediation
	for _, m := range members[1:] {
		if utf8.RuneCountInString(m.Rationale) > utf8.RuneCountInString(rep.Base.Rationale) {
			rep.Base = m
		}
		if utf8.RuneCountInString(m.Remediation) > utf8.RuneCountInString(rep.Remediation) {
			rep.Remediation = m.Remediation
		}
	}

	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = fmt.Sprintf("[%s] %s", m.Analyzer, m.Rationale)
	}
	rep.Rationale = strings.Join(parts, "\n\n")
	return rep
}
