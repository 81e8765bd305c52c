package alert

import "sort"

// Assessment is the reduced outcome of a rule evaluation run.
type Assessment struct {
	Overall  Severity  `json:"overall"  yaml:"overall"`
	Findings []Finding `json:"findings" yaml:"findings"`
}

// Evaluate runs every primary rule, then the fallbacks only if no primary
// rule produced a finding. Findings are ordered Critical first, then
// Warning, keeping rule order within a severity. Overall is the maximum
// severity of the findings, Normal when there are none.
func Evaluate(f *Facts, rules, fallbacks []Rule) Assessment {
	var findings []Finding
	for _, r := range rules {
		if finding, ok := r.Evaluate(f); ok {
			findings = append(findings, finding)
		}
	}
	if len(findings) == 0 {
		for _, r := range fallbacks {
			if finding, ok := r.Evaluate(f); ok {
				findings = append(findings, finding)
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity > findings[j].Severity
	})

	a := Assessment{Overall: Normal, Findings: findings}
	for _, finding := range findings {
		a.Overall = Max(a.Overall, finding.Severity)
	}
	return a
}

// Count returns the number of findings with severity s.
func (a Assessment) Count(s Severity) int {
	n := 0
	for _, f := range a.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}
