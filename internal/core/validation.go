package core

// validation.go checks a mapping group against a feed before it is saved.
//
// DetectStrategy only answers "does this group match"; the mapping UI needs
// to know why not. CheckMapping reports the headers no rule covers and the
// destinations used more than once.

import (
	"sort"
	"strings"
)

// MappingReport explains whether a mapping group fully covers a feed.
type MappingReport struct {
	Complete              bool     `json:"complete"`
	Uncovered             []string `json:"uncovered,omitempty"`             // feed headers without a rule
	DuplicateDestinations []string `json:"duplicateDestinations,omitempty"` // destinations targeted twice
	Attributes            []string `json:"attributes,omitempty"`            // destinations stored as dynamic attributes
}

// CheckMapping validates group against headers with the same rules
// DetectStrategy applies.
func CheckMapping(headers []string, group []MapModel) MappingReport {
	var report MappingReport

	sources := make(map[string]bool, len(group))
	seen := make(map[string]int, len(group))
	for _, m := range group {
		sources[strings.ToLower(CleanCell(m.SourceField))] = true

		dest := strings.TrimSpace(m.DestinationField)
		key := fieldKey(dest)
		seen[key]++
		if seen[key] == 2 {
			report.DuplicateDestinations = append(report.DuplicateDestinations, dest)
		}
		if seen[key] == 1 && key != specificationsField && !IsCanonicalField(dest) {
			report.Attributes = append(report.Attributes, dest)
		}
	}

	for _, h := range headers {
		if !sources[strings.ToLower(CleanCell(h))] {
			report.Uncovered = append(report.Uncovered, h)
		}
	}

	sort.Strings(report.DuplicateDestinations)
	report.Complete = len(group) > 0 && len(report.Uncovered) == 0 && len(report.DuplicateDestinations) == 0
	return report
}
