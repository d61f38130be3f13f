package core

import "strings"

// NoMappingReason is reported when neither a saved mapping nor a built-in
// supplier signature matches the feed headers.
const NoMappingReason = "no saved mapping found"

// StrategyResult is the outcome of strategy detection.
// Detection failure is an expected outcome, not an error: callers route the
// user to manual column mapping.
type StrategyResult struct {
	Strategy Strategy
	Market   string // market of the matched mapping group or built-in supplier
	Reason   string // non-empty when no strategy matched
}

// OK reports whether a strategy was selected.
func (r StrategyResult) OK() bool {
	return r.Strategy != nil
}

// DetectStrategy selects the parsing strategy for a feed.
//
// Saved mapping groups are tried in the order given and the first group that
// fully covers the headers wins; there is no ranking between matches. When no
// group matches, the built-in supplier signatures are checked.
func DetectStrategy(headers []string, groups [][]MapModel) StrategyResult {
	for _, group := range groups {
		if isFullyMapped(headers, group) {
			return StrategyResult{
				Strategy: NewMappedStrategy(headers, group),
				Market:   group[0].Market,
			}
		}
	}

	switch {
	case isContaktFeed(headers):
		return StrategyResult{Strategy: NewContaktStrategy(), Market: SupplierContakt}
	case isInterlinkFeed(headers):
		return StrategyResult{Strategy: NewInterlinkStrategy(), Market: SupplierInterlink}
	}

	return StrategyResult{Reason: NoMappingReason}
}

// isFullyMapped reports whether every header has a rule in group and no two
// rules share a destination field.
func isFullyMapped(headers []string, group []MapModel) bool {
	if len(group) == 0 {
		return false
	}

	sources := make(map[string]bool, len(group))
	destinations := make(map[string]bool, len(group))
	for _, m := range group {
		sources[strings.ToLower(CleanCell(m.SourceField))] = true

		dest := fieldKey(m.DestinationField)
		if destinations[dest] {
			return false
		}
		destinations[dest] = true
	}

	for _, h := range headers {
		if !sources[strings.ToLower(CleanCell(h))] {
			return false
		}
	}
	return true
}
