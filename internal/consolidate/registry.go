package consolidate

import (
	"fmt"
	"strings"
)

// #region heuristic-prefix

// HeuristicRuleIDPrefix marks rule ids sourced from AST heuristic detectors.
// Consolidation prefers baseline rules over heuristic ones on severity ties.
const HeuristicRuleIDPrefix = "heuristics."

// IsHeuristicRuleID reports whether a rule id carries the reserved
// heuristic prefix.
func IsHeuristicRuleID(ruleID string) bool {
	return strings.HasPrefix(ruleID, HeuristicRuleIDPrefix)
}

// #endregion heuristic-prefix

// #region family-registry

// families is the append-only semantic-family table. Two findings compete
// during consolidation only when they share (filePath, family). Rule ids
// absent from the table form their own singleton family, so unrelated
// findings never collide.
var families = map[string]string{
	"backend.no-console-log":                       "console-log",
	"heuristics.ts.console-log.ast":                "console-log",
	"backend.no-hardcoded-secret":                  "hardcoded-secret",
	"heuristics.ts.hardcoded-secret-token.ast":     "hardcoded-secret",
	"backend.no-weak-crypto":                       "weak-crypto",
	"heuristics.ts.weak-crypto-hash.ast":           "weak-crypto",
	"backend.no-any-type":                          "any-type",
	"heuristics.ts.explicit-any.ast":               "any-type",
	"backend.no-sync-fs":                           "sync-fs",
	"heuristics.ts.fs-sync-call.ast":               "sync-fs",
	"backend.no-insecure-token":                    "insecure-token",
	"heuristics.ts.insecure-token-math-random.ast": "insecure-token",
	"heuristics.ts.insecure-token-date-now.ast":    "insecure-token",
}

// FamilyOf resolves a rule id to its semantic family key. Unregistered ids
// map to themselves.
func FamilyOf(ruleID string) string {
	if family, ok := families[ruleID]; ok {
		return family
	}
	return ruleID
}

// Register appends a rule id to the family table. Remapping a registered id
// is refused; the table is append-only so the dedup policy stays auditable.
func Register(ruleID, family string) error {
	if existing, ok := families[ruleID]; ok {
		if existing == family {
			return nil
		}
		return fmt.Errorf("rule %s already registered to family %s", ruleID, existing)
	}
	families[ruleID] = family
	return nil
}

// #endregion family-registry
