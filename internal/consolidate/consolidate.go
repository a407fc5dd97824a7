package consolidate

import (
	"math"

	"github.com/specgate/specgate/internal/gate"
)

// #region types

// SuppressedEntry is the audit record of a consolidation loss: which finding
// was dropped and which surviving rule replaced it.
type SuppressedEntry struct {
	RuleID           string `json:"ruleId"`
	Message          string `json:"message"`
	FilePath         string `json:"file"`
	Lines            []int  `json:"lines,omitempty"`
	ReplacedByRuleID string `json:"replacedByRuleId"`
}

// Result splits findings into survivors and the suppressed remainder.
// Survivors keep their original relative input order.
type Result struct {
	Survivors  []gate.Finding
	Suppressed []SuppressedEntry
}

// #endregion types

// #region consolidate

// Consolidate groups findings by (filePath, semantic family) and keeps
// exactly one winner per group. Tie-break order: highest severity rank, then
// baseline over heuristic rule id, then for pure duplicates of one rule the
// numerically lowest reported line, then first occurrence.
func Consolidate(findings []gate.Finding) Result {
	type groupKey struct {
		filePath string
		family   string
	}

	winners := make(map[groupKey]int, len(findings))
	for i, f := range findings {
		key := groupKey{filePath: f.FilePath, family: FamilyOf(f.RuleID)}
		current, seen := winners[key]
		if !seen || beats(f, findings[current]) {
			winners[key] = i
		}
	}

	isWinner := make(map[int]bool, len(winners))
	for _, idx := range winners {
		isWinner[idx] = true
	}

	result := Result{}
	for i, f := range findings {
		if isWinner[i] {
			result.Survivors = append(result.Survivors, f)
			continue
		}
		key := groupKey{filePath: f.FilePath, family: FamilyOf(f.RuleID)}
		winner := findings[winners[key]]
		result.Suppressed = append(result.Suppressed, SuppressedEntry{
			RuleID:           f.RuleID,
			Message:          f.Message,
			FilePath:         f.FilePath,
			Lines:            f.Lines,
			ReplacedByRuleID: winner.RuleID,
		})
	}
	return result
}

// beats reports whether challenger strictly outranks the incumbent winner.
// On a full tie the incumbent keeps its seat, preserving first occurrence.
func beats(challenger, incumbent gate.Finding) bool {
	cr, ir := challenger.Severity.Rank(), incumbent.Severity.Rank()
	if cr != ir {
		return cr > ir
	}

	ch, ih := IsHeuristicRuleID(challenger.RuleID), IsHeuristicRuleID(incumbent.RuleID)
	if ch != ih {
		return ih // baseline challenger unseats a heuristic incumbent
	}

	if challenger.RuleID == incumbent.RuleID {
		return minLine(challenger) < minLine(incumbent)
	}
	return false
}

// minLine returns the lowest reported line, or MaxInt when the finding
// carries no position, so positioned duplicates win over unpositioned ones.
func minLine(f gate.Finding) int {
	min := math.MaxInt
	for _, line := range f.Lines {
		if line < min {
			min = line
		}
	}
	return min
}

// #endregion consolidate
