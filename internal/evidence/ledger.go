package evidence

import (
	"sort"
	"strconv"
	"strings"
)

// #region keys

func linesKey(lines []int) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, strconv.Itoa(line))
	}
	return strings.Join(parts, ",")
}

func findingKey(ruleID, file string, lines []int) string {
	return ruleID + "::" + file + "::" + linesKey(lines)
}

// #endregion keys

// #region ledger

// updateLedger carries firstSeen timestamps forward for findings that were
// already present in the previous document and stamps new ones with now.
// Entries for findings that disappeared are dropped; the ledger tracks the
// active set only. Output is sorted by composite key for stable diffs.
func updateLedger(findings []SnapshotFinding, previous *Document, now string) []LedgerEntry {
	prior := map[string]LedgerEntry{}
	if previous != nil {
		for _, entry := range previous.Ledger {
			prior[findingKey(entry.RuleID, entry.File, entry.Lines)] = entry
		}
	}

	ledger := make([]LedgerEntry, 0, len(findings))
	for _, f := range findings {
		key := findingKey(f.RuleID, f.File, f.Lines)
		firstSeen := now
		if earlier, ok := prior[key]; ok && earlier.FirstSeen != "" {
			firstSeen = earlier.FirstSeen
		}
		ledger = append(ledger, LedgerEntry{
			RuleID:    f.RuleID,
			File:      f.File,
			Lines:     f.Lines,
			FirstSeen: firstSeen,
			LastSeen:  now,
		})
	}

	sort.Slice(ledger, func(i, j int) bool {
		return findingKey(ledger[i].RuleID, ledger[i].File, ledger[i].Lines) <
			findingKey(ledger[j].RuleID, ledger[j].File, ledger[j].Lines)
	})
	return ledger
}

// #endregion ledger
