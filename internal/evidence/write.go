package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FileName is the evidence document's location relative to the repo root.
const FileName = ".ai_evidence.json"

// #region receipt

// WriteReceipt identifies one persisted evidence write.
type WriteReceipt struct {
	RunID string
	Path  string
}

// #endregion receipt

// #region write

// Write persists a stable rendering of the document to .ai_evidence.json
// under repoRoot: finding and ledger paths made repo-relative with forward
// slashes, both lists sorted by composite key, then written atomically via
// temp file and rename.
func Write(repoRoot string, doc Document) (WriteReceipt, error) {
	receipt := WriteReceipt{
		RunID: uuid.New().String(),
		Path:  filepath.Join(repoRoot, FileName),
	}

	stable := toStable(doc, repoRoot)
	data, err := json.MarshalIndent(stable, "", "  ")
	if err != nil {
		return receipt, fmt.Errorf("marshal evidence: %w", err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(receipt.Path, data); err != nil {
		return receipt, fmt.Errorf("write evidence: %w", err)
	}
	return receipt, nil
}

// writeFileAtomic writes to a temp file then renames into place so a
// concurrent reader never observes a torn document.
func writeFileAtomic(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// #endregion write

// #region stable-transform

func toStable(doc Document, repoRoot string) Document {
	findings := make([]SnapshotFinding, len(doc.Snapshot.Findings))
	for i, f := range doc.Snapshot.Findings {
		f.File = toRelativeRepoPath(repoRoot, f.File)
		findings[i] = f
	}
	sort.Slice(findings, func(i, j int) bool {
		return findingKey(findings[i].RuleID, findings[i].File, findings[i].Lines) <
			findingKey(findings[j].RuleID, findings[j].File, findings[j].Lines)
	})

	ledger := make([]LedgerEntry, len(doc.Ledger))
	for i, entry := range doc.Ledger {
		entry.File = toRelativeRepoPath(repoRoot, entry.File)
		ledger[i] = entry
	}
	sort.Slice(ledger, func(i, j int) bool {
		return findingKey(ledger[i].RuleID, ledger[i].File, ledger[i].Lines) <
			findingKey(ledger[j].RuleID, ledger[j].File, ledger[j].Lines)
	})

	doc.Snapshot.Findings = findings
	doc.Ledger = ledger
	doc.AiGate.Violations = toViolations(findings)
	return doc
}

// toRelativeRepoPath rewrites a path repo-relative with forward slashes,
// leaving paths outside the repo untouched.
func toRelativeRepoPath(repoRoot, inputPath string) string {
	normalized := strings.ReplaceAll(inputPath, "\\", "/")
	abs := normalized
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(repoRoot, abs)
	}
	rel, err := filepath.Rel(repoRoot, abs)
	if err != nil || rel == "" || strings.HasPrefix(rel, "..") {
		return normalized
	}
	return filepath.ToSlash(rel)
}

// #endregion stable-transform
