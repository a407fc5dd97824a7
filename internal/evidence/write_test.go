package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specgate/specgate/internal/gate"
	"github.com/specgate/specgate/internal/rules"
)

// #region helpers

func writeDoc(t *testing.T, repoRoot string, doc Document) WriteReceipt {
	t.Helper()
	receipt, err := Write(repoRoot, doc)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return receipt
}

// #endregion helpers

// #region write-tests

func TestWrite_ProducesReadableDocument(t *testing.T) {
	repoRoot := t.TempDir()
	doc := Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts", 3)},
	})

	receipt := writeDoc(t, repoRoot, doc)
	if receipt.RunID == "" {
		t.Error("expected a run id on the receipt")
	}
	if receipt.Path != filepath.Join(repoRoot, FileName) {
		t.Errorf("unexpected receipt path %s", receipt.Path)
	}

	result := Read(repoRoot)
	if result.Kind != ReadOK {
		t.Fatalf("expected ReadOK, got %s", result.Kind)
	}
	if result.Document.Snapshot.Outcome != doc.Snapshot.Outcome {
		t.Errorf("round trip changed outcome: %s", result.Document.Snapshot.Outcome)
	}
}

func TestWrite_TrailingNewline(t *testing.T) {
	repoRoot := t.TempDir()
	writeDoc(t, repoRoot, Build(buildTime, BuildParams{Stage: StagePreWrite}))

	data, err := os.ReadFile(filepath.Join(repoRoot, FileName))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("expected document to end with a newline")
	}
	if strings.HasSuffix(string(data), "\n\n") {
		t.Error("expected exactly one trailing newline")
	}
}

func TestWrite_SortsFindingsByKey(t *testing.T) {
	repoRoot := t.TempDir()
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("z-rule", rules.SeverityWarn, "a.ts"),
			finding("a-rule", rules.SeverityWarn, "z.ts"),
			finding("a-rule", rules.SeverityWarn, "a.ts"),
		},
	})
	writeDoc(t, repoRoot, doc)

	result := Read(repoRoot)
	got := make([]string, 0, 3)
	for _, f := range result.Document.Snapshot.Findings {
		got = append(got, f.RuleID+"::"+f.File)
	}
	want := []string{"a-rule::a.ts", "a-rule::z.ts", "z-rule::a.ts"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestWrite_PathsMadeRepoRelative(t *testing.T) {
	repoRoot := t.TempDir()
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("abs", rules.SeverityWarn, filepath.Join(repoRoot, "src", "index.ts")),
			finding("outside", rules.SeverityWarn, "/elsewhere/other.ts"),
		},
	})
	writeDoc(t, repoRoot, doc)

	result := Read(repoRoot)
	for _, f := range result.Document.Snapshot.Findings {
		switch f.RuleID {
		case "abs":
			if f.File != "src/index.ts" {
				t.Errorf("expected repo-relative path, got %q", f.File)
			}
		case "outside":
			if f.File != "/elsewhere/other.ts" {
				t.Errorf("expected path outside repo untouched, got %q", f.File)
			}
		}
	}
}

func TestWrite_ViolationsTrackSortedFindings(t *testing.T) {
	repoRoot := t.TempDir()
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("b", rules.SeverityWarn, filepath.Join(repoRoot, "b.ts")),
			finding("a", rules.SeverityWarn, filepath.Join(repoRoot, "a.ts")),
		},
	})
	writeDoc(t, repoRoot, doc)

	result := Read(repoRoot)
	violations := result.Document.AiGate.Violations
	if len(violations) != 2 || violations[0].RuleID != "a" || violations[0].File != "a.ts" {
		t.Errorf("expected violations rebuilt from sorted relative findings, got %+v", violations)
	}
}

func TestWrite_Overwrites(t *testing.T) {
	repoRoot := t.TempDir()
	writeDoc(t, repoRoot, Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts")},
	}))
	writeDoc(t, repoRoot, Build(buildTime.Add(time.Minute), BuildParams{Stage: StagePrePush}))

	result := Read(repoRoot)
	if result.Document.Snapshot.Stage != StagePrePush {
		t.Errorf("expected second write to win, got %s", result.Document.Snapshot.Stage)
	}
	if len(result.Document.Snapshot.Findings) != 0 {
		t.Errorf("expected empty findings after overwrite, got %d", len(result.Document.Snapshot.Findings))
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	repoRoot := t.TempDir()
	writeDoc(t, repoRoot, Build(buildTime, BuildParams{Stage: StagePreWrite}))

	entries, err := os.ReadDir(repoRoot)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

// #endregion write-tests

// #region read-tests

func TestRead_Missing(t *testing.T) {
	if result := Read(t.TempDir()); result.Kind != ReadMissing {
		t.Errorf("expected ReadMissing, got %s", result.Kind)
	}
}

func TestRead_Invalid(t *testing.T) {
	repoRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoRoot, FileName), []byte("not json"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if result := Read(repoRoot); result.Kind != ReadInvalid {
		t.Errorf("expected ReadInvalid, got %s", result.Kind)
	}
}

func TestRead_ForeignVersion(t *testing.T) {
	repoRoot := t.TempDir()
	raw, _ := json.Marshal(map[string]any{"version": "9.9"})
	if err := os.WriteFile(filepath.Join(repoRoot, FileName), raw, 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	result := Read(repoRoot)
	if result.Kind != ReadInvalid {
		t.Errorf("expected ReadInvalid, got %s", result.Kind)
	}
	if result.Version != "9.9" {
		t.Errorf("expected declared version surfaced, got %q", result.Version)
	}
}

// #endregion read-tests
