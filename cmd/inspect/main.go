package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/specgate/specgate/internal/evidence"
	"github.com/specgate/specgate/internal/logging"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	repoRoot := flag.String("repo", ".", "repository root holding .ai_evidence.json")
	dbPath := flag.String("db", "", "path to the decision log database (log mode)")
	last := flag.Int("last", 20, "show N most recent decision log entries")
	runID := flag.String("run", "", "show full detail for one run id")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	var err error
	switch {
	case *dbPath != "":
		err = runLogMode(*dbPath, *last, *runID, *jsonOut)
	default:
		err = runEvidenceMode(*repoRoot, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region evidence-mode

func runEvidenceMode(repoRoot string, jsonOut bool) error {
	result := evidence.Read(repoRoot)
	switch result.Kind {
	case evidence.ReadMissing:
		return fmt.Errorf("%s not found under %s", evidence.FileName, repoRoot)
	case evidence.ReadInvalid:
		if result.Version != "" {
			return fmt.Errorf("%s has unsupported version %s", evidence.FileName, result.Version)
		}
		return fmt.Errorf("%s could not be parsed", evidence.FileName)
	}
	doc := result.Document

	if jsonOut {
		return printJSON(doc)
	}

	fmt.Printf("Version:    %s\n", doc.Version)
	fmt.Printf("Timestamp:  %s\n", doc.Timestamp)
	fmt.Printf("Stage:      %s\n", doc.Snapshot.Stage)
	fmt.Printf("Outcome:    %s\n", doc.Snapshot.Outcome)
	fmt.Printf("Gate:       %s\n", doc.AiGate.Status)

	counts := doc.SeverityMetrics.BySeverity
	fmt.Printf("Findings:   %d (critical=%d error=%d warn=%d info=%d)\n",
		doc.SeverityMetrics.TotalViolations, counts.Critical, counts.Error, counts.Warn, counts.Info)
	for _, f := range doc.Snapshot.Findings {
		fmt.Printf("  %-8s %-32s %s %s\n", f.Severity, f.RuleID, f.File, renderLines(f.Lines))
	}

	if doc.Consolidation != nil {
		fmt.Printf("\nSuppressed (%d):\n", len(doc.Consolidation.Suppressed))
		for _, s := range doc.Consolidation.Suppressed {
			fmt.Printf("  %-32s -> %s (%s)\n", s.RuleID, s.ReplacedByRuleID, s.FilePath)
		}
	}

	fmt.Printf("\nLedger (%d entries):\n", len(doc.Ledger))
	for _, entry := range doc.Ledger {
		fmt.Printf("  %-32s %s %s first=%s last=%s\n",
			entry.RuleID, entry.File, renderLines(entry.Lines), entry.FirstSeen, entry.LastSeen)
	}

	if doc.HumanIntent != nil {
		fmt.Printf("\nHuman intent:\n")
		if doc.HumanIntent.PrimaryGoal != nil {
			fmt.Printf("  goal:        %s\n", *doc.HumanIntent.PrimaryGoal)
		}
		fmt.Printf("  confidence:  %s\n", doc.HumanIntent.ConfidenceLevel)
		fmt.Printf("  preserved:   %s (x%d)\n", doc.HumanIntent.PreservedAt, doc.HumanIntent.PreservationCount)
	}
	return nil
}

func renderLines(lines []int) string {
	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", lines)
}

// #endregion evidence-mode

// #region log-mode

func runLogMode(dbPath string, last int, runID string, jsonOut bool) error {
	db, err := logging.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := logging.Recent(db, last)
	if err != nil {
		return err
	}

	if runID != "" {
		for _, e := range entries {
			if e.RunID == runID {
				return printRunDetail(e, jsonOut)
			}
		}
		return fmt.Errorf("run %s not found in last %d entries", runID, last)
	}

	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decision log entries found")
		return nil
	}
	if jsonOut {
		return printJSON(entries)
	}

	fmt.Printf("%-36s  %-8s  %-10s  %-28s  %s\n", "Run", "Pipeline", "Stage", "Outcome", "Time")
	for _, e := range entries {
		fmt.Printf("%-36s  %-8s  %-10s  %-28s  %s\n",
			e.RunID, e.Pipeline, e.Stage, e.Outcome, e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func printRunDetail(e logging.DecisionEntry, jsonOut bool) error {
	if jsonOut {
		return printJSON(e)
	}
	fmt.Printf("Run:      %s\n", e.RunID)
	fmt.Printf("Pipeline: %s\n", e.Pipeline)
	fmt.Printf("Stage:    %s\n", e.Stage)
	fmt.Printf("Outcome:  %s\n", e.Outcome)
	if e.Reason != "" {
		fmt.Printf("Reason:   %s\n", e.Reason)
	}
	fmt.Printf("Created:  %s\n", e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if e.DetailJSON != "" {
		var pretty json.RawMessage = []byte(e.DetailJSON)
		fmt.Printf("Detail:\n")
		if data, err := json.MarshalIndent(pretty, "  ", "  "); err == nil {
			fmt.Printf("  %s\n", data)
		} else {
			fmt.Printf("  %s\n", e.DetailJSON)
		}
	}
	return nil
}

// #endregion log-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
