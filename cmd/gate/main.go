package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/specgate/specgate/internal/evidence"
	"github.com/specgate/specgate/internal/facts"
	"github.com/specgate/specgate/internal/gate"
	"github.com/specgate/specgate/internal/intent"
	"github.com/specgate/specgate/internal/logging"
	"github.com/specgate/specgate/internal/rules"
)

// #region main

func main() {
	repoRoot := flag.String("repo", ".", "repository root")
	rulesPath := flag.String("rules", "", "path to rule-set YAML")
	factsArg := flag.String("facts", "", "comma-separated fact JSON files")
	stageArg := flag.String("stage", string(evidence.StagePreCommit), "pipeline stage (PRE_WRITE|PRE_COMMIT|PRE_PUSH|CI)")
	intentPath := flag.String("intent", "", "path to explicit human-intent JSON")
	verify := flag.Bool("verify", false, "only check the existing evidence document's freshness for the stage")
	watch := flag.Bool("watch", false, "rerun the gate when rule or fact files change")
	jsonOut := flag.Bool("json", false, "output the evidence document as JSON")
	flag.Parse()

	stage := evidence.Stage(*stageArg)
	if _, ok := evidence.DefaultMaxAgeSeconds[stage]; !ok {
		fmt.Fprintf(os.Stderr, "unknown stage %q\n", *stageArg)
		os.Exit(2)
	}

	if *verify {
		os.Exit(runVerify(*repoRoot, stage))
	}

	if *rulesPath == "" || *factsArg == "" {
		fmt.Fprintln(os.Stderr, "usage: gate --rules rules.yaml --facts facts.json [--stage PRE_COMMIT] [--repo .] [--intent intent.json] [--watch] [--json]")
		fmt.Fprintln(os.Stderr, "       gate --verify --stage PRE_PUSH [--repo .]")
		os.Exit(2)
	}

	dbPath := envOr("SPECGATE_DB", filepath.Join(*repoRoot, ".specgate.db"))
	db, err := logging.Open(dbPath)
	if err != nil {
		log.Fatalf("open decision log: %v", err)
	}
	defer db.Close()

	factPaths := splitPaths(*factsArg)
	run := func() int {
		return runGate(db, *repoRoot, *rulesPath, factPaths, stage, *intentPath, *jsonOut)
	}

	if *watch {
		os.Exit(runWatch(append([]string{*rulesPath}, factPaths...), run))
	}
	os.Exit(run())
}

// #endregion main

// #region run

func runGate(db *sql.DB, repoRoot, rulesPath string, factPaths []string, stage evidence.Stage, intentPath string, jsonOut bool) int {
	set, err := rules.Load(rulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load rules: %v\n", err)
		return 2
	}

	var allFacts []facts.Fact
	for _, path := range factPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read facts %s: %v\n", path, err)
			return 2
		}
		fs, err := facts.Unmarshal(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse facts %s: %v\n", path, err)
			return 2
		}
		allFacts = append(allFacts, fs...)
	}

	explicitIntent, intentSet, err := loadIntent(intentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load intent: %v\n", err)
		return 2
	}

	findings, err := gate.Evaluate(set, allFacts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		return 2
	}

	now := time.Now().UTC()
	var previous *evidence.Document
	if prior := evidence.Read(repoRoot); prior.Kind == evidence.ReadOK {
		previous = prior.Document
	}

	doc := evidence.Build(now, evidence.BuildParams{
		Stage:          stage,
		Findings:       findings,
		Previous:       previous,
		HumanIntent:    explicitIntent,
		HumanIntentSet: intentSet,
	})

	receipt, err := evidence.Write(repoRoot, doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write evidence: %v\n", err)
		return 2
	}

	if err := logRun(db, receipt.RunID, doc, len(allFacts), len(findings)); err != nil {
		log.Printf("logging error: %v", err)
	}

	if jsonOut {
		if err := printJSON(doc); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	} else {
		printSummary(receipt, stage, doc)
	}

	if doc.Snapshot.Outcome == evidence.OutcomeBlock {
		return 1
	}
	return 0
}

func loadIntent(path string) (*intent.State, bool, error) {
	if path == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	var state intent.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, err
	}
	return &state, true, nil
}

// logRun records the run in the decision log with the full run record as
// detail payload.
func logRun(db *sql.DB, runID string, doc evidence.Document, factCount, rawFindings int) error {
	suppressed := 0
	if doc.Consolidation != nil {
		suppressed = len(doc.Consolidation.Suppressed)
	}
	counts := doc.SeverityMetrics.BySeverity
	record := logging.RunRecord{
		RunID:        runID,
		Stage:        string(doc.Snapshot.Stage),
		FactCount:    factCount,
		FindingCount: rawFindings,
		Suppressed:   suppressed,
		Critical:     counts.Critical,
		Error:        counts.Error,
		Warn:         counts.Warn,
		Info:         counts.Info,
		Outcome:      string(doc.Snapshot.Outcome),
		GateState:    string(doc.AiGate.Status),
	}
	detail, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	return logging.LogDecision(db, logging.DecisionEntry{
		RunID:      runID,
		Pipeline:   "gate",
		Stage:      string(doc.Snapshot.Stage),
		Outcome:    string(doc.Snapshot.Outcome),
		DetailJSON: string(detail),
	})
}

// #endregion run

// #region verify

func runVerify(repoRoot string, stage evidence.Stage) int {
	now := time.Now().UTC()
	report := evidence.CheckFreshness(now, stage, evidence.Read(repoRoot), nil)

	if len(report.Violations) == 0 {
		age := 0
		if report.AgeSeconds != nil {
			age = *report.AgeSeconds
		}
		fmt.Printf("%s evidence is fresh for %s (%ds <= %ds)\n",
			color.GreenString("OK"), stage, age, report.MaxAgeSeconds)
		return 0
	}
	for _, v := range report.Violations {
		fmt.Printf("%s %s: %s\n", color.RedString("FAIL"), v.Code, v.Message)
	}
	return 1
}

// #endregion verify

// #region watch

// runWatch reruns the gate whenever one of the watched files is written,
// debounced so editor save bursts trigger a single run.
func runWatch(paths []string, run func() int) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		return 2
	}
	defer watcher.Close()

	dirs := map[string]bool{}
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "watch %s: %v\n", dir, err)
			return 2
		}
	}
	watched := map[string]bool{}
	for _, p := range paths {
		watched[filepath.Clean(p)] = true
	}

	run()
	fmt.Println("watching for changes (ctrl-c to stop)")

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				fmt.Printf("\n%s changed, rerunning\n", name)
				run()
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		}
	}
}

// #endregion watch

// #region output

func printSummary(receipt evidence.WriteReceipt, stage evidence.Stage, doc evidence.Document) {
	fmt.Printf("[%s] %s %s\n", stage, renderOutcome(doc.Snapshot.Outcome), receipt.Path)
	fmt.Printf("  run: %s\n", receipt.RunID)

	counts := doc.SeverityMetrics.BySeverity
	fmt.Printf("  findings: %d (critical=%d error=%d warn=%d info=%d)\n",
		doc.SeverityMetrics.TotalViolations, counts.Critical, counts.Error, counts.Warn, counts.Info)
	if doc.Consolidation != nil {
		fmt.Printf("  suppressed: %d\n", len(doc.Consolidation.Suppressed))
	}

	for _, f := range doc.Snapshot.Findings {
		fmt.Printf("  %s %s %s: %s\n", renderSeverity(f.Severity), f.RuleID, f.File, f.Message)
	}
}

func renderOutcome(outcome evidence.Outcome) string {
	switch outcome {
	case evidence.OutcomeBlock:
		return color.New(color.FgRed, color.Bold).Sprint(string(outcome))
	case evidence.OutcomeWarn:
		return color.YellowString(string(outcome))
	default:
		return color.GreenString(string(outcome))
	}
}

func renderSeverity(sev rules.Severity) string {
	switch sev {
	case rules.SeverityCritical, rules.SeverityError:
		return color.RedString(string(sev))
	case rules.SeverityWarn:
		return color.YellowString(string(sev))
	default:
		return string(sev)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output

// #region helpers

func splitPaths(arg string) []string {
	var out []string
	for _, p := range strings.Split(arg, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
