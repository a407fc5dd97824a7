package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/specgate/specgate/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	startArg := flag.String("start", "", "replay start time (RFC3339, default: now)")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--start 2026-01-01T00:00:00Z]")
		os.Exit(2)
	}

	start := time.Now().UTC()
	if *startArg != "" {
		parsed, err := time.Parse(time.RFC3339, *startArg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse start time: %v\n", err)
			os.Exit(2)
		}
		start = parsed
	}

	os.Exit(run(*fixturePath, start))
}

// #endregion main

// #region run

func run(fixturePath string, start time.Time) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	set, err := f.RuleSet()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture rules: %v\n", err)
		return 2
	}
	runs, err := f.ToRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture runs: %v\n", err)
		return 2
	}

	results, err := replay.Replay(set, runs, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}
	return printComparison(results, f.ExpectedResults)
}

// #endregion run

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 0 when every run matches its expectation, 1 otherwise.
func printComparison(results []replay.Result, expected []replay.FixtureExpectedResult) int {
	fmt.Printf("%-12s| %-10s| %-10s| %s\n", "Run", "Expected", "Replayed", "Match")
	fmt.Printf("%-12s+%-11s+%-11s+%s\n",
		"------------", "-----------", "-----------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		exp := expected[i].Outcome
		got := string(results[i].Outcome)
		match := "DIFF"
		if exp == got {
			match = "OK"
			matches++
		}
		fmt.Printf("%-12s| %-10s| %-10s| %s\n", results[i].RunID, exp, got, match)
	}

	summary := replay.Summarize(results)
	diverge := total - matches
	fmt.Printf("\nSummary: %d total (%d pass, %d warn, %d block), %d match, %d diverge\n",
		summary.TotalRuns, summary.Passes, summary.Warns, summary.Blocks, matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output
