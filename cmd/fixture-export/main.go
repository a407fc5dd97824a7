package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specgate/specgate/internal/evidence"
	"github.com/specgate/specgate/internal/facts"
	"github.com/specgate/specgate/internal/replay"
	"github.com/specgate/specgate/internal/rules"
	"gopkg.in/yaml.v3"
)

// #region main

func main() {
	rulesPath := flag.String("rules", "", "path to rule-set YAML")
	factsArg := flag.String("facts", "", "comma-separated fact JSON files, one run each")
	stageArg := flag.String("stage", string(evidence.StagePreCommit), "stage recorded for every run")
	outPath := flag.String("out", "", "output fixture JSON path")
	description := flag.String("description", "", "fixture description")
	flag.Parse()

	if *rulesPath == "" || *factsArg == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --rules rules.yaml --facts a.json,b.json --out fixture.json [--stage PRE_COMMIT] [--description text]")
		os.Exit(2)
	}

	if err := run(*rulesPath, splitPaths(*factsArg), evidence.Stage(*stageArg), *outPath, *description); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

// run evaluates every fact batch through the pipeline and writes a fixture
// whose expected results capture the outcomes observed now. Replaying the
// fixture later then detects behavior drift.
func run(rulesPath string, factPaths []string, stage evidence.Stage, outPath, description string) error {
	rulesJSON, set, err := loadRules(rulesPath)
	if err != nil {
		return err
	}

	var fixtureRuns []replay.FixtureRun
	var runs []replay.Run
	for _, path := range factPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read facts %s: %w", path, err)
		}
		fs, err := facts.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("parse facts %s: %w", path, err)
		}

		runID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fixtureRuns = append(fixtureRuns, replay.FixtureRun{
			RunID: runID,
			Stage: string(stage),
			Facts: json.RawMessage(data),
		})
		runs = append(runs, replay.Run{RunID: runID, Stage: stage, Facts: fs})
	}

	results, err := replay.Replay(set, runs, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("evaluate runs: %w", err)
	}

	expected := make([]replay.FixtureExpectedResult, len(results))
	for i, r := range results {
		expected[i] = replay.FixtureExpectedResult{
			RunID:   r.RunID,
			Outcome: string(r.Outcome),
		}
	}

	if description == "" {
		description = fmt.Sprintf("Exported %d run(s) against %s", len(runs), filepath.Base(rulesPath))
	}
	fixture := replay.Fixture{
		Description:     description,
		Rules:           rulesJSON,
		Runs:            fixtureRuns,
		ExpectedResults: expected,
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d runs)\n", outPath, len(data), len(runs))
	return nil
}

// loadRules validates the rule set and re-renders the rules list as JSON for
// embedding in the fixture.
func loadRules(path string) (json.RawMessage, rules.RuleSet, error) {
	set, err := rules.Load(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read rule set: %w", err)
	}
	var doc struct {
		Rules []interface{} `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse rule set: %w", err)
	}
	rulesJSON, err := json.Marshal(doc.Rules)
	if err != nil {
		return nil, nil, fmt.Errorf("encode rules: %w", err)
	}
	return rulesJSON, set, nil
}

// #endregion export

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

// #endregion helpers
